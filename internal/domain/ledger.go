package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	LedgerTypeLoanOut         = "LOAN_OUT"
	LedgerTypeLoanRepaymentIn = "LOAN_REPAYMENT_IN"
)

const (
	LedgerDirectionDebit  = "DEBIT"
	LedgerDirectionCredit = "CREDIT"
)

// LedgerEntry is one posting against the group account. Disbursements post a
// debit (money out), repayments a credit (money in). At most one LOAN_OUT
// entry may exist per loan; the database enforces that.
type LedgerEntry struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	GroupID   uuid.UUID       `json:"group_id" db:"group_id"`
	CircleID  uuid.UUID       `json:"circle_id" db:"circle_id"`
	LoanID    uuid.UUID       `json:"loan_id" db:"loan_id"`
	Type      string          `json:"type" db:"type"`
	Direction string          `json:"direction" db:"direction"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	CreatedBy uuid.UUID       `json:"created_by" db:"created_by"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}
