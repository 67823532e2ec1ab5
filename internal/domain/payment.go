package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	PaymentMethodCash         = "cash"
	PaymentMethodBankTransfer = "bank_transfer"
	PaymentMethodMobileMoney  = "mobile_money"
	PaymentMethodCheque       = "cheque"
)

// LoanPayment is one repayment event against a loan. Rows are immutable once
// written; the payment history is the audit trail closure is computed from.
type LoanPayment struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	LoanID    uuid.UUID       `json:"loan_id" db:"loan_id"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	Method    string          `json:"method" db:"method"`
	Note      string          `json:"note" db:"note"`
	CreatedBy uuid.UUID       `json:"created_by" db:"created_by"`
	PaidAt    time.Time       `json:"paid_at" db:"paid_at"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

type RepayLoanRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
	Method string          `json:"method" validate:"required,oneof=cash bank_transfer mobile_money cheque"`
	Note   string          `json:"note"`
}

type RepayLoanResponse struct {
	Payment *LoanPayment `json:"payment"`
	Closed  bool         `json:"closed"`
}
