package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vikoba/loan-engine/internal/domain"
)

// LoanRepository defines the interface for loan row operations
type LoanRepository interface {
	// Create inserts a new loan row
	Create(ctx context.Context, loan *domain.Loan) error

	// GetByID retrieves a loan by id
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error)

	// ListByGroupCircle retrieves all loans for a group within a circle
	ListByGroupCircle(ctx context.Context, groupID, circleID uuid.UUID) ([]*domain.Loan, error)

	// ListActiveDisbursed retrieves every active loan with a disbursement on record
	ListActiveDisbursed(ctx context.Context) ([]*domain.Loan, error)

	// UpdateStatus moves a loan to a new status; closedReason is recorded
	// when the new status is CLOSED
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, closedReason *string) error

	// MarkDisbursed records who disbursed, when, and the derived due date
	MarkDisbursed(ctx context.Context, id uuid.UUID, by uuid.UUID, at, dueAt time.Time) error

	// ExtendGrace invokes the extend_loan_grace procedure on the store
	ExtendGrace(ctx context.Context, id uuid.UUID, extraDays int, reason string) error

	// PromoteWaitlisted invokes the promote_waitlisted_loans procedure and
	// returns how many loans were promoted
	PromoteWaitlisted(ctx context.Context, groupID, circleID uuid.UUID) (int, error)
}

// PaymentRepository defines the interface for payment row operations
type PaymentRepository interface {
	// Create inserts a new payment row
	Create(ctx context.Context, payment *domain.LoanPayment) error

	// ListByLoanID retrieves all payments for a loan ordered by paid_at
	ListByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.LoanPayment, error)

	// TotalPaid sums the payment amounts for a loan
	TotalPaid(ctx context.Context, loanID uuid.UUID) (decimal.Decimal, error)
}

// LedgerRepository defines the interface for ledger postings
type LedgerRepository interface {
	// Create inserts a ledger entry. Inserting a second LOAN_OUT entry for
	// the same loan fails with a duplicate-disbursement error.
	Create(ctx context.Context, entry *domain.LedgerEntry) error

	// ListByLoanID retrieves the postings for a loan
	ListByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.LedgerEntry, error)
}

// GroupRepository defines the interface for group configuration reads
type GroupRepository interface {
	// GetSettings retrieves the lending settings for a group
	GetSettings(ctx context.Context, groupID uuid.UUID) (*domain.GroupSettings, error)
}
