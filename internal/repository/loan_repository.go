package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vikoba/loan-engine/internal/domain"
)

type loanRepository struct {
	db *sqlx.DB
}

func NewLoanRepository(db *sqlx.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	query := `
		INSERT INTO loans (id, group_id, circle_id, borrower_id, principal, purpose, status, grace_period_days, waitlisted_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		loan.ID,
		loan.GroupID,
		loan.CircleID,
		loan.BorrowerID,
		loan.Principal,
		loan.Purpose,
		loan.Status,
		loan.GracePeriodDays,
		loan.WaitlistedAt,
		loan.CreatedAt,
		loan.UpdatedAt,
	)

	return err
}

func (r *loanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	query := `
		SELECT id, group_id, circle_id, borrower_id, principal, purpose, status, closed_reason, grace_period_days, disbursed_by, disbursed_at, due_at, waitlisted_at, created_at, updated_at
		FROM loans
		WHERE id = $1
	`

	var loan domain.Loan
	err := r.db.GetContext(ctx, &loan, query, id)
	if err != nil {
		return nil, err
	}

	return &loan, nil
}

func (r *loanRepository) ListByGroupCircle(ctx context.Context, groupID, circleID uuid.UUID) ([]*domain.Loan, error) {
	query := `
		SELECT id, group_id, circle_id, borrower_id, principal, purpose, status, closed_reason, grace_period_days, disbursed_by, disbursed_at, due_at, waitlisted_at, created_at, updated_at
		FROM loans
		WHERE group_id = $1 AND circle_id = $2
		ORDER BY created_at DESC
	`

	var loans []*domain.Loan
	err := r.db.SelectContext(ctx, &loans, query, groupID, circleID)
	if err != nil {
		return nil, err
	}

	return loans, nil
}

func (r *loanRepository) ListActiveDisbursed(ctx context.Context) ([]*domain.Loan, error) {
	query := `
		SELECT id, group_id, circle_id, borrower_id, principal, purpose, status, closed_reason, grace_period_days, disbursed_by, disbursed_at, due_at, waitlisted_at, created_at, updated_at
		FROM loans
		WHERE status = $1 AND disbursed_at IS NOT NULL
		ORDER BY disbursed_at
	`

	var loans []*domain.Loan
	err := r.db.SelectContext(ctx, &loans, query, domain.LoanStatusActive)
	if err != nil {
		return nil, err
	}

	return loans, nil
}

func (r *loanRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, closedReason *string) error {
	query := `
		UPDATE loans
		SET status = $2, closed_reason = $3, updated_at = $4
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, status, closedReason, time.Now())
	return err
}

func (r *loanRepository) MarkDisbursed(ctx context.Context, id uuid.UUID, by uuid.UUID, at, dueAt time.Time) error {
	// disbursed_at is write-once: the guard keeps a concurrent second
	// disbursement from clearing or moving it
	query := `
		UPDATE loans
		SET disbursed_by = $2, disbursed_at = $3, due_at = $4, updated_at = $5
		WHERE id = $1 AND disbursed_at IS NULL
	`

	_, err := r.db.ExecContext(ctx, query, id, by, at, dueAt, time.Now())
	return err
}

func (r *loanRepository) ExtendGrace(ctx context.Context, id uuid.UUID, extraDays int, reason string) error {
	// Grace bookkeeping lives in a stored procedure on the backend
	query := `SELECT extend_loan_grace($1, $2, $3)`

	_, err := r.db.ExecContext(ctx, query, id, extraDays, reason)
	return err
}

func (r *loanRepository) PromoteWaitlisted(ctx context.Context, groupID, circleID uuid.UUID) (int, error) {
	// Fund-matching order and balance checks live in a stored procedure
	query := `SELECT promote_waitlisted_loans($1, $2)`

	var promoted int
	err := r.db.GetContext(ctx, &promoted, query, groupID, circleID)
	if err != nil {
		return 0, err
	}

	return promoted, nil
}
