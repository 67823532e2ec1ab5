package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/vikoba/loan-engine/internal/domain"
	customError "github.com/vikoba/loan-engine/pkg/errors"
)

// postgres unique_violation
const pqUniqueViolation = "23505"

type ledgerRepository struct {
	db *sqlx.DB
}

func NewLedgerRepository(db *sqlx.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) Create(ctx context.Context, entry *domain.LedgerEntry) error {
	// ledger_entries carries UNIQUE (loan_id, type) for LOAN_OUT rows, so a
	// retried disbursement cannot post twice
	query := `
		INSERT INTO ledger_entries (id, group_id, circle_id, loan_id, type, direction, amount, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.GroupID,
		entry.CircleID,
		entry.LoanID,
		entry.Type,
		entry.Direction,
		entry.Amount,
		entry.CreatedBy,
		entry.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation && entry.Type == domain.LedgerTypeLoanOut {
			return customError.WrapDuplicateDisbursement(entry.LoanID.String())
		}
		return err
	}

	return nil
}

func (r *ledgerRepository) ListByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.LedgerEntry, error) {
	query := `
		SELECT id, group_id, circle_id, loan_id, type, direction, amount, created_by, created_at
		FROM ledger_entries
		WHERE loan_id = $1
		ORDER BY created_at
	`

	var entries []*domain.LedgerEntry
	err := r.db.SelectContext(ctx, &entries, query, loanID)
	if err != nil {
		return nil, err
	}

	return entries, nil
}
