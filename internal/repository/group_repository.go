package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vikoba/loan-engine/internal/domain"
)

type groupRepository struct {
	db *sqlx.DB
}

func NewGroupRepository(db *sqlx.DB) GroupRepository {
	return &groupRepository{db: db}
}

func (r *groupRepository) GetSettings(ctx context.Context, groupID uuid.UUID) (*domain.GroupSettings, error) {
	query := `
		SELECT group_id, loan_interest_percent, loan_period_days, grace_period_days, updated_at
		FROM group_settings
		WHERE group_id = $1
	`

	var settings domain.GroupSettings
	err := r.db.GetContext(ctx, &settings, query, groupID)
	if err != nil {
		return nil, err
	}

	return &settings, nil
}
