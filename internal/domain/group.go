package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GroupSettings is the per-group lending configuration. The engine reads it
// and never writes it back.
type GroupSettings struct {
	GroupID             uuid.UUID       `json:"group_id" db:"group_id"`
	LoanInterestPercent decimal.Decimal `json:"loan_interest_percent" db:"loan_interest_percent"`
	LoanPeriodDays      int             `json:"loan_period_days" db:"loan_period_days"`
	GracePeriodDays     int             `json:"grace_period_days" db:"grace_period_days"`
	UpdatedAt           time.Time       `json:"updated_at" db:"updated_at"`
}
