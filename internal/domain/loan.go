package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	LoanStatusWaitlisted = "WAITLISTED"
	LoanStatusActive     = "ACTIVE"
	LoanStatusClosed     = "CLOSED"
	LoanStatusDefaulted  = "DEFAULTED"
)

// Terminal outcome recorded alongside CLOSED. A rejected loan and a fully
// repaid loan share the status value but not the meaning.
const (
	ClosedReasonRejected = "REJECTED"
	ClosedReasonRepaid   = "REPAID"
)

// Loan represents one credit extended to a group member.
type Loan struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	GroupID         uuid.UUID       `json:"group_id" db:"group_id"`
	CircleID        uuid.UUID       `json:"circle_id" db:"circle_id"`
	BorrowerID      uuid.UUID       `json:"borrower_id" db:"borrower_id"`
	Principal       decimal.Decimal `json:"principal" db:"principal"`
	Purpose         string          `json:"purpose" db:"purpose"`
	Status          string          `json:"status" db:"status"`
	ClosedReason    *string         `json:"closed_reason,omitempty" db:"closed_reason"`
	GracePeriodDays *int            `json:"grace_period_days,omitempty" db:"grace_period_days"`
	DisbursedBy     *uuid.UUID      `json:"disbursed_by,omitempty" db:"disbursed_by"`
	DisbursedAt     *time.Time      `json:"disbursed_at,omitempty" db:"disbursed_at"`
	DueAt           *time.Time      `json:"due_at,omitempty" db:"due_at"`
	WaitlistedAt    time.Time       `json:"waitlisted_at" db:"waitlisted_at"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// EffectiveGraceDays returns the loan's own grace override when set,
// otherwise the group default.
func (l *Loan) EffectiveGraceDays(settings *GroupSettings) int {
	if l.GracePeriodDays != nil {
		return *l.GracePeriodDays
	}
	if settings != nil {
		return settings.GracePeriodDays
	}
	return 0
}

// IsDisbursed reports whether funds have left the group account.
func (l *Loan) IsDisbursed() bool {
	return l.DisbursedAt != nil
}

// DTOs for requests and responses

type RequestLoanRequest struct {
	GroupID         uuid.UUID       `json:"group_id" validate:"required"`
	CircleID        uuid.UUID       `json:"circle_id" validate:"required"`
	Principal       decimal.Decimal `json:"principal" validate:"required"`
	Purpose         string          `json:"purpose" validate:"required"`
	GracePeriodDays *int            `json:"grace_period_days,omitempty" validate:"omitempty,gte=0"`
}

type ExtendGraceRequest struct {
	ExtraDays int    `json:"extra_days" validate:"required,gt=0"`
	Reason    string `json:"reason" validate:"required"`
}

type LoanResponse struct {
	Loan *Loan `json:"loan"`
}

type PromoteWaitlistResponse struct {
	GroupID  uuid.UUID `json:"group_id"`
	CircleID uuid.UUID `json:"circle_id"`
	Promoted int       `json:"promoted"`
}
