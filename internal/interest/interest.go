// Package interest computes loan interest accrual and amortization totals.
// Everything here is pure: no clock reads, no I/O. The caller supplies the
// evaluation instant, and identical inputs always produce identical totals.
package interest

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vikoba/loan-engine/internal/domain"
	"github.com/vikoba/loan-engine/pkg/utils"
)

// Input carries everything the totals computation depends on.
//
// DisbursedAt may be the zero time when the stored disbursement timestamp is
// missing or unparseable; the computation then degrades to treating the loan
// as disbursed at AsOf and flags the result (see Totals.Fallback) instead of
// failing.
type Input struct {
	Principal       decimal.Decimal
	DisbursedAt     time.Time
	InterestPercent decimal.Decimal
	LoanPeriodDays  int
	GracePeriodDays int
	AsOf            time.Time
	Payments        []*domain.LoanPayment
}

// Totals is a computed snapshot, never persisted. Callers recompute it on
// every read.
type Totals struct {
	DueAt         time.Time       `json:"due_at"`
	GraceEndAt    time.Time       `json:"grace_end_at"`
	Periods       int             `json:"periods"`
	GrossDue      decimal.Decimal `json:"gross_due"`
	Paid          decimal.Decimal `json:"paid"`
	Outstanding   decimal.Decimal `json:"outstanding"`
	InGrace       bool            `json:"in_grace"`
	OverdueBlocks int             `json:"overdue_blocks"`
	Fallback      bool            `json:"fallback,omitempty"`
}

var one = decimal.NewFromInt(1)

// Compute derives the loan's due date, accrued interest periods, gross due,
// and outstanding balance as of the given instant.
//
// Interest is simple: one period always accrues once disbursed, and each
// full-or-partial loan period elapsed past the grace end adds one more
// period's interest on the original principal. Nothing compounds.
func Compute(in Input) Totals {
	periodDays := in.LoanPeriodDays
	if periodDays <= 0 {
		periodDays = 1
	}
	graceDays := in.GracePeriodDays
	if graceDays < 0 {
		graceDays = 0
	}

	disbursedAt := in.DisbursedAt
	fallback := false
	if disbursedAt.IsZero() {
		disbursedAt = in.AsOf
		fallback = true
	}

	dueAt := disbursedAt.AddDate(0, 0, periodDays)
	graceEndAt := dueAt.AddDate(0, 0, graceDays)

	periods := 1
	if in.AsOf.After(graceEndAt) {
		extraDays := utils.WholeDaysBetween(graceEndAt, in.AsOf)
		periods += utils.CeilDiv(extraDays, periodDays)
	}

	rate := in.InterestPercent
	if rate.IsNegative() {
		rate = decimal.Zero
	}
	rate = rate.Div(decimal.NewFromInt(100))

	grossDue := utils.RoundCurrency(
		in.Principal.Mul(one.Add(rate.Mul(decimal.NewFromInt(int64(periods))))),
	)

	paid := decimal.Zero
	for _, p := range in.Payments {
		paid = paid.Add(p.Amount)
	}

	outstanding := utils.RoundCurrency(grossDue.Sub(paid))
	if outstanding.IsNegative() {
		outstanding = decimal.Zero
	}

	return Totals{
		DueAt:         dueAt,
		GraceEndAt:    graceEndAt,
		Periods:       periods,
		GrossDue:      grossDue,
		Paid:          paid,
		Outstanding:   outstanding,
		InGrace:       !in.AsOf.After(graceEndAt),
		OverdueBlocks: periods - 1,
		Fallback:      fallback,
	}
}

// Settled reports whether the cumulative payments cover the gross due.
func (t Totals) Settled() bool {
	return t.Paid.GreaterThanOrEqual(t.GrossDue)
}
