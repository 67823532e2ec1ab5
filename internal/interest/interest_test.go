package interest

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/vikoba/loan-engine/internal/domain"
)

var day0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func days(n int) time.Time {
	return day0.AddDate(0, 0, n)
}

func payments(amounts ...int64) []*domain.LoanPayment {
	out := make([]*domain.LoanPayment, 0, len(amounts))
	for _, a := range amounts {
		out = append(out, &domain.LoanPayment{Amount: decimal.NewFromInt(a)})
	}
	return out
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name            string
		input           Input
		wantPeriods     int
		wantGrossDue    int64
		wantOutstanding int64
		wantInGrace     bool
		wantOverdue     int
	}{
		{
			name: "base period on disbursement day",
			input: Input{
				Principal:       decimal.NewFromInt(10000),
				DisbursedAt:     day0,
				InterestPercent: decimal.NewFromInt(20),
				LoanPeriodDays:  30,
				GracePeriodDays: 5,
				AsOf:            day0,
			},
			wantPeriods:     1,
			wantGrossDue:    12000,
			wantOutstanding: 12000,
			wantInGrace:     true,
			wantOverdue:     0,
		},
		{
			name: "last day of grace still one period",
			input: Input{
				Principal:       decimal.NewFromInt(10000),
				DisbursedAt:     day0,
				InterestPercent: decimal.NewFromInt(20),
				LoanPeriodDays:  30,
				GracePeriodDays: 5,
				AsOf:            days(35),
			},
			wantPeriods:     1,
			wantGrossDue:    12000,
			wantOutstanding: 12000,
			wantInGrace:     true,
			wantOverdue:     0,
		},
		{
			name: "one day past grace adds one block",
			input: Input{
				Principal:       decimal.NewFromInt(10000),
				DisbursedAt:     day0,
				InterestPercent: decimal.NewFromInt(20),
				LoanPeriodDays:  30,
				GracePeriodDays: 5,
				AsOf:            days(36),
			},
			wantPeriods:     2,
			wantGrossDue:    14000,
			wantOutstanding: 14000,
			wantInGrace:     false,
			wantOverdue:     1,
		},
		{
			name: "five days past grace still one extra block",
			input: Input{
				Principal:       decimal.NewFromInt(10000),
				DisbursedAt:     day0,
				InterestPercent: decimal.NewFromInt(20),
				LoanPeriodDays:  30,
				GracePeriodDays: 5,
				AsOf:            days(40),
			},
			wantPeriods:     2,
			wantGrossDue:    14000,
			wantOutstanding: 14000,
			wantInGrace:     false,
			wantOverdue:     1,
		},
		{
			name: "thirty-one days past grace adds two blocks",
			input: Input{
				Principal:       decimal.NewFromInt(10000),
				DisbursedAt:     day0,
				InterestPercent: decimal.NewFromInt(20),
				LoanPeriodDays:  30,
				GracePeriodDays: 5,
				AsOf:            days(66),
			},
			wantPeriods:     3,
			wantGrossDue:    16000,
			wantOutstanding: 16000,
			wantInGrace:     false,
			wantOverdue:     2,
		},
		{
			name: "payments reduce outstanding",
			input: Input{
				Principal:       decimal.NewFromInt(10000),
				DisbursedAt:     day0,
				InterestPercent: decimal.NewFromInt(20),
				LoanPeriodDays:  30,
				GracePeriodDays: 5,
				AsOf:            days(10),
				Payments:        payments(5000, 2000),
			},
			wantPeriods:     1,
			wantGrossDue:    12000,
			wantOutstanding: 5000,
			wantInGrace:     true,
			wantOverdue:     0,
		},
		{
			name: "overpayment clamps outstanding to zero",
			input: Input{
				Principal:       decimal.NewFromInt(10000),
				DisbursedAt:     day0,
				InterestPercent: decimal.NewFromInt(20),
				LoanPeriodDays:  30,
				GracePeriodDays: 5,
				AsOf:            days(40),
				Payments:        payments(14000, 500),
			},
			wantPeriods:     2,
			wantGrossDue:    14000,
			wantOutstanding: 0,
			wantInGrace:     false,
			wantOverdue:     1,
		},
		{
			name: "zero interest rate",
			input: Input{
				Principal:       decimal.NewFromInt(10000),
				DisbursedAt:     day0,
				InterestPercent: decimal.Zero,
				LoanPeriodDays:  30,
				GracePeriodDays: 0,
				AsOf:            day0,
			},
			wantPeriods:     1,
			wantGrossDue:    10000,
			wantOutstanding: 10000,
			wantInGrace:     true,
			wantOverdue:     0,
		},
		{
			name: "negative interest rate clamps to zero",
			input: Input{
				Principal:       decimal.NewFromInt(10000),
				DisbursedAt:     day0,
				InterestPercent: decimal.NewFromInt(-5),
				LoanPeriodDays:  30,
				GracePeriodDays: 5,
				AsOf:            day0,
			},
			wantPeriods:     1,
			wantGrossDue:    10000,
			wantOutstanding: 10000,
			wantInGrace:     true,
			wantOverdue:     0,
		},
		{
			name: "fractional rate rounds to nearest unit",
			input: Input{
				Principal:       decimal.NewFromInt(999),
				DisbursedAt:     day0,
				InterestPercent: decimal.NewFromFloat(12.5),
				LoanPeriodDays:  30,
				GracePeriodDays: 0,
				AsOf:            day0,
			},
			// 999 * 1.125 = 1123.875 -> 1124
			wantPeriods:     1,
			wantGrossDue:    1124,
			wantOutstanding: 1124,
			wantInGrace:     true,
			wantOverdue:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.input)

			assert.Equal(t, tt.wantPeriods, got.Periods)
			assert.True(t, got.GrossDue.Equal(decimal.NewFromInt(tt.wantGrossDue)),
				"gross due: want %d got %s", tt.wantGrossDue, got.GrossDue)
			assert.True(t, got.Outstanding.Equal(decimal.NewFromInt(tt.wantOutstanding)),
				"outstanding: want %d got %s", tt.wantOutstanding, got.Outstanding)
			assert.Equal(t, tt.wantInGrace, got.InGrace)
			assert.Equal(t, tt.wantOverdue, got.OverdueBlocks)
			assert.False(t, got.Fallback)
		})
	}
}

func TestCompute_DueAndGraceDates(t *testing.T) {
	got := Compute(Input{
		Principal:       decimal.NewFromInt(10000),
		DisbursedAt:     day0,
		InterestPercent: decimal.NewFromInt(20),
		LoanPeriodDays:  30,
		GracePeriodDays: 5,
		AsOf:            day0,
	})

	assert.Equal(t, days(30), got.DueAt)
	assert.Equal(t, days(35), got.GraceEndAt)
}

func TestCompute_MissingDisbursementFallsBack(t *testing.T) {
	asOf := days(100)
	got := Compute(Input{
		Principal:       decimal.NewFromInt(10000),
		DisbursedAt:     time.Time{},
		InterestPercent: decimal.NewFromInt(20),
		LoanPeriodDays:  30,
		GracePeriodDays: 5,
		AsOf:            asOf,
		Payments:        payments(1000),
	})

	assert.True(t, got.Fallback)
	assert.Equal(t, 1, got.Periods)
	assert.True(t, got.InGrace)
	assert.Equal(t, 0, got.OverdueBlocks)
	assert.True(t, got.GrossDue.Equal(decimal.NewFromInt(12000)))
	assert.True(t, got.Paid.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, asOf.AddDate(0, 0, 30), got.DueAt)
}

func TestCompute_Deterministic(t *testing.T) {
	input := Input{
		Principal:       decimal.NewFromInt(98765),
		DisbursedAt:     day0,
		InterestPercent: decimal.NewFromFloat(17.5),
		LoanPeriodDays:  30,
		GracePeriodDays: 7,
		AsOf:            days(90),
		Payments:        payments(10000, 20000),
	}

	first := Compute(input)
	second := Compute(input)

	assert.Equal(t, first.Periods, second.Periods)
	assert.True(t, first.GrossDue.Equal(second.GrossDue))
	assert.True(t, first.Outstanding.Equal(second.Outstanding))
	assert.Equal(t, first.DueAt, second.DueAt)
	assert.Equal(t, first.GraceEndAt, second.GraceEndAt)
}

func TestCompute_OutstandingMonotoneInPayments(t *testing.T) {
	base := Input{
		Principal:       decimal.NewFromInt(50000),
		DisbursedAt:     day0,
		InterestPercent: decimal.NewFromInt(10),
		LoanPeriodDays:  30,
		GracePeriodDays: 5,
		AsOf:            days(20),
	}

	prev := Compute(base).Outstanding
	paid := []int64{}
	for _, amount := range []int64{5000, 5000, 20000, 30000} {
		paid = append(paid, amount)
		base.Payments = payments(paid...)
		got := Compute(base)
		assert.True(t, got.Outstanding.LessThanOrEqual(prev),
			"outstanding grew after paying more: %s -> %s", prev, got.Outstanding)
		assert.False(t, got.Outstanding.IsNegative())
		prev = got.Outstanding
	}
	assert.True(t, prev.IsZero())
}

func TestSettled(t *testing.T) {
	input := Input{
		Principal:       decimal.NewFromInt(10000),
		DisbursedAt:     day0,
		InterestPercent: decimal.NewFromInt(20),
		LoanPeriodDays:  30,
		GracePeriodDays: 5,
		AsOf:            days(40),
		Payments:        payments(14000),
	}

	got := Compute(input)
	assert.True(t, got.Settled())
	assert.True(t, got.Outstanding.IsZero())

	input.Payments = payments(13999)
	assert.False(t, Compute(input).Settled())
}
