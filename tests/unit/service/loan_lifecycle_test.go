package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/vikoba/loan-engine/internal/config"
	"github.com/vikoba/loan-engine/internal/domain"
	loanService "github.com/vikoba/loan-engine/internal/service"
	customError "github.com/vikoba/loan-engine/pkg/errors"
	"github.com/vikoba/loan-engine/tests/mocks"
)

var day0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func newService(clock time.Time, loanRepo *mocks.MockLoanRepository, paymentRepo *mocks.MockPaymentRepository, ledgerRepo *mocks.MockLedgerRepository, groupRepo *mocks.MockGroupRepository) *loanService.LoanService {
	cfg := &config.Config{
		Lending: config.LendingConfig{
			DefaultInterestPercent: "20",
			DefaultLoanPeriodDays:  30,
			DefaultGraceDays:       5,
			DefaultAfterBlocks:     3,
			TotalsCacheTTL:         "30s",
		},
	}
	return loanService.NewLoanService(loanRepo, paymentRepo, ledgerRepo, groupRepo, nil, cfg).
		WithClock(func() time.Time { return clock })
}

func settings(groupID uuid.UUID) *domain.GroupSettings {
	return &domain.GroupSettings{
		GroupID:             groupID,
		LoanInterestPercent: decimal.NewFromInt(20),
		LoanPeriodDays:      30,
		GracePeriodDays:     5,
	}
}

func TestTransitionGuards(t *testing.T) {
	groupID := uuid.New()
	disbursedAt := day0

	waitlisted := func() *domain.Loan {
		return &domain.Loan{ID: uuid.New(), GroupID: groupID, Principal: decimal.NewFromInt(10000), Status: domain.LoanStatusWaitlisted}
	}
	closed := func() *domain.Loan {
		reason := domain.ClosedReasonRepaid
		return &domain.Loan{ID: uuid.New(), GroupID: groupID, Principal: decimal.NewFromInt(10000), Status: domain.LoanStatusClosed, ClosedReason: &reason, DisbursedAt: &disbursedAt}
	}

	tests := []struct {
		name     string
		loan     *domain.Loan
		invoke   func(svc *loanService.LoanService, loanID uuid.UUID) error
		wantCode string
	}{
		{
			name:     "member cannot approve",
			loan:     waitlisted(),
			invoke:   func(svc *loanService.LoanService, loanID uuid.UUID) error {
				_, err := svc.Approve(context.Background(), domain.Actor{MemberID: uuid.New(), Role: domain.RoleMember}, loanID)
				return err
			},
			wantCode: customError.ErrCodeUnauthorizedRole,
		},
		{
			name:     "treasurer cannot reject",
			loan:     waitlisted(),
			invoke:   func(svc *loanService.LoanService, loanID uuid.UUID) error {
				_, err := svc.Reject(context.Background(), domain.Actor{MemberID: uuid.New(), Role: domain.RoleTreasurer}, loanID)
				return err
			},
			wantCode: customError.ErrCodeUnauthorizedRole,
		},
		{
			name:     "chairperson cannot disburse",
			loan:     waitlisted(),
			invoke:   func(svc *loanService.LoanService, loanID uuid.UUID) error {
				_, err := svc.Disburse(context.Background(), domain.Actor{MemberID: uuid.New(), Role: domain.RoleChairperson}, loanID)
				return err
			},
			wantCode: customError.ErrCodeUnauthorizedRole,
		},
		{
			name:     "closed loan cannot be disbursed",
			loan:     closed(),
			invoke:   func(svc *loanService.LoanService, loanID uuid.UUID) error {
				_, err := svc.Disburse(context.Background(), domain.Actor{MemberID: uuid.New(), Role: domain.RoleAdmin}, loanID)
				return err
			},
			wantCode: customError.ErrCodeInvalidTransition,
		},
		{
			name:     "closed loan cannot accept repayment",
			loan:     closed(),
			invoke:   func(svc *loanService.LoanService, loanID uuid.UUID) error {
				_, _, err := svc.Repay(context.Background(), domain.Actor{MemberID: uuid.New(), Role: domain.RoleTreasurer}, loanID, &domain.RepayLoanRequest{
					Amount: decimal.NewFromInt(100),
					Method: domain.PaymentMethodCash,
				})
				return err
			},
			wantCode: customError.ErrCodeInvalidTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockLoanRepo := &mocks.MockLoanRepository{}
			mockPaymentRepo := &mocks.MockPaymentRepository{}
			mockLedgerRepo := &mocks.MockLedgerRepository{}
			mockGroupRepo := &mocks.MockGroupRepository{}
			svc := newService(day0, mockLoanRepo, mockPaymentRepo, mockLedgerRepo, mockGroupRepo)

			mockLoanRepo.On("GetByID", mock.Anything, tt.loan.ID).Return(tt.loan, nil).Maybe()

			err := tt.invoke(svc, tt.loan.ID)

			assert.Error(t, err)
			assert.True(t, customError.HasCode(err, tt.wantCode), "got %v", err)

			// A failed guard leaves the loan untouched
			mockLoanRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			mockLoanRepo.AssertNotCalled(t, "MarkDisbursed", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			mockLedgerRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			mockPaymentRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

// Repayment sequence whose cumulative sum first reaches the gross due closes
// the loan, and only that repayment does.
func TestClosureLaw(t *testing.T) {
	groupID := uuid.New()
	disbursedAt := day0
	asOf := day0.AddDate(0, 0, 40) // one overdue block: gross due 14000

	loan := &domain.Loan{
		ID:          uuid.New(),
		GroupID:     groupID,
		CircleID:    uuid.New(),
		Principal:   decimal.NewFromInt(10000),
		Status:      domain.LoanStatusActive,
		DisbursedAt: &disbursedAt,
	}

	history := []*domain.LoanPayment{}
	steps := []struct {
		amount    int64
		wantClose bool
	}{
		{4000, false},
		{5000, false},
		{5000, true}, // cumulative 14000 == gross due
	}

	for _, step := range steps {
		mockLoanRepo := &mocks.MockLoanRepository{}
		mockPaymentRepo := &mocks.MockPaymentRepository{}
		mockLedgerRepo := &mocks.MockLedgerRepository{}
		mockGroupRepo := &mocks.MockGroupRepository{}
		svc := newService(asOf, mockLoanRepo, mockPaymentRepo, mockLedgerRepo, mockGroupRepo)

		history = append(history, &domain.LoanPayment{LoanID: loan.ID, Amount: decimal.NewFromInt(step.amount)})
		snapshot := make([]*domain.LoanPayment, len(history))
		copy(snapshot, history)

		mockLoanRepo.On("GetByID", mock.Anything, loan.ID).Return(loan, nil)
		mockGroupRepo.On("GetSettings", mock.Anything, groupID).Return(settings(groupID), nil)
		mockPaymentRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
		mockLedgerRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
		mockPaymentRepo.On("ListByLoanID", mock.Anything, loan.ID).Return(snapshot, nil)
		if step.wantClose {
			mockLoanRepo.On("UpdateStatus", mock.Anything, loan.ID, domain.LoanStatusClosed, mock.Anything).Return(nil)
		}

		_, totals, err := svc.Repay(context.Background(), domain.Actor{MemberID: uuid.New(), Role: domain.RoleTreasurer}, loan.ID, &domain.RepayLoanRequest{
			Amount: decimal.NewFromInt(step.amount),
			Method: domain.PaymentMethodBankTransfer,
		})

		assert.NoError(t, err)
		assert.Equal(t, step.wantClose, totals.Settled())
		if step.wantClose {
			mockLoanRepo.AssertExpectations(t)
		} else {
			mockLoanRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		}
	}
}

// The totals read path and the repayment path must agree on the numbers.
func TestTotalsMatchesRepayComputation(t *testing.T) {
	groupID := uuid.New()
	disbursedAt := day0
	asOf := day0.AddDate(0, 0, 40)

	loan := &domain.Loan{
		ID:          uuid.New(),
		GroupID:     groupID,
		Principal:   decimal.NewFromInt(10000),
		Status:      domain.LoanStatusActive,
		DisbursedAt: &disbursedAt,
	}
	payments := []*domain.LoanPayment{
		{LoanID: loan.ID, Amount: decimal.NewFromInt(6000)},
	}

	mockLoanRepo := &mocks.MockLoanRepository{}
	mockPaymentRepo := &mocks.MockPaymentRepository{}
	mockGroupRepo := &mocks.MockGroupRepository{}
	svc := newService(asOf, mockLoanRepo, mockPaymentRepo, &mocks.MockLedgerRepository{}, mockGroupRepo)

	mockLoanRepo.On("GetByID", mock.Anything, loan.ID).Return(loan, nil)
	mockGroupRepo.On("GetSettings", mock.Anything, groupID).Return(settings(groupID), nil)
	mockPaymentRepo.On("ListByLoanID", mock.Anything, loan.ID).Return(payments, nil)

	totals, err := svc.Totals(context.Background(), loan.ID, asOf)

	assert.NoError(t, err)
	assert.Equal(t, 2, totals.Periods)
	assert.True(t, totals.GrossDue.Equal(decimal.NewFromInt(14000)))
	assert.True(t, totals.Outstanding.Equal(decimal.NewFromInt(8000)))
	assert.False(t, totals.InGrace)
	assert.Equal(t, 1, totals.OverdueBlocks)
}

// A loan row with no usable disbursement timestamp still renders.
func TestTotalsFallbackOnMissingDisbursement(t *testing.T) {
	groupID := uuid.New()
	loan := &domain.Loan{
		ID:        uuid.New(),
		GroupID:   groupID,
		Principal: decimal.NewFromInt(10000),
		Status:    domain.LoanStatusActive,
	}

	mockLoanRepo := &mocks.MockLoanRepository{}
	mockPaymentRepo := &mocks.MockPaymentRepository{}
	mockGroupRepo := &mocks.MockGroupRepository{}
	svc := newService(day0, mockLoanRepo, mockPaymentRepo, &mocks.MockLedgerRepository{}, mockGroupRepo)

	mockLoanRepo.On("GetByID", mock.Anything, loan.ID).Return(loan, nil)
	mockGroupRepo.On("GetSettings", mock.Anything, groupID).Return(settings(groupID), nil)
	mockPaymentRepo.On("ListByLoanID", mock.Anything, loan.ID).Return([]*domain.LoanPayment{}, nil)

	totals, err := svc.Totals(context.Background(), loan.ID, day0.AddDate(0, 0, 400))

	assert.NoError(t, err)
	assert.True(t, totals.Fallback)
	assert.Equal(t, 1, totals.Periods)
	assert.True(t, totals.InGrace)
	assert.True(t, totals.Outstanding.Equal(decimal.NewFromInt(12000)))
}

func TestGraceOverrideBeatsGroupDefault(t *testing.T) {
	groupID := uuid.New()
	disbursedAt := day0
	override := 20
	loan := &domain.Loan{
		ID:              uuid.New(),
		GroupID:         groupID,
		Principal:       decimal.NewFromInt(10000),
		Status:          domain.LoanStatusActive,
		GracePeriodDays: &override,
		DisbursedAt:     &disbursedAt,
	}

	// Day 40 is past the group's 5-day grace but inside the loan's own
	// 20-day override
	asOf := day0.AddDate(0, 0, 40)

	mockLoanRepo := &mocks.MockLoanRepository{}
	mockPaymentRepo := &mocks.MockPaymentRepository{}
	mockGroupRepo := &mocks.MockGroupRepository{}
	svc := newService(asOf, mockLoanRepo, mockPaymentRepo, &mocks.MockLedgerRepository{}, mockGroupRepo)

	mockLoanRepo.On("GetByID", mock.Anything, loan.ID).Return(loan, nil)
	mockGroupRepo.On("GetSettings", mock.Anything, groupID).Return(settings(groupID), nil)
	mockPaymentRepo.On("ListByLoanID", mock.Anything, loan.ID).Return([]*domain.LoanPayment{}, nil)

	totals, err := svc.Totals(context.Background(), loan.ID, asOf)

	assert.NoError(t, err)
	assert.True(t, totals.InGrace)
	assert.Equal(t, 1, totals.Periods)
	assert.Equal(t, day0.AddDate(0, 0, 50), totals.GraceEndAt)
}
