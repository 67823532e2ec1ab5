package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/vikoba/loan-engine/internal/config"
	"github.com/vikoba/loan-engine/internal/domain"
	"github.com/vikoba/loan-engine/internal/interest"
	"github.com/vikoba/loan-engine/internal/repository"
	customError "github.com/vikoba/loan-engine/pkg/errors"
)

// LoanService drives the loan lifecycle: waitlist, approval, disbursement,
// repayment, closure. Every transition validates input and the actor's role
// before touching the store. The loan-row write always precedes the ledger
// posting; the two are not atomic, and a failure between them surfaces to
// the caller for external reconciliation.
type LoanService struct {
	loanRepo    repository.LoanRepository
	paymentRepo repository.PaymentRepository
	ledgerRepo  repository.LedgerRepository
	groupRepo   repository.GroupRepository
	redis       *redis.Client
	config      *config.Config
	now         func() time.Time
}

func NewLoanService(
	loanRepo repository.LoanRepository,
	paymentRepo repository.PaymentRepository,
	ledgerRepo repository.LedgerRepository,
	groupRepo repository.GroupRepository,
	redisClient *redis.Client,
	cfg *config.Config,
) *LoanService {
	return &LoanService{
		loanRepo:    loanRepo,
		paymentRepo: paymentRepo,
		ledgerRepo:  ledgerRepo,
		groupRepo:   groupRepo,
		redis:       redisClient,
		config:      cfg,
		now:         time.Now,
	}
}

// WithClock overrides the transition clock. Tests inject a fixed instant so
// accrual is deterministic.
func (s *LoanService) WithClock(now func() time.Time) *LoanService {
	s.now = now
	return s
}

// LoanWithTotals pairs a loan row with its computed totals for list views.
type LoanWithTotals struct {
	Loan   *domain.Loan    `json:"loan"`
	Totals interest.Totals `json:"totals"`
}

// RequestLoan creates a new loan on the waitlist. Any authenticated member
// may request.
func (s *LoanService) RequestLoan(ctx context.Context, actor domain.Actor, request *domain.RequestLoanRequest) (*domain.Loan, error) {
	if err := s.requireRole(actor, domain.ActionRequestLoan); err != nil {
		return nil, err
	}

	if !request.Principal.IsPositive() {
		return nil, customError.WrapValidation(customError.ErrInvalidPrincipal)
	}
	if strings.TrimSpace(request.Purpose) == "" {
		return nil, customError.WrapValidation(customError.ErrEmptyPurpose)
	}
	if request.GracePeriodDays != nil && *request.GracePeriodDays < 0 {
		return nil, customError.WrapValidation(customError.ErrInvalidGraceDays)
	}

	now := s.now()
	loan := &domain.Loan{
		ID:              uuid.New(),
		GroupID:         request.GroupID,
		CircleID:        request.CircleID,
		BorrowerID:      actor.MemberID,
		Principal:       request.Principal,
		Purpose:         strings.TrimSpace(request.Purpose),
		Status:          domain.LoanStatusWaitlisted,
		GracePeriodDays: request.GracePeriodDays,
		WaitlistedAt:    now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.loanRepo.Create(ctx, loan); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return loan, nil
}

// Approve moves a waitlisted loan to ACTIVE.
func (s *LoanService) Approve(ctx context.Context, actor domain.Actor, loanID uuid.UUID) (*domain.Loan, error) {
	if err := s.requireRole(actor, domain.ActionApproveLoan); err != nil {
		return nil, err
	}

	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.Status != domain.LoanStatusWaitlisted {
		return nil, customError.WrapInvalidTransition(loanID.String(), loan.Status, "approve")
	}

	if err := s.loanRepo.UpdateStatus(ctx, loanID, domain.LoanStatusActive, nil); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	s.invalidateTotals(ctx, loanID)

	loan.Status = domain.LoanStatusActive
	return loan, nil
}

// Reject closes a waitlisted loan without disbursement. The closed reason
// distinguishes this terminal outcome from a repaid loan.
func (s *LoanService) Reject(ctx context.Context, actor domain.Actor, loanID uuid.UUID) (*domain.Loan, error) {
	if err := s.requireRole(actor, domain.ActionRejectLoan); err != nil {
		return nil, err
	}

	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.Status != domain.LoanStatusWaitlisted {
		return nil, customError.WrapInvalidTransition(loanID.String(), loan.Status, "reject")
	}

	reason := domain.ClosedReasonRejected
	if err := s.loanRepo.UpdateStatus(ctx, loanID, domain.LoanStatusClosed, &reason); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	s.invalidateTotals(ctx, loanID)

	loan.Status = domain.LoanStatusClosed
	loan.ClosedReason = &reason
	return loan, nil
}

// Disburse records the payout of an approved loan and posts the LOAN_OUT
// ledger debit. The loan-row update is issued first; if the ledger posting
// then fails the error surfaces with the loan already marked disbursed.
func (s *LoanService) Disburse(ctx context.Context, actor domain.Actor, loanID uuid.UUID) (*domain.Loan, error) {
	if err := s.requireRole(actor, domain.ActionDisburseLoan); err != nil {
		return nil, err
	}

	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.Status != domain.LoanStatusActive {
		return nil, customError.WrapInvalidTransition(loanID.String(), loan.Status, "disburse")
	}
	if loan.IsDisbursed() {
		return nil, customError.WrapLoanAlreadyDisbursed(loanID.String())
	}

	settings, err := s.getSettings(ctx, loan.GroupID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	dueAt := now.AddDate(0, 0, settings.LoanPeriodDays)

	if err := s.loanRepo.MarkDisbursed(ctx, loanID, actor.MemberID, now, dueAt); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	entry := &domain.LedgerEntry{
		ID:        uuid.New(),
		GroupID:   loan.GroupID,
		CircleID:  loan.CircleID,
		LoanID:    loan.ID,
		Type:      domain.LedgerTypeLoanOut,
		Direction: domain.LedgerDirectionDebit,
		Amount:    loan.Principal,
		CreatedBy: actor.MemberID,
		CreatedAt: now,
	}
	if err := s.ledgerRepo.Create(ctx, entry); err != nil {
		// Loan row is already marked disbursed; reconciliation is external
		return nil, fmt.Errorf("loan %s disbursed but ledger posting failed: %w", loanID, err)
	}
	s.invalidateTotals(ctx, loanID)

	loan.Status = domain.LoanStatusActive
	loan.DisbursedBy = &actor.MemberID
	loan.DisbursedAt = &now
	loan.DueAt = &dueAt
	return loan, nil
}

// Repay records a repayment, posts the ledger credit, and auto-closes the
// loan once cumulative payments reach the gross due.
func (s *LoanService) Repay(ctx context.Context, actor domain.Actor, loanID uuid.UUID, request *domain.RepayLoanRequest) (*domain.LoanPayment, *interest.Totals, error) {
	if err := s.requireRole(actor, domain.ActionRepayLoan); err != nil {
		return nil, nil, err
	}

	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, nil, err
	}
	if loan.Status != domain.LoanStatusActive {
		return nil, nil, customError.WrapInvalidTransition(loanID.String(), loan.Status, "repay")
	}
	if !loan.IsDisbursed() {
		return nil, nil, customError.WrapLoanNotDisbursed(loanID.String())
	}
	if !request.Amount.IsPositive() {
		return nil, nil, customError.WrapValidation(customError.ErrInvalidPaymentAmount)
	}

	now := s.now()
	payment := &domain.LoanPayment{
		ID:        uuid.New(),
		LoanID:    loan.ID,
		Amount:    request.Amount,
		Method:    request.Method,
		Note:      request.Note,
		CreatedBy: actor.MemberID,
		PaidAt:    now,
		CreatedAt: now,
	}
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, nil, customError.WrapDatabaseError(err)
	}

	entry := &domain.LedgerEntry{
		ID:        uuid.New(),
		GroupID:   loan.GroupID,
		CircleID:  loan.CircleID,
		LoanID:    loan.ID,
		Type:      domain.LedgerTypeLoanRepaymentIn,
		Direction: domain.LedgerDirectionCredit,
		Amount:    request.Amount,
		CreatedBy: actor.MemberID,
		CreatedAt: now,
	}
	if err := s.ledgerRepo.Create(ctx, entry); err != nil {
		return nil, nil, fmt.Errorf("payment %s recorded but ledger posting failed: %w", payment.ID, err)
	}
	s.invalidateTotals(ctx, loanID)

	totals, err := s.computeTotals(ctx, loan, now)
	if err != nil {
		return nil, nil, err
	}

	if totals.Settled() {
		reason := domain.ClosedReasonRepaid
		if err := s.loanRepo.UpdateStatus(ctx, loanID, domain.LoanStatusClosed, &reason); err != nil {
			return nil, nil, customError.WrapDatabaseError(err)
		}
		s.invalidateTotals(ctx, loanID)
	}

	return payment, totals, nil
}

// ExtendGrace delegates grace bookkeeping to the store procedure after the
// usual guards.
func (s *LoanService) ExtendGrace(ctx context.Context, actor domain.Actor, loanID uuid.UUID, request *domain.ExtendGraceRequest) error {
	if err := s.requireRole(actor, domain.ActionExtendGrace); err != nil {
		return err
	}

	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return err
	}
	if loan.Status != domain.LoanStatusActive {
		return customError.WrapInvalidTransition(loanID.String(), loan.Status, "extend grace")
	}
	if request.ExtraDays <= 0 {
		return customError.WrapValidation(customError.ErrInvalidGraceDays)
	}

	if err := s.loanRepo.ExtendGrace(ctx, loanID, request.ExtraDays, request.Reason); err != nil {
		return customError.WrapRemoteCallError("extend_loan_grace", err)
	}
	s.invalidateTotals(ctx, loanID)

	return nil
}

// PromoteWaitlist asks the store to settle waitlisted loans against
// available funds.
func (s *LoanService) PromoteWaitlist(ctx context.Context, groupID, circleID uuid.UUID) (int, error) {
	promoted, err := s.loanRepo.PromoteWaitlisted(ctx, groupID, circleID)
	if err != nil {
		return 0, customError.WrapRemoteCallError("promote_waitlisted_loans", err)
	}
	return promoted, nil
}

// Totals computes the interest snapshot for one loan as of the given
// instant. A zero asOf means "now". Results for the current instant are
// cached briefly so cards and dashboards asking about the same loan do not
// refetch the payment history.
func (s *LoanService) Totals(ctx context.Context, loanID uuid.UUID, asOf time.Time) (*interest.Totals, error) {
	current := asOf.IsZero()
	if current {
		asOf = s.now()
		if cached := s.cachedTotals(ctx, loanID); cached != nil {
			return cached, nil
		}
	}

	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	totals, err := s.computeTotals(ctx, loan, asOf)
	if err != nil {
		return nil, err
	}

	if current {
		s.cacheTotals(ctx, loanID, totals)
	}
	return totals, nil
}

// ListWithTotals returns a group's loans for a circle, each paired with its
// computed totals, so every call site renders from the same numbers.
func (s *LoanService) ListWithTotals(ctx context.Context, groupID, circleID uuid.UUID, asOf time.Time) ([]*LoanWithTotals, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}

	loans, err := s.loanRepo.ListByGroupCircle(ctx, groupID, circleID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	settings, err := s.getSettings(ctx, groupID)
	if err != nil {
		return nil, err
	}

	out := make([]*LoanWithTotals, 0, len(loans))
	for _, loan := range loans {
		payments, err := s.paymentRepo.ListByLoanID(ctx, loan.ID)
		if err != nil {
			return nil, customError.WrapDatabaseError(err)
		}
		totals := s.compute(loan, settings, payments, asOf)
		out = append(out, &LoanWithTotals{Loan: loan, Totals: *totals})
	}

	return out, nil
}

// SweepDefaults tags active loans as DEFAULTED once they have accrued at
// least the configured number of overdue blocks. Accrual itself stays lazy;
// the sweep only records the status.
func (s *LoanService) SweepDefaults(ctx context.Context) (int, error) {
	loans, err := s.loanRepo.ListActiveDisbursed(ctx)
	if err != nil {
		return 0, customError.WrapDatabaseError(err)
	}

	now := s.now()
	tagged := 0
	for _, loan := range loans {
		totals, err := s.computeTotals(ctx, loan, now)
		if err != nil {
			log.Printf("default sweep: skipping loan %s: %v", loan.ID, err)
			continue
		}
		if totals.OverdueBlocks < s.config.Lending.DefaultAfterBlocks || totals.Settled() {
			continue
		}
		if err := s.loanRepo.UpdateStatus(ctx, loan.ID, domain.LoanStatusDefaulted, nil); err != nil {
			log.Printf("default sweep: tagging loan %s failed: %v", loan.ID, err)
			continue
		}
		s.invalidateTotals(ctx, loan.ID)
		tagged++
	}

	return tagged, nil
}

func (s *LoanService) requireRole(actor domain.Actor, action domain.Action) error {
	if actor.Role == "" {
		return customError.WrapUnauthorizedRole(string(action), domain.RolesAllowed(action))
	}
	if !actor.Role.Can(action) {
		return customError.WrapUnauthorizedRole(string(action), domain.RolesAllowed(action))
	}
	return nil
}

func (s *LoanService) getLoan(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	loan, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapLoanNotFound(loanID.String())
		}
		return nil, customError.WrapDatabaseError(err)
	}
	return loan, nil
}

func (s *LoanService) getSettings(ctx context.Context, groupID uuid.UUID) (*domain.GroupSettings, error) {
	settings, err := s.groupRepo.GetSettings(ctx, groupID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapGroupNotFound(groupID.String())
		}
		return nil, customError.WrapDatabaseError(err)
	}
	return settings, nil
}

func (s *LoanService) computeTotals(ctx context.Context, loan *domain.Loan, asOf time.Time) (*interest.Totals, error) {
	settings, err := s.getSettings(ctx, loan.GroupID)
	if err != nil {
		return nil, err
	}
	payments, err := s.paymentRepo.ListByLoanID(ctx, loan.ID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return s.compute(loan, settings, payments, asOf), nil
}

func (s *LoanService) compute(loan *domain.Loan, settings *domain.GroupSettings, payments []*domain.LoanPayment, asOf time.Time) *interest.Totals {
	var disbursedAt time.Time
	if loan.DisbursedAt != nil {
		disbursedAt = *loan.DisbursedAt
	}

	interestPercent := settings.LoanInterestPercent
	periodDays := settings.LoanPeriodDays
	if periodDays <= 0 {
		periodDays = s.config.Lending.DefaultLoanPeriodDays
	}

	totals := interest.Compute(interest.Input{
		Principal:       loan.Principal,
		DisbursedAt:     disbursedAt,
		InterestPercent: interestPercent,
		LoanPeriodDays:  periodDays,
		GracePeriodDays: loan.EffectiveGraceDays(settings),
		AsOf:            asOf,
		Payments:        payments,
	})

	if totals.Fallback && loan.IsDisbursed() {
		log.Printf("loan %s: disbursement timestamp unusable, totals computed against evaluation time", loan.ID)
	}

	return &totals
}

func (s *LoanService) totalsCacheKey(loanID uuid.UUID) string {
	return fmt.Sprintf("loan:totals:%s", loanID)
}

func (s *LoanService) cachedTotals(ctx context.Context, loanID uuid.UUID) *interest.Totals {
	if s.redis == nil {
		return nil
	}
	raw, err := s.redis.Get(ctx, s.totalsCacheKey(loanID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("totals cache read failed for loan %s: %v", loanID, err)
		}
		return nil
	}
	var totals interest.Totals
	if err := json.Unmarshal(raw, &totals); err != nil {
		return nil
	}
	return &totals
}

func (s *LoanService) cacheTotals(ctx context.Context, loanID uuid.UUID, totals *interest.Totals) {
	if s.redis == nil {
		return
	}
	raw, err := json.Marshal(totals)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, s.totalsCacheKey(loanID), raw, s.config.GetTotalsCacheTTL()).Err(); err != nil {
		log.Printf("totals cache write failed for loan %s: %v", loanID, err)
	}
}

func (s *LoanService) invalidateTotals(ctx context.Context, loanID uuid.UUID) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, s.totalsCacheKey(loanID)).Err(); err != nil {
		log.Printf("totals cache invalidation failed for loan %s: %v", loanID, err)
	}
}

// TotalPaid is a convenience read used by dashboards.
func (s *LoanService) TotalPaid(ctx context.Context, loanID uuid.UUID) (decimal.Decimal, error) {
	total, err := s.paymentRepo.TotalPaid(ctx, loanID)
	if err != nil {
		return decimal.Zero, customError.WrapDatabaseError(err)
	}
	return total, nil
}
