package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/vikoba/loan-engine/internal/domain"
	"github.com/vikoba/loan-engine/internal/service"
	customError "github.com/vikoba/loan-engine/pkg/errors"
	"github.com/vikoba/loan-engine/pkg/response"
)

type LoanHandler struct {
	service   *service.LoanService
	validator *validator.Validate
}

func NewLoanHandler(service *service.LoanService) *LoanHandler {
	return &LoanHandler{
		service:   service,
		validator: validator.New(),
	}
}

// RequestLoan handles POST /loans
func (h *LoanHandler) RequestLoan(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "no authenticated member")
		return
	}

	var request domain.RequestLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}
	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	loan, err := h.service.RequestLoan(r.Context(), actor, &request)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Created(w, domain.LoanResponse{Loan: loan})
}

// Approve handles POST /loans/{loanId}/approve
func (h *LoanHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Approve)
}

// Reject handles POST /loans/{loanId}/reject
func (h *LoanHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Reject)
}

// Disburse handles POST /loans/{loanId}/disburse
func (h *LoanHandler) Disburse(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Disburse)
}

// Repay handles POST /loans/{loanId}/payments
func (h *LoanHandler) Repay(w http.ResponseWriter, r *http.Request) {
	actor, loanID, ok := h.actorAndLoan(w, r)
	if !ok {
		return
	}

	var request domain.RepayLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}
	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	payment, totals, err := h.service.Repay(r.Context(), actor, loanID, &request)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Created(w, domain.RepayLoanResponse{
		Payment: payment,
		Closed:  totals.Settled(),
	})
}

// ExtendGrace handles POST /loans/{loanId}/extend-grace
func (h *LoanHandler) ExtendGrace(w http.ResponseWriter, r *http.Request) {
	actor, loanID, ok := h.actorAndLoan(w, r)
	if !ok {
		return
	}

	var request domain.ExtendGraceRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}
	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	if err := h.service.ExtendGrace(r.Context(), actor, loanID, &request); err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, map[string]string{"loan_id": loanID.String()})
}

// Totals handles GET /loans/{loanId}/totals?as_of=RFC3339
func (h *LoanHandler) Totals(w http.ResponseWriter, r *http.Request) {
	loanID, err := uuid.Parse(mux.Vars(r)["loanId"])
	if err != nil {
		response.BadRequest(w, "invalid loan id", err)
		return
	}

	var asOf time.Time
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		asOf, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			response.BadRequest(w, "as_of must be RFC3339", err)
			return
		}
	}

	totals, err := h.service.Totals(r.Context(), loanID, asOf)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, totals)
}

// ListGroupLoans handles GET /groups/{groupId}/circles/{circleId}/loans
func (h *LoanHandler) ListGroupLoans(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	groupID, err := uuid.Parse(vars["groupId"])
	if err != nil {
		response.BadRequest(w, "invalid group id", err)
		return
	}
	circleID, err := uuid.Parse(vars["circleId"])
	if err != nil {
		response.BadRequest(w, "invalid circle id", err)
		return
	}

	loans, err := h.service.ListWithTotals(r.Context(), groupID, circleID, time.Time{})
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, loans)
}

// PromoteWaitlist handles POST /groups/{groupId}/circles/{circleId}/promote
func (h *LoanHandler) PromoteWaitlist(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	groupID, err := uuid.Parse(vars["groupId"])
	if err != nil {
		response.BadRequest(w, "invalid group id", err)
		return
	}
	circleID, err := uuid.Parse(vars["circleId"])
	if err != nil {
		response.BadRequest(w, "invalid circle id", err)
		return
	}

	promoted, err := h.service.PromoteWaitlist(r.Context(), groupID, circleID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, domain.PromoteWaitlistResponse{
		GroupID:  groupID,
		CircleID: circleID,
		Promoted: promoted,
	})
}

type transitionFunc func(ctx context.Context, actor domain.Actor, loanID uuid.UUID) (*domain.Loan, error)

func (h *LoanHandler) transition(w http.ResponseWriter, r *http.Request, fn transitionFunc) {
	actor, loanID, ok := h.actorAndLoan(w, r)
	if !ok {
		return
	}

	loan, err := fn(r.Context(), actor, loanID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, domain.LoanResponse{Loan: loan})
}

func (h *LoanHandler) actorAndLoan(w http.ResponseWriter, r *http.Request) (domain.Actor, uuid.UUID, bool) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "no authenticated member")
		return domain.Actor{}, uuid.Nil, false
	}

	loanID, err := uuid.Parse(mux.Vars(r)["loanId"])
	if err != nil {
		response.BadRequest(w, "invalid loan id", err)
		return domain.Actor{}, uuid.Nil, false
	}

	return actor, loanID, true
}

// writeError maps business error codes onto HTTP statuses. Unknown errors
// never propagate raw: they are logged and collapsed to a generic failure.
func (h *LoanHandler) writeError(w http.ResponseWriter, err error) {
	var be *customError.BusinessError
	if !errors.As(err, &be) {
		log.Printf("unexpected error: %v", err)
		response.InternalServerError(w, "internal error", nil)
		return
	}

	switch be.Code {
	case customError.ErrCodeValidation:
		response.BadRequest(w, be.Message, be.Err)
	case customError.ErrCodeUnauthorizedRole:
		response.Forbidden(w, be.Message, be.Err)
	case customError.ErrCodeLoanNotFound, customError.ErrCodeGroupNotFound:
		response.NotFound(w, be.Message)
	case customError.ErrCodeInvalidTransition,
		customError.ErrCodeLoanAlreadyDisbursed,
		customError.ErrCodeLoanNotDisbursed,
		customError.ErrCodeDuplicateDisbursement:
		response.Conflict(w, be.Message, be.Err)
	default:
		log.Printf("internal error: %v", err)
		response.InternalServerError(w, be.Message, nil)
	}
}
