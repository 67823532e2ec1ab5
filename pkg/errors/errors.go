package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrLoanNotFound          = errors.New("loan not found")
	ErrGroupNotFound         = errors.New("group not found")
	ErrInvalidPrincipal      = errors.New("principal must be positive")
	ErrEmptyPurpose          = errors.New("loan purpose must not be empty")
	ErrInvalidGraceDays      = errors.New("grace period days must not be negative")
	ErrInvalidPaymentAmount  = errors.New("payment amount must be positive")
	ErrInvalidTransition     = errors.New("loan is not in a state that allows this transition")
	ErrLoanNotDisbursed      = errors.New("loan has not been disbursed")
	ErrLoanAlreadyDisbursed  = errors.New("loan has already been disbursed")
	ErrUnauthorizedRole      = errors.New("role is not permitted to perform this action")
	ErrDuplicateDisbursement = errors.New("a disbursement ledger entry already exists for this loan")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeLoanNotFound          = "LOAN_NOT_FOUND"
	ErrCodeGroupNotFound         = "GROUP_NOT_FOUND"
	ErrCodeValidation            = "VALIDATION_ERROR"
	ErrCodeUnauthorizedRole      = "UNAUTHORIZED_ROLE"
	ErrCodeInvalidTransition     = "INVALID_TRANSITION"
	ErrCodeLoanNotDisbursed      = "LOAN_NOT_DISBURSED"
	ErrCodeLoanAlreadyDisbursed  = "LOAN_ALREADY_DISBURSED"
	ErrCodeDuplicateDisbursement = "DUPLICATE_DISBURSEMENT"
	ErrCodeDatabaseError         = "DATABASE_ERROR"
	ErrCodeCacheError            = "CACHE_ERROR"
	ErrCodeRemoteCallError       = "REMOTE_CALL_ERROR"
)

// Wrap common errors with business context

func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapGroupNotFound(groupID string) *BusinessError {
	return NewBusinessError(
		ErrCodeGroupNotFound,
		fmt.Sprintf("Group %s not found", groupID),
		ErrGroupNotFound,
	)
}

// WrapValidation marks user-correctable input errors, reported before any
// mutation is attempted.
func WrapValidation(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeValidation,
		"invalid input",
		err,
	)
}

// WrapUnauthorizedRole names the role class the action requires so the
// caller can render an actionable message.
func WrapUnauthorizedRole(action, requiredRoles string) *BusinessError {
	return NewBusinessError(
		ErrCodeUnauthorizedRole,
		fmt.Sprintf("%s requires one of: %s", action, requiredRoles),
		ErrUnauthorizedRole,
	)
}

func WrapInvalidTransition(loanID, status, action string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidTransition,
		fmt.Sprintf("Loan %s is %s; %s is not allowed", loanID, status, action),
		ErrInvalidTransition,
	)
}

func WrapLoanNotDisbursed(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotDisbursed,
		fmt.Sprintf("Loan %s has no disbursement on record", loanID),
		ErrLoanNotDisbursed,
	)
}

func WrapLoanAlreadyDisbursed(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanAlreadyDisbursed,
		fmt.Sprintf("Loan %s has already been disbursed", loanID),
		ErrLoanAlreadyDisbursed,
	)
}

func WrapDuplicateDisbursement(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeDuplicateDisbursement,
		fmt.Sprintf("Loan %s already has a disbursement ledger entry", loanID),
		ErrDuplicateDisbursement,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"cache operation failed",
		err,
	)
}

func WrapRemoteCallError(procedure string, err error) *BusinessError {
	return NewBusinessError(
		ErrCodeRemoteCallError,
		fmt.Sprintf("remote procedure %s failed", procedure),
		err,
	)
}

// HasCode reports whether err is a BusinessError carrying the given code.
func HasCode(err error, code string) bool {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code == code
	}
	return false
}
