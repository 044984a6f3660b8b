// Package businessflow contains the core business logic and use cases of the property management backend
package businessflow

import (
	"errors"
	"fmt"

	"github.com/amirphl/estatedesk/sequence"
)

// Business flow error constants
var (
	// Party-related errors
	ErrLandlordNotFound   = errors.New("landlord not found")
	ErrTenantNotFound     = errors.New("tenant not found")
	ErrAgentNotFound      = errors.New("agent not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrFullNameRequired   = errors.New("full name is required")
	ErrInvalidEmail       = errors.New("email is invalid")
	ErrLeaseDatesInvalid  = errors.New("lease end must be after lease start")

	// Property-related errors
	ErrPropertyNotFound      = errors.New("property not found")
	ErrPropertyTitleRequired = errors.New("property title is required")
	ErrInvalidPropertyType   = errors.New("property type is invalid")
	ErrInvalidPropertyStatus = errors.New("property status is invalid")
	ErrNegativeAmount        = errors.New("amount cannot be negative")

	// Bookkeeping errors
	ErrAccountNotFound     = errors.New("account not found")
	ErrIncomeNotFound      = errors.New("income not found")
	ErrExpenseNotFound     = errors.New("expense not found")
	ErrInvalidAccountKind  = errors.New("account kind is invalid")
	ErrInvalidCurrency     = errors.New("currency must be a 3-letter ISO code")
	ErrAmountNotPositive   = errors.New("amount must be greater than zero")
	ErrCategoryRequired    = errors.New("category is required")
	ErrInsufficientBalance = errors.New("insufficient account balance")
	ErrInvalidYearMonth    = errors.New("year_month must be formatted as YYYYMM")

	// Identifier errors
	ErrInvalidEntityID       = errors.New("identifier is invalid")
	ErrUnknownEntityType     = errors.New("entity type is unknown")
	ErrSequenceNotFound      = errors.New("sequence counter not found")
	ErrIdempotencyInProgress = errors.New("a request with this idempotency key is still in progress")

	// Admin errors
	ErrAdminNotFound     = errors.New("admin not found")
	ErrAdminInactive     = errors.New("admin is inactive")
	ErrIncorrectPassword = errors.New("incorrect password")

	// Filter errors
	ErrInvalidPage           = errors.New("page must be at least 1")
	ErrInvalidPageSize       = errors.New("page size must be between 1 and 100")
	ErrInvalidSortField      = errors.New("sort field is invalid")
	ErrStartDateAfterEndDate = errors.New("start date cannot be after end date")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

// creationError maps failures of an allocate-and-create call to business errors
func creationError(code, message string, err error) error {
	var be *BusinessError
	switch {
	case sequence.IsRetryable(err):
		return NewBusinessError("SEQUENCE_CONFLICT_RETRY", "Identifier allocation is busy, please retry", err)
	case errors.As(err, &be):
		return be
	case errors.Is(err, ErrEmailAlreadyExists):
		return NewBusinessError("EMAIL_ALREADY_EXISTS", "Email already exists", err)
	case errors.Is(err, ErrInsufficientBalance):
		return NewBusinessError("INSUFFICIENT_BALANCE", "Account balance is insufficient", err)
	}
	return NewBusinessError(code, message, err)
}

func IsLandlordNotFound(err error) bool {
	return errors.Is(err, ErrLandlordNotFound)
}

func IsTenantNotFound(err error) bool {
	return errors.Is(err, ErrTenantNotFound)
}

func IsAgentNotFound(err error) bool {
	return errors.Is(err, ErrAgentNotFound)
}

func IsPropertyNotFound(err error) bool {
	return errors.Is(err, ErrPropertyNotFound)
}

func IsAccountNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound)
}

func IsSequenceNotFound(err error) bool {
	return errors.Is(err, ErrSequenceNotFound)
}

func IsAdminNotFound(err error) bool {
	return errors.Is(err, ErrAdminNotFound)
}

func IsLedgerEntryNotFound(err error) bool {
	return errors.Is(err, ErrIncomeNotFound) || errors.Is(err, ErrExpenseNotFound)
}

// IsNotFound reports whether err is any of the not-found errors
func IsNotFound(err error) bool {
	return IsLandlordNotFound(err) || IsTenantNotFound(err) || IsAgentNotFound(err) ||
		IsPropertyNotFound(err) || IsAccountNotFound(err) || IsLedgerEntryNotFound(err) ||
		IsSequenceNotFound(err)
}

func IsEmailAlreadyExists(err error) bool {
	return errors.Is(err, ErrEmailAlreadyExists)
}

func IsInsufficientBalance(err error) bool {
	return errors.Is(err, ErrInsufficientBalance)
}

func IsIdempotencyInProgress(err error) bool {
	return errors.Is(err, ErrIdempotencyInProgress)
}

func IsAdminInactive(err error) bool {
	return errors.Is(err, ErrAdminInactive)
}

func IsIncorrectPassword(err error) bool {
	return errors.Is(err, ErrIncorrectPassword)
}

// IsValidationError reports whether err was caused by invalid input
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrFullNameRequired, ErrInvalidEmail, ErrLeaseDatesInvalid, ErrPropertyTitleRequired,
		ErrInvalidPropertyType, ErrInvalidPropertyStatus, ErrNegativeAmount, ErrInvalidAccountKind,
		ErrInvalidCurrency, ErrAmountNotPositive, ErrCategoryRequired, ErrInvalidYearMonth,
		ErrInvalidEntityID, ErrUnknownEntityType, ErrInvalidPage, ErrInvalidPageSize,
		ErrInvalidSortField, ErrStartDateAfterEndDate,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsRetryableAllocation reports whether the request failed on a transient identifier allocation conflict
func IsRetryableAllocation(err error) bool {
	return sequence.IsRetryable(err)
}
