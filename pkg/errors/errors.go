package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrContractNotFound          = errors.New("contract not found")
	ErrInstallmentNotFound       = errors.New("installment not found")
	ErrPaymentNotFound           = errors.New("payment not found")
	ErrInvalidAmortizationInput  = errors.New("invalid amortization input")
	ErrInvalidPaymentAmount      = errors.New("invalid payment amount")
	ErrInvalidPaymentDate        = errors.New("invalid payment date")
	ErrPaymentExceedsOutstanding = errors.New("payment exceeds outstanding installment amount")
	ErrInvalidContractTerms      = errors.New("invalid contract terms")
	ErrInvalidStateTransition    = errors.New("invalid contract state transition")
	ErrContractCanceled          = errors.New("contract is canceled")
	ErrConsistencyConflict       = errors.New("concurrent modification detected")
	ErrStoreFailure              = errors.New("store operation failed")
)

// Kind classifies a business error per the caller's retry contract:
// validation, not-found and invalid-state errors are never retried,
// consistency conflicts may be retried once with fresh data, and store
// failures are retryable only for pure reads.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindInvalidState
	KindConflict
	KindStore
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Kind    Kind
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
func NewBusinessError(code string, kind Kind, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// KindOf returns the kind of a wrapped business error, or KindUnknown.
func KindOf(err error) Kind {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindUnknown
}

// Error codes
const (
	ErrCodeContractNotFound          = "CONTRACT_NOT_FOUND"
	ErrCodeInstallmentNotFound       = "INSTALLMENT_NOT_FOUND"
	ErrCodePaymentNotFound           = "PAYMENT_NOT_FOUND"
	ErrCodeInvalidAmortizationInput  = "INVALID_AMORTIZATION_INPUT"
	ErrCodeInvalidPaymentAmount      = "INVALID_PAYMENT_AMOUNT"
	ErrCodeInvalidPaymentDate        = "INVALID_PAYMENT_DATE"
	ErrCodePaymentExceedsOutstanding = "PAYMENT_EXCEEDS_OUTSTANDING"
	ErrCodeInvalidContractTerms      = "INVALID_CONTRACT_TERMS"
	ErrCodeInvalidStateTransition    = "INVALID_STATE_TRANSITION"
	ErrCodeContractCanceled          = "CONTRACT_CANCELED"
	ErrCodeConsistencyConflict       = "CONSISTENCY_CONFLICT"
	ErrCodeStoreError                = "STORE_ERROR"
)

// Wrap common errors with business context

func WrapContractNotFound(contractID string) *BusinessError {
	return NewBusinessError(
		ErrCodeContractNotFound,
		KindNotFound,
		fmt.Sprintf("contract %s not found", contractID),
		ErrContractNotFound,
	)
}

func WrapInstallmentNotFound(installmentID string) *BusinessError {
	return NewBusinessError(
		ErrCodeInstallmentNotFound,
		KindNotFound,
		fmt.Sprintf("installment %s not found", installmentID),
		ErrInstallmentNotFound,
	)
}

func WrapPaymentNotFound(paymentID string) *BusinessError {
	return NewBusinessError(
		ErrCodePaymentNotFound,
		KindNotFound,
		fmt.Sprintf("payment %s not found", paymentID),
		ErrPaymentNotFound,
	)
}

func WrapInvalidAmortizationInput(reason string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidAmortizationInput,
		KindValidation,
		reason,
		ErrInvalidAmortizationInput,
	)
}

func WrapInvalidPaymentAmount(amount string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidPaymentAmount,
		KindValidation,
		fmt.Sprintf("payment amount must be positive, got %s", amount),
		ErrInvalidPaymentAmount,
	)
}

func WrapInvalidPaymentDate(raw string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidPaymentDate,
		KindValidation,
		fmt.Sprintf("payment date %q must be a calendar date (YYYY-MM-DD)", raw),
		ErrInvalidPaymentDate,
	)
}

func WrapPaymentExceedsOutstanding(amount, outstanding string) *BusinessError {
	return NewBusinessError(
		ErrCodePaymentExceedsOutstanding,
		KindValidation,
		fmt.Sprintf("payment of %s exceeds outstanding amount %s", amount, outstanding),
		ErrPaymentExceedsOutstanding,
	)
}

func WrapInvalidContractTerms(reason string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidContractTerms,
		KindValidation,
		reason,
		ErrInvalidContractTerms,
	)
}

func WrapInvalidStateTransition(contractID, from, to string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidStateTransition,
		KindInvalidState,
		fmt.Sprintf("contract %s cannot transition from %s to %s", contractID, from, to),
		ErrInvalidStateTransition,
	)
}

func WrapContractCanceled(contractID string) *BusinessError {
	return NewBusinessError(
		ErrCodeContractCanceled,
		KindInvalidState,
		fmt.Sprintf("contract %s is canceled", contractID),
		ErrContractCanceled,
	)
}

func WrapInstallmentNotPayable(installmentID, status string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidStateTransition,
		KindInvalidState,
		fmt.Sprintf("installment %s does not accept payments in status %s", installmentID, status),
		ErrInvalidStateTransition,
	)
}

func WrapConsistencyConflict(installmentID string) *BusinessError {
	return NewBusinessError(
		ErrCodeConsistencyConflict,
		KindConflict,
		fmt.Sprintf("installment %s is being settled by another request", installmentID),
		ErrConsistencyConflict,
	)
}

func WrapStoreError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeStoreError,
		KindStore,
		"store operation failed",
		err,
	)
}
