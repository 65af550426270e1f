package shared

import "errors"

// Error kinds shared by the loan and installment workflows. Callers wrap them
// with context and handlers classify with errors.Is.
var (
	ErrPolicyViolation        = errors.New("policy violation")
	ErrIllegalStateTransition = errors.New("illegal state transition")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrIntegrationFailure     = errors.New("integration failure")
	ErrInvalidData            = errors.New("invalid data")
)
