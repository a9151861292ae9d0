package loyalty

import (
	"errors"
	"fmt"
)

// Domain-level error values returned by the loyalty service.
var (
	ErrAccountNotFound       = errors.New("account not found")
	ErrDuplicateUsername     = errors.New("duplicate username")
	ErrDuplicateEmail        = errors.New("duplicate email")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrTransactionNotFound   = errors.New("transaction not found")
	ErrAlreadyRefunded       = errors.New("transaction already refunded")
	ErrInvalidAccountID      = errors.New("invalid account id")
	ErrInvalidTransactionID  = errors.New("invalid transaction id")
	ErrInvalidUsername       = errors.New("invalid username")
	ErrInvalidEmail          = errors.New("invalid email")
	ErrInvalidItemName       = errors.New("invalid item name")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrInvalidPrice          = errors.New("invalid price")
	ErrInvalidCategory       = errors.New("invalid category")
	ErrInvalidPurchaseStatus = errors.New("invalid purchase status")
	ErrInvalidServiceConfig  = errors.New("invalid service config")
)

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}
