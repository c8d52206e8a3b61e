package errors

import (
	"errors"
	"fmt"
)

// Code classifies a failure so callers can decide whether it is step-local,
// cycle-fatal or fatal at startup.
type Code int

const (
	CodeSuccess        Code = 0
	CodeInternal       Code = 1
	CodeConfig         Code = 2
	CodeConnection     Code = 10
	CodeContractCall   Code = 11
	CodeReverted       Code = 12
	CodeReceiptTimeout Code = 13
	CodeTxBuild        Code = 14
	CodeSigner         Code = 15
	CodeNotify         Code = 16
)

// Error is a typed error that carries a stable error code.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	typed, ok := As(err)
	return ok && typed.Code == code
}

// TypeName returns the taxonomy name used in logs and rendered errors.
func TypeName(err error) string {
	typed, ok := As(err)
	if !ok {
		return "internal_error"
	}
	switch typed.Code {
	case CodeConfig:
		return "configuration_error"
	case CodeConnection:
		return "connection_failure"
	case CodeContractCall:
		return "contract_call_error"
	case CodeReverted:
		return "transaction_reverted"
	case CodeReceiptTimeout:
		return "receipt_timeout"
	case CodeTxBuild:
		return "transaction_build_failure"
	case CodeSigner:
		return "signer_error"
	case CodeNotify:
		return "notification_error"
	default:
		return "internal_error"
	}
}

// ExitCode maps an error to the process exit status: 0 on success and 1 for
// any unrecoverable failure.
func ExitCode(err error) int {
	if err == nil {
		return int(CodeSuccess)
	}
	return 1
}
