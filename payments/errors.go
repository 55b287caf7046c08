package payments

import (
	"errors"
)

type Code string

const (
	CodeInvalidRequest    Code = "INVALID_REQUEST"
	CodeConfig            Code = "CONFIG_ERROR"
	CodeNotFound          Code = "NOT_FOUND"
	CodeInvalidAmount     Code = "INVALID_AMOUNT"
	CodeEventClosed       Code = "EVENT_CLOSED"
	CodeSignatureMismatch Code = "SIGNATURE_MISMATCH"
	CodeGateway           Code = "GATEWAY_ERROR"
	CodeStore             Code = "STORE_ERROR"
)

// Error is returned by every Service operation that fails.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Code) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Code) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(code Code, msg string, err error) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf returns the code carried by err, or "" for foreign errors.
func CodeOf(err error) Code {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}
