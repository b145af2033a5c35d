// Package apperr описывает прикладные ошибки со стабильными кодами.
// Коды не зависят от текста сообщения, поэтому клиенты API могут
// сопоставлять ошибки по полю code, а не по тексту.
package apperr

import (
	"errors"
	"fmt"
)

// Code: стабильный машиночитаемый код ошибки.
type Code string

const (
	CodeUnauthorized         Code = "unauthorized"
	CodeForbidden            Code = "forbidden"
	CodeInvalidInput         Code = "invalid_input"
	CodeConflict             Code = "conflict"
	CodeNotFound             Code = "not_found"
	CodePaymentNotCompleted  Code = "payment_not_completed"
	CodePaymentNotSuccessful Code = "payment_not_successful"
	CodeProvider             Code = "provider_error"
	CodeConfig               Code = "config_error"
	CodeInternal             Code = "server_error"
)

// Error: ошибка с кодом, сообщением для клиента и исходной причиной.
type Error struct {
	Code Code
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New создаёт ошибку с кодом и сообщением.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// Wrap создаёт ошибку с кодом, сообщением и причиной.
func Wrap(code Code, msg string, err error) *Error {
	return &Error{Code: code, Msg: msg, Err: err}
}

// CodeOf возвращает код ошибки или CodeInternal, если ошибка не прикладная.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Is сообщает, несёт ли err указанный код.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

func Unauthorized(msg string) *Error { return New(CodeUnauthorized, msg) }
func Forbidden(msg string) *Error    { return New(CodeForbidden, msg) }
func InvalidInput(msg string) *Error { return New(CodeInvalidInput, msg) }
func Conflict(msg string) *Error     { return New(CodeConflict, msg) }
func NotFound(msg string) *Error     { return New(CodeNotFound, msg) }

// Ensure оставляет прикладную ошибку как есть, остальные оборачивает в code.
func Ensure(err error, code Code, msg string) error {
	var e *Error
	if err == nil || errors.As(err, &e) {
		return err
	}
	return Wrap(code, msg, err)
}
