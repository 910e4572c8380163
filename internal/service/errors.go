package service

import (
	"errors"
	"fmt"

	"gpms-backend/internal/repository"
)

type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindInvalidState      Kind = "invalid_state"
	KindExpired           Kind = "expired"
	KindValidation        Kind = "validation"
	KindUnauthorized      Kind = "unauthorized"
	KindConflict          Kind = "conflict"
	KindTransactionFailed Kind = "transaction_failed"
	KindDispatchFailure   Kind = "dispatch_failure"
)

// Error is the typed failure returned by every workflow operation.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

// Sentinels for errors.Is. They match any *Error of the same Kind.
var (
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrInvalidState      = &Error{Kind: KindInvalidState}
	ErrExpired           = &Error{Kind: KindExpired}
	ErrValidation        = &Error{Kind: KindValidation}
	ErrUnauthorized      = &Error{Kind: KindUnauthorized}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrTransactionFailed = &Error{Kind: KindTransactionFailed}
	ErrDispatchFailure   = &Error{Kind: KindDispatchFailure}
)

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func newError(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

func wrapError(kind Kind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// KindOf returns the Kind of err, or "" if err is not a workflow error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// fromRepo classifies a repository error encountered while loading entity.
func fromRepo(op, entity string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return wrapError(KindNotFound, op, entity+" not found", err)
	case errors.Is(err, repository.ErrConflict):
		return wrapError(KindConflict, op, entity+" was changed concurrently", err)
	case errors.Is(err, repository.ErrDuplicate):
		return wrapError(KindConflict, op, entity+" already exists", err)
	default:
		return wrapError(KindTransactionFailed, op, "failed to access "+entity, err)
	}
}

// txError passes typed errors raised inside a transaction through unchanged
// and reports everything else as a failed transaction.
func txError(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return wrapError(KindTransactionFailed, op, "transaction aborted", err)
}
