package service

import (
	"context"
	"errors"
	"fmt"
)

// Kind categorises a failure for the HTTP layer.
type Kind int

const (
	KindInternal Kind = iota
	KindUnavailable
	KindInvalid
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindInvalid:
		return "invalid"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// Error is the failure type returned by every service operation.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Fail wraps err for op, classifying it when kind is not forced by the caller.
func Fail(op string, err error) *Error {
	return &Error{Op: op, Kind: classify(err), Err: err}
}

// Invalid marks err as a malformed request for op.
func Invalid(op string, err error) *Error {
	return &Error{Op: op, Kind: KindInvalid, Err: err}
}

// KindOf reports the kind of err, KindInternal for foreign errors.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return classify(err)
}

func classify(err error) Kind {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return KindUnavailable
	default:
		return KindInternal
	}
}
