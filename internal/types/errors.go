package types

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies a failure for the orchestrator and HTTP layer.
type ErrorKind string

const (
	KindInvalidRequest       ErrorKind = "invalid_request"
	KindUnsupportedSource    ErrorKind = "unsupported_source"
	KindAuthenticationFailed ErrorKind = "authentication_failed"
	KindTimeout              ErrorKind = "timeout"
	KindLaunchFailure        ErrorKind = "launch_failure"
	KindSearchFailed         ErrorKind = "search_failed"
)

// Error is the single error value adapters and the browser layer hand to the orchestrator.
type Error struct {
	Kind    ErrorKind
	Op      string // e.g. "westlaw.login"
	Message string
	Err     error
}

// NewError builds an Error. err may be nil.
func NewError(kind ErrorKind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match on kind alone, e.g. errors.Is(err, &Error{Kind: KindTimeout}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Message == "" && t.Err == nil
}

// KindOf classifies any error. Deadline expiry is reported as a timeout even when unwrapped.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var te *Error
	if errors.As(err, &te) {
		if te.Kind == KindSearchFailed && errors.Is(te.Err, context.DeadlineExceeded) {
			return KindTimeout
		}
		return te.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindSearchFailed
}
