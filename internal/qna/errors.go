package qna

import (
	"errors"
	"fmt"
)

// Kind classifies every way a generation can fail.
type Kind string

const (
	KindInput             Kind = "input"
	KindTemplate          Kind = "template"
	KindEndpoint          Kind = "endpoint"
	KindMalformedResponse Kind = "malformed_response"
	KindConfiguration     Kind = "configuration"
)

type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := string(e.Kind) + " error"
	if e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, op string, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
