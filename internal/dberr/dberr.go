// Package dberr defines the error kinds surfaced by the engine.
//
// Every error that aborts a statement carries one of the kinds below so
// callers can branch with errors.Is:
//
//	if errors.Is(err, dberr.ErrConstraint) { ... }
package dberr

import (
	"errors"
	"fmt"
)

type Kind uint8

const (
	KindSyntax Kind = iota + 1
	KindBind
	KindSchema
	KindConstraint
	KindNotFound
	KindRuntime
	KindInterrupted
)

func (k Kind) String() string {
	switch k {
	case KindSyntax:
		return "syntax error"
	case KindBind:
		return "bind error"
	case KindSchema:
		return "schema error"
	case KindConstraint:
		return "constraint error"
	case KindNotFound:
		return "not found"
	case KindRuntime:
		return "runtime error"
	case KindInterrupted:
		return "interrupted"
	default:
		return "unknown error"
	}
}

// Pos is a position inside the statement text. Line and Column are 1-based.
type Pos struct {
	Line   int
	Column int
	Offset int
}

// Error is a classified engine error.
type Error struct {
	Kind Kind
	Msg  string
	Pos  *Pos
	// Err is the underlying sentinel or cause, if any.
	Err error
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Error() string {
	if e.Pos != nil {
		return fmt.Sprintf("%s at line %d, column %d", e.Msg, e.Pos.Line, e.Pos.Column)
	}
	return e.Msg
}

// Is matches kind sentinels: an *Error with an empty Msg matches any error of
// the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Msg == "" {
		return t.Kind == e.Kind
	}
	return t == e
}

var (
	ErrSyntax      = &Error{Kind: KindSyntax}
	ErrBind        = &Error{Kind: KindBind}
	ErrSchema      = &Error{Kind: KindSchema}
	ErrConstraint  = &Error{Kind: KindConstraint}
	ErrNotFound    = &Error{Kind: KindNotFound}
	ErrRuntime     = &Error{Kind: KindRuntime}
	ErrInterrupted = &Error{Kind: KindInterrupted}
)

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies cause under kind with a user facing message.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: cause}
}

// Syntax builds a syntax error pinned to pos.
func Syntax(pos Pos, format string, args ...any) *Error {
	return &Error{Kind: KindSyntax, Msg: fmt.Sprintf(format, args...), Pos: &pos}
}

func Bind(format string, args ...any) *Error       { return New(KindBind, format, args...) }
func Schema(format string, args ...any) *Error     { return New(KindSchema, format, args...) }
func Constraint(format string, args ...any) *Error { return New(KindConstraint, format, args...) }
func NotFound(format string, args ...any) *Error   { return New(KindNotFound, format, args...) }
func Runtime(format string, args ...any) *Error    { return New(KindRuntime, format, args...) }

// KindOf reports the kind of err, or 0 when err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// Interrupted converts a context error into a classified error.
func Interrupted(cause error) *Error {
	return &Error{Kind: KindInterrupted, Msg: "interrupted: " + cause.Error()}
}
