package lisp

import (
	"fmt"

	"github.com/cagix/jmurmel/parser/token"
)

// ErrorKind classifies a LispError by the kind of failure it represents.
type ErrorKind int

const (
	Internal ErrorKind = iota
	ReaderError
	MalformedForm
	Unbound
	TypeError
	ArityError
	ArithmeticError
	IOError
	NotImplemented
	Fatal
)

var errorKindNames = [...]string{
	Internal: "internal error", ReaderError: "reader error",
	MalformedForm: "malformed form", Unbound: "unbound symbol",
	TypeError: "type error", ArityError: "arity error",
	ArithmeticError: "arithmetic error", IOError: "I/O error",
	NotImplemented: "not implemented", Fatal: "fatal error",
}

func (k ErrorKind) String() string {
	if int(k) < len(errorKindNames) {
		return errorKindNames[k]
	}
	return "error"
}

// LispError is a first-class error value carrying the offending form and,
// when available, its source position, so embedders can produce a
// single-line "<kind>: <message> (<position>): error occurred in <form>"
// diagnostic, omitting the position and form parts when they are absent.
type LispError struct {
	Kind  ErrorKind
	Msg   string
	Form  *Value
	Pos   *token.Position
	cause error
}

func (e *LispError) Error() string {
	s := fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	if e.Pos != nil {
		s = fmt.Sprintf("%s (%s)", s, e.Pos.String())
	}
	if e.Form != nil {
		s = fmt.Sprintf("%s: error occurred in %s", s, e.Form.String())
	}
	return s
}

func (e *LispError) Unwrap() error { return e.cause }

// Errorf creates a LispError of the given kind.
func Errorf(kind ErrorKind, format string, args ...interface{}) *LispError {
	return &LispError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// WrapForm annotates err with the form being evaluated when it occurred,
// preserving err's kind, and appends the "error occurred in ..." suffix.
func WrapForm(err error, form *Value) error {
	if err == nil {
		return nil
	}
	le, ok := err.(*LispError)
	if !ok {
		le = &LispError{Kind: Internal, Msg: err.Error(), cause: err}
	}
	if le.Form == nil {
		cp := *le
		cp.Form = form
		if cp.Pos == nil && form != nil {
			cp.Pos = form.Pos
		}
		return &cp
	}
	return le
}

// KindOf returns the ErrorKind of err, or Internal if err is not a
// *LispError.
func KindOf(err error) ErrorKind {
	if le, ok := err.(*LispError); ok {
		return le.Kind
	}
	return Internal
}
