package diag

import (
	"errors"
	"fmt"
	"strings"

	"tirc/internal/source"
)

// Error is a compile-time rejection produced by a core component. It carries
// everything needed to build a Diagnostic.
type Error struct {
	Code    Code
	Span    source.Span
	Message string
	Notes   []Note
}

// Errorf builds an *Error with a formatted message.
func Errorf(code Code, span source.Span, format string, args ...any) *Error {
	return &Error{Code: code, Span: span, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s: %s", e.Code.ID(), e.Message)
}

// WithNote attaches a secondary location.
func (e *Error) WithNote(sp source.Span, msg string) *Error {
	e.Notes = append(e.Notes, Note{Span: sp, Msg: msg})
	return e
}

// Diagnostic converts the error into an error-severity Diagnostic.
func (e *Error) Diagnostic() *Diagnostic {
	d := NewError(e.Code, e.Span, e.Message)
	d.Notes = append(d.Notes, e.Notes...)
	return d
}

// ErrorList collects several *Error values from one batched check.
type ErrorList []*Error

func (l ErrorList) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	}
	parts := make([]string, 0, len(l))
	for _, e := range l {
		parts = append(parts, e.Error())
	}
	return fmt.Sprintf("%d errors: %s", len(l), strings.Join(parts, "; "))
}

// Err returns nil for an empty list so callers can `return list.Err()`.
func (l ErrorList) Err() error {
	if len(l) == 0 {
		return nil
	}
	return l
}

// Flatten unwraps err into its *Error components. Foreign errors are wrapped
// with UnknownCode so nothing is silently dropped.
func Flatten(err error) []*Error {
	if err == nil {
		return nil
	}
	var list ErrorList
	if errors.As(err, &list) {
		return append([]*Error(nil), list...)
	}
	var single *Error
	if errors.As(err, &single) {
		return []*Error{single}
	}
	return []*Error{{Code: UnknownCode, Message: err.Error()}}
}

// CodeOf returns the code of the first *Error inside err, or UnknownCode.
func CodeOf(err error) Code {
	errs := Flatten(err)
	if len(errs) == 0 {
		return UnknownCode
	}
	return errs[0].Code
}
