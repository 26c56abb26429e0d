package apperrors

import (
	"errors"
	"strings"
)

type appError struct {
	msg        string
	base       error
	causes     []error
	statuscode int
}

func (e *appError) Error() string {
	return e.msg
}

func (e *appError) ErrorAll() string {
	var b strings.Builder
	b.WriteString(e.Error())
	for _, err := range e.causes {
		if err == e.base {
			continue
		}
		b.WriteString("; ")
		b.WriteString(err.Error())
	}
	return b.String()
}

// Unwrap returns the error this one was derived from.
func (e *appError) Unwrap() error {
	return e.base
}

// New derives an error with a new message. The status code is inherited.
func (e *appError) New(msg string) Error {
	return &appError{
		msg:        msg,
		base:       e,
		statuscode: e.statuscode,
	}
}

// Msg derives an error with a new message and keeps the receiver as a cause.
func (e *appError) Msg(msg string) Error {
	return &appError{
		msg:        msg,
		base:       e,
		causes:     append([]error{e}, e.causes...),
		statuscode: e.statuscode,
	}
}

// Err attaches causes while keeping message and status code.
func (e *appError) Err(errs ...error) Error {
	causes := make([]error, 0, len(e.causes)+len(errs))
	causes = append(causes, e.causes...)
	for _, err := range errs {
		if err != nil {
			causes = append(causes, err)
		}
	}
	return &appError{
		msg:        e.msg,
		base:       e,
		causes:     causes,
		statuscode: e.statuscode,
	}
}

func (e *appError) SetStatusCode(code int) Error {
	cp := *e
	cp.statuscode = code
	return &cp
}

func (e *appError) StatusCode() int {
	return e.statuscode
}

// Is matches target against the derivation chain and every attached cause.
func (e *appError) Is(target error) bool {
	if target == nil {
		return false
	}
	if e == target {
		return true
	}
	if e.base != nil && errors.Is(e.base, target) {
		return true
	}
	for _, err := range e.causes {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// New creates a root error.
func New(msg string) Error {
	return &appError{msg: msg}
}
