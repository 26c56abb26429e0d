package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/tansive/backoffice/internal/common/apperrors"
)

// Error is an HTTP error response rendered as {"detail": Description}.
type Error struct {
	Description string
	StatusCode  int
}

type errorRsp struct {
	Detail string `json:"detail"`
}

// Send writes the error to w. A nil writer is ignored.
func (e *Error) Send(w http.ResponseWriter) {
	if w == nil {
		return
	}
	rspJson, err := json.Marshal(&errorRsp{Detail: e.Description})
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Unable to parse error"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	w.Write(rspJson)
}

func (e *Error) Error() string {
	return e.Description
}

// SendError renders an apperrors value. A zero status code becomes 500.
func SendError(w http.ResponseWriter, err apperrors.Error) {
	if err == nil {
		return
	}
	statusCode := err.StatusCode()
	if statusCode == 0 {
		statusCode = http.StatusInternalServerError
	}
	(&Error{
		StatusCode:  statusCode,
		Description: err.ErrorAll(),
	}).Send(w)
}

// ErrReqMethodNotSupported returns an error for unsupported HTTP methods.
func ErrReqMethodNotSupported() *Error {
	return &Error{
		Description: "request method not supported",
		StatusCode:  http.StatusMethodNotAllowed,
	}
}

// ErrUnableToParseReqData returns an error when request data cannot be parsed.
func ErrUnableToParseReqData() *Error {
	return &Error{
		Description: "unable to parse request data",
		StatusCode:  http.StatusBadRequest,
	}
}

// ErrInvalidRequest returns a 400 with the given description.
func ErrInvalidRequest(msg string) *Error {
	return &Error{
		Description: msg,
		StatusCode:  http.StatusBadRequest,
	}
}

// ErrUnauthorized returns a 401.
func ErrUnauthorized() *Error {
	return &Error{
		Description: "Not authenticated",
		StatusCode:  http.StatusUnauthorized,
	}
}

// ErrNotFound returns a 404.
func ErrNotFound() *Error {
	return &Error{
		Description: "Not found",
		StatusCode:  http.StatusNotFound,
	}
}

// ErrRequestTimeout returns a 503 for handlers that overran their deadline.
func ErrRequestTimeout() *Error {
	return &Error{
		Description: "request timed out",
		StatusCode:  http.StatusServiceUnavailable,
	}
}

// ErrApplicationError returns a 500. If no message is given a default one is used.
func ErrApplicationError(err ...string) *Error {
	s := "unable to process request"
	if len(err) > 0 {
		s = err[0]
	}
	return &Error{
		Description: s,
		StatusCode:  http.StatusInternalServerError,
	}
}
