// Package apperrors provides chainable error values that carry an HTTP status code.
// Root errors are declared once as sentinels and specialised per call with New or Msg,
// so callers can match the root with errors.Is while the message stays call specific.
package apperrors

// Error is an error that can be specialised, chained and tagged with a status code.
// Every method returns a new Error and leaves the receiver untouched.
type Error interface {
	error
	Unwrap() error

	New(msg string) Error    // fresh message, same root and status code
	Msg(msg string) Error    // fresh message that also wraps the receiver
	Err(err ...error) Error  // same message, attaches the given causes
	SetStatusCode(int) Error // copy with the status code replaced
	StatusCode() int         // 0 if never set
	ErrorAll() string        // message followed by every attached cause
}
