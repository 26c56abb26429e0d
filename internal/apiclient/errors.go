package apiclient

import (
	"errors"
	"net/http"

	"github.com/tansive/backoffice/internal/common/apperrors"
)

// FallbackErrorMessage is used when a failed response carries no readable detail.
const FallbackErrorMessage = "An error occurred"

var (
	// ErrUnauthenticated is returned for 401 responses, after the session was cleared.
	ErrUnauthenticated = apperrors.New("Not authenticated").SetStatusCode(http.StatusUnauthorized)
	// ErrRequestFailed is the root of every other non-2xx response. Derived errors carry
	// the server's detail as their message and the response status as their status code.
	ErrRequestFailed = apperrors.New(FallbackErrorMessage)
	// ErrInvalidResponse is returned when a 2xx response cannot be interpreted.
	ErrInvalidResponse = apperrors.New("invalid response from server")
	// ErrInvalidRequest is returned when a request descriptor fails validation or its
	// body cannot be encoded. Nothing is sent.
	ErrInvalidRequest = apperrors.New("invalid request")

	ErrNoFile           = apperrors.New("no file selected")
	ErrNotAnImage       = apperrors.New("selected file is not an image")
	ErrUploadInProgress = apperrors.New("an upload is already in progress")
)

// StatusCode returns the HTTP status attached to err, or 0.
func StatusCode(err error) int {
	var appErr apperrors.Error
	if errors.As(err, &appErr) {
		return appErr.StatusCode()
	}
	return 0
}

// UserMessage returns text suitable for showing to the person who triggered the call.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthenticated):
		return "Your session has expired. Please log in again."
	case errors.Is(err, ErrNoFile):
		return "Please select a file to upload."
	case errors.Is(err, ErrNotAnImage):
		return "Please select an image file."
	case errors.Is(err, ErrUploadInProgress):
		return "An upload is already in progress."
	case errors.Is(err, ErrRequestFailed), errors.Is(err, ErrInvalidResponse), errors.Is(err, ErrInvalidRequest):
		return err.Error()
	default:
		return "Unable to reach the server. Please try again."
	}
}
