// Package httpx provides server-side request/response helpers: JSON responders,
// errors rendered as {"detail": "..."} bodies, and a response writer that tracks
// whether headers were sent.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/tansive/backoffice/internal/common/apperrors"
)

// GetRequestData decodes a JSON request body into data.
// Only POST, PUT and PATCH are accepted.
func GetRequestData(r *http.Request, data any) error {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return ErrReqMethodNotSupported()
	}
	if r.Body == nil {
		log.Ctx(r.Context()).Error().Msg("empty request body")
		return ErrUnableToParseReqData()
	}
	if err := json.NewDecoder(r.Body).Decode(data); err != nil {
		return ErrUnableToParseReqData()
	}
	return nil
}

// Response is a JSON response with a status code.
type Response struct {
	StatusCode int
	Response   any
}

// RequestHandler handles a request and returns either a response or an error.
type RequestHandler func(r *http.Request) (*Response, error)

// WrapHttpRsp adapts a RequestHandler to http.HandlerFunc. Errors are rendered
// through Error.Send. apperrors values keep their status code, or get 500 if unset.
func WrapHttpRsp(handler RequestHandler) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rsp, err := handler(r)
		if err != nil {
			var httperror *Error
			var appErr apperrors.Error
			switch {
			case errors.As(err, &httperror):
				httperror.Send(w)
			case errors.As(err, &appErr):
				SendError(w, appErr)
			default:
				ErrApplicationError(err.Error()).Send(w)
			}
			return
		}
		if rsp == nil {
			ErrApplicationError().Send(w)
			return
		}
		SendJsonRsp(r.Context(), w, rsp.StatusCode, rsp.Response)
	})
}
