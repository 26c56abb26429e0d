package httpx

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/tansive/backoffice/internal/common/logtrace"
)

// SendJsonRsp writes msg as JSON. Strings and byte slices that already hold valid
// JSON are written as is; anything else is marshaled.
func SendJsonRsp(ctx context.Context, w http.ResponseWriter, statusCode int, msg any) {
	var msgJson []byte
	switch v := msg.(type) {
	case string:
		if json.Valid([]byte(v)) {
			msgJson = []byte(v)
		}
	case []byte:
		if json.Valid(v) {
			msgJson = v
		}
	default:
		var err error
		msgJson, err = json.Marshal(msg)
		if err != nil {
			log.Ctx(ctx).Err(err).Msg("unable to marshal json")
			ErrApplicationError("Id: " + logtrace.RequestIdFromContext(ctx)).Send(w)
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if statusCode != http.StatusNoContent {
		w.Write(msgJson)
	}
}
