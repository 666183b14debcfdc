package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/neositio/flowbot/internal/models"
)

// marshalFailure is served when encoding an APIResponse itself fails.
var marshalFailure = []byte(`{"status":"error","message":"internal server error"}`)

func writeJSONResponse(w http.ResponseWriter, statusCode int, resp models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	body, err := json.Marshal(resp)
	if err != nil {
		slog.Error("api: failed to marshal response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write(marshalFailure)
		return
	}
	w.WriteHeader(statusCode)
	if _, err := w.Write(body); err != nil {
		slog.Error("api: failed to write response", "error", err)
	}
}
