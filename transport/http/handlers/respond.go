package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"chat-hub/errors"
	"chat-hub/wire"
)

// writeResult wraps a successful payload in the wire envelope:
// {"result": <encoded value>}. A nil value renders as the null envelope
// so void operations still return a well-formed body.
func writeResult(log *slog.Logger, w http.ResponseWriter, status int, v any) {
	enc, err := wire.Encode(v)
	if err != nil {
		log.Error("encode response failed", "error", err)
		writeError(w, http.StatusInternalServerError, "CODEC", "Failed to encode response")
		return
	}
	writeJSON(w, status, map[string]any{"result": enc})
}

// writeFault renders a chat validation fault as {"fault": <reason enum>}
// with the status the reason maps to. Anything that is not a typed chat
// fault is a server error and gets the generic transport error shape.
func writeFault(log *slog.Logger, w http.ResponseWriter, err error) {
	ce, ok := errors.AsChatError(err)
	if !ok {
		log.Error("unexpected fault", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}

	enc, encErr := wire.Encode(ce.Reason)
	if encErr != nil {
		log.Error("encode fault failed", "error", encErr)
		writeError(w, http.StatusInternalServerError, "CODEC", "Failed to encode fault")
		return
	}
	writeJSON(w, errors.MapToHTTPStatus(err), map[string]any{"fault": enc})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}
