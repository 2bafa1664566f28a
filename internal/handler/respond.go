package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// errorResponse is the JSON error body shared by all endpoints.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zctx.From(r.Context()).Error("Encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	respondJSON(w, r, status, errorResponse{Code: status, Message: message})
}

// customerID extracts the authenticated customer from the X-Customer-ID
// header. The header is set by the out-of-process identity layer; a missing
// or malformed value means the request is unauthenticated.
func customerID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.Header.Get("X-Customer-ID"))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// pathUUID parses a UUID path value. It reports false on absent or malformed
// values.
func pathUUID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
