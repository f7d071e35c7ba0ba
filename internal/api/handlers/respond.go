package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/markdave123-py/smartassist-rag/internal/core"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response", "err", err)
	}
}

// writeError maps the core error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "status", status, "err", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidInput), errors.Is(err, core.ErrEmptyDocument):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, core.ErrSyncInProgress):
		return http.StatusConflict
	case errors.Is(err, core.ErrEmbeddingService), errors.Is(err, core.ErrGenerationService):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Health reports liveness only; it touches no dependency.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "rag"})
}
