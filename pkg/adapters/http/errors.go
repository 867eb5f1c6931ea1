package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Vijaya2621/Chatbot-using-API/pkg/domain"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidSessionID), errors.Is(err, domain.ErrInvalidRole):
		return http.StatusBadRequest
	case domain.IsStorageReadError(err), domain.IsStorageWriteError(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func detailFor(err error) string {
	if errors.Is(err, domain.ErrSessionNotFound) {
		return "Session not found"
	}
	return err.Error()
}
