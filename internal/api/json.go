package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/fiche/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// writeError maps a pipeline error to its HTTP status and user message.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", slog.String("error", err.Error()))
	}
	writeJSON(w, status, errResponse{Error: apperr.UserMessage(err), Kind: apperr.Kind(err)})
}

func statusFor(err error) int {
	var te *apperr.TransportError
	switch {
	case errors.Is(err, apperr.ErrMissingCredential), errors.Is(err, apperr.ErrInvalidCredential):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, apperr.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, apperr.ErrNetworkUnreachable):
		return http.StatusBadGateway
	case errors.Is(err, apperr.ErrDecodeFailure):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrBusy), errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrNoSession):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &te):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
