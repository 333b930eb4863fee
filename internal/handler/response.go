// Package handler contains the HTTP route handlers. Each handler struct owns
// one route family and composes the services injected into it; all responses
// share the {success, data?, message?} envelope.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/pichub/internal/apperror"
)

// Envelope is the standard response shape for every JSON endpoint.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// writeJSON sends a JSON response with the given status code. Headers and
// status must go out before the body — once Encode writes, they're sent.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already gone; all we can do is log it.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeSuccess sends a 200 success envelope.
func writeSuccess(w http.ResponseWriter, data any, message string) {
	writeJSON(w, http.StatusOK, Envelope{Success: true, Data: data, Message: message})
}

// writeError maps a domain error to its HTTP status and sends the error
// envelope. The service layer returns apperror sentinels; this is the single
// place they become status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "An internal error occurred"

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message

		switch {
		case errors.Is(err, apperror.ErrBadRequest):
			status = http.StatusBadRequest
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
		case errors.Is(err, apperror.ErrInternal):
			status = http.StatusInternalServerError
		}
	}

	writeJSON(w, status, Envelope{Success: false, Message: message})
}
