package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/campushunt/treasurehunt/internal/hunt"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// MessageResponse acknowledges actions without a richer body.
type MessageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeErr maps engine errors to status codes. Anything unrecognized is
// logged and reported as 500.
func writeErr(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, hunt.ErrValidation), errors.Is(err, hunt.ErrInvalidState):
		status = http.StatusBadRequest
	case errors.Is(err, hunt.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, hunt.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, hunt.ErrUnauthorized):
		status = http.StatusUnauthorized
	}

	if status == http.StatusInternalServerError {
		logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, status, "internal error")
		return
	}

	var he *hunt.Error
	if errors.As(err, &he) {
		writeJSON(w, status, ErrorResponse{Error: he.Message, Fields: he.Fields})
		return
	}
	writeError(w, status, err.Error())
}
