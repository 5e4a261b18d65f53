package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"karavanCanteen/internal/apperr"
)

// ErrorResponse is the body of every non-2xx JSON reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: msg,
	})
}

// statusFor maps the error taxonomy onto HTTP.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest, "validation_failed"
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperr.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, apperr.ErrStaleState):
		return http.StatusConflict, "stale_state"
	case errors.Is(err, apperr.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "store_unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code, kind := statusFor(err)
	msg := err.Error()
	if code >= 500 {
		h.log.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "err", err)
		if code == http.StatusInternalServerError {
			msg = "internal error"
		}
	}
	writeError(w, code, kind, msg)
}
