package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sampledesk/sampledesk/pkg/serrors"
)

// ErrorEnvelope standardizes JSON error responses for API namespaces.
type ErrorEnvelope struct {
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Meta    map[string]string `json:"meta,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	if w == nil {
		return nil
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, code, message string, meta map[string]string) error {
	return WriteJSON(w, status, &ErrorEnvelope{
		Code:    code,
		Message: message,
		Meta:    meta,
	})
}

// WriteServiceError maps a service error to its HTTP status and envelope.
func WriteServiceError(w http.ResponseWriter, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, serrors.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, serrors.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, serrors.ErrAlreadyClaimed), errors.Is(err, serrors.ErrInvalidState), errors.Is(err, serrors.ErrDuplicateRequest):
		status = http.StatusConflict
	case errors.Is(err, serrors.ErrValidation):
		status = http.StatusUnprocessableEntity
	}

	code := serrors.CodeOf(err)
	if code == "" {
		code = "INTERNAL"
	}
	return WriteError(w, status, code, err.Error(), nil)
}
