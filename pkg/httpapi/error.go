package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/agenceo/agenceo/pkg/serrors"
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

// WriteServiceError maps a classified service error onto the wire. Anything
// that is not a *serrors.BaseError is a bug upstream and degrades to a bare
// 500 so raw error text never leaks.
func WriteServiceError(w http.ResponseWriter, err error) error {
	base, ok := serrors.As(err)
	if !ok {
		return WriteError(w, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "internal server error", nil)
	}
	return WriteJSON(w, base.Status, &ServiceErrorEnvelope{
		Code:    base.Code,
		Message: base.Message,
		Details: base.Details,
	})
}

// ServiceErrorEnvelope is the JSON shape of a classified error.
type ServiceErrorEnvelope struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// DecodeJSON reads a request body into dst, rejecting unknown top-level noise
// only by shape, not by extra fields: action payloads are forward-compatible.
func DecodeJSON(r *http.Request, dst any) error {
	defer func() { _ = r.Body.Close() }()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return serrors.InvalidPayload("request body is not valid JSON")
	}
	return nil
}
