package serrors

import (
	"errors"
	"fmt"
	"net/http"
)

// BaseError is the classified error returned to callers of the mutation core.
// Raw store/backend errors never cross the handler boundary; they are wrapped
// into one of these with a stable code and an HTTP-mappable status.
type BaseError struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
}

func NewError(code, message string, status int) *BaseError {
	return &BaseError{
		Status:  status,
		Code:    code,
		Message: message,
	}
}

func (e *BaseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WithDetails returns a copy carrying extra machine-readable context.
// The receiver is not mutated so package-level sentinels stay shareable.
func (e *BaseError) WithDetails(details map[string]any) *BaseError {
	clone := *e
	clone.Details = details
	return &clone
}

// WithMessage returns a copy with a more specific human-readable message.
func (e *BaseError) WithMessage(message string) *BaseError {
	clone := *e
	clone.Message = message
	return &clone
}

// As unwraps err into a *BaseError if one is anywhere in the chain.
func As(err error) (*BaseError, bool) {
	var base *BaseError
	if errors.As(err, &base) {
		return base, true
	}
	return nil, false
}

// IsCode reports whether err carries the given classified code.
func IsCode(err error, code string) bool {
	base, ok := As(err)
	return ok && base.Code == code
}

// Validation and payload errors.
func InvalidPayload(message string) *BaseError {
	return NewError("INVALID_PAYLOAD", message, http.StatusBadRequest)
}

func ValidationError(message string) *BaseError {
	return NewError("VALIDATION_ERROR", message, http.StatusBadRequest)
}

func ActionRequired() *BaseError {
	return NewError("ACTION_REQUIRED", "unknown or missing action", http.StatusBadRequest)
}

func AgencyIDInvalid() *BaseError {
	return NewError("AGENCY_ID_INVALID", "agency id is required", http.StatusBadRequest)
}

func ConfigInvalid(message string) *BaseError {
	return NewError("CONFIG_INVALID", message, http.StatusBadRequest)
}

// Authorization errors.
func AuthRequired() *BaseError {
	return NewError("AUTH_REQUIRED", "authentication required", http.StatusUnauthorized)
}

func Forbidden(message string) *BaseError {
	return NewError("AUTH_FORBIDDEN", message, http.StatusForbidden)
}

func UserDeleteSelfForbidden() *BaseError {
	return NewError("USER_DELETE_SELF_FORBIDDEN", "a user cannot delete their own account", http.StatusForbidden)
}

// Not-found errors.
func NotFound(message string) *BaseError {
	return NewError("NOT_FOUND", message, http.StatusNotFound)
}

func UserNotFound() *BaseError {
	return NewError("USER_NOT_FOUND", "user not found", http.StatusNotFound)
}

func AgencyNotFound() *BaseError {
	return NewError("AGENCY_NOT_FOUND", "agency not found", http.StatusNotFound)
}

// Conflict errors.
func Conflict(message string) *BaseError {
	return NewError("CONFLICT", message, http.StatusConflict)
}

func AgencyNameExists() *BaseError {
	return NewError("AGENCY_NAME_EXISTS", "an agency with this name already exists", http.StatusConflict)
}

func UserDeleteReferenced() *BaseError {
	return NewError("USER_DELETE_REFERENCED", "user is still referenced and cannot be deleted", http.StatusConflict)
}

// Store failures.
func DBReadFailed(err error) *BaseError {
	return NewError("DB_READ_FAILED", "read from store failed", http.StatusInternalServerError).
		WithDetails(map[string]any{"cause": err.Error()})
}

func DBWriteFailed(message string) *BaseError {
	return NewError("DB_WRITE_FAILED", message, http.StatusInternalServerError)
}

func ProfileCreateFailed() *BaseError {
	return NewError("PROFILE_CREATE_FAILED", "profile did not materialize in time", http.StatusInternalServerError)
}

func SystemUserProvisionFailed(err error) *BaseError {
	return NewError("SYSTEM_USER_PROVISION_FAILED", "failed to provision system user", http.StatusInternalServerError).
		WithDetails(map[string]any{"cause": err.Error()})
}
