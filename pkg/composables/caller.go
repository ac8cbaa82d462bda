package composables

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/agenceo/agenceo/pkg/constants"
)

var ErrNoCaller = errors.New("no caller found in context")

// Caller identifies the authenticated user for one request, together with the
// membership set resolved at authentication time. Authorization decisions use
// this cached set; they never trust agency values supplied in request bodies.
type Caller struct {
	UserID       uuid.UUID
	AgencyIDs    []uuid.UUID
	IsSuperAdmin bool
}

// HasAgency reports whether the caller is a member of the given agency.
func (c Caller) HasAgency(agencyID uuid.UUID) bool {
	for _, id := range c.AgencyIDs {
		if id == agencyID {
			return true
		}
	}
	return false
}

func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, constants.CallerKey, caller)
}

func UseCaller(ctx context.Context) (Caller, error) {
	caller, ok := ctx.Value(constants.CallerKey).(Caller)
	if !ok {
		return Caller{}, ErrNoCaller
	}
	return caller, nil
}
