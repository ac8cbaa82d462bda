package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/agenceo/agenceo/modules/crm/domain/entities/agency"
	"github.com/agenceo/agenceo/modules/crm/domain/entities/profile"
	"github.com/agenceo/agenceo/modules/crm/infrastructure/identity"
	"github.com/agenceo/agenceo/pkg/composables"
	"github.com/agenceo/agenceo/pkg/httpapi"
	"github.com/agenceo/agenceo/pkg/serrors"
)

// Authenticate resolves the bearer token into a caller context: user id from
// the token, super-admin flag from the profile row, agency set from the
// membership table. Requests without credentials pass through without a
// caller; handlers that need one reject them with AUTH_REQUIRED.
func Authenticate(
	verifier identity.Verifier,
	profiles profile.Repository,
	agencies agency.Repository,
) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			userID, err := verifier.Verify(ctx, token)
			if err != nil {
				writeAuthError(w, serrors.AuthRequired().WithMessage("invalid or expired token"))
				return
			}

			caller := composables.Caller{UserID: userID}

			prof, err := profiles.GetByUserID(ctx, userID)
			switch {
			case err == nil:
				if prof.BannedAt() != nil {
					writeAuthError(w, serrors.Forbidden("account is banned"))
					return
				}
				caller.IsSuperAdmin = prof.IsSuperAdmin()
			case errors.Is(err, profile.ErrNotFound):
				// Token valid but the profile row has not materialized yet.
				// The caller exists with no privileges.
			default:
				writeAuthError(w, serrors.DBReadFailed(err))
				return
			}

			agencyIDs, err := agencies.AgencyIDsByUser(ctx, userID)
			if err != nil {
				writeAuthError(w, serrors.DBReadFailed(err))
				return
			}
			caller.AgencyIDs = agencyIDs

			next.ServeHTTP(w, r.WithContext(composables.WithCaller(ctx, caller)))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func writeAuthError(w http.ResponseWriter, err *serrors.BaseError) {
	_ = httpapi.WriteError(w, err.Status, err.Code, err.Message, nil)
}
