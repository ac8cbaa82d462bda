package middleware

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agenceo/agenceo/pkg/constants"
)

// Provide makes a value available to every downstream handler under the
// given context key.
func Provide(key constants.ContextKey, value any) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), key, value)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithPool injects the database pool repositories resolve through the context.
func WithPool(pool *pgxpool.Pool) mux.MiddlewareFunc {
	return Provide(constants.PoolKey, pool)
}
