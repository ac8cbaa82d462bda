package server

import (
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"

	"github.com/agenceo/agenceo/modules/crm/domain/entities/agency"
	"github.com/agenceo/agenceo/modules/crm/domain/entities/profile"
	"github.com/agenceo/agenceo/modules/crm/infrastructure/identity"
	crmmiddleware "github.com/agenceo/agenceo/modules/crm/presentation/middleware"
	"github.com/agenceo/agenceo/pkg/configuration"
	"github.com/agenceo/agenceo/pkg/middleware"
	"github.com/agenceo/agenceo/pkg/ratelimit"
)

// Default assembles the middleware stack shared by every route: logging and
// panic recovery first, then the database pool, then authentication.
func Default(
	logger *logrus.Logger,
	pool *pgxpool.Pool,
	verifier identity.Verifier,
	profiles profile.Repository,
	agencies agency.Repository,
) []mux.MiddlewareFunc {
	return []mux.MiddlewareFunc{
		middleware.WithLogger(logger),
		middleware.WithPool(pool),
		crmmiddleware.Authenticate(verifier, profiles, agencies),
	}
}

// RateLimitStore picks the counter backend. Redis keeps budgets shared across
// replicas; a broken Redis URL falls back to per-process memory rather than
// failing startup.
func RateLimitStore(conf *configuration.Configuration, logger *logrus.Logger) limiter.Store {
	if conf.RateLimit.Storage == "redis" {
		store, err := ratelimit.NewRedisStore(conf.RateLimit.RedisURL)
		if err == nil {
			return store
		}
		logger.WithError(err).Warn("failed to create redis store for rate limiting, falling back to memory")
	}
	return ratelimit.NewMemoryStore()
}
