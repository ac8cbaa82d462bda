package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"runtime/debug"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	internalserver "github.com/agenceo/agenceo/internal/server"
	"github.com/agenceo/agenceo/modules/crm/infrastructure/identity"
	"github.com/agenceo/agenceo/modules/crm/infrastructure/persistence"
	"github.com/agenceo/agenceo/modules/crm/presentation/controllers"
	"github.com/agenceo/agenceo/modules/crm/services"
	"github.com/agenceo/agenceo/pkg/configuration"
	"github.com/agenceo/agenceo/pkg/eventbus"
	"github.com/agenceo/agenceo/pkg/ratelimit"
	"github.com/agenceo/agenceo/pkg/server"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	logger := conf.Logger()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	pool, err := pgxpool.New(ctx, conf.Database.Opts)
	if err != nil {
		log.Fatalf("failed to create database pool: %v", err)
	}
	defer pool.Close()

	if err := runMigrations(pool, conf.MigrationsDir); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	bus := eventbus.NewEventPublisher(logger)
	services.RegisterAuditSubscribers(bus, logger)
	limiter := ratelimit.New(internalserver.RateLimitStore(conf, logger), conf.RateLimit)

	agencies := persistence.NewAgencyRepository()
	entities := persistence.NewEntityRepository()
	contacts := persistence.NewContactRepository()
	interactions := persistence.NewInteractionRepository()
	labels := persistence.NewLabelRepository()
	statuses := persistence.NewStatusRepository()
	systemUsers := persistence.NewSystemUserRepository()
	profiles := persistence.NewProfileRepository()

	verifier := identity.NewJWTVerifier(conf.Identity.JWTSecret)
	admin := identity.NewHTTPAdminClient(conf.Identity.AdminURL, conf.Identity.AdminKey)

	guard := services.NewAccessGuard(entities, contacts)
	agencyService := services.NewAgencyService(agencies, limiter, bus)
	entityService := services.NewEntityService(entities, agencies, interactions, guard, limiter, bus)
	contactService := services.NewContactService(contacts, guard, limiter, bus)
	interactionService := services.NewInteractionService(interactions, guard, limiter, bus)
	configService := services.NewConfigService(labels, statuses, guard, limiter, bus)
	profileService := services.NewProfileService(profiles, limiter)
	userService := services.NewUserService(interactions, systemUsers, profiles, agencies, admin, limiter, bus)

	srv := server.NewHTTPServer(
		[]server.Controller{
			controllers.NewHealthController(pool),
			controllers.NewActionsController(
				agencyService,
				entityService,
				contactService,
				interactionService,
				configService,
				profileService,
				userService,
			),
		},
		internalserver.Default(logger, pool, verifier, profiles, agencies),
		controllers.NotFound(),
		controllers.MethodNotAllowed(),
	)

	log.Printf("listening on %s\n", conf.SocketAddress)
	if err := srv.Start(conf.SocketAddress); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}

func runMigrations(pool *pgxpool.Pool, dir string) error {
	db := sql.OpenDB(stdlib.GetPoolConnector(pool))
	defer func() { _ = db.Close() }()

	goose.SetBaseFS(nil)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(db, dir)
}
