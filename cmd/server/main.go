package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/assurdotrattinocorto-ux/motta-carrozzeria-sub000/internal/app"
	"github.com/assurdotrattinocorto-ux/motta-carrozzeria-sub000/internal/config"
	"github.com/assurdotrattinocorto-ux/motta-carrozzeria-sub000/internal/database"
	"github.com/assurdotrattinocorto-ux/motta-carrozzeria-sub000/internal/domain"
	"github.com/assurdotrattinocorto-ux/motta-carrozzeria-sub000/internal/eventpublisher"
	"github.com/assurdotrattinocorto-ux/motta-carrozzeria-sub000/internal/logging"
	"github.com/assurdotrattinocorto-ux/motta-carrozzeria-sub000/internal/server"
	"github.com/assurdotrattinocorto-ux/motta-carrozzeria-sub000/internal/sqlitedb"
	"github.com/assurdotrattinocorto-ux/motta-carrozzeria-sub000/internal/websocket"
)

// repositories groups one persistence gateway's implementations of the
// domain ports plus the closer and readiness pinger that go with it.
type repositories struct {
	users    domain.UserRepository
	jobs     domain.JobRepository
	timeLogs domain.TimeLogRepository
	archive  domain.ArchiveRepository
	pinger   server.Pinger
	close    func()
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupPostgres(cfg *config.Config) repositories {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.RunMigrationsWithLock(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return repositories{
		users:    database.NewUserRepo(pool),
		jobs:     database.NewJobRepo(pool),
		timeLogs: database.NewTimeLogRepo(pool),
		archive:  database.NewArchiveRepo(pool),
		pinger:   pool,
		close:    pool.Close,
	}
}

type gormPinger struct {
	db *gorm.DB
}

func (p gormPinger) Ping(ctx context.Context) error { return sqlitedb.Ping(ctx, p.db) }

func setupSQLite(cfg *config.Config) repositories {
	db, err := sqlitedb.Open(cfg.SQLitePath)
	if err != nil {
		slog.Error("Failed to open sqlite database", "error", err, "path", cfg.SQLitePath)
		os.Exit(1)
	}

	return repositories{
		users:    sqlitedb.NewUserRepo(db),
		jobs:     sqlitedb.NewJobRepo(db),
		timeLogs: sqlitedb.NewTimeLogRepo(db),
		archive:  sqlitedb.NewArchiveRepo(db),
		pinger:   gormPinger{db: db},
		close: func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		},
	}
}

type redisPinger struct {
	client *goredis.Client
}

func (p redisPinger) Ping(ctx context.Context) error { return p.client.Ping(ctx).Err() }

func setupRedis(ctx context.Context, redisURL string) *goredis.Client {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		slog.Error("Failed to parse Redis URL", "error", err)
		os.Exit(1)
	}

	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func runGracefulShutdown(srv *server.Server, hub *websocket.Hub, relay *eventpublisher.Relay) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		if relay != nil {
			relay.Stop()
		}
		hub.Stop()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	// Initialize structured logging
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "driver", cfg.DBDriver)

	var repos repositories
	switch cfg.DBDriver {
	case config.DriverSQLite:
		repos = setupSQLite(cfg)
	default:
		repos = setupPostgres(cfg)
	}
	defer repos.close()

	var redisClient *goredis.Client
	if cfg.RedisURL != "" {
		redisClient = setupRedis(context.Background(), cfg.RedisURL)
		defer func() { _ = redisClient.Close() }()
	}

	hub := websocket.NewHub()
	publisher := eventpublisher.New(hub, redisClient)

	var relay *eventpublisher.Relay
	if redisClient != nil {
		relay = eventpublisher.StartRelay(context.Background(), redisClient, hub, publisher)
	}

	appSvc := app.NewService(repos.users, repos.jobs, repos.timeLogs, repos.archive, publisher, clock)

	if cfg.AdminUsername != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := appSvc.EnsureAdminUser(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
			cancel()
			slog.Error("Failed to seed admin user", "error", err)
			os.Exit(1)
		}
		cancel()
	}

	var redisHealth server.Pinger
	if redisClient != nil {
		redisHealth = redisPinger{client: redisClient}
	}
	srv := server.NewServer(cfg, appSvc, hub, repos.pinger, redisHealth)

	done := runGracefulShutdown(srv, hub, relay)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
