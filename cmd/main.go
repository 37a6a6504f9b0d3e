package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"influx_events/internal/config"
	"influx_events/internal/handlers"
	"influx_events/internal/lock"
	"influx_events/internal/logger"
	"influx_events/internal/metrics"
	"influx_events/internal/repository"
	"influx_events/internal/repository/db"
	"influx_events/internal/server"
	"influx_events/internal/service"
)

const (
	feedBuffer      = 64
	startupTimeout  = 15 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	configPath := flag.String("config", "", "path to config file (default configs/config.yml)")
	flag.Parse()

	// load config.yml, .env and EVENTS_* overrides
	cfg, v, err := config.Load(*configPath)
	if err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}

	// init logger
	log := logger.Init(logger.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		MaxBackups: cfg.Log.MaxBackups,
		Compress:   cfg.Log.Compress,
	})
	defer func() { _ = log.Sync() }()
	config.Watch(v, func(level string) {
		log.SetLevel(level)
		log.Infow("log level changed", "level", log.Level())
	})

	// open DB (accounts, and events when store.driver is sql)
	conn, err := db.InitDB(cfg.SQL.Driver, cfg.SQL.DSN)
	if err != nil {
		log.Fatalw("failed to init database", "driver", cfg.SQL.Driver, "err", err)
	}

	m := metrics.New()
	store, err := openStore(cfg, conn, log)
	if err != nil {
		log.Fatalw("failed to open event store", "driver", cfg.Store.Driver, "err", err)
	}
	events := repository.NewInstrumented(store, m)

	// wire dependencies
	hub := service.NewHub(feedBuffer, m.FeedDropped.Inc)
	repos := repository.NewRepository(events, conn, cfg.SQL.Driver)
	services := service.NewService(repos, newLocker(cfg.Lock, log), hub, cfg)
	apiHandler := handlers.NewHandler(services, log, handlers.Options{
		Timing:      cfg.HTTP.Timing,
		ClearMethod: cfg.HTTP.ClearMethod,
		AuthEnabled: cfg.Auth.Enabled,
		Metrics:     m,
	})

	// start HTTP server
	srv := server.New(cfg.HTTP)
	runHTTPServer(srv, cfg.Port, apiHandler, log)
	log.Infow("server started", "port", cfg.Port, "store", cfg.Store.Driver, "clear_method", cfg.HTTP.ClearMethod)

	// graceful shutdown
	waitForShutdown(srv, events, conn, log)
}

// openStore builds the configured event store.
func openStore(cfg *config.Config, conn *sql.DB, log *logger.Logger) (repository.EventRepo, error) {
	if cfg.Store.Driver == config.StoreSQL {
		return repository.NewEventSQL(conn, cfg.SQL.Driver), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()
	store, err := repository.NewEventInflux(ctx, cfg.InfluxDB, log)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// newLocker shares update locks through Redis when an address is configured.
func newLocker(cfg config.LockConfig, log *logger.Logger) lock.Locker {
	if cfg.RedisAddr == "" {
		return lock.NewLocal()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return lock.NewRedis(client, cfg.TTL, cfg.Retry, func(key string, err error) {
		log.Warnw("lock_release_failed", "key", key, "err", err)
	})
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8000"
		}
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(srv *server.Server, store repository.EventRepo, conn *sql.DB, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// allow in-flight requests to complete
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
	if err := store.Close(); err != nil {
		log.Errorw("failed to close event store", "err", err)
	}
	if err := conn.Close(); err != nil {
		log.Errorw("failed to close database", "err", err)
	}
}
