package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/groupeclinic/clinic-scheduling/internal/api"
	"github.com/groupeclinic/clinic-scheduling/internal/appointment"
	"github.com/groupeclinic/clinic-scheduling/internal/audit"
	"github.com/groupeclinic/clinic-scheduling/internal/config"
	"github.com/groupeclinic/clinic-scheduling/internal/db"
	"github.com/groupeclinic/clinic-scheduling/internal/directory"
	"github.com/groupeclinic/clinic-scheduling/internal/logging"
	"github.com/groupeclinic/clinic-scheduling/internal/notify"
	redisclient "github.com/groupeclinic/clinic-scheduling/internal/redis"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}

	logging.Init("api-server", cfg.Env)
	log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, cfg.PGMaxConns)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword, cfg.RedisPoolSize)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("error closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	hub := notify.NewHub()

	var mailer notify.EmailSender = notify.LogSender{}
	if cfg.SMTPAddr != "" {
		mailer = notify.NewSMTPSender(cfg.SMTPAddr, cfg.SMTPFrom)
	}

	repo := appointment.NewPgRepository(pgPool)
	dir := directory.NewPgRepository(pgPool)
	locker := redisclient.NewRedisBookingLocker(rdb, cfg.LockTTL)
	dispatcher := notify.NewHubDispatcher(hub, mailer)
	auditor := audit.NewPgRecorder(pgPool)
	svc := appointment.NewService(repo, dir, locker, dispatcher, auditor, cfg)

	router := api.NewRouter(api.RouterConfig{
		Service:   svc,
		Directory: dir,
		Auditor:   auditor,
		Hub:       hub,
		PgPool:    pgPool,
		Redis:     rdb,
		Env:       cfg.Env,
		Version:   version,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-rootCtx.Done()

	log.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
