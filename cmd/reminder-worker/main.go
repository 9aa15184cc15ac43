package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/groupeclinic/clinic-scheduling/internal/appointment"
	"github.com/groupeclinic/clinic-scheduling/internal/audit"
	"github.com/groupeclinic/clinic-scheduling/internal/config"
	"github.com/groupeclinic/clinic-scheduling/internal/db"
	"github.com/groupeclinic/clinic-scheduling/internal/directory"
	"github.com/groupeclinic/clinic-scheduling/internal/logging"
	"github.com/groupeclinic/clinic-scheduling/internal/notify"
	redisclient "github.com/groupeclinic/clinic-scheduling/internal/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}

	logging.Init("reminder-worker", cfg.Env)
	log.Info().
		Str("env", cfg.Env).
		Dur("interval", cfg.ReminderInterval).
		Dur("lookahead", cfg.ReminderLookahead).
		Msg("reminder-worker starting up")

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

	var mailer notify.EmailSender = notify.LogSender{}
	if cfg.SMTPAddr != "" {
		mailer = notify.NewSMTPSender(cfg.SMTPAddr, cfg.SMTPFrom)
	}

	// The worker has no websocket clients of its own; its hub exists so the
	// dispatcher can run the same fan-out path as the API process.
	hub := notify.NewHub()

	repo := appointment.NewPgRepository(pgPool)
	dir := directory.NewPgRepository(pgPool)
	locker := redisclient.NewRedisBookingLocker(rdb, cfg.LockTTL)
	dispatcher := notify.NewHubDispatcher(hub, mailer)
	auditor := audit.NewPgRecorder(pgPool)
	svc := appointment.NewService(repo, dir, locker, dispatcher, auditor, cfg)

	// Run once at startup
	runOnce(rootCtx, svc, cfg.ReminderLookahead)

	ticker := time.NewTicker(cfg.ReminderInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info().Msg("shutdown signal received, stopping reminder worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, cfg.ReminderLookahead)
		}
	}
}

func runOnce(ctx context.Context, svc *appointment.Service, lookahead time.Duration) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	if err := svc.SendReminders(runCtx, lookahead); err != nil {
		log.Error().Err(err).Msg("reminder run error")
		return
	}
	log.Info().Dur("took", time.Since(start)).Msg("reminder run complete")
}
