package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/groupeclinic/clinic-scheduling/internal/appointment"
	"github.com/groupeclinic/clinic-scheduling/internal/audit"
	"github.com/groupeclinic/clinic-scheduling/internal/directory"
	"github.com/groupeclinic/clinic-scheduling/internal/notify"
)

type RouterConfig struct {
	Service   *appointment.Service
	Directory directory.Repository
	Auditor   audit.Recorder
	Hub       *notify.Hub
	PgPool    *pgxpool.Pool
	Redis     *redis.Client
	Env       string
	Version   string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Rendezvous endpoints
	r.Route("/rendezvous", func(r chi.Router) {
		r.Post("/", createRendezvousHandler(cfg.Service))
		r.Get("/", listRendezvousHandler(cfg.Service))
		r.Get("/upcoming", upcomingRendezvousHandler(cfg.Service))
		r.Get("/range", rangeRendezvousHandler(cfg.Service))
		r.Get("/{id}", getRendezvousHandler(cfg.Service))
		r.Put("/{id}", updateRendezvousHandler(cfg.Service))
		r.Patch("/{id}/status", updateStatusHandler(cfg.Service))
		r.Post("/{id}/cancel", cancelRendezvousHandler(cfg.Service))
		r.Delete("/{id}", deleteRendezvousHandler(cfg.Service))
	})

	// Clinic directory
	r.Get("/medecins", listDoctorsHandler(cfg.Directory))
	r.Get("/medecins/{id}/availability", availabilityHandler(cfg.Service))
	r.Get("/patients", listPatientsHandler(cfg.Directory))

	// Audit trail
	r.Get("/audit", listAuditHandler(cfg.Auditor))

	// Push notifications
	r.Get("/ws", cfg.Hub.ServeWS)

	return r
}
