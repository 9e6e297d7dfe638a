package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/carelink/hospital-scheduling/internal/scheduling"
)

type RouterConfig struct {
	Scheduler    *scheduling.Service
	Availability *scheduling.AvailabilityStore
	Recorder     *scheduling.Recorder
	PgPool       *pgxpool.Pool
	Redis        *redis.Client
	Env          string
	Version      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// Availability windows
	r.Post("/availability", declareAvailabilityHandler(cfg.Availability))
	r.Get("/availability", listAvailabilityHandler(cfg.Availability))
	r.Delete("/availability/{id}", retractAvailabilityHandler(cfg.Availability))

	// Bookings
	r.Post("/bookings", createBookingHandler(cfg.Scheduler))
	r.Get("/bookings/{id}", getBookingHandler(cfg.Scheduler))
	r.Post("/bookings/{id}/cancel", cancelBookingHandler(cfg.Scheduler))
	r.Post("/bookings/{id}/complete", completeBookingHandler(cfg.Scheduler))
	r.Get("/patients/{id}/bookings", listPatientBookingsHandler(cfg.Scheduler))
	r.Get("/doctors/{id}/bookings", listDoctorBookingsHandler(cfg.Scheduler))

	// Treatment records
	r.Get("/patients/{id}/treatments", treatmentHistoryHandler(cfg.Recorder))
	r.Patch("/treatments/{id}", amendRecordHandler(cfg.Recorder))

	return r
}
