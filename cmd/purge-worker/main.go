package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/carelink/hospital-scheduling/internal/config"
	"github.com/carelink/hospital-scheduling/internal/db"
	"github.com/carelink/hospital-scheduling/internal/observability/metrics"
	"github.com/carelink/hospital-scheduling/internal/scheduling"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("purge-worker starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running purge worker in env=%s interval=%s", cfg.Env, cfg.PurgeInterval)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

	repo := scheduling.NewPgRepository(pgPool)
	m := metrics.NewSchedulingMetrics(prometheus.DefaultRegisterer)
	store := scheduling.NewAvailabilityStore(repo, cfg.HorizonDays)

	// Run once at startup
	runOnce(rootCtx, store, m)

	ticker := time.NewTicker(cfg.PurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Println("shutdown signal received, stopping purge worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, store, m)
		}
	}
}

func runOnce(ctx context.Context, store *scheduling.AvailabilityStore, m *metrics.SchedulingMetrics) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	n, err := store.PurgeExpired(runCtx)
	if err != nil {
		log.Printf("purge run error: %v", err)
		return
	}
	m.ObservePurged(n)
	log.Printf("purge run complete: removed=%d in %s", n, time.Since(start))
}
