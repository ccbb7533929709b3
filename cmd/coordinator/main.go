// Command coordinator runs the job-submission HTTP surface described in
// the DOMAIN STACK expansion: POST /jobs to start a run against a fixed
// worker set, GET /jobs/:id to poll its outcome. The coordinator itself
// holds no per-job state outside a Run call (spec §4.3); each submitted job
// runs in its own goroutine, and its status and results are kept in an
// in-memory jobstore for the life of the process.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chris-alexander-pop/mapreduce-engine/internal/coordinator"
	"github.com/chris-alexander-pop/mapreduce-engine/internal/httpapi"
	"github.com/chris-alexander-pop/mapreduce-engine/internal/jobevents"
	"github.com/chris-alexander-pop/mapreduce-engine/internal/jobstore"
	"github.com/chris-alexander-pop/mapreduce-engine/pkg/config"
	"github.com/chris-alexander-pop/mapreduce-engine/pkg/events"
	eventsmemory "github.com/chris-alexander-pop/mapreduce-engine/pkg/events/adapters/memory"
	eventsnats "github.com/chris-alexander-pop/mapreduce-engine/pkg/events/adapters/nats"
	"github.com/chris-alexander-pop/mapreduce-engine/pkg/httpclient"
	"github.com/chris-alexander-pop/mapreduce-engine/pkg/logger"
	"github.com/chris-alexander-pop/mapreduce-engine/pkg/server"
)

// Config is the coordinator process's full environment-driven configuration.
// EventsURL is optional: empty selects the in-memory bus, set selects NATS.
type Config struct {
	Server        server.Config
	Logger        logger.Config
	EventsURL     string        `env:"EVENTS_URL"`
	WorkerTimeout time.Duration `env:"WORKER_TIMEOUT" env-default:"60s"`
}

func main() {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	slogger := logger.Init(cfg.Logger)

	bus, closeBus := newEventsBus(cfg, slogger)
	defer closeBus()

	client := httpapi.NewRemoteWorker(httpclient.New(httpclient.Config{Timeout: cfg.WorkerTimeout}))
	store := jobstore.New()
	publisher := jobevents.New(bus, "coordinator")

	coord := coordinator.New(client)
	coord.Log = slogger
	coord.Events = publisher

	srv := server.New(cfg.Server, slogger, "mapreduce-coordinator")
	(&httpapi.CoordinatorHandlers{
		Coordinator: coord,
		Store:       store,
		Events:      publisher,
		Log:         slogger,
	}).Register(srv.Echo())

	go func() {
		if err := srv.Start(); err != nil {
			slogger.Error("coordinator server stopped", "error", err)
		}
	}()

	slogger.Info("coordinator started", "port", cfg.Server.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slogger.Error("coordinator shutdown failed", "error", err)
	}
	slogger.Info("coordinator shut down")
}

func newEventsBus(cfg Config, log *slog.Logger) (events.Bus, func()) {
	if cfg.EventsURL == "" {
		bus := eventsmemory.New()
		return bus, func() { _ = bus.Close() }
	}

	bus, err := eventsnats.New(eventsnats.Config{URL: cfg.EventsURL})
	if err != nil {
		log.Error("failed to connect to nats, falling back to in-memory bus", "error", err)
		mem := eventsmemory.New()
		return mem, func() { _ = mem.Close() }
	}
	return bus, func() { _ = bus.Close() }
}
