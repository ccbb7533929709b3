// Command worker runs a single map/reduce worker node: it exposes the
// HTTP surface from spec §6 (health/reset/execute_map/execute_shuffle/
// shuffle/execute_reduce/get_results) and resolves mapper, reducer, and
// partitioner ids against a compiled-in registry (spec §9).
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chris-alexander-pop/mapreduce-engine/internal/httpapi"
	"github.com/chris-alexander-pop/mapreduce-engine/internal/jobs/hourlyhistogram"
	"github.com/chris-alexander-pop/mapreduce-engine/internal/jobs/tipbyzone"
	"github.com/chris-alexander-pop/mapreduce-engine/internal/jobs/wordcount"
	"github.com/chris-alexander-pop/mapreduce-engine/internal/registry"
	"github.com/chris-alexander-pop/mapreduce-engine/internal/worker"
	"github.com/chris-alexander-pop/mapreduce-engine/pkg/config"
	"github.com/chris-alexander-pop/mapreduce-engine/pkg/httpclient"
	"github.com/chris-alexander-pop/mapreduce-engine/pkg/logger"
	"github.com/chris-alexander-pop/mapreduce-engine/pkg/server"
)

// Config is the worker process's full environment-driven configuration.
type Config struct {
	Server       server.Config
	Logger       logger.Config
	WorkerID     string        `env:"WORKER_ID" env-default:"worker-0"`
	PeerTimeout  time.Duration `env:"PEER_TIMEOUT" env-default:"30s"`
}

func main() {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	slogger := logger.Init(cfg.Logger)

	reg := registry.New()
	tipbyzone.Register(reg)
	wordcount.Register(reg)
	hourlyhistogram.Register(reg)

	peer := httpapi.NewRemoteWorker(httpclient.New(httpclient.Config{Timeout: cfg.PeerTimeout}))
	w := worker.New(cfg.WorkerID, reg, peer)

	srv := server.New(cfg.Server, slogger, "mapreduce-worker")
	(&httpapi.WorkerHandlers{Worker: w}).Register(srv.Echo())

	go func() {
		if err := srv.Start(); err != nil {
			slogger.Error("worker server stopped", "error", err)
		}
	}()

	slogger.Info("worker started", "worker_id", cfg.WorkerID, "port", cfg.Server.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slogger.Error("worker shutdown failed", "error", err)
	}
	slogger.Info("worker shut down")
}
