// Command coreworker runs the background ingestion worker pool: it polls
// the relational job queue for queued ingest jobs and runs each through the
// ingestion pipeline until terminated.
package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"corectx/internal/bootstrap"
	"corectx/internal/config"
)

const buildTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("coreworker")
	}
}

func run() error {
	configPath := flag.String("config", "config.yaml", "path to config.yaml")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	baseCtx := context.Background()
	buildCtx, cancelBuild := context.WithTimeout(baseCtx, buildTimeout)
	app, err := bootstrap.Build(buildCtx, cfg)
	cancelBuild()
	if err != nil {
		return fmt.Errorf("build app: %w", err)
	}
	defer app.Close()

	ctx, cancel := signal.NotifyContext(baseCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app.RunSinks(ctx)

	pool := bootstrap.BuildJobPool(app, cfg)

	log.Info().Int("workers", cfg.JobQueue.Workers).Msg("coreworker starting")

	pool.Run(ctx)
	return nil
}
