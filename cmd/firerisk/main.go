// Command firerisk runs the terrain and risk workflow once against the
// configured DEM and writes slope, aspect and risk rasters.
//
// Usage:
//
//	go run ./cmd/firerisk [-skip-terrain] [-skip-risk] [-serve]
//
// With -serve the health, metrics and run report endpoints stay up after the
// run until SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/fire-risk-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/fire-risk-etl/internal/adapter/kafka"
	"github.com/couchcryptid/fire-risk-etl/internal/adapter/raster"
	"github.com/couchcryptid/fire-risk-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/fire-risk-etl/internal/config"
	"github.com/couchcryptid/fire-risk-etl/internal/observability"
	"github.com/couchcryptid/fire-risk-etl/internal/pipeline"
)

func main() {
	skipTerrain := flag.Bool("skip-terrain", false, "skip slope/aspect derivation and reuse existing outputs")
	skipRisk := flag.Bool("skip-risk", false, "skip risk classification and overlay")
	serve := flag.Bool("serve", false, "keep the HTTP server running after the workflow finishes")
	flag.Parse()

	os.Exit(run(*skipTerrain, *skipRisk, *serve))
}

func run(skipTerrain, skipRisk, serve bool) int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	var opts []pipeline.Option
	var serverOpts []httpadapter.Option

	if cfg.LedgerEnabled() {
		ledger, err := sqlite.Open(cfg.LedgerPath, logger)
		if err != nil {
			logger.Error("failed to open run ledger", "path", cfg.LedgerPath, "error", err)
			return 1
		}
		defer ledger.Close()
		opts = append(opts, pipeline.WithRecorder(ledger))
		serverOpts = append(serverOpts, httpadapter.WithRunHistory(ledger))
		logger.Info("run ledger enabled", "path", cfg.LedgerPath)
	}

	if cfg.PublishEnabled() {
		publisher := kafkaadapter.NewPublisher(cfg, logger)
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Error("kafka publisher close error", "error", err)
			}
		}()
		opts = append(opts, pipeline.WithPublisher(publisher))
		logger.Info("run summary publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSummaryTopic)
	}

	store := raster.NewStore(cfg.OutputDir, cfg.OutputCompress)
	wf := pipeline.New(store, logger, metrics, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var srv *httpadapter.Server
	if serve {
		srv = httpadapter.NewServer(cfg.HTTPAddr, wf, logger, serverOpts...)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	_, runErr := wf.Run(ctx, pipeline.RunOptions{
		DEMPath:        cfg.DEMPath,
		VegetationPath: cfg.VegetationPath,
		FuelModel:      cfg.VegetationKind == config.VegetationKindFuel,
		Weights:        cfg.Weights(),
		Workers:        cfg.Workers,
		SkipTerrain:    skipTerrain,
		SkipRisk:       skipRisk,
	})
	if runErr != nil {
		logger.Error("workflow failed", "error", runErr)
	}

	if srv != nil {
		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	if runErr != nil {
		return 1
	}
	return 0
}
