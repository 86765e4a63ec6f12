// AgroAdvisor - Adaptive Crop Recommendation Engine
// Copyright 2026 Kisan Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kisanlabs/agroadvisor

// Command server runs the AgroAdvisor HTTP service: it seeds or loads
// the model set, wires the training store, feedback ledger, artifact
// store and event bus into the engine, and serves the advisory API
// under a suture supervision tree.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kisanlabs/agroadvisor/internal/advisor"
	"github.com/kisanlabs/agroadvisor/internal/advisor/reranking"
	"github.com/kisanlabs/agroadvisor/internal/advisor/storage"
	"github.com/kisanlabs/agroadvisor/internal/api"
	"github.com/kisanlabs/agroadvisor/internal/config"
	"github.com/kisanlabs/agroadvisor/internal/database"
	"github.com/kisanlabs/agroadvisor/internal/events"
	"github.com/kisanlabs/agroadvisor/internal/ledger"
	"github.com/kisanlabs/agroadvisor/internal/logging"
	"github.com/kisanlabs/agroadvisor/internal/providers"
	"github.com/kisanlabs/agroadvisor/internal/supervisor"
)

const marketQuoteTTL = 15 * time.Minute

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("fatal")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	log := logging.Logger()
	log.Info().Str("addr", cfg.Addr()).Msg("starting agroadvisor")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage layer.
	db, err := database.New(cfg.Database, log)
	if err != nil {
		return fmt.Errorf("open training store: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("close training store")
		}
	}()

	led, err := ledger.Open(cfg.Ledger, log)
	if err != nil {
		return fmt.Errorf("open feedback ledger: %w", err)
	}
	defer func() {
		if err := led.Close(); err != nil {
			log.Error().Err(err).Msg("close feedback ledger")
		}
	}()

	artifacts, err := storage.NewStore(cfg.Artifacts.Dir)
	if err != nil {
		return fmt.Errorf("open artifact store: %w", err)
	}

	// Event bus.
	bus := events.NewBus(log)
	defer func() {
		if err := bus.Close(); err != nil {
			log.Error().Err(err).Msg("close event bus")
		}
	}()

	// Engine.
	svc, err := advisor.New(cfg.Advisor, db, led, artifacts, bus, log)
	if err != nil {
		return fmt.Errorf("build advisor: %w", err)
	}
	if err := svc.Init(ctx); err != nil {
		return fmt.Errorf("init advisor: %w", err)
	}
	defer func() {
		if err := svc.Close(); err != nil {
			log.Error().Err(err).Msg("close advisor")
		}
		if cfg.Artifacts.Keep > 0 {
			if err := artifacts.Prune(cfg.Artifacts.Keep); err != nil {
				log.Error().Err(err).Msg("prune artifacts")
			}
		}
	}()

	market := providers.NewCachedMarket(providers.NewStaticMarket(), marketQuoteTTL)
	svc.RegisterReranker(reranking.NewMarketReranker(market, log))

	// HTTP layer.
	handler := api.NewHandler(svc, providers.NewStaticWeather(), log)
	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      api.NewRouter(handler, cfg.Router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Supervision tree.
	tree := supervisor.NewTree(slog.New(logging.NewSlogHandler()), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddAPIService(supervisor.NewHTTPService(httpServer, cfg.Server.ShutdownTimeout))
	tree.AddEventService(supervisor.NewEventLogService(bus, log))

	log.Info().Msg("agroadvisor ready")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor: %w", err)
	}

	log.Info().Msg("agroadvisor stopped")
	return nil
}
