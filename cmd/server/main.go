// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Reply drafter webhook server.
//
// Entry point for the drafting service. It:
//  1. Loads configuration from config.yaml, .env and the environment
//  2. Wires the platform client, generator and reply pipeline
//  3. Connects the optional Redis event queue and Postgres run ledger
//  4. Serves POST /webhook and GET /health
//  5. Handles graceful shutdown on SIGTERM/SIGINT
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/bcem/drafter/internal/app"
	"github.com/bcem/drafter/internal/config"
	"github.com/bcem/drafter/internal/webhook"
)

func main() {
	// Structured JSON logging until the configured level is known
	slog.SetDefault(config.NewLogger(os.Stdout, slog.LevelInfo))

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to read .env file", "error", err)
	}

	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		slog.Error("invalid log level", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(config.NewLogger(os.Stdout, level))

	slog.Info("starting reply drafter",
		"generation_mode", cfg.Generation.Mode,
		"model", cfg.Generation.Model,
		"vector_store", cfg.Generation.VectorStoreID != "",
		"redis", cfg.Redis.URL != "",
		"postgres", cfg.Database.URL != "",
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Wire pipeline and sinks ---
	a, err := app.Build(ctx, cfg, app.Options{WithSinks: true})
	if err != nil {
		slog.Error("failed to initialise drafter", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	// --- Webhook server ---
	handler := webhook.NewHandler(a.Pipeline, cfg.Server.WebhookSecret, cfg.Server.RequestTimeout)
	ready, done, err := webhook.Serve(ctx, webhook.ServerConfig{
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		Checks:       a.HealthChecks(),
	}, handler)
	if err != nil {
		slog.Error("failed to start webhook server", "error", err)
		os.Exit(1)
	}
	<-ready

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigCh

	slog.Info("received shutdown signal", "signal", sig)
	cancel()
	<-done

	slog.Info("reply drafter stopped")
}
