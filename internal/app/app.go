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

// Package app wires configuration into a ready pipeline and its optional
// Redis and Postgres sinks. Both binaries build on it.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bcem/drafter/internal/bearer"
	"github.com/bcem/drafter/internal/compose"
	"github.com/bcem/drafter/internal/config"
	"github.com/bcem/drafter/internal/generate"
	"github.com/bcem/drafter/internal/ledger"
	"github.com/bcem/drafter/internal/pipeline"
	"github.com/bcem/drafter/internal/platform"
	"github.com/bcem/drafter/internal/publish"
	"github.com/bcem/drafter/internal/queue"
	"github.com/bcem/drafter/internal/reply"
	"github.com/bcem/drafter/internal/route"
	"github.com/bcem/drafter/internal/thread"
	"github.com/bcem/drafter/internal/webhook"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// App holds the wired pipeline and the resources it owns.
type App struct {
	Pipeline *pipeline.Pipeline
	Platform *platform.Client
	Queue    *queue.Publisher
	Ledger   *ledger.Store

	rdb    *redis.Client
	pgPool *pgxpool.Pool
}

// Options tune Build.
type Options struct {
	// WithSinks connects Redis and Postgres when configured.
	WithSinks bool
}

// Build validates cfg and wires every component.
func Build(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{}

	platformHTTP := bearer.NewClient(ctx, cfg.Platform.APIToken, &http.Client{Timeout: cfg.Platform.Timeout})
	a.Platform = platform.NewClient(platformHTTP, cfg.Platform.BaseURL)

	fetcher := thread.NewFetcher(a.Platform, thread.FetcherConfig{
		PageSize:  cfg.Platform.PageSize,
		MaxPages:  cfg.Platform.MaxPages,
		PageDelay: cfg.Platform.PageDelay,
	})

	gen, err := NewGenerator(ctx, cfg)
	if err != nil {
		return nil, err
	}

	router, err := NewRouter(cfg)
	if err != nil {
		return nil, err
	}

	var sinks []pipeline.Sink
	if opts.WithSinks {
		if sinks, err = a.connectSinks(ctx, cfg); err != nil {
			a.Close()
			return nil, err
		}
	}

	a.Pipeline = pipeline.New(pipeline.Config{
		Conversations: a.Platform,
		Fetcher:       fetcher,
		Router:        router,
		Composer:      compose.New(cfg.Generation.Model, cfg.Generation.Instructions, cfg.Generation.VectorStoreID),
		Generator:     gen,
		Publisher:     publish.NewPublisher(a.Platform, cfg.Organization.Sender),
		Targets:       thread.TargetPolicy{InternalDomains: cfg.Organization.InternalDomains},
		Reply: reply.Options{
			OrgDomain:        cfg.Organization.Domain,
			CTATemplate:      cfg.Reply.CTATemplate,
			Signature:        cfg.Reply.Signature,
			SignatureMarkers: cfg.Reply.SignatureMarkers,
			GreetingFallback: cfg.Reply.GreetingFallback,
			Structure:        cfg.Reply.Structure,
		},
		MaxChars:        cfg.Thread.MaxChars,
		GenerateTimeout: cfg.Generation.Timeout,
		Sinks:           sinks,
	})
	return a, nil
}

// NewRouter builds the CTA router from the routing section. Without custom
// rules the built-in keyword table is used.
func NewRouter(cfg *config.Config) (*route.Router, error) {
	rules, err := cfg.RoutingRules()
	if err != nil {
		return nil, err
	}
	paths, err := cfg.RoutingPaths()
	if err != nil {
		return nil, err
	}
	var classifier route.Classifier
	if rules != nil {
		classifier = route.NewKeywordClassifier(rules)
	}
	return route.NewRouter(route.RouterConfig{
		Classifier: classifier,
		Website:    cfg.Routing.Website,
		Paths:      paths,
		UTM:        cfg.Routing.UTM,
	}), nil
}

// NewGenerator builds the configured generation backend.
func NewGenerator(ctx context.Context, cfg *config.Config) (generate.Generator, error) {
	base := &http.Client{Timeout: cfg.Generation.Timeout}
	httpClient := base
	if cfg.Generation.Mode != generate.ModeChat {
		httpClient = bearer.NewClient(ctx, cfg.Generation.APIKey, base)
	}
	gen, err := generate.New(generate.Config{
		Mode:         cfg.Generation.Mode,
		BaseURL:      cfg.Generation.BaseURL,
		APIKey:       cfg.Generation.APIKey,
		AssistantID:  cfg.Generation.AssistantID,
		HTTPClient:   httpClient,
		PollAttempts: cfg.Generation.PollAttempts,
		PollInterval: cfg.Generation.PollInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("build generator: %w", err)
	}
	if cfg.Generation.BreakerFailures > 0 {
		gen = generate.NewBreaker(gen, generate.BreakerConfig{
			ConsecutiveFailures: cfg.Generation.BreakerFailures,
			Cooldown:            cfg.Generation.BreakerCooldown,
		})
	}
	return gen, nil
}

func (a *App) connectSinks(ctx context.Context, cfg *config.Config) ([]pipeline.Sink, error) {
	var sinks []pipeline.Sink

	if cfg.Redis.URL != "" {
		opt, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		a.rdb = redis.NewClient(opt)
		a.Queue = queue.NewPublisher(a.rdb, cfg.Redis.Queue)
		if err := a.Queue.Ping(ctx); err != nil {
			return nil, fmt.Errorf("connect to Redis: %w", err)
		}
		slog.Info("connected to Redis", "queue", cfg.Redis.Queue)
		sinks = append(sinks, a.Queue)
	}

	if cfg.Database.URL != "" {
		store, err := a.connectLedger(ctx, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, store)
	}

	return sinks, nil
}

func (a *App) connectLedger(ctx context.Context, url string) (*ledger.Store, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create Postgres pool: %w", err)
	}
	a.pgPool = pool
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("connect to PostgreSQL: %w", err)
	}
	slog.Info("connected to PostgreSQL")

	store, err := ledger.NewStore(ctx, pool)
	if err != nil {
		return nil, err
	}
	a.Ledger = store
	return store, nil
}

// OpenLedger connects only the run ledger, for read-side tooling.
func OpenLedger(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not configured")
	}
	a := &App{}
	if _, err := a.connectLedger(ctx, cfg.Database.URL); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// HealthChecks returns a check per connected dependency.
func (a *App) HealthChecks() map[string]webhook.HealthCheck {
	checks := map[string]webhook.HealthCheck{}
	if a.Queue != nil {
		checks["redis"] = a.Queue.Ping
	}
	if a.pgPool != nil {
		checks["postgres"] = a.pgPool.Ping
	}
	return checks
}

// Close releases connections.
func (a *App) Close() {
	if a.rdb != nil {
		a.rdb.Close()
	}
	if a.pgPool != nil {
		a.pgPool.Close()
	}
}
