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

// Package config loads configuration from config.yaml and environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bcem/drafter/internal/generate"
	"github.com/bcem/drafter/internal/models"
	"github.com/bcem/drafter/internal/route"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is read when CONFIG_PATH is unset. It may be absent.
const DefaultConfigPath = "config.yaml"

// ServerConfig controls the webhook listener.
type ServerConfig struct {
	Port          int           `yaml:"port"`
	WebhookSecret string        `yaml:"webhook_secret"`
	ReadTimeout   time.Duration `yaml:"read_timeout"`
	WriteTimeout  time.Duration `yaml:"write_timeout"`

	// RequestTimeout bounds one webhook invocation. It must stay below
	// WriteTimeout so the outcome can still be written back.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// PlatformConfig holds the conversation platform API settings.
type PlatformConfig struct {
	BaseURL   string        `yaml:"base_url"`
	APIToken  string        `yaml:"api_token"`
	PageSize  int           `yaml:"page_size"`
	MaxPages  int           `yaml:"max_pages"`
	PageDelay time.Duration `yaml:"page_delay"`
	Timeout   time.Duration `yaml:"timeout"`
}

// GenerationConfig holds the language-model service settings.
type GenerationConfig struct {
	Mode          string        `yaml:"mode"`
	BaseURL       string        `yaml:"base_url"`
	APIKey        string        `yaml:"api_key"`
	Model         string        `yaml:"model"`
	AssistantID   string        `yaml:"assistant_id"`
	VectorStoreID string        `yaml:"vector_store_id"`
	Instructions  string        `yaml:"instructions"`
	Timeout       time.Duration `yaml:"timeout"`
	PollAttempts  int           `yaml:"poll_attempts"`
	PollInterval  time.Duration `yaml:"poll_interval"`

	// BreakerFailures consecutive server-side failures open the circuit.
	// A negative value disables the breaker.
	BreakerFailures int           `yaml:"breaker_failures"`
	BreakerCooldown time.Duration `yaml:"breaker_cooldown"`
}

// ThreadConfig controls thread flattening.
type ThreadConfig struct {
	MaxChars int `yaml:"max_chars"`
}

// OrganizationConfig describes the operating organisation.
type OrganizationConfig struct {
	Domain          string         `yaml:"domain"`
	InternalDomains []string       `yaml:"internal_domains"`
	Sender          models.Address `yaml:"sender"`
}

// RoutingConfig is the CTA routing policy. Empty rules keep the built-in
// multilingual keyword tables.
type RoutingConfig struct {
	Website string            `yaml:"website"`
	UTM     string            `yaml:"utm"`
	Paths   map[string]string `yaml:"paths"`
	Rules   []route.RuleSpec  `yaml:"rules"`
}

// ReplyConfig is the reply post-processing policy.
type ReplyConfig struct {
	CTATemplate      string   `yaml:"cta_template"`
	Signature        []string `yaml:"signature"`
	SignatureMarkers []string `yaml:"signature_markers"`
	GreetingFallback string   `yaml:"greeting_fallback"`
	Structure        bool     `yaml:"structure"`
}

// RedisConfig enables the draft event queue when URL is set.
type RedisConfig struct {
	URL   string `yaml:"url"`
	Queue string `yaml:"queue"`
}

// DatabaseConfig enables the run ledger when URL is set.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// Config holds all configuration for the drafter service.
type Config struct {
	LogLevel     string             `yaml:"log_level"`
	Server       ServerConfig       `yaml:"server"`
	Platform     PlatformConfig     `yaml:"platform"`
	Generation   GenerationConfig   `yaml:"generation"`
	Thread       ThreadConfig       `yaml:"thread"`
	Organization OrganizationConfig `yaml:"organization"`
	Routing      RoutingConfig      `yaml:"routing"`
	Reply        ReplyConfig        `yaml:"reply"`
	Redis        RedisConfig        `yaml:"redis"`
	Database     DatabaseConfig     `yaml:"database"`
}

// Load reads configuration from CONFIG_PATH (default config.yaml, with
// ${VAR} expansion), applies environment overrides and defaults. It does
// not validate; callers pick the checks they need.
func Load() (*Config, error) {
	configPath, explicit := os.LookupEnv("CONFIG_PATH")
	if !explicit || configPath == "" {
		configPath, explicit = DefaultConfigPath, false
	}

	cfg := &Config{}

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		// Expand ${VAR} references in the YAML
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parse config YAML: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		// Environment-only deployment.
	default:
		return nil, fmt.Errorf("read config file %s: %w", configPath, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.LogLevel = envOrDefault("LOG_LEVEL", c.LogLevel)
	c.Server.Port = envOrDefaultInt("PORT", c.Server.Port)
	c.Server.WebhookSecret = envOrDefault("WEBHOOK_SECRET", c.Server.WebhookSecret)
	c.Platform.APIToken = envOrDefault("MISSIVE_API_TOKEN", c.Platform.APIToken)
	c.Generation.APIKey = envOrDefault("OPENAI_API_KEY", c.Generation.APIKey)
	c.Generation.VectorStoreID = envOrDefault("VECTOR_STORE_ID", c.Generation.VectorStoreID)
	c.Generation.Model = envOrDefault("OPENAI_MODEL", c.Generation.Model)
	c.Generation.AssistantID = envOrDefault("ASSISTANT_ID", c.Generation.AssistantID)
	c.Generation.Instructions = envOrDefault("DEFAULT_INSTRUCTIONS", c.Generation.Instructions)
	c.Generation.Mode = envOrDefault("GENERATION_MODE", c.Generation.Mode)
	c.Redis.URL = envOrDefault("REDIS_URL", c.Redis.URL)
	c.Database.URL = envOrDefault("DATABASE_URL", c.Database.URL)
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 150 * time.Second
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = c.Server.WriteTimeout - c.Server.WriteTimeout/10
	}
	if c.Platform.PageSize == 0 {
		c.Platform.PageSize = 10
	}
	if c.Platform.MaxPages == 0 {
		c.Platform.MaxPages = 6
	}
	if c.Platform.PageDelay == 0 {
		c.Platform.PageDelay = 250 * time.Millisecond
	}
	if c.Platform.Timeout == 0 {
		c.Platform.Timeout = 30 * time.Second
	}
	c.Generation.Mode = strings.ToLower(firstNonEmpty(c.Generation.Mode, generate.ModeResponses))
	c.Generation.Model = firstNonEmpty(c.Generation.Model, "gpt-4o-mini")
	if c.Generation.Timeout == 0 {
		c.Generation.Timeout = 120 * time.Second
	}
	if c.Generation.PollAttempts == 0 {
		c.Generation.PollAttempts = generate.DefaultPollAttempts
	}
	if c.Generation.PollInterval == 0 {
		c.Generation.PollInterval = generate.DefaultPollInterval
	}
	if c.Generation.BreakerFailures == 0 {
		c.Generation.BreakerFailures = generate.DefaultBreakerFailures
	}
	if c.Generation.BreakerCooldown == 0 {
		c.Generation.BreakerCooldown = generate.DefaultBreakerCooldown
	}
	if c.Thread.MaxChars == 0 {
		c.Thread.MaxChars = 12000
	}
	if c.Organization.Domain == "" {
		c.Organization.Domain = c.Organization.Sender.Domain()
	}
	if len(c.Organization.InternalDomains) == 0 && c.Organization.Domain != "" {
		c.Organization.InternalDomains = []string{c.Organization.Domain}
	}
	c.Redis.Queue = firstNonEmpty(c.Redis.Queue, "reply_drafts")
}

// Validate checks everything the webhook pipeline needs.
func (c *Config) Validate() error {
	var problems []string
	if c.Platform.APIToken == "" {
		problems = append(problems, "platform API token (MISSIVE_API_TOKEN) is required")
	}
	if c.Organization.Sender.Address == "" {
		problems = append(problems, "organization.sender.address is required")
	}
	if err := c.ValidateGeneration(); err != nil {
		problems = append(problems, err.Error())
	}
	if c.Server.RequestTimeout <= 0 || c.Server.RequestTimeout >= c.Server.WriteTimeout {
		problems = append(problems, fmt.Sprintf("server.request_timeout (%s) must be positive and below server.write_timeout (%s)",
			c.Server.RequestTimeout, c.Server.WriteTimeout))
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := c.RoutingRules(); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := c.RoutingPaths(); err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ValidateGeneration checks only the generation service settings.
func (c *Config) ValidateGeneration() error {
	if c.Generation.APIKey == "" {
		return errors.New("generation API key (OPENAI_API_KEY) is required")
	}
	switch c.Generation.Mode {
	case generate.ModeResponses, generate.ModeChat:
	case generate.ModeAssistants:
		if c.Generation.AssistantID == "" {
			return errors.New("generation.assistant_id (ASSISTANT_ID) is required in assistants mode")
		}
	default:
		return fmt.Errorf("unknown generation mode %q", c.Generation.Mode)
	}
	return nil
}

// RoutingRules compiles configured rules, or returns nil to keep the
// built-in tables.
func (c *Config) RoutingRules() ([]route.Rule, error) {
	if len(c.Routing.Rules) == 0 {
		return nil, nil
	}
	return route.CompileRules(c.Routing.Rules)
}

// RoutingPaths converts configured path overrides to route categories.
func (c *Config) RoutingPaths() (map[route.Category]string, error) {
	out := make(map[route.Category]string, len(c.Routing.Paths))
	for k, v := range c.Routing.Paths {
		cat := route.Category(k)
		if !cat.Valid() {
			return nil, fmt.Errorf("routing.paths: unknown category %q", k)
		}
		out[cat] = v
	}
	return out, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
