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

// Package generate asks the hosted language-model service for a reply draft.
// Three backends share the Generator interface: the responses API with a
// file_search tool, the assistants v2 thread/run flow, and plain chat
// completions.
package generate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Supported generation modes.
const (
	ModeResponses  = "responses"
	ModeAssistants = "assistants"
	ModeChat       = "chat"
)

// Request is everything one generation call needs.
type Request struct {
	Model         string
	Instructions  string
	Input         string
	VectorStoreID string
	Metadata      map[string]string
}

// Result is the raw model output. Grounded reports whether the service
// actually consulted the knowledge base while producing Text.
type Result struct {
	Text     string
	Grounded bool
	Model    string
}

// Generator produces a draft for a composed request.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Result, error)
}

// ErrEmptyOutput is returned when the service answers without any text.
var ErrEmptyOutput = errors.New("generation returned no text")

// Config selects and parameterises a backend.
type Config struct {
	Mode        string
	BaseURL     string
	APIKey      string
	AssistantID string

	// HTTPClient must carry the API key as a bearer credential for the
	// responses and assistants backends. The chat backend authenticates
	// through go-openai with APIKey and uses HTTPClient only as transport.
	HTTPClient *http.Client

	PollAttempts int
	PollInterval time.Duration
}

// New builds the Generator for cfg.Mode. An empty mode means responses.
func New(cfg Config) (Generator, error) {
	switch cfg.Mode {
	case "", ModeResponses:
		return NewResponses(cfg.HTTPClient, cfg.BaseURL), nil
	case ModeAssistants:
		if cfg.AssistantID == "" {
			return nil, fmt.Errorf("assistants mode requires an assistant id")
		}
		return NewAssistants(cfg.HTTPClient, cfg.BaseURL, AssistantsConfig{
			AssistantID:  cfg.AssistantID,
			PollAttempts: cfg.PollAttempts,
			PollInterval: cfg.PollInterval,
		}), nil
	case ModeChat:
		return NewChat(cfg.APIKey, cfg.BaseURL, cfg.HTTPClient), nil
	default:
		return nil, fmt.Errorf("unknown generation mode %q", cfg.Mode)
	}
}
