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

package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bcem/drafter/internal/openaiapi"
)

// Assistants poll defaults.
const (
	DefaultPollAttempts = 30
	DefaultPollInterval = time.Second
)

// ErrRunIncomplete is returned when a run does not reach "completed"
// within the poll ceiling.
var ErrRunIncomplete = errors.New("assistant run did not complete")

// AssistantsConfig controls the assistants backend.
type AssistantsConfig struct {
	AssistantID  string
	PollAttempts int
	PollInterval time.Duration
}

// Assistants generates through the assistants v2 flow: create a thread
// holding the composed input, start a run, poll it, then read the reply.
type Assistants struct {
	api          *openaiapi.Client
	assistantID  string
	pollAttempts int
	pollInterval time.Duration
}

// NewAssistants creates an assistants-API generator.
func NewAssistants(httpClient *http.Client, baseURL string, cfg AssistantsConfig) *Assistants {
	attempts := cfg.PollAttempts
	if attempts <= 0 {
		attempts = DefaultPollAttempts
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Assistants{
		api:          openaiapi.NewClient(httpClient, baseURL, http.Header{"OpenAI-Beta": {"assistants=v2"}}),
		assistantID:  cfg.AssistantID,
		pollAttempts: attempts,
		pollInterval: interval,
	}
}

type threadMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type fileSearchResources struct {
	FileSearch struct {
		VectorStoreIDs []string `json:"vector_store_ids"`
	} `json:"file_search"`
}

type createThreadRequest struct {
	Messages      []threadMessage      `json:"messages"`
	ToolResources *fileSearchResources `json:"tool_resources,omitempty"`
	Metadata      map[string]string    `json:"metadata,omitempty"`
}

type createRunRequest struct {
	AssistantID            string `json:"assistant_id"`
	Model                  string `json:"model,omitempty"`
	AdditionalInstructions string `json:"additional_instructions,omitempty"`
}

type objectRef struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type messageList struct {
	Data []struct {
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text struct {
				Value       string `json:"value"`
				Annotations []struct {
					Type string `json:"type"`
				} `json:"annotations"`
			} `json:"text"`
		} `json:"content"`
	} `json:"data"`
}

// Generate runs the full thread/run/poll/messages cycle.
func (g *Assistants) Generate(ctx context.Context, req Request) (*Result, error) {
	threadReq := createThreadRequest{
		Messages: []threadMessage{{Role: "user", Content: req.Input}},
		Metadata: req.Metadata,
	}
	if req.VectorStoreID != "" {
		res := &fileSearchResources{}
		res.FileSearch.VectorStoreIDs = []string{req.VectorStoreID}
		threadReq.ToolResources = res
	}

	var thread objectRef
	if err := g.api.Do(ctx, "create thread", http.MethodPost, "/threads", threadReq, &thread); err != nil {
		return nil, err
	}

	var run objectRef
	runReq := createRunRequest{
		AssistantID:            g.assistantID,
		Model:                  req.Model,
		AdditionalInstructions: req.Instructions,
	}
	if err := g.api.Do(ctx, "create run", http.MethodPost, "/threads/"+url.PathEscape(thread.ID)+"/runs", runReq, &run); err != nil {
		return nil, err
	}

	if err := g.waitForRun(ctx, thread.ID, run); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("run_id", run.ID)
	params.Set("order", "desc")
	var msgs messageList
	if err := g.api.Do(ctx, "list thread messages", http.MethodGet,
		"/threads/"+url.PathEscape(thread.ID)+"/messages?"+params.Encode(), nil, &msgs); err != nil {
		return nil, err
	}

	var (
		parts    []string
		grounded bool
	)
	for _, m := range msgs.Data {
		if m.Role != "assistant" {
			continue
		}
		for _, c := range m.Content {
			if c.Type != "text" {
				continue
			}
			parts = append(parts, c.Text.Value)
			for _, a := range c.Text.Annotations {
				if a.Type == "file_citation" {
					grounded = true
				}
			}
		}
		// Newest assistant message only.
		break
	}

	text := strings.TrimSpace(strings.Join(parts, "\n"))
	if text == "" {
		return nil, ErrEmptyOutput
	}

	slog.Info("draft generated",
		"mode", ModeAssistants,
		"thread_id", thread.ID,
		"run_id", run.ID,
		"grounded", grounded,
	)
	return &Result{Text: text, Grounded: grounded, Model: req.Model}, nil
}

// waitForRun polls the run until it completes, fails, or the attempt
// ceiling is reached.
func (g *Assistants) waitForRun(ctx context.Context, threadID string, run objectRef) error {
	path := "/threads/" + url.PathEscape(threadID) + "/runs/" + url.PathEscape(run.ID)
	status := run.Status

	for attempt := 0; attempt < g.pollAttempts; attempt++ {
		switch status {
		case "completed":
			return nil
		case "failed", "cancelled", "expired", "incomplete", "requires_action":
			return fmt.Errorf("assistant run %s ended with status %q", run.ID, status)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(g.pollInterval):
		}

		var cur objectRef
		if err := g.api.Do(ctx, "get run", http.MethodGet, path, nil, &cur); err != nil {
			return err
		}
		status = cur.Status
		slog.Debug("assistant run polled", "run_id", run.ID, "attempt", attempt+1, "status", status)
	}

	if status == "completed" {
		return nil
	}
	return fmt.Errorf("%w: run %s still %q after %d polls", ErrRunIncomplete, run.ID, status, g.pollAttempts)
}
