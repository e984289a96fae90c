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
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bcem/drafter/internal/openaiapi"
)

// Responses generates through POST /responses. When a vector store is set
// the request carries a file_search tool bound to it.
type Responses struct {
	api *openaiapi.Client
}

// NewResponses creates a responses-API generator.
func NewResponses(httpClient *http.Client, baseURL string) *Responses {
	return &Responses{api: openaiapi.NewClient(httpClient, baseURL, nil)}
}

type responsesTool struct {
	Type           string   `json:"type"`
	VectorStoreIDs []string `json:"vector_store_ids,omitempty"`
}

type responsesRequest struct {
	Model        string            `json:"model"`
	Instructions string            `json:"instructions,omitempty"`
	Input        string            `json:"input"`
	Tools        []responsesTool   `json:"tools,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

type responsesContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type responsesOutput struct {
	Type    string             `json:"type"`
	Role    string             `json:"role"`
	Content []responsesContent `json:"content"`
}

type responsesResponse struct {
	ID     string            `json:"id"`
	Model  string            `json:"model"`
	Status string            `json:"status"`
	Output []responsesOutput `json:"output"`
}

// Generate sends one blocking request. There is no client-side retry.
func (g *Responses) Generate(ctx context.Context, req Request) (*Result, error) {
	body := responsesRequest{
		Model:        req.Model,
		Instructions: req.Instructions,
		Input:        req.Input,
		Metadata:     req.Metadata,
	}
	if req.VectorStoreID != "" {
		body.Tools = []responsesTool{{Type: "file_search", VectorStoreIDs: []string{req.VectorStoreID}}}
	}

	var resp responsesResponse
	if err := g.api.Do(ctx, "create response", http.MethodPost, "/responses", body, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "" && resp.Status != "completed" {
		return nil, fmt.Errorf("response %s finished with status %q", resp.ID, resp.Status)
	}

	var (
		parts    []string
		grounded bool
	)
	for _, item := range resp.Output {
		switch item.Type {
		case "file_search_call":
			grounded = true
		case "message":
			for _, c := range item.Content {
				if c.Type == "output_text" && c.Text != "" {
					parts = append(parts, c.Text)
				}
			}
		}
	}

	text := strings.TrimSpace(strings.Join(parts, "\n"))
	if text == "" {
		return nil, ErrEmptyOutput
	}

	slog.Info("draft generated",
		"mode", ModeResponses,
		"response_id", resp.ID,
		"model", resp.Model,
		"grounded", grounded,
	)
	return &Result{Text: text, Grounded: grounded, Model: resp.Model}, nil
}
