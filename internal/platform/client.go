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

// Package platform is a client for the conversation platform REST API:
// listing a conversation's messages, hydrating single messages, reading
// conversation metadata and creating reply drafts.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bcem/drafter/internal/models"
)

// DefaultBaseURL is the root of the platform's public REST API.
const DefaultBaseURL = "https://public.missiveapp.com/v1"

// StatusError is returned when the platform answers with a non-2xx status.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned HTTP %d", e.Op, e.StatusCode)
}

// Client talks to the platform API. The httpClient must already carry the
// bearer credential (see bearer.NewClient).
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a platform API client.
func NewClient(httpClient *http.Client, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
	}
}

// ListMessages returns one page of message summaries for a conversation,
// newest first. A non-zero until restricts the page to messages delivered
// at or before that instant.
func (c *Client) ListMessages(ctx context.Context, conversationID string, limit int, until time.Time) ([]models.Message, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	if !until.IsZero() {
		params.Set("until", strconv.FormatInt(until.Unix(), 10))
	}
	u := fmt.Sprintf("%s/conversations/%s/messages?%s", c.baseURL, url.PathEscape(conversationID), params.Encode())

	var page listMessagesResponse
	if err := c.do(ctx, "list messages", http.MethodGet, u, nil, &page); err != nil {
		return nil, err
	}

	out := make([]models.Message, 0, len(page.Messages))
	for _, m := range page.Messages {
		out = append(out, m.toModel(conversationID))
	}
	return out, nil
}

// GetMessage hydrates a single message, including its body.
func (c *Client) GetMessage(ctx context.Context, messageID string) (*models.Message, error) {
	u := fmt.Sprintf("%s/messages/%s", c.baseURL, url.PathEscape(messageID))

	var resp getMessageResponse
	if err := c.do(ctx, "get message "+messageID, http.MethodGet, u, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Messages.ID == "" {
		return nil, fmt.Errorf("get message %s: empty response", messageID)
	}

	msg := resp.Messages.toModel(resp.Messages.Conversation.ID)
	return &msg, nil
}

// GetConversation reads conversation metadata (subject). Messages are not
// populated.
func (c *Client) GetConversation(ctx context.Context, conversationID string) (*models.Conversation, error) {
	u := fmt.Sprintf("%s/conversations/%s", c.baseURL, url.PathEscape(conversationID))

	var resp getConversationResponse
	if err := c.do(ctx, "get conversation", http.MethodGet, u, nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Conversations) == 0 {
		return nil, fmt.Errorf("get conversation %s: not found in response", conversationID)
	}

	conv := resp.Conversations[0]
	subject := conv.Subject
	if subject == "" {
		subject = conv.LatestMessageSubject
	}
	return &models.Conversation{ID: conv.ID, Subject: subject}, nil
}

// CreateDraft submits a reply draft and returns the platform's draft ID.
func (c *Client) CreateDraft(ctx context.Context, d models.Draft) (string, error) {
	body, err := json.Marshal(newDraftRequest(d))
	if err != nil {
		return "", fmt.Errorf("marshal draft: %w", err)
	}

	u := c.baseURL + "/drafts"

	var resp createDraftResponse
	if err := c.do(ctx, "create draft", http.MethodPost, u, body, &resp); err != nil {
		return "", err
	}

	slog.Info("draft created on platform",
		"conversation_id", d.ConversationID,
		"draft_id", resp.Drafts.ID,
	)
	return resp.Drafts.ID, nil
}

// do performs a single request and decodes a JSON response into out.
// There are no retries.
func (c *Client) do(ctx context.Context, op, method, u string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		slog.Error("platform API error", "op", op, "status", resp.StatusCode, "body", string(raw))
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: string(raw)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}
