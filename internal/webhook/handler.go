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

// Package webhook handles inbound conversation events from the platform.
// Each POST names a conversation; the handler drafts a reply for it
// synchronously and answers with the outcome.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/bcem/drafter/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// SignatureHeader carries the HMAC-SHA256 of the raw body as "sha256=<hex>".
const SignatureHeader = "X-Hook-Signature"

// maxBodyBytes bounds the accepted payload.
const maxBodyBytes = 1 << 20

// Runner drafts a reply for one conversation.
type Runner interface {
	Run(ctx context.Context, conversationID string) (*pipeline.Result, error)
}

// Event is the part of the platform payload the handler reads. Either
// conversation.id or conversation_id identifies the conversation.
type Event struct {
	Conversation struct {
		ID string `json:"id"`
	} `json:"conversation"`
	ConversationID string `json:"conversation_id"`
}

// ID returns the conversation id, preferring the nested form.
func (e Event) ID() string {
	if id := strings.TrimSpace(e.Conversation.ID); id != "" {
		return id
	}
	return strings.TrimSpace(e.ConversationID)
}

// Response is the success body.
type Response struct {
	DraftID        string `json:"draft_id"`
	ConversationID string `json:"conversation_id"`
	Category       string `json:"category"`
	CTAURL         string `json:"cta_url"`
	Grounded       bool   `json:"grounded"`
	Messages       int    `json:"messages"`
}

type errorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
}

// Handler processes inbound conversation events.
type Handler struct {
	runner  Runner
	secret  []byte
	timeout time.Duration
}

// NewHandler creates an event handler. A non-empty secret enables signature
// checks. timeout bounds each invocation; zero means unbounded.
func NewHandler(runner Runner, secret string, timeout time.Duration) *Handler {
	h := &Handler{runner: runner, timeout: timeout}
	if secret != "" {
		h.secret = []byte(secret)
	}
	return h
}

// ServeHTTP handles webhook requests.
//
//   - Non-POST requests (platform probes) get 200 "ok".
//   - A bad signature gets 401, a payload without a conversation id 400.
//   - A failed invocation gets 500 with the error message.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
		return
	}

	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.New().String()
	}
	w.Header().Set("X-Request-ID", requestID)
	log := slog.With("request_id", requestID)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		log.Error("failed to read webhook body", "error", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unreadable body"})
		return
	}

	if h.secret != nil && !h.validSignature(body, r.Header.Get(SignatureHeader)) {
		log.Warn("webhook signature mismatch", "remote", r.RemoteAddr)
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid signature"})
		return
	}

	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		log.Info("webhook body not valid JSON", "body_len", len(body))
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload"})
		return
	}

	conversationID := ev.ID()
	if conversationID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing conversation id"})
		return
	}
	log = log.With("conversation_id", conversationID)
	log.Info("processing conversation event")

	// The draft is created even if the caller hangs up.
	ctx := context.WithoutCancel(r.Context())
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := h.runner.Run(ctx, conversationID)
	if err != nil {
		resp := errorResponse{Error: err.Error()}
		var se *pipeline.StageError
		if errors.As(err, &se) {
			resp.Stage = se.Stage
		}
		log.Error("reply drafting failed", "stage", resp.Stage, "error", err)
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}

	log.Info("conversation event handled",
		"draft_id", res.DraftID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	writeJSON(w, http.StatusOK, Response{
		DraftID:        res.DraftID,
		ConversationID: conversationID,
		Category:       string(res.Decision.Category),
		CTAURL:         res.Decision.URL,
		Grounded:       res.Grounded,
		Messages:       res.MessageCount,
	})
}

// validSignature checks "sha256=<hex>" against the HMAC of body.
func (h *Handler) validSignature(body []byte, header string) bool {
	got, ok := strings.CutPrefix(strings.TrimSpace(header), "sha256=")
	if !ok {
		return false
	}
	sig, err := hex.DecodeString(got)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, h.secret)
	mac.Write(body)
	return hmac.Equal(sig, mac.Sum(nil))
}

// Sign returns the signature header value for body. Useful for clients and
// tests.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write webhook response", "error", err)
	}
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Checks       map[string]HealthCheck
}

// NewMux routes /webhook (any method) to the handler and GET /health to the
// health checks. A panic while drafting becomes a 500.
func NewMux(handler http.Handler, checks map[string]HealthCheck) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)

	router.Handle("/webhook", handler)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				slog.Warn("health check failed", "dependency", name, "error", err)
				http.Error(w, name+" unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})
	return router
}

// Serve starts the webhook HTTP server. It binds the port immediately and
// signals readiness via the returned channel before accepting connections.
// The server shuts down gracefully when ctx is cancelled; done is closed
// once in-flight requests have drained.
func Serve(ctx context.Context, cfg ServerConfig, handler http.Handler) (ready, done <-chan struct{}, err error) {
	server := &http.Server{
		Handler:      NewMux(handler, cfg.Checks),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return nil, nil, fmt.Errorf("bind webhook port %d: %w", cfg.Port, err)
	}

	readyCh := make(chan struct{})
	doneCh := make(chan struct{})

	go func() {
		defer close(doneCh)
		<-ctx.Done()
		slog.Info("webhook server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("webhook server shutdown error", "error", err)
		}
	}()

	go func() {
		slog.Info("webhook server listening", "port", cfg.Port)
		close(readyCh)
		if err := server.Serve(ln); err != http.ErrServerClosed {
			slog.Error("webhook server error", "error", err)
		}
	}()

	return readyCh, doneCh, nil
}
