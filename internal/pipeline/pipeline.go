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

// Package pipeline runs one reply-drafting invocation end to end: read the
// conversation, fetch and flatten the thread, route, generate, normalise
// and publish. Nothing is kept between invocations.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bcem/drafter/internal/compose"
	"github.com/bcem/drafter/internal/generate"
	"github.com/bcem/drafter/internal/models"
	"github.com/bcem/drafter/internal/reply"
	"github.com/bcem/drafter/internal/route"
	"github.com/bcem/drafter/internal/thread"
)

// Stages reported in StageError.
const (
	StageConversation = "conversation"
	StageFetch        = "fetch"
	StageGenerate     = "generate"
	StagePublish      = "publish"
)

// ErrNoMessages is returned when a conversation has no messages to reply to.
var ErrNoMessages = errors.New("conversation has no messages")

// StageError tags a failure with the stage that produced it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// ConversationReader reads conversation metadata.
type ConversationReader interface {
	GetConversation(ctx context.Context, conversationID string) (*models.Conversation, error)
}

// ThreadFetcher returns a conversation's messages, oldest first.
type ThreadFetcher interface {
	Fetch(ctx context.Context, conversationID string) ([]models.Message, error)
}

// DraftPublisher creates the reply draft.
type DraftPublisher interface {
	Publish(ctx context.Context, conversationID, subject, body string, target models.Address) (string, error)
}

// Sink receives an event after a draft has been created. Sinks are best
// effort.
type Sink interface {
	Record(ctx context.Context, ev models.DraftEvent) error
}

// Config wires a Pipeline.
type Config struct {
	Conversations ConversationReader
	Fetcher       ThreadFetcher
	Router        *route.Router
	Composer      *compose.Composer
	Generator     generate.Generator
	Publisher     DraftPublisher

	Targets  thread.TargetPolicy
	Reply    reply.Options
	MaxChars int

	// GenerateTimeout bounds the generation call. Zero means no extra bound.
	GenerateTimeout time.Duration

	Sinks []Sink
}

// Pipeline is safe for concurrent use; each call works on its own data.
type Pipeline struct {
	cfg Config
}

// New creates a pipeline.
func New(cfg Config) *Pipeline {
	if cfg.Router == nil {
		cfg.Router = route.NewRouter(route.RouterConfig{})
	}
	if cfg.Composer == nil {
		cfg.Composer = compose.New("", "", "")
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = thread.DefaultMaxChars
	}
	return &Pipeline{cfg: cfg}
}

// Draft is a fully prepared reply that has not been published yet.
type Draft struct {
	ConversationID string
	Subject        string
	Body           string
	Target         models.Address
	HasTarget      bool
	Decision       route.Decision
	Grounded       bool
	Model          string
	MessageCount   int
}

// Result is the outcome of a published invocation.
type Result struct {
	Draft
	DraftID string
}

// Prepare runs every stage except publishing.
func (p *Pipeline) Prepare(ctx context.Context, conversationID string) (*Draft, error) {
	conv, err := p.cfg.Conversations.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, &StageError{Stage: StageConversation, Err: err}
	}

	msgs, err := p.cfg.Fetcher.Fetch(ctx, conversationID)
	if err != nil {
		return nil, &StageError{Stage: StageFetch, Err: err}
	}
	if len(msgs) == 0 {
		return nil, &StageError{Stage: StageFetch, Err: ErrNoMessages}
	}
	conv.Messages = msgs

	subject := conv.Subject
	if subject == "" {
		subject = msgs[len(msgs)-1].Subject
	}
	conv.Subject = subject

	text := thread.Render(msgs, p.cfg.MaxChars)
	target, hasTarget := p.cfg.Targets.ReplyTarget(msgs)
	decision := p.cfg.Router.Route(text, subject)

	slog.Info("thread routed",
		"conversation_id", conversationID,
		"messages", len(msgs),
		"thread_chars", len(text),
		"category", decision.Category,
		"has_target", hasTarget,
	)

	req := p.cfg.Composer.Build(compose.Input{
		Conversation: *conv,
		ThreadText:   text,
		Target:       target,
		HasTarget:    hasTarget,
		Decision:     decision,
	})

	genCtx := ctx
	if p.cfg.GenerateTimeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, p.cfg.GenerateTimeout)
		defer cancel()
	}
	gen, err := p.cfg.Generator.Generate(genCtx, req)
	if err != nil {
		return nil, &StageError{Stage: StageGenerate, Err: err}
	}

	opts := p.cfg.Reply
	opts.CTAURL = decision.URL
	if !hasTarget {
		target = models.Address{}
	}
	body := reply.Normalize(gen.Text, target, opts)

	return &Draft{
		ConversationID: conversationID,
		Subject:        subject,
		Body:           body,
		Target:         target,
		HasTarget:      hasTarget,
		Decision:       decision,
		Grounded:       gen.Grounded,
		Model:          gen.Model,
		MessageCount:   len(msgs),
	}, nil
}

// Run prepares and publishes a draft, then notifies the sinks.
func (p *Pipeline) Run(ctx context.Context, conversationID string) (*Result, error) {
	start := time.Now()

	d, err := p.Prepare(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	id, err := p.cfg.Publisher.Publish(ctx, d.ConversationID, d.Subject, d.Body, d.Target)
	if err != nil {
		return nil, &StageError{Stage: StagePublish, Err: err}
	}

	res := &Result{Draft: *d, DraftID: id}
	p.notify(ctx, res, time.Since(start))

	slog.Info("reply draft published",
		"conversation_id", conversationID,
		"draft_id", id,
		"category", d.Decision.Category,
		"grounded", d.Grounded,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (p *Pipeline) notify(ctx context.Context, res *Result, elapsed time.Duration) {
	if len(p.cfg.Sinks) == 0 {
		return
	}
	ev := models.DraftEvent{
		ConversationID: res.ConversationID,
		DraftID:        res.DraftID,
		Subject:        res.Subject,
		Category:       string(res.Decision.Category),
		CTAURL:         res.Decision.URL,
		Grounded:       res.Grounded,
		Model:          res.Model,
		MessageCount:   res.MessageCount,
		Recipient:      res.Target.Address,
		CreatedAt:      time.Now().UTC(),
		DurationMS:     elapsed.Milliseconds(),
	}
	for _, s := range p.cfg.Sinks {
		if err := s.Record(ctx, ev); err != nil {
			slog.Warn("draft event sink failed",
				"conversation_id", res.ConversationID,
				"draft_id", res.DraftID,
				"sink", fmt.Sprintf("%T", s),
				"error", err,
			)
		}
	}
}
