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

// Package thread reconstructs a conversation thread from the platform's
// list-then-fetch API and flattens it into the plain-text form handed to
// the generation service.
package thread

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/bcem/drafter/internal/models"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultPageSize is the number of summaries requested per list call.
	DefaultPageSize = 10

	// DefaultMaxPages caps a thread at DefaultMaxPages*DefaultPageSize messages.
	DefaultMaxPages = 6

	// DefaultPageDelay spaces sequential list calls to stay under rate limits.
	DefaultPageDelay = 250 * time.Millisecond
)

// ErrEmptyConversationID is returned when Fetch is called without an ID.
var ErrEmptyConversationID = errors.New("conversation id is empty")

// MessageSource is the subset of the platform API the fetcher needs.
// Implemented by platform.Client.
type MessageSource interface {
	ListMessages(ctx context.Context, conversationID string, limit int, until time.Time) ([]models.Message, error)
	GetMessage(ctx context.Context, messageID string) (*models.Message, error)
}

// Fetcher pages through a conversation and hydrates every listed message.
type Fetcher struct {
	source    MessageSource
	pageSize  int
	maxPages  int
	pageDelay time.Duration
}

// FetcherConfig holds the paging parameters. Zero values take defaults; a
// negative PageDelay disables the delay.
type FetcherConfig struct {
	PageSize  int
	MaxPages  int
	PageDelay time.Duration
}

// NewFetcher creates a thread fetcher over the given message source.
func NewFetcher(source MessageSource, cfg FetcherConfig) *Fetcher {
	f := &Fetcher{
		source:    source,
		pageSize:  cfg.PageSize,
		maxPages:  cfg.MaxPages,
		pageDelay: cfg.PageDelay,
	}
	if f.pageSize <= 0 {
		f.pageSize = DefaultPageSize
	}
	if f.maxPages <= 0 {
		f.maxPages = DefaultMaxPages
	}
	if f.pageDelay == 0 {
		f.pageDelay = DefaultPageDelay
	}
	return f
}

// Fetch returns every message of the conversation sorted oldest first.
// Any list or hydration failure aborts the whole fetch.
func (f *Fetcher) Fetch(ctx context.Context, conversationID string) ([]models.Message, error) {
	if conversationID == "" {
		return nil, ErrEmptyConversationID
	}

	var (
		all   []models.Message
		seen  = make(map[string]bool)
		until time.Time
		pages int
	)

	for pages < f.maxPages {
		if pages > 0 && f.pageDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(f.pageDelay):
			}
		}

		stubs, err := f.source.ListMessages(ctx, conversationID, f.pageSize, until)
		if err != nil {
			return nil, fmt.Errorf("list messages page %d: %w", pages, err)
		}
		pages++

		if len(stubs) == 0 {
			break
		}

		hydrated, err := f.hydrate(ctx, stubs)
		if err != nil {
			return nil, fmt.Errorf("hydrate page %d: %w", pages-1, err)
		}

		for _, m := range hydrated {
			if seen[m.ID] {
				continue
			}
			seen[m.ID] = true
			all = append(all, m)
		}

		slog.Debug("thread page fetched",
			"conversation_id", conversationID,
			"page", pages,
			"messages", len(stubs),
		)

		if len(stubs) < f.pageSize {
			break
		}

		oldest := oldestDelivered(hydrated)
		if oldest.IsZero() || (!until.IsZero() && !oldest.Before(until)) {
			slog.Warn("thread cursor did not advance, stopping",
				"conversation_id", conversationID,
				"page", pages,
			)
			break
		}
		until = oldest
	}

	SortByCreated(all)

	slog.Info("thread fetched",
		"conversation_id", conversationID,
		"messages", len(all),
		"pages", pages,
	)

	return all, nil
}

// hydrate fetches every stub concurrently. The result keeps the stub order.
func (f *Fetcher) hydrate(ctx context.Context, stubs []models.Message) ([]models.Message, error) {
	out := make([]models.Message, len(stubs))

	g, gCtx := errgroup.WithContext(ctx)
	for i, stub := range stubs {
		g.Go(func() error {
			msg, err := f.source.GetMessage(gCtx, stub.ID)
			if err != nil {
				return fmt.Errorf("get message %s: %w", stub.ID, err)
			}
			if msg.ConversationID == "" {
				msg.ConversationID = stub.ConversationID
			}
			if msg.DeliveredAt.IsZero() {
				msg.DeliveredAt = stub.DeliveredAt
			}
			if msg.CreatedAt.IsZero() {
				msg.CreatedAt = stub.CreatedAt
			}
			out[i] = *msg
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func oldestDelivered(msgs []models.Message) time.Time {
	var oldest time.Time
	for _, m := range msgs {
		if m.DeliveredAt.IsZero() {
			continue
		}
		if oldest.IsZero() || m.DeliveredAt.Before(oldest) {
			oldest = m.DeliveredAt
		}
	}
	return oldest
}

// SortByCreated orders messages oldest first by creation time, falling back
// to delivery time for messages without one. The sort is stable.
func SortByCreated(msgs []models.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return sortKey(msgs[i]).Before(sortKey(msgs[j]))
	})
}

func sortKey(m models.Message) time.Time {
	if !m.CreatedAt.IsZero() {
		return m.CreatedAt
	}
	return m.DeliveredAt
}
