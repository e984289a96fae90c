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

// Package queue publishes draft events to a Redis list so downstream
// consumers (reporting, QA review) can pick them up with BRPOP.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/bcem/drafter/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultQueue is the list draft events are pushed to.
const DefaultQueue = "reply_drafts"

// EventType identifies draft events on the wire.
const EventType = "draft.created"

// Pusher is the subset of the Redis client the publisher uses.
type Pusher interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// Publisher sends draft events to Redis.
type Publisher struct {
	rdb       Pusher
	queueName string
}

// NewPublisher creates a Redis publisher targeting the specified list.
func NewPublisher(rdb Pusher, queueName string) *Publisher {
	if queueName == "" {
		queueName = DefaultQueue
	}
	return &Publisher{
		rdb:       rdb,
		queueName: queueName,
	}
}

// envelope wraps an event for transport.
type envelope struct {
	ID          string            `json:"id"`
	Type        string            `json:"type"`
	PublishedAt time.Time         `json:"published_at"`
	Data        models.DraftEvent `json:"data"`
}

// Record serialises ev and pushes it onto the queue.
func (p *Publisher) Record(ctx context.Context, ev models.DraftEvent) error {
	msg := envelope{
		ID:          uuid.New().String(),
		Type:        EventType,
		PublishedAt: time.Now().UTC(),
		Data:        ev,
	}

	msgJSON, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal draft event: %w", err)
	}

	if err := p.rdb.LPush(ctx, p.queueName, string(msgJSON)).Err(); err != nil {
		return fmt.Errorf("redis LPUSH: %w", err)
	}

	slog.Info("published draft event to queue",
		"event_id", msg.ID,
		"conversation_id", ev.ConversationID,
		"draft_id", ev.DraftID,
		"queue", p.queueName,
	)
	return nil
}

// Ping checks the Redis connection.
func (p *Publisher) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.rdb.Ping(ctx).Err()
}
