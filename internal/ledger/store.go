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

// Package ledger keeps an append-only Postgres record of published drafts.
// The pipeline only writes to it; operators read it through replyctl.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bcem/drafter/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Record is one ledger row.
type Record struct {
	ID int64
	models.DraftEvent
}

// Store appends draft events to the draft_runs table.
type Store struct {
	db DB
}

// NewStore creates a ledger store backed by db and ensures the table exists.
func NewStore(ctx context.Context, db DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure ledger schema: %w", err)
	}
	slog.Info("run ledger initialised")
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS draft_runs (
			id              BIGSERIAL PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			draft_id        TEXT NOT NULL,
			subject         TEXT DEFAULT '',
			category        TEXT NOT NULL,
			cta_url         TEXT DEFAULT '',
			grounded        BOOLEAN NOT NULL DEFAULT FALSE,
			model           TEXT DEFAULT '',
			message_count   INTEGER NOT NULL DEFAULT 0,
			recipient       TEXT DEFAULT '',
			duration_ms     BIGINT NOT NULL DEFAULT 0,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_draft_runs_conversation ON draft_runs(conversation_id);
		CREATE INDEX IF NOT EXISTS idx_draft_runs_created ON draft_runs(created_at);
	`)
	return err
}

// Record appends ev.
func (s *Store) Record(ctx context.Context, ev models.DraftEvent) error {
	createdAt := ev.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO draft_runs
			(conversation_id, draft_id, subject, category, cta_url, grounded,
			 model, message_count, recipient, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, ev.ConversationID, ev.DraftID, ev.Subject, ev.Category, ev.CTAURL, ev.Grounded,
		ev.Model, ev.MessageCount, ev.Recipient, ev.DurationMS, createdAt)
	if err != nil {
		return fmt.Errorf("insert draft run: %w", err)
	}
	return nil
}

// Recent returns the newest runs, optionally for one conversation.
func (s *Store) Recent(ctx context.Context, conversationID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, conversation_id, draft_id, subject, category, cta_url, grounded,
		       model, message_count, recipient, duration_ms, created_at
		FROM draft_runs
		WHERE $1 = '' OR conversation_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("query draft runs: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// collectRecords scans rows into Records.
func collectRecords(rows pgx.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(
			&r.ID, &r.ConversationID, &r.DraftID, &r.Subject, &r.Category, &r.CTAURL, &r.Grounded,
			&r.Model, &r.MessageCount, &r.Recipient, &r.DurationMS, &r.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
