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

// Package publish creates the normalised reply as an unsent draft on the
// platform.
package publish

import (
	"context"
	"fmt"
	"strings"

	"github.com/bcem/drafter/internal/models"
)

// DraftCreator is the platform operation the publisher needs.
type DraftCreator interface {
	CreateDraft(ctx context.Context, d models.Draft) (string, error)
}

// Subject returns s with exactly one "Re: " prefix.
func Subject(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 3 && strings.EqualFold(s[:3], "re:") {
		return s
	}
	return "Re: " + s
}

// Publisher submits drafts from a fixed sender.
type Publisher struct {
	creator DraftCreator
	from    models.Address
}

// NewPublisher creates a publisher. Every draft is sent from from.
func NewPublisher(creator DraftCreator, from models.Address) *Publisher {
	return &Publisher{creator: creator, from: from}
}

// Publish creates an unsent, unquoted reply draft addressed to target and
// returns the platform's draft ID. A zero target leaves the recipients to
// the platform's defaults.
func (p *Publisher) Publish(ctx context.Context, conversationID, subject, body string, target models.Address) (string, error) {
	d := models.Draft{
		ConversationID: conversationID,
		Subject:        Subject(subject),
		Body:           body,
		From:           p.from,
		Send:           false,
		QuotePrevious:  false,
	}
	if target.Address != "" {
		d.To = []models.Address{target}
	}

	id, err := p.creator.CreateDraft(ctx, d)
	if err != nil {
		return "", fmt.Errorf("create draft for conversation %s: %w", conversationID, err)
	}
	if id == "" {
		return "", fmt.Errorf("create draft for conversation %s: platform returned no draft id", conversationID)
	}
	return id, nil
}
