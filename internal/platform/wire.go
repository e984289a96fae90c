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

package platform

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bcem/drafter/internal/models"
)

// wireAddress is the platform's {name, address} field object.
type wireAddress struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address"`
}

// wireMessage represents the relevant fields of a platform message. The
// list endpoint leaves Body empty.
type wireMessage struct {
	ID           string        `json:"id"`
	Subject      string        `json:"subject"`
	Preview      string        `json:"preview"`
	Body         string        `json:"body"`
	TextBody     string        `json:"text_body"`
	DeliveredAt  int64         `json:"delivered_at"`
	CreatedAt    int64         `json:"created_at"`
	FromField    wireAddress   `json:"from_field"`
	ToFields     []wireAddress `json:"to_fields"`
	Conversation struct {
		ID string `json:"id"`
	} `json:"conversation"`
}

func (m wireMessage) toModel(conversationID string) models.Message {
	to := make([]models.Address, 0, len(m.ToFields))
	for _, a := range m.ToFields {
		to = append(to, models.Address{Address: a.Address, Name: a.Name})
	}

	return models.Message{
		ID:             m.ID,
		ConversationID: conversationID,
		Subject:        m.Subject,
		From:           models.Address{Address: m.FromField.Address, Name: m.FromField.Name},
		To:             to,
		CreatedAt:      unixTime(m.CreatedAt),
		DeliveredAt:    unixTime(m.DeliveredAt),
		Preview:        m.Preview,
		TextBody:       m.TextBody,
		HTMLBody:       m.Body,
	}
}

func unixTime(sec int64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

type listMessagesResponse struct {
	Messages []wireMessage `json:"messages"`
}

// getMessageResponse accepts "messages" as either an object or a
// single-element array; the platform has served both shapes.
type getMessageResponse struct {
	Messages wireMessage
}

func (r *getMessageResponse) UnmarshalJSON(data []byte) error {
	var raw struct {
		Messages json.RawMessage `json:"messages"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	trimmed := bytes.TrimSpace(raw.Messages)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	if trimmed[0] == '[' {
		var list []wireMessage
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return err
		}
		if len(list) != 1 {
			return fmt.Errorf("expected one message, got %d", len(list))
		}
		r.Messages = list[0]
		return nil
	}

	return json.Unmarshal(trimmed, &r.Messages)
}

type getConversationResponse struct {
	Conversations []struct {
		ID                   string `json:"id"`
		Subject              string `json:"subject"`
		LatestMessageSubject string `json:"latest_message_subject"`
	} `json:"conversations"`
}

// draftRequest is the body of POST /drafts.
type draftRequest struct {
	Drafts draftFields `json:"drafts"`
}

type draftFields struct {
	Conversation         string        `json:"conversation"`
	Subject              string        `json:"subject"`
	Body                 string        `json:"body"`
	FromField            wireAddress   `json:"from_field"`
	ToFields             []wireAddress `json:"to_fields,omitempty"`
	Send                 bool          `json:"send"`
	QuotePreviousMessage bool          `json:"quote_previous_message"`
}

func newDraftRequest(d models.Draft) draftRequest {
	var to []wireAddress
	for _, a := range d.To {
		if a.Address == "" {
			continue
		}
		to = append(to, wireAddress{Name: a.Name, Address: a.Address})
	}

	return draftRequest{Drafts: draftFields{
		Conversation:         d.ConversationID,
		Subject:              d.Subject,
		Body:                 d.Body,
		FromField:            wireAddress{Name: d.From.Name, Address: d.From.Address},
		ToFields:             to,
		Send:                 d.Send,
		QuotePreviousMessage: d.QuotePrevious,
	}}
}

type createDraftResponse struct {
	Drafts struct {
		ID string `json:"id"`
	} `json:"drafts"`
}
