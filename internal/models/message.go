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

// Package models defines the data structures shared across the drafter service.
package models

import (
	"strings"
	"time"
)

// Address represents a sender or recipient with an address and optional name.
type Address struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

// Domain returns the lower-cased part of the address after the last "@".
func (a Address) Domain() string {
	i := strings.LastIndex(a.Address, "@")
	if i < 0 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(a.Address[i+1:]))
}

// Message is one hydrated message of a conversation. Messages are read-only
// copies of platform data and live for a single invocation.
type Message struct {
	ID             string
	ConversationID string
	Subject        string
	From           Address
	To             []Address
	CreatedAt      time.Time
	DeliveredAt    time.Time
	Preview        string
	TextBody       string
	HTMLBody       string
}

// Conversation is the ordered thread a reply is drafted for.
type Conversation struct {
	ID       string
	Subject  string
	Messages []Message
}

// Draft is the reply handed to the platform. Send is always false for
// drafts created by this service.
type Draft struct {
	ConversationID string
	Subject        string
	Body           string
	From           Address
	To             []Address
	Send           bool
	QuotePrevious  bool
}
