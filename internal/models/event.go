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

package models

import "time"

// DraftEvent describes one successfully published draft. It is handed to
// the downstream event sinks and never read back by the service.
type DraftEvent struct {
	ConversationID string    `json:"conversation_id"`
	DraftID        string    `json:"draft_id"`
	Subject        string    `json:"subject"`
	Category       string    `json:"category"`
	CTAURL         string    `json:"cta_url"`
	Grounded       bool      `json:"grounded"`
	Model          string    `json:"model,omitempty"`
	MessageCount   int       `json:"message_count"`
	Recipient      string    `json:"recipient,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	DurationMS     int64     `json:"duration_ms"`
}
