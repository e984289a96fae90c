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

package thread

import (
	"fmt"
	"strings"
	"time"

	"github.com/bcem/drafter/internal/models"
	"github.com/bcem/drafter/internal/textnorm"
)

const (
	// DefaultMaxChars is the ThreadText budget in runes.
	DefaultMaxChars = 12000

	// MessageSeparator joins rendered message blocks.
	MessageSeparator = "\n\n=====\n\n"
)

// Render flattens messages into ThreadText: one From/Date/---/body block
// per message in the given order, clamped to maxChars runes.
func Render(msgs []models.Message, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	blocks := make([]string, 0, len(msgs))
	for _, m := range msgs {
		blocks = append(blocks, renderMessage(m))
	}

	return textnorm.Clamp(strings.Join(blocks, MessageSeparator), maxChars)
}

func renderMessage(m models.Message) string {
	from := m.From.Address
	if m.From.Name != "" {
		from = fmt.Sprintf("%s <%s>", m.From.Name, m.From.Address)
	}

	date := ""
	if ts := sortKey(m); !ts.IsZero() {
		date = ts.UTC().Format(time.RFC3339)
	}

	body := textnorm.PlainBody(m.TextBody, m.HTMLBody)
	if body == "" {
		body = strings.TrimSpace(m.Preview)
	}

	return fmt.Sprintf("From: %s\nDate: %s\n---\n%s", from, date, body)
}
