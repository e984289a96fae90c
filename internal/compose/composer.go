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

// Package compose turns a fetched thread and a routing decision into a
// generation request.
package compose

import (
	"fmt"
	"strings"

	"github.com/bcem/drafter/internal/generate"
	"github.com/bcem/drafter/internal/models"
	"github.com/bcem/drafter/internal/route"
)

// DefaultInstructions is used when no override is configured.
const DefaultInstructions = `You are a customer support agent drafting a reply to the latest customer message in an email thread.
Answer using the knowledge base documents whenever they cover the question; do not invent product features, prices or policies.
Reply in the customer's language. Write HTML using <p> paragraphs and <ul><li> lists only, with no <html>, <head> or <body> wrappers.
Start with a short greeting. Do not add a signature; it is appended automatically.
A suggested help-center link is given below; mention it naturally if it is relevant.`

// Input is what the composer needs for one invocation.
type Input struct {
	Conversation models.Conversation
	ThreadText   string
	Target       models.Address
	HasTarget    bool
	Decision     route.Decision
}

// Composer builds generation requests from fixed per-deployment settings.
type Composer struct {
	Model         string
	Instructions  string
	VectorStoreID string
}

// New returns a Composer. An empty instructions string selects
// DefaultInstructions.
func New(model, instructions, vectorStoreID string) *Composer {
	if strings.TrimSpace(instructions) == "" {
		instructions = DefaultInstructions
	}
	return &Composer{
		Model:         model,
		Instructions:  instructions,
		VectorStoreID: vectorStoreID,
	}
}

// Build assembles the request. The input lists the subject, who the reply
// goes to and the routing hint, followed by the flattened thread.
func (c *Composer) Build(in Input) generate.Request {
	var b strings.Builder

	fmt.Fprintf(&b, "Subject: %s\n", in.Conversation.Subject)
	if in.HasTarget {
		if in.Target.Name != "" {
			fmt.Fprintf(&b, "Reply to: %s <%s>\n", in.Target.Name, in.Target.Address)
		} else {
			fmt.Fprintf(&b, "Reply to: %s\n", in.Target.Address)
		}
	}
	fmt.Fprintf(&b, "Suggested link (%s): %s\n", in.Decision.Category, in.Decision.URL)
	b.WriteString("\nThread (oldest first):\n\n")
	b.WriteString(in.ThreadText)

	return generate.Request{
		Model:         c.Model,
		Instructions:  c.Instructions,
		Input:         b.String(),
		VectorStoreID: c.VectorStoreID,
		Metadata: map[string]string{
			"conversation_id": in.Conversation.ID,
			"category":        string(in.Decision.Category),
		},
	}
}
