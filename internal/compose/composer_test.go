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

package compose

import (
	"testing"

	"github.com/bcem/drafter/internal/models"
	"github.com/bcem/drafter/internal/route"
	"github.com/stretchr/testify/assert"
)

func TestBuild(t *testing.T) {
	c := New("gpt-4o", "", "vs_1")
	req := c.Build(Input{
		Conversation: models.Conversation{ID: "conv-1", Subject: "Card reader"},
		ThreadText:   "From: Maria <maria@shop.example>\n---\nhello",
		Target:       models.Address{Address: "maria@shop.example", Name: "Maria"},
		HasTarget:    true,
		Decision:     route.Decision{Category: route.CategoryInPerson, URL: "https://x.test/in-person?utm=1"},
	})

	assert.Equal(t, "gpt-4o", req.Model)
	assert.Equal(t, DefaultInstructions, req.Instructions)
	assert.Equal(t, "vs_1", req.VectorStoreID)
	assert.Contains(t, req.Input, "Subject: Card reader\n")
	assert.Contains(t, req.Input, "Reply to: Maria <maria@shop.example>\n")
	assert.Contains(t, req.Input, "Suggested link (in_person): https://x.test/in-person?utm=1\n")
	assert.Contains(t, req.Input, "hello")
	assert.Equal(t, "conv-1", req.Metadata["conversation_id"])
	assert.Equal(t, "in_person", req.Metadata["category"])
}

func TestBuild_InstructionOverrideAndNoTarget(t *testing.T) {
	c := New("m", "Reply in one line.", "")
	req := c.Build(Input{Decision: route.Decision{Category: route.CategoryDefault, URL: "https://x.test/?a=b"}})

	assert.Equal(t, "Reply in one line.", req.Instructions)
	assert.NotContains(t, req.Input, "Reply to:")
	assert.Empty(t, req.VectorStoreID)
}
