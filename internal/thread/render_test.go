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
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/bcem/drafter/internal/models"
	"github.com/bcem/drafter/internal/route"
	"github.com/bcem/drafter/internal/textnorm"
)

// TestRender_BlockFormat verifies the From/Date/---/body layout and separator.
func TestRender_BlockFormat(t *testing.T) {
	msgs := []models.Message{
		{
			From:      models.Address{Name: "Maria Lopez", Address: "maria@client.test"},
			CreatedAt: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
			HTMLBody:  "<p>Do you support <b>Xero</b>?</p>",
		},
		{
			From:      models.Address{Address: "support@example.com"},
			CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
			TextBody:  "Yes we do.",
		},
	}

	got := Render(msgs, 0)
	want := "From: Maria Lopez <maria@client.test>\nDate: 2026-03-01T09:30:00Z\n---\nDo you support Xero?" +
		MessageSeparator +
		"From: support@example.com\nDate: 2026-03-01T10:00:00Z\n---\nYes we do."

	if got != want {
		t.Errorf("Render mismatch\n got: %q\nwant: %q", got, want)
	}
}

// TestRender_EntityEncodedKeywordsRoute verifies HTML entities are decoded
// before routing so accented keywords in HTML-only bodies still match.
func TestRender_EntityEncodedKeywordsRoute(t *testing.T) {
	msgs := []models.Message{{
		From:     models.Address{Address: "cliente@shop.test"},
		HTMLBody: "<p>Necesito un dat&aacute;fono para la tienda</p>",
	}}

	got := Render(msgs, 0)
	if !strings.Contains(got, "datáfono") {
		t.Fatalf("entity not decoded: %q", got)
	}
	if dest := route.DetectDestination(got, ""); dest != "/in-person-payments" {
		t.Errorf("DetectDestination = %q, want /in-person-payments", dest)
	}
}

// TestRender_PreviewFallback verifies the preview is used when no body is present.
func TestRender_PreviewFallback(t *testing.T) {
	got := Render([]models.Message{{From: models.Address{Address: "a@b.test"}, Preview: "preview text"}}, 0)
	if !strings.HasSuffix(got, "---\npreview text") {
		t.Errorf("unexpected render: %q", got)
	}
}

// TestRender_Clamped verifies the budget and truncation marker.
func TestRender_Clamped(t *testing.T) {
	msgs := []models.Message{{From: models.Address{Address: "a@b.test"}, TextBody: strings.Repeat("word ", 500)}}

	got := Render(msgs, 200)
	if utf8.RuneCountInString(got) != 200 {
		t.Errorf("rune count = %d, want 200", utf8.RuneCountInString(got))
	}
	if !strings.HasSuffix(got, textnorm.TruncationMarker) {
		t.Error("expected truncation marker")
	}
}

// TestReplyTarget verifies internal senders are skipped, newest first.
func TestReplyTarget(t *testing.T) {
	policy := TargetPolicy{InternalDomains: []string{"example.com"}}
	msgs := []models.Message{
		{From: models.Address{Address: "first@client.test"}},
		{From: models.Address{Name: "Maria", Address: "maria@client.test"}},
		{From: models.Address{Address: "agent@example.com"}},
		{From: models.Address{Address: "bot@mail.example.com"}},
	}

	got, ok := policy.ReplyTarget(msgs)
	if !ok {
		t.Fatal("expected a target")
	}
	if got.Address != "maria@client.test" {
		t.Errorf("target = %q, want maria@client.test", got.Address)
	}
}

// TestReplyTarget_AllInternal verifies ok=false when nobody external wrote.
func TestReplyTarget_AllInternal(t *testing.T) {
	policy := TargetPolicy{InternalDomains: []string{"Example.com"}}
	_, ok := policy.ReplyTarget([]models.Message{{From: models.Address{Address: "agent@EXAMPLE.com"}}})
	if ok {
		t.Error("expected no target")
	}
}

// TestIsInternal_NoSuffixConfusion verifies lookalike domains are external.
func TestIsInternal_NoSuffixConfusion(t *testing.T) {
	policy := TargetPolicy{InternalDomains: []string{"example.com"}}
	if policy.IsInternal(models.Address{Address: "x@notexample.com"}) {
		t.Error("notexample.com must not count as internal")
	}
}
