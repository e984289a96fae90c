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
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bcem/drafter/internal/bearer"
	"github.com/bcem/drafter/internal/models"
)

// TestListMessages_QueryAndDecode verifies limit/until parameters and summary decoding.
func TestListMessages_QueryAndDecode(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/conversations/conv-1/messages" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"messages":[
			{"id":"m2","subject":"Hi","delivered_at":1700000200,"created_at":1700000199,
			 "from_field":{"name":"Maria","address":"maria@customer.test"}},
			{"id":"m1","delivered_at":1700000100,"created_at":1700000100}
		]}`))
	}))
	defer server.Close()

	c := NewClient(server.Client(), server.URL)
	msgs, err := c.ListMessages(context.Background(), "conv-1", 10, time.Unix(1700000300, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotQuery != "limit=10&until=1700000300" {
		t.Errorf("query = %q", gotQuery)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].From.Name != "Maria" || msgs[0].ConversationID != "conv-1" {
		t.Errorf("unexpected first message: %+v", msgs[0])
	}
	if !msgs[0].DeliveredAt.Equal(time.Unix(1700000200, 0)) {
		t.Errorf("delivered_at = %v", msgs[0].DeliveredAt)
	}
}

// TestListMessages_NoCursorOnFirstPage verifies until is omitted for the zero time.
func TestListMessages_NoCursorOnFirstPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has("until") {
			t.Errorf("until should not be set, query = %q", r.URL.RawQuery)
		}
		w.Write([]byte(`{"messages":[]}`))
	}))
	defer server.Close()

	c := NewClient(server.Client(), server.URL)
	if _, err := c.ListMessages(context.Background(), "conv-1", 10, time.Time{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// TestGetMessage_ObjectAndArrayShapes verifies both single-message response shapes.
func TestGetMessage_ObjectAndArrayShapes(t *testing.T) {
	bodies := map[string]string{
		"/messages/obj": `{"messages":{"id":"obj","body":"<p>Hello</p>","conversation":{"id":"c1"}}}`,
		"/messages/arr": `{"messages":[{"id":"arr","body":"<p>Hola</p>"}]}`,
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(bodies[r.URL.Path]))
	}))
	defer server.Close()

	c := NewClient(server.Client(), server.URL)

	msg, err := c.GetMessage(context.Background(), "obj")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.HTMLBody != "<p>Hello</p>" || msg.ConversationID != "c1" {
		t.Errorf("unexpected message: %+v", msg)
	}

	msg, err = c.GetMessage(context.Background(), "arr")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.ID != "arr" || msg.HTMLBody != "<p>Hola</p>" {
		t.Errorf("unexpected message: %+v", msg)
	}
}

// TestGetMessage_StatusError verifies non-2xx responses surface as StatusError.
func TestGetMessage_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"slow down"}`))
	}))
	defer server.Close()

	c := NewClient(server.Client(), server.URL)
	_, err := c.GetMessage(context.Background(), "m1")

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %T: %v", err, err)
	}
	if se.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d", se.StatusCode)
	}
}

// TestGetConversation_SubjectFallback verifies latest_message_subject is used when subject is empty.
func TestGetConversation_SubjectFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"conversations":[{"id":"c1","subject":"","latest_message_subject":"Pricing question"}]}`))
	}))
	defer server.Close()

	c := NewClient(server.Client(), server.URL)
	conv, err := c.GetConversation(context.Background(), "c1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conv.Subject != "Pricing question" {
		t.Errorf("subject = %q", conv.Subject)
	}
}

// TestCreateDraft_RequestBody verifies the draft payload sent to the platform.
func TestCreateDraft_RequestBody(t *testing.T) {
	var got map[string]map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/drafts" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &got); err != nil {
			t.Errorf("bad body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"drafts":{"id":"draft-9"}}`))
	}))
	defer server.Close()

	c := NewClient(server.Client(), server.URL)
	id, err := c.CreateDraft(context.Background(), models.Draft{
		ConversationID: "c1",
		Subject:        "Re: Hello",
		Body:           "<p>Hi</p>",
		From:           models.Address{Name: "Support", Address: "support@example.com"},
		To:             []models.Address{{Address: "maria@customer.test"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "draft-9" {
		t.Errorf("id = %q", id)
	}

	d := got["drafts"]
	if d["send"] != false || d["quote_previous_message"] != false {
		t.Errorf("send/quote flags wrong: %v", d)
	}
	if d["conversation"] != "c1" || d["subject"] != "Re: Hello" {
		t.Errorf("unexpected draft fields: %v", d)
	}
	to, ok := d["to_fields"].([]interface{})
	if !ok || len(to) != 1 {
		t.Errorf("to_fields = %v", d["to_fields"])
	}
}

// TestClient_WithBearerTransport verifies the Authorization header reaches the platform.
func TestClient_WithBearerTransport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret-token" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte(`{"conversations":[{"id":"c1","subject":"s"}]}`))
	}))
	defer server.Close()

	c := NewClient(bearer.NewClient(context.Background(), "secret-token", server.Client()), server.URL)
	if _, err := c.GetConversation(context.Background(), "c1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
