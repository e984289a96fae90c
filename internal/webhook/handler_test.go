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

package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bcem/drafter/internal/pipeline"
	"github.com/bcem/drafter/internal/route"
)

type fakeRunner struct {
	gotID string
	calls int
	err   error
}

func (f *fakeRunner) Run(_ context.Context, conversationID string) (*pipeline.Result, error) {
	f.calls++
	f.gotID = conversationID
	if f.err != nil {
		return nil, f.err
	}
	return &pipeline.Result{
		DraftID: "dr_1",
		Draft: pipeline.Draft{
			ConversationID: conversationID,
			Decision:       route.Decision{Category: route.CategoryIntegrations, URL: "https://www.example.com/integrations?utm_source=x"},
			Grounded:       true,
			MessageCount:   14,
		},
	}, nil
}

func post(h http.Handler, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// TestEvent_ID verifies both accepted payload shapes.
func TestEvent_ID(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"conversation":{"id":"conv-1"}}`, "conv-1"},
		{`{"conversation_id":"conv-2"}`, "conv-2"},
		{`{"conversation":{"id":"conv-3"},"conversation_id":"other"}`, "conv-3"},
		{`{"conversation":{"id":"  "}}`, ""},
		{`{}`, ""},
	}
	for _, tt := range tests {
		var ev Event
		if err := json.Unmarshal([]byte(tt.body), &ev); err != nil {
			t.Fatalf("unmarshal %s: %v", tt.body, err)
		}
		if got := ev.ID(); got != tt.want {
			t.Errorf("ID(%s) = %q, want %q", tt.body, got, tt.want)
		}
	}
}

// TestServeHTTP_Success verifies the success response body.
func TestServeHTTP_Success(t *testing.T) {
	runner := &fakeRunner{}
	rr := post(NewHandler(runner, "", 0), `{"conversation":{"id":"conv-9"}}`, nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rr.Code, rr.Body.String())
	}
	if runner.gotID != "conv-9" {
		t.Errorf("runner got %q", runner.gotID)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}

	var resp Response
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := Response{
		DraftID:        "dr_1",
		ConversationID: "conv-9",
		Category:       "integrations",
		CTAURL:         "https://www.example.com/integrations?utm_source=x",
		Grounded:       true,
		Messages:       14,
	}
	if resp != want {
		t.Errorf("response = %+v, want %+v", resp, want)
	}
}

// TestServeHTTP_NonPostReturnsOK verifies GET probes return 200 "ok".
func TestServeHTTP_NonPostReturnsOK(t *testing.T) {
	runner := &fakeRunner{}
	req := httptest.NewRequest(http.MethodGet, "/webhook", nil)
	rr := httptest.NewRecorder()

	NewHandler(runner, "", 0).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Errorf("got %d %q, want 200 ok", rr.Code, rr.Body.String())
	}
	if runner.calls != 0 {
		t.Error("runner should not be called")
	}
}

// TestServeHTTP_BadRequests verifies 400 for missing ids and invalid JSON.
func TestServeHTTP_BadRequests(t *testing.T) {
	for _, body := range []string{`{}`, `{"conversation":{}}`, `not json`} {
		runner := &fakeRunner{}
		rr := post(NewHandler(runner, "", 0), body, nil)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rr.Code)
		}
		var resp map[string]string
		json.NewDecoder(rr.Body).Decode(&resp)
		if resp["error"] == "" {
			t.Errorf("body %q: missing error field", body)
		}
		if runner.calls != 0 {
			t.Errorf("body %q: runner should not be called", body)
		}
	}
}

// TestServeHTTP_PipelineFailure verifies 500 with the error and stage.
func TestServeHTTP_PipelineFailure(t *testing.T) {
	runner := &fakeRunner{err: &pipeline.StageError{Stage: pipeline.StageFetch, Err: errors.New("list messages returned HTTP 502")}}
	rr := post(NewHandler(runner, "", 0), `{"conversation_id":"conv-1"}`, nil)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	var resp errorResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Stage != "fetch" || !strings.Contains(resp.Error, "HTTP 502") {
		t.Errorf("unexpected error response %+v", resp)
	}
}

// TestServeHTTP_Signature verifies HMAC checking when a secret is set.
func TestServeHTTP_Signature(t *testing.T) {
	body := `{"conversation":{"id":"conv-1"}}`

	runner := &fakeRunner{}
	h := NewHandler(runner, "s3cret", 0)

	if rr := post(h, body, nil); rr.Code != http.StatusUnauthorized {
		t.Errorf("unsigned: status = %d, want 401", rr.Code)
	}
	if rr := post(h, body, map[string]string{SignatureHeader: Sign("wrong", []byte(body))}); rr.Code != http.StatusUnauthorized {
		t.Errorf("wrong secret: status = %d, want 401", rr.Code)
	}
	if rr := post(h, body, map[string]string{SignatureHeader: "sha256=zz"}); rr.Code != http.StatusUnauthorized {
		t.Errorf("bad hex: status = %d, want 401", rr.Code)
	}
	if runner.calls != 0 {
		t.Fatal("runner called for rejected requests")
	}

	if rr := post(h, body, map[string]string{SignatureHeader: Sign("s3cret", []byte(body))}); rr.Code != http.StatusOK {
		t.Errorf("valid signature: status = %d, want 200", rr.Code)
	}
}

// TestHealth verifies the health endpoint and dependency checks.
func TestHealth(t *testing.T) {
	healthy := NewMux(NewHandler(&fakeRunner{}, "", 0), map[string]HealthCheck{
		"redis": func(context.Context) error { return nil },
	})
	rr := httptest.NewRecorder()
	healthy.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("healthy: status = %d", rr.Code)
	}

	sick := NewMux(NewHandler(&fakeRunner{}, "", 0), map[string]HealthCheck{
		"postgres": func(context.Context) error { return errors.New("down") },
	})
	rr = httptest.NewRecorder()
	sick.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusServiceUnavailable || !strings.Contains(rr.Body.String(), "postgres") {
		t.Errorf("sick: got %d %q", rr.Code, rr.Body.String())
	}
}

type panicRunner struct{}

func (panicRunner) Run(context.Context, string) (*pipeline.Result, error) {
	panic("boom")
}

// TestMux_RecoversPanic verifies a panic inside the pipeline is answered with
// a 500 instead of dropping the connection.
func TestMux_RecoversPanic(t *testing.T) {
	mux := NewMux(NewHandler(panicRunner{}, "", 0), nil)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"conversation":{"id":"c1"}}`))
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rr.Code)
	}
}
