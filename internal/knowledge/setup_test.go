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

package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

func writeFiles(t *testing.T, names ...string) []string {
	t.Helper()
	dir := t.TempDir()
	var paths []string
	for _, n := range names {
		p := filepath.Join(dir, n)
		if err := os.WriteFile(p, []byte("content of "+n), 0o600); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
	}
	return paths
}

// TestSetup_UploadsThroughSDK verifies the full flow against one fake
// server: go-openai multipart uploads plus raw vector store calls.
func TestSetup_UploadsThroughSDK(t *testing.T) {
	var (
		mu       sync.Mutex
		uploaded []string
		attached []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/vector_stores":
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if body["name"] != "help-center" {
				t.Errorf("name = %q", body["name"])
			}
			w.Write([]byte(`{"id":"vs_1","name":"help-center"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/files":
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("multipart: %v", err)
			}
			if r.FormValue("purpose") != "assistants" {
				t.Errorf("purpose = %q", r.FormValue("purpose"))
			}
			_, hdr, err := r.FormFile("file")
			if err != nil {
				t.Errorf("file part: %v", err)
				return
			}
			mu.Lock()
			uploaded = append(uploaded, hdr.Filename)
			mu.Unlock()
			w.Write([]byte(`{"id":"file-` + strings.TrimSuffix(hdr.Filename, ".md") + `","object":"file","purpose":"assistants"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/vector_stores/vs_1/files":
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			mu.Lock()
			attached = append(attached, body["file_id"])
			mu.Unlock()
			w.Write([]byte(`{"id":"` + body["file_id"] + `","object":"vector_store.file"}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfg := openai.DefaultConfig("sk-test")
	cfg.BaseURL = srv.URL
	m := NewManager(srv.Client(), srv.URL, openai.NewClientWithConfig(cfg))

	id, err := m.Setup(context.Background(), "help-center", writeFiles(t, "pricing.md", "readers.md"))
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if id != "vs_1" {
		t.Errorf("id = %q, want vs_1", id)
	}

	sort.Strings(uploaded)
	sort.Strings(attached)
	if strings.Join(uploaded, ",") != "pricing.md,readers.md" {
		t.Errorf("uploaded = %v", uploaded)
	}
	if strings.Join(attached, ",") != "file-pricing,file-readers" {
		t.Errorf("attached = %v", attached)
	}
}

type failingUploader struct{}

func (failingUploader) CreateFile(context.Context, openai.FileRequest) (openai.File, error) {
	return openai.File{}, errors.New("quota exceeded")
}

// TestSetup_UploadFailure verifies that an upload error aborts setup.
func TestSetup_UploadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"vs_2"}`))
	}))
	defer srv.Close()

	m := NewManager(srv.Client(), srv.URL, failingUploader{})
	_, err := m.Setup(context.Background(), "kb", writeFiles(t, "a.md"))
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected upload error, got %v", err)
	}
}

// TestSetup_NoFiles verifies the empty-input guard.
func TestSetup_NoFiles(t *testing.T) {
	m := NewManager(nil, "http://unused", failingUploader{})
	if _, err := m.Setup(context.Background(), "kb", nil); err == nil {
		t.Fatal("expected error for empty file list")
	}
}
