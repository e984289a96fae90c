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

// Package knowledge prepares the document knowledge base the generator is
// grounded against: a vector store holding uploaded reference files.
package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"

	"github.com/bcem/drafter/internal/openaiapi"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"
)

// uploadConcurrency bounds parallel file uploads.
const uploadConcurrency = 4

// FileUploader is the go-openai file API used for uploads.
type FileUploader interface {
	CreateFile(ctx context.Context, request openai.FileRequest) (openai.File, error)
}

// Manager creates vector stores and fills them with files.
type Manager struct {
	api   *openaiapi.Client
	files FileUploader
}

// NewManager creates a manager. httpClient must carry the API key as a
// bearer credential; files is normally an *openai.Client.
func NewManager(httpClient *http.Client, baseURL string, files FileUploader) *Manager {
	return &Manager{
		api:   openaiapi.NewClient(httpClient, baseURL, http.Header{"OpenAI-Beta": {"assistants=v2"}}),
		files: files,
	}
}

type vectorStore struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// CreateVectorStore creates an empty vector store and returns its ID.
func (m *Manager) CreateVectorStore(ctx context.Context, name string) (string, error) {
	var vs vectorStore
	if err := m.api.Do(ctx, "create vector store", http.MethodPost, "/vector_stores",
		map[string]string{"name": name}, &vs); err != nil {
		return "", err
	}
	if vs.ID == "" {
		return "", fmt.Errorf("create vector store: empty id in response")
	}
	slog.Info("vector store created", "vector_store_id", vs.ID, "name", name)
	return vs.ID, nil
}

// UploadFile uploads a local file for use by assistants and file search.
func (m *Manager) UploadFile(ctx context.Context, path string) (string, error) {
	f, err := m.files.CreateFile(ctx, openai.FileRequest{
		FileName: filepath.Base(path),
		FilePath: path,
		Purpose:  "assistants",
	})
	if err != nil {
		return "", fmt.Errorf("upload file %s: %w", path, err)
	}
	return f.ID, nil
}

// AttachFile adds an uploaded file to a vector store.
func (m *Manager) AttachFile(ctx context.Context, vectorStoreID, fileID string) error {
	return m.api.Do(ctx, "attach file "+fileID, http.MethodPost,
		"/vector_stores/"+url.PathEscape(vectorStoreID)+"/files",
		map[string]string{"file_id": fileID}, nil)
}

// Setup creates a vector store named name and uploads and attaches every
// path. Uploads run in parallel; the first failure aborts the rest.
func (m *Manager) Setup(ctx context.Context, name string, paths []string) (string, error) {
	if len(paths) == 0 {
		return "", fmt.Errorf("no files to upload")
	}

	id, err := m.CreateVectorStore(ctx, name)
	if err != nil {
		return "", err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrency)
	for _, p := range paths {
		g.Go(func() error {
			fileID, err := m.UploadFile(gctx, p)
			if err != nil {
				return err
			}
			if err := m.AttachFile(gctx, id, fileID); err != nil {
				return err
			}
			slog.Info("file added to knowledge base", "vector_store_id", id, "file", p, "file_id", fileID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", fmt.Errorf("populate vector store %s: %w", id, err)
	}
	return id, nil
}
