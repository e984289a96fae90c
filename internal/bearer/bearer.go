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

// Package bearer builds HTTP clients that authenticate with a static bearer token.
package bearer

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
)

// NewClient returns an http.Client that sends token as a bearer
// credential on every request. base supplies the underlying transport and
// timeout; nil means http.DefaultClient.
func NewClient(ctx context.Context, token string, base *http.Client) *http.Client {
	if base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	})
	client := oauth2.NewClient(ctx, ts)
	if base != nil {
		client.Timeout = base.Timeout
	}
	return client
}
