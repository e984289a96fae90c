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

package route

import (
	"strings"
)

const (
	// DefaultWebsite is the base every CTA path is joined to.
	DefaultWebsite = "https://www.example.com"

	// DefaultUTM is appended to every CTA URL.
	DefaultUTM = "utm_source=support&utm_medium=email&utm_campaign=reply_draft"
)

// DefaultPaths maps each category to its destination path.
func DefaultPaths() map[Category]string {
	return map[Category]string{
		CategoryInPerson:     "/in-person-payments",
		CategoryIntegrations: "/integrations",
		CategoryOnWebsite:    "/on-website",
		CategoryPaymentLinks: "/payment-links/in-advance",
		CategoryDefault:      "/",
	}
}

// Decision is the routing outcome for one conversation.
type Decision struct {
	Category Category
	Path     string
	URL      string
}

// Router turns a classification into a UTM-tagged CTA URL.
type Router struct {
	classifier Classifier
	website    string
	paths      map[Category]string
	utm        string
}

// RouterConfig holds the routing table. Empty fields take defaults; paths
// missing from Paths fall back to DefaultPaths.
type RouterConfig struct {
	Classifier Classifier
	Website    string
	Paths      map[Category]string
	UTM        string
}

// NewRouter creates a router.
func NewRouter(cfg RouterConfig) *Router {
	r := &Router{
		classifier: cfg.Classifier,
		website:    strings.TrimRight(cfg.Website, "/"),
		paths:      DefaultPaths(),
		utm:        strings.TrimLeft(cfg.UTM, "?&"),
	}
	if r.classifier == nil {
		r.classifier = NewKeywordClassifier(DefaultRules())
	}
	if r.website == "" {
		r.website = DefaultWebsite
	}
	if cfg.UTM == "" {
		r.utm = DefaultUTM
	}
	for c, p := range cfg.Paths {
		if p != "" {
			r.paths[c] = p
		}
	}
	return r
}

// Route classifies subject + thread text and builds the CTA URL.
func (r *Router) Route(threadText, subject string) Decision {
	cat := r.classifier.Classify(subject + "\n" + threadText)
	path, ok := r.paths[cat]
	if !ok {
		cat = CategoryDefault
		path = r.paths[CategoryDefault]
	}

	return Decision{
		Category: cat,
		Path:     path,
		URL:      r.URL(path),
	}
}

// URL joins path to the website base and appends the UTM suffix.
func (r *Router) URL(path string) string {
	u := r.website
	if path != "" {
		if !strings.HasPrefix(path, "/") {
			u += "/"
		}
		u += path
	}
	if r.utm == "" {
		return u
	}
	if strings.Contains(u, "?") {
		return u + "&" + r.utm
	}
	return u + "?" + r.utm
}

var defaultRouter = NewRouter(RouterConfig{})

// DetectDestination returns the CTA path for the built-in rules and paths.
func DetectDestination(threadText, subject string) string {
	return defaultRouter.Route(threadText, subject).Path
}
