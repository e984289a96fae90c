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

// Package reply post-processes a generated draft into the final HTML body.
// Every pass is deterministic and idempotent, and so is Normalize as a whole.
package reply

import (
	"github.com/bcem/drafter/internal/models"
)

// Spacer is the empty paragraph placed between adjacent blocks.
const Spacer = "<p>&nbsp;</p>"

// DefaultCTATemplate is the closing sentence appended when the draft does
// not reference the organisation. {url} is replaced with the CTA URL.
const DefaultCTATemplate = `<p>You can find more information on <a href="{url}">our website</a>.</p>`

// DefaultGreetingFallback is used when no first name can be derived.
const DefaultGreetingFallback = "there"

// DefaultSignature is appended when no signature is configured.
var DefaultSignature = []string{"Best regards,", "The Support Team"}

// Options is the per-deployment reply policy.
type Options struct {
	// OrgDomain is the organisation's web domain. A draft mentioning it
	// already carries a CTA.
	OrgDomain string

	CTAURL      string
	CTATemplate string

	// Signature holds the signature paragraphs (inline HTML allowed).
	Signature []string
	// SignatureMarkers are substrings whose joint presence means the
	// signature is already there. Empty means the text of the signature
	// lines.
	SignatureMarkers []string

	GreetingFallback string

	// Structure enables list detection and splitting of long single
	// paragraphs.
	Structure bool
}

func (o Options) withDefaults() Options {
	if o.CTATemplate == "" {
		o.CTATemplate = DefaultCTATemplate
	}
	if o.Signature == nil {
		o.Signature = DefaultSignature
	}
	if o.GreetingFallback == "" {
		o.GreetingFallback = DefaultGreetingFallback
	}
	return o
}

// Normalize turns raw model output into the published body for a reply to
// target.
func Normalize(raw string, target models.Address, opts Options) string {
	opts = opts.withDefaults()

	body := EnsureHTML(raw)
	if opts.Structure {
		body = Structure(body)
	}
	body = EnsureGreeting(body, FirstName(target), opts.GreetingFallback)
	body = DedupeGreetings(body)
	body = EnsureCTA(body, opts.CTAURL, opts.OrgDomain, opts.CTATemplate)
	body = SpaceParagraphs(body)
	body = EnsureSignature(body, opts.Signature, opts.SignatureMarkers)
	return body
}
