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

package reply

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	spacerRun     = regexp.MustCompile(`(?i)\s*` + spacerPara + `\s*`)
	adjacentBlock = regexp.MustCompile(`(?i)(</p>|</ul>|</ol>)\s*(<(?:p|ul|ol)\b)`)
)

// EnsureCTA appends the CTA sentence unless the body already mentions the
// organisation domain or the CTA URL itself (case-insensitive).
func EnsureCTA(body, ctaURL, orgDomain, template string) string {
	if ctaURL == "" {
		return body
	}
	lower := strings.ToLower(body)
	for _, marker := range []string{orgDomain, ctaURL, html.EscapeString(ctaURL)} {
		if marker != "" && strings.Contains(lower, strings.ToLower(marker)) {
			return body
		}
	}
	if template == "" {
		template = DefaultCTATemplate
	}
	return body + strings.ReplaceAll(template, "{url}", html.EscapeString(ctaURL))
}

// SpaceParagraphs leaves exactly one Spacer between adjacent paragraphs and
// lists. Existing spacers, including leading and trailing ones, are
// dropped first.
func SpaceParagraphs(body string) string {
	body = spacerRun.ReplaceAllString(body, "")
	return adjacentBlock.ReplaceAllString(body, "${1}"+Spacer+"${2}")
}

// EnsureSignature appends the signature paragraphs, separated by spacers,
// unless every marker is already present in the body. Without markers the
// text of each signature line is used.
func EnsureSignature(body string, signature, markers []string) string {
	if len(signature) == 0 {
		return body
	}

	paras := make([]string, len(signature))
	for i, line := range signature {
		paras[i] = "<p>" + line + "</p>"
	}
	if len(markers) == 0 {
		markers = signatureText(signature)
	}

	present := true
	for _, m := range markers {
		if !strings.Contains(body, m) {
			present = false
			break
		}
	}
	if present {
		return body
	}

	block := strings.Join(paras, Spacer)
	if body == "" {
		return block
	}
	return body + Spacer + block
}

// signatureText returns the text fragments of the signature lines, split at
// tags, so a sign-off the model already wrote is found in any layout.
func signatureText(signature []string) []string {
	var out []string
	for _, line := range signature {
		for _, frag := range anyTag.Split(line, -1) {
			if frag = strings.TrimSpace(frag); frag != "" {
				out = append(out, frag)
			}
		}
	}
	return out
}
