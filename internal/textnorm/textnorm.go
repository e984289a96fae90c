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

// Package textnorm flattens markup to plain text and prepares text for
// accent-insensitive matching.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// TruncationMarker is appended by Clamp when text exceeds its budget.
const TruncationMarker = "\n[…truncated]"

// StripTags removes everything between a '<' and the next '>'. It does not
// decode entities or try to make sense of malformed markup. An unterminated
// '<' is kept as literal text.
func StripTags(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	for {
		open := strings.IndexByte(s, '<')
		if open < 0 {
			b.WriteString(s)
			break
		}
		end := strings.IndexByte(s[open:], '>')
		if end < 0 {
			b.WriteString(s)
			break
		}
		b.WriteString(s[:open])
		s = s[open+end+1:]
	}

	return b.String()
}

// Fold removes combining diacritical marks after canonical decomposition,
// so "información" and "informacion" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Clamp caps s at max runes. A clamped result keeps the first
// max-len(TruncationMarker) runes followed by the marker, so the output
// always fits the budget and clamping it again is a no-op.
func Clamp(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}

	marker := TruncationMarker
	keep := max - utf8.RuneCountInString(marker)
	if keep <= 0 {
		marker = ""
		keep = max
	}

	n := 0
	for i := range s {
		if n == keep {
			return s[:i] + marker
		}
		n++
	}
	return s
}

var (
	lineBreakTags = regexp.MustCompile(`(?i)<br\s*/?>|</(p|div|li|tr|h[1-6]|blockquote)>`)
	blankRuns     = regexp.MustCompile(`\n{3,}`)
	spaceRuns     = regexp.MustCompile(`[ \t\f\v]+`)
)

// PlainBody returns a plain-text rendering of a message body. The text
// body wins when present; otherwise the HTML body is flattened with line
// breaks kept at <br> and block ends.
func PlainBody(text, htmlBody string) string {
	if t := strings.TrimSpace(text); t != "" {
		return collapse(t)
	}
	if strings.TrimSpace(htmlBody) == "" {
		return ""
	}
	flat := lineBreakTags.ReplaceAllString(htmlBody, "\n")
	flat = html.UnescapeString(StripTags(flat))
	flat = strings.ReplaceAll(flat, "\u00a0", " ")
	return collapse(flat)
}

func collapse(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(spaceRuns.ReplaceAllString(l, " "))
	}
	s = strings.Join(lines, "\n")
	s = blankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
