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
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"
)

var (
	blankLines  = regexp.MustCompile(`\n\s*\n`)
	markdownish = regexp.MustCompile(`(?m)^\s*(?:[-*+]\s|\d+[.)]\s|#{1,6}\s)|\*\*[^*\n]+\*\*|\[[^\]\n]+\]\([^)\s]+\)`)
	interTag    = regexp.MustCompile(`>\s*\n\s*<`)

	md = goldmark.New(goldmark.WithRendererOptions(gmhtml.WithHardWraps()))
)

// EnsureHTML wraps plain text in paragraphs. Input that already contains
// markup is returned trimmed. Text using Markdown lists, headings, bold or
// links is rendered as Markdown. A surrounding code fence is dropped first.
func EnsureHTML(s string) string {
	s = stripFence(strings.TrimSpace(s))
	if s == "" || hasMarkup(s) {
		return s
	}

	s = strings.ReplaceAll(s, "\r\n", "\n")
	if markdownish.MatchString(s) {
		if out, ok := renderMarkdown(s); ok {
			return out
		}
	}
	var b strings.Builder
	for _, para := range blankLines.Split(s, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		lines := strings.Split(para, "\n")
		for i, l := range lines {
			lines[i] = html.EscapeString(strings.TrimSpace(l))
		}
		b.WriteString("<p>")
		b.WriteString(strings.Join(lines, "<br>"))
		b.WriteString("</p>")
	}
	return b.String()
}

// renderMarkdown converts s and joins the rendered blocks onto one line.
func renderMarkdown(s string) (string, bool) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(s), &buf); err != nil {
		return "", false
	}
	out := strings.TrimSpace(buf.String())
	out = interTag.ReplaceAllString(out, "><")
	out = strings.ReplaceAll(out, "<br>\n", "<br>")
	return strings.ReplaceAll(out, "\n", " "), true
}

// hasMarkup reports whether s contains at least one tag.
func hasMarkup(s string) bool {
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return false
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			return true
		}
	}
}

// stripFence removes a ```lang ... ``` wrapper.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	inner := strings.TrimSuffix(s, "```")
	if i := strings.IndexByte(inner, '\n'); i >= 0 {
		inner = inner[i+1:]
	} else {
		inner = strings.TrimPrefix(inner, "```")
	}
	return strings.TrimSpace(inner)
}
