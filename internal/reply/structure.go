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
)

var (
	paragraph   = regexp.MustCompile(`(?is)<p(?:\s[^>]*)?>(.*?)</p>`)
	spacerOnly  = regexp.MustCompile(`(?i)^(?:\s|&nbsp;|<br\s*/?>)*$`)
	listMarkup  = regexp.MustCompile(`(?i)<(?:ul|ol)[\s>]`)
	lineBreak   = regexp.MustCompile(`(?i)<br\s*/?>|\n`)
	bulletLine  = regexp.MustCompile(`^\s*[-*•]\s+(.*\S)\s*$`)
	sentenceEnd = regexp.MustCompile(`[.!?]+\s+`)
)

// Structure adds light structure to drafts the model left flat. When the
// body has no list markup, runs of two or more "-", "*" or "•" lines inside
// a paragraph become a <ul>. A body that is a single tag-free paragraph of
// more than two sentences is split into paragraphs of two sentences.
func Structure(body string) string {
	if listMarkup.MatchString(body) {
		return body
	}

	listed := paragraph.ReplaceAllStringFunc(body, func(p string) string {
		inner := paragraph.FindStringSubmatch(p)[1]
		if out, ok := bulletsToList(inner); ok {
			return out
		}
		return p
	})
	if listed != body {
		return listed
	}

	return splitLongParagraph(body)
}

// bulletsToList rewrites a paragraph's inner HTML. ok is false when no run of
// at least two bullet lines exists.
func bulletsToList(inner string) (string, bool) {
	lines := lineBreak.Split(inner, -1)

	var (
		b       strings.Builder
		text    []string
		items   []string
		rawRun  []string
		changed bool
	)
	flushText := func() {
		if len(text) > 0 {
			b.WriteString("<p>" + strings.Join(text, "<br>") + "</p>")
			text = nil
		}
	}
	flushRun := func() {
		if len(items) >= 2 {
			flushText()
			b.WriteString("<ul>")
			for _, it := range items {
				b.WriteString("<li>" + it + "</li>")
			}
			b.WriteString("</ul>")
			changed = true
		} else {
			text = append(text, rawRun...)
		}
		items, rawRun = nil, nil
	}

	for _, l := range lines {
		if m := bulletLine.FindStringSubmatch(l); m != nil {
			items = append(items, m[1])
			rawRun = append(rawRun, strings.TrimSpace(l))
			continue
		}
		flushRun()
		if t := strings.TrimSpace(l); t != "" {
			text = append(text, t)
		}
	}
	flushRun()
	flushText()

	if !changed {
		return "", false
	}
	return b.String(), true
}

func splitLongParagraph(body string) string {
	var content [][]int
	for _, loc := range paragraph.FindAllStringSubmatchIndex(body, -1) {
		if !spacerOnly.MatchString(body[loc[2]:loc[3]]) {
			content = append(content, loc)
		}
	}
	if len(content) != 1 {
		return body
	}

	loc := content[0]
	inner := body[loc[2]:loc[3]]
	if strings.Contains(inner, "<") {
		return body
	}

	sentences := splitSentences(inner)
	if len(sentences) <= 2 {
		return body
	}

	var b strings.Builder
	for i := 0; i < len(sentences); i += 2 {
		end := i + 2
		if end > len(sentences) {
			end = len(sentences)
		}
		b.WriteString("<p>" + strings.Join(sentences[i:end], " ") + "</p>")
	}
	return body[:loc[0]] + b.String() + body[loc[1]:]
}

func splitSentences(s string) []string {
	var (
		out   []string
		start int
	)
	for _, m := range sentenceEnd.FindAllStringIndex(s, -1) {
		if t := strings.TrimSpace(s[start:m[1]]); t != "" {
			out = append(out, t)
		}
		start = m[1]
	}
	if t := strings.TrimSpace(s[start:]); t != "" {
		out = append(out, t)
	}
	return out
}
