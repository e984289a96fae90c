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
	"unicode"
	"unicode/utf8"

	"github.com/bcem/drafter/internal/models"
	"golang.org/x/net/html"
)

var (
	anyTag        = regexp.MustCompile(`<[^>]*>`)
	startsGreeted = regexp.MustCompile(`(?i)^(?:hi|hello|dear)\b`)
	hiThere       = regexp.MustCompile(`(?i)^(\s*(?:<[^>]+>\s*)*)(hi|hello|dear)\s+there\b`)

	// A greeting paragraph is the greeting word plus at most three words.
	greetingPara = `<p>\s*(?:hi|hello|dear)(?:\s+[^\s<,!]+){0,3}\s*[,!]?\s*</p>`
	spacerPara   = `<p>(?:\s|&nbsp;|<br\s*/?>)*</p>`
	doubleGreet  = regexp.MustCompile(`(?i)(` + greetingPara + `)(?:\s*` + spacerPara + `)*\s*(` + greetingPara + `)`)

	localSeparators = strings.NewReplacer(".", " ", "_", " ", "-", " ", "+", " ")
)

// roleAccounts never yield a first name.
var roleAccounts = map[string]bool{
	"admin": true, "billing": true, "contact": true, "hello": true, "help": true,
	"info": true, "noreply": true, "no": true, "office": true, "sales": true,
	"support": true, "team": true,
}

// FirstName derives a capitalised first name for a greeting: the first word
// of the display name, or failing that the first word of the address local
// part with separators turned into spaces. It returns "" when neither
// yields a usable name.
func FirstName(a models.Address) string {
	if name := strings.TrimSpace(a.Name); name != "" && !strings.Contains(name, "@") {
		if w := firstWord(name); w != "" {
			return capitalise(w, false)
		}
	}

	at := strings.LastIndex(a.Address, "@")
	if at <= 0 {
		return ""
	}
	local := strings.ToLower(a.Address[:at])
	w := firstWord(localSeparators.Replace(local))
	w = strings.TrimRightFunc(w, unicode.IsDigit)
	if w == "" || roleAccounts[w] {
		return ""
	}
	return capitalise(w, true)
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return strings.Trim(fields[0], `,;:"'`)
}

func capitalise(w string, lowerRest bool) string {
	r, size := utf8.DecodeRuneInString(w)
	rest := w[size:]
	if lowerRest {
		rest = strings.ToLower(rest)
	}
	return string(unicode.ToUpper(r)) + rest
}

// leadingText is the body's visible text with tags turned into spaces.
func leadingText(body string) string {
	return strings.TrimSpace(html.UnescapeString(anyTag.ReplaceAllString(body, " ")))
}

// EnsureGreeting prepends a greeting paragraph unless the body already opens
// with hi, hello or dear. An opening "Hi there" is personalised when name is
// known.
func EnsureGreeting(body, name, fallback string) string {
	if startsGreeted.MatchString(leadingText(body)) {
		if name == "" {
			return body
		}
		loc := hiThere.FindStringSubmatchIndex(body)
		if loc == nil {
			return body
		}
		// loc[4:6] spans the greeting word.
		return body[:loc[5]] + " " + html.EscapeString(name) + body[loc[1]:]
	}

	if name == "" {
		name = fallback
	}
	return "<p>Hi " + html.EscapeString(name) + ",</p>" + body
}

// DedupeGreetings drops a greeting paragraph that directly follows another
// one, ignoring spacers, when it repeats the first or only addresses a
// name ("Hello Maria!", "Hi there,"). Other short openers such as
// "Hello again!" are kept.
func DedupeGreetings(body string) string {
	for start := 0; start < len(body); {
		loc := doubleGreet.FindStringSubmatchIndex(body[start:])
		if loc == nil {
			break
		}
		first := body[start+loc[2] : start+loc[3]]
		second := body[start+loc[4] : start+loc[5]]
		if !repeatsGreeting(first, second) {
			start += loc[3]
			continue
		}
		body = body[:start+loc[3]] + body[start+loc[1]:]
	}
	return body
}

// repeatsGreeting reports whether second adds nothing after first: either
// the same text, or a greeting word followed only by capitalised names or
// "there".
func repeatsGreeting(first, second string) bool {
	text := leadingText(second)
	if strings.EqualFold(leadingText(first), text) {
		return true
	}
	words := strings.Fields(strings.TrimRight(text, ",! "))
	for _, w := range words[1:] {
		w = strings.Trim(w, ",!")
		if strings.EqualFold(w, "there") {
			continue
		}
		if r, _ := utf8.DecodeRuneInString(w); !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}
