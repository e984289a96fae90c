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

// Package route picks the call-to-action destination offered in a reply by
// classifying the conversation text.
package route

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bcem/drafter/internal/textnorm"
)

// Category is one of the closed set of CTA destinations.
type Category string

const (
	CategoryInPerson     Category = "in_person"
	CategoryIntegrations Category = "integrations"
	CategoryOnWebsite    Category = "on_website"
	CategoryPaymentLinks Category = "payment_links"
	CategoryDefault      Category = "default"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryInPerson, CategoryIntegrations, CategoryOnWebsite, CategoryPaymentLinks, CategoryDefault:
		return true
	}
	return false
}

// Classifier maps free text to a Category.
type Classifier interface {
	Classify(text string) Category
}

// Rule is an ordered keyword group. Patterns match against text that has
// been lower-cased and stripped of diacritics.
type Rule struct {
	Category Category
	Patterns []*regexp.Regexp
}

// KeywordClassifier tests rules in order; the first rule with a matching
// pattern wins. There is no scoring.
type KeywordClassifier struct {
	rules []Rule
}

// NewKeywordClassifier creates a classifier over the given ordered rules.
func NewKeywordClassifier(rules []Rule) *KeywordClassifier {
	return &KeywordClassifier{rules: rules}
}

// Classify implements Classifier.
func (k *KeywordClassifier) Classify(text string) Category {
	haystack := Haystack(text)
	for _, r := range k.rules {
		for _, p := range r.Patterns {
			if p.MatchString(haystack) {
				return r.Category
			}
		}
	}
	return CategoryDefault
}

// Haystack lower-cases and folds text for matching.
func Haystack(text string) string {
	return textnorm.Fold(strings.ToLower(text))
}

// RuleSpec is the uncompiled form of a Rule, as read from configuration.
type RuleSpec struct {
	Category string   `yaml:"category"`
	Patterns []string `yaml:"patterns"`
}

// CompileRules compiles rule specs in order. Patterns are written in lower
// case; they are folded like the haystack so accented keywords still match.
func CompileRules(specs []RuleSpec) ([]Rule, error) {
	rules := make([]Rule, 0, len(specs))
	for i, s := range specs {
		cat := Category(s.Category)
		if !cat.Valid() || cat == CategoryDefault {
			return nil, fmt.Errorf("rule %d: unknown category %q", i, s.Category)
		}
		if len(s.Patterns) == 0 {
			return nil, fmt.Errorf("rule %d (%s): no patterns", i, s.Category)
		}

		r := Rule{Category: cat}
		for _, p := range s.Patterns {
			re, err := regexp.Compile(textnorm.Fold(p))
			if err != nil {
				return nil, fmt.Errorf("rule %d (%s): compile %q: %w", i, s.Category, p, err)
			}
			r.Patterns = append(r.Patterns, re)
		}
		rules = append(rules, r)
	}
	return rules, nil
}
