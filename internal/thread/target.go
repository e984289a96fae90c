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

package thread

import (
	"strings"

	"github.com/bcem/drafter/internal/models"
)

// TargetPolicy decides which sender a reply is addressed to. Senders whose
// domain equals, or is a subdomain of, an internal domain are skipped.
type TargetPolicy struct {
	InternalDomains []string
}

// IsInternal reports whether addr belongs to one of the internal domains.
func (p TargetPolicy) IsInternal(addr models.Address) bool {
	domain := addr.Domain()
	if domain == "" {
		return false
	}
	for _, d := range p.InternalDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if domain == d || strings.HasSuffix(domain, "."+d) {
			return true
		}
	}
	return false
}

// ReplyTarget returns the sender of the most recent external message in a
// thread ordered oldest first. ok is false when every sender is internal.
func (p TargetPolicy) ReplyTarget(msgs []models.Message) (models.Address, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		from := msgs[i].From
		if from.Address == "" || p.IsInternal(from) {
			continue
		}
		return from, true
	}
	return models.Address{}, false
}
