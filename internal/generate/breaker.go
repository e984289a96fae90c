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

package generate

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/bcem/drafter/internal/openaiapi"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
)

// Breaker defaults.
const (
	DefaultBreakerFailures = 5
	DefaultBreakerCooldown = 30 * time.Second
)

// BreakerConfig tunes the circuit breaker around a Generator.
type BreakerConfig struct {
	// ConsecutiveFailures opens the circuit. Zero means DefaultBreakerFailures.
	ConsecutiveFailures int
	// Cooldown is how long the circuit stays open before a probe request.
	Cooldown time.Duration
}

// Breaker fails fast while the generation service is unhealthy.
type Breaker struct {
	next Generator
	cb   *gobreaker.CircuitBreaker
}

// NewBreaker wraps next. Only server-side failures (5xx, 429, timeouts and
// transport errors) count against the circuit.
func NewBreaker(next Generator, cfg BreakerConfig) *Breaker {
	failures := cfg.ConsecutiveFailures
	if failures <= 0 {
		failures = DefaultBreakerFailures
	}
	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = DefaultBreakerCooldown
	}

	return &Breaker{
		next: next,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "generation",
			MaxRequests: 1,
			Timeout:     cooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= uint32(failures)
			},
			IsSuccessful: func(err error) bool {
				return err == nil || !tripsCircuit(err)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				slog.Warn("circuit breaker state changed",
					"breaker", name,
					"from", from.String(),
					"to", to.String(),
				)
			},
		}),
	}
}

// Generate implements Generator.
func (b *Breaker) Generate(ctx context.Context, req Request) (*Result, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Generate(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return out.(*Result), nil
}

// State reports the circuit state ("closed", "half-open" or "open").
func (b *Breaker) State() string {
	return b.cb.State().String()
}

func tripsCircuit(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var status *openaiapi.StatusError
	if errors.As(err, &status) {
		return serverSide(status.StatusCode)
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return serverSide(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return serverSide(reqErr.HTTPStatusCode)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	// Empty output, failed runs and poll ceilings are answers, not outages.
	return false
}

func serverSide(code int) bool {
	return code >= http.StatusInternalServerError || code == http.StatusTooManyRequests
}
