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

package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bcem/drafter/internal/compose"
	"github.com/bcem/drafter/internal/generate"
	"github.com/bcem/drafter/internal/models"
	"github.com/bcem/drafter/internal/reply"
	"github.com/bcem/drafter/internal/route"
	"github.com/bcem/drafter/internal/thread"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConversations struct {
	conv *models.Conversation
	err  error
}

func (f *fakeConversations) GetConversation(_ context.Context, id string) (*models.Conversation, error) {
	if f.err != nil {
		return nil, f.err
	}
	c := *f.conv
	c.ID = id
	return &c, nil
}

type fakeFetcher struct {
	msgs []models.Message
	err  error
}

func (f *fakeFetcher) Fetch(context.Context, string) ([]models.Message, error) {
	return f.msgs, f.err
}

type fakeGenerator struct {
	got  generate.Request
	text string
	err  error
}

func (f *fakeGenerator) Generate(_ context.Context, req generate.Request) (*generate.Result, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &generate.Result{Text: f.text, Grounded: true, Model: "gpt-test"}, nil
}

type fakePublisher struct {
	conversationID, subject, body string
	target                        models.Address
	calls                         int
	err                           error
}

func (f *fakePublisher) Publish(_ context.Context, conversationID, subject, body string, target models.Address) (string, error) {
	f.calls++
	f.conversationID, f.subject, f.body, f.target = conversationID, subject, body, target
	if f.err != nil {
		return "", f.err
	}
	return "dr_42", nil
}

type fakeSink struct {
	events []models.DraftEvent
	err    error
}

func (f *fakeSink) Record(_ context.Context, ev models.DraftEvent) error {
	f.events = append(f.events, ev)
	return f.err
}

type fixture struct {
	conv *fakeConversations
	fet  *fakeFetcher
	gen  *fakeGenerator
	pub  *fakePublisher
	sink *fakeSink
	p    *Pipeline
}

func newFixture() *fixture {
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f := &fixture{
		conv: &fakeConversations{conv: &models.Conversation{Subject: "Card reader question"}},
		fet: &fakeFetcher{msgs: []models.Message{
			{ID: "m1", From: models.Address{Address: "maria@shop.example", Name: "Maria"}, CreatedAt: t0,
				TextBody: "My card reader will not pair. Can I also send an invoice?"},
			{ID: "m2", From: models.Address{Address: "agent@example.com", Name: "Agent"}, CreatedAt: t0.Add(time.Hour),
				TextBody: "Looking into it."},
		}},
		gen:  &fakeGenerator{text: "Thanks for your patience."},
		pub:  &fakePublisher{},
		sink: &fakeSink{},
	}
	f.p = New(Config{
		Conversations: f.conv,
		Fetcher:       f.fet,
		Router:        route.NewRouter(route.RouterConfig{Website: "https://www.example.com", UTM: "utm_source=t"}),
		Composer:      compose.New("gpt-test", "", "vs_1"),
		Generator:     f.gen,
		Publisher:     f.pub,
		Targets:       thread.TargetPolicy{InternalDomains: []string{"example.com"}},
		Reply: reply.Options{
			OrgDomain: "example.com",
			Signature: []string{"Best regards,", "Alex"},
		},
		Sinks: []Sink{f.sink},
	})
	return f
}

func TestRun_PublishesNormalisedDraft(t *testing.T) {
	f := newFixture()

	res, err := f.p.Run(context.Background(), "conv-7")
	require.NoError(t, err)

	assert.Equal(t, "dr_42", res.DraftID)
	assert.Equal(t, route.CategoryInPerson, res.Decision.Category)
	assert.Equal(t, "https://www.example.com/in-person-payments?utm_source=t", res.Decision.URL)
	assert.True(t, res.Grounded)
	assert.Equal(t, 2, res.MessageCount)

	assert.Equal(t, "conv-7", f.pub.conversationID)
	assert.Equal(t, "Card reader question", f.pub.subject)
	assert.Equal(t, "maria@shop.example", f.pub.target.Address)
	assert.True(t, strings.HasPrefix(f.pub.body, "<p>Hi Maria,</p>"), f.pub.body)
	assert.Contains(t, f.pub.body, `href="https://www.example.com/in-person-payments?utm_source=t"`)
	assert.True(t, strings.HasSuffix(f.pub.body, "<p>Alex</p>"), f.pub.body)

	assert.Equal(t, "vs_1", f.gen.got.VectorStoreID)
	assert.Contains(t, f.gen.got.Input, "My card reader will not pair.")

	require.Len(t, f.sink.events, 1)
	assert.Equal(t, "dr_42", f.sink.events[0].DraftID)
	assert.Equal(t, "in_person", f.sink.events[0].Category)
}

func TestRun_StageErrors(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		stage string
		setup func(f *fixture)
	}{
		{StageConversation, func(f *fixture) { f.conv.err = boom }},
		{StageFetch, func(f *fixture) { f.fet.err = boom }},
		{StageGenerate, func(f *fixture) { f.gen.err = boom }},
		{StagePublish, func(f *fixture) { f.pub.err = boom }},
	}
	for _, tt := range tests {
		t.Run(tt.stage, func(t *testing.T) {
			f := newFixture()
			tt.setup(f)

			_, err := f.p.Run(context.Background(), "conv-7")
			var se *StageError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.stage, se.Stage)
			assert.ErrorIs(t, err, boom)
			assert.Empty(t, f.sink.events)
		})
	}
}

func TestRun_NoMessages(t *testing.T) {
	f := newFixture()
	f.fet.msgs = nil

	_, err := f.p.Run(context.Background(), "conv-7")
	assert.ErrorIs(t, err, ErrNoMessages)
	assert.Equal(t, 0, f.pub.calls)
}

func TestRun_SinkFailureIsNotFatal(t *testing.T) {
	f := newFixture()
	f.sink.err = errors.New("redis down")

	res, err := f.p.Run(context.Background(), "conv-7")
	require.NoError(t, err)
	assert.Equal(t, "dr_42", res.DraftID)
}

func TestPrepare_AllInternalSenders(t *testing.T) {
	f := newFixture()
	f.fet.msgs = []models.Message{{ID: "m1", From: models.Address{Address: "ops@support.example.com"}, TextBody: "note"}}

	d, err := f.p.Prepare(context.Background(), "conv-7")
	require.NoError(t, err)
	assert.False(t, d.HasTarget)
	assert.Empty(t, d.Target.Address)
	assert.True(t, strings.HasPrefix(d.Body, "<p>Hi there,</p>"), d.Body)
	assert.Equal(t, 0, f.pub.calls)
}
