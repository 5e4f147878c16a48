// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/alfred-tui/internal/loop"
	"github.com/jeranaias/alfred-tui/internal/model"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

// fakeStream is one Stream call, driven frame by frame by the test. It
// ignores context cancellation so late frames can be simulated.
type fakeStream struct {
	req  Request
	ctx  context.Context
	feed chan Frame
	ack  chan struct{}
	end  chan error
}

type fakeTransport struct {
	started chan *fakeStream
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{started: make(chan *fakeStream, 8)}
}

func (t *fakeTransport) Stream(ctx context.Context, req Request, emit func(Frame)) error {
	s := &fakeStream{
		req:  req,
		ctx:  ctx,
		feed: make(chan Frame),
		ack:  make(chan struct{}),
		end:  make(chan error),
	}
	t.started <- s
	for {
		select {
		case f := <-s.feed:
			emit(f)
			s.ack <- struct{}{}
		case err := <-s.end:
			return err
		}
	}
}

// countingLoop tracks posted and executed closures so tests can wait for
// the loop to go quiet.
type countingLoop struct {
	q      *loop.Queue
	posted atomic.Int64
	ran    int64
}

func (l *countingLoop) Post(fn func()) {
	l.posted.Add(1)
	l.q.Post(func() {
		fn()
		l.ran++
	})
}

type env struct {
	t     *testing.T
	loop  *countingLoop
	sched *loop.ManualScheduler
	tr    *fakeTransport
	ctrl  *Controller
}

func newEnv(t *testing.T) *env {
	t.Helper()
	l := &countingLoop{q: loop.NewQueue(64)}
	sched := loop.NewManualScheduler()
	tr := newFakeTransport()
	return &env{
		t:     t,
		loop:  l,
		sched: sched,
		tr:    tr,
		ctrl:  NewController(l, sched, tr, Options{SessionID: "sess"}),
	}
}

func (e *env) stream() *fakeStream {
	e.t.Helper()
	select {
	case s := <-e.tr.started:
		return s
	case <-time.After(time.Second):
		e.t.Fatal("transport was not started")
		return nil
	}
}

func (e *env) settle(before int64) {
	e.t.Helper()
	ok := e.loop.q.RunUntil(func() bool {
		p := e.loop.posted.Load()
		return p > before && e.loop.ran == p
	}, time.Second)
	require.True(e.t, ok, "loop did not settle")
}

func (e *env) send(s *fakeStream, event, data string) {
	e.t.Helper()
	before := e.loop.posted.Load()
	s.feed <- Frame{Event: event, Data: []byte(data)}
	<-s.ack
	e.settle(before)
}

func (e *env) finish(s *fakeStream, err error) {
	e.t.Helper()
	before := e.loop.posted.Load()
	s.end <- err
	e.settle(before)
}

type record struct {
	chats     []model.ChatID
	thinking  int
	tokens    []string
	completes int
	errs      []error
}

func (r *record) callbacks() Callbacks {
	return Callbacks{
		OnChat:     func(id model.ChatID) { r.chats = append(r.chats, id) },
		OnThinking: func() { r.thinking++ },
		OnToken:    func(tok string) { r.tokens = append(r.tokens, tok) },
		OnComplete: func() { r.completes++ },
		OnError:    func(err error) { r.errs = append(r.errs, err) },
	}
}

// =============================================================================
// TESTS
// =============================================================================

func TestController_PacedTokensThenCompletion(t *testing.T) {
	e := newEnv(t)
	r := &record{}

	h := e.ctrl.Open(42, "Explain recursion", r.callbacks())
	s := e.stream()
	assert.Equal(t, StateOpen, h.State())
	assert.True(t, h.IsCurrent())
	assert.Equal(t, model.ChatID(42), s.req.ChatID)
	assert.Equal(t, "Explain recursion", s.req.Prompt)
	assert.Equal(t, "sess", s.req.SessionID)
	assert.Equal(t, DefaultTemperature, s.req.Temperature)

	e.send(s, "start", `{"chatId":42}`)
	e.send(s, "BOT_THINKING", `{"content":"Thinking..."}`)
	e.send(s, "BOT_Response", `{"content":"Hel"}`)
	e.send(s, "BOT_Response", `{"content":"lo"}`)
	e.send(s, "done", `{"content":"Hello"}`)
	e.finish(s, nil)

	assert.Empty(t, r.chats, "chat was known up front")
	assert.Equal(t, 1, r.thinking)
	assert.Empty(t, r.tokens, "tokens must wait for the pacer")

	e.sched.Tick()
	assert.Equal(t, []string{"Hel"}, r.tokens)
	e.sched.Tick()
	assert.Equal(t, []string{"Hel", "lo"}, r.tokens)
	assert.Equal(t, 0, r.completes)
	e.sched.Tick()
	assert.Equal(t, 1, r.completes)
	assert.Empty(t, r.errs)

	assert.Equal(t, StateCompleted, h.State())
	assert.False(t, h.IsCurrent())
	assert.Nil(t, e.ctrl.Current())
	assert.Error(t, s.ctx.Err(), "connection should be closed after done")

	e.sched.TickN(3)
	assert.Equal(t, 1, r.completes)
}

func TestController_EmptyTokensIgnored(t *testing.T) {
	e := newEnv(t)
	r := &record{}
	e.ctrl.Open(1, "x", r.callbacks())
	s := e.stream()

	e.send(s, "BOT_Response", `{"content":""}`)
	e.send(s, "done", `{}`)
	e.sched.TickN(2)

	assert.Empty(t, r.tokens)
	assert.Equal(t, 1, r.completes)
}

func TestController_ErrorEvent(t *testing.T) {
	e := newEnv(t)
	r := &record{}
	h := e.ctrl.Open(1, "x", r.callbacks())
	s := e.stream()

	e.send(s, "BOT_Response", `{"content":"par"}`)
	e.sched.Tick()
	e.send(s, "BOT_Response", `{"content":"tial"}`)
	e.send(s, "error", `{"message":"model not found"}`)
	e.sched.TickN(3)

	require.Len(t, r.errs, 1)
	assert.True(t, IsTransportError(r.errs[0]))
	assert.Equal(t, "model not found", r.errs[0].Error())
	assert.Equal(t, []string{"par"}, r.tokens, "queued fragments are dropped on error")
	assert.Equal(t, 0, r.completes)
	assert.Equal(t, StateErrored, h.State())
	assert.Equal(t, 0, e.sched.Active())

	e.finish(s, nil)
	assert.Len(t, r.errs, 1)
}

func TestController_EndWithoutDoneIsTransportError(t *testing.T) {
	e := newEnv(t)
	r := &record{}
	h := e.ctrl.Open(1, "x", r.callbacks())
	s := e.stream()

	e.send(s, "BOT_Response", `{"content":"a"}`)
	e.finish(s, nil)

	require.Len(t, r.errs, 1)
	assert.ErrorIs(t, r.errs[0], ErrEndedEarly)
	assert.Equal(t, StateErrored, h.State())
}

func TestController_TransportFailure(t *testing.T) {
	e := newEnv(t)
	r := &record{}
	e.ctrl.Open(1, "x", r.callbacks())
	s := e.stream()

	boom := errors.New("connection reset")
	e.finish(s, boom)

	require.Len(t, r.errs, 1)
	assert.True(t, IsTransportError(r.errs[0]))
	assert.ErrorIs(t, r.errs[0], boom)
	assert.Equal(t, DefaultErrorMessage, r.errs[0].Error())
}

func TestController_CancelSuppressesLateEvents(t *testing.T) {
	e := newEnv(t)
	r := &record{}
	h := e.ctrl.Open(1, "x", r.callbacks())
	s := e.stream()

	e.send(s, "BOT_Response", `{"content":"a"}`)
	h.Cancel()
	h.Cancel()

	assert.Equal(t, StateCancelled, h.State())
	assert.Error(t, s.ctx.Err())

	e.send(s, "BOT_Response", `{"content":"b"}`)
	e.send(s, "done", `{}`)
	e.sched.TickN(5)
	e.finish(s, nil)

	assert.Empty(t, r.tokens)
	assert.Equal(t, 0, r.completes)
	assert.Empty(t, r.errs)
	assert.Nil(t, e.ctrl.Current())
}

func TestController_CancelAfterCompletionIsNoOp(t *testing.T) {
	e := newEnv(t)
	r := &record{}
	h := e.ctrl.Open(1, "x", r.callbacks())
	s := e.stream()
	e.send(s, "done", `{}`)
	e.sched.Tick()

	h.Cancel()
	assert.Equal(t, StateCompleted, h.State())
	assert.Equal(t, 1, r.completes)
}

func TestController_ReconcilesChatOnce(t *testing.T) {
	e := newEnv(t)
	r := &record{}
	h := e.ctrl.Open(model.NoChat, "x", r.callbacks())
	s := e.stream()
	assert.Equal(t, model.NoChat, s.req.ChatID)

	e.send(s, "start", `{"chatId":7}`)
	e.send(s, "start", `{"chatId":8}`)

	assert.Equal(t, []model.ChatID{7}, r.chats)
	assert.Equal(t, model.ChatID(7), h.ChatID())
}

func TestController_StartWithoutChatIDDoesNotReconcile(t *testing.T) {
	e := newEnv(t)
	r := &record{}
	e.ctrl.Open(model.NoChat, "x", r.callbacks())
	s := e.stream()

	e.send(s, "start", `garbage`)
	e.send(s, "start", `{"chatId":null}`)
	assert.Empty(t, r.chats)

	e.send(s, "start", `{"chatId":3}`)
	assert.Equal(t, []model.ChatID{3}, r.chats)
}

func TestController_KnownChatIgnoresStartChatID(t *testing.T) {
	e := newEnv(t)
	r := &record{}
	e.ctrl.Open(5, "x", r.callbacks())
	s := e.stream()

	e.send(s, "start", `{"chatId":9}`)
	assert.Empty(t, r.chats)
}

func TestController_NewSessionSupersedesOld(t *testing.T) {
	e := newEnv(t)
	first, second := &record{}, &record{}

	h1 := e.ctrl.Open(1, "first", first.callbacks())
	s1 := e.stream()
	h2 := e.ctrl.Open(2, "second", second.callbacks())
	s2 := e.stream()

	assert.Equal(t, StateCancelled, h1.State())
	assert.False(t, h1.IsCurrent())
	assert.True(t, h2.IsCurrent())
	assert.Same(t, h2, e.ctrl.Current())
	assert.NotEqual(t, h1.ID(), h2.ID())

	e.send(s1, "BOT_Response", `{"content":"stale"}`)
	e.send(s1, "done", `{}`)
	e.send(s2, "BOT_Response", `{"content":"fresh"}`)
	e.send(s2, "done", `{}`)
	e.sched.TickN(4)

	assert.Empty(t, first.tokens)
	assert.Equal(t, 0, first.completes)
	assert.Equal(t, []string{"fresh"}, second.tokens)
	assert.Equal(t, 1, second.completes)
}

func TestController_RawContentFallback(t *testing.T) {
	e := newEnv(t)
	r := &record{}
	e.ctrl.Open(1, "x", r.callbacks())
	s := e.stream()

	e.send(s, "BOT_Response", `first\nsecond`)
	e.sched.Tick()
	assert.Equal(t, "first\nsecond", strings.Join(r.tokens, ""))
}
