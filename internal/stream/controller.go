// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/qmuntal/stateless"

	"github.com/jeranaias/alfred-tui/internal/loop"
	"github.com/jeranaias/alfred-tui/internal/model"
	"github.com/jeranaias/alfred-tui/internal/pacer"
)

// =============================================================================
// STATE MACHINE
// =============================================================================

// State is the lifecycle state of a stream session.
type State string

const (
	StateIdle      State = "idle"
	StateOpen      State = "open"
	StateCompleted State = "completed"
	StateErrored   State = "errored"
	StateCancelled State = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateErrored || s == StateCancelled
}

type trigger string

const (
	triggerOpen     trigger = "open"
	triggerComplete trigger = "complete"
	triggerFail     trigger = "fail"
	triggerCancel   trigger = "cancel"
)

func newSessionFSM(id uint64) *stateless.StateMachine {
	sm := stateless.NewStateMachine(StateIdle)

	sm.Configure(StateIdle).
		Permit(triggerOpen, StateOpen).
		Permit(triggerCancel, StateCancelled)

	sm.Configure(StateOpen).
		Permit(triggerComplete, StateCompleted).
		Permit(triggerFail, StateErrored).
		Permit(triggerCancel, StateCancelled)

	sm.OnTransitioned(func(_ context.Context, t stateless.Transition) {
		log.Printf("STREAM | session=%d %v -> %v", id, t.Source, t.Destination)
	})
	return sm
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Callbacks receive the events of one session. All run on the loop, and
// only while the session is current and open. Nil callbacks are skipped.
type Callbacks struct {
	// OnChat reports the chat the backend resolved, for sessions opened
	// without one. It fires at most once.
	OnChat     func(model.ChatID)
	OnThinking func()
	OnToken    func(string)
	OnComplete func()
	OnError    func(error)
}

// Options configures a Controller.
type Options struct {
	SessionID    string
	Temperature  float64
	PaceInterval time.Duration
}

// Controller opens stream sessions and tracks which one is current.
type Controller struct {
	loop      loop.Loop
	sched     loop.Scheduler
	transport Transport
	opts      Options

	current *Handle
	nextID  uint64
}

// NewController creates a controller. l must be the loop the caller runs on;
// sched must deliver its ticks on the same loop.
func NewController(l loop.Loop, sched loop.Scheduler, t Transport, opts Options) *Controller {
	if opts.Temperature == 0 {
		opts.Temperature = DefaultTemperature
	}
	if opts.PaceInterval <= 0 {
		opts.PaceInterval = pacer.DefaultInterval
	}
	return &Controller{loop: l, sched: sched, transport: t, opts: opts}
}

// Current returns the open session, or nil.
func (c *Controller) Current() *Handle {
	return c.current
}

// Cancel cancels the current session, if any.
func (c *Controller) Cancel() {
	if c.current != nil {
		c.current.Cancel()
	}
}

// Open starts a session streaming the answer to prompt. A session that is
// already current is cancelled first. With chat == model.NoChat, the
// backend picks the chat and OnChat reports it.
func (c *Controller) Open(chat model.ChatID, prompt string, cb Callbacks) *Handle {
	c.Cancel()

	c.nextID++
	ctx, cancel := context.WithCancel(context.Background())
	h := &Handle{
		id:          c.nextID,
		ctrl:        c,
		fsm:         newSessionFSM(c.nextID),
		cb:          cb,
		cancel:      cancel,
		chat:        chat,
		needsChatID: !chat.Valid(),
	}
	h.pacer = pacer.New(c.sched, c.opts.PaceInterval, h.deliverToken, h.complete)

	c.current = h
	h.fire(triggerOpen)
	log.Printf("STREAM | open session=%d chat=%d prompt_len=%d", h.id, chat, len(prompt))

	req := Request{
		SessionID:   c.opts.SessionID,
		Prompt:      prompt,
		Temperature: c.opts.Temperature,
		ChatID:      chat,
	}
	go func() {
		err := c.transport.Stream(ctx, req, func(f Frame) {
			c.loop.Post(func() { h.handleFrame(f) })
		})
		c.loop.Post(func() { h.handleEnd(err) })
	}()

	return h
}

// =============================================================================
// HANDLE
// =============================================================================

// Handle identifies one stream session.
type Handle struct {
	id     uint64
	ctrl   *Controller
	fsm    *stateless.StateMachine
	pacer  *pacer.Pacer
	cb     Callbacks
	cancel context.CancelFunc

	chat        model.ChatID
	needsChatID bool
	doneSeen    bool
}

// ID returns the session number, unique per controller.
func (h *Handle) ID() uint64 {
	return h.id
}

// IsCurrent reports whether this is the controller's current session.
func (h *Handle) IsCurrent() bool {
	return h.ctrl.current == h
}

// State returns the lifecycle state.
func (h *Handle) State() State {
	return h.fsm.MustState().(State)
}

// ChatID returns the chat the session streams into, or model.NoChat if the
// backend has not reported one yet.
func (h *Handle) ChatID() model.ChatID {
	return h.chat
}

// Cancel aborts the session: the connection is closed, queued fragments are
// dropped and no completion or error is reported. Cancelling a finished
// session does nothing.
func (h *Handle) Cancel() {
	if h.State().Terminal() {
		return
	}
	h.pacer.Cancel()
	h.cancel()
	h.fire(triggerCancel)
	h.release()
}

// live gates every transport-originated callback.
func (h *Handle) live() bool {
	return h.IsCurrent() && h.State() == StateOpen
}

func (h *Handle) handleFrame(f Frame) {
	if !h.live() {
		return
	}

	ev := Decode(f)
	switch ev.Type {
	case EventStart:
		if h.needsChatID && ev.ChatID.Valid() {
			h.needsChatID = false
			h.chat = ev.ChatID
			if h.cb.OnChat != nil {
				h.cb.OnChat(ev.ChatID)
			}
		}
	case EventThinking:
		if h.cb.OnThinking != nil {
			h.cb.OnThinking()
		}
	case EventContent:
		if ev.Content != "" {
			h.pacer.Push(ev.Content)
		}
	case EventDone:
		h.doneSeen = true
		h.cancel()
		h.pacer.Exhaust()
	case EventError:
		h.fail(&TransportError{Message: ev.Message})
	}
}

func (h *Handle) handleEnd(err error) {
	if !h.live() || h.doneSeen {
		return
	}
	if err == nil {
		err = &TransportError{Message: DefaultErrorMessage, Cause: ErrEndedEarly}
	}
	var te *TransportError
	if !errors.As(err, &te) {
		err = &TransportError{Message: DefaultErrorMessage, Cause: err}
	}
	h.fail(err)
}

func (h *Handle) deliverToken(tok string) {
	if h.live() && h.cb.OnToken != nil {
		h.cb.OnToken(tok)
	}
}

func (h *Handle) complete() {
	if !h.live() {
		return
	}
	h.fire(triggerComplete)
	h.release()
	if h.cb.OnComplete != nil {
		h.cb.OnComplete()
	}
}

func (h *Handle) fail(err error) {
	h.pacer.Cancel()
	h.cancel()
	h.fire(triggerFail)
	h.release()
	log.Printf("STREAM | error session=%d err=%v", h.id, err)
	if h.cb.OnError != nil {
		h.cb.OnError(err)
	}
}

func (h *Handle) release() {
	if h.ctrl.current == h {
		h.ctrl.current = nil
	}
}

func (h *Handle) fire(t trigger) {
	if err := h.fsm.Fire(t); err != nil {
		log.Printf("STREAM | session=%d invalid transition %s from %s: %v", h.id, t, h.State(), err)
	}
}
