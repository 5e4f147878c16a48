// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package loop

import (
	"context"
	"time"
)

// Loop runs posted closures one at a time on the goroutine that owns the
// chat state. Post is safe to call from any goroutine.
type Loop interface {
	Post(fn func())
}

// Func adapts an ordinary function to the Loop interface.
type Func func(fn func())

// Post calls f(fn).
func (f Func) Post(fn func()) { f(fn) }

// =============================================================================
// QUEUE
// =============================================================================

// Queue is a Loop backed by a buffered channel. Closures run when the owner
// calls Run or Drain.
type Queue struct {
	ch   chan func()
	done chan struct{}
}

// NewQueue creates a queue holding up to capacity pending closures before
// Post blocks.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{
		ch:   make(chan func(), capacity),
		done: make(chan struct{}),
	}
}

// Post enqueues fn. After Run has returned, Post drops fn instead of
// blocking forever.
func (q *Queue) Post(fn func()) {
	select {
	case q.ch <- fn:
	case <-q.done:
	}
}

// Run executes closures until ctx is cancelled.
func (q *Queue) Run(ctx context.Context) {
	defer close(q.done)
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-q.ch:
			fn()
		}
	}
}

// Drain runs everything currently queued, including closures posted by the
// closures it runs, and returns how many ran.
func (q *Queue) Drain() int {
	n := 0
	for {
		select {
		case fn := <-q.ch:
			fn()
			n++
		default:
			return n
		}
	}
}

// RunUntil runs closures as they arrive until cond holds or timeout
// elapses. cond is also polled while the queue is idle, so it may watch
// state changed by other goroutines. It reports whether cond was met.
func (q *Queue) RunUntil(cond func() bool, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	poll := time.NewTicker(time.Millisecond)
	defer poll.Stop()
	for !cond() {
		select {
		case fn := <-q.ch:
			fn()
		case <-poll.C:
		case <-deadline.C:
			return cond()
		}
	}
	return true
}
