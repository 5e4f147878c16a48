// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package loop

import (
	"sync"
	"sync/atomic"
	"time"
)

// Timer is a recurring callback registration.
type Timer interface {
	// Stop cancels the timer. No callback runs after Stop returns, even one
	// that was already posted to the loop. Stop is idempotent.
	Stop()
}

// Scheduler creates recurring timers whose callbacks run on a Loop.
type Scheduler interface {
	Every(interval time.Duration, fn func()) Timer
}

// =============================================================================
// TICKER SCHEDULER
// =============================================================================

// TickerScheduler drives timers from time.Ticker and delivers each tick
// through its Loop.
type TickerScheduler struct {
	loop Loop
}

// NewTickerScheduler creates a scheduler posting ticks to l.
func NewTickerScheduler(l Loop) *TickerScheduler {
	return &TickerScheduler{loop: l}
}

// Every starts a timer calling fn on the loop every interval.
func (s *TickerScheduler) Every(interval time.Duration, fn func()) Timer {
	t := &tickerTimer{stop: make(chan struct{})}
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-t.stop:
				return
			case <-ticker.C:
				s.loop.Post(func() {
					if t.stopped.Load() {
						return
					}
					fn()
				})
			}
		}
	}()
	return t
}

type tickerTimer struct {
	stopped  atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once
}

func (t *tickerTimer) Stop() {
	t.stopped.Store(true)
	t.stopOnce.Do(func() { close(t.stop) })
}

// =============================================================================
// MANUAL SCHEDULER
// =============================================================================

// ManualScheduler only fires timers when Tick is called. Callbacks run
// synchronously on the caller, which stands in for the loop.
type ManualScheduler struct {
	timers []*manualTimer
	// Created counts every timer ever started.
	Created int
}

// NewManualScheduler creates an idle manual scheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// Every registers fn; interval is recorded but otherwise ignored.
func (s *ManualScheduler) Every(interval time.Duration, fn func()) Timer {
	t := &manualTimer{fn: fn, interval: interval}
	s.timers = append(s.timers, t)
	s.Created++
	return t
}

// Tick fires every active timer once and returns how many fired.
func (s *ManualScheduler) Tick() int {
	active := s.timers[:0]
	for _, t := range s.timers {
		if !t.stopped {
			active = append(active, t)
		}
	}
	s.timers = active

	fired := 0
	for _, t := range append([]*manualTimer(nil), active...) {
		if t.stopped {
			continue
		}
		t.fn()
		fired++
	}
	return fired
}

// TickN calls Tick n times.
func (s *ManualScheduler) TickN(n int) {
	for i := 0; i < n; i++ {
		s.Tick()
	}
}

// Active returns the number of timers that have not been stopped.
func (s *ManualScheduler) Active() int {
	n := 0
	for _, t := range s.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

type manualTimer struct {
	fn       func()
	interval time.Duration
	stopped  bool
}

func (t *manualTimer) Stop() { t.stopped = true }
