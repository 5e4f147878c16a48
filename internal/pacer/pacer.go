// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package pacer releases streamed fragments to the renderer at a steady
// cadence instead of as fast as the network delivers them.
//
// A Pacer belongs to exactly one stream session and runs on the event loop.
// Each timer tick releases one queued fragment. Once the source is
// exhausted and the queue is empty, the next tick stops the timer and
// reports completion exactly once. Cancel stops everything silently.
package pacer

import (
	"time"

	"github.com/jeranaias/alfred-tui/internal/loop"
)

// DefaultInterval is the delay between two released fragments.
const DefaultInterval = 15 * time.Millisecond

// Pacer queues fragments and releases them one per tick.
type Pacer struct {
	sched    loop.Scheduler
	interval time.Duration

	queue     []string
	timer     loop.Timer
	exhausted bool
	finished  bool
	cancelled bool

	onToken    func(string)
	onComplete func()
}

// New creates an idle pacer. No timer runs until the first Push or Exhaust.
func New(sched loop.Scheduler, interval time.Duration, onToken func(string), onComplete func()) *Pacer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Pacer{
		sched:      sched,
		interval:   interval,
		onToken:    onToken,
		onComplete: onComplete,
	}
}

// Push queues a fragment for release.
func (p *Pacer) Push(fragment string) {
	if p.stopped() {
		return
	}
	p.queue = append(p.queue, fragment)
	p.ensureTimer()
}

// Exhaust marks the source as finished. Completion is reported after the
// queue has drained.
func (p *Pacer) Exhaust() {
	if p.stopped() {
		return
	}
	p.exhausted = true
	p.ensureTimer()
}

// Cancel stops the timer and drops queued fragments. Neither callback runs
// afterwards.
func (p *Pacer) Cancel() {
	p.cancelled = true
	p.queue = nil
	p.stopTimer()
}

// Pending returns the number of queued fragments.
func (p *Pacer) Pending() int {
	return len(p.queue)
}

// Running reports whether the timer is active.
func (p *Pacer) Running() bool {
	return p.timer != nil
}

// Finished reports whether completion has been delivered.
func (p *Pacer) Finished() bool {
	return p.finished
}

func (p *Pacer) stopped() bool {
	return p.finished || p.cancelled
}

func (p *Pacer) ensureTimer() {
	if p.timer == nil {
		p.timer = p.sched.Every(p.interval, p.tick)
	}
}

func (p *Pacer) stopTimer() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

func (p *Pacer) tick() {
	if p.stopped() {
		return
	}
	if len(p.queue) > 0 {
		fragment := p.queue[0]
		p.queue[0] = ""
		p.queue = p.queue[1:]
		if p.onToken != nil {
			p.onToken(fragment)
		}
		return
	}
	if p.exhausted {
		p.stopTimer()
		p.finished = true
		if p.onComplete != nil {
			p.onComplete()
		}
	}
}
