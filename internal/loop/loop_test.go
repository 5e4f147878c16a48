// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package loop

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestQueue_DrainRunsNestedPosts(t *testing.T) {
	q := NewQueue(8)
	var order []int
	q.Post(func() {
		order = append(order, 1)
		q.Post(func() { order = append(order, 3) })
	})
	q.Post(func() { order = append(order, 2) })

	if n := q.Drain(); n != 3 {
		t.Errorf("Drain ran %d closures, want 3", n)
	}
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("order = %v, want [1 2 3]", order)
	}
}

func TestQueue_RunStopsOnCancel(t *testing.T) {
	q := NewQueue(1)
	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		q.Run(ctx)
		close(finished)
	}()

	ran := make(chan struct{})
	q.Post(func() { close(ran) })
	<-ran

	cancel()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	// Post after shutdown must not block.
	q.Post(func() {})
	q.Post(func() {})
}

func TestQueue_RunUntil(t *testing.T) {
	q := NewQueue(4)
	var hits atomic.Int32
	go func() {
		for i := 0; i < 3; i++ {
			q.Post(func() { hits.Add(1) })
		}
	}()

	if !q.RunUntil(func() bool { return hits.Load() == 3 }, time.Second) {
		t.Fatalf("condition not met, hits=%d", hits.Load())
	}
	if q.RunUntil(func() bool { return false }, 10*time.Millisecond) {
		t.Error("RunUntil should time out")
	}
}

func TestTickerScheduler_DeliversOnLoop(t *testing.T) {
	q := NewQueue(16)
	s := NewTickerScheduler(q)

	count := 0
	timer := s.Every(time.Millisecond, func() { count++ })
	if !q.RunUntil(func() bool { return count >= 3 }, time.Second) {
		t.Fatalf("ticks = %d, want >= 3", count)
	}

	timer.Stop()
	timer.Stop()
	seen := count
	time.Sleep(5 * time.Millisecond)
	q.Drain()
	if count != seen {
		t.Errorf("tick ran after Stop: %d -> %d", seen, count)
	}
}

func TestManualScheduler(t *testing.T) {
	s := NewManualScheduler()
	a, b := 0, 0
	ta := s.Every(time.Millisecond, func() { a++ })
	s.Every(time.Millisecond, func() { b++ })

	if fired := s.Tick(); fired != 2 {
		t.Errorf("fired = %d, want 2", fired)
	}
	ta.Stop()
	s.TickN(2)

	if a != 1 || b != 3 {
		t.Errorf("a=%d b=%d, want a=1 b=3", a, b)
	}
	if s.Active() != 1 || s.Created != 2 {
		t.Errorf("Active=%d Created=%d", s.Active(), s.Created)
	}
}

func TestManualScheduler_StopDuringTick(t *testing.T) {
	s := NewManualScheduler()
	var tb Timer
	b := 0
	s.Every(time.Millisecond, func() { tb.Stop() })
	tb = s.Every(time.Millisecond, func() { b++ })

	s.Tick()
	if b != 0 {
		t.Errorf("timer stopped earlier in the same tick still fired")
	}
}

func TestFunc(t *testing.T) {
	called := false
	var l Loop = Func(func(fn func()) { fn() })
	l.Post(func() { called = true })
	if !called {
		t.Error("Func did not run closure")
	}
}
