// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package pacer

import (
	"strings"
	"testing"

	"github.com/jeranaias/alfred-tui/internal/loop"
)

type recorder struct {
	tokens    []string
	completes int
}

func newPacer(t *testing.T) (*Pacer, *loop.ManualScheduler, *recorder) {
	t.Helper()
	s := loop.NewManualScheduler()
	r := &recorder{}
	p := New(s, DefaultInterval,
		func(tok string) { r.tokens = append(r.tokens, tok) },
		func() { r.completes++ })
	return p, s, r
}

func TestPacer_LazyTimer(t *testing.T) {
	p, s, _ := newPacer(t)
	if p.Running() || s.Created != 0 {
		t.Fatal("timer started before any input")
	}

	p.Push("a")
	p.Push("b")
	if s.Created != 1 {
		t.Errorf("timers created = %d, want 1", s.Created)
	}
}

func TestPacer_OneFragmentPerTickInOrder(t *testing.T) {
	p, s, r := newPacer(t)
	p.Push("Hel")
	p.Push("lo")

	s.Tick()
	if strings.Join(r.tokens, "|") != "Hel" {
		t.Fatalf("after one tick tokens = %v", r.tokens)
	}
	s.Tick()
	if strings.Join(r.tokens, "|") != "Hel|lo" {
		t.Fatalf("after two ticks tokens = %v", r.tokens)
	}
	if p.Pending() != 0 {
		t.Errorf("Pending = %d", p.Pending())
	}
}

func TestPacer_CompletesOnceAfterDrain(t *testing.T) {
	p, s, r := newPacer(t)
	for _, f := range []string{"a", "b", "c"} {
		p.Push(f)
	}
	p.Exhaust()

	s.TickN(3)
	if r.completes != 0 {
		t.Fatal("completed before queue drained")
	}
	s.Tick()
	if r.completes != 1 {
		t.Fatalf("completes = %d, want 1", r.completes)
	}
	if p.Running() || s.Active() != 0 {
		t.Error("timer still running after completion")
	}

	s.TickN(5)
	p.Exhaust()
	p.Push("late")
	s.TickN(2)
	if r.completes != 1 || len(r.tokens) != 3 {
		t.Errorf("completes=%d tokens=%v after finish", r.completes, r.tokens)
	}
}

func TestPacer_ExhaustWithoutFragments(t *testing.T) {
	p, s, r := newPacer(t)
	p.Exhaust()
	s.Tick()
	if r.completes != 1 || len(r.tokens) != 0 {
		t.Errorf("completes=%d tokens=%v", r.completes, r.tokens)
	}
}

func TestPacer_IdleTicksWaitForSource(t *testing.T) {
	p, s, r := newPacer(t)
	p.Push("a")
	s.TickN(4)
	if r.completes != 0 {
		t.Error("completed without exhaust")
	}
	if !p.Running() {
		t.Error("timer should keep running until exhausted")
	}
}

func TestPacer_CancelIsSilent(t *testing.T) {
	p, s, r := newPacer(t)
	p.Push("a")
	p.Push("b")
	p.Exhaust()
	s.Tick()

	p.Cancel()
	p.Cancel()
	p.Push("late")
	s.TickN(5)

	if len(r.tokens) != 1 || r.completes != 0 {
		t.Errorf("tokens=%v completes=%d after cancel", r.tokens, r.completes)
	}
	if p.Running() || s.Active() != 0 || p.Pending() != 0 {
		t.Error("cancel left state behind")
	}
}

func TestPacer_DefaultInterval(t *testing.T) {
	p := New(loop.NewManualScheduler(), 0, nil, nil)
	if p.interval != DefaultInterval {
		t.Errorf("interval = %v, want %v", p.interval, DefaultInterval)
	}
}
