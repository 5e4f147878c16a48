// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"log"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// RunMsg carries a closure to run inside Update.
type RunMsg struct {
	Fn func()
}

// ProgramLoop is a loop.Loop that runs closures on a Bubble Tea program's
// update goroutine. Post must not be called from inside Update.
type ProgramLoop struct {
	mu      sync.Mutex
	program *tea.Program
}

// Attach sets the program closures are sent to.
func (l *ProgramLoop) Attach(p *tea.Program) {
	l.mu.Lock()
	l.program = p
	l.mu.Unlock()
}

// Post sends fn to the program. Closures posted before Attach are dropped.
func (l *ProgramLoop) Post(fn func()) {
	l.mu.Lock()
	p := l.program
	l.mu.Unlock()
	if p == nil {
		log.Printf("TUI | dropping closure posted before program start")
		return
	}
	p.Send(RunMsg{Fn: fn})
}
