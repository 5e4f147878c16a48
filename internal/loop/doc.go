// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package loop provides the single-threaded event loop that every piece of
// chat state is mutated on.
//
// Network goroutines never touch state directly: they Post a closure and
// the loop runs it. Timers are created through a Scheduler so their ticks
// are also delivered through the loop.
//
// # Key Types
//
//   - Loop: Anything that can run a posted closure on the owning goroutine
//   - Queue: Channel-backed Loop, driven by Run (line mode) or Drain (tests)
//   - Scheduler / Timer: Recurring callbacks delivered on a Loop
//   - TickerScheduler: time.Ticker based Scheduler
//   - ManualScheduler: Scheduler advanced explicitly by tests
//
// # Usage
//
//	q := loop.NewQueue(64)
//	go q.Run(ctx)
//	sched := loop.NewTickerScheduler(q)
//	t := sched.Every(15*time.Millisecond, func() { ... })
//	defer t.Stop()
package loop
