// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream opens assistant response streams and turns their events
// into paced, loop-serialised callbacks.
//
// A Controller owns at most one current session. Each call to Open returns
// a Handle; every callback for that session checks the handle is still
// current and open before touching anything, so events that arrive after a
// cancel or a newer Open are dropped.
//
// # Session lifecycle
//
//	Idle --open--> Open --complete--> Completed
//	                    --fail------> Errored
//	                    --cancel----> Cancelled
//
// Exactly one of OnComplete and OnError is delivered per session, unless the
// session is cancelled, in which case neither is.
//
// # Wire format
//
// The backend answers a POST with text/event-stream frames named start,
// BOT_THINKING (thinking), BOT_Response (content), done and error, each
// carrying a JSON payload. Malformed payloads are tolerated: see Decode.
//
// # Usage
//
//	ctrl := stream.NewController(loop, sched, stream.NewHTTPTransport(base, nil), stream.Options{
//	    SessionID: sessionID,
//	})
//	h := ctrl.Open(chatID, "Explain recursion", stream.Callbacks{
//	    OnToken:    func(tok string) { ... },
//	    OnComplete: func() { ... },
//	    OnError:    func(err error) { ... },
//	})
//	defer h.Cancel()
package stream
