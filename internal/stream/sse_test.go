// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func readAll(t *testing.T, input string) []Frame {
	t.Helper()
	r := NewSSEReader(strings.NewReader(input))
	var frames []Frame
	for {
		f, err := r.ReadFrame()
		if err == io.EOF {
			return frames
		}
		if err != nil {
			t.Fatalf("ReadFrame: %v", err)
		}
		frames = append(frames, f)
	}
}

func TestSSEReader_NamedEvents(t *testing.T) {
	input := "event: start\ndata: {\"chatId\": 42}\n\n" +
		": heartbeat\n\n" +
		"event: BOT_Response\ndata: {\"content\": \"Hel\"}\n\n" +
		"id: 3\nevent: done\ndata: {}\n\n"

	frames := readAll(t, input)
	if len(frames) != 3 {
		t.Fatalf("got %d frames, want 3: %+v", len(frames), frames)
	}
	if frames[0].Event != "start" || string(frames[0].Data) != `{"chatId": 42}` {
		t.Errorf("frame 0 = %+v", frames[0])
	}
	if frames[1].Event != "BOT_Response" {
		t.Errorf("frame 1 event = %q", frames[1].Event)
	}
	if frames[2].Event != "done" {
		t.Errorf("frame 2 event = %q", frames[2].Event)
	}
}

func TestSSEReader_MultiLineDataAndCRLF(t *testing.T) {
	input := "event: content\r\ndata: one\r\ndata: two\r\n\r\n"

	frames := readAll(t, input)
	if len(frames) != 1 || string(frames[0].Data) != "one\ntwo" {
		t.Fatalf("frames = %+v", frames)
	}
}

func TestSSEReader_OnlyOneLeadingSpaceStripped(t *testing.T) {
	frames := readAll(t, "data:  indented\n\ndata:tight\n\n")
	if len(frames) != 2 {
		t.Fatalf("got %d frames", len(frames))
	}
	if string(frames[0].Data) != " indented" {
		t.Errorf("data = %q, want %q", frames[0].Data, " indented")
	}
	if string(frames[1].Data) != "tight" {
		t.Errorf("data = %q, want %q", frames[1].Data, "tight")
	}
}

func TestSSEReader_EventWithoutData(t *testing.T) {
	frames := readAll(t, "event: done\n\n")
	if len(frames) != 1 || frames[0].Event != "done" || len(frames[0].Data) != 0 {
		t.Fatalf("frames = %+v", frames)
	}
}

func TestSSEReader_TrailingEventWithoutBlankLine(t *testing.T) {
	frames := readAll(t, "event: done\ndata: {}")
	if len(frames) != 1 || frames[0].Event != "done" || string(frames[0].Data) != "{}" {
		t.Fatalf("frames = %+v", frames)
	}
}

func TestSSEReader_LineTooLarge(t *testing.T) {
	r := NewSSEReaderSize(strings.NewReader("data: "+strings.Repeat("x", 1024)+"\n\n"), 512)
	if _, err := r.ReadFrame(); !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("err = %v, want ErrFrameTooLarge", err)
	}
}

func TestSSEReader_DefaultAcceptsLargeLine(t *testing.T) {
	big := strings.Repeat("x", 200*1024)
	frames := readAll(t, "event: BOT_Response\ndata: "+big+"\n\n")
	if len(frames) != 1 || len(frames[0].Data) != len(big) {
		t.Fatalf("got %d frames", len(frames))
	}
}
