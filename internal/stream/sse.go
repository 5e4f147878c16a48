// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bufio"
	"bytes"
	"io"
)

// DefaultMaxLineSize bounds a single SSE line (1MB) unless the reader is
// given another limit.
const DefaultMaxLineSize = 1024 * 1024

// Frame is one server-sent event.
type Frame struct {
	Event string
	Data  []byte
}

// SSEReader reads server-sent events from a stream.
type SSEReader struct {
	reader  *bufio.Reader
	maxLine int
}

// NewSSEReader creates a new SSE reader with DefaultMaxLineSize.
func NewSSEReader(r io.Reader) *SSEReader {
	return NewSSEReaderSize(r, DefaultMaxLineSize)
}

// NewSSEReaderSize creates a reader whose lines may be at most maxLine
// bytes. A non-positive maxLine means DefaultMaxLineSize.
func NewSSEReaderSize(r io.Reader, maxLine int) *SSEReader {
	if maxLine <= 0 {
		maxLine = DefaultMaxLineSize
	}
	return &SSEReader{reader: bufio.NewReaderSize(r, 4096), maxLine: maxLine}
}

// ReadFrame reads the next event. Multi-line data fields are joined with
// "\n". Comments and id/retry fields are skipped. Returns io.EOF when the
// stream ends with no pending event.
func (s *SSEReader) ReadFrame() (Frame, error) {
	var frame Frame
	var dataLines [][]byte
	pending := false

	flush := func() Frame {
		frame.Data = bytes.Join(dataLines, []byte("\n"))
		return frame
	}

	for {
		line, err := s.readLine()
		if err != nil {
			if err == io.EOF && pending {
				return flush(), nil
			}
			return Frame{}, err
		}

		// Blank line dispatches the event
		if len(line) == 0 {
			if pending {
				return flush(), nil
			}
			continue
		}

		if line[0] == ':' {
			continue
		}

		field, value := line, []byte(nil)
		if i := bytes.IndexByte(line, ':'); i >= 0 {
			field, value = line[:i], line[i+1:]
			// A single leading space is part of the syntax, not the value.
			if len(value) > 0 && value[0] == ' ' {
				value = value[1:]
			}
		}

		switch string(field) {
		case "event":
			frame.Event = string(value)
			pending = true
		case "data":
			dataLines = append(dataLines, append([]byte(nil), value...))
			pending = true
		}
	}
}

// readLine returns the next line without its terminator.
func (s *SSEReader) readLine() ([]byte, error) {
	var line []byte
	for {
		chunk, isPrefix, err := s.reader.ReadLine()
		if err != nil {
			if len(line) > 0 && err == io.EOF {
				return line, nil
			}
			return nil, err
		}
		line = append(line, chunk...)
		if len(line) > s.maxLine {
			return nil, ErrFrameTooLarge
		}
		if !isPrefix {
			return line, nil
		}
	}
}
