// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package protocol

import (
	"bytes"
	"encoding/json"
	"log"

	"github.com/jeranaias/quill-tui/internal/util"
)

// =============================================================================
// STREAM PARSER
// =============================================================================

// MaxLineSize is the maximum accepted size for a single stream record (64KB).
// Oversized lines are dropped like any other malformed record.
const MaxLineSize = 64 * 1024

// dataPrefix is the SSE field prefix carrying a JSON payload.
var dataPrefix = []byte("data:")

// doneSentinel is the literal end-of-stream marker. It is distinct from
// the per-event "done" record: the sentinel frames the transport, the
// event finalizes the turn.
var doneSentinel = []byte("[DONE]")

// Parser is an incremental decoder for the chat stream.
//
// Feed may be called with arbitrary byte fragments; complete lines are
// decoded immediately while a trailing partial line is held in an
// internal buffer until the next call. The buffer is never exposed to
// the caller.
type Parser struct {
	partial  bytes.Buffer
	sentinel bool
	dropped  int
}

// NewParser creates an empty stream parser.
func NewParser() *Parser {
	return &Parser{}
}

// Feed consumes the next chunk of raw bytes and returns all complete
// events it contained. The returned bool is true once the [DONE]
// sentinel has been seen; no events are decoded after it.
//
// Malformed JSON payloads and unrecognized record types are logged and
// skipped. They never abort the stream.
func (p *Parser) Feed(data []byte) ([]Event, bool) {
	if p.sentinel {
		return nil, true
	}

	p.partial.Write(data)

	var events []Event
	for {
		raw := p.partial.Bytes()
		idx := bytes.IndexByte(raw, '\n')
		if idx < 0 {
			break
		}

		line := make([]byte, idx)
		copy(line, raw[:idx])
		p.partial.Next(idx + 1)

		ev, ok, done := p.parseLine(line)
		if done {
			p.sentinel = true
			return events, true
		}
		if ok {
			events = append(events, ev)
		}
	}

	// A stuck partial line that exceeds the size limit can never become
	// a valid record; drop it so the stream keeps flowing.
	if p.partial.Len() > MaxLineSize {
		log.Printf("PROTOCOL | dropping oversized partial line: %d bytes", p.partial.Len())
		p.partial.Reset()
		p.dropped++
	}

	return events, false
}

// Close flushes any buffered trailing line that arrived without a final
// newline. Call it when the underlying stream reaches EOF.
func (p *Parser) Close() []Event {
	if p.sentinel || p.partial.Len() == 0 {
		return nil
	}
	line := append([]byte(nil), p.partial.Bytes()...)
	p.partial.Reset()

	ev, ok, done := p.parseLine(line)
	if done {
		p.sentinel = true
		return nil
	}
	if ok {
		return []Event{ev}
	}
	return nil
}

// Terminated reports whether the [DONE] sentinel has been seen.
func (p *Parser) Terminated() bool {
	return p.sentinel
}

// Dropped returns the number of records skipped as malformed.
func (p *Parser) Dropped() int {
	return p.dropped
}

// parseLine decodes a single stream line.
// Returns (event, ok, sentinelSeen).
func (p *Parser) parseLine(line []byte) (Event, bool, bool) {
	line = bytes.TrimRight(line, "\r")

	// Blank lines separate SSE records; comment lines start with ':'.
	if len(line) == 0 || line[0] == ':' {
		return Event{}, false, false
	}

	if !bytes.HasPrefix(line, dataPrefix) {
		// Other SSE fields (id:, event:, retry:) are not used by the
		// backend; ignore them.
		return Event{}, false, false
	}

	payload := bytes.TrimSpace(line[len(dataPrefix):])
	if len(payload) == 0 {
		return Event{}, false, false
	}

	if bytes.Equal(payload, doneSentinel) {
		return Event{}, false, true
	}

	if len(payload) > MaxLineSize {
		p.dropped++
		log.Printf("PROTOCOL | skipping oversized record: %d bytes", len(payload))
		return Event{}, false, false
	}

	var w wireEvent
	if err := json.Unmarshal(payload, &w); err != nil {
		p.dropped++
		log.Printf("PROTOCOL | skipping malformed record: %v (payload=%s)",
			err, util.TruncateRunes(string(payload), 80))
		return Event{}, false, false
	}

	ev, ok := decodeEvent(&w)
	if !ok && w.Type != "status" && w.Type != "tool_complete" {
		p.dropped++
		log.Printf("PROTOCOL | skipping unrecognized record type %q", w.Type)
	}
	return ev, ok, false
}
