// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log"
)

// =============================================================================
// STREAM RECORDS
// =============================================================================

// RecordType tags one unit of the streaming chat protocol.
type RecordType string

const (
	// RecordContent carries an incremental text fragment for the active
	// assistant message.
	RecordContent RecordType = "content"

	// RecordMeta carries out-of-band metadata: the backend-assigned session
	// id and/or the citation list. Normally it appears once per stream, but
	// the decoder tolerates repeats; consumers take the last value seen for
	// each field.
	RecordMeta RecordType = "meta"
)

// Record is one parsed unit of the streaming protocol.
type Record struct {
	Type      RecordType `json:"type"`
	Data      string     `json:"data,omitempty"`
	SessionID *int       `json:"sessionId,omitempty"`
	Sources   []string   `json:"sources,omitempty"`
}

// =============================================================================
// STREAM DECODER
// =============================================================================

// readBufferSize is the chunk size for reads from the response body. The
// decoder makes no assumption about alignment; records may split anywhere.
const readBufferSize = 4096

// Decoder converts a raw byte stream into an ordered sequence of Records.
//
// Records are UTF-8 JSON objects terminated by a newline. Network chunks
// arrive at arbitrary boundaries, so the decoder keeps a carry-over buffer:
// each read is appended to the carry-over, complete lines are parsed off the
// front, and the trailing partial line waits for the next read. A record
// that fails to parse, or whose type is unrecognized, is logged and skipped;
// it never aborts the stream. A non-empty carry-over left at stream end that
// does not parse is discarded.
//
// A Decoder is single-use: it terminates when the underlying stream ends and
// cannot be restarted.
type Decoder struct {
	r       io.Reader
	carry   []byte
	pending [][]byte
	buf     []byte
	eof     bool
}

// NewDecoder creates a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		r:   r,
		buf: make([]byte, readBufferSize),
	}
}

// Next returns the next decoded record. It returns io.EOF when the stream
// has ended and all complete records have been yielded.
func (d *Decoder) Next() (*Record, error) {
	for {
		// Drain queued complete lines first.
		for len(d.pending) > 0 {
			line := d.pending[0]
			d.pending = d.pending[1:]

			rec, ok := parseRecord(line)
			if ok {
				return rec, nil
			}
		}

		if d.eof {
			// Trailing partial line: parse it if possible, drop it if not.
			if len(d.carry) > 0 {
				line := d.carry
				d.carry = nil
				if rec, ok := parseRecord(line); ok {
					return rec, nil
				}
			}
			return nil, io.EOF
		}

		if err := d.fill(); err != nil {
			return nil, err
		}
	}
}

// fill reads one chunk and splits complete lines into the pending queue.
func (d *Decoder) fill() error {
	n, err := d.r.Read(d.buf)
	if n > 0 {
		d.carry = append(d.carry, d.buf[:n]...)

		segments := bytes.Split(d.carry, []byte{'\n'})
		// All but the last segment are complete records; the last is the
		// new carry-over (possibly empty when the chunk ended on a newline).
		for _, seg := range segments[:len(segments)-1] {
			d.pending = append(d.pending, seg)
		}
		last := segments[len(segments)-1]
		d.carry = append([]byte(nil), last...)
	}

	if err != nil {
		if errors.Is(err, io.EOF) {
			d.eof = true
			return nil
		}
		return err
	}
	return nil
}

// parseRecord parses one line into a Record. Blank lines, malformed JSON,
// and unknown record types are skipped.
func parseRecord(line []byte) (*Record, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil, false
	}

	var rec Record
	if err := json.Unmarshal(line, &rec); err != nil {
		log.Printf("stream: skipping malformed record: %v", err)
		return nil, false
	}

	switch rec.Type {
	case RecordContent, RecordMeta:
		return &rec, true
	default:
		log.Printf("stream: skipping record with unknown type %q", rec.Type)
		return nil, false
	}
}
