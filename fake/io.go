// File: fake/io.go
// Package fake provides in-memory test doubles for codec.IO, giving
// link and protocol/websocket tests predictable, controllable
// transport behavior without real sockets.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package fake

import (
	"io"
	"sync"
)

// IO is a fake implementation of codec.IO backed by in-memory queues.
// FeedRead stages bytes for the next Read calls; Sent returns
// everything written so far. Safe for use from a single goroutine per
// the link engine's own concurrency contract.
type IO struct {
	mu       sync.Mutex
	pending  []byte
	sent     []byte
	eof      bool
	readErr  error
	writeErr error
	shortN   int // if > 0, Write accepts at most this many bytes per call
}

// NewIO returns an empty fake IO with nothing staged to read.
func NewIO() *IO {
	return &IO{}
}

// FeedRead appends data to the queue future Read calls will drain.
func (f *IO) FeedRead(data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, data...)
}

// CloseRead marks the read side as exhausted: once pending bytes are
// drained, subsequent Read calls report clean EOF.
func (f *IO) CloseRead() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.eof = true
}

// SetReadError forces the next Read call (once pending data is
// drained) to fail with err.
func (f *IO) SetReadError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readErr = err
}

// SetWriteError forces future Write calls to fail with err.
func (f *IO) SetWriteError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeErr = err
}

// SetShortWrite caps every future Write call to at most n bytes,
// exercising the link engine's partial-write retry path.
func (f *IO) SetShortWrite(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shortN = n
}

// Sent returns a copy of every byte written via Write so far.
func (f *IO) Sent() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]byte, len(f.sent))
	copy(out, f.sent)
	return out
}

// Read implements codec.IO.
func (f *IO) Read(buf []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.pending) > 0 {
		n := copy(buf, f.pending)
		f.pending = f.pending[n:]
		return n, nil
	}
	if f.readErr != nil {
		return 0, f.readErr
	}
	if f.eof {
		return 0, io.EOF
	}
	return 0, nil
}

// Write implements codec.IO.
func (f *IO) Write(buf []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.writeErr != nil {
		return 0, f.writeErr
	}
	n := len(buf)
	if f.shortN > 0 && n > f.shortN {
		n = f.shortN
	}
	f.sent = append(f.sent, buf[:n]...)
	return n, nil
}
