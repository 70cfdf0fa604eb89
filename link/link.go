// File: link/link.go
// Package link implements the core state machine of the engine: a
// single wire connection driven by Poll against a user-supplied
// codec.IO backend, publishing decoded protocol events and
// arena-backed byte slices with the ordering and lifetime guarantees
// documented in the top-level specification.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package link

import (
	"github.com/momentics/hioload-link/arena"
	"github.com/momentics/hioload-link/codec"
	"github.com/momentics/hioload-link/config"
	"github.com/momentics/hioload-link/evqueue"
	"github.com/momentics/hioload-link/metrics"
)

// State is the lifecycle stage of a Link. States only ever move
// forward; Closed is terminal.
type State int

const (
	StateInit State = iota
	StateHandshake
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateHandshake:
		return "handshake"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Link is a single connection owned by exactly one logical executor.
// All fields are touched only from inside Poll/Send/Close/Release,
// called synchronously from the owning goroutine; concurrent use of
// one Link from multiple goroutines is undefined, matching the
// engine's single-threaded cooperative model.
type Link struct {
	cfg   config.Config
	io    codec.IO
	state State

	rx    []byte
	rxLen int

	tx    []byte
	txLen int

	frameLen int

	cd         *codec.Codec
	codecState any

	evq   *evqueue.Queue
	arena *arena.Arena

	sliceOutstanding bool
	closeQueued      bool
	handshakeStarted bool

	stats *metrics.LinkStats
}

// Option configures optional Link behavior at construction time.
type Option func(*Link)

// WithStats attaches a metrics.LinkStats that Poll/Send will update as
// a side channel. Purely observational: it never affects control flow.
func WithStats(s *metrics.LinkStats) Option {
	return func(l *Link) { l.stats = s }
}

// New validates cfg and builds a Link ready to have a codec attached.
// The returned Link owns an arena sized cfg.RXCapacity+cfg.TXCapacity,
// matching the reference implementation's single combined arena.
func New(io codec.IO, cfg config.Config, opts ...Option) (*Link, error) {
	if io == nil {
		return nil, codec.ErrState
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a, err := arena.New(uint64(cfg.RXCapacity + cfg.TXCapacity))
	if err != nil {
		return nil, err
	}

	l := &Link{
		cfg:   cfg,
		io:    io,
		state: StateInit,
		rx:    make([]byte, cfg.RXCapacity),
		tx:    make([]byte, cfg.TXCapacity),
		evq:   evqueue.New(cfg.EventQueueCap),
		arena: a,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// State returns the link's current lifecycle stage.
func (l *Link) State() State {
	return l.state
}

// AttachCodec stores the codec and its caller-owned state, and moves
// the link from Init into the Handshake state. The codec must provide
// a Handshake function; violating this is a programmer error.
func (l *Link) AttachCodec(c *codec.Codec, state any) {
	if c == nil || c.Handshake == nil {
		panic("link: AttachCodec requires a codec with a non-nil Handshake")
	}
	l.cd = c
	l.codecState = state
	l.state = StateHandshake
	l.handshakeStarted = false
}

// Release rolls the arena back to the snapshot captured when s was
// produced, making its memory available for reuse and clearing the
// at-most-one-outstanding-slice gate. Calling Release with no slice
// outstanding is a programmer error.
func (l *Link) Release(s codec.Slice) {
	if !l.sliceOutstanding {
		panic("link: Release called with no slice outstanding")
	}
	l.arena.Reset(s.Snapshot)
	l.sliceOutstanding = false
}

// Send stages an encoded application message or control frame at the
// TX tail via the attached codec's Encode function. It does not write
// synchronously; the bytes are flushed by a subsequent Poll call.
func (l *Link) Send(opcode uint8, data []byte) error {
	if l.cd == nil {
		return codec.ErrState
	}
	if l.cd.Encode == nil {
		return codec.ErrUnsupported
	}
	if l.txLen >= len(l.tx) {
		return codec.ErrOverflow
	}

	n, err := l.cd.Encode(l.codecState, opcode, data, l.tx[l.txLen:])
	if err != nil {
		return err
	}

	l.txLen += n
	if l.stats != nil {
		l.stats.AddFrameOut(n)
	}
	return nil
}

// Close initiates an orderly protocol-level close: it is a no-op once
// the link is already Closed, fails with ErrState if TX is non-empty
// (a pending send must drain first), and otherwise stages a close
// frame via the codec's Encode function, leaving the flush itself to
// subsequent Poll calls.
func (l *Link) Close(code uint16, opcode uint8) error {
	if l.state == StateClosed {
		return nil
	}
	if l.txLen != 0 {
		return codec.ErrState
	}

	l.state = StateClosing

	if l.cd != nil && l.cd.Encode != nil {
		payload := [2]byte{byte(code >> 8), byte(code)}
		n, err := l.cd.Encode(l.codecState, opcode, payload[:], l.tx)
		if err == nil {
			l.txLen = n
		}
	}
	return nil
}
