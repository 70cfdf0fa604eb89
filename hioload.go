// File: hioload.go
// Package hioload is the module's root facade: the thin public
// surface (New, AttachCodec, Poll, Release, Send, Close) a caller
// drives without reaching into the link/codec/config/arena packages
// directly. It owns no behavior of its own — every call forwards
// straight to the underlying *link.Link — matching the teacher
// lineage's root-facade idiom of a small composition point over the
// real subsystems rather than a reimplementation of them.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package hioload

import (
	"github.com/momentics/hioload-link/codec"
	"github.com/momentics/hioload-link/config"
	"github.com/momentics/hioload-link/link"
	"github.com/momentics/hioload-link/metrics"
)

// Re-exported vocabulary so a caller can depend on this single
// package for the common path instead of importing codec/config
// directly. Types alias their underlying definitions exactly; there
// is no behavioral difference between hioload.Event and codec.Event.
type (
	Event  = codec.Event
	Slice  = codec.Slice
	Result = codec.Result
	Codec  = codec.Codec
	Config = config.Config
)

// Result codes, re-exported for convenience.
const (
	OK             = codec.OK
	ErrIO          = codec.ErrIO
	ErrProtocol    = codec.ErrProtocol
	ErrOverflow    = codec.ErrOverflow
	ErrState       = codec.ErrState
	ErrUnsupported = codec.ErrUnsupported
	ErrClosed      = codec.ErrClosed
)

// DefaultConfig returns the reference engine's default buffer sizes
// and limits; see config.DefaultConfig for the concrete values.
func DefaultConfig() Config {
	return config.DefaultConfig()
}

// Link is the public handle callers hold: a single connection driving
// a user-supplied codec.IO transport through the link engine's state
// machine. It embeds *link.Link so every method documented on that
// type (State, AttachCodec, Poll, Release, Send, Close) is available
// directly on a *Link value returned by New.
type Link struct {
	*link.Link
}

// New validates cfg and builds a Link ready to have a codec attached
// via AttachCodec. io must be non-nil; see codec.IO for the callback
// contract a transport must satisfy.
func New(io codec.IO, cfg Config, stats *metrics.LinkStats) (*Link, error) {
	var opts []link.Option
	if stats != nil {
		opts = append(opts, link.WithStats(stats))
	}
	l, err := link.New(io, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Link{Link: l}, nil
}
