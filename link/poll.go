// File: link/poll.go
// Implements the Poll state machine: drain queued events, flush TX,
// read RX, drive handshake, then decode and publish slices. Split
// into one function per ordered step so each can be reasoned about
// (and tested) independently of the others.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package link

import (
	"errors"
	"io"

	"github.com/momentics/hioload-link/codec"
)

// Poll drives the link forward by at most one observable step and
// reports whether an event was produced into ev. Queued events take
// priority over fresh I/O; TX is always flushed before RX is read;
// at most one SLICE event is ever outstanding at a time.
func (l *Link) Poll(ev *codec.Event) bool {
	if ev == nil {
		return false
	}
	*ev = codec.Event{}

	if pending, ok := l.evq.Pop(); ok {
		*ev = pending
		if pending.Type == codec.EventClose && l.state != StateClosed {
			l.state = StateClosed
			l.closeQueued = false
			l.arena.Release()
		}
		return true
	}

	if l.state == StateClosed {
		return false
	}

	if l.cd == nil {
		ev.Type = codec.EventError
		ev.Err = codec.ErrUnsupported
		if l.stats != nil {
			l.stats.AddError()
		}
		return true
	}

	if l.txLen > 0 {
		return l.flushTX(ev)
	}

	// Give the codec one chance to speak before anything is read: a
	// client-role codec composes its opening request here with an
	// empty RX window and stages it into TX, the one case where
	// handshake must run before (not after) a read. A responder-role
	// codec has nothing to say yet and reports Incomplete with no
	// output, identical to skipping this call outright.
	if l.state == StateHandshake && !l.handshakeStarted {
		l.handshakeStarted = true
		if handled := l.doHandshake(ev); handled {
			return true
		}
		if l.txLen > 0 {
			return false
		}
	}

	if l.rxLen < len(l.rx) {
		if handled, produced := l.readRX(ev); handled {
			return produced
		}
	}

	if l.state == StateHandshake {
		return l.doHandshake(ev)
	}
	return l.decodeAndSlice(ev)
}

// enqueueClose stages exactly one CLOSE event, or reports an overflow
// into ev if the event queue is already full.
func (l *Link) enqueueClose(ev *codec.Event) bool {
	if l.evq.Push(codec.Event{Type: codec.EventClose}) {
		l.closeQueued = true
		return false
	}
	ev.Type = codec.EventError
	ev.Err = codec.ErrOverflow
	if l.stats != nil {
		l.stats.AddError()
	}
	return true
}

// flushTX writes the pending TX bytes to io, retrying a short write on
// the next Poll call. Once TX fully drains, it queues the single
// CLOSE event once the link is closing and no slice is outstanding.
func (l *Link) flushTX(ev *codec.Event) bool {
	n, err := l.io.Write(l.tx[:l.txLen])
	if err != nil {
		ev.Type = codec.EventError
		ev.Err = codec.ErrIO
		if l.stats != nil {
			l.stats.AddError()
		}
		return true
	}

	if n < l.txLen {
		copy(l.tx, l.tx[n:l.txLen])
		l.txLen -= n
	} else {
		l.txLen = 0
	}

	if l.txLen == 0 && !l.closeQueued && l.state >= StateClosing && !l.sliceOutstanding {
		return l.enqueueClose(ev)
	}
	return false
}

// readRX attempts a single read into the RX ring. handled reports
// whether Poll should return immediately with produced as its result;
// handled is false when the read succeeded with new bytes and control
// should fall through to handshake/decode within the same Poll call,
// matching the reference engine's single-poll read-then-process path.
func (l *Link) readRX(ev *codec.Event) (handled bool, produced bool) {
	n, err := l.io.Read(l.rx[l.rxLen:])
	if err != nil && !errors.Is(err, io.EOF) {
		ev.Type = codec.EventError
		ev.Err = codec.ErrIO
		if l.stats != nil {
			l.stats.AddError()
		}
		return true, true
	}

	if n == 0 {
		if l.state < StateClosing {
			l.state = StateClosing
		}
		if !l.closeQueued && !l.sliceOutstanding {
			return true, l.enqueueClose(ev)
		}
		return true, false
	}

	l.rxLen += n
	return false, false
}

// doHandshake drives one step of the attached codec's handshake over
// the accumulated RX window, consuming whatever prefix the codec
// reports and appending any produced bytes to TX.
func (l *Link) doHandshake(ev *codec.Event) bool {
	status, consumed, outLen, err := l.cd.Handshake(l.codecState, l.rx[:l.rxLen], l.tx[l.txLen:])

	if outLen > 0 {
		l.txLen += outLen
	}
	if consumed > l.rxLen {
		consumed = l.rxLen
	}
	copy(l.rx, l.rx[consumed:l.rxLen])
	l.rxLen -= consumed

	switch {
	case err != nil || status == codec.HandshakeFailed:
		ev.Type = codec.EventError
		ev.Err = codec.ErrProtocol
		if l.stats != nil {
			l.stats.AddError()
		}
		return true
	case status == codec.HandshakeComplete:
		l.state = StateOpen
		ev.Type = codec.EventOpen
		return true
	default: // HandshakeIncomplete
		return false
	}
}

// linkSink adapts a Link's event queue and frame-length tracking to
// the narrow codec.DecodeSink interface a Decode function consumes.
type linkSink struct {
	l *Link
}

func (s linkSink) Push(ev codec.Event) bool {
	if s.l.stats != nil && ev.Type == codec.EventFrame {
		s.l.stats.AddFrameIn(int(ev.Frame.Length))
	}
	return s.l.evq.Push(ev)
}

func (s linkSink) SetFrameLen(n int) {
	s.l.frameLen = n
}

// decodeAndSlice runs the codec's Decode over the current RX window,
// then — if any bytes are ready — copies a bounded slice of RX into
// the arena and queues a SLICE event (delivered on a subsequent Poll
// call, in the same deferred fashion as CLOSE). At most one slice may
// be outstanding at a time; violating that is a programmer error.
//
// Decode runs over the full RX window, not a window pre-clamped to
// the in-progress frame length: frame_len only becomes known (or
// changes) as a side effect of this very call via sink.SetFrameLen,
// so the slice bound below must be computed from the post-Decode
// value of frameLen — otherwise a read that holds one complete frame
// plus the start of the next would slice straight across the frame
// boundary the FRAME event just reported.
func (l *Link) decodeAndSlice(ev *codec.Event) bool {
	if l.cd.Decode != nil {
		r := l.cd.Decode(l.codecState, l.rx[:l.rxLen], linkSink{l})
		if r != codec.OK {
			ev.Type = codec.EventError
			ev.Err = r
			if l.stats != nil {
				l.stats.AddError()
			}
			return true
		}
	}

	sliceLen := l.rxLen
	if l.frameLen > 0 && l.frameLen < sliceLen {
		sliceLen = l.frameLen
	}
	if sliceLen > l.cfg.MaxSlice {
		sliceLen = l.cfg.MaxSlice
	}
	if sliceLen == 0 {
		return false
	}

	if l.sliceOutstanding {
		panic("link: decode produced a slice while one is still outstanding")
	}

	snap := l.arena.Snapshot()
	dst, ok := l.arena.Alloc(uint64(sliceLen))
	if !ok {
		ev.Type = codec.EventError
		ev.Err = codec.ErrOverflow
		if l.stats != nil {
			l.stats.AddError()
		}
		return true
	}
	copy(dst, l.rx[:sliceLen])

	sliceEv := codec.Event{
		Type: codec.EventSlice,
		Slice: codec.Slice{
			Data:     dst,
			Flags:    codec.SliceBegin | codec.SliceEnd,
			Snapshot: snap,
		},
	}

	if !l.evq.Push(sliceEv) {
		l.arena.Reset(snap)
		ev.Type = codec.EventError
		ev.Err = codec.ErrOverflow
		if l.stats != nil {
			l.stats.AddError()
		}
		return true
	}

	copy(l.rx, l.rx[sliceLen:l.rxLen])
	l.rxLen -= sliceLen
	l.sliceOutstanding = true
	if l.frameLen > 0 {
		l.frameLen -= sliceLen
	}
	return false
}
