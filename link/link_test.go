// File: link/link_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package link_test

import (
	"testing"

	"github.com/momentics/hioload-link/codec"
	"github.com/momentics/hioload-link/config"
	"github.com/momentics/hioload-link/fake"
	"github.com/momentics/hioload-link/link"
)

// noopHandshake completes as soon as it sees any input, consuming
// everything offered and writing nothing back; it reports Incomplete
// on an empty window so the link's speak-first priming call (see
// link.Poll) is a no-op for this responder-role fixture, the same as
// a real handshake that has nothing to validate yet. Good enough for
// tests that only care about post-handshake behavior.
func noopHandshake(state any, in []byte, out []byte) (codec.HandshakeStatus, int, int, error) {
	if len(in) == 0 {
		return codec.HandshakeIncomplete, 0, 0, nil
	}
	return codec.HandshakeComplete, len(in), 0, nil
}

// echoEncode copies payload verbatim into out, ignoring opcode.
func echoEncode(state any, opcode uint8, payload []byte, out []byte) (int, error) {
	return copy(out, payload), nil
}

func newTestLink(t *testing.T, cfg config.Config, cd *codec.Codec) (*link.Link, *fake.IO) {
	t.Helper()
	fio := fake.NewIO()
	l, err := link.New(fio, cfg)
	if err != nil {
		t.Fatalf("link.New: %v", err)
	}
	l.AttachCodec(cd, nil)
	return l, fio
}

func completeHandshake(t *testing.T, l *link.Link, fio *fake.IO) {
	t.Helper()
	fio.FeedRead([]byte{0x00}) // handshake "kick": one byte is enough for noopHandshake
	var ev codec.Event
	if ok := l.Poll(&ev); !ok || ev.Type != codec.EventOpen {
		t.Fatalf("expected OPEN, got ok=%v ev=%+v", ok, ev)
	}
}

func TestSliceLifetimeBlocksSecondSliceUntilReleased(t *testing.T) {
	cd := &codec.Codec{Handshake: noopHandshake}
	l, fio := newTestLink(t, config.DefaultConfig(), cd)
	completeHandshake(t, l, fio)

	fio.FeedRead([]byte("payload"))
	var ev codec.Event
	if ok := l.Poll(&ev); ok {
		t.Fatalf("expected decode-and-slice poll to defer, got %+v", ev)
	}
	if ok := l.Poll(&ev); !ok || ev.Type != codec.EventSlice {
		t.Fatalf("expected SLICE event, got ok=%v ev=%+v", ok, ev)
	}
	slice := ev.Slice

	// No more RX is pending, so a further poll must not produce another
	// SLICE while this one is outstanding and unreleased.
	if ok := l.Poll(&ev); ok {
		t.Fatalf("expected no event while slice outstanding and RX empty, got %+v", ev)
	}

	l.Release(slice)

	fio.FeedRead([]byte("more"))
	if ok := l.Poll(&ev); ok {
		t.Fatalf("expected deferred decode-and-slice poll, got %+v", ev)
	}
	if ok := l.Poll(&ev); !ok || ev.Type != codec.EventSlice {
		t.Fatalf("expected second SLICE after release, got ok=%v ev=%+v", ok, ev)
	}
}

func TestReleaseWithNoOutstandingSlicePanics(t *testing.T) {
	cd := &codec.Codec{Handshake: noopHandshake}
	l, fio := newTestLink(t, config.DefaultConfig(), cd)
	completeHandshake(t, l, fio)

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic releasing with no outstanding slice")
		}
	}()
	l.Release(codec.Slice{})
}

func TestTXFlushedBeforeRXOnEntry(t *testing.T) {
	cd := &codec.Codec{Handshake: noopHandshake, Encode: echoEncode}
	l, fio := newTestLink(t, config.DefaultConfig(), cd)
	completeHandshake(t, l, fio)

	if err := l.Send(0, []byte("staged")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	// Stage RX bytes too; if poll read RX before flushing TX, nothing
	// would have been written yet and the Sent check below would fail.
	fio.FeedRead([]byte("rx-data"))

	var ev codec.Event
	if ok := l.Poll(&ev); ok {
		t.Fatalf("expected TX flush to produce no event, got %+v", ev)
	}
	if string(fio.Sent()) != "staged" {
		t.Fatalf("expected TX bytes flushed first, got %q", fio.Sent())
	}
}

func TestCloseIdempotenceAfterCloseDelivered(t *testing.T) {
	cd := &codec.Codec{Handshake: noopHandshake}
	l, fio := newTestLink(t, config.DefaultConfig(), cd)
	completeHandshake(t, l, fio)

	fio.CloseRead()

	var ev codec.Event
	if ok := l.Poll(&ev); ok {
		t.Fatalf("expected no event while CLOSE is only queued, got %+v", ev)
	}
	if ok := l.Poll(&ev); !ok || ev.Type != codec.EventClose {
		t.Fatalf("expected CLOSE event, got ok=%v ev=%+v", ok, ev)
	}
	if l.State() != link.StateClosed {
		t.Fatalf("expected StateClosed, got %v", l.State())
	}

	for i := 0; i < 3; i++ {
		if ok := l.Poll(&ev); ok {
			t.Fatalf("expected poll to return false forever after CLOSE, got %+v", ev)
		}
	}
	if err := l.Close(1000, 0); err != nil {
		t.Fatalf("Close on an already-closed link should be a no-op, got %v", err)
	}
}

func TestRemoteEOFEmitsExactlyOneClose(t *testing.T) {
	cd := &codec.Codec{Handshake: noopHandshake}
	l, fio := newTestLink(t, config.DefaultConfig(), cd)
	completeHandshake(t, l, fio)

	fio.CloseRead()

	closes := 0
	var ev codec.Event
	for i := 0; i < 5; i++ {
		if ok := l.Poll(&ev); ok && ev.Type == codec.EventClose {
			closes++
		}
	}
	if closes != 1 {
		t.Fatalf("expected exactly one CLOSE event, got %d", closes)
	}
}

func TestDecodeProtocolErrorRepeatsWhileInputStillTriggersIt(t *testing.T) {
	badDecode := func(state any, data []byte, sink codec.DecodeSink) codec.Result {
		if len(data) > 0 && data[0] == 0xFF {
			return codec.ErrProtocol
		}
		return codec.OK
	}
	cd := &codec.Codec{Handshake: noopHandshake, Decode: badDecode}
	l, fio := newTestLink(t, config.DefaultConfig(), cd)
	completeHandshake(t, l, fio)

	fio.FeedRead([]byte{0xFF})
	var ev codec.Event
	if ok := l.Poll(&ev); !ok || ev.Type != codec.EventError || ev.Err != codec.ErrProtocol {
		t.Fatalf("expected first ErrProtocol, got ok=%v ev=%+v", ok, ev)
	}

	// The offending byte was never sliced out of RX, so a second poll
	// over the same (plus freshly arrived) bytes triggers it again.
	fio.FeedRead([]byte{0x00})
	if ok := l.Poll(&ev); !ok || ev.Type != codec.EventError || ev.Err != codec.ErrProtocol {
		t.Fatalf("expected repeated ErrProtocol, got ok=%v ev=%+v", ok, ev)
	}
}

func TestSliceSizeCappedByMaxSlice(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.MaxSlice = 4
	cfg.EventQueueCap = 16
	cd := &codec.Codec{Handshake: noopHandshake}
	l, fio := newTestLink(t, cfg, cd)
	completeHandshake(t, l, fio)

	fio.FeedRead([]byte("0123456789")) // 10 bytes, MaxSlice=4 -> 4,4,2

	var ev codec.Event
	if ok := l.Poll(&ev); ok {
		t.Fatalf("expected deferred decode-and-slice poll, got %+v", ev)
	}

	var lens []int
	for i := 0; i < 3; i++ {
		if ok := l.Poll(&ev); !ok || ev.Type != codec.EventSlice {
			t.Fatalf("expected SLICE #%d, got ok=%v ev=%+v", i, ok, ev)
		}
		lens = append(lens, len(ev.Slice.Data))
		l.Release(ev.Slice)
		// make the remaining bytes available for the next poll pass
		if i < 2 {
			if ok := l.Poll(&ev); ok {
				t.Fatalf("expected deferred decode-and-slice poll, got %+v", ev)
			}
		}
	}

	if len(lens) != 3 || lens[0] != 4 || lens[1] != 4 || lens[2] != 2 {
		t.Fatalf("expected slice lengths [4 4 2], got %v", lens)
	}
}

func TestSendBeforeCodecAttachedIsStateError(t *testing.T) {
	fio := fake.NewIO()
	l, err := link.New(fio, config.DefaultConfig())
	if err != nil {
		t.Fatalf("link.New: %v", err)
	}
	if err := l.Send(0, []byte("x")); err != codec.ErrState {
		t.Fatalf("expected ErrState, got %v", err)
	}
}

func TestNewRejectsNilIO(t *testing.T) {
	if _, err := link.New(nil, config.DefaultConfig()); err == nil {
		t.Fatalf("expected error constructing a Link with nil IO")
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.RXCapacity = 1
	if _, err := link.New(fake.NewIO(), cfg); err == nil {
		t.Fatalf("expected error constructing a Link with an undersized RX capacity")
	}
}
