// File: hioload_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package hioload_test

import (
	"testing"

	"github.com/momentics/hioload-link"
	"github.com/momentics/hioload-link/codec"
	"github.com/momentics/hioload-link/fake"
	"github.com/momentics/hioload-link/protocol/websocket"
)

// TestNewAttachPollHandshakeAndEcho exercises the root facade end to
// end: a real handshake request drives the link into StateOpen via
// the re-exported New/AttachCodec/Poll surface, without any caller
// code touching the link or config packages directly (only codec's
// event-type constants are used).
func TestNewAttachPollHandshakeAndEcho(t *testing.T) {
	fio := fake.NewIO()
	l, err := hioload.New(fio, hioload.DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("hioload.New: %v", err)
	}

	cd, st := websocket.NewServerCodec()
	l.AttachCodec(cd, st)

	req := "GET /chat HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n" +
		"Sec-WebSocket-Version: 13\r\n\r\n"
	fio.FeedRead([]byte(req))

	var ev hioload.Event
	if ok := l.Poll(&ev); !ok || ev.Type != codec.EventOpen {
		t.Fatalf("expected OPEN, got ok=%v ev=%+v", ok, ev)
	}

	if err := l.Send(websocket.OpcodeText, []byte("hi")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if ok := l.Poll(&ev); ok {
		t.Fatalf("expected TX flush poll to produce no event, got %+v", ev)
	}
	// The 101 response staged by the handshake is still in TX, so this
	// single flush writes it ahead of the text frame.
	want := "HTTP/1.1 101 Switching Protocols\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Accept: s3pPLMBiTxaQ9kYGzzhZRbK+xOo=\r\n\r\n" +
		"\x81\x02hi"
	if got := fio.Sent(); string(got) != want {
		t.Fatalf("expected 101 response followed by the text frame, got %q", got)
	}
}
