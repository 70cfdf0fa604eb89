// File: protocol/websocket/client.go
// Implements the client side of the RFC 6455 handshake plus the
// client-role frame codec (masked outgoing frames, unmasked incoming
// frames) so the engine can run against an arbitrary WebSocket server
// instead of only accepting connections. Grounded on this package's
// own server-side handshake.go/frame.go: RFC 6455's handshake and
// framing are symmetric, so the client role mirrors the same
// accumulate-then-consume Handshake contract and non-consuming Decode
// contract, with the mask/unmask sides swapped.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package websocket

import (
	"bufio"
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"net/http"
	"strings"

	"github.com/momentics/hioload-link/codec"
)

// ClientState is the codec state threaded through a single link's
// client-side Handshake/Decode/Encode calls: the target host/path and
// the Sec-WebSocket-Key this client generated, needed to validate the
// server's Sec-WebSocket-Accept once the response arrives.
type ClientState struct {
	host string
	path string
	key  string
	sent bool

	// pendingRemaining mirrors ServerState's field of the same name:
	// raw bytes of an in-flight frame not yet accounted for by a prior
	// DecodeClient call. Zero means the next call starts a fresh header.
	pendingRemaining int
}

// NewClientState returns a ready-to-use client-side codec state
// targeting host/path, generating a fresh random Sec-WebSocket-Key per
// RFC 6455 section 4.1.
func NewClientState(host, path string) (*ClientState, error) {
	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return nil, fmt.Errorf("websocket: generate client key: %w", err)
	}
	if path == "" {
		path = "/"
	}
	return &ClientState{host: host, path: path, key: base64.StdEncoding.EncodeToString(raw[:])}, nil
}

// Key returns the Sec-WebSocket-Key this client generated, letting a
// caller (or test) independently derive the expected
// Sec-WebSocket-Accept value.
func (cs *ClientState) Key() string {
	return cs.key
}

// NewClientCodec returns the codec.Codec value a client-side link
// attaches via link.Link.AttachCodec, paired with a fresh ClientState
// targeting host/path.
func NewClientCodec(host, path string) (*codec.Codec, *ClientState, error) {
	st, err := NewClientState(host, path)
	if err != nil {
		return nil, nil, err
	}
	return &codec.Codec{
		Name:      "websocket-client",
		Handshake: ClientHandshake,
		Decode:    DecodeClient,
		Encode:    EncodeClient,
	}, st, nil
}

// ClientHandshake implements codec.Codec.Handshake for the client
// side of the upgrade. On its first invocation (regardless of input)
// it stages the GET/Upgrade request into out; on later invocations it
// waits for a full set of response headers to accumulate in in,
// validates the 101 response, and checks Sec-WebSocket-Accept against
// the key this client sent.
func ClientHandshake(state any, in []byte, out []byte) (codec.HandshakeStatus, int, int, error) {
	cs, _ := state.(*ClientState)
	if cs == nil {
		return codec.HandshakeFailed, 0, 0, fmt.Errorf("websocket: client handshake requires *ClientState")
	}

	if !cs.sent {
		req := buildHandshakeRequest(cs.host, cs.path, cs.key)
		if len(req) > len(out) {
			return codec.HandshakeFailed, 0, 0, fmt.Errorf("websocket: handshake request exceeds TX capacity")
		}
		n := copy(out, req)
		cs.sent = true
		return codec.HandshakeIncomplete, 0, n, nil
	}

	end := bytes.Index(in, headerTerminator)
	if end < 0 {
		return codec.HandshakeIncomplete, 0, 0, nil
	}
	consumed := end + len(headerTerminator)

	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(in[:consumed])), nil)
	if err != nil {
		return codec.HandshakeFailed, consumed, 0, fmt.Errorf("websocket: parse upgrade response: %w", err)
	}
	if resp.StatusCode != http.StatusSwitchingProtocols {
		return codec.HandshakeFailed, consumed, 0, fmt.Errorf("websocket: unexpected status %d", resp.StatusCode)
	}
	if !headerContainsToken(resp.Header, headerUpgrade, "websocket") ||
		!headerContainsToken(resp.Header, headerConnection, "upgrade") {
		return codec.HandshakeFailed, consumed, 0, fmt.Errorf("websocket: missing upgrade headers in response")
	}
	if want := acceptKey(cs.key); resp.Header.Get(headerSecWSAccept) != want {
		return codec.HandshakeFailed, consumed, 0, fmt.Errorf("websocket: Sec-WebSocket-Accept mismatch")
	}
	return codec.HandshakeComplete, consumed, 0, nil
}

// buildHandshakeRequest composes the HTTP/1.1 GET Upgrade request a
// client sends to open a WebSocket connection, the mirror image of
// buildAcceptResponse on the server side.
func buildHandshakeRequest(host, path, key string) []byte {
	var b strings.Builder
	b.WriteString("GET ")
	b.WriteString(path)
	b.WriteString(" HTTP/1.1\r\n")
	b.WriteString("Host: ")
	b.WriteString(host)
	b.WriteString("\r\n")
	b.WriteString("Upgrade: websocket\r\n")
	b.WriteString("Connection: Upgrade\r\n")
	b.WriteString("Sec-WebSocket-Key: ")
	b.WriteString(key)
	b.WriteString("\r\n")
	b.WriteString("Sec-WebSocket-Version: 13\r\n\r\n")
	return []byte(b.String())
}

// DecodeClient implements codec.Codec.Decode for the client side:
// server frames are never masked, the mirror image of Decode's
// mandatory-mask rule for client frames. Like Decode, it tracks a
// frame's raw length across calls via pendingRemaining so a frame
// whose bytes span more than one Poll call is not re-parsed as a
// fresh header.
func DecodeClient(state any, data []byte, sink codec.DecodeSink) codec.Result {
	st, _ := state.(*ClientState)
	if st == nil {
		return codec.ErrState
	}

	if st.pendingRemaining > 0 {
		consumed := len(data)
		if consumed > st.pendingRemaining {
			consumed = st.pendingRemaining
		}
		st.pendingRemaining -= consumed
		return codec.OK
	}

	hdr, ok, err := parseHeader(data)
	if err != nil {
		return codec.ErrProtocol
	}
	if !ok {
		return codec.OK
	}
	if hdr.masked {
		return codec.ErrProtocol
	}
	if isControlOpcode(hdr.opcode) && (!hdr.fin || hdr.payloadLen > MaxControlPayloadLen) {
		return codec.ErrProtocol
	}

	total := hdr.headerLen + hdr.payloadLen
	sink.SetFrameLen(total)

	consumedNow := len(data)
	remaining := total - consumedNow
	if remaining < 0 {
		remaining = 0
	}
	st.pendingRemaining = remaining

	if !sink.Push(eventForOpcode(hdr, data)) {
		return codec.ErrOverflow
	}
	return codec.OK
}

// EncodeClient implements codec.Codec.Encode for the client side:
// frames sent to the server MUST be masked per RFC 6455 section 5.1,
// the mirror image of Encode's unmasked server->client frames.
func EncodeClient(state any, opcode uint8, payload []byte, out []byte) (int, error) {
	if isControlOpcode(opcode) && len(payload) > MaxControlPayloadLen {
		return 0, fmt.Errorf("websocket: control frame payload %d exceeds %d", len(payload), MaxControlPayloadLen)
	}

	var maskKey [maskKeyLen]byte
	if _, err := rand.Read(maskKey[:]); err != nil {
		return 0, fmt.Errorf("websocket: generate frame mask: %w", err)
	}

	plen := len(payload)
	b0 := byte(0x80) | (opcode & 0x0F)

	var hdr []byte
	switch {
	case plen <= 125:
		hdr = []byte{b0, 0x80 | byte(plen)}
	case plen <= 0xFFFF:
		hdr = make([]byte, 4)
		hdr[0] = b0
		hdr[1] = 0x80 | 126
		binary.BigEndian.PutUint16(hdr[2:], uint16(plen))
	default:
		hdr = make([]byte, 10)
		hdr[0] = b0
		hdr[1] = 0x80 | 127
		binary.BigEndian.PutUint64(hdr[2:], uint64(plen))
	}

	total := len(hdr) + maskKeyLen + plen
	if total > len(out) {
		return 0, fmt.Errorf("websocket: encoded frame of %d bytes exceeds TX capacity", total)
	}
	n := copy(out, hdr)
	n += copy(out[n:], maskKey[:])
	for i, b := range payload {
		out[n+i] = b ^ maskKey[i%maskKeyLen]
	}
	n += plen
	return n, nil
}
