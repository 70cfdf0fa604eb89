// File: protocol/websocket/frame.go
// Implements RFC 6455 frame decode/encode against the link engine's
// codec.Codec contract. Decode is peek-only: it inspects the current
// RX window without consuming it, reporting frame_len via the sink so
// the link can bound how much of RX to slice into the arena, and
// pushing FRAME/PING/PONG/CLOSE events for the consumer. Grounded on
// the reference implementation's DecodeFrameFromBytes/EncodeFrameToBytes,
// adapted from a consuming, copying decode into a non-consuming one
// (the link owns the copy-to-arena step, not the codec).
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package websocket

import (
	"encoding/binary"
	"fmt"

	"github.com/momentics/hioload-link/codec"
)

// MaxFramePayload caps a single frame's declared payload length,
// guarding against a corrupt or hostile length field driving an
// unbounded frame_len.
const MaxFramePayload = 1 << 20

// parsedHeader describes a frame header fully resolved from a byte
// window, before any payload bytes are inspected.
type parsedHeader struct {
	fin        bool
	opcode     uint8
	masked     bool
	payloadLen int
	maskKey    [maskKeyLen]byte
	headerLen  int // bytes up to and including the mask key, if present
}

// parseHeader attempts to resolve a complete frame header from data.
// ok is false when data does not yet hold enough bytes; it is not an
// error, merely a request for more input on a later Decode call.
func parseHeader(data []byte) (hdr parsedHeader, ok bool, err error) {
	if len(data) < 2 {
		return hdr, false, nil
	}
	hdr.fin = data[0]&0x80 != 0
	hdr.opcode = data[0] & 0x0F
	hdr.masked = data[1]&0x80 != 0
	length := int(data[1] & 0x7F)
	offset := 2

	switch length {
	case 126:
		if len(data) < offset+2 {
			return hdr, false, nil
		}
		length = int(binary.BigEndian.Uint16(data[offset:]))
		offset += 2
	case 127:
		if len(data) < offset+8 {
			return hdr, false, nil
		}
		length = int(binary.BigEndian.Uint64(data[offset:]))
		offset += 8
	}
	if length < 0 || length > MaxFramePayload {
		return hdr, false, fmt.Errorf("websocket: frame payload length %d outside 0..%d", length, MaxFramePayload)
	}

	if hdr.masked {
		if len(data) < offset+maskKeyLen {
			return hdr, false, nil
		}
		copy(hdr.maskKey[:], data[offset:offset+maskKeyLen])
		offset += maskKeyLen
	}

	hdr.payloadLen = length
	hdr.headerLen = offset
	return hdr, true, nil
}

// eventForOpcode classifies a resolved header into the protocol event
// the link should publish, extracting a close code when present and
// available within data.
func eventForOpcode(hdr parsedHeader, data []byte) codec.Event {
	ev := codec.Event{
		Frame: codec.Frame{
			Fin:    hdr.fin,
			Masked: hdr.masked,
			Opcode: hdr.opcode,
			Length: uint64(hdr.payloadLen),
		},
	}
	switch hdr.opcode {
	case OpcodePing:
		ev.Type = codec.EventPing
	case OpcodePong:
		ev.Type = codec.EventPong
	case OpcodeClose:
		ev.Type = codec.EventClose
		if hdr.payloadLen >= 2 && len(data) >= hdr.headerLen+2 {
			b0 := data[hdr.headerLen] ^ hdr.maskKey[0%maskKeyLen]
			b1 := data[hdr.headerLen+1] ^ hdr.maskKey[1%maskKeyLen]
			ev.CloseCode = binary.BigEndian.Uint16([]byte{b0, b1})
		}
	default:
		ev.Type = codec.EventFrame
	}
	return ev
}

// Decode implements codec.Codec.Decode for the server side: it
// resolves frames masked by the client, enforcing the control-opcode
// FIN/length rules and the mandatory client mask key, and reports
// frame_len so the link can bound slicing of a frame whose raw bytes
// span more than one Poll call.
func Decode(state any, data []byte, sink codec.DecodeSink) codec.Result {
	st, _ := state.(*ServerState)
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
	if !hdr.masked {
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

// Encode implements codec.Codec.Encode for the server side: frames
// sent to the client are never masked, per RFC 6455 section 5.1.
func Encode(state any, opcode uint8, payload []byte, out []byte) (int, error) {
	if isControlOpcode(opcode) && len(payload) > MaxControlPayloadLen {
		return 0, fmt.Errorf("websocket: control frame payload %d exceeds %d", len(payload), MaxControlPayloadLen)
	}

	plen := len(payload)
	b0 := byte(0x80) | (opcode & 0x0F)

	var hdr []byte
	switch {
	case plen <= 125:
		hdr = []byte{b0, byte(plen)}
	case plen <= 0xFFFF:
		hdr = make([]byte, 4)
		hdr[0] = b0
		hdr[1] = 126
		binary.BigEndian.PutUint16(hdr[2:], uint16(plen))
	default:
		hdr = make([]byte, 10)
		hdr[0] = b0
		hdr[1] = 127
		binary.BigEndian.PutUint64(hdr[2:], uint64(plen))
	}

	total := len(hdr) + plen
	if total > len(out) {
		return 0, fmt.Errorf("websocket: encoded frame of %d bytes exceeds TX capacity", total)
	}
	n := copy(out, hdr)
	n += copy(out[n:], payload)
	return n, nil
}
