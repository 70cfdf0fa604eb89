// File: codec/codec.go
// Package codec defines the wire-protocol contract plugged into the
// link engine, plus the shared result/event vocabulary it produces.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package codec

// Result is an error taxonomy, not a type hierarchy: every fallible
// operation in this module reports one of a small set of categorical
// codes. Result implements error so it composes with the standard
// library, but callers are expected to switch on the code rather than
// wrap/unwrap a chain.
type Result int

const (
	OK Result = iota
	ErrIO
	ErrProtocol
	ErrOverflow
	ErrState
	ErrUnsupported
	ErrClosed
)

func (r Result) Error() string {
	switch r {
	case OK:
		return "ok"
	case ErrIO:
		return "io error"
	case ErrProtocol:
		return "protocol error"
	case ErrOverflow:
		return "overflow"
	case ErrState:
		return "invalid state"
	case ErrUnsupported:
		return "unsupported operation"
	case ErrClosed:
		return "link closed"
	default:
		return "unknown result"
	}
}

// IO is the synchronous byte-stream transport the link engine drives.
// Read returns a positive byte count on success, (0, nil) or (0,
// io.EOF) on clean end-of-stream, and any other error to signal a
// hard I/O failure. Write mirrors this for the send path and may
// report a short write (n < len(buf), err == nil).
type IO interface {
	Read(buf []byte) (n int, err error)
	Write(buf []byte) (n int, err error)
}

// HandshakeStatus is returned by a Codec's Handshake function.
type HandshakeStatus int

const (
	HandshakeIncomplete HandshakeStatus = iota
	HandshakeComplete
	HandshakeFailed
)

// SliceFlags marks a Slice's position within a logical message stream.
type SliceFlags uint8

const (
	SliceBegin SliceFlags = 1 << iota
	SliceCont
	SliceEnd
)

// Slice is a borrowed view into arena memory handed to a caller. It
// remains valid until the owning link's Release is called with it.
type Slice struct {
	Data     []byte
	Flags    SliceFlags
	Snapshot uint64
}

// Frame carries metadata about a decoded wire frame, exposed for
// protocol inspection independent of the raw Slice bytes.
type Frame struct {
	Fin    bool
	Masked bool
	Opcode uint8
	Length uint64
}

// EventType enumerates the kinds of event Poll can produce.
type EventType int

const (
	EventNone EventType = iota
	EventOpen
	EventSlice
	EventFrame
	EventPing
	EventPong
	EventClose
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventNone:
		return "none"
	case EventOpen:
		return "open"
	case EventSlice:
		return "slice"
	case EventFrame:
		return "frame"
	case EventPing:
		return "ping"
	case EventPong:
		return "pong"
	case EventClose:
		return "close"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is the tagged union returned by Poll. Only the field(s)
// corresponding to Type are meaningful.
type Event struct {
	Type      EventType
	Slice     Slice
	Frame     Frame
	CloseCode uint16
	Err       Result
}

// DecodeSink is the narrow interface a Codec's Decode function uses to
// report protocol-level events and frame progress back to the link
// that is driving it, without needing visibility into link internals.
type DecodeSink interface {
	// Push enqueues a protocol event (FRAME, PING, PONG, ...). Returns
	// false if the link's event queue is full.
	Push(ev Event) bool

	// SetFrameLen records the number of bytes remaining in the frame
	// currently being decoded, bounding how much of RX the next slice
	// publication step may surface.
	SetFrameLen(n int)
}

// Codec is a stateless triple of functions implementing a wire
// protocol, plus the caller-owned state threaded through each call.
// Handshake, Decode, and Encode are pure with respect to everything
// except the opaque state value and (for Decode) the DecodeSink.
type Codec struct {
	Name string

	// Handshake performs one step of protocol negotiation over the
	// accumulated RX window. It must report consumed <= len(in) and
	// may be invoked repeatedly as more bytes arrive. Output destined
	// for the wire is written into out (at most len(out) bytes) and
	// outLen bytes of it are valid.
	Handshake func(state any, in []byte, out []byte) (status HandshakeStatus, consumed int, outLen int, err error)

	// Decode inspects the current RX window without consuming it. It
	// may push FRAME/PING/PONG events via sink and update the
	// in-progress frame length. Returning a non-OK Result surfaces as
	// an ERROR event.
	Decode func(state any, data []byte, sink DecodeSink) Result

	// Encode writes protocol bytes for an outgoing message or control
	// frame into out, returning the number of bytes written.
	Encode func(state any, opcode uint8, payload []byte, out []byte) (outLen int, err error)
}
