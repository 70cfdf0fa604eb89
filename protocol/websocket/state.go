// File: protocol/websocket/state.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package websocket

// ServerState is the codec state threaded through a single link's
// Handshake/Decode/Encode calls. It carries the upgraded request's
// path plus bookkeeping for an in-flight frame that spans more than
// one Decode call because its raw bytes were sliced across polls.
// The zero value is ready to use.
type ServerState struct {
	requestPath string

	// pendingRemaining is the number of raw frame bytes (header, mask
	// and payload together) not yet accounted for by a prior Decode
	// call. Zero means the next Decode call starts a fresh header.
	pendingRemaining int
}

// NewServerState returns a ready-to-use server-side codec state.
func NewServerState() *ServerState {
	return &ServerState{}
}

// RequestPath returns the path of the upgraded HTTP request, valid
// once the handshake has completed.
func (s *ServerState) RequestPath() string {
	return s.requestPath
}
