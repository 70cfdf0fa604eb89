// File: protocol/websocket/codec.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package websocket

import "github.com/momentics/hioload-link/codec"

// NewServerCodec returns the codec.Codec value a server-side link
// attaches via link.Link.AttachCodec, paired with a fresh
// ServerState. Each connection needs its own state; the Codec itself
// is stateless and may be shared across links.
func NewServerCodec() (*codec.Codec, *ServerState) {
	return &codec.Codec{
		Name:      "websocket",
		Handshake: ServerHandshake,
		Decode:    Decode,
		Encode:    Encode,
	}, NewServerState()
}
