// File: protocol/websocket/handshake.go
// Implements the server-side RFC 6455 HTTP/1.1 Upgrade handshake:
// validates the Upgrade request, derives Sec-WebSocket-Accept, and
// writes the HTTP/1.1 101 response. Grounded on the reference
// implementation's net/http-based handshake helper, adapted to the
// link engine's accumulate-then-consume Handshake contract instead of
// an io.Reader.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package websocket

import (
	"bufio"
	"bytes"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/momentics/hioload-link/codec"
)

const (
	headerConnection  = "Connection"
	headerUpgrade     = "Upgrade"
	headerSecWSKey    = "Sec-WebSocket-Key"
	headerSecWSVer    = "Sec-WebSocket-Version"
	headerSecWSAccept = "Sec-WebSocket-Accept"
	requiredWSVersion = "13"
)

var headerTerminator = []byte("\r\n\r\n")

// ServerHandshake implements codec.Codec.Handshake for the server
// side of the upgrade: it waits for a full set of HTTP headers to
// accumulate in in, validates the Upgrade request, and writes the
// HTTP/1.1 101 Switching Protocols response (including
// Sec-WebSocket-Accept) into out.
func ServerHandshake(state any, in []byte, out []byte) (codec.HandshakeStatus, int, int, error) {
	end := bytes.Index(in, headerTerminator)
	if end < 0 {
		return codec.HandshakeIncomplete, 0, 0, nil
	}
	consumed := end + len(headerTerminator)

	req, err := http.ReadRequest(bufio.NewReader(bytes.NewReader(in[:consumed])))
	if err != nil {
		return codec.HandshakeFailed, consumed, 0, fmt.Errorf("websocket: parse upgrade request: %w", err)
	}

	if !headerContainsToken(req.Header, headerConnection, "upgrade") ||
		!headerContainsToken(req.Header, headerUpgrade, "websocket") {
		return codec.HandshakeFailed, consumed, 0, fmt.Errorf("websocket: missing upgrade headers")
	}
	if req.Header.Get(headerSecWSVer) != requiredWSVersion {
		return codec.HandshakeFailed, consumed, 0, fmt.Errorf("websocket: unsupported version %q", req.Header.Get(headerSecWSVer))
	}

	key := req.Header.Get(headerSecWSKey)
	if key == "" {
		return codec.HandshakeFailed, consumed, 0, fmt.Errorf("websocket: missing Sec-WebSocket-Key")
	}

	if ss, ok := state.(*ServerState); ok {
		ss.requestPath = req.URL.Path
	}

	resp := buildAcceptResponse(acceptKey(key))
	if len(resp) > len(out) {
		return codec.HandshakeFailed, consumed, 0, fmt.Errorf("websocket: handshake response exceeds TX capacity")
	}
	n := copy(out, resp)
	return codec.HandshakeComplete, consumed, n, nil
}

// acceptKey computes Sec-WebSocket-Accept from a client's
// Sec-WebSocket-Key per RFC 6455 section 1.3.
func acceptKey(key string) string {
	h := sha1.New()
	h.Write([]byte(key))
	h.Write([]byte(GUID))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func buildAcceptResponse(accept string) []byte {
	var b strings.Builder
	b.WriteString("HTTP/1.1 101 Switching Protocols\r\n")
	b.WriteString("Upgrade: websocket\r\n")
	b.WriteString("Connection: Upgrade\r\n")
	b.WriteString("Sec-WebSocket-Accept: ")
	b.WriteString(accept)
	b.WriteString("\r\n\r\n")
	return []byte(b.String())
}

func headerContainsToken(h http.Header, name, token string) bool {
	for _, v := range h[http.CanonicalHeaderKey(name)] {
		for _, part := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(part), token) {
				return true
			}
		}
	}
	return false
}
