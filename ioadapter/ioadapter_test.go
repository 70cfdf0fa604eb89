// File: ioadapter/ioadapter_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package ioadapter_test

import (
	"net"
	"testing"

	"github.com/momentics/hioload-link/ioadapter"
)

func TestFromNetConnPassesThroughReadWrite(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	io := ioadapter.FromNetConn(server)

	go func() {
		client.Write([]byte("hello"))
	}()

	buf := make([]byte, 16)
	n, err := io.Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(buf[:n]) != "hello" {
		t.Fatalf("got %q, want %q", buf[:n], "hello")
	}
}

func TestFromNetConnTranslatesEOFToZeroRead(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	client.Close()

	io := ioadapter.FromNetConn(server)
	buf := make([]byte, 16)
	n, err := io.Read(buf)
	if err != nil {
		t.Fatalf("expected nil error on clean EOF, got %v", err)
	}
	if n != 0 {
		t.Fatalf("expected zero-length read on EOF, got %d", n)
	}
}

func TestTuneTCPNoopOnNonTCPConn(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	if err := ioadapter.TuneTCP(server); err != nil {
		t.Fatalf("TuneTCP on non-TCP conn should be a no-op, got %v", err)
	}
}
