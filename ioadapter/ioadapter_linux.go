//go:build linux
// +build linux

// File: ioadapter/ioadapter_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux-specific socket tuning: disables Nagle's algorithm on TCP
// connections so small protocol frames aren't delayed waiting for a
// fuller segment, matching the reference transport's TCP_NODELAY
// setsockopt call at socket-creation time.

package ioadapter

import (
	"net"

	"golang.org/x/sys/unix"
)

// TuneTCP sets TCP_NODELAY on conn when it is a *net.TCPConn. It is a
// no-op for any other net.Conn implementation (e.g. a test pipe or a
// TLS-wrapped connection).
func TuneTCP(conn net.Conn) error {
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}
	raw, err := tc.SyscallConn()
	if err != nil {
		return err
	}
	var sockErr error
	if err := raw.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	}); err != nil {
		return err
	}
	return sockErr
}
