//go:build !linux
// +build !linux

// File: ioadapter/ioadapter_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package ioadapter

import "net"

// TuneTCP is a no-op outside Linux; see ioadapter_linux.go.
func TuneTCP(conn net.Conn) error {
	return nil
}
