// File: ioadapter/ioadapter.go
// Package ioadapter adapts a net.Conn to the link engine's codec.IO
// contract, translating net.Conn's io.EOF convention into the
// engine's zero-length-read clean-close signal. Grounded on the
// reference implementation's transport.NetConn, which performs the
// same pass-through read/write over a net.Conn.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package ioadapter

import (
	"errors"
	"io"
	"net"
)

// connIO wraps a net.Conn as a codec.IO.
type connIO struct {
	conn net.Conn
}

// FromNetConn returns a codec.IO backed by conn. Read surfaces a
// clean net.Conn EOF as (0, nil), matching the engine's contract that
// a zero-length, error-free read signals end-of-stream; any other
// read error is passed through unchanged.
func FromNetConn(conn net.Conn) *connIO {
	return &connIO{conn: conn}
}

func (c *connIO) Read(buf []byte) (int, error) {
	n, err := c.conn.Read(buf)
	if err != nil && errors.Is(err, io.EOF) {
		return n, nil
	}
	return n, err
}

func (c *connIO) Write(buf []byte) (int, error) {
	return c.conn.Write(buf)
}

// Conn returns the underlying net.Conn, e.g. so a caller can Close it
// once the link reaches StateClosed.
func (c *connIO) Conn() net.Conn {
	return c.conn
}
