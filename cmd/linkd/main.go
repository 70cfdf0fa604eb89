// File: cmd/linkd/main.go
// linkd is a reference server exercising the link engine with the
// WebSocket codec plugged in: it accepts TCP connections, drives each
// one through a goroutine-per-connection Poll loop, logs OPEN/CLOSE/
// ERROR events, and echoes SLICE payloads back as text frames.
// Grounded on the reference implementation's transport/tcp accept
// loop, restructured around urfave/cli/v3 the way the broader
// retrieved lineage wires its own command-line entry points.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package main

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/momentics/hioload-link/codec"
	"github.com/momentics/hioload-link/config"
	"github.com/momentics/hioload-link/ioadapter"
	"github.com/momentics/hioload-link/link"
	"github.com/momentics/hioload-link/metrics"
	"github.com/momentics/hioload-link/protocol/websocket"
)

func main() {
	cmd := &cli.Command{
		Name:  "linkd",
		Usage: "reference WebSocket server built on the link engine",
		Commands: []*cli.Command{
			serveCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "linkd: %v\n", err)
		os.Exit(1)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "accept connections and echo SLICE payloads, or dial out as a client with --client",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: ":9001", Usage: "TCP address to listen on (server mode) or dial (--client mode)"},
			&cli.StringFlag{Name: "config", Usage: "optional YAML config file path"},
			&cli.BoolFlag{Name: "pretty-log", Usage: "human-readable console logging instead of JSON"},
			&cli.BoolFlag{Name: "client", Usage: "dial addr and run the client side of the handshake instead of listening"},
			&cli.StringFlag{Name: "host", Usage: "Host header / target host for --client mode (defaults to addr)"},
			&cli.StringFlag{Name: "path", Value: "/", Usage: "request path for --client mode"},
			&cli.StringFlag{Name: "message", Usage: "text frame to send once --client mode completes its handshake"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := newLogger(cmd.Bool("pretty-log"))

			cfg := config.DefaultConfig()
			if p := cmd.String("config"); p != "" {
				loaded, err := config.LoadYAML(p)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				cfg = loaded
			}
			if !cfg.EnableWebSocket {
				return fmt.Errorf("config: enable_websocket is false and linkd has no other codec to serve")
			}

			if cmd.Bool("client") {
				host := cmd.String("host")
				if host == "" {
					host = cmd.String("addr")
				}
				return runClient(ctx, cmd.String("addr"), host, cmd.String("path"), cmd.String("message"), cfg, log)
			}
			return serve(ctx, cmd.String("addr"), cfg, log)
		},
	}
}

func newLogger(pretty bool) zerolog.Logger {
	if pretty {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func serve(ctx context.Context, addr string, cfg config.Config, log zerolog.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	defer ln.Close()
	log.Info().Str("addr", addr).Msg("linkd listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			log.Error().Err(err).Msg("accept failed")
			continue
		}
		go serveConn(conn, cfg, log)
	}
}

func serveConn(conn net.Conn, cfg config.Config, log zerolog.Logger) {
	defer conn.Close()

	if err := ioadapter.TuneTCP(conn); err != nil {
		log.Warn().Err(err).Msg("TCP_NODELAY tuning failed")
	}

	stats := &metrics.LinkStats{}
	l, err := link.New(ioadapter.FromNetConn(conn), cfg, link.WithStats(stats))
	if err != nil {
		log.Error().Err(err).Msg("link.New failed")
		return
	}
	cd, st := websocket.NewServerCodec()
	l.AttachCodec(cd, st)

	clog := log.With().Str("remote", conn.RemoteAddr().String()).Logger()

	var ev codec.Event
	for {
		if !l.Poll(&ev) {
			if l.State() == link.StateClosed {
				return
			}
			continue
		}
		handleEvent(l, ev, clog)
		if l.State() == link.StateClosed {
			return
		}
	}
}

// handleEvent logs each protocol event and echoes SLICE payloads back
// as text frames, releasing the slice once the echo has been staged.
func handleEvent(l *link.Link, ev codec.Event, log zerolog.Logger) {
	switch ev.Type {
	case codec.EventOpen:
		log.Info().Msg("OPEN")
	case codec.EventClose:
		log.Info().Uint16("code", ev.CloseCode).Msg("CLOSE")
	case codec.EventError:
		log.Error().Str("result", ev.Err.Error()).Msg("ERROR")
	case codec.EventSlice:
		if err := l.Send(websocket.OpcodeText, ev.Slice.Data); err != nil {
			log.Warn().Err(err).Msg("echo failed")
		}
		l.Release(ev.Slice)
	case codec.EventFrame, codec.EventPing, codec.EventPong:
		// Metadata only; the paired SLICE event carries the raw bytes.
	}
}

// runClient dials addr, runs the client side of the WebSocket upgrade
// against host/path, and drives the same Poll loop as serveConn until
// the peer closes the connection. Once the handshake completes it
// sends message (if non-empty) exactly once, then logs whatever the
// server sends back.
func runClient(ctx context.Context, addr, host, path, message string, cfg config.Config, log zerolog.Logger) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	if err := ioadapter.TuneTCP(conn); err != nil {
		log.Warn().Err(err).Msg("TCP_NODELAY tuning failed")
	}

	stats := &metrics.LinkStats{}
	l, err := link.New(ioadapter.FromNetConn(conn), cfg, link.WithStats(stats))
	if err != nil {
		return fmt.Errorf("link.New: %w", err)
	}
	cd, st, err := websocket.NewClientCodec(host, path)
	if err != nil {
		return fmt.Errorf("websocket.NewClientCodec: %w", err)
	}
	l.AttachCodec(cd, st)

	clog := log.With().Str("remote", conn.RemoteAddr().String()).Logger()
	sent := false

	var ev codec.Event
	for {
		if !l.Poll(&ev) {
			if l.State() == link.StateClosed {
				return nil
			}
			if !sent && l.State() == link.StateOpen {
				sent = true
				if message != "" {
					if err := l.Send(websocket.OpcodeText, []byte(message)); err != nil {
						clog.Warn().Err(err).Msg("send failed")
					}
				}
			}
			continue
		}
		handleClientEvent(l, ev, clog)
		if l.State() == link.StateClosed {
			return nil
		}
	}
}

// handleClientEvent mirrors handleEvent for the client role: it never
// echoes, since a client replying to every SLICE would ping-pong with
// a server doing the same.
func handleClientEvent(l *link.Link, ev codec.Event, log zerolog.Logger) {
	switch ev.Type {
	case codec.EventOpen:
		log.Info().Msg("OPEN")
	case codec.EventClose:
		log.Info().Uint16("code", ev.CloseCode).Msg("CLOSE")
	case codec.EventError:
		log.Error().Str("result", ev.Err.Error()).Msg("ERROR")
	case codec.EventSlice:
		log.Info().Bytes("payload", ev.Slice.Data).Msg("received")
		l.Release(ev.Slice)
	case codec.EventFrame, codec.EventPing, codec.EventPong:
		// Metadata only; the paired SLICE event carries the raw bytes.
	}
}
