// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package irc implements the protocol connection manager and line framing.
package irc

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Connection tuning constants.
const (
	// readBlockSize is the fixed read buffer size for the listen loop.
	readBlockSize = 4096

	// retryDelay is the fixed wait between connect attempts. There is no
	// backoff and no attempt cap: the bridge retries until it gets through.
	retryDelay = 5 * time.Second

	// dialTimeout bounds a single TCP connect attempt.
	dialTimeout = 10 * time.Second
)

// ErrNotConnected is returned by Send and Listen before a transport exists.
var ErrNotConnected = errors.New("irc: not connected")

// State tracks the connection lifecycle.
type State int32

// Connection states.
const (
	StateDisconnected State = iota
	StateConnecting
	StateHandshaking
	StateConnected
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateHandshaking:
		return "handshaking"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// DialFunc opens a transport. Swapped out in tests.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Params holds everything one connection cycle needs. A fresh Params is
// taken from the current config snapshot on every (re)connect, so nickname,
// channel and credential changes apply to the next cycle.
type Params struct {
	Server   string
	Port     int
	SourceIP string
	Nickname string
	Password string
	Channels []string
	UseSSL   bool
}

// Address returns the host:port dial target.
func (p Params) Address() string {
	return net.JoinHostPort(p.Server, strconv.Itoa(p.Port))
}

// Conn owns the transport for one or more connection cycles. All writes are
// serialized through Send; reads happen on the single goroutine running
// Listen.
type Conn struct {
	logger *zap.Logger
	dial   DialFunc
	sleep  func(time.Duration)

	wmu  sync.Mutex
	conn net.Conn

	state   atomic.Int32
	cycleID string
}

// Option configures a Conn.
type Option func(*Conn)

// WithDialFunc replaces the source-bound TCP dialer. Used by tests to supply
// in-memory transports and scripted failures.
func WithDialFunc(d DialFunc) Option {
	return func(c *Conn) { c.dial = d }
}

// WithSleepFunc replaces the retry sleep. Used by tests to observe retry
// pacing without waiting it out.
func WithSleepFunc(f func(time.Duration)) Option {
	return func(c *Conn) { c.sleep = f }
}

// NewConn creates a connection manager in the Disconnected state.
func NewConn(logger *zap.Logger, opts ...Option) *Conn {
	c := &Conn{
		logger: logger,
		sleep:  time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current connection state.
func (c *Conn) State() State {
	return State(c.state.Load())
}

func (c *Conn) setState(s State) {
	c.state.Store(int32(s))
}

// =============================================================================
// CONNECT / HANDSHAKE
// =============================================================================

// Connect dials p.Address until a transport is established and the
// registration handshake (PASS, NICK, USER, JOINs) has been written. Every
// failure — DNS, refused connect, timeout, TLS, handshake write — is logged
// and retried after a fixed 5s delay, indefinitely. It returns once the
// handshake commands are queued on the wire (not acknowledged), or with the
// context error if ctx is canceled.
func (c *Conn) Connect(ctx context.Context, p Params) error {
	dial := c.dial
	if dial == nil {
		dial = sourceBoundDialer(p.SourceIP)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		c.setState(StateConnecting)
		c.cycleID = uuid.NewString()
		c.logger.Info("connecting",
			zap.String("address", p.Address()),
			zap.String("source", p.SourceIP),
			zap.Bool("tls", p.UseSSL),
			zap.String("cycle", c.cycleID))

		nc, err := dial(ctx, "tcp", p.Address())
		if err == nil && p.UseSSL {
			nc, err = wrapTLS(ctx, nc, p.Server)
		}
		if err != nil {
			c.setState(StateDisconnected)
			c.logger.Warn("connection failed, retrying",
				zap.Duration("retry_in", retryDelay),
				zap.String("cycle", c.cycleID),
				zap.Error(err))
			c.sleep(retryDelay)
			continue
		}

		c.wmu.Lock()
		c.conn = nc
		c.wmu.Unlock()

		c.setState(StateHandshaking)
		if err := c.register(p); err != nil {
			c.logger.Warn("registration failed, retrying",
				zap.Duration("retry_in", retryDelay),
				zap.String("cycle", c.cycleID),
				zap.Error(err))
			c.teardown()
			c.sleep(retryDelay)
			continue
		}

		c.setState(StateConnected)
		c.logger.Info("connected",
			zap.String("address", p.Address()),
			zap.Strings("channels", p.Channels),
			zap.String("cycle", c.cycleID))
		return nil
	}
}

// register writes the registration handshake. PASS is optional; NICK and
// USER are mandatory; one JOIN per configured channel.
func (c *Conn) register(p Params) error {
	if p.Password != "" {
		if err := c.Send("PASS " + p.Password); err != nil {
			return err
		}
	}
	if err := c.Send("NICK " + p.Nickname); err != nil {
		return err
	}
	if err := c.Send(fmt.Sprintf("USER %s 0 * :%s", p.Nickname, p.Nickname)); err != nil {
		return err
	}
	for _, channel := range p.Channels {
		if err := c.Send("JOIN " + channel); err != nil {
			return err
		}
	}
	return nil
}

// sourceBoundDialer returns a dialer bound to the configured local address.
// An address containing a colon binds an IPv6 source, otherwise IPv4 —
// net.TCPAddr handles both.
func sourceBoundDialer(sourceIP string) DialFunc {
	return func(ctx context.Context, network, address string) (net.Conn, error) {
		d := &net.Dialer{Timeout: dialTimeout}
		if sourceIP != "" {
			ip := net.ParseIP(sourceIP)
			if ip == nil {
				return nil, fmt.Errorf("invalid source address %q", sourceIP)
			}
			d.LocalAddr = &net.TCPAddr{IP: ip}
		}
		return d.DialContext(ctx, network, address)
	}
}

// wrapTLS layers TLS over the transport. Certificate and hostname
// verification are deliberately skipped: the bridge targets IRC servers
// running self-signed certificates, and the original deployment accepted
// the man-in-the-middle exposure as a trade-off.
func wrapTLS(ctx context.Context, nc net.Conn, serverName string) (net.Conn, error) {
	tc := tls.Client(nc, &tls.Config{
		ServerName:         serverName,
		InsecureSkipVerify: true, //nolint:gosec
	})
	if err := tc.HandshakeContext(ctx); err != nil {
		nc.Close()
		return nil, fmt.Errorf("tls handshake: %w", err)
	}
	return tc, nil
}

// =============================================================================
// SEND / LISTEN
// =============================================================================

// Send appends the protocol line terminator and writes the line atomically.
// A write failure is fatal for the current connection: the caller must stop
// sending until the next Connect cycle.
func (c *Conn) Send(line string) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	if _, err := c.conn.Write([]byte(line + "\r\n")); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// Listen reads the transport in fixed-size blocks, frames complete lines,
// and invokes handler for each one synchronously — two lines are never
// dispatched concurrently, so a slow handler blocks everything behind it,
// keep-alive replies included. Listen returns the read error when the
// transport fails; the run loop then tears down and reconnects.
func (c *Conn) Listen(ctx context.Context, handler func(line string)) error {
	c.wmu.Lock()
	conn := c.conn
	c.wmu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	framer := NewLineFramer()
	buf := make([]byte, readBlockSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			for _, line := range framer.Feed(buf[:n]) {
				handler(line)
			}
		}
		if err != nil {
			c.teardown()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read: %w", err)
		}
	}
}

// Close shuts the transport down and marks the connection disconnected.
func (c *Conn) Close() error {
	return c.teardown()
}

func (c *Conn) teardown() error {
	c.wmu.Lock()
	conn := c.conn
	c.conn = nil
	c.wmu.Unlock()
	c.setState(StateDisconnected)
	if conn != nil {
		return conn.Close()
	}
	return nil
}
