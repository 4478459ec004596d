// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package irc implements the protocol connection manager and line framing.
package irc

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

// lineCollector drains one side of a net.Pipe into framed lines. It must be
// attached before Connect runs because pipe writes block until read.
type lineCollector struct {
	mu    sync.Mutex
	lines []string
}

func collectLines(conn net.Conn) *lineCollector {
	lc := &lineCollector{}
	go func() {
		framer := NewLineFramer()
		buf := make([]byte, 512)
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				lc.mu.Lock()
				lc.lines = append(lc.lines, framer.Feed(buf[:n])...)
				lc.mu.Unlock()
			}
			if err != nil {
				return
			}
		}
	}()
	return lc
}

func (lc *lineCollector) snapshot() []string {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	out := make([]string, len(lc.lines))
	copy(out, lc.lines)
	return out
}

func (lc *lineCollector) waitLines(t *testing.T, n int) []string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := lc.snapshot(); len(got) >= n {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d lines, have %v", n, lc.snapshot())
	return nil
}

// pipeDialer dials an in-memory transport and hands the server side to a
// collector. The returned channel carries the raw server conn for tests
// that drive reads and closes directly.
func pipeDialer(lcCh chan<- *lineCollector, srvCh chan<- net.Conn) DialFunc {
	return func(ctx context.Context, network, address string) (net.Conn, error) {
		client, srv := net.Pipe()
		if lcCh != nil {
			lcCh <- collectLines(srv)
		}
		if srvCh != nil {
			srvCh <- srv
		}
		return client, nil
	}
}

func testParams() Params {
	return Params{
		Server:   "irc.example.net",
		Port:     6667,
		Nickname: "bridgebot",
		Password: "hunter2",
		Channels: []string{"#lobby", "#dev"},
	}
}

func TestConnect_HandshakeSequence(t *testing.T) {
	lcCh := make(chan *lineCollector, 1)
	c := NewConn(zap.NewNop(), WithDialFunc(pipeDialer(lcCh, nil)))

	if err := c.Connect(context.Background(), testParams()); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}

	want := []string{
		"PASS hunter2",
		"NICK bridgebot",
		"USER bridgebot 0 * :bridgebot",
		"JOIN #lobby",
		"JOIN #dev",
	}
	got := (<-lcCh).waitLines(t, len(want))
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("handshake line %d = %q, want %q", i, got[i], want[i])
		}
	}

	if c.State() != StateConnected {
		t.Errorf("state = %v, want connected", c.State())
	}
}

func TestConnect_NoPassSkipsPassword(t *testing.T) {
	lcCh := make(chan *lineCollector, 1)
	c := NewConn(zap.NewNop(), WithDialFunc(pipeDialer(lcCh, nil)))

	p := testParams()
	p.Password = ""
	p.Channels = nil
	if err := c.Connect(context.Background(), p); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}

	got := (<-lcCh).waitLines(t, 2)
	if got[0] != "NICK bridgebot" {
		t.Errorf("first handshake line = %q, want NICK", got[0])
	}
	if got[1] != "USER bridgebot 0 * :bridgebot" {
		t.Errorf("second handshake line = %q, want USER", got[1])
	}
}

func TestConnect_RetriesWithFixedDelay(t *testing.T) {
	const failures = 3

	lcCh := make(chan *lineCollector, 1)
	pipe := pipeDialer(lcCh, nil)

	var (
		attempts int
		sleeps   []time.Duration
	)
	dial := func(ctx context.Context, network, address string) (net.Conn, error) {
		attempts++
		if attempts <= failures {
			return nil, errors.New("connection refused")
		}
		return pipe(ctx, network, address)
	}

	c := NewConn(zap.NewNop(),
		WithDialFunc(dial),
		WithSleepFunc(func(d time.Duration) { sleeps = append(sleeps, d) }))

	if err := c.Connect(context.Background(), testParams()); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}

	if attempts != failures+1 {
		t.Errorf("attempts = %d, want %d", attempts, failures+1)
	}
	if len(sleeps) != failures {
		t.Fatalf("recorded %d sleeps, want %d", len(sleeps), failures)
	}
	for i, d := range sleeps {
		if d < 5*time.Second {
			t.Errorf("sleep %d = %v, want >= 5s", i, d)
		}
	}
	(<-lcCh).waitLines(t, 1)
}

func TestConnect_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewConn(zap.NewNop(), WithDialFunc(func(ctx context.Context, network, address string) (net.Conn, error) {
		return nil, errors.New("unreachable")
	}))

	if err := c.Connect(ctx, testParams()); !errors.Is(err, context.Canceled) {
		t.Errorf("Connect() error = %v, want context.Canceled", err)
	}
}

func TestSend_BeforeConnect(t *testing.T) {
	c := NewConn(zap.NewNop())
	if err := c.Send("PING :x"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Send() error = %v, want ErrNotConnected", err)
	}
}

func TestSend_AppendsCRLF(t *testing.T) {
	lcCh := make(chan *lineCollector, 1)
	c := NewConn(zap.NewNop(), WithDialFunc(pipeDialer(lcCh, nil)))

	p := testParams()
	p.Password = ""
	p.Channels = nil
	if err := c.Connect(context.Background(), p); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	lc := <-lcCh

	if err := c.Send("PRIVMSG #chan :hello"); err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	got := lc.waitLines(t, 3)
	if got[2] != "PRIVMSG #chan :hello" {
		t.Errorf("sent line = %q, want %q", got[2], "PRIVMSG #chan :hello")
	}
}

func TestListen_DispatchesInOrderThenReturnsReadError(t *testing.T) {
	lcCh := make(chan *lineCollector, 1)
	srvCh := make(chan net.Conn, 1)
	c := NewConn(zap.NewNop(), WithDialFunc(pipeDialer(lcCh, srvCh)))

	p := testParams()
	p.Password = ""
	p.Channels = nil
	if err := c.Connect(context.Background(), p); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	srv := <-srvCh
	<-lcCh // handshake drained by the collector

	var mu sync.Mutex
	var got []string
	errCh := make(chan error, 1)
	go func() {
		errCh <- c.Listen(context.Background(), func(line string) {
			mu.Lock()
			got = append(got, line)
			mu.Unlock()
		})
	}()

	if _, err := srv.Write([]byte("PING :a\r\nPING :b\r\npartial")); err != nil {
		t.Fatalf("server write: %v", err)
	}
	srv.Close()

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("Listen() returned nil, want read error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Listen() did not return after transport close")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 || got[0] != "PING :a" || got[1] != "PING :b" {
		t.Errorf("dispatched lines = %v, want [PING :a, PING :b]", got)
	}
	if c.State() != StateDisconnected {
		t.Errorf("state after read failure = %v, want disconnected", c.State())
	}
}

func TestListen_BeforeConnect(t *testing.T) {
	c := NewConn(zap.NewNop())
	if err := c.Listen(context.Background(), func(string) {}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Listen() error = %v, want ErrNotConnected", err)
	}
}
