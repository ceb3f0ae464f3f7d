// Package transport provides the byte-stream layer (C2) underneath the
// packet codec: a TCP socket, an optional mid-handshake TLS upgrade, and
// cancellation-safe reads. It knows nothing about MySQL packet framing.
package transport

import (
	"context"
	"crypto/tls"
	"net"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// defaultIOTimeout bounds a single read/write when the caller hasn't set
// one explicitly, mirroring the teacher's netIOTimeout default.
const defaultIOTimeout = 30 * time.Second

// Transport wraps a net.Conn, tracking byte counters and applying a
// read/write deadline only when the previous deadline is more than a
// quarter elapsed (the same batching the teacher's mysqlConn.recv/send
// apply, to avoid a syscall on every packet).
type Transport struct {
	conn net.Conn

	rTimeout      time.Duration
	wTimeout      time.Duration
	rLastDeadline time.Time
	wLastDeadline time.Time

	readBytes  uint64
	writeBytes uint64

	poisoned int32 // set on cancel-during-read or any fatal I/O error
}

// Dial opens a TCP connection to addr (host:port).
func Dial(ctx context.Context, addr string) (*Transport, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "transport: dial")
	}
	return New(conn), nil
}

// New wraps an already-established net.Conn.
func New(conn net.Conn) *Transport {
	return &Transport{conn: conn, rTimeout: defaultIOTimeout, wTimeout: defaultIOTimeout}
}

// SetTimeouts configures the read/write deadlines applied to future I/O.
func (t *Transport) SetTimeouts(r, w time.Duration) {
	if r > 0 {
		t.rTimeout = r
	}
	if w > 0 {
		t.wTimeout = w
	}
}

// Poisoned reports whether this transport suffered a fatal error or a
// cancelled read and must not be reused.
func (t *Transport) Poisoned() bool { return atomic.LoadInt32(&t.poisoned) != 0 }

func (t *Transport) poison() { atomic.StoreInt32(&t.poisoned, 1) }

// Read implements io.Reader with deadline batching; a context-driven
// cancellation during Read poisons the transport, per spec.md §5 (the
// server's reply bytes may still be in flight and cannot be safely
// resynchronized).
func (t *Transport) Read(p []byte) (int, error) {
	if t.rTimeout > 0 {
		now := time.Now()
		if now.Sub(t.rLastDeadline) > t.rTimeout/4 {
			if err := t.conn.SetReadDeadline(now.Add(t.rTimeout)); err != nil {
				t.poison()
				return 0, errors.Wrap(err, "transport: set read deadline")
			}
			t.rLastDeadline = now
		}
	}
	n, err := t.conn.Read(p)
	atomic.AddUint64(&t.readBytes, uint64(n))
	if err != nil {
		t.poison()
		return n, errors.Wrap(err, "transport: read")
	}
	return n, nil
}

// ReadContext performs Read but poisons and aborts immediately if ctx is
// done first, satisfying the cancellation-safe read requirement of
// spec.md §4.2 without requiring a context-aware net.Conn.
func (t *Transport) ReadContext(ctx context.Context, p []byte) (int, error) {
	type result struct {
		n   int
		err error
	}
	done := make(chan result, 1)
	go func() {
		n, err := t.Read(p)
		done <- result{n, err}
	}()
	select {
	case <-ctx.Done():
		t.poison()
		return 0, errors.Wrap(ctx.Err(), "transport: read cancelled")
	case r := <-done:
		return r.n, r.err
	}
}

// Write implements io.Writer with the same deadline-batching strategy.
func (t *Transport) Write(p []byte) (int, error) {
	if t.wTimeout > 0 {
		now := time.Now()
		if now.Sub(t.wLastDeadline) > t.wTimeout/4 {
			if err := t.conn.SetWriteDeadline(now.Add(t.wTimeout)); err != nil {
				t.poison()
				return 0, errors.Wrap(err, "transport: set write deadline")
			}
			t.wLastDeadline = now
		}
	}
	n, err := t.conn.Write(p)
	atomic.AddUint64(&t.writeBytes, uint64(n))
	if err != nil {
		t.poison()
		return n, errors.Wrap(err, "transport: write")
	}
	return n, nil
}

// Stats returns cumulative byte counters, useful for pool diagnostics and
// leak-detection logging.
func (t *Transport) Stats() (read, written uint64) {
	return atomic.LoadUint64(&t.readBytes), atomic.LoadUint64(&t.writeBytes)
}

// UpgradeTLS replaces the underlying connection with a TLS client
// connection using cfg, and performs the handshake. Valid only
// immediately after the SSL request packet per spec.md §4.2 — callers
// enforce that ordering, this just does the swap.
func (t *Transport) UpgradeTLS(ctx context.Context, cfg *tls.Config) error {
	tlsConn := tls.Client(t.conn, cfg)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		t.poison()
		return errors.Wrap(err, "transport: tls handshake")
	}
	t.conn = tlsConn
	t.rLastDeadline = time.Time{}
	t.wLastDeadline = time.Time{}
	return nil
}

// Close closes the underlying connection.
func (t *Transport) Close() error {
	return t.conn.Close()
}

// LocalAddr and RemoteAddr expose the underlying net.Conn addresses.
func (t *Transport) LocalAddr() net.Addr  { return t.conn.LocalAddr() }
func (t *Transport) RemoteAddr() net.Addr { return t.conn.RemoteAddr() }
