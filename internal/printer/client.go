package printer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"tagprint/internal/logging"
	"tagprint/internal/zpl"
)

// DefaultTimeout applies when a caller passes a non-positive deadline.
const DefaultTimeout = 5 * time.Second

const settleWindow = 50 * time.Millisecond

// Dialer opens network connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Client sends payloads to printer sockets.
type Client struct {
	dialer Dialer
	logger *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithDialer swaps the dialer used to reach printers.
func WithDialer(d Dialer) Option {
	return func(c *Client) {
		if d != nil {
			c.dialer = d
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient builds a socket client.
func NewClient(opts ...Option) *Client {
	c := &Client{dialer: &net.Dialer{}, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "socket-client")
	return c
}

// Send connects to target and writes payload, all within deadline. It
// returns nil once the whole payload was accepted, ErrTimedOut when the
// deadline fired first, or a *ConnectionError for dial and write failures.
func (c *Client) Send(ctx context.Context, payload []byte, target Target, deadline time.Duration) error {
	if deadline <= 0 {
		deadline = DefaultTimeout
	}
	if err := target.Validate(); err != nil {
		return &ConnectionError{Op: "dial", Addr: target.Address(), Err: err}
	}
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	addr := target.Address()
	sess := &session{}
	defer sess.release()

	result := make(chan error, 1)
	go func() {
		result <- c.write(ctx, sess, addr, payload, start.Add(deadline))
	}()

	var err error
	select {
	case err = <-result:
		if err != nil && ctx.Err() != nil {
			err = c.contextError(ctx, addr)
		}
	case <-ctx.Done():
		// A write that finished as the deadline fired still counts.
		sess.release()
		if c.settle(result) != nil {
			err = c.contextError(ctx, addr)
		}
	}

	elapsed := time.Since(start)
	if err != nil {
		c.logger.Debug("printer send failed",
			logging.String(logging.FieldPrinter, addr),
			logging.Duration("elapsed", elapsed),
			logging.Error(err),
		)
		return err
	}
	c.logger.Debug("printer send complete",
		logging.String(logging.FieldPrinter, addr),
		logging.Int("bytes", len(payload)),
		logging.Duration("elapsed", elapsed),
	)
	return nil
}

// Probe sends an empty label to check reachability without printing.
func (c *Client) Probe(ctx context.Context, target Target, deadline time.Duration) error {
	return c.Send(ctx, []byte(zpl.Probe), target, deadline)
}

func (c *Client) write(ctx context.Context, sess *session, addr string, payload []byte, deadline time.Time) error {
	conn, err := c.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return &ConnectionError{Op: "dial", Addr: addr, Err: err}
	}
	if !sess.attach(conn) {
		return ErrTimedOut
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return &ConnectionError{Op: "deadline", Addr: addr, Err: err}
	}
	n, err := conn.Write(payload)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return fmt.Errorf("%s: %w", addr, ErrTimedOut)
		}
		return &ConnectionError{Op: "write", Addr: addr, Err: err}
	}
	if n != len(payload) {
		return &ConnectionError{Op: "write", Addr: addr, Err: fmt.Errorf("short write: %d of %d bytes", n, len(payload))}
	}
	return nil
}

// settle waits briefly for the writer after the deadline. Dialers that
// ignore ctx must not hold Send past the window.
func (c *Client) settle(result <-chan error) error {
	timer := time.NewTimer(settleWindow)
	defer timer.Stop()
	select {
	case err := <-result:
		return err
	case <-timer.C:
		return ErrTimedOut
	}
}

func (c *Client) contextError(ctx context.Context, addr string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", addr, ErrTimedOut)
	}
	return &ConnectionError{Op: "dial", Addr: addr, Err: ctx.Err()}
}

// session owns the connection of one Send. release closes it exactly once;
// a connection attached after release is closed immediately.
type session struct {
	mu       sync.Mutex
	conn     net.Conn
	released bool
	once     sync.Once
}

func (s *session) attach(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		_ = conn.Close()
		return false
	}
	s.conn = conn
	return true
}

func (s *session) release() {
	s.once.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.released = true
		if s.conn != nil {
			_ = s.conn.Close()
		}
	})
}
