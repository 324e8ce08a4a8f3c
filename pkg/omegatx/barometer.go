package omegatx

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"sync"
	"time"
)

// Barometer is a client for the iBTHX-W transmitter, which answers text
// commands on a persistent TCP stream.
//
// A Barometer is not safe for concurrent use; poll each transmitter from
// one goroutine.
type Barometer struct {
	conn     net.Conn
	rd       *bufio.Reader
	open     bool
	addr     string
	timeout  time.Duration
	commands []Command
	logger   *slog.Logger
	mu       sync.Mutex
}

// NewBarometer creates a client for the iBTHX-W at address.
// It does not connect; call Connect or use With.
func NewBarometer(address string, opts ...Option) (*Barometer, error) {
	cfg, err := buildConfig(opts)
	if err != nil {
		return nil, err
	}

	return &Barometer{
		addr:     net.JoinHostPort(address, strconv.Itoa(cfg.portOr(DefaultBarometerPort))),
		timeout:  cfg.timeout,
		commands: cfg.commands,
		logger:   cfg.logger,
	}, nil
}

// Address returns the host:port the client dials.
func (b *Barometer) Address() string {
	return b.addr
}

// Connect opens the TCP stream. The configured timeout bounds the dial
// unless ctx carries an earlier deadline. Connecting twice is a no-op.
func (b *Barometer) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.open {
		return nil
	}

	if err := b.dial(ctx); err != nil {
		if b.logger != nil {
			b.logger.Error("failed connection attempt", "addr", b.addr, "error", err)
		}
		return fmt.Errorf("%w: %s: %w", ErrConnect, b.addr, err)
	}
	b.open = true

	if b.logger != nil {
		b.logger.Debug("connected to device", "addr", b.addr)
	}
	return nil
}

// dial opens a fresh stream. Callers hold b.mu.
func (b *Barometer) dial(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", b.addr)
	if err != nil {
		return err
	}
	b.conn = conn
	b.rd = bufio.NewReaderSize(conn, ReadBufferSize)
	return nil
}

// Close closes the stream if one is open. Closing twice is a no-op.
func (b *Barometer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return nil
	}
	b.open = false

	var err error
	if b.conn != nil {
		err = b.conn.Close()
	}
	b.conn, b.rd = nil, nil
	if b.logger != nil {
		b.logger.Debug("connection closed", "addr", b.addr)
	}
	return err
}

// Get queries every channel in the command table, in order.
//
// A channel whose command times out, errors or returns text that is not a
// number is recorded as absent and the sequence continues. When no channel
// produced a value the returned Reading is empty. The only error returned
// is ErrNotConnected.
func (b *Barometer) Get(ctx context.Context) (Reading, error) {
	b.mu.Lock()
	open := b.open
	b.mu.Unlock()
	if !open {
		if b.logger != nil {
			b.logger.Error("TCP connection not created before the request", "addr", b.addr)
		}
		return Reading{}, ErrNotConnected
	}

	r := Reading{
		Time:     time.Now(),
		Channels: make([]Channel, 0, len(b.commands)),
	}
	for _, cmd := range b.commands {
		r.Channels = append(r.Channels, Channel{
			Label: cmd.Label,
			Value: b.query(ctx, cmd),
		})
	}

	if r.AllAbsent() {
		if b.logger != nil {
			b.logger.Warn("no channel returned a value", "addr", b.addr)
		}
		return Reading{}, nil
	}
	return r, nil
}

// stream returns the open stream, redialing when a previous command
// dropped it. Bytes left over from an earlier response are discarded.
func (b *Barometer) stream(ctx context.Context) (net.Conn, *bufio.Reader, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		if err := b.dial(ctx); err != nil {
			return nil, nil, err
		}
		if b.logger != nil {
			b.logger.Debug("reconnected to device", "addr", b.addr)
		}
	}
	if n := b.rd.Buffered(); n > 0 {
		if b.logger != nil {
			b.logger.Debug("discarding stale bytes", "addr", b.addr, "bytes", n)
		}
		b.rd.Discard(n)
	}
	return b.conn, b.rd, nil
}

// drop closes the stream after a response went missing, so a late reply
// cannot be taken as the answer to the next command.
func (b *Barometer) drop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn != nil {
		b.conn.Close()
	}
	b.conn, b.rd = nil, nil
}

// query runs one command round-trip and converts the outcome to a Value.
func (b *Barometer) query(ctx context.Context, cmd Command) Value {
	deadline := b.deadline(ctx)
	dctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	conn, rd, err := b.stream(dctx)
	if err != nil {
		b.warn("failed to reconnect", cmd, err)
		return Absent()
	}

	if err := conn.SetDeadline(deadline); err != nil {
		b.warn("failed to set deadline", cmd, err)
		b.drop()
		return Absent()
	}
	if _, err := conn.Write(EncodeCommand(cmd.Code)); err != nil {
		b.warn("failed to send command", cmd, err)
		b.drop()
		return Absent()
	}

	line, err := rd.ReadSlice(commandTerminator)
	if err != nil {
		switch {
		case errors.Is(err, os.ErrDeadlineExceeded):
			b.warn(fmt.Sprintf("failed to read based on timeout of %s", b.timeout), cmd, err)
		case errors.Is(err, bufio.ErrBufferFull):
			b.warn("response exceeds read buffer", cmd, err)
		default:
			b.warn("failed to read response", cmd, err)
		}
		b.drop()
		return Absent()
	}

	// A \n trailing the previous reply can lead this one.
	line = bytes.TrimLeft(line, "\n")

	v, err := ParseResponse(line)
	switch {
	case errors.Is(err, ErrDeviceError):
		if b.logger != nil {
			b.logger.Error("failed read from device", "addr", b.addr, "command", cmd.Code, "response", string(line))
		}
		return Absent()
	case err != nil:
		b.warn("failed read from device; unidentified response", cmd, err)
		return Absent()
	}

	if b.logger != nil {
		b.logger.Debug("response received", "command", cmd.Code, "value", v)
	}
	return Present(v)
}

// deadline is now plus the per-operation timeout, or the context deadline
// when that comes first.
func (b *Barometer) deadline(ctx context.Context) time.Time {
	d := time.Now().Add(b.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(d) {
		return ctxDeadline
	}
	return d
}

func (b *Barometer) warn(msg string, cmd Command, err error) {
	if b.logger != nil {
		b.logger.Warn(msg, "addr", b.addr, "command", cmd.Code, "error", err)
	}
}
