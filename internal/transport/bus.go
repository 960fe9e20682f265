// Package transport owns the serial line to the motion-control bus and
// enforces the single-flight request/reply discipline the device requires:
// bytes from the device may arrive in arbitrary chunks and only one
// exchange may be outstanding on the wire at a time.
package transport

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"motionbridge/internal/mcp"
)

// DefaultTimeout is the per-exchange deadline used when the caller does not
// override it.
const DefaultTimeout = 100 * time.Millisecond

// InterCommandSpacing is the minimum delay observed between the end of one
// exchange and the start of the next, to give the device its documented
// recovery window.
const InterCommandSpacing = 5 * time.Millisecond

// readBufferSize is the temporary buffer used for each raw Read call.
const readBufferSize = 256

var (
	// ErrTimeout is returned when no complete reply frame arrives within
	// the exchange deadline.
	ErrTimeout = errors.New("transport: exchange timed out")
	// ErrTransportClosed is returned once the underlying port has been
	// closed or failed; every subsequent exchange on that Bus fails with
	// it.
	ErrTransportClosed = errors.New("transport: connection closed")
)

// Port is the minimal contract the bus needs from a serial device, small
// enough that tests can inject a mock without touching real hardware.
type Port interface {
	Read(b []byte) (int, error)
	Write(b []byte) (int, error)
	Close() error
}

// Bus serializes all request/reply exchanges on a single serial port. At
// most one exchange may be outstanding at any instant; concurrent callers
// wait on the internal mutex.
type Bus struct {
	mu     sync.Mutex
	port   Port
	closed bool
	rx     bytes.Buffer
	log    *logrus.Logger

	lastExchangeEnd time.Time
}

// New wraps an already-open Port in a Bus.
func New(port Port, log *logrus.Logger) *Bus {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Bus{port: port, log: log}
}

// Close waits for any exchange in progress to finish, then marks the bus
// closed and closes the port; all later exchanges fail immediately with
// ErrTransportClosed.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.port.Close()
}

// Exchange sends a single 9-byte request and waits up to timeout for the
// matching 9-byte reply, validated against expectedAddr/expectedOpcode.
// Only one Exchange runs at a time across the whole Bus.
func (b *Bus) Exchange(request [mcp.FrameSize]byte, expectedAddr, expectedOpcode uint8, timeout time.Duration) (mcp.Reply, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return mcp.Reply{}, ErrTransportClosed
	}

	if wait := InterCommandSpacing - time.Since(b.lastExchangeEnd); wait > 0 && !b.lastExchangeEnd.IsZero() {
		time.Sleep(wait)
	}

	b.rx.Reset()

	if _, err := b.port.Write(request[:]); err != nil {
		b.closed = true
		return mcp.Reply{}, fmt.Errorf("%w: write failed: %v", ErrTransportClosed, err)
	}

	raw, err := b.readFrame(timeout)
	b.lastExchangeEnd = time.Now()
	if err != nil {
		return mcp.Reply{}, err
	}

	reply, err := mcp.DecodeReply(raw, expectedAddr, expectedOpcode)
	if err != nil {
		b.log.WithError(err).WithFields(logrus.Fields{
			"addr":   expectedAddr,
			"opcode": expectedOpcode,
		}).Debug("transport: reply rejected")
		return reply, err
	}
	return reply, nil
}

// readFrame accumulates bytes from the port until a complete 9-byte frame
// is buffered. Bytes beyond the frame stay in b.rx until the next exchange,
// which clears them when it starts.
func (b *Bus) readFrame(timeout time.Duration) ([]byte, error) {
	deadline := time.Now().Add(timeout)
	tmp := make([]byte, readBufferSize)

	for {
		if b.rx.Len() >= mcp.FrameSize {
			frame := make([]byte, mcp.FrameSize)
			copy(frame, b.rx.Bytes()[:mcp.FrameSize])
			remaining := append([]byte(nil), b.rx.Bytes()[mcp.FrameSize:]...)
			b.rx.Reset()
			b.rx.Write(remaining)
			return frame, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, ErrTimeout
		}

		n, err := b.port.Read(tmp)
		if err != nil {
			b.closed = true
			return nil, fmt.Errorf("%w: read failed: %v", ErrTransportClosed, err)
		}
		if n > 0 {
			b.rx.Write(tmp[:n])
			continue
		}

		if time.Now().After(deadline) {
			return nil, ErrTimeout
		}
		time.Sleep(time.Millisecond)
	}
}
