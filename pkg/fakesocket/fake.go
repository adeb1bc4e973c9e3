// Package fakesocket provides net.PacketConn implementations for tests
// that need to observe or fail outbound datagrams without real sockets.
package fakesocket

import (
	"errors"
	"net"
	"sync/atomic"
	"time"
)

// FakeAddr is a fake net.Addr
var FakeAddr = &net.UDPAddr{
	IP:   net.IPv4(127, 0, 0, 1),
	Port: 8181,
}

var ErrClosedConnection = errors.New("connection is closed")
var ErrAlreadyClosedConnection = errors.New("connection is already closed")

// ErrWrite is the error produced by FakeFailingPacketConn writes.
var ErrWrite = errors.New("write refused")

// FakePacketConn is a fake net.PacketConn recording every payload written
// through it.
type FakePacketConn struct {
	Payloads chan []byte // receives a copy of each written payload
	closed   chan int
}

func (fpc *FakePacketConn) isClosed() bool {
	select {
	case <-fpc.closed:
		return true
	default:
		return false
	}
}

// ReadFrom dummy impl.
func (fpc *FakePacketConn) ReadFrom(b []byte) (int, net.Addr, error) {
	if fpc.isClosed() {
		return 0, nil, ErrClosedConnection
	}
	return 0, FakeAddr, nil
}

// WriteTo records b and reports it fully written.
func (fpc *FakePacketConn) WriteTo(b []byte, addr net.Addr) (int, error) {
	if fpc.isClosed() {
		return 0, ErrClosedConnection
	}
	payload := make([]byte, len(b))
	copy(payload, b)
	select {
	case fpc.Payloads <- payload:
	default:
		// A test not draining Payloads must not deadlock the writer.
	}
	return len(b), nil
}

// Close dummy impl.
func (fpc *FakePacketConn) Close() error {
	if fpc.isClosed() {
		return ErrAlreadyClosedConnection
	}
	// Potential race, but it's a test fixture anyway
	close(fpc.closed)
	return nil
}

// LocalAddr dummy impl.
func (fpc *FakePacketConn) LocalAddr() net.Addr { return FakeAddr }

// SetDeadline dummy impl.
func (fpc *FakePacketConn) SetDeadline(t time.Time) error { return nil }

// SetReadDeadline dummy impl.
func (fpc *FakePacketConn) SetReadDeadline(t time.Time) error { return nil }

// SetWriteDeadline dummy impl.
func (fpc *FakePacketConn) SetWriteDeadline(t time.Time) error { return nil }

// FakeFailingPacketConn is a fake net.PacketConn refusing every write.
type FakeFailingPacketConn struct {
	FakePacketConn
}

// WriteTo fails unconditionally.
func (ffpc *FakeFailingPacketConn) WriteTo(b []byte, addr net.Addr) (int, error) {
	return 0, ErrWrite
}

// NewFakePacketConn creates an initialized FakePacketConn.
func NewFakePacketConn() *FakePacketConn {
	return &FakePacketConn{
		Payloads: make(chan []byte, 128),
		closed:   make(chan int),
	}
}

// NewFakeFailingPacketConn creates an initialized FakeFailingPacketConn.
func NewFakeFailingPacketConn() *FakeFailingPacketConn {
	return &FakeFailingPacketConn{
		FakePacketConn: FakePacketConn{
			Payloads: make(chan []byte, 128),
			closed:   make(chan int),
		},
	}
}

// Factory is a replacement for net.ListenPacket() that produces instances
// of FakePacketConn and keeps track of them.
type Factory struct {
	created uint64 // atomic

	Conns chan *FakePacketConn // receives every conn the factory makes
}

// NewFactory creates an initialized Factory.
func NewFactory() *Factory {
	return &Factory{
		Conns: make(chan *FakePacketConn, 16),
	}
}

// PacketConn makes a new FakePacketConn.
func (f *Factory) PacketConn() (net.PacketConn, error) {
	fpc := NewFakePacketConn()
	atomic.AddUint64(&f.created, 1)
	select {
	case f.Conns <- fpc:
	default:
	}
	return fpc, nil
}

// Created returns the number of conns the factory has made.
func (f *Factory) Created() uint64 {
	return atomic.LoadUint64(&f.created)
}
