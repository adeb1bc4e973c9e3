package fixtures

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

// Packet is one datagram observed by a UDPListener.
type Packet struct {
	Payload []byte
	From    net.Addr // source address, lets tests watch local port rotation
}

// UDPListener plays the collector in tests: a loopback UDP socket pumping
// every received datagram into Packets.
type UDPListener struct {
	Packets chan Packet

	conn *net.UDPConn
	done chan struct{}
}

// NewUDPListener starts a listener on an ephemeral loopback port.
func NewUDPListener(tb testing.TB) *UDPListener {
	addr, err := net.ResolveUDPAddr("udp", "127.0.0.1:0")
	require.NoError(tb, err)
	conn, err := net.ListenUDP("udp", addr)
	require.NoError(tb, err)
	l := &UDPListener{
		Packets: make(chan Packet, 128),
		conn:    conn,
		done:    make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *UDPListener) run() {
	defer close(l.done)
	buf := make([]byte, 64*1024)
	for {
		n, from, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			// Socket closed, test is over.
			return
		}
		payload := make([]byte, n)
		copy(payload, buf[:n])
		select {
		case l.Packets <- Packet{Payload: payload, From: from}:
		default:
		}
	}
}

// Addr returns the host:port the listener is bound to.
func (l *UDPListener) Addr() *net.UDPAddr {
	return l.conn.LocalAddr().(*net.UDPAddr)
}

// Port returns the port the listener is bound to.
func (l *UDPListener) Port() int {
	return l.Addr().Port
}

// Close shuts the socket down and waits for the pump to drain.
func (l *UDPListener) Close() {
	_ = l.conn.Close()
	<-l.done
}
