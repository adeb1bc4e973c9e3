// Package transport owns the outbound UDP socket of a statsd client. It
// rotates the socket on a refresh interval, keeps the rotated-out socket
// alive long enough for writes issued against it to complete, and caches
// the asynchronously resolved collector address when DNS caching is on.
package transport

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tilinna/clock"
)

// ErrClosed is reported through callbacks for sends attempted after Close.
var ErrClosed = errors.New("transport is closed")

// Callback is invoked when a payload has been handed to the socket, with
// the number of bytes written, or with the error that dropped it.
type Callback func(sentBytes int, err error)

// ConnFactory is a replacement for net.ListenPacket() producing the
// unconnected sockets the transport writes through.
type ConnFactory func() (net.PacketConn, error)

// ResolveFunc resolves a host:port string to a UDP address.
type ResolveFunc func(addr string) (*net.UDPAddr, error)

// Options contains the knobs for New.
type Options struct {
	Logger          logrus.FieldLogger
	Clock           clock.Clock   // nil means the real time clock
	Host            string        // collector host, name or IP
	Port            int           // collector UDP port
	RefreshInterval time.Duration // how often the socket is rotated
	CacheDNS        bool          // resolve Host asynchronously and cache the result
	ConnFactory     ConnFactory   // nil means real UDP sockets
	Resolve         ResolveFunc   // nil means net.ResolveUDPAddr
}

// Transport sends payloads as UDP datagrams to the collector. The refresh
// check runs on every send rather than on its own timer: when the active
// socket is older than RefreshInterval a fresh one is swapped in and the
// old one is closed only after a further full interval, so writes issued
// against it before the swap are not truncated.
type Transport struct {
	// Counter fields below must be read/written only using atomic instructions.
	// 64-bit fields must be the first fields in the struct to guarantee proper memory alignment.
	// See https://golang.org/pkg/sync/atomic/#pkg-note-BUG
	packetsSent    uint64
	packetsDropped uint64
	bytesSent      uint64

	logger logrus.FieldLogger
	clock  clock.Clock

	hostPort        string // "host:port" handed to the resolver
	port            int
	refreshInterval time.Duration
	cacheDNS        bool

	connFactory ConnFactory
	resolve     ResolveFunc

	closeOnce sync.Once

	mu           sync.Mutex
	conn         net.PacketConn
	connCreated  time.Time
	resolvedAddr *net.UDPAddr // nil until the first successful resolution
	pending      map[net.PacketConn]*clock.Timer
	closed       bool
}

// Stats is a point in time snapshot of the transport counters.
type Stats struct {
	PacketsSent    uint64
	PacketsDropped uint64
	BytesSent      uint64
}

// New creates an initialized Transport with an open socket. When CacheDNS
// is set the first resolution is started immediately but not waited for:
// sends fall back to 127.0.0.1 until a lookup succeeds.
func New(options Options) (*Transport, error) {
	if options.Logger == nil {
		return nil, fmt.Errorf("[%s] logger may not be nil", "transport")
	}
	if options.Host == "" {
		return nil, fmt.Errorf("[%s] host may not be empty", "transport")
	}
	if options.Port <= 0 || options.Port > 65535 {
		return nil, fmt.Errorf("[%s] port must be in range 1-65535", "transport")
	}
	if options.RefreshInterval <= 0 {
		return nil, fmt.Errorf("[%s] refresh interval must be positive", "transport")
	}
	clck := options.Clock
	if clck == nil {
		clck = clock.Realtime()
	}
	connFactory := options.ConnFactory
	if connFactory == nil {
		connFactory = func() (net.PacketConn, error) {
			return net.ListenPacket("udp", ":0")
		}
	}
	resolve := options.Resolve
	if resolve == nil {
		resolve = func(addr string) (*net.UDPAddr, error) {
			return net.ResolveUDPAddr("udp", addr)
		}
	}
	conn, err := connFactory()
	if err != nil {
		return nil, fmt.Errorf("[%s] error opening socket: %v", "transport", err)
	}
	t := &Transport{
		logger:          options.Logger,
		clock:           clck,
		hostPort:        net.JoinHostPort(options.Host, strconv.Itoa(options.Port)),
		port:            options.Port,
		refreshInterval: options.RefreshInterval,
		cacheDNS:        options.CacheDNS,
		connFactory:     connFactory,
		resolve:         resolve,
		conn:            conn,
		connCreated:     clck.Now(),
		pending:         make(map[net.PacketConn]*clock.Timer),
	}
	if t.cacheDNS {
		go t.resolveHost()
	}
	return t, nil
}

// SendMessage writes payload as a single datagram. cb may be nil. Socket
// errors are counted, logged at debug and delivered through cb, never
// returned: a failed send must cost the caller nothing but the metric.
func (t *Transport) SendMessage(payload []byte, cb Callback) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		if cb != nil {
			cb(0, ErrClosed)
		}
		return
	}
	t.maybeRefresh()
	conn := t.conn
	dst := t.destination()
	t.mu.Unlock()

	if dst == nil {
		// DNS caching is off: the configured host is resolved on every send.
		addr, err := t.resolve(t.hostPort)
		if err != nil {
			atomic.AddUint64(&t.packetsDropped, 1)
			t.logger.WithError(err).Debug("failed to resolve collector address")
			if cb != nil {
				cb(0, err)
			}
			return
		}
		dst = addr
	}

	n, err := conn.WriteTo(payload, dst)
	if err != nil {
		atomic.AddUint64(&t.packetsDropped, 1)
		t.logger.WithError(err).Debug("failed to send packet")
		if cb != nil {
			cb(0, err)
		}
		return
	}
	atomic.AddUint64(&t.packetsSent, 1)
	atomic.AddUint64(&t.bytesSent, uint64(n))
	if cb != nil {
		cb(n, nil)
	}
}

// maybeRefresh rotates the socket once it has outlived the refresh
// interval. Called with t.mu held.
func (t *Transport) maybeRefresh() {
	now := t.clock.Now()
	if now.Sub(t.connCreated) < t.refreshInterval {
		return
	}
	conn, err := t.connFactory()
	if err != nil {
		// Keep writing through the old socket, the next send retries.
		t.logger.WithError(err).Warn("failed to open replacement socket")
		return
	}
	old := t.conn
	t.conn = conn
	t.connCreated = now
	t.scheduleClose(old)
	if t.cacheDNS {
		go t.resolveHost()
	}
}

// scheduleClose parks the rotated-out socket until a full refresh interval
// has passed. The timer task owns the handle from here on. Called with
// t.mu held.
func (t *Transport) scheduleClose(old net.PacketConn) {
	t.pending[old] = t.clock.AfterFunc(t.refreshInterval, func() {
		t.mu.Lock()
		delete(t.pending, old)
		t.mu.Unlock()
		if err := old.Close(); err != nil {
			t.logger.WithError(err).Debug("failed to close rotated socket")
		}
	})
}

// resolveHost runs one asynchronous lookup of the collector host and
// applies the outcome. Failures are absorbed: the previously cached
// address, or the loopback default, keeps serving sends.
func (t *Transport) resolveHost() {
	addr, err := t.resolve(t.hostPort)
	if err != nil {
		t.logger.WithError(err).Debug("failed to resolve collector host, keeping cached address")
		return
	}
	t.applyResolution(addr)
}

// applyResolution installs the result of a finished lookup. Lookups are
// not sequenced: whichever completion lands last wins, even if its lookup
// started earlier.
func (t *Transport) applyResolution(addr *net.UDPAddr) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.resolvedAddr = addr
}

// destination returns the cached target address, the loopback default
// before the first successful lookup, or nil when DNS caching is off.
// Called with t.mu held.
func (t *Transport) destination() net.Addr {
	if !t.cacheDNS {
		return nil
	}
	if t.resolvedAddr != nil {
		return t.resolvedAddr
	}
	return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: t.port}
}

// Stats returns a snapshot of the transport counters.
func (t *Transport) Stats() Stats {
	return Stats{
		PacketsSent:    atomic.LoadUint64(&t.packetsSent),
		PacketsDropped: atomic.LoadUint64(&t.packetsDropped),
		BytesSent:      atomic.LoadUint64(&t.bytesSent),
	}
}

// Close releases the active socket and every rotated-out socket still
// waiting on its close timer. Idempotent. In-flight lookups are not
// cancelled, their late completions are absorbed harmlessly.
func (t *Transport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		t.mu.Lock()
		t.closed = true
		conn := t.conn
		t.conn = nil
		for old, timer := range t.pending {
			timer.Stop()
			delete(t.pending, old)
			if e := old.Close(); e != nil {
				t.logger.WithError(e).Debug("failed to close rotated socket")
			}
		}
		t.mu.Unlock()
		if conn != nil {
			err = conn.Close()
		}
	})
	return err
}
