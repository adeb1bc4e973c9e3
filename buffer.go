package statsd

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tilinna/clock"

	"github.com/metricdrain/statsd/pkg/pool"
	"github.com/metricdrain/statsd/pkg/transport"
)

// engine is the shared sending machinery behind a Client and all of its
// clones.  It samples, formats and either batches lines into a newline
// separated payload or hands each line to the transport on its own.
type engine struct {
	logger    logrus.FieldLogger
	clock     clock.Clock
	transport *transport.Transport
	randFloat func() float64
	linePool  *pool.LineBuffer

	maxBufferSize int
	flushInterval time.Duration

	closed int32 // read/written atomically

	mu  sync.Mutex
	buf []byte

	closeOnce sync.Once
	closeErr  error
	quit      chan struct{}
	wg        sync.WaitGroup
}

// send samples the metric and routes the formatted line.  cb must not be
// nil.  In buffered mode cb reports the bytes appended to the buffer, in
// unbuffered mode the bytes written to the socket.
func (e *engine) send(prefix, suffix, name string, m Metric, globalTags Tags, cb Callback) {
	if atomic.LoadInt32(&e.closed) == 1 {
		cb(0, ErrClosed)
		return
	}
	if !emitAtRate(m.Rate, e.randFloat) {
		cb(0, nil)
		return
	}
	if e.maxBufferSize > 0 {
		e.enqueue(prefix, suffix, name, m, globalTags, cb)
		return
	}
	// SendMessage completes synchronously, the line can be recycled as soon
	// as it returns.
	b := e.linePool.Get()
	*b = formatLine(*b, prefix, suffix, name, m, globalTags)
	e.transport.SendMessage(*b, transport.Callback(cb))
	e.linePool.Put(b)
}

// enqueue appends the line and a trailing newline to the accumulator and
// flushes the whole accumulator once it has reached maxBufferSize.  The line
// that crosses the threshold ships in the same payload.
func (e *engine) enqueue(prefix, suffix, name string, m Metric, globalTags Tags, cb Callback) {
	e.mu.Lock()
	if atomic.LoadInt32(&e.closed) == 1 {
		e.mu.Unlock()
		cb(0, ErrClosed)
		return
	}
	before := len(e.buf)
	e.buf = formatLine(e.buf, prefix, suffix, name, m, globalTags)
	e.buf = append(e.buf, '\n')
	n := len(e.buf) - before
	if len(e.buf) >= e.maxBufferSize {
		e.flushLocked()
	}
	e.mu.Unlock()
	cb(n, nil)
}

// flushLocked sends the accumulated payload and truncates the accumulator
// in place, keeping its capacity.  Called with e.mu held.
func (e *engine) flushLocked() {
	if len(e.buf) == 0 {
		return
	}
	e.transport.SendMessage(e.buf, nil)
	e.buf = e.buf[:0]
}

// flushLoop ships whatever has accumulated every flushInterval so lines do
// not sit in a quiet buffer indefinitely.  Runs only when buffering is on.
func (e *engine) flushLoop() {
	defer e.wg.Done()
	ticker := e.clock.NewTicker(e.flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			e.mu.Lock()
			e.flushLocked()
			e.mu.Unlock()
		case <-e.quit:
			return
		}
	}
}

// close stops the flush loop, ships the final partial payload and releases
// the transport.  Later sends observe the closed flag and drop.
func (e *engine) close() error {
	e.closeOnce.Do(func() {
		if e.maxBufferSize > 0 {
			close(e.quit)
			e.wg.Wait()
		}
		atomic.StoreInt32(&e.closed, 1)
		e.mu.Lock()
		e.flushLocked()
		e.mu.Unlock()
		e.closeErr = e.transport.Close()
	})
	return e.closeErr
}
