package statsd

import (
	"time"

	"github.com/tilinna/clock"

	"github.com/metricdrain/statsd/pkg/transport"
)

// ErrClosed is returned through callbacks for metrics sent after Close.
var ErrClosed = transport.ErrClosed

// Callback receives the outcome of a send.  sentBytes is the number of bytes
// handed to the socket, or enqueued when buffering is active.
type Callback func(sentBytes int, err error)

func nopCallback(int, error) {}

// Client sends metrics to a statsd server.  Methods are safe for concurrent
// use.  Derived clients made with CloneWithPrefix and CloneWithTags share the
// same socket and buffer.
type Client struct {
	prefix string
	suffix string
	tags   Tags
	mock   bool
	clock  clock.Clock
	engine *engine
}

// Count adds amount to the named counter.
func (c *Client) Count(name string, amount float64, opts ...StatOption) {
	c.send(name, Metric{Value: amount, Type: COUNTER}, opts)
}

// Increment adds 1 to the named counter.
func (c *Client) Increment(name string, opts ...StatOption) {
	c.send(name, Metric{Value: 1, Type: COUNTER}, opts)
}

// Decrement subtracts 1 from the named counter.
func (c *Client) Decrement(name string, opts ...StatOption) {
	c.send(name, Metric{Value: -1, Type: COUNTER}, opts)
}

// DecrementBy subtracts amount from the named counter.
func (c *Client) DecrementBy(name string, amount float64, opts ...StatOption) {
	c.send(name, Metric{Value: -amount, Type: COUNTER}, opts)
}

// Gauge sets the named gauge to value.
func (c *Client) Gauge(name string, value float64, opts ...StatOption) {
	c.send(name, Metric{Value: value, Type: GAUGE}, opts)
}

// TimingMS records a duration in milliseconds.
func (c *Client) TimingMS(name string, ms float64, opts ...StatOption) {
	c.send(name, Metric{Value: ms, Type: TIMER}, opts)
}

// TimingDuration records d as a timer metric with millisecond precision.
func (c *Client) TimingDuration(name string, d time.Duration, opts ...StatOption) {
	c.TimingMS(name, float64(d)/float64(time.Millisecond), opts...)
}

// Histogram records a value for the named histogram.
func (c *Client) Histogram(name string, value float64, opts ...StatOption) {
	c.send(name, Metric{Value: value, Type: HISTOGRAM}, opts)
}

// Unique records value as a member of the named set.
func (c *Client) Unique(name string, value string, opts ...StatOption) {
	c.send(name, Metric{StringValue: value, Type: SET}, opts)
}

// Timer measures elapsed time for a single operation.
type Timer struct {
	c     *Client
	name  string
	opts  []StatOption
	start time.Time
}

// NewTimer starts a timer for name.  Call Send on it to record the elapsed
// time.
func (c *Client) NewTimer(name string, opts ...StatOption) *Timer {
	return &Timer{c: c, name: name, opts: opts, start: c.clock.Now()}
}

// Send records the time elapsed since the timer was started.
func (t *Timer) Send() {
	t.c.TimingDuration(t.name, t.c.clock.Now().Sub(t.start), t.opts...)
}

// CloneWithPrefix returns a client with prefix appended to this client's
// prefix.  The clone shares the parent's socket and buffer.
func (c *Client) CloneWithPrefix(prefix string) *Client {
	clone := *c
	clone.prefix = c.prefix + prefix
	return &clone
}

// CloneWithTags returns a client with tags appended to this client's global
// tags.  The clone shares the parent's socket and buffer.
func (c *Client) CloneWithTags(tags ...string) *Client {
	clone := *c
	clone.tags = c.tags.Concat(tags)
	return &clone
}

// Stats returns a snapshot of the transport counters.
func (c *Client) Stats() transport.Stats {
	if c.engine == nil {
		return transport.Stats{}
	}
	return c.engine.transport.Stats()
}

// Close flushes any buffered metrics, stops the background timers and
// releases the socket.  It is safe to call more than once.  Metrics sent
// after Close are dropped and their callbacks receive ErrClosed.
func (c *Client) Close() error {
	if c.engine == nil {
		return nil
	}
	return c.engine.close()
}

func (c *Client) send(name string, m Metric, opts []StatOption) {
	p := newSendParams(m, opts)
	cb := p.callback
	if cb == nil {
		cb = nopCallback
	}
	if c.mock {
		cb(0, nil)
		return
	}
	m.Rate = p.rate
	m.Tags = p.tags
	c.engine.send(c.prefix, c.suffix, name, m, c.tags, cb)
}
