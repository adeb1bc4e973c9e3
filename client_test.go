package statsd

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/ash2k/stager/wait"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tilinna/clock"

	"github.com/metricdrain/statsd/internal/fixtures"
	"github.com/metricdrain/statsd/pkg/fakesocket"
	"github.com/metricdrain/statsd/pkg/transport"
)

// testClient wraps a Client around a recording fake socket and a mock clock.
type testClient struct {
	*Client
	sock *fakesocket.FakePacketConn
	clck *clock.Mock
}

func newTestClient(t *testing.T, cfg Config) *testClient {
	sock := fakesocket.NewFakePacketConn()
	clck := fixtures.NewMockClock()
	cfg.Logger = fixtures.NewTestLogger(t)
	cfg.Clock = clck
	cfg.ConnFactory = func() (net.PacketConn, error) { return sock, nil }
	if cfg.randFloat == nil {
		// Inside every real sampling rate, nothing is suppressed by accident.
		cfg.randFloat = func() float64 { return 0 }
	}
	client, err := NewClient(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return &testClient{Client: client, sock: sock, clck: clck}
}

func (tc *testClient) payload(t *testing.T) string {
	select {
	case p := <-tc.sock.Payloads:
		return string(p)
	case <-time.After(1 * time.Second):
		require.FailNow(t, "expected a payload")
		return ""
	}
}

func (tc *testClient) expectNoPayload(t *testing.T) {
	select {
	case p := <-tc.sock.Payloads:
		require.FailNowf(t, "unexpected payload", "got %q", p)
	default:
	}
}

func TestVerbEncodings(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		send     func(c *Client)
		expected string
	}{
		{"count", func(c *Client) { c.Count("gorets", 11) }, "gorets:11|c"},
		{"increment", func(c *Client) { c.Increment("gorets") }, "gorets:1|c"},
		{"decrement", func(c *Client) { c.Decrement("gorets") }, "gorets:-1|c"},
		{"decrement by", func(c *Client) { c.DecrementBy("gorets", 10) }, "gorets:-10|c"},
		{"gauge", func(c *Client) { c.Gauge("gaugor", 333) }, "gaugor:333|g"},
		{"timing", func(c *Client) { c.TimingMS("glork", 320) }, "glork:320|ms"},
		{"timing duration", func(c *Client) { c.TimingDuration("glork", 320*time.Millisecond) }, "glork:320|ms"},
		{"timing sub-millisecond", func(c *Client) { c.TimingDuration("glork", 1500*time.Microsecond) }, "glork:1.5|ms"},
		{"histogram", func(c *Client) { c.Histogram("load", 0.9) }, "load:0.9|h"},
		{"set", func(c *Client) { c.Unique("uniques", "user42") }, "uniques:user42|s"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			client := newTestClient(t, Config{})
			tc.send(client.Client)
			assert.Equal(t, tc.expected, client.payload(t))
		})
	}
}

func TestUnbufferedSendsEachLineAlone(t *testing.T) {
	t.Parallel()
	client := newTestClient(t, Config{})
	client.Increment("a")
	client.Increment("b")
	assert.Equal(t, "a:1|c", client.payload(t))
	assert.Equal(t, "b:1|c", client.payload(t))
}

func TestUnbufferedCallbackReportsWrittenBytes(t *testing.T) {
	t.Parallel()
	client := newTestClient(t, Config{})
	var gotN int
	var gotErr error
	client.Count("gorets", 1, WithCallback(func(n int, err error) {
		gotN = n
		gotErr = err
	}))
	require.NoError(t, gotErr)
	assert.Equal(t, len("gorets:1|c"), gotN)
}

func TestPrefixSuffixAndGlobalTags(t *testing.T) {
	t.Parallel()
	client := newTestClient(t, Config{
		Prefix:     "app.",
		Suffix:     ".prod",
		GlobalTags: Tags{"gtag"},
	})
	client.Count("test", 1337, WithTags("foo"))
	assert.Equal(t, "app.test.prod:1337|c|#foo,gtag", client.payload(t))
}

func TestSampledOutInvokesCallbackWithoutSending(t *testing.T) {
	t.Parallel()
	client := newTestClient(t, Config{
		randFloat: func() float64 { return 0.99 },
	})
	called := false
	client.Count("gorets", 1, WithRate(0.5), WithCallback(func(n int, err error) {
		called = true
		assert.Zero(t, n)
		assert.NoError(t, err)
	}))
	assert.True(t, called)
	client.expectNoPayload(t)
}

func TestSampledInMarksTheLine(t *testing.T) {
	t.Parallel()
	client := newTestClient(t, Config{
		randFloat: func() float64 { return 0.1 },
	})
	client.Count("gorets", 1, WithRate(0.5))
	assert.Equal(t, "gorets:1|c|@0.5", client.payload(t))
}

func TestTimerMeasuresElapsed(t *testing.T) {
	t.Parallel()
	client := newTestClient(t, Config{})
	timer := client.NewTimer("op")
	client.clck.Add(250 * time.Millisecond)
	timer.Send()
	assert.Equal(t, "op:250|ms", client.payload(t))
}

func TestCloneWithPrefix(t *testing.T) {
	t.Parallel()
	client := newTestClient(t, Config{Prefix: "app."})
	sub := client.CloneWithPrefix("db.")
	sub.Increment("queries")
	assert.Equal(t, "app.db.queries:1|c", client.payload(t))

	// The parent keeps its own prefix.
	client.Increment("requests")
	assert.Equal(t, "app.requests:1|c", client.payload(t))
}

func TestCloneWithTags(t *testing.T) {
	t.Parallel()
	client := newTestClient(t, Config{GlobalTags: Tags{"env:prod"}})
	sub := client.CloneWithTags("svc:auth")
	sub.Increment("logins", WithTags("region:us"))
	assert.Equal(t, "logins:1|c|#region:us,env:prod,svc:auth", client.payload(t))

	client.Increment("logins")
	assert.Equal(t, "logins:1|c|#env:prod", client.payload(t))
}

func TestMissingCallbackNeverPanics(t *testing.T) {
	t.Parallel()
	client := newTestClient(t, Config{})
	require.NotPanics(t, func() {
		client.Increment("a")
		client.Gauge("b", 1)
		client.Unique("c", "x")
		client.SendMetrics([]string{"d", "e"}, Metric{Value: 1, Type: COUNTER})
	})
}

func TestMockClientDoesNoWork(t *testing.T) {
	t.Parallel()
	client, err := NewClient(Config{Mock: true, Logger: fixtures.NewTestLogger(t)})
	require.NoError(t, err)

	called := false
	client.Count("gorets", 1, WithCallback(func(n int, err error) {
		called = true
		assert.Zero(t, n)
		assert.NoError(t, err)
	}))
	// The callback runs synchronously inside the verb.
	assert.True(t, called)

	require.NotPanics(t, func() { client.Gauge("g", 1) })
	assert.Equal(t, transport.Stats{}, client.Stats())
	require.NoError(t, client.Close())
	require.NoError(t, client.Close())
}

func TestConcurrentSendsAllArrive(t *testing.T) {
	t.Parallel()
	client := newTestClient(t, Config{MaxBufferSize: 1 << 20})

	var wg wait.Group
	for i := 0; i < 4; i++ {
		wg.Start(func() {
			for j := 0; j < 100; j++ {
				client.Increment("concurrent")
			}
		})
	}
	wg.Wait()

	// Nothing hit the threshold, the final flush carries every line.
	require.NoError(t, client.Close())
	payload := client.payload(t)
	assert.Equal(t, 400, strings.Count(payload, "concurrent:1|c\n"))
}

func TestCloseIsIdempotent(t *testing.T) {
	t.Parallel()
	client := newTestClient(t, Config{})
	require.NoError(t, client.Close())
	require.NoError(t, client.Close())
}

func TestSendAfterCloseIsDropped(t *testing.T) {
	t.Parallel()
	client := newTestClient(t, Config{})
	require.NoError(t, client.Close())

	called := false
	require.NotPanics(t, func() {
		client.Count("gorets", 1, WithCallback(func(n int, err error) {
			called = true
			assert.Zero(t, n)
			assert.Equal(t, ErrClosed, err)
		}))
	})
	assert.True(t, called)
	client.expectNoPayload(t)
}
