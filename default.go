package statsd

import (
	"sync"

	"github.com/tilinna/clock"
)

var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

// SetDefault installs c as the process wide client and returns the
// previously installed one, if any.  Install once during startup, before the
// first Default call from a hot path.
func SetDefault(c *Client) *Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	prev := defaultClient
	defaultClient = c
	return prev
}

// Default returns the process wide client.  Until SetDefault is called it
// returns a mock client, so call sites never need a nil check.
func Default() *Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultClient == nil {
		defaultClient = &Client{mock: true, clock: clock.Realtime()}
	}
	return defaultClient
}
