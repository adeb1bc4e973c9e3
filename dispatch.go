package statsd

type sendParams struct {
	rate     float64
	tags     Tags
	callback Callback
}

// StatOption adjusts how a single metric is sent.
type StatOption func(*sendParams)

// WithRate samples the metric at rate.  Rates in (0, 1) suppress a matching
// share of calls and mark emitted lines with an @rate suffix.  Rates at or
// above 1 send every call unmarked.
func WithRate(rate float64) StatOption {
	return func(p *sendParams) {
		p.rate = rate
	}
}

// WithTags attaches tags to the metric, ahead of the client's global tags.
func WithTags(tags ...string) StatOption {
	return func(p *sendParams) {
		p.tags = p.tags.Concat(tags)
	}
}

// WithCallback invokes cb with the outcome of the send.  For a fan-out the
// callback fires exactly once with the aggregate outcome.
func WithCallback(cb Callback) StatOption {
	return func(p *sendParams) {
		p.callback = cb
	}
}

func newSendParams(m Metric, opts []StatOption) sendParams {
	p := sendParams{rate: m.Rate, tags: m.Tags}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// SendMetrics sends the same metric under every name in names.  Each name
// draws its own sample and the callback, if any, fires exactly once: with the
// first error encountered, or with the total bytes sent once every name has
// completed.  A single name behaves exactly like the matching verb.
func (c *Client) SendMetrics(names []string, m Metric, opts ...StatOption) {
	p := newSendParams(m, opts)
	cb := p.callback
	if cb == nil {
		cb = nopCallback
	}
	if c.mock || len(names) == 0 {
		cb(0, nil)
		return
	}
	m.Rate = p.rate
	m.Tags = p.tags
	if len(names) == 1 {
		c.engine.send(c.prefix, c.suffix, names[0], m, c.tags, cb)
		return
	}
	// Sends complete synchronously, so the aggregate needs no locking.
	agg := &aggregate{remaining: len(names), callback: cb}
	for _, name := range names {
		c.engine.send(c.prefix, c.suffix, name, m, c.tags, agg.complete)
	}
}

// aggregate folds the outcomes of a fan-out into a single callback
// invocation.  The first error wins and later outcomes are ignored, but the
// remaining sends still go out.
type aggregate struct {
	remaining int
	sentBytes int
	failed    bool
	callback  Callback
}

func (a *aggregate) complete(sentBytes int, err error) {
	if a.failed {
		return
	}
	if err != nil {
		a.failed = true
		a.callback(0, err)
		return
	}
	a.sentBytes += sentBytes
	a.remaining--
	if a.remaining == 0 {
		a.callback(a.sentBytes, nil)
	}
}
