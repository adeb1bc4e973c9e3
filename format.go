package statsd

import (
	"strconv"
)

// formatLine appends a single wire line to buf and returns the extended
// slice. Layout: <prefix><name><suffix>:<value>|<type>[|@<rate>][|#<tags>].
// Per-call tags come before global tags, each group in input order. The
// rate marker is only present for rates inside (0, 1); whether a line is
// emitted at all for such rates has already been decided by emitAtRate.
func formatLine(buf []byte, prefix, suffix, name string, m Metric, globalTags Tags) []byte {
	buf = append(buf, prefix...)
	buf = append(buf, name...)
	buf = append(buf, suffix...)
	buf = append(buf, ':')
	if m.Type == SET {
		buf = append(buf, m.StringValue...)
	} else {
		buf = strconv.AppendFloat(buf, m.Value, 'f', -1, 64)
	}
	buf = append(buf, '|')
	buf = append(buf, m.Type.String()...)
	if isSampled(m.Rate) {
		buf = append(buf, '|', '@')
		buf = strconv.AppendFloat(buf, m.Rate, 'f', -1, 64)
	}
	if len(m.Tags) > 0 || len(globalTags) > 0 {
		buf = append(buf, '|', '#')
		for i, tag := range m.Tags {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = append(buf, tag...)
		}
		if len(m.Tags) > 0 && len(globalTags) > 0 {
			buf = append(buf, ',')
		}
		for i, tag := range globalTags {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = append(buf, tag...)
		}
	}
	return buf
}

// isSampled reports whether rate denotes a real sampling probability.
func isSampled(rate float64) bool {
	return rate > 0 && rate < 1
}

// emitAtRate decides whether a single observation sampled at rate is
// transmitted. draw must return a uniform value in [0, 1). Rates outside
// (0, 1) always transmit. Each fanned-out name gets its own draw.
func emitAtRate(rate float64, draw func() float64) bool {
	if !isSampled(rate) {
		return true
	}
	return draw() < rate
}
