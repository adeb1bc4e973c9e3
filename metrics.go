package statsd

import (
	"fmt"
)

// MetricType is an enumeration of all the possible types of Metric.
type MetricType byte

const (
	_ = iota
	// COUNTER is statsd counter type
	COUNTER MetricType = iota
	// TIMER is statsd timer type
	TIMER
	// GAUGE is statsd gauge type
	GAUGE
	// HISTOGRAM is statsd histogram type
	HISTOGRAM
	// SET is statsd set type
	SET
)

// String returns the wire token for the metric type.
func (m MetricType) String() string {
	switch m {
	case SET:
		return "s"
	case HISTOGRAM:
		return "h"
	case GAUGE:
		return "g"
	case TIMER:
		return "ms"
	case COUNTER:
		return "c"
	}
	return "unknown"
}

// Metric represents a single datapoint to emit.
type Metric struct {
	Value       float64    // The numeric value of the metric
	StringValue string     // The string value for some metrics e.g. Set
	Rate        float64    // The sampling rate of the metric, 0 or >= 1 means unsampled
	Tags        Tags       // The per-call tags for the metric
	Type        MetricType // The type of metric
}

func (m Metric) String() string {
	return fmt.Sprintf("{%s, %f, %s, %v}", m.Type, m.Value, m.StringValue, m.Tags)
}
