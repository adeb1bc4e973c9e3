package statsd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMetricTypeString(t *testing.T) {
	t.Parallel()
	types := []MetricType{COUNTER, TIMER, GAUGE, HISTOGRAM, SET, 42}
	tokens := []string{"c", "ms", "g", "h", "s", "unknown"}
	for idx, token := range tokens {
		require.Equal(t, token, types[idx].String())
	}
}
