// Package statsd implements a client for emitting application metrics to a
// StatsD-compatible collector over UDP. Metrics are encoded into the
// plaintext statsd line format, optionally sampled, batched into datagrams
// and handed to a transport which periodically rotates its socket and
// re-resolves the collector address without blocking callers.
package statsd

import (
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// DefaultGlobalTags is the default list of tags added to all metrics.
var DefaultGlobalTags = Tags{}

const (
	// DefaultHost is the default collector host.
	DefaultHost = "localhost"
	// DefaultPort is the default collector UDP port.
	DefaultPort = 8125
	// DefaultPrefix is the default metric name prefix.
	DefaultPrefix = ""
	// DefaultSuffix is the default metric name suffix.
	DefaultSuffix = ""
	// DefaultMaxBufferSize is the default batching threshold in bytes. Zero sends every line as its own datagram.
	DefaultMaxBufferSize = 0
	// DefaultBufferFlushInterval is the default interval between flushes of a non-empty buffer.
	DefaultBufferFlushInterval = 1 * time.Second
	// DefaultSocketRefreshInterval is the default interval between socket rotations.
	DefaultSocketRefreshInterval = 60 * time.Second
	// DefaultMock determines whether the client suppresses all transmission.
	DefaultMock = false
	// DefaultCacheDNS determines whether the collector address is resolved asynchronously and cached.
	DefaultCacheDNS = false
)

const (
	// ParamHost is the name of parameter with the collector host.
	ParamHost = "host"
	// ParamPort is the name of parameter with the collector UDP port.
	ParamPort = "port"
	// ParamPrefix is the name of parameter with the metric name prefix.
	ParamPrefix = "prefix"
	// ParamSuffix is the name of parameter with the metric name suffix.
	ParamSuffix = "suffix"
	// ParamGlobalTags is the name of parameter with the list of tags added to all metrics.
	ParamGlobalTags = "global-tags"
	// ParamMock is the name of parameter that suppresses all transmission.
	ParamMock = "mock"
	// ParamCacheDNS is the name of parameter that enables asynchronous address resolution and caching.
	ParamCacheDNS = "cache-dns"
	// ParamMaxBufferSize is the name of parameter with the batching threshold in bytes.
	ParamMaxBufferSize = "max-buffer-size"
	// ParamBufferFlushInterval is the name of parameter with the buffer flush interval.
	ParamBufferFlushInterval = "buffer-flush-interval"
	// ParamSocketRefreshInterval is the name of parameter with the socket refresh interval.
	ParamSocketRefreshInterval = "socket-refresh-interval"
)

// AddFlags adds flags to the specified FlagSet.
func AddFlags(fs *pflag.FlagSet) {
	fs.String(ParamHost, DefaultHost, "Collector host to send metrics to")
	fs.Int(ParamPort, DefaultPort, "Collector UDP port")
	fs.String(ParamPrefix, DefaultPrefix, "Prefix concatenated before every metric name")
	fs.String(ParamSuffix, DefaultSuffix, "Suffix concatenated after every metric name")
	fs.Bool(ParamMock, DefaultMock, "Suppress all transmission, callbacks still fire")
	fs.Bool(ParamCacheDNS, DefaultCacheDNS, "Resolve the collector host asynchronously and cache the address")
	fs.Int(ParamMaxBufferSize, DefaultMaxBufferSize, "Batch metric lines up to this many bytes (0 sends each line immediately)")
	fs.Duration(ParamBufferFlushInterval, DefaultBufferFlushInterval, "How often to flush a non-empty buffer")
	fs.Duration(ParamSocketRefreshInterval, DefaultSocketRefreshInterval, "How often to rotate the outbound socket")
	//TODO Remove workaround when https://github.com/spf13/viper/issues/112 is fixed
	// https://github.com/spf13/viper/issues/200
	fs.String(ParamGlobalTags, strings.Join(DefaultGlobalTags, ","), "Comma-separated list of tags to add to all metrics")
}
