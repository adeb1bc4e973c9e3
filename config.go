package statsd

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/tilinna/clock"

	"github.com/metricdrain/statsd/internal/util"
	"github.com/metricdrain/statsd/pkg/pool"
	"github.com/metricdrain/statsd/pkg/transport"
)

// Config holds the knobs for a Client.  The zero value is usable: metrics go
// to localhost:8125, unbuffered, over a socket refreshed every minute.
type Config struct {
	// Host is the server to send metrics to.  Defaults to DefaultHost.
	Host string
	// Port is the UDP port on Host.  Defaults to DefaultPort.
	Port int
	// Prefix is prepended to every metric name.
	Prefix string
	// Suffix is appended to every metric name, before the value.
	Suffix string
	// GlobalTags are appended to the tags of every metric, after any
	// per-call tags.
	GlobalTags Tags
	// Mock makes every verb a no-op that still invokes callbacks.
	Mock bool
	// CacheDNS resolves Host once up front and re-resolves in the
	// background on every socket refresh, instead of resolving on every
	// send.
	CacheDNS bool
	// MaxBufferSize is the number of buffered bytes that triggers a flush.
	// 0 disables buffering and sends each metric in its own packet.
	MaxBufferSize int
	// BufferFlushInterval is how often a non-empty buffer is flushed
	// regardless of size.  Only used when MaxBufferSize > 0.  Defaults to
	// DefaultBufferFlushInterval.
	BufferFlushInterval time.Duration
	// SocketRefreshInterval is how often the underlying socket is swapped
	// for a fresh one.  Defaults to DefaultSocketRefreshInterval.
	SocketRefreshInterval time.Duration
	// Logger receives connection lifecycle messages.  Defaults to the
	// logrus standard logger.
	Logger logrus.FieldLogger
	// Clock drives the flush and refresh timers.  Defaults to the real
	// time clock.
	Clock clock.Clock

	// ConnFactory overrides how sockets are created.
	ConnFactory transport.ConnFactory
	// Resolve overrides how Host is resolved.
	Resolve transport.ResolveFunc

	// randFloat overrides the sample rate draw.
	randFloat func() float64
}

// NewClient creates a Client from cfg.  Zero values fall back to the
// Default* constants, negative values are rejected.
func NewClient(cfg Config) (*Client, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	clck := cfg.Clock
	if clck == nil {
		clck = clock.Realtime()
	}
	randFloat := cfg.randFloat
	if randFloat == nil {
		randFloat = rand.Float64
	}
	host := cfg.Host
	if host == "" {
		host = DefaultHost
	}
	port := cfg.Port
	if port == 0 {
		port = DefaultPort
	}
	if port < 0 || port > 65535 {
		return nil, fmt.Errorf("[%s] port must be in the range [1, 65535]", "statsd")
	}
	if cfg.MaxBufferSize < 0 {
		return nil, fmt.Errorf("[%s] max-buffer-size must not be negative", "statsd")
	}
	flushInterval := cfg.BufferFlushInterval
	if flushInterval == 0 {
		flushInterval = DefaultBufferFlushInterval
	}
	if flushInterval < 0 {
		return nil, fmt.Errorf("[%s] buffer-flush-interval must be positive", "statsd")
	}
	refreshInterval := cfg.SocketRefreshInterval
	if refreshInterval == 0 {
		refreshInterval = DefaultSocketRefreshInterval
	}
	if refreshInterval < 0 {
		return nil, fmt.Errorf("[%s] socket-refresh-interval must be positive", "statsd")
	}

	client := &Client{
		prefix: cfg.Prefix,
		suffix: cfg.Suffix,
		tags:   cfg.GlobalTags.Copy(),
		mock:   cfg.Mock,
		clock:  clck,
	}
	if cfg.Mock {
		logger.WithField("mock", true).Info("created client")
		return client, nil
	}

	tr, err := transport.New(transport.Options{
		Logger:          logger,
		Clock:           clck,
		Host:            host,
		Port:            port,
		RefreshInterval: refreshInterval,
		CacheDNS:        cfg.CacheDNS,
		ConnFactory:     cfg.ConnFactory,
		Resolve:         cfg.Resolve,
	})
	if err != nil {
		return nil, err
	}
	e := &engine{
		logger:        logger,
		clock:         clck,
		transport:     tr,
		randFloat:     randFloat,
		linePool:      pool.NewLineBuffer(),
		maxBufferSize: cfg.MaxBufferSize,
		flushInterval: flushInterval,
		quit:          make(chan struct{}),
	}
	if e.maxBufferSize > 0 {
		e.wg.Add(1)
		go e.flushLoop()
	}
	client.engine = e

	logger.WithFields(logrus.Fields{
		"host":                    host,
		"port":                    port,
		"cache-dns":               cfg.CacheDNS,
		"max-buffer-size":         cfg.MaxBufferSize,
		"buffer-flush-interval":   flushInterval,
		"socket-refresh-interval": refreshInterval,
	}).Info("created client")
	return client, nil
}

// NewClientFromViper creates a Client from the "statsd" section of v.
func NewClientFromViper(v *viper.Viper, logger logrus.FieldLogger) (*Client, error) {
	s := util.GetSubViper(v, "statsd")
	s.SetDefault(ParamHost, DefaultHost)
	s.SetDefault(ParamPort, DefaultPort)
	s.SetDefault(ParamPrefix, DefaultPrefix)
	s.SetDefault(ParamSuffix, DefaultSuffix)
	s.SetDefault(ParamGlobalTags, []string(DefaultGlobalTags))
	s.SetDefault(ParamMock, DefaultMock)
	s.SetDefault(ParamCacheDNS, DefaultCacheDNS)
	s.SetDefault(ParamMaxBufferSize, DefaultMaxBufferSize)
	s.SetDefault(ParamBufferFlushInterval, DefaultBufferFlushInterval)
	s.SetDefault(ParamSocketRefreshInterval, DefaultSocketRefreshInterval)
	return NewClient(Config{
		Host:                  s.GetString(ParamHost),
		Port:                  s.GetInt(ParamPort),
		Prefix:                s.GetString(ParamPrefix),
		Suffix:                s.GetString(ParamSuffix),
		GlobalTags:            s.GetStringSlice(ParamGlobalTags),
		Mock:                  s.GetBool(ParamMock),
		CacheDNS:              s.GetBool(ParamCacheDNS),
		MaxBufferSize:         s.GetInt(ParamMaxBufferSize),
		BufferFlushInterval:   s.GetDuration(ParamBufferFlushInterval),
		SocketRefreshInterval: s.GetDuration(ParamSocketRefreshInterval),
		Logger:                logger,
	})
}
