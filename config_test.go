package statsd

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metricdrain/statsd/internal/fixtures"
)

func TestNewClientRejectsBadConfig(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		cfg  Config
	}{
		{"negative port", Config{Port: -1}},
		{"port too large", Config{Port: 65536}},
		{"negative buffer size", Config{MaxBufferSize: -1}},
		{"negative flush interval", Config{BufferFlushInterval: -time.Second}},
		{"negative refresh interval", Config{SocketRefreshInterval: -time.Second}},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			tc.cfg.Logger = fixtures.NewTestLogger(t)
			client, err := NewClient(tc.cfg)
			require.Error(t, err)
			require.Nil(t, client)
		})
	}
}

func TestNewClientAppliesDefaults(t *testing.T) {
	t.Parallel()
	client := newTestClient(t, Config{})
	e := client.engine
	assert.Equal(t, DefaultMaxBufferSize, e.maxBufferSize)
	assert.Equal(t, DefaultBufferFlushInterval, e.flushInterval)
}

func TestNewClientCopiesGlobalTags(t *testing.T) {
	t.Parallel()
	tags := Tags{"a:b"}
	client := newTestClient(t, Config{GlobalTags: tags})
	tags[0] = "mutated"
	client.Increment("x")
	assert.Equal(t, "x:1|c|#a:b", client.payload(t))
}

func TestNewClientFromViper(t *testing.T) {
	t.Parallel()
	v := viper.New()
	v.Set("statsd.host", "127.0.0.1")
	v.Set("statsd.prefix", "pre.")
	v.Set("statsd.global-tags", []string{"a:b", "c:d"})
	v.Set("statsd.max-buffer-size", 512)

	client, err := NewClientFromViper(v, fixtures.NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	assert.Equal(t, "pre.", client.prefix)
	assert.Equal(t, Tags{"a:b", "c:d"}, client.tags)
	assert.Equal(t, 512, client.engine.maxBufferSize)
	assert.Equal(t, DefaultBufferFlushInterval, client.engine.flushInterval)
}

func TestNewClientFromViperDefaults(t *testing.T) {
	t.Parallel()
	v := viper.New()
	v.Set("statsd.mock", true)

	client, err := NewClientFromViper(v, fixtures.NewTestLogger(t))
	require.NoError(t, err)

	assert.True(t, client.mock)
	assert.Equal(t, "", client.prefix)
	assert.Equal(t, "", client.suffix)
	require.NoError(t, client.Close())
}
