package statsd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metricdrain/statsd/internal/fixtures"
)

// The default handle is process wide state, so these tests do not run in
// parallel and restore whatever was installed before them.

func TestDefaultIsSafeBeforeRegistration(t *testing.T) {
	prev := SetDefault(nil)
	defer SetDefault(prev)

	c := Default()
	require.NotNil(t, c)
	require.NotPanics(t, func() {
		c.Increment("works.without.registration")
	})
	require.NoError(t, c.Close())

	// The placeholder is stable across calls.
	assert.Same(t, c, Default())
}

func TestSetDefaultInstallsAndReturnsPrevious(t *testing.T) {
	mock, err := NewClient(Config{Mock: true, Logger: fixtures.NewTestLogger(t)})
	require.NoError(t, err)

	prev := SetDefault(mock)
	defer SetDefault(prev)

	assert.Same(t, mock, Default())
	assert.Same(t, mock, SetDefault(prev))
}
