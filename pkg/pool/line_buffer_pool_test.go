package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineBufferGetReturnsEmptySlice(t *testing.T) {
	t.Parallel()
	p := NewLineBuffer()

	b := p.Get()
	require.NotNil(t, b)
	assert.Empty(t, *b)
	assert.NotZero(t, cap(*b))

	*b = append(*b, "dirty:1|c"...)
	p.Put(b)

	// A recycled slice comes back empty, whatever was written to it before.
	b2 := p.Get()
	assert.Empty(t, *b2)
}

func TestLineBufferGrownSlicesKeepCapacity(t *testing.T) {
	t.Parallel()
	p := NewLineBuffer()

	b := p.Get()
	*b = append(*b, make([]byte, 4096)...)
	grown := cap(*b)
	p.Put(b)

	b2 := p.Get()
	if b2 == b {
		assert.Equal(t, grown, cap(*b2))
	}
	assert.Empty(t, *b2)
}
