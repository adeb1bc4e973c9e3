// Package pool provides strongly typed wrappers around sync.Pool.
package pool

import (
	"sync"
)

const initialLineCapacity = 256

// LineBuffer is a strongly typed wrapper around a sync.Pool for the byte
// slices metric lines are encoded into.  Unbuffered clients encode one very
// short lived slice per metric, reusing them keeps the hot path allocation
// free.
type LineBuffer struct {
	p sync.Pool
}

// NewLineBuffer returns a new line buffer pool.
func NewLineBuffer() *LineBuffer {
	return &LineBuffer{
		p: sync.Pool{
			New: func() interface{} {
				b := make([]byte, 0, initialLineCapacity)
				return &b
			},
		},
	}
}

// Get returns an empty slice suitable for encoding a line into.  The slice
// must be handed back with Put once the write it was used for has returned.
func (p *LineBuffer) Get() *[]byte {
	b := p.p.Get().(*[]byte)
	*b = (*b)[:0]
	return b
}

// Put returns a slice to the pool.
func (p *LineBuffer) Put(b *[]byte) {
	p.p.Put(b)
}
