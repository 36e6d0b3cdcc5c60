package pools

import (
	"bytes"
	"sync"
)

// Buffer size classes
const (
	SmallSize  = 16 << 10
	MediumSize = 128 << 10
	LargeSize  = 1 << 20
	MaxPool    = 8 << 20 // larger buffers are dropped on Put
)

// BufferPool hands out reset bytes.Buffers with at least a requested capacity
type BufferPool struct {
	small  sync.Pool
	medium sync.Pool
	large  sync.Pool
}

// NewBufferPool creates an empty pool
func NewBufferPool() *BufferPool {
	newBuffer := func(size int) func() any {
		return func() any { return bytes.NewBuffer(make([]byte, 0, size)) }
	}
	return &BufferPool{
		small:  sync.Pool{New: newBuffer(SmallSize)},
		medium: sync.Pool{New: newBuffer(MediumSize)},
		large:  sync.Pool{New: newBuffer(LargeSize)},
	}
}

func (p *BufferPool) class(size int) *sync.Pool {
	switch {
	case size <= SmallSize:
		return &p.small
	case size <= MediumSize:
		return &p.medium
	case size <= LargeSize:
		return &p.large
	}
	return nil
}

// Get returns an empty buffer with capacity for at least sizeHint bytes
func (p *BufferPool) Get(sizeHint int) *bytes.Buffer {
	pool := p.class(sizeHint)
	if pool == nil {
		return bytes.NewBuffer(make([]byte, 0, sizeHint))
	}
	buf, ok := pool.Get().(*bytes.Buffer)
	if !ok {
		return bytes.NewBuffer(make([]byte, 0, sizeHint))
	}
	buf.Reset()
	buf.Grow(sizeHint)
	return buf
}

// Put returns a buffer to the class matching its capacity
func (p *BufferPool) Put(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > MaxPool {
		return
	}
	c := buf.Cap()
	var pool *sync.Pool
	switch {
	case c >= LargeSize:
		pool = &p.large
	case c >= MediumSize:
		pool = &p.medium
	default:
		pool = &p.small
	}
	buf.Reset()
	pool.Put(buf)
}

var defaultBufferPool = NewBufferPool()

// GetBuffer takes a buffer from the default pool
func GetBuffer(sizeHint int) *bytes.Buffer {
	return defaultBufferPool.Get(sizeHint)
}

// PutBuffer returns a buffer to the default pool
func PutBuffer(buf *bytes.Buffer) {
	defaultBufferPool.Put(buf)
}

// SizeHint estimates the encoded size of a frame with n nodes and m links
func SizeHint(format string, nodes, links int) int {
	perNode, perLink := 320, 160
	switch format {
	case "png":
		return LargeSize
	case "layout":
		perNode, perLink = 160, 96
	}
	return 1024 + nodes*perNode + links*perLink
}
