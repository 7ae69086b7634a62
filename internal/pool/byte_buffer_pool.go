// Package pool provides pooled byte buffers to keep inflating .zsav
// blocks allocation-light.
package pool

import (
	"io"
	"sync"
)

// Default and max-retained sizes for the .zsav block buffer pool. A zsav
// block is, in practice, a few KiB to a few hundred KiB uncompressed; the
// stream never holds more than two decoded blocks at once (§4.2), so the
// pool only ever needs to keep two buffers warm.
const (
	ZsavBlockBufferDefaultSize  = 1024 * 64  // 64KiB
	ZsavBlockBufferMaxThreshold = 1024 * 512 // 512KiB
)

// ByteBuffer is a growable byte slice wrapper designed for pooling: Reset
// keeps the backing array, Grow amortizes reallocation.
type ByteBuffer struct {
	// B is the underlying byte slice.
	B []byte
}

// NewByteBuffer creates a new ByteBuffer with the specified default size.
func NewByteBuffer(defaultSize int) *ByteBuffer {
	return &ByteBuffer{
		B: make([]byte, 0, defaultSize),
	}
}

// Bytes returns the underlying byte slice.
func (bb *ByteBuffer) Bytes() []byte {
	return bb.B
}

// Reset resets the buffer to be empty, but retains the allocated memory for reuse.
func (bb *ByteBuffer) Reset() {
	bb.B = bb.B[:0]
}

// Len returns the length of the buffer.
func (bb *ByteBuffer) Len() int {
	return len(bb.B)
}

// Cap returns the capacity of the buffer.
func (bb *ByteBuffer) Cap() int {
	return cap(bb.B)
}

// MustWrite writes data to the buffer, growing it if necessary.
func (bb *ByteBuffer) MustWrite(data []byte) {
	bb.B = append(bb.B, data...)
}

// SetLength sets the length of the buffer to n, growing it if necessary.
// Used to size the buffer to a block's declared uncompressed_size before
// handing it to flate.Reader as a destination.
func (bb *ByteBuffer) SetLength(n int) {
	bb.Grow(n - bb.Len())
	bb.B = bb.B[:n]
}

// Grow grows the buffer to ensure it can hold requiredBytes more bytes
// without reallocating. If the buffer has sufficient capacity, Grow does
// nothing.
//
// The growth strategy is as follows:
//   - For small buffers (<256KB), grow by ZsavBlockBufferDefaultSize to minimize reallocations.
//   - For larger buffers, grow by 25% of current capacity to balance memory usage and reallocation cost.
func (bb *ByteBuffer) Grow(requiredBytes int) {
	if requiredBytes <= 0 {
		return
	}

	available := cap(bb.B) - len(bb.B)
	if available >= requiredBytes {
		return
	}

	growBy := ZsavBlockBufferDefaultSize
	if cap(bb.B) > 4*ZsavBlockBufferDefaultSize {
		growBy = cap(bb.B) / 4
	}
	if growBy < requiredBytes {
		growBy = requiredBytes
	}

	newBuf := make([]byte, len(bb.B), len(bb.B)+growBy)
	copy(newBuf, bb.B)
	bb.B = newBuf
}

// Write appends the contents of data to the buffer, growing it as needed.
func (bb *ByteBuffer) Write(data []byte) (int, error) {
	bb.B = append(bb.B, data...)
	return len(data), nil
}

// WriteTo writes the contents of the buffer to w.
func (bb *ByteBuffer) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(bb.B)
	return int64(n), err
}

// ByteBufferPool is a sync.Pool of ByteBuffers, discarding buffers that
// grew past maxThreshold instead of retaining them.
type ByteBufferPool struct {
	pool         sync.Pool
	maxThreshold int
}

// NewByteBufferPool creates a new ByteBufferPool with buffers of the specified default size.
func NewByteBufferPool(defaultSize int, maxThreshold int) *ByteBufferPool {
	return &ByteBufferPool{
		pool: sync.Pool{
			New: func() any {
				return NewByteBuffer(defaultSize)
			},
		},
		maxThreshold: maxThreshold,
	}
}

// Get retrieves a ByteBuffer from the pool.
func (bbp *ByteBufferPool) Get() *ByteBuffer {
	bb, _ := bbp.pool.Get().(*ByteBuffer)
	return bb
}

// Put returns a ByteBuffer to the pool for reuse.
func (bbp *ByteBufferPool) Put(bb *ByteBuffer) {
	if bb == nil {
		return
	}

	if bbp.maxThreshold > 0 && cap(bb.B) > bbp.maxThreshold {
		return
	}

	bb.Reset()
	bbp.pool.Put(bb)
}

var zsavBlockPool = NewByteBufferPool(ZsavBlockBufferDefaultSize, ZsavBlockBufferMaxThreshold)

// GetZsavBlockBuffer retrieves a ByteBuffer from the shared .zsav block pool.
func GetZsavBlockBuffer() *ByteBuffer {
	return zsavBlockPool.Get()
}

// PutZsavBlockBuffer returns a ByteBuffer to the shared .zsav block pool.
func PutZsavBlockBuffer(bb *ByteBuffer) {
	zsavBlockPool.Put(bb)
}
