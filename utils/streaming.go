package utils

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrSizeLimit reports that a reader produced more bytes than its cap allows.
var ErrSizeLimit = errors.New("size limit exceeded")

// Image payloads are short-lived and bursty; encode scratch space and drained
// uploads both come from one pool so a busy dispatcher allocates flat.
var bufPool = sync.Pool{
	New: func() interface{} { return new(bytes.Buffer) },
}

// Buffers that grew past a typical decoded image stay out of the pool.
const maxPooledBuffer = 8 * 1024 * 1024

// AcquireBuffer returns a reset buffer from the pool.
func AcquireBuffer() *bytes.Buffer {
	b := bufPool.Get().(*bytes.Buffer)
	b.Reset()
	return b
}

// ReleaseBuffer returns b to the pool.  Callers must not use b after this call.
func ReleaseBuffer(b *bytes.Buffer) {
	if b.Cap() > maxPooledBuffer {
		return
	}
	bufPool.Put(b)
}

// contextReader fails the read once ctx is done, so a drain in progress
// stops at the next chunk boundary instead of running to EOF.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// DrainReader pulls all of r into a pooled buffer in chunkSize reads,
// honoring ctx between chunks.  The caller passes the buffer back with
// ReleaseBuffer once the bytes have been copied out.
func DrainReader(ctx context.Context, r io.Reader, chunkSize int) (*bytes.Buffer, error) {
	if chunkSize <= 0 {
		chunkSize = 32 * 1024
	}
	buf := AcquireBuffer()
	src := &contextReader{ctx: ctx, r: r}
	chunk := make([]byte, chunkSize)
	for {
		n, err := src.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
		}
		if err == io.EOF {
			return buf, nil
		}
		if err != nil {
			ReleaseBuffer(buf)
			return nil, err
		}
	}
}

// LimitedReader caps how much an upload may deliver.  Unlike io.LimitReader
// it does not silently truncate: crossing Max yields ErrSizeLimit so the
// caller can reject the payload outright.
type LimitedReader struct {
	R   io.Reader
	Max int64
	n   int64
}

func (l *LimitedReader) Read(p []byte) (int, error) {
	if l.Max <= 0 {
		return l.R.Read(p)
	}
	if l.n >= l.Max {
		return 0, fmt.Errorf("%w: more than %d bytes", ErrSizeLimit, l.Max)
	}
	if remain := l.Max - l.n; int64(len(p)) > remain {
		p = p[:remain]
	}
	n, err := l.R.Read(p)
	l.n += int64(n)
	return n, err
}
