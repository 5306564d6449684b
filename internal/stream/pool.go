package stream

import "sync"

const (
	// DefaultBufferSize is the capacity of the reader's scratch window.
	// Sources smaller than this are buffered whole.
	DefaultBufferSize = 4096

	// DefaultChunkSize bounds the intermediate buffer used when
	// streaming large payloads out of the source, so bulk extraction
	// never materializes a whole payload in one allocation.
	DefaultChunkSize = 80 * 1024
)

var bufferPool = sync.Pool{
	New: func() any {
		b := make([]byte, DefaultBufferSize)
		return &b
	},
}

var chunkPool = sync.Pool{
	New: func() any {
		b := make([]byte, DefaultChunkSize)
		return &b
	},
}

func acquireBuffer(size int) *[]byte {
	if size > DefaultBufferSize {
		// Oversized windows are configured, not pooled.
		b := make([]byte, size)
		return &b
	}
	bp := bufferPool.Get().(*[]byte)
	if cap(*bp) < size {
		*bp = make([]byte, size)
	}
	*bp = (*bp)[:size]
	return bp
}

func releaseBuffer(bp *[]byte) {
	if cap(*bp) > DefaultBufferSize {
		return
	}
	bufferPool.Put(bp)
}
