// Package stream implements the buffered, endianness-aware cursor the
// box parser walks a container with, the fixed big-endian writer used
// for serialization, and the bounds-checked segment views carved out
// for each box payload.
package stream

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/deploymenttheory/go-avif/internal/interfaces"
	"github.com/deploymenttheory/go-avif/internal/types"
)

// Reader is a buffered cursor over a ByteSource. One reader is bound to
// one source for the lifetime of an open operation; it is not safe for
// concurrent use. Box traversal mutates the shared cursor position, so
// nested segments all reposition this single reader.
type Reader struct {
	src    interfaces.ByteSource
	size   uint64
	order  binary.ByteOrder
	buf    *[]byte
	chunk  int    // copy chunk bound, 0 selects DefaultChunkSize
	srcPos uint64 // source offset just past the buffered window
	off    int    // next unread byte within the window
	length int    // valid bytes in the window
	closed bool
}

// Options tunes a reader. Zero values select the defaults.
type Options struct {
	// BufferSize is the scratch window capacity in bytes.
	BufferSize int

	// ChunkSize bounds each piece of a bulk CopyTo pass.
	ChunkSize int
}

// NewReader creates a reader over src with the given byte order and the
// default buffer sizes. The scratch window is pooled and returned on
// Close.
func NewReader(src interfaces.ByteSource, order binary.ByteOrder) *Reader {
	return NewReaderOptions(src, order, Options{})
}

// NewReaderOptions creates a reader with explicit buffer tuning.
func NewReaderOptions(src interfaces.ByteSource, order binary.ByteOrder, opts Options) *Reader {
	size := src.Size()
	if size < 0 {
		size = 0
	}
	bufSize := opts.BufferSize
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	if size < int64(bufSize) {
		bufSize = int(size)
	}
	if bufSize == 0 {
		bufSize = 1
	}
	chunk := opts.ChunkSize
	if chunk < 0 {
		chunk = 0
	}
	return &Reader{
		src:   src,
		size:  uint64(size),
		order: order,
		buf:   acquireBuffer(bufSize),
		chunk: chunk,
	}
}

// Close releases the pooled scratch window. The reader is unusable
// afterwards; all operations return ErrClosed.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	releaseBuffer(r.buf)
	r.buf = nil
	return nil
}

// Length returns the total length of the underlying source.
func (r *Reader) Length() uint64 {
	return r.size
}

// Position returns the cursor's absolute offset in the source.
func (r *Reader) Position() uint64 {
	return r.srcPos - uint64(r.length) + uint64(r.off)
}

// SetPosition moves the cursor. A target inside the buffered window
// only adjusts the in-buffer offset; anything else drops the window and
// the next read refills from the new offset.
func (r *Reader) SetPosition(pos uint64) error {
	if r.closed {
		return types.ErrClosed
	}
	if pos > r.size {
		return fmt.Errorf("position %d exceeds source length %d: %w", pos, r.size, types.ErrOutOfRange)
	}
	windowStart := r.srcPos - uint64(r.length)
	if pos >= windowStart && pos <= r.srcPos {
		r.off = int(pos - windowStart)
		return nil
	}
	r.off = 0
	r.length = 0
	r.srcPos = pos
	return nil
}

func (r *Reader) available() int {
	return r.length - r.off
}

// fill guarantees at least min unread bytes in the window, shifting the
// unread tail to the front and refilling from the source.
func (r *Reader) fill(min int) error {
	if r.closed {
		return types.ErrClosed
	}
	if remaining := r.size - r.Position(); uint64(min) > remaining {
		return fmt.Errorf("need %d bytes at offset %d, %d remain: %w", min, r.Position(), remaining, types.ErrUnexpectedEOF)
	}
	if min > len(*r.buf) {
		return fmt.Errorf("read of %d bytes exceeds buffer capacity %d: %w", min, len(*r.buf), types.ErrOutOfRange)
	}
	if r.available() >= min {
		return nil
	}
	buf := *r.buf
	if r.off > 0 {
		copy(buf, buf[r.off:r.length])
		r.length -= r.off
		r.off = 0
	}
	for r.length < min {
		if r.srcPos >= r.size {
			return fmt.Errorf("need %d bytes at offset %d: %w", min-r.length, r.Position(), types.ErrUnexpectedEOF)
		}
		n, err := r.src.ReadAt(buf[r.length:], int64(r.srcPos))
		if n > 0 {
			r.length += n
			r.srcPos += uint64(n)
		}
		if err != nil && err != io.EOF {
			return fmt.Errorf("source read at %d failed: %w", r.srcPos, err)
		}
		if n == 0 {
			return fmt.Errorf("source returned no data at offset %d: %w", r.srcPos, types.ErrUnexpectedEOF)
		}
	}
	return nil
}

// ReadByte returns the next byte.
func (r *Reader) ReadByte() (byte, error) {
	if err := r.fill(1); err != nil {
		return 0, err
	}
	b := (*r.buf)[r.off]
	r.off++
	return b, nil
}

// ReadUint8 returns the next byte as an unsigned integer.
func (r *Reader) ReadUint8() (uint8, error) {
	return r.ReadByte()
}

// ReadUint16 reads a 16-bit unsigned integer in the configured order.
func (r *Reader) ReadUint16() (uint16, error) {
	if err := r.fill(2); err != nil {
		return 0, err
	}
	v := r.order.Uint16((*r.buf)[r.off:])
	r.off += 2
	return v, nil
}

// ReadUint32 reads a 32-bit unsigned integer in the configured order.
func (r *Reader) ReadUint32() (uint32, error) {
	if err := r.fill(4); err != nil {
		return 0, err
	}
	v := r.order.Uint32((*r.buf)[r.off:])
	r.off += 4
	return v, nil
}

// ReadUint64 reads a 64-bit unsigned integer in the configured order.
func (r *Reader) ReadUint64() (uint64, error) {
	if err := r.fill(8); err != nil {
		return 0, err
	}
	v := r.order.Uint64((*r.buf)[r.off:])
	r.off += 8
	return v, nil
}

// ReadInt16 reads a signed 16-bit integer.
func (r *Reader) ReadInt16() (int16, error) {
	v, err := r.ReadUint16()
	return int16(v), err
}

// ReadInt32 reads a signed 32-bit integer.
func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

// ReadInt64 reads a signed 64-bit integer.
func (r *Reader) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}

// ReadFloat32 reads an IEEE-754 single through its bit pattern.
func (r *Reader) ReadFloat32() (float32, error) {
	v, err := r.ReadUint32()
	return math.Float32frombits(v), err
}

// ReadFloat64 reads an IEEE-754 double through its bit pattern.
func (r *Reader) ReadFloat64() (float64, error) {
	v, err := r.ReadUint64()
	return math.Float64frombits(v), err
}

// ReadFourCC reads a four-character code.
func (r *Reader) ReadFourCC() (types.FourCC, error) {
	if err := r.fill(4); err != nil {
		return types.FourCC{}, err
	}
	var f types.FourCC
	copy(f[:], (*r.buf)[r.off:r.off+4])
	r.off += 4
	return f, nil
}

// ReadFull fills p entirely. Requests larger than the scratch window
// stream through it in bounded pieces rather than growing it.
func (r *Reader) ReadFull(p []byte) error {
	for len(p) > 0 {
		want := len(p)
		if want > len(*r.buf) {
			want = len(*r.buf)
		}
		if err := r.fill(want); err != nil {
			return err
		}
		n := copy(p, (*r.buf)[r.off:r.length])
		r.off += n
		p = p[n:]
	}
	return nil
}

// ReadBytes reads and returns count bytes.
func (r *Reader) ReadBytes(count uint64) ([]byte, error) {
	if count > math.MaxInt32 {
		return nil, fmt.Errorf("byte run of %d exceeds maximum length: %w", count, types.ErrInvalidData)
	}
	if remaining := r.size - r.Position(); count > remaining {
		return nil, fmt.Errorf("need %d bytes, %d remain: %w", count, remaining, types.ErrUnexpectedEOF)
	}
	p := make([]byte, count)
	if err := r.ReadFull(p); err != nil {
		return nil, err
	}
	return p, nil
}

// CopyTo streams count bytes from the cursor into w through a pooled
// chunk buffer, so large payload extraction never allocates the whole
// payload at once.
func (r *Reader) CopyTo(w io.Writer, count uint64) error {
	if remaining := r.size - r.Position(); count > remaining {
		return fmt.Errorf("need %d bytes, %d remain: %w", count, remaining, types.ErrUnexpectedEOF)
	}
	chunk := chunkPool.Get().(*[]byte)
	defer chunkPool.Put(chunk)
	for count > 0 {
		n := uint64(len(*chunk))
		if r.chunk > 0 && uint64(r.chunk) < n {
			n = uint64(r.chunk)
		}
		if count < n {
			n = count
		}
		p := (*chunk)[:n]
		if err := r.ReadFull(p); err != nil {
			return err
		}
		if _, err := w.Write(p); err != nil {
			return fmt.Errorf("payload copy failed: %w", err)
		}
		count -= n
	}
	return nil
}

// ReadCString reads a null-terminated UTF-8 string that must end at or
// before endOffset. The terminator is consumed; the cursor ends just
// past it. An immediate terminator or an exhausted bound yields the
// empty string. A run without a terminator extends to endOffset.
func (r *Reader) ReadCString(endOffset uint64) (string, error) {
	start := r.Position()
	if endOffset < start {
		return "", fmt.Errorf("string bound %d precedes position %d: %w", endOffset, start, types.ErrOutOfRange)
	}
	if endOffset-start > math.MaxInt32 {
		return "", fmt.Errorf("string run of %d exceeds maximum length: %w", endOffset-start, types.ErrInvalidData)
	}
	// First pass finds the terminator, second pass materializes.
	length := uint64(0)
	terminated := false
	for start+length < endOffset {
		b, err := r.ReadByte()
		if err != nil {
			return "", err
		}
		if b == 0 {
			terminated = true
			break
		}
		length++
	}
	if err := r.SetPosition(start); err != nil {
		return "", err
	}
	if length == 0 {
		if terminated {
			if err := r.SetPosition(start + 1); err != nil {
				return "", err
			}
		}
		return "", nil
	}
	p, err := r.ReadBytes(length)
	if err != nil {
		return "", err
	}
	if terminated {
		if _, err := r.ReadByte(); err != nil {
			return "", err
		}
	}
	return string(p), nil
}
