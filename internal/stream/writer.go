package stream

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/deploymenttheory/go-avif/internal/interfaces"
	"github.com/deploymenttheory/go-avif/internal/types"
)

// Writer serializes container output. Box data is always big-endian on
// the wire, so the writer is fixed big-endian and single-pass; it keeps
// a running byte count the caller can check against computed box sizes.
type Writer struct {
	sink    interfaces.ByteSink
	scratch [8]byte
	written uint64
}

// NewWriter creates a writer over sink.
func NewWriter(sink interfaces.ByteSink) *Writer {
	return &Writer{sink: sink}
}

// BytesWritten returns the number of bytes emitted so far.
func (w *Writer) BytesWritten() uint64 {
	return w.written
}

func (w *Writer) flush(p []byte) error {
	n, err := w.sink.Write(p)
	w.written += uint64(n)
	if err != nil {
		return fmt.Errorf("sink write failed: %w", err)
	}
	return nil
}

// Write emits raw bytes.
func (w *Writer) Write(p []byte) error {
	return w.flush(p)
}

// WriteUint8 emits a single byte.
func (w *Writer) WriteUint8(v uint8) error {
	w.scratch[0] = v
	return w.flush(w.scratch[:1])
}

// WriteUint16 emits a big-endian 16-bit integer.
func (w *Writer) WriteUint16(v uint16) error {
	binary.BigEndian.PutUint16(w.scratch[:2], v)
	return w.flush(w.scratch[:2])
}

// WriteUint32 emits a big-endian 32-bit integer.
func (w *Writer) WriteUint32(v uint32) error {
	binary.BigEndian.PutUint32(w.scratch[:4], v)
	return w.flush(w.scratch[:4])
}

// WriteUint64 emits a big-endian 64-bit integer.
func (w *Writer) WriteUint64(v uint64) error {
	binary.BigEndian.PutUint64(w.scratch[:8], v)
	return w.flush(w.scratch[:8])
}

// WriteInt16 emits a big-endian signed 16-bit integer.
func (w *Writer) WriteInt16(v int16) error {
	return w.WriteUint16(uint16(v))
}

// WriteInt32 emits a big-endian signed 32-bit integer.
func (w *Writer) WriteInt32(v int32) error {
	return w.WriteUint32(uint32(v))
}

// WriteFloat32 emits an IEEE-754 single through its bit pattern.
func (w *Writer) WriteFloat32(v float32) error {
	return w.WriteUint32(math.Float32bits(v))
}

// WriteFloat64 emits an IEEE-754 double through its bit pattern.
func (w *Writer) WriteFloat64(v float64) error {
	return w.WriteUint64(math.Float64bits(v))
}

// WriteFourCC emits a four-character code.
func (w *Writer) WriteFourCC(f types.FourCC) error {
	return w.flush(f[:])
}

// WriteCString emits s followed by a null terminator.
func (w *Writer) WriteCString(s string) error {
	if err := w.flush([]byte(s)); err != nil {
		return err
	}
	return w.WriteUint8(0)
}
