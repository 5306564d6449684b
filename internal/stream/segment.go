package stream

import (
	"fmt"
	"io"

	"github.com/deploymenttheory/go-avif/internal/types"
)

// Segment is a bounds-checked view over one box's byte range. Many
// segments may exist at once (one per nested box) but all share the one
// underlying cursor, so reads reposition it first; segments are
// strictly single-threaded, like the reader itself.
//
// Segments track their own relative offset, so interleaved reads on a
// parent and a child each resume where that segment left off.
type Segment struct {
	r      *Reader
	start  uint64
	length uint64
	pos    uint64 // relative to start
}

// NewSegment creates a view over [start, start+length) of the reader's
// source. Both bounds are validated with overflow-safe arithmetic;
// lengths come from untrusted headers and must not wrap into a
// false-positive range.
func NewSegment(r *Reader, start, length uint64) (*Segment, error) {
	size := r.Length()
	if start > size {
		return nil, fmt.Errorf("segment start %d exceeds source length %d: %w", start, size, types.ErrOutOfRange)
	}
	if length > size-start {
		return nil, fmt.Errorf("segment of %d bytes at %d exceeds source length %d: %w", length, start, size, types.ErrOutOfRange)
	}
	return &Segment{r: r, start: start, length: length}, nil
}

// Child creates a sub-view for a nested box. The child range is
// expressed in absolute source offsets and must lie entirely within
// this segment.
func (s *Segment) Child(start, length uint64) (*Segment, error) {
	if start < s.start || start > s.end() {
		return nil, fmt.Errorf("child segment start %d outside parent [%d, %d): %w", start, s.start, s.end(), types.ErrInvalidData)
	}
	if length > s.end()-start {
		return nil, fmt.Errorf("child segment of %d bytes at %d crosses parent end %d: %w", length, start, s.end(), types.ErrInvalidData)
	}
	return NewSegment(s.r, start, length)
}

func (s *Segment) end() uint64 {
	return s.start + s.length
}

// Start returns the segment's absolute start offset.
func (s *Segment) Start() uint64 {
	return s.start
}

// Length returns the segment's byte length.
func (s *Segment) Length() uint64 {
	return s.length
}

// Position returns the segment-relative read offset.
func (s *Segment) Position() uint64 {
	return s.pos
}

// Remaining returns the unread byte count.
func (s *Segment) Remaining() uint64 {
	return s.length - s.pos
}

// SetPosition moves the segment-relative read offset.
func (s *Segment) SetPosition(pos uint64) error {
	if pos > s.length {
		return fmt.Errorf("position %d exceeds segment length %d: %w", pos, s.length, types.ErrOutOfRange)
	}
	s.pos = pos
	return nil
}

// Skip advances past count bytes.
func (s *Segment) Skip(count uint64) error {
	if count > s.Remaining() {
		return fmt.Errorf("skip of %d bytes exceeds %d remaining: %w", count, s.Remaining(), types.ErrInvalidData)
	}
	s.pos += count
	return nil
}

// seek repositions the shared cursor and checks the read stays inside
// the segment.
func (s *Segment) seek(need uint64) error {
	if need > s.Remaining() {
		return fmt.Errorf("read of %d bytes exceeds %d remaining in box: %w", need, s.Remaining(), types.ErrUnexpectedEOF)
	}
	return s.r.SetPosition(s.start + s.pos)
}

func (s *Segment) settle() {
	s.pos = s.r.Position() - s.start
}

// ReadByte returns the next byte of the segment.
func (s *Segment) ReadByte() (byte, error) {
	if err := s.seek(1); err != nil {
		return 0, err
	}
	v, err := s.r.ReadByte()
	s.settle()
	return v, err
}

// ReadUint8 returns the next byte as an unsigned integer.
func (s *Segment) ReadUint8() (uint8, error) {
	return s.ReadByte()
}

// ReadUint16 reads a 16-bit unsigned integer.
func (s *Segment) ReadUint16() (uint16, error) {
	if err := s.seek(2); err != nil {
		return 0, err
	}
	v, err := s.r.ReadUint16()
	s.settle()
	return v, err
}

// ReadUint32 reads a 32-bit unsigned integer.
func (s *Segment) ReadUint32() (uint32, error) {
	if err := s.seek(4); err != nil {
		return 0, err
	}
	v, err := s.r.ReadUint32()
	s.settle()
	return v, err
}

// ReadUint64 reads a 64-bit unsigned integer.
func (s *Segment) ReadUint64() (uint64, error) {
	if err := s.seek(8); err != nil {
		return 0, err
	}
	v, err := s.r.ReadUint64()
	s.settle()
	return v, err
}

// ReadFourCC reads a four-character code.
func (s *Segment) ReadFourCC() (types.FourCC, error) {
	if err := s.seek(4); err != nil {
		return types.FourCC{}, err
	}
	v, err := s.r.ReadFourCC()
	s.settle()
	return v, err
}

// ReadBytes reads and returns count bytes.
func (s *Segment) ReadBytes(count uint64) ([]byte, error) {
	if err := s.seek(count); err != nil {
		return nil, err
	}
	p, err := s.r.ReadBytes(count)
	s.settle()
	return p, err
}

// ReadCString reads a null-terminated string bounded by the segment
// end.
func (s *Segment) ReadCString() (string, error) {
	if err := s.seek(0); err != nil {
		return "", err
	}
	v, err := s.r.ReadCString(s.end())
	s.settle()
	return v, err
}

// CopyTo streams count bytes into w through the reader's bounded chunk
// path.
func (s *Segment) CopyTo(w io.Writer, count uint64) error {
	if err := s.seek(count); err != nil {
		return err
	}
	err := s.r.CopyTo(w, count)
	s.settle()
	return err
}
