package stream

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/deploymenttheory/go-avif/internal/types"
)

func newTestReader(t *testing.T, data []byte) *Reader {
	t.Helper()
	r := NewReader(&testSource{data: data}, binary.BigEndian)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestSegmentBounds(t *testing.T) {
	testCases := []struct {
		name    string
		size    int
		start   uint64
		length  uint64
		wantErr bool
	}{
		{
			name:   "Whole source",
			size:   100,
			start:  0,
			length: 100,
		},
		{
			name:   "Interior range",
			size:   100,
			start:  10,
			length: 50,
		},
		{
			name:   "Empty range at end",
			size:   100,
			start:  100,
			length: 0,
		},
		{
			name:    "Start past end",
			size:    100,
			start:   101,
			length:  0,
			wantErr: true,
		},
		{
			name:    "Length crosses end",
			size:    100,
			start:   90,
			length:  11,
			wantErr: true,
		},
		{
			name:    "Adversarial wrapping length",
			size:    100,
			start:   50,
			length:  math.MaxUint64 - 10,
			wantErr: true,
		},
		{
			name:    "Adversarial start near max",
			size:    100,
			start:   math.MaxUint64 - 5,
			length:  10,
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestReader(t, patternData(tc.size))
			_, err := NewSegment(r, tc.start, tc.length)
			if tc.wantErr {
				if !errors.Is(err, types.ErrOutOfRange) {
					t.Fatalf("NewSegment() = %v, want ErrOutOfRange", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewSegment() failed: %v", err)
			}
		})
	}
}

func TestSegmentChildContainment(t *testing.T) {
	r := newTestReader(t, patternData(100))
	parent, err := NewSegment(r, 10, 50)
	if err != nil {
		t.Fatalf("NewSegment() failed: %v", err)
	}

	if _, err := parent.Child(20, 30); err != nil {
		t.Fatalf("Child() inside parent failed: %v", err)
	}
	if _, err := parent.Child(20, 41); !errors.Is(err, types.ErrInvalidData) {
		t.Fatalf("Child() crossing parent end = %v, want ErrInvalidData", err)
	}
	if _, err := parent.Child(5, 10); !errors.Is(err, types.ErrInvalidData) {
		t.Fatalf("Child() before parent start = %v, want ErrInvalidData", err)
	}
	if _, err := parent.Child(30, math.MaxUint64-20); !errors.Is(err, types.ErrInvalidData) {
		t.Fatalf("Child() with wrapping length = %v, want ErrInvalidData", err)
	}
}

func TestSegmentReads(t *testing.T) {
	data := patternData(64)
	r := newTestReader(t, data)
	s, err := NewSegment(r, 8, 16)
	if err != nil {
		t.Fatalf("NewSegment() failed: %v", err)
	}

	b, err := s.ReadByte()
	if err != nil || b != data[8] {
		t.Fatalf("ReadByte() = %#x, %v; want %#x", b, err, data[8])
	}
	got, err := s.ReadBytes(15)
	if err != nil {
		t.Fatalf("ReadBytes(15) failed: %v", err)
	}
	for i, v := range got {
		if v != data[9+i] {
			t.Fatalf("segment byte %d = %#x, want %#x", i, v, data[9+i])
		}
	}
	if s.Remaining() != 0 {
		t.Fatalf("Remaining() = %d, want 0", s.Remaining())
	}
	if _, err := s.ReadByte(); !errors.Is(err, types.ErrUnexpectedEOF) {
		t.Fatalf("ReadByte() past segment end = %v, want ErrUnexpectedEOF", err)
	}
}

// Two segments sharing one cursor must each resume at their own offset
// even when reads interleave.
func TestSegmentInterleavedReads(t *testing.T) {
	data := patternData(64)
	r := newTestReader(t, data)
	a, err := NewSegment(r, 0, 32)
	if err != nil {
		t.Fatalf("NewSegment() failed: %v", err)
	}
	b, err := NewSegment(r, 32, 32)
	if err != nil {
		t.Fatalf("NewSegment() failed: %v", err)
	}

	for i := 0; i < 8; i++ {
		av, err := a.ReadByte()
		if err != nil {
			t.Fatalf("segment a read %d failed: %v", i, err)
		}
		bv, err := b.ReadByte()
		if err != nil {
			t.Fatalf("segment b read %d failed: %v", i, err)
		}
		if av != data[i] || bv != data[32+i] {
			t.Fatalf("interleaved read %d = %#x/%#x, want %#x/%#x", i, av, bv, data[i], data[32+i])
		}
	}
}

func TestSegmentSkipAndPosition(t *testing.T) {
	r := newTestReader(t, patternData(64))
	s, err := NewSegment(r, 0, 32)
	if err != nil {
		t.Fatalf("NewSegment() failed: %v", err)
	}

	if err := s.Skip(10); err != nil {
		t.Fatalf("Skip(10) failed: %v", err)
	}
	if s.Position() != 10 {
		t.Fatalf("Position() = %d, want 10", s.Position())
	}
	if err := s.Skip(23); !errors.Is(err, types.ErrInvalidData) {
		t.Fatalf("Skip() past end = %v, want ErrInvalidData", err)
	}
	if err := s.SetPosition(32); err != nil {
		t.Fatalf("SetPosition(32) failed: %v", err)
	}
	if err := s.SetPosition(33); !errors.Is(err, types.ErrOutOfRange) {
		t.Fatalf("SetPosition(33) = %v, want ErrOutOfRange", err)
	}
}
