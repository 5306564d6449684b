package stream

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/deploymenttheory/go-avif/internal/types"
)

// testSource serves a byte slice and records every physical read so
// tests can check buffering behavior.
type testSource struct {
	data    []byte
	reads   int
	maxRead int
	capRead int // when > 0, cap bytes served per ReadAt call
}

func (s *testSource) ReadAt(p []byte, off int64) (int, error) {
	s.reads++
	if off < 0 || off > int64(len(s.data)) {
		return 0, io.EOF
	}
	if s.capRead > 0 && len(p) > s.capRead {
		p = p[:s.capRead]
	}
	n := copy(p, s.data[off:])
	if n > s.maxRead {
		s.maxRead = n
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (s *testSource) Size() int64 {
	return int64(len(s.data))
}

func patternData(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i * 7)
	}
	return data
}

func TestReaderPrimitives(t *testing.T) {
	data := []byte{
		0x12, 0x34, // uint16
		0x01, 0x02, 0x03, 0x04, // uint32
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, // uint64
		'f', 't', 'y', 'p',
		0x40, 0x49, 0x0F, 0xDB, // float32 pi
	}
	r := NewReader(&testSource{data: data}, binary.BigEndian)
	defer r.Close()

	if v, err := r.ReadUint16(); err != nil || v != 0x1234 {
		t.Fatalf("ReadUint16() = %#x, %v; want 0x1234", v, err)
	}
	if v, err := r.ReadUint32(); err != nil || v != 0x01020304 {
		t.Fatalf("ReadUint32() = %#x, %v; want 0x01020304", v, err)
	}
	if v, err := r.ReadUint64(); err != nil || v != 0x0102030405060708 {
		t.Fatalf("ReadUint64() = %#x, %v; want 0x0102030405060708", v, err)
	}
	fourcc, err := r.ReadFourCC()
	if err != nil || fourcc != types.BoxTypeFtyp {
		t.Fatalf("ReadFourCC() = %q, %v; want ftyp", fourcc, err)
	}
	f, err := r.ReadFloat32()
	if err != nil || f < 3.14 || f > 3.15 {
		t.Fatalf("ReadFloat32() = %v, %v; want pi", f, err)
	}
	if got := r.Position(); got != uint64(len(data)) {
		t.Fatalf("Position() = %d, want %d", got, len(data))
	}
}

func TestReaderLittleEndian(t *testing.T) {
	r := NewReader(&testSource{data: []byte{0x34, 0x12}}, binary.LittleEndian)
	defer r.Close()

	if v, err := r.ReadUint16(); err != nil || v != 0x1234 {
		t.Fatalf("ReadUint16() = %#x, %v; want 0x1234", v, err)
	}
}

// Sequences of small reads interleaved with arbitrary seeks must match
// a direct read of the source at the same offsets.
func TestReaderSeekConsistency(t *testing.T) {
	data := patternData(20000)
	r := NewReader(&testSource{data: data}, binary.BigEndian)
	defer r.Close()

	offsets := []uint64{0, 100, 50, 4095, 4096, 4097, 12000, 11999, 0, 19999, 500}
	for _, off := range offsets {
		if err := r.SetPosition(off); err != nil {
			t.Fatalf("SetPosition(%d) failed: %v", off, err)
		}
		b, err := r.ReadByte()
		if err != nil {
			t.Fatalf("ReadByte() at %d failed: %v", off, err)
		}
		if b != data[off] {
			t.Errorf("byte at %d = %#x, want %#x", off, b, data[off])
		}
		if got := r.Position(); got != off+1 {
			t.Errorf("Position() after read at %d = %d, want %d", off, got, off+1)
		}
	}
}

func TestReaderInWindowSeekAvoidsIO(t *testing.T) {
	src := &testSource{data: patternData(10000)}
	r := NewReader(src, binary.BigEndian)
	defer r.Close()

	if _, err := r.ReadBytes(100); err != nil {
		t.Fatalf("ReadBytes() failed: %v", err)
	}
	reads := src.reads

	// Backtracking inside the buffered window must not touch the
	// source.
	for _, off := range []uint64{0, 50, 99, 10} {
		if err := r.SetPosition(off); err != nil {
			t.Fatalf("SetPosition(%d) failed: %v", off, err)
		}
		if _, err := r.ReadByte(); err != nil {
			t.Fatalf("ReadByte() failed: %v", err)
		}
	}
	if src.reads != reads {
		t.Errorf("in-window seeks issued %d extra source reads", src.reads-reads)
	}
}

// A 9,000-byte region from a 10,000-byte source must stream through the
// bounded buffer, not one-shot the whole file.
func TestReaderChunkedRead(t *testing.T) {
	data := patternData(10000)
	src := &testSource{data: data}
	r := NewReader(src, binary.BigEndian)
	defer r.Close()

	if err := r.SetPosition(500); err != nil {
		t.Fatalf("SetPosition(500) failed: %v", err)
	}
	got, err := r.ReadBytes(9000)
	if err != nil {
		t.Fatalf("ReadBytes(9000) failed: %v", err)
	}
	if !bytes.Equal(got, data[500:9500]) {
		t.Fatal("chunked read differs from direct source bytes")
	}
	if src.maxRead > DefaultBufferSize {
		t.Errorf("single source read of %d bytes exceeds buffer capacity %d", src.maxRead, DefaultBufferSize)
	}
	if src.reads < 3 {
		t.Errorf("expected multiple buffer refills, got %d source reads", src.reads)
	}
}

func TestReaderShortSource(t *testing.T) {
	// Sources may serve fewer bytes per call than asked; the refill
	// loop must keep going.
	src := &testSource{data: patternData(64), capRead: 7}
	r := NewReader(src, binary.BigEndian)
	defer r.Close()

	got, err := r.ReadBytes(64)
	if err != nil {
		t.Fatalf("ReadBytes(64) failed: %v", err)
	}
	if !bytes.Equal(got, patternData(64)) {
		t.Fatal("short-serving source returned wrong bytes")
	}
}

func TestReaderEOF(t *testing.T) {
	r := NewReader(&testSource{data: []byte{1, 2, 3}}, binary.BigEndian)
	defer r.Close()

	if _, err := r.ReadUint32(); !errors.Is(err, types.ErrUnexpectedEOF) {
		t.Fatalf("ReadUint32() past end = %v, want ErrUnexpectedEOF", err)
	}
}

func TestReaderSetPositionOutOfRange(t *testing.T) {
	r := NewReader(&testSource{data: []byte{1, 2, 3}}, binary.BigEndian)
	defer r.Close()

	if err := r.SetPosition(4); !errors.Is(err, types.ErrOutOfRange) {
		t.Fatalf("SetPosition(4) = %v, want ErrOutOfRange", err)
	}
	// The end itself is a valid position.
	if err := r.SetPosition(3); err != nil {
		t.Fatalf("SetPosition(3) failed: %v", err)
	}
}

func TestReaderClosed(t *testing.T) {
	r := NewReader(&testSource{data: []byte{1, 2, 3}}, binary.BigEndian)
	if err := r.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	// Close is idempotent.
	if err := r.Close(); err != nil {
		t.Fatalf("second Close() failed: %v", err)
	}
	if _, err := r.ReadByte(); !errors.Is(err, types.ErrClosed) {
		t.Fatalf("ReadByte() after Close = %v, want ErrClosed", err)
	}
}

func TestReaderCString(t *testing.T) {
	testCases := []struct {
		name      string
		data      []byte
		start     uint64
		endOffset uint64
		want      string
		wantPos   uint64
	}{
		{
			name:      "Terminator mid-run",
			data:      []byte("abc\x00def"),
			endOffset: 7,
			want:      "abc",
			wantPos:   4,
		},
		{
			name:      "Immediate terminator",
			data:      []byte("\x00abc"),
			endOffset: 4,
			want:      "",
			wantPos:   1,
		},
		{
			name:      "Bound reached without terminator",
			data:      []byte("abcdef"),
			endOffset: 3,
			want:      "abc",
			wantPos:   3,
		},
		{
			name:      "Empty bound",
			data:      []byte("abc"),
			start:     1,
			endOffset: 1,
			want:      "",
			wantPos:   1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewReader(&testSource{data: tc.data}, binary.BigEndian)
			defer r.Close()

			if err := r.SetPosition(tc.start); err != nil {
				t.Fatalf("SetPosition(%d) failed: %v", tc.start, err)
			}
			got, err := r.ReadCString(tc.endOffset)
			if err != nil {
				t.Fatalf("ReadCString() failed: %v", err)
			}
			if got != tc.want {
				t.Errorf("ReadCString() = %q, want %q", got, tc.want)
			}
			if pos := r.Position(); pos != tc.wantPos {
				t.Errorf("Position() = %d, want %d", pos, tc.wantPos)
			}
		})
	}
}

func TestReaderOptionsBufferSize(t *testing.T) {
	data := patternData(10000)

	small := &testSource{data: data}
	r := NewReaderOptions(small, binary.BigEndian, Options{BufferSize: 64})
	got, err := r.ReadBytes(1000)
	if err != nil {
		t.Fatalf("ReadBytes(1000) failed: %v", err)
	}
	r.Close()
	if !bytes.Equal(got, data[:1000]) {
		t.Fatal("tuned reader returned wrong bytes")
	}
	if small.maxRead > 64 {
		t.Errorf("single source read of %d bytes exceeds configured window 64", small.maxRead)
	}

	// A window above the default must be honored, not clamped.
	large := &testSource{data: data}
	r = NewReaderOptions(large, binary.BigEndian, Options{BufferSize: 8192})
	if _, err := r.ReadBytes(8192); err != nil {
		t.Fatalf("ReadBytes(8192) failed: %v", err)
	}
	r.Close()
	if large.maxRead <= DefaultBufferSize {
		t.Errorf("max source read %d never used the enlarged window", large.maxRead)
	}
}

// recordingSink tracks the largest single write it receives.
type recordingSink struct {
	bytes.Buffer
	maxWrite int
}

func (s *recordingSink) Write(p []byte) (int, error) {
	if len(p) > s.maxWrite {
		s.maxWrite = len(p)
	}
	return s.Buffer.Write(p)
}

func TestReaderOptionsChunkSize(t *testing.T) {
	data := patternData(1000)
	r := NewReaderOptions(&testSource{data: data}, binary.BigEndian, Options{ChunkSize: 100})
	defer r.Close()

	sink := &recordingSink{}
	if err := r.CopyTo(sink, 950); err != nil {
		t.Fatalf("CopyTo() failed: %v", err)
	}
	if !bytes.Equal(sink.Bytes(), data[:950]) {
		t.Fatal("CopyTo() bytes differ from source")
	}
	if sink.maxWrite > 100 {
		t.Errorf("copy pass wrote %d bytes at once, want at most 100", sink.maxWrite)
	}
}

func TestReaderCopyTo(t *testing.T) {
	data := patternData(200000)
	r := NewReader(&testSource{data: data}, binary.BigEndian)
	defer r.Close()

	if err := r.SetPosition(100); err != nil {
		t.Fatalf("SetPosition(100) failed: %v", err)
	}
	var sink bytes.Buffer
	if err := r.CopyTo(&sink, 150000); err != nil {
		t.Fatalf("CopyTo() failed: %v", err)
	}
	if !bytes.Equal(sink.Bytes(), data[100:150100]) {
		t.Fatal("CopyTo() bytes differ from source")
	}

	if err := r.CopyTo(&sink, uint64(len(data))); !errors.Is(err, types.ErrUnexpectedEOF) {
		t.Fatalf("CopyTo() past end = %v, want ErrUnexpectedEOF", err)
	}
}
