package box

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/deploymenttheory/go-avif/internal/stream"
	"github.com/deploymenttheory/go-avif/internal/types"
)

// byteSource serves a byte slice as a random-access source.
type byteSource []byte

func (b byteSource) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(b)) {
		return 0, io.EOF
	}
	n := copy(p, b[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (b byteSource) Size() int64 {
	return int64(len(b))
}

func newTestSegment(t *testing.T, data []byte) *stream.Segment {
	t.Helper()
	r := stream.NewReader(byteSource(data), binary.BigEndian)
	t.Cleanup(func() { r.Close() })
	s, err := stream.NewSegment(r, 0, uint64(len(data)))
	if err != nil {
		t.Fatalf("NewSegment() failed: %v", err)
	}
	return s
}

func TestParseHeaderCompact(t *testing.T) {
	data := []byte{0x00, 0x00, 0x00, 0x0C, 'f', 'r', 'e', 'e', 1, 2, 3, 4}
	h, err := ParseHeader(newTestSegment(t, data))
	if err != nil {
		t.Fatalf("ParseHeader() failed: %v", err)
	}
	if h.Type != types.BoxTypeFree {
		t.Errorf("Type = %q, want free", h.Type)
	}
	if h.TotalSize != 12 || h.HeaderSize() != 8 {
		t.Errorf("TotalSize = %d, HeaderSize = %d; want 12, 8", h.TotalSize, h.HeaderSize())
	}
	if h.PayloadStart != 8 || h.PayloadLength != 4 {
		t.Errorf("payload = [%d, +%d), want [8, +4)", h.PayloadStart, h.PayloadLength)
	}
	if h.ToEnd {
		t.Error("ToEnd set for a compact header")
	}
}

func TestParseHeaderExtended(t *testing.T) {
	data := []byte{
		0x00, 0x00, 0x00, 0x01, 'm', 'd', 'a', 't',
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x14,
		1, 2, 3, 4,
	}
	h, err := ParseHeader(newTestSegment(t, data))
	if err != nil {
		t.Fatalf("ParseHeader() failed: %v", err)
	}
	if h.TotalSize != 20 || h.HeaderSize() != 16 {
		t.Errorf("TotalSize = %d, HeaderSize = %d; want 20, 16", h.TotalSize, h.HeaderSize())
	}
	if h.PayloadStart != 16 || h.PayloadLength != 4 {
		t.Errorf("payload = [%d, +%d), want [16, +4)", h.PayloadStart, h.PayloadLength)
	}
}

func TestParseHeaderToEnd(t *testing.T) {
	data := []byte{0x00, 0x00, 0x00, 0x00, 'm', 'd', 'a', 't', 1, 2, 3, 4, 5, 6}
	h, err := ParseHeader(newTestSegment(t, data))
	if err != nil {
		t.Fatalf("ParseHeader() failed: %v", err)
	}
	if !h.ToEnd {
		t.Error("ToEnd not set for a size-zero header")
	}
	if h.TotalSize != uint64(len(data)) || h.PayloadLength != 6 {
		t.Errorf("TotalSize = %d, PayloadLength = %d; want %d, 6", h.TotalSize, h.PayloadLength, len(data))
	}
}

func TestParseHeaderUserType(t *testing.T) {
	data := []byte{0x00, 0x00, 0x00, 0x20, 'u', 'u', 'i', 'd'}
	userType := []byte{
		0x6b, 0x84, 0x00, 0x87, 0x31, 0x7c, 0x46, 0x69,
		0x8e, 0x89, 0x05, 0x33, 0x33, 0x8c, 0xfe, 0x11,
	}
	data = append(data, userType...)
	data = append(data, 1, 2, 3, 4, 5, 6, 7, 8)

	h, err := ParseHeader(newTestSegment(t, data))
	if err != nil {
		t.Fatalf("ParseHeader() failed: %v", err)
	}
	if h.UserType == nil {
		t.Fatal("UserType not set for a uuid box")
	}
	if !bytes.Equal(h.UserType[:], userType) {
		t.Errorf("UserType = %x, want %x", h.UserType[:], userType)
	}
	if h.HeaderSize() != 24 || h.PayloadLength != 8 {
		t.Errorf("HeaderSize = %d, PayloadLength = %d; want 24, 8", h.HeaderSize(), h.PayloadLength)
	}
}

func TestParseHeaderRejectsMalformed(t *testing.T) {
	testCases := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{
			name:    "Zero type",
			data:    []byte{0x00, 0x00, 0x00, 0x08, 0x00, 0x00, 0x00, 0x00},
			wantErr: types.ErrInvalidData,
		},
		{
			name:    "Size smaller than header",
			data:    []byte{0x00, 0x00, 0x00, 0x04, 'f', 'r', 'e', 'e'},
			wantErr: types.ErrInvalidData,
		},
		{
			name:    "Size crosses container end",
			data:    []byte{0xFF, 0xFF, 0xFF, 0xFF, 'm', 'd', 'a', 't', 1, 2},
			wantErr: types.ErrInvalidData,
		},
		{
			name: "Extended size crosses container end",
			data: []byte{
				0x00, 0x00, 0x00, 0x01, 'm', 'd', 'a', 't',
				0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
			},
			wantErr: types.ErrInvalidData,
		},
		{
			name: "Extended size smaller than header",
			data: []byte{
				0x00, 0x00, 0x00, 0x01, 'm', 'd', 'a', 't',
				0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x0A,
			},
			wantErr: types.ErrInvalidData,
		},
		{
			name:    "Truncated header",
			data:    []byte{0x00, 0x00, 0x00, 0x10, 'm', 'd'},
			wantErr: types.ErrUnexpectedEOF,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseHeader(newTestSegment(t, tc.data))
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("ParseHeader() = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestWriteHeaderCompact(t *testing.T) {
	var buf bytes.Buffer
	if err := writeHeader(stream.NewWriter(&buf), types.BoxTypeFree, 4); err != nil {
		t.Fatalf("writeHeader() failed: %v", err)
	}
	want := []byte{0x00, 0x00, 0x00, 0x0C, 'f', 'r', 'e', 'e'}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("header = %x, want %x", buf.Bytes(), want)
	}
}

func TestWriteHeaderExtended(t *testing.T) {
	var buf bytes.Buffer
	if err := writeHeader(stream.NewWriter(&buf), types.BoxTypeMdat, math.MaxUint32); err != nil {
		t.Fatalf("writeHeader() failed: %v", err)
	}
	want := []byte{
		0x00, 0x00, 0x00, 0x01, 'm', 'd', 'a', 't',
		0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x0F,
	}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("header = %x, want %x", buf.Bytes(), want)
	}
}

func TestHeaderSizeForBoundary(t *testing.T) {
	if got := headerSizeFor(math.MaxUint32 - compactHeaderSize); got != compactHeaderSize {
		t.Errorf("headerSizeFor(max compact payload) = %d, want %d", got, compactHeaderSize)
	}
	if got := headerSizeFor(math.MaxUint32 - compactHeaderSize + 1); got != extendedHeaderSize {
		t.Errorf("headerSizeFor(first extended payload) = %d, want %d", got, extendedHeaderSize)
	}
}

func TestFullBoxPrefix(t *testing.T) {
	var buf bytes.Buffer
	if err := writeFullBoxPrefix(stream.NewWriter(&buf), 2, 0x00ABCDEF); err != nil {
		t.Fatalf("writeFullBoxPrefix() failed: %v", err)
	}
	version, flags, err := parseFullBoxPrefix(newTestSegment(t, buf.Bytes()))
	if err != nil {
		t.Fatalf("parseFullBoxPrefix() failed: %v", err)
	}
	if version != 2 || flags != 0x00ABCDEF {
		t.Fatalf("prefix = v%d flags %#x, want v2 flags 0xabcdef", version, flags)
	}
}
