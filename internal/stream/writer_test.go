package stream

import (
	"bytes"
	"testing"

	"github.com/deploymenttheory/go-avif/internal/types"
)

func TestWriterBigEndian(t *testing.T) {
	var sink bytes.Buffer
	w := NewWriter(&sink)

	if err := w.WriteUint8(0xAB); err != nil {
		t.Fatalf("WriteUint8() failed: %v", err)
	}
	if err := w.WriteUint16(0x1234); err != nil {
		t.Fatalf("WriteUint16() failed: %v", err)
	}
	if err := w.WriteUint32(0x01020304); err != nil {
		t.Fatalf("WriteUint32() failed: %v", err)
	}
	if err := w.WriteUint64(0x0102030405060708); err != nil {
		t.Fatalf("WriteUint64() failed: %v", err)
	}
	if err := w.WriteFourCC(types.BoxTypeMdat); err != nil {
		t.Fatalf("WriteFourCC() failed: %v", err)
	}
	if err := w.WriteCString("av"); err != nil {
		t.Fatalf("WriteCString() failed: %v", err)
	}

	want := []byte{
		0xAB,
		0x12, 0x34,
		0x01, 0x02, 0x03, 0x04,
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
		'm', 'd', 'a', 't',
		'a', 'v', 0x00,
	}
	if !bytes.Equal(sink.Bytes(), want) {
		t.Fatalf("writer output = %x, want %x", sink.Bytes(), want)
	}
	if w.BytesWritten() != uint64(len(want)) {
		t.Fatalf("BytesWritten() = %d, want %d", w.BytesWritten(), len(want))
	}
}
