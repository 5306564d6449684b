package box

import (
	"bytes"
	"errors"
	"testing"

	"github.com/deploymenttheory/go-avif/internal/stream"
	"github.com/deploymenttheory/go-avif/internal/types"
)

func TestItemLocationRejectsBadFieldWidths(t *testing.T) {
	// Version 0, offset and length widths declared as 3.
	data := []byte{
		0x00, 0x00, 0x00, 0x10, 'i', 'l', 'o', 'c',
		0x00, 0x00, 0x00, 0x00,
		0x33, 0x40,
		0x00, 0x00,
	}
	if _, err := ReadBox(newTestSegment(t, data)); !errors.Is(err, types.ErrInvalidData) {
		t.Fatalf("ReadBox() = %v, want ErrInvalidData", err)
	}
}

func TestItemLocationWriteFieldOverflow(t *testing.T) {
	testCases := []struct {
		name string
		box  *ItemLocationBox
	}{
		{
			name: "Offset overflows 4-byte field",
			box: &ItemLocationBox{
				OffsetSize: 4, LengthSize: 4,
				Items: []ItemLocationEntry{
					{ItemID: 1, Extents: []types.Extent{{Offset: 0x100000000, Length: 1}}},
				},
			},
		},
		{
			name: "Base offset in zero-width field",
			box: &ItemLocationBox{
				OffsetSize: 4, LengthSize: 4,
				Items: []ItemLocationEntry{
					{ItemID: 1, BaseOffset: 8, Extents: []types.Extent{{Offset: 0, Length: 1}}},
				},
			},
		},
		{
			name: "Item ID too wide for version 0",
			box: &ItemLocationBox{
				OffsetSize: 4, LengthSize: 4,
				Items: []ItemLocationEntry{
					{ItemID: 0x10000, Extents: []types.Extent{{Offset: 0, Length: 1}}},
				},
			},
		},
		{
			name: "Invalid declared width",
			box: &ItemLocationBox{
				OffsetSize: 5, LengthSize: 4,
				Items: []ItemLocationEntry{
					{ItemID: 1, Extents: []types.Extent{{Offset: 0, Length: 1}}},
				},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.box.Write(stream.NewWriter(&bytes.Buffer{}))
			if !errors.Is(err, types.ErrInvalidData) {
				t.Fatalf("Write() = %v, want ErrInvalidData", err)
			}
		})
	}
}

func TestItemLocationEntryByID(t *testing.T) {
	b := &ItemLocationBox{
		OffsetSize: 4, LengthSize: 4,
		Items: []ItemLocationEntry{
			{ItemID: 1, Extents: []types.Extent{{Offset: 0, Length: 10}}},
			{ItemID: 2, Extents: []types.Extent{{Offset: 10, Length: 5}, {Offset: 20, Length: 7}}},
		},
	}
	e := b.EntryByID(2)
	if e == nil {
		t.Fatal("EntryByID(2) = nil")
	}
	if e.TotalLength() != 12 {
		t.Errorf("TotalLength() = %d, want 12", e.TotalLength())
	}
	if b.EntryByID(9) != nil {
		t.Error("EntryByID(9) returned an entry for an absent item")
	}
}
