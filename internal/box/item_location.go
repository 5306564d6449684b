package box

import (
	"fmt"

	"github.com/deploymenttheory/go-avif/internal/stream"
	"github.com/deploymenttheory/go-avif/internal/types"
)

// ItemLocationBox is the "iloc" full box: for every item, where its
// payload bytes live. Field widths for offsets, lengths, base offsets
// and extent indices are declared per file as 0, 4 or 8 bytes, packed
// two per nibble byte.
type ItemLocationBox struct {
	Version        uint8
	OffsetSize     uint8
	LengthSize     uint8
	BaseOffsetSize uint8
	IndexSize      uint8 // versions 1 and 2 only
	Items          []ItemLocationEntry
}

// ItemLocationEntry locates one item's payload as a base offset plus a
// list of extents. The construction method (versions 1 and 2) selects
// what the offsets address: the file itself or the idat box payload.
type ItemLocationEntry struct {
	ItemID             uint32
	ConstructionMethod uint8
	DataReferenceIndex uint16
	BaseOffset         uint64
	Extents            []types.Extent
	ExtentIndices      []uint64 // parallel to Extents when IndexSize > 0
}

// TotalLength sums the entry's extent lengths.
func (e ItemLocationEntry) TotalLength() uint64 {
	var n uint64
	for _, ext := range e.Extents {
		n += ext.Length
	}
	return n
}

func validSizedFieldWidth(width uint8) bool {
	return width == 0 || width == 4 || width == 8
}

func readSizedUint(s *stream.Segment, width uint8) (uint64, error) {
	switch width {
	case 0:
		return 0, nil
	case 4:
		v, err := s.ReadUint32()
		return uint64(v), err
	case 8:
		return s.ReadUint64()
	default:
		return 0, fmt.Errorf("unsupported iloc field width %d: %w", width, types.ErrInvalidData)
	}
}

func writeSizedUint(w *stream.Writer, width uint8, v uint64) error {
	switch width {
	case 0:
		if v != 0 {
			return fmt.Errorf("value %d cannot be encoded in a zero-width iloc field: %w", v, types.ErrInvalidData)
		}
		return nil
	case 4:
		if v > 0xFFFFFFFF {
			return fmt.Errorf("value %d overflows a 4-byte iloc field: %w", v, types.ErrInvalidData)
		}
		return w.WriteUint32(uint32(v))
	case 8:
		return w.WriteUint64(v)
	default:
		return fmt.Errorf("unsupported iloc field width %d: %w", width, types.ErrInvalidData)
	}
}

func parseItemLocationBox(h Header, s *stream.Segment) (Box, error) {
	version, _, err := parseFullBoxPrefix(s)
	if err != nil {
		return nil, err
	}
	if version > 2 {
		return nil, unsupportedVersion(h.Type, version)
	}
	b := &ItemLocationBox{Version: version}

	sizes, err := s.ReadUint16()
	if err != nil {
		return nil, fmt.Errorf("failed to read iloc field widths: %w", err)
	}
	b.OffsetSize = uint8(sizes >> 12)
	b.LengthSize = uint8(sizes >> 8 & 0xF)
	b.BaseOffsetSize = uint8(sizes >> 4 & 0xF)
	if version > 0 {
		b.IndexSize = uint8(sizes & 0xF)
	}
	for _, width := range []uint8{b.OffsetSize, b.LengthSize, b.BaseOffsetSize, b.IndexSize} {
		if !validSizedFieldWidth(width) {
			return nil, fmt.Errorf("iloc field width %d is not 0, 4 or 8: %w", width, types.ErrInvalidData)
		}
	}

	var itemCount uint32
	if version < 2 {
		c, err := s.ReadUint16()
		if err != nil {
			return nil, fmt.Errorf("failed to read iloc item count: %w", err)
		}
		itemCount = uint32(c)
	} else {
		if itemCount, err = s.ReadUint32(); err != nil {
			return nil, fmt.Errorf("failed to read iloc item count: %w", err)
		}
	}

	for i := uint32(0); i < itemCount; i++ {
		var e ItemLocationEntry
		if version < 2 {
			id, err := s.ReadUint16()
			if err != nil {
				return nil, fmt.Errorf("failed to read iloc item %d ID: %w", i, err)
			}
			e.ItemID = uint32(id)
		} else {
			if e.ItemID, err = s.ReadUint32(); err != nil {
				return nil, fmt.Errorf("failed to read iloc item %d ID: %w", i, err)
			}
		}
		if version > 0 {
			cm, err := s.ReadUint16()
			if err != nil {
				return nil, fmt.Errorf("failed to read iloc item %d construction method: %w", i, err)
			}
			e.ConstructionMethod = uint8(cm & 0xF)
		}
		if e.DataReferenceIndex, err = s.ReadUint16(); err != nil {
			return nil, fmt.Errorf("failed to read iloc item %d data reference: %w", i, err)
		}
		if e.BaseOffset, err = readSizedUint(s, b.BaseOffsetSize); err != nil {
			return nil, fmt.Errorf("failed to read iloc item %d base offset: %w", i, err)
		}
		extentCount, err := s.ReadUint16()
		if err != nil {
			return nil, fmt.Errorf("failed to read iloc item %d extent count: %w", i, err)
		}
		for j := uint16(0); j < extentCount; j++ {
			if version > 0 && b.IndexSize > 0 {
				idx, err := readSizedUint(s, b.IndexSize)
				if err != nil {
					return nil, fmt.Errorf("failed to read iloc extent index: %w", err)
				}
				e.ExtentIndices = append(e.ExtentIndices, idx)
			}
			var ext types.Extent
			if ext.Offset, err = readSizedUint(s, b.OffsetSize); err != nil {
				return nil, fmt.Errorf("failed to read iloc extent offset: %w", err)
			}
			if ext.Length, err = readSizedUint(s, b.LengthSize); err != nil {
				return nil, fmt.Errorf("failed to read iloc extent length: %w", err)
			}
			e.Extents = append(e.Extents, ext)
		}
		b.Items = append(b.Items, e)
	}
	return b, nil
}

// EntryByID returns the location entry for an item ID, or nil.
func (b *ItemLocationBox) EntryByID(itemID uint32) *ItemLocationEntry {
	for i := range b.Items {
		if b.Items[i].ItemID == itemID {
			return &b.Items[i]
		}
	}
	return nil
}

func (b *ItemLocationBox) Type() types.FourCC {
	return types.BoxTypeIloc
}

func (b *ItemLocationBox) payloadSize() uint64 {
	n := uint64(fullBoxPrefixSize) + 2 // field widths
	if b.Version < 2 {
		n += 2
	} else {
		n += 4
	}
	for _, e := range b.Items {
		if b.Version < 2 {
			n += 2
		} else {
			n += 4
		}
		if b.Version > 0 {
			n += 2 // construction method
		}
		n += 2 + uint64(b.BaseOffsetSize) + 2
		perExtent := uint64(b.OffsetSize) + uint64(b.LengthSize)
		if b.Version > 0 {
			perExtent += uint64(b.IndexSize)
		}
		n += perExtent * uint64(len(e.Extents))
	}
	return n
}

func (b *ItemLocationBox) EncodedSize() uint64 {
	return headerSizeFor(b.payloadSize()) + b.payloadSize()
}

func (b *ItemLocationBox) Write(w *stream.Writer) error {
	if b.Version > 2 {
		return unsupportedVersion(b.Type(), b.Version)
	}
	for _, width := range []uint8{b.OffsetSize, b.LengthSize, b.BaseOffsetSize, b.IndexSize} {
		if !validSizedFieldWidth(width) {
			return fmt.Errorf("iloc field width %d is not 0, 4 or 8: %w", width, types.ErrInvalidData)
		}
	}
	if err := writeHeader(w, b.Type(), b.payloadSize()); err != nil {
		return err
	}
	if err := writeFullBoxPrefix(w, b.Version, 0); err != nil {
		return err
	}
	sizes := uint16(b.OffsetSize)<<12 | uint16(b.LengthSize)<<8 | uint16(b.BaseOffsetSize)<<4
	if b.Version > 0 {
		sizes |= uint16(b.IndexSize)
	}
	if err := w.WriteUint16(sizes); err != nil {
		return err
	}
	if b.Version < 2 {
		if len(b.Items) > 0xFFFF {
			return fmt.Errorf("iloc version %d cannot carry %d items: %w", b.Version, len(b.Items), types.ErrInvalidData)
		}
		if err := w.WriteUint16(uint16(len(b.Items))); err != nil {
			return err
		}
	} else {
		if err := w.WriteUint32(uint32(len(b.Items))); err != nil {
			return err
		}
	}
	for _, e := range b.Items {
		if b.Version < 2 {
			if e.ItemID > 0xFFFF {
				return fmt.Errorf("iloc version %d cannot carry item ID %d: %w", b.Version, e.ItemID, types.ErrInvalidData)
			}
			if err := w.WriteUint16(uint16(e.ItemID)); err != nil {
				return err
			}
		} else {
			if err := w.WriteUint32(e.ItemID); err != nil {
				return err
			}
		}
		if b.Version > 0 {
			if err := w.WriteUint16(uint16(e.ConstructionMethod) & 0xF); err != nil {
				return err
			}
		}
		if err := w.WriteUint16(e.DataReferenceIndex); err != nil {
			return err
		}
		if err := writeSizedUint(w, b.BaseOffsetSize, e.BaseOffset); err != nil {
			return err
		}
		if len(e.Extents) > 0xFFFF {
			return fmt.Errorf("iloc entry for item %d has %d extents: %w", e.ItemID, len(e.Extents), types.ErrInvalidData)
		}
		if err := w.WriteUint16(uint16(len(e.Extents))); err != nil {
			return err
		}
		for j, ext := range e.Extents {
			if b.Version > 0 && b.IndexSize > 0 {
				var idx uint64
				if j < len(e.ExtentIndices) {
					idx = e.ExtentIndices[j]
				}
				if err := writeSizedUint(w, b.IndexSize, idx); err != nil {
					return err
				}
			}
			if err := writeSizedUint(w, b.OffsetSize, ext.Offset); err != nil {
				return err
			}
			if err := writeSizedUint(w, b.LengthSize, ext.Length); err != nil {
				return err
			}
		}
	}
	return nil
}
