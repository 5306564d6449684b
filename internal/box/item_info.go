package box

import (
	"fmt"

	"github.com/deploymenttheory/go-avif/internal/stream"
	"github.com/deploymenttheory/go-avif/internal/types"
)

// ItemInfoBox is the "iinf" full box: the table of item info entries.
// Version 0 declares the entry count as 16 bits, version 1 as 32 bits.
type ItemInfoBox struct {
	Version uint8
	Entries []*ItemInfoEntry
}

func parseItemInfoBox(h Header, s *stream.Segment) (Box, error) {
	version, _, err := parseFullBoxPrefix(s)
	if err != nil {
		return nil, err
	}
	b := &ItemInfoBox{Version: version}
	var count uint32
	switch version {
	case 0:
		c, err := s.ReadUint16()
		if err != nil {
			return nil, fmt.Errorf("failed to read iinf entry count: %w", err)
		}
		count = uint32(c)
	case 1:
		if count, err = s.ReadUint32(); err != nil {
			return nil, fmt.Errorf("failed to read iinf entry count: %w", err)
		}
	default:
		return nil, unsupportedVersion(h.Type, version)
	}

	children, err := ReadBoxes(s)
	if err != nil {
		return nil, fmt.Errorf("failed to parse iinf entries: %w", err)
	}
	for _, c := range children {
		entry, ok := c.(*ItemInfoEntry)
		if !ok {
			return nil, fmt.Errorf("unexpected %q box inside iinf: %w", c.Type(), types.ErrInvalidData)
		}
		b.Entries = append(b.Entries, entry)
	}
	if uint32(len(b.Entries)) != count {
		return nil, fmt.Errorf("iinf declares %d entries but contains %d: %w", count, len(b.Entries), types.ErrInvalidData)
	}
	return b, nil
}

// EntryByID returns the entry for an item ID, or nil.
func (b *ItemInfoBox) EntryByID(itemID uint32) *ItemInfoEntry {
	for _, e := range b.Entries {
		if e.ItemID == itemID {
			return e
		}
	}
	return nil
}

func (b *ItemInfoBox) Type() types.FourCC {
	return types.BoxTypeIinf
}

func (b *ItemInfoBox) countFieldSize() uint64 {
	if b.Version == 0 {
		return 2
	}
	return 4
}

func (b *ItemInfoBox) payloadSize() uint64 {
	n := fullBoxPrefixSize + b.countFieldSize()
	for _, e := range b.Entries {
		n += e.EncodedSize()
	}
	return n
}

func (b *ItemInfoBox) EncodedSize() uint64 {
	return headerSizeFor(b.payloadSize()) + b.payloadSize()
}

func (b *ItemInfoBox) Write(w *stream.Writer) error {
	if b.Version > 1 {
		return unsupportedVersion(b.Type(), b.Version)
	}
	if b.Version == 0 && len(b.Entries) > 0xFFFF {
		return fmt.Errorf("iinf version 0 cannot carry %d entries: %w", len(b.Entries), types.ErrInvalidData)
	}
	if err := writeHeader(w, b.Type(), b.payloadSize()); err != nil {
		return err
	}
	if err := writeFullBoxPrefix(w, b.Version, 0); err != nil {
		return err
	}
	if b.Version == 0 {
		if err := w.WriteUint16(uint16(len(b.Entries))); err != nil {
			return err
		}
	} else {
		if err := w.WriteUint32(uint32(len(b.Entries))); err != nil {
			return err
		}
	}
	for _, e := range b.Entries {
		if err := e.Write(w); err != nil {
			return err
		}
	}
	return nil
}

// ItemInfoEntry is the "infe" full box describing one item. Only
// versions 2 and 3 exist in AVIF files; version 3 widens the item ID to
// 32 bits. The item type selects the variant: "mime" entries carry a
// content type and optional encoding, "uri " entries a URI type, and
// coded-image entries ("av01") just the shared fields.
type ItemInfoEntry struct {
	Version         uint8
	ItemID          uint32
	ProtectionIndex uint16
	ItemType        types.FourCC
	Name            string

	// Set when ItemType == "mime".
	ContentType        string
	ContentEncoding    string
	HasContentEncoding bool

	// Set when ItemType == "uri ".
	ItemURIType string
}

func parseItemInfoEntry(h Header, s *stream.Segment) (Box, error) {
	version, _, err := parseFullBoxPrefix(s)
	if err != nil {
		return nil, err
	}
	b := &ItemInfoEntry{Version: version}
	switch version {
	case 2:
		id, err := s.ReadUint16()
		if err != nil {
			return nil, fmt.Errorf("failed to read infe item ID: %w", err)
		}
		b.ItemID = uint32(id)
	case 3:
		if b.ItemID, err = s.ReadUint32(); err != nil {
			return nil, fmt.Errorf("failed to read infe item ID: %w", err)
		}
	default:
		return nil, unsupportedVersion(h.Type, version)
	}
	if b.ProtectionIndex, err = s.ReadUint16(); err != nil {
		return nil, fmt.Errorf("failed to read infe protection index: %w", err)
	}
	if b.ItemType, err = s.ReadFourCC(); err != nil {
		return nil, fmt.Errorf("failed to read infe item type: %w", err)
	}
	if b.Name, err = s.ReadCString(); err != nil {
		return nil, fmt.Errorf("failed to read infe item name: %w", err)
	}

	switch b.ItemType {
	case types.ItemTypeMime:
		if b.ContentType, err = s.ReadCString(); err != nil {
			return nil, fmt.Errorf("failed to read infe content type: %w", err)
		}
		if s.Remaining() > 0 {
			if b.ContentEncoding, err = s.ReadCString(); err != nil {
				return nil, fmt.Errorf("failed to read infe content encoding: %w", err)
			}
			b.HasContentEncoding = true
		}
	case types.ItemTypeURI:
		if b.ItemURIType, err = s.ReadCString(); err != nil {
			return nil, fmt.Errorf("failed to read infe URI type: %w", err)
		}
	}
	return b, nil
}

func (b *ItemInfoEntry) Type() types.FourCC {
	return types.BoxTypeInfe
}

func (b *ItemInfoEntry) payloadSize() uint64 {
	n := uint64(fullBoxPrefixSize)
	if b.Version == 2 {
		n += 2
	} else {
		n += 4
	}
	n += 2 + 4                      // protection index, item type
	n += uint64(len(b.Name)) + 1    // null-terminated
	switch b.ItemType {
	case types.ItemTypeMime:
		n += uint64(len(b.ContentType)) + 1
		if b.HasContentEncoding {
			n += uint64(len(b.ContentEncoding)) + 1
		}
	case types.ItemTypeURI:
		n += uint64(len(b.ItemURIType)) + 1
	}
	return n
}

func (b *ItemInfoEntry) EncodedSize() uint64 {
	return headerSizeFor(b.payloadSize()) + b.payloadSize()
}

func (b *ItemInfoEntry) Write(w *stream.Writer) error {
	if b.Version != 2 && b.Version != 3 {
		return unsupportedVersion(b.Type(), b.Version)
	}
	if b.Version == 2 && b.ItemID > 0xFFFF {
		return fmt.Errorf("infe version 2 cannot carry item ID %d: %w", b.ItemID, types.ErrInvalidData)
	}
	if err := writeHeader(w, b.Type(), b.payloadSize()); err != nil {
		return err
	}
	if err := writeFullBoxPrefix(w, b.Version, 0); err != nil {
		return err
	}
	if b.Version == 2 {
		if err := w.WriteUint16(uint16(b.ItemID)); err != nil {
			return err
		}
	} else {
		if err := w.WriteUint32(b.ItemID); err != nil {
			return err
		}
	}
	if err := w.WriteUint16(b.ProtectionIndex); err != nil {
		return err
	}
	if err := w.WriteFourCC(b.ItemType); err != nil {
		return err
	}
	if err := w.WriteCString(b.Name); err != nil {
		return err
	}
	switch b.ItemType {
	case types.ItemTypeMime:
		if err := w.WriteCString(b.ContentType); err != nil {
			return err
		}
		if b.HasContentEncoding {
			return w.WriteCString(b.ContentEncoding)
		}
	case types.ItemTypeURI:
		return w.WriteCString(b.ItemURIType)
	}
	return nil
}
