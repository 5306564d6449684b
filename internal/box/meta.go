package box

import (
	"fmt"

	"github.com/deploymenttheory/go-avif/internal/stream"
	"github.com/deploymenttheory/go-avif/internal/types"
)

// MetaBox is the "meta" full box: the container for all item-level
// structure (hdlr, pitm, iloc, iinf, iprp, iref, idat).
type MetaBox struct {
	Flags    uint32
	Children []Box
}

func parseMetaBox(h Header, s *stream.Segment) (Box, error) {
	version, flags, err := parseFullBoxPrefix(s)
	if err != nil {
		return nil, err
	}
	if version != 0 {
		return nil, unsupportedVersion(h.Type, version)
	}
	children, err := ReadBoxes(s)
	if err != nil {
		return nil, fmt.Errorf("failed to parse meta children: %w", err)
	}
	return &MetaBox{Flags: flags, Children: children}, nil
}

// FindChild returns the first child of the given type, or nil.
func (b *MetaBox) FindChild(typ types.FourCC) Box {
	for _, c := range b.Children {
		if c.Type() == typ {
			return c
		}
	}
	return nil
}

func (b *MetaBox) Type() types.FourCC {
	return types.BoxTypeMeta
}

func (b *MetaBox) payloadSize() uint64 {
	return fullBoxPrefixSize + childrenEncodedSize(b.Children)
}

func (b *MetaBox) EncodedSize() uint64 {
	return headerSizeFor(b.payloadSize()) + b.payloadSize()
}

func (b *MetaBox) Write(w *stream.Writer) error {
	if err := writeHeader(w, b.Type(), b.payloadSize()); err != nil {
		return err
	}
	if err := writeFullBoxPrefix(w, 0, b.Flags); err != nil {
		return err
	}
	return writeChildren(w, b.Children)
}

// HandlerBox is the "hdlr" full box. For AVIF the handler type is
// always "pict"; the trailing name is an arbitrary null-terminated
// string. Some files omit the name field entirely, so its presence is
// tracked and the box re-encodes exactly as read.
type HandlerBox struct {
	HandlerType types.FourCC
	Name        string
	HasName     bool
}

func parseHandlerBox(h Header, s *stream.Segment) (Box, error) {
	version, _, err := parseFullBoxPrefix(s)
	if err != nil {
		return nil, err
	}
	if version != 0 {
		return nil, unsupportedVersion(h.Type, version)
	}
	// pre_defined
	if _, err := s.ReadUint32(); err != nil {
		return nil, fmt.Errorf("failed to read hdlr pre_defined: %w", err)
	}
	b := &HandlerBox{}
	if b.HandlerType, err = s.ReadFourCC(); err != nil {
		return nil, fmt.Errorf("failed to read hdlr handler type: %w", err)
	}
	// reserved[3]
	if err := s.Skip(12); err != nil {
		return nil, fmt.Errorf("hdlr reserved fields truncated: %w", err)
	}
	if s.Remaining() > 0 {
		if b.Name, err = s.ReadCString(); err != nil {
			return nil, fmt.Errorf("failed to read hdlr name: %w", err)
		}
		b.HasName = true
	}
	return b, nil
}

func (b *HandlerBox) Type() types.FourCC {
	return types.BoxTypeHdlr
}

func (b *HandlerBox) payloadSize() uint64 {
	n := uint64(fullBoxPrefixSize) + 4 + 4 + 12
	if b.HasName {
		n += uint64(len(b.Name)) + 1
	}
	return n
}

func (b *HandlerBox) EncodedSize() uint64 {
	return headerSizeFor(b.payloadSize()) + b.payloadSize()
}

func (b *HandlerBox) Write(w *stream.Writer) error {
	if err := writeHeader(w, b.Type(), b.payloadSize()); err != nil {
		return err
	}
	if err := writeFullBoxPrefix(w, 0, 0); err != nil {
		return err
	}
	if err := w.WriteUint32(0); err != nil {
		return err
	}
	if err := w.WriteFourCC(b.HandlerType); err != nil {
		return err
	}
	for i := 0; i < 3; i++ {
		if err := w.WriteUint32(0); err != nil {
			return err
		}
	}
	if !b.HasName {
		return nil
	}
	return w.WriteCString(b.Name)
}

// PrimaryItemBox is the "pitm" full box naming the item a reader should
// display. Version 0 carries a 16-bit item ID, version 1 a 32-bit one.
type PrimaryItemBox struct {
	Version uint8
	ItemID  uint32
}

func parsePrimaryItemBox(h Header, s *stream.Segment) (Box, error) {
	version, _, err := parseFullBoxPrefix(s)
	if err != nil {
		return nil, err
	}
	b := &PrimaryItemBox{Version: version}
	switch version {
	case 0:
		id, err := s.ReadUint16()
		if err != nil {
			return nil, fmt.Errorf("failed to read pitm item ID: %w", err)
		}
		b.ItemID = uint32(id)
	case 1:
		if b.ItemID, err = s.ReadUint32(); err != nil {
			return nil, fmt.Errorf("failed to read pitm item ID: %w", err)
		}
	default:
		return nil, unsupportedVersion(h.Type, version)
	}
	return b, nil
}

func (b *PrimaryItemBox) Type() types.FourCC {
	return types.BoxTypePitm
}

func (b *PrimaryItemBox) payloadSize() uint64 {
	if b.Version == 0 {
		return fullBoxPrefixSize + 2
	}
	return fullBoxPrefixSize + 4
}

func (b *PrimaryItemBox) EncodedSize() uint64 {
	return headerSizeFor(b.payloadSize()) + b.payloadSize()
}

func (b *PrimaryItemBox) Write(w *stream.Writer) error {
	if b.Version > 1 {
		return unsupportedVersion(b.Type(), b.Version)
	}
	if err := writeHeader(w, b.Type(), b.payloadSize()); err != nil {
		return err
	}
	if err := writeFullBoxPrefix(w, b.Version, 0); err != nil {
		return err
	}
	if b.Version == 0 {
		if b.ItemID > 0xFFFF {
			return fmt.Errorf("pitm version 0 cannot carry item ID %d: %w", b.ItemID, types.ErrInvalidData)
		}
		return w.WriteUint16(uint16(b.ItemID))
	}
	return w.WriteUint32(b.ItemID)
}
