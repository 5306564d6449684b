package box

import (
	"fmt"

	"github.com/deploymenttheory/go-avif/internal/stream"
	"github.com/deploymenttheory/go-avif/internal/types"
)

// ItemPropertyContainerBox is the "ipco" box: the ordered pool of
// property boxes that association entries index into, 1-based.
type ItemPropertyContainerBox struct {
	Properties []Box
}

func parseItemPropertyContainerBox(h Header, s *stream.Segment) (Box, error) {
	children, err := ReadBoxes(s)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ipco properties: %w", err)
	}
	return &ItemPropertyContainerBox{Properties: children}, nil
}

// PropertyAt returns the property at a 1-based association index, or
// nil when the index is 0 or past the end. Index 0 is reserved.
func (b *ItemPropertyContainerBox) PropertyAt(index uint16) Box {
	if index == 0 || int(index) > len(b.Properties) {
		return nil
	}
	return b.Properties[index-1]
}

func (b *ItemPropertyContainerBox) Type() types.FourCC {
	return types.BoxTypeIpco
}

func (b *ItemPropertyContainerBox) payloadSize() uint64 {
	return childrenEncodedSize(b.Properties)
}

func (b *ItemPropertyContainerBox) EncodedSize() uint64 {
	return headerSizeFor(b.payloadSize()) + b.payloadSize()
}

func (b *ItemPropertyContainerBox) Write(w *stream.Writer) error {
	if err := writeHeader(w, b.Type(), b.payloadSize()); err != nil {
		return err
	}
	return writeChildren(w, b.Properties)
}

// PropertyAssociation links one item to one property in the container.
// Essential marks properties a reader must understand to render the
// item; the flag is stored and round-tripped, never evaluated here.
type PropertyAssociation struct {
	Essential     bool
	PropertyIndex uint16 // 1-based into ipco; 0 is reserved
}

// ItemAssociations is the ordered association list of a single item.
type ItemAssociations struct {
	ItemID       uint32
	Associations []PropertyAssociation
}

// ItemPropertyAssociationBox is the "ipma" full box. Version 1 widens
// item IDs to 32 bits; flag bit 0 widens property indices to 15 bits.
// Write raises the flag bit itself when an index needs the wide form.
type ItemPropertyAssociationBox struct {
	Version uint8
	Flags   uint32
	Entries []ItemAssociations
}

func parseItemPropertyAssociationBox(h Header, s *stream.Segment) (Box, error) {
	version, flags, err := parseFullBoxPrefix(s)
	if err != nil {
		return nil, err
	}
	if version > 1 {
		return nil, unsupportedVersion(h.Type, version)
	}
	b := &ItemPropertyAssociationBox{Version: version, Flags: flags}

	entryCount, err := s.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("failed to read ipma entry count: %w", err)
	}
	for i := uint32(0); i < entryCount; i++ {
		var entry ItemAssociations
		if version == 0 {
			id, err := s.ReadUint16()
			if err != nil {
				return nil, fmt.Errorf("failed to read ipma item ID: %w", err)
			}
			entry.ItemID = uint32(id)
		} else {
			if entry.ItemID, err = s.ReadUint32(); err != nil {
				return nil, fmt.Errorf("failed to read ipma item ID: %w", err)
			}
		}
		assocCount, err := s.ReadUint8()
		if err != nil {
			return nil, fmt.Errorf("failed to read ipma association count: %w", err)
		}
		for j := uint8(0); j < assocCount; j++ {
			first, err := s.ReadUint8()
			if err != nil {
				return nil, fmt.Errorf("failed to read ipma association: %w", err)
			}
			assoc := PropertyAssociation{Essential: first&0x80 != 0}
			if flags&1 != 0 {
				second, err := s.ReadUint8()
				if err != nil {
					return nil, fmt.Errorf("failed to read ipma association index: %w", err)
				}
				assoc.PropertyIndex = uint16(first&0x7F)<<8 | uint16(second)
			} else {
				assoc.PropertyIndex = uint16(first & 0x7F)
			}
			entry.Associations = append(entry.Associations, assoc)
		}
		b.Entries = append(b.Entries, entry)
	}
	return b, nil
}

// AddAssociation appends a property association for an item, creating
// the item's entry if needed.
func (b *ItemPropertyAssociationBox) AddAssociation(itemID uint32, essential bool, propertyIndex uint16) {
	assoc := PropertyAssociation{Essential: essential, PropertyIndex: propertyIndex}
	for i := range b.Entries {
		if b.Entries[i].ItemID == itemID {
			b.Entries[i].Associations = append(b.Entries[i].Associations, assoc)
			return
		}
	}
	b.Entries = append(b.Entries, ItemAssociations{
		ItemID:       itemID,
		Associations: []PropertyAssociation{assoc},
	})
}

// AssociationsFor returns the ordered associations for an item. An item
// with no associations yields an empty slice; absence is not an error.
func (b *ItemPropertyAssociationBox) AssociationsFor(itemID uint32) []PropertyAssociation {
	for i := range b.Entries {
		if b.Entries[i].ItemID == itemID {
			return b.Entries[i].Associations
		}
	}
	return nil
}

// wideIndexes reports whether associations need the 15-bit index form:
// either the parsed flags ask for it, or an index too wide for 7 bits
// forces it at write time.
func (b *ItemPropertyAssociationBox) wideIndexes() bool {
	if b.Flags&1 != 0 {
		return true
	}
	for _, e := range b.Entries {
		for _, a := range e.Associations {
			if a.PropertyIndex > 0x7F {
				return true
			}
		}
	}
	return false
}

func (b *ItemPropertyAssociationBox) Type() types.FourCC {
	return types.BoxTypeIpma
}

func (b *ItemPropertyAssociationBox) payloadSize() uint64 {
	n := uint64(fullBoxPrefixSize) + 4
	idSize := uint64(2)
	if b.Version > 0 {
		idSize = 4
	}
	assocSize := uint64(1)
	if b.wideIndexes() {
		assocSize = 2
	}
	for _, e := range b.Entries {
		n += idSize + 1 + assocSize*uint64(len(e.Associations))
	}
	return n
}

func (b *ItemPropertyAssociationBox) EncodedSize() uint64 {
	return headerSizeFor(b.payloadSize()) + b.payloadSize()
}

func (b *ItemPropertyAssociationBox) Write(w *stream.Writer) error {
	if b.Version > 1 {
		return unsupportedVersion(b.Type(), b.Version)
	}
	flags := b.Flags
	if b.wideIndexes() {
		flags |= 1
	}
	if err := writeHeader(w, b.Type(), b.payloadSize()); err != nil {
		return err
	}
	if err := writeFullBoxPrefix(w, b.Version, flags); err != nil {
		return err
	}
	if err := w.WriteUint32(uint32(len(b.Entries))); err != nil {
		return err
	}
	for _, e := range b.Entries {
		if b.Version == 0 {
			if e.ItemID > 0xFFFF {
				return fmt.Errorf("ipma version 0 cannot carry item ID %d: %w", e.ItemID, types.ErrInvalidData)
			}
			if err := w.WriteUint16(uint16(e.ItemID)); err != nil {
				return err
			}
		} else {
			if err := w.WriteUint32(e.ItemID); err != nil {
				return err
			}
		}
		if len(e.Associations) > 0xFF {
			return fmt.Errorf("ipma entry for item %d has %d associations: %w", e.ItemID, len(e.Associations), types.ErrInvalidData)
		}
		if err := w.WriteUint8(uint8(len(e.Associations))); err != nil {
			return err
		}
		for _, a := range e.Associations {
			var essential uint16
			if a.Essential {
				essential = 0x8000
			}
			if b.wideIndexes() {
				if a.PropertyIndex > 0x7FFF {
					return fmt.Errorf("ipma property index %d overflows 15 bits: %w", a.PropertyIndex, types.ErrInvalidData)
				}
				if err := w.WriteUint16(essential | a.PropertyIndex); err != nil {
					return err
				}
			} else {
				if err := w.WriteUint8(uint8(essential>>8) | uint8(a.PropertyIndex)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// ItemPropertiesBox is the "iprp" box: one ipco property pool followed
// by one or more ipma association tables.
type ItemPropertiesBox struct {
	Container    *ItemPropertyContainerBox
	Associations []*ItemPropertyAssociationBox
}

func parseItemPropertiesBox(h Header, s *stream.Segment) (Box, error) {
	children, err := ReadBoxes(s)
	if err != nil {
		return nil, fmt.Errorf("failed to parse iprp children: %w", err)
	}
	if len(children) == 0 {
		return nil, fmt.Errorf("iprp box has no children: %w", types.ErrInvalidData)
	}
	container, ok := children[0].(*ItemPropertyContainerBox)
	if !ok {
		return nil, fmt.Errorf("first iprp child is %q, want ipco: %w", children[0].Type(), types.ErrInvalidData)
	}
	b := &ItemPropertiesBox{Container: container}
	for _, c := range children[1:] {
		assoc, ok := c.(*ItemPropertyAssociationBox)
		if !ok {
			return nil, fmt.Errorf("unexpected %q box inside iprp: %w", c.Type(), types.ErrInvalidData)
		}
		b.Associations = append(b.Associations, assoc)
	}
	return b, nil
}

// PropertiesForItem resolves an item's associations against the
// property container, in association order. Malformed indices parsed
// from a file resolve to a nil Property and are returned unchanged for
// the caller to reject.
func (b *ItemPropertiesBox) PropertiesForItem(itemID uint32) []ResolvedProperty {
	var out []ResolvedProperty
	for _, assoc := range b.Associations {
		for _, a := range assoc.AssociationsFor(itemID) {
			out = append(out, ResolvedProperty{
				Association: a,
				Property:    b.Container.PropertyAt(a.PropertyIndex),
			})
		}
	}
	return out
}

// ResolvedProperty pairs an association entry with the property box its
// index points at, or nil when the index does not resolve.
type ResolvedProperty struct {
	Association PropertyAssociation
	Property    Box
}

// validateAssociations rejects association indices that do not point at
// an existing property. Index 0 is reserved and always invalid.
func (b *ItemPropertiesBox) validateAssociations() error {
	count := len(b.Container.Properties)
	for _, assoc := range b.Associations {
		for _, e := range assoc.Entries {
			for _, a := range e.Associations {
				if a.PropertyIndex == 0 || int(a.PropertyIndex) > count {
					return fmt.Errorf("item %d references property index %d of %d: %w", e.ItemID, a.PropertyIndex, count, types.ErrInvalidData)
				}
			}
		}
	}
	return nil
}

func (b *ItemPropertiesBox) Type() types.FourCC {
	return types.BoxTypeIprp
}

func (b *ItemPropertiesBox) payloadSize() uint64 {
	n := b.Container.EncodedSize()
	for _, a := range b.Associations {
		n += a.EncodedSize()
	}
	return n
}

func (b *ItemPropertiesBox) EncodedSize() uint64 {
	return headerSizeFor(b.payloadSize()) + b.payloadSize()
}

func (b *ItemPropertiesBox) Write(w *stream.Writer) error {
	if err := b.validateAssociations(); err != nil {
		return err
	}
	if err := writeHeader(w, b.Type(), b.payloadSize()); err != nil {
		return err
	}
	if err := b.Container.Write(w); err != nil {
		return err
	}
	for _, a := range b.Associations {
		if err := a.Write(w); err != nil {
			return err
		}
	}
	return nil
}
