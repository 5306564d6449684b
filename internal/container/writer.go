package container

import (
	"fmt"

	"github.com/deploymenttheory/go-avif/internal/box"
	"github.com/deploymenttheory/go-avif/internal/interfaces"
	"github.com/deploymenttheory/go-avif/internal/stream"
	"github.com/deploymenttheory/go-avif/internal/types"
)

// Item is one image item to be written: its compressed payload, the
// property boxes describing it, and which of those a reader must
// understand. Payload bytes come from the codec and are embedded
// verbatim.
type Item struct {
	ID      uint32
	Type    types.FourCC
	Name    string
	Payload []byte

	// Properties are associated in order. Essential runs parallel;
	// missing entries default to non-essential. Sharing a property box
	// value between items associates both with one ipco entry.
	Properties []box.Box
	Essential  []bool
}

// WriteOptions describes the file to assemble.
type WriteOptions struct {
	PrimaryItemID uint32
	Items         []Item
	References    []box.ItemReference
}

// Write assembles and serializes a complete AVIF container: ftyp, meta
// (hdlr, pitm, iloc, iinf, iprp) and a single mdat holding every item's
// payload. Item IDs and property indices are validated before a byte is
// emitted; a tree that fails validation is never partially written.
func Write(sink interfaces.ByteSink, opts WriteOptions) error {
	if err := validateOptions(&opts); err != nil {
		return err
	}

	ftyp := &box.FileTypeBox{
		MajorBrand:       types.BrandAvif,
		MinorVersion:     0,
		CompatibleBrands: []types.FourCC{types.BrandAvif, types.BrandMif1, types.BrandMiaf},
	}

	// Property pool, deduplicated by box value so a property shared
	// between items (the usual ispe/av1C sharing) gets one ipco slot.
	ipco := &box.ItemPropertyContainerBox{}
	ipma := &box.ItemPropertyAssociationBox{}
	indexOf := map[box.Box]uint16{}
	for _, item := range opts.Items {
		for i, prop := range item.Properties {
			idx, ok := indexOf[prop]
			if !ok {
				ipco.Properties = append(ipco.Properties, prop)
				idx = uint16(len(ipco.Properties))
				indexOf[prop] = idx
			}
			essential := i < len(item.Essential) && item.Essential[i]
			ipma.AddAssociation(item.ID, essential, idx)
		}
	}
	iprp := &box.ItemPropertiesBox{Container: ipco, Associations: []*box.ItemPropertyAssociationBox{ipma}}

	// 16-bit item IDs fit the compact box versions; one wide ID moves
	// every ID-carrying box to its 32-bit form.
	wideIDs := false
	for _, item := range opts.Items {
		if item.ID > 0xFFFF {
			wideIDs = true
		}
	}
	infeVersion, ilocVersion := uint8(2), uint8(0)
	if wideIDs {
		infeVersion, ilocVersion = 3, 2
		ipma.Version = 1
	}

	iinf := &box.ItemInfoBox{}
	iloc := &box.ItemLocationBox{Version: ilocVersion, OffsetSize: 4, LengthSize: 4}
	var payloadOffsets []uint64 // relative to mdat payload start
	var mdatPayload []byte
	for _, item := range opts.Items {
		iinf.Entries = append(iinf.Entries, &box.ItemInfoEntry{
			Version:  infeVersion,
			ItemID:   item.ID,
			ItemType: item.Type,
			Name:     item.Name,
		})
		payloadOffsets = append(payloadOffsets, uint64(len(mdatPayload)))
		mdatPayload = append(mdatPayload, item.Payload...)
	}
	for i, item := range opts.Items {
		iloc.Items = append(iloc.Items, box.ItemLocationEntry{
			ItemID:  item.ID,
			Extents: []types.Extent{{Offset: payloadOffsets[i], Length: uint64(len(item.Payload))}},
		})
	}

	pitm := &box.PrimaryItemBox{ItemID: opts.PrimaryItemID}
	if wideIDs {
		pitm.Version = 1
	}
	refVersion := uint8(0)
	if wideIDs {
		refVersion = 1
	}

	meta := &box.MetaBox{Children: []box.Box{
		&box.HandlerBox{HandlerType: types.HandlerPict, HasName: true},
		pitm,
		iloc,
		iinf,
		iprp,
	}}
	if len(opts.References) > 0 {
		meta.Children = append(meta.Children, &box.ItemReferenceBox{Version: refVersion, References: opts.References})
	}
	mdat := &box.MediaDataBox{Data: mdatPayload}

	// The iloc extent offsets are absolute file offsets, known only
	// once the sizes ahead of the mdat payload are. Sizes are stable
	// because the offset field width is fixed at 4 bytes.
	mdatHeader := mdat.EncodedSize() - uint64(len(mdatPayload))
	payloadStart := ftyp.EncodedSize() + meta.EncodedSize() + mdatHeader
	for i := range iloc.Items {
		offset := payloadStart + payloadOffsets[i]
		if offset > 0xFFFFFFFF {
			return fmt.Errorf("item %d payload offset %d overflows the 4-byte offset field: %w", iloc.Items[i].ItemID, offset, types.ErrInvalidData)
		}
		iloc.Items[i].Extents[0].Offset = offset
	}

	w := stream.NewWriter(sink)
	for _, b := range []box.Box{ftyp, meta, mdat} {
		before := w.BytesWritten()
		if err := b.Write(w); err != nil {
			return fmt.Errorf("failed to write %q box: %w", b.Type(), err)
		}
		if emitted := w.BytesWritten() - before; emitted != b.EncodedSize() {
			return fmt.Errorf("%q box emitted %d bytes, declared %d: %w", b.Type(), emitted, b.EncodedSize(), types.ErrInvalidData)
		}
	}
	return nil
}

func validateOptions(opts *WriteOptions) error {
	if len(opts.Items) == 0 {
		return fmt.Errorf("no items to write: %w", types.ErrInvalidData)
	}
	seen := map[uint32]bool{}
	for _, item := range opts.Items {
		if item.ID == 0 {
			return fmt.Errorf("item ID 0 is reserved: %w", types.ErrInvalidData)
		}
		if seen[item.ID] {
			return fmt.Errorf("duplicate item ID %d: %w", item.ID, types.ErrInvalidData)
		}
		seen[item.ID] = true
		if len(item.Properties) < len(item.Essential) {
			return fmt.Errorf("item %d declares %d essential flags for %d properties: %w", item.ID, len(item.Essential), len(item.Properties), types.ErrInvalidData)
		}
	}
	if !seen[opts.PrimaryItemID] {
		return fmt.Errorf("primary item %d is not among the items: %w", opts.PrimaryItemID, types.ErrInvalidData)
	}
	for _, ref := range opts.References {
		if !seen[ref.FromItemID] {
			return fmt.Errorf("reference %q from unknown item %d: %w", ref.ReferenceType, ref.FromItemID, types.ErrInvalidData)
		}
		for _, to := range ref.ToItemIDs {
			if !seen[to] {
				return fmt.Errorf("reference %q to unknown item %d: %w", ref.ReferenceType, to, types.ErrInvalidData)
			}
		}
	}
	return nil
}
