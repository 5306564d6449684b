// Package container assembles the box tree into a usable AVIF file
// view: parsing a byte source into typed boxes, resolving item
// locations and properties, and writing a complete file back out.
package container

import (
	"encoding/binary"
	"fmt"

	"github.com/deploymenttheory/go-avif/internal/box"
	"github.com/deploymenttheory/go-avif/internal/interfaces"
	"github.com/deploymenttheory/go-avif/internal/stream"
	"github.com/deploymenttheory/go-avif/internal/types"
)

// File is the materialized box tree of one AVIF/HEIF container, with
// the frequently consulted boxes indexed. The tree is self-contained
// after Parse returns; the byte source is only borrowed for the parse
// pass.
type File struct {
	Boxes []box.Box

	fileType   *box.FileTypeBox
	meta       *box.MetaBox
	mediaData  []*box.MediaDataBox
	itemInfo   *box.ItemInfoBox
	itemLoc    *box.ItemLocationBox
	properties *box.ItemPropertiesBox
	references *box.ItemReferenceBox
	primary    *box.PrimaryItemBox
	itemData   *box.ItemDataBox
}

// ParseOptions tunes a parse pass. Zero buffer sizes select the stream
// defaults.
type ParseOptions struct {
	// BufferSize and ChunkSize are handed to the reader.
	BufferSize int
	ChunkSize  int

	// Strict rejects files that omit the mandatory ftyp box. A
	// non-strict pass returns the tree as found, with FileType nil.
	Strict bool
}

// Parse reads every top-level box from src and indexes the container
// structure, with strict validation and default buffering.
func Parse(src interfaces.ByteSource) (*File, error) {
	return ParseWith(src, ParseOptions{Strict: true})
}

// ParseWith is Parse with explicit options. Box data is big-endian on
// the wire; the reader's scratch buffer is released before ParseWith
// returns, on every path.
func ParseWith(src interfaces.ByteSource, opts ParseOptions) (*File, error) {
	r := stream.NewReaderOptions(src, binary.BigEndian, stream.Options{
		BufferSize: opts.BufferSize,
		ChunkSize:  opts.ChunkSize,
	})
	defer r.Close()

	root, err := stream.NewSegment(r, 0, r.Length())
	if err != nil {
		return nil, err
	}
	boxes, err := box.ReadBoxes(root)
	if err != nil {
		return nil, fmt.Errorf("failed to parse container: %w", err)
	}

	f := &File{Boxes: boxes}
	for _, b := range boxes {
		switch v := b.(type) {
		case *box.FileTypeBox:
			if f.fileType == nil {
				f.fileType = v
			}
		case *box.MetaBox:
			if f.meta == nil {
				f.meta = v
			}
		case *box.MediaDataBox:
			f.mediaData = append(f.mediaData, v)
		}
	}
	if f.fileType == nil && opts.Strict {
		return nil, fmt.Errorf("container has no ftyp box: %w", types.ErrInvalidData)
	}
	if f.meta != nil {
		f.indexMetaChildren()
	}
	return f, nil
}

func (f *File) indexMetaChildren() {
	for _, c := range f.meta.Children {
		switch v := c.(type) {
		case *box.ItemInfoBox:
			f.itemInfo = v
		case *box.ItemLocationBox:
			f.itemLoc = v
		case *box.ItemPropertiesBox:
			f.properties = v
		case *box.ItemReferenceBox:
			f.references = v
		case *box.PrimaryItemBox:
			f.primary = v
		case *box.ItemDataBox:
			f.itemData = v
		}
	}
}

// FileType returns the ftyp box. Never nil on a strictly parsed file;
// nil when a non-strict pass found none.
func (f *File) FileType() *box.FileTypeBox {
	return f.fileType
}

// Meta returns the meta box, or nil when the file has none.
func (f *File) Meta() *box.MetaBox {
	return f.meta
}

// Items returns the item info entries, empty when the file declares no
// items.
func (f *File) Items() []*box.ItemInfoEntry {
	if f.itemInfo == nil {
		return nil
	}
	return f.itemInfo.Entries
}

// PrimaryItemID returns the declared primary item ID and whether a pitm
// box was present.
func (f *File) PrimaryItemID() (uint32, bool) {
	if f.primary == nil {
		return 0, false
	}
	return f.primary.ItemID, true
}

// PropertiesForItem resolves the property associations of an item, in
// association order. Items without associations yield an empty slice.
func (f *File) PropertiesForItem(itemID uint32) []box.ResolvedProperty {
	if f.properties == nil {
		return nil
	}
	return f.properties.PropertiesForItem(itemID)
}

// References returns the item reference box, or nil.
func (f *File) References() *box.ItemReferenceBox {
	return f.references
}

// SpatialExtents returns the ispe property associated with an item.
func (f *File) SpatialExtents(itemID uint32) (*box.ImageSpatialExtentsBox, bool) {
	for _, rp := range f.PropertiesForItem(itemID) {
		if ispe, ok := rp.Property.(*box.ImageSpatialExtentsBox); ok {
			return ispe, true
		}
	}
	return nil, false
}

// ColorInformation returns the colr property associated with an item.
// The payload (ICC bytes or CICP fields) is exactly what the file
// carried.
func (f *File) ColorInformation(itemID uint32) (*box.ColorInformationBox, bool) {
	for _, rp := range f.PropertiesForItem(itemID) {
		if colr, ok := rp.Property.(*box.ColorInformationBox); ok {
			return colr, true
		}
	}
	return nil, false
}

// ItemPayload reassembles an item's compressed payload from its
// location extents. The bytes are returned verbatim for the codec; the
// container never interprets them.
func (f *File) ItemPayload(itemID uint32) ([]byte, error) {
	if f.itemLoc == nil {
		return nil, fmt.Errorf("item %d: container has no iloc box: %w", itemID, types.ErrInvalidData)
	}
	entry := f.itemLoc.EntryByID(itemID)
	if entry == nil {
		return nil, fmt.Errorf("item %d has no location entry: %w", itemID, types.ErrInvalidData)
	}
	total := entry.TotalLength()
	out := make([]byte, 0, total)
	for _, ext := range entry.Extents {
		offset := entry.BaseOffset + ext.Offset
		if offset < entry.BaseOffset {
			return nil, fmt.Errorf("item %d extent offset overflows: %w", itemID, types.ErrInvalidData)
		}
		chunk, err := f.extentBytes(entry.ConstructionMethod, offset, ext.Length)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", itemID, err)
		}
		out = append(out, chunk...)
	}
	return out, nil
}

func (f *File) extentBytes(method uint8, offset, length uint64) ([]byte, error) {
	switch method {
	case types.ConstructionFileOffset:
		for _, mdat := range f.mediaData {
			end := mdat.PayloadOffset + uint64(len(mdat.Data))
			if offset >= mdat.PayloadOffset && offset <= end {
				rel := offset - mdat.PayloadOffset
				if length > uint64(len(mdat.Data))-rel {
					return nil, fmt.Errorf("extent of %d bytes at %d crosses mdat end: %w", length, offset, types.ErrInvalidData)
				}
				return mdat.Data[rel : rel+length], nil
			}
		}
		return nil, fmt.Errorf("extent at %d lies outside every mdat box: %w", offset, types.ErrInvalidData)
	case types.ConstructionIdatOffset:
		if f.itemData == nil {
			return nil, fmt.Errorf("idat-relative extent without an idat box: %w", types.ErrInvalidData)
		}
		if offset > uint64(len(f.itemData.Data)) || length > uint64(len(f.itemData.Data))-offset {
			return nil, fmt.Errorf("extent of %d bytes at %d crosses idat end: %w", length, offset, types.ErrInvalidData)
		}
		return f.itemData.Data[offset : offset+length], nil
	default:
		return nil, fmt.Errorf("unsupported iloc construction method %d: %w", method, types.ErrInvalidData)
	}
}
