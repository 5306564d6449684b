package box

import (
	"fmt"

	"github.com/deploymenttheory/go-avif/internal/stream"
	"github.com/deploymenttheory/go-avif/internal/types"
)

// ItemReferenceBox is the "iref" full box: typed directed references
// between items (derived image, thumbnail, auxiliary, description).
// Version 0 encodes item IDs as 16 bits, version 1 as 32 bits.
type ItemReferenceBox struct {
	Version    uint8
	References []ItemReference
}

// ItemReference is one reference record: the reference type (a FourCC
// such as "dimg" or "thmb"), the referring item, and the items it
// points at.
type ItemReference struct {
	ReferenceType types.FourCC
	FromItemID    uint32
	ToItemIDs     []uint32
}

func parseItemReferenceBox(h Header, s *stream.Segment) (Box, error) {
	version, _, err := parseFullBoxPrefix(s)
	if err != nil {
		return nil, err
	}
	if version > 1 {
		return nil, unsupportedVersion(h.Type, version)
	}
	b := &ItemReferenceBox{Version: version}

	// Each reference record is itself a box whose type is the
	// reference type.
	for s.Remaining() > 0 {
		rh, err := ParseHeader(s)
		if err != nil {
			return nil, fmt.Errorf("failed to parse iref record header: %w", err)
		}
		payload, err := s.Child(rh.PayloadStart, rh.PayloadLength)
		if err != nil {
			return nil, fmt.Errorf("iref record bounds rejected: %w", err)
		}
		ref := ItemReference{ReferenceType: rh.Type}
		if version == 0 {
			from, err := payload.ReadUint16()
			if err != nil {
				return nil, fmt.Errorf("failed to read iref from-item ID: %w", err)
			}
			ref.FromItemID = uint32(from)
		} else {
			if ref.FromItemID, err = payload.ReadUint32(); err != nil {
				return nil, fmt.Errorf("failed to read iref from-item ID: %w", err)
			}
		}
		count, err := payload.ReadUint16()
		if err != nil {
			return nil, fmt.Errorf("failed to read iref reference count: %w", err)
		}
		for i := uint16(0); i < count; i++ {
			var to uint32
			if version == 0 {
				to16, err := payload.ReadUint16()
				if err != nil {
					return nil, fmt.Errorf("failed to read iref to-item ID: %w", err)
				}
				to = uint32(to16)
			} else {
				if to, err = payload.ReadUint32(); err != nil {
					return nil, fmt.Errorf("failed to read iref to-item ID: %w", err)
				}
			}
			ref.ToItemIDs = append(ref.ToItemIDs, to)
		}
		b.References = append(b.References, ref)
		if err := s.SetPosition(rh.Start + rh.TotalSize - s.Start()); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// ReferencesFrom returns the references of the given type originating
// at an item.
func (b *ItemReferenceBox) ReferencesFrom(itemID uint32, refType types.FourCC) []ItemReference {
	var out []ItemReference
	for _, r := range b.References {
		if r.FromItemID == itemID && r.ReferenceType == refType {
			out = append(out, r)
		}
	}
	return out
}

func (b *ItemReferenceBox) idSize() uint64 {
	if b.Version == 0 {
		return 2
	}
	return 4
}

func (b *ItemReferenceBox) Type() types.FourCC {
	return types.BoxTypeIref
}

func (b *ItemReferenceBox) payloadSize() uint64 {
	n := uint64(fullBoxPrefixSize)
	for _, r := range b.References {
		n += compactHeaderSize + b.idSize() + 2 + b.idSize()*uint64(len(r.ToItemIDs))
	}
	return n
}

func (b *ItemReferenceBox) EncodedSize() uint64 {
	return headerSizeFor(b.payloadSize()) + b.payloadSize()
}

func (b *ItemReferenceBox) Write(w *stream.Writer) error {
	if b.Version > 1 {
		return unsupportedVersion(b.Type(), b.Version)
	}
	if err := writeHeader(w, b.Type(), b.payloadSize()); err != nil {
		return err
	}
	if err := writeFullBoxPrefix(w, b.Version, 0); err != nil {
		return err
	}
	for _, r := range b.References {
		recordPayload := b.idSize() + 2 + b.idSize()*uint64(len(r.ToItemIDs))
		if err := writeHeader(w, r.ReferenceType, recordPayload); err != nil {
			return err
		}
		if b.Version == 0 {
			if r.FromItemID > 0xFFFF {
				return fmt.Errorf("iref version 0 cannot carry item ID %d: %w", r.FromItemID, types.ErrInvalidData)
			}
			if err := w.WriteUint16(uint16(r.FromItemID)); err != nil {
				return err
			}
		} else {
			if err := w.WriteUint32(r.FromItemID); err != nil {
				return err
			}
		}
		if len(r.ToItemIDs) > 0xFFFF {
			return fmt.Errorf("iref record references %d items: %w", len(r.ToItemIDs), types.ErrInvalidData)
		}
		if err := w.WriteUint16(uint16(len(r.ToItemIDs))); err != nil {
			return err
		}
		for _, to := range r.ToItemIDs {
			if b.Version == 0 {
				if to > 0xFFFF {
					return fmt.Errorf("iref version 0 cannot carry item ID %d: %w", to, types.ErrInvalidData)
				}
				if err := w.WriteUint16(uint16(to)); err != nil {
					return err
				}
			} else {
				if err := w.WriteUint32(to); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
