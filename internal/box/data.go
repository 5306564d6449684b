package box

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/deploymenttheory/go-avif/internal/stream"
	"github.com/deploymenttheory/go-avif/internal/types"
)

// ItemDataBox is the "idat" box: raw bytes addressed by item location
// entries using the idat construction method.
type ItemDataBox struct {
	Data []byte
}

func parseItemDataBox(h Header, s *stream.Segment) (Box, error) {
	b := &ItemDataBox{}
	if s.Remaining() > 0 {
		var err error
		if b.Data, err = s.ReadBytes(s.Remaining()); err != nil {
			return nil, fmt.Errorf("failed to read idat payload: %w", err)
		}
	}
	return b, nil
}

func (b *ItemDataBox) Type() types.FourCC {
	return types.BoxTypeIdat
}

func (b *ItemDataBox) EncodedSize() uint64 {
	n := uint64(len(b.Data))
	return headerSizeFor(n) + n
}

func (b *ItemDataBox) Write(w *stream.Writer) error {
	if err := writeHeader(w, b.Type(), uint64(len(b.Data))); err != nil {
		return err
	}
	return w.Write(b.Data)
}

// MediaDataBox is the "mdat" box: the compressed image payload.
// PayloadOffset records where the payload began in the source so item
// location entries using absolute file offsets can be resolved after
// the tree is materialized.
type MediaDataBox struct {
	Data          []byte
	PayloadOffset uint64
}

func parseMediaDataBox(h Header, s *stream.Segment) (Box, error) {
	b := &MediaDataBox{PayloadOffset: h.PayloadStart}
	if s.Remaining() > 0 {
		var err error
		if b.Data, err = s.ReadBytes(s.Remaining()); err != nil {
			return nil, fmt.Errorf("failed to read mdat payload: %w", err)
		}
	}
	return b, nil
}

func (b *MediaDataBox) Type() types.FourCC {
	return types.BoxTypeMdat
}

func (b *MediaDataBox) EncodedSize() uint64 {
	n := uint64(len(b.Data))
	return headerSizeFor(n) + n
}

func (b *MediaDataBox) Write(w *stream.Writer) error {
	if err := writeHeader(w, b.Type(), uint64(len(b.Data))); err != nil {
		return err
	}
	return w.Write(b.Data)
}

// FreeSpaceBox is a "free" or "skip" box. Content is meaningless
// padding but round-trips byte-exact.
type FreeSpaceBox struct {
	BoxType types.FourCC
	Data    []byte
}

func parseFreeSpaceBox(h Header, s *stream.Segment) (Box, error) {
	b := &FreeSpaceBox{BoxType: h.Type}
	if s.Remaining() > 0 {
		var err error
		if b.Data, err = s.ReadBytes(s.Remaining()); err != nil {
			return nil, fmt.Errorf("failed to read %q payload: %w", h.Type, err)
		}
	}
	return b, nil
}

func (b *FreeSpaceBox) Type() types.FourCC {
	return b.BoxType
}

func (b *FreeSpaceBox) EncodedSize() uint64 {
	n := uint64(len(b.Data))
	return headerSizeFor(n) + n
}

func (b *FreeSpaceBox) Write(w *stream.Writer) error {
	if err := writeHeader(w, b.BoxType, uint64(len(b.Data))); err != nil {
		return err
	}
	return w.Write(b.Data)
}

// UserExtensionBox is a "uuid" box: an opaque payload discriminated by
// a 16-byte user type instead of a FourCC.
type UserExtensionBox struct {
	UserType uuid.UUID
	Data     []byte
}

func parseUserExtensionBox(h Header, s *stream.Segment) (Box, error) {
	if h.UserType == nil {
		return nil, fmt.Errorf("uuid box without user type: %w", types.ErrInvalidData)
	}
	b := &UserExtensionBox{UserType: *h.UserType}
	if s.Remaining() > 0 {
		var err error
		if b.Data, err = s.ReadBytes(s.Remaining()); err != nil {
			return nil, fmt.Errorf("failed to read uuid box payload: %w", err)
		}
	}
	return b, nil
}

func (b *UserExtensionBox) Type() types.FourCC {
	return types.BoxTypeUUID
}

func (b *UserExtensionBox) payloadSize() uint64 {
	// The user type is part of the header, not the payload, but it
	// still counts toward the declared box size.
	return userTypeSize + uint64(len(b.Data))
}

func (b *UserExtensionBox) EncodedSize() uint64 {
	return headerSizeFor(b.payloadSize()) + b.payloadSize()
}

func (b *UserExtensionBox) Write(w *stream.Writer) error {
	if err := writeHeader(w, b.Type(), b.payloadSize()); err != nil {
		return err
	}
	if err := w.Write(b.UserType[:]); err != nil {
		return err
	}
	return w.Write(b.Data)
}

// UnknownBox preserves a box this implementation has no parser for. It
// is retained on read so callers can inspect it, but the file writer
// drops unknown boxes rather than guessing at internal offsets that a
// rewrite would invalidate.
type UnknownBox struct {
	BoxType types.FourCC
	Data    []byte
}

func parseUnknownBox(h Header, s *stream.Segment) (Box, error) {
	b := &UnknownBox{BoxType: h.Type}
	if s.Remaining() > 0 {
		var err error
		if b.Data, err = s.ReadBytes(s.Remaining()); err != nil {
			return nil, fmt.Errorf("failed to read %q payload: %w", h.Type, err)
		}
	}
	return b, nil
}

func (b *UnknownBox) Type() types.FourCC {
	return b.BoxType
}

func (b *UnknownBox) EncodedSize() uint64 {
	n := uint64(len(b.Data))
	return headerSizeFor(n) + n
}

func (b *UnknownBox) Write(w *stream.Writer) error {
	if err := writeHeader(w, b.BoxType, uint64(len(b.Data))); err != nil {
		return err
	}
	return w.Write(b.Data)
}
