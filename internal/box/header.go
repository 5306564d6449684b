// Package box implements the ISO Base Media File Format box tree as
// used by AVIF still images: the uniform size/type header envelope, the
// catalog of box variants with their field layouts, and the dispatch
// that materializes a tree from untrusted bytes and serializes it back
// byte-for-byte.
package box

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/deploymenttheory/go-avif/internal/stream"
	"github.com/deploymenttheory/go-avif/internal/types"
)

const (
	compactHeaderSize  = 8
	extendedHeaderSize = 16
	userTypeSize       = 16
)

// Header is the envelope every box starts with: a 32-bit size and a
// four-character type, optionally followed by a 64-bit extended size
// (size == 1) and a 16-byte user type (type == "uuid").
type Header struct {
	Type     types.FourCC
	UserType *uuid.UUID

	// Start is the absolute offset of the size field; PayloadStart and
	// PayloadLength delimit the bytes after the full header. TotalSize
	// includes the header itself.
	Start         uint64
	TotalSize     uint64
	PayloadStart  uint64
	PayloadLength uint64

	// ToEnd records the size == 0 sentinel: the box runs to the end of
	// its container.
	ToEnd bool
}

// HeaderSize returns the encoded length of the header itself.
func (h Header) HeaderSize() uint64 {
	return h.PayloadStart - h.Start
}

// ParseHeader reads one box header at the segment's current position.
// The declared bounds are validated against the parent segment before
// any payload is touched; a child claiming to extend past its parent is
// a hard parse error.
func ParseHeader(s *stream.Segment) (Header, error) {
	h := Header{Start: s.Start() + s.Position()}

	size32, err := s.ReadUint32()
	if err != nil {
		return Header{}, fmt.Errorf("failed to read box size: %w", err)
	}
	h.Type, err = s.ReadFourCC()
	if err != nil {
		return Header{}, fmt.Errorf("failed to read box type: %w", err)
	}
	if h.Type.IsZero() {
		return Header{}, fmt.Errorf("box at offset %d has a zero type: %w", h.Start, types.ErrInvalidData)
	}

	headerSize := uint64(compactHeaderSize)
	switch size32 {
	case 0:
		h.ToEnd = true
	case 1:
		size64, err := s.ReadUint64()
		if err != nil {
			return Header{}, fmt.Errorf("failed to read %q extended size: %w", h.Type, err)
		}
		h.TotalSize = size64
		headerSize += 8
	default:
		h.TotalSize = uint64(size32)
	}

	if h.Type == types.BoxTypeUUID {
		raw, err := s.ReadBytes(userTypeSize)
		if err != nil {
			return Header{}, fmt.Errorf("failed to read %q user type: %w", h.Type, err)
		}
		ut, err := uuid.FromBytes(raw)
		if err != nil {
			return Header{}, fmt.Errorf("malformed user type in %q box: %w", h.Type, types.ErrInvalidData)
		}
		h.UserType = &ut
		headerSize += userTypeSize
	}

	parentEnd := s.Start() + s.Length()
	if h.ToEnd {
		h.TotalSize = parentEnd - h.Start
	}
	if h.TotalSize < headerSize {
		return Header{}, fmt.Errorf("%q box size %d smaller than its %d-byte header: %w", h.Type, h.TotalSize, headerSize, types.ErrInvalidData)
	}
	if h.TotalSize > parentEnd-h.Start {
		return Header{}, fmt.Errorf("%q box of %d bytes at %d crosses container end %d: %w", h.Type, h.TotalSize, h.Start, parentEnd, types.ErrInvalidData)
	}

	h.PayloadStart = h.Start + headerSize
	h.PayloadLength = h.TotalSize - headerSize
	return h, nil
}

// headerSizeFor returns the header length needed for a payload: the
// compact 32-bit form when the total fits, the extended form otherwise.
func headerSizeFor(payloadSize uint64) uint64 {
	if payloadSize+compactHeaderSize > math.MaxUint32 {
		return extendedHeaderSize
	}
	return compactHeaderSize
}

// writeHeader emits the header for a box whose payload is payloadSize
// bytes, choosing the compact or extended form to match headerSizeFor.
func writeHeader(w *stream.Writer, typ types.FourCC, payloadSize uint64) error {
	if headerSizeFor(payloadSize) == extendedHeaderSize {
		if err := w.WriteUint32(1); err != nil {
			return err
		}
		if err := w.WriteFourCC(typ); err != nil {
			return err
		}
		return w.WriteUint64(payloadSize + extendedHeaderSize)
	}
	if err := w.WriteUint32(uint32(payloadSize + compactHeaderSize)); err != nil {
		return err
	}
	return w.WriteFourCC(typ)
}

// fullBoxPrefixSize is the packed version+flags field every full box
// payload starts with.
const fullBoxPrefixSize = 4

// parseFullBoxPrefix reads the version byte and 24-bit flags.
func parseFullBoxPrefix(s *stream.Segment) (version uint8, flags uint32, err error) {
	vf, err := s.ReadUint32()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read full box version: %w", err)
	}
	return uint8(vf >> 24), vf & 0x00FFFFFF, nil
}

// writeFullBoxPrefix emits the packed version+flags field.
func writeFullBoxPrefix(w *stream.Writer, version uint8, flags uint32) error {
	return w.WriteUint32(uint32(version)<<24 | flags&0x00FFFFFF)
}

// unsupportedVersion builds the terminal error for a full box version
// this implementation does not understand. Versions are rejected, not
// skipped; a newer layout cannot be safely guessed at.
func unsupportedVersion(typ types.FourCC, version uint8) error {
	return fmt.Errorf("unsupported %q box version %d: %w", typ, version, types.ErrInvalidData)
}
