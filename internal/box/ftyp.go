package box

import (
	"fmt"

	"github.com/deploymenttheory/go-avif/internal/stream"
	"github.com/deploymenttheory/go-avif/internal/types"
)

// FileTypeBox is the "ftyp" box: the major brand, its minor version,
// and the list of compatible brands. It is always the first box in the
// file.
type FileTypeBox struct {
	MajorBrand       types.FourCC
	MinorVersion     uint32
	CompatibleBrands []types.FourCC
}

func parseFileTypeBox(h Header, s *stream.Segment) (Box, error) {
	b := &FileTypeBox{}
	var err error
	if b.MajorBrand, err = s.ReadFourCC(); err != nil {
		return nil, fmt.Errorf("failed to read ftyp major brand: %w", err)
	}
	if b.MinorVersion, err = s.ReadUint32(); err != nil {
		return nil, fmt.Errorf("failed to read ftyp minor version: %w", err)
	}
	if s.Remaining()%4 != 0 {
		return nil, fmt.Errorf("ftyp brand list of %d bytes is not 4-byte aligned: %w", s.Remaining(), types.ErrInvalidData)
	}
	for s.Remaining() > 0 {
		brand, err := s.ReadFourCC()
		if err != nil {
			return nil, fmt.Errorf("failed to read ftyp compatible brand: %w", err)
		}
		b.CompatibleBrands = append(b.CompatibleBrands, brand)
	}
	return b, nil
}

// HasCompatibleBrand reports whether brand appears in the compatible
// brand list.
func (b *FileTypeBox) HasCompatibleBrand(brand types.FourCC) bool {
	for _, c := range b.CompatibleBrands {
		if c == brand {
			return true
		}
	}
	return false
}

func (b *FileTypeBox) Type() types.FourCC {
	return types.BoxTypeFtyp
}

func (b *FileTypeBox) payloadSize() uint64 {
	return 8 + 4*uint64(len(b.CompatibleBrands))
}

func (b *FileTypeBox) EncodedSize() uint64 {
	return headerSizeFor(b.payloadSize()) + b.payloadSize()
}

func (b *FileTypeBox) Write(w *stream.Writer) error {
	if err := writeHeader(w, b.Type(), b.payloadSize()); err != nil {
		return err
	}
	if err := w.WriteFourCC(b.MajorBrand); err != nil {
		return err
	}
	if err := w.WriteUint32(b.MinorVersion); err != nil {
		return err
	}
	for _, brand := range b.CompatibleBrands {
		if err := w.WriteFourCC(brand); err != nil {
			return err
		}
	}
	return nil
}
