package box

import (
	"fmt"

	"github.com/deploymenttheory/go-avif/internal/stream"
	"github.com/deploymenttheory/go-avif/internal/types"
)

// ColorInformationBox is the "colr" box. The colour type selects the
// payload: "nclx" carries the CICP triple plus a full-range flag,
// "prof" and "rICC" carry an ICC profile. Profile bytes are stored and
// rewritten byte-exact; interpreting them belongs to the caller.
type ColorInformationBox struct {
	ColorType types.FourCC

	// CICP fields, set when ColorType == "nclx".
	ColorPrimaries          uint16
	TransferCharacteristics uint16
	MatrixCoefficients      uint16
	FullRange               bool

	// ICC profile bytes, set for "prof" and "rICC".
	ICCProfile []byte
}

func parseColorInformationBox(h Header, s *stream.Segment) (Box, error) {
	b := &ColorInformationBox{}
	var err error
	if b.ColorType, err = s.ReadFourCC(); err != nil {
		return nil, fmt.Errorf("failed to read colr type: %w", err)
	}
	switch b.ColorType {
	case types.ColorTypeNclx:
		if b.ColorPrimaries, err = s.ReadUint16(); err != nil {
			return nil, fmt.Errorf("failed to read colr primaries: %w", err)
		}
		if b.TransferCharacteristics, err = s.ReadUint16(); err != nil {
			return nil, fmt.Errorf("failed to read colr transfer characteristics: %w", err)
		}
		if b.MatrixCoefficients, err = s.ReadUint16(); err != nil {
			return nil, fmt.Errorf("failed to read colr matrix coefficients: %w", err)
		}
		rangeByte, err := s.ReadUint8()
		if err != nil {
			return nil, fmt.Errorf("failed to read colr range flag: %w", err)
		}
		b.FullRange = rangeByte&0x80 != 0
	case types.ColorTypeICC, types.ColorTypeRICC:
		if s.Remaining() > 0 {
			if b.ICCProfile, err = s.ReadBytes(s.Remaining()); err != nil {
				return nil, fmt.Errorf("failed to read colr ICC profile: %w", err)
			}
		}
	default:
		return nil, fmt.Errorf("unknown colr colour type %q: %w", b.ColorType, types.ErrInvalidData)
	}
	return b, nil
}

func (b *ColorInformationBox) Type() types.FourCC {
	return types.BoxTypeColr
}

func (b *ColorInformationBox) payloadSize() uint64 {
	if b.ColorType == types.ColorTypeNclx {
		return 4 + 7
	}
	return 4 + uint64(len(b.ICCProfile))
}

func (b *ColorInformationBox) EncodedSize() uint64 {
	return headerSizeFor(b.payloadSize()) + b.payloadSize()
}

func (b *ColorInformationBox) Write(w *stream.Writer) error {
	if err := writeHeader(w, b.Type(), b.payloadSize()); err != nil {
		return err
	}
	if err := w.WriteFourCC(b.ColorType); err != nil {
		return err
	}
	if b.ColorType == types.ColorTypeNclx {
		if err := w.WriteUint16(b.ColorPrimaries); err != nil {
			return err
		}
		if err := w.WriteUint16(b.TransferCharacteristics); err != nil {
			return err
		}
		if err := w.WriteUint16(b.MatrixCoefficients); err != nil {
			return err
		}
		var rangeByte uint8
		if b.FullRange {
			rangeByte = 0x80
		}
		return w.WriteUint8(rangeByte)
	}
	return w.Write(b.ICCProfile)
}
