package box

import (
	"fmt"

	"github.com/deploymenttheory/go-avif/internal/stream"
	"github.com/deploymenttheory/go-avif/internal/types"
)

// ImageSpatialExtentsBox is the "ispe" full box: the coded image
// dimensions in pixels.
type ImageSpatialExtentsBox struct {
	Width  uint32
	Height uint32
}

func parseImageSpatialExtentsBox(h Header, s *stream.Segment) (Box, error) {
	version, _, err := parseFullBoxPrefix(s)
	if err != nil {
		return nil, err
	}
	if version != 0 {
		return nil, unsupportedVersion(h.Type, version)
	}
	b := &ImageSpatialExtentsBox{}
	if b.Width, err = s.ReadUint32(); err != nil {
		return nil, fmt.Errorf("failed to read ispe width: %w", err)
	}
	if b.Height, err = s.ReadUint32(); err != nil {
		return nil, fmt.Errorf("failed to read ispe height: %w", err)
	}
	return b, nil
}

func (b *ImageSpatialExtentsBox) Type() types.FourCC {
	return types.BoxTypeIspe
}

func (b *ImageSpatialExtentsBox) payloadSize() uint64 {
	return fullBoxPrefixSize + 8
}

func (b *ImageSpatialExtentsBox) EncodedSize() uint64 {
	return headerSizeFor(b.payloadSize()) + b.payloadSize()
}

func (b *ImageSpatialExtentsBox) Write(w *stream.Writer) error {
	if err := writeHeader(w, b.Type(), b.payloadSize()); err != nil {
		return err
	}
	if err := writeFullBoxPrefix(w, 0, 0); err != nil {
		return err
	}
	if err := w.WriteUint32(b.Width); err != nil {
		return err
	}
	return w.WriteUint32(b.Height)
}

// PixelAspectRatioBox is the "pasp" box: horizontal and vertical sample
// spacing. Not a full box.
type PixelAspectRatioBox struct {
	HSpacing uint32
	VSpacing uint32
}

func parsePixelAspectRatioBox(h Header, s *stream.Segment) (Box, error) {
	b := &PixelAspectRatioBox{}
	var err error
	if b.HSpacing, err = s.ReadUint32(); err != nil {
		return nil, fmt.Errorf("failed to read pasp hSpacing: %w", err)
	}
	if b.VSpacing, err = s.ReadUint32(); err != nil {
		return nil, fmt.Errorf("failed to read pasp vSpacing: %w", err)
	}
	return b, nil
}

func (b *PixelAspectRatioBox) Type() types.FourCC {
	return types.BoxTypePasp
}

func (b *PixelAspectRatioBox) payloadSize() uint64 {
	return 8
}

func (b *PixelAspectRatioBox) EncodedSize() uint64 {
	return headerSizeFor(b.payloadSize()) + b.payloadSize()
}

func (b *PixelAspectRatioBox) Write(w *stream.Writer) error {
	if err := writeHeader(w, b.Type(), b.payloadSize()); err != nil {
		return err
	}
	if err := w.WriteUint32(b.HSpacing); err != nil {
		return err
	}
	return w.WriteUint32(b.VSpacing)
}

// PixelInformationBox is the "pixi" full box: the bit depth of each
// channel of the coded image.
type PixelInformationBox struct {
	ChannelBitDepths []uint8
}

func parsePixelInformationBox(h Header, s *stream.Segment) (Box, error) {
	version, _, err := parseFullBoxPrefix(s)
	if err != nil {
		return nil, err
	}
	if version != 0 {
		return nil, unsupportedVersion(h.Type, version)
	}
	count, err := s.ReadUint8()
	if err != nil {
		return nil, fmt.Errorf("failed to read pixi channel count: %w", err)
	}
	b := &PixelInformationBox{}
	for i := uint8(0); i < count; i++ {
		depth, err := s.ReadUint8()
		if err != nil {
			return nil, fmt.Errorf("failed to read pixi channel %d depth: %w", i, err)
		}
		b.ChannelBitDepths = append(b.ChannelBitDepths, depth)
	}
	return b, nil
}

func (b *PixelInformationBox) Type() types.FourCC {
	return types.BoxTypePixi
}

func (b *PixelInformationBox) payloadSize() uint64 {
	return fullBoxPrefixSize + 1 + uint64(len(b.ChannelBitDepths))
}

func (b *PixelInformationBox) EncodedSize() uint64 {
	return headerSizeFor(b.payloadSize()) + b.payloadSize()
}

func (b *PixelInformationBox) Write(w *stream.Writer) error {
	if len(b.ChannelBitDepths) > 0xFF {
		return fmt.Errorf("pixi cannot carry %d channels: %w", len(b.ChannelBitDepths), types.ErrInvalidData)
	}
	if err := writeHeader(w, b.Type(), b.payloadSize()); err != nil {
		return err
	}
	if err := writeFullBoxPrefix(w, 0, 0); err != nil {
		return err
	}
	if err := w.WriteUint8(uint8(len(b.ChannelBitDepths))); err != nil {
		return err
	}
	for _, depth := range b.ChannelBitDepths {
		if err := w.WriteUint8(depth); err != nil {
			return err
		}
	}
	return nil
}

// AV1ConfigBox is the "av1C" box: four fixed configuration bytes
// followed by the configOBUs. The payload belongs to the codec and is
// carried byte-exact; the accessors only decode the fixed prefix.
type AV1ConfigBox struct {
	Prefix     [4]byte
	ConfigOBUs []byte
}

func parseAV1ConfigBox(h Header, s *stream.Segment) (Box, error) {
	raw, err := s.ReadBytes(4)
	if err != nil {
		return nil, fmt.Errorf("failed to read av1C configuration prefix: %w", err)
	}
	b := &AV1ConfigBox{}
	copy(b.Prefix[:], raw)
	if b.Prefix[0]&0x80 == 0 {
		return nil, fmt.Errorf("av1C marker bit is clear in byte 0x%02X: %w", b.Prefix[0], types.ErrInvalidData)
	}
	if s.Remaining() > 0 {
		if b.ConfigOBUs, err = s.ReadBytes(s.Remaining()); err != nil {
			return nil, fmt.Errorf("failed to read av1C configOBUs: %w", err)
		}
	}
	return b, nil
}

// SeqProfile returns the declared AV1 sequence profile.
func (b *AV1ConfigBox) SeqProfile() uint8 {
	return b.Prefix[1] >> 5
}

// SeqLevelIdx0 returns the declared level index of the first operating
// point.
func (b *AV1ConfigBox) SeqLevelIdx0() uint8 {
	return b.Prefix[1] & 0x1F
}

// HighBitdepth reports whether the stream uses more than 8 bits per
// sample.
func (b *AV1ConfigBox) HighBitdepth() bool {
	return b.Prefix[2]&0x40 != 0
}

// Monochrome reports whether the stream has no chroma planes.
func (b *AV1ConfigBox) Monochrome() bool {
	return b.Prefix[2]&0x10 != 0
}

func (b *AV1ConfigBox) Type() types.FourCC {
	return types.BoxTypeAv1C
}

func (b *AV1ConfigBox) payloadSize() uint64 {
	return 4 + uint64(len(b.ConfigOBUs))
}

func (b *AV1ConfigBox) EncodedSize() uint64 {
	return headerSizeFor(b.payloadSize()) + b.payloadSize()
}

func (b *AV1ConfigBox) Write(w *stream.Writer) error {
	if err := writeHeader(w, b.Type(), b.payloadSize()); err != nil {
		return err
	}
	if err := w.Write(b.Prefix[:]); err != nil {
		return err
	}
	return w.Write(b.ConfigOBUs)
}

// ImageRotationBox is the "irot" box: counter-clockwise rotation in
// 90-degree steps.
type ImageRotationBox struct {
	Angle uint8 // 0-3
}

func parseImageRotationBox(h Header, s *stream.Segment) (Box, error) {
	v, err := s.ReadUint8()
	if err != nil {
		return nil, fmt.Errorf("failed to read irot angle: %w", err)
	}
	return &ImageRotationBox{Angle: v & 3}, nil
}

func (b *ImageRotationBox) Type() types.FourCC {
	return types.BoxTypeIrot
}

func (b *ImageRotationBox) EncodedSize() uint64 {
	return compactHeaderSize + 1
}

func (b *ImageRotationBox) Write(w *stream.Writer) error {
	if err := writeHeader(w, b.Type(), 1); err != nil {
		return err
	}
	return w.WriteUint8(b.Angle & 3)
}

// ImageMirrorBox is the "imir" box: mirroring axis.
type ImageMirrorBox struct {
	Axis uint8 // 0 vertical, 1 horizontal
}

func parseImageMirrorBox(h Header, s *stream.Segment) (Box, error) {
	v, err := s.ReadUint8()
	if err != nil {
		return nil, fmt.Errorf("failed to read imir axis: %w", err)
	}
	return &ImageMirrorBox{Axis: v & 1}, nil
}

func (b *ImageMirrorBox) Type() types.FourCC {
	return types.BoxTypeImir
}

func (b *ImageMirrorBox) EncodedSize() uint64 {
	return compactHeaderSize + 1
}

func (b *ImageMirrorBox) Write(w *stream.Writer) error {
	if err := writeHeader(w, b.Type(), 1); err != nil {
		return err
	}
	return w.WriteUint8(b.Axis & 1)
}

// AuxiliaryTypeBox is the "auxC" full box identifying what an auxiliary
// image (such as an alpha plane) carries.
type AuxiliaryTypeBox struct {
	AuxType    string
	AuxSubtype []byte
}

func parseAuxiliaryTypeBox(h Header, s *stream.Segment) (Box, error) {
	version, _, err := parseFullBoxPrefix(s)
	if err != nil {
		return nil, err
	}
	if version != 0 {
		return nil, unsupportedVersion(h.Type, version)
	}
	b := &AuxiliaryTypeBox{}
	if b.AuxType, err = s.ReadCString(); err != nil {
		return nil, fmt.Errorf("failed to read auxC type: %w", err)
	}
	if s.Remaining() > 0 {
		if b.AuxSubtype, err = s.ReadBytes(s.Remaining()); err != nil {
			return nil, fmt.Errorf("failed to read auxC subtype: %w", err)
		}
	}
	return b, nil
}

func (b *AuxiliaryTypeBox) Type() types.FourCC {
	return types.BoxTypeAuxC
}

func (b *AuxiliaryTypeBox) payloadSize() uint64 {
	return fullBoxPrefixSize + uint64(len(b.AuxType)) + 1 + uint64(len(b.AuxSubtype))
}

func (b *AuxiliaryTypeBox) EncodedSize() uint64 {
	return headerSizeFor(b.payloadSize()) + b.payloadSize()
}

func (b *AuxiliaryTypeBox) Write(w *stream.Writer) error {
	if err := writeHeader(w, b.Type(), b.payloadSize()); err != nil {
		return err
	}
	if err := writeFullBoxPrefix(w, 0, 0); err != nil {
		return err
	}
	if err := w.WriteCString(b.AuxType); err != nil {
		return err
	}
	return w.Write(b.AuxSubtype)
}
