package box

import (
	"fmt"

	"github.com/deploymenttheory/go-avif/internal/stream"
	"github.com/deploymenttheory/go-avif/internal/types"
)

// Box is the capability set every variant implements: identify itself,
// report its exact encoded size, and serialize itself. Parsing is done
// by per-type constructors registered in the dispatch table.
type Box interface {
	// Type returns the variant's four-character identity.
	Type() types.FourCC

	// EncodedSize returns the total byte count Write will emit,
	// including the header.
	EncodedSize() uint64

	// Write serializes the box, header first, fields in declaration
	// order.
	Write(w *stream.Writer) error
}

// parseFunc materializes one variant from its header and payload
// segment.
type parseFunc func(h Header, s *stream.Segment) (Box, error)

var parsers map[types.FourCC]parseFunc

// init populates the dispatch table at runtime; a composite literal
// would form an initialization cycle because the parse functions reach
// back through ReadBoxes to consult the table.
func init() {
	parsers = map[types.FourCC]parseFunc{
		types.BoxTypeFtyp: parseFileTypeBox,
		types.BoxTypeMeta: parseMetaBox,
		types.BoxTypeHdlr: parseHandlerBox,
		types.BoxTypePitm: parsePrimaryItemBox,
		types.BoxTypeIinf: parseItemInfoBox,
		types.BoxTypeInfe: parseItemInfoEntry,
		types.BoxTypeIloc: parseItemLocationBox,
		types.BoxTypeIprp: parseItemPropertiesBox,
		types.BoxTypeIpco: parseItemPropertyContainerBox,
		types.BoxTypeIpma: parseItemPropertyAssociationBox,
		types.BoxTypeIref: parseItemReferenceBox,
		types.BoxTypeIspe: parseImageSpatialExtentsBox,
		types.BoxTypePasp: parsePixelAspectRatioBox,
		types.BoxTypePixi: parsePixelInformationBox,
		types.BoxTypeColr: parseColorInformationBox,
		types.BoxTypeAv1C: parseAV1ConfigBox,
		types.BoxTypeIrot: parseImageRotationBox,
		types.BoxTypeImir: parseImageMirrorBox,
		types.BoxTypeAuxC: parseAuxiliaryTypeBox,
		types.BoxTypeIdat: parseItemDataBox,
		types.BoxTypeMdat: parseMediaDataBox,
		types.BoxTypeFree: parseFreeSpaceBox,
		types.BoxTypeSkip: parseFreeSpaceBox,
		types.BoxTypeUUID: parseUserExtensionBox,
	}
}

// ReadBox parses the box at the segment's current position and
// advances the segment past it. Unrecognized types are preserved as
// opaque UnknownBox values so a reader can still see them.
func ReadBox(s *stream.Segment) (Box, error) {
	h, err := ParseHeader(s)
	if err != nil {
		return nil, err
	}
	payload, err := s.Child(h.PayloadStart, h.PayloadLength)
	if err != nil {
		return nil, fmt.Errorf("%q box payload bounds rejected: %w", h.Type, err)
	}

	parse, ok := parsers[h.Type]
	if !ok {
		parse = parseUnknownBox
	}
	b, err := parse(h, payload)
	if err != nil {
		return nil, err
	}
	if err := s.SetPosition(h.Start + h.TotalSize - s.Start()); err != nil {
		return nil, err
	}
	return b, nil
}

// ReadBoxes parses boxes until the segment is exhausted. Recursion
// terminates because every child is strictly bounded by its parent and
// consumes at least its own header.
func ReadBoxes(s *stream.Segment) ([]Box, error) {
	var boxes []Box
	for s.Remaining() > 0 {
		b, err := ReadBox(s)
		if err != nil {
			return nil, err
		}
		boxes = append(boxes, b)
	}
	return boxes, nil
}

// childrenEncodedSize sums the encoded sizes of a container's children.
func childrenEncodedSize(children []Box) uint64 {
	var n uint64
	for _, c := range children {
		n += c.EncodedSize()
	}
	return n
}

// writeChildren serializes a container's children in order.
func writeChildren(w *stream.Writer, children []Box) error {
	for _, c := range children {
		if err := c.Write(w); err != nil {
			return err
		}
	}
	return nil
}
