// Package types implements the primitive data structures of the ISO Base
// Media File Format container as used by AVIF/HEIF still images.
// This package is based on ISO/IEC 14496-12 and the AVIF specification 1.0.
package types

import "fmt"

// FourCC is a four-character box or brand identifier.
type FourCC [4]byte

// FourCCFromString builds a FourCC from a 4-character string.
func FourCCFromString(s string) (FourCC, error) {
	if len(s) != 4 {
		return FourCC{}, fmt.Errorf("four-character code must be 4 bytes, got %d: %w", len(s), ErrInvalidData)
	}
	return FourCC{s[0], s[1], s[2], s[3]}, nil
}

func (f FourCC) String() string {
	return string(f[:])
}

// IsZero reports whether all four bytes are zero. A zero type in a box
// header means the header itself is garbage.
func (f FourCC) IsZero() bool {
	return f == FourCC{}
}

// Box types defined by ISO/IEC 14496-12 and HEIF/AVIF.
var (
	BoxTypeFtyp = FourCC{'f', 't', 'y', 'p'}
	BoxTypeMeta = FourCC{'m', 'e', 't', 'a'}
	BoxTypeHdlr = FourCC{'h', 'd', 'l', 'r'}
	BoxTypePitm = FourCC{'p', 'i', 't', 'm'}
	BoxTypeIinf = FourCC{'i', 'i', 'n', 'f'}
	BoxTypeInfe = FourCC{'i', 'n', 'f', 'e'}
	BoxTypeIloc = FourCC{'i', 'l', 'o', 'c'}
	BoxTypeIprp = FourCC{'i', 'p', 'r', 'p'}
	BoxTypeIpco = FourCC{'i', 'p', 'c', 'o'}
	BoxTypeIpma = FourCC{'i', 'p', 'm', 'a'}
	BoxTypeIref = FourCC{'i', 'r', 'e', 'f'}
	BoxTypeIspe = FourCC{'i', 's', 'p', 'e'}
	BoxTypePasp = FourCC{'p', 'a', 's', 'p'}
	BoxTypePixi = FourCC{'p', 'i', 'x', 'i'}
	BoxTypeColr = FourCC{'c', 'o', 'l', 'r'}
	BoxTypeAv1C = FourCC{'a', 'v', '1', 'C'}
	BoxTypeIrot = FourCC{'i', 'r', 'o', 't'}
	BoxTypeImir = FourCC{'i', 'm', 'i', 'r'}
	BoxTypeAuxC = FourCC{'a', 'u', 'x', 'C'}
	BoxTypeIdat = FourCC{'i', 'd', 'a', 't'}
	BoxTypeMdat = FourCC{'m', 'd', 'a', 't'}
	BoxTypeFree = FourCC{'f', 'r', 'e', 'e'}
	BoxTypeSkip = FourCC{'s', 'k', 'i', 'p'}
	BoxTypeUUID = FourCC{'u', 'u', 'i', 'd'}
)

// Brands carried in the ftyp box.
var (
	BrandAvif = FourCC{'a', 'v', 'i', 'f'}
	BrandMif1 = FourCC{'m', 'i', 'f', '1'}
	BrandMiaf = FourCC{'m', 'i', 'a', 'f'}
)

// Item and handler types.
var (
	ItemTypeAv01   = FourCC{'a', 'v', '0', '1'}
	ItemTypeMime   = FourCC{'m', 'i', 'm', 'e'}
	ItemTypeURI    = FourCC{'u', 'r', 'i', ' '}
	HandlerPict    = FourCC{'p', 'i', 'c', 't'}
	ColorTypeICC   = FourCC{'p', 'r', 'o', 'f'}
	ColorTypeRICC  = FourCC{'r', 'I', 'C', 'C'}
	ColorTypeNclx  = FourCC{'n', 'c', 'l', 'x'}
	ReferenceDimg  = FourCC{'d', 'i', 'm', 'g'}
	ReferenceThmb  = FourCC{'t', 'h', 'm', 'b'}
	ReferenceAuxl  = FourCC{'a', 'u', 'x', 'l'}
	ReferenceCdsc  = FourCC{'c', 'd', 's', 'c'}
)

// Extent is one contiguous byte range of an item's payload, relative to
// the construction base declared by the item location box.
type Extent struct {
	Offset uint64
	Length uint64
}

// Construction methods defined by the item location box. Method 0
// addresses the file itself, method 1 the idat box payload.
const (
	ConstructionFileOffset uint8 = 0
	ConstructionIdatOffset uint8 = 1
	ConstructionItemOffset uint8 = 2
)
