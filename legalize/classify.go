package legalize

import (
	"fmt"

	"github.com/gogpu/texlegal/ir"
)

// TextureAccess returns the image subscript that the query's address
// ultimately refers to, or nil if the address does not resolve to one.
func TextureAccess(m *ir.Module, q ir.CapabilityQuery) *ir.InstImageSubscript {
	root, ok := ir.RootAddress(m, q.Address())
	if !ok {
		return nil
	}
	access, ok := m.Inst(root).Kind.(ir.InstImageSubscript)
	if !ok {
		return nil
	}
	return &access
}

// Classify computes the boolean answer of a capability query.
//
// An address that does not resolve to an image subscript answers false for
// every query kind. The array and scalar queries also answer false when the
// subscript's image operand does not carry an image type.
func Classify(m *ir.Module, q ir.CapabilityQuery) bool {
	access := TextureAccess(m, q)

	switch q.Query() {
	case ir.QueryTextureAccess:
		return access != nil
	case ir.QueryTextureArrayAccess:
		img, ok := imageType(m, access)
		return ok && img.Arrayed
	case ir.QueryTextureScalarAccess:
		img, ok := imageType(m, access)
		if !ok {
			return false
		}
		_, isVector := m.TypeInner(img.Element).(ir.VectorType)
		return !isVector
	default:
		panic(fmt.Sprintf("legalize: unhandled capability query %s", q.Query()))
	}
}

func imageType(m *ir.Module, access *ir.InstImageSubscript) (ir.ImageType, bool) {
	if access == nil {
		return ir.ImageType{}, false
	}
	img, ok := m.TypeOf(access.Image).(ir.ImageType)
	return img, ok
}
