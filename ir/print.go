package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Print renders a module as deterministic text.
//
// Example:
//
//	fn sample() {
//	b0 entry:
//	  %5 = image_subscript %1, %4 : ptr<handle, f32>
//	  %6 = is_texture_access %5 : bool
//	  cond_br %6, b1, b2
//	}
func Print(m *Module) string {
	var sb strings.Builder
	for _, h := range m.Globals {
		inst := m.Inst(h)
		if inst == nil {
			continue
		}
		writeInst(&sb, m, h, inst)
	}
	for i := range m.Functions {
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(PrintFunction(m, FunctionHandle(i)))
	}
	return sb.String()
}

// PrintFunction renders one function as text.
func PrintFunction(m *Module, fh FunctionHandle) string {
	fn := m.Function(fh)
	if fn == nil {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("fn ")
	sb.WriteString(fn.Name)
	sb.WriteByte('(')
	for i, p := range fn.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%%%d: %s", p, TypeName(m, m.Insts[p].Type))
	}
	sb.WriteByte(')')
	if fn.Result != NoType {
		sb.WriteString(" -> ")
		sb.WriteString(TypeName(m, fn.Result))
	}
	sb.WriteString(" {\n")

	for bi := range fn.Blocks {
		blk := &fn.Blocks[bi]
		if blk.Removed {
			continue
		}
		fmt.Fprintf(&sb, "b%d %s:\n", bi, blk.Name)
		for _, h := range blk.Insts {
			inst := m.Inst(h)
			if inst == nil {
				continue
			}
			sb.WriteString("  ")
			writeInst(&sb, m, h, inst)
		}
	}
	sb.WriteString("}\n")
	return sb.String()
}

func writeInst(sb *strings.Builder, m *Module, h InstHandle, inst *Instruction) {
	if inst.Type != NoType {
		fmt.Fprintf(sb, "%%%d = ", h)
	}
	sb.WriteString(inst.Op().String())

	var args []string
	switch k := inst.Kind.(type) {
	case InstConstant:
		args = append(args, literalString(k.Value))
	case InstGlobalVariable:
		args = append(args, k.Name)
	case InstLocalVariable:
		if k.Name != "" {
			args = append(args, k.Name)
		}
	case InstFieldAddress:
		args = append(args, valueName(k.Base), strconv.FormatUint(uint64(k.Field), 10))
	case InstBinary:
		args = append(args, binaryNames[k.Op], valueName(k.Left), valueName(k.Right))
	case InstCall:
		callee := "?"
		if fn := m.Function(k.Function); fn != nil {
			callee = fn.Name
		}
		args = append(args, callee)
		for _, a := range k.Arguments {
			args = append(args, valueName(a))
		}
	case InstBranch:
		args = append(args, blockName(k.Target))
	case InstCondBranch:
		args = append(args, valueName(k.Condition), blockName(k.Accept), blockName(k.Reject))
	default:
		for _, op := range Operands(inst.Kind) {
			args = append(args, valueName(op))
		}
	}
	if len(args) > 0 {
		sb.WriteByte(' ')
		sb.WriteString(strings.Join(args, ", "))
	}

	if inst.Type != NoType {
		sb.WriteString(" : ")
		sb.WriteString(TypeName(m, inst.Type))
	}
	sb.WriteByte('\n')
}

var binaryNames = [...]string{
	BinaryAdd:        "add",
	BinarySubtract:   "sub",
	BinaryMultiply:   "mul",
	BinaryEqual:      "eq",
	BinaryNotEqual:   "ne",
	BinaryLess:       "lt",
	BinaryLogicalAnd: "and",
	BinaryLogicalOr:  "or",
}

func valueName(h InstHandle) string {
	if h == NoInst {
		return "<none>"
	}
	return "%" + strconv.FormatUint(uint64(h), 10)
}

func blockName(h BlockHandle) string {
	return "b" + strconv.FormatUint(uint64(h), 10)
}

func literalString(v LiteralValue) string {
	switch l := v.(type) {
	case LiteralBool:
		return strconv.FormatBool(bool(l))
	case LiteralU32:
		return strconv.FormatUint(uint64(l), 10) + "u"
	case LiteralI32:
		return strconv.FormatInt(int64(l), 10) + "i"
	case LiteralF32:
		return strconv.FormatFloat(float64(l), 'g', -1, 32) + "f"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// TypeName renders a type handle in WGSL-like notation.
func TypeName(m *Module, h TypeHandle) string {
	if h == NoType {
		return "void"
	}
	if int(h) >= len(m.Types) {
		return fmt.Sprintf("<type %d>", h)
	}
	t := m.Types[h]
	if t.Name != "" {
		return t.Name
	}

	switch inner := t.Inner.(type) {
	case ScalarType:
		return scalarName(inner)
	case VectorType:
		return fmt.Sprintf("vec%d<%s>", inner.Size, scalarName(inner.Scalar))
	case ArrayType:
		if inner.Size == 0 {
			return fmt.Sprintf("array<%s>", TypeName(m, inner.Base))
		}
		return fmt.Sprintf("array<%s, %d>", TypeName(m, inner.Base), inner.Size)
	case StructType:
		return fmt.Sprintf("struct#%d", h)
	case PointerType:
		return fmt.Sprintf("ptr<%s, %s>", spaceNames[inner.Space], TypeName(m, inner.Base))
	case ImageType:
		return imageName(m, inner)
	default:
		return fmt.Sprintf("%T", inner)
	}
}

var spaceNames = [...]string{
	SpaceFunction:  "function",
	SpacePrivate:   "private",
	SpaceWorkGroup: "workgroup",
	SpaceUniform:   "uniform",
	SpaceStorage:   "storage",
	SpaceHandle:    "handle",
}

func scalarName(s ScalarType) string {
	switch s.Kind {
	case ScalarBool:
		return "bool"
	case ScalarSint:
		return "i" + strconv.Itoa(int(s.Width)*8)
	case ScalarUint:
		return "u" + strconv.Itoa(int(s.Width)*8)
	default:
		return "f" + strconv.Itoa(int(s.Width)*8)
	}
}

func imageName(m *Module, img ImageType) string {
	var sb strings.Builder
	switch img.Class {
	case ImageClassDepth:
		sb.WriteString("texture_depth")
	case ImageClassStorage:
		sb.WriteString("texture_storage")
	default:
		sb.WriteString("texture")
	}
	if img.Multisampled {
		sb.WriteString("_multisampled")
	}
	switch img.Dim {
	case Dim1D:
		sb.WriteString("_1d")
	case Dim2D:
		sb.WriteString("_2d")
	case Dim3D:
		sb.WriteString("_3d")
	case DimCube:
		sb.WriteString("_cube")
	}
	if img.Arrayed {
		sb.WriteString("_array")
	}
	sb.WriteByte('<')
	sb.WriteString(TypeName(m, img.Element))
	sb.WriteByte('>')
	return sb.String()
}
