package ir

// Module represents a shader module in IR form.
type Module struct {
	// Types holds all type definitions
	Types []Type

	// Insts is the instruction arena. Handles index into it.
	Insts []Instruction

	// Globals holds module-scope instructions (global variables, constants)
	Globals []InstHandle

	// Functions holds all function definitions
	Functions []Function

	boolValues [2]InstHandle
	boolSet    [2]bool
	boolType   TypeHandle
	hasBool    bool
}

// Handle types for referencing IR objects
type (
	TypeHandle     uint32
	InstHandle     uint32
	BlockHandle    uint32
	FunctionHandle uint32
)

// Invalid handle sentinels.
const (
	NoType     TypeHandle     = ^TypeHandle(0)
	NoInst     InstHandle     = ^InstHandle(0)
	NoBlock    BlockHandle    = ^BlockHandle(0)
	NoFunction FunctionHandle = ^FunctionHandle(0)
)

// Type represents a type in the IR.
type Type struct {
	Name  string
	Inner TypeInner
}

// TypeInner represents the inner type kind.
type TypeInner interface {
	typeInner()
}

// ScalarType represents scalar types.
type ScalarType struct {
	Kind  ScalarKind
	Width uint8 // in bytes
}

func (ScalarType) typeInner() {}

// ScalarKind represents scalar type kinds.
type ScalarKind uint8

const (
	ScalarSint  ScalarKind = iota // Signed integer
	ScalarUint                    // Unsigned integer
	ScalarFloat                   // Floating point
	ScalarBool                    // Boolean
)

// VectorType represents vector types.
type VectorType struct {
	Size   VectorSize
	Scalar ScalarType
}

func (VectorType) typeInner() {}

// VectorSize represents vector sizes.
type VectorSize uint8

const (
	Vec2 VectorSize = 2
	Vec3 VectorSize = 3
	Vec4 VectorSize = 4
)

// ArrayType represents array types.
type ArrayType struct {
	Base TypeHandle
	Size uint32 // 0 for runtime-sized arrays
}

func (ArrayType) typeInner() {}

// StructType represents struct types.
type StructType struct {
	Members []StructMember
}

func (StructType) typeInner() {}

// StructMember represents a struct member.
type StructMember struct {
	Name string
	Type TypeHandle
}

// PointerType represents pointer (address) types.
type PointerType struct {
	Base  TypeHandle
	Space AddressSpace
}

func (PointerType) typeInner() {}

// AddressSpace represents memory address spaces.
type AddressSpace uint8

const (
	SpaceFunction AddressSpace = iota
	SpacePrivate
	SpaceWorkGroup
	SpaceUniform
	SpaceStorage
	SpaceHandle
)

// ImageType represents image/texture types.
type ImageType struct {
	Dim          ImageDimension
	Arrayed      bool
	Class        ImageClass
	Multisampled bool
	// Element is the texel type: a scalar or a vector of scalars.
	Element TypeHandle
}

func (ImageType) typeInner() {}

// ImageDimension represents image dimensions.
type ImageDimension uint8

const (
	Dim1D ImageDimension = iota
	Dim2D
	Dim3D
	DimCube
)

// ImageClass represents image classification.
type ImageClass uint8

const (
	ImageClassSampled ImageClass = iota
	ImageClassDepth
	ImageClassStorage
)

// Function represents a function definition.
type Function struct {
	Name   string
	Params []InstHandle
	Result TypeHandle // NoType for functions without a result
	Blocks []Block
}

// Block is a basic block: an ordered list of instruction handles ending in a
// terminator. Removed instructions leave NoInst in their slot until Compact.
type Block struct {
	Name    string
	Insts   []InstHandle
	Removed bool
}

// Compact drops the tombstoned slots of removed instructions.
func (b *Block) Compact() {
	out := b.Insts[:0]
	for _, h := range b.Insts {
		if h != NoInst {
			out = append(out, h)
		}
	}
	clear(b.Insts[len(out):])
	b.Insts = out
}

// Terminator returns the block's last live instruction.
func (b *Block) Terminator() InstHandle {
	for i := len(b.Insts) - 1; i >= 0; i-- {
		if b.Insts[i] != NoInst {
			return b.Insts[i]
		}
	}
	return NoInst
}

// Inst returns the instruction for a handle, or nil when the handle is out of
// range or the instruction was removed.
func (m *Module) Inst(h InstHandle) *Instruction {
	if int(h) >= len(m.Insts) {
		return nil
	}
	inst := &m.Insts[h]
	if inst.removed {
		return nil
	}
	return inst
}

// Function returns the function for a handle, or nil when out of range.
func (m *Module) Function(h FunctionHandle) *Function {
	if int(h) >= len(m.Functions) {
		return nil
	}
	return &m.Functions[h]
}

// TypeInner returns the inner type for a handle, or nil when out of range.
func (m *Module) TypeInner(h TypeHandle) TypeInner {
	if int(h) >= len(m.Types) {
		return nil
	}
	return m.Types[h].Inner
}

// TypeOf returns the inner result type of an instruction, or nil.
func (m *Module) TypeOf(h InstHandle) TypeInner {
	inst := m.Inst(h)
	if inst == nil {
		return nil
	}
	return m.TypeInner(inst.Type)
}
