package ir

// Instruction represents an instruction in the IR.
// Every instruction produces at most one SSA value, referenced by its handle.
type Instruction struct {
	Kind InstKind
	Type TypeHandle // NoType for instructions without a result

	// Func and Block locate the instruction. Both are invalid sentinels for
	// module-scope instructions.
	Func  FunctionHandle
	Block BlockHandle

	uses    []InstHandle // one entry per operand slot referencing this instruction
	removed bool
}

// Op returns the opcode of the instruction.
func (i *Instruction) Op() Opcode {
	return i.Kind.op()
}

// Uses returns the handles of the instructions that consume this one.
// A user appears once per operand slot that references this instruction.
func (i *Instruction) Uses() []InstHandle {
	return i.uses
}

// HasUses reports whether any instruction consumes this one.
func (i *Instruction) HasUses() bool {
	return len(i.uses) > 0
}

// Opcode enumerates instruction kinds.
type Opcode uint8

const (
	OpConstant Opcode = iota
	OpGlobalVariable
	OpParam
	OpLocalVariable
	OpLoad
	OpStore
	OpFieldAddress
	OpElementAddress
	OpAddressCast
	OpImageSubscript
	OpIsTextureAccess
	OpIsTextureArrayAccess
	OpIsTextureScalarAccess
	OpBinary
	OpNot
	OpSelect
	OpCall
	OpBranch
	OpCondBranch
	OpReturn
	OpUnreachable
)

var opcodeNames = [...]string{
	OpConstant:              "constant",
	OpGlobalVariable:        "global_var",
	OpParam:                 "param",
	OpLocalVariable:         "var",
	OpLoad:                  "load",
	OpStore:                 "store",
	OpFieldAddress:          "field_addr",
	OpElementAddress:        "element_addr",
	OpAddressCast:           "addr_cast",
	OpImageSubscript:        "image_subscript",
	OpIsTextureAccess:       "is_texture_access",
	OpIsTextureArrayAccess:  "is_texture_array_access",
	OpIsTextureScalarAccess: "is_texture_scalar_access",
	OpBinary:                "binary",
	OpNot:                   "not",
	OpSelect:                "select",
	OpCall:                  "call",
	OpBranch:                "br",
	OpCondBranch:            "cond_br",
	OpReturn:                "ret",
	OpUnreachable:           "unreachable",
}

func (o Opcode) String() string {
	if int(o) < len(opcodeNames) {
		return opcodeNames[o]
	}
	return "unknown"
}

// IsTerminator reports whether the opcode ends a basic block.
func (o Opcode) IsTerminator() bool {
	switch o {
	case OpBranch, OpCondBranch, OpReturn, OpUnreachable:
		return true
	}
	return false
}

// InstKind represents the different kinds of instructions.
// Each variant carries its own operand layout.
type InstKind interface {
	instKind()
	op() Opcode
}

// InstConstant is a module-scope literal value.
type InstConstant struct {
	Value LiteralValue
}

func (InstConstant) instKind() {}
func (InstConstant) op() Opcode { return OpConstant }

// LiteralValue represents the value of a constant.
type LiteralValue interface {
	literalValue()
}

// LiteralBool represents a boolean literal.
type LiteralBool bool

func (LiteralBool) literalValue() {}

// LiteralU32 represents a 32-bit unsigned integer literal.
type LiteralU32 uint32

func (LiteralU32) literalValue() {}

// LiteralI32 represents a 32-bit signed integer literal.
type LiteralI32 int32

func (LiteralI32) literalValue() {}

// LiteralF32 represents a 32-bit float literal.
type LiteralF32 float32

func (LiteralF32) literalValue() {}

// InstGlobalVariable declares a module-scope variable.
// For the handle address space its value is the resource itself
// (textures, samplers); otherwise it is a pointer.
type InstGlobalVariable struct {
	Name  string
	Space AddressSpace
}

func (InstGlobalVariable) instKind() {}
func (InstGlobalVariable) op() Opcode { return OpGlobalVariable }

// InstParam is a function parameter.
type InstParam struct {
	Name  string
	Index uint32
}

func (InstParam) instKind() {}
func (InstParam) op() Opcode { return OpParam }

// InstLocalVariable allocates function-local storage and produces its address.
type InstLocalVariable struct {
	Name string
}

func (InstLocalVariable) instKind() {}
func (InstLocalVariable) op() Opcode { return OpLocalVariable }

// InstLoad loads a value through a pointer.
type InstLoad struct {
	Pointer InstHandle
}

func (InstLoad) instKind() {}
func (InstLoad) op() Opcode { return OpLoad }

// InstStore stores a value through a pointer.
type InstStore struct {
	Pointer InstHandle
	Value   InstHandle
}

func (InstStore) instKind() {}
func (InstStore) op() Opcode { return OpStore }

// InstFieldAddress computes the address of a struct member.
type InstFieldAddress struct {
	Base  InstHandle
	Field uint32
}

func (InstFieldAddress) instKind() {}
func (InstFieldAddress) op() Opcode { return OpFieldAddress }

// InstElementAddress computes the address of an array or vector element.
type InstElementAddress struct {
	Base  InstHandle
	Index InstHandle
}

func (InstElementAddress) instKind() {}
func (InstElementAddress) op() Opcode { return OpElementAddress }

// InstAddressCast reinterprets an address without moving it.
type InstAddressCast struct {
	Value InstHandle
}

func (InstAddressCast) instKind() {}
func (InstAddressCast) op() Opcode { return OpAddressCast }

// InstImageSubscript computes the address of a texel within an image.
// Image must have an ImageType.
type InstImageSubscript struct {
	Image      InstHandle
	Coordinate InstHandle
}

func (InstImageSubscript) instKind() {}
func (InstImageSubscript) op() Opcode { return OpImageSubscript }

// QueryKind enumerates the texture capability queries.
type QueryKind uint8

const (
	QueryTextureAccess QueryKind = iota
	QueryTextureArrayAccess
	QueryTextureScalarAccess
)

func (q QueryKind) String() string {
	switch q {
	case QueryTextureAccess:
		return "IsTextureAccess"
	case QueryTextureArrayAccess:
		return "IsTextureArrayAccess"
	case QueryTextureScalarAccess:
		return "IsTextureScalarAccess"
	}
	return "unknown"
}

// CapabilityQuery is implemented by the instructions that ask a static
// question about how an address is ultimately accessed. A query has exactly
// one operand and a bool result.
type CapabilityQuery interface {
	InstKind
	Query() QueryKind
	Address() InstHandle
}

// InstIsTextureAccess asks whether Addr ultimately addresses a texel.
type InstIsTextureAccess struct {
	Addr InstHandle
}

func (InstIsTextureAccess) instKind()             {}
func (InstIsTextureAccess) op() Opcode            { return OpIsTextureAccess }
func (InstIsTextureAccess) Query() QueryKind      { return QueryTextureAccess }
func (q InstIsTextureAccess) Address() InstHandle { return q.Addr }

// InstIsTextureArrayAccess asks whether Addr addresses a texel of an arrayed image.
type InstIsTextureArrayAccess struct {
	Addr InstHandle
}

func (InstIsTextureArrayAccess) instKind()             {}
func (InstIsTextureArrayAccess) op() Opcode            { return OpIsTextureArrayAccess }
func (InstIsTextureArrayAccess) Query() QueryKind      { return QueryTextureArrayAccess }
func (q InstIsTextureArrayAccess) Address() InstHandle { return q.Addr }

// InstIsTextureScalarAccess asks whether Addr addresses a texel of an image
// with a scalar element type.
type InstIsTextureScalarAccess struct {
	Addr InstHandle
}

func (InstIsTextureScalarAccess) instKind()             {}
func (InstIsTextureScalarAccess) op() Opcode            { return OpIsTextureScalarAccess }
func (InstIsTextureScalarAccess) Query() QueryKind      { return QueryTextureScalarAccess }
func (q InstIsTextureScalarAccess) Address() InstHandle { return q.Addr }

// InstBinary applies a binary operator to two values.
type InstBinary struct {
	Op    BinaryOperator
	Left  InstHandle
	Right InstHandle
}

func (InstBinary) instKind() {}
func (InstBinary) op() Opcode { return OpBinary }

// BinaryOperator represents binary operations.
type BinaryOperator uint8

const (
	BinaryAdd BinaryOperator = iota
	BinarySubtract
	BinaryMultiply
	BinaryEqual
	BinaryNotEqual
	BinaryLess
	BinaryLogicalAnd
	BinaryLogicalOr
)

// InstNot is logical negation.
type InstNot struct {
	Value InstHandle
}

func (InstNot) instKind() {}
func (InstNot) op() Opcode { return OpNot }

// InstSelect selects between two values based on a boolean condition.
type InstSelect struct {
	Condition InstHandle
	Accept    InstHandle
	Reject    InstHandle
}

func (InstSelect) instKind() {}
func (InstSelect) op() Opcode { return OpSelect }

// InstCall calls a function of the same module.
type InstCall struct {
	Function  FunctionHandle
	Arguments []InstHandle
}

func (InstCall) instKind() {}
func (InstCall) op() Opcode { return OpCall }

// InstBranch jumps unconditionally to Target.
type InstBranch struct {
	Target BlockHandle
}

func (InstBranch) instKind() {}
func (InstBranch) op() Opcode { return OpBranch }

// InstCondBranch jumps to Accept when Condition is true, to Reject otherwise.
type InstCondBranch struct {
	Condition InstHandle
	Accept    BlockHandle
	Reject    BlockHandle
}

func (InstCondBranch) instKind() {}
func (InstCondBranch) op() Opcode { return OpCondBranch }

// InstReturn returns from the function. Value is NoInst for void returns.
type InstReturn struct {
	Value InstHandle
}

func (InstReturn) instKind() {}
func (InstReturn) op() Opcode { return OpReturn }

// InstUnreachable marks a point control flow never reaches.
type InstUnreachable struct{}

func (InstUnreachable) instKind() {}
func (InstUnreachable) op() Opcode { return OpUnreachable }

// Operands returns the value operands of an instruction kind in layout order.
// NoInst operands (void return) are omitted.
//
//nolint:gocyclo,cyclop // one case per instruction kind
func Operands(kind InstKind) []InstHandle {
	switch k := kind.(type) {
	case InstConstant, InstGlobalVariable, InstParam, InstLocalVariable,
		InstBranch, InstUnreachable:
		return nil
	case InstLoad:
		return []InstHandle{k.Pointer}
	case InstStore:
		return []InstHandle{k.Pointer, k.Value}
	case InstFieldAddress:
		return []InstHandle{k.Base}
	case InstElementAddress:
		return []InstHandle{k.Base, k.Index}
	case InstAddressCast:
		return []InstHandle{k.Value}
	case InstImageSubscript:
		return []InstHandle{k.Image, k.Coordinate}
	case CapabilityQuery:
		return []InstHandle{k.Address()}
	case InstBinary:
		return []InstHandle{k.Left, k.Right}
	case InstNot:
		return []InstHandle{k.Value}
	case InstSelect:
		return []InstHandle{k.Condition, k.Accept, k.Reject}
	case InstCall:
		return append([]InstHandle(nil), k.Arguments...)
	case InstCondBranch:
		return []InstHandle{k.Condition}
	case InstReturn:
		if k.Value == NoInst {
			return nil
		}
		return []InstHandle{k.Value}
	default:
		return nil
	}
}

// mapOperands returns a copy of kind with every value operand passed through f.
//
//nolint:gocyclo,cyclop // one case per instruction kind
func mapOperands(kind InstKind, f func(InstHandle) InstHandle) InstKind {
	switch k := kind.(type) {
	case InstLoad:
		k.Pointer = f(k.Pointer)
		return k
	case InstStore:
		k.Pointer = f(k.Pointer)
		k.Value = f(k.Value)
		return k
	case InstFieldAddress:
		k.Base = f(k.Base)
		return k
	case InstElementAddress:
		k.Base = f(k.Base)
		k.Index = f(k.Index)
		return k
	case InstAddressCast:
		k.Value = f(k.Value)
		return k
	case InstImageSubscript:
		k.Image = f(k.Image)
		k.Coordinate = f(k.Coordinate)
		return k
	case InstIsTextureAccess:
		k.Addr = f(k.Addr)
		return k
	case InstIsTextureArrayAccess:
		k.Addr = f(k.Addr)
		return k
	case InstIsTextureScalarAccess:
		k.Addr = f(k.Addr)
		return k
	case InstBinary:
		k.Left = f(k.Left)
		k.Right = f(k.Right)
		return k
	case InstNot:
		k.Value = f(k.Value)
		return k
	case InstSelect:
		k.Condition = f(k.Condition)
		k.Accept = f(k.Accept)
		k.Reject = f(k.Reject)
		return k
	case InstCall:
		args := make([]InstHandle, len(k.Arguments))
		for i, a := range k.Arguments {
			args[i] = f(a)
		}
		k.Arguments = args
		return k
	case InstCondBranch:
		k.Condition = f(k.Condition)
		return k
	case InstReturn:
		if k.Value != NoInst {
			k.Value = f(k.Value)
		}
		return k
	default:
		return kind
	}
}

// Successors returns the blocks a terminator may transfer control to.
func Successors(kind InstKind) []BlockHandle {
	switch k := kind.(type) {
	case InstBranch:
		return []BlockHandle{k.Target}
	case InstCondBranch:
		if k.Accept == k.Reject {
			return []BlockHandle{k.Accept}
		}
		return []BlockHandle{k.Accept, k.Reject}
	default:
		return nil
	}
}
