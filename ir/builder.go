package ir

// Builder appends functions, blocks and instructions to a module.
// Instructions are emitted at the end of the current block.
type Builder struct {
	module *Module
	types  *TypeRegistry
	fn     FunctionHandle
	blk    BlockHandle
}

// NewBuilder creates a builder for m.
func NewBuilder(m *Module) *Builder {
	return &Builder{
		module: m,
		types:  NewTypeRegistry(m),
		fn:     NoFunction,
		blk:    NoBlock,
	}
}

// Module returns the module under construction.
func (b *Builder) Module() *Module { return b.module }

// Types returns the builder's type registry.
func (b *Builder) Types() *TypeRegistry { return b.types }

// Scalar returns the handle of a scalar type.
func (b *Builder) Scalar(name string, kind ScalarKind, width uint8) TypeHandle {
	return b.types.GetOrCreate(name, ScalarType{Kind: kind, Width: width})
}

// Vector returns the handle of a vector type.
func (b *Builder) Vector(name string, size VectorSize, scalar ScalarType) TypeHandle {
	return b.types.GetOrCreate(name, VectorType{Size: size, Scalar: scalar})
}

// Pointer returns the handle of a pointer type.
func (b *Builder) Pointer(base TypeHandle, space AddressSpace) TypeHandle {
	return b.types.GetOrCreate("", PointerType{Base: base, Space: space})
}

// Image returns the handle of an image type.
func (b *Builder) Image(name string, img ImageType) TypeHandle {
	return b.types.GetOrCreate(name, img)
}

// Struct returns the handle of a struct type.
func (b *Builder) Struct(name string, members ...StructMember) TypeHandle {
	return b.types.GetOrCreate(name, StructType{Members: members})
}

// Array returns the handle of an array type. Size 0 is runtime-sized.
func (b *Builder) Array(base TypeHandle, size uint32) TypeHandle {
	return b.types.GetOrCreate("", ArrayType{Base: base, Size: size})
}

// Bool returns the module's bool type.
func (b *Builder) Bool() TypeHandle {
	return b.module.BoolType()
}

// GlobalVariable declares a module-scope variable. For SpaceHandle the
// variable's value has type typ; otherwise it is a pointer to typ.
func (b *Builder) GlobalVariable(name string, typ TypeHandle, space AddressSpace) InstHandle {
	if space != SpaceHandle {
		typ = b.Pointer(typ, space)
	}
	h := b.module.addInst(InstGlobalVariable{Name: name, Space: space}, typ, NoFunction, NoBlock)
	b.module.Globals = append(b.module.Globals, h)
	return h
}

// Constant declares a module-scope literal.
func (b *Builder) Constant(value LiteralValue, typ TypeHandle) InstHandle {
	if v, ok := value.(LiteralBool); ok {
		return b.module.BoolValue(bool(v))
	}
	h := b.module.addInst(InstConstant{Value: value}, typ, NoFunction, NoBlock)
	b.module.Globals = append(b.module.Globals, h)
	return h
}

// Function starts a new function and makes it current.
func (b *Builder) Function(name string, result TypeHandle) FunctionHandle {
	h := FunctionHandle(len(b.module.Functions))
	b.module.Functions = append(b.module.Functions, Function{
		Name:   name,
		Result: result,
	})
	b.fn = h
	b.blk = NoBlock
	return h
}

// SetFunction makes an existing function current.
func (b *Builder) SetFunction(h FunctionHandle) {
	b.fn = h
	b.blk = NoBlock
}

// Param appends a parameter to the current function.
func (b *Builder) Param(name string, typ TypeHandle) InstHandle {
	fn := b.module.Function(b.fn)
	h := b.module.addInst(InstParam{Name: name, Index: uint32(len(fn.Params))}, typ, b.fn, NoBlock)
	fn.Params = append(fn.Params, h)
	return h
}

// Block appends a block to the current function and makes it current.
func (b *Builder) Block(name string) BlockHandle {
	fn := b.module.Function(b.fn)
	h := BlockHandle(len(fn.Blocks))
	fn.Blocks = append(fn.Blocks, Block{Name: name})
	b.blk = h
	return h
}

// SetBlock makes a block of the current function current.
func (b *Builder) SetBlock(h BlockHandle) {
	b.blk = h
}

// Emit appends an instruction to the current block.
func (b *Builder) Emit(kind InstKind, typ TypeHandle) InstHandle {
	h := b.module.addInst(kind, typ, b.fn, b.blk)
	blk := &b.module.Function(b.fn).Blocks[b.blk]
	blk.Insts = append(blk.Insts, h)
	return h
}

// pointee returns the base type and space of a pointer-typed value.
func (b *Builder) pointee(ptr InstHandle) (TypeHandle, AddressSpace, bool) {
	p, ok := b.module.TypeOf(ptr).(PointerType)
	if !ok {
		return NoType, 0, false
	}
	return p.Base, p.Space, true
}

// LocalVariable allocates function-local storage of type typ.
func (b *Builder) LocalVariable(name string, typ TypeHandle) InstHandle {
	return b.Emit(InstLocalVariable{Name: name}, b.Pointer(typ, SpaceFunction))
}

// Load loads through ptr.
func (b *Builder) Load(ptr InstHandle) InstHandle {
	base, _, ok := b.pointee(ptr)
	if !ok {
		base = NoType
	}
	return b.Emit(InstLoad{Pointer: ptr}, base)
}

// Store stores value through ptr.
func (b *Builder) Store(ptr, value InstHandle) InstHandle {
	return b.Emit(InstStore{Pointer: ptr, Value: value}, NoType)
}

// FieldAddress computes the address of member field of the struct at base.
func (b *Builder) FieldAddress(base InstHandle, field uint32) InstHandle {
	typ := NoType
	if st, space, ok := b.pointee(base); ok {
		if s, ok := b.module.TypeInner(st).(StructType); ok && int(field) < len(s.Members) {
			typ = b.Pointer(s.Members[field].Type, space)
		}
	}
	return b.Emit(InstFieldAddress{Base: base, Field: field}, typ)
}

// ElementAddress computes the address of element index of the array or
// vector at base.
func (b *Builder) ElementAddress(base, index InstHandle) InstHandle {
	typ := NoType
	if at, space, ok := b.pointee(base); ok {
		switch t := b.module.TypeInner(at).(type) {
		case ArrayType:
			typ = b.Pointer(t.Base, space)
		case VectorType:
			typ = b.Pointer(b.types.GetOrCreate("", t.Scalar), space)
		}
	}
	return b.Emit(InstElementAddress{Base: base, Index: index}, typ)
}

// AddressCast reinterprets value as an address of type typ.
func (b *Builder) AddressCast(value InstHandle, typ TypeHandle) InstHandle {
	return b.Emit(InstAddressCast{Value: value}, typ)
}

// ImageSubscript computes the address of the texel at coord in image.
func (b *Builder) ImageSubscript(image, coord InstHandle) InstHandle {
	typ := NoType
	if img, ok := b.module.TypeOf(image).(ImageType); ok {
		typ = b.Pointer(img.Element, SpaceHandle)
	}
	return b.Emit(InstImageSubscript{Image: image, Coordinate: coord}, typ)
}

// IsTextureAccess emits an IsTextureAccess query on addr.
func (b *Builder) IsTextureAccess(addr InstHandle) InstHandle {
	return b.Emit(InstIsTextureAccess{Addr: addr}, b.Bool())
}

// IsTextureArrayAccess emits an IsTextureArrayAccess query on addr.
func (b *Builder) IsTextureArrayAccess(addr InstHandle) InstHandle {
	return b.Emit(InstIsTextureArrayAccess{Addr: addr}, b.Bool())
}

// IsTextureScalarAccess emits an IsTextureScalarAccess query on addr.
func (b *Builder) IsTextureScalarAccess(addr InstHandle) InstHandle {
	return b.Emit(InstIsTextureScalarAccess{Addr: addr}, b.Bool())
}

// Binary applies op to left and right. Comparisons and logical operators
// produce bool; arithmetic takes the type of left.
func (b *Builder) Binary(op BinaryOperator, left, right InstHandle) InstHandle {
	typ := b.Bool()
	switch op {
	case BinaryAdd, BinarySubtract, BinaryMultiply:
		typ = b.module.Inst(left).Type
	}
	return b.Emit(InstBinary{Op: op, Left: left, Right: right}, typ)
}

// Not negates a bool value.
func (b *Builder) Not(value InstHandle) InstHandle {
	return b.Emit(InstNot{Value: value}, b.Bool())
}

// Select picks accept when cond is true, reject otherwise.
func (b *Builder) Select(cond, accept, reject InstHandle) InstHandle {
	return b.Emit(InstSelect{Condition: cond, Accept: accept, Reject: reject}, b.module.Inst(accept).Type)
}

// Call calls fn with args.
func (b *Builder) Call(fn FunctionHandle, args ...InstHandle) InstHandle {
	return b.Emit(InstCall{Function: fn, Arguments: args}, b.module.Function(fn).Result)
}

// Branch ends the current block with a jump to target.
func (b *Builder) Branch(target BlockHandle) InstHandle {
	return b.Emit(InstBranch{Target: target}, NoType)
}

// CondBranch ends the current block with a two-way branch on cond.
func (b *Builder) CondBranch(cond InstHandle, accept, reject BlockHandle) InstHandle {
	return b.Emit(InstCondBranch{Condition: cond, Accept: accept, Reject: reject}, NoType)
}

// Return ends the current block. Pass NoInst for a void return.
func (b *Builder) Return(value InstHandle) InstHandle {
	return b.Emit(InstReturn{Value: value}, NoType)
}

// Unreachable ends the current block with an unreachable marker.
func (b *Builder) Unreachable() InstHandle {
	return b.Emit(InstUnreachable{}, NoType)
}
