package ir

import (
	"errors"
	"fmt"
)

// ErrHasUses is returned when removing an instruction that is still consumed.
var ErrHasUses = errors.New("instruction still has uses")

// NewModule creates an empty module.
func NewModule() *Module {
	return &Module{
		Types: make([]Type, 0, 16),
		Insts: make([]Instruction, 0, 64),
	}
}

// AddType appends a type to the module's type arena.
func (m *Module) AddType(name string, inner TypeInner) TypeHandle {
	h := TypeHandle(len(m.Types))
	m.Types = append(m.Types, Type{Name: name, Inner: inner})
	return h
}

// BoolType returns the module's bool type, adding it on first use.
func (m *Module) BoolType() TypeHandle {
	if m.hasBool {
		return m.boolType
	}
	for i, t := range m.Types {
		if s, ok := t.Inner.(ScalarType); ok && s.Kind == ScalarBool {
			m.boolType, m.hasBool = TypeHandle(i), true
			return m.boolType
		}
	}
	m.boolType = m.AddType("bool", ScalarType{Kind: ScalarBool, Width: 1})
	m.hasBool = true
	return m.boolType
}

// BoolValue returns the canonical module-scope constant for v.
// Every request for the same value yields the same handle.
func (m *Module) BoolValue(v bool) InstHandle {
	idx := 0
	if v {
		idx = 1
	}
	if m.boolSet[idx] && m.Inst(m.boolValues[idx]) != nil {
		return m.boolValues[idx]
	}
	h := m.addInst(InstConstant{Value: LiteralBool(v)}, m.BoolType(), NoFunction, NoBlock)
	m.Globals = append(m.Globals, h)
	m.boolValues[idx], m.boolSet[idx] = h, true
	return h
}

// addInst appends an instruction to the arena and records operand uses.
func (m *Module) addInst(kind InstKind, typ TypeHandle, fn FunctionHandle, blk BlockHandle) InstHandle {
	h := InstHandle(len(m.Insts))
	m.Insts = append(m.Insts, Instruction{
		Kind:  kind,
		Type:  typ,
		Func:  fn,
		Block: blk,
	})
	for _, op := range Operands(kind) {
		if used := m.Inst(op); used != nil {
			used.uses = append(used.uses, h)
		}
	}
	return h
}

// SetKind replaces an instruction's kind, keeping use-lists consistent.
func (m *Module) SetKind(h InstHandle, kind InstKind) {
	inst := m.Inst(h)
	if inst == nil {
		return
	}
	for _, op := range Operands(inst.Kind) {
		m.dropUse(op, h)
	}
	inst.Kind = kind
	for _, op := range Operands(kind) {
		if used := m.Inst(op); used != nil {
			used.uses = append(used.uses, h)
		}
	}
}

// ReplaceAllUsesWith rewrites every operand referencing old to reference
// replacement instead. Afterwards old has no uses.
func (m *Module) ReplaceAllUsesWith(old, replacement InstHandle) {
	src := m.Inst(old)
	if src == nil || old == replacement {
		return
	}
	dst := m.Inst(replacement)

	users := src.uses
	src.uses = nil

	seen := make(map[InstHandle]struct{}, len(users))
	for _, u := range users {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}

		user := m.Inst(u)
		if user == nil {
			continue
		}
		user.Kind = mapOperands(user.Kind, func(op InstHandle) InstHandle {
			if op != old {
				return op
			}
			if dst != nil {
				dst.uses = append(dst.uses, u)
			}
			return replacement
		})
	}
}

// RemoveInst deletes an instruction. The instruction must have no uses.
// Its slot in the owning block is tombstoned, so positions of the other
// instructions in the block do not move until Compact.
func (m *Module) RemoveInst(h InstHandle) error {
	inst := m.Inst(h)
	if inst == nil {
		return fmt.Errorf("instruction %d: not found", h)
	}
	if inst.HasUses() {
		return fmt.Errorf("instruction %d (%s): %w", h, inst.Op(), ErrHasUses)
	}
	m.unlink(h)
	return nil
}

// unlink drops an instruction's operand uses and tombstones it.
func (m *Module) unlink(h InstHandle) {
	inst := &m.Insts[h]
	for _, op := range Operands(inst.Kind) {
		m.dropUse(op, h)
	}

	if fn := m.Function(inst.Func); fn != nil && int(inst.Block) < len(fn.Blocks) {
		blk := &fn.Blocks[inst.Block]
		for i, ih := range blk.Insts {
			if ih == h {
				blk.Insts[i] = NoInst
				break
			}
		}
	} else {
		for i, gh := range m.Globals {
			if gh == h {
				m.Globals = append(m.Globals[:i], m.Globals[i+1:]...)
				break
			}
		}
	}

	inst.uses = nil
	inst.removed = true
}

// dropUse removes one use record of user from the instruction op.
func (m *Module) dropUse(op, user InstHandle) {
	used := m.Inst(op)
	if used == nil {
		return
	}
	for i, u := range used.uses {
		if u == user {
			used.uses = append(used.uses[:i], used.uses[i+1:]...)
			return
		}
	}
}

// RemoveBlock deletes a block and every instruction in it.
// Values defined in the block must not be used outside it.
func (m *Module) RemoveBlock(fh FunctionHandle, bh BlockHandle) {
	fn := m.Function(fh)
	if fn == nil || int(bh) >= len(fn.Blocks) || fn.Blocks[bh].Removed {
		return
	}
	blk := &fn.Blocks[bh]
	for _, h := range blk.Insts {
		if h == NoInst {
			continue
		}
		m.Insts[h].uses = nil
	}
	for _, h := range blk.Insts {
		if h == NoInst {
			continue
		}
		m.unlink(h)
	}
	blk.Insts = nil
	blk.Removed = true
}

// Compact drops tombstoned instruction slots from every block of fn.
func (m *Module) Compact(fh FunctionHandle) {
	fn := m.Function(fh)
	if fn == nil {
		return
	}
	for i := range fn.Blocks {
		fn.Blocks[i].Compact()
	}
}

// EntryBlock returns the first live block of a function.
func (f *Function) EntryBlock() BlockHandle {
	for i := range f.Blocks {
		if !f.Blocks[i].Removed {
			return BlockHandle(i)
		}
	}
	return NoBlock
}
