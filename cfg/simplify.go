// Package cfg simplifies the control-flow graph of IR functions.
//
// Simplification folds branches on constant conditions, prunes blocks that
// are no longer reachable from the entry block, and merges straight-line
// block chains. Fast mode performs one local sweep; full mode repeats until
// nothing changes and also drops unused side-effect-free instructions.
package cfg

import (
	"go.uber.org/zap"
	"golang.org/x/tools/container/intsets"

	"github.com/gogpu/texlegal/ir"
)

// Mode selects how much work Simplify does.
type Mode uint8

const (
	// ModeFull iterates to a fixed point and removes dead instructions.
	ModeFull Mode = iota
	// ModeFast performs a single local folding sweep.
	ModeFast
)

func (m Mode) String() string {
	if m == ModeFast {
		return "fast"
	}
	return "full"
}

// Options configures simplification.
type Options struct {
	Mode Mode
}

// DefaultOptions returns options for a full simplification.
func DefaultOptions() Options {
	return Options{Mode: ModeFull}
}

// FastOptions returns options for local folding only.
func FastOptions() Options {
	return Options{Mode: ModeFast}
}

// Stats reports what a simplification changed.
type Stats struct {
	FoldedBranches int
	RemovedBlocks  int
	MergedBlocks   int
	RemovedInsts   int
}

// Changed reports whether anything was simplified.
func (s Stats) Changed() bool {
	return s.FoldedBranches+s.RemovedBlocks+s.MergedBlocks+s.RemovedInsts > 0
}

func (s *Stats) add(o Stats) {
	s.FoldedBranches += o.FoldedBranches
	s.RemovedBlocks += o.RemovedBlocks
	s.MergedBlocks += o.MergedBlocks
	s.RemovedInsts += o.RemovedInsts
}

// Simplifier is the default CFG simplifier.
type Simplifier struct{}

// Simplify simplifies function fh of m in place.
func (Simplifier) Simplify(m *ir.Module, fh ir.FunctionHandle, opts Options) Stats {
	return Simplify(m, fh, opts)
}

// Simplify simplifies function fh of m in place.
func Simplify(m *ir.Module, fh ir.FunctionHandle, opts Options) Stats {
	var total Stats
	fn := m.Function(fh)
	if fn == nil || fn.EntryBlock() == ir.NoBlock {
		return total
	}

	for {
		s := sweep(m, fh)
		if opts.Mode == ModeFull {
			s.RemovedInsts += removeDeadInsts(m, fh)
		}
		total.add(s)
		if opts.Mode == ModeFast || !s.Changed() {
			break
		}
	}
	m.Compact(fh)

	Logger().Debug("simplified cfg",
		zap.String("function", fn.Name),
		zap.Stringer("mode", opts.Mode),
		zap.Int("folded_branches", total.FoldedBranches),
		zap.Int("removed_blocks", total.RemovedBlocks),
		zap.Int("merged_blocks", total.MergedBlocks),
		zap.Int("removed_insts", total.RemovedInsts))
	return total
}

func sweep(m *ir.Module, fh ir.FunctionHandle) Stats {
	var s Stats
	s.FoldedBranches = foldBranches(m, fh)
	s.RemovedBlocks = removeUnreachable(m, fh)
	s.MergedBlocks = mergeBlocks(m, fh)
	return s
}

// foldBranches turns conditional branches with a constant condition or two
// identical targets into unconditional branches.
func foldBranches(m *ir.Module, fh ir.FunctionHandle) int {
	fn := m.Function(fh)
	folded := 0
	for bi := range fn.Blocks {
		blk := &fn.Blocks[bi]
		if blk.Removed {
			continue
		}
		th := blk.Terminator()
		term := m.Inst(th)
		if term == nil {
			continue
		}
		br, ok := term.Kind.(ir.InstCondBranch)
		if !ok {
			continue
		}

		target := ir.NoBlock
		if br.Accept == br.Reject {
			target = br.Accept
		} else if v, ok := constBool(m, br.Condition); ok {
			target = br.Reject
			if v {
				target = br.Accept
			}
		}
		if target == ir.NoBlock {
			continue
		}
		m.SetKind(th, ir.InstBranch{Target: target})
		folded++
	}
	return folded
}

func constBool(m *ir.Module, h ir.InstHandle) (bool, bool) {
	inst := m.Inst(h)
	if inst == nil {
		return false, false
	}
	c, ok := inst.Kind.(ir.InstConstant)
	if !ok {
		return false, false
	}
	v, ok := c.Value.(ir.LiteralBool)
	return bool(v), ok
}

// reachable returns the set of blocks reachable from the entry block.
func reachable(m *ir.Module, fn *ir.Function) *intsets.Sparse {
	var seen intsets.Sparse
	entry := fn.EntryBlock()
	if entry == ir.NoBlock {
		return &seen
	}

	stack := []ir.BlockHandle{entry}
	seen.Insert(int(entry))
	for len(stack) > 0 {
		bh := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		term := m.Inst(fn.Blocks[bh].Terminator())
		if term == nil {
			continue
		}
		for _, succ := range ir.Successors(term.Kind) {
			if int(succ) >= len(fn.Blocks) || fn.Blocks[succ].Removed {
				continue
			}
			if seen.Insert(int(succ)) {
				stack = append(stack, succ)
			}
		}
	}
	return &seen
}

func removeUnreachable(m *ir.Module, fh ir.FunctionHandle) int {
	fn := m.Function(fh)
	live := reachable(m, fn)
	removed := 0
	for bi := range fn.Blocks {
		if fn.Blocks[bi].Removed || live.Has(bi) {
			continue
		}
		m.RemoveBlock(fh, ir.BlockHandle(bi))
		removed++
	}
	return removed
}

// predecessors counts incoming edges per block.
func predecessors(m *ir.Module, fn *ir.Function) map[ir.BlockHandle][]ir.BlockHandle {
	preds := make(map[ir.BlockHandle][]ir.BlockHandle, len(fn.Blocks))
	for bi := range fn.Blocks {
		if fn.Blocks[bi].Removed {
			continue
		}
		term := m.Inst(fn.Blocks[bi].Terminator())
		if term == nil {
			continue
		}
		for _, succ := range ir.Successors(term.Kind) {
			preds[succ] = append(preds[succ], ir.BlockHandle(bi))
		}
	}
	return preds
}

// mergeBlocks appends a block to its single predecessor when that
// predecessor jumps unconditionally to it.
func mergeBlocks(m *ir.Module, fh ir.FunctionHandle) int {
	fn := m.Function(fh)
	entry := fn.EntryBlock()
	merged := 0

	for changed := true; changed; {
		changed = false
		preds := predecessors(m, fn)
		for bi := range fn.Blocks {
			bh := ir.BlockHandle(bi)
			if bh == entry || fn.Blocks[bi].Removed || len(preds[bh]) != 1 {
				continue
			}
			ph := preds[bh][0]
			if ph == bh {
				continue
			}
			pred := &fn.Blocks[ph]
			th := pred.Terminator()
			term := m.Inst(th)
			if term == nil {
				continue
			}
			if _, ok := term.Kind.(ir.InstBranch); !ok {
				continue
			}

			if err := m.RemoveInst(th); err != nil {
				continue
			}
			pred.Compact()
			for _, h := range fn.Blocks[bi].Insts {
				if h == ir.NoInst {
					continue
				}
				m.Insts[h].Block = ph
				pred.Insts = append(pred.Insts, h)
			}
			fn.Blocks[bi].Insts = nil
			fn.Blocks[bi].Removed = true
			merged++
			changed = true
			break
		}
	}
	return merged
}

func isPure(kind ir.InstKind) bool {
	switch kind.(type) {
	case ir.InstLoad, ir.InstLocalVariable, ir.InstFieldAddress, ir.InstElementAddress,
		ir.InstAddressCast, ir.InstImageSubscript, ir.InstBinary, ir.InstNot, ir.InstSelect:
		return true
	}
	return false
}

// removeDeadInsts drops unused side-effect-free instructions until none remain.
// Local variables are only dropped when nothing loads or stores through them.
func removeDeadInsts(m *ir.Module, fh ir.FunctionHandle) int {
	fn := m.Function(fh)
	removed := 0
	for changed := true; changed; {
		changed = false
		for bi := range fn.Blocks {
			if fn.Blocks[bi].Removed {
				continue
			}
			for _, h := range fn.Blocks[bi].Insts {
				inst := m.Inst(h)
				if inst == nil || inst.HasUses() || !isPure(inst.Kind) {
					continue
				}
				if m.RemoveInst(h) == nil {
					removed++
					changed = true
				}
			}
		}
	}
	return removed
}
