// Package legalize resolves texture capability queries to boolean literals.
//
// Earlier lowering inserts IsTextureAccess, IsTextureArrayAccess and
// IsTextureScalarAccess queries wherever code depends on how an address is
// ultimately accessed. IsTextureAccess traces each queried address back to its
// root, inspects the image type of the texel access found there, substitutes
// the answer for every use of the query and deletes it.
//
// A query that resolves to false usually turns a branch condition into a
// constant, so every function with at least one false answer is handed to a
// CFG simplifier afterwards.
package legalize

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/tools/container/intsets"

	"github.com/gogpu/texlegal/ir"
)

// Result summarizes a legalization run.
type Result struct {
	// Resolved is the number of queries replaced.
	Resolved int
	// True and False count the answers.
	True  int
	False int
	// Simplified lists the functions with a false answer, in handle order.
	// These are the functions handed to the simplifier.
	Simplified []ir.FunctionHandle
}

// ContractError reports a query whose address operand does not name a live
// instruction. It indicates a bug in the pass that built the query.
type ContractError struct {
	Function string
	Inst     ir.InstHandle
	Query    ir.QueryKind
	Address  ir.InstHandle
}

// Error implements the error interface.
func (e *ContractError) Error() string {
	return fmt.Sprintf("in function %s, instruction %d: %s operand %d is not a live instruction",
		e.Function, e.Inst, e.Query, e.Address)
}

// IsTextureAccess resolves every texture capability query in m.
//
// Each query's uses are replaced with m.BoolValue of its answer and the query
// is removed. Afterwards the module contains no query instructions. Functions
// with a false answer are simplified with opts.Simplifier, once each.
//
// If any query is malformed the module is left untouched and a
// *ContractError is returned.
func IsTextureAccess(m *ir.Module, opts Options) (Result, error) {
	var res Result
	if m == nil {
		return res, errors.New("module is nil")
	}
	if err := checkQueries(m); err != nil {
		return res, err
	}

	log := opts.logger()
	var cleanup intsets.Sparse

	for fi := range m.Functions {
		fh := ir.FunctionHandle(fi)
		fn := &m.Functions[fi]
		for bi := range fn.Blocks {
			blk := &fn.Blocks[bi]
			// Removal tombstones the current slot; later slots do not move.
			for i, next := 0, 0; i < len(blk.Insts); i = next {
				next = i + 1
				h := blk.Insts[i]
				inst := m.Inst(h)
				if inst == nil {
					continue
				}
				q, ok := inst.Kind.(ir.CapabilityQuery)
				if !ok {
					continue
				}

				value := Classify(m, q)
				m.ReplaceAllUsesWith(h, m.BoolValue(value))
				if err := m.RemoveInst(h); err != nil {
					return res, fmt.Errorf("function %s: remove %s: %w", fn.Name, q.Query(), err)
				}

				res.Resolved++
				if value {
					res.True++
				} else {
					res.False++
					cleanup.Insert(fi)
				}
				log.Debug("resolved texture query",
					zap.String("function", fn.Name),
					zap.Uint32("inst", uint32(h)),
					zap.Stringer("query", q.Query()),
					zap.Bool("value", value))
			}
		}
		m.Compact(fh)
	}

	for _, fi := range cleanup.AppendTo(nil) {
		fh := ir.FunctionHandle(fi)
		res.Simplified = append(res.Simplified, fh)
		if opts.Simplifier == nil {
			continue
		}
		stats := opts.Simplifier.Simplify(m, fh, opts.CFG)
		log.Debug("simplified function",
			zap.String("function", m.Functions[fi].Name),
			zap.Int("folded_branches", stats.FoldedBranches),
			zap.Int("removed_blocks", stats.RemovedBlocks))
	}

	log.Info("legalized texture queries",
		zap.Int("resolved", res.Resolved),
		zap.Int("true", res.True),
		zap.Int("false", res.False),
		zap.Int("simplified", len(res.Simplified)))
	return res, nil
}

// checkQueries verifies every query's address operand before anything is
// mutated.
func checkQueries(m *ir.Module) error {
	for fi := range m.Functions {
		fn := &m.Functions[fi]
		for bi := range fn.Blocks {
			for _, h := range fn.Blocks[bi].Insts {
				inst := m.Inst(h)
				if inst == nil {
					continue
				}
				q, ok := inst.Kind.(ir.CapabilityQuery)
				if !ok {
					continue
				}
				if m.Inst(q.Address()) == nil {
					return &ContractError{
						Function: fn.Name,
						Inst:     h,
						Query:    q.Query(),
						Address:  q.Address(),
					}
				}
			}
		}
	}
	return nil
}
