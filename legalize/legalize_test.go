package legalize

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/gogpu/texlegal/cfg"
	"github.com/gogpu/texlegal/ir"
)

// recordingSimplifier records the functions it is asked to simplify.
type recordingSimplifier struct {
	calls []ir.FunctionHandle
	opts  []cfg.Options
}

func (r *recordingSimplifier) Simplify(_ *ir.Module, fn ir.FunctionHandle, opts cfg.Options) cfg.Stats {
	r.calls = append(r.calls, fn)
	r.opts = append(r.opts, opts)
	return cfg.Stats{}
}

func recordingOptions() (Options, *recordingSimplifier) {
	rec := &recordingSimplifier{}
	opts := DefaultOptions()
	opts.Simplifier = rec
	return opts, rec
}

// countQueries returns the number of live capability queries in m.
func countQueries(m *ir.Module) int {
	n := 0
	for fi := range m.Functions {
		for _, blk := range m.Functions[fi].Blocks {
			for _, h := range blk.Insts {
				if inst := m.Inst(h); inst != nil {
					if _, ok := inst.Kind.(ir.CapabilityQuery); ok {
						n++
					}
				}
			}
		}
	}
	return n
}

// checkUses fails when a live instruction has an operand that is not live or
// whose use-list does not record it.
func checkUses(t *testing.T, m *ir.Module) {
	t.Helper()
	for h := range m.Insts {
		inst := m.Inst(ir.InstHandle(h))
		if inst == nil {
			continue
		}
		for _, op := range ir.Operands(inst.Kind) {
			used := m.Inst(op)
			if used == nil {
				t.Errorf("instruction %d (%s) references dead operand %d", h, inst.Op(), op)
				continue
			}
			found := false
			for _, u := range used.Uses() {
				if u == ir.InstHandle(h) {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("operand %d does not record use by %d", op, h)
			}
		}
	}
}

func condition(t *testing.T, m *ir.Module, h ir.InstHandle) ir.InstHandle {
	t.Helper()
	switch k := m.Inst(h).Kind.(type) {
	case ir.InstCondBranch:
		return k.Condition
	case ir.InstSelect:
		return k.Condition
	case ir.InstNot:
		return k.Value
	default:
		t.Fatalf("instruction %d has no condition: %T", h, k)
		return ir.NoInst
	}
}

// Scenario A: non-array scalar texture with IsTextureAccess and
// IsTextureArrayAccess queries.
func TestIsTextureAccess_ScalarTexture(t *testing.T) {
	sb := newShaderBuilder()
	tex := sb.texture("tex", false, sb.f32)
	one := sb.Constant(ir.LiteralU32(1), sb.u32)
	zero := sb.Constant(ir.LiteralU32(0), sb.u32)

	fh := sb.Function("F", sb.u32)
	entry := sb.Block("entry")
	array := sb.Block("array")
	flat := sb.Block("flat")

	sb.SetBlock(entry)
	addr := sb.ImageSubscript(tex, sb.coord)
	isTex := sb.IsTextureAccess(addr)
	isArray := sb.IsTextureArrayAccess(addr)
	sel := sb.Select(isTex, one, zero)
	br := sb.CondBranch(isArray, array, flat)
	sb.SetBlock(array)
	sb.Return(zero)
	sb.SetBlock(flat)
	sb.Return(sel)

	opts, rec := recordingOptions()
	res, err := IsTextureAccess(sb.m, opts)
	if err != nil {
		t.Fatalf("IsTextureAccess() error = %v", err)
	}

	if got := condition(t, sb.m, sel); got != sb.m.BoolValue(true) {
		t.Errorf("IsTextureAccess resolved to %d, want true literal %d", got, sb.m.BoolValue(true))
	}
	if got := condition(t, sb.m, br); got != sb.m.BoolValue(false) {
		t.Errorf("IsTextureArrayAccess resolved to %d, want false literal %d", got, sb.m.BoolValue(false))
	}
	if sb.m.Inst(isTex) != nil || sb.m.Inst(isArray) != nil {
		t.Error("queries still present after legalization")
	}
	if res.Resolved != 2 || res.True != 1 || res.False != 1 {
		t.Errorf("result = %+v, want 2 resolved, 1 true, 1 false", res)
	}
	if len(rec.calls) != 1 || rec.calls[0] != fh {
		t.Errorf("simplifier calls = %v, want [%d]", rec.calls, fh)
	}
	if rec.opts[0].Mode != cfg.ModeFast {
		t.Errorf("simplifier mode = %s, want fast", rec.opts[0].Mode)
	}
	checkUses(t, sb.m)
}

// Scenario B: two indirection layers over an arrayed texture.
func TestIsTextureAccess_ArrayedThroughIndirections(t *testing.T) {
	sb := newShaderBuilder()
	tex := sb.texture("tex", true, sb.vec4)

	sb.Function("F", ir.NoType)
	sb.Block("entry")
	texel := sb.ImageSubscript(tex, sb.coord)
	cast := sb.AddressCast(texel, sb.Pointer(sb.vec4, ir.SpaceStorage))
	elem := sb.ElementAddress(cast, sb.index)
	isTex := sb.IsTextureAccess(elem)
	isArray := sb.IsTextureArrayAccess(elem)
	both := sb.Binary(ir.BinaryLogicalAnd, isTex, isArray)
	sb.Return(ir.NoInst)

	opts, rec := recordingOptions()
	res, err := IsTextureAccess(sb.m, opts)
	if err != nil {
		t.Fatalf("IsTextureAccess() error = %v", err)
	}

	bin := sb.m.Inst(both).Kind.(ir.InstBinary)
	lit := sb.m.BoolValue(true)
	if bin.Left != lit || bin.Right != lit {
		t.Errorf("operands = %d, %d, want both %d", bin.Left, bin.Right, lit)
	}
	if res.True != 2 || res.False != 0 {
		t.Errorf("result = %+v, want 2 true", res)
	}
	if len(rec.calls) != 0 || len(res.Simplified) != 0 {
		t.Errorf("function scheduled for cleanup: calls %v, result %v", rec.calls, res.Simplified)
	}
	checkUses(t, sb.m)
}

// Scenario C: an address unrelated to any image.
func TestIsTextureAccess_UnrelatedAddress(t *testing.T) {
	sb := newShaderBuilder()
	s := sb.Struct("Light", ir.StructMember{Name: "color", Type: sb.vec4})
	light := sb.GlobalVariable("light", s, ir.SpaceUniform)

	fh := sb.Function("F", ir.NoType)
	sb.Block("entry")
	color := sb.FieldAddress(light, 0)
	q1 := sb.IsTextureAccess(color)
	q2 := sb.IsTextureArrayAccess(color)
	q3 := sb.IsTextureScalarAccess(color)
	n1 := sb.Not(q1)
	n2 := sb.Not(q2)
	n3 := sb.Not(q3)
	sb.Return(ir.NoInst)

	opts, rec := recordingOptions()
	res, err := IsTextureAccess(sb.m, opts)
	if err != nil {
		t.Fatalf("IsTextureAccess() error = %v", err)
	}

	lit := sb.m.BoolValue(false)
	for _, n := range []ir.InstHandle{n1, n2, n3} {
		if got := condition(t, sb.m, n); got != lit {
			t.Errorf("not %d operand = %d, want false literal %d", n, got, lit)
		}
	}
	if res.False != 3 {
		t.Errorf("result = %+v, want 3 false", res)
	}
	if len(rec.calls) != 1 || rec.calls[0] != fh {
		t.Errorf("simplifier calls = %v, want exactly [%d]", rec.calls, fh)
	}
	checkUses(t, sb.m)
}

func TestIsTextureAccess_CleanupSet(t *testing.T) {
	sb := newShaderBuilder()
	tex := sb.texture("tex", false, sb.vec4)
	arr := sb.texture("arr", true, sb.f32)

	// no queries at all
	sb.Function("plain", ir.NoType)
	sb.Block("entry")
	sb.Return(ir.NoInst)

	// only true answers
	sb.Function("all_true", ir.NoType)
	sb.Block("entry")
	a := sb.ImageSubscript(arr, sb.coord)
	sb.Not(sb.IsTextureArrayAccess(a))
	sb.Not(sb.IsTextureScalarAccess(a))
	sb.Return(ir.NoInst)

	// several false answers spread over blocks
	mixed := sb.Function("mixed", ir.NoType)
	first := sb.Block("first")
	second := sb.Block("second")
	sb.SetBlock(first)
	v := sb.ImageSubscript(tex, sb.coord)
	sb.Not(sb.IsTextureArrayAccess(v))
	sb.Branch(second)
	sb.SetBlock(second)
	sb.Not(sb.IsTextureScalarAccess(v))
	sb.Not(sb.IsTextureAccess(v))
	sb.Return(ir.NoInst)

	// one false answer
	lone := sb.Function("lone", ir.NoType)
	sb.Block("entry")
	x := sb.LocalVariable("x", sb.f32)
	sb.Not(sb.IsTextureAccess(x))
	sb.Return(ir.NoInst)

	opts, rec := recordingOptions()
	res, err := IsTextureAccess(sb.m, opts)
	if err != nil {
		t.Fatalf("IsTextureAccess() error = %v", err)
	}

	want := []ir.FunctionHandle{mixed, lone}
	if len(rec.calls) != len(want) {
		t.Fatalf("simplifier calls = %v, want %v", rec.calls, want)
	}
	for i := range want {
		if rec.calls[i] != want[i] || res.Simplified[i] != want[i] {
			t.Errorf("call %d = %d (result %d), want %d", i, rec.calls[i], res.Simplified[i], want[i])
		}
	}
	if res.Resolved != 6 || res.True != 3 || res.False != 3 {
		t.Errorf("result = %+v, want 6 resolved, 3 true, 3 false", res)
	}
}

func TestIsTextureAccess_ExhaustiveAndIdempotent(t *testing.T) {
	sb := newShaderBuilder()
	tex := sb.texture("tex", true, sb.f32)

	sb.Function("F", ir.NoType)
	sb.Block("entry")
	addr := sb.ImageSubscript(tex, sb.coord)
	// queries used several times and one used by nothing
	q := sb.IsTextureAccess(addr)
	sb.Select(q, q, sb.IsTextureScalarAccess(addr))
	sb.IsTextureArrayAccess(sb.LocalVariable("y", sb.f32))
	sb.Return(ir.NoInst)

	opts, _ := recordingOptions()
	if _, err := IsTextureAccess(sb.m, opts); err != nil {
		t.Fatalf("IsTextureAccess() error = %v", err)
	}
	if n := countQueries(sb.m); n != 0 {
		t.Fatalf("%d queries remain", n)
	}
	checkUses(t, sb.m)

	before := ir.Print(sb.m)
	opts, rec := recordingOptions()
	res, err := IsTextureAccess(sb.m, opts)
	if err != nil {
		t.Fatalf("second IsTextureAccess() error = %v", err)
	}
	if res.Resolved != 0 || len(rec.calls) != 0 {
		t.Errorf("second run = %+v, simplifier calls %v; want no-op", res, rec.calls)
	}
	if after := ir.Print(sb.m); after != before {
		t.Errorf("second run changed the module:\nbefore:\n%s\nafter:\n%s", before, after)
	}
}

func TestIsTextureAccess_Deterministic(t *testing.T) {
	build := func() *ir.Module {
		sb := newShaderBuilder()
		tex := sb.texture("tex", false, sb.vec4)
		for _, name := range []string{"a", "b", "c"} {
			sb.Function(name, ir.NoType)
			sb.Block("entry")
			addr := sb.ImageSubscript(tex, sb.coord)
			sb.Not(sb.IsTextureArrayAccess(addr))
			sb.Not(sb.IsTextureAccess(addr))
			sb.Return(ir.NoInst)
		}
		return sb.m
	}

	m1, m2 := build(), build()
	r1, err1 := IsTextureAccess(m1, DefaultOptions())
	r2, err2 := IsTextureAccess(m2, DefaultOptions())
	if err1 != nil || err2 != nil {
		t.Fatalf("errors: %v, %v", err1, err2)
	}
	if ir.Print(m1) != ir.Print(m2) {
		t.Error("identical inputs produced different modules")
	}
	if len(r1.Simplified) != len(r2.Simplified) {
		t.Fatalf("cleanup sets differ: %v vs %v", r1.Simplified, r2.Simplified)
	}
	for i := range r1.Simplified {
		if r1.Simplified[i] != r2.Simplified[i] {
			t.Errorf("cleanup sets differ: %v vs %v", r1.Simplified, r2.Simplified)
		}
	}
}

func TestIsTextureAccess_SimplifiesFalseBranch(t *testing.T) {
	sb := newShaderBuilder()
	tex := sb.texture("tex", false, sb.vec4)

	fh := sb.Function("F", ir.NoType)
	entry := sb.Block("entry")
	arrayPath := sb.Block("array_path")
	flatPath := sb.Block("flat_path")
	exit := sb.Block("exit")

	sb.SetBlock(entry)
	addr := sb.ImageSubscript(tex, sb.coord)
	sb.CondBranch(sb.IsTextureArrayAccess(addr), arrayPath, flatPath)
	sb.SetBlock(arrayPath)
	sb.Load(addr)
	sb.Branch(exit)
	sb.SetBlock(flatPath)
	sb.Branch(exit)
	sb.SetBlock(exit)
	sb.Return(ir.NoInst)

	if _, err := IsTextureAccess(sb.m, DefaultOptions()); err != nil {
		t.Fatalf("IsTextureAccess() error = %v", err)
	}

	fn := sb.m.Function(fh)
	if !fn.Blocks[arrayPath].Removed {
		t.Errorf("array path not pruned:\n%s", ir.PrintFunction(sb.m, fh))
	}
	for _, h := range fn.Blocks[entry].Insts {
		if sb.m.Inst(h).Op() == ir.OpCondBranch {
			t.Errorf("constant branch not folded:\n%s", ir.PrintFunction(sb.m, fh))
		}
	}
	checkUses(t, sb.m)
}

func TestIsTextureAccess_NoSimplifier(t *testing.T) {
	sb := newShaderBuilder()
	sb.Function("F", ir.NoType)
	sb.Block("entry")
	x := sb.LocalVariable("x", sb.f32)
	q := sb.IsTextureAccess(x)
	br := sb.CondBranch(q, 0, 0)

	opts := DefaultOptions()
	opts.Simplifier = nil
	res, err := IsTextureAccess(sb.m, opts)
	if err != nil {
		t.Fatalf("IsTextureAccess() error = %v", err)
	}
	if len(res.Simplified) != 1 {
		t.Errorf("Simplified = %v, want the one function", res.Simplified)
	}
	if sb.m.Inst(br).Op() != ir.OpCondBranch {
		t.Error("branch changed without a simplifier")
	}
}

func TestIsTextureAccess_ContractError(t *testing.T) {
	sb := newShaderBuilder()
	tex := sb.texture("tex", false, sb.f32)
	sb.Function("F", ir.NoType)
	sb.Block("entry")
	good := sb.IsTextureAccess(sb.ImageSubscript(tex, sb.coord))
	sb.Not(good)
	bad := sb.Emit(ir.InstIsTextureScalarAccess{Addr: ir.NoInst}, sb.Bool())
	sb.Return(ir.NoInst)
	before := ir.Print(sb.m)

	opts, rec := recordingOptions()
	_, err := IsTextureAccess(sb.m, opts)

	var ce *ContractError
	if !errors.As(err, &ce) {
		t.Fatalf("IsTextureAccess() error = %v, want *ContractError", err)
	}
	if ce.Inst != bad || ce.Function != "F" || ce.Query != ir.QueryTextureScalarAccess {
		t.Errorf("ContractError = %+v", ce)
	}
	if after := ir.Print(sb.m); after != before {
		t.Error("module mutated despite contract error")
	}
	if len(rec.calls) != 0 {
		t.Errorf("simplifier called: %v", rec.calls)
	}
}

func TestIsTextureAccess_NilModule(t *testing.T) {
	if _, err := IsTextureAccess(nil, DefaultOptions()); err == nil {
		t.Error("IsTextureAccess(nil) error = nil")
	}
}

func TestIsTextureAccess_Logging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	sb := newShaderBuilder()
	tex := sb.texture("tex", false, sb.f32)
	sb.Function("F", ir.NoType)
	sb.Block("entry")
	addr := sb.ImageSubscript(tex, sb.coord)
	sb.Not(sb.IsTextureAccess(addr))
	sb.Not(sb.IsTextureArrayAccess(addr))
	sb.Return(ir.NoInst)

	opts, _ := recordingOptions()
	opts.Logger = zap.New(core)
	if _, err := IsTextureAccess(sb.m, opts); err != nil {
		t.Fatalf("IsTextureAccess() error = %v", err)
	}

	resolved := logs.FilterMessage("resolved texture query").AllUntimed()
	if len(resolved) != 2 {
		t.Fatalf("got %d resolved entries, want 2", len(resolved))
	}
	if got := resolved[0].ContextMap()["query"]; got != "IsTextureAccess" {
		t.Errorf("first entry query = %v", got)
	}
	if got := resolved[1].ContextMap()["value"]; got != false {
		t.Errorf("second entry value = %v, want false", got)
	}

	summary := logs.FilterMessage("legalized texture queries").AllUntimed()
	if len(summary) != 1 || summary[0].Level != zapcore.InfoLevel {
		t.Fatalf("summary entries = %v", summary)
	}
	if got := summary[0].ContextMap()["simplified"]; got != int64(1) {
		t.Errorf("summary simplified = %v, want 1", got)
	}
}

func TestSimplifierFunc(t *testing.T) {
	called := false
	var s Simplifier = SimplifierFunc(func(_ *ir.Module, _ ir.FunctionHandle, _ cfg.Options) cfg.Stats {
		called = true
		return cfg.Stats{FoldedBranches: 1}
	})
	if got := s.Simplify(nil, 0, cfg.FastOptions()); got.FoldedBranches != 1 || !called {
		t.Errorf("SimplifierFunc.Simplify() = %+v, called %v", got, called)
	}
}
