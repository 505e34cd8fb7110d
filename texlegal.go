// Package texlegal resolves texture capability queries in shader IR.
//
// Earlier pipeline stages insert IsTextureAccess, IsTextureArrayAccess and
// IsTextureScalarAccess queries about an address. texlegal answers each one by
// tracing the address to the instruction that produced it, replaces the query
// with a boolean literal, and simplifies the control flow of every function
// where an answer came out false.
//
// Example usage:
//
//	module := lowerShader(src) // *ir.Module from an earlier stage
//	res, err := texlegal.Legalize(module)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.Resolved, "queries resolved")
//
// For more control, run the legalize package directly or chain passes:
//
//	err := texlegal.RunPasses(module, texlegal.TextureQueryPass(legalize.DefaultOptions()))
package texlegal

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/gogpu/texlegal/ir"
	"github.com/gogpu/texlegal/legalize"
)

// Pass is one stage of an IR pipeline. Passes run in order with exclusive
// access to the module.
type Pass interface {
	Name() string
	Run(m *ir.Module) error
}

// PassFunc adapts a named function to the Pass interface.
type PassFunc struct {
	PassName string
	Fn       func(m *ir.Module) error
}

// Name returns the pass name.
func (p PassFunc) Name() string { return p.PassName }

// Run calls the pass function.
func (p PassFunc) Run(m *ir.Module) error { return p.Fn(m) }

// RunPasses runs passes over m in order and stops at the first error.
func RunPasses(m *ir.Module, passes ...Pass) error {
	if m == nil {
		return fmt.Errorf("module is nil")
	}
	for _, p := range passes {
		Logger().Debug("running pass", zap.String("pass", p.Name()))
		if err := p.Run(m); err != nil {
			return fmt.Errorf("%s: %w", p.Name(), err)
		}
	}
	return nil
}

// TextureQueryPass returns a pass that resolves texture capability queries.
func TextureQueryPass(opts legalize.Options) Pass {
	return PassFunc{
		PassName: "legalize-is-texture-access",
		Fn: func(m *ir.Module) error {
			_, err := legalize.IsTextureAccess(m, opts)
			return err
		},
	}
}

// Legalize resolves every texture capability query in m using default options.
func Legalize(m *ir.Module) (legalize.Result, error) {
	res, err := legalize.IsTextureAccess(m, legalize.DefaultOptions())
	if err != nil {
		return res, fmt.Errorf("legalize texture queries: %w", err)
	}
	return res, nil
}
