package legalize

import (
	"go.uber.org/zap"

	"github.com/gogpu/texlegal/cfg"
	"github.com/gogpu/texlegal/ir"
)

// Simplifier simplifies the control-flow graph of one function.
type Simplifier interface {
	Simplify(m *ir.Module, fn ir.FunctionHandle, opts cfg.Options) cfg.Stats
}

// SimplifierFunc adapts a function to the Simplifier interface.
type SimplifierFunc func(m *ir.Module, fn ir.FunctionHandle, opts cfg.Options) cfg.Stats

// Simplify calls f.
func (f SimplifierFunc) Simplify(m *ir.Module, fn ir.FunctionHandle, opts cfg.Options) cfg.Stats {
	return f(m, fn, opts)
}

// Options configures texture query legalization.
type Options struct {
	// Logger overrides the package logger for one run.
	Logger *zap.Logger

	// Simplifier is run on every function with a query that resolved to
	// false. Nil skips CFG cleanup.
	Simplifier Simplifier

	// CFG is passed to Simplifier (default: fast mode)
	CFG cfg.Options
}

// DefaultOptions returns sensible default options.
func DefaultOptions() Options {
	return Options{
		Simplifier: cfg.Simplifier{},
		CFG:        cfg.FastOptions(),
	}
}

func (o Options) logger() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return Logger()
}
