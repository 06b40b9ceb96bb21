package compiler

import (
	"fmt"

	"github.com/hyperion-engine/hyperion/ir"
)

// Compile runs the back half of the front-end over a parsed module: CFG
// construction and SSA validation for every function, then IR emission.
// Stage errors are returned unchanged.
func Compile(m *Module, opts Options) (*ir.Module, error) {
	sink := opts.sink()

	for _, fn := range m.Functions {
		sink.Diag(DiagTrace, "cfg_builder", fmt.Sprintf("building CFG for function %s", fn.Name))
		if err := BuildCFG(fn, opts); err != nil {
			return nil, err
		}
		if err := ValidateSSA(fn, opts); err != nil {
			return nil, err
		}
	}

	sink.Diag(DiagDebug, "ir_emitter",
		fmt.Sprintf("emitting module %q (%d functions)", m.Name, len(m.Functions)))
	return Emit(m)
}
