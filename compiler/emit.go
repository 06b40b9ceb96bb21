package compiler

import (
	"fmt"

	"github.com/hyperion-engine/hyperion/ir"
)

// ---------------------------------------------------------------------------
// IR Emitter: lowers a validated module into serializable IR
// ---------------------------------------------------------------------------

// Emit lowers a validated abstract module into IR. Each value receives a
// dense numeric index scoped to its function (parameters first, then
// results in block order) and labels become block indices. Emission is
// deterministic: identical validated input yields an identical module.
//
// Any error returned here indicates an internal invariant violation in a
// module that should not have passed validation.
func Emit(m *Module) (*ir.Module, error) {
	out := &ir.Module{
		Name:      m.Name,
		Functions: make([]ir.Function, 0, len(m.Functions)),
	}

	for _, fn := range m.Functions {
		emitted, err := emitFunction(fn)
		if err != nil {
			return nil, fmt.Errorf("emit function %s: %w", fn.Name, err)
		}
		out.Functions = append(out.Functions, emitted)
	}

	out.UUID = ir.ContentUUID(out)
	return out, nil
}

type emitter struct {
	fn       *Function
	valueIDs map[string]ir.ValueID
	names    []string
	types    map[string]Type
	blockIDs map[string]ir.BlockID
}

func emitFunction(fn *Function) (ir.Function, error) {
	e := &emitter{
		fn:       fn,
		valueIDs: make(map[string]ir.ValueID),
		types:    make(map[string]Type),
		blockIDs: make(map[string]ir.BlockID, len(fn.Blocks)),
	}

	// Value numbering: parameters first, then results in block order.
	for _, p := range fn.Params {
		e.define(p.Name, p.Type)
	}
	for _, b := range fn.Blocks {
		for _, instr := range b.Instructions {
			if instr.Result != "" {
				e.define(instr.Result, instr.Type)
			}
		}
	}

	for i, b := range fn.Blocks {
		e.blockIDs[b.Label] = ir.BlockID(i)
	}

	out := ir.Function{
		Name:       fn.Name,
		RetType:    ir.Type(fn.RetType.Bits),
		Params:     make([]ir.Param, 0, len(fn.Params)),
		Blocks:     make([]ir.Block, 0, len(fn.Blocks)),
		ValueCount: uint32(len(e.names)),
		ValueNames: e.names,
	}
	for _, p := range fn.Params {
		out.Params = append(out.Params, ir.Param{Name: p.Name, Type: ir.Type(p.Type.Bits)})
	}

	for _, b := range fn.Blocks {
		block := ir.Block{
			Label:  b.Label,
			Instrs: make([]ir.Instr, 0, len(b.Instructions)),
		}
		for _, p := range b.Preds {
			block.Preds = append(block.Preds, e.blockIDs[p.Label])
		}
		for _, instr := range b.Instructions {
			encoded, err := e.emitInstr(instr)
			if err != nil {
				return ir.Function{}, err
			}
			block.Instrs = append(block.Instrs, encoded)
		}
		out.Blocks = append(out.Blocks, block)
	}

	return out, nil
}

func (e *emitter) define(name string, ty Type) {
	if _, ok := e.valueIDs[name]; ok {
		return // duplicate definitions never survive validation
	}
	e.valueIDs[name] = ir.ValueID(len(e.names))
	e.names = append(e.names, name)
	e.types[name] = ty
}

var opcodeByName = map[string]ir.Opcode{
	"icmp.eq":   ir.OpICmpEq,
	"iadd.wrap": ir.OpIAddWrap,
	"isub.wrap": ir.OpISubWrap,
	"imul.wrap": ir.OpIMulWrap,
	"phi":       ir.OpPhi,
	"jump":      ir.OpJump,
	"branch":    ir.OpBranch,
	"ret":       ir.OpRet,
}

func (e *emitter) emitInstr(instr *Instruction) (ir.Instr, error) {
	op, ok := opcodeByName[instr.Op]
	if !ok {
		return ir.Instr{}, fmt.Errorf("unknown operation %q", instr.Op)
	}

	out := ir.Instr{Op: op}
	if instr.Result != "" {
		out.Result = e.valueIDs[instr.Result]
		out.Type = ir.Type(instr.Type.Bits)
	}

	if instr.IsPhi() {
		for _, inc := range instr.Incoming {
			value, err := e.emitValue(inc.Value)
			if err != nil {
				return ir.Instr{}, err
			}
			pred, ok := e.blockIDs[inc.Pred]
			if !ok {
				return ir.Instr{}, fmt.Errorf("phi references unknown block %q", inc.Pred)
			}
			out.Incoming = append(out.Incoming, ir.Incoming{Value: value, Pred: pred})
		}
		return out, nil
	}

	for _, arg := range instr.Args {
		if arg.Kind == OperandLabel {
			target, ok := e.blockIDs[arg.Label]
			if !ok {
				return ir.Instr{}, fmt.Errorf("%s targets unknown block %q", instr.Op, arg.Label)
			}
			out.Targets = append(out.Targets, target)
			continue
		}
		value, err := e.emitValue(arg)
		if err != nil {
			return ir.Instr{}, err
		}
		out.Args = append(out.Args, value)
	}

	return out, nil
}

func (e *emitter) emitValue(o Operand) (ir.Value, error) {
	switch o.Kind {
	case OperandRef:
		id, ok := e.valueIDs[o.Ref]
		if !ok {
			return ir.Value{}, fmt.Errorf("reference to unknown value %%%s", o.Ref)
		}
		return ir.Value{Kind: ir.ValueRef, ID: id, Type: ir.Type(e.types[o.Ref].Bits)}, nil
	case OperandImm:
		return ir.Value{Kind: ir.ValueImm, Imm: o.Imm.Value, Type: ir.Type(o.Imm.Type.Bits)}, nil
	default:
		return ir.Value{}, fmt.Errorf("label operand in value position")
	}
}
