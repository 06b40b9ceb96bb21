package compiler

import (
	"errors"
	"fmt"
	"sort"
)

// ---------------------------------------------------------------------------
// SSA Validator: single-assignment, dominance, phi and type checks
// ---------------------------------------------------------------------------

// ValidateSSA verifies the SSA discipline of a function whose CFG has been
// built: single assignment, definition-before-use under dominance, phi
// arity against the actual predecessor set, operand type consistency and
// terminator well-formedness.
//
// In the default fast-fail mode the first violation is returned. With
// Options.BatchDiagnostics every violation is collected and the result is
// the join of all of them. Each violation is also emitted through the
// diagnostic sink with origin "ssa_validator".
func ValidateSSA(fn *Function, opts Options) error {
	v := &ssaValidator{
		fn:        fn,
		opts:      opts,
		sink:      opts.sink(),
		defs:      make(map[string]valueDef),
		reachable: reachableFromEntry(fn),
	}
	return v.validate()
}

// valueDef records where a value is defined. A nil block means a function
// parameter, which dominates every use.
type valueDef struct {
	block *Block
	index int // instruction index within block
	ty    Type
	pos   Position
}

type ssaValidator struct {
	fn        *Function
	opts      Options
	sink      DiagSink
	defs      map[string]valueDef
	reachable map[*Block]bool
	dom       map[*Block]map[*Block]bool
	errs      []error
}

// report records a violation. It returns true when validation should stop
// (fast-fail mode).
func (v *ssaValidator) report(err error) bool {
	v.errs = append(v.errs, err)
	v.sink.Diag(DiagError, "ssa_validator", err.Error())
	return !v.opts.BatchDiagnostics
}

func (v *ssaValidator) result() error {
	if len(v.errs) == 0 {
		return nil
	}
	if v.opts.BatchDiagnostics {
		return errors.Join(v.errs...)
	}
	return v.errs[0]
}

func (v *ssaValidator) validate() error {
	v.sink.Diag(DiagTrace, "ssa_validator",
		fmt.Sprintf("validating function %s (%d blocks)", v.fn.Name, len(v.fn.Blocks)))

	if stop := v.collectDefinitions(); stop {
		return v.result()
	}
	if stop := v.checkBlockShapes(); stop {
		return v.result()
	}

	v.computeDominators()

	for _, b := range v.fn.Blocks {
		for i, instr := range b.Instructions {
			var stop bool
			switch {
			case instr.IsPhi():
				stop = v.checkPhi(b, instr)
			case instr.IsTerminator():
				stop = v.checkTerminator(b, i, instr)
			default:
				stop = v.checkInstruction(b, i, instr)
			}
			if stop {
				return v.result()
			}
		}
	}

	return v.result()
}

// collectDefinitions records every value definition and rejects duplicates.
func (v *ssaValidator) collectDefinitions() bool {
	for _, param := range v.fn.Params {
		if _, dup := v.defs[param.Name]; dup {
			if v.report(&SSAError{
				Kind:     SSADuplicateDefinition,
				Function: v.fn.Name,
				Value:    param.Name,
				Pos:      param.Pos,
			}) {
				return true
			}
			continue
		}
		v.defs[param.Name] = valueDef{ty: param.Type, pos: param.Pos}
	}

	for _, b := range v.fn.Blocks {
		for i, instr := range b.Instructions {
			if instr.Result == "" {
				continue
			}
			if _, dup := v.defs[instr.Result]; dup {
				if v.report(&SSAError{
					Kind:     SSADuplicateDefinition,
					Function: v.fn.Name,
					Block:    b.Label,
					Value:    instr.Result,
					Pos:      instr.Pos,
				}) {
					return true
				}
				continue
			}
			v.defs[instr.Result] = valueDef{block: b, index: i, ty: instr.Type, pos: instr.Pos}
		}
	}
	return false
}

// checkBlockShapes verifies that phis form a prefix of each block and that
// exactly one terminator exists, positioned last. Terminator targets are
// re-verified here even though the CFG builder resolved them already.
func (v *ssaValidator) checkBlockShapes() bool {
	for _, b := range v.fn.Blocks {
		if stop := v.checkShape(b); stop {
			return true
		}
	}
	return false
}

func (v *ssaValidator) checkShape(b *Block) bool {
	sawNonPhi := false
	termCount := 0

	for i, instr := range b.Instructions {
		if instr.IsPhi() {
			if sawNonPhi {
				if v.report(&SSAError{
					Kind:     SSAMisplacedPhi,
					Function: v.fn.Name,
					Block:    b.Label,
					Value:    instr.Result,
					Pos:      instr.Pos,
				}) {
					return true
				}
			}
			continue
		}
		sawNonPhi = true

		if instr.IsTerminator() {
			termCount++
			if i != len(b.Instructions)-1 {
				if v.report(&SSAError{
					Kind:     SSAMalformedTerminator,
					Function: v.fn.Name,
					Block:    b.Label,
					Pos:      instr.Pos,
					Detail:   fmt.Sprintf("%s is not the last instruction of the block", instr.Op),
				}) {
					return true
				}
			}
			for _, arg := range instr.Args {
				if arg.Kind == OperandLabel && v.fn.BlockByLabel(arg.Label) == nil {
					if v.report(&SSAError{
						Kind:     SSAMalformedTerminator,
						Function: v.fn.Name,
						Block:    b.Label,
						Pos:      arg.Pos,
						Detail:   fmt.Sprintf("%s targets undefined block %q", instr.Op, arg.Label),
					}) {
						return true
					}
				}
			}
		}
	}

	if termCount != 1 {
		return v.report(&SSAError{
			Kind:     SSAMalformedTerminator,
			Function: v.fn.Name,
			Block:    b.Label,
			Pos:      b.Pos,
			Detail:   fmt.Sprintf("block has %d terminators, want exactly 1", termCount),
		})
	}
	return false
}

// computeDominators runs the iterative dominator dataflow over reachable
// blocks. dom[b] is the set of blocks dominating b (including b itself).
func (v *ssaValidator) computeDominators() {
	v.dom = make(map[*Block]map[*Block]bool, len(v.fn.Blocks))
	entry := v.fn.Entry()
	if entry == nil {
		return
	}

	var reachable []*Block
	for _, b := range v.fn.Blocks {
		if v.reachable[b] {
			reachable = append(reachable, b)
		}
	}

	all := make(map[*Block]bool, len(reachable))
	for _, b := range reachable {
		all[b] = true
	}

	v.dom[entry] = map[*Block]bool{entry: true}
	for _, b := range reachable {
		if b == entry {
			continue
		}
		set := make(map[*Block]bool, len(all))
		for k := range all {
			set[k] = true
		}
		v.dom[b] = set
	}

	changed := true
	for changed {
		changed = false
		for _, b := range reachable {
			if b == entry {
				continue
			}
			next := intersectPredDoms(v.dom, b, v.reachable)
			next[b] = true
			if !sameSet(next, v.dom[b]) {
				v.dom[b] = next
				changed = true
			}
		}
	}
}

func intersectPredDoms(dom map[*Block]map[*Block]bool, b *Block, reachable map[*Block]bool) map[*Block]bool {
	var result map[*Block]bool
	for _, p := range b.Preds {
		if !reachable[p] {
			continue
		}
		pd := dom[p]
		if result == nil {
			result = make(map[*Block]bool, len(pd))
			for k := range pd {
				result[k] = true
			}
			continue
		}
		for k := range result {
			if !pd[k] {
				delete(result, k)
			}
		}
	}
	if result == nil {
		result = make(map[*Block]bool)
	}
	return result
}

func sameSet(a, b map[*Block]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// dominatesUse reports whether the definition of name dominates a use at
// instruction index in block b. Uses in unreachable blocks skip the
// dominance requirement; the CFG builder already surfaced them.
func (v *ssaValidator) dominatesUse(def valueDef, b *Block, index int) bool {
	if def.block == nil {
		return true // parameter
	}
	if def.block == b {
		return def.index < index
	}
	if !v.reachable[b] {
		return true
	}
	return v.dom[b][def.block]
}

// checkPhi verifies a phi's incoming set against the block's predecessors
// and the type of every incoming value.
func (v *ssaValidator) checkPhi(b *Block, instr *Instruction) bool {
	expected := make(map[string]bool, len(b.Preds))
	for _, p := range b.Preds {
		expected[p.Label] = true
	}

	actual := make(map[string]bool, len(instr.Incoming))
	duplicate := false
	for _, inc := range instr.Incoming {
		if actual[inc.Pred] {
			duplicate = true
		}
		actual[inc.Pred] = true
	}

	if duplicate || !sameStringSet(expected, actual) {
		if v.report(&SSAError{
			Kind:          SSAPhiArityMismatch,
			Function:      v.fn.Name,
			Block:         b.Label,
			Value:         instr.Result,
			Pos:           instr.Pos,
			ExpectedPreds: sortedKeys(expected),
			ActualPreds:   incomingLabels(instr),
		}) {
			return true
		}
	}

	// Incoming values: defined somewhere in the function (dominance is
	// checked at the end of the named predecessor, so only existence and
	// type apply here).
	for _, inc := range instr.Incoming {
		ty, err := v.operandType(inc.Value)
		if err != nil {
			if v.report(err) {
				return true
			}
			continue
		}
		if ty != instr.Type {
			if v.report(&SSAError{
				Kind:        SSATypeMismatch,
				Function:    v.fn.Name,
				Block:       b.Label,
				Pos:         inc.Pos,
				Instruction: "phi",
				Expected:    instr.Type.String(),
				Actual:      ty.String(),
			}) {
				return true
			}
		}
	}

	return false
}

// operandType resolves the type of a ref or immediate operand. The error
// is a UseBeforeDefinition for unknown value names.
func (v *ssaValidator) operandType(o Operand) (Type, error) {
	switch o.Kind {
	case OperandImm:
		return o.Imm.Type, nil
	case OperandRef:
		def, ok := v.defs[o.Ref]
		if !ok {
			return Type{}, &SSAError{
				Kind:     SSAUseBeforeDefinition,
				Function: v.fn.Name,
				Value:    o.Ref,
				Pos:      o.Pos,
			}
		}
		return def.ty, nil
	default:
		return Type{}, &SSAError{
			Kind:     SSATypeMismatch,
			Function: v.fn.Name,
			Pos:      o.Pos,
			Expected: "value operand",
			Actual:   "label",
		}
	}
}

// checkUse verifies dominance of a ref operand's definition over its use.
func (v *ssaValidator) checkUse(b *Block, index int, o Operand) error {
	if o.Kind != OperandRef {
		return nil
	}
	def, ok := v.defs[o.Ref]
	if !ok || !v.dominatesUse(def, b, index) {
		return &SSAError{
			Kind:     SSAUseBeforeDefinition,
			Function: v.fn.Name,
			Block:    b.Label,
			Value:    o.Ref,
			Pos:      o.Pos,
		}
	}
	return nil
}

// opRule declares the operand and result typing of an operation.
type opRule struct {
	arity      int
	boolResult bool // result is i1 rather than the operand type
}

var opRules = map[string]opRule{
	"icmp.eq":   {arity: 2, boolResult: true},
	"iadd.wrap": {arity: 2},
	"isub.wrap": {arity: 2},
	"imul.wrap": {arity: 2},
}

// checkInstruction verifies an ordinary value instruction: known op,
// arity, operand dominance and the op's type rules.
func (v *ssaValidator) checkInstruction(b *Block, index int, instr *Instruction) bool {
	rule, known := opRules[instr.Op]
	if !known {
		return v.report(&SSAError{
			Kind:        SSATypeMismatch,
			Function:    v.fn.Name,
			Block:       b.Label,
			Pos:         instr.Pos,
			Instruction: instr.Op,
			Expected:    "known operation",
			Actual:      instr.Op,
		})
	}

	if len(instr.Args) != rule.arity {
		return v.report(&SSAError{
			Kind:        SSATypeMismatch,
			Function:    v.fn.Name,
			Block:       b.Label,
			Pos:         instr.Pos,
			Instruction: instr.Op,
			Expected:    fmt.Sprintf("%d operands", rule.arity),
			Actual:      fmt.Sprintf("%d operands", len(instr.Args)),
		})
	}

	var operandTy Type
	for i, arg := range instr.Args {
		if err := v.checkUse(b, index, arg); err != nil {
			if v.report(err) {
				return true
			}
			continue
		}
		ty, err := v.operandType(arg)
		if err != nil {
			if v.report(err) {
				return true
			}
			continue
		}
		if i == 0 {
			operandTy = ty
			continue
		}
		if ty != operandTy {
			if v.report(&SSAError{
				Kind:        SSATypeMismatch,
				Function:    v.fn.Name,
				Block:       b.Label,
				Pos:         arg.Pos,
				Instruction: instr.Op,
				Expected:    operandTy.String(),
				Actual:      ty.String(),
			}) {
				return true
			}
		}
	}

	want := operandTy
	if rule.boolResult {
		want = Type{Bits: 1}
	}
	if !operandTy.IsZero() && instr.Type != want {
		return v.report(&SSAError{
			Kind:        SSATypeMismatch,
			Function:    v.fn.Name,
			Block:       b.Label,
			Pos:         instr.Pos,
			Instruction: instr.Op,
			Expected:    want.String(),
			Actual:      instr.Type.String(),
		})
	}

	return false
}

// checkTerminator verifies branch condition and return value typing.
// Target validity was handled by checkShape and the CFG builder.
func (v *ssaValidator) checkTerminator(b *Block, index int, instr *Instruction) bool {
	switch instr.Op {
	case "branch":
		if len(instr.Args) == 0 {
			return false // the parser never produces a bare branch
		}
		cond := instr.Args[0]
		if err := v.checkUse(b, index, cond); err != nil {
			return v.report(err)
		}
		ty, err := v.operandType(cond)
		if err != nil {
			return v.report(err)
		}
		if ty != (Type{Bits: 1}) {
			return v.report(&SSAError{
				Kind:        SSATypeMismatch,
				Function:    v.fn.Name,
				Block:       b.Label,
				Pos:         cond.Pos,
				Instruction: "branch",
				Expected:    "i1",
				Actual:      ty.String(),
			})
		}

	case "ret":
		if len(instr.Args) == 0 {
			return v.report(&SSAError{
				Kind:        SSATypeMismatch,
				Function:    v.fn.Name,
				Block:       b.Label,
				Pos:         instr.Pos,
				Instruction: "ret",
				Expected:    v.fn.RetType.String(),
				Actual:      "no value",
			})
		}
		value := instr.Args[0]
		if err := v.checkUse(b, index, value); err != nil {
			return v.report(err)
		}
		ty, err := v.operandType(value)
		if err != nil {
			return v.report(err)
		}
		if ty != v.fn.RetType {
			return v.report(&SSAError{
				Kind:        SSATypeMismatch,
				Function:    v.fn.Name,
				Block:       b.Label,
				Pos:         value.Pos,
				Instruction: "ret",
				Expected:    v.fn.RetType.String(),
				Actual:      ty.String(),
			})
		}
	}
	return false
}

func sameStringSet(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func incomingLabels(instr *Instruction) []string {
	labels := make([]string, len(instr.Incoming))
	for i, inc := range instr.Incoming {
		labels[i] = inc.Pred
	}
	sort.Strings(labels)
	return labels
}
