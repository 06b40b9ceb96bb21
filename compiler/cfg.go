package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Control-flow graph construction
// ---------------------------------------------------------------------------

// BuildCFG resolves every label referenced by a terminator to a block in
// the same function and records predecessor/successor edges. Edges are
// deduplicated, so a branch with identical targets contributes one edge.
//
// Blocks unreachable from the entry block produce a warning through the
// diagnostic sink; Options.FailUnreachable turns the warning into an error.
func BuildCFG(fn *Function, opts Options) error {
	sink := opts.sink()

	for _, b := range fn.Blocks {
		b.Preds = nil
		b.Succs = nil
	}

	for _, b := range fn.Blocks {
		for _, term := range b.Terminators() {
			for _, arg := range term.Args {
				if arg.Kind != OperandLabel {
					continue
				}
				target := fn.BlockByLabel(arg.Label)
				if target == nil {
					return &CFGError{Function: fn.Name, MissingLabel: arg.Label, Pos: arg.Pos}
				}
				addEdge(b, target)
			}
		}
	}

	reachable := reachableFromEntry(fn)
	for _, b := range fn.Blocks {
		if reachable[b] {
			continue
		}
		if opts.FailUnreachable {
			return &UnreachableError{Function: fn.Name, Block: b.Label}
		}
		sink.Diag(DiagWarn, "cfg_builder",
			fmt.Sprintf("function %s: block %q is unreachable from entry", fn.Name, b.Label))
	}

	return nil
}

// addEdge records the edge once.
func addEdge(from, to *Block) {
	for _, s := range from.Succs {
		if s == to {
			return
		}
	}
	from.Succs = append(from.Succs, to)
	to.Preds = append(to.Preds, from)
}

// reachableFromEntry returns the set of blocks reachable from the entry
// block along successor edges.
func reachableFromEntry(fn *Function) map[*Block]bool {
	reachable := make(map[*Block]bool, len(fn.Blocks))
	entry := fn.Entry()
	if entry == nil {
		return reachable
	}

	worklist := []*Block{entry}
	reachable[entry] = true
	for len(worklist) > 0 {
		b := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		for _, s := range b.Succs {
			if !reachable[s] {
				reachable[s] = true
				worklist = append(worklist, s)
			}
		}
	}
	return reachable
}
