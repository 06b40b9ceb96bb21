package compiler

import (
	"errors"
	"testing"
)

// recordingSink collects diagnostics for inspection.
type recordingSink struct {
	entries []diagEntry
}

type diagEntry struct {
	level  DiagLevel
	origin string
	msg    string
}

func (s *recordingSink) Diag(level DiagLevel, origin, msg string) {
	s.entries = append(s.entries, diagEntry{level, origin, msg})
}

func TestBuildCFGEdges(t *testing.T) {
	fn := mustParseFn(t, powSource)
	if err := BuildCFG(fn, Options{}); err != nil {
		t.Fatalf("BuildCFG failed: %v", err)
	}

	edges := map[string][]string{
		"entry":      {"loop_check"},
		"loop_check": {"loop_end", "loop_body"},
		"loop_body":  {"loop_check"},
		"loop_end":   {},
	}
	for label, want := range edges {
		b := fn.BlockByLabel(label)
		if len(b.Succs) != len(want) {
			t.Errorf("block %s: %d successors, want %d", label, len(b.Succs), len(want))
			continue
		}
		for i, succ := range want {
			if b.Succs[i].Label != succ {
				t.Errorf("block %s: succ[%d] = %s, want %s", label, i, b.Succs[i].Label, succ)
			}
		}
	}

	check := fn.BlockByLabel("loop_check")
	if len(check.Preds) != 2 {
		t.Fatalf("loop_check has %d preds, want 2", len(check.Preds))
	}
	if check.Preds[0].Label != "entry" || check.Preds[1].Label != "loop_body" {
		t.Errorf("loop_check preds = %s, %s, want entry, loop_body",
			check.Preds[0].Label, check.Preds[1].Label)
	}
}

func TestBuildCFGDeduplicatesEdges(t *testing.T) {
	src := `
define i32 f(%c: i1, %x: i32)
entry:
  branch %c, exit, exit
exit:
  ret %x
`
	fn := mustParseFn(t, src)
	if err := BuildCFG(fn, Options{}); err != nil {
		t.Fatalf("BuildCFG failed: %v", err)
	}

	entry := fn.Entry()
	if len(entry.Succs) != 1 {
		t.Errorf("entry has %d successors, want 1", len(entry.Succs))
	}
	exit := fn.BlockByLabel("exit")
	if len(exit.Preds) != 1 {
		t.Errorf("exit has %d preds, want 1", len(exit.Preds))
	}
}

func TestBuildCFGMissingLabel(t *testing.T) {
	src := `
define i32 f(%x: i32)
entry:
  jump nowhere
`
	fn := mustParseFn(t, src)
	err := BuildCFG(fn, Options{})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var ce *CFGError
	if !errors.As(err, &ce) {
		t.Fatalf("error = %v, want *CFGError", err)
	}
	if ce.MissingLabel != "nowhere" {
		t.Errorf("missing label = %q, want nowhere", ce.MissingLabel)
	}
}

const unreachableSource = `
define i32 f(%x: i32)
entry:
  ret %x
island:
  ret %x
`

func TestBuildCFGUnreachableWarns(t *testing.T) {
	fn := mustParseFn(t, unreachableSource)
	sink := &recordingSink{}
	if err := BuildCFG(fn, Options{Sink: sink}); err != nil {
		t.Fatalf("BuildCFG failed: %v", err)
	}

	found := false
	for _, e := range sink.entries {
		if e.level == DiagWarn && e.origin == "cfg_builder" {
			found = true
		}
	}
	if !found {
		t.Error("expected a cfg_builder warning for the unreachable block")
	}
}

func TestBuildCFGUnreachableFailsWhenStrict(t *testing.T) {
	fn := mustParseFn(t, unreachableSource)
	err := BuildCFG(fn, Options{FailUnreachable: true})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var ue *UnreachableError
	if !errors.As(err, &ue) {
		t.Fatalf("error = %v, want *UnreachableError", err)
	}
	if ue.Block != "island" {
		t.Errorf("unreachable block = %q, want island", ue.Block)
	}
}
