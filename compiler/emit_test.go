package compiler

import (
	"testing"

	"github.com/hyperion-engine/hyperion/ir"
	"github.com/hyperion-engine/hyperion/version"
)

var engineTestVersion = version.New(0, 1, 0)

// compileSource runs the full pipeline over a single source unit.
func compileSource(t *testing.T, name, src string, opts Options) *ir.Module {
	t.Helper()
	fns, err := ParseSource("test.hyasm", src)
	if err != nil {
		t.Fatalf("ParseSource failed: %v", err)
	}
	m := &Module{Name: name}
	for _, fn := range fns {
		if err := m.AddFunction(fn); err != nil {
			t.Fatalf("AddFunction failed: %v", err)
		}
	}
	out, err := Compile(m, opts)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	return out
}

func TestEmitValueNumbering(t *testing.T) {
	out := compileSource(t, "pow", powSource, Options{})

	fn := out.FunctionByName("pow")
	if fn == nil {
		t.Fatal("missing function pow")
	}

	// Parameters first, then results in block order.
	wantNames := []string{"a", "b", "acc", "rem", "done", "acc_next", "rem_next"}
	if int(fn.ValueCount) != len(wantNames) {
		t.Fatalf("value count = %d, want %d", fn.ValueCount, len(wantNames))
	}
	for i, name := range wantNames {
		if fn.ValueNames[i] != name {
			t.Errorf("value %d = %q, want %q", i, fn.ValueNames[i], name)
		}
	}
}

func TestEmitBlocksAndOpcodes(t *testing.T) {
	out := compileSource(t, "pow", powSource, Options{})
	fn := out.FunctionByName("pow")

	if len(fn.Blocks) != 4 {
		t.Fatalf("blocks = %d, want 4", len(fn.Blocks))
	}

	check := fn.Blocks[1]
	if check.Label != "loop_check" {
		t.Fatalf("block 1 label = %q, want loop_check", check.Label)
	}
	if len(check.Preds) != 2 || check.Preds[0] != 0 || check.Preds[1] != 2 {
		t.Errorf("loop_check preds = %v, want [0 2]", check.Preds)
	}

	ops := []ir.Opcode{ir.OpPhi, ir.OpPhi, ir.OpICmpEq, ir.OpBranch}
	if len(check.Instrs) != len(ops) {
		t.Fatalf("loop_check has %d instructions, want %d", len(check.Instrs), len(ops))
	}
	for i, want := range ops {
		if check.Instrs[i].Op != want {
			t.Errorf("instr %d op = %s, want %s", i, check.Instrs[i].Op, want)
		}
	}

	// The first phi carries an immediate from entry and a reference from
	// loop_body.
	phi := check.Instrs[0]
	if len(phi.Incoming) != 2 {
		t.Fatalf("phi incoming = %d, want 2", len(phi.Incoming))
	}
	if phi.Incoming[0].Pred != 0 || phi.Incoming[0].Value.Kind != ir.ValueImm || phi.Incoming[0].Value.Imm != 1 {
		t.Errorf("phi incoming[0] = %+v, want imm 1 from block 0", phi.Incoming[0])
	}
	if phi.Incoming[1].Pred != 2 || phi.Incoming[1].Value.Kind != ir.ValueRef {
		t.Errorf("phi incoming[1] = %+v, want ref from block 2", phi.Incoming[1])
	}

	br := check.Instrs[3]
	if len(br.Targets) != 2 || br.Targets[0] != 3 || br.Targets[1] != 2 {
		t.Errorf("branch targets = %v, want [3 2]", br.Targets)
	}
}

func TestEmitDeterministic(t *testing.T) {
	first := compileSource(t, "pow", powSource, Options{})
	second := compileSource(t, "pow", powSource, Options{})

	if first.UUID != second.UUID {
		t.Errorf("uuids differ between identical compiles: %s vs %s", first.UUID, second.UUID)
	}

	a, err := (&ir.Storage{Filenames: []string{"test.hyasm"}, Module: *first}).Encode(engineTestVersion)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	b, err := (&ir.Storage{Filenames: []string{"test.hyasm"}, Module: *second}).Encode(engineTestVersion)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if string(a) != string(b) {
		t.Error("identical compiles encoded to different bytes")
	}
}

func TestEmitUUIDDependsOnContent(t *testing.T) {
	pow := compileSource(t, "pow", powSource, Options{})
	other := compileSource(t, "pow", `
define i32 ident(%x: i32)
entry:
  ret %x
`, Options{})

	if pow.UUID == other.UUID {
		t.Error("different modules share a uuid")
	}
}
