package compiler

import (
	"errors"
	"testing"
)

const powSource = `
define i32 pow(%a: i32, %b: i32)
entry:
  jump loop_check
loop_check:
  %acc: i32 = phi [i32 1, entry], [%acc_next, loop_body]
  %rem: i32 = phi [%b, entry], [%rem_next, loop_body]
  %done: i1 = icmp.eq %rem, i32 0
  branch %done, loop_end, loop_body
loop_body:
  %acc_next: i32 = imul.wrap %acc, %a
  %rem_next: i32 = isub.wrap %rem, i32 1
  jump loop_check
loop_end:
  ret %acc
`

// mustParseFn parses a single function or fails the test.
func mustParseFn(t *testing.T, src string) *Function {
	t.Helper()
	fns, err := ParseSource("test.hyasm", src)
	if err != nil {
		t.Fatalf("ParseSource failed: %v", err)
	}
	if len(fns) != 1 {
		t.Fatalf("parsed %d functions, want 1", len(fns))
	}
	return fns[0]
}

func TestParseFunctionHeader(t *testing.T) {
	fn := mustParseFn(t, powSource)

	if fn.Name != "pow" {
		t.Errorf("name = %q, want %q", fn.Name, "pow")
	}
	if fn.RetType != (Type{Bits: 32}) {
		t.Errorf("ret type = %s, want i32", fn.RetType)
	}
	if len(fn.Params) != 2 {
		t.Fatalf("params = %d, want 2", len(fn.Params))
	}
	if fn.Params[0].Name != "a" || fn.Params[1].Name != "b" {
		t.Errorf("param names = %q, %q, want a, b", fn.Params[0].Name, fn.Params[1].Name)
	}
	if len(fn.Blocks) != 4 {
		t.Fatalf("blocks = %d, want 4", len(fn.Blocks))
	}
	if fn.Entry().Label != "entry" {
		t.Errorf("entry label = %q, want entry", fn.Entry().Label)
	}
}

func TestParsePhi(t *testing.T) {
	fn := mustParseFn(t, powSource)

	check := fn.BlockByLabel("loop_check")
	if check == nil {
		t.Fatal("missing block loop_check")
	}

	phi := check.Instructions[0]
	if !phi.IsPhi() {
		t.Fatalf("first instruction op = %q, want phi", phi.Op)
	}
	if phi.Result != "acc" {
		t.Errorf("phi result = %q, want acc", phi.Result)
	}
	if len(phi.Incoming) != 2 {
		t.Fatalf("phi incoming = %d, want 2", len(phi.Incoming))
	}
	if phi.Incoming[0].Pred != "entry" || phi.Incoming[1].Pred != "loop_body" {
		t.Errorf("phi preds = %q, %q, want entry, loop_body",
			phi.Incoming[0].Pred, phi.Incoming[1].Pred)
	}
	if phi.Incoming[0].Value.Kind != OperandImm || phi.Incoming[0].Value.Imm.Value != 1 {
		t.Errorf("first incoming = %s, want i32 1", phi.Incoming[0].Value)
	}
	if phi.Incoming[1].Value.Kind != OperandRef || phi.Incoming[1].Value.Ref != "acc_next" {
		t.Errorf("second incoming = %s, want %%acc_next", phi.Incoming[1].Value)
	}
}

func TestParseTerminators(t *testing.T) {
	fn := mustParseFn(t, powSource)

	entry := fn.Entry()
	jump := entry.Instructions[len(entry.Instructions)-1]
	if jump.Op != "jump" || jump.Args[0].Label != "loop_check" {
		t.Errorf("entry terminator = %s, want jump loop_check", jump)
	}

	check := fn.BlockByLabel("loop_check")
	br := check.Instructions[len(check.Instructions)-1]
	if br.Op != "branch" || len(br.Args) != 3 {
		t.Fatalf("loop_check terminator = %s, want 3-operand branch", br)
	}
	if br.Args[0].Ref != "done" || br.Args[1].Label != "loop_end" || br.Args[2].Label != "loop_body" {
		t.Errorf("branch operands = %s, %s, %s", br.Args[0], br.Args[1], br.Args[2])
	}

	end := fn.BlockByLabel("loop_end")
	ret := end.Instructions[0]
	if ret.Op != "ret" || len(ret.Args) != 1 || ret.Args[0].Ref != "acc" {
		t.Errorf("loop_end terminator = %s, want ret %%acc", ret)
	}
}

func TestParseBareRet(t *testing.T) {
	src := `
define i32 f(%x: i32)
entry:
  ret
`
	fn := mustParseFn(t, src)
	ret := fn.Entry().Instructions[0]
	if ret.Op != "ret" || len(ret.Args) != 0 {
		t.Errorf("terminator = %s, want bare ret", ret)
	}
}

func TestParseMultipleFunctions(t *testing.T) {
	src := `
define i32 first(%x: i32)
entry:
  ret %x

define i1 second(%p: i1)
entry:
  ret %p
`
	fns, err := ParseSource("test.hyasm", src)
	if err != nil {
		t.Fatalf("ParseSource failed: %v", err)
	}
	if len(fns) != 2 {
		t.Fatalf("parsed %d functions, want 2", len(fns))
	}
	if fns[0].Name != "first" || fns[1].Name != "second" {
		t.Errorf("names = %q, %q", fns[0].Name, fns[1].Name)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"missing define", `entry: ret`},
		{"missing ret type", `define f() entry: ret`},
		{"bad type", `define i0 f() entry: ret`},
		{"type too wide", `define i65 f() entry: ret`},
		{"no blocks", `define i32 f(%x: i32)`},
		{"duplicate block label", `
define i32 f(%x: i32)
entry:
  jump entry
entry:
  ret %x
`},
		{"immediate out of range", `
define i8 f(%x: i8)
entry:
  %y: i8 = iadd.wrap %x, i8 300
  ret %y
`},
		{"missing phi bracket", `
define i32 f(%x: i32)
entry:
  %p: i32 = phi %x, entry
  ret %p
`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseSource("test.hyasm", tc.src)
			if err == nil {
				t.Fatal("expected parse error, got nil")
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Errorf("error = %v, want *ParseError", err)
			}
		})
	}
}

func TestParseLexErrorSurfaces(t *testing.T) {
	_, err := ParseSource("test.hyasm", "define i32 f() @")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var le *LexError
	if !errors.As(err, &le) {
		t.Errorf("error = %v, want *LexError", err)
	}
}

func TestModuleAddFunctionRejectsDuplicates(t *testing.T) {
	fn1 := mustParseFn(t, "define i32 f(%x: i32)\nentry:\n  ret %x")
	fn2 := mustParseFn(t, "define i32 f(%y: i32)\nentry:\n  ret %y")

	m := &Module{Name: "dup"}
	if err := m.AddFunction(fn1); err != nil {
		t.Fatalf("first AddFunction failed: %v", err)
	}
	if err := m.AddFunction(fn2); err == nil {
		t.Fatal("expected error on duplicate function name")
	}
}
