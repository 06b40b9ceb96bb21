package ir

import (
	"bytes"
	"strings"
	"testing"

	"github.com/hyperion-engine/hyperion/version"
)

func testModule() *Module {
	m := &Module{
		Name: "math",
		Functions: []Function{
			{
				Name:    "ident",
				Params:  []Param{{Name: "x", Type: 32}},
				RetType: 32,
				Blocks: []Block{
					{
						Label: "entry",
						Instrs: []Instr{
							{Op: OpRet, Args: []Value{{Kind: ValueRef, ID: 0, Type: 32}}},
						},
					},
				},
				ValueCount: 1,
				ValueNames: []string{"x"},
			},
		},
	}
	m.UUID = ContentUUID(m)
	return m
}

func TestStorageRoundTrip(t *testing.T) {
	engine := version.New(0, 1, 0)
	s := &Storage{Filenames: []string{"math.hyasm"}, Module: *testModule()}

	data, err := s.Encode(engine)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !bytes.HasPrefix(data, Magic) {
		t.Error("encoded storage does not start with the magic bytes")
	}

	decoded, err := DecodeStorage(data, engine)
	if err != nil {
		t.Fatalf("DecodeStorage failed: %v", err)
	}
	if decoded.Module.Name != "math" {
		t.Errorf("module name = %q, want math", decoded.Module.Name)
	}
	if decoded.Module.UUID != s.Module.UUID {
		t.Errorf("uuid = %s, want %s", decoded.Module.UUID, s.Module.UUID)
	}
	if len(decoded.Filenames) != 1 || decoded.Filenames[0] != "math.hyasm" {
		t.Errorf("filenames = %v, want [math.hyasm]", decoded.Filenames)
	}

	fn := decoded.Module.FunctionByName("ident")
	if fn == nil {
		t.Fatal("missing function ident")
	}
	if fn.RetType != 32 || len(fn.Blocks) != 1 {
		t.Errorf("function shape = ret %d, %d blocks", fn.RetType, len(fn.Blocks))
	}
}

func TestEncodeDeterministic(t *testing.T) {
	engine := version.New(0, 1, 0)
	s := &Storage{Filenames: []string{"math.hyasm"}, Module: *testModule()}

	a, err := s.Encode(engine)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	b, err := s.Encode(engine)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("repeated encodes produced different bytes")
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	engine := version.New(0, 1, 0)
	s := &Storage{Module: *testModule()}
	data, err := s.Encode(engine)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	data[0] ^= 0xFF
	if _, err := DecodeStorage(data, engine); err == nil {
		t.Error("expected error for corrupted magic bytes")
	}

	if _, err := DecodeStorage([]byte{0x7F}, engine); err == nil {
		t.Error("expected error for truncated input")
	}
}

func TestDecodeRejectsVersionMismatch(t *testing.T) {
	s := &Storage{Module: *testModule()}
	data, err := s.Encode(version.New(0, 1, 0))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	// The recorded requirement is exact, so any other engine version fails.
	_, err = DecodeStorage(data, version.New(0, 2, 0))
	if err == nil {
		t.Fatal("expected error for mismatched engine version")
	}
	if !strings.Contains(err.Error(), "requires =0.1.0") {
		t.Errorf("error = %v, want mention of the recorded requirement", err)
	}
}

func TestContentUUIDStable(t *testing.T) {
	a := testModule()
	b := testModule()
	if a.UUID != b.UUID {
		t.Errorf("identical modules have different uuids: %s vs %s", a.UUID, b.UUID)
	}

	// Identity covers the name.
	c := testModule()
	c.Name = "other"
	if ContentUUID(c) == a.UUID {
		t.Error("renamed module kept the same uuid")
	}

	// The stored UUID does not feed back into the identity.
	d := testModule()
	d.UUID = ContentUUID(d)
	if ContentUUID(d) != a.UUID {
		t.Error("content uuid changed after being stored on the module")
	}
}

func TestOpcodeStrings(t *testing.T) {
	tests := []struct {
		op   Opcode
		want string
		term bool
	}{
		{OpICmpEq, "icmp.eq", false},
		{OpIAddWrap, "iadd.wrap", false},
		{OpPhi, "phi", false},
		{OpJump, "jump", true},
		{OpBranch, "branch", true},
		{OpRet, "ret", true},
	}
	for _, tc := range tests {
		if got := tc.op.String(); got != tc.want {
			t.Errorf("op %d String() = %q, want %q", tc.op, got, tc.want)
		}
		if got := tc.op.IsTerminator(); got != tc.term {
			t.Errorf("op %s IsTerminator() = %v, want %v", tc.want, got, tc.term)
		}
	}
}
