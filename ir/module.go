// Package ir defines the compact, serializable intermediate representation
// produced by the compiler front-end and consumed by the execution backend.
// Values are dense numeric indices scoped to their function; blocks are
// referenced by index within their function.
package ir

import (
	"fmt"

	"github.com/google/uuid"
)

// Type is an integer type encoded as its bit width (1 for i1, 32 for i32).
type Type uint8

func (t Type) String() string {
	return fmt.Sprintf("i%d", uint8(t))
}

// Opcode identifies an operation.
type Opcode uint8

const (
	OpInvalid Opcode = iota
	OpICmpEq
	OpIAddWrap
	OpISubWrap
	OpIMulWrap
	OpPhi
	OpJump
	OpBranch
	OpRet
)

var opcodeNames = map[Opcode]string{
	OpInvalid:  "invalid",
	OpICmpEq:   "icmp.eq",
	OpIAddWrap: "iadd.wrap",
	OpISubWrap: "isub.wrap",
	OpIMulWrap: "imul.wrap",
	OpPhi:      "phi",
	OpJump:     "jump",
	OpBranch:   "branch",
	OpRet:      "ret",
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("Opcode(%d)", op)
}

// IsTerminator reports whether the opcode ends a basic block.
func (op Opcode) IsTerminator() bool {
	switch op {
	case OpJump, OpBranch, OpRet:
		return true
	}
	return false
}

// ValueID is a dense value index scoped to one function. Parameters occupy
// the lowest indices in declaration order.
type ValueID uint32

// BlockID is a block index within its function. The entry block is 0.
type BlockID uint32

// ValueKind distinguishes value references from immediates.
type ValueKind uint8

const (
	ValueRef ValueKind = iota
	ValueImm
)

// Value is an instruction operand: a reference to a numbered value or a
// typed immediate.
type Value struct {
	Kind ValueKind `cbor:"kind"`
	ID   ValueID   `cbor:"id,omitempty"`
	Imm  int64     `cbor:"imm,omitempty"`
	Type Type      `cbor:"type"`
}

// Incoming is one phi input: the value that flows in from Pred.
type Incoming struct {
	Value Value   `cbor:"value"`
	Pred  BlockID `cbor:"pred"`
}

// Instr is one encoded instruction. Result is meaningful for every opcode
// except terminators. Targets carries jump/branch destinations: one block
// for OpJump, then-block and else-block for OpBranch.
type Instr struct {
	Op       Opcode     `cbor:"op"`
	Result   ValueID    `cbor:"result,omitempty"`
	Type     Type       `cbor:"type,omitempty"`
	Args     []Value    `cbor:"args,omitempty"`
	Incoming []Incoming `cbor:"incoming,omitempty"`
	Targets  []BlockID  `cbor:"targets,omitempty"`
}

// Block is an encoded basic block. Phis precede all other instructions and
// the single terminator is last; both invariants were established by
// validation before emission.
type Block struct {
	Label  string    `cbor:"label"`
	Instrs []Instr   `cbor:"instrs"`
	Preds  []BlockID `cbor:"preds,omitempty"`
}

// Param is a typed function parameter.
type Param struct {
	Name string `cbor:"name"`
	Type Type   `cbor:"type"`
}

// Function is an encoded function body: value-numbered instructions over
// indexed blocks. ValueNames maps each ValueID back to its source name for
// diagnostics; execution does not depend on it.
type Function struct {
	Name       string   `cbor:"name"`
	Params     []Param  `cbor:"params"`
	RetType    Type     `cbor:"ret_type"`
	Blocks     []Block  `cbor:"blocks"`
	ValueCount uint32   `cbor:"value_count"`
	ValueNames []string `cbor:"value_names,omitempty"`
}

// Module is a named, immutable collection of compiled functions. The UUID
// is derived from the module's content, so identical input yields an
// identical module identity.
type Module struct {
	UUID      uuid.UUID  `cbor:"uuid"`
	Name      string     `cbor:"name"`
	Functions []Function `cbor:"functions"`
}

// FunctionByName returns the function with the given name, or nil.
func (m *Module) FunctionByName(name string) *Function {
	for i := range m.Functions {
		if m.Functions[i].Name == name {
			return &m.Functions[i]
		}
	}
	return nil
}
