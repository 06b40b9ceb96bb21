package compiler

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Abstract module: the unvalidated output of the parser
// ---------------------------------------------------------------------------

// Position represents a source location.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

// Type is a width-typed integer type (i1, i32, ...).
type Type struct {
	Bits int
}

// Integer type width limits.
const (
	MinTypeBits = 1
	MaxTypeBits = 64
)

func (t Type) String() string {
	return fmt.Sprintf("i%d", t.Bits)
}

// IsZero reports whether t is the zero Type (no type recorded).
func (t Type) IsZero() bool {
	return t.Bits == 0
}

// ParseType parses a type name of the form iN. Returns false if the name is
// not a valid type.
func ParseType(name string) (Type, bool) {
	if !strings.HasPrefix(name, "i") {
		return Type{}, false
	}
	bits := 0
	for _, r := range name[1:] {
		if r < '0' || r > '9' {
			return Type{}, false
		}
		bits = bits*10 + int(r-'0')
		if bits > MaxTypeBits {
			return Type{}, false
		}
	}
	if len(name) < 2 || bits < MinTypeBits {
		return Type{}, false
	}
	return Type{Bits: bits}, true
}

// FitsValue reports whether v is representable in t, allowing both the
// signed and unsigned interpretation of the width.
func (t Type) FitsValue(v int64) bool {
	if t.Bits >= 64 {
		return true
	}
	min := -(int64(1) << (t.Bits - 1))
	max := (int64(1) << t.Bits) - 1
	return v >= min && v <= max
}

// OperandKind distinguishes the three operand forms.
type OperandKind int

const (
	// OperandRef is a %name reference to an SSA value.
	OperandRef OperandKind = iota

	// OperandImm is a typed immediate, e.g. i32 0.
	OperandImm

	// OperandLabel is a block label reference in a terminator.
	OperandLabel
)

// Operand is a value reference, a typed immediate, or a block label.
type Operand struct {
	Kind  OperandKind
	Pos   Position
	Ref   string // OperandRef: value name (without %)
	Label string // OperandLabel: block label
	Imm   Imm    // OperandImm
}

// Imm is a typed integer immediate.
type Imm struct {
	Type  Type
	Value int64
}

func (o Operand) String() string {
	switch o.Kind {
	case OperandRef:
		return "%" + o.Ref
	case OperandImm:
		return fmt.Sprintf("%s %d", o.Imm.Type, o.Imm.Value)
	case OperandLabel:
		return o.Label
	default:
		return fmt.Sprintf("Operand(%d)", o.Kind)
	}
}

// PhiIncoming is one [value, label] pair of a phi instruction.
type PhiIncoming struct {
	Value Operand
	Pred  string // predecessor block label
	Pos   Position
}

// Instruction is a single operation: an ordinary value-producing
// instruction, a phi, or a terminator. Terminators never define a result.
type Instruction struct {
	Pos      Position
	Result   string // defined value name, "" for terminators
	Type     Type   // declared result type, zero for terminators
	Op       string // operation tag: icmp.eq, phi, jump, ...
	Args     []Operand
	Incoming []PhiIncoming // phi instructions only
}

// IsPhi reports whether the instruction is a phi-node.
func (in *Instruction) IsPhi() bool {
	return in.Op == "phi"
}

// IsTerminator reports whether the instruction ends a basic block.
func (in *Instruction) IsTerminator() bool {
	switch in.Op {
	case "jump", "branch", "ret":
		return true
	}
	return false
}

func (in *Instruction) String() string {
	var sb strings.Builder
	if in.Result != "" {
		fmt.Fprintf(&sb, "%%%s: %s = ", in.Result, in.Type)
	}
	sb.WriteString(in.Op)
	if in.IsPhi() {
		for i, inc := range in.Incoming {
			if i > 0 {
				sb.WriteString(",")
			}
			fmt.Fprintf(&sb, " [%s, %s]", inc.Value, inc.Pred)
		}
		return sb.String()
	}
	for i, arg := range in.Args {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(" " + arg.String())
	}
	return sb.String()
}

// Block is a labeled basic block: an ordered instruction sequence. Phi
// ordering and terminator placement are checked by the SSA validator, not
// here.
type Block struct {
	Pos          Position
	Label        string
	Instructions []*Instruction

	// CFG edges, filled by BuildCFG.
	Preds []*Block
	Succs []*Block
}

// Terminators returns the terminator instructions of the block, in order.
func (b *Block) Terminators() []*Instruction {
	var terms []*Instruction
	for _, in := range b.Instructions {
		if in.IsTerminator() {
			terms = append(terms, in)
		}
	}
	return terms
}

// Param is a typed function parameter.
type Param struct {
	Name string
	Type Type
	Pos  Position
}

// Function is a named function: parameters, return type, and the blocks of
// its body. The first block is the entry block.
type Function struct {
	Pos     Position
	Name    string
	Params  []Param
	RetType Type
	Blocks  []*Block

	byLabel map[string]*Block
}

// Entry returns the function's entry block, or nil for an empty function.
func (f *Function) Entry() *Block {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// BlockByLabel returns the block with the given label, or nil.
func (f *Function) BlockByLabel(label string) *Block {
	if f.byLabel == nil {
		f.byLabel = make(map[string]*Block, len(f.Blocks))
		for _, b := range f.Blocks {
			f.byLabel[b.Label] = b
		}
	}
	return f.byLabel[label]
}

// Module is a named collection of functions, unvalidated until it has been
// through the CFG builder and SSA validator.
type Module struct {
	Name      string
	Functions []*Function
}

// AddFunction appends fn, rejecting duplicate function names.
func (m *Module) AddFunction(fn *Function) error {
	for _, existing := range m.Functions {
		if existing.Name == fn.Name {
			return &ParseError{
				Pos:      fn.Pos,
				Expected: "unique function name",
				Found:    fn.Name,
			}
		}
	}
	m.Functions = append(m.Functions, fn)
	return nil
}

// FunctionByName returns the function with the given name, or nil.
func (m *Module) FunctionByName(name string) *Function {
	for _, fn := range m.Functions {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}
