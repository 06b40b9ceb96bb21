package compiler

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Typed errors for every pipeline stage
// ---------------------------------------------------------------------------

// LexError reports an unrecognized character or malformed token. Recovery
// policy belongs to the parser; the lexer only fails the current token.
type LexError struct {
	Pos    Position
	Reason string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lex error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Reason)
}

// ParseError reports the first unrecoverable syntactic deviation.
type ParseError struct {
	Pos      Position
	Expected string
	Found    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: expected %s, found %s",
		e.Pos.Line, e.Pos.Column, e.Expected, e.Found)
}

// CFGError reports a terminator referencing an undefined block label.
type CFGError struct {
	Function     string
	MissingLabel string
	Pos          Position
}

func (e *CFGError) Error() string {
	return fmt.Sprintf("cfg error in function %s: terminator references undefined block %q (line %d)",
		e.Function, e.MissingLabel, e.Pos.Line)
}

// UnreachableError reports a block unreachable from the entry block. Only
// returned when Options.FailUnreachable is set; the default behavior is a
// diagnostic warning.
type UnreachableError struct {
	Function string
	Block    string
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("cfg error in function %s: block %q is unreachable from entry", e.Function, e.Block)
}

// SSAErrorKind enumerates the SSA validation failure classes.
type SSAErrorKind int

const (
	SSADuplicateDefinition SSAErrorKind = iota
	SSAUseBeforeDefinition
	SSAPhiArityMismatch
	SSATypeMismatch
	SSAMalformedTerminator
	SSAMisplacedPhi
)

func (k SSAErrorKind) String() string {
	switch k {
	case SSADuplicateDefinition:
		return "DuplicateDefinition"
	case SSAUseBeforeDefinition:
		return "UseBeforeDefinition"
	case SSAPhiArityMismatch:
		return "PhiArityMismatch"
	case SSATypeMismatch:
		return "TypeMismatch"
	case SSAMalformedTerminator:
		return "MalformedTerminator"
	case SSAMisplacedPhi:
		return "MisplacedPhi"
	default:
		return fmt.Sprintf("SSAErrorKind(%d)", k)
	}
}

// SSAError reports an SSA discipline violation. Fields beyond Kind,
// Function and Pos are populated per kind.
type SSAError struct {
	Kind     SSAErrorKind
	Function string
	Block    string
	Value    string // duplicate/undefined value name
	Pos      Position

	// PhiArityMismatch
	ExpectedPreds []string
	ActualPreds   []string

	// TypeMismatch
	Instruction string
	Expected    string
	Actual      string

	Detail string
}

func (e *SSAError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "ssa error [%s] in function %s", e.Kind, e.Function)
	if e.Block != "" {
		fmt.Fprintf(&sb, ", block %s", e.Block)
	}
	switch e.Kind {
	case SSADuplicateDefinition:
		fmt.Fprintf(&sb, ": value %%%s defined more than once", e.Value)
	case SSAUseBeforeDefinition:
		fmt.Fprintf(&sb, ": value %%%s used before definition", e.Value)
	case SSAPhiArityMismatch:
		fmt.Fprintf(&sb, ": phi predecessors [%s] do not match block predecessors [%s]",
			strings.Join(e.ActualPreds, " "), strings.Join(e.ExpectedPreds, " "))
	case SSATypeMismatch:
		fmt.Fprintf(&sb, ": %s: expected %s, got %s", e.Instruction, e.Expected, e.Actual)
	case SSAMalformedTerminator:
		fmt.Fprintf(&sb, ": %s", e.Detail)
	case SSAMisplacedPhi:
		fmt.Fprintf(&sb, ": phi %%%s appears after a non-phi instruction", e.Value)
	}
	if e.Pos.Line > 0 {
		fmt.Fprintf(&sb, " (line %d)", e.Pos.Line)
	}
	return sb.String()
}

// ---------------------------------------------------------------------------
// Diagnostics and pipeline options
// ---------------------------------------------------------------------------

// DiagLevel is the severity of a pipeline diagnostic.
type DiagLevel int

const (
	DiagTrace DiagLevel = iota
	DiagDebug
	DiagInfo
	DiagWarn
	DiagError
)

func (l DiagLevel) String() string {
	switch l {
	case DiagTrace:
		return "trace"
	case DiagDebug:
		return "debug"
	case DiagInfo:
		return "info"
	case DiagWarn:
		return "warn"
	case DiagError:
		return "error"
	default:
		return fmt.Sprintf("DiagLevel(%d)", l)
	}
}

// DiagSink receives diagnostics emitted by pipeline stages, synchronously
// and in emission order. The origin identifies the emitting component,
// e.g. "ssa_validator".
type DiagSink interface {
	Diag(level DiagLevel, origin, msg string)
}

type discardSink struct{}

func (discardSink) Diag(DiagLevel, string, string) {}

// Options configures the compile pipeline.
type Options struct {
	// Sink receives stage diagnostics. nil discards them.
	Sink DiagSink

	// BatchDiagnostics makes the SSA validator collect every violation
	// before failing instead of stopping at the first one. Off by default.
	BatchDiagnostics bool

	// FailUnreachable turns unreachable-block warnings into errors.
	FailUnreachable bool
}

func (o Options) sink() DiagSink {
	if o.Sink == nil {
		return discardSink{}
	}
	return o.Sink
}
