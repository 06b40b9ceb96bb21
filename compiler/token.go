package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token types for the SSA assembly lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenInteger    // 42, -7
	TokenIdentifier // entry, i32, icmp.eq
	TokenLocal      // %acc (value reference, lexeme without the %)

	// Delimiters
	TokenColon    // :
	TokenComma    // ,
	TokenEquals   // =
	TokenLParen   // (
	TokenRParen   // )
	TokenLBracket // [
	TokenRBracket // ]

	// Reserved identifiers
	TokenDefine
	TokenPhi
	TokenJump
	TokenBranch
	TokenRet
)

var tokenNames = map[TokenType]string{
	TokenEOF:        "EOF",
	TokenError:      "ERROR",
	TokenInteger:    "INTEGER",
	TokenIdentifier: "IDENTIFIER",
	TokenLocal:      "LOCAL",
	TokenColon:      ":",
	TokenComma:      ",",
	TokenEquals:     "=",
	TokenLParen:     "(",
	TokenRParen:     ")",
	TokenLBracket:   "[",
	TokenRBracket:   "]",
	TokenDefine:     "define",
	TokenPhi:        "phi",
	TokenJump:       "jump",
	TokenBranch:     "branch",
	TokenRet:        "ret",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string   // the raw text (for locals, without the leading %)
	Pos     Position // start position
}

func (t Token) String() string {
	if t.Type == TokenEOF {
		return "EOF"
	}
	if t.Type == TokenError {
		return fmt.Sprintf("ERROR(%s)", t.Literal)
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}

// Reserved words mapped to their token types.
var reservedWords = map[string]TokenType{
	"define": TokenDefine,
	"phi":    TokenPhi,
	"jump":   TokenJump,
	"branch": TokenBranch,
	"ret":    TokenRet,
}
