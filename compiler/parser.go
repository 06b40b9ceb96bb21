package compiler

import (
	"fmt"
	"strconv"
)

// ---------------------------------------------------------------------------
// Parser: Recursive descent parser for SSA assembly syntax
// ---------------------------------------------------------------------------

// Parser parses assembly source into an unvalidated abstract module. It
// stops at the first hard error; the error is a *LexError or *ParseError.
type Parser struct {
	lexer     *Lexer
	curToken  Token
	peekToken Token
	err       error
}

// NewParser creates a new parser for the given input.
func NewParser(input string) *Parser {
	p := &Parser{
		lexer: NewLexer(input),
	}
	// Read two tokens to fill curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

// nextToken advances to the next token, recording the first lexer failure.
func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
	if p.peekToken.Type == TokenError && p.err == nil {
		p.err = &LexError{Pos: p.peekToken.Pos, Reason: p.peekToken.Literal}
	}
}

// curTokenIs checks if the current token is of the given type.
func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

// peekTokenIs checks if the peek token is of the given type.
func (p *Parser) peekTokenIs(t TokenType) bool {
	return p.peekToken.Type == t
}

// expect consumes the current token if it matches, otherwise records an
// error. Returns the consumed token.
func (p *Parser) expect(t TokenType) Token {
	tok := p.curToken
	if !p.curTokenIs(t) {
		p.errorf(t.String(), p.curToken.String())
		return tok
	}
	p.nextToken()
	return tok
}

// errorf records the first parse error.
func (p *Parser) errorf(expected, found string) {
	if p.err == nil {
		p.err = &ParseError{Pos: p.curToken.Pos, Expected: expected, Found: found}
	}
}

// Err returns the recorded error, if any.
func (p *Parser) Err() error {
	return p.err
}

// ---------------------------------------------------------------------------
// Top-level parsing
// ---------------------------------------------------------------------------

// ParseFunctions parses every function definition in the input.
func (p *Parser) ParseFunctions() ([]*Function, error) {
	var fns []*Function
	for p.err == nil && !p.curTokenIs(TokenEOF) {
		fn := p.parseFunction()
		if p.err != nil {
			return nil, p.err
		}
		fns = append(fns, fn)
	}
	return fns, p.err
}

// parseFunction parses: define <ret-type> <name>(<params>) followed by the
// function's blocks. The body runs to the next define or EOF.
func (p *Parser) parseFunction() *Function {
	startPos := p.curToken.Pos
	p.expect(TokenDefine)

	retType := p.parseType()
	name := p.expect(TokenIdentifier)

	p.expect(TokenLParen)
	var params []Param
	if !p.curTokenIs(TokenRParen) {
		params = append(params, p.parseParam())
		for p.err == nil && p.curTokenIs(TokenComma) {
			p.nextToken()
			params = append(params, p.parseParam())
		}
	}
	p.expect(TokenRParen)

	fn := &Function{
		Pos:     startPos,
		Name:    name.Literal,
		Params:  params,
		RetType: retType,
	}

	// Blocks until the next function or EOF
	seen := make(map[string]bool)
	for p.err == nil && p.curTokenIs(TokenIdentifier) && p.peekTokenIs(TokenColon) {
		block := p.parseBlock()
		if seen[block.Label] {
			p.errorf("unique block label", strconv.Quote(block.Label))
			break
		}
		seen[block.Label] = true
		fn.Blocks = append(fn.Blocks, block)
	}

	if p.err == nil && len(fn.Blocks) == 0 {
		p.errorf("block label", p.curToken.String())
	}

	return fn
}

// parseParam parses %name: type.
func (p *Parser) parseParam() Param {
	tok := p.expect(TokenLocal)
	p.expect(TokenColon)
	ty := p.parseType()
	return Param{Name: tok.Literal, Type: ty, Pos: tok.Pos}
}

// parseType parses a type name of the form iN.
func (p *Parser) parseType() Type {
	tok := p.curToken
	if !p.curTokenIs(TokenIdentifier) {
		p.errorf("type", tok.String())
		return Type{}
	}
	ty, ok := ParseType(tok.Literal)
	if !ok {
		p.errorf("type", strconv.Quote(tok.Literal))
		return Type{}
	}
	p.nextToken()
	return ty
}

// ---------------------------------------------------------------------------
// Block and instruction parsing
// ---------------------------------------------------------------------------

// parseBlock parses a labeled block and its instruction lines. The block
// ends at the next label, the next define, or EOF.
func (p *Parser) parseBlock() *Block {
	label := p.expect(TokenIdentifier)
	p.expect(TokenColon)

	block := &Block{Pos: label.Pos, Label: label.Literal}

	for p.err == nil {
		switch {
		case p.curTokenIs(TokenEOF) || p.curTokenIs(TokenDefine):
			return block
		case p.curTokenIs(TokenIdentifier) && p.peekTokenIs(TokenColon):
			// Next block label
			return block
		case p.curTokenIs(TokenLocal):
			block.Instructions = append(block.Instructions, p.parseValueInstruction())
		case p.curTokenIs(TokenJump) || p.curTokenIs(TokenBranch) || p.curTokenIs(TokenRet):
			block.Instructions = append(block.Instructions, p.parseTerminator())
		default:
			p.errorf("instruction or terminator", p.curToken.String())
		}
	}

	return block
}

// parseValueInstruction parses <result>: <type> = <op> <operands> or the
// phi form <result>: <type> = phi [<value>, <label>], ...
func (p *Parser) parseValueInstruction() *Instruction {
	result := p.expect(TokenLocal)
	p.expect(TokenColon)
	ty := p.parseType()
	p.expect(TokenEquals)

	instr := &Instruction{
		Pos:    result.Pos,
		Result: result.Literal,
		Type:   ty,
	}

	switch {
	case p.curTokenIs(TokenPhi):
		p.nextToken()
		instr.Op = "phi"
		instr.Incoming = append(instr.Incoming, p.parsePhiIncoming())
		for p.err == nil && p.curTokenIs(TokenComma) {
			p.nextToken()
			instr.Incoming = append(instr.Incoming, p.parsePhiIncoming())
		}

	case p.curTokenIs(TokenIdentifier):
		instr.Op = p.curToken.Literal
		p.nextToken()
		instr.Args = append(instr.Args, p.parseValueOperand())
		for p.err == nil && p.curTokenIs(TokenComma) {
			p.nextToken()
			instr.Args = append(instr.Args, p.parseValueOperand())
		}

	default:
		p.errorf("operation name", p.curToken.String())
	}

	return instr
}

// parsePhiIncoming parses one [<value>, <label>] pair.
func (p *Parser) parsePhiIncoming() PhiIncoming {
	open := p.expect(TokenLBracket)
	value := p.parseValueOperand()
	p.expect(TokenComma)
	pred := p.expect(TokenIdentifier)
	p.expect(TokenRBracket)
	return PhiIncoming{Value: value, Pred: pred.Literal, Pos: open.Pos}
}

// parseTerminator parses jump <label>, branch <cond>, <lt>, <lf>, or
// ret <value-or-none>.
func (p *Parser) parseTerminator() *Instruction {
	tok := p.curToken
	instr := &Instruction{Pos: tok.Pos}

	switch tok.Type {
	case TokenJump:
		instr.Op = "jump"
		p.nextToken()
		instr.Args = append(instr.Args, p.parseLabelOperand())

	case TokenBranch:
		instr.Op = "branch"
		p.nextToken()
		instr.Args = append(instr.Args, p.parseValueOperand())
		p.expect(TokenComma)
		instr.Args = append(instr.Args, p.parseLabelOperand())
		p.expect(TokenComma)
		instr.Args = append(instr.Args, p.parseLabelOperand())

	case TokenRet:
		instr.Op = "ret"
		p.nextToken()
		if p.hasRetValue() {
			instr.Args = append(instr.Args, p.parseValueOperand())
		}
	}

	return instr
}

// hasRetValue distinguishes ret <value> from a bare ret followed by the
// next block label, function or EOF.
func (p *Parser) hasRetValue() bool {
	if p.curTokenIs(TokenLocal) {
		return true
	}
	// A typed immediate: type identifier followed by an integer
	return p.curTokenIs(TokenIdentifier) && p.peekTokenIs(TokenInteger)
}

// parseValueOperand parses a %name reference or a typed immediate.
func (p *Parser) parseValueOperand() Operand {
	switch {
	case p.curTokenIs(TokenLocal):
		tok := p.curToken
		p.nextToken()
		return Operand{Kind: OperandRef, Ref: tok.Literal, Pos: tok.Pos}

	case p.curTokenIs(TokenIdentifier):
		pos := p.curToken.Pos
		ty := p.parseType()
		tok := p.expect(TokenInteger)
		if p.err != nil {
			return Operand{Pos: pos}
		}
		value, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			p.errorf("integer immediate", strconv.Quote(tok.Literal))
			return Operand{Pos: pos}
		}
		if !ty.FitsValue(value) {
			p.errorf(fmt.Sprintf("immediate representable in %s", ty), tok.Literal)
			return Operand{Pos: pos}
		}
		return Operand{Kind: OperandImm, Imm: Imm{Type: ty, Value: value}, Pos: pos}

	default:
		p.errorf("value operand", p.curToken.String())
		return Operand{Pos: p.curToken.Pos}
	}
}

// parseLabelOperand parses a bare block label reference.
func (p *Parser) parseLabelOperand() Operand {
	tok := p.expect(TokenIdentifier)
	return Operand{Kind: OperandLabel, Label: tok.Literal, Pos: tok.Pos}
}

// ---------------------------------------------------------------------------
// Convenience entry point
// ---------------------------------------------------------------------------

// ParseSource parses one source unit into functions. The filename is a
// diagnostic label only.
func ParseSource(filename, src string) ([]*Function, error) {
	p := NewParser(src)
	fns, err := p.ParseFunctions()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return fns, nil
}
