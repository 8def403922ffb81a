package parser

import (
	"fmt"
	"strconv"

	"github.com/ourocode-lang/ourocode/internal/lexer"
)

// ParseError reports a syntax error with its source position.
type ParseError struct {
	Pos     Position
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %s: %s", e.Pos, e.Message)
}

// Parser is a recursive-descent parser for the imperative rule syntax.
type Parser struct {
	tokens []lexer.Token
	pos    int
}

// Parse tokenizes and parses an imperative rule program. The result is a
// single top-level block holding the statement sequence.
func Parse(source string) (*BlockStmt, error) {
	toks, err := lexer.Tokenize(source)
	if err != nil {
		return nil, err
	}
	p := &Parser{tokens: toks}
	return p.parseProgram()
}

func (p *Parser) parseProgram() (*BlockStmt, error) {
	block := &BlockStmt{Position: tokenPos(p.current())}
	for p.current().Type != lexer.TokenEOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		block.Statements = append(block.Statements, stmt)
	}
	return block, nil
}

func (p *Parser) parseStatement() (Statement, error) {
	tok := p.current()
	switch tok.Type {
	case lexer.TokenIdentifier:
		return p.parseAssignment()
	case lexer.TokenIf:
		return p.parseIf()
	case lexer.TokenWhile:
		return p.parseWhile()
	default:
		return nil, p.errorf("expected statement, found %s", tok.Type)
	}
}

func (p *Parser) parseAssignment() (Statement, error) {
	tok := p.current()
	name := tok.Literal
	p.advance()
	if _, err := p.expect(lexer.TokenAssign); err != nil {
		return nil, err
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	p.accept(lexer.TokenSemicolon)
	return &Assignment{Name: name, Value: value, Position: tokenPos(tok)}, nil
}

func (p *Parser) parseIf() (Statement, error) {
	tok := p.current()
	p.advance() // IF
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokenThen); err != nil {
		return nil, err
	}
	then, err := p.parseBranch(lexer.TokenElse, lexer.TokenEnd)
	if err != nil {
		return nil, err
	}
	var elseBranch *BlockStmt
	if p.current().Type == lexer.TokenElse {
		p.advance()
		elseBranch, err = p.parseBranch(lexer.TokenEnd)
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.TokenEnd); err != nil {
		return nil, err
	}
	p.accept(lexer.TokenSemicolon)
	return &IfStmt{Cond: cond, Then: then, Else: elseBranch, Position: tokenPos(tok)}, nil
}

func (p *Parser) parseWhile() (Statement, error) {
	tok := p.current()
	p.advance() // WHILE
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokenDo); err != nil {
		return nil, err
	}
	body, err := p.parseBranch(lexer.TokenEnd)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokenEnd); err != nil {
		return nil, err
	}
	p.accept(lexer.TokenSemicolon)
	return &WhileStmt{Cond: cond, Body: body, Position: tokenPos(tok)}, nil
}

// parseBranch collects statements until one of the stop keywords (which is
// left for the caller to consume).
func (p *Parser) parseBranch(stop ...lexer.TokenType) (*BlockStmt, error) {
	block := &BlockStmt{Position: tokenPos(p.current())}
	for {
		tok := p.current()
		if tok.Type == lexer.TokenEOF {
			return nil, p.errorf("unexpected EOF, expected END")
		}
		for _, s := range stop {
			if tok.Type == s {
				return block, nil
			}
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		block.Statements = append(block.Statements, stmt)
	}
}

// Expression grammar, lowest precedence first:
//
//	comparison := additive (cmpOp additive)?
//	additive   := multiplicative (('+'|'-') multiplicative)*
//	multiplicative := unary (('*'|'/') unary)*
//	unary      := '-' unary | primary
//	primary    := NUMBER | IDENT | '(' comparison ')'
func (p *Parser) parseExpression() (Expression, error) {
	return p.parseComparison()
}

func (p *Parser) parseComparison() (Expression, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	tok := p.current()
	switch tok.Type {
	case lexer.TokenGt, lexer.TokenLt, lexer.TokenGe, lexer.TokenLe, lexer.TokenEq, lexer.TokenNe:
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &BinaryExpr{Op: tok.Literal, Left: left, Right: right, Position: tokenPos(tok)}, nil
	}
	return left, nil
}

func (p *Parser) parseAdditive() (Expression, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.current()
		if tok.Type != lexer.TokenPlus && tok.Type != lexer.TokenMinus {
			return left, nil
		}
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: tok.Literal, Left: left, Right: right, Position: tokenPos(tok)}
	}
}

func (p *Parser) parseMultiplicative() (Expression, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.current()
		if tok.Type != lexer.TokenMul && tok.Type != lexer.TokenDiv {
			return left, nil
		}
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: tok.Literal, Left: left, Right: right, Position: tokenPos(tok)}
	}
}

func (p *Parser) parseUnary() (Expression, error) {
	tok := p.current()
	if tok.Type == lexer.TokenMinus {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: "-", Operand: operand, Position: tokenPos(tok)}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (Expression, error) {
	tok := p.current()
	switch tok.Type {
	case lexer.TokenNumber:
		val, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			return nil, p.errorf("invalid number %q", tok.Literal)
		}
		p.advance()
		return &NumberLit{Value: val, Literal: tok.Literal, Position: tokenPos(tok)}, nil
	case lexer.TokenIdentifier:
		p.advance()
		return &Ident{Name: tok.Literal, Position: tokenPos(tok)}, nil
	case lexer.TokenLParen:
		p.advance()
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokenRParen); err != nil {
			return nil, err
		}
		return inner, nil
	default:
		return nil, p.errorf("expected expression, found %s", tok.Type)
	}
}

func (p *Parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return lexer.Token{Type: lexer.TokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) advance() {
	if p.pos < len(p.tokens) {
		p.pos++
	}
}

func (p *Parser) expect(typ lexer.TokenType) (lexer.Token, error) {
	tok := p.current()
	if tok.Type != typ {
		return tok, p.errorf("expected %s, found %s", typ, tok.Type)
	}
	p.advance()
	return tok, nil
}

// accept consumes the token if present and reports whether it did.
func (p *Parser) accept(typ lexer.TokenType) bool {
	if p.current().Type == typ {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) errorf(format string, args ...interface{}) error {
	tok := p.current()
	return &ParseError{Pos: tokenPos(tok), Message: fmt.Sprintf(format, args...)}
}

func tokenPos(t lexer.Token) Position {
	return Position{Line: t.Line, Column: t.Column}
}
