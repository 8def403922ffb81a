// Package lexer implements the tokenizer for the imperative Ourocode rule
// syntax: ALGOL-style assignments, IF/THEN/ELSE/END conditionals and
// WHILE/DO/END loops over the ecosystem state fields.
package lexer

import (
	"fmt"
	"strings"
	"unicode"
)

// TokenType represents the type of a token.
type TokenType int

// String returns a string representation of the token type.
func (tt TokenType) String() string {
	if name, ok := tokenNames[tt]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(tt))
}

// Token types.
const (
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenIdentifier
	TokenNumber

	// Keywords
	TokenIf
	TokenThen
	TokenElse
	TokenEnd
	TokenWhile
	TokenDo

	// Operators
	TokenAssign // :=
	TokenPlus
	TokenMinus
	TokenMul
	TokenDiv
	TokenGt
	TokenLt
	TokenGe
	TokenLe
	TokenEq // ==
	TokenNe // !=

	// Delimiters
	TokenLParen
	TokenRParen
	TokenSemicolon
)

var tokenNames = map[TokenType]string{
	TokenEOF:        "EOF",
	TokenError:      "ERROR",
	TokenIdentifier: "IDENTIFIER",
	TokenNumber:     "NUMBER",
	TokenIf:         "IF",
	TokenThen:       "THEN",
	TokenElse:       "ELSE",
	TokenEnd:        "END",
	TokenWhile:      "WHILE",
	TokenDo:         "DO",
	TokenAssign:     ":=",
	TokenPlus:       "+",
	TokenMinus:      "-",
	TokenMul:        "*",
	TokenDiv:        "/",
	TokenGt:         ">",
	TokenLt:         "<",
	TokenGe:         ">=",
	TokenLe:         "<=",
	TokenEq:         "==",
	TokenNe:         "!=",
	TokenLParen:     "(",
	TokenRParen:     ")",
	TokenSemicolon:  ";",
}

// Keywords are matched case-insensitively so rules may be written in the
// traditional upper-case style or in lower case.
var keywords = map[string]TokenType{
	"if":    TokenIf,
	"then":  TokenThen,
	"else":  TokenElse,
	"end":   TokenEnd,
	"while": TokenWhile,
	"do":    TokenDo,
}

// Token represents a single lexical token with its source position.
type Token struct {
	Type    TokenType
	Literal string
	Line    int // 1-based
	Column  int // 1-based
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%d:%d", t.Type, t.Literal, t.Line, t.Column)
}

// Lexer tokenizes imperative rule source text.
type Lexer struct {
	input  []rune
	pos    int
	line   int
	column int
}

// New creates a lexer over the given source text.
func New(input string) *Lexer {
	return &Lexer{input: []rune(input), line: 1, column: 1}
}

// Tokenize consumes the entire input and returns all tokens up to and
// including EOF. The first error token aborts scanning.
func Tokenize(input string) ([]Token, error) {
	l := New(input)
	var toks []Token
	for {
		tok := l.NextToken()
		if tok.Type == TokenError {
			return nil, fmt.Errorf("lex error at %d:%d: %s", tok.Line, tok.Column, tok.Literal)
		}
		toks = append(toks, tok)
		if tok.Type == TokenEOF {
			return toks, nil
		}
	}
}

// NextToken scans and returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipSpaceAndComments()

	if l.pos >= len(l.input) {
		return l.make(TokenEOF, "")
	}

	startLine, startCol := l.line, l.column
	ch := l.input[l.pos]

	switch {
	case isIdentStart(ch):
		lit := l.scanIdentifier()
		if kw, ok := keywords[strings.ToLower(lit)]; ok {
			return Token{Type: kw, Literal: lit, Line: startLine, Column: startCol}
		}
		return Token{Type: TokenIdentifier, Literal: lit, Line: startLine, Column: startCol}
	case unicode.IsDigit(ch):
		lit, ok := l.scanNumber()
		if !ok {
			return Token{Type: TokenError, Literal: "malformed number " + lit, Line: startLine, Column: startCol}
		}
		return Token{Type: TokenNumber, Literal: lit, Line: startLine, Column: startCol}
	}

	two := l.peekString(2)
	for _, op := range [...]struct {
		lit string
		typ TokenType
	}{
		{":=", TokenAssign},
		{">=", TokenGe},
		{"<=", TokenLe},
		{"==", TokenEq},
		{"!=", TokenNe},
	} {
		if two == op.lit {
			l.advance()
			l.advance()
			return Token{Type: op.typ, Literal: op.lit, Line: startLine, Column: startCol}
		}
	}

	var typ TokenType
	switch ch {
	case '+':
		typ = TokenPlus
	case '-':
		typ = TokenMinus
	case '*':
		typ = TokenMul
	case '/':
		typ = TokenDiv
	case '>':
		typ = TokenGt
	case '<':
		typ = TokenLt
	case '(':
		typ = TokenLParen
	case ')':
		typ = TokenRParen
	case ';':
		typ = TokenSemicolon
	default:
		l.advance()
		return Token{Type: TokenError, Literal: fmt.Sprintf("unexpected character %q", ch), Line: startLine, Column: startCol}
	}
	l.advance()
	return Token{Type: typ, Literal: string(ch), Line: startLine, Column: startCol}
}

func (l *Lexer) make(typ TokenType, lit string) Token {
	return Token{Type: typ, Literal: lit, Line: l.line, Column: l.column}
}

func (l *Lexer) advance() {
	if l.pos < len(l.input) {
		if l.input[l.pos] == '\n' {
			l.line++
			l.column = 1
		} else {
			l.column++
		}
		l.pos++
	}
}

func (l *Lexer) peekString(n int) string {
	if l.pos+n > len(l.input) {
		return ""
	}
	return string(l.input[l.pos : l.pos+n])
}

func (l *Lexer) skipSpaceAndComments() {
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		switch {
		case unicode.IsSpace(ch):
			l.advance()
		case ch == '#':
			// line comment
			for l.pos < len(l.input) && l.input[l.pos] != '\n' {
				l.advance()
			}
		default:
			return
		}
	}
}

func (l *Lexer) scanIdentifier() string {
	start := l.pos
	for l.pos < len(l.input) && isIdentPart(l.input[l.pos]) {
		l.advance()
	}
	return string(l.input[start:l.pos])
}

func (l *Lexer) scanNumber() (string, bool) {
	start := l.pos
	seenDot := false
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == '.' {
			if seenDot {
				return string(l.input[start : l.pos+1]), false
			}
			seenDot = true
			l.advance()
			continue
		}
		if !unicode.IsDigit(ch) {
			break
		}
		l.advance()
	}
	lit := string(l.input[start:l.pos])
	if strings.HasSuffix(lit, ".") {
		return lit, false
	}
	return lit, true
}

func isIdentStart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isIdentPart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch) || unicode.IsDigit(ch)
}
