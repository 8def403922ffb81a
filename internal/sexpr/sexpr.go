// Package sexpr implements the S-expression front end. It reads programs of
// the form
//
//	(begin
//	  (set! mutation-rate 0.1)
//	  (if (> population 100)
//	      (set! mutation-rate 0.05)
//	      (set! mutation-rate 0.1)))
//
// and produces the same AST as the imperative front end, so both lower to
// behaviorally identical modules.
package sexpr

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/ourocode-lang/ourocode/internal/parser"
)

// ParseError reports a malformed S-expression.
type ParseError struct {
	Pos     parser.Position
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("sexpr parse error at %s: %s", e.Pos, e.Message)
}

// node is one datum of the surface syntax: an atom or a list.
type node struct {
	atom     string
	children []*node
	isList   bool
	pos      parser.Position
}

// Parse reads an S-expression program and returns it as a statement block.
// The top level may be a single (begin ...) form or a bare sequence of
// statement forms.
func Parse(source string) (*parser.BlockStmt, error) {
	r := &reader{input: []rune(source), line: 1, column: 1}
	var forms []*node
	for {
		r.skipSpace()
		if r.eof() {
			break
		}
		n, err := r.read()
		if err != nil {
			return nil, err
		}
		forms = append(forms, n)
	}

	// A single top-level (begin ...) unwraps to its body.
	if len(forms) == 1 && forms[0].isList && len(forms[0].children) > 0 &&
		forms[0].children[0].atom == "begin" {
		forms = forms[0].children[1:]
	}

	block := &parser.BlockStmt{}
	if len(forms) > 0 {
		block.Position = forms[0].pos
	}
	for _, f := range forms {
		stmt, err := toStatement(f)
		if err != nil {
			return nil, err
		}
		block.Statements = append(block.Statements, stmt)
	}
	return block, nil
}

// reader scans atoms and parenthesized lists.
type reader struct {
	input  []rune
	pos    int
	line   int
	column int
}

func (r *reader) read() (*node, error) {
	r.skipSpace()
	if r.eof() {
		return nil, r.errorf("unexpected EOF")
	}
	pos := r.position()
	ch := r.input[r.pos]
	if ch == '(' {
		r.advance()
		list := &node{isList: true, pos: pos}
		for {
			r.skipSpace()
			if r.eof() {
				return nil, r.errorf("unclosed list")
			}
			if r.input[r.pos] == ')' {
				r.advance()
				return list, nil
			}
			child, err := r.read()
			if err != nil {
				return nil, err
			}
			list.children = append(list.children, child)
		}
	}
	if ch == ')' {
		return nil, r.errorf("unexpected )")
	}
	start := r.pos
	for !r.eof() && !unicode.IsSpace(r.input[r.pos]) && r.input[r.pos] != '(' && r.input[r.pos] != ')' {
		r.advance()
	}
	return &node{atom: string(r.input[start:r.pos]), pos: pos}, nil
}

func (r *reader) skipSpace() {
	for !r.eof() {
		ch := r.input[r.pos]
		if unicode.IsSpace(ch) {
			r.advance()
			continue
		}
		if ch == ';' {
			// comment to end of line
			for !r.eof() && r.input[r.pos] != '\n' {
				r.advance()
			}
			continue
		}
		return
	}
}

func (r *reader) advance() {
	if r.pos < len(r.input) {
		if r.input[r.pos] == '\n' {
			r.line++
			r.column = 1
		} else {
			r.column++
		}
		r.pos++
	}
}

func (r *reader) eof() bool { return r.pos >= len(r.input) }

func (r *reader) position() parser.Position {
	return parser.Position{Line: r.line, Column: r.column}
}

func (r *reader) errorf(format string, args ...interface{}) error {
	return &ParseError{Pos: r.position(), Message: fmt.Sprintf(format, args...)}
}

func toStatement(n *node) (parser.Statement, error) {
	if !n.isList || len(n.children) == 0 {
		return nil, &ParseError{Pos: n.pos, Message: "expected statement form"}
	}
	head := n.children[0]
	args := n.children[1:]
	switch head.atom {
	case "set!":
		if len(args) != 2 {
			return nil, &ParseError{Pos: n.pos, Message: "set! expects (set! name expr)"}
		}
		if args[0].isList {
			return nil, &ParseError{Pos: args[0].pos, Message: "set! target must be an identifier"}
		}
		value, err := toExpression(args[1])
		if err != nil {
			return nil, err
		}
		return &parser.Assignment{Name: args[0].atom, Value: value, Position: n.pos}, nil
	case "if":
		if len(args) != 2 && len(args) != 3 {
			return nil, &ParseError{Pos: n.pos, Message: "if expects (if cond then [else])"}
		}
		cond, err := toExpression(args[0])
		if err != nil {
			return nil, err
		}
		then, err := toBranch(args[1])
		if err != nil {
			return nil, err
		}
		var elseBranch *parser.BlockStmt
		if len(args) == 3 {
			elseBranch, err = toBranch(args[2])
			if err != nil {
				return nil, err
			}
		}
		return &parser.IfStmt{Cond: cond, Then: then, Else: elseBranch, Position: n.pos}, nil
	case "while":
		if len(args) < 2 {
			return nil, &ParseError{Pos: n.pos, Message: "while expects (while cond body...)"}
		}
		cond, err := toExpression(args[0])
		if err != nil {
			return nil, err
		}
		body := &parser.BlockStmt{Position: args[1].pos}
		for _, b := range args[1:] {
			stmt, err := toStatement(b)
			if err != nil {
				return nil, err
			}
			body.Statements = append(body.Statements, stmt)
		}
		return &parser.WhileStmt{Cond: cond, Body: body, Position: n.pos}, nil
	case "begin":
		block := &parser.BlockStmt{Position: n.pos}
		for _, b := range args {
			stmt, err := toStatement(b)
			if err != nil {
				return nil, err
			}
			block.Statements = append(block.Statements, stmt)
		}
		return block, nil
	default:
		return nil, &ParseError{Pos: n.pos, Message: fmt.Sprintf("unknown statement form %q", head.atom)}
	}
}

// toBranch converts an if arm, which may be a single statement form or a
// (begin ...) sequence, to a block.
func toBranch(n *node) (*parser.BlockStmt, error) {
	stmt, err := toStatement(n)
	if err != nil {
		return nil, err
	}
	if block, ok := stmt.(*parser.BlockStmt); ok {
		return block, nil
	}
	return &parser.BlockStmt{Statements: []parser.Statement{stmt}, Position: n.pos}, nil
}

// operator spellings accepted in expression position.
var operators = map[string]string{
	"+":  "+",
	"-":  "-",
	"*":  "*",
	"/":  "/",
	">":  ">",
	"<":  "<",
	">=": ">=",
	"<=": "<=",
	"=":  "==",
	"==": "==",
	"!=": "!=",
	"/=": "!=",
}

func toExpression(n *node) (parser.Expression, error) {
	if !n.isList {
		if v, err := strconv.ParseFloat(n.atom, 64); err == nil {
			return &parser.NumberLit{Value: v, Literal: n.atom, Position: n.pos}, nil
		}
		return &parser.Ident{Name: n.atom, Position: n.pos}, nil
	}
	if len(n.children) == 0 {
		return nil, &ParseError{Pos: n.pos, Message: "empty expression"}
	}
	head := n.children[0]
	op, ok := operators[head.atom]
	if !ok {
		return nil, &ParseError{Pos: head.pos, Message: fmt.Sprintf("unknown operator %q", head.atom)}
	}
	args := n.children[1:]
	if op == "-" && len(args) == 1 {
		operand, err := toExpression(args[0])
		if err != nil {
			return nil, err
		}
		return &parser.UnaryExpr{Op: "-", Operand: operand, Position: n.pos}, nil
	}
	if len(args) < 2 {
		return nil, &ParseError{Pos: n.pos, Message: fmt.Sprintf("operator %q expects two operands", head.atom)}
	}
	if isComparison(op) && len(args) != 2 {
		return nil, &ParseError{Pos: n.pos, Message: fmt.Sprintf("comparison %q expects exactly two operands", head.atom)}
	}
	// Variadic arithmetic folds left: (+ a b c) is ((a + b) + c).
	left, err := toExpression(args[0])
	if err != nil {
		return nil, err
	}
	for _, a := range args[1:] {
		right, err := toExpression(a)
		if err != nil {
			return nil, err
		}
		left = &parser.BinaryExpr{Op: op, Left: left, Right: right, Position: n.pos}
	}
	return left, nil
}

func isComparison(op string) bool {
	return strings.ContainsAny(op, "<>") || op == "==" || op == "!="
}
