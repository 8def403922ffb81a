// Package parser implements the imperative front end and the AST node
// definitions shared by every Ourocode front end.
package parser

import (
	"fmt"
	"strings"
)

// Position represents a source code position.
type Position struct {
	Line   int // 1-based
	Column int // 1-based
}

// String returns a string representation of the position.
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Node is the base interface for all AST nodes.
type Node interface {
	Pos() Position
	String() string
}

// Statement represents all statement nodes.
type Statement interface {
	Node
	statementNode()
}

// Expression represents all expression nodes.
type Expression interface {
	Node
	expressionNode()
}

// Assignment is `identifier := expression`.
type Assignment struct {
	Name     string
	Value    Expression
	Position Position
}

// IfStmt is a conditional with an optional else branch.
type IfStmt struct {
	Cond     Expression
	Then     *BlockStmt
	Else     *BlockStmt // nil when absent
	Position Position
}

// WhileStmt is a conditional loop.
type WhileStmt struct {
	Cond     Expression
	Body     *BlockStmt
	Position Position
}

// BlockStmt is an ordered statement sequence. A whole rule program is one
// BlockStmt.
type BlockStmt struct {
	Statements []Statement
	Position   Position
}

// BinaryExpr applies an infix operator: + - * / > < >= <= == !=.
type BinaryExpr struct {
	Op       string
	Left     Expression
	Right    Expression
	Position Position
}

// UnaryExpr applies a prefix operator (only unary minus is defined).
type UnaryExpr struct {
	Op       string
	Operand  Expression
	Position Position
}

// NumberLit is a numeric literal.
type NumberLit struct {
	Value    float64
	Literal  string
	Position Position
}

// Ident references a state field by its surface name.
type Ident struct {
	Name     string
	Position Position
}

func (s *Assignment) statementNode() {}
func (s *IfStmt) statementNode()     {}
func (s *WhileStmt) statementNode()  {}
func (s *BlockStmt) statementNode()  {}

func (e *BinaryExpr) expressionNode() {}
func (e *UnaryExpr) expressionNode()  {}
func (e *NumberLit) expressionNode()  {}
func (e *Ident) expressionNode()      {}

func (s *Assignment) Pos() Position { return s.Position }
func (s *IfStmt) Pos() Position     { return s.Position }
func (s *WhileStmt) Pos() Position  { return s.Position }
func (s *BlockStmt) Pos() Position  { return s.Position }
func (e *BinaryExpr) Pos() Position { return e.Position }
func (e *UnaryExpr) Pos() Position  { return e.Position }
func (e *NumberLit) Pos() Position  { return e.Position }
func (e *Ident) Pos() Position      { return e.Position }

func (s *Assignment) String() string {
	return fmt.Sprintf("%s := %s", s.Name, s.Value)
}

func (s *IfStmt) String() string {
	if s.Else != nil {
		return fmt.Sprintf("if %s then %s else %s end", s.Cond, s.Then, s.Else)
	}
	return fmt.Sprintf("if %s then %s end", s.Cond, s.Then)
}

func (s *WhileStmt) String() string {
	return fmt.Sprintf("while %s do %s end", s.Cond, s.Body)
}

func (s *BlockStmt) String() string {
	parts := make([]string, len(s.Statements))
	for i, st := range s.Statements {
		parts[i] = st.String()
	}
	return "{ " + strings.Join(parts, "; ") + " }"
}

func (e *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left, e.Op, e.Right)
}

func (e *UnaryExpr) String() string {
	return fmt.Sprintf("(%s%s)", e.Op, e.Operand)
}

func (e *NumberLit) String() string {
	if e.Literal != "" {
		return e.Literal
	}
	return fmt.Sprintf("%g", e.Value)
}

func (e *Ident) String() string { return e.Name }
