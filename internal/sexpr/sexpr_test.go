package sexpr

import (
	"testing"

	"github.com/ourocode-lang/ourocode/internal/parser"
)

func TestParse_Set(t *testing.T) {
	prog, err := Parse("(set! mutation-rate 0.05)")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(prog.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(prog.Statements))
	}
	assign, ok := prog.Statements[0].(*parser.Assignment)
	if !ok {
		t.Fatalf("expected *parser.Assignment, got %T", prog.Statements[0])
	}
	if assign.Name != "mutation-rate" {
		t.Errorf("expected target mutation-rate, got %q", assign.Name)
	}
}

func TestParse_BeginUnwraps(t *testing.T) {
	prog, err := Parse(`(begin
  (set! energy 10)
  (set! population 20))`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(prog.Statements) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(prog.Statements))
	}
}

func TestParse_If(t *testing.T) {
	prog, err := Parse(`(if (> population 100)
  (set! mutation-rate 0.05)
  (set! mutation-rate 0.1))`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	stmt, ok := prog.Statements[0].(*parser.IfStmt)
	if !ok {
		t.Fatalf("expected *parser.IfStmt, got %T", prog.Statements[0])
	}
	cond, ok := stmt.Cond.(*parser.BinaryExpr)
	if !ok || cond.Op != ">" {
		t.Fatalf("expected > condition, got %v", stmt.Cond)
	}
	if stmt.Else == nil {
		t.Error("expected else branch")
	}
}

func TestParse_IfWithBeginArm(t *testing.T) {
	prog, err := Parse(`(if (< energy 20)
  (begin (set! energy 20) (set! mutation-rate 0.01)))`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	stmt := prog.Statements[0].(*parser.IfStmt)
	if len(stmt.Then.Statements) != 2 {
		t.Errorf("expected 2 then statements, got %d", len(stmt.Then.Statements))
	}
	if stmt.Else != nil {
		t.Errorf("expected nil else branch, got %v", stmt.Else)
	}
}

func TestParse_While(t *testing.T) {
	prog, err := Parse("(while (< energy 20) (set! energy (+ energy 1)))")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if _, ok := prog.Statements[0].(*parser.WhileStmt); !ok {
		t.Fatalf("expected *parser.WhileStmt, got %T", prog.Statements[0])
	}
}

func TestParse_VariadicArithmetic(t *testing.T) {
	prog, err := Parse("(set! energy (+ population energy 5))")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	assign := prog.Statements[0].(*parser.Assignment)
	// (+ a b c) folds left: ((a + b) + c)
	outer, ok := assign.Value.(*parser.BinaryExpr)
	if !ok || outer.Op != "+" {
		t.Fatalf("expected + at root, got %v", assign.Value)
	}
	if _, ok := outer.Left.(*parser.BinaryExpr); !ok {
		t.Errorf("expected nested + on the left, got %T", outer.Left)
	}
}

func TestParse_UnaryMinus(t *testing.T) {
	prog, err := Parse("(set! energy (- energy))")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if _, ok := prog.Statements[0].(*parser.Assignment).Value.(*parser.UnaryExpr); !ok {
		t.Error("expected unary minus expression")
	}
}

func TestParse_Comments(t *testing.T) {
	prog, err := Parse("; bump the rate\n(set! mutation-rate 0.2)")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(prog.Statements) != 1 {
		t.Errorf("expected 1 statement, got %d", len(prog.Statements))
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []string{
		"(set! mutation-rate)",       // missing value
		"(if (> population 100))",    // missing arms
		"(frobnicate population 1)",  // unknown form
		"(set! (population) 1)",      // non-identifier target
		"(begin (set! energy 1)",     // unclosed list
		"(set! energy (> 1 2 3))",    // comparison arity
		"(set! energy (bogus 1 2))",  // unknown operator
	}
	for _, src := range tests {
		if _, err := Parse(src); err == nil {
			t.Errorf("Parse(%q): expected error, got none", src)
		}
	}
}
