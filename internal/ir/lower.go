// AST to IR lowering for Ourocode rule programs. The transformation:
// 1. Flattens expressions into SSA instructions with freshly minted names
// 2. Converts conditionals to basic blocks with phi merges at join points
// 3. Threads the whole-state value through assignments via insert
// 4. Ends every open block with a return of the current state

package ir

import (
	"fmt"

	semver "github.com/Masterminds/semver/v3"

	"github.com/ourocode-lang/ourocode/internal/parser"
)

// RuleFunctionName is the conventional name of the single function every
// lowered rule module contains.
const RuleFunctionName = "mutate_rule"

// stateParam is the SSA name of the rule function's sole parameter.
const stateParam = "%state"

// CompileError reports a lowering failure. No partial module is returned
// alongside one.
type CompileError struct {
	Pos     parser.Position
	Message string
}

func (e *CompileError) Error() string {
	if e.Pos.Line > 0 {
		return fmt.Sprintf("compile error at %s: %s", e.Pos, e.Message)
	}
	return "compile error: " + e.Message
}

// LowerOptions control the module header of the lowered output.
type LowerOptions struct {
	ModuleName string // default "rule_module"
	Version    string // default "1.0.0"; must parse as semver
	Source     string // source language tag recorded in the header
}

// surface spellings accepted for the state fields across front ends.
var fieldAliases = map[string]string{
	"population":    "population",
	"energy":        "energy",
	"mutationRate":  "mutationRate",
	"mutation_rate": "mutationRate",
	"mutation-rate": "mutationRate",
}

var binOps = map[string]BinOpKind{
	"+":  OpAdd,
	"-":  OpSub,
	"*":  OpMul,
	"/":  OpDiv,
	">":  OpGt,
	"<":  OpLt,
	"==": OpEq,
	">=": OpGe,
	"<=": OpLe,
	"!=": OpNe,
}

// lowerer carries the mutable lowering state for a single Lower call:
// the insertion block, the identifier binding map, the live whole-state
// variable and the fresh-name counters.
type lowerer struct {
	fn       *Function
	cur      *Block
	bindings map[string]string
	stateVar string
	valueNum int
	blockNum int
}

// Lower transforms a rule program into a module containing one function,
// RuleFunctionName, taking and returning the standard state struct.
func Lower(program *parser.BlockStmt, opts LowerOptions) (*Module, error) {
	if program == nil {
		return nil, &CompileError{Message: "nil program"}
	}
	if opts.ModuleName == "" {
		opts.ModuleName = "rule_module"
	}
	if opts.Version == "" {
		opts.Version = "1.0.0"
	}
	if _, err := semver.NewVersion(opts.Version); err != nil {
		return nil, &CompileError{Message: fmt.Sprintf("invalid module version %q: %v", opts.Version, err)}
	}

	l := &lowerer{
		fn: &Function{
			Name:   RuleFunctionName,
			Params: []Param{{Name: "state", Type: StateTypeName}},
			Result: StateTypeName,
		},
		bindings: make(map[string]string),
		stateVar: stateParam,
	}
	l.cur = l.newBlock(EntryLabel)

	// Seed the binding map by extracting every state field.
	for i, f := range StateFields {
		dst := l.freshValue()
		l.emit(Extract{Dst: dst, Src: stateParam, Index: i})
		l.bindings[f] = dst
	}

	if err := l.lowerBlock(program); err != nil {
		return nil, err
	}

	if !l.cur.Terminated() {
		l.emit(Ret{Val: l.stateVar})
	}

	return &Module{
		Name:      opts.ModuleName,
		Version:   opts.Version,
		Source:    opts.Source,
		Types:     []NamedType{{Name: StateTypeName, Desc: StateType()}},
		Functions: []*Function{l.fn},
	}, nil
}

func (l *lowerer) lowerBlock(b *parser.BlockStmt) error {
	for _, stmt := range b.Statements {
		if err := l.lowerStatement(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (l *lowerer) lowerStatement(stmt parser.Statement) error {
	switch s := stmt.(type) {
	case *parser.Assignment:
		return l.lowerAssignment(s)
	case *parser.IfStmt:
		return l.lowerIf(s.Cond, s.Then, s.Else)
	case *parser.WhileStmt:
		// While lowers as a single-shot conditional: the body executes at
		// most once. See DESIGN.md for the loop-lowering decision.
		return l.lowerIf(s.Cond, s.Body, nil)
	case *parser.BlockStmt:
		return l.lowerBlock(s)
	default:
		return &CompileError{Pos: stmt.Pos(), Message: fmt.Sprintf("unknown statement node %T", stmt)}
	}
}

func (l *lowerer) lowerAssignment(s *parser.Assignment) error {
	field, ok := fieldAliases[s.Name]
	if !ok {
		return &CompileError{Pos: s.Position, Message: fmt.Sprintf("cannot assign to unknown identifier %q", s.Name)}
	}
	idx, _ := FieldIndex(field)
	val, err := l.lowerExpression(s.Value)
	if err != nil {
		return err
	}
	dst := l.freshValue()
	l.emit(Insert{Dst: dst, Src: l.stateVar, Index: idx, Val: val})
	l.stateVar = dst
	l.bindings[field] = val
	return nil
}

func (l *lowerer) lowerIf(cond parser.Expression, then, elseBranch *parser.BlockStmt) error {
	condVar, err := l.lowerExpression(cond)
	if err != nil {
		return err
	}

	thenLabel := l.freshLabel("then")
	elseLabel := l.freshLabel("else")
	mergeLabel := l.freshLabel("merge")
	l.emit(Br{Cond: condVar, True: thenLabel, False: elseLabel})

	savedState := l.stateVar
	savedBindings := cloneBindings(l.bindings)

	l.cur = l.newBlock(thenLabel)
	if err := l.lowerBlock(then); err != nil {
		return err
	}
	thenState := l.stateVar
	thenBindings := l.bindings
	thenExit := l.cur.Label // may differ from thenLabel after nesting
	l.emit(Br{True: mergeLabel})

	l.stateVar = savedState
	l.bindings = cloneBindings(savedBindings)
	l.cur = l.newBlock(elseLabel)
	if elseBranch != nil {
		if err := l.lowerBlock(elseBranch); err != nil {
			return err
		}
	}
	elseState := l.stateVar
	elseBindings := l.bindings
	elseExit := l.cur.Label
	l.emit(Br{True: mergeLabel})

	l.cur = l.newBlock(mergeLabel)
	if thenState != elseState {
		dst := l.freshValue()
		l.emit(Phi{Dst: dst, Incoming: []PhiIncoming{
			{Value: thenState, Pred: thenExit},
			{Value: elseState, Pred: elseExit},
		}})
		l.stateVar = dst
	} else {
		l.stateVar = thenState
	}

	// Merge per-field bindings so reads after the join see the arm that
	// actually executed.
	merged := make(map[string]string, len(StateFields))
	for _, f := range StateFields {
		tv, ev := thenBindings[f], elseBindings[f]
		if tv == ev {
			merged[f] = tv
			continue
		}
		dst := l.freshValue()
		l.emit(Phi{Dst: dst, Incoming: []PhiIncoming{
			{Value: tv, Pred: thenExit},
			{Value: ev, Pred: elseExit},
		}})
		merged[f] = dst
	}
	l.bindings = merged
	return nil
}

func (l *lowerer) lowerExpression(expr parser.Expression) (string, error) {
	switch e := expr.(type) {
	case *parser.NumberLit:
		dst := l.freshValue()
		l.emit(Const{Dst: dst, Value: e.Value})
		return dst, nil

	case *parser.Ident:
		field, ok := fieldAliases[e.Name]
		if !ok {
			return "", &CompileError{Pos: e.Position, Message: fmt.Sprintf("unbound identifier %q", e.Name)}
		}
		v, ok := l.bindings[field]
		if !ok {
			return "", &CompileError{Pos: e.Position, Message: fmt.Sprintf("unbound identifier %q", e.Name)}
		}
		return v, nil

	case *parser.UnaryExpr:
		if e.Op != "-" {
			return "", &CompileError{Pos: e.Position, Message: fmt.Sprintf("unsupported unary operator %q", e.Op)}
		}
		// Unary minus rewrites to 0 - operand.
		zero := l.freshValue()
		l.emit(Const{Dst: zero, Value: 0})
		operand, err := l.lowerExpression(e.Operand)
		if err != nil {
			return "", err
		}
		dst := l.freshValue()
		l.emit(BinOp{Dst: dst, Op: OpSub, LHS: zero, RHS: operand})
		return dst, nil

	case *parser.BinaryExpr:
		op, ok := binOps[e.Op]
		if !ok {
			return "", &CompileError{Pos: e.Position, Message: fmt.Sprintf("unsupported operator %q", e.Op)}
		}
		lhs, err := l.lowerExpression(e.Left)
		if err != nil {
			return "", err
		}
		rhs, err := l.lowerExpression(e.Right)
		if err != nil {
			return "", err
		}
		dst := l.freshValue()
		l.emit(BinOp{Dst: dst, Op: op, LHS: lhs, RHS: rhs})
		return dst, nil

	default:
		return "", &CompileError{Pos: expr.Pos(), Message: fmt.Sprintf("unknown expression node %T", expr)}
	}
}

func (l *lowerer) emit(in Instr) {
	l.cur.Instrs = append(l.cur.Instrs, in)
}

func (l *lowerer) newBlock(label string) *Block {
	b := &Block{Label: label}
	l.fn.Blocks = append(l.fn.Blocks, b)
	return b
}

func (l *lowerer) freshValue() string {
	name := fmt.Sprintf("%%t%d", l.valueNum)
	l.valueNum++
	return name
}

func (l *lowerer) freshLabel(prefix string) string {
	l.blockNum++
	return fmt.Sprintf("%s_%d", prefix, l.blockNum)
}

func cloneBindings(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
