package interp

import (
	"fmt"
	"sync"
	"time"

	"github.com/ourocode-lang/ourocode/internal/ir"
)

// maxCallDepth bounds call nesting so runaway recursion fails as an
// ExecutionError rather than exhausting the goroutine stack.
const maxCallDepth = 512

// Executor owns a table of loaded modules and interprets their functions.
// Modules are read-only after load; every Execute call builds its own
// environment and counters, so a single Executor is safe for concurrent
// use.
type Executor struct {
	mu      sync.RWMutex
	modules map[string]*ir.Module
	cfg     Config
}

// New creates an executor with the given ceilings. Zero config fields fall
// back to the defaults.
func New(cfg Config) *Executor {
	return &Executor{
		modules: make(map[string]*ir.Module),
		cfg:     cfg.withDefaults(),
	}
}

// LoadModule registers a module under its name, replacing any previous
// module of the same name.
func (e *Executor) LoadModule(m *ir.Module) error {
	if m == nil {
		return fmt.Errorf("nil module")
	}
	if m.Name == "" {
		return fmt.Errorf("module has no name")
	}
	e.mu.Lock()
	e.modules[m.Name] = m
	e.mu.Unlock()
	return nil
}

// Module returns a loaded module by name.
func (e *Executor) Module(name string) (*ir.Module, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	m, ok := e.modules[name]
	return m, ok
}

// execState carries the per-call counters shared across nested calls.
type execState struct {
	cfg   Config
	m     *ir.Module
	steps int
	mem   int64
	start time.Time
	depth int
}

// Execute runs a named function of a loaded module with the given
// arguments. Runtime failures abort only this call and surface as
// *ExecutionError; exceeded ceilings surface as *ResourceLimitError.
func (e *Executor) Execute(module, function string, args []Value) (Value, error) {
	m, ok := e.Module(module)
	if !ok {
		return Value{}, &ExecutionError{Module: module, Message: "module not found"}
	}
	return e.ExecuteModule(m, function, args)
}

// ExecuteModule runs a function of an explicitly supplied module, without
// requiring it to be loaded first.
func (e *Executor) ExecuteModule(m *ir.Module, function string, args []Value) (Value, error) {
	st := &execState{cfg: e.cfg, m: m, start: time.Now()}
	return st.call(function, args)
}

func (st *execState) call(function string, args []Value) (Value, error) {
	fn := st.m.Function(function)
	if fn == nil {
		return Value{}, &ExecutionError{Module: st.m.Name, Function: function, Message: "function not found"}
	}
	if len(args) != len(fn.Params) {
		return Value{}, &ExecutionError{
			Module:   st.m.Name,
			Function: function,
			Message:  fmt.Sprintf("argument count mismatch: want %d, got %d", len(fn.Params), len(args)),
		}
	}
	if st.depth >= maxCallDepth {
		return Value{}, &ExecutionError{Module: st.m.Name, Function: function, Message: "call depth exceeded"}
	}
	st.depth++
	defer func() { st.depth-- }()

	env := make(map[string]Value, 16)
	for i, p := range fn.Params {
		if !args[i].matchesType(st.m, p.Type) {
			return Value{}, &ExecutionError{
				Module:   st.m.Name,
				Function: function,
				Message:  fmt.Sprintf("argument %d does not match parameter type %s", i, p.Type),
			}
		}
		env["%"+p.Name] = args[i]
		st.mem += args[i].size()
	}

	label := ir.EntryLabel
	prev := ""
	for {
		if err := st.checkTime(); err != nil {
			return Value{}, err
		}
		block := fn.Block(label)
		if block == nil {
			return Value{}, &ExecutionError{
				Module:   st.m.Name,
				Function: function,
				Block:    prev,
				Message:  fmt.Sprintf("branch to missing block %q", label),
			}
		}

		terminated := false
		for _, in := range block.Instrs {
			st.steps++
			if st.steps > st.cfg.MaxInstructions {
				return Value{}, &ResourceLimitError{
					Limit:   LimitInstructions,
					Message: fmt.Sprintf("instruction ceiling %d exceeded", st.cfg.MaxInstructions),
				}
			}
			if err := st.checkTime(); err != nil {
				return Value{}, err
			}

			fail := func(instr ir.Instr, format string, a ...interface{}) error {
				rendering := ""
				if s, ok := instr.(fmt.Stringer); ok {
					rendering = s.String()
				}
				return &ExecutionError{
					Module:   st.m.Name,
					Function: function,
					Block:    block.Label,
					Instr:    rendering,
					Message:  fmt.Sprintf(format, a...),
				}
			}

			switch i := in.(type) {
			case ir.Const:
				st.bind(env, i.Dst, Number(i.Value))

			case ir.Extract:
				src, err := st.lookup(env, i.Src, fail, in)
				if err != nil {
					return Value{}, err
				}
				f, ok := src.Field(i.Index)
				if !ok {
					return Value{}, fail(in, "extract from %s: no field %d", src.Kind, i.Index)
				}
				st.bind(env, i.Dst, Number(f))

			case ir.Insert:
				src, err := st.lookup(env, i.Src, fail, in)
				if err != nil {
					return Value{}, err
				}
				val, err := st.lookup(env, i.Val, fail, in)
				if err != nil {
					return Value{}, err
				}
				if src.Kind != KindStruct {
					return Value{}, fail(in, "insert into %s value", src.Kind)
				}
				if i.Index < 0 || i.Index >= len(src.Fields) {
					return Value{}, fail(in, "insert: no field %d", i.Index)
				}
				if val.Kind != KindNumber {
					return Value{}, fail(in, "insert of non-numeric value")
				}
				// copy-on-write: the source tuple is never mutated
				fields := append([]float64(nil), src.Fields...)
				fields[i.Index] = val.Num
				st.bind(env, i.Dst, Value{Kind: KindStruct, Fields: fields})

			case ir.BinOp:
				lhs, err := st.lookup(env, i.LHS, fail, in)
				if err != nil {
					return Value{}, err
				}
				rhs, err := st.lookup(env, i.RHS, fail, in)
				if err != nil {
					return Value{}, err
				}
				out, err := applyBinOp(i.Op, lhs, rhs)
				if err != nil {
					return Value{}, fail(in, "%v", err)
				}
				st.bind(env, i.Dst, out)

			case ir.Br:
				if i.Cond == "" {
					prev, label = block.Label, i.True
				} else {
					cond, err := st.lookup(env, i.Cond, fail, in)
					if err != nil {
						return Value{}, err
					}
					taken, err := truthy(cond)
					if err != nil {
						return Value{}, fail(in, "%v", err)
					}
					if taken {
						prev, label = block.Label, i.True
					} else {
						prev, label = block.Label, i.False
					}
				}
				terminated = true

			case ir.Phi:
				v, err := resolvePhi(i, prev, env)
				if err != nil {
					return Value{}, fail(in, "%v", err)
				}
				st.bind(env, i.Dst, v)

			case ir.Call:
				callArgs := make([]Value, len(i.Args))
				for idx, a := range i.Args {
					av, err := st.lookup(env, a, fail, in)
					if err != nil {
						return Value{}, err
					}
					callArgs[idx] = av
				}
				result, err := st.call(i.Callee, callArgs)
				if err != nil {
					return Value{}, err
				}
				if i.Dst != "" {
					st.bind(env, i.Dst, result)
				}

			case ir.Ret:
				v, err := st.lookup(env, i.Val, fail, in)
				if err != nil {
					return Value{}, err
				}
				return v, nil

			default:
				return Value{}, fail(in, "unknown instruction %T", in)
			}

			if st.mem > st.cfg.MaxMemory {
				return Value{}, &ResourceLimitError{
					Limit:   LimitMemory,
					Message: fmt.Sprintf("memory ceiling %d bytes exceeded", st.cfg.MaxMemory),
				}
			}
			if terminated {
				break
			}
		}

		if !terminated {
			// The validator should have rejected this module.
			return Value{}, &ExecutionError{
				Module:   st.m.Name,
				Function: function,
				Block:    block.Label,
				Message:  "block fell through without a terminator",
			}
		}
	}
}

func (st *execState) checkTime() error {
	if elapsed := time.Since(st.start); elapsed > st.cfg.timeout() {
		return &ResourceLimitError{
			Limit:   LimitTimeout,
			Message: fmt.Sprintf("timeout %v exceeded after %v", st.cfg.timeout(), elapsed.Round(time.Millisecond)),
		}
	}
	return nil
}

func (st *execState) bind(env map[string]Value, name string, v Value) {
	env[name] = v
	st.mem += v.size()
}

type failFunc func(instr ir.Instr, format string, a ...interface{}) error

func (st *execState) lookup(env map[string]Value, name string, fail failFunc, in ir.Instr) (Value, error) {
	v, ok := env[name]
	if !ok {
		return Value{}, fail(in, "undefined variable %s", name)
	}
	return v, nil
}

// resolvePhi matches the predecessor label against the incoming pairs. When
// no label matches, the first pair whose value is defined wins instead of
// hard-failing, so degenerate phis from foreign front ends still execute.
func resolvePhi(phi ir.Phi, prev string, env map[string]Value) (Value, error) {
	for _, in := range phi.Incoming {
		if in.Pred == prev {
			v, ok := env[in.Value]
			if !ok {
				return Value{}, fmt.Errorf("phi incoming %s from %s is undefined", in.Value, in.Pred)
			}
			return v, nil
		}
	}
	for _, in := range phi.Incoming {
		if v, ok := env[in.Value]; ok {
			return v, nil
		}
	}
	return Value{}, fmt.Errorf("phi has no defined incoming value (arrived from %q)", prev)
}

func truthy(v Value) (bool, error) {
	switch v.Kind {
	case KindBool:
		return v.Bool, nil
	case KindNumber:
		return v.Num != 0, nil
	default:
		return false, fmt.Errorf("branch condition is a %s, not a boolean", v.Kind)
	}
}

func applyBinOp(op ir.BinOpKind, lhs, rhs Value) (Value, error) {
	if lhs.Kind != KindNumber || rhs.Kind != KindNumber {
		return Value{}, fmt.Errorf("%s of non-numeric operands (%s, %s)", op, lhs.Kind, rhs.Kind)
	}
	a, b := lhs.Num, rhs.Num
	switch op {
	case ir.OpAdd:
		return Number(a + b), nil
	case ir.OpSub:
		return Number(a - b), nil
	case ir.OpMul:
		return Number(a * b), nil
	case ir.OpDiv:
		if b == 0 {
			return Value{}, fmt.Errorf("division by zero")
		}
		return Number(a / b), nil
	case ir.OpGt:
		return Boolean(a > b), nil
	case ir.OpLt:
		return Boolean(a < b), nil
	case ir.OpEq:
		return Boolean(a == b), nil
	case ir.OpGe:
		return Boolean(a >= b), nil
	case ir.OpLe:
		return Boolean(a <= b), nil
	case ir.OpNe:
		return Boolean(a != b), nil
	default:
		return Value{}, fmt.Errorf("unsupported operation %s", op)
	}
}
