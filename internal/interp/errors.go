package interp

import "fmt"

// ExecutionError aborts a single Execute call. It carries the instruction
// context so callers can see exactly where evaluation failed. The module
// and other concurrent calls are unaffected.
type ExecutionError struct {
	Module   string
	Function string
	Block    string
	Instr    string // rendering of the offending instruction, if any
	Message  string
}

func (e *ExecutionError) Error() string {
	loc := e.Module
	if e.Function != "" {
		loc += "." + e.Function
	}
	if e.Block != "" {
		loc += ":" + e.Block
	}
	if e.Instr != "" {
		return fmt.Sprintf("execution error in %s at %q: %s", loc, e.Instr, e.Message)
	}
	return fmt.Sprintf("execution error in %s: %s", loc, e.Message)
}

// LimitKind names the resource ceiling that was exceeded.
type LimitKind string

const (
	LimitInstructions LimitKind = "instructions"
	LimitTimeout      LimitKind = "timeout"
	LimitMemory       LimitKind = "memory"
)

// ResourceLimitError is distinct from ExecutionError so callers can tell
// "the rule is broken" apart from "the rule ran too long". The failed call
// is never retried.
type ResourceLimitError struct {
	Limit   LimitKind
	Message string
}

func (e *ResourceLimitError) Error() string {
	return fmt.Sprintf("resource limit exceeded (%s): %s", e.Limit, e.Message)
}
