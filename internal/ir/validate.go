package ir

import "fmt"

// ValidationError describes one well-formedness violation in a module. The
// validator reports the full list rather than stopping at the first, so
// callers can surface every problem at once.
type ValidationError struct {
	Function string
	Block    string
	Message  string
}

func (e ValidationError) Error() string {
	if e.Block != "" {
		return fmt.Sprintf("validation: func %s, block %s: %s", e.Function, e.Block, e.Message)
	}
	return fmt.Sprintf("validation: func %s: %s", e.Function, e.Message)
}

// Validate checks CFG well-formedness: every function has an entry block,
// every block ends in a terminator with no instructions after it, and every
// branch target names an existing block. It does not check SSA
// single-assignment, operand types, or phi completeness.
func Validate(m *Module) []ValidationError {
	var errs []ValidationError
	for _, f := range m.Functions {
		if f.Block(EntryLabel) == nil {
			errs = append(errs, ValidationError{
				Function: f.Name,
				Message:  fmt.Sprintf("missing %q block", EntryLabel),
			})
		}
		for _, b := range f.Blocks {
			errs = append(errs, validateBlock(f, b)...)
		}
	}
	return errs
}

func validateBlock(f *Function, b *Block) []ValidationError {
	var errs []ValidationError
	if !b.Terminated() {
		errs = append(errs, ValidationError{
			Function: f.Name,
			Block:    b.Label,
			Message:  "block does not end in a terminator (br or ret)",
		})
	}
	for idx, in := range b.Instrs {
		if IsTerminator(in) && idx != len(b.Instrs)-1 {
			errs = append(errs, ValidationError{
				Function: f.Name,
				Block:    b.Label,
				Message:  fmt.Sprintf("instruction after terminator at position %d", idx),
			})
		}
		br, ok := in.(Br)
		if !ok {
			continue
		}
		if f.Block(br.True) == nil {
			errs = append(errs, ValidationError{
				Function: f.Name,
				Block:    b.Label,
				Message:  fmt.Sprintf("branch target %q does not exist", br.True),
			})
		}
		if br.Cond != "" && f.Block(br.False) == nil {
			errs = append(errs, ValidationError{
				Function: f.Name,
				Block:    b.Label,
				Message:  fmt.Sprintf("branch target %q does not exist", br.False),
			})
		}
	}
	return errs
}
