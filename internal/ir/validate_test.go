package ir

import (
	"strings"
	"testing"
)

func validModule() *Module {
	return &Module{
		Name:    "m",
		Version: "1.0.0",
		Source:  "algol",
		Types:   []NamedType{{Name: StateTypeName, Desc: StateType()}},
		Functions: []*Function{{
			Name:   RuleFunctionName,
			Params: []Param{{Name: "state", Type: StateTypeName}},
			Result: StateTypeName,
			Blocks: []*Block{{
				Label:  EntryLabel,
				Instrs: []Instr{Ret{Val: "%state"}},
			}},
		}},
	}
}

func TestValidate_CleanModule(t *testing.T) {
	if errs := Validate(validModule()); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestValidate_MissingEntry(t *testing.T) {
	m := validModule()
	m.Functions[0].Blocks[0].Label = "start"
	errs := Validate(m)
	if len(errs) == 0 {
		t.Fatal("expected missing-entry error")
	}
	if !strings.Contains(errs[0].Error(), "entry") {
		t.Errorf("error should mention the entry block: %v", errs[0])
	}
}

func TestValidate_MissingTerminator(t *testing.T) {
	m := validModule()
	m.Functions[0].Blocks[0].Instrs = []Instr{Const{Dst: "%t0", Value: 1}}
	errs := Validate(m)
	if len(errs) == 0 {
		t.Fatal("expected missing-terminator error")
	}
}

func TestValidate_EmptyBlock(t *testing.T) {
	m := validModule()
	m.Functions[0].Blocks[0].Instrs = nil
	if errs := Validate(m); len(errs) == 0 {
		t.Fatal("an empty block has no terminator and must be rejected")
	}
}

func TestValidate_InstructionAfterTerminator(t *testing.T) {
	m := validModule()
	m.Functions[0].Blocks[0].Instrs = []Instr{
		Ret{Val: "%state"},
		Const{Dst: "%t0", Value: 1},
	}
	errs := Validate(m)
	if len(errs) == 0 {
		t.Fatal("expected instruction-after-terminator error")
	}
}

func TestValidate_DanglingBranchTargets(t *testing.T) {
	m := validModule()
	m.Functions[0].Blocks[0].Instrs = []Instr{Br{True: "nowhere"}}
	errs := Validate(m)
	if len(errs) == 0 {
		t.Fatal("expected dangling-target error for unconditional branch")
	}

	m = validModule()
	m.Functions[0].Blocks = []*Block{
		{Label: EntryLabel, Instrs: []Instr{
			Const{Dst: "%c", Value: 1},
			Br{Cond: "%c", True: "good", False: "missing"},
		}},
		{Label: "good", Instrs: []Instr{Ret{Val: "%state"}}},
	}
	errs = Validate(m)
	if len(errs) == 0 {
		t.Fatal("expected dangling-target error for conditional branch")
	}
	if errs[0].Block != EntryLabel {
		t.Errorf("error should name the offending block, got %q", errs[0].Block)
	}
}

func TestValidate_ReportsAllErrors(t *testing.T) {
	m := validModule()
	m.Functions[0].Blocks = []*Block{
		{Label: EntryLabel, Instrs: []Instr{Br{True: "a"}}},
		{Label: "a", Instrs: []Instr{Const{Dst: "%t0", Value: 1}}},
		{Label: "b", Instrs: []Instr{Br{True: "gone"}}},
	}
	errs := Validate(m)
	if len(errs) < 2 {
		t.Fatalf("expected at least 2 errors (missing terminator, dangling target), got %v", errs)
	}
}
