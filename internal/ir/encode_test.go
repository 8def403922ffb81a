package ir

import (
	"strings"
	"testing"

	"github.com/ourocode-lang/ourocode/internal/parser"
)

func lowerSource(t *testing.T, src string) *Module {
	t.Helper()
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	m, err := Lower(prog, LowerOptions{})
	if err != nil {
		t.Fatalf("Lower failed: %v", err)
	}
	return m
}

func TestEncode_Deterministic(t *testing.T) {
	src := `IF population > 100 THEN
  mutation_rate := 0.05
ELSE
  mutation_rate := 0.1
END`
	a := lowerSource(t, src)
	b := lowerSource(t, src)
	if Encode(a) != Encode(b) {
		t.Error("two lowerings of the same source must encode identically")
	}
	if Hash(a) != Hash(b) {
		t.Error("hashes of identical modules differ")
	}
}

func TestEncode_Layout(t *testing.T) {
	m := lowerSource(t, "mutation_rate := 0.05")
	text := Encode(m)

	wantLines := []string{
		"module rule_module",
		"version 1.0.0",
		"type EcosystemState = struct { population: f64, energy: f64, mutationRate: f64 }",
		"func mutate_rule(%state: EcosystemState) -> EcosystemState {",
		"entry:",
	}
	for _, want := range wantLines {
		if !strings.Contains(text, want) {
			t.Errorf("encoded text missing %q\n%s", want, text)
		}
	}
	// entry block comes before any other block
	lines := strings.Split(text, "\n")
	sawFunc := false
	for _, line := range lines {
		if strings.HasPrefix(line, "func ") {
			sawFunc = true
			continue
		}
		if sawFunc && strings.HasSuffix(line, ":") {
			if line != "entry:" {
				t.Errorf("first block is %q, want entry:", line)
			}
			break
		}
	}
}

func TestEncode_NumberFormatting(t *testing.T) {
	tests := []struct {
		v    float64
		want string
	}{
		{0.05, "0.05"},
		{1, "1"},
		{-3.5, "-3.5"},
		{100000, "100000"},
		{0.1, "0.1"},
	}
	for _, tt := range tests {
		got := Const{Dst: "%t0", Value: tt.v}.String()
		want := "%t0 = const " + tt.want
		if got != want {
			t.Errorf("Const(%v).String() = %q, want %q", tt.v, got, want)
		}
	}
}

func TestHash_ChangesWithSemantics(t *testing.T) {
	base := lowerSource(t, "mutation_rate := 0.05")
	changed := lowerSource(t, "mutation_rate := 0.06")
	if Hash(base) == Hash(changed) {
		t.Error("different constants must hash differently")
	}

	renamed := lowerSource(t, "energy := 0.05")
	if Hash(base) == Hash(renamed) {
		t.Error("different field targets must hash differently")
	}
}

func TestHash_Format(t *testing.T) {
	h := Hash(lowerSource(t, ""))
	if len(h) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(h))
	}
	if strings.ToLower(h) != h {
		t.Error("hash must be lowercase hex")
	}
	for _, c := range h {
		if !strings.ContainsRune("0123456789abcdef", c) {
			t.Fatalf("non-hex character %q in hash", c)
		}
	}
}

func TestInstructionStrings(t *testing.T) {
	tests := []struct {
		in   Instr
		want string
	}{
		{Extract{Dst: "%p", Src: "%state", Index: 0}, "%p = extract %state, 0"},
		{Insert{Dst: "%s1", Src: "%state", Index: 2, Val: "%t0"}, "%s1 = insert %state, 2, %t0"},
		{BinOp{Dst: "%t1", Op: OpAdd, LHS: "%a", RHS: "%b"}, "%t1 = add %a, %b"},
		{BinOp{Dst: "%t2", Op: OpGt, LHS: "%a", RHS: "%b"}, "%t2 = gt %a, %b"},
		{Br{True: "merge_0"}, "br merge_0"},
		{Br{Cond: "%c", True: "then_0", False: "else_0"}, "brcond %c, then_0, else_0"},
		{Phi{Dst: "%m", Incoming: []PhiIncoming{{Value: "%a", Pred: "then_0"}, {Value: "%b", Pred: "else_0"}}}, "%m = phi [%a, then_0], [%b, else_0]"},
		{Ret{Val: "%s1"}, "ret %s1"},
	}
	for _, tt := range tests {
		if got := tt.in.String(); got != tt.want {
			t.Errorf("%T.String() = %q, want %q", tt.in, got, tt.want)
		}
	}
}
