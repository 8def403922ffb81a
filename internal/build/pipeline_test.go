package build

import (
	"errors"
	"math"
	"testing"

	"github.com/ourocode-lang/ourocode/internal/interp"
	"github.com/ourocode-lang/ourocode/internal/ir"
)

// applyRule compiles source in the given language and runs it over the
// given starting state.
func applyRule(t *testing.T, source, language string, state interp.Value) interp.Value {
	t.Helper()
	rule, err := CompileOnce(source, language, Options{})
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	ex := interp.New(interp.DefaultConfig())
	out, err := ex.ExecuteModule(rule.Module, ir.RuleFunctionName, []interp.Value{state})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	return out
}

func TestCompileAndRun_Conditional(t *testing.T) {
	src := `IF population > 100 THEN
  mutation_rate := 0.05
ELSE
  mutation_rate := 0.1
END`

	out := applyRule(t, src, LangAlgol, interp.State(150, 50, 0))
	if out.MutationRate() != 0.05 {
		t.Errorf("population 150: mutation rate = %v, want 0.05", out.MutationRate())
	}

	out = applyRule(t, src, LangAlgol, interp.State(50, 50, 0))
	if out.MutationRate() != 0.1 {
		t.Errorf("population 50: mutation rate = %v, want 0.1", out.MutationRate())
	}
}

func TestCompileAndRun_NestedConditional(t *testing.T) {
	src := `IF energy < 20 THEN
  mutation_rate := 0.01
ELSE
  IF population > 100 THEN
    mutation_rate := 0.05
  ELSE
    mutation_rate := 0.1
  END
END`

	cases := []struct {
		population, energy float64
		want               float64
	}{
		{200, 10, 0.01},
		{200, 50, 0.05},
		{50, 50, 0.1},
	}
	for _, c := range cases {
		out := applyRule(t, src, LangAlgol, interp.State(c.population, c.energy, 0))
		if out.MutationRate() != c.want {
			t.Errorf("pop=%v energy=%v: mutation rate = %v, want %v",
				c.population, c.energy, out.MutationRate(), c.want)
		}
	}
}

func TestCompileAndRun_Arithmetic(t *testing.T) {
	src := "mutation_rate := (population + energy) / 200"
	out := applyRule(t, src, LangAlgol, interp.State(100, 50, 0))
	if math.Abs(out.MutationRate()-0.75) > 1e-12 {
		t.Errorf("mutation rate = %v, want 0.75", out.MutationRate())
	}
	if out.Population() != 100 || out.Energy() != 50 {
		t.Errorf("other fields changed: %v", out)
	}
}

func TestCompileAndRun_CrossLanguageEquivalence(t *testing.T) {
	algol := `IF population > 100 THEN
  mutation_rate := 0.05
ELSE
  mutation_rate := 0.1
END`
	lisp := `(if (> population 100)
  (set! mutation-rate 0.05)
  (set! mutation-rate 0.1))`

	for _, state := range []interp.Value{
		interp.State(150, 50, 0),
		interp.State(50, 50, 0),
		interp.State(100, 50, 0), // boundary: > is strict
	} {
		a := applyRule(t, algol, LangAlgol, state)
		l := applyRule(t, lisp, LangLisp, state)
		if a.MutationRate() != l.MutationRate() {
			t.Errorf("state %v: algol=%v lisp=%v", state, a.MutationRate(), l.MutationRate())
		}
	}
}

func TestCompileAndRun_CrossLanguageHashesMatchBehavior(t *testing.T) {
	// the two front ends lower the same logic to the same block structure,
	// so behavior matches even though canonical text differs in the source
	// header
	a, err := CompileOnce("mutation_rate := 0.05", LangAlgol, Options{})
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	l, err := CompileOnce("(set! mutation-rate 0.05)", LangLisp, Options{})
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if a.Hash == l.Hash {
		t.Error("hashes encode provenance and must differ across source languages")
	}
	if a.Module.Source != LangAlgol || l.Module.Source != LangLisp {
		t.Errorf("source tags not recorded: %q, %q", a.Module.Source, l.Module.Source)
	}
}

func TestCompile_LanguageDispatch(t *testing.T) {
	tests := []struct {
		language string
		source   string
	}{
		{"algol", "mutation_rate := 0.05"},
		{"imperative", "mutation_rate := 0.05"},
		{"ALGOL", "mutation_rate := 0.05"},
		{"lisp", "(set! mutation-rate 0.05)"},
		{"sexpr", "(set! mutation-rate 0.05)"},
		{"scheme", "(set! mutation-rate 0.05)"},
		{" lisp ", "(set! mutation-rate 0.05)"},
	}
	for _, tt := range tests {
		if _, err := CompileOnce(tt.source, tt.language, Options{}); err != nil {
			t.Errorf("language %q: unexpected error %v", tt.language, err)
		}
	}
}

func TestCompile_UnknownLanguage(t *testing.T) {
	_, err := CompileOnce("whatever", "cobol", Options{})
	var ule *UnknownLanguageError
	if !errors.As(err, &ule) {
		t.Fatalf("expected *UnknownLanguageError, got %v", err)
	}
}

func TestCompile_RecognizedButUnimplemented(t *testing.T) {
	_, err := CompileOnce(": rule ;", "forth", Options{})
	var nie *NotImplementedError
	if !errors.As(err, &nie) {
		t.Fatalf("expected *NotImplementedError, got %v", err)
	}
}

func TestCompile_Options(t *testing.T) {
	r, err := CompileOnce("", LangAlgol, Options{ModuleName: "my_rule", Version: "2.1.0"})
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if r.Module.Name != "my_rule" || r.Module.Version != "2.1.0" {
		t.Errorf("options not applied: %s@%s", r.Module.Name, r.Module.Version)
	}

	if _, err := CompileOnce("", LangAlgol, Options{Version: "vNext"}); err == nil {
		t.Error("invalid semver must be rejected")
	}
}

func TestIsCompileError(t *testing.T) {
	_, err := CompileOnce("a := ", LangAlgol, Options{})
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !IsCompileError(err) {
		t.Errorf("parse failure should classify as compile error: %v", err)
	}

	_, err = CompileOnce("temperature := 1", LangAlgol, Options{})
	if err == nil {
		t.Fatal("expected lowering error")
	}
	if !IsCompileError(err) {
		t.Errorf("lowering failure should classify as compile error: %v", err)
	}

	if IsCompileError(errors.New("disk on fire")) {
		t.Error("arbitrary errors are not compile errors")
	}
}

func TestPipeline_CacheHits(t *testing.T) {
	p := NewPipeline(8)
	src := "mutation_rate := 0.05"

	first, err := p.Compile(src, LangAlgol, Options{})
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	second, err := p.Compile(src, LangAlgol, Options{})
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if first != second {
		t.Error("identical compiles should return the cached result")
	}

	stats := p.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("stats = %+v, want 1 hit / 1 miss", stats)
	}

	// a different version is a different cache entry
	third, err := p.Compile(src, LangAlgol, Options{Version: "2.0.0"})
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if third == first {
		t.Error("distinct options must not share a cache entry")
	}
}

func TestPipeline_CacheEviction(t *testing.T) {
	p := NewPipeline(1)
	if _, err := p.Compile("mutation_rate := 0.01", LangAlgol, Options{}); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Compile("mutation_rate := 0.02", LangAlgol, Options{}); err != nil {
		t.Fatal(err)
	}
	stats := p.Stats()
	if stats.Evictions != 1 {
		t.Errorf("expected 1 eviction, got %+v", stats)
	}
	if stats.Entries != 1 {
		t.Errorf("capacity 1 cache holds %d entries", stats.Entries)
	}
}

func TestPipeline_DeterministicHashes(t *testing.T) {
	src := `IF population > 100 THEN mutation_rate := 0.05 ELSE mutation_rate := 0.1 END`
	a, err := CompileOnce(src, LangAlgol, Options{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := CompileOnce(src, LangAlgol, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if a.Hash != b.Hash {
		t.Error("recompiling identical source must reproduce the hash")
	}
	if a.Hash != ir.Hash(a.Module) {
		t.Error("pipeline hash must equal the canonical module hash")
	}
}
