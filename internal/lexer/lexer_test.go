package lexer

import "testing"

func TestTokenize_Assignment(t *testing.T) {
	toks, err := Tokenize("mutation_rate := 0.05")
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}

	want := []struct {
		typ TokenType
		lit string
	}{
		{TokenIdentifier, "mutation_rate"},
		{TokenAssign, ":="},
		{TokenNumber, "0.05"},
		{TokenEOF, ""},
	}
	if len(toks) != len(want) {
		t.Fatalf("expected %d tokens, got %d: %v", len(want), len(toks), toks)
	}
	for i, w := range want {
		if toks[i].Type != w.typ {
			t.Errorf("token %d: expected type %s, got %s", i, w.typ, toks[i].Type)
		}
		if toks[i].Literal != w.lit {
			t.Errorf("token %d: expected literal %q, got %q", i, w.lit, toks[i].Literal)
		}
	}
}

func TestTokenize_Conditional(t *testing.T) {
	src := `IF population > 100 THEN
  mutation_rate := 0.05
ELSE
  mutation_rate := 0.1
END`
	toks, err := Tokenize(src)
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}

	types := make([]TokenType, len(toks))
	for i, tok := range toks {
		types[i] = tok.Type
	}
	want := []TokenType{
		TokenIf, TokenIdentifier, TokenGt, TokenNumber, TokenThen,
		TokenIdentifier, TokenAssign, TokenNumber,
		TokenElse,
		TokenIdentifier, TokenAssign, TokenNumber,
		TokenEnd, TokenEOF,
	}
	if len(types) != len(want) {
		t.Fatalf("expected %d tokens, got %d: %v", len(want), len(types), toks)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("token %d: expected %s, got %s", i, want[i], types[i])
		}
	}
}

func TestTokenize_Operators(t *testing.T) {
	tests := []struct {
		src string
		typ TokenType
	}{
		{"+", TokenPlus},
		{"-", TokenMinus},
		{"*", TokenMul},
		{"/", TokenDiv},
		{">", TokenGt},
		{"<", TokenLt},
		{">=", TokenGe},
		{"<=", TokenLe},
		{"==", TokenEq},
		{"!=", TokenNe},
		{"(", TokenLParen},
		{")", TokenRParen},
		{";", TokenSemicolon},
	}
	for _, tt := range tests {
		toks, err := Tokenize(tt.src)
		if err != nil {
			t.Fatalf("Tokenize(%q) failed: %v", tt.src, err)
		}
		if toks[0].Type != tt.typ {
			t.Errorf("Tokenize(%q): expected %s, got %s", tt.src, tt.typ, toks[0].Type)
		}
	}
}

func TestTokenize_CommentsAndCase(t *testing.T) {
	toks, err := Tokenize("# adjust the rate\nif energy < 20 then end")
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}
	if toks[0].Type != TokenIf {
		t.Errorf("expected lower-case keyword to lex as IF, got %s", toks[0].Type)
	}
	if toks[0].Line != 2 {
		t.Errorf("expected IF on line 2, got line %d", toks[0].Line)
	}
}

func TestTokenize_Errors(t *testing.T) {
	for _, src := range []string{"a := 1.", "a := 1.2.3", "a @ b"} {
		if _, err := Tokenize(src); err == nil {
			t.Errorf("Tokenize(%q): expected error, got none", src)
		}
	}
}
