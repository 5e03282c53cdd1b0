package grammar

import "testing"

func TestLexCompoundClauseOpeners(t *testing.T) {
	toks, err := lex("GROUP BY ORDER BY")
	if err != nil {
		t.Fatalf("lex() error: %v", err)
	}
	kinds := []tokenKind{tokenGroupBy, tokenOrderBy, tokenEOF}
	if len(toks) != len(kinds) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(kinds))
	}
	for i, k := range kinds {
		if toks[i].kind != k {
			t.Fatalf("token %d kind = %d, want %d", i, toks[i].kind, k)
		}
	}

	// Two interior spaces break the literal into plain words.
	toks, err = lex("GROUP  BY")
	if err != nil {
		t.Fatalf("lex() error: %v", err)
	}
	if len(toks) != 3 || toks[0].kind != tokenWord || toks[0].text != "GROUP" || toks[1].text != "BY" {
		t.Fatalf("lex(GROUP  BY) = %+v", toks)
	}

	// Word characters may follow the literal directly.
	toks, err = lex("GROUP BYcountry")
	if err != nil {
		t.Fatalf("lex() error: %v", err)
	}
	if len(toks) != 3 || toks[0].kind != tokenGroupBy || toks[1].kind != tokenWord || toks[1].text != "country" {
		t.Fatalf("lex(GROUP BYcountry) = %+v", toks)
	}
}

func TestLexNumbers(t *testing.T) {
	tests := []struct {
		input string
		text  string
		isInt bool
	}{
		{"42", "42", true},
		{"0", "0", true},
		{"-3", "-3", false},
		{"+7", "+7", false},
		{"3.14", "3.14", false},
		{".5", ".5", false},
		{"2.", "2.", false},
		{"1e3", "1e3", false},
		{"1.5E-2", "1.5E-2", false},
	}
	for _, tt := range tests {
		toks, err := lex(tt.input)
		if err != nil {
			t.Fatalf("lex(%q) error: %v", tt.input, err)
		}
		if toks[0].kind != tokenNumber || toks[0].text != tt.text || toks[0].isInt != tt.isInt {
			t.Fatalf("lex(%q) = %+v", tt.input, toks[0])
		}
	}

	// An exponent without digits stays outside the number token.
	toks, err := lex("1e")
	if err != nil {
		t.Fatalf("lex(1e) error: %v", err)
	}
	if toks[0].text != "1" || toks[1].kind != tokenWord || toks[1].text != "e" {
		t.Fatalf("lex(1e) = %+v %+v", toks[0], toks[1])
	}
}

func TestLexStrings(t *testing.T) {
	toks, err := lex(`'United Kingdom' "double"`)
	if err != nil {
		t.Fatalf("lex() error: %v", err)
	}
	if toks[0].kind != tokenString || toks[0].text != "'United Kingdom'" {
		t.Fatalf("single-quoted literal = %+v", toks[0])
	}
	if toks[1].kind != tokenString || toks[1].text != `"double"` {
		t.Fatalf("double-quoted literal = %+v", toks[1])
	}

	// No escaping: a quote always terminates the literal.
	toks, err = lex(`'it''s'`)
	if err != nil {
		t.Fatalf("lex() error: %v", err)
	}
	if toks[0].text != "'it'" || toks[1].text != "'s'" {
		t.Fatalf("adjacent literals = %+v %+v", toks[0], toks[1])
	}

	if _, err := lex("'open"); err == nil {
		t.Fatal("expected error for unterminated string")
	}
}

func TestLexOperators(t *testing.T) {
	toks, err := lex("> < >= <= = !=")
	if err != nil {
		t.Fatalf("lex() error: %v", err)
	}
	want := []string{">", "<", ">=", "<=", "=", "!="}
	for i, w := range want {
		if toks[i].kind != tokenOp || toks[i].text != w {
			t.Fatalf("token %d = %+v, want operator %q", i, toks[i], w)
		}
	}

	if _, err := lex("!"); err == nil {
		t.Fatal("expected error for bare bang")
	}
}

func TestLexPositions(t *testing.T) {
	toks, err := lex("SELECT *\nFROM orders")
	if err != nil {
		t.Fatalf("lex() error: %v", err)
	}
	wants := []struct{ line, col int }{{1, 1}, {1, 8}, {2, 1}, {2, 6}}
	for i, w := range wants {
		if toks[i].line != w.line || toks[i].col != w.col {
			t.Fatalf("token %d at line %d col %d, want line %d col %d",
				i, toks[i].line, toks[i].col, w.line, w.col)
		}
	}
}
