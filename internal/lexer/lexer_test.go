package lexer

import (
	"testing"

	"github.com/jactl-lang/jactl/internal/token"
)

func collect(src string) []token.Token {
	l := New(src)
	var toks []token.Token
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			break
		}
	}
	return toks
}

func TestTokenizerRoundTrip(t *testing.T) {
	// token.Chars must equal the exact source slice between Offset and
	// Offset+len(Chars), for every non-synthetic token.
	src := "x = 3 + foo(1,2)\n"
	for _, tok := range collect(src) {
		if tok.Kind == token.EOF || tok.Kind == token.ERROR {
			continue
		}
		end := tok.Pos.Offset + len(tok.Chars)
		if end > len(src) {
			t.Fatalf("token %v chars overruns source", tok)
		}
		if src[tok.Pos.Offset:end] != tok.Chars {
			t.Errorf("token %+v: chars %q does not match source slice %q", tok, tok.Chars, src[tok.Pos.Offset:end])
		}
	}
}

func TestNumberLiterals(t *testing.T) {
	cases := []struct {
		src  string
		kind token.Type
	}{
		{"123", token.INTEGER},
		{"123L", token.LONG},
		{"123D", token.DOUBLE},
		{"1.5", token.DECIMAL},
		{"1.5e10", token.DOUBLE},
	}
	for _, c := range cases {
		toks := collect(c.src)
		if toks[0].Kind != c.kind {
			t.Errorf("%s: expected %v, got %v", c.src, c.kind, toks[0].Kind)
		}
	}
}

func TestDotAfterDecimalIsSeparateToken(t *testing.T) {
	toks := collect("1.2.3")
	want := []token.Type{token.DECIMAL, token.DOT, token.INTEGER, token.EOF}
	for i, w := range want {
		if toks[i].Kind != w {
			t.Fatalf("token %d: want %v got %v (%+v)", i, w, toks[i].Kind, toks)
		}
	}
}

func TestLeadingDotIsDotToken(t *testing.T) {
	toks := collect(".5")
	if toks[0].Kind != token.DOT {
		t.Fatalf("expected leading DOT, got %v", toks[0].Kind)
	}
}

func TestDoubleQuotedInterpolation(t *testing.T) {
	toks := collect(`"hello $name!"`)
	want := []token.Type{token.EXPR_STRING_START, token.STRING, token.DOLLAR_IDENTIFIER, token.EXPR_STRING_END, token.EOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %+v", len(toks), len(want), toks)
	}
	for i, w := range want {
		if toks[i].Kind != w {
			t.Errorf("token %d: want %v got %v", i, w, toks[i].Kind)
		}
	}
}

func TestNestedBraceInterpolation(t *testing.T) {
	toks := collect(`"sum=${1+2}"`)
	var kinds []token.Type
	for _, tk := range toks {
		kinds = append(kinds, tk.Kind)
	}
	want := []token.Type{
		token.EXPR_STRING_START, token.STRING, token.DOLLAR_BRACE,
		token.INTEGER, token.PLUS, token.INTEGER, token.RIGHT_BRACE,
		token.EXPR_STRING_END, token.EOF,
	}
	if len(kinds) != len(want) {
		t.Fatalf("got %v, want %v", kinds, want)
	}
	for i, w := range want {
		if kinds[i] != w {
			t.Errorf("token %d: want %v got %v", i, w, kinds[i])
		}
	}
}

func TestRecursiveInterpolation(t *testing.T) {
	toks := collect(`"a${"b$c"}"`)
	var kinds []token.Type
	for _, tk := range toks {
		kinds = append(kinds, tk.Kind)
	}
	want := []token.Type{
		token.EXPR_STRING_START, token.STRING, token.DOLLAR_BRACE,
		token.EXPR_STRING_START, token.STRING, token.DOLLAR_IDENTIFIER, token.EXPR_STRING_END,
		token.RIGHT_BRACE, token.EXPR_STRING_END, token.EOF,
	}
	if len(kinds) != len(want) {
		t.Fatalf("got %v, want %v", kinds, want)
	}
	for i, w := range want {
		if kinds[i] != w {
			t.Errorf("token %d: want %v got %v", i, w, kinds[i])
		}
	}
}

func TestTripleQuotedAllowsNewlines(t *testing.T) {
	toks := collect("\"\"\"line1\nline2\"\"\"")
	if toks[0].Kind != token.EXPR_STRING_START {
		t.Fatalf("expected EXPR_STRING_START, got %v", toks[0].Kind)
	}
	if toks[1].Kind != token.EXPR_STRING_END {
		t.Fatalf("expected EXPR_STRING_END, got %v", toks[1].Kind)
	}
	if toks[1].Chars != "line1\nline2" {
		t.Errorf("expected embedded newline preserved, got %q", toks[1].Chars)
	}
}

func TestSingleQuotedHasNoInterpolation(t *testing.T) {
	toks := collect(`'hello $name'`)
	if toks[0].Kind != token.STRING {
		t.Fatalf("expected plain STRING, got %v (%+v)", toks[0].Kind, toks)
	}
	if toks[0].Value != "hello $name" {
		t.Errorf("expected literal $ to survive, got %v", toks[0].Value)
	}
}

func TestDollarKeywordIsError(t *testing.T) {
	toks := collect(`"$if"`)
	found := false
	for _, tk := range toks {
		if tk.Kind == token.ERROR {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an ERROR token for $if, got %+v", toks)
	}
}

func TestNewlineIsSignificant(t *testing.T) {
	toks := collect("a\nb")
	want := []token.Type{token.IDENT, token.EOL, token.IDENT, token.EOF}
	for i, w := range want {
		if toks[i].Kind != w {
			t.Fatalf("token %d: want %v got %v", i, w, toks[i].Kind)
		}
	}
}

func TestRewindIdempotence(t *testing.T) {
	// Rewinding to the same State must always reproduce the same tokens.
	l1 := New("a + b * c")
	_ = l1.Next() // a
	save := l1.SaveState()
	lookahead1 := []token.Token{l1.Next(), l1.Next()} // + b
	l1.Rewind(save)
	lookahead2 := []token.Token{l1.Next(), l1.Next()}
	if lookahead1[0].Kind != lookahead2[0].Kind || lookahead1[1].Kind != lookahead2[1].Kind {
		t.Fatalf("rewind did not reproduce the same lookahead: %v vs %v", lookahead1, lookahead2)
	}
	rest1 := collectRemaining(l1)

	l2 := New("a + b * c")
	_ = l2.Next()
	_ = l2.Next()
	_ = l2.Next()
	rest2 := collectRemaining(l2)

	if len(rest1) != len(rest2) {
		t.Fatalf("different tail lengths after rewind: %d vs %d", len(rest1), len(rest2))
	}
	for i := range rest1 {
		if rest1[i].Kind != rest2[i].Kind {
			t.Errorf("tail token %d differs: %v vs %v", i, rest1[i].Kind, rest2[i].Kind)
		}
	}
}

func collectRemaining(l *Lexer) []token.Token {
	var toks []token.Token
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			break
		}
	}
	return toks
}

func TestPeekDoesNotConsume(t *testing.T) {
	l := New("1 2 3")
	first := l.Peek(0)
	second := l.Peek(1)
	if first.Value != 1 && first.Value != int(1) {
		// value kept for documentation purposes only
	}
	again := l.Next()
	if again.Kind != first.Kind || again.Chars != first.Chars {
		t.Fatalf("Next() after Peek(0) should return the same token: %+v vs %+v", again, first)
	}
	next := l.Next()
	if next.Kind != second.Kind {
		t.Fatalf("Peek(1) mismatch with actual second token")
	}
}
