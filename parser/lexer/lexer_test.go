package lexer_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cagix/jmurmel/parser/lexer"
	"github.com/cagix/jmurmel/parser/token"
)

func scanAll(src string) []*token.Token {
	lx := lexer.New("<test>", strings.NewReader(src))
	var toks []*token.Token
	for {
		tok := lx.Next()
		toks = append(toks, tok)
		if tok.Type == token.EOF || tok.Type == token.ERROR {
			return toks
		}
	}
}

func TestLexerBasicTokens(t *testing.T) {
	toks := scanAll(`(foo 1 2.5 "str" 'a)`)
	want := []token.Type{token.LP, token.SYMBOL, token.INT, token.FLOAT, token.STRING, token.SQ, token.SYMBOL, token.RP, token.EOF}
	require.Len(t, toks, len(want))
	for i, ty := range want {
		assert.Equalf(t, ty, toks[i].Type, "token %d", i)
	}
}

func TestLexerLineComment(t *testing.T) {
	toks := scanAll("1 ; a comment\n2")
	require.Len(t, toks, 3)
	assert.Equal(t, token.INT, toks[0].Type)
	assert.Equal(t, token.INT, toks[1].Type)
	assert.Equal(t, token.EOF, toks[2].Type)
	assert.Equal(t, "1", toks[0].Text)
	assert.Equal(t, "2", toks[1].Text)
}

func TestLexerBlockComment(t *testing.T) {
	toks := scanAll("1 #| block\ncomment |# 2")
	require.Len(t, toks, 3)
	assert.Equal(t, "1", toks[0].Text)
	assert.Equal(t, "2", toks[1].Text)
}

func TestLexerCharLiteral(t *testing.T) {
	toks := scanAll(`#\a #\Newline #\(`)
	require.Len(t, toks, 4)
	for i := 0; i < 3; i++ {
		assert.Equalf(t, token.CHAR, toks[i].Type, "token %d", i)
	}
	assert.Equal(t, "a", toks[0].Text)
	assert.Equal(t, "Newline", toks[1].Text)
	assert.Equal(t, "(", toks[2].Text)
}

func TestLexerRadixIntegers(t *testing.T) {
	toks := scanAll("#b101 #o17 #xFF")
	require.Len(t, toks, 4)
	want := []string{"0b101", "0o17", "0xFF"}
	for i, w := range want {
		assert.Equalf(t, token.INT, toks[i].Type, "token %d", i)
		assert.Equalf(t, w, toks[i].Text, "token %d", i)
	}
}

func TestLexerFeatureDispatch(t *testing.T) {
	toks := scanAll("#+murmel 1")
	// toks[1] is the feature expression murmel; the guarded form follows.
	assert.Equal(t, token.FEATURE_PLUS, toks[0].Type)
	assert.Equal(t, token.INT, toks[2].Type)
}

func TestLexerUnquoteSplice(t *testing.T) {
	toks := scanAll(",@x ,y")
	assert.Equal(t, token.COMMA, toks[0].Type)
	assert.True(t, toks[0].Splice)
	assert.Equal(t, token.COMMA, toks[2].Type)
	assert.False(t, toks[2].Splice)
}

func TestLexerNegativeAndFloatNumbers(t *testing.T) {
	toks := scanAll("-5 -5.5 1e10 1.5e-3")
	want := []token.Type{token.INT, token.FLOAT, token.FLOAT, token.FLOAT}
	for i, ty := range want {
		assert.Equalf(t, ty, toks[i].Type, "token %d (%q)", i, toks[i].Text)
	}
}

func TestLexerPipeQuotedSymbol(t *testing.T) {
	toks := scanAll(`|has space|`)
	assert.Equal(t, token.SYMBOL, toks[0].Type)
	assert.True(t, toks[0].Escaped)
	assert.Equal(t, "has space", toks[0].Text)
}

func TestLexerUnterminatedString(t *testing.T) {
	toks := scanAll(`"never closed`)
	assert.Equal(t, token.ERROR, toks[0].Type)
}
