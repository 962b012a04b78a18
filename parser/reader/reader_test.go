package reader_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cagix/jmurmel/lisp"
	"github.com/cagix/jmurmel/parser/reader"
)

func readOne(t *testing.T, src string) *lisp.Value {
	t.Helper()
	symtab := lisp.NewSymbolTable()
	rd := reader.New("<test>", strings.NewReader(src), symtab, map[string]bool{"murmel": true})
	v, err := rd.Read()
	require.NoErrorf(t, err, "read %q", src)
	return v
}

func TestReaderLiterals(t *testing.T) {
	cases := []struct{ src, want string }{
		{"3", "3"},
		{"-3", "-3"},
		{"3.5", "3.5"},
		{`"a string"`, `"a string"`},
		{"()", "nil"},
		{"nil", "nil"},
		{"foo", "foo"},
		{"(1 2 3)", "(1 2 3)"},
		{"(1 . 2)", "(1 . 2)"},
		{"(1 2 . 3)", "(1 2 . 3)"},
		{"#\\a", "#\\a"},
		{"#b101", "5"},
		{"#o17", "15"},
		{"#xFF", "255"},
	}
	for _, c := range cases {
		v := readOne(t, c.src)
		assert.Equalf(t, c.want, v.String(), "read %q", c.src)
	}
}

func TestReaderQuoteSyntax(t *testing.T) {
	assert.Equal(t, "(quote (1 2))", readOne(t, "'(1 2)").String())
	assert.Equal(t, "(unquote x)", readOne(t, ",x").String())
	assert.Equal(t, "(unquote-splicing x)", readOne(t, ",@x").String())
}

func TestReaderFeatureDispatch(t *testing.T) {
	symtab := lisp.NewSymbolTable()
	rd := reader.New("<test>", strings.NewReader("#+murmel 1 #-murmel 2 #+(not murmel) 3 4"), symtab, map[string]bool{"murmel": true})
	forms, err := rd.ReadAll()
	require.NoError(t, err)

	got := make([]string, len(forms))
	for i, f := range forms {
		got[i] = f.String()
	}
	assert.Equal(t, []string{"1", "4"}, got)
}

func TestReaderHashQuoteIsNoop(t *testing.T) {
	assert.Equal(t, "car", readOne(t, "#'car").String())
}

func TestReaderSymbolInterning(t *testing.T) {
	symtab := lisp.NewSymbolTable()
	rd := reader.New("<test>", strings.NewReader("foo Foo FOO"), symtab, nil)
	forms, err := rd.ReadAll()
	require.NoError(t, err)

	for i := 1; i < len(forms); i++ {
		assert.Samef(t, forms[0].Sym, forms[i].Sym, "form %d", i)
	}
}

func TestReaderUnterminatedList(t *testing.T) {
	symtab := lisp.NewSymbolTable()
	rd := reader.New("<test>", strings.NewReader("(1 2"), symtab, nil)
	_, err := rd.Read()
	assert.Error(t, err)
}
