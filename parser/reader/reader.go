// Package reader turns a token stream into Value forms: it resolves quote
// and quasiquote syntax, radix and character literals, and the #+/#-
// feature-expression reader macros. Grounded on the recursive-descent shape
// of parser/rdparser in the retrieved corpus, adapted to the cons-based
// value model instead of a slice-backed AST.
package reader

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cagix/jmurmel/lisp"
	"github.com/cagix/jmurmel/parser/lexer"
	"github.com/cagix/jmurmel/parser/token"
)

// Install wires lisp.LoadSource to this package's Reader, so that load,
// require and provide can pull in and parse other source files without the
// lisp package importing the parser tree directly. Call once during
// process startup, before evaluating any form that might load a file.
func Install() {
	lisp.LoadSource = func(env *lisp.Env, path string, src []byte) ([]*lisp.Value, error) {
		rt := env.Runtime()
		rd := New(path, strings.NewReader(string(src)), rt.Symbols, rt.Features)
		return rd.ReadAll()
	}
	lisp.ParseExpression = func(env *lisp.Env, src string) ([]*lisp.Value, error) {
		rt := env.Runtime()
		rd := New("<embedder>", strings.NewReader(src), rt.Symbols, rt.Features)
		return rd.ReadAll()
	}
	lisp.ReadForm = func(env *lisp.Env, r io.RuneScanner) (*lisp.Value, error) {
		rt := env.Runtime()
		rd := New("<read>", r, rt.Symbols, rt.Features)
		v, err := rd.Read()
		if err == io.EOF {
			return lisp.Nil(), nil
		}
		return v, err
	}
}

// Reader reads successive top-level forms from a single source stream.
type Reader struct {
	lx       *lexer.Lexer
	symtab   *lisp.SymbolTable
	features map[string]bool
	peeked   *token.Token
}

// New returns a Reader over src, attributing positions to file and
// interning symbols into symtab. features controls which #+/#- branches are
// taken; a nil map means no feature is considered present.
func New(file string, src io.RuneScanner, symtab *lisp.SymbolTable, features map[string]bool) *Reader {
	return &Reader{lx: lexer.New(file, src), symtab: symtab, features: features}
}

func (r *Reader) next() *token.Token {
	if r.peeked != nil {
		t := r.peeked
		r.peeked = nil
		return t
	}
	return r.lx.Next()
}

func (r *Reader) peek() *token.Token {
	if r.peeked == nil {
		r.peeked = r.lx.Next()
	}
	return r.peeked
}

// Read reads and returns the next top-level form, or io.EOF once the
// stream is exhausted.
func (r *Reader) Read() (*lisp.Value, error) {
	return r.readForm()
}

// ReadAll reads every remaining top-level form.
func (r *Reader) ReadAll() ([]*lisp.Value, error) {
	var forms []*lisp.Value
	for {
		v, err := r.Read()
		if err == io.EOF {
			return forms, nil
		}
		if err != nil {
			return forms, err
		}
		forms = append(forms, v)
	}
}

func (r *Reader) readForm() (*lisp.Value, error) {
	tok := r.next()
	return r.readFormTok(tok)
}

func (r *Reader) readFormTok(tok *token.Token) (*lisp.Value, error) {
	switch tok.Type {
	case token.EOF:
		return nil, io.EOF
	case token.ERROR:
		return nil, r.errf(tok, "%s", tok.Text)
	case token.LP:
		return r.readList(tok)
	case token.RP:
		return nil, r.errf(tok, "unexpected )")
	case token.SQ:
		return r.readWrapped(tok, "quote")
	case token.BQ:
		inner, err := r.readForm()
		if err != nil {
			return nil, err
		}
		return qqExpand(r.symtab, inner), nil
	case token.COMMA:
		inner, err := r.readForm()
		if err != nil {
			return nil, err
		}
		name := "unquote"
		if tok.Splice {
			name = "unquote-splicing"
		}
		return lisp.List(lisp.Sym(r.symtab.Intern(name)), inner), nil
	case token.DOT:
		return nil, r.errf(tok, "unexpected . outside a list")
	case token.SYMBOL:
		return r.readSymbol(tok), nil
	case token.INT:
		return r.readInt(tok)
	case token.FLOAT:
		f, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			return nil, r.errf(tok, "malformed float literal %q", tok.Text)
		}
		return lisp.Double(f), nil
	case token.STRING:
		return lisp.Str(tok.Text), nil
	case token.CHAR:
		return r.readChar(tok)
	case token.HASHQUOTE:
		return r.readForm()
	case token.FEATURE_PLUS, token.FEATURE_MINUS:
		return r.readFeatureForm(tok)
	default:
		return nil, r.errf(tok, "unexpected token %s", tok)
	}
}

func (r *Reader) readWrapped(tok *token.Token, name string) (*lisp.Value, error) {
	inner, err := r.readForm()
	if err != nil {
		if err == io.EOF {
			return nil, r.errf(tok, "unexpected end of input after %s", name)
		}
		return nil, err
	}
	sym := r.symtab.Intern(name)
	return lisp.List(lisp.Sym(sym), inner), nil
}

func (r *Reader) readSymbol(tok *token.Token) *lisp.Value {
	if !tok.Escaped {
		switch strings.ToLower(tok.Text) {
		case "nil":
			return lisp.Nil()
		}
	}
	return lisp.Sym(r.symtab.Intern(tok.Text))
}

func (r *Reader) readInt(tok *token.Token) (*lisp.Value, error) {
	text := tok.Text
	base := 10
	switch {
	case strings.HasPrefix(text, "0b") || strings.HasPrefix(text, "0B"):
		base, text = 2, text[2:]
	case strings.HasPrefix(text, "0o") || strings.HasPrefix(text, "0O"):
		base, text = 8, text[2:]
	case strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X"):
		base, text = 16, text[2:]
	}
	n, err := strconv.ParseInt(text, base, 64)
	if err != nil {
		return nil, r.errf(tok, "malformed integer literal %q", tok.Text)
	}
	return lisp.Long(n), nil
}

func (r *Reader) readChar(tok *token.Token) (*lisp.Value, error) {
	text := tok.Text
	runes := []rune(text)
	if len(runes) == 1 {
		return lisp.Char(runes[0]), nil
	}
	if n, err := strconv.ParseInt(text, 10, 32); err == nil {
		return lisp.Char(rune(n)), nil
	}
	if r2, ok := lexer.ControlChar(text); ok {
		return lisp.Char(r2), nil
	}
	return nil, r.errf(tok, "unknown character name %q", text)
}

// readFeatureForm implements #+feature form and #-feature form: the
// feature expression is read as a form without evaluation (only atoms and
// and/or/not combinations of feature names are meaningful), then the
// guarded form is either returned or skipped depending on the test.
func (r *Reader) readFeatureForm(tok *token.Token) (*lisp.Value, error) {
	featureExpr, err := r.readForm()
	if err != nil {
		return nil, r.errf(tok, "malformed feature expression: %v", err)
	}
	present := r.evalFeature(featureExpr)
	if tok.Type == token.FEATURE_MINUS {
		present = !present
	}
	guarded, err := r.readForm()
	if err != nil {
		return nil, r.errf(tok, "missing form guarded by %s: %v", tok.Text, err)
	}
	if present {
		return guarded, nil
	}
	// Skipped forms are still consumed above; read the next real form in
	// their place so #+/#- behaves as if it were never there.
	return r.readForm()
}

func (r *Reader) evalFeature(expr *lisp.Value) bool {
	if lisp.IsNil(expr) {
		return false
	}
	if expr.Kind == lisp.KSymbol {
		return r.features[strings.ToLower(expr.Sym.Name)]
	}
	if !lisp.IsCons(expr) {
		return false
	}
	head := lisp.Car(expr)
	if head.Kind != lisp.KSymbol {
		return false
	}
	args, _, _ := lisp.ListToSlice(lisp.Cdr(expr))
	switch strings.ToLower(head.Sym.Name) {
	case "and":
		for _, a := range args {
			if !r.evalFeature(a) {
				return false
			}
		}
		return true
	case "or":
		for _, a := range args {
			if r.evalFeature(a) {
				return true
			}
		}
		return false
	case "not":
		return len(args) == 1 && !r.evalFeature(args[0])
	default:
		return false
	}
}

func (r *Reader) readList(open *token.Token) (*lisp.Value, error) {
	var elems []*lisp.Value
	for {
		tok := r.next()
		if tok.Type == token.RP {
			return lisp.List(elems...), nil
		}
		if tok.Type == token.EOF {
			return nil, r.errf(open, "unterminated list starting here")
		}
		if tok.Type == token.DOT {
			tail, err := r.readForm()
			if err != nil {
				return nil, err
			}
			closeTok := r.next()
			if closeTok.Type != token.RP {
				return nil, r.errf(closeTok, "expected ) after dotted tail")
			}
			return lisp.ListStar(tail, elems...), nil
		}
		form, err := r.readFormTok(tok)
		if err != nil {
			return nil, err
		}
		elems = append(elems, form)
	}
}

func (r *Reader) errf(tok *token.Token, format string, args ...interface{}) error {
	pos := tok.Pos
	return fmt.Errorf("%s: %s", pos.String(), fmt.Sprintf(format, args...))
}
