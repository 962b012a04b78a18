// Package lisptest is a small harness for evaluating sequences of Murmel
// expressions against expected printed results.
package lisptest

import (
	"strings"
	"testing"

	"github.com/cagix/jmurmel/lisp"
	"github.com/cagix/jmurmel/parser/reader"
)

// TestSequence is a sequence of expressions evaluated one after another in
// a single Env, so later expressions observe the side effects (define,
// setq, defun...) of earlier ones.
type TestSequence []struct {
	Expr   string // a Murmel expression
	Result string // its printed (Value.String) result
}

// TestSuite is a set of named, independently-evaluated TestSequences.
type TestSuite []struct {
	Name string
	TestSequence
}

// NewEnv returns a fresh interpreter Env of the kind cmd/jmurmel builds,
// with the reader wired for load/require.
func NewEnv() *lisp.Env {
	reader.Install()
	return lisp.NewInterpreterEnv()
}

// RunTestSuite runs every TestSequence in tests on its own Env, reporting
// mismatches and parse/eval errors through t.
func RunTestSuite(t *testing.T, tests TestSuite) {
	for i, test := range tests {
		env := NewEnv()
		for j, expr := range test.TestSequence {
			rd := reader.New("<test>", strings.NewReader(expr.Expr), env.Runtime().Symbols, env.Runtime().Features)
			form, err := rd.Read()
			if err != nil {
				t.Errorf("test %d %q: expr %d: parse error: %v", i, test.Name, j, err)
				continue
			}
			v, err := lisp.Eval(env, form)
			if err != nil {
				t.Errorf("test %d %q: expr %d: eval error: %v", i, test.Name, j, err)
				continue
			}
			if got := v.String(); got != expr.Result {
				t.Errorf("test %d %q: expr %d: expected result %s (got %s)", i, test.Name, j, expr.Result, got)
			}
		}
	}
}

// RunExprErr evaluates a single expression in env and returns whatever
// error parsing or evaluation produced, without failing t. Used to assert
// that an expression is rejected.
func RunExprErr(t *testing.T, env *lisp.Env, expr string) (*lisp.Value, error) {
	t.Helper()
	rd := reader.New("<test>", strings.NewReader(expr), env.Runtime().Symbols, env.Runtime().Features)
	form, err := rd.Read()
	if err != nil {
		return nil, err
	}
	return lisp.Eval(env, form)
}

// RunExpr evaluates a single expression in env and returns its result,
// failing t on parse or eval errors. Useful for tests that need to inspect
// a *lisp.Value directly instead of comparing printed forms.
func RunExpr(t *testing.T, env *lisp.Env, expr string) *lisp.Value {
	t.Helper()
	rd := reader.New("<test>", strings.NewReader(expr), env.Runtime().Symbols, env.Runtime().Features)
	form, err := rd.Read()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	v, err := lisp.Eval(env, form)
	if err != nil {
		t.Fatalf("eval error: %v", err)
	}
	return v
}
