package codegen_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cagix/jmurmel/codegen"
	"github.com/cagix/jmurmel/lisp"
	"github.com/cagix/jmurmel/parser/reader"
)

func parseAll(t *testing.T, src string) []*lisp.Value {
	t.Helper()
	symtab := lisp.NewSymbolTable()
	rd := reader.New("<test>", strings.NewReader(src), symtab, nil)
	forms, err := rd.ReadAll()
	require.NoError(t, err)
	return forms
}

func generate(t *testing.T, src string) string {
	t.Helper()
	out, err := codegen.Generate(parseAll(t, src), codegen.Options{Package: "main"})
	require.NoError(t, err)
	return out
}

func TestGenerateProducesValidGoSkeleton(t *testing.T) {
	out := generate(t, `(princ "hello") (+ 1 2)`)

	for _, want := range []string{
		"package main",
		"github.com/cagix/jmurmel/lisp",
		"github.com/cagix/jmurmel/parser/reader",
		"func body(env *lisp.Env) (*lisp.Value, error) {",
		"func getValue(env *lisp.Env, name string) (*lisp.Value, error) {",
		"func getFunction(env *lisp.Env, name string) (func([]*lisp.Value) (*lisp.Value, error), error) {",
		"func main() {",
		"reader.Install()",
		"env := lisp.NewInterpreterEnv()",
		"*command-line-argument-list*",
		"body(env)",
	} {
		assert.Contains(t, out, want)
	}
}

func TestGenerateOpenCodesArithmetic(t *testing.T) {
	out := generate(t, `(+ 1 2)`)
	assert.Contains(t, out, `lisp.OpenCode("+",`)
}

func TestGenerateOrdinaryCallGoesThroughApply(t *testing.T) {
	out := generate(t, `(princ "hello")`)
	assert.Contains(t, out, "lisp.Apply(env,")
	assert.NotContains(t, out, `lisp.OpenCode("princ"`)
}

func TestGenerateDefaultsPackageToMain(t *testing.T) {
	out, err := codegen.Generate(parseAll(t, `1`), codegen.Options{})
	require.NoError(t, err)
	assert.Contains(t, out, "package main")
}

func TestGenerateDeduplicatesEqualConstants(t *testing.T) {
	out := generate(t, `(quote (1 2 3)) (quote (1 2 3))`)

	// Two structurally equal top-level constants should share one pool
	// entry, so the constructor for the (1 2 3) list appears exactly once.
	assert.Equal(t, 1, strings.Count(out, "lisp.Cons(lisp.Long(1)"))
}

func TestGenerateWiresLoadSourceForRuntimeLoad(t *testing.T) {
	out := generate(t, `(require 'some-module)`)

	// A generated program that evaluates (load ...)/(require ...) at
	// runtime needs lisp.LoadSource wired, or evalLoad panics on a nil
	// function call; reader.Install() must run before body/main.
	assert.Contains(t, out, `"github.com/cagix/jmurmel/parser/reader"`)
	assert.Contains(t, out, "reader.Install()")
	assert.Contains(t, out, "lisp.Eval(env,")
}

func TestGenerateEmptyProgram(t *testing.T) {
	out, err := codegen.Generate(nil, codegen.Options{Package: "main"})
	require.NoError(t, err)
	assert.Contains(t, out, "func main() {")
}

func TestGenerateSelfTailRecursionCompilesToDriverLoop(t *testing.T) {
	out := generate(t, `(defun count (n acc) (if (= n 0) acc (count (- n 1) (+ acc 1))))`)

	assert.Contains(t, out, "pendingCall{args:")
	assert.Contains(t, out, "pc := &pendingCall{args: args0}")
	assert.Contains(t, out, "for {")
	// The self call rebinds the loop instead of looking count back up and
	// calling through Apply; the only references to "count" left are where
	// the defun itself gets bound into the environment and the name symbol
	// the defun form returns as its value.
	assert.Equal(t, 2, strings.Count(out, `Intern("count")`))
}

func TestGenerateNonRecursiveDefunHasNoDriverLoop(t *testing.T) {
	// The pendingCall type is always declared, so check for its use
	// (a driver loop assigning into it), not its mere declaration.
	out := generate(t, `(defun square (x) (* x x))`)
	assert.NotContains(t, out, "pendingCall{args:")
}

func TestGenerateNonTailSelfCallIsNotTrampolined(t *testing.T) {
	// f calls itself as an argument, not in tail position: this must not
	// be rewritten into a pendingCall loop.
	out := generate(t, `(defun f (n) (if (= n 0) 1 (+ 1 (f (- n 1)))))`)
	assert.NotContains(t, out, "pendingCall{args:")
}

func TestGenerateLetLowersToChildEnv(t *testing.T) {
	out := generate(t, `(let ((x 1) (y 2)) (+ x y))`)
	assert.Contains(t, out, ".Child()")
	assert.Contains(t, out, ".Define(")
}

func TestGenerateFallsBackToEvalForLabelsAndDynamicAndNamedLet(t *testing.T) {
	for _, src := range []string{
		`(labels ((f (x) x)) (f 1))`,
		`(let x dynamic ((y 1)) y)`,
		`(let loop ((n 3)) (if (= n 0) 0 (loop (- n 1))))`,
	} {
		out := generate(t, src)
		assert.Contains(t, out, "lisp.Eval(env,", "expected evaluator fallback for %q", src)
	}
}

func TestGenerateExpandsTopLevelMacros(t *testing.T) {
	out := generate(t, `(defmacro twice (x) (list 'progn x x)) (twice (princ "hi"))`)

	// The macro is consumed at compile time: its name never appears as a
	// runtime call, but its expansion's two princ calls do. The third
	// lisp.Apply is the getFunction adapter every generated file carries.
	assert.NotContains(t, out, `"twice"`)
	assert.Equal(t, 3, strings.Count(out, `lisp.Apply(env,`))
}
