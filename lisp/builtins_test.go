package lisp_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cagix/jmurmel/lisp"
	"github.com/cagix/jmurmel/lisptest"
	"github.com/cagix/jmurmel/parser/reader"
)

func TestBuiltinsPredicatesAndEquality(t *testing.T) {
	lisptest.RunTestSuite(t, lisptest.TestSuite{
		{"predicates", lisptest.TestSequence{
			{"(consp (cons 1 2))", "t"},
			{"(consp 1)", "nil"},
			{"(atom 1)", "t"},
			{"(listp nil)", "t"},
			{"(numberp 1)", "t"},
			{"(numberp 1.5)", "t"},
			{"(stringp \"x\")", "t"},
			{"(symbolp 'x)", "t"},
			{"(functionp (lambda (x) x))", "t"},
			{"(functionp car)", "t"},
		}},
		{"equality", lisptest.TestSequence{
			{"(eq 'a 'a)", "t"},
			{"(eq (list 1) (list 1))", "nil"},
			{"(eql 1 1)", "t"},
			{"(eql 1 1.0)", "nil"},
			{"(equal (list 1 2) (list 1 2))", "t"},
			{"(equal \"ab\" \"ab\")", "t"},
		}},
		{"member and assoc", lisptest.TestSequence{
			{"(member 2 (list 1 2 3))", "(2 3)"},
			{"(assoc 'b (list (cons 'a 1) (cons 'b 2)))", "(b . 2)"},
		}},
	})
}

func TestBuiltinsApplyAndFuncall(t *testing.T) {
	lisptest.RunTestSuite(t, lisptest.TestSuite{
		{"apply", lisptest.TestSequence{
			{"(apply + (list 1 2 3))", "6"},
			{"(apply + 1 2 (list 3 4))", "10"},
			{"(apply car (list (list 1 2)))", "1"},
		}},
		{"funcall", lisptest.TestSequence{
			{"(funcall + 1 2)", "3"},
			{"(funcall (lambda (x) (* x x)) 5)", "25"},
		}},
		{"eval", lisptest.TestSequence{
			{"(eval (quote (+ 1 2)))", "3"},
		}},
	})
}

func TestBuiltinsRplacaRplacd(t *testing.T) {
	env := lisptest.NewEnv()
	lisptest.RunExpr(t, env, "(define c (cons 1 2))")
	lisptest.RunExpr(t, env, "(rplaca c 9)")
	assert.Equal(t, "(9 . 2)", lisptest.RunExpr(t, env, "c").String())

	lisptest.RunExpr(t, env, "(rplacd c 8)")
	assert.Equal(t, "(9 . 8)", lisptest.RunExpr(t, env, "c").String())
}

func TestBuiltinsApplyWithNoExtraArgs(t *testing.T) {
	env := lisptest.NewEnv()
	got := lisptest.RunExpr(t, env, "(apply + nil)")
	assert.Equal(t, "0", got.String())
}

// TestApplyTailCallDoesNotGrowGoStack drives a self-tail-recursive Murmel
// function entirely through (apply self args); if Eval's dispatch recursed
// through Apply/applyClosure the way it did before, this would overflow the
// Go stack well before reaching the count below.
func TestApplyTailCallDoesNotGrowGoStack(t *testing.T) {
	env := lisptest.NewEnv()
	lisptest.RunExpr(t, env, "(defun loop (n acc) (if (= n 0) acc (apply loop (list (1- n) (+ acc 1)))))")
	got := lisptest.RunExpr(t, env, "(loop 200000 0)")
	assert.Equal(t, "200000", got.String())
}

func TestBuiltinsListStarAndAssq(t *testing.T) {
	lisptest.RunTestSuite(t, lisptest.TestSuite{
		{"list*", lisptest.TestSequence{
			{"(list* 1 2 (list 3 4))", "(1 2 3 4)"},
			{"(list* 1)", "1"},
		}},
		{"assq", lisptest.TestSequence{
			{"(assq 'b (list (cons 'a 1) (cons 'b 2)))", "(b . 2)"},
			{"(assq 'c (list (cons 'a 1) (cons 'b 2)))", "nil"},
		}},
	})
}

func TestBuiltinsMacroexpand1(t *testing.T) {
	env := lisptest.NewEnv()
	lisptest.RunExpr(t, env, "(defmacro twice (x) (list 'progn x x))")
	got := lisptest.RunExpr(t, env, "(macroexpand-1 '(twice (setq y 1)))")
	assert.Equal(t, "(progn (setq y 1) (setq y 1))", got.String())

	notMacro := lisptest.RunExpr(t, env, "(macroexpand-1 '(+ 1 2))")
	assert.Equal(t, "(+ 1 2)", notMacro.String())
}

func TestBuiltinsFatalReturnsFatalKind(t *testing.T) {
	env := lisptest.NewEnv()
	_, err := lisptest.RunExprErr(t, env, `(fatal "unrecoverable")`)
	require.Error(t, err)
	assert.Equal(t, lisp.Fatal, lisp.KindOf(err))
}

func TestBuiltinsFormat(t *testing.T) {
	lisptest.RunTestSuite(t, lisptest.TestSuite{
		{"format to a string", lisptest.TestSequence{
			{`(format nil "~a plus ~a is ~d" 1 2 3)`, `"1 plus 2 is 3"`},
			{`(format nil "~s" "hi")`, `"\"hi\""`},
			{`(format nil "a~%b")`, `"a\nb"`},
			{`(format nil "100~~")`, `"100~"`},
		}},
	})
}

func TestBuiltinsFormatLocaleSkipsLocaleArg(t *testing.T) {
	env := lisptest.NewEnv()
	got := lisptest.RunExpr(t, env, `(format-locale nil "en-US" "~a" 42)`)
	assert.Equal(t, `"42"`, got.String())
}

func TestBuiltinsWriteAcceptsEscapeOverride(t *testing.T) {
	reader.Install()
	var buf bytes.Buffer
	env := lisp.NewInterpreterEnv(lisp.WithStdout(&buf))

	got := lisptest.RunExpr(t, env, `(write "hi" nil)`)
	assert.Equal(t, `"hi"`, got.String())
	assert.Equal(t, "hi", buf.String())

	buf.Reset()
	lisptest.RunExpr(t, env, `(write "hi")`)
	assert.Equal(t, `"hi"`, buf.String())
}

func TestBuiltinsReadParsesOneFormFromStdin(t *testing.T) {
	reader.Install()
	env := lisp.NewInterpreterEnv(lisp.WithStdin(strings.NewReader("(1 2 3) (4 5)")))

	got := lisptest.RunExpr(t, env, "(read)")
	assert.Equal(t, "(1 2 3)", got.String())
}
