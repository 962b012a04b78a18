package lisp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cagix/jmurmel/lisptest"
)

func TestEvalSelfEvaluating(t *testing.T) {
	lisptest.RunTestSuite(t, lisptest.TestSuite{
		{"numbers and strings", lisptest.TestSequence{
			{"3", "3"},
			{"3.5", "3.5"},
			{`"hi"`, `"hi"`},
			{"()", "nil"},
			{"nil", "nil"},
			{"t", "t"},
		}},
		{"quote", lisptest.TestSequence{
			{"(quote 3)", "3"},
			{"'a", "a"},
			{"'(1 2 3)", "(1 2 3)"},
			{"''a", "(quote a)"},
		}},
	})
}

func TestEvalArithmeticAndCalls(t *testing.T) {
	lisptest.RunTestSuite(t, lisptest.TestSuite{
		{"lambda basics", lisptest.TestSequence{
			{"((lambda (x) x) 1)", "1"},
			{"((lambda () (+ 1 1)))", "2"},
			{"((lambda (x y) (+ x y)) 1 2)", "3"},
			{"(lambda (x) x)", "(lambda (x) x)"},
		}},
		{"defun", lisptest.TestSequence{
			{"(defun fn0 () (+ 1 1))", "fn0"},
			{"(fn0)", "2"},
			{"(defun fn2 (x y) (+ x y))", "fn2"},
			{"(fn2 1 2)", "3"},
		}},
		{"lists", lisptest.TestSequence{
			{"(cons 1 (cons 2 nil))", "(1 2)"},
			{"(list 1 2 3)", "(1 2 3)"},
			{"(car (list 1 2 3))", "1"},
			{"(cdr (list 1 2 3))", "(2 3)"},
			{"(reverse (list 1 2 3))", "(3 2 1)"},
			{"(append (list 1 2) (list 3 4))", "(1 2 3 4)"},
			{"(length (list 1 2 3))", "3"},
			{"(nth 1 (list 10 20 30))", "20"},
		}},
	})
}

func TestEvalControlFlow(t *testing.T) {
	lisptest.RunTestSuite(t, lisptest.TestSuite{
		{"if", lisptest.TestSequence{
			{"(if t 1 2)", "1"},
			{"(if nil 1 2)", "2"},
			{"(if nil 1)", "nil"},
		}},
		{"cond", lisptest.TestSequence{
			{"(cond (nil 1) (t 2))", "2"},
			{"(cond (nil 1) (nil 2))", "nil"},
		}},
		{"progn", lisptest.TestSequence{
			{"(progn 1 2 3)", "3"},
		}},
		{"let", lisptest.TestSequence{
			{"(let ((x 1) (y 2)) (+ x y))", "3"},
			{"(let* ((x 1) (y (+ x 1))) y)", "2"},
			{"(letrec ((even (lambda (n) (if (= n 0) t (odd (1- n))))) (odd (lambda (n) (if (= n 0) nil (even (1- n)))))) (even 10))", "t"},
		}},
		{"named let loop", lisptest.TestSequence{
			{"(let loop ((n 100000) (acc 0)) (if (= n 0) acc (loop (1- n) (+ acc 1))))", "100000"},
		}},
	})
}

func TestEvalSetqAndDefine(t *testing.T) {
	lisptest.RunTestSuite(t, lisptest.TestSuite{
		{"setq mutates", lisptest.TestSequence{
			{"(define x 1)", "x"},
			{"(setq x 2)", "2"},
			{"x", "2"},
		}},
	})
}

func TestEvalUnboundSymbol(t *testing.T) {
	env := lisptest.NewEnv()
	_, err := lisptest.RunExprErr(t, env, "some-undefined-name")
	assert.Error(t, err)
}
