package lisp_test

import (
	"testing"

	"github.com/cagix/jmurmel/lisptest"
)

func TestDefmacroExpansion(t *testing.T) {
	lisptest.RunTestSuite(t, lisptest.TestSuite{
		{"unless macro", lisptest.TestSequence{
			{"(defmacro unless (test then) (list 'if test nil then))", "unless"},
			{"(unless nil 42)", "42"},
			{"(unless t 42)", "nil"},
		}},
		{"macro using quasiquote to build the expansion", lisptest.TestSequence{
			{"(defmacro my-when (test & rest) `(if ,test (progn ,@rest) nil))", "my-when"},
			{"(my-when t 1 2 3)", "3"},
			{"(my-when nil 1 2 3)", "nil"},
		}},
	})
}
