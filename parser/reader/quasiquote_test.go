package reader_test

import (
	"testing"

	"github.com/cagix/jmurmel/lisptest"
)

func TestQuasiquoteExpansion(t *testing.T) {
	lisptest.RunTestSuite(t, lisptest.TestSuite{
		{"plain backquote is equivalent to quote", lisptest.TestSequence{
			{"`(1 2 3)", "(1 2 3)"},
			{"`a", "a"},
		}},
		{"unquote splices a single value", lisptest.TestSequence{
			{"`(1 2 ,(+ 1 2))", "(1 2 3)"},
			{"(define x 5)", "x"},
			{"`(a ,x b)", "(a 5 b)"},
		}},
		{"unquote-splicing inlines a list", lisptest.TestSequence{
			{"`(1 ,@(list 2 3) 4)", "(1 2 3 4)"},
			{"`(,@(list 1 2))", "(1 2)"},
		}},
	})
}
