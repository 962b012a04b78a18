package lisp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cagix/jmurmel/lisptest"
)

func TestNumericArithmetic(t *testing.T) {
	lisptest.RunTestSuite(t, lisptest.TestSuite{
		{"integer arithmetic stays integer", lisptest.TestSequence{
			{"(+ 1 2 3)", "6"},
			{"(* 2 3 4)", "24"},
			{"(- 10 1 2)", "7"},
			{"(- 5)", "-5"},
			{"(/ 10 2)", "5"},
			{"(/ 6 4)", "1.5"},
		}},
		{"float promotion", lisptest.TestSequence{
			{"(+ 1 2.0)", "3.0"},
			{"(* 2 2.5)", "5.0"},
		}},
		{"mod and rem", lisptest.TestSequence{
			{"(mod 7 3)", "1"},
			{"(mod -7 3)", "2"},
			{"(rem -7 3)", "-1"},
		}},
		{"unary helpers", lisptest.TestSequence{
			{"(1+ 1)", "2"},
			{"(1- 1)", "0"},
			{"(abs -5)", "5"},
			{"(abs 5)", "5"},
		}},
		{"comparisons", lisptest.TestSequence{
			{"(= 1 1 1)", "t"},
			{"(= 1 2)", "nil"},
			{"(< 1 2 3)", "t"},
			{"(< 1 3 2)", "nil"},
			{"(<= 1 1 2)", "t"},
			{"(> 3 2 1)", "t"},
		}},
		{"predicates", lisptest.TestSequence{
			{"(zerop 0)", "t"},
			{"(plusp 1)", "t"},
			{"(minusp -1)", "t"},
			{"(evenp 4)", "t"},
			{"(oddp 3)", "t"},
		}},
		{"min and max", lisptest.TestSequence{
			{"(min 3 1 2)", "1"},
			{"(max 3 1 2)", "3"},
			{"(min 3 1.5)", "1.5"},
		}},
		{"rounding", lisptest.TestSequence{
			{"(floor 1.9)", "1"},
			{"(ceiling 1.1)", "2"},
			{"(round 1.5)", "2"},
			{"(truncate 1.9)", "1"},
		}},
		{"float-returning rounding", lisptest.TestSequence{
			{"(ffloor 1.9)", "1.0"},
			{"(fceiling 1.1)", "2.0"},
			{"(fround 1.5)", "2.0"},
			{"(ftruncate 1.9)", "1.0"},
		}},
		{"transcendental functions", lisptest.TestSequence{
			{"(exp 0)", "1.0"},
			{"(log 1)", "0.0"},
			{"(log10 10)", "1.0"},
		}},
		{"signum", lisptest.TestSequence{
			{"(signum 5)", "1"},
			{"(signum -5)", "-1"},
			{"(signum 0)", "0"},
			{"(signum 5.0)", "1.0"},
		}},
	})
}

func TestNumericDivisionByZero(t *testing.T) {
	env := lisptest.NewEnv()
	_, err := lisptest.RunExprErr(t, env, "(/ 1 0)")
	assert.Error(t, err)

	_, err = lisptest.RunExprErr(t, env, "(mod 1 0)")
	assert.Error(t, err)
}
