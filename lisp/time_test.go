package lisp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cagix/jmurmel/lisptest"
)

func TestTimePrimitivesReturnPositiveIntegers(t *testing.T) {
	env := lisptest.NewEnv()
	universal := lisptest.RunExpr(t, env, "(get-universal-time)")
	assert.Positive(t, universal.Long)

	internal := lisptest.RunExpr(t, env, "(get-internal-real-time)")
	assert.Positive(t, internal.Long)

	runTime := lisptest.RunExpr(t, env, "(get-internal-run-time)")
	assert.Positive(t, runTime.Long)

	cpuTime := lisptest.RunExpr(t, env, "(get-internal-cpu-time)")
	assert.Positive(t, cpuTime.Long)

	units := lisptest.RunExpr(t, env, "internal-time-units-per-second")
	assert.Equal(t, "1000", units.String())
}

func TestGetDecodedTimeReturnsNineFields(t *testing.T) {
	env := lisptest.NewEnv()
	got := lisptest.RunExpr(t, env, "(length (get-decoded-time))")
	assert.Equal(t, "9", got.String())
}

func TestSleepAcceptsFractionalSeconds(t *testing.T) {
	env := lisptest.NewEnv()
	got := lisptest.RunExpr(t, env, "(sleep 0.001)")
	assert.Equal(t, "nil", got.String())
}
