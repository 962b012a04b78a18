package lisp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cagix/jmurmel/lisp"
	"github.com/cagix/jmurmel/parser/reader"
)

func TestMain(m *testing.M) {
	reader.Install()
	m.Run()
}

func TestInterpretExpressionReturnsLastFormValue(t *testing.T) {
	in := lisp.NewInterpreter()
	got, err := in.InterpretExpression("(defun sq (x) (* x x)) (sq 7)")
	require.NoError(t, err)
	assert.Equal(t, "49", got.String())
}

func TestInterpretExpressionPropagatesEvalError(t *testing.T) {
	in := lisp.NewInterpreter()
	_, err := in.InterpretExpression("(/ 1 0)")
	assert.Error(t, err)
}

func TestInterpretExpressionPropagatesParseError(t *testing.T) {
	in := lisp.NewInterpreter()
	_, err := in.InterpretExpression("(+ 1 2")
	assert.Error(t, err)
}

func TestGetValueReturnsGlobalBinding(t *testing.T) {
	in := lisp.NewInterpreter()
	_, err := in.InterpretExpression("(define *radius* 3)")
	require.NoError(t, err)

	got, err := in.GetValue("*radius*")
	require.NoError(t, err)
	assert.Equal(t, "3", got.String())
}

func TestGetValueUnboundFails(t *testing.T) {
	in := lisp.NewInterpreter()
	_, err := in.GetValue("no-such-global")
	assert.Error(t, err)
	assert.Equal(t, lisp.Unbound, lisp.KindOf(err))
}

func TestGetFunctionCallsPrimitive(t *testing.T) {
	in := lisp.NewInterpreter()
	plus, err := in.GetFunction("+")
	require.NoError(t, err)

	got, err := plus([]*lisp.Value{lisp.Long(1), lisp.Long(2), lisp.Long(3)})
	require.NoError(t, err)
	assert.Equal(t, "6", got.String())
}

func TestGetFunctionCallsClosure(t *testing.T) {
	in := lisp.NewInterpreter()
	_, err := in.InterpretExpression("(defun double (x) (* x 2))")
	require.NoError(t, err)

	double, err := in.GetFunction("double")
	require.NoError(t, err)

	got, err := double([]*lisp.Value{lisp.Long(21)})
	require.NoError(t, err)
	assert.Equal(t, "42", got.String())
}

func TestGetFunctionOnNonFunctionFails(t *testing.T) {
	in := lisp.NewInterpreter()
	_, err := in.InterpretExpression("(define not-a-fn 5)")
	require.NoError(t, err)

	_, err = in.GetFunction("not-a-fn")
	assert.Error(t, err)
}
