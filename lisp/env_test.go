package lisp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cagix/jmurmel/lisp"
)

func TestEnvChildShadowsParent(t *testing.T) {
	root := lisp.NewGlobalEnv(nil)
	sym := root.Runtime().Symbols.Intern("x")
	root.Define(sym, lisp.Long(1))

	child := root.Child()
	child.Define(sym, lisp.Long(2))

	v, err := child.Get(sym)
	require.NoError(t, err)
	assert.EqualValues(t, 2, v.Long)

	v, err = root.Get(sym)
	require.NoError(t, err)
	assert.EqualValues(t, 1, v.Long)
}

func TestEnvSetqWalksAncestors(t *testing.T) {
	root := lisp.NewGlobalEnv(nil)
	sym := root.Runtime().Symbols.Intern("y")
	root.Define(sym, lisp.Long(1))
	child := root.Child()

	require.NoError(t, child.Setq(sym, lisp.Long(9)))

	v, err := root.Get(sym)
	require.NoError(t, err)
	assert.EqualValues(t, 9, v.Long)
}

func TestEnvSetqUnbound(t *testing.T) {
	root := lisp.NewGlobalEnv(nil)
	sym := root.Runtime().Symbols.Intern("never-bound")
	assert.Error(t, root.Setq(sym, lisp.Long(1)))
}

func TestEnvDefineGlobalMutatesInPlace(t *testing.T) {
	root := lisp.NewGlobalEnv(nil)
	sym := root.Runtime().Symbols.Intern("g")
	root.DefineGlobal(sym, lisp.Long(1))
	root.DefineGlobal(sym, lisp.Long(2))

	child := root.Child()
	v, err := child.Get(sym)
	require.NoError(t, err)
	assert.EqualValues(t, 2, v.Long)
}

func TestEnvBindDynamicRestoresPreviousValue(t *testing.T) {
	root := lisp.NewGlobalEnv(nil)
	sym := root.Runtime().Symbols.Intern("*special*")
	root.DefineGlobal(sym, lisp.Long(1))

	restore := root.BindDynamic(sym, lisp.Long(2))
	v, err := root.Get(sym)
	require.NoError(t, err)
	assert.EqualValues(t, 2, v.Long)

	restore()
	v, err = root.Get(sym)
	require.NoError(t, err)
	assert.EqualValues(t, 1, v.Long)
}

func TestEnvTAndNilAreSelfEvaluating(t *testing.T) {
	root := lisp.NewGlobalEnv(nil)
	tv, err := root.Get(root.Runtime().Symbols.Intern("t"))
	require.NoError(t, err)
	assert.Equal(t, lisp.KSymbol, tv.Kind)

	nv, err := root.Get(root.Runtime().Symbols.Intern("nil"))
	require.NoError(t, err)
	assert.True(t, lisp.IsNil(nv))
}
