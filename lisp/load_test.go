package lisp_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cagix/jmurmel/lisp"
	"github.com/cagix/jmurmel/lisptest"
	"github.com/cagix/jmurmel/parser/reader"
)

func TestLoadFromLibDir(t *testing.T) {
	dir := t.TempDir()
	src := "(provide 'greeter)\n(defun greet (name) (string-append \"hello \" name))\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "greeter.lisp"), []byte(src), 0o644))

	reader.Install()
	env := lisp.NewInterpreterEnv(lisp.WithLibDir(dir))

	_, err := lisptest.RunExprErr(t, env, "(require 'greeter)")
	require.NoError(t, err)

	got := lisptest.RunExpr(t, env, `(greet "world")`)
	assert.Equal(t, `"hello world"`, got.String())

	// A second require is a no-op since the module is already provided.
	_, err = lisptest.RunExprErr(t, env, "(require 'greeter)")
	assert.NoError(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	reader.Install()
	env := lisp.NewInterpreterEnv(lisp.WithLibDir(t.TempDir()))
	_, err := lisptest.RunExprErr(t, env, "(load 'does-not-exist)")
	assert.Error(t, err)
}

func TestDeclaimSetsSpeed(t *testing.T) {
	env := lisp.NewInterpreterEnv()
	lisptest.RunExpr(t, env, "(declaim (optimize (speed 0)))")
	assert.Equal(t, 0, env.Runtime().Speed)
}
