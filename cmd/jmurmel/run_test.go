package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunReadSourcesExpressionMode(t *testing.T) {
	runExpression = true
	defer func() { runExpression = false }()

	got, err := runReadSources([]string{"(+ 1 2)", "(* 3 4)"})
	require.NoError(t, err)
	assert.Equal(t, []string{"(+ 1 2)", "(* 3 4)"}, got)
}

func TestRunReadSourcesFileMode(t *testing.T) {
	runExpression = false
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.lisp")
	require.NoError(t, os.WriteFile(path, []byte("(+ 1 2)"), 0o644))

	got, err := runReadSources([]string{path})
	require.NoError(t, err)
	assert.Equal(t, []string{"(+ 1 2)"}, got)
}

func TestDefaultFeatures(t *testing.T) {
	f := defaultFeatures()
	for _, name := range []string{"murmel", "murmel-1.0", "jmurmel"} {
		assert.Truef(t, f[name], "expected feature %q to be present", name)
	}
}
