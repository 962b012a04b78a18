package compiler_test

import (
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cagix/jmurmel/compiler"
)

const trivialSource = `package main

import "fmt"

func main() {
	fmt.Println("murmel")
}
`

func TestBuildProducesBinary(t *testing.T) {
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go toolchain not available in this environment")
	}
	out := filepath.Join(t.TempDir(), "murmel-test-bin")
	result, err := compiler.Build(trivialSource, out)
	require.NoError(t, err)
	assert.NotEmpty(t, result.BinaryPath)
}

func TestBuildRejectsInvalidSource(t *testing.T) {
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go toolchain not available in this environment")
	}
	out := filepath.Join(t.TempDir(), "murmel-test-bin")
	_, err := compiler.Build("not valid go source", out)
	assert.Error(t, err)
}
