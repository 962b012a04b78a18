package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cagix/jmurmel/lisp"
	"github.com/cagix/jmurmel/parser/reader"
)

var (
	runExpression bool
	runPrint      bool
)

// runCmd loads and evaluates one or more Murmel source files or inline
// expressions.
var runCmd = &cobra.Command{
	Use:   "run [file|expression]...",
	Short: "Evaluate Murmel source files or expressions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sources, err := runReadSources(args)
		if err != nil {
			return err
		}
		env := lisp.NewInterpreterEnv(lisp.WithLibDir(libDir))
		reader.Install()
		for _, src := range sources {
			if err := runOne(env, src); err != nil {
				return err
			}
		}
		return nil
	},
}

func runReadSources(args []string) ([]string, error) {
	if runExpression {
		return args, nil
	}
	sources := make([]string, len(args))
	for i, path := range args {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		sources[i] = string(b)
	}
	return sources, nil
}

func runOne(env *lisp.Env, src string) error {
	rt := env.Runtime()
	rd := reader.New("<run>", strings.NewReader(src), rt.Symbols, rt.Features)
	for {
		form, err := rd.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		v, err := lisp.Eval(env, form)
		if err != nil {
			return err
		}
		if runPrint {
			fmt.Println(v.String())
		}
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVarP(&runExpression, "expression", "e", false, "interpret arguments as Murmel expressions instead of file paths")
	runCmd.Flags().BoolVarP(&runPrint, "print", "p", false, "print the value of every top-level form")
}
