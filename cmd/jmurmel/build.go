package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cagix/jmurmel/codegen"
	"github.com/cagix/jmurmel/compiler"
	"github.com/cagix/jmurmel/lisp"
	"github.com/cagix/jmurmel/parser/reader"
)

var buildOutput string

var buildCmd = &cobra.Command{
	Use:   "build [file]",
	Short: "Ahead-of-time compile a Murmel source file into a native binary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		symtab := lisp.NewSymbolTable()
		rd := reader.New(args[0], strings.NewReader(string(src)), symtab, defaultFeatures())
		forms, err := rd.ReadAll()
		if err != nil {
			return fmt.Errorf("parse: %w", err)
		}

		goSrc, err := codegen.Generate(forms, codegen.Options{Package: "main"})
		if err != nil {
			return fmt.Errorf("codegen: %w", err)
		}

		out := buildOutput
		if out == "" {
			out = "a.out"
		}
		result, err := compiler.Build(goSrc, out)
		if err != nil {
			return err
		}
		fmt.Println(result.BinaryPath)
		return nil
	},
}

func defaultFeatures() map[string]bool {
	return map[string]bool{"murmel": true, "murmel-1.0": true, "jmurmel": true}
}

func init() {
	rootCmd.AddCommand(buildCmd)
	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "", "path of the produced binary")
}
