package main

import (
	"github.com/spf13/cobra"

	"github.com/cagix/jmurmel/lisp"
	"github.com/cagix/jmurmel/parser/reader"
	"github.com/cagix/jmurmel/repl"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive Murmel session",
	RunE: func(cmd *cobra.Command, args []string) error {
		env := lisp.NewInterpreterEnv(lisp.WithLibDir(libDir))
		reader.Install()
		repl.Run(env, "murmel> ")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(replCmd)
}
