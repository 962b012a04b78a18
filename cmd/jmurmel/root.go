package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var libDir string

var rootCmd = &cobra.Command{
	Use:   "jmurmel",
	Short: "Murmel is a small Lisp interpreter and ahead-of-time compiler",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&libDir, "lib-dir", "", "directory consulted by load/require after a file's own directory")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
