// Package repl implements the interactive top-level: a readline-based loop
// that reads, evaluates and prints, accumulating input across lines until
// a complete form is available.
package repl

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"github.com/cagix/jmurmel/lisp"
	"github.com/cagix/jmurmel/parser/reader"
)

// Run starts a read-eval-print loop against env, using prompt as the
// primary prompt and printing every top-level value it evaluates.
func Run(env *lisp.Env, prompt string) {
	rl, err := readline.New(prompt)
	if err != nil {
		errln(err)
		return
	}
	defer rl.Close()
	contPrompt := strings.Repeat(" ", len(prompt))

	var buf []byte
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			buf = nil
			rl.SetPrompt(prompt)
			continue
		}
		if err != nil {
			break
		}
		if len(buf) != 0 {
			buf = append(buf, '\n')
		}
		buf = append(buf, line...)
		if len(strings.TrimSpace(string(buf))) == 0 {
			buf = nil
			continue
		}

		forms, incomplete, rerr := readAll(env, buf)
		if rerr != nil {
			errln(rerr)
			buf = nil
			rl.SetPrompt(prompt)
			continue
		}
		if incomplete {
			rl.SetPrompt(contPrompt)
			continue
		}
		buf = nil
		rl.SetPrompt(prompt)
		for _, form := range forms {
			v, err := lisp.Eval(env, form)
			if err != nil {
				errln(err)
				continue
			}
			fmt.Println(v.String())
		}
	}
	if err != io.EOF && err != readline.ErrInterrupt {
		errln(err)
	}
}

// readAll reads every complete top-level form out of src. incomplete is
// true when src ends in the middle of a form (an unterminated list or
// string), signaling the REPL should keep accumulating lines instead of
// reporting an error.
func readAll(env *lisp.Env, src []byte) (forms []*lisp.Value, incomplete bool, err error) {
	rt := env.Runtime()
	rd := reader.New("<repl>", strings.NewReader(string(src)), rt.Symbols, rt.Features)
	for {
		form, rerr := rd.Read()
		if rerr == io.EOF {
			return forms, false, nil
		}
		if rerr != nil {
			if strings.Contains(rerr.Error(), "unterminated") ||
				strings.Contains(rerr.Error(), "unexpected end of input") {
				return forms, true, nil
			}
			return forms, false, rerr
		}
		forms = append(forms, form)
	}
}

func errln(v ...interface{}) {
	fmt.Fprintln(os.Stderr, v...)
}
