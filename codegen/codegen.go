// Package codegen lowers a program's top-level forms to Go source text: a
// two-pass ahead-of-time compiler grounded on the same two-pass shape as an
// assembler (pass 1 walks the whole program to macro-expand it and collect
// top-level declarations; pass 2 emits code from the expanded forms), but
// targeting Go source instead of a bytecode format. Special forms lower to
// genuine Go control flow and native closures; only the rarer constructs
// (dynamic-scoped lambdas, labels, named/dynamic let, and load/require/
// provide, which need a real file system and reader at run time) fall back
// to invoking the tree-walking evaluator (package lisp) on a reconstructed
// form. Package compiler then invokes the host Go toolchain as the backend.
package codegen

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/cagix/jmurmel/lisp"
)

// Options configures a Generate call.
type Options struct {
	// Package is the emitted Go file's package name (default "main").
	Package string
}

// Generate performs the two passes described in the package doc: pass 1
// (collectTopLevel) macro-expands the program against a scratch Env and
// flattens top-level progn/defmacro/declaim into the plain top-level forms
// that remain to be compiled; pass 2 (funcCtx.lower*) walks those forms and
// emits Go source that reconstructs literal data through the constant pool
// and otherwise lowers structurally.
func Generate(forms []*lisp.Value, opts Options) (string, error) {
	pkg := opts.Package
	if pkg == "" {
		pkg = "main"
	}

	compileEnv := lisp.NewGlobalEnv(nil)
	g := &generator{pool: newConstPool()}
	top, err := g.collectTopLevel(compileEnv, forms)
	if err != nil {
		return "", fmt.Errorf("codegen: %w", err)
	}
	g.speed = compileEnv.Runtime().Speed

	var bodyBuf bytes.Buffer
	fc := &funcCtx{gen: g, buf: &bodyBuf, envVar: "env"}
	if err := fc.lowerProgramBody(top); err != nil {
		return "", fmt.Errorf("codegen: %w", err)
	}

	var decls, initBuf bytes.Buffer
	for _, name := range g.pool.orderedNames() {
		fmt.Fprintf(&decls, "var %s *lisp.Value\n", name)
	}
	for _, name := range g.pool.orderedNames() {
		fmt.Fprintf(&initBuf, "\t%s = %s\n", name, g.pool.buildExpr(name))
	}

	return renderTemplate(pkg, decls.String(), initBuf.String(), bodyBuf.String())
}

const fileTemplate = `// Code generated by the Murmel ahead-of-time compiler. DO NOT EDIT.
package {{.Package}}

import (
	"fmt"
	"os"

	"github.com/cagix/jmurmel/lisp"
	"github.com/cagix/jmurmel/parser/reader"
)

// pendingCall carries the arguments of a not-yet-executed self tail call: a
// compiled function's driver loop reassigns its call-frame slots and loops
// on it instead of growing the Go call stack for a Murmel-level tail
// recursion.
type pendingCall struct {
	args []*lisp.Value
}

{{.Decls}}
func initConstants(env *lisp.Env) {
{{.Init}}}

// body runs every top-level form of the compiled program in order and
// returns the value of the last one, the same contract load/require use to
// run a source file.
func body(env *lisp.Env) (*lisp.Value, error) {
{{.Body}}}

// getValue returns the current value bound to a global name, for a host
// program embedding this compiled program instead of running it as main.
func getValue(env *lisp.Env, name string) (*lisp.Value, error) {
	return env.Get(env.Runtime().Symbols.Intern(name))
}

// getFunction returns a callable adapter over the primitive or closure
// bound to name.
func getFunction(env *lisp.Env, name string) (func([]*lisp.Value) (*lisp.Value, error), error) {
	fn, err := getValue(env, name)
	if err != nil {
		return nil, err
	}
	return func(args []*lisp.Value) (*lisp.Value, error) {
		return lisp.Apply(env, fn, args)
	}, nil
}

func main() {
	reader.Install()
	env := lisp.NewInterpreterEnv()
	initConstants(env)

	cmdArgs := make([]*lisp.Value, len(os.Args)-1)
	for i, a := range os.Args[1:] {
		cmdArgs[i] = lisp.Str(a)
	}
	env.DefineGlobal(env.Runtime().Symbols.Intern("*command-line-argument-list*"), lisp.List(cmdArgs...))

	if _, err := body(env); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
`

func renderTemplate(pkg, decls, init, body string) (string, error) {
	t, err := template.New("codegen").Parse(fileTemplate)
	if err != nil {
		return "", err
	}
	var out bytes.Buffer
	err = t.Execute(&out, struct{ Package, Decls, Init, Body string }{pkg, decls, init, body})
	return out.String(), err
}

// mangle turns name into a valid Go identifier with a leading underscore,
// replacing every rune that Go identifiers can't contain with its decimal
// code point flanked by underscores, e.g. "list->vector" becomes
// "_list_45__62_vector".
func mangle(name string) string {
	var sb strings.Builder
	for i, r := range name {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			sb.WriteRune(r)
		case r >= '0' && r <= '9' && i > 0:
			sb.WriteRune(r)
		default:
			fmt.Fprintf(&sb, "_%d_", r)
		}
	}
	return "_" + sb.String()
}

// constPool deduplicates literal Values by structural Equal and assigns
// each a stable, mangled Go variable name. It backs quoted data, lambda
// formals lists (needed at run time by lisp.BindFormals) and, for the
// handful of special forms that fall back to the evaluator, reconstructed
// whole forms.
type constPool struct {
	values  []*lisp.Value
	names   map[*lisp.Value]string
	counter int
}

func newConstPool() *constPool {
	return &constPool{names: make(map[*lisp.Value]string)}
}

func (p *constPool) intern(v *lisp.Value) string {
	for i, existing := range p.values {
		if lisp.Equal(existing, v) {
			return p.names[p.values[i]]
		}
	}
	p.counter++
	name := fmt.Sprintf("k%d_%s", p.counter, mangle(shortLabel(v)))
	p.values = append(p.values, v)
	p.names[v] = name
	return name
}

func (p *constPool) varName(v *lisp.Value) string {
	if n, ok := p.names[v]; ok {
		return n
	}
	return p.intern(v)
}

func (p *constPool) orderedNames() []string {
	names := make([]string, 0, len(p.values))
	for _, v := range p.values {
		names = append(names, p.names[v])
	}
	sort.Strings(names)
	return names
}

func (p *constPool) buildExpr(name string) string {
	for _, v := range p.values {
		if p.names[v] == name {
			return buildConstructor(v)
		}
	}
	return "lisp.Nil()"
}

func shortLabel(v *lisp.Value) string {
	switch v.Kind {
	case lisp.KSymbol:
		return v.Sym.Name
	case lisp.KString:
		return "str"
	case lisp.KLong, lisp.KDouble:
		return "num"
	default:
		return "form"
	}
}

// buildConstructor emits a Go expression that reconstructs v via the lisp
// package's public constructors, recursing through cons structure.
func buildConstructor(v *lisp.Value) string {
	if lisp.IsNil(v) {
		return "lisp.Nil()"
	}
	switch v.Kind {
	case lisp.KLong:
		return fmt.Sprintf("lisp.Long(%d)", v.Long)
	case lisp.KDouble:
		return fmt.Sprintf("lisp.Double(%v)", v.Double)
	case lisp.KChar:
		return fmt.Sprintf("lisp.Char(%d)", v.Char)
	case lisp.KString:
		return fmt.Sprintf("lisp.Str(%q)", v.Str)
	case lisp.KSymbol:
		return fmt.Sprintf("lisp.Sym(env.Runtime().Symbols.Intern(%q))", v.Sym.Name)
	case lisp.KCons:
		return fmt.Sprintf("lisp.Cons(%s, %s)", buildConstructor(lisp.Car(v)), buildConstructor(lisp.Cdr(v)))
	default:
		return "lisp.Nil()"
	}
}
