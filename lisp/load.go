package lisp

import (
	"io"
	"os"
	"path/filepath"
)

// LoadSource is the io hook load/require use to turn a resolved file path
// into forms: it reads the file and hands the bytes to a Reader built
// against env's own symbol table and feature set. Wired by reader.Install
// at startup to avoid an import cycle between this package and the parser.
var LoadSource func(env *Env, path string, src []byte) ([]*Value, error)

// ParseExpression is the io hook Interpreter.InterpretExpression uses to
// turn source text into forms. Wired by reader.Install alongside
// LoadSource, for the same reason: package lisp cannot import the parser
// tree without an import cycle.
var ParseExpression func(env *Env, src string) ([]*Value, error)

// ReadForm is the io hook the read primitive uses to parse a single form
// from an io.RuneScanner, wired by reader.Install for the same import-cycle
// reason as LoadSource and ParseExpression.
var ReadForm func(env *Env, r io.RuneScanner) (*Value, error)

func evalLoad(env *Env, rest *Value) (*Value, error) {
	arg := Car(rest)
	name, err := loadNameOf(env, arg)
	if err != nil {
		return nil, err
	}
	path, data, err := resolveLoad(env, name)
	if err != nil {
		return nil, err
	}
	return runLoadedForms(env, path, data)
}

func loadNameOf(env *Env, arg *Value) (string, error) {
	if arg.Kind == KSymbol {
		return arg.Sym.Name, nil
	}
	v, err := Eval(env, arg)
	if err != nil {
		return "", err
	}
	switch v.Kind {
	case KString:
		return v.Str, nil
	case KSymbol:
		return v.Sym.Name, nil
	default:
		return "", Errorf(TypeError, "load/require expects a string or symbol name")
	}
}

// resolveLoad finds name.lisp (or name verbatim if it already has an
// extension) first next to the currently loading file's directory, then in
// the configured library directory.
func resolveLoad(env *Env, name string) (path string, data []byte, err error) {
	candidates := candidateNames(name)
	dirs := []string{env.rt.currentDir, env.rt.LibDir, "."}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		for _, cand := range candidates {
			p := filepath.Join(dir, cand)
			if b, err := os.ReadFile(p); err == nil {
				return p, b, nil
			}
		}
	}
	return "", nil, Errorf(IOError, "cannot find file to load: %s", name)
}

func candidateNames(name string) []string {
	if filepath.Ext(name) != "" {
		return []string{name}
	}
	return []string{name + ".lisp", name + ".murmel", name}
}

func runLoadedForms(env *Env, path string, data []byte) (*Value, error) {
	if LoadSource == nil {
		return nil, Errorf(NotImplemented, "no reader wired to load forms; import the reader package")
	}
	forms, err := LoadSource(env, path, data)
	if err != nil {
		return nil, WrapForm(Errorf(ReaderError, "%v", err), nil)
	}
	prevDir := env.rt.currentDir
	env.rt.currentDir = filepath.Dir(path)
	defer func() { env.rt.currentDir = prevDir }()

	var result *Value = Nil()
	for _, form := range forms {
		v, err := Eval(env.root(), form)
		if err != nil {
			return nil, err
		}
		result = v
	}
	return result, nil
}

func evalRequire(env *Env, rest *Value) (*Value, error) {
	arg := Car(rest)
	name, err := loadNameOf(env, arg)
	if err != nil {
		return nil, err
	}
	sym := env.rt.Symbols.Intern(name)
	if env.rt.Modules[sym] {
		return Sym(sym), nil
	}
	if _, err := evalLoad(env, rest); err != nil {
		return nil, err
	}
	if !env.rt.Modules[sym] {
		return nil, Errorf(MalformedForm, "module %s loaded without calling provide", name)
	}
	return Sym(sym), nil
}

func evalProvide(env *Env, rest *Value) (*Value, error) {
	arg := Car(rest)
	name, err := loadNameOf(env, arg)
	if err != nil {
		return nil, err
	}
	sym := env.rt.Symbols.Intern(name)
	env.rt.Modules[sym] = true
	return Sym(sym), nil
}

func evalDeclaim(env *Env, rest *Value) (*Value, error) {
	forms, _, ok := ListToSlice(rest)
	if !ok {
		return nil, Errorf(MalformedForm, "declaim expects a proper list of declarations")
	}
	for _, decl := range forms {
		parts, _, ok := ListToSlice(decl)
		if !ok || len(parts) == 0 || parts[0].Kind != KSymbol {
			continue
		}
		if parts[0].Sym.Name != "optimize" {
			continue
		}
		for _, opt := range parts[1:] {
			optParts, _, ok := ListToSlice(opt)
			if !ok || len(optParts) != 2 || optParts[0].Kind != KSymbol {
				continue
			}
			if optParts[0].Sym.Name == "speed" && optParts[1].Kind == KLong {
				env.rt.Speed = int(optParts[1].Long)
			}
		}
	}
	return Nil(), nil
}
