package lisp

import (
	"bufio"
	"fmt"
	"strings"
)

// langBuiltin is a named primitive registered into every fresh global Env.
type langBuiltin struct {
	name string
	fn   PrimFunc
}

var langBuiltins []langBuiltin

func registerBuiltin(name string, fn PrimFunc) {
	langBuiltins = append(langBuiltins, langBuiltin{name, fn})
}

// InstallBuiltins binds every primitive into env's root frame. Called once
// by NewGlobalEnv.
func InstallBuiltins(env *Env) {
	root := env.root()
	for _, b := range langBuiltins {
		root.Define(root.rt.Symbols.Intern(b.name), Fun(b.name, b.fn))
	}
}

func argSlice(args *Value) []*Value {
	elems, _, _ := ListToSlice(args)
	return elems
}

func wantArity(name string, args []*Value, n int) error {
	if len(args) != n {
		return Errorf(ArityError, "%s expects %d argument(s), got %d", name, n, len(args))
	}
	return nil
}

func wantArityRange(name string, args []*Value, min, max int) error {
	if len(args) < min || (max >= 0 && len(args) > max) {
		return Errorf(ArityError, "%s expects between %d and %d arguments, got %d", name, min, max, len(args))
	}
	return nil
}

// flattenApplyArgs implements apply's argument spreading: a[0] is the
// callable, the last of the remaining arguments must be a proper list whose
// elements splice in, and any arguments between the callable and that list
// pass through unchanged. Shared by the apply primitive and by Eval's
// call-dispatch, which unwraps a tail call through apply without recursing.
func flattenApplyArgs(a []*Value) (fn *Value, flat []*Value, err error) {
	if len(a) == 0 {
		return nil, nil, Errorf(ArityError, "apply expects at least 1 argument")
	}
	fn = a[0]
	rest := a[1:]
	if len(rest) > 0 {
		flat = append(flat, rest[:len(rest)-1]...)
		tail, _, ok := ListToSlice(rest[len(rest)-1])
		if !ok {
			return nil, nil, Errorf(TypeError, "apply: last argument must be a proper list")
		}
		flat = append(flat, tail...)
	}
	return fn, flat, nil
}

// boolValueIn returns env's own interned t symbol, so the truth value
// compares eq against the reserved t used by the calling interpreter.
func boolValueIn(env *Env, b bool) *Value {
	if b {
		return Sym(env.rt.reserved.t)
	}
	return Nil()
}

func init() {
	registerBuiltin("cons", func(env *Env, args *Value) (*Value, error) {
		a := argSlice(args)
		if err := wantArity("cons", a, 2); err != nil {
			return nil, err
		}
		return Cons(a[0], a[1]), nil
	})
	registerBuiltin("car", func(env *Env, args *Value) (*Value, error) {
		a := argSlice(args)
		if err := wantArity("car", a, 1); err != nil {
			return nil, err
		}
		if !IsCons(a[0]) && !IsNil(a[0]) {
			return nil, Errorf(TypeError, "car: not a list: %s", a[0].String())
		}
		return Car(a[0]), nil
	})
	registerBuiltin("cdr", func(env *Env, args *Value) (*Value, error) {
		a := argSlice(args)
		if err := wantArity("cdr", a, 1); err != nil {
			return nil, err
		}
		if !IsCons(a[0]) && !IsNil(a[0]) {
			return nil, Errorf(TypeError, "cdr: not a list: %s", a[0].String())
		}
		return Cdr(a[0]), nil
	})
	registerBuiltin("rplaca", func(env *Env, args *Value) (*Value, error) {
		a := argSlice(args)
		if err := wantArity("rplaca", a, 2); err != nil {
			return nil, err
		}
		if a[0].Kind != KCons {
			return nil, Errorf(TypeError, "rplaca: not a cons: %s", a[0].String())
		}
		a[0].Car = a[1]
		return a[0], nil
	})
	registerBuiltin("rplacd", func(env *Env, args *Value) (*Value, error) {
		a := argSlice(args)
		if err := wantArity("rplacd", a, 2); err != nil {
			return nil, err
		}
		if a[0].Kind != KCons {
			return nil, Errorf(TypeError, "rplacd: not a cons: %s", a[0].String())
		}
		a[0].Cdr = a[1]
		return a[0], nil
	})
	registerBuiltin("list", func(env *Env, args *Value) (*Value, error) {
		return args, nil
	})
	registerBuiltin("append", func(env *Env, args *Value) (*Value, error) {
		a := argSlice(args)
		if len(a) == 0 {
			return Nil(), nil
		}
		result := a[len(a)-1]
		for i := len(a) - 2; i >= 0; i-- {
			elems, _, ok := ListToSlice(a[i])
			if !ok {
				return nil, Errorf(TypeError, "append: not a proper list: %s", a[i].String())
			}
			result = ListStar(result, elems...)
		}
		return result, nil
	})
	registerBuiltin("reverse", func(env *Env, args *Value) (*Value, error) {
		a := argSlice(args)
		if err := wantArity("reverse", a, 1); err != nil {
			return nil, err
		}
		elems, _, ok := ListToSlice(a[0])
		if !ok {
			return nil, Errorf(TypeError, "reverse: not a proper list")
		}
		out := Nil()
		for _, e := range elems {
			out = Cons(e, out)
		}
		return out, nil
	})
	registerBuiltin("length", func(env *Env, args *Value) (*Value, error) {
		a := argSlice(args)
		if err := wantArity("length", a, 1); err != nil {
			return nil, err
		}
		switch a[0].Kind {
		case KString:
			return Long(int64(len([]rune(a[0].Str)))), nil
		default:
			n := ListLen(a[0])
			if n < 0 {
				return nil, Errorf(TypeError, "length: not a proper list")
			}
			return Long(int64(n)), nil
		}
	})
	registerBuiltin("nth", func(env *Env, args *Value) (*Value, error) {
		a := argSlice(args)
		if err := wantArity("nth", a, 2); err != nil {
			return nil, err
		}
		if a[0].Kind != KLong {
			return nil, Errorf(TypeError, "nth: index must be an integer")
		}
		v := a[1]
		for i := int64(0); i < a[0].Long && IsCons(v); i++ {
			v = Cdr(v)
		}
		return Car(v), nil
	})
	registerBuiltin("member", func(env *Env, args *Value) (*Value, error) {
		a := argSlice(args)
		if err := wantArity("member", a, 2); err != nil {
			return nil, err
		}
		for v := a[1]; IsCons(v); v = Cdr(v) {
			if Eql(a[0], Car(v)) {
				return v, nil
			}
		}
		return Nil(), nil
	})
	registerBuiltin("assoc", func(env *Env, args *Value) (*Value, error) {
		a := argSlice(args)
		if err := wantArity("assoc", a, 2); err != nil {
			return nil, err
		}
		for v := a[1]; IsCons(v); v = Cdr(v) {
			pair := Car(v)
			if IsCons(pair) && Eql(a[0], Car(pair)) {
				return pair, nil
			}
		}
		return Nil(), nil
	})
	registerBuiltin("assq", func(env *Env, args *Value) (*Value, error) {
		a := argSlice(args)
		if err := wantArity("assq", a, 2); err != nil {
			return nil, err
		}
		for v := a[1]; IsCons(v); v = Cdr(v) {
			pair := Car(v)
			if IsCons(pair) && Eq(a[0], Car(pair)) {
				return pair, nil
			}
		}
		return Nil(), nil
	})
	registerBuiltin("list*", func(env *Env, args *Value) (*Value, error) {
		a := argSlice(args)
		if err := wantArityRange("list*", a, 1, -1); err != nil {
			return nil, err
		}
		return ListStar(a[len(a)-1], a[:len(a)-1]...), nil
	})

	registerBuiltin("not", func(env *Env, args *Value) (*Value, error) {
		a := argSlice(args)
		if err := wantArity("not", a, 1); err != nil {
			return nil, err
		}
		return boolValueIn(env, IsNil(a[0])), nil
	})
	registerBuiltin("null", func(env *Env, args *Value) (*Value, error) {
		a := argSlice(args)
		if err := wantArity("null", a, 1); err != nil {
			return nil, err
		}
		return boolValueIn(env, IsNil(a[0])), nil
	})
	registerBuiltin("consp", typePredicate(func(v *Value) bool { return v.Kind == KCons }))
	registerBuiltin("atom", typePredicate(func(v *Value) bool { return v.Kind != KCons }))
	registerBuiltin("listp", typePredicate(func(v *Value) bool { return IsNil(v) || IsCons(v) }))
	registerBuiltin("symbolp", typePredicate(func(v *Value) bool { return v.Kind == KSymbol || IsNil(v) }))
	registerBuiltin("numberp", typePredicate(func(v *Value) bool { return v.Kind == KLong || v.Kind == KDouble }))
	registerBuiltin("integerp", typePredicate(func(v *Value) bool { return v.Kind == KLong }))
	registerBuiltin("floatp", typePredicate(func(v *Value) bool { return v.Kind == KDouble }))
	registerBuiltin("stringp", typePredicate(func(v *Value) bool { return v.Kind == KString }))
	registerBuiltin("characterp", typePredicate(func(v *Value) bool { return v.Kind == KChar }))
	registerBuiltin("functionp", typePredicate(func(v *Value) bool {
		return v.Kind == KPrimitive || (v.Kind == KCons && v.Car != nil && v.Car.Kind == KSymbol && v.Car.Sym.Name == "lambda")
	}))

	registerBuiltin("eq", eqPrimitive(Eq))
	registerBuiltin("eql", eqPrimitive(Eql))
	registerBuiltin("equal", eqPrimitive(Equal))

	registerBuiltin("apply", func(env *Env, args *Value) (*Value, error) {
		a := argSlice(args)
		if err := wantArityRange("apply", a, 1, -1); err != nil {
			return nil, err
		}
		fn, flat, err := flattenApplyArgs(a)
		if err != nil {
			return nil, err
		}
		return Apply(env, fn, flat)
	})
	registerBuiltin("funcall", func(env *Env, args *Value) (*Value, error) {
		a := argSlice(args)
		if err := wantArityRange("funcall", a, 1, -1); err != nil {
			return nil, err
		}
		return Apply(env, a[0], a[1:])
	})
	registerBuiltin("eval", func(env *Env, args *Value) (*Value, error) {
		a := argSlice(args)
		if err := wantArity("eval", a, 1); err != nil {
			return nil, err
		}
		return Eval(env.root(), a[0])
	})
	registerBuiltin("gensym", func(env *Env, args *Value) (*Value, error) {
		env.rt.gensymCounter++
		name := fmt.Sprintf("%%g%d", env.rt.gensymCounter)
		return Sym(&Symbol{Name: name}), nil
	})
	registerBuiltin("error", func(env *Env, args *Value) (*Value, error) {
		a := argSlice(args)
		msg := ""
		for i, v := range a {
			if i > 0 {
				msg += " "
			}
			if v.Kind == KString {
				msg += v.Str
			} else {
				msg += v.String()
			}
		}
		return nil, Errorf(Internal, "%s", msg)
	})
	registerBuiltin("trace", func(env *Env, args *Value) (*Value, error) {
		a := argSlice(args)
		for _, v := range a {
			if v.Kind == KSymbol {
				env.rt.Traced[v.Sym] = true
			}
		}
		return Nil(), nil
	})
	registerBuiltin("untrace", func(env *Env, args *Value) (*Value, error) {
		a := argSlice(args)
		for _, v := range a {
			if v.Kind == KSymbol {
				delete(env.rt.Traced, v.Sym)
			}
		}
		return Nil(), nil
	})

	registerBuiltin("write", ioPrintEscapable(false))
	registerBuiltin("writeln", ioPrintEscapable(true))
	registerBuiltin("princ", ioPrint(false, false))
	registerBuiltin("print", ioPrint(true, false))
	registerBuiltin("lnwrite", ioPrintEscapable(true))

	registerBuiltin("read", func(env *Env, args *Value) (*Value, error) {
		a := argSlice(args)
		if err := wantArity("read", a, 0); err != nil {
			return nil, err
		}
		if ReadForm == nil {
			return nil, Errorf(Internal, "no reader installed: call reader.Install() before read")
		}
		v, err := ReadForm(env, env.rt.stdinRuneScanner())
		if err != nil {
			return nil, err
		}
		return v, nil
	})

	registerBuiltin("macroexpand-1", func(env *Env, args *Value) (*Value, error) {
		a := argSlice(args)
		if err := wantArity("macroexpand-1", a, 1); err != nil {
			return nil, err
		}
		form := a[0]
		if !IsCons(form) || form.Car.Kind != KSymbol {
			return form, nil
		}
		macroFn, ok := env.rt.Macros[form.Car.Sym]
		if !ok {
			return form, nil
		}
		argForms, _, ok := ListToSlice(Cdr(form))
		if !ok {
			return nil, Errorf(MalformedForm, "macro call is not a proper list")
		}
		return applyClosure(env, macroFn, argForms)
	})

	registerBuiltin("fatal", func(env *Env, args *Value) (*Value, error) {
		a := argSlice(args)
		msg := ""
		for i, v := range a {
			if i > 0 {
				msg += " "
			}
			if v.Kind == KString {
				msg += v.Str
			} else {
				msg += v.String()
			}
		}
		return nil, Errorf(Fatal, "%s", msg)
	})

	registerBuiltin("format", func(env *Env, args *Value) (*Value, error) {
		return formatBuiltin(env, args, false)
	})
	registerBuiltin("format-locale", func(env *Env, args *Value) (*Value, error) {
		return formatBuiltin(env, args, true)
	})
}

func typePredicate(pred func(*Value) bool) PrimFunc {
	return func(env *Env, args *Value) (*Value, error) {
		a := argSlice(args)
		if err := wantArity("predicate", a, 1); err != nil {
			return nil, err
		}
		return boolValueIn(env, pred(a[0])), nil
	}
}

func eqPrimitive(cmp func(a, b *Value) bool) PrimFunc {
	return func(env *Env, args *Value) (*Value, error) {
		a := argSlice(args)
		if err := wantArity("comparison", a, 2); err != nil {
			return nil, err
		}
		return boolValueIn(env, cmp(a[0], a[1])), nil
	}
}

// ioPrint implements princ/print: escape controls whether
// strings and characters render with reader syntax, newline controls
// whether a trailing newline is appended.
func ioPrint(newline, escape bool) PrimFunc {
	return func(env *Env, args *Value) (*Value, error) {
		a := argSlice(args)
		if err := wantArityRange("print", a, 0, 1); err != nil {
			return nil, err
		}
		w := bufio.NewWriter(env.rt.Stdout)
		var v *Value = Nil()
		if len(a) == 1 {
			v = a[0]
		}
		var sb strings.Builder
		writeValue(&sb, v, escape, map[*Value]bool{})
		fmt.Fprint(w, sb.String())
		if newline {
			fmt.Fprintln(w)
		}
		return v, w.Flush()
	}
}

// ioPrintEscapable implements write/writeln/lnwrite: like ioPrint with
// escape defaulting true, but a second argument overrides escape, matching
// write's optional "print-escape" parameter.
func ioPrintEscapable(newline bool) PrimFunc {
	return func(env *Env, args *Value) (*Value, error) {
		a := argSlice(args)
		if err := wantArityRange("write", a, 0, 2); err != nil {
			return nil, err
		}
		escape := true
		var v *Value = Nil()
		if len(a) >= 1 {
			v = a[0]
		}
		if len(a) == 2 {
			escape = !IsNil(a[1])
		}
		w := bufio.NewWriter(env.rt.Stdout)
		var sb strings.Builder
		writeValue(&sb, v, escape, map[*Value]bool{})
		fmt.Fprint(w, sb.String())
		if newline {
			fmt.Fprintln(w)
		}
		return v, w.Flush()
	}
}
