package lisp

import "strings"

// InstallStrings binds string, character and symbol-name primitives.
func InstallStrings(env *Env) {
	root := env.root()
	def := func(name string, fn PrimFunc) { root.Define(root.rt.Symbols.Intern(name), Fun(name, fn)) }

	def("string-length", func(env *Env, args *Value) (*Value, error) {
		a := argSlice(args)
		if err := wantArity("string-length", a, 1); err != nil {
			return nil, err
		}
		if a[0].Kind != KString {
			return nil, Errorf(TypeError, "string-length: not a string")
		}
		return Long(int64(len([]rune(a[0].Str)))), nil
	})
	def("string-append", func(env *Env, args *Value) (*Value, error) {
		a := argSlice(args)
		var sb strings.Builder
		for _, v := range a {
			if v.Kind != KString {
				return nil, Errorf(TypeError, "string-append: not a string: %s", v.String())
			}
			sb.WriteString(v.Str)
		}
		return Str(sb.String()), nil
	})
	def("substring", func(env *Env, args *Value) (*Value, error) {
		a := argSlice(args)
		if err := wantArityRange("substring", a, 2, 3); err != nil {
			return nil, err
		}
		if a[0].Kind != KString || a[1].Kind != KLong {
			return nil, Errorf(TypeError, "substring: bad argument types")
		}
		runes := []rune(a[0].Str)
		start := int(a[1].Long)
		end := len(runes)
		if len(a) == 3 {
			if a[2].Kind != KLong {
				return nil, Errorf(TypeError, "substring: end must be an integer")
			}
			end = int(a[2].Long)
		}
		if start < 0 || end > len(runes) || start > end {
			return nil, Errorf(TypeError, "substring: index out of range")
		}
		return Str(string(runes[start:end])), nil
	})
	def("string=", strCmp(func(a, b string) bool { return a == b }))
	def("string<", strCmp(func(a, b string) bool { return a < b }))
	def("string>", strCmp(func(a, b string) bool { return a > b }))
	def("string<=", strCmp(func(a, b string) bool { return a <= b }))
	def("string>=", strCmp(func(a, b string) bool { return a >= b }))
	def("string-upcase", strMap(strings.ToUpper))
	def("string-downcase", strMap(strings.ToLower))
	def("string->list", func(env *Env, args *Value) (*Value, error) {
		a := argSlice(args)
		if err := wantArity("string->list", a, 1); err != nil {
			return nil, err
		}
		if a[0].Kind != KString {
			return nil, Errorf(TypeError, "string->list: not a string")
		}
		var chars []*Value
		for _, r := range a[0].Str {
			chars = append(chars, Char(r))
		}
		return List(chars...), nil
	})
	def("list->string", func(env *Env, args *Value) (*Value, error) {
		a := argSlice(args)
		if err := wantArity("list->string", a, 1); err != nil {
			return nil, err
		}
		elems, _, ok := ListToSlice(a[0])
		if !ok {
			return nil, Errorf(TypeError, "list->string: not a proper list")
		}
		var sb strings.Builder
		for _, e := range elems {
			if e.Kind != KChar {
				return nil, Errorf(TypeError, "list->string: not a character: %s", e.String())
			}
			sb.WriteRune(e.Char)
		}
		return Str(sb.String()), nil
	})
	def("char-code", func(env *Env, args *Value) (*Value, error) {
		a := argSlice(args)
		if err := wantArity("char-code", a, 1); err != nil {
			return nil, err
		}
		if a[0].Kind != KChar {
			return nil, Errorf(TypeError, "char-code: not a character")
		}
		return Long(int64(a[0].Char)), nil
	})
	def("code-char", func(env *Env, args *Value) (*Value, error) {
		a := argSlice(args)
		if err := wantArity("code-char", a, 1); err != nil {
			return nil, err
		}
		if a[0].Kind != KLong {
			return nil, Errorf(TypeError, "code-char: not an integer")
		}
		return Char(rune(a[0].Long)), nil
	})
	def("symbol-name", func(env *Env, args *Value) (*Value, error) {
		a := argSlice(args)
		if err := wantArity("symbol-name", a, 1); err != nil {
			return nil, err
		}
		if a[0].Kind != KSymbol {
			return nil, Errorf(TypeError, "symbol-name: not a symbol")
		}
		return Str(a[0].Sym.Name), nil
	})
	def("intern", func(env *Env, args *Value) (*Value, error) {
		a := argSlice(args)
		if err := wantArity("intern", a, 1); err != nil {
			return nil, err
		}
		if a[0].Kind != KString {
			return nil, Errorf(TypeError, "intern: not a string")
		}
		return Sym(env.rt.Symbols.Intern(a[0].Str)), nil
	})
}

func strCmp(cmp func(a, b string) bool) PrimFunc {
	return func(env *Env, args *Value) (*Value, error) {
		a := argSlice(args)
		if err := wantArityRange("string comparison", a, 1, -1); err != nil {
			return nil, err
		}
		for i := 0; i+1 < len(a); i++ {
			if a[i].Kind != KString || a[i+1].Kind != KString {
				return nil, Errorf(TypeError, "string comparison: not a string")
			}
			if !cmp(a[i].Str, a[i+1].Str) {
				return boolValueIn(env, false), nil
			}
		}
		return boolValueIn(env, true), nil
	}
}

func strMap(op func(string) string) PrimFunc {
	return func(env *Env, args *Value) (*Value, error) {
		a := argSlice(args)
		if err := wantArity("string operation", a, 1); err != nil {
			return nil, err
		}
		if a[0].Kind != KString {
			return nil, Errorf(TypeError, "string operation: not a string")
		}
		return Str(op(a[0].Str)), nil
	}
}
