package lisp

import "math"

// InstallNumeric binds the arithmetic and numeric-comparison primitives.
// The numeric tower keeps a result as an integer unless a float operand
// forces promotion; / also returns a float when an integer division is
// inexact. It also binds the constants pi, most-positive-fixnum and
// most-negative-fixnum.
func InstallNumeric(env *Env) {
	root := env.root()
	def := func(name string, fn PrimFunc) { root.Define(root.rt.Symbols.Intern(name), Fun(name, fn)) }

	def("+", arithFold("+", 0, func(a, b int64) int64 { return a + b }, func(a, b float64) float64 { return a + b }))
	def("*", arithFold("*", 1, func(a, b int64) int64 { return a * b }, func(a, b float64) float64 { return a * b }))
	def("-", arithSub)
	def("/", arithDiv)
	def("mod", intBinOp("mod", func(a, b int64) (int64, error) {
		if b == 0 {
			return 0, Errorf(ArithmeticError, "division by zero")
		}
		m := a % b
		if m != 0 && (m < 0) != (b < 0) {
			m += b
		}
		return m, nil
	}))
	def("rem", intBinOp("rem", func(a, b int64) (int64, error) {
		if b == 0 {
			return 0, Errorf(ArithmeticError, "division by zero")
		}
		return a % b, nil
	}))
	def("1+", func(env *Env, args *Value) (*Value, error) { return numUnary(args, 1) })
	def("1-", func(env *Env, args *Value) (*Value, error) { return numUnary(args, -1) })
	def("abs", numMap(math.Abs, func(n int64) int64 {
		if n < 0 {
			return -n
		}
		return n
	}))
	def("sqrt", floatOnly(math.Sqrt))
	def("exp", floatOnly(math.Exp))
	def("log", func(env *Env, args *Value) (*Value, error) {
		a := argSlice(args)
		if err := wantArityRange("log", a, 1, 2); err != nil {
			return nil, err
		}
		if err := requireNumbers("log", a); err != nil {
			return nil, err
		}
		x, _ := numOf(a[0])
		if len(a) == 1 {
			return Double(math.Log(x)), nil
		}
		base, _ := numOf(a[1])
		return Double(math.Log(x) / math.Log(base)), nil
	})
	def("log10", floatOnly(math.Log10))
	def("signum", numMap(func(f float64) float64 {
		switch {
		case f > 0:
			return 1
		case f < 0:
			return -1
		default:
			return 0
		}
	}, func(n int64) int64 {
		switch {
		case n > 0:
			return 1
		case n < 0:
			return -1
		default:
			return 0
		}
	}))
	def("expt", func(env *Env, args *Value) (*Value, error) {
		a := argSlice(args)
		if err := wantArity("expt", a, 2); err != nil {
			return nil, err
		}
		base, bf := numOf(a[0])
		exp, ef := numOf(a[1])
		if !bf && !ef && exp >= 0 {
			r := int64(1)
			for i := int64(0); i < int64(exp); i++ {
				r *= int64(base)
			}
			return Long(r), nil
		}
		return Double(math.Pow(base, exp)), nil
	})
	def("floor", roundOp(math.Floor))
	def("ceiling", roundOp(math.Ceil))
	def("round", roundOp(math.Round))
	def("truncate", roundOp(math.Trunc))
	def("ffloor", floatOnly(math.Floor))
	def("fceiling", floatOnly(math.Ceil))
	def("fround", floatOnly(math.Round))
	def("ftruncate", floatOnly(math.Trunc))
	def("min", extremum("min", func(a, b float64) bool { return a < b }))
	def("max", extremum("max", func(a, b float64) bool { return a > b }))

	def("=", cmpFold("=", func(c int) bool { return c == 0 }))
	def("/=", cmpFold("/=", func(c int) bool { return c != 0 }))
	def("<", cmpFold("<", func(c int) bool { return c < 0 }))
	def(">", cmpFold(">", func(c int) bool { return c > 0 }))
	def("<=", cmpFold("<=", func(c int) bool { return c <= 0 }))
	def(">=", cmpFold(">=", func(c int) bool { return c >= 0 }))
	def("zerop", typePredicate(func(v *Value) bool {
		n, f := numOf(v)
		if f {
			return n == 0
		}
		return v.Long == 0
	}))
	def("plusp", typePredicate(func(v *Value) bool { n, _ := numOf(v); return n > 0 }))
	def("minusp", typePredicate(func(v *Value) bool { n, _ := numOf(v); return n < 0 }))
	def("evenp", typePredicate(func(v *Value) bool { return v.Kind == KLong && v.Long%2 == 0 }))
	def("oddp", typePredicate(func(v *Value) bool { return v.Kind == KLong && v.Long%2 != 0 }))

	root.Define(root.rt.Symbols.Intern("pi"), Double(math.Pi))
	root.Define(root.rt.Symbols.Intern("most-positive-fixnum"), Long(math.MaxInt64))
	root.Define(root.rt.Symbols.Intern("most-negative-fixnum"), Long(math.MinInt64))
}

// numOf returns v's numeric value as a float64 plus whether v was already a
// float (so integer-preserving callers can choose to stay in int64).
func numOf(v *Value) (float64, bool) {
	switch v.Kind {
	case KLong:
		return float64(v.Long), false
	case KDouble:
		return v.Double, true
	default:
		return 0, false
	}
}

func requireNumbers(name string, a []*Value) error {
	for _, v := range a {
		if v.Kind != KLong && v.Kind != KDouble {
			return Errorf(TypeError, "%s: not a number: %s", name, v.String())
		}
	}
	return nil
}

func arithFold(name string, identity int64, intOp func(a, b int64) int64, fOp func(a, b float64) float64) PrimFunc {
	return func(env *Env, args *Value) (*Value, error) {
		a := argSlice(args)
		if err := requireNumbers(name, a); err != nil {
			return nil, err
		}
		isFloat := false
		for _, v := range a {
			if v.Kind == KDouble {
				isFloat = true
			}
		}
		if isFloat {
			acc := float64(identity)
			for _, v := range a {
				f, _ := numOf(v)
				acc = fOp(acc, f)
			}
			return Double(acc), nil
		}
		acc := identity
		for _, v := range a {
			acc = intOp(acc, v.Long)
		}
		return Long(acc), nil
	}
}

func arithSub(env *Env, args *Value) (*Value, error) {
	a := argSlice(args)
	if err := requireNumbers("-", a); err != nil {
		return nil, err
	}
	if len(a) == 0 {
		return nil, Errorf(ArityError, "- expects at least 1 argument")
	}
	isFloat := false
	for _, v := range a {
		if v.Kind == KDouble {
			isFloat = true
		}
	}
	if len(a) == 1 {
		if isFloat {
			f, _ := numOf(a[0])
			return Double(-f), nil
		}
		return Long(-a[0].Long), nil
	}
	if isFloat {
		f, _ := numOf(a[0])
		acc := f
		for _, v := range a[1:] {
			g, _ := numOf(v)
			acc -= g
		}
		return Double(acc), nil
	}
	acc := a[0].Long
	for _, v := range a[1:] {
		acc -= v.Long
	}
	return Long(acc), nil
}

func arithDiv(env *Env, args *Value) (*Value, error) {
	a := argSlice(args)
	if err := requireNumbers("/", a); err != nil {
		return nil, err
	}
	if len(a) == 0 {
		return nil, Errorf(ArityError, "/ expects at least 1 argument")
	}
	isFloat := false
	for _, v := range a {
		if v.Kind == KDouble {
			isFloat = true
		}
	}
	if len(a) == 1 {
		if isFloat {
			f, _ := numOf(a[0])
			return Double(1 / f), nil
		}
		if a[0].Long == 0 {
			return nil, Errorf(ArithmeticError, "division by zero")
		}
		return Double(1 / float64(a[0].Long)), nil
	}
	if isFloat {
		f, _ := numOf(a[0])
		acc := f
		for _, v := range a[1:] {
			g, _ := numOf(v)
			acc /= g
		}
		return Double(acc), nil
	}
	acc := a[0].Long
	allExact := true
	for _, v := range a[1:] {
		if v.Long == 0 {
			return nil, Errorf(ArithmeticError, "division by zero")
		}
		if acc%v.Long != 0 {
			allExact = false
		}
		acc /= v.Long
	}
	if allExact {
		return Long(acc), nil
	}
	f, _ := numOf(a[0])
	facc := f
	for _, v := range a[1:] {
		g, _ := numOf(v)
		facc /= g
	}
	return Double(facc), nil
}

func intBinOp(name string, op func(a, b int64) (int64, error)) PrimFunc {
	return func(env *Env, args *Value) (*Value, error) {
		a := argSlice(args)
		if err := wantArity(name, a, 2); err != nil {
			return nil, err
		}
		if a[0].Kind != KLong || a[1].Kind != KLong {
			return nil, Errorf(TypeError, "%s expects integers", name)
		}
		r, err := op(a[0].Long, a[1].Long)
		if err != nil {
			return nil, err
		}
		return Long(r), nil
	}
}

func numUnary(args *Value, delta int64) (*Value, error) {
	a := argSlice(args)
	if err := wantArity("1+/1-", a, 1); err != nil {
		return nil, err
	}
	if a[0].Kind == KDouble {
		return Double(a[0].Double + float64(delta)), nil
	}
	if a[0].Kind == KLong {
		return Long(a[0].Long + delta), nil
	}
	return nil, Errorf(TypeError, "not a number: %s", a[0].String())
}

func numMap(fOp func(float64) float64, iOp func(int64) int64) PrimFunc {
	return func(env *Env, args *Value) (*Value, error) {
		a := argSlice(args)
		if err := wantArity("numeric operation", a, 1); err != nil {
			return nil, err
		}
		if a[0].Kind == KLong {
			return Long(iOp(a[0].Long)), nil
		}
		f, isFloat := numOf(a[0])
		if !isFloat && a[0].Kind != KLong {
			return nil, Errorf(TypeError, "not a number: %s", a[0].String())
		}
		return Double(fOp(f)), nil
	}
}

func floatOnly(op func(float64) float64) PrimFunc {
	return func(env *Env, args *Value) (*Value, error) {
		a := argSlice(args)
		if err := wantArity("numeric operation", a, 1); err != nil {
			return nil, err
		}
		f, _ := numOf(a[0])
		return Double(op(f)), nil
	}
}

func roundOp(op func(float64) float64) PrimFunc {
	return func(env *Env, args *Value) (*Value, error) {
		a := argSlice(args)
		if err := wantArity("rounding operation", a, 1); err != nil {
			return nil, err
		}
		if a[0].Kind == KLong {
			return a[0], nil
		}
		f, _ := numOf(a[0])
		return Long(int64(op(f))), nil
	}
}

func extremum(name string, better func(a, b float64) bool) PrimFunc {
	return func(env *Env, args *Value) (*Value, error) {
		a := argSlice(args)
		if err := wantArityRange(name, a, 1, -1); err != nil {
			return nil, err
		}
		if err := requireNumbers(name, a); err != nil {
			return nil, err
		}
		best := a[0]
		bf, _ := numOf(best)
		isFloat := best.Kind == KDouble
		for _, v := range a[1:] {
			f, _ := numOf(v)
			if v.Kind == KDouble {
				isFloat = true
			}
			if better(f, bf) {
				best, bf = v, f
			}
		}
		if isFloat {
			return Double(bf), nil
		}
		return best, nil
	}
}

func cmpFold(name string, ok func(cmp int) bool) PrimFunc {
	return func(env *Env, args *Value) (*Value, error) {
		a := argSlice(args)
		if err := wantArityRange(name, a, 1, -1); err != nil {
			return nil, err
		}
		if err := requireNumbers(name, a); err != nil {
			return nil, err
		}
		for i := 0; i+1 < len(a); i++ {
			x, _ := numOf(a[i])
			y, _ := numOf(a[i+1])
			c := 0
			switch {
			case x < y:
				c = -1
			case x > y:
				c = 1
			}
			if !ok(c) {
				return boolValueIn(env, false), nil
			}
		}
		return boolValueIn(env, true), nil
	}
}
