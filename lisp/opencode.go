package lisp

// OpenCode implements the small set of primitives whose call sites can
// execute directly against argument values instead of going through the
// general primitive-call machinery: arithmetic, cons/car/cdr, and the
// cheap predicates. It is shared by two callers so the two paths can never
// disagree on a result: Eval's KPrimitive dispatch tries it first when
// Runtime.Speed >= 1, and codegen emits a direct call to it for any
// call site whose operator names an open-codable primitive.
//
// handled is false when name isn't an open-codable primitive, or when the
// arguments fall outside what the fast path covers (wrong arity, wrong
// type); callers fall through to the general primitive-call path in that
// case.
func OpenCode(name string, args []*Value) (result *Value, handled bool, err error) {
	switch name {
	case "+":
		return openFold(args, 0, func(a, b int64) int64 { return a + b }, func(a, b float64) float64 { return a + b })
	case "*":
		return openFold(args, 1, func(a, b int64) int64 { return a * b }, func(a, b float64) float64 { return a * b })
	case "-":
		return openSub(args)
	case "1+":
		return openDelta(args, 1)
	case "1-":
		return openDelta(args, -1)
	case "cons":
		if len(args) != 2 {
			return nil, false, nil
		}
		return Cons(args[0], args[1]), true, nil
	case "car":
		if len(args) != 1 {
			return nil, false, nil
		}
		if !IsCons(args[0]) && !IsNil(args[0]) {
			return nil, true, Errorf(TypeError, "car: not a list: %s", args[0].String())
		}
		return Car(args[0]), true, nil
	case "cdr":
		if len(args) != 1 {
			return nil, false, nil
		}
		if !IsCons(args[0]) && !IsNil(args[0]) {
			return nil, true, Errorf(TypeError, "cdr: not a list: %s", args[0].String())
		}
		return Cdr(args[0]), true, nil
	case "eq":
		if len(args) != 2 {
			return nil, false, nil
		}
		return boolValue(Eq(args[0], args[1])), true, nil
	case "null", "not":
		if len(args) != 1 {
			return nil, false, nil
		}
		return boolValue(IsNil(args[0])), true, nil
	case "atom":
		if len(args) != 1 {
			return nil, false, nil
		}
		return boolValue(args[0].Kind != KCons), true, nil
	case "consp":
		if len(args) != 1 {
			return nil, false, nil
		}
		return boolValue(args[0].Kind == KCons), true, nil
	default:
		return nil, false, nil
	}
}

// boolValue returns a self-evaluating truth value that does not depend on
// a particular Env's interned t symbol, matching how open-coded call
// sites have no Env of their own to consult.
func boolValue(b bool) *Value {
	if b {
		return &Value{Kind: KSymbol, Sym: &Symbol{Name: "t"}}
	}
	return Nil()
}

func allNumeric(args []*Value) bool {
	for _, v := range args {
		if v.Kind != KLong && v.Kind != KDouble {
			return false
		}
	}
	return true
}

// openFold mirrors arithFold's identity-seeded left fold, for the
// associative operators + and *.
func openFold(args []*Value, identity int64, intOp func(a, b int64) int64, fOp func(a, b float64) float64) (*Value, bool, error) {
	if len(args) == 0 || !allNumeric(args) {
		return nil, false, nil
	}
	isFloat := false
	for _, v := range args {
		if v.Kind == KDouble {
			isFloat = true
		}
	}
	if isFloat {
		acc := float64(identity)
		for _, v := range args {
			f, _ := numOf(v)
			acc = fOp(acc, f)
		}
		return Double(acc), true, nil
	}
	acc := identity
	for _, v := range args {
		acc = intOp(acc, v.Long)
	}
	return Long(acc), true, nil
}

// openSub mirrors arithSub for exactly the shapes worth open-coding:
// unary negation and binary subtraction.
func openSub(args []*Value) (*Value, bool, error) {
	if len(args) != 1 && len(args) != 2 {
		return nil, false, nil
	}
	if !allNumeric(args) {
		return nil, false, nil
	}
	isFloat := args[0].Kind == KDouble || (len(args) == 2 && args[1].Kind == KDouble)
	if len(args) == 1 {
		if isFloat {
			f, _ := numOf(args[0])
			return Double(-f), true, nil
		}
		return Long(-args[0].Long), true, nil
	}
	if isFloat {
		a, _ := numOf(args[0])
		b, _ := numOf(args[1])
		return Double(a - b), true, nil
	}
	return Long(args[0].Long - args[1].Long), true, nil
}

// openDelta implements 1+/1- as addition of a compile-time-known delta.
func openDelta(args []*Value, delta int64) (*Value, bool, error) {
	if len(args) != 1 {
		return nil, false, nil
	}
	switch args[0].Kind {
	case KLong:
		return Long(args[0].Long + delta), true, nil
	case KDouble:
		return Double(args[0].Double + float64(delta)), true, nil
	default:
		return nil, false, nil
	}
}
