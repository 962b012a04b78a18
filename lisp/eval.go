package lisp

import "fmt"

// Eval evaluates form in env. It is a plain Go loop, not stack-driven
// recursion: forms in tail position rebind form/env and continue the loop
// instead of calling Eval again, so recursive Murmel functions written in
// tail-call style run in constant Go stack space.
func Eval(env *Env, form *Value) (*Value, error) {
	rt := env.rt
	pushed := 0
	defer func() {
		for ; pushed > 0; pushed-- {
			rt.Stack.Pop()
		}
	}()
trampoline:
	for {
		if form == nil {
			return Nil(), nil
		}
		switch form.Kind {
		case KNil, KLong, KDouble, KChar, KString, KPrimitive:
			return form, nil
		case KSymbol:
			return env.Get(form.Sym)
		case KArraySlice:
			return form, nil
		case KCons:
			// fall through below
		default:
			return form, nil
		}

		op := Car(form)
		rest := Cdr(form)
		r := env.rt.reserved

		if op.Kind == KSymbol {
			switch op.Sym {
			case r.quote:
				return Car(rest), nil

			case r.lambda:
				return makeClosure(env, rest, true)

			case r.dynamic:
				// (dynamic (lambda ...)) marks the following lambda as
				// dynamically scoped: it captures no environment.
				inner := Car(rest)
				if inner.Kind == KCons && inner.Car.Kind == KSymbol && inner.Car.Sym == r.lambda {
					return makeClosure(env, Cdr(inner), false)
				}
				return nil, Errorf(MalformedForm, "dynamic expects a lambda form")

			case r.setq:
				return evalSetq(env, rest)

			case r.define:
				return evalDefine(env, rest)

			case r.defun:
				return evalDefun(env, rest, false)

			case r.defmacro:
				return evalDefun(env, rest, true)

			case r.ifs:
				elems, _, ok := ListToSlice(rest)
				if !ok || len(elems) < 2 || len(elems) > 3 {
					return nil, Errorf(MalformedForm, "if expects (if cond then [else])")
				}
				test, err := Eval(env, elems[0])
				if err != nil {
					return nil, err
				}
				if !IsNil(test) {
					form = elems[1]
					continue
				}
				if len(elems) == 3 {
					form = elems[2]
					continue
				}
				return Nil(), nil

			case r.cond:
				next, nextEnv, val, done, err := evalCond(env, rest)
				if err != nil || done {
					return val, err
				}
				form, env = next, nextEnv
				continue

			case r.progn:
				next, done, val, err := evalBodyTail(env, rest)
				if err != nil || done {
					return val, err
				}
				form = next
				continue

			case r.labels:
				next, nextEnv, err := evalLabels(env, rest)
				if err != nil {
					return nil, err
				}
				form, env = next, nextEnv
				continue

			case r.let, r.letSeq, r.letrec:
				next, nextEnv, err := evalLet(env, op.Sym, rest)
				if err != nil {
					return nil, err
				}
				form, env = next, nextEnv
				continue

			case r.load:
				return evalLoad(env, rest)

			case r.require:
				return evalRequire(env, rest)

			case r.provide:
				return evalProvide(env, rest)

			case r.declaim:
				return evalDeclaim(env, rest)
			}

			if macroFn, ok := env.rt.Macros[op.Sym]; ok {
				argForms, _, ok := ListToSlice(rest)
				if !ok {
					return nil, Errorf(MalformedForm, "macro call is not a proper list")
				}
				expansion, err := applyClosure(env, macroFn, argForms)
				if err != nil {
					return nil, WrapForm(err, form)
				}
				form = expansion
				continue
			}
		}

		fn, err := Eval(env, op)
		if err != nil {
			return nil, err
		}
		argForms, _, ok := ListToSlice(rest)
		if !ok {
			return nil, Errorf(MalformedForm, "call arguments are not a proper list")
		}
		args := make([]*Value, len(argForms))
		for i, af := range argForms {
			v, err := Eval(env, af)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}

		calleeName := "<lambda>"
		traced := false
		if op.Kind == KSymbol {
			calleeName = op.Sym.Name
			traced = rt.Traced[op.Sym]
		}

		// apply/funcall/eval only ever forward to another callable or
		// form; unwrap them here and loop instead of recursing, so a
		// program that tail-recurses through (apply self args) runs in
		// the same constant Go stack space as a direct self-tail-call.
		for fn.Kind == KPrimitive {
			switch fn.Prim {
			case rt.applyPrim:
				target, flat, uerr := flattenApplyArgs(args)
				if uerr != nil {
					return nil, WrapForm(uerr, form)
				}
				fn, args = target, flat
				continue
			case rt.funcallPrim:
				if len(args) == 0 {
					return nil, WrapForm(Errorf(ArityError, "funcall expects at least 1 argument"), form)
				}
				fn, args = args[0], args[1:]
				continue
			case rt.evalPrim:
				if len(args) != 1 {
					return nil, WrapForm(Errorf(ArityError, "eval expects 1 argument"), form)
				}
				form, env = args[0], env.root()
				continue trampoline
			}
			break
		}

		switch {
		case fn.Kind == KPrimitive:
			if !traced && rt.Speed >= 1 {
				if res, handled, operr := OpenCode(fn.Prim.Name, args); handled {
					if operr != nil {
						return nil, WrapForm(operr, form)
					}
					return res, nil
				}
			}
			if traced {
				traceCall(rt, calleeName, args)
			}
			rt.Stack.Push(fn.Prim.Name, false)
			res, err := fn.Prim.Fn(env, List(args...))
			rt.Stack.Pop()
			if err != nil {
				return nil, WrapForm(err, form)
			}
			if traced {
				traceReturn(rt, calleeName, res)
			}
			return res, nil

		case IsClosure(fn, r.lambda):
			callEnv, err := bindFormals(env, fn, args)
			if err != nil {
				return nil, WrapForm(err, form)
			}
			body := Cdr(Cdr(fn))
			bodyForms, _, ok := ListToSlice(body)
			if !ok {
				return nil, Errorf(MalformedForm, "lambda body is not a proper list")
			}
			if traced {
				traceCall(rt, calleeName, args)
			}
			if pushed == 0 {
				rt.Stack.Push(calleeName, traced)
				pushed++
			} else {
				rt.Stack.Frames[len(rt.Stack.Frames)-1] = CallFrame{Name: calleeName, Traced: traced}
			}
			rt.Stack.MarkTerminal()
			if len(bodyForms) == 0 {
				return Nil(), nil
			}
			for _, f := range bodyForms[:len(bodyForms)-1] {
				if _, err := Eval(callEnv, f); err != nil {
					return nil, err
				}
			}
			form = bodyForms[len(bodyForms)-1]
			env = callEnv
			continue

		default:
			return nil, Errorf(TypeError, "not a function: %s", fn.String())
		}
	}
}

func traceCall(rt *Runtime, name string, args []*Value) {
	fmt.Fprintf(rt.Stderr, "%*sentering %s: %s\n", 2*rt.Stack.Depth(), "", name, List(args...).String())
}

func traceReturn(rt *Runtime, name string, res *Value) {
	fmt.Fprintf(rt.Stderr, "%*sexiting  %s: %s\n", 2*rt.Stack.Depth(), "", name, res.String())
}

// makeClosure builds a (lambda formals . body) closure value. lexical
// controls whether the current env is captured (nil capture means dynamic
// scope, resolved against the caller's env at call time). A reserved word
// in the parameter list is rejected here, before any call.
func makeClosure(env *Env, rest *Value, lexical bool) (*Value, error) {
	if !IsCons(rest) {
		return nil, Errorf(MalformedForm, "lambda expects (lambda formals . body)")
	}
	params, tail, _ := ListToSlice(Car(rest))
	for _, p := range append(params, tail) {
		if p.Kind == KSymbol && env.rt.Symbols.IsReserved(p.Sym) {
			return nil, Errorf(MalformedForm, "cannot bind reserved word %s", p.Sym.Name)
		}
	}
	closure := Cons(Sym(env.rt.reserved.lambda), rest)
	if lexical {
		closure.Env = env
	}
	return closure, nil
}

// bindFormals creates the call frame Env for invoking closure fn with args
// already evaluated, honoring the "&" rest-parameter marker.
func bindFormals(callerEnv *Env, fn *Value, args []*Value) (*Env, error) {
	defEnv := fn.Env
	if defEnv == nil {
		defEnv = callerEnv
	}
	callEnv := defEnv.Child()
	formals := Car(Cdr(fn))
	return bindInto(callEnv, formals, args)
}

// BindFormals binds args into env according to formals (a lambda parameter
// list honoring the "&" rest marker), exported so generated code can bind
// its own call frames with the same arity and rest-parameter semantics as
// interpreted closures instead of duplicating that logic.
func BindFormals(env *Env, formals *Value, args []*Value) (*Env, error) {
	return bindInto(env, formals, args)
}

func bindInto(env *Env, formals *Value, args []*Value) (*Env, error) {
	amp := env.rt.reserved.ampersa
	if formals.Kind == KSymbol {
		if env.rt.Symbols.IsReserved(formals.Sym) {
			return nil, Errorf(MalformedForm, "cannot bind reserved word %s", formals.Sym.Name)
		}
		env.Define(formals.Sym, List(args...))
		return env, nil
	}
	i := 0
	for f := formals; IsCons(f); f = Cdr(f) {
		p := Car(f)
		if p.Kind == KSymbol && p.Sym == amp {
			restSym := Car(Cdr(f))
			if restSym.Kind != KSymbol {
				return nil, Errorf(MalformedForm, "& must be followed by a single parameter name")
			}
			if env.rt.Symbols.IsReserved(restSym.Sym) {
				return nil, Errorf(MalformedForm, "cannot bind reserved word %s", restSym.Sym.Name)
			}
			var restArgs []*Value
			if i < len(args) {
				restArgs = args[i:]
			}
			env.Define(restSym.Sym, List(restArgs...))
			return env, nil
		}
		if p.Kind != KSymbol {
			return nil, Errorf(MalformedForm, "parameter names must be symbols")
		}
		if env.rt.Symbols.IsReserved(p.Sym) {
			return nil, Errorf(MalformedForm, "cannot bind reserved word %s", p.Sym.Name)
		}
		if i >= len(args) {
			return nil, Errorf(ArityError, "too few arguments: missing %s", p.Sym.Name)
		}
		env.Define(p.Sym, args[i])
		i++
	}
	if i < len(args) {
		return nil, Errorf(ArityError, "too many arguments")
	}
	return env, nil
}

// applyClosure runs closure fn to completion (no tail-loop splice into the
// caller), used for macro expansion and for the apply/funcall primitives.
func applyClosure(callerEnv *Env, fn *Value, args []*Value) (*Value, error) {
	if fn.Kind == KPrimitive {
		return fn.Prim.Fn(callerEnv, List(args...))
	}
	if !IsClosure(fn, callerEnv.rt.reserved.lambda) {
		return nil, Errorf(TypeError, "not a function: %s", fn.String())
	}
	callEnv, err := bindFormals(callerEnv, fn, args)
	if err != nil {
		return nil, err
	}
	body := Cdr(Cdr(fn))
	bodyForms, _, ok := ListToSlice(body)
	if !ok {
		return nil, Errorf(MalformedForm, "lambda body is not a proper list")
	}
	var res *Value = Nil()
	for _, f := range bodyForms {
		v, err := Eval(callEnv, f)
		if err != nil {
			return nil, err
		}
		res = v
	}
	return res, nil
}

// Apply is the exported entry point used by the apply/funcall primitives.
func Apply(env *Env, fn *Value, args []*Value) (*Value, error) {
	return applyClosure(env, fn, args)
}

func evalSetq(env *Env, rest *Value) (*Value, error) {
	elems, _, ok := ListToSlice(rest)
	if !ok || len(elems) != 2 {
		return nil, Errorf(MalformedForm, "setq expects (setq symbol value)")
	}
	if elems[0].Kind != KSymbol {
		return nil, Errorf(MalformedForm, "setq target must be a symbol")
	}
	if env.rt.Symbols.IsReserved(elems[0].Sym) {
		return nil, Errorf(MalformedForm, "cannot setq reserved word %s", elems[0].Sym.Name)
	}
	val, err := Eval(env, elems[1])
	if err != nil {
		return nil, err
	}
	if err := env.Setq(elems[0].Sym, val); err != nil {
		return nil, err
	}
	return val, nil
}

func evalDefine(env *Env, rest *Value) (*Value, error) {
	elems, _, ok := ListToSlice(rest)
	if !ok || len(elems) != 2 {
		return nil, Errorf(MalformedForm, "define expects (define symbol value)")
	}
	if elems[0].Kind != KSymbol {
		return nil, Errorf(MalformedForm, "define target must be a symbol")
	}
	if env.rt.Symbols.IsReserved(elems[0].Sym) {
		return nil, Errorf(MalformedForm, "cannot redefine reserved word %s", elems[0].Sym.Name)
	}
	val, err := Eval(env, elems[1])
	if err != nil {
		return nil, err
	}
	env.DefineGlobal(elems[0].Sym, val)
	return Sym(elems[0].Sym), nil
}

// evalDefun handles both defun and defmacro: (defun name formals . body).
func evalDefun(env *Env, rest *Value, macro bool) (*Value, error) {
	name := Car(rest)
	if name.Kind != KSymbol {
		return nil, Errorf(MalformedForm, "defun/defmacro expects a name symbol")
	}
	if env.rt.Symbols.IsReserved(name.Sym) {
		return nil, Errorf(MalformedForm, "cannot redefine reserved word %s", name.Sym.Name)
	}
	lambdaRest := Cdr(rest) // (formals . body)
	closure, err := makeClosure(env, lambdaRest, true)
	if err != nil {
		return nil, err
	}
	if macro {
		env.rt.Macros[name.Sym] = closure
	} else {
		env.DefineGlobal(name.Sym, closure)
	}
	return Sym(name.Sym), nil
}

// evalBodyTail evaluates all but the last form in a progn-style body,
// returning the last form for the caller's tail loop. done is true (with
// val meaningful) for an empty body.
func evalBodyTail(env *Env, body *Value) (last *Value, done bool, val *Value, err error) {
	forms, _, ok := ListToSlice(body)
	if !ok {
		return nil, true, nil, Errorf(MalformedForm, "body is not a proper list")
	}
	if len(forms) == 0 {
		return nil, true, Nil(), nil
	}
	for _, f := range forms[:len(forms)-1] {
		if _, err := Eval(env, f); err != nil {
			return nil, true, nil, err
		}
	}
	return forms[len(forms)-1], false, nil, nil
}

func evalCond(env *Env, clauses *Value) (next *Value, nextEnv *Env, val *Value, done bool, err error) {
	forms, _, ok := ListToSlice(clauses)
	if !ok {
		return nil, nil, nil, true, Errorf(MalformedForm, "cond clauses are not a proper list")
	}
	for _, clause := range forms {
		parts, _, ok := ListToSlice(clause)
		if !ok || len(parts) == 0 {
			return nil, nil, nil, true, Errorf(MalformedForm, "cond clause must be (test . body)")
		}
		test, err := Eval(env, parts[0])
		if err != nil {
			return nil, nil, nil, true, err
		}
		if IsNil(test) {
			continue
		}
		if len(parts) == 1 {
			return nil, nil, test, true, nil
		}
		last, doneBody, val, err := evalBodyTail(env, List(parts[1:]...))
		if err != nil {
			return nil, nil, nil, true, err
		}
		if doneBody {
			return nil, nil, val, true, nil
		}
		return last, env, nil, false, nil
	}
	return nil, nil, Nil(), true, nil
}

func evalLabels(env *Env, rest *Value) (*Value, *Env, error) {
	bindings := Car(rest)
	body := Cdr(rest)
	labelsEnv := env.Child()
	specs, _, ok := ListToSlice(bindings)
	if !ok {
		return nil, nil, Errorf(MalformedForm, "labels bindings must be a proper list")
	}
	for _, spec := range specs {
		parts, _, ok := ListToSlice(spec)
		if !ok || len(parts) < 2 || parts[0].Kind != KSymbol {
			return nil, nil, Errorf(MalformedForm, "labels binding must be (name formals . body)")
		}
		if env.rt.Symbols.IsReserved(parts[0].Sym) {
			return nil, nil, Errorf(MalformedForm, "cannot bind reserved word %s", parts[0].Sym.Name)
		}
		closure, err := makeClosure(labelsEnv, List(parts[1:]...), true)
		if err != nil {
			return nil, nil, err
		}
		labelsEnv.Define(parts[0].Sym, closure)
	}
	last, done, val, err := evalBodyTail(labelsEnv, body)
	if err != nil {
		return nil, nil, err
	}
	if done {
		return quoteWrapIn(labelsEnv, val), labelsEnv, nil
	}
	return last, labelsEnv, nil
}

// quoteWrapIn wraps an already-computed value as a self-evaluating quote
// form using env's own interned quote symbol, so callers using the
// (next-form, next-env) tail-loop protocol can return a precomputed result
// without a second Eval call.
func quoteWrapIn(env *Env, v *Value) *Value {
	if v == nil {
		v = Nil()
	}
	switch v.Kind {
	case KNil, KLong, KDouble, KChar, KString, KPrimitive, KArraySlice:
		return v
	default:
		return List(Sym(env.rt.reserved.quote), v)
	}
}

type letBinding struct {
	sym *Symbol
	val *Value
}

func evalLet(env *Env, kind *Symbol, rest *Value) (*Value, *Env, error) {
	r := env.rt.reserved
	first := Car(rest)
	name := (*Symbol)(nil)
	bindingsForm := first
	bodyForm := Cdr(rest)
	if first.Kind == KSymbol && !IsNil(first) && first.Sym != r.dynamic {
		name = first.Sym
		bindingsForm = Car(Cdr(rest))
		bodyForm = Cdr(Cdr(rest))
	}

	isDynamic := false
	if bindingsForm.Kind == KSymbol && bindingsForm.Sym == r.dynamic {
		isDynamic = true
		bindingsForm = Car(bodyForm)
		bodyForm = Cdr(bodyForm)
	}

	specs, _, ok := ListToSlice(bindingsForm)
	if !ok {
		return nil, nil, Errorf(MalformedForm, "let bindings must be a proper list")
	}

	bound := make([]letBinding, len(specs))

	letEnv := env
	if !isDynamic {
		letEnv = env.Child()
	}

	switch kind {
	case r.let:
		for i, spec := range specs {
			sym, expr, err := parseBindingSpec(env, spec)
			if err != nil {
				return nil, nil, err
			}
			val, err := Eval(env, expr)
			if err != nil {
				return nil, nil, err
			}
			bound[i] = letBinding{sym, val}
		}
	case r.letSeq:
		evalEnv := letEnv
		if isDynamic {
			evalEnv = env
		}
		for i, spec := range specs {
			sym, expr, err := parseBindingSpec(env, spec)
			if err != nil {
				return nil, nil, err
			}
			val, err := Eval(evalEnv, expr)
			if err != nil {
				return nil, nil, err
			}
			bound[i] = letBinding{sym, val}
			if !isDynamic {
				letEnv.Define(sym, val)
			}
		}
	case r.letrec:
		for i, spec := range specs {
			sym, _, err := parseBindingSpec(env, spec)
			if err != nil {
				return nil, nil, err
			}
			bound[i].sym = sym
			if !isDynamic {
				letEnv.Define(sym, Sym(env.rt.reserved.unassigned))
			}
		}
		for i, spec := range specs {
			_, expr, err := parseBindingSpec(env, spec)
			if err != nil {
				return nil, nil, err
			}
			val, err := Eval(letEnv, expr)
			if err != nil {
				return nil, nil, err
			}
			bound[i].val = val
			if !isDynamic {
				if err := letEnv.Setq(bound[i].sym, val); err != nil {
					return nil, nil, err
				}
			}
		}
	}

	var restores []func()
	if isDynamic {
		for _, b := range bound {
			restores = append(restores, env.BindDynamic(b.sym, b.val))
		}
	} else if kind == r.let {
		for _, b := range bound {
			letEnv.Define(b.sym, b.val)
		}
	}

	bodyEnv := letEnv
	if name != nil {
		// Named let: the closure is visible to its own body for recursive
		// self-calls, which then dispatch through Eval's ordinary
		// closure-call path and trampoline like any other tail call.
		formals := List(symsOf(bound)...)
		closure, err := makeClosure(letEnv, Cons(formals, bodyForm), true)
		if err != nil {
			return nil, nil, err
		}
		letEnv.Define(name, closure)
		bodyEnv, err = bindFormals(letEnv, closure, valsOf(bound))
		if err != nil {
			return nil, nil, err
		}
	}

	if isDynamic {
		// Dynamic bindings must be restored immediately after the body
		// finishes, so the body is run to completion here instead of
		// splicing its last form into the caller's tail loop.
		res, err := evalBodyFull(bodyEnv, bodyForm)
		for i := len(restores) - 1; i >= 0; i-- {
			restores[i]()
		}
		if err != nil {
			return nil, nil, err
		}
		return quoteWrapIn(env, res), env, nil
	}

	last, done, val, err := evalBodyTail(bodyEnv, bodyForm)
	if err != nil {
		return nil, nil, err
	}
	if done {
		return quoteWrapIn(env, val), env, nil
	}
	return last, bodyEnv, nil
}

// evalBodyFull evaluates every form of body in order, returning the value
// of the last one (or nil for an empty body).
func evalBodyFull(env *Env, body *Value) (*Value, error) {
	forms, _, ok := ListToSlice(body)
	if !ok {
		return nil, Errorf(MalformedForm, "body is not a proper list")
	}
	res := Nil()
	for _, f := range forms {
		v, err := Eval(env, f)
		if err != nil {
			return nil, err
		}
		res = v
	}
	return res, nil
}

func symsOf(bound []letBinding) []*Value {
	out := make([]*Value, len(bound))
	for i, b := range bound {
		out[i] = Sym(b.sym)
	}
	return out
}

func valsOf(bound []letBinding) []*Value {
	out := make([]*Value, len(bound))
	for i, b := range bound {
		out[i] = b.val
	}
	return out
}

func parseBindingSpec(env *Env, spec *Value) (*Symbol, *Value, error) {
	sym, expr, err := parseBindingSpecSym(spec)
	if err != nil {
		return nil, nil, err
	}
	if env.rt.Symbols.IsReserved(sym) {
		return nil, nil, Errorf(MalformedForm, "cannot bind reserved word %s", sym.Name)
	}
	return sym, expr, nil
}

func parseBindingSpecSym(spec *Value) (*Symbol, *Value, error) {
	if spec.Kind == KSymbol {
		return spec.Sym, Nil(), nil
	}
	parts, _, ok := ListToSlice(spec)
	if !ok || len(parts) == 0 || parts[0].Kind != KSymbol {
		return nil, nil, Errorf(MalformedForm, "binding must be a symbol or (symbol expr)")
	}
	if len(parts) == 1 {
		return parts[0].Sym, Nil(), nil
	}
	return parts[0].Sym, parts[1], nil
}
