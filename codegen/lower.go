package codegen

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/cagix/jmurmel/lisp"
)

// generator holds the state shared across every function this program
// lowers: the constant pool, the optimization level captured off a
// top-level declaim, and the counters that keep generated identifiers
// unique.
type generator struct {
	pool  *constPool
	speed int

	tmp   int
	fnID  int
}

func (g *generator) newTemp(prefix string) string {
	g.tmp++
	return fmt.Sprintf("%s%d", prefix, g.tmp)
}

func (g *generator) newFuncName(base string) string {
	g.fnID++
	return fmt.Sprintf("fn%d_%s", g.fnID, mangle(base))
}

// openCodable mirrors lisp.OpenCode's exact primitive coverage: codegen
// only tries the open-coded call path for a name in this set, so the two
// can never disagree about which calls it applies to.
var openCodable = map[string]bool{
	"+": true, "*": true, "-": true, "1+": true, "1-": true,
	"cons": true, "car": true, "cdr": true, "eq": true,
	"null": true, "not": true, "atom": true, "consp": true,
}

// funcCtx lowers one Go function body: a shared statement buffer, the Go
// variable holding the *lisp.Env forms in this scope evaluate against, and
// (inside a compiled defun with a self tail call) the name being compiled
// and the pendingCall driver loop it can jump back to.
type funcCtx struct {
	gen    *generator
	buf    *bytes.Buffer
	envVar string

	// selfName is set only while lowering the body of a defun/named lambda
	// that a compile-time scan found to self-tail-call; lowerTail checks it
	// to decide whether a direct self-call rebinds the pendingCall loop
	// instead of going through lisp.Apply. It is never propagated into a
	// let body or a non-tail sub-expression, matching how the same scan
	// (formSelfTailCallExists) never looks inside those either.
	selfName *lisp.Symbol
}

func (fc *funcCtx) emit(format string, args ...interface{}) {
	fmt.Fprintf(fc.buf, format, args...)
}

// emitFallible emits a statement assigning the result of a call that
// returns (*lisp.Value, error) to a fresh temporary, propagating any error
// with an immediate return, and yields the temporary as the Go expression
// callers should use for the value.
func (fc *funcCtx) emitFallible(format string, args ...interface{}) string {
	t := fc.gen.newTemp("v")
	fc.emit("\t%s, err := %s\n", t, fmt.Sprintf(format, args...))
	fc.emit("\tif err != nil {\n\t\treturn nil, err\n\t}\n")
	return t
}

// --- pass 1: macro expansion and top-level classification ---

// collectTopLevel walks forms in file order, expanding macros against
// compileEnv and flattening/consuming the top-level forms
// (defmacro/declaim/progn) that exist only to shape compilation, leaving
// the plain forms pass 2 actually lowers.
func (g *generator) collectTopLevel(compileEnv *lisp.Env, forms []*lisp.Value) ([]*lisp.Value, error) {
	var out []*lisp.Value
	for _, f := range forms {
		more, err := g.processTop(compileEnv, reintern(compileEnv.Runtime().Symbols, f))
		if err != nil {
			return nil, err
		}
		out = append(out, more...)
	}
	return out, nil
}

func (g *generator) processTop(compileEnv *lisp.Env, form *lisp.Value) ([]*lisp.Value, error) {
	if lisp.IsCons(form) && lisp.Car(form).Kind == lisp.KSymbol {
		switch lisp.Car(form).Sym.Name {
		case "progn":
			elems, _, ok := lisp.ListToSlice(lisp.Cdr(form))
			if ok {
				var out []*lisp.Value
				for _, e := range elems {
					more, err := g.processTop(compileEnv, e)
					if err != nil {
						return nil, err
					}
					out = append(out, more...)
				}
				return out, nil
			}
		case "defmacro":
			expanded, err := expandMacros(compileEnv, form)
			if err != nil {
				return nil, err
			}
			if _, err := lisp.Eval(compileEnv, expanded); err != nil {
				return nil, err
			}
			return nil, nil
		case "declaim":
			if _, err := lisp.Eval(compileEnv, form); err != nil {
				return nil, err
			}
			return nil, nil
		}
	}
	expanded, err := expandMacros(compileEnv, form)
	if err != nil {
		return nil, err
	}
	return []*lisp.Value{expanded}, nil
}

// expandMacros fully macro-expands form and every subform, skipping the
// argument of quote. It is the compile-time analogue of the interpreter's
// own macro-call dispatch in Eval, driven through the macroexpand-1
// builtin so the two can never disagree about what a macro call expands
// to.
func expandMacros(env *lisp.Env, form *lisp.Value) (*lisp.Value, error) {
	if !lisp.IsCons(form) {
		return form, nil
	}
	head := lisp.Car(form)
	if head.Kind == lisp.KSymbol && head.Sym.Name == "quote" {
		return form, nil
	}
	expanded, err := macroexpand1(env, form)
	if err != nil {
		return nil, err
	}
	if expanded != form {
		return expandMacros(env, expanded)
	}
	elems, tail, ok := lisp.ListToSlice(form)
	if !ok {
		return form, nil
	}
	out := make([]*lisp.Value, len(elems))
	for i, e := range elems {
		v, err := expandMacros(env, e)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	if lisp.IsNil(tail) {
		return lisp.List(out...), nil
	}
	return lisp.ListStar(tail, out...), nil
}

func macroexpand1(env *lisp.Env, form *lisp.Value) (*lisp.Value, error) {
	symtab := env.Runtime().Symbols
	quoted := lisp.List(lisp.Sym(symtab.Intern("quote")), form)
	call := lisp.List(lisp.Sym(symtab.Intern("macroexpand-1")), quoted)
	return lisp.Eval(env, call)
}

func parseBindingSpecCodegen(spec *lisp.Value) (string, *lisp.Value, error) {
	if spec.Kind == lisp.KSymbol {
		return spec.Sym.Name, lisp.Nil(), nil
	}
	parts, _, ok := lisp.ListToSlice(spec)
	if !ok || len(parts) == 0 || parts[0].Kind != lisp.KSymbol {
		return "", nil, lisp.Errorf(lisp.MalformedForm, "binding must be a symbol or (symbol expr)")
	}
	if len(parts) == 1 {
		return parts[0].Sym.Name, lisp.Nil(), nil
	}
	return parts[0].Sym.Name, parts[1], nil
}

// --- pass 2: structural lowering ---

// lowerProgramBody lowers the program's remaining top-level forms into the
// body of the generated body() function, matching evalBodyFull's contract
// of returning the value of the last form.
func (fc *funcCtx) lowerProgramBody(top []*lisp.Value) error {
	fc.emit("\tresult := lisp.Nil()\n")
	fc.emit("\tvar err error\n")
	for _, f := range top {
		v, err := fc.lowerExpr(f)
		if err != nil {
			return err
		}
		fc.emit("\tresult = %s\n", v)
	}
	fc.emit("\treturn result, err\n")
	return nil
}

// lowerExpr lowers form as an ordinary (non-tail) expression, emitting
// whatever statements it needs into fc.buf and returning a Go expression
// of type *lisp.Value for its result.
func (fc *funcCtx) lowerExpr(form *lisp.Value) (string, error) {
	if !lisp.IsCons(form) {
		return fc.lowerAtom(form)
	}
	op := lisp.Car(form)
	rest := lisp.Cdr(form)
	if op.Kind == lisp.KSymbol {
		switch op.Sym.Name {
		case "quote":
			return fc.gen.pool.varName(lisp.Car(rest)), nil
		case "lambda":
			return fc.lowerLambda(rest, nil)
		case "setq":
			return fc.lowerSetq(rest)
		case "define":
			return fc.lowerDefine(rest)
		case "defun":
			return fc.lowerDefun(rest)
		case "if":
			return fc.lowerIfExpr(rest)
		case "cond":
			return fc.lowerCondExpr(rest)
		case "progn":
			forms, _, ok := lisp.ListToSlice(rest)
			if !ok {
				return "", lisp.Errorf(lisp.MalformedForm, "progn body is not a proper list")
			}
			return fc.lowerBodyExpr(forms)
		case "let", "let*", "letrec":
			return fc.lowerLet(form)
		case "dynamic", "labels", "defmacro", "load", "require", "provide", "declaim":
			return fc.lowerEvalFallback(form)
		}
	}
	return fc.lowerCall(form)
}

func (fc *funcCtx) lowerAtom(form *lisp.Value) (string, error) {
	if lisp.IsNil(form) {
		return "lisp.Nil()", nil
	}
	if form.Kind == lisp.KSymbol {
		if form.Sym.Name == "t" {
			return fmt.Sprintf("lisp.Sym(%s.Runtime().Symbols.Intern(\"t\"))", fc.envVar), nil
		}
		return fc.emitFallible("%s.Get(%s.Runtime().Symbols.Intern(%q))", fc.envVar, fc.envVar, form.Sym.Name), nil
	}
	return fc.gen.pool.varName(form), nil
}

// lowerEvalFallback reconstructs form through the constant pool and defers
// to the tree-walking evaluator: used for the constructs whose semantics
// (dynamic scope restoration, mutual local recursion, file resolution) are
// already correct there and not worth re-deriving in generated code.
func (fc *funcCtx) lowerEvalFallback(form *lisp.Value) (string, error) {
	name := fc.gen.pool.varName(form)
	return fc.emitFallible("lisp.Eval(%s, %s)", fc.envVar, name), nil
}

func (fc *funcCtx) lowerBodyExpr(forms []*lisp.Value) (string, error) {
	if len(forms) == 0 {
		return "lisp.Nil()", nil
	}
	var last string
	for _, f := range forms {
		v, err := fc.lowerExpr(f)
		if err != nil {
			return "", err
		}
		last = v
	}
	return last, nil
}

func (fc *funcCtx) lowerSetq(rest *lisp.Value) (string, error) {
	elems, _, ok := lisp.ListToSlice(rest)
	if !ok || len(elems) != 2 || elems[0].Kind != lisp.KSymbol {
		return "", lisp.Errorf(lisp.MalformedForm, "setq expects (setq symbol value)")
	}
	v, err := fc.lowerExpr(elems[1])
	if err != nil {
		return "", err
	}
	fc.emit("\tif err := %s.Setq(%s.Runtime().Symbols.Intern(%q), %s); err != nil {\n\t\treturn nil, err\n\t}\n",
		fc.envVar, fc.envVar, elems[0].Sym.Name, v)
	return v, nil
}

func (fc *funcCtx) lowerDefine(rest *lisp.Value) (string, error) {
	elems, _, ok := lisp.ListToSlice(rest)
	if !ok || len(elems) != 2 || elems[0].Kind != lisp.KSymbol {
		return "", lisp.Errorf(lisp.MalformedForm, "define expects (define symbol value)")
	}
	v, err := fc.lowerExpr(elems[1])
	if err != nil {
		return "", err
	}
	fc.emit("\t%s.DefineGlobal(%s.Runtime().Symbols.Intern(%q), %s)\n", fc.envVar, fc.envVar, elems[0].Sym.Name, v)
	return fmt.Sprintf("lisp.Sym(%s.Runtime().Symbols.Intern(%q))", fc.envVar, elems[0].Sym.Name), nil
}

func (fc *funcCtx) lowerDefun(rest *lisp.Value) (string, error) {
	name := lisp.Car(rest)
	if name.Kind != lisp.KSymbol {
		return "", lisp.Errorf(lisp.MalformedForm, "defun expects a name symbol")
	}
	fnVar, err := fc.lowerLambda(lisp.Cdr(rest), name.Sym)
	if err != nil {
		return "", err
	}
	fc.emit("\t%s.DefineGlobal(%s.Runtime().Symbols.Intern(%q), %s)\n", fc.envVar, fc.envVar, name.Sym.Name, fnVar)
	return fmt.Sprintf("lisp.Sym(%s.Runtime().Symbols.Intern(%q))", fc.envVar, name.Sym.Name), nil
}

// lowerLambda compiles (formals . body) into a native Go closure wrapped
// as a lisp.Fun primitive. The closure ignores the caller-env parameter
// Apply passes it and instead closes over the Go variable holding its
// defining environment, the same lexical-capture contract makeClosure
// gives an interpreted closure via its Env field, achieved here through an
// ordinary Go closure instead. selfSym is non-nil for a named defun, which
// is the only shape formSelfTailCallExists/lowerTail ever trampoline.
func (fc *funcCtx) lowerLambda(rest *lisp.Value, selfSym *lisp.Symbol) (string, error) {
	formals := lisp.Car(rest)
	bodyForms, _, ok := lisp.ListToSlice(lisp.Cdr(rest))
	if !ok {
		return "", lisp.Errorf(lisp.MalformedForm, "lambda body is not a proper list")
	}
	formalsVar := fc.gen.pool.varName(formals)
	defEnvVar := fc.envVar
	label := "lambda"
	if selfSym != nil {
		label = selfSym.Name
	}

	needsLoop := selfSym != nil && bodySelfTailCallExists(selfSym, bodyForms)

	var sb bytes.Buffer
	sb.WriteString("func(_ *lisp.Env, argsList *lisp.Value) (*lisp.Value, error) {\n")
	sb.WriteString("\targs0, _, _ := lisp.ListToSlice(argsList)\n")

	child := &funcCtx{gen: fc.gen, buf: &sb, envVar: "callEnv"}
	if needsLoop {
		fmt.Fprintf(&sb, "\tpc := &pendingCall{args: args0}\n")
		sb.WriteString("\tfor {\n")
		fmt.Fprintf(&sb, "\t\tcallEnv, err := lisp.BindFormals(%s.Child(), %s, pc.args)\n", defEnvVar, formalsVar)
		sb.WriteString("\t\tif err != nil {\n\t\t\treturn nil, err\n\t\t}\n")
		child.selfName = selfSym
		if err := child.lowerTailBody(bodyForms); err != nil {
			return "", err
		}
		sb.WriteString("\t}\n")
	} else {
		fmt.Fprintf(&sb, "\tcallEnv, err := lisp.BindFormals(%s.Child(), %s, args0)\n", defEnvVar, formalsVar)
		sb.WriteString("\tif err != nil {\n\t\treturn nil, err\n\t}\n")
		if err := child.lowerTailBody(bodyForms); err != nil {
			return "", err
		}
	}
	sb.WriteString("}")

	fnGoName := fc.gen.newFuncName(label)
	fc.emit("\t%s := lisp.Fun(%q, %s)\n", fnGoName, label, sb.String())
	return fnGoName, nil
}

// lowerTailBody lowers all but the last form of a function/clause body for
// effect, then lowers the last form in tail position.
func (fc *funcCtx) lowerTailBody(bodyForms []*lisp.Value) error {
	if len(bodyForms) == 0 {
		fc.emit("\treturn lisp.Nil(), nil\n")
		return nil
	}
	for _, f := range bodyForms[:len(bodyForms)-1] {
		if _, err := fc.lowerExpr(f); err != nil {
			return err
		}
	}
	return fc.lowerTail(bodyForms[len(bodyForms)-1])
}

// lowerTail lowers form knowing its value is the enclosing Go function's
// return value: if/cond/progn recurse to find their own tail positions,
// a direct call to fc.selfName rebinds the pendingCall loop instead of
// calling through lisp.Apply, and anything else is an ordinary expression
// returned directly. This only ever sees genuine tail positions of a
// compiled defun body, never a let body or a non-tail sub-expression,
// because lowerExpr's own if/cond/progn/let handling never calls it.
func (fc *funcCtx) lowerTail(form *lisp.Value) error {
	if lisp.IsCons(form) && lisp.Car(form).Kind == lisp.KSymbol {
		op := lisp.Car(form)
		switch op.Sym.Name {
		case "if":
			return fc.lowerTailIf(lisp.Cdr(form))
		case "cond":
			return fc.lowerTailCond(lisp.Cdr(form))
		case "progn":
			forms, _, ok := lisp.ListToSlice(lisp.Cdr(form))
			if !ok {
				return lisp.Errorf(lisp.MalformedForm, "progn body is not a proper list")
			}
			return fc.lowerTailBody(forms)
		}
		if fc.selfName != nil && op.Sym == fc.selfName {
			argForms, _, ok := lisp.ListToSlice(lisp.Cdr(form))
			if ok {
				argVars := make([]string, len(argForms))
				for i, af := range argForms {
					v, err := fc.lowerExpr(af)
					if err != nil {
						return err
					}
					argVars[i] = v
				}
				fc.emit("\tpc = &pendingCall{args: []*lisp.Value{%s}}\n", strings.Join(argVars, ", "))
				fc.emit("\tcontinue\n")
				return nil
			}
		}
	}
	v, err := fc.lowerExpr(form)
	if err != nil {
		return err
	}
	fc.emit("\treturn %s, nil\n", v)
	return nil
}

func (fc *funcCtx) lowerTailIf(rest *lisp.Value) error {
	elems, _, ok := lisp.ListToSlice(rest)
	if !ok || len(elems) < 2 || len(elems) > 3 {
		return lisp.Errorf(lisp.MalformedForm, "if expects (if cond then [else])")
	}
	testVar, err := fc.lowerExpr(elems[0])
	if err != nil {
		return err
	}
	fc.emit("\tif !lisp.IsNil(%s) {\n", testVar)
	if err := fc.lowerTail(elems[1]); err != nil {
		return err
	}
	fc.emit("\t} else {\n")
	if len(elems) == 3 {
		if err := fc.lowerTail(elems[2]); err != nil {
			return err
		}
	} else {
		fc.emit("\treturn lisp.Nil(), nil\n")
	}
	fc.emit("\t}\n")
	return nil
}

func (fc *funcCtx) lowerTailCond(rest *lisp.Value) error {
	clauses, _, ok := lisp.ListToSlice(rest)
	if !ok {
		return lisp.Errorf(lisp.MalformedForm, "cond clauses are not a proper list")
	}
	return fc.lowerTailCondClauses(clauses)
}

func (fc *funcCtx) lowerTailCondClauses(clauses []*lisp.Value) error {
	if len(clauses) == 0 {
		fc.emit("\treturn lisp.Nil(), nil\n")
		return nil
	}
	parts, _, ok := lisp.ListToSlice(clauses[0])
	if !ok || len(parts) == 0 {
		return lisp.Errorf(lisp.MalformedForm, "cond clause must be (test . body)")
	}
	testVar, err := fc.lowerExpr(parts[0])
	if err != nil {
		return err
	}
	fc.emit("\tif !lisp.IsNil(%s) {\n", testVar)
	if len(parts) == 1 {
		fc.emit("\treturn %s, nil\n", testVar)
	} else {
		if err := fc.lowerTailBody(parts[1:]); err != nil {
			return err
		}
	}
	fc.emit("\t} else {\n")
	if err := fc.lowerTailCondClauses(clauses[1:]); err != nil {
		return err
	}
	fc.emit("\t}\n")
	return nil
}

func (fc *funcCtx) lowerIfExpr(rest *lisp.Value) (string, error) {
	elems, _, ok := lisp.ListToSlice(rest)
	if !ok || len(elems) < 2 || len(elems) > 3 {
		return "", lisp.Errorf(lisp.MalformedForm, "if expects (if cond then [else])")
	}
	testVar, err := fc.lowerExpr(elems[0])
	if err != nil {
		return "", err
	}
	resultVar := fc.gen.newTemp("r")
	fc.emit("\tvar %s *lisp.Value\n", resultVar)
	fc.emit("\tif !lisp.IsNil(%s) {\n", testVar)
	thenVar, err := fc.lowerExpr(elems[1])
	if err != nil {
		return "", err
	}
	fc.emit("\t%s = %s\n", resultVar, thenVar)
	fc.emit("\t} else {\n")
	if len(elems) == 3 {
		elseVar, err := fc.lowerExpr(elems[2])
		if err != nil {
			return "", err
		}
		fc.emit("\t%s = %s\n", resultVar, elseVar)
	} else {
		fc.emit("\t%s = lisp.Nil()\n", resultVar)
	}
	fc.emit("\t}\n")
	return resultVar, nil
}

func (fc *funcCtx) lowerCondExpr(rest *lisp.Value) (string, error) {
	clauses, _, ok := lisp.ListToSlice(rest)
	if !ok {
		return "", lisp.Errorf(lisp.MalformedForm, "cond clauses are not a proper list")
	}
	resultVar := fc.gen.newTemp("r")
	fc.emit("\tvar %s *lisp.Value = lisp.Nil()\n", resultVar)
	if err := fc.lowerCondClauses(clauses, resultVar); err != nil {
		return "", err
	}
	return resultVar, nil
}

func (fc *funcCtx) lowerCondClauses(clauses []*lisp.Value, resultVar string) error {
	if len(clauses) == 0 {
		return nil
	}
	parts, _, ok := lisp.ListToSlice(clauses[0])
	if !ok || len(parts) == 0 {
		return lisp.Errorf(lisp.MalformedForm, "cond clause must be (test . body)")
	}
	testVar, err := fc.lowerExpr(parts[0])
	if err != nil {
		return err
	}
	fc.emit("\tif !lisp.IsNil(%s) {\n", testVar)
	if len(parts) == 1 {
		fc.emit("\t%s = %s\n", resultVar, testVar)
	} else {
		bodyVar, err := fc.lowerBodyExpr(parts[1:])
		if err != nil {
			return err
		}
		fc.emit("\t%s = %s\n", resultVar, bodyVar)
	}
	fc.emit("\t} else {\n")
	if err := fc.lowerCondClauses(clauses[1:], resultVar); err != nil {
		return err
	}
	fc.emit("\t}\n")
	return nil
}

// lowerLet handles the plain (non-named, non-dynamic) let/let*/letrec
// family with real child Envs and Go-level sequencing; named let and
// `dynamic` bindings fall back to the evaluator, whose closure-based
// self-call setup and restore-after-body semantics are not worth
// re-deriving here.
func (fc *funcCtx) lowerLet(form *lisp.Value) (string, error) {
	op := lisp.Car(form)
	rest := lisp.Cdr(form)
	kind := op.Sym.Name

	first := lisp.Car(rest)
	if first.Kind == lisp.KSymbol && !lisp.IsNil(first) {
		return fc.lowerEvalFallback(form)
	}
	bindingsForm := first
	bodyForm := lisp.Cdr(rest)
	if bindingsForm.Kind == lisp.KSymbol && bindingsForm.Sym.Name == "dynamic" {
		return fc.lowerEvalFallback(form)
	}

	specs, _, ok := lisp.ListToSlice(bindingsForm)
	if !ok {
		return "", lisp.Errorf(lisp.MalformedForm, "let bindings must be a proper list")
	}
	type binding struct {
		name string
		expr *lisp.Value
	}
	parsed := make([]binding, len(specs))
	for i, s := range specs {
		name, expr, err := parseBindingSpecCodegen(s)
		if err != nil {
			return "", err
		}
		parsed[i] = binding{name, expr}
	}

	childEnv := fc.gen.newTemp("env")
	fc.emit("\t%s := %s.Child()\n", childEnv, fc.envVar)
	inner := &funcCtx{gen: fc.gen, buf: fc.buf, envVar: childEnv}

	switch kind {
	case "let":
		vals := make([]string, len(parsed))
		for i, p := range parsed {
			v, err := fc.lowerExpr(p.expr)
			if err != nil {
				return "", err
			}
			vals[i] = v
		}
		for i, p := range parsed {
			fc.emit("\t%s.Define(%s.Runtime().Symbols.Intern(%q), %s)\n", childEnv, childEnv, p.name, vals[i])
		}
	case "let*":
		for _, p := range parsed {
			v, err := inner.lowerExpr(p.expr)
			if err != nil {
				return "", err
			}
			fc.emit("\t%s.Define(%s.Runtime().Symbols.Intern(%q), %s)\n", childEnv, childEnv, p.name, v)
		}
	case "letrec":
		for _, p := range parsed {
			fc.emit("\t%s.Define(%s.Runtime().Symbols.Intern(%q), lisp.Nil())\n", childEnv, childEnv, p.name)
		}
		for _, p := range parsed {
			v, err := inner.lowerExpr(p.expr)
			if err != nil {
				return "", err
			}
			fc.emit("\tif err := %s.Setq(%s.Runtime().Symbols.Intern(%q), %s); err != nil {\n\t\treturn nil, err\n\t}\n",
				childEnv, childEnv, p.name, v)
		}
	}

	bodyForms, _, ok := lisp.ListToSlice(bodyForm)
	if !ok {
		return "", lisp.Errorf(lisp.MalformedForm, "let body is not a proper list")
	}
	return inner.lowerBodyExpr(bodyForms)
}

// lowerCall lowers an ordinary function call. A call to a name in
// openCodable is tried through lisp.OpenCode first, exactly mirroring
// Eval's own Speed>=1 dispatch, falling back to a real lookup and
// lisp.Apply when OpenCode declines (wrong argument shapes, wrong types).
// Everything else goes straight through lisp.Apply.
func (fc *funcCtx) lowerCall(form *lisp.Value) (string, error) {
	op := lisp.Car(form)
	argForms, _, ok := lisp.ListToSlice(lisp.Cdr(form))
	if !ok {
		return "", lisp.Errorf(lisp.MalformedForm, "call arguments are not a proper list")
	}
	argVars := make([]string, len(argForms))
	for i, af := range argForms {
		v, err := fc.lowerExpr(af)
		if err != nil {
			return "", err
		}
		argVars[i] = v
	}
	argsVar := fc.gen.newTemp("args")
	fc.emit("\t%s := []*lisp.Value{%s}\n", argsVar, strings.Join(argVars, ", "))

	if op.Kind == lisp.KSymbol && openCodable[op.Sym.Name] && fc.gen.speed >= 1 {
		resVar := fc.gen.newTemp("oc")
		handledVar := fc.gen.newTemp("h")
		fc.emit("\t%s, %s, err := lisp.OpenCode(%q, %s)\n", resVar, handledVar, op.Sym.Name, argsVar)
		fc.emit("\tif err != nil {\n\t\treturn nil, err\n\t}\n")
		fc.emit("\tif !%s {\n", handledVar)
		fnVar := fc.emitFallible("%s.Get(%s.Runtime().Symbols.Intern(%q))", fc.envVar, fc.envVar, op.Sym.Name)
		callVar := fc.emitFallible("lisp.Apply(%s, %s, %s)", fc.envVar, fnVar, argsVar)
		fc.emit("\t%s = %s\n", resVar, callVar)
		fc.emit("\t}\n")
		return resVar, nil
	}

	fnVar, err := fc.lowerExpr(op)
	if err != nil {
		return "", err
	}
	return fc.emitFallible("lisp.Apply(%s, %s, %s)", fc.envVar, fnVar, argsVar), nil
}

// bodySelfTailCallExists and formSelfTailCallExists mirror lowerTail's own
// if/cond/progn traversal exactly (both recurse into the same three forms
// and nothing else), so the decision to wrap a compiled defun in a
// pendingCall driver loop always matches whether lowerTail actually emits
// a pendingCall assignment somewhere in that body.
func bodySelfTailCallExists(self *lisp.Symbol, bodyForms []*lisp.Value) bool {
	if len(bodyForms) == 0 {
		return false
	}
	return formSelfTailCallExists(self, bodyForms[len(bodyForms)-1])
}

func formSelfTailCallExists(self *lisp.Symbol, form *lisp.Value) bool {
	if !lisp.IsCons(form) || lisp.Car(form).Kind != lisp.KSymbol {
		return false
	}
	op := lisp.Car(form)
	switch op.Sym.Name {
	case "if":
		elems, _, ok := lisp.ListToSlice(lisp.Cdr(form))
		if !ok {
			return false
		}
		for _, e := range elems[1:] {
			if formSelfTailCallExists(self, e) {
				return true
			}
		}
		return false
	case "cond":
		clauses, _, ok := lisp.ListToSlice(lisp.Cdr(form))
		if !ok {
			return false
		}
		for _, c := range clauses {
			parts, _, ok := lisp.ListToSlice(c)
			if !ok || len(parts) < 2 {
				continue
			}
			last := parts[len(parts)-1]
			if formSelfTailCallExists(self, last) {
				return true
			}
		}
		return false
	case "progn":
		forms, _, ok := lisp.ListToSlice(lisp.Cdr(form))
		if !ok || len(forms) == 0 {
			return false
		}
		return formSelfTailCallExists(self, forms[len(forms)-1])
	default:
		return op.Sym == self
	}
}

// reintern copies form with every symbol re-interned by name into symtab,
// so forms read against another symbol table dispatch on the compile Env's
// reserved words and macro table.
func reintern(symtab *lisp.SymbolTable, form *lisp.Value) *lisp.Value {
	switch form.Kind {
	case lisp.KSymbol:
		return lisp.Sym(symtab.Intern(form.Sym.Name))
	case lisp.KCons:
		return lisp.Cons(reintern(symtab, form.Car), reintern(symtab, form.Cdr))
	}
	return form
}
