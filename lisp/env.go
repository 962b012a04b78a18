package lisp

import (
	"bufio"
	"io"
	"os"
)

// Runtime holds the process-wide, single-threaded mutable state shared by
// every Env descended from the same root: the symbol table, the macro
// table, the required-module set, feature list, optimization level and
// I/O streams.
type Runtime struct {
	Symbols *SymbolTable
	Stack   *CallStack

	Macros  map[*Symbol]*Value // symbol -> closure, installed by defmacro
	Modules map[*Symbol]bool   // names satisfied by provide
	Traced  map[*Symbol]bool   // functions currently traced

	Features map[string]bool
	Speed    int // set by (declaim (optimize (speed n))); 0 disables open-coding

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	LibDir      string // consulted after a load's sibling directory
	currentDir  string // directory of the file currently being loaded, if any

	// stdinScanner wraps Stdin lazily and is reused across successive
	// calls to read, so a form spanning several underlying Read calls
	// doesn't lose bytes buffered past its end to a discarded wrapper.
	stdinScanner io.RuneScanner

	gensymCounter int

	// reserved symbol identities, cached so eval.go can dispatch by pointer
	// identity instead of string-comparing special-form names.
	reserved reservedSymbols

	// apply/funcall/eval primitive identities, cached so eval.go's call
	// dispatch can unwrap a redirect through one of them by pointer
	// identity and loop instead of recursing through Apply.
	applyPrim, funcallPrim, evalPrim *Primitive
}

type reservedSymbols struct {
	quote, lambda, dynamic, setq, define, defun, defmacro           *Symbol
	ifs, cond, progn, labels, let, letSeq, letrec                   *Symbol
	load, require, provide, declaim, t, nilSym, unassigned, ampersa *Symbol
}

func newReservedSymbols(t *SymbolTable) reservedSymbols {
	return reservedSymbols{
		quote: t.Intern("quote"), lambda: t.Intern("lambda"), dynamic: t.Intern("dynamic"),
		setq: t.Intern("setq"), define: t.Intern("define"), defun: t.Intern("defun"),
		defmacro: t.Intern("defmacro"), ifs: t.Intern("if"), cond: t.Intern("cond"),
		progn: t.Intern("progn"), labels: t.Intern("labels"), let: t.Intern("let"),
		letSeq: t.Intern("let*"), letrec: t.Intern("letrec"), load: t.Intern("load"),
		require: t.Intern("require"), provide: t.Intern("provide"), declaim: t.Intern("declaim"),
		t: t.Intern("t"), nilSym: t.Intern("nil"), unassigned: t.Intern("%unassigned%"),
		ampersa: t.Intern("&"),
	}
}

// Env is a lexical environment: an association list of local bindings plus
// a parent pointer, in preference to flat per-frame slot arrays. Bindings
// are themselves mutable Cons pairs so Setq can mutate an existing cell's
// cdr in place.
type Env struct {
	Head   *Value // alist of (symbol . value) Cons pairs, front-inserted
	Parent *Env
	rt     *Runtime
}

// NewGlobalEnv returns a fresh root Env with its own Runtime state.
func NewGlobalEnv(symtab *SymbolTable) *Env {
	if symtab == nil {
		symtab = NewSymbolTable()
	}
	rt := &Runtime{
		Symbols:  symtab,
		Stack:    &CallStack{},
		Macros:   make(map[*Symbol]*Value),
		Modules:  make(map[*Symbol]bool),
		Traced:   make(map[*Symbol]bool),
		Features: defaultFeatures(),
		Speed:    1,
		Stdin:    os.Stdin,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		reserved: newReservedSymbols(symtab),
	}
	root := &Env{Head: Nil(), rt: rt}
	InstallBuiltins(root)
	InstallNumeric(root)
	InstallStrings(root)
	InstallTime(root)
	if v, err := root.Get(symtab.Intern("apply")); err == nil {
		rt.applyPrim = v.Prim
	}
	if v, err := root.Get(symtab.Intern("funcall")); err == nil {
		rt.funcallPrim = v.Prim
	}
	if v, err := root.Get(symtab.Intern("eval")); err == nil {
		rt.evalPrim = v.Prim
	}
	return root
}

func defaultFeatures() map[string]bool {
	return map[string]bool{
		"murmel": true, "murmel-1.0": true, "jmurmel": true,
		"ieee-floating-point": true,
	}
}

// Child returns a new Env nested inside env, sharing its Runtime.
func (env *Env) Child() *Env {
	return &Env{Head: Nil(), Parent: env, rt: env.rt}
}

// Runtime returns the shared process state for env's family tree.
func (env *Env) Runtime() *Runtime { return env.rt }

func (env *Env) root() *Env {
	for env.Parent != nil {
		env = env.Parent
	}
	return env
}

// findCell returns the (symbol . value) pair cell bound to sym in env or
// any ancestor, walking front-to-back so the most recent binding shadows
// older ones.
func (env *Env) findCell(sym *Symbol) *Value {
	for e := env; e != nil; e = e.Parent {
		for pair := e.Head; IsCons(pair); pair = Cdr(pair) {
			cell := Car(pair)
			if cell.Car.Sym == sym {
				return cell
			}
		}
	}
	return nil
}

// Get looks up sym, returning an Unbound error if it is not bound or is
// still the letrec "unassigned" sentinel.
func (env *Env) Get(sym *Symbol) (*Value, error) {
	if sym == env.rt.reserved.t {
		return Sym(sym), nil
	}
	if sym == env.rt.reserved.nilSym {
		return Nil(), nil
	}
	cell := env.findCell(sym)
	if cell == nil {
		return nil, Errorf(Unbound, "unbound symbol: %s", sym.Name)
	}
	if cell.Cdr.Kind == KSymbol && cell.Cdr.Sym == env.rt.reserved.unassigned {
		return nil, Errorf(Unbound, "symbol used before its letrec binding is initialized: %s", sym.Name)
	}
	return cell.Cdr, nil
}

// Define binds sym to val in env's local frame, front-inserting. Redefining
// an existing local binding shadows it with a new pair rather than
// mutating the old one.
func (env *Env) Define(sym *Symbol, val *Value) {
	pair := Cons(Sym(sym), val)
	env.Head = Cons(pair, env.Head)
}

// DefineGlobal binds sym in the root Env of env's family, mutating an
// existing global binding in place if one exists, matching `define`.
func (env *Env) DefineGlobal(sym *Symbol, val *Value) {
	root := env.root()
	for pair := root.Head; IsCons(pair); pair = Cdr(pair) {
		cell := Car(pair)
		if cell.Car.Sym == sym {
			cell.Cdr = val
			return
		}
	}
	root.Define(sym, val)
}

// Setq mutates the value cell of an existing binding for sym, searching env
// and its ancestors. It returns an Unbound error if sym is not bound
// anywhere.
func (env *Env) Setq(sym *Symbol, val *Value) error {
	cell := env.findCell(sym)
	if cell == nil {
		return Errorf(Unbound, "unbound symbol: %s", sym.Name)
	}
	cell.Cdr = val
	return nil
}

// stdinRuneScanner returns the io.RuneScanner the read primitive parses
// from, wrapping Stdin in a buffered reader the first time it's needed and
// reusing that same wrapper on every later call so a saved-but-unread
// lookahead byte isn't dropped between successive reads.
func (rt *Runtime) stdinRuneScanner() io.RuneScanner {
	if rt.stdinScanner != nil {
		return rt.stdinScanner
	}
	if rs, ok := rt.Stdin.(io.RuneScanner); ok {
		rt.stdinScanner = rs
	} else {
		rt.stdinScanner = bufio.NewReader(rt.Stdin)
	}
	return rt.stdinScanner
}

// BindDynamic mutates the global cell for sym (creating it if absent) and
// returns an unwind function that restores its previous value. Used by
// `let dynamic`/`let* dynamic`.
func (env *Env) BindDynamic(sym *Symbol, val *Value) (restore func()) {
	root := env.root()
	cell := root.findCell(sym)
	if cell == nil {
		root.Define(sym, val)
		newCell := root.findCell(sym)
		return func() {
			// Best-effort removal: replace with the unassigned sentinel
			// rather than physically unlinking, since other frames may
			// hold a reference to the pair list.
			newCell.Cdr = Sym(root.rt.reserved.unassigned)
		}
	}
	old := cell.Cdr
	cell.Cdr = val
	return func() { cell.Cdr = old }
}
