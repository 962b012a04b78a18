package lisp

// Interpreter is the embedder entry point: a host program that wants to
// evaluate Murmel source, read a global's value, or call a Murmel function
// from Go builds one of these instead of poking at an Env directly.
type Interpreter struct {
	env *Env
}

// NewInterpreter builds an Interpreter over a fresh global Env, applying
// opts the same way NewInterpreterEnv does.
func NewInterpreter(opts ...Option) *Interpreter {
	return &Interpreter{env: NewInterpreterEnv(opts...)}
}

// Env exposes the interpreter's underlying environment for callers that
// need lower-level access (installing extra primitives, inspecting the
// call stack) than the embedder API offers.
func (in *Interpreter) Env() *Env { return in.env }

// InterpretExpression reads src as a sequence of top-level forms and
// evaluates them in order, returning the value of the last one. An error
// from parsing or evaluating any form propagates immediately; src is not a
// file, so load/require's sibling-directory resolution does not apply.
func (in *Interpreter) InterpretExpression(src string) (*Value, error) {
	if ParseExpression == nil {
		return nil, Errorf(Internal, "no reader installed: call reader.Install() before InterpretExpression")
	}
	forms, err := ParseExpression(in.env, src)
	if err != nil {
		return nil, err
	}
	var res *Value = Nil()
	for _, f := range forms {
		res, err = Eval(in.env, f)
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}

// GetValue returns the current value bound to the global symbol name, or
// an Unbound error if nothing is bound under that name.
func (in *Interpreter) GetValue(name string) (*Value, error) {
	sym := in.env.rt.Symbols.Intern(name)
	return in.env.Get(sym)
}

// GetFunction returns a callable adapter over the primitive or closure
// bound to name. The adapter closes over the interpreter's Env, so it is
// only valid as long as that binding is not redefined out from under it.
func (in *Interpreter) GetFunction(name string) (func([]*Value) (*Value, error), error) {
	sym := in.env.rt.Symbols.Intern(name)
	fn, err := in.env.Get(sym)
	if err != nil {
		return nil, err
	}
	if fn.Kind != KPrimitive && !IsClosure(fn, in.env.rt.reserved.lambda) {
		return nil, Errorf(TypeError, "not a function: %s", name)
	}
	return func(args []*Value) (*Value, error) {
		return Apply(in.env, fn, args)
	}, nil
}
