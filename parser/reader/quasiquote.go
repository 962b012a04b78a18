package reader

import "github.com/cagix/jmurmel/lisp"

// qqExpand implements Bawden-style quasiquote expansion at read time: a
// quasiquoted form is rewritten into an equivalent cons/append/list
// expression with no remaining backquote syntax, so the evaluator never
// needs to know quasiquote exists. Grounded on the classic algorithm from
// Alan Bawden's "Quasiquotation in Lisp", adapted to intern its helper
// symbols (quote, cons, append, list) through the active SymbolTable.
func qqExpand(symtab *lisp.SymbolTable, form *lisp.Value) *lisp.Value {
	if !lisp.IsCons(form) {
		return quoteForm(symtab, form)
	}
	head := lisp.Car(form)
	if head.Kind == lisp.KSymbol {
		switch head.Sym.Name {
		case "unquote":
			return lisp.Car(lisp.Cdr(form))
		case "unquote-splicing":
			// A bare ,@x at the top of a backquoted form (not inside a
			// list) has no defined splice target; treat it as ,x.
			return lisp.Car(lisp.Cdr(form))
		}
	}
	return qqExpandList(symtab, form)
}

// qqExpandList expands the elements of a quasiquoted list, producing a form
// built from cons/append/list calls that reconstructs the list at
// evaluation time, honoring nested unquote and unquote-splicing.
func qqExpandList(symtab *lisp.SymbolTable, form *lisp.Value) *lisp.Value {
	if !lisp.IsCons(form) {
		return quoteForm(symtab, form)
	}
	head := lisp.Car(form)
	if head.Kind == lisp.KSymbol && head.Sym.Name == "unquote" {
		return lisp.Car(lisp.Cdr(form))
	}
	if head.Kind == lisp.KSymbol && head.Sym.Name == "unquote-splicing" {
		return lisp.Car(lisp.Cdr(form))
	}

	carExpanded := qqExpandCar(symtab, head)
	cdrExpanded := qqExpandList(symtab, lisp.Cdr(form))

	if isUnquoteSplicing(head) {
		return optimizedAppend(symtab, carExpanded, cdrExpanded)
	}
	return optimizedCons(symtab, carExpanded, cdrExpanded)
}

func qqExpandCar(symtab *lisp.SymbolTable, elem *lisp.Value) *lisp.Value {
	if isUnquoteSplicing(elem) {
		return lisp.Car(lisp.Cdr(elem))
	}
	return qqExpand(symtab, elem)
}

func isUnquoteSplicing(v *lisp.Value) bool {
	if !lisp.IsCons(v) {
		return false
	}
	h := lisp.Car(v)
	return h.Kind == lisp.KSymbol && h.Sym.Name == "unquote-splicing"
}

func quoteForm(symtab *lisp.SymbolTable, v *lisp.Value) *lisp.Value {
	if lisp.IsNil(v) || v.Kind == lisp.KLong || v.Kind == lisp.KDouble ||
		v.Kind == lisp.KString || v.Kind == lisp.KChar {
		return v
	}
	return lisp.List(lisp.Sym(symtab.Intern("quote")), v)
}

// optimizedCons builds (cons a d), collapsing to a plain quoted literal
// when both operands are themselves quoted, folding constant subexpressions
// at expansion time instead of at runtime.
func optimizedCons(symtab *lisp.SymbolTable, a, d *lisp.Value) *lisp.Value {
	if lit, ok := asQuotedLiteral(symtab, a); ok {
		if litD, ok := asQuotedLiteral(symtab, d); ok {
			return quoteForm(symtab, lisp.Cons(lit, litD))
		}
	}
	return lisp.List(lisp.Sym(symtab.Intern("cons")), a, d)
}

// optimizedAppend builds (append a d), collapsing away a nil tail so
// (,@x) expands to x rather than (append x nil).
func optimizedAppend(symtab *lisp.SymbolTable, a, d *lisp.Value) *lisp.Value {
	if lisp.IsNil(d) {
		return a
	}
	return lisp.List(lisp.Sym(symtab.Intern("append")), a, d)
}

func asQuotedLiteral(symtab *lisp.SymbolTable, v *lisp.Value) (*lisp.Value, bool) {
	if lisp.IsNil(v) || v.Kind == lisp.KLong || v.Kind == lisp.KDouble ||
		v.Kind == lisp.KString || v.Kind == lisp.KChar {
		return v, true
	}
	if lisp.IsCons(v) {
		h := lisp.Car(v)
		if h.Kind == lisp.KSymbol && h.Sym.Name == "quote" {
			return lisp.Car(lisp.Cdr(v)), true
		}
	}
	return nil, false
}
