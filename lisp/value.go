package lisp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cagix/jmurmel/parser/token"
)

// Kind identifies the tag of a Value's sum type.
type Kind uint8

const (
	KNil Kind = iota
	KSymbol
	KLong
	KDouble
	KChar
	KString
	KCons
	KPrimitive
	KArraySlice
)

var kindNames = [...]string{
	KNil: "nil", KSymbol: "symbol", KLong: "integer", KDouble: "float",
	KChar: "character", KString: "string", KCons: "cons",
	KPrimitive: "primitive", KArraySlice: "array-slice",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

// PrimFunc is a built-in callable. It receives the already-evaluated
// argument list. Eval forwards calls to apply, funcall and eval itself
// without invoking their PrimFunc.
type PrimFunc func(env *Env, args *Value) (*Value, error)

// Primitive is a named built-in function value.
type Primitive struct {
	Name string
	Fn   PrimFunc
}

// arraySlice is a view over a contiguous slice of Values presented as a
// list without copying.
type arraySlice struct {
	elems []*Value
	off   int
}

// Value is a Murmel S-expression value: a tagged union of the kinds Kind
// enumerates.
type Value struct {
	Kind Kind

	Sym    *Symbol
	Long   int64
	Double float64
	Char   rune
	Str    string

	Car, Cdr *Value

	// Env is non-nil only when this Cons is a closure: Car is the
	// reserved lambda symbol and Env is the environment captured at
	// construction (nil for a dynamic-scoped lambda).
	Env *Env

	Prim *Primitive

	arr *arraySlice

	// Pos carries optional reader source-position metadata. Equality and
	// structural operations ignore it.
	Pos *token.Position
}

var sharedNil = &Value{Kind: KNil}

// Nil returns the canonical empty-list/false value.
func Nil() *Value { return sharedNil }

// IsNil reports whether v is the empty list / false value.
func IsNil(v *Value) bool { return v == nil || v.Kind == KNil }

// Long returns an integer value.
func Long(n int64) *Value { return &Value{Kind: KLong, Long: n} }

// Double returns a floating point value.
func Double(f float64) *Value { return &Value{Kind: KDouble, Double: f} }

// Char returns a character value.
func Char(r rune) *Value { return &Value{Kind: KChar, Char: r} }

// Str returns an immutable string value.
func Str(s string) *Value { return &Value{Kind: KString, Str: s} }

// Sym returns a symbol value wrapping sym.
func Sym(sym *Symbol) *Value { return &Value{Kind: KSymbol, Sym: sym} }

// Cons returns a new pair (car . cdr).
func Cons(car, cdr *Value) *Value {
	if car == nil {
		car = Nil()
	}
	if cdr == nil {
		cdr = Nil()
	}
	return &Value{Kind: KCons, Car: car, Cdr: cdr}
}

// Fun returns a primitive function value.
func Fun(name string, fn PrimFunc) *Value {
	return &Value{Kind: KPrimitive, Prim: &Primitive{Name: name, Fn: fn}}
}

// List builds a proper list from the given values.
func List(vs ...*Value) *Value {
	out := Nil()
	for i := len(vs) - 1; i >= 0; i-- {
		out = Cons(vs[i], out)
	}
	return out
}

// ListStar builds a list whose final Cdr is last instead of Nil, i.e. a
// "list*"/dotted list.
func ListStar(last *Value, vs ...*Value) *Value {
	out := last
	for i := len(vs) - 1; i >= 0; i-- {
		out = Cons(vs[i], out)
	}
	return out
}

// NewArraySlice presents elems[off:] as a list value without copying.
func NewArraySlice(elems []*Value, off int) *Value {
	if off >= len(elems) {
		return Nil()
	}
	return &Value{Kind: KArraySlice, arr: &arraySlice{elems: elems, off: off}}
}

// Car returns the head of v: nil for a non-pair, the first element for
// Cons/ArraySlice values.
func Car(v *Value) *Value {
	if v == nil {
		return Nil()
	}
	switch v.Kind {
	case KCons:
		return v.Car
	case KArraySlice:
		if v.arr.off >= len(v.arr.elems) {
			return Nil()
		}
		return v.arr.elems[v.arr.off]
	default:
		return Nil()
	}
}

// Cdr returns the tail of v.
func Cdr(v *Value) *Value {
	if v == nil {
		return Nil()
	}
	switch v.Kind {
	case KCons:
		return v.Cdr
	case KArraySlice:
		if v.arr.off+1 >= len(v.arr.elems) {
			return Nil()
		}
		return &Value{Kind: KArraySlice, arr: &arraySlice{elems: v.arr.elems, off: v.arr.off + 1}}
	default:
		return Nil()
	}
}

// IsCons reports whether v is a Cons pair (a non-empty list cell).
func IsCons(v *Value) bool { return v != nil && (v.Kind == KCons || v.Kind == KArraySlice) }

// IsClosure reports whether v is a lambda closure: a Cons whose Car is the
// reserved lambda symbol carrying a captured (possibly nil, for dynamic
// scope) environment.
func IsClosure(v *Value, lambdaSym *Symbol) bool {
	return v != nil && v.Kind == KCons && v.Car != nil &&
		v.Car.Kind == KSymbol && v.Car.Sym == lambdaSym
}

// ListToSlice collects the elements of a proper or dotted list. ok is false
// if the list is dotted (terminated by a non-nil non-cons value); tail
// holds that terminator.
func ListToSlice(v *Value) (elems []*Value, tail *Value, ok bool) {
	seen := map[*Value]bool{}
	for IsCons(v) {
		if v.Kind == KCons && seen[v] {
			return elems, v, false
		}
		if v.Kind == KCons {
			seen[v] = true
		}
		elems = append(elems, Car(v))
		v = Cdr(v)
	}
	if IsNil(v) {
		return elems, Nil(), true
	}
	return elems, v, false
}

// ListLen returns the length of the proper list v, or -1 if v is not a
// proper list.
func ListLen(v *Value) int {
	n := 0
	seen := map[*Value]bool{}
	for IsCons(v) {
		if v.Kind == KCons {
			if seen[v] {
				return -1
			}
			seen[v] = true
		}
		n++
		v = Cdr(v)
	}
	if !IsNil(v) {
		return -1
	}
	return n
}

// Eq is reference identity, extended with value identity for Nil and
// interned symbols.
func Eq(a, b *Value) bool {
	if a == b {
		return true
	}
	if IsNil(a) && IsNil(b) {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.Kind == KSymbol && b.Kind == KSymbol {
		return a.Sym == b.Sym
	}
	return false
}

// Eql is Eq, plus value equality for same-tagged numbers and characters
//.
func Eql(a, b *Value) bool {
	if Eq(a, b) {
		return true
	}
	if a == nil || b == nil || a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KLong:
		return a.Long == b.Long
	case KDouble:
		return a.Double == b.Double
	case KChar:
		return a.Char == b.Char
	default:
		return false
	}
}

// Equal is structural recursion over conses plus Eql at leaves and string
// content equality.
func Equal(a, b *Value) bool {
	if Eql(a, b) {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.Kind == KString && b.Kind == KString {
		return a.Str == b.Str
	}
	if IsCons(a) && IsCons(b) {
		return Equal(Car(a), Car(b)) && Equal(Cdr(a), Cdr(b))
	}
	return false
}

// String renders v using escape syntax sufficient for a reader round trip:
// re-reading the output must reproduce an Equal value.
func (v *Value) String() string {
	var sb strings.Builder
	writeValue(&sb, v, true, map[*Value]bool{})
	return sb.String()
}

func writeValue(sb *strings.Builder, v *Value, escape bool, onPath map[*Value]bool) {
	if v == nil || v.Kind == KNil {
		sb.WriteString("nil")
		return
	}
	switch v.Kind {
	case KSymbol:
		writeSymbol(sb, v.Sym.Name, escape)
	case KLong:
		sb.WriteString(strconv.FormatInt(v.Long, 10))
	case KDouble:
		sb.WriteString(formatDouble(v.Double))
	case KChar:
		sb.WriteString(formatChar(v.Char))
	case KString:
		if escape {
			sb.WriteString(strconv.Quote(v.Str))
		} else {
			sb.WriteString(v.Str)
		}
	case KPrimitive:
		fmt.Fprintf(sb, "#<primitive %s>", v.Prim.Name)
	case KCons, KArraySlice:
		writeList(sb, v, escape, onPath)
	default:
		fmt.Fprintf(sb, "#<%s>", v.Kind)
	}
}

func writeList(sb *strings.Builder, v *Value, escape bool, onPath map[*Value]bool) {
	if onPath[v] {
		sb.WriteString("#<circular-list>")
		return
	}
	onPath[v] = true
	defer delete(onPath, v)
	sb.WriteByte('(')
	first := true
	for IsCons(v) {
		if !first {
			sb.WriteByte(' ')
		}
		first = false
		writeValue(sb, Car(v), escape, onPath)
		next := Cdr(v)
		if next != nil && next.Kind == KCons && onPath[next] {
			sb.WriteString(" . #<circular-list>")
			v = Nil()
			break
		}
		v = next
	}
	if !IsNil(v) {
		sb.WriteString(" . ")
		writeValue(sb, v, escape, onPath)
	}
	sb.WriteByte(')')
}

func formatDouble(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func writeSymbol(sb *strings.Builder, name string, escape bool) {
	if !escape || (name != "" && !needsSymbolEscape(name)) {
		sb.WriteString(name)
		return
	}
	sb.WriteByte('|')
	for _, r := range name {
		if r == '|' || r == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	sb.WriteByte('|')
}

func needsSymbolEscape(name string) bool {
	if name == "" {
		return true
	}
	for _, r := range name {
		switch r {
		case ' ', '\t', '\n', '(', ')', '\'', '`', ',', '"', ';', '|', '#', '\\':
			return true
		}
	}
	return false
}

var namedControlChars = map[rune]string{
	0: "Nul", 7: "Bel", 8: "Backspace", 9: "Tab", 10: "Newline",
	12: "Page", 13: "Return", 27: "Escape", 32: "Space", 127: "Rubout",
}

func formatChar(r rune) string {
	if name, ok := namedControlChars[r]; ok {
		return "#\\" + name
	}
	return "#\\" + string(r)
}
