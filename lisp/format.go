package lisp

import (
	"strconv"
	"strings"
)

// formatBuiltin implements format and format-locale. Both share everything
// but the extra locale-designator argument that format-locale takes right
// after the destination; the locale itself only affects directives this
// implementation doesn't support (~D grouping separators and the like), so
// it is accepted and otherwise ignored.
//
// destination nil returns the formatted text as a string; t writes it to
// standard output. Any other destination would mean writing through a
// stream object, which this interpreter has no representation for, so it
// is a type error rather than a silent no-op.
func formatBuiltin(env *Env, args *Value, locale bool) (*Value, error) {
	a := argSlice(args)
	minArgs := 2
	if locale {
		minArgs = 3
	}
	if err := wantArityRange("format", a, minArgs, -1); err != nil {
		return nil, err
	}
	dest := a[0]
	i := 1
	if locale {
		i++ // skip the locale designator
	}
	control := a[i]
	if control.Kind != KString {
		return nil, Errorf(TypeError, "format: control string must be a string")
	}
	rest := a[i+1:]

	out, err := runFormat(control.Str, rest)
	if err != nil {
		return nil, err
	}

	if IsNil(dest) {
		return Str(out), nil
	}
	if dest.Kind == KSymbol && dest.Sym == env.rt.reserved.t {
		if _, err := env.rt.Stdout.Write([]byte(out)); err != nil {
			return nil, Errorf(IOError, "format: %v", err)
		}
		return Nil(), nil
	}
	return nil, Errorf(TypeError, "format: unsupported destination: %s", dest.String())
}

// runFormat expands a Common-Lisp-style control string against args,
// supporting the directives worth having without a full format
// mini-language: ~a (princ), ~s (write), ~d (decimal integer), ~% (newline),
// ~& (fresh-line, treated as ~% since there is no column tracking) and ~~
// (literal tilde).
func runFormat(control string, args []*Value) (string, error) {
	var sb strings.Builder
	next := 0
	take := func() (*Value, error) {
		if next >= len(args) {
			return nil, Errorf(ArityError, "format: too few arguments for control string")
		}
		v := args[next]
		next++
		return v, nil
	}

	runes := []rune(control)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		if c != '~' {
			sb.WriteRune(c)
			continue
		}
		i++
		if i >= len(runes) {
			return "", Errorf(MalformedForm, "format: control string ends with ~")
		}
		switch runes[i] {
		case 'a', 'A':
			v, err := take()
			if err != nil {
				return "", err
			}
			writeValue(&sb, v, false, map[*Value]bool{})
		case 's', 'S':
			v, err := take()
			if err != nil {
				return "", err
			}
			writeValue(&sb, v, true, map[*Value]bool{})
		case 'd', 'D':
			v, err := take()
			if err != nil {
				return "", err
			}
			if v.Kind != KLong {
				return "", Errorf(TypeError, "format: ~d expects an integer, got %s", v.String())
			}
			sb.WriteString(strconv.FormatInt(v.Long, 10))
		case '%':
			sb.WriteByte('\n')
		case '&':
			sb.WriteByte('\n')
		case '~':
			sb.WriteByte('~')
		default:
			return "", Errorf(MalformedForm, "format: unsupported directive ~%c", runes[i])
		}
	}
	return sb.String(), nil
}
