// Package lexer tokenizes Murmel source text one rune at a time, scanning
// directly over an io.RuneScanner rather than a custom byte-buffer type.
package lexer

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/cagix/jmurmel/parser/token"
)

const symbolRunes = "+-*/=<>!&~%?$_^:."

// controlNames maps the #\ named control characters onto their code points.
// Grounded on the original Murmel CharSyntax table.
var controlNames = map[string]rune{
	"nul": 0, "soh": 1, "stx": 2, "etx": 3, "eot": 4, "enq": 5, "ack": 6,
	"bel": 7, "backspace": 8, "tab": 9, "newline": 10, "linefeed": 10,
	"vt": 11, "ff": 12, "page": 12, "return": 13, "so": 14, "si": 15,
	"dle": 16, "dc1": 17, "dc2": 18, "dc3": 19, "dc4": 20, "nak": 21,
	"syn": 22, "etb": 23, "can": 24, "em": 25, "sub": 26, "escape": 27,
	"esc": 27, "fs": 28, "gs": 29, "rs": 30, "us": 31, "space": 32,
	"rubout": 127, "delete": 127,
}

// Lexer scans a rune stream into Murmel tokens.
type Lexer struct {
	src  io.RuneScanner
	file string

	line, col int

	err error
}

// New returns a Lexer reading from src, attributing positions to file.
func New(file string, src io.RuneScanner) *Lexer {
	return &Lexer{src: src, file: file, line: 1, col: 0}
}

func (lx *Lexer) pos() token.Position {
	return token.Position{File: lx.file, Line: lx.line, Col: lx.col}
}

// readRune returns the next rune, or -1 at EOF, tracking line/column
// position for diagnostics.
func (lx *Lexer) readRune() (rune, error) {
	r, _, err := lx.src.ReadRune()
	if err == io.EOF {
		return -1, nil
	}
	if err != nil {
		return 0, err
	}
	if r == '\n' {
		lx.line++
		lx.col = 0
	} else {
		lx.col++
	}
	return r, nil
}

func (lx *Lexer) unreadRune() {
	lx.src.UnreadRune()
	if lx.col > 0 {
		lx.col--
	}
}

func isWhitespace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r' || r == '\n'
}

func isDelim(r rune) bool {
	return r == -1 || isWhitespace(r) || r == '(' || r == ')' || r == '\'' ||
		r == '`' || r == ',' || r == '"' || r == ';' || r == '|'
}

func isSymbolRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(symbolRunes, r)
}

func (lx *Lexer) errorf(pos token.Position, format string, args ...interface{}) *token.Token {
	return &token.Token{Type: token.ERROR, Text: fmt.Sprintf(format, args...), Pos: pos}
}

// Next scans and returns the next token from the input, skipping whitespace
// and comments.
func (lx *Lexer) Next() *token.Token {
	for {
		r, err := lx.readRune()
		if err != nil {
			return lx.errorf(lx.pos(), "read error: %v", err)
		}
		if r == -1 {
			return &token.Token{Type: token.EOF, Pos: lx.pos()}
		}
		if isWhitespace(r) {
			continue
		}
		if r == ';' {
			lx.skipLineComment()
			continue
		}
		start := lx.pos()
		switch r {
		case '(':
			return &token.Token{Type: token.LP, Text: "(", Pos: start}
		case ')':
			return &token.Token{Type: token.RP, Text: ")", Pos: start}
		case '\'':
			return &token.Token{Type: token.SQ, Text: "'", Pos: start}
		case '`':
			return &token.Token{Type: token.BQ, Text: "`", Pos: start}
		case ',':
			nr, err := lx.readRune()
			if err != nil {
				return lx.errorf(start, "read error: %v", err)
			}
			if nr == '@' {
				return &token.Token{Type: token.COMMA, Text: ",@", Splice: true, Pos: start}
			}
			if nr != -1 {
				lx.unreadRune()
			}
			return &token.Token{Type: token.COMMA, Text: ",", Pos: start}
		case '"':
			return lx.scanString(start)
		case '|':
			return lx.scanPipeSymbol(start)
		case '#':
			return lx.scanHash(start)
		default:
			lx.unreadRune()
			return lx.scanAtom(start)
		}
	}
}

func (lx *Lexer) skipLineComment() {
	for {
		r, err := lx.readRune()
		if err != nil || r == -1 || r == '\n' {
			return
		}
	}
}

func (lx *Lexer) scanString(start token.Position) *token.Token {
	var sb strings.Builder
	for {
		r, err := lx.readRune()
		if err != nil {
			return lx.errorf(start, "read error: %v", err)
		}
		if r == -1 {
			return lx.errorf(start, "unterminated string literal")
		}
		if r == '"' {
			return &token.Token{Type: token.STRING, Text: sb.String(), Pos: start}
		}
		if r == '\\' {
			e, err := lx.readRune()
			if err != nil {
				return lx.errorf(start, "read error: %v", err)
			}
			sb.WriteRune(unescape(e))
			continue
		}
		sb.WriteRune(r)
	}
}

func unescape(r rune) rune {
	switch r {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	default:
		return r
	}
}

// scanPipeSymbol reads a |...| quoted symbol body. The resulting token is
// marked Escaped so the reader never treats its content as syntax.
func (lx *Lexer) scanPipeSymbol(start token.Position) *token.Token {
	var sb strings.Builder
	for {
		r, err := lx.readRune()
		if err != nil {
			return lx.errorf(start, "read error: %v", err)
		}
		if r == -1 {
			return lx.errorf(start, "unterminated |...| symbol")
		}
		if r == '|' {
			return &token.Token{Type: token.SYMBOL, Text: sb.String(), Escaped: true, Pos: start}
		}
		if r == '\\' {
			e, err := lx.readRune()
			if err != nil {
				return lx.errorf(start, "read error: %v", err)
			}
			sb.WriteRune(e)
			continue
		}
		sb.WriteRune(r)
	}
}

func (lx *Lexer) scanHash(start token.Position) *token.Token {
	r, err := lx.readRune()
	if err != nil {
		return lx.errorf(start, "read error: %v", err)
	}
	switch r {
	case '\\':
		return lx.scanChar(start)
	case '|':
		if err := lx.skipBlockComment(); err != nil {
			return lx.errorf(start, "%v", err)
		}
		return lx.Next()
	case '\'':
		return &token.Token{Type: token.HASHQUOTE, Text: "#'", Pos: start}
	case '+':
		return &token.Token{Type: token.FEATURE_PLUS, Text: "#+", Pos: start}
	case '-':
		return &token.Token{Type: token.FEATURE_MINUS, Text: "#-", Pos: start}
	case 'b', 'B':
		return lx.scanRadixInt(start, 2)
	case 'o', 'O':
		return lx.scanRadixInt(start, 8)
	case 'x', 'X':
		return lx.scanRadixInt(start, 16)
	default:
		return lx.errorf(start, "unknown dispatch character: #%c", r)
	}
}

func (lx *Lexer) skipBlockComment() error {
	depth := 1
	var prev rune
	for depth > 0 {
		r, err := lx.readRune()
		if err != nil {
			return err
		}
		if r == -1 {
			return fmt.Errorf("unterminated multiline comment")
		}
		if prev == '|' && r == '#' {
			depth--
			prev = 0
			continue
		}
		prev = r
	}
	return nil
}

func (lx *Lexer) scanChar(start token.Position) *token.Token {
	var sb strings.Builder
	r, err := lx.readRune()
	if err != nil {
		return lx.errorf(start, "read error: %v", err)
	}
	if r == -1 {
		return lx.errorf(start, "invalid character literal")
	}
	sb.WriteRune(r)
	if isSymbolRune(r) {
		for {
			nr, err := lx.readRune()
			if err != nil {
				return lx.errorf(start, "read error: %v", err)
			}
			if nr == -1 || isDelim(nr) {
				if nr != -1 {
					lx.unreadRune()
				}
				break
			}
			sb.WriteRune(nr)
		}
	}
	return &token.Token{Type: token.CHAR, Text: sb.String(), Pos: start}
}

func (lx *Lexer) scanRadixInt(start token.Position, base int) *token.Token {
	var sb strings.Builder
	for {
		r, err := lx.readRune()
		if err != nil {
			return lx.errorf(start, "read error: %v", err)
		}
		if r == -1 || isDelim(r) {
			if r != -1 {
				lx.unreadRune()
			}
			break
		}
		sb.WriteRune(r)
	}
	tok := &token.Token{Type: token.INT, Text: sb.String(), Pos: start}
	tok.Text = radixPrefix(base) + tok.Text
	return tok
}

func radixPrefix(base int) string {
	switch base {
	case 2:
		return "0b"
	case 8:
		return "0o"
	case 16:
		return "0x"
	default:
		return ""
	}
}

// scanAtom scans a symbol, integer, or float token starting at the current
// (unread) position.
func (lx *Lexer) scanAtom(start token.Position) *token.Token {
	var sb strings.Builder
	escaped := false
	for {
		r, err := lx.readRune()
		if err != nil {
			return lx.errorf(start, "read error: %v", err)
		}
		if r == -1 || isDelim(r) {
			if r != -1 {
				lx.unreadRune()
			}
			break
		}
		if r == '\\' {
			escaped = true
			e, err := lx.readRune()
			if err != nil {
				return lx.errorf(start, "read error: %v", err)
			}
			sb.WriteRune(e)
			continue
		}
		sb.WriteRune(r)
	}
	text := sb.String()
	if escaped {
		return &token.Token{Type: token.SYMBOL, Text: text, Escaped: true, Pos: start}
	}
	if text == "." {
		return &token.Token{Type: token.DOT, Text: text, Pos: start}
	}
	switch classifyNumber(text) {
	case numInt:
		return &token.Token{Type: token.INT, Text: text, Pos: start}
	case numFloat:
		return &token.Token{Type: token.FLOAT, Text: text, Pos: start}
	default:
		return &token.Token{Type: token.SYMBOL, Text: text, Pos: start}
	}
}

type numClass int

const (
	numNone numClass = iota
	numInt
	numFloat
)

// classifyNumber recognizes signed integers and IEEE-754 floats with
// exponents.
func classifyNumber(s string) numClass {
	if s == "" {
		return numNone
	}
	i := 0
	if s[i] == '+' || s[i] == '-' {
		i++
	}
	if i >= len(s) {
		return numNone
	}
	sawDigit := false
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
		sawDigit = true
	}
	isFloat := false
	if i < len(s) && s[i] == '.' {
		isFloat = true
		i++
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
			sawDigit = true
		}
	}
	if !sawDigit {
		return numNone
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		isFloat = true
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		expDigit := false
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
			expDigit = true
		}
		if !expDigit {
			return numNone
		}
	}
	if i != len(s) {
		return numNone
	}
	if isFloat {
		return numFloat
	}
	return numInt
}

// ControlChar looks up a named #\ control character case-insensitively.
func ControlChar(name string) (rune, bool) {
	r, ok := controlNames[strings.ToLower(name)]
	return r, ok
}
