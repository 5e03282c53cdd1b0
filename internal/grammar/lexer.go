package grammar

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenWord
	tokenNumber
	tokenString
	tokenStar
	tokenComma
	tokenLParen
	tokenRParen
	tokenOp
	tokenGroupBy
	tokenOrderBy
)

type token struct {
	kind   tokenKind
	text   string
	offset int
	line   int
	col    int
	// isInt marks an unsigned integer with no fraction or exponent,
	// the only number shape the limit clause accepts.
	isInt bool
}

func (t token) describe() string {
	if t.kind == tokenEOF {
		return "end of input"
	}
	return fmt.Sprintf("%q", t.text)
}

type lexer struct {
	src  string
	pos  int
	line int
	col  int
}

// lex splits src into grammar tokens. The terminal set follows the
// grammar text: CNAME words, signed numbers, quoted strings, punctuation,
// and the two-word literals "GROUP BY" and "ORDER BY", which contain
// exactly one space. Whitespace between tokens is skipped.
func lex(src string) ([]token, *ParseError) {
	return lexFrom(src, 0, 1, 1)
}

// lexFrom reads tokens starting at a byte offset, with line and col
// naming that offset's position. The parser re-reads input here after a
// literal consumes only the front of a word.
func lexFrom(src string, offset, line, col int) ([]token, *ParseError) {
	l := &lexer{src: src, pos: offset, line: line, col: col}
	var toks []token
	for {
		l.skipSpace()
		if l.pos >= len(l.src) {
			toks = append(toks, token{kind: tokenEOF, offset: l.pos, line: l.line, col: l.col})
			return toks, nil
		}
		offset, line, col := l.pos, l.line, l.col
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		tok.offset, tok.line, tok.col = offset, line, col
		toks = append(toks, tok)
	}
}

func (l *lexer) next() (token, *ParseError) {
	rest := l.src[l.pos:]
	// The two-word clause openers are single terminals. Word characters
	// may follow directly ("GROUP BYx" opens a group-by whose first
	// column is x), exactly as the grammar text reads.
	for _, kw := range [...]struct {
		lit  string
		kind tokenKind
	}{{"GROUP BY", tokenGroupBy}, {"ORDER BY", tokenOrderBy}} {
		if strings.HasPrefix(rest, kw.lit) {
			l.advance(len(kw.lit))
			return token{kind: kw.kind, text: kw.lit}, nil
		}
	}

	r, _ := utf8.DecodeRuneInString(rest)
	switch {
	case r < utf8.RuneSelf && isWordStart(byte(r)):
		return l.lexWord(), nil
	case r >= '0' && r <= '9', r == '.', r == '+', r == '-':
		return l.lexNumber()
	case r == '\'', r == '"':
		return l.lexString(byte(r))
	}

	switch r {
	case '*':
		l.advance(1)
		return token{kind: tokenStar, text: "*"}, nil
	case ',':
		l.advance(1)
		return token{kind: tokenComma, text: ","}, nil
	case '(':
		l.advance(1)
		return token{kind: tokenLParen, text: "("}, nil
	case ')':
		l.advance(1)
		return token{kind: tokenRParen, text: ")"}, nil
	case '>', '<':
		op := string(r)
		l.advance(1)
		if l.pos < len(l.src) && l.src[l.pos] == '=' {
			op += "="
			l.advance(1)
		}
		return token{kind: tokenOp, text: op}, nil
	case '=':
		l.advance(1)
		return token{kind: tokenOp, text: "="}, nil
	case '!':
		if strings.HasPrefix(rest, "!=") {
			l.advance(2)
			return token{kind: tokenOp, text: "!="}, nil
		}
		return token{}, l.errHere("comparison_op", `"!="`, `"!"`)
	}
	return token{}, l.errHere("token", "a grammar token", fmt.Sprintf("%q", string(r)))
}

func (l *lexer) lexWord() token {
	start := l.pos
	i := l.pos
	for i < len(l.src) && isWordChar(l.src[i]) {
		i++
	}
	l.advance(i - start)
	return token{kind: tokenWord, text: l.src[start:i]}
}

// lexNumber matches the SIGNED_NUMBER terminal: an optional sign, then an
// integer, a decimal ("1." / ".5" / "1.5"), or either followed by an
// exponent. An exponent without digits is left for the next token, the
// way a maximal-munch lexer backs off to the plain number.
func (l *lexer) lexNumber() (token, *ParseError) {
	src := l.src
	start := l.pos
	i := l.pos
	signed := false
	if src[i] == '+' || src[i] == '-' {
		signed = true
		i++
	}
	intDigits := 0
	for i < len(src) && isDigit(src[i]) {
		i++
		intDigits++
	}
	fraction := false
	if i < len(src) && src[i] == '.' {
		j := i + 1
		fracDigits := 0
		for j < len(src) && isDigit(src[j]) {
			j++
			fracDigits++
		}
		if intDigits > 0 || fracDigits > 0 {
			fraction = true
			i = j
		}
	}
	if intDigits == 0 && !fraction {
		return token{}, l.errHere("value", "a number", fmt.Sprintf("%q", string(src[start])))
	}
	exponent := false
	if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
		j := i + 1
		if j < len(src) && (src[j] == '+' || src[j] == '-') {
			j++
		}
		expDigits := 0
		for j < len(src) && isDigit(src[j]) {
			j++
			expDigits++
		}
		if expDigits > 0 {
			exponent = true
			i = j
		}
	}
	l.advance(i - start)
	return token{
		kind:  tokenNumber,
		text:  src[start:i],
		isInt: !signed && !fraction && !exponent,
	}, nil
}

// lexString matches a quoted literal. The body is every character up to
// the next occurrence of the opening quote; there is no escaping, a quote
// character always terminates the literal.
func (l *lexer) lexString(quote byte) (token, *ParseError) {
	start := l.pos
	end := strings.IndexByte(l.src[l.pos+1:], quote)
	if end < 0 {
		return token{}, l.errHere("value", "a closing "+string(quote)+" quote", "end of input")
	}
	n := end + 2
	l.advance(n)
	return token{kind: tokenString, text: l.src[start : start+n]}, nil
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if !unicode.IsSpace(r) {
			return
		}
		l.pos += size
		if r == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}
	}
}

// advance moves the cursor n bytes forward, keeping line and column
// counts right even when the consumed text spans lines (string literals
// may contain newlines).
func (l *lexer) advance(n int) {
	seg := l.src[l.pos : l.pos+n]
	l.pos += n
	for len(seg) > 0 {
		r, size := utf8.DecodeRuneInString(seg)
		seg = seg[size:]
		if r == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}
	}
}

func (l *lexer) errHere(rule, expected, found string) *ParseError {
	return &ParseError{
		Offset:   l.pos,
		Line:     l.line,
		Column:   l.col,
		Rule:     rule,
		Expected: expected,
		Found:    found,
	}
}

func isWordStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isWordChar(c byte) bool {
	return isWordStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
