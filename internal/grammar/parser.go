package grammar

import (
	"fmt"
	"strings"
)

// ParseError reports where recognition failed: the production being
// matched, what it required, and the token found instead.
type ParseError struct {
	Offset   int
	Line     int
	Column   int
	Rule     string
	Expected string
	Found    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d column %d: %s: expected %s, found %s",
		e.Line, e.Column, e.Rule, e.Expected, e.Found)
}

// Parse recognizes input against the canonical start symbol and returns
// its parse tree. The error, when non-nil, is a *ParseError. Parse holds
// no state between calls; the same input always yields the same verdict.
func Parse(input string) (*SelectStmt, error) {
	toks, lerr := lex(input)
	if lerr != nil {
		return nil, lerr
	}
	p := &parser{src: input, toks: toks}
	stmt, err := p.parseSelectStmt()
	if err != nil {
		return nil, err
	}
	if p.cur().kind != tokenEOF {
		return nil, p.fail("query", "end of input")
	}
	return stmt, nil
}

// ParseFrom parses with a caller-supplied start symbol alias. Every alias
// names the same entry point, so this only validates the alias before
// taking the canonical path.
func ParseFrom(start, input string) (*SelectStmt, error) {
	if _, err := ResolveStart(start); err != nil {
		return nil, err
	}
	return Parse(input)
}

type parser struct {
	src  string
	toks []token
	pos  int
}

func (p *parser) cur() token {
	return p.toks[p.pos]
}

func (p *parser) peek() token {
	if p.pos+1 < len(p.toks) {
		return p.toks[p.pos+1]
	}
	return p.toks[len(p.toks)-1]
}

func (p *parser) bump() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) fail(rule, expected string) *ParseError {
	t := p.cur()
	return &ParseError{
		Offset:   t.offset,
		Line:     t.line,
		Column:   t.col,
		Rule:     rule,
		Expected: expected,
		Found:    t.describe(),
	}
}

// matchWord reports whether the literal kw matches at the current
// position: the token is a word whose text is kw or begins with kw.
// Literals are anchored matches with no boundary requirement, the
// grammar puts nothing between a keyword and the text that follows it.
// Keywords are still not reserved: a word is only consumed as kw where
// the grammar expects that literal.
func (p *parser) matchWord(kw string) bool {
	t := p.cur()
	return t.kind == tokenWord && strings.HasPrefix(t.text, kw)
}

// takeWord consumes a literal matched by matchWord. When the literal is
// a strict prefix of the word, the source after it is re-read as fresh
// input: "FROMorders" yields "FROM" and leaves "orders", and
// "ordersGROUP BY x" re-forms the two-word clause opener after the
// table name.
func (p *parser) takeWord(kw string) *ParseError {
	t := p.cur()
	if len(t.text) == len(kw) {
		p.bump()
		return nil
	}
	tail, err := lexFrom(p.src, t.offset+len(kw), t.line, t.col+len(kw))
	if err != nil {
		return err
	}
	p.toks = append(p.toks[:p.pos], tail...)
	return nil
}

func (p *parser) expectWord(rule, kw string) *ParseError {
	if !p.matchWord(kw) {
		return p.fail(rule, fmt.Sprintf("%q", kw))
	}
	return p.takeWord(kw)
}

// expectIdent consumes any word token. Keyword spellings are legal
// identifiers wherever the grammar expects one.
func (p *parser) expectIdent(rule string) (string, *ParseError) {
	if p.cur().kind != tokenWord {
		return "", p.fail(rule, "an identifier")
	}
	return p.bump().text, nil
}

func (p *parser) parseSelectStmt() (*SelectStmt, *ParseError) {
	if err := p.expectWord("select_stmt", "SELECT"); err != nil {
		return nil, err
	}
	stmt := &SelectStmt{}
	if p.cur().kind == tokenStar {
		p.bump()
		stmt.Star = true
	} else {
		for {
			col, err := p.parseColumnExpr()
			if err != nil {
				return nil, err
			}
			stmt.Columns = append(stmt.Columns, col)
			if p.cur().kind != tokenComma {
				break
			}
			p.bump()
		}
	}
	if err := p.expectWord("select_stmt", "FROM"); err != nil {
		return nil, err
	}
	if !p.matchWord(TableName) {
		return nil, p.fail("table_name", fmt.Sprintf("%q", TableName))
	}
	if err := p.takeWord(TableName); err != nil {
		return nil, err
	}
	stmt.Table = TableName

	if p.matchWord("WHERE") {
		if err := p.takeWord("WHERE"); err != nil {
			return nil, err
		}
		cond, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		stmt.Where = cond
	}
	if p.cur().kind == tokenGroupBy {
		p.bump()
		for {
			name, err := p.expectIdent("group_by_clause")
			if err != nil {
				return nil, err
			}
			stmt.GroupBy = append(stmt.GroupBy, name)
			if p.cur().kind != tokenComma {
				break
			}
			p.bump()
		}
	}
	if p.cur().kind == tokenOrderBy {
		p.bump()
		for {
			name, err := p.expectIdent("order_by_clause")
			if err != nil {
				return nil, err
			}
			item := OrderItem{Column: name}
			for _, dir := range [...]string{"ASC", "DESC"} {
				if p.matchWord(dir) {
					if err := p.takeWord(dir); err != nil {
						return nil, err
					}
					item.Dir = dir
					break
				}
			}
			stmt.OrderBy = append(stmt.OrderBy, item)
			if p.cur().kind != tokenComma {
				break
			}
			p.bump()
		}
	}
	if p.matchWord("LIMIT") {
		if err := p.takeWord("LIMIT"); err != nil {
			return nil, err
		}
		t := p.cur()
		if t.kind != tokenNumber || !t.isInt {
			return nil, p.fail("limit_clause", "an unsigned integer")
		}
		stmt.Limit = p.bump().text
	}
	return stmt, nil
}

func (p *parser) parseColumnExpr() (ColumnExpr, *ParseError) {
	var col ColumnExpr
	t := p.cur()
	if t.kind != tokenWord {
		return col, p.fail("column_expr", "a column name or aggregate")
	}
	// An aggregate spelling is only an aggregate when a parenthesis
	// follows; otherwise it is a plain column named SUM, COUNT, ...
	if aggregateFuncs[t.text] && p.peek().kind == tokenLParen {
		col.Agg = t.text
		p.bump()
		p.bump()
		switch p.cur().kind {
		case tokenStar:
			col.AggStar = true
			p.bump()
		case tokenWord:
			col.Column = p.bump().text
		default:
			return col, p.fail("column_expr", `a column name or "*"`)
		}
		if p.cur().kind != tokenRParen {
			return col, p.fail("column_expr", `")"`)
		}
		p.bump()
	} else {
		col.Column = p.bump().text
	}
	if p.matchWord("AS") {
		if err := p.takeWord("AS"); err != nil {
			return col, err
		}
		name, err := p.expectIdent("alias")
		if err != nil {
			return col, err
		}
		col.Alias = name
	}
	return col, nil
}

// parseCondition builds the where tree. AND binds tighter than OR; the
// grammar leaves the bracketing open and either choice accepts the same
// strings, this one just fixes the tree shape.
func (p *parser) parseCondition() (Condition, *ParseError) {
	return p.parseOr()
}

func (p *parser) parseOr() (Condition, *ParseError) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.matchWord("OR") {
		if err := p.takeWord("OR"); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Logical{Op: "OR", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Condition, *ParseError) {
	left, err := p.parseCondTerm()
	if err != nil {
		return nil, err
	}
	for p.matchWord("AND") {
		if err := p.takeWord("AND"); err != nil {
			return nil, err
		}
		right, err := p.parseCondTerm()
		if err != nil {
			return nil, err
		}
		left = &Logical{Op: "AND", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseCondTerm() (Condition, *ParseError) {
	if p.cur().kind == tokenLParen {
		p.bump()
		cond, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		if p.cur().kind != tokenRParen {
			return nil, p.fail("condition", `")"`)
		}
		p.bump()
		return cond, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (Condition, *ParseError) {
	name, err := p.expectIdent("comparison")
	if err != nil {
		return nil, err
	}
	op := p.cur()
	if op.kind != tokenOp {
		return nil, p.fail("comparison_op", "a comparison operator")
	}
	p.bump()
	v := p.cur()
	var val Value
	switch v.kind {
	case tokenNumber:
		val = Value{Kind: ValueNumber, Raw: v.text}
	case tokenString:
		val = Value{Kind: ValueString, Raw: v.text}
	default:
		return nil, p.fail("value", "a number or string literal")
	}
	p.bump()
	return &Comparison{Column: name, Op: op.text, Value: val}, nil
}
