// Package validator enforces the whitelist grammar on candidate SQL.
// The grammar recognizer is the safety boundary: a statement either
// derives from the grammar or it is rejected, no keyword lists here.
package validator

import (
	"fmt"

	"seki/internal/grammar"
	"seki/internal/util"

	"github.com/pingcap/tidb/pkg/parser"
	tidbast "github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/pkg/errors"

	_ "github.com/pingcap/tidb/pkg/types/parser_driver" // Register TiDB parser driver.
)

// RejectionError reports a candidate statement outside the whitelist
// language. Parse carries recognizer detail when rejection came from a
// failed derivation.
type RejectionError struct {
	Statement string
	Reason    string
	Parse     *grammar.ParseError
}

func (e *RejectionError) Error() string {
	return "statement rejected: " + e.Reason
}

func (e *RejectionError) Unwrap() error {
	if e.Parse == nil {
		return nil
	}
	return e.Parse
}

// Validator recognizes statements against the whitelist grammar and
// cross-checks accepted ones with the TiDB parser.
type Validator struct{}

// New returns a Validator instance.
func New() *Validator {
	return &Validator{}
}

// Validate checks stmt against the canonical start symbol and returns
// its parse tree. Rejections are *RejectionError.
func (v *Validator) Validate(stmt string) (*grammar.SelectStmt, error) {
	return v.ValidateFrom(grammar.StartQuery, stmt)
}

// ValidateFrom checks stmt from a caller-supplied start symbol alias.
func (v *Validator) ValidateFrom(start, stmt string) (*grammar.SelectStmt, error) {
	sel, err := grammar.ParseFrom(start, stmt)
	if err != nil {
		var pe *grammar.ParseError
		if errors.As(err, &pe) {
			return nil, &RejectionError{Statement: stmt, Reason: pe.Error(), Parse: pe}
		}
		// Unknown start symbol is a caller bug, not a rejection.
		return nil, err
	}
	if reason := v.crossCheck(stmt); reason != "" {
		return nil, &RejectionError{Statement: stmt, Reason: reason}
	}
	return sel, nil
}

// crossCheck re-parses an accepted statement with the TiDB parser and
// inspects the shape. No derivable string can trip it: derivations are
// a single SELECT over the one table with no joins or subqueries, and
// the spellings TiDB refuses (keywords as column names) fail its parse
// outright. A non-empty reason therefore means a recognizer defect.
func (v *Validator) crossCheck(stmt string) string {
	// TiDB parsers reuse their result buffer across Parse calls; a
	// shared instance is unsafe once the returned nodes outlive a lock.
	p := parser.New()
	nodes, _, err := p.Parse(stmt, "", "")
	if err != nil {
		util.Detailf("cross-check inconclusive for %q: %v", stmt, err)
		return ""
	}
	if len(nodes) != 1 {
		return fmt.Sprintf("cross-check: %d statements, want 1", len(nodes))
	}
	sel, ok := nodes[0].(*tidbast.SelectStmt)
	if !ok {
		return fmt.Sprintf("cross-check: %T is not a SELECT", nodes[0])
	}
	shape := &shapeCollector{tables: map[string]struct{}{}}
	sel.Accept(shape)
	if shape.joins > 0 {
		return "cross-check: join in accepted statement"
	}
	if shape.subqueries > 0 {
		return "cross-check: subquery in accepted statement"
	}
	if len(shape.tables) != 1 {
		return fmt.Sprintf("cross-check: %d tables, want 1", len(shape.tables))
	}
	if _, ok := shape.tables[grammar.TableName]; !ok {
		return fmt.Sprintf("cross-check: table is not %q", grammar.TableName)
	}
	return ""
}

type shapeCollector struct {
	tables     map[string]struct{}
	joins      int
	subqueries int
}

// Enter records tables, joins and subqueries during AST traversal.
func (c *shapeCollector) Enter(in tidbast.Node) (tidbast.Node, bool) {
	switch n := in.(type) {
	case *tidbast.TableName:
		c.tables[n.Name.L] = struct{}{}
	case *tidbast.Join:
		if n.Right != nil {
			c.joins++
		}
	case *tidbast.SubqueryExpr:
		c.subqueries++
	}
	return in, false
}

// Leave implements ast.Visitor.
func (c *shapeCollector) Leave(in tidbast.Node) (tidbast.Node, bool) {
	return in, true
}
