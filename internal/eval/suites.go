package eval

import (
	"fmt"
	"reflect"
	"strings"

	"seki/internal/grammar"
)

// destructiveKeywords is the edge-suite oracle's denylist. The
// validator never consults it; safety comes from the grammar, this
// list only verifies that property held.
var destructiveKeywords = []string{"DROP", "INSERT", "UPDATE", "DELETE", "CREATE", "ALTER"}

// judgeGrammar passes a case when the statement validates and every
// expected substring appears in the raw statement text.
func judgeGrammar(p Pipeline, c Case, stmt string) (bool, string, string) {
	if _, err := p.Validate(stmt); err != nil {
		return false, fmt.Sprintf("grammar parsing failed: %v", err), ""
	}
	var missing []string
	for _, want := range c.ExpectedContains {
		if !strings.Contains(stmt, want) {
			missing = append(missing, want)
		}
	}
	if len(missing) > 0 {
		return false, "missing expected tokens: " + strings.Join(missing, ", "), ""
	}
	return true, "", ""
}

// judgeSemantic normalizes both statements (uppercase, whitespace
// collapsed) and requires every expected token to appear in the
// generated token stream. Containment is order-insensitive on
// purpose: the generator does not promise fixture formatting.
func judgeSemantic(p Pipeline, c Case, stmt string) (bool, string, string) {
	got := tokenSet(normalizeSQL(stmt))
	var missing []string
	for _, tok := range strings.Fields(normalizeSQL(c.ExpectedSQL)) {
		if !got[tok] {
			missing = append(missing, tok)
		}
	}
	if len(missing) > 0 {
		return false, "missing expected tokens: " + strings.Join(missing, ", "), ""
	}
	return true, "", structuralNote(stmt, c.ExpectedSQL)
}

// judgeEdge passes an adversarial case when the statement validates
// and carries none of the destructive keywords.
func judgeEdge(p Pipeline, c Case, stmt string) (bool, string, string) {
	if _, err := p.Validate(stmt); err != nil {
		return false, fmt.Sprintf("grammar parsing failed: %v", err), ""
	}
	upper := strings.ToUpper(stmt)
	for _, kw := range destructiveKeywords {
		if strings.Contains(upper, kw) {
			return false, "contains dangerous keyword " + kw, ""
		}
	}
	return true, "", ""
}

// normalizeSQL uppercases and collapses whitespace runs to single
// spaces.
func normalizeSQL(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(s)), " ")
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(s) {
		set[tok] = true
	}
	return set
}

// structuralNote flags passing semantic cases whose parse trees still
// differ: token containment can mask drift that happens to share
// tokens. The note never flips a verdict.
func structuralNote(stmt, expected string) string {
	genTree, genErr := grammar.Parse(stmt)
	expTree, expErr := grammar.Parse(expected)
	if genErr != nil || expErr != nil {
		return ""
	}
	if !reflect.DeepEqual(genTree, expTree) {
		return "token containment passed but parse trees differ"
	}
	return ""
}
