package eval

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// Case is one fixture record. ExpectedContains drives the grammar
// suite, ExpectedSQL the semantic suite; edge cases carry neither.
type Case struct {
	Query            string   `json:"query"`
	ExpectedContains []string `json:"expected_contains,omitempty"`
	ExpectedSQL      string   `json:"expected_sql,omitempty"`
}

// Corpus holds the three suites' cases. It is immutable for the
// duration of a run.
type Corpus struct {
	GrammarCompliance   []Case `json:"grammar_compliance"`
	SemanticCorrectness []Case `json:"semantic_correctness"`
	EdgeCases           []Case `json:"edge_cases"`
}

// Len reports the total number of cases across suites.
func (c *Corpus) Len() int {
	return len(c.GrammarCompliance) + len(c.SemanticCorrectness) + len(c.EdgeCases)
}

// SuiteCases returns the named suite's cases.
func (c *Corpus) SuiteCases(suiteName string) ([]Case, error) {
	switch suiteName {
	case SuiteGrammar:
		return c.GrammarCompliance, nil
	case SuiteSemantic:
		return c.SemanticCorrectness, nil
	case SuiteEdge:
		return c.EdgeCases, nil
	default:
		return nil, errors.Errorf("unknown suite %q", suiteName)
	}
}

// LoadCorpus reads the fixture corpus from path.
func LoadCorpus(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read corpus")
	}
	var corpus Corpus
	if err := json.Unmarshal(data, &corpus); err != nil {
		return nil, errors.Wrap(err, "decode corpus")
	}
	return &corpus, nil
}
