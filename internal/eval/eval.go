// Package eval runs the three-suite evaluation harness over the
// fixture corpus: grammar compliance, semantic correctness, and
// adversarial edge cases.
package eval

import (
	"context"
	"fmt"
	"math"

	"seki/internal/grammar"
	"seki/internal/util"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Case verdicts.
const (
	StatusPass = "PASS"
	StatusFail = "FAIL"
)

// Suite names, which are also the corpus JSON keys.
const (
	SuiteGrammar  = "grammar_compliance"
	SuiteSemantic = "semantic_correctness"
	SuiteEdge     = "edge_cases"
)

// Pipeline is the slice of the query service the harness drives. The
// suites never execute SQL; generation and validation are all they
// judge.
type Pipeline interface {
	Generate(ctx context.Context, question string) (string, error)
	Validate(stmt string) (*grammar.SelectStmt, error)
}

// Detail records one case verdict in corpus order.
type Detail struct {
	Query  string `json:"query"`
	SQL    string `json:"sql,omitempty"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
	Note   string `json:"note,omitempty"`
}

// SuiteResult aggregates one suite.
type SuiteResult struct {
	Name    string   `json:"name"`
	Total   int      `json:"total"`
	Passed  int      `json:"passed"`
	Failed  int      `json:"failed"`
	Details []Detail `json:"details"`
}

// Summary aggregates the whole run.
type Summary struct {
	TotalPassed int     `json:"total_passed"`
	TotalTests  int     `json:"total_tests"`
	PassRate    float64 `json:"pass_rate"`
	AllPassed   bool    `json:"all_passed"`
}

// Report is the full harness output.
type Report struct {
	Grammar  SuiteResult `json:"grammar_compliance"`
	Semantic SuiteResult `json:"semantic_correctness"`
	Edge     SuiteResult `json:"edge_cases"`
	Summary  Summary     `json:"summary"`
}

// Suites returns the suite results in run order.
func (r *Report) Suites() []*SuiteResult {
	return []*SuiteResult{&r.Grammar, &r.Semantic, &r.Edge}
}

// Options tunes a run.
type Options struct {
	Concurrency int
}

// Run executes the three suites in order, cases within a suite fanned
// out up to Concurrency. Each case is isolated: a failure, error or
// panic in one never stops the others.
func Run(ctx context.Context, p Pipeline, corpus *Corpus, opts Options) *Report {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	report := &Report{
		Grammar:  suite{name: SuiteGrammar, cases: corpus.GrammarCompliance, judge: judgeGrammar}.run(ctx, p, concurrency),
		Semantic: suite{name: SuiteSemantic, cases: corpus.SemanticCorrectness, judge: judgeSemantic}.run(ctx, p, concurrency),
		Edge:     suite{name: SuiteEdge, cases: corpus.EdgeCases, judge: judgeEdge}.run(ctx, p, concurrency),
	}
	report.Summary = summarize(report)
	return report
}

type suite struct {
	name  string
	cases []Case
	judge func(p Pipeline, c Case, stmt string) (pass bool, reason, note string)
}

func (s suite) run(ctx context.Context, p Pipeline, concurrency int) SuiteResult {
	result := SuiteResult{
		Name:    s.name,
		Total:   len(s.cases),
		Details: make([]Detail, len(s.cases)),
	}
	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, c := range s.cases {
		g.Go(func() error {
			result.Details[i] = s.runCase(ctx, p, c)
			return nil
		})
	}
	// Detail goroutines never return errors; verdicts live in Details.
	_ = g.Wait()
	for _, d := range result.Details {
		if d.Status == StatusPass {
			result.Passed++
		} else {
			result.Failed++
		}
	}
	return result
}

func (s suite) runCase(ctx context.Context, p Pipeline, c Case) (d Detail) {
	d = Detail{Query: c.Query, Status: StatusFail}
	defer func() {
		if r := recover(); r != nil {
			d.Status = StatusFail
			d.Reason = fmt.Sprintf("panic: %v", r)
		}
	}()
	stmt, err := p.Generate(ctx, c.Query)
	if err != nil {
		d.Reason = fmt.Sprintf("generation failed: %v", err)
		return d
	}
	d.SQL = stmt
	pass, reason, note := s.judge(p, c, stmt)
	if pass {
		d.Status = StatusPass
	}
	d.Reason = reason
	d.Note = note
	return d
}

func summarize(r *Report) Summary {
	var total, passed int
	for _, s := range r.Suites() {
		total += s.Total
		passed += s.Passed
	}
	return Summary{
		TotalPassed: passed,
		TotalTests:  total,
		PassRate:    PassRate(passed, total),
		AllPassed:   passed == total,
	}
}

// PassRate is the percentage of passed cases rounded to two decimals.
// An empty run reports 0.
func PassRate(passed, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(passed)/float64(total)*100*100) / 100
}

// RunCase judges one case with the named suite's oracle, outside any
// fan-out. The repro CLI replays recorded cases through it.
func RunCase(ctx context.Context, p Pipeline, suiteName string, c Case) (Detail, error) {
	var judge func(Pipeline, Case, string) (bool, string, string)
	switch suiteName {
	case SuiteGrammar:
		judge = judgeGrammar
	case SuiteSemantic:
		judge = judgeSemantic
	case SuiteEdge:
		judge = judgeEdge
	default:
		return Detail{}, errors.Errorf("unknown suite %q", suiteName)
	}
	return suite{name: suiteName, judge: judge}.runCase(ctx, p, c), nil
}

// Preflight validates n sampled derivations before any cases run; the
// recognizer must accept its own language.
func Preflight(p Pipeline, seed int64, n int) error {
	sampler := grammar.NewSampler(seed)
	for i := 0; i < n; i++ {
		stmt := sampler.Statement()
		if _, err := p.Validate(stmt); err != nil {
			return errors.Wrapf(err, "derivation %d %q", i, stmt)
		}
	}
	return nil
}

// Log prints a run the way operators read it: per-suite counts with
// failures spelled out, then the summary verdict.
func Log(r *Report) {
	for _, s := range r.Suites() {
		util.Infof("%s: %d/%d passed", s.Name, s.Passed, s.Total)
		for _, d := range s.Details {
			if d.Status != StatusFail {
				continue
			}
			util.Warnf("  FAIL %q: %s", d.Query, d.Reason)
		}
	}
	if r.Summary.AllPassed {
		util.Highlightf("evals passed: %d/%d (%.2f%%)",
			r.Summary.TotalPassed, r.Summary.TotalTests, r.Summary.PassRate)
		return
	}
	util.Errorf("evals failed: %d/%d (%.2f%%)",
		r.Summary.TotalPassed, r.Summary.TotalTests, r.Summary.PassRate)
}
