package grammar

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"seki/internal/schema"
	"seki/internal/util"
)

// Sampler draws random derivations from the grammar. The harness runs a
// preflight over its output before trusting suite verdicts, and property
// tests use it to pin the recognizer to the derivable set.
type Sampler struct {
	Rand  *rand.Rand
	Table schema.Table
}

// NewSampler returns a sampler over the orders table with a seeded
// random source, so a failing derivation can be reproduced from the seed.
func NewSampler(seed int64) *Sampler {
	return &Sampler{
		Rand:  rand.New(rand.NewSource(seed)),
		Table: schema.Orders(),
	}
}

// Statement renders one random derivation. Tokens are joined by one or
// two spaces to cover whitespace insensitivity; the clause openers keep
// the single interior space their literals require.
func (s *Sampler) Statement() string {
	toks := s.tokens()
	var b strings.Builder
	for i, t := range toks {
		if i > 0 {
			b.WriteString(strings.Repeat(" ", util.RandIntRange(s.Rand, 1, 2)))
		}
		b.WriteString(t)
	}
	return b.String()
}

func (s *Sampler) tokens() []string {
	toks := []string{"SELECT"}
	toks = append(toks, s.selectList()...)
	toks = append(toks, "FROM", TableName)
	if util.Chance(s.Rand, 60) {
		toks = append(toks, "WHERE")
		toks = append(toks, s.condition(2)...)
	}
	if util.Chance(s.Rand, 35) {
		toks = append(toks, "GROUP BY")
		n := util.RandIntRange(s.Rand, 1, 2)
		for i := 0; i < n; i++ {
			if i > 0 {
				toks = append(toks, ",")
			}
			toks = append(toks, s.column().Name)
		}
	}
	if util.Chance(s.Rand, 40) {
		toks = append(toks, "ORDER BY")
		n := util.RandIntRange(s.Rand, 1, 2)
		for i := 0; i < n; i++ {
			if i > 0 {
				toks = append(toks, ",")
			}
			toks = append(toks, s.column().Name)
			switch util.PickWeighted(s.Rand, []int{2, 1, 1}) {
			case 1:
				toks = append(toks, "ASC")
			case 2:
				toks = append(toks, "DESC")
			}
		}
	}
	if util.Chance(s.Rand, 70) {
		toks = append(toks, "LIMIT", strconv.Itoa(util.RandIntRange(s.Rand, 1, 500)))
	}
	return toks
}

func (s *Sampler) selectList() []string {
	if util.Chance(s.Rand, 30) {
		return []string{"*"}
	}
	n := util.RandIntRange(s.Rand, 1, 3)
	var toks []string
	for i := 0; i < n; i++ {
		if i > 0 {
			toks = append(toks, ",")
		}
		toks = append(toks, s.columnExpr()...)
	}
	return toks
}

func (s *Sampler) columnExpr() []string {
	var toks []string
	if util.Chance(s.Rand, 40) {
		agg := aggregates[s.Rand.Intn(len(aggregates))]
		arg := ""
		switch {
		case agg == "COUNT" && util.Chance(s.Rand, 50):
			arg = "*"
		case agg == "SUM" || agg == "AVG":
			cols := s.Table.NumericColumns()
			arg = cols[s.Rand.Intn(len(cols))].Name
		default:
			arg = s.column().Name
		}
		toks = append(toks, agg, "(", arg, ")")
	} else {
		toks = append(toks, s.column().Name)
	}
	if util.Chance(s.Rand, 40) {
		toks = append(toks, "AS", aliasPool[s.Rand.Intn(len(aliasPool))])
	}
	return toks
}

func (s *Sampler) condition(depth int) []string {
	if depth <= 0 || util.Chance(s.Rand, 55) {
		return s.comparison()
	}
	if util.Chance(s.Rand, 25) {
		toks := []string{"("}
		toks = append(toks, s.condition(depth-1)...)
		return append(toks, ")")
	}
	toks := s.condition(depth - 1)
	op := "AND"
	if util.Chance(s.Rand, 40) {
		op = "OR"
	}
	toks = append(toks, op)
	return append(toks, s.condition(depth-1)...)
}

func (s *Sampler) comparison() []string {
	col := s.column()
	op := comparisonOps[s.Rand.Intn(len(comparisonOps))]
	return []string{col.Name, op, s.value(col)}
}

// value picks a literal matching the column's type. The grammar does not
// type-check values; realistic pairings just keep preflight statements
// executable against a live warehouse.
func (s *Sampler) value(col schema.Column) string {
	switch col.Type {
	case schema.TypeUInt32:
		return strconv.Itoa(util.RandIntRange(s.Rand, 0, 50))
	case schema.TypeFloat64:
		return fmt.Sprintf("%.2f", float64(util.RandIntRange(s.Rand, 100, 500000))/100)
	case schema.TypeDateTime:
		year := util.RandIntRange(s.Rand, 2023, 2025)
		month := util.RandIntRange(s.Rand, 1, 12)
		day := util.RandIntRange(s.Rand, 1, util.DaysInMonth(year, month))
		return fmt.Sprintf("'%04d-%02d-%02d'", year, month, day)
	default:
		if vals, ok := stringPools[col.Name]; ok {
			return "'" + vals[s.Rand.Intn(len(vals))] + "'"
		}
		return fmt.Sprintf("'%s_%d'", col.Name, util.RandIntRange(s.Rand, 1, 99))
	}
}

func (s *Sampler) column() schema.Column {
	return s.Table.Columns[s.Rand.Intn(len(s.Table.Columns))]
}

var comparisonOps = []string{">", "<", ">=", "<=", "=", "!="}

var aliasPool = []string{"revenue", "total", "cnt", "avg_price", "n_orders", "qty"}

var stringPools = map[string][]string{
	"country":  {"United Kingdom", "Germany", "France", "Japan", "Brazil"},
	"category": {"Electronics", "Clothing", "Home", "Sports", "Books"},
}
