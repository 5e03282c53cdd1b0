package grammar

// SelectStmt is the parsed form of an accepted statement.
type SelectStmt struct {
	Star    bool
	Columns []ColumnExpr
	Table   string
	Where   Condition
	GroupBy []string
	OrderBy []OrderItem
	// Limit holds the digits as written, empty when the clause is absent.
	Limit string
}

// ColumnExpr is one entry of the select list.
type ColumnExpr struct {
	// Agg is the aggregate function name, empty for a bare column.
	Agg string
	// Column is the referenced column, empty for an aggregate over "*".
	Column string
	// AggStar marks an aggregate applied to "*".
	AggStar bool
	// Alias is the "AS" name, empty when none was given.
	Alias string
}

// OrderItem is one sort key of the order-by clause.
type OrderItem struct {
	Column string
	// Dir is "ASC", "DESC" or empty when no direction was written.
	Dir string
}

// Condition is a node of the where-clause tree.
type Condition interface {
	condNode()
}

// Comparison is a single column/operator/value test.
type Comparison struct {
	Column string
	Op     string
	Value  Value
}

// Logical joins two conditions with AND or OR. Parentheses only group:
// they shape the tree and leave no node behind.
type Logical struct {
	Op    string
	Left  Condition
	Right Condition
}

func (*Comparison) condNode() {}
func (*Logical) condNode()    {}

// ValueKind discriminates comparison values.
type ValueKind int

// Comparison value kinds.
const (
	ValueNumber ValueKind = iota
	ValueString
)

// Value is a comparison literal. Raw preserves the source spelling,
// quotes included for strings.
type Value struct {
	Kind ValueKind
	Raw  string
}
