// Package grammar defines the whitelist query language: the context-free
// grammar handed to the constrained generator, and a recognizer that
// accepts exactly the strings derivable from it. Safety comes from the
// grammar itself: no production can derive DDL, DML, joins, subqueries or
// a table other than "orders", so nothing outside that shape validates.
package grammar

import "fmt"

// Text is the grammar in lark syntax, passed verbatim to the constrained
// generator as its production constraint. The recognizer in this package
// must accept exactly the language this text describes.
const Text = `?query: select_stmt

select_stmt: "SELECT" select_list "FROM" table_name [where_clause] [group_by_clause] [order_by_clause] [limit_clause]

select_list: "*" | column_expr ("," column_expr)*

column_expr: aggregate_func "(" (column_name | "*") ")" [alias]
           | column_name [alias]

aggregate_func: "SUM" | "COUNT" | "AVG" | "MIN" | "MAX"

alias: "AS" CNAME

table_name: "orders"

where_clause: "WHERE" condition

condition: comparison
         | condition "AND" condition
         | condition "OR" condition
         | "(" condition ")"

comparison: column_name comparison_op value

comparison_op: ">" | "<" | ">=" | "<=" | "=" | "!="

value: SIGNED_NUMBER | STRING

group_by_clause: "GROUP BY" column_name ("," column_name)*

order_by_clause: "ORDER BY" column_name ["ASC" | "DESC"] ("," column_name ["ASC" | "DESC"])*

limit_clause: "LIMIT" INT

column_name: CNAME

STRING: /'[^']*'/ | /"[^"]*"/

%import common.CNAME
%import common.SIGNED_NUMBER
%import common.INT
%import common.WS
%ignore WS
`

// StartQuery is the canonical start symbol. Older call sites referred to
// the same entry point as "select_stmt" or "start"; ResolveStart folds
// those aliases onto the canonical symbol so there is a single parse path.
const StartQuery = "query"

// ResolveStart maps a caller-supplied start symbol onto the canonical one.
// The empty string resolves to the canonical symbol.
func ResolveStart(alias string) (string, error) {
	switch alias {
	case "", StartQuery, "select_stmt", "start":
		return StartQuery, nil
	}
	return "", fmt.Errorf("unknown grammar start symbol %q", alias)
}

// aggregates are the aggregate names the grammar admits, in grammar
// order. They are not reserved words: a column may carry the same
// spelling, the recognizer decides by the following token.
var aggregates = []string{"SUM", "COUNT", "AVG", "MIN", "MAX"}

var aggregateFuncs = func() map[string]bool {
	m := make(map[string]bool, len(aggregates))
	for _, name := range aggregates {
		m[name] = true
	}
	return m
}()

// TableName is the only table any derivation can reach.
const TableName = "orders"
