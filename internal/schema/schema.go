// Package schema describes the warehouse tables exposed to query generation.
package schema

import (
	"fmt"
	"strings"
)

// ColumnType enumerates warehouse column data types.
type ColumnType int

// Column type constants, named after the warehouse's own type system.
const (
	TypeString ColumnType = iota
	TypeUInt32
	TypeFloat64
	TypeDateTime
)

// String returns the warehouse spelling of the type.
func (t ColumnType) String() string {
	switch t {
	case TypeString:
		return "String"
	case TypeUInt32:
		return "UInt32"
	case TypeFloat64:
		return "Float64"
	case TypeDateTime:
		return "DateTime"
	default:
		return fmt.Sprintf("ColumnType(%d)", int(t))
	}
}

// Numeric reports whether columns of this type compare against numbers.
func (t ColumnType) Numeric() bool {
	return t == TypeUInt32 || t == TypeFloat64
}

// Column describes a table column.
type Column struct {
	Name string
	Type ColumnType
}

// Table describes a warehouse table.
type Table struct {
	Name    string
	Columns []Column
}

// Orders returns the single table the query language can reach.
func Orders() Table {
	return Table{
		Name: "orders",
		Columns: []Column{
			{Name: "order_id", Type: TypeString},
			{Name: "customer_id", Type: TypeString},
			{Name: "product_name", Type: TypeString},
			{Name: "category", Type: TypeString},
			{Name: "quantity", Type: TypeUInt32},
			{Name: "unit_price", Type: TypeFloat64},
			{Name: "total_amount", Type: TypeFloat64},
			{Name: "order_date", Type: TypeDateTime},
			{Name: "country", Type: TypeString},
		},
	}
}

// Column returns the named column and whether it exists.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnNames returns the column names in declaration order.
func (t Table) ColumnNames() []string {
	names := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		names = append(names, c.Name)
	}
	return names
}

// NumericColumns returns the columns usable inside numeric aggregates.
func (t Table) NumericColumns() []Column {
	cols := make([]Column, 0, len(t.Columns))
	for _, c := range t.Columns {
		if c.Type.Numeric() {
			cols = append(cols, c)
		}
	}
	return cols
}

// PromptDescription renders the typed column list for a generator
// system prompt, e.g. "order_id (String), quantity (UInt32)".
func (t Table) PromptDescription() string {
	parts := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		parts[i] = fmt.Sprintf("%s (%s)", c.Name, c.Type)
	}
	return strings.Join(parts, ", ")
}
