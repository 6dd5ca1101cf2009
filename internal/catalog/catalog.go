// Package catalog is a minimal in-memory stand-in for the DDL
// binder/catalog, which this ingestion-only repository treats as an
// external collaborator. It holds just enough - an ordered column list
// and a primary key index per table - for session.Session to validate a
// copy() call and route primary keys to the duplicate pre-check.
package catalog

import (
	"fmt"

	"github.com/loomgraph/loomgraph/internal/common"
)

// ColumnDef names one column and its logical type.
type ColumnDef struct {
	Name string
	Type common.LogicalType
}

// TableDef describes one node or relationship table.
type TableDef struct {
	Name          string
	Columns       []ColumnDef
	PrimaryKeyIdx int // -1 if the table has no primary key (rel tables)
}

// Catalog is a name-indexed set of table definitions.
type Catalog struct {
	tables map[string]*TableDef
}

func New() *Catalog { return &Catalog{tables: make(map[string]*TableDef)} }

// CreateNodeTable registers a node table with a primary key column.
func (c *Catalog) CreateNodeTable(name string, columns []ColumnDef, primaryKeyIdx int) error {
	if _, exists := c.tables[name]; exists {
		return fmt.Errorf("table %q already exists", name)
	}
	if primaryKeyIdx < 0 || primaryKeyIdx >= len(columns) {
		return fmt.Errorf("primary key index %d out of range for table %q", primaryKeyIdx, name)
	}
	c.tables[name] = &TableDef{Name: name, Columns: columns, PrimaryKeyIdx: primaryKeyIdx}
	return nil
}

// CreateRelTable registers a relationship table, which carries no primary
// key of its own.
func (c *Catalog) CreateRelTable(name string, columns []ColumnDef) error {
	if _, exists := c.tables[name]; exists {
		return fmt.Errorf("table %q already exists", name)
	}
	c.tables[name] = &TableDef{Name: name, Columns: columns, PrimaryKeyIdx: -1}
	return nil
}

// Table looks up a table definition by name.
func (c *Catalog) Table(name string) (*TableDef, error) {
	t, ok := c.tables[name]
	if !ok {
		return nil, fmt.Errorf("unknown table %q", name)
	}
	return t, nil
}
