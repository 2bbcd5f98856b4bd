package main

import (
	"context"
	"fmt"
	"strings"
)

// Column is one column of a table, as declared in its CREATE TABLE
// statement.
type Column struct {
	Name         string
	Type         string
	IsPrimaryKey bool
}

// Index describes a CREATE INDEX statement: the table it indexes, the
// ordered list of indexed column names, and the root page of its B-tree.
//
// Unlike the teacher's SchemaRecord, RootPage is an int rather than a
// uint8 — a uint8 silently truncates any root page above 255, which is
// reachable in any database bigger than a couple hundred pages.
type Index struct {
	Name      string
	TableName string
	Columns   []string
	RootPage  int
}

// Table is one user or sqlite_ system table: its declared columns, the
// indexes that apply to it, and its table B-tree's root page.
type Table struct {
	Name     string
	Columns  []Column
	Indexes  []*Index
	RootPage int
}

// FindColumn looks up a column by name, case-insensitively (SQL
// identifiers are case-insensitive in SQLite). ok is false if no column
// matches.
func (t *Table) FindColumn(name string) (pos int, col Column, ok bool) {
	for i, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return i, c, true
		}
	}
	return 0, Column{}, false
}

// FindApplicableIndex returns the first index on this table whose leading
// indexed column matches filterColumn, case-insensitively. This is the
// simplified index-selection rule of §4.7: only the first indexed column
// is consulted, so a composite index is usable only through its leading
// column.
func (t *Table) FindApplicableIndex(filterColumn string) *Index {
	for _, idx := range t.Indexes {
		if len(idx.Columns) > 0 && strings.EqualFold(idx.Columns[0], filterColumn) {
			return idx
		}
	}
	return nil
}

// SchemaStore is the immutable, fully-loaded set of tables and indexes
// read from page 1's sqlite_schema table.
type SchemaStore struct {
	tables map[string]*Table
	order  []string
}

// Table looks up a table by name, case-insensitively.
func (s *SchemaStore) Table(name string) (*Table, bool) {
	for _, n := range s.order {
		if strings.EqualFold(n, name) {
			return s.tables[n], true
		}
	}
	return nil, false
}

// UserTables returns every table whose name does not begin with
// "sqlite_", in schema declaration order.
func (s *SchemaStore) UserTables() []*Table {
	var out []*Table
	for _, n := range s.order {
		if !strings.HasPrefix(n, "sqlite_") {
			out = append(out, s.tables[n])
		}
	}
	return out
}

// schemaRow is one decoded row of sqlite_schema: (type, name, tbl_name,
// rootpage, sql).
type schemaRow struct {
	Type     string
	Name     string
	TblName  string
	RootPage int
	SQL      string
}

// loadSchema walks page 1 as a table-leaf B-tree (it may also be an
// interior table page once the schema grows past one page) and decodes
// every row of sqlite_schema, in two passes: tables first, so that every
// index's owning Table already exists when the second pass attaches it.
func loadSchema(ctx context.Context, db *Database) (*SchemaStore, error) {
	rows, err := collectSchemaRows(ctx, db, 1)
	if err != nil {
		return nil, err
	}

	store := &SchemaStore{tables: make(map[string]*Table)}

	for _, row := range rows {
		if row.Type != "table" {
			continue
		}
		cols, err := parseCreateTableColumns(row.SQL)
		if err != nil {
			return nil, newErr(KindParseError, "load_schema", err, map[string]interface{}{"table": row.Name})
		}
		store.tables[row.Name] = &Table{
			Name:     row.Name,
			Columns:  cols,
			RootPage: row.RootPage,
		}
		store.order = append(store.order, row.Name)
	}

	for _, row := range rows {
		if row.Type != "index" {
			continue
		}
		owner, ok := store.tables[row.TblName]
		if !ok {
			return nil, newErr(KindUnknownTable, "load_schema", fmt.Errorf("index %q references unknown table %q", row.Name, row.TblName), nil)
		}
		idxCols, err := parseCreateIndexColumns(row.SQL)
		if err != nil {
			return nil, newErr(KindParseError, "load_schema", err, map[string]interface{}{"index": row.Name})
		}
		idx := &Index{
			Name:      row.Name,
			TableName: row.TblName,
			Columns:   idxCols,
			RootPage:  row.RootPage,
		}
		owner.Indexes = append(owner.Indexes, idx)
	}

	return store, nil
}

// collectSchemaRows recursively walks a table B-tree rooted at pageNum
// and decodes every leaf cell's record as a sqlite_schema row.
func collectSchemaRows(ctx context.Context, db *Database, pageNum int) ([]schemaRow, error) {
	page, err := db.getPage(ctx, pageNum)
	if err != nil {
		return nil, err
	}
	if !page.Header.Kind.isTable() {
		return nil, newErr(KindMalformedTree, "collect_schema_rows", fmt.Errorf("page %d in sqlite_schema's tree is not a table page", pageNum), nil)
	}

	var rows []schemaRow
	for _, off := range page.CellOffsets {
		cell, err := decodeCell(page, off)
		if err != nil {
			return nil, err
		}
		if page.Header.Kind == PageInteriorTable {
			child, err := collectSchemaRows(ctx, db, int(cell.LeftChildPage))
			if err != nil {
				return nil, err
			}
			rows = append(rows, child...)
			continue
		}

		rec, err := decodeRecord(cell.Rowid, cell.Payload)
		if err != nil {
			return nil, err
		}
		row, err := schemaRowFromRecord(rec)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	if page.Header.Kind == PageInteriorTable {
		child, err := collectSchemaRows(ctx, db, int(page.Header.RightChildPage))
		if err != nil {
			return nil, err
		}
		rows = append(rows, child...)
	}

	return rows, nil
}

func schemaRowFromRecord(rec Record) (schemaRow, error) {
	if len(rec.Values) < 5 {
		return schemaRow{}, newErr(KindMalformedRecord, "schema_row_from_record", fmt.Errorf("sqlite_schema row has %d columns, want 5", len(rec.Values)), nil)
	}
	rootpage, _ := rec.Values[3].asInt64()
	return schemaRow{
		Type:     rec.Values[0].format(),
		Name:     rec.Values[1].format(),
		TblName:  rec.Values[2].format(),
		RootPage: int(rootpage),
		SQL:      rec.Values[4].format(),
	}, nil
}
