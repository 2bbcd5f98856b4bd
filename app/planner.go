package main

import "fmt"

// SelectField is one resolved output column: either the position of a
// column in the table's record, or the special rowid alias (§4.5 — an
// INTEGER PRIMARY KEY column is not stored in the record and must be
// rendered from the cell's key instead).
type SelectField struct {
	Name     string
	Position int
	IsRowid  bool
}

// QueryPlan is the fully resolved shape of one query: which table, which
// output columns, and how rows will be located — either a full scan or,
// when an index covers the filter column, an index-assisted lookup.
type QueryPlan struct {
	Table        *Table
	CountOnly    bool
	SelectFields []SelectField
	Filter       *Filter
	Index        *Index // nil unless the filter column has an applicable index
}

// planSelect resolves a ParsedSelect against the loaded schema into an
// executable QueryPlan. Column names are resolved case-insensitively;
// unknown tables or columns are reported as such rather than as generic
// parse errors, per §7's error taxonomy.
func planSelect(schema *SchemaStore, sel *ParsedSelect) (*QueryPlan, error) {
	table, ok := schema.Table(sel.TableName)
	if !ok {
		return nil, newErr(KindUnknownTable, "plan_select", fmt.Errorf("no such table: %s", sel.TableName), nil)
	}

	plan := &QueryPlan{Table: table, CountOnly: sel.CountStar, Filter: sel.Filter}

	if !sel.CountStar {
		fields, err := resolveSelectFields(table, sel.Fields)
		if err != nil {
			return nil, err
		}
		plan.SelectFields = fields
	}

	if sel.Filter != nil {
		if _, _, ok := table.FindColumn(sel.Filter.Column); !ok {
			return nil, newErr(KindUnknownColumn, "plan_select", fmt.Errorf("no such column: %s", sel.Filter.Column), nil)
		}
		plan.Index = table.FindApplicableIndex(sel.Filter.Column)
	}

	return plan, nil
}

func resolveSelectFields(table *Table, names []string) ([]SelectField, error) {
	fields := make([]SelectField, len(names))
	for i, name := range names {
		pos, col, ok := table.FindColumn(name)
		if !ok {
			return nil, newErr(KindUnknownColumn, "resolve_select_fields", fmt.Errorf("no such column: %s", name), nil)
		}
		fields[i] = SelectField{Name: col.Name, Position: pos, IsRowid: col.IsPrimaryKey}
	}
	return fields, nil
}
