package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xwb1989/sqlparser"
)

// parseCreateTableColumns parses a CREATE TABLE statement's column list.
// sqlparser speaks MySQL grammar, not SQLite's, so the SQL is normalized
// first; this mirrors the teacher's normalizeSQLiteToMySQL pre-pass.
func parseCreateTableColumns(sql string) ([]Column, error) {
	stmt, err := sqlparser.Parse(normalizeSQLiteToMySQL(sql))
	if err != nil {
		return nil, fmt.Errorf("parse create table: %w", err)
	}

	ddl, ok := stmt.(*sqlparser.DDL)
	if !ok || ddl.Action != "create" || ddl.TableSpec == nil {
		return nil, fmt.Errorf("not a CREATE TABLE statement: %q", sql)
	}

	lowerSQL := strings.ToLower(sql)

	columns := make([]Column, len(ddl.TableSpec.Columns))
	for i, col := range ddl.TableSpec.Columns {
		isAutoIncrement := bool(col.Type.Autoincrement)
		isInteger := strings.EqualFold(col.Type.Type, "integer")
		// sqlparser's column type only exposes AUTOINCREMENT, not a bare
		// PRIMARY KEY constraint, so "INTEGER PRIMARY KEY" without
		// AUTOINCREMENT (the common rowid-alias spelling) is detected by
		// scanning the original declaration text instead.
		isIntPK := isInteger && (isAutoIncrement || strings.Contains(lowerSQL, strings.ToLower(col.Name.String())+" integer primary key"))
		columns[i] = Column{
			Name:         col.Name.String(),
			Type:         col.Type.Type,
			IsPrimaryKey: isIntPK,
		}
	}
	return columns, nil
}

// normalizeSQLiteToMySQL rewrites just enough SQLite syntax that
// sqlparser's MySQL-flavored grammar will accept it: SQLite's double
// quoted identifiers and "PRIMARY KEY AUTOINCREMENT" column modifier.
func normalizeSQLiteToMySQL(sql string) string {
	normalized := strings.ReplaceAll(sql, `"`, "")
	normalized = strings.ReplaceAll(normalized, "primary key autoincrement", "AUTO_INCREMENT PRIMARY KEY")
	normalized = strings.ReplaceAll(normalized, "PRIMARY KEY AUTOINCREMENT", "AUTO_INCREMENT PRIMARY KEY")
	return strings.TrimSpace(normalized)
}

// parseCreateIndexColumns extracts the parenthesized, comma-separated
// column list of a CREATE INDEX statement. sqlparser has no CREATE INDEX
// support at all, so this is a small hand-rolled parser rather than an
// adaptation of one of sqlparser's grammars.
func parseCreateIndexColumns(sql string) ([]string, error) {
	start := strings.Index(sql, "(")
	end := strings.LastIndex(sql, ")")
	if start == -1 || end == -1 || start >= end {
		return nil, fmt.Errorf("no parenthesized column list in %q", sql)
	}

	parts := strings.Split(sql[start+1:end], ",")
	columns := make([]string, len(parts))
	for i, p := range parts {
		col := strings.TrimSpace(p)
		col = strings.Trim(col, `"`+"`")
		if sp := strings.IndexAny(col, " \t"); sp != -1 {
			col = col[:sp] // drop ASC/DESC/COLLATE qualifiers
		}
		columns[i] = col
	}
	return columns, nil
}

// ParsedSelect is the normalized shape of every SELECT this engine can
// execute: a table name, either a COUNT(*) or an explicit field list, and
// an optional single equality filter against a literal.
type ParsedSelect struct {
	TableName string
	CountStar bool
	Fields    []string // empty when CountStar is true
	Filter    *Filter
}

// Filter is a single `column = literal` WHERE clause. The engine supports
// no other predicate shape (§4.6).
type Filter struct {
	Column string
	Value  ColumnValue
}

// parseSelect parses a SELECT statement into a ParsedSelect, or returns a
// KindParseError/KindUnsupported EngineError for anything outside the
// supported grammar.
func parseSelect(sql string) (*ParsedSelect, error) {
	stmt, err := sqlparser.Parse(sql)
	if err != nil {
		return nil, newErr(KindParseError, "parse_select", err, map[string]interface{}{"sql": sql})
	}

	sel, ok := stmt.(*sqlparser.Select)
	if !ok {
		return nil, newErr(KindUnsupported, "parse_select", fmt.Errorf("statement is not a SELECT"), nil)
	}
	if len(sel.From) != 1 {
		return nil, newErr(KindUnsupported, "parse_select", fmt.Errorf("only single-table SELECT is supported"), nil)
	}
	aliased, ok := sel.From[0].(*sqlparser.AliasedTableExpr)
	if !ok {
		return nil, newErr(KindUnsupported, "parse_select", fmt.Errorf("unsupported FROM clause"), nil)
	}
	tblName, ok := aliased.Expr.(sqlparser.TableName)
	if !ok {
		return nil, newErr(KindUnsupported, "parse_select", fmt.Errorf("unsupported FROM clause"), nil)
	}

	if len(sel.OrderBy) > 0 {
		return nil, newErr(KindUnsupported, "parse_select", fmt.Errorf("ORDER BY is not supported"), nil)
	}

	out := &ParsedSelect{TableName: tblName.Name.String()}

	if err := parseSelectExprs(sel.SelectExprs, out); err != nil {
		return nil, err
	}

	if sel.Where != nil {
		filter, err := parseWhereFilter(sel.Where.Expr)
		if err != nil {
			return nil, err
		}
		out.Filter = filter
	}

	return out, nil
}

func parseSelectExprs(exprs sqlparser.SelectExprs, out *ParsedSelect) error {
	if len(exprs) == 1 {
		if aliased, ok := exprs[0].(*sqlparser.AliasedExpr); ok {
			if fn, ok := aliased.Expr.(*sqlparser.FuncExpr); ok && strings.EqualFold(fn.Name.String(), "count") {
				out.CountStar = true
				return nil
			}
		}
	}

	for _, e := range exprs {
		aliased, ok := e.(*sqlparser.AliasedExpr)
		if !ok {
			return newErr(KindUnsupported, "parse_select_exprs", fmt.Errorf("unsupported select expression"), nil)
		}
		colName, ok := aliased.Expr.(*sqlparser.ColName)
		if !ok {
			return newErr(KindUnsupported, "parse_select_exprs", fmt.Errorf("only plain column references are supported"), nil)
		}
		out.Fields = append(out.Fields, colName.Name.String())
	}
	return nil
}

func parseWhereFilter(expr sqlparser.Expr) (*Filter, error) {
	cmp, ok := expr.(*sqlparser.ComparisonExpr)
	if !ok || cmp.Operator != sqlparser.EqualStr {
		return nil, newErr(KindUnsupported, "parse_where_filter", fmt.Errorf("only a single column = literal predicate is supported"), nil)
	}
	colName, ok := cmp.Left.(*sqlparser.ColName)
	if !ok {
		return nil, newErr(KindUnsupported, "parse_where_filter", fmt.Errorf("left side of WHERE must be a column"), nil)
	}
	val, ok := cmp.Right.(*sqlparser.SQLVal)
	if !ok {
		return nil, newErr(KindUnsupported, "parse_where_filter", fmt.Errorf("right side of WHERE must be a literal"), nil)
	}

	var cv ColumnValue
	switch val.Type {
	case sqlparser.StrVal:
		cv = ColumnValue{Kind: ValText, Bytes: val.Val}
	case sqlparser.IntVal:
		n, err := strconv.ParseInt(string(val.Val), 10, 64)
		if err != nil {
			return nil, newErr(KindParseError, "parse_where_filter", err, nil)
		}
		cv = ColumnValue{Kind: ValInt, Int: n}
	default:
		return nil, newErr(KindUnsupported, "parse_where_filter", fmt.Errorf("unsupported literal type in WHERE"), nil)
	}

	return &Filter{Column: colName.Name.String(), Value: cv}, nil
}
