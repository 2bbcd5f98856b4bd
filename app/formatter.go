package main

import (
	"fmt"
	"strings"
)

// formatRows renders the records selected by a query plan into SQLite
// CLI-compatible output lines: one line per record, columns joined by
// '|'. A field flagged IsRowid in the plan renders the cell's rowid
// rather than the (NULL) stored record value, since an INTEGER PRIMARY
// KEY column is a rowid alias.
func formatRows(plan *QueryPlan, rows []Record) []string {
	lines := make([]string, len(rows))
	for i, rec := range rows {
		parts := make([]string, len(plan.SelectFields))
		for j, field := range plan.SelectFields {
			if field.IsRowid {
				parts[j] = fmt.Sprintf("%d", rec.Rowid)
				continue
			}
			if field.Position < len(rec.Values) {
				parts[j] = rec.Values[field.Position].format()
			} else {
				parts[j] = "NULL"
			}
		}
		lines[i] = strings.Join(parts, "|")
	}
	return lines
}
