package main

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"
)

// executePlan runs a resolved QueryPlan to completion and returns every
// matching record. When the plan carries an index it runs the two-phase
// index-assisted lookup of §4.8; otherwise it falls back to a full table
// scan applying the filter (if any) as each leaf record is decoded.
func executePlan(ctx context.Context, db *Database, plan *QueryPlan) ([]Record, error) {
	if plan.CountOnly {
		return countRootPageCells(ctx, db, plan.Table.RootPage)
	}
	if plan.Filter != nil && plan.Index != nil {
		rowids, err := walkIndexCollectRowids(ctx, db, plan.Index.RootPage, plan.Filter)
		if err != nil {
			return nil, err
		}
		sort.Slice(rowids, func(i, j int) bool { return rowids[i] < rowids[j] })
		return tableFetchByRowids(ctx, db, plan.Table.RootPage, rowids)
	}
	return walkTableScan(ctx, db, plan.Table.RootPage, plan.Table, plan.Filter)
}

// countRootPageCells implements the COUNT(*) simplification §4.8 and §9
// require reproducing as-is: it reports the root page's own
// number-of-cells header field rather than recursively summing every leaf
// across the whole tree, and so undercounts a table whose root page is an
// interior page. The caller only consults len() of the returned slice, so
// a slice of that many empty Records stands in for the count.
func countRootPageCells(ctx context.Context, db *Database, rootPage int) ([]Record, error) {
	page, err := db.getPage(ctx, rootPage)
	if err != nil {
		return nil, err
	}
	return make([]Record, page.Header.CellCount), nil
}

// walkTableScan recursively visits every page of a table B-tree,
// decoding each leaf record and, when filter is non-nil, keeping only
// records that satisfy it. Tree purity (§4.2) is enforced at every page:
// a page reached while walking a table's tree must itself be a table
// page.
func walkTableScan(ctx context.Context, db *Database, pageNum int, table *Table, filter *Filter) ([]Record, error) {
	page, err := db.getPage(ctx, pageNum)
	if err != nil {
		return nil, err
	}
	if !page.Header.Kind.isTable() {
		return nil, newErr(KindMalformedTree, "walk_table_scan", fmt.Errorf("page %d in table %q's tree is not a table page", pageNum, table.Name), nil)
	}

	if page.Header.Kind == PageInteriorTable {
		return walkTableScanInterior(ctx, db, page, table, filter)
	}

	var out []Record
	for _, off := range page.CellOffsets {
		cell, err := decodeCell(page, off)
		if err != nil {
			return nil, err
		}
		rec, err := decodeRecord(cell.Rowid, cell.Payload)
		if err != nil {
			return nil, err
		}
		if filter != nil {
			ok, err := recordMatchesFilter(table, rec, filter)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

// walkTableScanInterior fans the scan out across an interior page's
// children concurrently, bounded by the database's configured
// concurrency limit — the children of one page are independent subtrees,
// so decoding them is an easy, order-preserving place to put the worker
// pool the rest of the ambient stack favors over a flat sequential walk.
func walkTableScanInterior(ctx context.Context, db *Database, page *Page, table *Table, filter *Filter) ([]Record, error) {
	children := make([]int, 0, len(page.CellOffsets)+1)
	for _, off := range page.CellOffsets {
		cell, err := decodeCell(page, off)
		if err != nil {
			return nil, err
		}
		children = append(children, int(cell.LeftChildPage))
	}
	children = append(children, int(page.Header.RightChildPage))

	results := make([][]Record, len(children))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(db.cfg.MaxConcurrency)
	for i, childPage := range children {
		i, childPage := i, childPage
		g.Go(func() error {
			recs, err := walkTableScan(gctx, db, childPage, table, filter)
			if err != nil {
				return err
			}
			results[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []Record
	for _, recs := range results {
		out = append(out, recs...)
	}
	return out, nil
}

// walkIndexCollectRowids is phase A of the index-assisted lookup: it
// walks the index B-tree, applying the simplified fan-out rule of §4.8 —
// descend into a child whose separating key either equals the filter
// value or is not text-typed (text keys can disagree with SQLite's
// memcmp collation under a naive Go comparison, so a non-text key is
// always followed rather than risk skipping a match) — and returns every
// rowid found at a leaf cell whose key equals the filter value exactly.
// The right child of an interior index page is always descended once.
func walkIndexCollectRowids(ctx context.Context, db *Database, pageNum int, filter *Filter) ([]int64, error) {
	page, err := db.getPage(ctx, pageNum)
	if err != nil {
		return nil, err
	}
	if !page.Header.Kind.isIndex() {
		return nil, newErr(KindMalformedTree, "walk_index_collect_rowids", fmt.Errorf("page %d in an index tree is not an index page", pageNum), nil)
	}

	var rowids []int64
	for _, off := range page.CellOffsets {
		cell, err := decodeCell(page, off)
		if err != nil {
			return nil, err
		}
		rec, err := decodeRecord(0, cell.Payload)
		if err != nil {
			return nil, err
		}
		if len(rec.Values) == 0 {
			return nil, newErr(KindMalformedRecord, "walk_index_collect_rowids", fmt.Errorf("index record on page %d has no columns", pageNum), nil)
		}
		key := rec.Values[0]

		if page.Header.Kind == PageInteriorIndex {
			if keyMayMatch(key, filter.Value) {
				child, err := walkIndexCollectRowids(ctx, db, int(cell.LeftChildPage), filter)
				if err != nil {
					return nil, err
				}
				rowids = append(rowids, child...)
			}
			continue
		}

		if valuesEqual(key, filter.Value) {
			rowid, ok := rec.Values[len(rec.Values)-1].asInt64()
			if !ok {
				return nil, newErr(KindMalformedRecord, "walk_index_collect_rowids", fmt.Errorf("index leaf record on page %d has no trailing rowid", pageNum), nil)
			}
			rowids = append(rowids, rowid)
		}
	}

	if page.Header.Kind == PageInteriorIndex {
		child, err := walkIndexCollectRowids(ctx, db, int(page.Header.RightChildPage), filter)
		if err != nil {
			return nil, err
		}
		rowids = append(rowids, child...)
	}
	return rowids, nil
}

// tableFetchByRowids is phase B of the index-assisted lookup: a single
// pass over the table B-tree that partitions the sorted rowid slice from
// phase A (duplicates are kept) at each interior cell's key, descending only
// into subtrees that can still contain a pending rowid, and binary
// searching at each leaf.
func tableFetchByRowids(ctx context.Context, db *Database, pageNum int, pending []int64) ([]Record, error) {
	if len(pending) == 0 {
		return nil, nil
	}

	page, err := db.getPage(ctx, pageNum)
	if err != nil {
		return nil, err
	}
	if !page.Header.Kind.isTable() {
		return nil, newErr(KindMalformedTree, "table_fetch_by_rowids", fmt.Errorf("page %d in the table's tree is not a table page", pageNum), nil)
	}

	if page.Header.Kind == PageLeafTable {
		var out []Record
		for _, off := range page.CellOffsets {
			cell, err := decodeCell(page, off)
			if err != nil {
				return nil, err
			}
			if !rowidPending(pending, cell.Rowid) {
				continue
			}
			rec, err := decodeRecord(cell.Rowid, cell.Payload)
			if err != nil {
				return nil, err
			}
			out = append(out, rec)
		}
		return out, nil
	}

	var out []Record
	remaining := pending
	for _, off := range page.CellOffsets {
		if len(remaining) == 0 {
			break
		}
		cell, err := decodeCell(page, off)
		if err != nil {
			return nil, err
		}
		split := sort.Search(len(remaining), func(i int) bool { return remaining[i] > cell.Key })
		if split > 0 {
			child, err := tableFetchByRowids(ctx, db, int(cell.LeftChildPage), remaining[:split])
			if err != nil {
				return nil, err
			}
			out = append(out, child...)
		}
		remaining = remaining[split:]
	}
	if len(remaining) > 0 {
		child, err := tableFetchByRowids(ctx, db, int(page.Header.RightChildPage), remaining)
		if err != nil {
			return nil, err
		}
		out = append(out, child...)
	}
	return out, nil
}

func rowidPending(sorted []int64, rowid int64) bool {
	i := sort.Search(len(sorted), func(i int) bool { return sorted[i] >= rowid })
	return i < len(sorted) && sorted[i] == rowid
}

// recordMatchesFilter evaluates a single `column = literal` predicate
// against a decoded table row. A filter against an INTEGER PRIMARY KEY
// column compares against the cell's rowid rather than its record value,
// since SQLite stores such a column as NULL in the record itself (§4.5).
func recordMatchesFilter(table *Table, rec Record, filter *Filter) (bool, error) {
	pos, col, ok := table.FindColumn(filter.Column)
	if !ok {
		return false, newErr(KindUnknownColumn, "record_matches_filter", fmt.Errorf("no such column: %s", filter.Column), nil)
	}
	if col.IsPrimaryKey {
		return valuesEqual(ColumnValue{Kind: ValInt, Int: rec.Rowid}, filter.Value), nil
	}
	if pos >= len(rec.Values) {
		return false, nil
	}
	return valuesEqual(rec.Values[pos], filter.Value), nil
}

// keyMayMatch decides whether an index interior separator key could lead
// to the filter value: exact equality always qualifies, and so does any
// non-text separating key, per the simplified fan-out rule documented on
// walkIndexCollectRowids. The fan-out decision is keyed off the
// separating key's own kind, not the filter literal's — the filter
// literal is always text (§4.6's only literal syntax is a quoted
// string), so keying off it would prune every non-text-indexed column's
// interior pages outright.
func keyMayMatch(key, want ColumnValue) bool {
	if key.Kind != ValText {
		return true
	}
	return valuesEqual(key, want)
}

// valuesEqual compares a decoded column value against a filter literal by
// the same rule the result formatter renders with: both sides are
// stringified via format() and compared as text, so "WHERE id = '3'"
// matches an INTEGER PRIMARY KEY column holding 3 and "WHERE price =
// '1.5'" matches a REAL column holding 1.5, exactly as the original
// implementation's format!("{}", value) == filter.value comparison does.
func valuesEqual(a, want ColumnValue) bool {
	return a.format() == want.format()
}
