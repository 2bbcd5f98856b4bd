package main

import (
	"context"
	"testing"
)

func TestValuesEqualTextAndNumeric(t *testing.T) {
	if !valuesEqual(ColumnValue{Kind: ValText, Bytes: []byte("Red")}, ColumnValue{Kind: ValText, Bytes: []byte("Red")}) {
		t.Error("identical text values should be equal")
	}
	if valuesEqual(ColumnValue{Kind: ValText, Bytes: []byte("Red")}, ColumnValue{Kind: ValText, Bytes: []byte("Blue")}) {
		t.Error("different text values should not be equal")
	}
	if !valuesEqual(ColumnValue{Kind: ValOne}, ColumnValue{Kind: ValInt, Int: 1}) {
		t.Error("the ValOne constant should compare equal to the integer 1")
	}
	if !valuesEqual(ColumnValue{Kind: ValFloat, Float: 2.0}, ColumnValue{Kind: ValInt, Int: 2}) {
		t.Error("2.0 and 2 should compare equal across kinds")
	}
}

func TestKeyMayMatchNonTextAlwaysDescends(t *testing.T) {
	if !keyMayMatch(ColumnValue{Kind: ValInt, Int: 999}, ColumnValue{Kind: ValInt, Int: 1}) {
		t.Error("a non-text key should always be a candidate to descend into")
	}
	if keyMayMatch(ColumnValue{Kind: ValText, Bytes: []byte("Zebra")}, ColumnValue{Kind: ValText, Bytes: []byte("Red")}) {
		t.Error("a mismatched text key should not be a candidate to descend into")
	}
	// A real WHERE literal is always text (§4.6), so an index over an
	// integer column must be keyed off the separating key's own kind, not
	// the literal's — otherwise every interior page of that index would
	// be pruned because the (always-text) literal looks text-typed.
	if !keyMayMatch(ColumnValue{Kind: ValInt, Int: 42}, ColumnValue{Kind: ValText, Bytes: []byte("42")}) {
		t.Error("an integer-keyed interior page must always be descended even though the filter literal is text")
	}
}

func TestValuesEqualQuotedLiteralAgainstIntegerColumn(t *testing.T) {
	// WHERE id = '3' against an INTEGER PRIMARY KEY column: the only
	// literal syntax the grammar supports is a quoted string, so this is
	// the canonical shape a rowid-alias filter actually arrives in.
	if !valuesEqual(ColumnValue{Kind: ValInt, Int: 3}, ColumnValue{Kind: ValText, Bytes: []byte("3")}) {
		t.Error("a quoted integer literal should match the equivalent INTEGER column value")
	}
	if valuesEqual(ColumnValue{Kind: ValInt, Int: 4}, ColumnValue{Kind: ValText, Bytes: []byte("3")}) {
		t.Error("a quoted integer literal should not match a different INTEGER column value")
	}
}

func TestRowidPending(t *testing.T) {
	sorted := []int64{1, 3, 7, 20}
	if !rowidPending(sorted, 7) {
		t.Error("7 is in the sorted set and should be pending")
	}
	if rowidPending(sorted, 4) {
		t.Error("4 is not in the sorted set and should not be pending")
	}
}

// buildApplesDatabase assembles a three-page database: page 1 is the
// schema (table "apples" rooted at page 2 plus an index "idx_color"
// rooted at page 3), page 2 is the table's single leaf data page, page 3
// is the index's single leaf page.
func buildApplesDatabase(t *testing.T) string {
	t.Helper()
	const pageSize = 512

	tableCell := schemaTableCell(1, "apples", 2, "CREATE TABLE apples (id INTEGER PRIMARY KEY, color TEXT)")
	indexCell := schemaIndexCell(2, "idx_color", "apples", 3, "CREATE INDEX idx_color ON apples (color)")
	page1 := buildLeafPageBuf(pageSize, 1, PageLeafTable, [][]byte{tableCell, indexCell})

	row1 := buildLeafTableCell(1, buildRecordPayload([]fieldSpec{nullF(), textF("Red")}))
	row2 := buildLeafTableCell(2, buildRecordPayload([]fieldSpec{nullF(), textF("Green")}))
	row3 := buildLeafTableCell(3, buildRecordPayload([]fieldSpec{nullF(), textF("Red")}))
	page2 := buildLeafPageBuf(pageSize, 2, PageLeafTable, [][]byte{row1, row2, row3})

	idx1 := buildLeafIndexCell(buildRecordPayload([]fieldSpec{textF("Green"), intF(2)}))
	idx2 := buildLeafIndexCell(buildRecordPayload([]fieldSpec{textF("Red"), intF(1)}))
	idx3 := buildLeafIndexCell(buildRecordPayload([]fieldSpec{textF("Red"), intF(3)}))
	page3 := buildLeafPageBuf(pageSize, 3, PageLeafIndex, [][]byte{idx1, idx2, idx3})

	return writeTestDB(t, pageSize, page1, map[int][]byte{2: page2, 3: page3})
}

func TestIndexAssistedLookupFindsAllMatchingRowids(t *testing.T) {
	db, err := Open(buildApplesDatabase(t))
	if err != nil {
		t.Fatalf("Open error = %v", err)
	}
	defer db.Close()

	table, _ := db.Schema().Table("apples")
	idx := table.FindApplicableIndex("color")
	if idx == nil {
		t.Fatal("expected idx_color to be found")
	}

	filter := &Filter{Column: "color", Value: ColumnValue{Kind: ValText, Bytes: []byte("Red")}}
	rowids, err := walkIndexCollectRowids(context.Background(), db, idx.RootPage, filter)
	if err != nil {
		t.Fatalf("walkIndexCollectRowids error = %v", err)
	}
	if len(rowids) != 2 {
		t.Fatalf("rowids = %v, want 2 entries", rowids)
	}

	rows, err := tableFetchByRowids(context.Background(), db, table.RootPage, []int64{1, 3})
	if err != nil {
		t.Fatalf("tableFetchByRowids error = %v", err)
	}
	if len(rows) != 2 || rows[0].Rowid != 1 || rows[1].Rowid != 3 {
		t.Fatalf("rows = %+v, want rowids [1 3]", rows)
	}
}

func TestExecutePlanUsesIndexWhenAvailable(t *testing.T) {
	db, err := Open(buildApplesDatabase(t))
	if err != nil {
		t.Fatalf("Open error = %v", err)
	}
	defer db.Close()

	parsed, err := parseSelect("SELECT id FROM apples WHERE color = 'Red'")
	if err != nil {
		t.Fatalf("parseSelect error = %v", err)
	}
	plan, err := planSelect(db.Schema(), parsed)
	if err != nil {
		t.Fatalf("planSelect error = %v", err)
	}
	if plan.Index == nil {
		t.Fatal("expected the planner to pick idx_color")
	}

	rows, err := executePlan(context.Background(), db, plan)
	if err != nil {
		t.Fatalf("executePlan error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %+v, want 2 matches", rows)
	}
}

func TestWalkTableScanRejectsImpureTree(t *testing.T) {
	db, err := Open(buildApplesDatabase(t))
	if err != nil {
		t.Fatalf("Open error = %v", err)
	}
	defer db.Close()

	table, _ := db.Schema().Table("apples")
	// Page 3 is an index page; walking it as a table tree must fail.
	if _, err := walkTableScan(context.Background(), db, 3, table, nil); err == nil {
		t.Fatal("walkTableScan over an index page should error")
	} else if !IsKind(err, KindMalformedTree) {
		t.Errorf("expected KindMalformedTree, got %v", err)
	}
}

func TestWalkIndexCollectRowidsRejectsImpureTree(t *testing.T) {
	db, err := Open(buildApplesDatabase(t))
	if err != nil {
		t.Fatalf("Open error = %v", err)
	}
	defer db.Close()

	filter := &Filter{Column: "color", Value: ColumnValue{Kind: ValText, Bytes: []byte("Red")}}
	// Page 2 is a table page; walking it as an index tree must fail.
	if _, err := walkIndexCollectRowids(context.Background(), db, 2, filter); err == nil {
		t.Fatal("walkIndexCollectRowids over a table page should error")
	} else if !IsKind(err, KindMalformedTree) {
		t.Errorf("expected KindMalformedTree, got %v", err)
	}
}
