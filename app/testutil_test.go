package main

import (
	"os"
	"testing"
)

// The helpers in this file build minimal, hand-assembled SQLite pages and
// records for the integration tests in database_test.go and
// btree_test.go. Every value used in these tests is small enough to
// round-trip through a single-byte varint, which keeps the encoding
// logic here (and the fixtures built from it) simple and obviously
// correct without needing the full multi-byte varint encoder the
// decoder itself implements.

func encodeVarintSmall(v int64) byte {
	if v < 0 || v > 127 {
		panic("encodeVarintSmall: value out of single-byte range")
	}
	return byte(v)
}

type fieldSpec struct {
	serial int64
	data   []byte
}

func textF(s string) fieldSpec {
	return fieldSpec{serial: 13 + 2*int64(len(s)), data: []byte(s)}
}

func intF(v int64) fieldSpec {
	b := make([]byte, 8)
	u := uint64(v)
	for i := 7; i >= 0; i-- {
		b[i] = byte(u)
		u >>= 8
	}
	return fieldSpec{serial: 6, data: b}
}

func nullF() fieldSpec {
	return fieldSpec{serial: 0}
}

// buildRecordPayload assembles the SQLite record format (header-size
// varint, serial-type varints, column bytes) out of fieldSpecs.
func buildRecordPayload(fields []fieldSpec) []byte {
	var headerBody []byte
	for _, f := range fields {
		headerBody = append(headerBody, encodeVarintSmall(f.serial))
	}
	headerSize := int64(len(headerBody)) + 1
	buf := append([]byte{encodeVarintSmall(headerSize)}, headerBody...)
	for _, f := range fields {
		buf = append(buf, f.data...)
	}
	return buf
}

func buildLeafTableCell(rowid int64, payload []byte) []byte {
	out := []byte{encodeVarintSmall(int64(len(payload))), encodeVarintSmall(rowid)}
	return append(out, payload...)
}

func buildLeafIndexCell(payload []byte) []byte {
	out := []byte{encodeVarintSmall(int64(len(payload)))}
	return append(out, payload...)
}

// buildLeafPageBuf lays out cells back-to-front from the end of a
// page_size buffer, the way SQLite itself allocates cell content, and
// writes the matching cell-pointer array and page header at the front.
// For page 1 it also stamps the 100-byte database header in place.
func buildLeafPageBuf(pageSize, pageNum int, kind PageKind, cells [][]byte) []byte {
	data := make([]byte, pageSize)
	headerStart := 0
	if pageNum == 1 {
		headerStart = headerSize
		copy(data[:16], []byte(magicPrefix))
		be16Put(data[16:18], uint16(pageSize))
	}

	data[headerStart] = byte(kind)
	cursor := pageSize
	offsets := make([]uint16, len(cells))
	for i, c := range cells {
		cursor -= len(c)
		copy(data[cursor:], c)
		offsets[i] = uint16(cursor)
	}
	be16Put(data[headerStart+3:headerStart+5], uint16(len(cells)))
	be16Put(data[headerStart+5:headerStart+7], uint16(cursor))
	data[headerStart+7] = 0

	ptrStart := headerStart + 8
	for i, off := range offsets {
		be16Put(data[ptrStart+i*2:ptrStart+i*2+2], off)
	}
	return data
}

// writeTestDB assembles page1 and any additional pages into a temp file
// and returns its path; the file is removed when the test completes.
func writeTestDB(t *testing.T, pageSize int, page1 []byte, otherPages map[int][]byte) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "test-*.db")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	if _, err := f.WriteAt(page1, 0); err != nil {
		t.Fatalf("write page 1: %v", err)
	}
	for num, buf := range otherPages {
		if _, err := f.WriteAt(buf, int64(num-1)*int64(pageSize)); err != nil {
			t.Fatalf("write page %d: %v", num, err)
		}
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return f.Name()
}

// schemaTableCell builds a sqlite_schema leaf cell describing a CREATE
// TABLE row.
func schemaTableCell(rowid int64, name string, rootpage int64, sql string) []byte {
	payload := buildRecordPayload([]fieldSpec{
		textF("table"), textF(name), textF(name), intF(rootpage), textF(sql),
	})
	return buildLeafTableCell(rowid, payload)
}

// schemaIndexCell builds a sqlite_schema leaf cell describing a CREATE
// INDEX row.
func schemaIndexCell(rowid int64, name, tblName string, rootpage int64, sql string) []byte {
	payload := buildRecordPayload([]fieldSpec{
		textF("index"), textF(name), textF(tblName), intF(rootpage), textF(sql),
	})
	return buildLeafTableCell(rowid, payload)
}
