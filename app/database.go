package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
)

// Database owns the one open file handle, the parsed header, and the
// schema store for a SQLite file opened for read-only querying. It is
// created once at Open and lives for the process; a query holds it for
// the duration of one command (§5: synchronous, single query at a time).
type Database struct {
	file     *os.File
	header   DatabaseHeader
	pageSize int
	schema   *SchemaStore
	cfg      *EngineConfig
	log      *slog.Logger
	rm       *ResourceManager
}

// Open parses the database header, validates it, and loads the schema
// from page 1.
func Open(path string, opts ...EngineOption) (*Database, error) {
	cfg := DefaultEngineConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, newErr(KindIO, "open", err, map[string]interface{}{"path": path})
	}

	rm := NewResourceManager()
	rm.Add(f)

	logger := newLogger(cfg, nil).With("db_id", uuid.NewString())

	db := &Database{file: f, cfg: cfg, log: logger, rm: rm}

	if err := db.readHeader(); err != nil {
		rm.Close()
		return nil, err
	}

	schema, err := loadSchema(context.Background(), db)
	if err != nil {
		rm.Close()
		return nil, err
	}
	db.schema = schema

	return db, nil
}

// Close releases the underlying file handle.
func (db *Database) Close() error {
	return db.rm.Close()
}

// PageSize returns the database's page size in bytes.
func (db *Database) PageSize() int {
	return db.pageSize
}

// Schema returns the loaded schema store.
func (db *Database) Schema() *SchemaStore {
	return db.schema
}

func (db *Database) readHeader() error {
	buf := make([]byte, headerSize)
	if _, err := db.file.ReadAt(buf, 0); err != nil {
		return newErr(KindIO, "read_header", err, nil)
	}

	var hdr DatabaseHeader
	copy(hdr.Magic[:], buf[:16])
	hdr.PageSize = be16(buf[16:18])

	if !hdr.IsValidMagic() {
		return newErr(KindInvalidMagic, "read_header", fmt.Errorf("magic prefix mismatch"), nil)
	}

	pageSize := int(hdr.PageSize)
	if pageSize < 512 || pageSize > 65536 || (pageSize&(pageSize-1)) != 0 {
		return newErr(KindMalformedPage, "read_header", fmt.Errorf("page size %d is not a power of two between 512 and 65536", pageSize), nil)
	}

	db.header = hdr
	db.pageSize = pageSize
	db.log.Debug("parsed database header", "page_size", pageSize)
	return nil
}

// getPage loads page n (1-based) and parses its header and cell-pointer
// array. Page 1 is handled specially per parsePage: the first 100 bytes
// of its buffer are the database header, so the B-tree header within it
// starts at byte 100.
func (db *Database) getPage(ctx context.Context, n int) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, newErr(KindIO, "get_page", err, nil)
	}
	if n < 1 {
		return nil, newErr(KindMalformedPage, "get_page", fmt.Errorf("page number %d is not positive", n), nil)
	}

	offset := int64(n-1) * int64(db.pageSize)
	buf := make([]byte, db.pageSize)
	read, err := db.file.ReadAt(buf, offset)
	if err != nil && read != db.pageSize {
		return nil, newErr(KindIO, "get_page", err, map[string]interface{}{"page": n, "offset": offset})
	}

	page, err := parsePage(buf, n, db.pageSize)
	if err != nil {
		return nil, err
	}
	db.log.Debug("loaded page", "page", n, "kind", page.Header.Kind, "cells", page.Header.CellCount)
	return page, nil
}
