package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// Usage: sqlitereader <database file> <command>
// <command> is either a dot-command (.dbinfo, .tables) or a SQL
// statement, passed as the remaining arguments joined with spaces.
func main() {
	if err := runProgram(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runProgram is the CLI entry point split out from main so it can be
// driven directly from tests without forking a process.
func runProgram(args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: %s <database file> <command>", programName(args))
	}

	dbPath := args[1]
	command := strings.Join(args[2:], " ")

	db, err := Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch {
	case command == ".dbinfo":
		return runDBInfo(db)
	case command == ".tables":
		return runTables(db)
	default:
		return runSQL(ctx, db, command)
	}
}

func programName(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "sqlitereader"
}

func runDBInfo(db *Database) error {
	fmt.Printf("database page size: %v\n", db.PageSize())
	fmt.Printf("number of tables: %v\n", len(db.Schema().UserTables()))
	return nil
}

func runTables(db *Database) error {
	for _, t := range db.Schema().UserTables() {
		fmt.Println(t.Name)
	}
	return nil
}

func runSQL(ctx context.Context, db *Database, sql string) error {
	parsed, err := parseSelect(sql)
	if err != nil {
		return err
	}
	plan, err := planSelect(db.Schema(), parsed)
	if err != nil {
		return err
	}

	rows, err := executePlan(ctx, db, plan)
	if err != nil {
		return err
	}

	if plan.CountOnly {
		fmt.Println(len(rows))
		return nil
	}

	for _, line := range formatRows(plan, rows) {
		fmt.Println(line)
	}
	return nil
}
