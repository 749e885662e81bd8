package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"
)

// Matches the DDL of existing ledgerdb.sqlite files.
const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS Children (
		id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT UNIQUE,
		name TEXT UNIQUE
	);

	CREATE TABLE IF NOT EXISTS Workbooks (
		id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT UNIQUE,
		name TEXT
	);

	CREATE TABLE IF NOT EXISTS Members (
		children_id INTEGER NOT NULL REFERENCES Children(id),
		workbooks_id INTEGER NOT NULL REFERENCES Workbooks(id),
		completed INTEGER,
		date TEXT,
		PRIMARY KEY (children_id, workbooks_id)
	);

	CREATE TABLE IF NOT EXISTS Account (
		id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT UNIQUE,
		children_id INTEGER REFERENCES Children(id),
		date TEXT,
		description TEXT,
		amount FLOAT
	);

	-- Dashboard hot path: one child's transactions in date order
	CREATE INDEX IF NOT EXISTS idx_account_children_date
		ON Account(children_id, date);
`

// NewSQLite opens (creating if needed) a SQLite database file.
// Use ":memory:" for an in-memory database.
func NewSQLite(dbPath string) (*Store, error) {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	db, err := sql.Open(DriverSQLite, dbPath+sep+"_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	return open(dialect{
		driver:   DriverSQLite,
		schema:   sqliteSchema,
		rebind:   func(q string) string { return q },
		classify: classifySQLite,
	}, db)
}

func classifySQLite(err error) constraintKind {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return constraintNone
	}
	switch se.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		return constraintUnique
	case sqlite3.ErrConstraintForeignKey:
		return constraintForeignKey
	}
	return constraintNone
}
