package journal

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// sqliteSink persists journal rows to a SQLite database via
// modernc.org/sqlite, a pure-Go driver needing no cgo toolchain.
type sqliteSink struct {
	db *sql.DB
}

// NewSQLiteSink opens (creating if absent) a SQLite journal database at
// path and prepares its two tables.
func NewSQLiteSink(path string) (Sink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open sqlite %s: %w", path, err)
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &sqliteSink{db: db}, nil
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS functions (
			signature_name TEXT NOT NULL,
			class_name     TEXT NOT NULL,
			phase          TEXT NOT NULL,
			payload        BLOB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS classes (
			name    TEXT NOT NULL,
			kind    TEXT NOT NULL,
			payload BLOB NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("journal: create table: %w", err)
		}
	}
	return nil
}

func (s *sqliteSink) RecordFunction(r *FunctionRecord) error {
	payload, err := MarshalFunctionRecord(r)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO functions (signature_name, class_name, phase, payload) VALUES (?, ?, ?, ?)`,
		r.SignatureName, r.ClassName, r.Phase, payload,
	)
	return err
}

func (s *sqliteSink) RecordClass(r *ClassRecord) error {
	payload, err := MarshalClassRecord(r)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO classes (name, kind, payload) VALUES (?, ?, ?)`,
		r.Name, r.Kind, payload,
	)
	return err
}

func (s *sqliteSink) Close() error {
	return s.db.Close()
}
