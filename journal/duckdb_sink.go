package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb"
)

// duckdbSink persists journal rows to a DuckDB database via
// github.com/marcboeker/go-duckdb, for operators who want to run
// analytical queries over a build's journal alongside other DuckDB
// tables.
type duckdbSink struct {
	db *sql.DB
}

// NewDuckDBSink opens (creating if absent) a DuckDB journal database at
// path and prepares its two tables.
func NewDuckDBSink(path string) (Sink, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open duckdb %s: %w", path, err)
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &duckdbSink{db: db}, nil
}

func (s *duckdbSink) RecordFunction(r *FunctionRecord) error {
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

func (s *duckdbSink) RecordClass(r *ClassRecord) error {
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

func (s *duckdbSink) Close() error {
	return s.db.Close()
}

// NewSink selects a Sink implementation by driver name ("sqlite" or
// "duckdb"), per the --journal-driver flag (SPEC_FULL.md §6.3).
func NewSink(driver, path string) (Sink, error) {
	switch driver {
	case "sqlite":
		return NewSQLiteSink(path)
	case "duckdb":
		return NewDuckDBSink(path)
	default:
		return nil, fmt.Errorf("journal: unknown driver %q", driver)
	}
}
