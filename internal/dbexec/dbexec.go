// Package dbexec is the execution boundary of relq.
//
// The core never depends on a specific database product; it depends
// only on the narrow Executor and Introspector contracts defined here.
// Failures surfacing from an executor are opaque pass-throughs: the
// core neither retries, times out, nor reinterprets them - any such
// policy belongs to the caller.
//
// A SQLite-backed implementation (DB) is provided for local use and as
// the reference engine in tests.
package dbexec

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/relquery/relq/internal/dialect"
	"github.com/relquery/relq/internal/joinplan"
	"github.com/relquery/relq/internal/relsql"
)

// Executor runs one statement at a time against an execution target.
type Executor interface {
	// Execute runs a statement. Query statements return rows the caller
	// must close; side-effecting statements return nil rows.
	Execute(ctx context.Context, stmt relsql.Statement) (*sql.Rows, error)

	// Exists reports whether a table with the given name exists.
	Exists(ctx context.Context, table string) (bool, error)

	// Drop removes a table if it exists.
	Drop(ctx context.Context, table string) error
}

// Introspector describes live tables.
type Introspector interface {
	// Describe reads a table's columns, declared types and inferred
	// keys into a description.
	Describe(ctx context.Context, table string) (*joinplan.TableDescription, error)
}

// DB is the SQLite implementation of Executor and Introspector.
type DB struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path (":memory:"
// for an in-memory database).
//
// The connection is configured with WAL mode, a 5-second busy timeout
// and a single-writer pool, which avoids SQLITE_BUSY under concurrent
// use. Idempotent - safe to call for an existing database.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

// SQL returns the underlying sql.DB for direct queries. Prefer the
// Executor methods where they suffice.
func (d *DB) SQL() *sql.DB { return d.db }

// Execute implements Executor.
func (d *DB) Execute(ctx context.Context, stmt relsql.Statement) (*sql.Rows, error) {
	if stmt.Kind == relsql.StatementQuery {
		return d.db.QueryContext(ctx, stmt.SQL)
	}
	if _, err := d.db.ExecContext(ctx, stmt.SQL); err != nil {
		return nil, err
	}
	return nil, nil
}

// Exists implements Executor.
func (d *DB) Exists(ctx context.Context, table string) (bool, error) {
	row := d.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table)
	var count int
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// Drop implements Executor.
func (d *DB) Drop(ctx context.Context, table string) error {
	_, err := d.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+dialect.QuoteANSI(table))
	return err
}

// Describe implements Introspector. Keys are inferred from primary-key
// columns; the abstract key name is the column name itself.
func (d *DB) Describe(ctx context.Context, table string) (*joinplan.TableDescription, error) {
	rows, err := d.db.QueryContext(ctx, "PRAGMA table_info("+dialect.QuoteANSI(table)+")")
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", table, err)
	}
	defer rows.Close()

	desc := &joinplan.TableDescription{
		TableName:  table,
		Keys:       map[string]string{},
		ColClasses: map[string]string{},
	}
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("describe %s: %w", table, err)
		}
		desc.Columns = append(desc.Columns, name)
		desc.ColClasses[name] = ctype
		if pk > 0 {
			desc.Keys[name] = name
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("describe %s: %w", table, err)
	}
	if len(desc.Columns) == 0 {
		return nil, fmt.Errorf("describe %s: table not found", table)
	}
	return desc, nil
}

// RunResult reports one executed statement sequence.
type RunResult struct {
	// RunToken uniquely identifies this run (UUIDv7, time-ordered).
	RunToken string

	// Executed counts the side-effecting statements run before the
	// final query.
	Executed int

	// Rows is the final query's result set; the caller must close it.
	Rows *sql.Rows
}

// RunStatements executes a rendered statement sequence in order. Every
// statement except the last must be side-effecting DDL; the last must be
// the pure SELECT producing the result. Errors abort the run and are
// passed through verbatim.
func RunStatements(ctx context.Context, ex Executor, stmts []relsql.Statement) (*RunResult, error) {
	if len(stmts) == 0 {
		return nil, fmt.Errorf("empty statement sequence")
	}
	result := &RunResult{RunToken: uuid.Must(uuid.NewV7()).String()}
	for _, stmt := range stmts[:len(stmts)-1] {
		if _, err := ex.Execute(ctx, stmt); err != nil {
			return nil, fmt.Errorf("run %s (statement %d of %d): %w", result.RunToken, result.Executed+1, len(stmts), err)
		}
		result.Executed++
	}
	final := stmts[len(stmts)-1]
	if final.Kind != relsql.StatementQuery {
		return nil, fmt.Errorf("final statement must be a query, got %s", final.Kind)
	}
	rows, err := ex.Execute(ctx, final)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", result.RunToken, err)
	}
	result.Rows = rows
	return result, nil
}
