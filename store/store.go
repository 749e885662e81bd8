/*
Package store provides the database/sql implementation of ledger.Store.

PURPOSE:
  Implements every ledger.Store method with parameterized SQL. The same
  queries run on SQLite (default) and PostgreSQL; a small dialect value
  carries the schema, placeholder style and constraint error mapping.

KEY TABLES:
  Children:  id, name (UNIQUE)
  Workbooks: id, name
  Members:   children_id, workbooks_id, completed, date
             PRIMARY KEY (children_id, workbooks_id)
  Account:   id, children_id, date, description, amount

  Table and column names are the ones existing ledgerdb.sqlite files use.
  Migration only creates missing tables, it never alters existing ones.

UNIQUENESS:
  Duplicate child names and duplicate completions are detected from the
  constraint violation raised by the INSERT itself, so two concurrent
  requests cannot both succeed.

CONNECTIONS:
  database/sql hands each query its own pooled connection and returns it
  when the query (or its rows) is closed. SQLite is limited to one open
  connection: one writer at a time, and ":memory:" stays one database.

USAGE:
  st, err := store.NewSQLite("./ledgerdb.sqlite")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

  l := ledger.New(st)

SEE ALSO:
  - sqlite.go:   SQLite dialect
  - postgres.go: PostgreSQL dialect
  - ledger/store.go: Interface definition
*/
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/kidledger/ledger"
)

// Supported driver names.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

type constraintKind int

const (
	constraintNone constraintKind = iota
	constraintUnique
	constraintForeignKey
)

type dialect struct {
	driver   string
	schema   string
	rebind   func(query string) string
	classify func(err error) constraintKind
}

// Store implements ledger.Store on a SQL database.
type Store struct {
	db      *sql.DB
	dialect dialect
}

var _ ledger.Store = (*Store)(nil)

// New opens a store for the given driver ("sqlite3" or "postgres").
func New(driver, dsn string) (*Store, error) {
	switch driver {
	case DriverSQLite:
		return NewSQLite(dsn)
	case DriverPostgres:
		return NewPostgres(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func open(d dialect, db *sql.DB) (*Store, error) {
	s := &Store{db: db, dialect: d}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Driver returns the database/sql driver name in use.
func (s *Store) Driver() string {
	return s.dialect.driver
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(s.dialect.schema)
	return err
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &ledger.StorageError{Op: "ping", Err: err}
	}
	return nil
}

// =============================================================================
// CHILDREN
// =============================================================================

func (s *Store) ListChildren(ctx context.Context) ([]ledger.Child, error) {
	rows, err := s.db.QueryContext(ctx, s.q("SELECT id, name FROM Children ORDER BY id"))
	if err != nil {
		return nil, &ledger.StorageError{Op: "list children", Err: err}
	}
	defer rows.Close()

	children := []ledger.Child{}
	for rows.Next() {
		c, err := scanChild(rows)
		if err != nil {
			return nil, &ledger.StorageError{Op: "list children", Err: err}
		}
		children = append(children, c)
	}
	if err := rows.Err(); err != nil {
		return nil, &ledger.StorageError{Op: "list children", Err: err}
	}
	return children, nil
}

func (s *Store) GetChild(ctx context.Context, id ledger.ChildID) (ledger.Child, error) {
	row := s.db.QueryRowContext(ctx, s.q("SELECT id, name FROM Children WHERE id = ?"), int64(id))
	return s.oneChild(row, "get child")
}

func (s *Store) GetChildByName(ctx context.Context, name string) (ledger.Child, error) {
	row := s.db.QueryRowContext(ctx, s.q("SELECT id, name FROM Children WHERE name = ?"), name)
	return s.oneChild(row, "get child by name")
}

func (s *Store) oneChild(row *sql.Row, op string) (ledger.Child, error) {
	c, err := scanChild(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Child{}, ledger.ErrChildNotFound
	}
	if err != nil {
		return ledger.Child{}, &ledger.StorageError{Op: op, Err: err}
	}
	return c, nil
}

func (s *Store) InsertChild(ctx context.Context, name string) (ledger.Child, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		s.q("INSERT INTO Children (name) VALUES (?) RETURNING id"), name,
	).Scan(&id)
	if err != nil {
		if s.dialect.classify(err) == constraintUnique {
			return ledger.Child{}, ledger.ErrDuplicateChildName
		}
		return ledger.Child{}, &ledger.StorageError{Op: "insert child", Err: err}
	}
	return ledger.Child{ID: ledger.ChildID(id), Name: name}, nil
}

func (s *Store) Balance(ctx context.Context, id ledger.ChildID) (decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx,
		s.q("SELECT amount FROM Account WHERE children_id = ?"), int64(id))
	if err != nil {
		return decimal.Zero, &ledger.StorageError{Op: "balance", Err: err}
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var amount sql.NullFloat64
		if err := rows.Scan(&amount); err != nil {
			return decimal.Zero, &ledger.StorageError{Op: "balance", Err: err}
		}
		total = total.Add(decimal.NewFromFloat(amount.Float64))
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, &ledger.StorageError{Op: "balance", Err: err}
	}
	return total, nil
}

// =============================================================================
// WORKBOOKS
// =============================================================================

func (s *Store) ListWorkbooks(ctx context.Context) ([]ledger.Workbook, error) {
	rows, err := s.db.QueryContext(ctx, s.q("SELECT id, name FROM Workbooks ORDER BY id"))
	if err != nil {
		return nil, &ledger.StorageError{Op: "list workbooks", Err: err}
	}
	defer rows.Close()

	workbooks := []ledger.Workbook{}
	for rows.Next() {
		var (
			w    ledger.Workbook
			name sql.NullString
		)
		if err := rows.Scan(&w.ID, &name); err != nil {
			return nil, &ledger.StorageError{Op: "list workbooks", Err: err}
		}
		w.Name = name.String
		workbooks = append(workbooks, w)
	}
	if err := rows.Err(); err != nil {
		return nil, &ledger.StorageError{Op: "list workbooks", Err: err}
	}
	return workbooks, nil
}

func (s *Store) GetWorkbook(ctx context.Context, id ledger.WorkbookID) (ledger.Workbook, error) {
	var (
		w    ledger.Workbook
		name sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		s.q("SELECT id, name FROM Workbooks WHERE id = ?"), int64(id),
	).Scan(&w.ID, &name)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Workbook{}, ledger.ErrWorkbookNotFound
	}
	if err != nil {
		return ledger.Workbook{}, &ledger.StorageError{Op: "get workbook", Err: err}
	}
	w.Name = name.String
	return w, nil
}

func (s *Store) InsertWorkbook(ctx context.Context, name string) (ledger.Workbook, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		s.q("INSERT INTO Workbooks (name) VALUES (?) RETURNING id"), name,
	).Scan(&id)
	if err != nil {
		return ledger.Workbook{}, &ledger.StorageError{Op: "insert workbook", Err: err}
	}
	return ledger.Workbook{ID: ledger.WorkbookID(id), Name: name}, nil
}

// =============================================================================
// COMPLETIONS
// =============================================================================

func (s *Store) HasCompleted(ctx context.Context, childID ledger.ChildID, workbookID ledger.WorkbookID) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		s.q("SELECT 1 FROM Members WHERE children_id = ? AND workbooks_id = ? LIMIT 1"),
		int64(childID), int64(workbookID),
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, &ledger.StorageError{Op: "has completed", Err: err}
	}
	return true, nil
}

func (s *Store) InsertCompletion(ctx context.Context, c ledger.Completion) error {
	_, err := s.db.ExecContext(ctx,
		s.q("INSERT INTO Members (children_id, workbooks_id, completed, date) VALUES (?, ?, ?, ?)"),
		int64(c.ChildID), int64(c.WorkbookID), c.Completed, c.Date,
	)
	if err == nil {
		return nil
	}
	switch s.dialect.classify(err) {
	case constraintUnique:
		return ledger.ErrAlreadyCompleted
	case constraintForeignKey:
		return s.missingReference(ctx, c)
	}
	return &ledger.StorageError{Op: "insert completion", Err: err}
}

// missingReference tells which side of a completion's foreign key is absent.
func (s *Store) missingReference(ctx context.Context, c ledger.Completion) error {
	if _, err := s.GetChild(ctx, c.ChildID); err != nil {
		return err
	}
	if _, err := s.GetWorkbook(ctx, c.WorkbookID); err != nil {
		return err
	}
	return &ledger.StorageError{Op: "insert completion", Err: errors.New("foreign key violation")}
}

func (s *Store) ListCompletions(ctx context.Context, childID ledger.ChildID) ([]ledger.CompletionDetail, error) {
	query := `
		SELECT m.children_id, m.workbooks_id, m.completed, m.date, c.name, w.name
		FROM Members m
		JOIN Children c ON c.id = m.children_id
		JOIN Workbooks w ON w.id = m.workbooks_id
		WHERE m.children_id = ?
		ORDER BY m.date ASC, m.workbooks_id ASC
	`
	rows, err := s.db.QueryContext(ctx, s.q(query), int64(childID))
	if err != nil {
		return nil, &ledger.StorageError{Op: "list completions", Err: err}
	}
	defer rows.Close()

	completions := []ledger.CompletionDetail{}
	for rows.Next() {
		var (
			d                   ledger.CompletionDetail
			completed           sql.NullInt64
			date, child, wbName sql.NullString
		)
		if err := rows.Scan(&d.ChildID, &d.WorkbookID, &completed, &date, &child, &wbName); err != nil {
			return nil, &ledger.StorageError{Op: "list completions", Err: err}
		}
		d.Completed = int(completed.Int64)
		d.Date = date.String
		d.ChildName = child.String
		d.WorkbookName = wbName.String
		completions = append(completions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, &ledger.StorageError{Op: "list completions", Err: err}
	}
	return completions, nil
}

// =============================================================================
// TRANSACTIONS (append-only)
// =============================================================================

func (s *Store) InsertTransaction(ctx context.Context, tx ledger.Transaction) (ledger.Transaction, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		s.q("INSERT INTO Account (children_id, date, description, amount) VALUES (?, ?, ?, ?) RETURNING id"),
		int64(tx.ChildID), tx.Date, tx.Description, tx.Amount.InexactFloat64(),
	).Scan(&id)
	if err != nil {
		if s.dialect.classify(err) == constraintForeignKey {
			return ledger.Transaction{}, ledger.ErrChildNotFound
		}
		return ledger.Transaction{}, &ledger.StorageError{Op: "insert transaction", Err: err}
	}
	tx.ID = ledger.TransactionID(id)
	return tx, nil
}

func (s *Store) ListTransactions(ctx context.Context, childID ledger.ChildID) ([]ledger.Transaction, error) {
	query := `
		SELECT id, children_id, date, description, amount
		FROM Account
		WHERE children_id = ?
		ORDER BY date ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, s.q(query), int64(childID))
	if err != nil {
		return nil, &ledger.StorageError{Op: "list transactions", Err: err}
	}
	defer rows.Close()

	txs := []ledger.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, &ledger.StorageError{Op: "list transactions", Err: err}
	}
	return txs, nil
}

// =============================================================================
// HELPERS
// =============================================================================

type scanner interface {
	Scan(dest ...any) error
}

func (s *Store) q(query string) string {
	return s.dialect.rebind(query)
}

// scanChild returns the raw scan error so callers can detect sql.ErrNoRows.
func scanChild(row scanner) (ledger.Child, error) {
	var (
		c    ledger.Child
		name sql.NullString
	)
	if err := row.Scan(&c.ID, &name); err != nil {
		return ledger.Child{}, err
	}
	c.Name = name.String
	return c, nil
}

// Legacy rows may hold NULL in any non-key column; NULLs read as zero values.
func scanTransaction(row scanner) (ledger.Transaction, error) {
	var (
		tx                ledger.Transaction
		childID           sql.NullInt64
		date, description sql.NullString
		amount            sql.NullFloat64
	)
	if err := row.Scan(&tx.ID, &childID, &date, &description, &amount); err != nil {
		return ledger.Transaction{}, &ledger.StorageError{Op: "scan transaction", Err: err}
	}
	tx.ChildID = ledger.ChildID(childID.Int64)
	tx.Date = date.String
	tx.Description = description.String
	tx.Amount = decimal.NewFromFloat(amount.Float64)
	return tx, nil
}
