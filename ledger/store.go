/*
store.go - Persistence interface for the ledger

PURPOSE:
  Defines the boundary between the domain operations and the database.
  One method per read or write; no business logic beyond query shape and
  aggregation.

APPEND-ONLY CONTRACT:
  Insert* methods are the only writes. There is no Update or Delete.

UNIQUENESS:
  Implementations enforce the two uniqueness invariants atomically on
  insert rather than relying on a separate existence check:
  - InsertChild returns ErrDuplicateChildName for an existing name
  - InsertCompletion returns ErrAlreadyCompleted for an existing pair
  Concurrent inserts of the same name or pair therefore produce exactly
  one success.

ORDERING:
  - Children and workbooks: by id
  - Transactions:           by date, then id
  - Completions:            by date, then workbook id

IMPLEMENTATIONS:
  - store/store.go:         SQLite and PostgreSQL via database/sql
  - store/memory/memory.go: In-memory for tests
*/
package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// Store handles persistence of children, workbooks, completions and
// transactions.
type Store interface {
	ListChildren(ctx context.Context) ([]Child, error)

	// GetChild returns ErrChildNotFound if the id does not exist.
	GetChild(ctx context.Context, id ChildID) (Child, error)

	// GetChildByName returns ErrChildNotFound if no child has that exact name.
	GetChildByName(ctx context.Context, name string) (Child, error)

	// InsertChild assigns a new id. Returns ErrDuplicateChildName on conflict.
	InsertChild(ctx context.Context, name string) (Child, error)

	// Balance is the sum of the child's transaction amounts, zero when there
	// are none. It does not check that the child exists.
	Balance(ctx context.Context, id ChildID) (decimal.Decimal, error)

	ListWorkbooks(ctx context.Context) ([]Workbook, error)

	// GetWorkbook returns ErrWorkbookNotFound if the id does not exist.
	GetWorkbook(ctx context.Context, id WorkbookID) (Workbook, error)

	InsertWorkbook(ctx context.Context, name string) (Workbook, error)

	HasCompleted(ctx context.Context, childID ChildID, workbookID WorkbookID) (bool, error)

	// InsertCompletion returns ErrAlreadyCompleted if the pair exists.
	InsertCompletion(ctx context.Context, c Completion) error

	ListCompletions(ctx context.Context, childID ChildID) ([]CompletionDetail, error)

	// InsertTransaction assigns a new id and returns the stored record.
	InsertTransaction(ctx context.Context, tx Transaction) (Transaction, error)

	ListTransactions(ctx context.Context, childID ChildID) ([]Transaction, error)

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}
