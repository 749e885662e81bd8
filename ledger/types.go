/*
Package ledger provides the domain model for the children's allowance ledger.

PURPOSE:
  Children earn and spend money (Transactions) and finish workbooks
  (Completions). This package owns the records, their validation rules,
  the derived values (balance, running totals) and the Store contract
  that persistence backends implement.

KEY CONCEPTS IN THIS FILE (types.go):
  - Child:            a tracked individual, unique by name
  - Workbook:         a completable unit of curriculum
  - Completion:       child x workbook, at most one per pair
  - Transaction:      immutable signed ledger entry
  - Entry:            a Transaction annotated with the running total

DESIGN PRINCIPLES:
  1. Append-only: Children, Workbooks, Completions and Transactions are
     created once and never updated or deleted.
  2. Derived, not stored: balances are recomputed from transactions on read.
  3. Precision: amounts are decimal.Decimal so sums are exact for the
     decimal literals users type in.

SEE ALSO:
  - store.go:    Persistence interface
  - balance.go:  Balance and running total computation
  - ledger.go:   Validated operations on top of a Store
*/
package ledger

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ChildID int64

type WorkbookID int64

type TransactionID int64

// =============================================================================
// RECORDS
// =============================================================================

// Child is one beneficiary of the ledger.
type Child struct {
	ID   ChildID
	Name string
}

// Workbook is a unit of work a child can complete. Names are not unique.
type Workbook struct {
	ID   WorkbookID
	Name string
}

// Completion records that a child finished a workbook.
// (ChildID, WorkbookID) is the primary key.
type Completion struct {
	ChildID    ChildID
	WorkbookID WorkbookID
	Completed  int    // always 1 for rows written by this package
	Date       string // YYYY-MM-DD
}

// CompletionDetail is a Completion joined with the child and workbook names.
type CompletionDetail struct {
	Completion
	ChildName    string
	WorkbookName string
}

// Transaction is one immutable ledger entry.
// Positive amounts are credits, negative amounts are debits.
type Transaction struct {
	ID          TransactionID
	ChildID     ChildID
	Date        string // YYYY-MM-DD
	Description string
	Amount      decimal.Decimal
}

// Entry is a Transaction with the cumulative balance up to and including it.
type Entry struct {
	Transaction
	Cumulative decimal.Decimal
}

// ChildSummary is a child with its current balance.
type ChildSummary struct {
	Child
	Balance decimal.Decimal
}

// Dashboard is everything shown on a child's page.
type Dashboard struct {
	Child       Child
	Entries     []Entry
	Completions []CompletionDetail
	Balance     decimal.Decimal
}
