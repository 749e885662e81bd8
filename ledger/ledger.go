/*
ledger.go - Validated operations over a Store

PURPOSE:
  The Ledger is what the HTTP layer talks to. Each write validates its
  input eagerly, confirms referenced records exist, then performs a single
  insert. Reads compose Store primitives (dashboard, child summaries).

CRITICAL INVARIANTS:
  1. At most one child per name
  2. At most one completion per (child, workbook)
  3. Transactions are append-only
  4. Balance(child) == Sum(transactions(child))

  Invariants 1 and 2 are enforced by the Store's insert, not by a
  check-then-insert sequence here.

  Running totals must stay within float64 range (the amount column type).
  That check reads the child's transactions before inserting, so it is
  not atomic with concurrent writes.

EXAMPLE FLOW:
  l := ledger.New(store)
  alice, _ := l.CreateChild(ctx, "Alice")
  l.CreateTransaction(ctx, alice.ID, "2025-01-01", "Earned money", decimal.NewFromInt(50))
  l.CreateTransaction(ctx, alice.ID, "2025-01-02", "Spent money", decimal.NewFromInt(-20))
  d, _ := l.Dashboard(ctx, alice.ID)   // d.Balance == 30, cumulative 50, 30
*/
package ledger

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
)

// Ledger applies validation and existence checks on top of a Store.
type Ledger struct {
	Store Store

	// StrictDates additionally rejects dates that are not real calendar
	// days (e.g. 2022-02-31). Off by default.
	StrictDates bool
}

func New(store Store) *Ledger {
	return &Ledger{Store: store}
}

func (l *Ledger) validateDate(s string) error {
	if l.StrictDates {
		return ValidateDateStrict(s)
	}
	return ValidateDate(s)
}

// =============================================================================
// CHILDREN
// =============================================================================

func (l *Ledger) CreateChild(ctx context.Context, name string) (Child, error) {
	if err := ValidateChildName(name); err != nil {
		return Child{}, err
	}
	return l.Store.InsertChild(ctx, name)
}

func (l *Ledger) Child(ctx context.Context, id ChildID) (Child, error) {
	return l.Store.GetChild(ctx, id)
}

// Children returns every child with its current balance.
func (l *Ledger) Children(ctx context.Context) ([]ChildSummary, error) {
	children, err := l.Store.ListChildren(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]ChildSummary, 0, len(children))
	for _, c := range children {
		balance, err := l.Store.Balance(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, ChildSummary{Child: c, Balance: balance})
	}
	return summaries, nil
}

// =============================================================================
// WORKBOOKS
// =============================================================================

func (l *Ledger) CreateWorkbook(ctx context.Context, name string) (Workbook, error) {
	if err := ValidateWorkbookName(name); err != nil {
		return Workbook{}, err
	}
	return l.Store.InsertWorkbook(ctx, name)
}

func (l *Ledger) Workbooks(ctx context.Context) ([]Workbook, error) {
	return l.Store.ListWorkbooks(ctx)
}

// =============================================================================
// COMPLETIONS
// =============================================================================

// RecordCompletion marks workbookID as completed by childID on date.
// Returns ErrChildNotFound, ErrWorkbookNotFound, a *ValidationError, or
// ErrAlreadyCompleted.
func (l *Ledger) RecordCompletion(ctx context.Context, childID ChildID, workbookID WorkbookID, date string) (Completion, error) {
	if _, err := l.Store.GetChild(ctx, childID); err != nil {
		return Completion{}, err
	}
	if _, err := l.Store.GetWorkbook(ctx, workbookID); err != nil {
		return Completion{}, err
	}
	if err := l.validateDate(date); err != nil {
		return Completion{}, err
	}

	c := Completion{
		ChildID:    childID,
		WorkbookID: workbookID,
		Completed:  1,
		Date:       date,
	}
	if err := l.Store.InsertCompletion(ctx, c); err != nil {
		return Completion{}, err
	}
	return c, nil
}

// Completions returns the child's completions with names, oldest first.
func (l *Ledger) Completions(ctx context.Context, childID ChildID) ([]CompletionDetail, error) {
	if _, err := l.Store.GetChild(ctx, childID); err != nil {
		return nil, err
	}
	return l.Store.ListCompletions(ctx, childID)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// CreateTransaction appends a ledger entry for an existing child.
func (l *Ledger) CreateTransaction(ctx context.Context, childID ChildID, date, description string, amount decimal.Decimal) (Transaction, error) {
	if _, err := l.Store.GetChild(ctx, childID); err != nil {
		return Transaction{}, err
	}
	if err := l.validateDate(date); err != nil {
		return Transaction{}, err
	}
	if err := ValidateDescription(description); err != nil {
		return Transaction{}, err
	}
	if err := ValidateAmount(amount); err != nil {
		return Transaction{}, err
	}

	tx := Transaction{
		ChildID:     childID,
		Date:        date,
		Description: description,
		Amount:      amount,
	}
	if err := l.checkRunningTotals(ctx, tx); err != nil {
		return Transaction{}, err
	}
	return l.Store.InsertTransaction(ctx, tx)
}

// checkRunningTotals places tx among the child's transactions (after
// every earlier or equal date, as the store will order it) and checks
// every running total still fits a float64.
func (l *Ledger) checkRunningTotals(ctx context.Context, tx Transaction) error {
	txs, err := l.Store.ListTransactions(ctx, tx.ChildID)
	if err != nil {
		return err
	}
	i := sort.Search(len(txs), func(i int) bool { return txs[i].Date > tx.Date })
	txs = append(txs, Transaction{})
	copy(txs[i+1:], txs[i:])
	txs[i] = tx
	return ValidateRunningTotals(txs)
}

// Transactions returns the child's transactions in date order.
func (l *Ledger) Transactions(ctx context.Context, childID ChildID) ([]Transaction, error) {
	if _, err := l.Store.GetChild(ctx, childID); err != nil {
		return nil, err
	}
	return l.Store.ListTransactions(ctx, childID)
}

// =============================================================================
// DASHBOARD
// =============================================================================

// Dashboard composes the child, running-total entries, completions and
// balance into one view.
func (l *Ledger) Dashboard(ctx context.Context, childID ChildID) (*Dashboard, error) {
	child, err := l.Store.GetChild(ctx, childID)
	if err != nil {
		return nil, err
	}
	txs, err := l.Store.ListTransactions(ctx, childID)
	if err != nil {
		return nil, err
	}
	completions, err := l.Store.ListCompletions(ctx, childID)
	if err != nil {
		return nil, err
	}
	balance, err := l.Store.Balance(ctx, childID)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		Child:       child,
		Entries:     RunningBalance(txs),
		Completions: completions,
		Balance:     balance,
	}, nil
}
