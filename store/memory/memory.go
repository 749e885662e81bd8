// Package memory provides an in-memory ledger.Store (for testing/dev).
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/warp/kidledger/ledger"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	children     []ledger.Child
	byName       map[string]ledger.ChildID
	workbooks    []ledger.Workbook
	completions  map[pair]ledger.Completion
	transactions []ledger.Transaction
	nextChild    ledger.ChildID
	nextWorkbook ledger.WorkbookID
	nextTx       ledger.TransactionID
}

type pair struct {
	ChildID    ledger.ChildID
	WorkbookID ledger.WorkbookID
}

var _ ledger.Store = (*Memory)(nil)

func New() *Memory {
	return &Memory{
		byName:      make(map[string]ledger.ChildID),
		completions: make(map[pair]ledger.Completion),
	}
}

func (m *Memory) Ping(context.Context) error { return nil }

// =============================================================================
// CHILDREN
// =============================================================================

func (m *Memory) ListChildren(_ context.Context) ([]ledger.Child, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ledger.Child, len(m.children))
	copy(out, m.children)
	return out, nil
}

func (m *Memory) GetChild(_ context.Context, id ledger.ChildID) (ledger.Child, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.childLocked(id)
}

func (m *Memory) childLocked(id ledger.ChildID) (ledger.Child, error) {
	// ids are dense and start at 1
	if id < 1 || int(id) > len(m.children) {
		return ledger.Child{}, ledger.ErrChildNotFound
	}
	return m.children[id-1], nil
}

func (m *Memory) GetChildByName(_ context.Context, name string) (ledger.Child, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byName[name]
	if !ok {
		return ledger.Child{}, ledger.ErrChildNotFound
	}
	return m.childLocked(id)
}

// InsertChild checks and inserts under one lock.
func (m *Memory) InsertChild(_ context.Context, name string) (ledger.Child, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byName[name]; exists {
		return ledger.Child{}, ledger.ErrDuplicateChildName
	}
	m.nextChild++
	c := ledger.Child{ID: m.nextChild, Name: name}
	m.children = append(m.children, c)
	m.byName[name] = c.ID
	return c, nil
}

func (m *Memory) Balance(_ context.Context, id ledger.ChildID) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := decimal.Zero
	for _, tx := range m.transactions {
		if tx.ChildID == id {
			total = total.Add(tx.Amount)
		}
	}
	return total, nil
}

// =============================================================================
// WORKBOOKS
// =============================================================================

func (m *Memory) ListWorkbooks(_ context.Context) ([]ledger.Workbook, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ledger.Workbook, len(m.workbooks))
	copy(out, m.workbooks)
	return out, nil
}

func (m *Memory) GetWorkbook(_ context.Context, id ledger.WorkbookID) (ledger.Workbook, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.workbookLocked(id)
}

func (m *Memory) workbookLocked(id ledger.WorkbookID) (ledger.Workbook, error) {
	if id < 1 || int(id) > len(m.workbooks) {
		return ledger.Workbook{}, ledger.ErrWorkbookNotFound
	}
	return m.workbooks[id-1], nil
}

func (m *Memory) InsertWorkbook(_ context.Context, name string) (ledger.Workbook, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextWorkbook++
	w := ledger.Workbook{ID: m.nextWorkbook, Name: name}
	m.workbooks = append(m.workbooks, w)
	return w, nil
}

// =============================================================================
// COMPLETIONS
// =============================================================================

func (m *Memory) HasCompleted(_ context.Context, childID ledger.ChildID, workbookID ledger.WorkbookID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.completions[pair{childID, workbookID}]
	return ok, nil
}

func (m *Memory) InsertCompletion(_ context.Context, c ledger.Completion) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.childLocked(c.ChildID); err != nil {
		return err
	}
	if _, err := m.workbookLocked(c.WorkbookID); err != nil {
		return err
	}
	k := pair{c.ChildID, c.WorkbookID}
	if _, exists := m.completions[k]; exists {
		return ledger.ErrAlreadyCompleted
	}
	m.completions[k] = c
	return nil
}

func (m *Memory) ListCompletions(_ context.Context, childID ledger.ChildID) ([]ledger.CompletionDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []ledger.CompletionDetail{}
	for k, c := range m.completions {
		if k.ChildID != childID {
			continue
		}
		child, _ := m.childLocked(c.ChildID)
		wb, _ := m.workbookLocked(c.WorkbookID)
		out = append(out, ledger.CompletionDetail{
			Completion:   c,
			ChildName:    child.Name,
			WorkbookName: wb.Name,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].WorkbookID < out[j].WorkbookID
	})
	return out, nil
}

// =============================================================================
// TRANSACTIONS (append-only)
// =============================================================================

func (m *Memory) InsertTransaction(_ context.Context, tx ledger.Transaction) (ledger.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.childLocked(tx.ChildID); err != nil {
		return ledger.Transaction{}, err
	}
	m.nextTx++
	tx.ID = m.nextTx
	m.transactions = append(m.transactions, tx)
	return tx, nil
}

// ListTransactions orders by date; the stable sort keeps insertion (id)
// order among equal dates.
func (m *Memory) ListTransactions(_ context.Context, childID ledger.ChildID) ([]ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []ledger.Transaction{}
	for _, tx := range m.transactions {
		if tx.ChildID == childID {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date < out[j].Date
	})
	return out, nil
}
