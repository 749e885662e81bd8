// Package storetest holds the behavioral contract every ledger.Store
// implementation must satisfy. Implementations call Run from their tests.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/kidledger/ledger"
)

// Factory returns a fresh, empty store. Cleanup is the factory's job.
type Factory func(t *testing.T) ledger.Store

// Run executes the full contract against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("Children", func(t *testing.T) { testChildren(t, newStore(t)) })
	t.Run("DuplicateChildName", func(t *testing.T) { testDuplicateChildName(t, newStore(t)) })
	t.Run("ConcurrentDuplicateChildName", func(t *testing.T) { testConcurrentDuplicateChildName(t, newStore(t)) })
	t.Run("Workbooks", func(t *testing.T) { testWorkbooks(t, newStore(t)) })
	t.Run("Completions", func(t *testing.T) { testCompletions(t, newStore(t)) })
	t.Run("CompletionOrdering", func(t *testing.T) { testCompletionOrdering(t, newStore(t)) })
	t.Run("ConcurrentDuplicateCompletion", func(t *testing.T) { testConcurrentDuplicateCompletion(t, newStore(t)) })
	t.Run("TransactionRoundTrip", func(t *testing.T) { testTransactionRoundTrip(t, newStore(t)) })
	t.Run("TransactionOrdering", func(t *testing.T) { testTransactionOrdering(t, newStore(t)) })
	t.Run("Balance", func(t *testing.T) { testBalance(t, newStore(t)) })
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testChildren(t *testing.T, s ledger.Store) {
	ctx := context.Background()

	children, err := s.ListChildren(ctx)
	require.NoError(t, err)
	assert.Empty(t, children)

	alice, err := s.InsertChild(ctx, "Alice")
	require.NoError(t, err)
	bob, err := s.InsertChild(ctx, "Bob")
	require.NoError(t, err)
	assert.NotEqual(t, alice.ID, bob.ID)

	got, err := s.GetChild(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, alice, got)

	got, err = s.GetChildByName(ctx, "Bob")
	require.NoError(t, err)
	assert.Equal(t, bob, got)

	children, err = s.ListChildren(ctx)
	require.NoError(t, err)
	assert.Equal(t, []ledger.Child{alice, bob}, children)

	_, err = s.GetChild(ctx, 99999)
	assert.ErrorIs(t, err, ledger.ErrChildNotFound)
	assert.True(t, ledger.IsNotFound(err))

	_, err = s.GetChildByName(ctx, "alice")
	assert.ErrorIs(t, err, ledger.ErrChildNotFound, "name lookup is exact")
}

func testDuplicateChildName(t *testing.T, s ledger.Store) {
	ctx := context.Background()

	first, err := s.InsertChild(ctx, "X")
	require.NoError(t, err)

	_, err = s.InsertChild(ctx, "X")
	assert.ErrorIs(t, err, ledger.ErrDuplicateChildName)
	assert.True(t, ledger.IsConflict(err))

	children, err := s.ListChildren(ctx)
	require.NoError(t, err)
	assert.Equal(t, []ledger.Child{first}, children)
}

func testConcurrentDuplicateChildName(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	const workers = 8

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
		others    []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.InsertChild(ctx, "Racer")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case ledger.IsConflict(err):
				conflicts++
			default:
				others = append(others, err)
			}
		}()
	}
	wg.Wait()

	assert.Empty(t, others)
	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, conflicts)
}

func testWorkbooks(t *testing.T, s ledger.Store) {
	ctx := context.Background()

	w1, err := s.InsertWorkbook(ctx, "Grade 2 Reading")
	require.NoError(t, err)
	w2, err := s.InsertWorkbook(ctx, "Grade 2 Reading")
	require.NoError(t, err, "workbook names are not unique")
	assert.NotEqual(t, w1.ID, w2.ID)

	got, err := s.GetWorkbook(ctx, w2.ID)
	require.NoError(t, err)
	assert.Equal(t, w2, got)

	all, err := s.ListWorkbooks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []ledger.Workbook{w1, w2}, all)

	_, err = s.GetWorkbook(ctx, 99999)
	assert.ErrorIs(t, err, ledger.ErrWorkbookNotFound)
}

func testCompletions(t *testing.T, s ledger.Store) {
	ctx := context.Background()

	child, err := s.InsertChild(ctx, "Alice")
	require.NoError(t, err)
	wb, err := s.InsertWorkbook(ctx, "Grade 2 Reading")
	require.NoError(t, err)

	done, err := s.HasCompleted(ctx, child.ID, wb.ID)
	require.NoError(t, err)
	assert.False(t, done)

	c := ledger.Completion{ChildID: child.ID, WorkbookID: wb.ID, Completed: 1, Date: "2025-01-20"}
	require.NoError(t, s.InsertCompletion(ctx, c))

	done, err = s.HasCompleted(ctx, child.ID, wb.ID)
	require.NoError(t, err)
	assert.True(t, done)

	again := c
	again.Date = "2025-02-01"
	err = s.InsertCompletion(ctx, again)
	assert.ErrorIs(t, err, ledger.ErrAlreadyCompleted)

	done, err = s.HasCompleted(ctx, child.ID, wb.ID)
	require.NoError(t, err)
	assert.True(t, done, "rejected duplicate must not remove the first completion")

	list, err := s.ListCompletions(ctx, child.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, ledger.CompletionDetail{
		Completion:   c,
		ChildName:    "Alice",
		WorkbookName: "Grade 2 Reading",
	}, list[0])
}

func testCompletionOrdering(t *testing.T, s ledger.Store) {
	ctx := context.Background()

	child, err := s.InsertChild(ctx, "Alice")
	require.NoError(t, err)
	other, err := s.InsertChild(ctx, "Bob")
	require.NoError(t, err)

	var wbs []ledger.Workbook
	for i := 0; i < 3; i++ {
		wb, err := s.InsertWorkbook(ctx, fmt.Sprintf("Book %d", i))
		require.NoError(t, err)
		wbs = append(wbs, wb)
	}

	require.NoError(t, s.InsertCompletion(ctx, ledger.Completion{ChildID: child.ID, WorkbookID: wbs[2].ID, Completed: 1, Date: "2025-03-01"}))
	require.NoError(t, s.InsertCompletion(ctx, ledger.Completion{ChildID: child.ID, WorkbookID: wbs[1].ID, Completed: 1, Date: "2025-01-01"}))
	require.NoError(t, s.InsertCompletion(ctx, ledger.Completion{ChildID: child.ID, WorkbookID: wbs[0].ID, Completed: 1, Date: "2025-03-01"}))
	require.NoError(t, s.InsertCompletion(ctx, ledger.Completion{ChildID: other.ID, WorkbookID: wbs[0].ID, Completed: 1, Date: "2024-01-01"}))

	list, err := s.ListCompletions(ctx, child.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, wbs[1].ID, list[0].WorkbookID)
	assert.Equal(t, wbs[0].ID, list[1].WorkbookID, "equal dates break ties by workbook id")
	assert.Equal(t, wbs[2].ID, list[2].WorkbookID)
}

func testConcurrentDuplicateCompletion(t *testing.T, s ledger.Store) {
	ctx := context.Background()

	child, err := s.InsertChild(ctx, "Alice")
	require.NoError(t, err)
	wb, err := s.InsertWorkbook(ctx, "Grade 1 Math")
	require.NoError(t, err)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(day int) {
			defer wg.Done()
			err := s.InsertCompletion(ctx, ledger.Completion{
				ChildID:    child.ID,
				WorkbookID: wb.ID,
				Completed:  1,
				Date:       fmt.Sprintf("2025-01-%02d", day),
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if ledger.IsConflict(err) {
				conflicts++
			}
		}(i + 1)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, conflicts)

	list, err := s.ListCompletions(ctx, child.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func testTransactionRoundTrip(t *testing.T, s ledger.Store) {
	ctx := context.Background()

	child, err := s.InsertChild(ctx, "Alice")
	require.NoError(t, err)

	in := ledger.Transaction{
		ChildID:     child.ID,
		Date:        "2025-01-25",
		Description: "Chores completed",
		Amount:      dec("15.00"),
	}
	created, err := s.InsertTransaction(ctx, in)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	list, err := s.ListTransactions(ctx, child.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	got := list[0]
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, child.ID, got.ChildID)
	assert.Equal(t, "2025-01-25", got.Date)
	assert.Equal(t, "Chores completed", got.Description)
	assert.True(t, dec("15").Equal(got.Amount), "amount = %s", got.Amount)
}

func testTransactionOrdering(t *testing.T, s ledger.Store) {
	ctx := context.Background()

	child, err := s.InsertChild(ctx, "Alice")
	require.NoError(t, err)

	inputs := []struct {
		date string
		desc string
	}{
		{"2025-03-01", "third"},
		{"2025-01-01", "first"},
		{"2025-02-01", "second-a"},
		{"2025-02-01", "second-b"},
	}
	for _, in := range inputs {
		_, err := s.InsertTransaction(ctx, ledger.Transaction{
			ChildID: child.ID, Date: in.date, Description: in.desc, Amount: dec("1"),
		})
		require.NoError(t, err)
	}

	list, err := s.ListTransactions(ctx, child.ID)
	require.NoError(t, err)
	var got []string
	for _, tx := range list {
		got = append(got, tx.Description)
	}
	assert.Equal(t, []string{"first", "second-a", "second-b", "third"}, got)
}

func testBalance(t *testing.T, s ledger.Store) {
	ctx := context.Background()

	alice, err := s.InsertChild(ctx, "Alice")
	require.NoError(t, err)
	bob, err := s.InsertChild(ctx, "Bob")
	require.NoError(t, err)

	balance, err := s.Balance(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())

	balance, err = s.Balance(ctx, 99999)
	require.NoError(t, err, "balance does not check existence")
	assert.True(t, balance.IsZero())

	for _, amt := range []string{"50.00", "-20.00", "0.10", "0.20"} {
		_, err := s.InsertTransaction(ctx, ledger.Transaction{
			ChildID: alice.ID, Date: "2025-01-01", Description: "entry", Amount: dec(amt),
		})
		require.NoError(t, err)
	}
	_, err = s.InsertTransaction(ctx, ledger.Transaction{
		ChildID: bob.ID, Date: "2025-01-01", Description: "entry", Amount: dec("7"),
	})
	require.NoError(t, err)

	balance, err = s.Balance(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, dec("30.30").Equal(balance), "balance = %s", balance)

	txs, err := s.ListTransactions(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, ledger.Sum(txs).Equal(balance))
}
