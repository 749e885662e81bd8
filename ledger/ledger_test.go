package ledger_test

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/kidledger/ledger"
	"github.com/warp/kidledger/store"
	"github.com/warp/kidledger/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// Every scenario runs against both store implementations.
func forEachStore(t *testing.T, fn func(t *testing.T, l *ledger.Ledger)) {
	t.Run("sqlite", func(t *testing.T) {
		s, err := store.NewSQLite(":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		fn(t, ledger.New(s))
	})
	t.Run("memory", func(t *testing.T) {
		fn(t, ledger.New(memory.New()))
	})
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestLedger_AliceEarnsAndSpends(t *testing.T) {
	forEachStore(t, func(t *testing.T, l *ledger.Ledger) {
		ctx := context.Background()

		// GIVEN: a new child
		alice, err := l.CreateChild(ctx, "Alice")
		require.NoError(t, err)

		d, err := l.Dashboard(ctx, alice.ID)
		require.NoError(t, err)
		assert.True(t, d.Balance.IsZero())
		assert.Empty(t, d.Entries)

		// WHEN: she earns 50 then spends 20
		_, err = l.CreateTransaction(ctx, alice.ID, "2025-01-01", "Earned money", dec("50.00"))
		require.NoError(t, err)
		_, err = l.CreateTransaction(ctx, alice.ID, "2025-01-02", "Spent money", dec("-20.00"))
		require.NoError(t, err)

		// THEN: balance is 30 and running totals are 50, 30
		d, err = l.Dashboard(ctx, alice.ID)
		require.NoError(t, err)
		assert.True(t, dec("30.00").Equal(d.Balance), "balance = %s", d.Balance)
		require.Len(t, d.Entries, 2)
		assert.True(t, dec("50.00").Equal(d.Entries[0].Cumulative))
		assert.True(t, dec("30.00").Equal(d.Entries[1].Cumulative))
		assert.Equal(t, "Earned money", d.Entries[0].Description)
	})
}

func TestLedger_WorkbookCompletedOnce(t *testing.T) {
	forEachStore(t, func(t *testing.T, l *ledger.Ledger) {
		ctx := context.Background()

		child, err := l.CreateChild(ctx, "Alice")
		require.NoError(t, err)
		wb, err := l.CreateWorkbook(ctx, "Grade 2 Reading")
		require.NoError(t, err)

		c, err := l.RecordCompletion(ctx, child.ID, wb.ID, "2025-01-20")
		require.NoError(t, err)
		assert.Equal(t, 1, c.Completed)

		done, err := l.Store.HasCompleted(ctx, child.ID, wb.ID)
		require.NoError(t, err)
		assert.True(t, done)

		// a second attempt on any date conflicts
		_, err = l.RecordCompletion(ctx, child.ID, wb.ID, "2025-06-01")
		assert.ErrorIs(t, err, ledger.ErrAlreadyCompleted)
		assert.True(t, ledger.IsConflict(err))

		done, err = l.Store.HasCompleted(ctx, child.ID, wb.ID)
		require.NoError(t, err)
		assert.True(t, done)

		list, err := l.Completions(ctx, child.ID)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "2025-01-20", list[0].Date)
		assert.Equal(t, "Alice", list[0].ChildName)
		assert.Equal(t, "Grade 2 Reading", list[0].WorkbookName)
	})
}

func TestLedger_DuplicateChildName(t *testing.T) {
	forEachStore(t, func(t *testing.T, l *ledger.Ledger) {
		ctx := context.Background()

		_, err := l.CreateChild(ctx, "X")
		require.NoError(t, err)

		_, err = l.CreateChild(ctx, "X")
		assert.ErrorIs(t, err, ledger.ErrDuplicateChildName)
	})
}

// =============================================================================
// VALIDATION AND NOT-FOUND
// =============================================================================

func TestLedger_Validation(t *testing.T) {
	forEachStore(t, func(t *testing.T, l *ledger.Ledger) {
		ctx := context.Background()

		_, err := l.CreateChild(ctx, "")
		assert.True(t, ledger.IsValidation(err))
		_, err = l.CreateChild(ctx, strings.Repeat("n", 101))
		assert.True(t, ledger.IsValidation(err))
		_, err = l.CreateWorkbook(ctx, strings.Repeat("n", 201))
		assert.True(t, ledger.IsValidation(err))

		child, err := l.CreateChild(ctx, "Alice")
		require.NoError(t, err)
		wb, err := l.CreateWorkbook(ctx, "Book")
		require.NoError(t, err)

		// the same bad date is rejected by every operation that takes one
		_, err = l.CreateTransaction(ctx, child.ID, "2022-10-33", "x", dec("1"))
		assert.True(t, ledger.IsValidation(err))
		_, err = l.RecordCompletion(ctx, child.ID, wb.ID, "2022-10-33")
		assert.True(t, ledger.IsValidation(err))

		_, err = l.CreateTransaction(ctx, child.ID, "2025-01-01", "", dec("1"))
		assert.True(t, ledger.IsValidation(err))
		_, err = l.CreateTransaction(ctx, child.ID, "2025-01-01", strings.Repeat("d", 61), dec("1"))
		assert.True(t, ledger.IsValidation(err))

		// nothing was written
		txs, err := l.Transactions(ctx, child.ID)
		require.NoError(t, err)
		assert.Empty(t, txs)
		done, err := l.Store.HasCompleted(ctx, child.ID, wb.ID)
		require.NoError(t, err)
		assert.False(t, done)
	})
}

func TestLedger_LenientDatesByDefault(t *testing.T) {
	forEachStore(t, func(t *testing.T, l *ledger.Ledger) {
		ctx := context.Background()
		child, err := l.CreateChild(ctx, "Alice")
		require.NoError(t, err)

		_, err = l.CreateTransaction(ctx, child.ID, "2022-02-31", "leap of faith", dec("1"))
		assert.NoError(t, err)

		l.StrictDates = true
		_, err = l.CreateTransaction(ctx, child.ID, "2022-02-31", "leap of faith", dec("1"))
		assert.True(t, ledger.IsValidation(err))
	})
}

func TestLedger_NotFound(t *testing.T) {
	forEachStore(t, func(t *testing.T, l *ledger.Ledger) {
		ctx := context.Background()

		_, err := l.Dashboard(ctx, 404)
		assert.ErrorIs(t, err, ledger.ErrChildNotFound)
		_, err = l.Transactions(ctx, 404)
		assert.ErrorIs(t, err, ledger.ErrChildNotFound)
		_, err = l.Completions(ctx, 404)
		assert.ErrorIs(t, err, ledger.ErrChildNotFound)
		_, err = l.CreateTransaction(ctx, 404, "2025-01-01", "x", dec("1"))
		assert.ErrorIs(t, err, ledger.ErrChildNotFound)

		child, err := l.CreateChild(ctx, "Alice")
		require.NoError(t, err)
		_, err = l.RecordCompletion(ctx, child.ID, 404, "2025-01-01")
		assert.ErrorIs(t, err, ledger.ErrWorkbookNotFound)
		_, err = l.RecordCompletion(ctx, 404, 404, "2025-01-01")
		assert.ErrorIs(t, err, ledger.ErrChildNotFound)
	})
}

// =============================================================================
// BALANCES
// =============================================================================

func TestLedger_ChildrenWithBalances(t *testing.T) {
	forEachStore(t, func(t *testing.T, l *ledger.Ledger) {
		ctx := context.Background()

		alice, err := l.CreateChild(ctx, "Alice")
		require.NoError(t, err)
		bob, err := l.CreateChild(ctx, "Bob")
		require.NoError(t, err)

		_, err = l.CreateTransaction(ctx, alice.ID, "2025-01-01", "Allowance", dec("10"))
		require.NoError(t, err)
		_, err = l.CreateTransaction(ctx, alice.ID, "2025-01-08", "Allowance", dec("10"))
		require.NoError(t, err)
		_, err = l.CreateTransaction(ctx, alice.ID, "2025-01-09", "Candy", dec("-2.75"))
		require.NoError(t, err)

		summaries, err := l.Children(ctx)
		require.NoError(t, err)
		require.Len(t, summaries, 2)
		assert.Equal(t, alice, summaries[0].Child)
		assert.Equal(t, "17.25", summaries[0].Balance.String())
		assert.Equal(t, bob, summaries[1].Child)
		assert.True(t, summaries[1].Balance.IsZero())
	})
}

func TestLedger_RunningTotalsFollowDateOrder(t *testing.T) {
	forEachStore(t, func(t *testing.T, l *ledger.Ledger) {
		ctx := context.Background()
		child, err := l.CreateChild(ctx, "Alice")
		require.NoError(t, err)

		// inserted out of date order
		for _, in := range []struct{ date, amount string }{
			{"2025-03-01", "-4"},
			{"2025-01-01", "10"},
			{"2025-02-01", "2.5"},
		} {
			_, err := l.CreateTransaction(ctx, child.ID, in.date, "entry", dec(in.amount))
			require.NoError(t, err)
		}

		d, err := l.Dashboard(ctx, child.ID)
		require.NoError(t, err)
		require.Len(t, d.Entries, 3)

		running := decimal.Zero
		for i, e := range d.Entries {
			if i > 0 {
				assert.LessOrEqual(t, d.Entries[i-1].Date, e.Date)
			}
			running = running.Add(e.Amount)
			assert.True(t, running.Equal(e.Cumulative))
		}
		assert.True(t, d.Balance.Equal(running))
		assert.Equal(t, "8.5", d.Balance.String())
	})
}

// GIVEN: a child whose balance is near the float64 limit
// WHEN: a transaction would push a running total past it
// THEN: it is rejected and the ledger is unchanged
func TestLedger_RunningTotalsStayInFloatRange(t *testing.T) {
	forEachStore(t, func(t *testing.T, l *ledger.Ledger) {
		ctx := context.Background()
		child, err := l.CreateChild(ctx, "Alice")
		require.NoError(t, err)

		_, err = l.CreateTransaction(ctx, child.ID, "2025-01-02", "Big deposit", dec("1e308"))
		require.NoError(t, err)

		_, err = l.CreateTransaction(ctx, child.ID, "2025-01-05", "Another", dec("1e308"))
		assert.True(t, ledger.IsValidation(err))

		_, err = l.CreateTransaction(ctx, child.ID, "2025-01-03", "Withdrawal", dec("-1e308"))
		require.NoError(t, err)

		// final balance would be fine, but the running total on 01-02 would not
		_, err = l.CreateTransaction(ctx, child.ID, "2025-01-01", "Backdated", dec("1e308"))
		assert.True(t, ledger.IsValidation(err))

		txs, err := l.Transactions(ctx, child.ID)
		require.NoError(t, err)
		assert.Len(t, txs, 2)
	})
}
