package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tx(date, amount string) Transaction {
	return Transaction{Date: date, Description: "t", Amount: decimal.RequireFromString(amount)}
}

func TestSum_Empty(t *testing.T) {
	assert.True(t, Sum(nil).IsZero())
}

func TestSum_ExactForDecimalLiterals(t *testing.T) {
	txs := []Transaction{tx("2025-01-01", "0.1"), tx("2025-01-02", "0.2")}
	assert.Equal(t, "0.3", Sum(txs).String())
}

func TestRunningBalance(t *testing.T) {
	txs := []Transaction{
		tx("2025-01-01", "50.00"),
		tx("2025-01-02", "-20.00"),
		tx("2025-01-02", "5.25"),
	}

	entries := RunningBalance(txs)
	require.Len(t, entries, 3)

	prev := decimal.Zero
	for i, e := range entries {
		assert.True(t, prev.Add(txs[i].Amount).Equal(e.Cumulative), "entry %d", i)
		assert.Equal(t, txs[i], e.Transaction)
		prev = e.Cumulative
	}
	assert.Equal(t, "50", entries[0].Cumulative.String())
	assert.Equal(t, "30", entries[1].Cumulative.String())
	assert.Equal(t, "35.25", entries[2].Cumulative.String())
	assert.True(t, Sum(txs).Equal(entries[2].Cumulative))
}

func TestRunningBalance_Empty(t *testing.T) {
	assert.Empty(t, RunningBalance(nil))
}
