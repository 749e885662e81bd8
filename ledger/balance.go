package ledger

import "github.com/shopspring/decimal"

// Sum returns the signed sum of the transaction amounts.
func Sum(txs []Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		total = total.Add(tx.Amount)
	}
	return total
}

// RunningBalance annotates txs with the cumulative total, folding in the
// order given. Callers pass transactions already sorted by date.
func RunningBalance(txs []Transaction) []Entry {
	entries := make([]Entry, len(txs))
	cumulative := decimal.Zero
	for i, tx := range txs {
		cumulative = cumulative.Add(tx.Amount)
		entries[i] = Entry{Transaction: tx, Cumulative: cumulative}
	}
	return entries
}
