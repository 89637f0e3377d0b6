// Package aggregate computes per-customer RFM metrics from raw
// transactions.
package aggregate

import (
	"sort"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

type accumulator struct {
	invoices map[string]bool
	months   map[string]bool
	monetary float64
	last     time.Time
}

// Aggregate groups transactions by customer and derives the metrics the
// scoring engine consumes. Recency is whole days from the last purchase
// to the analysis end date, Frequency the count of distinct invoices,
// Monetary the summed line amounts (unit price times quantity).
// Transactions without a customer identifier are ignored; the cleaning
// steps decide what happens to them before aggregation. Output rows are
// ordered by customer ID so repeated runs produce identical tables.
func Aggregate(txs []domain.Transaction, endDate time.Time) *domain.CustomerTable {
	byCustomer := make(map[string]*accumulator)

	for i := range txs {
		tx := &txs[i]
		if tx.CustomerID == "" {
			continue
		}

		acc, ok := byCustomer[tx.CustomerID]
		if !ok {
			acc = &accumulator{
				invoices: make(map[string]bool),
				months:   make(map[string]bool),
			}
			byCustomer[tx.CustomerID] = acc
		}

		// Distinct purchase events; fall back to the timestamp when the
		// source has no invoice identifiers.
		invoice := tx.InvoiceID
		if invoice == "" {
			invoice = tx.Timestamp.Format(time.RFC3339)
		}
		acc.invoices[invoice] = true
		acc.months[tx.Timestamp.Format("2006-01")] = true
		acc.monetary += tx.Amount()
		if tx.Timestamp.After(acc.last) {
			acc.last = tx.Timestamp
		}
	}

	ids := make([]string, 0, len(byCustomer))
	for id := range byCustomer {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	table := &domain.CustomerTable{Rows: make([]domain.CustomerMetrics, 0, len(ids))}
	for _, id := range ids {
		acc := byCustomer[id]
		table.Rows = append(table.Rows, domain.CustomerMetrics{
			CustomerID:          id,
			Recency:             float64(int(endDate.Sub(acc.last).Hours() / 24)),
			Frequency:           float64(len(acc.invoices)),
			Monetary:            acc.monetary,
			LastPurchaseDate:    acc.last,
			MonthsWithPurchases: len(acc.months),
		})
	}
	return table
}
