package domain

import (
	"fmt"
	"strings"
	"time"
)

// Canonical RFM variable names. Additional variables may be configured;
// their values live in CustomerTable.Extra.
const (
	VarRecency   = "Recency"
	VarFrequency = "Frequency"
	VarMonetary  = "Monetary"
)

// CustomerMetrics holds the aggregated per-customer values the scoring
// engine consumes.
type CustomerMetrics struct {
	CustomerID          string    `json:"customerId"`
	Recency             float64   `json:"recency"`
	Frequency           float64   `json:"frequency"`
	Monetary            float64   `json:"monetary"`
	LastPurchaseDate    time.Time `json:"lastPurchaseDate"`
	MonthsWithPurchases int       `json:"monthsWithPurchases"`
}

// CustomerTable is the in-memory per-customer table the pipeline
// annotates. Rows keep a stable order so repeated runs over the same
// input produce identical output.
type CustomerTable struct {
	Rows []CustomerMetrics

	// Extra holds additional configured variables beyond the canonical
	// three, keyed by variable name, one value per row.
	Extra map[string][]float64
}

// Len returns the number of customers in the table.
func (t *CustomerTable) Len() int {
	return len(t.Rows)
}

// Column returns the values of the named variable, one per row.
// Canonical names match case-insensitively.
func (t *CustomerTable) Column(name string) ([]float64, error) {
	switch strings.ToLower(name) {
	case strings.ToLower(VarRecency):
		out := make([]float64, len(t.Rows))
		for i := range t.Rows {
			out[i] = t.Rows[i].Recency
		}
		return out, nil
	case strings.ToLower(VarFrequency):
		out := make([]float64, len(t.Rows))
		for i := range t.Rows {
			out[i] = t.Rows[i].Frequency
		}
		return out, nil
	case strings.ToLower(VarMonetary):
		out := make([]float64, len(t.Rows))
		for i := range t.Rows {
			out[i] = t.Rows[i].Monetary
		}
		return out, nil
	}
	if vals, ok := t.Extra[name]; ok {
		return vals, nil
	}
	return nil, fmt.Errorf("%w: column %q not present in customer table", ErrData, name)
}
