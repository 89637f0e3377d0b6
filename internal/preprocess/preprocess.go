// Package preprocess applies configured cleaning steps to raw
// transactions before aggregation: missing-value handling, negative
// value removal and deduplication.
package preprocess

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/stats"
)

// StepFunc is a single named cleaning step.
type StepFunc func(txs []domain.Transaction, params domain.StepParams) ([]domain.Transaction, error)

// steps is the registry of available cleaning steps, keyed by the name
// used in configuration.
var steps = map[string]StepFunc{
	"handle_missing_values":  handleMissingValues,
	"remove_negative_values": removeNegativeValues,
	"handle_duplicates":      handleDuplicates,
}

// Apply runs the configured steps in order. An unknown step name is a
// configuration error.
func Apply(txs []domain.Transaction, cfg []domain.StepConfig) ([]domain.Transaction, error) {
	for _, sc := range cfg {
		fn, ok := steps[sc.Step]
		if !ok {
			return nil, fmt.Errorf("%w: unknown preprocessing step %q", domain.ErrConfiguration, sc.Step)
		}
		var err error
		txs, err = fn(txs, sc.Params)
		if err != nil {
			return nil, fmt.Errorf("step %q: %w", sc.Step, err)
		}
	}
	return txs, nil
}

// orderedColumns fixes the processing order of per-column strategies so
// runs are deterministic regardless of map ordering.
var orderedColumns = []string{
	domain.ColCustomerID,
	domain.ColDate,
	domain.ColInvoice,
	domain.ColPrice,
	domain.ColQuantity,
}

func handleMissingValues(txs []domain.Transaction, params domain.StepParams) ([]domain.Transaction, error) {
	for _, col := range orderedColumns {
		action, ok := params.Strategy[col]
		if !ok {
			continue
		}
		var err error
		txs, err = applyMissingAction(txs, col, action)
		if err != nil {
			return nil, err
		}
	}
	return txs, nil
}

func applyMissingAction(txs []domain.Transaction, col, action string) ([]domain.Transaction, error) {
	switch action {
	case "drop":
		out := txs[:0]
		for _, tx := range txs {
			if !isMissing(&tx, col) {
				out = append(out, tx)
			}
		}
		return out, nil

	case "mean", "median", "zero":
		fill := 0.0
		if action != "zero" {
			get, err := numericGetter(col)
			if err != nil {
				return nil, err
			}
			present := make([]float64, 0, len(txs))
			for i := range txs {
				if v := get(&txs[i]); !math.IsNaN(v) {
					present = append(present, v)
				}
			}
			if len(present) == 0 {
				return txs, nil
			}
			if action == "mean" {
				fill = stats.Mean(present)
			} else {
				fill = stats.Percentile(present, 50)
			}
		}
		set, err := numericSetter(col)
		if err != nil {
			return nil, err
		}
		for i := range txs {
			if isMissing(&txs[i], col) {
				set(&txs[i], fill)
			}
		}
		return txs, nil

	default:
		return nil, fmt.Errorf("%w: unknown missing-value action %q for column %q", domain.ErrConfiguration, action, col)
	}
}

func removeNegativeValues(txs []domain.Transaction, params domain.StepParams) ([]domain.Transaction, error) {
	for _, col := range params.Columns {
		get, err := numericGetter(col)
		if err != nil {
			return nil, err
		}
		out := txs[:0]
		for i := range txs {
			if v := get(&txs[i]); math.IsNaN(v) || v >= 0 {
				out = append(out, txs[i])
			}
		}
		txs = out
	}
	return txs, nil
}

func handleDuplicates(txs []domain.Transaction, params domain.StepParams) ([]domain.Transaction, error) {
	subset := params.Subset
	if len(subset) == 0 {
		subset = orderedColumns
	}

	keep := params.Keep
	if keep == "" {
		keep = "first"
	}

	keys := make([]string, len(txs))
	counts := make(map[string]int, len(txs))
	for i := range txs {
		k, err := duplicateKey(&txs[i], subset)
		if err != nil {
			return nil, err
		}
		keys[i] = k
		counts[k]++
	}

	out := make([]domain.Transaction, 0, len(txs))
	switch keep {
	case "first":
		seen := make(map[string]bool, len(counts))
		for i := range txs {
			if !seen[keys[i]] {
				seen[keys[i]] = true
				out = append(out, txs[i])
			}
		}

	case "last":
		remaining := make(map[string]int, len(counts))
		for k, c := range counts {
			remaining[k] = c
		}
		for i := range txs {
			remaining[keys[i]]--
			if remaining[keys[i]] == 0 {
				out = append(out, txs[i])
			}
		}

	case "none":
		for i := range txs {
			if counts[keys[i]] == 1 {
				out = append(out, txs[i])
			}
		}

	default:
		return nil, fmt.Errorf("%w: unknown duplicate keep mode %q (use first, last or none)", domain.ErrConfiguration, keep)
	}
	return out, nil
}

func duplicateKey(tx *domain.Transaction, subset []string) (string, error) {
	parts := make([]string, 0, len(subset))
	for _, col := range subset {
		switch col {
		case domain.ColCustomerID:
			parts = append(parts, tx.CustomerID)
		case domain.ColInvoice:
			parts = append(parts, tx.InvoiceID)
		case domain.ColDate:
			parts = append(parts, tx.Timestamp.Format(time.RFC3339Nano))
		case domain.ColPrice:
			parts = append(parts, fmt.Sprintf("%g", tx.UnitPrice))
		case domain.ColQuantity:
			parts = append(parts, fmt.Sprintf("%g", tx.Quantity))
		default:
			return "", fmt.Errorf("%w: unknown column %q in duplicate subset", domain.ErrConfiguration, col)
		}
	}
	return strings.Join(parts, "\x1f"), nil
}

func isMissing(tx *domain.Transaction, col string) bool {
	switch col {
	case domain.ColCustomerID:
		return tx.CustomerID == ""
	case domain.ColInvoice:
		return tx.InvoiceID == ""
	case domain.ColDate:
		return tx.Timestamp.IsZero()
	case domain.ColPrice:
		return math.IsNaN(tx.UnitPrice)
	case domain.ColQuantity:
		return math.IsNaN(tx.Quantity)
	}
	return false
}

func numericGetter(col string) (func(*domain.Transaction) float64, error) {
	switch col {
	case domain.ColPrice:
		return func(tx *domain.Transaction) float64 { return tx.UnitPrice }, nil
	case domain.ColQuantity:
		return func(tx *domain.Transaction) float64 { return tx.Quantity }, nil
	}
	return nil, fmt.Errorf("%w: column %q is not numeric", domain.ErrConfiguration, col)
}

func numericSetter(col string) (func(*domain.Transaction, float64), error) {
	switch col {
	case domain.ColPrice:
		return func(tx *domain.Transaction, v float64) { tx.UnitPrice = v }, nil
	case domain.ColQuantity:
		return func(tx *domain.Transaction, v float64) { tx.Quantity = v }, nil
	}
	return nil, fmt.Errorf("%w: column %q is not numeric", domain.ErrConfiguration, col)
}
