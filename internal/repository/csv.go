package repository

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// defaultDateLayouts are tried in order when a source does not pin a
// date_format.
var defaultDateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006 15:04",
	time.RFC3339,
}

// csvLoad reads a delimited file whose header row names the physical
// columns from the global columns configuration. Unparseable numerics
// become NaN. Unparseable dates leave the timestamp zero; the window
// filter drops such rows, and with the filter disabled the cleaning
// steps treat them as missing.
func (s *Store) csvLoad(src domain.SourceConfig) ([]domain.Transaction, error) {
	f, err := os.Open(src.Path)
	if err != nil {
		return nil, fmt.Errorf("opening csv source: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	if src.Delimiter != "" {
		r.Comma = rune(src.Delimiter[0])
	}
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: reading csv source %s: %v", domain.ErrData, src.Path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: csv source %s is empty", domain.ErrData, src.Path)
	}

	cols := s.cfg.Global.Columns
	idx, err := headerIndex(records[0], cols)
	if err != nil {
		return nil, fmt.Errorf("csv source %s: %w", src.Path, err)
	}

	layouts := defaultDateLayouts
	if src.DateFormat != "" {
		layouts = []string{src.DateFormat}
	}

	txs := make([]domain.Transaction, 0, len(records)-1)
	for _, rec := range records[1:] {
		tx := domain.Transaction{
			CustomerID: field(rec, idx[cols.CustomerID]),
			InvoiceID:  field(rec, idx[cols.Invoice]),
			UnitPrice:  parseFloat(field(rec, idx[cols.Price])),
			Quantity:   parseFloat(field(rec, idx[cols.Quantity])),
			Timestamp:  parseDate(field(rec, idx[cols.Date]), layouts),
		}
		if !src.NoDateFilter {
			// An unparseable date cannot fall inside the window.
			if tx.Timestamp.IsZero() || tx.Timestamp.Before(s.start) || tx.Timestamp.After(s.end) {
				continue
			}
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func headerIndex(header []string, cols domain.ColumnsConfig) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{cols.CustomerID, cols.Date, cols.Price, cols.Quantity} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("%w: column %q not present", domain.ErrData, required)
		}
	}
	// The invoice column is optional; aggregation falls back to
	// timestamps when it is absent.
	if _, ok := idx[cols.Invoice]; !ok {
		idx[cols.Invoice] = -1
	}
	return idx, nil
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func parseFloat(s string) float64 {
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func parseDate(s string, layouts []string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
