// Package export writes the segmented customer table to CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/opensource-finance/kestrel/internal/domain"
)

const dateLayout = "2006-01-02"

// WriteCSV writes one row per customer with metrics, per-variable
// scores and ranges, the final score and the business category.
// Variables sets the column order for the score and range pairs; a
// customer with no range for a variable gets an empty cell.
func WriteCSV(path string, rows []domain.SegmentRow, variables []string) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := []string{
		"customer_id", "Recency", "Frequency", "Monetary",
		"LastPurchaseDate", "MonthsWithPurchases",
	}
	for _, v := range variables {
		header = append(header, v+"_score", v+"_range")
	}
	header = append(header, "Final_Score", "Business_Category", "CutoffDate")
	if err := w.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, row := range rows {
		rec := []string{
			row.CustomerID,
			formatFloat(row.Recency),
			formatFloat(row.Frequency),
			formatFloat(row.Monetary),
			row.LastPurchaseDate.Format(dateLayout),
			strconv.Itoa(row.MonthsWithPurchases),
		}
		for _, v := range variables {
			rec = append(rec, strconv.Itoa(row.Scores[v]), formatRange(row.Ranges[v]))
		}
		rec = append(rec, row.FinalScore, row.BusinessCategory, row.CutoffDate.Format(dateLayout))
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("writing row for %s: %w", row.CustomerID, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing output: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatRange(iv *domain.Interval) string {
	if iv == nil {
		return ""
	}
	return iv.String()
}
