package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "segments.csv")

	cutoff := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	rows := []domain.SegmentRow{
		{
			CustomerMetrics: domain.CustomerMetrics{
				CustomerID:          "c1",
				Recency:             12,
				Frequency:           4,
				Monetary:            250.5,
				LastPurchaseDate:    time.Date(2024, 12, 19, 0, 0, 0, 0, time.UTC),
				MonthsWithPurchases: 3,
			},
			Scores: map[string]int{
				domain.VarRecency:   5,
				domain.VarFrequency: 4,
				domain.VarMonetary:  3,
			},
			Ranges: map[string]*domain.Interval{
				domain.VarRecency:   {Lower: 5, Upper: 20},
				domain.VarFrequency: {Lower: 3, Upper: 6},
				domain.VarMonetary:  nil,
			},
			FinalScore:       "543",
			BusinessCategory: "Champions",
			CutoffDate:       cutoff,
		},
	}
	variables := []string{domain.VarRecency, domain.VarFrequency, domain.VarMonetary}

	if err := WriteCSV(path, rows, variables); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening output: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected header plus 1 row, got %d records", len(records))
	}

	wantHeader := []string{
		"customer_id", "Recency", "Frequency", "Monetary",
		"LastPurchaseDate", "MonthsWithPurchases",
		"Recency_score", "Recency_range",
		"Frequency_score", "Frequency_range",
		"Monetary_score", "Monetary_range",
		"Final_Score", "Business_Category", "CutoffDate",
	}
	if !reflect.DeepEqual(records[0], wantHeader) {
		t.Errorf("header = %v", records[0])
	}

	want := []string{
		"c1", "12", "4", "250.5", "2024-12-19", "3",
		"5", "(5.0000, 20.0000)",
		"4", "(3.0000, 6.0000)",
		"3", "",
		"543", "Champions", "2024-12-31",
	}
	if !reflect.DeepEqual(records[1], want) {
		t.Errorf("row = %v, want %v", records[1], want)
	}
}

func TestWriteCSVEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "segments.csv")
	if err := WriteCSV(path, nil, []string{domain.VarRecency}); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening output: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected header only, got %d records", len(records))
	}
}
