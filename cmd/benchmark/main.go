// Benchmark tool for timing the Kestrel segmentation stages on
// synthetic data.
//
// Usage:
//   go run cmd/benchmark/main.go -customers 50000 -invoices 8
//
// This tool:
//   1. Generates synthetic retail transactions in memory
//   2. Runs aggregation, scoring, combination and categorization
//   3. Prints per-stage timings and overall throughput
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/opensource-finance/kestrel/internal/aggregate"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/scoring"
	"github.com/opensource-finance/kestrel/internal/segment"
)

func main() {
	customers := flag.Int("customers", 10000, "number of synthetic customers")
	invoices := flag.Int("invoices", 5, "mean invoices per customer")
	seed := flag.Int64("seed", 1, "random seed")
	flag.Parse()

	endDate := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	rng := rand.New(rand.NewSource(*seed))

	fmt.Printf("generating %d customers (~%d invoices each)...\n", *customers, *invoices)
	txs := generate(rng, *customers, *invoices, endDate)
	fmt.Printf("generated %d transactions\n\n", len(txs))

	cfg := domain.DefaultConfig()
	cfg.Categories = []domain.CategoryRule{
		{Name: "Champions", Condition: "recency_score >= 4 && frequency_score >= 4"},
		{Name: "Loyal", Condition: "frequency_score >= 4"},
		{Name: "At Risk", Condition: "recency_score <= 2 && monetary_score >= 4"},
		{Name: "Hibernating", Condition: "recency_score <= 2"},
	}

	started := time.Now()

	t0 := time.Now()
	table := aggregate.Aggregate(txs, endDate)
	report("aggregate", t0, len(txs))

	t0 = time.Now()
	cols, err := scoring.NewPipeline(cfg).Run(context.Background(), table)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scoring failed: %v\n", err)
		os.Exit(1)
	}
	report("score", t0, table.Len())

	byName := make(map[string]domain.ScoreColumn, len(cols))
	for _, col := range cols {
		byName[col.Variable] = col
	}

	t0 = time.Now()
	finals, err := segment.CombineScores(byName, cfg.ScoreMethod, table.Len())
	if err != nil {
		fmt.Fprintf(os.Stderr, "combining failed: %v\n", err)
		os.Exit(1)
	}
	report("combine", t0, table.Len())

	rows := make([]domain.SegmentRow, table.Len())
	for i, m := range table.Rows {
		scores := make(map[string]int, len(cols))
		for _, col := range cols {
			scores[col.Variable] = col.Scores[i]
		}
		rows[i] = domain.SegmentRow{
			CustomerMetrics: m,
			Scores:          scores,
			FinalScore:      finals[i],
			CutoffDate:      endDate,
		}
	}

	assigner, err := segment.NewAssigner(cfg.Categories)
	if err != nil {
		fmt.Fprintf(os.Stderr, "building assigner failed: %v\n", err)
		os.Exit(1)
	}
	t0 = time.Now()
	if err := assigner.Assign(rows, endDate); err != nil {
		fmt.Fprintf(os.Stderr, "categorizing failed: %v\n", err)
		os.Exit(1)
	}
	report("categorize", t0, table.Len())

	elapsed := time.Since(started)
	fmt.Printf("\ntotal: %v (%.0f customers/sec)\n",
		elapsed.Round(time.Millisecond),
		float64(table.Len())/elapsed.Seconds())

	counts := make(map[string]int)
	for _, row := range rows {
		counts[row.BusinessCategory]++
	}
	fmt.Println("\ncategory distribution:")
	for name, n := range counts {
		fmt.Printf("  %-16s %d\n", name, n)
	}
}

func generate(rng *rand.Rand, customers, meanInvoices int, endDate time.Time) []domain.Transaction {
	txs := make([]domain.Transaction, 0, customers*meanInvoices)
	for c := 0; c < customers; c++ {
		id := fmt.Sprintf("c%06d", c)
		n := 1 + rng.Intn(meanInvoices*2)
		for i := 0; i < n; i++ {
			daysAgo := 1 + rng.Intn(364)
			txs = append(txs, domain.Transaction{
				CustomerID: id,
				InvoiceID:  fmt.Sprintf("%s-i%03d", id, i),
				Quantity:   float64(1 + rng.Intn(10)),
				UnitPrice:  1 + rng.Float64()*100,
				Timestamp:  endDate.AddDate(0, 0, -daysAgo),
			})
		}
	}
	return txs
}

func report(stage string, started time.Time, rows int) {
	elapsed := time.Since(started)
	fmt.Printf("%-12s %8v  (%.0f rows/sec)\n",
		stage, elapsed.Round(time.Microsecond),
		float64(rows)/elapsed.Seconds())
}
