package segment

import (
	"errors"
	"testing"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

func scoreCols(rec, freq, mon []int) map[string]domain.ScoreColumn {
	return map[string]domain.ScoreColumn{
		domain.VarRecency:   {Variable: domain.VarRecency, Scores: rec},
		domain.VarFrequency: {Variable: domain.VarFrequency, Scores: freq},
		domain.VarMonetary:  {Variable: domain.VarMonetary, Scores: mon},
	}
}

func TestCombineScoresCombination(t *testing.T) {
	// Scenario D: scores 5, 2, 4 concatenate to "524".
	cols := scoreCols([]int{5, 3}, []int{2, 3}, []int{4, 3})

	got, err := CombineScores(cols, domain.ScoreCombination, 2)
	if err != nil {
		t.Fatalf("CombineScores failed: %v", err)
	}
	if got[0] != "524" {
		t.Errorf("final score = %q, want \"524\"", got[0])
	}
	if got[1] != "333" {
		t.Errorf("final score = %q, want \"333\"", got[1])
	}
}

func TestCombineScoresSum(t *testing.T) {
	cols := scoreCols([]int{5}, []int{2}, []int{4})

	got, err := CombineScores(cols, domain.ScoreSum, 1)
	if err != nil {
		t.Fatalf("CombineScores failed: %v", err)
	}
	if got[0] != "11" {
		t.Errorf("sum = %q, want \"11\"", got[0])
	}
}

func TestCombineScoresAverage(t *testing.T) {
	cols := scoreCols([]int{5}, []int{2}, []int{5})

	got, err := CombineScores(cols, domain.ScoreAverage, 1)
	if err != nil {
		t.Fatalf("CombineScores failed: %v", err)
	}
	if got[0] != "4.00" {
		t.Errorf("average = %q, want \"4.00\"", got[0])
	}
}

func TestCombineScoresMissingColumn(t *testing.T) {
	cols := scoreCols([]int{5}, []int{2}, []int{4})
	delete(cols, domain.VarMonetary)

	_, err := CombineScores(cols, domain.ScoreCombination, 1)
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration for missing column, got %v", err)
	}
}

func TestCombineScoresUnknownMethod(t *testing.T) {
	cols := scoreCols([]int{5}, []int{2}, []int{4})

	_, err := CombineScores(cols, "median", 1)
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration for unknown method, got %v", err)
	}
}

func testRow(finalScore string, months int, last time.Time) domain.SegmentRow {
	return domain.SegmentRow{
		CustomerMetrics: domain.CustomerMetrics{
			CustomerID:          "c1",
			MonthsWithPurchases: months,
			LastPurchaseDate:    last,
		},
		Scores: map[string]int{
			domain.VarRecency:   5,
			domain.VarFrequency: 2,
			domain.VarMonetary:  4,
		},
		FinalScore: finalScore,
	}
}

func TestAssignByScoreList(t *testing.T) {
	assigner, err := NewAssigner([]domain.CategoryRule{
		{Name: "Champion", Scores: []string{"555", "554"}},
		{Name: "Promising", Scores: []string{"524", "523"}},
	})
	if err != nil {
		t.Fatalf("NewAssigner failed: %v", err)
	}

	rows := []domain.SegmentRow{testRow("524", 6, time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC))}
	end := time.Date(2024, 12, 10, 0, 0, 0, 0, time.UTC)

	if err := assigner.Assign(rows, end); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if rows[0].BusinessCategory != "Promising" {
		t.Errorf("category = %q, want Promising", rows[0].BusinessCategory)
	}
}

func TestAssignFirstMatchWins(t *testing.T) {
	// Two categories claim the same score; declaration order decides.
	assigner, err := NewAssigner([]domain.CategoryRule{
		{Name: "First", Scores: []string{"524"}},
		{Name: "Second", Scores: []string{"524"}},
	})
	if err != nil {
		t.Fatalf("NewAssigner failed: %v", err)
	}

	end := time.Date(2024, 12, 10, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		rows := []domain.SegmentRow{testRow("524", 6, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))}
		if err := assigner.Assign(rows, end); err != nil {
			t.Fatalf("Assign failed: %v", err)
		}
		if rows[0].BusinessCategory != "First" {
			t.Fatalf("run %d: category = %q, want First every time", i, rows[0].BusinessCategory)
		}
	}
}

func TestAssignNewCustomerOverride(t *testing.T) {
	// Scenario E: one purchase month in the cutoff month wins over any
	// configured score mapping.
	assigner, err := NewAssigner([]domain.CategoryRule{
		{Name: "Promising", Scores: []string{"524"}},
	})
	if err != nil {
		t.Fatalf("NewAssigner failed: %v", err)
	}

	end := time.Date(2024, 12, 10, 0, 0, 0, 0, time.UTC)
	rows := []domain.SegmentRow{testRow("524", 1, time.Date(2024, 12, 2, 0, 0, 0, 0, time.UTC))}

	if err := assigner.Assign(rows, end); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if rows[0].BusinessCategory != domain.CategoryNew {
		t.Errorf("category = %q, want %q", rows[0].BusinessCategory, domain.CategoryNew)
	}
}

func TestAssignNewRequiresCutoffMonth(t *testing.T) {
	assigner, err := NewAssigner([]domain.CategoryRule{
		{Name: "Promising", Scores: []string{"524"}},
	})
	if err != nil {
		t.Fatalf("NewAssigner failed: %v", err)
	}

	// Single purchase month, but not the cutoff month.
	end := time.Date(2024, 12, 10, 0, 0, 0, 0, time.UTC)
	rows := []domain.SegmentRow{testRow("524", 1, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC))}

	if err := assigner.Assign(rows, end); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if rows[0].BusinessCategory != "Promising" {
		t.Errorf("category = %q, want Promising", rows[0].BusinessCategory)
	}
}

func TestAssignFallbackUncategorized(t *testing.T) {
	assigner, err := NewAssigner([]domain.CategoryRule{
		{Name: "Champion", Scores: []string{"555"}},
	})
	if err != nil {
		t.Fatalf("NewAssigner failed: %v", err)
	}

	end := time.Date(2024, 12, 10, 0, 0, 0, 0, time.UTC)
	rows := []domain.SegmentRow{testRow("111", 6, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))}

	if err := assigner.Assign(rows, end); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if rows[0].BusinessCategory != domain.CategoryUncategorized {
		t.Errorf("category = %q, want %q", rows[0].BusinessCategory, domain.CategoryUncategorized)
	}
}

func TestAssignMissingFinalScore(t *testing.T) {
	assigner, err := NewAssigner(nil)
	if err != nil {
		t.Fatalf("NewAssigner failed: %v", err)
	}

	rows := []domain.SegmentRow{testRow("", 6, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))}
	err = assigner.Assign(rows, time.Date(2024, 12, 10, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration for missing final score, got %v", err)
	}
}

func TestAssignCELCondition(t *testing.T) {
	assigner, err := NewAssigner([]domain.CategoryRule{
		{Name: "Big Spender", Condition: "monetary_score >= 4 && frequency_score <= 2"},
		{Name: "Promising", Scores: []string{"524"}},
	})
	if err != nil {
		t.Fatalf("NewAssigner failed: %v", err)
	}

	end := time.Date(2024, 12, 10, 0, 0, 0, 0, time.UTC)
	rows := []domain.SegmentRow{testRow("524", 6, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))}

	if err := assigner.Assign(rows, end); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	// The condition category is declared first and matches, so it wins
	// over the score-list category.
	if rows[0].BusinessCategory != "Big Spender" {
		t.Errorf("category = %q, want Big Spender", rows[0].BusinessCategory)
	}
}

func TestNewAssignerInvalidCondition(t *testing.T) {
	_, err := NewAssigner([]domain.CategoryRule{
		{Name: "Broken", Condition: "this is not CEL !!!"},
	})
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration for invalid condition, got %v", err)
	}
}
