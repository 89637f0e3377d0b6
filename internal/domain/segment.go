package domain

import "time"

// Reserved business categories.
const (
	// CategoryNew is assigned to customers whose first purchase month is
	// the cutoff month, bypassing the score mapping.
	CategoryNew = "New"

	// CategoryUncategorized is the fallback when no configured category
	// matches the final score.
	CategoryUncategorized = "Uncategorized"
)

// CategoryRule maps final scores to a named business category. A rule
// matches when the final score's textual form appears in Scores, or
// when the optional CEL Condition evaluates to true. Rules are applied
// in declaration order; the first match wins.
type CategoryRule struct {
	Name   string   `yaml:"name" json:"name"`
	Scores []string `yaml:"scores" json:"scores,omitempty"`

	// Condition is a CEL expression over final_score, recency_score,
	// frequency_score, monetary_score and months_with_purchases.
	Condition string `yaml:"condition" json:"condition,omitempty"`
}

// SegmentRow is one customer in the segmented output table.
type SegmentRow struct {
	CustomerMetrics

	// Scores and Ranges are keyed by variable name.
	Scores map[string]int       `json:"scores"`
	Ranges map[string]*Interval `json:"ranges"`

	FinalScore       string    `json:"finalScore"`
	BusinessCategory string    `json:"businessCategory"`
	CutoffDate       time.Time `json:"cutoffDate"`
}
