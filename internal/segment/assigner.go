package segment

import (
	"fmt"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Assigner maps final scores onto configured business categories.
// Category rules apply in declaration order; the first match wins, so
// assignment is deterministic for a given configuration.
type Assigner struct {
	categories []domain.CategoryRule
	engine     *ConditionEngine
	scoreSets  []map[string]bool
}

// NewAssigner builds an assigner, compiling any CEL conditions the
// category rules carry.
func NewAssigner(categories []domain.CategoryRule) (*Assigner, error) {
	engine, err := NewConditionEngine(categories)
	if err != nil {
		return nil, err
	}

	sets := make([]map[string]bool, len(categories))
	for i, cat := range categories {
		sets[i] = make(map[string]bool, len(cat.Scores))
		for _, s := range cat.Scores {
			sets[i][s] = true
		}
	}

	return &Assigner{
		categories: categories,
		engine:     engine,
		scoreSets:  sets,
	}, nil
}

// Assign fills BusinessCategory on every row. A customer whose months
// with purchases equal one and whose last purchase falls in the cutoff
// month is labeled New unconditionally, bypassing the score mapping.
// Everyone else gets the first category whose score set contains their
// final score or whose condition holds; no match falls back to
// Uncategorized.
func (a *Assigner) Assign(rows []domain.SegmentRow, endDate time.Time) error {
	for i := range rows {
		if rows[i].FinalScore == "" {
			return fmt.Errorf("%w: row %d has no final score, combine scores first", domain.ErrConfiguration, i)
		}

		if isNewCustomer(&rows[i], endDate) {
			rows[i].BusinessCategory = domain.CategoryNew
			continue
		}

		cat, err := a.categorize(&rows[i])
		if err != nil {
			return err
		}
		rows[i].BusinessCategory = cat
	}
	return nil
}

// isNewCustomer applies the reserved New eligibility rule: exactly one
// month with purchases, and the last purchase in the same calendar
// year+month as the analysis end date.
func isNewCustomer(row *domain.SegmentRow, endDate time.Time) bool {
	if row.MonthsWithPurchases != 1 {
		return false
	}
	return row.LastPurchaseDate.Year() == endDate.Year() &&
		row.LastPurchaseDate.Month() == endDate.Month()
}

func (a *Assigner) categorize(row *domain.SegmentRow) (string, error) {
	var activation map[string]any

	for i, cat := range a.categories {
		if a.scoreSets[i][row.FinalScore] {
			return cat.Name, nil
		}
		if cat.Condition == "" {
			continue
		}
		if activation == nil {
			activation = map[string]any{
				"final_score":           row.FinalScore,
				"recency_score":         row.Scores[domain.VarRecency],
				"frequency_score":       row.Scores[domain.VarFrequency],
				"monetary_score":        row.Scores[domain.VarMonetary],
				"months_with_purchases": row.MonthsWithPurchases,
			}
		}
		ok, err := a.engine.Eval(cat.Name, activation)
		if err != nil {
			return "", err
		}
		if ok {
			return cat.Name, nil
		}
	}

	return domain.CategoryUncategorized, nil
}
