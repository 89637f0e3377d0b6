// Package segment combines per-variable scores into a final score and
// maps it onto named business categories.
package segment

import (
	"fmt"
	"strconv"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// CombineScores merges the three RFM score columns into one final score
// per row. The combination method concatenates the Recency, Frequency
// and Monetary scores in that fixed order ("4", "5", "3" → "453"); sum
// and average produce numeric values in textual form. The three RFM
// columns are a caller precondition: their absence is a configuration
// error, never silently tolerated.
func CombineScores(cols map[string]domain.ScoreColumn, method domain.ScoreMethod, n int) ([]string, error) {
	required := []string{domain.VarRecency, domain.VarFrequency, domain.VarMonetary}
	for _, name := range required {
		col, ok := cols[name]
		if !ok {
			return nil, fmt.Errorf("%w: score column %q missing, cannot combine", domain.ErrConfiguration, name)
		}
		if len(col.Scores) != n {
			return nil, fmt.Errorf("%w: score column %q has %d rows, want %d", domain.ErrData, name, len(col.Scores), n)
		}
	}

	rec := cols[domain.VarRecency].Scores
	freq := cols[domain.VarFrequency].Scores
	mon := cols[domain.VarMonetary].Scores

	out := make([]string, n)
	switch method {
	case domain.ScoreCombination:
		for i := 0; i < n; i++ {
			out[i] = strconv.Itoa(rec[i]) + strconv.Itoa(freq[i]) + strconv.Itoa(mon[i])
		}

	case domain.ScoreSum:
		for i := 0; i < n; i++ {
			out[i] = strconv.Itoa(rec[i] + freq[i] + mon[i])
		}

	case domain.ScoreAverage:
		for i := 0; i < n; i++ {
			avg := float64(rec[i]+freq[i]+mon[i]) / 3
			out[i] = strconv.FormatFloat(avg, 'f', 2, 64)
		}

	default:
		return nil, fmt.Errorf("%w: unrecognized score method %q", domain.ErrConfiguration, method)
	}

	return out, nil
}
