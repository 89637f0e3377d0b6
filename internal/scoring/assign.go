package scoring

import (
	"math"
	"sort"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// AssignScores buckets each value against the cut-points and maps the
// bucket to an ordinal score. Values below the first cut-point or above
// the last clamp onto the edge buckets, so outliers excluded from break
// computation still score. With inverse set, lower raw values earn
// higher scores (used for Recency).
//
// NaN values produce the sentinel score 0 (below any configured score
// minimum) and a nil range; this is the one consistent policy for
// undefined inputs.
func AssignScores(values []float64, bs domain.BreakSet, sr domain.ScoreRange, numCategories int, inverse bool) ([]int, []*domain.Interval) {
	scores := make([]int, len(values))
	ranges := make([]*domain.Interval, len(values))

	for i, v := range values {
		if math.IsNaN(v) {
			scores[i] = 0
			continue
		}

		// Right-exclusive interval search: the bucket is the count of
		// cut-points at or below v.
		bucket := sort.Search(len(bs.Cutpoints), func(j int) bool {
			return bs.Cutpoints[j] > v
		})

		if bucket < sr.Min {
			bucket = sr.Min
		}
		if bucket > numCategories {
			bucket = numCategories
		}

		if inverse {
			scores[i] = sr.Max - (bucket-sr.Min)*sr.Step
		} else {
			scores[i] = sr.Min + (bucket-sr.Min)*sr.Step
		}

		ranges[i] = rangeFor(v, bs.Ranges)
	}

	return scores, ranges
}

// rangeFor locates the half-open range containing v, honoring the
// shrink adjustments applied when ranges were built. A value exactly on
// the final range's upper bound belongs to that range.
func rangeFor(v float64, ranges []domain.Interval) *domain.Interval {
	for i := range ranges {
		if ranges[i].Contains(v) {
			return &ranges[i]
		}
	}
	if n := len(ranges); n > 0 && v == ranges[n-1].Upper {
		return &ranges[n-1]
	}
	return nil
}
