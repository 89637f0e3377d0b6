package scoring

import (
	"fmt"
	"math"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/stats"
)

// epsilon pads the observed min/max so the outermost ranges cover every
// in-bounds value, and separates adjacent ranges that would otherwise
// touch.
const epsilon = 0.001

// ComputeBreaks derives the cut-points and half-open ranges for one
// variable. Values outside [bounds.Lower, bounds.Upper] and NaN values
// are excluded from cut-point computation; they still receive a clamped
// score later during assignment.
func ComputeBreaks(values []float64, bounds domain.OutlierBounds, numCategories int, method domain.BreaksMethod) (domain.BreakSet, error) {
	filtered := make([]float64, 0, len(values))
	for _, v := range values {
		if math.IsNaN(v) || v < bounds.Lower || v > bounds.Upper {
			continue
		}
		filtered = append(filtered, v)
	}
	if len(filtered) == 0 {
		return domain.BreakSet{}, fmt.Errorf("%w: no values within outlier bounds [%v, %v]", domain.ErrData, bounds.Lower, bounds.Upper)
	}

	var interior []float64
	switch method {
	case domain.BreaksPercentiles:
		interior = make([]float64, 0, numCategories-1)
		for i := 1; i < numCategories; i++ {
			p := float64(i) * 100 / float64(numCategories)
			interior = append(interior, stats.Percentile(filtered, p))
		}

	case domain.BreaksJenks:
		jb, err := stats.JenksBreaks(filtered, numCategories)
		if err != nil {
			return domain.BreakSet{}, fmt.Errorf("%w: %v", domain.ErrData, err)
		}
		// Drop the global min/max jenks returns; the injected
		// bound sentinels below replace them.
		interior = jb[1 : len(jb)-1]

	default:
		return domain.BreakSet{}, fmt.Errorf("%w: unsupported breaks method %q", domain.ErrConfiguration, method)
	}

	cutpoints := make([]float64, 0, numCategories+1)
	cutpoints = append(cutpoints, bounds.Min-epsilon)
	cutpoints = append(cutpoints, interior...)
	cutpoints = append(cutpoints, bounds.Max+epsilon)

	ranges := make([]domain.Interval, len(cutpoints)-1)
	for i := range ranges {
		ranges[i] = domain.Interval{Lower: cutpoints[i], Upper: cutpoints[i+1]}
	}

	// Adjacent ranges must not share a value: shrink an upper bound
	// that reaches the next range's lower bound.
	for i := 0; i < len(ranges)-1; i++ {
		if ranges[i].Upper >= ranges[i+1].Lower {
			ranges[i].Upper -= epsilon
		}
	}

	return domain.BreakSet{Cutpoints: cutpoints, Ranges: ranges}, nil
}
