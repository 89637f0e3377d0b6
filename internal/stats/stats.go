// Package stats provides the summary statistics and natural-breaks
// optimization the scoring engine is built on.
package stats

import (
	"fmt"
	"math"
	"sort"
)

// Finite returns the values with NaN and infinities removed.
func Finite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

// Percentile returns the p-th percentile (p in [0, 100]) of values
// using linear interpolation between closest ranks. NaN when values is
// empty. The input is not modified.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// Mean returns the arithmetic mean, NaN for empty input.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the sample standard deviation (n-1 divisor), NaN for
// fewer than two values.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return math.NaN()
	}
	m := Mean(values)
	var ss float64
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)-1))
}

// Min returns the smallest value, NaN for empty input.
func Min(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// Max returns the largest value, NaN for empty input.
func Max(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// JenksBreaks computes Jenks natural breaks for the values, returning
// nClasses+1 break values whose first and last elements are the data
// minimum and maximum. Within-class variance is minimized via the
// Fisher-Jenks dynamic program.
func JenksBreaks(values []float64, nClasses int) ([]float64, error) {
	if nClasses < 2 {
		return nil, fmt.Errorf("jenks requires at least 2 classes, got %d", nClasses)
	}
	if len(values) < nClasses {
		return nil, fmt.Errorf("jenks requires at least %d values, got %d", nClasses, len(values))
	}

	data := make([]float64, len(values))
	copy(data, values)
	sort.Float64s(data)
	n := len(data)

	// lowerLimits[l][j]: optimal lower class limit (1-based data index)
	// when the first l values are split into j classes.
	// varCombos[l][j]: the matching sum of within-class variances.
	lowerLimits := make([][]int, n+1)
	varCombos := make([][]float64, n+1)
	for i := 0; i <= n; i++ {
		lowerLimits[i] = make([]int, nClasses+1)
		varCombos[i] = make([]float64, nClasses+1)
	}
	for j := 1; j <= nClasses; j++ {
		lowerLimits[1][j] = 1
		for l := 2; l <= n; l++ {
			varCombos[l][j] = math.Inf(1)
		}
	}

	for l := 2; l <= n; l++ {
		var sum, sumSq, w, variance float64
		for m := 1; m <= l; m++ {
			idx := l - m + 1 // 1-based index of the class lower bound
			v := data[idx-1]
			w++
			sum += v
			sumSq += v * v
			variance = sumSq - sum*sum/w
			if idx > 1 {
				for j := 2; j <= nClasses; j++ {
					if varCombos[l][j] >= variance+varCombos[idx-1][j-1] {
						lowerLimits[l][j] = idx
						varCombos[l][j] = variance + varCombos[idx-1][j-1]
					}
				}
			}
		}
		lowerLimits[l][1] = 1
		varCombos[l][1] = variance
	}

	breaks := make([]float64, nClasses+1)
	breaks[0] = data[0]
	breaks[nClasses] = data[n-1]
	k := n
	for j := nClasses; j >= 2; j-- {
		breaks[j-1] = data[lowerLimits[k][j]-2]
		k = lowerLimits[k][j] - 1
	}
	return breaks, nil
}
