// Package scoring implements the RFM scoring engine: per-variable
// outlier bounds, classification cut-points, ordinal score assignment
// and the pipeline that orchestrates them across configured variables.
package scoring

import (
	"fmt"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/stats"
)

// ComputeBounds derives the outlier exclusion interval for one
// variable. NaN values are ignored. It is a pure function of the input
// column and the variable configuration.
func ComputeBounds(values []float64, cfg domain.VariableConfig) (domain.OutlierBounds, error) {
	cfg = domain.ApplyVariableDefaults(cfg)

	finite := stats.Finite(values)
	if len(finite) == 0 {
		return domain.OutlierBounds{}, fmt.Errorf("%w: no finite values to compute outlier bounds", domain.ErrData)
	}

	b := domain.OutlierBounds{
		Min: stats.Min(finite),
		Max: stats.Max(finite),
	}

	switch cfg.OutlierMethod {
	case domain.OutlierIQR:
		q1 := stats.Percentile(finite, 25)
		q3 := stats.Percentile(finite, 75)
		iqr := q3 - q1
		b.Lower = q1 - *cfg.IQRFactor*iqr
		b.Upper = q3 + *cfg.IQRFactor*iqr
		b.Spread = &iqr

	case domain.OutlierStdDev:
		mean := stats.Mean(finite)
		sd := stats.StdDev(finite)
		b.Lower = mean - *cfg.StdDevFactor*sd
		b.Upper = mean + *cfg.StdDevFactor*sd
		b.Spread = &sd

	case domain.OutlierPercentiles:
		b.Lower = stats.Percentile(finite, *cfg.PercentileLower)
		b.Upper = stats.Percentile(finite, *cfg.PercentileUpper)

	default:
		return domain.OutlierBounds{}, fmt.Errorf("%w: unsupported outlier method %q", domain.ErrConfiguration, cfg.OutlierMethod)
	}

	return b, nil
}
