package domain

import "fmt"

// OutlierMethod selects how per-variable outlier bounds are derived.
type OutlierMethod string

const (
	OutlierIQR         OutlierMethod = "IQR"
	OutlierStdDev      OutlierMethod = "std_dev"
	OutlierPercentiles OutlierMethod = "percentiles"
)

// BreaksMethod selects how classification cut-points are computed.
type BreaksMethod string

const (
	BreaksPercentiles BreaksMethod = "percentiles"
	BreaksJenks       BreaksMethod = "jenks"
)

// ScoreMethod selects how per-variable scores merge into a final score.
type ScoreMethod string

const (
	ScoreCombination ScoreMethod = "combination"
	ScoreSum         ScoreMethod = "sum"
	ScoreAverage     ScoreMethod = "average"
)

// ScoreRange bounds the ordinal scores assigned to each bucket.
type ScoreRange struct {
	Min  int `yaml:"min" json:"min"`
	Max  int `yaml:"max" json:"max"`
	Step int `yaml:"step" json:"step"`
}

// VariableConfig drives outlier and break computation for one scored
// variable. NumCategories is global, not per-variable. The method
// parameters are pointers so an explicit zero in configuration is
// distinguishable from an unset field; ApplyVariableDefaults fills
// nil pointers.
type VariableConfig struct {
	OutlierMethod   OutlierMethod `yaml:"outlier_method" json:"outlierMethod"`
	IQRFactor       *float64      `yaml:"iqr_factor" json:"iqrFactor,omitempty"`
	StdDevFactor    *float64      `yaml:"std_dev_factor" json:"stdDevFactor,omitempty"`
	PercentileLower *float64      `yaml:"percentile_lower" json:"percentileLower,omitempty"`
	PercentileUpper *float64      `yaml:"percentile_upper" json:"percentileUpper,omitempty"`
	BreaksMethod    BreaksMethod  `yaml:"breaks_method" json:"breaksMethod"`
}

// Float returns a pointer to v, for the optional numeric config fields.
func Float(v float64) *float64 {
	return &v
}

// OutlierBounds is the interval used to exclude extreme values before
// cut-point computation. Spread is the IQR or standard deviation that
// produced the bounds; nil for the percentile method.
type OutlierBounds struct {
	Lower  float64  `json:"lower"`
	Upper  float64  `json:"upper"`
	Spread *float64 `json:"spread,omitempty"`
	Min    float64  `json:"min"`
	Max    float64  `json:"max"`
}

// Interval is a half-open value range [Lower, Upper).
type Interval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Contains reports whether v falls in the half-open interval.
func (iv Interval) Contains(v float64) bool {
	return v >= iv.Lower && v < iv.Upper
}

func (iv Interval) String() string {
	return fmt.Sprintf("(%.4f, %.4f)", iv.Lower, iv.Upper)
}

// BreakSet holds the ordered cut-points for one variable and the
// half-open ranges they induce. Cutpoints include the injected
// min-epsilon and max+epsilon sentinels, so
// len(Ranges) == len(Cutpoints)-1 and the ranges cover every observed
// value with no gaps and no overlaps.
type BreakSet struct {
	Cutpoints []float64  `json:"cutpoints"`
	Ranges    []Interval `json:"ranges"`
}

// ScoreColumn is the scoring output for one variable: an ordinal score
// and the matched range per table row. A nil range means the raw value
// was NaN or fell outside every computed range.
type ScoreColumn struct {
	Variable string      `json:"variable"`
	Scores   []int       `json:"scores"`
	Ranges   []*Interval `json:"ranges"`
}
