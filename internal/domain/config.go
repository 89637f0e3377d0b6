package domain

import (
	"fmt"
	"time"
)

// Config holds the complete Kestrel configuration, normally loaded from
// a YAML file by internal/config.
type Config struct {
	Global GlobalConfig `yaml:"global" json:"global"`

	// Variables maps variable name to its scoring configuration. Every
	// scored variable must have an entry; absence is a configuration
	// error, not a silent skip.
	Variables map[string]VariableConfig `yaml:"variables" json:"variables"`

	// ScoreMethod determines how per-variable scores merge.
	ScoreMethod ScoreMethod `yaml:"score_method" json:"scoreMethod"`

	// Categories are evaluated in declaration order; first match wins.
	Categories []CategoryRule `yaml:"categories" json:"categories"`

	Sources map[string]SourceConfig `yaml:"sources" json:"sources"`
	Sinks   map[string]SinkConfig   `yaml:"sinks" json:"sinks"`

	// Preprocessing maps source ID to its cleaning steps.
	Preprocessing map[string][]StepConfig `yaml:"preprocessing" json:"preprocessing"`
}

// GlobalConfig holds settings shared across all variables.
type GlobalConfig struct {
	DateRange     DateRange     `yaml:"date_range" json:"dateRange"`
	Columns       ColumnsConfig `yaml:"columns" json:"columns"`
	ScoreRange    ScoreRange    `yaml:"score_range" json:"scoreRange"`
	NumCategories int           `yaml:"num_categories" json:"numCategories"`
}

// DateRange describes the analysis window. Explicit start/end dates
// (YYYY-MM-DD) take precedence; otherwise the end is the last day of
// the month before the run and the start is end minus Number intervals.
type DateRange struct {
	Interval string `yaml:"interval" json:"interval"` // months, days, years
	Number   int    `yaml:"number" json:"number"`
	Start    string `yaml:"start" json:"start,omitempty"`
	End      string `yaml:"end" json:"end,omitempty"`
}

const dateLayout = "2006-01-02"

// Resolve computes the concrete [start, end] window relative to now.
func (d DateRange) Resolve(now time.Time) (start, end time.Time, err error) {
	if d.End != "" {
		end, err = time.Parse(dateLayout, d.End)
		if err != nil {
			return start, end, fmt.Errorf("%w: invalid end date %q: %v", ErrConfiguration, d.End, err)
		}
	} else {
		// Last day of the previous month.
		end = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, 0, -1)
	}

	if d.Start != "" {
		start, err = time.Parse(dateLayout, d.Start)
		if err != nil {
			return start, end, fmt.Errorf("%w: invalid start date %q: %v", ErrConfiguration, d.Start, err)
		}
		return start, end, nil
	}

	switch d.Interval {
	case "months":
		start = end.AddDate(0, -d.Number, 0)
	case "days":
		start = end.AddDate(0, 0, -d.Number)
	case "years":
		start = end.AddDate(-d.Number, 0, 0)
	default:
		return start, end, fmt.Errorf("%w: unrecognized date interval %q (use months, days or years)", ErrConfiguration, d.Interval)
	}
	return start, end, nil
}

// ColumnsConfig maps logical column roles to physical source headers.
type ColumnsConfig struct {
	CustomerID string `yaml:"customer_id" json:"customerId"`
	Date       string `yaml:"date" json:"date"`
	Invoice    string `yaml:"invoice" json:"invoice"`
	Price      string `yaml:"price" json:"price"`
	Quantity   string `yaml:"quantity" json:"quantity"`
}

// SourceConfig describes one transaction source.
type SourceConfig struct {
	Driver string `yaml:"driver" json:"driver"` // csv, sqlite, postgres

	// Path is the file path for csv and sqlite drivers.
	Path string `yaml:"path" json:"path,omitempty"`

	// DSN is the connection string for the postgres driver.
	DSN string `yaml:"dsn" json:"dsn,omitempty"`

	// Table is the table name for sql drivers.
	Table string `yaml:"table" json:"table,omitempty"`

	Delimiter  string `yaml:"delimiter" json:"delimiter,omitempty"`
	DateFormat string `yaml:"date_format" json:"dateFormat,omitempty"`

	// NoDateFilter disables the analysis-window filter for this source.
	NoDateFilter bool `yaml:"no_date_filter" json:"noDateFilter,omitempty"`
}

// SinkConfig describes one output destination.
type SinkConfig struct {
	Driver string `yaml:"driver" json:"driver"` // csv, sqlite, postgres
	Path   string `yaml:"path" json:"path,omitempty"`
	DSN    string `yaml:"dsn" json:"dsn,omitempty"`
	Table  string `yaml:"table" json:"table,omitempty"`
}

// StepConfig is one preprocessing step with its parameters.
type StepConfig struct {
	Step   string     `yaml:"step" json:"step"`
	Params StepParams `yaml:"params" json:"params"`
}

// StepParams carries the union of parameters the built-in steps accept.
type StepParams struct {
	// Strategy maps logical column name to a missing-value action:
	// drop, mean, median or zero.
	Strategy map[string]string `yaml:"strategy" json:"strategy,omitempty"`

	// Columns lists logical columns checked for negative values.
	Columns []string `yaml:"columns" json:"columns,omitempty"`

	// Subset lists logical columns that identify a duplicate;
	// empty means the whole row.
	Subset []string `yaml:"subset" json:"subset,omitempty"`

	// Keep selects which duplicate survives: first, last or none.
	Keep string `yaml:"keep" json:"keep,omitempty"`
}

// DefaultConfig returns a configuration with the documented defaults
// applied. Loading merges the YAML document over this.
func DefaultConfig() *Config {
	return &Config{
		Global: GlobalConfig{
			DateRange: DateRange{Interval: "months", Number: 12},
			Columns: ColumnsConfig{
				CustomerID: "CustomerID",
				Date:       "InvoiceDate",
				Invoice:    "InvoiceNo",
				Price:      "UnitPrice",
				Quantity:   "Quantity",
			},
			ScoreRange:    ScoreRange{Min: 1, Max: 5, Step: 1},
			NumCategories: 5,
		},
		Variables: map[string]VariableConfig{
			VarRecency:   ApplyVariableDefaults(VariableConfig{}),
			VarFrequency: ApplyVariableDefaults(VariableConfig{}),
			VarMonetary:  ApplyVariableDefaults(VariableConfig{}),
		},
		ScoreMethod: ScoreCombination,
	}
}

// ApplyDefaults repairs fields a sparse YAML document may have left
// zeroed and fills per-variable method parameters.
func (c *Config) ApplyDefaults() {
	def := DefaultConfig()
	if c.Global.DateRange.Interval == "" && c.Global.DateRange.Start == "" {
		c.Global.DateRange.Interval = def.Global.DateRange.Interval
	}
	if c.Global.DateRange.Number == 0 {
		c.Global.DateRange.Number = def.Global.DateRange.Number
	}
	if c.Global.Columns.CustomerID == "" {
		c.Global.Columns.CustomerID = def.Global.Columns.CustomerID
	}
	if c.Global.Columns.Date == "" {
		c.Global.Columns.Date = def.Global.Columns.Date
	}
	if c.Global.Columns.Invoice == "" {
		c.Global.Columns.Invoice = def.Global.Columns.Invoice
	}
	if c.Global.Columns.Price == "" {
		c.Global.Columns.Price = def.Global.Columns.Price
	}
	if c.Global.Columns.Quantity == "" {
		c.Global.Columns.Quantity = def.Global.Columns.Quantity
	}
	if c.Global.ScoreRange == (ScoreRange{}) {
		c.Global.ScoreRange = def.Global.ScoreRange
	}
	if c.Global.ScoreRange.Step == 0 {
		c.Global.ScoreRange.Step = 1
	}
	if c.Global.NumCategories == 0 {
		c.Global.NumCategories = def.Global.NumCategories
	}
	if c.ScoreMethod == "" {
		c.ScoreMethod = def.ScoreMethod
	}
	for name, vc := range c.Variables {
		c.Variables[name] = ApplyVariableDefaults(vc)
	}
}

// ApplyVariableDefaults fills unset method parameters with the
// documented defaults.
func ApplyVariableDefaults(vc VariableConfig) VariableConfig {
	if vc.OutlierMethod == "" {
		vc.OutlierMethod = OutlierIQR
	}
	if vc.BreaksMethod == "" {
		vc.BreaksMethod = BreaksPercentiles
	}
	if vc.IQRFactor == nil {
		vc.IQRFactor = Float(1.5)
	}
	if vc.StdDevFactor == nil {
		vc.StdDevFactor = Float(2)
	}
	if vc.PercentileLower == nil {
		vc.PercentileLower = Float(5)
	}
	if vc.PercentileUpper == nil {
		vc.PercentileUpper = Float(95)
	}
	return vc
}

// Validate checks the configuration for structural errors. All
// failures wrap ErrConfiguration.
func (c *Config) Validate() error {
	sr := c.Global.ScoreRange
	if sr.Min >= sr.Max {
		return fmt.Errorf("%w: score range min (%d) must be below max (%d)", ErrConfiguration, sr.Min, sr.Max)
	}
	if sr.Step < 1 {
		return fmt.Errorf("%w: score range step must be at least 1, got %d", ErrConfiguration, sr.Step)
	}
	if c.Global.NumCategories < 2 {
		return fmt.Errorf("%w: num_categories must be at least 2, got %d", ErrConfiguration, c.Global.NumCategories)
	}
	if len(c.Variables) == 0 {
		return fmt.Errorf("%w: at least one variable must be configured", ErrConfiguration)
	}
	for name, vc := range c.Variables {
		switch vc.OutlierMethod {
		case OutlierIQR, OutlierStdDev, OutlierPercentiles:
		default:
			return fmt.Errorf("%w: variable %q: unsupported outlier method %q", ErrConfiguration, name, vc.OutlierMethod)
		}
		switch vc.BreaksMethod {
		case BreaksPercentiles, BreaksJenks:
		default:
			return fmt.Errorf("%w: variable %q: unsupported breaks method %q", ErrConfiguration, name, vc.BreaksMethod)
		}
	}
	switch c.ScoreMethod {
	case ScoreCombination, ScoreSum, ScoreAverage:
	default:
		return fmt.Errorf("%w: unrecognized score method %q", ErrConfiguration, c.ScoreMethod)
	}
	seen := make(map[string]bool, len(c.Categories))
	for _, cat := range c.Categories {
		if cat.Name == "" {
			return fmt.Errorf("%w: business category with empty name", ErrConfiguration)
		}
		if seen[cat.Name] {
			return fmt.Errorf("%w: duplicate business category %q", ErrConfiguration, cat.Name)
		}
		seen[cat.Name] = true
	}
	for id, src := range c.Sources {
		switch src.Driver {
		case "csv", "sqlite", "postgres":
		default:
			return fmt.Errorf("%w: source %q: unsupported driver %q", ErrConfiguration, id, src.Driver)
		}
	}
	for id, snk := range c.Sinks {
		switch snk.Driver {
		case "csv", "sqlite", "postgres":
		default:
			return fmt.Errorf("%w: sink %q: unsupported driver %q", ErrConfiguration, id, snk.Driver)
		}
	}
	return nil
}
