package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/opensource-finance/kestrel/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kestrel.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Global.ScoreRange.Min != 1 || cfg.Global.ScoreRange.Max != 5 {
		t.Errorf("default score range = %+v", cfg.Global.ScoreRange)
	}
	if cfg.ScoreMethod != domain.ScoreCombination {
		t.Errorf("default score method = %q", cfg.ScoreMethod)
	}
	if len(cfg.Variables) != 3 {
		t.Errorf("expected 3 default variables, got %d", len(cfg.Variables))
	}
	vc := cfg.Variables[domain.VarRecency]
	if vc.OutlierMethod != domain.OutlierIQR || *vc.IQRFactor != 1.5 {
		t.Errorf("default recency config = %+v", vc)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
global:
  date_range:
    interval: months
    number: 6
  num_categories: 4
variables:
  Recency:
    outlier_method: std_dev
    std_dev_factor: 3
  Frequency: {}
  Monetary:
    breaks_method: jenks
score_method: sum
categories:
  - name: Champions
    scores: ["444"]
  - name: At Risk
    condition: recency_score <= 2
sources:
  retail:
    driver: csv
    path: data/retail.csv
sinks:
  out:
    driver: sqlite
    path: out/segments.db
    table: segments
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Global.DateRange.Number != 6 {
		t.Errorf("date range number = %d, want 6", cfg.Global.DateRange.Number)
	}
	if cfg.Global.NumCategories != 4 {
		t.Errorf("num categories = %d, want 4", cfg.Global.NumCategories)
	}
	if cfg.ScoreMethod != domain.ScoreSum {
		t.Errorf("score method = %q, want sum", cfg.ScoreMethod)
	}

	rec := cfg.Variables[domain.VarRecency]
	if rec.OutlierMethod != domain.OutlierStdDev || *rec.StdDevFactor != 3 {
		t.Errorf("recency config = %+v", rec)
	}
	if rec.BreaksMethod != domain.BreaksPercentiles {
		t.Errorf("recency breaks method = %q, want defaulted percentiles", rec.BreaksMethod)
	}
	if mon := cfg.Variables[domain.VarMonetary]; mon.BreaksMethod != domain.BreaksJenks {
		t.Errorf("monetary breaks method = %q, want jenks", mon.BreaksMethod)
	}

	if len(cfg.Categories) != 2 || cfg.Categories[0].Name != "Champions" {
		t.Errorf("categories = %+v", cfg.Categories)
	}
	if cfg.Sources["retail"].Driver != "csv" {
		t.Errorf("source = %+v", cfg.Sources["retail"])
	}
	if cfg.Sinks["out"].Table != "segments" {
		t.Errorf("sink = %+v", cfg.Sinks["out"])
	}

	// Unspecified globals fall back to defaults.
	if cfg.Global.Columns.CustomerID != "CustomerID" {
		t.Errorf("customer column = %q", cfg.Global.Columns.CustomerID)
	}
	if cfg.Global.ScoreRange.Step != 1 {
		t.Errorf("score range step = %d", cfg.Global.ScoreRange.Step)
	}
}

func TestLoadExplicitZeroParams(t *testing.T) {
	path := writeConfig(t, `
variables:
  Recency:
    iqr_factor: 0
  Frequency:
    outlier_method: percentiles
    percentile_lower: 0
  Monetary: {}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// An explicit zero is a value, not an unset field.
	if got := *cfg.Variables[domain.VarRecency].IQRFactor; got != 0 {
		t.Errorf("iqr_factor = %v, want explicit 0", got)
	}
	if got := *cfg.Variables[domain.VarFrequency].PercentileLower; got != 0 {
		t.Errorf("percentile_lower = %v, want explicit 0", got)
	}
	// Unset fields still get the defaults.
	if got := *cfg.Variables[domain.VarMonetary].IQRFactor; got != 1.5 {
		t.Errorf("unset iqr_factor = %v, want 1.5", got)
	}
}

func TestLoadVariablesReplaceDefaults(t *testing.T) {
	path := writeConfig(t, `
variables:
  Frequency: {}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.Variables) != 1 {
		t.Fatalf("expected only the declared variable, got %v", keys(cfg.Variables))
	}
	if _, ok := cfg.Variables[domain.VarFrequency]; !ok {
		t.Errorf("variables = %v", keys(cfg.Variables))
	}

	// A differently-cased declaration must not coexist with a default.
	path = writeConfig(t, `
variables:
  recency: {}
`)
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.Variables) != 1 {
		t.Fatalf("expected 1 variable, got %v", keys(cfg.Variables))
	}
	if _, ok := cfg.Variables["recency"]; !ok {
		t.Errorf("variables = %v", keys(cfg.Variables))
	}
}

func TestLoadWithoutVariablesKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
global:
  num_categories: 4
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.Variables) != 3 {
		t.Errorf("expected the 3 default variables, got %v", keys(cfg.Variables))
	}
}

func keys(m map[string]domain.VariableConfig) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "global: [not a mapping")
	_, err := Load(path)
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

func TestLoadValidationFailure(t *testing.T) {
	path := writeConfig(t, `
variables:
  Recency:
    outlier_method: winsorize
`)
	_, err := Load(path)
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
