// Package pipeline runs a full segmentation pass: load, clean,
// aggregate, score, combine, categorize, export.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/opensource-finance/kestrel/internal/aggregate"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/export"
	"github.com/opensource-finance/kestrel/internal/preprocess"
	"github.com/opensource-finance/kestrel/internal/repository"
	"github.com/opensource-finance/kestrel/internal/scoring"
	"github.com/opensource-finance/kestrel/internal/segment"
)

var tracer = otel.Tracer("kestrel-pipeline")

// Runner executes segmentation runs against one resolved analysis
// window.
type Runner struct {
	cfg      *domain.Config
	store    *repository.Store
	scorer   *scoring.Pipeline
	assigner *segment.Assigner
	logger   *slog.Logger
	start    time.Time
	end      time.Time
}

// Result summarizes one completed run.
type Result struct {
	RunID      string
	Rows       []domain.SegmentRow
	Variables  []string
	CutoffDate time.Time
	Elapsed    time.Duration
}

// NewRunner resolves the analysis window relative to now and prepares
// the stages. Category conditions are compiled here, so an invalid
// condition fails the run before any data is read.
func NewRunner(cfg *domain.Config, logger *slog.Logger, now time.Time) (*Runner, error) {
	start, end, err := cfg.Global.DateRange.Resolve(now)
	if err != nil {
		return nil, err
	}

	assigner, err := segment.NewAssigner(cfg.Categories)
	if err != nil {
		return nil, err
	}

	return &Runner{
		cfg:      cfg,
		store:    repository.New(cfg, start, end),
		scorer:   scoring.NewPipeline(cfg),
		assigner: assigner,
		logger:   logger,
		start:    start,
		end:      end,
	}, nil
}

// Window returns the resolved analysis window.
func (r *Runner) Window() (start, end time.Time) {
	return r.start, r.end
}

// Run executes one segmentation pass for the named source, writing to
// the named sink. An empty sinkID skips the export stage.
func (r *Runner) Run(ctx context.Context, sourceID, sinkID string) (*Result, error) {
	runID := uuid.New().String()
	began := time.Now()

	ctx, span := tracer.Start(ctx, "segmentation.run",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("run.source", sourceID),
			attribute.String("run.cutoff", r.end.Format("2006-01-02")),
		),
	)
	defer span.End()

	logger := r.logger.With("run_id", runID, "source", sourceID)
	logger.Info("starting segmentation run",
		"window_start", r.start.Format("2006-01-02"),
		"window_end", r.end.Format("2006-01-02"))

	table, err := r.loadStage(ctx, logger, sourceID)
	if err != nil {
		return nil, err
	}
	logger.Info("aggregated customers", "customers", table.Len())

	cols, err := r.scoreStage(ctx, table)
	if err != nil {
		return nil, err
	}

	rows, variables, err := r.segmentStage(ctx, table, cols)
	if err != nil {
		return nil, err
	}

	if sinkID != "" {
		if err := r.exportStage(ctx, logger, sinkID, rows, variables); err != nil {
			return nil, err
		}
	}

	elapsed := time.Since(began)
	logger.Info("segmentation run complete",
		"customers", len(rows),
		"variables", len(variables),
		"elapsed", elapsed.String())

	return &Result{
		RunID:      runID,
		Rows:       rows,
		Variables:  variables,
		CutoffDate: r.end,
		Elapsed:    elapsed,
	}, nil
}

// loadStage produces the customer metrics table. When the source is a
// sql database and no cleaning steps are configured, the aggregation
// runs in the database; otherwise rows are loaded, cleaned and
// aggregated in memory.
func (r *Runner) loadStage(ctx context.Context, logger *slog.Logger, sourceID string) (*domain.CustomerTable, error) {
	ctx, span := tracer.Start(ctx, "segmentation.load")
	defer span.End()

	src, ok := r.cfg.Sources[sourceID]
	if !ok {
		return nil, fmt.Errorf("%w: unknown source %q", domain.ErrConfiguration, sourceID)
	}

	steps := r.cfg.Preprocessing[sourceID]
	if len(steps) == 0 && (src.Driver == "sqlite" || src.Driver == "postgres") {
		logger.Debug("aggregating in database", "driver", src.Driver)
		return r.store.AggregateMetrics(ctx, sourceID, r.end)
	}

	txs, err := r.store.LoadTransactions(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("loading source %q: %w", sourceID, err)
	}
	logger.Info("loaded transactions", "rows", len(txs))

	if len(steps) > 0 {
		txs, err = preprocess.Apply(txs, steps)
		if err != nil {
			return nil, fmt.Errorf("preprocessing source %q: %w", sourceID, err)
		}
		logger.Info("preprocessing complete", "rows", len(txs))
	}

	return aggregate.Aggregate(txs, r.end), nil
}

func (r *Runner) scoreStage(ctx context.Context, table *domain.CustomerTable) ([]domain.ScoreColumn, error) {
	ctx, span := tracer.Start(ctx, "segmentation.score")
	defer span.End()

	cols, err := r.scorer.Run(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("scoring: %w", err)
	}
	return cols, nil
}

func (r *Runner) segmentStage(ctx context.Context, table *domain.CustomerTable, cols []domain.ScoreColumn) ([]domain.SegmentRow, []string, error) {
	_, span := tracer.Start(ctx, "segmentation.segment")
	defer span.End()

	byName := make(map[string]domain.ScoreColumn, len(cols))
	for _, col := range cols {
		byName[col.Variable] = col
	}

	finals, err := segment.CombineScores(byName, r.cfg.ScoreMethod, table.Len())
	if err != nil {
		return nil, nil, fmt.Errorf("combining scores: %w", err)
	}

	rows := make([]domain.SegmentRow, table.Len())
	for i, m := range table.Rows {
		scores := make(map[string]int, len(cols))
		ranges := make(map[string]*domain.Interval, len(cols))
		for _, col := range cols {
			scores[col.Variable] = col.Scores[i]
			ranges[col.Variable] = col.Ranges[i]
		}
		rows[i] = domain.SegmentRow{
			CustomerMetrics: m,
			Scores:          scores,
			Ranges:          ranges,
			FinalScore:      finals[i],
			CutoffDate:      r.end,
		}
	}

	if err := r.assigner.Assign(rows, r.end); err != nil {
		return nil, nil, fmt.Errorf("assigning categories: %w", err)
	}
	return rows, variableOrder(cols), nil
}

// variableOrder puts the standard variables first in their customary
// order, then any extras as scored.
func variableOrder(cols []domain.ScoreColumn) []string {
	present := make(map[string]bool, len(cols))
	for _, col := range cols {
		present[col.Variable] = true
	}

	order := make([]string, 0, len(cols))
	for _, v := range []string{domain.VarRecency, domain.VarFrequency, domain.VarMonetary} {
		if present[v] {
			order = append(order, v)
			present[v] = false
		}
	}
	for _, col := range cols {
		if present[col.Variable] {
			order = append(order, col.Variable)
		}
	}
	return order
}

func (r *Runner) exportStage(ctx context.Context, logger *slog.Logger, sinkID string, rows []domain.SegmentRow, variables []string) error {
	ctx, span := tracer.Start(ctx, "segmentation.export",
		trace.WithAttributes(attribute.String("sink", sinkID)))
	defer span.End()

	snk, ok := r.cfg.Sinks[sinkID]
	if !ok {
		return fmt.Errorf("%w: unknown sink %q", domain.ErrConfiguration, sinkID)
	}

	switch snk.Driver {
	case "csv":
		if err := export.WriteCSV(snk.Path, rows, variables); err != nil {
			return fmt.Errorf("exporting to %s: %w", snk.Path, err)
		}
	case "sqlite", "postgres":
		if err := r.store.WriteSegments(ctx, sinkID, rows); err != nil {
			return fmt.Errorf("writing sink %q: %w", sinkID, err)
		}
	default:
		return fmt.Errorf("%w: sink %q: unsupported driver %q", domain.ErrConfiguration, sinkID, snk.Driver)
	}

	logger.Info("export complete", "sink", sinkID, "rows", len(rows))
	return nil
}
