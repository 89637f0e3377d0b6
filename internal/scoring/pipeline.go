package scoring

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Pipeline scores every configured variable of a customer table,
// producing one score/range column pair per variable. Variables are
// independent, so they are scored concurrently; each writes only its
// own output column.
type Pipeline struct {
	variables     map[string]domain.VariableConfig
	scoreRange    domain.ScoreRange
	numCategories int
}

// NewPipeline builds a scoring pipeline from the configuration,
// applying per-variable parameter defaults.
func NewPipeline(cfg *domain.Config) *Pipeline {
	vars := make(map[string]domain.VariableConfig, len(cfg.Variables))
	for name, vc := range cfg.Variables {
		vars[name] = domain.ApplyVariableDefaults(vc)
	}
	return &Pipeline{
		variables:     vars,
		scoreRange:    cfg.Global.ScoreRange,
		numCategories: cfg.Global.NumCategories,
	}
}

// Run scores all configured variables. A failure scoring one variable
// is logged and that variable skipped; the remaining variables still
// produce columns. The returned columns are ordered by variable name.
func (p *Pipeline) Run(ctx context.Context, table *domain.CustomerTable) ([]domain.ScoreColumn, error) {
	names := make([]string, 0, len(p.variables))
	for name := range p.variables {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]*domain.ScoreColumn, len(names))
	g, ctx := errgroup.WithContext(ctx)

	for i, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			col, err := p.scoreVariable(table, name)
			if err != nil {
				slog.Warn("skipping variable", "variable", name, "error", err)
				return nil
			}
			results[i] = col
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]domain.ScoreColumn, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (p *Pipeline) scoreVariable(table *domain.CustomerTable, name string) (*domain.ScoreColumn, error) {
	values, err := table.Column(name)
	if err != nil {
		return nil, err
	}

	cfg := p.variables[name]

	bounds, err := ComputeBounds(values, cfg)
	if err != nil {
		return nil, err
	}

	breaks, err := ComputeBreaks(values, bounds, p.numCategories, cfg.BreaksMethod)
	if err != nil {
		return nil, err
	}

	// Lower recency means a more recent purchase, which must earn a
	// higher score.
	inverse := strings.EqualFold(name, domain.VarRecency)

	scores, ranges := AssignScores(values, breaks, p.scoreRange, p.numCategories, inverse)

	return &domain.ScoreColumn{
		Variable: name,
		Scores:   scores,
		Ranges:   ranges,
	}, nil
}
