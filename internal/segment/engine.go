package segment

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// ConditionEngine evaluates optional CEL eligibility conditions on
// business categories. Conditions are compiled once at construction;
// evaluation is read-only and safe for concurrent use.
type ConditionEngine struct {
	env      *cel.Env
	programs map[string]cel.Program // key: category name
}

// NewConditionEngine compiles the conditions of the given categories.
// A category without a condition is simply absent from the engine.
func NewConditionEngine(categories []domain.CategoryRule) (*ConditionEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("final_score", cel.StringType),
		cel.Variable("recency_score", cel.IntType),
		cel.Variable("frequency_score", cel.IntType),
		cel.Variable("monetary_score", cel.IntType),
		cel.Variable("months_with_purchases", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	e := &ConditionEngine{
		env:      env,
		programs: make(map[string]cel.Program),
	}

	for _, cat := range categories {
		if cat.Condition == "" {
			continue
		}
		ast, issues := env.Compile(cat.Condition)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("%w: category %q: invalid condition: %v", domain.ErrConfiguration, cat.Name, issues.Err())
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("%w: category %q: %v", domain.ErrConfiguration, cat.Name, err)
		}
		e.programs[cat.Name] = prg
	}

	return e, nil
}

// Eval runs the named category's condition against the activation.
// Categories without a compiled condition never match.
func (e *ConditionEngine) Eval(category string, activation map[string]any) (bool, error) {
	prg, ok := e.programs[category]
	if !ok {
		return false, nil
	}

	out, _, err := prg.Eval(activation)
	if err != nil {
		return false, fmt.Errorf("category %q condition evaluation: %w", category, err)
	}
	if b, ok := out.(types.Bool); ok {
		return bool(b), nil
	}
	return false, nil
}
