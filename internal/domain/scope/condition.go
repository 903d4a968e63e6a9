package scope

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/cel-go/cel"
)

// maxExpressionLength bounds the size of a rule's optional elevation_condition.
const maxExpressionLength = 1024

// maxCostBudget limits CEL runtime cost to prevent a pathological
// expression from stalling token issuance.
const maxCostBudget = 100_000

// maxNestingDepth bounds parenthesis/bracket/brace nesting in a condition.
const maxNestingDepth = 50

// evalTimeout bounds a single condition evaluation.
const evalTimeout = 2 * time.Second

// ConditionInput is the activation context an elevation_condition expression
// may reference: the command being proposed, its arguments, and the scope
// of the rule that matched.
type ConditionInput struct {
	Command string
	Args    []string
	Scope   string
}

// ConditionEvaluator compiles and evaluates optional per-rule CEL
// expressions that further constrain auto-elevation beyond the fixed
// scope matrix (e.g. "only auto-approve net scope when args[0] ==
// 'localhost'"). A rule with no elevation_condition skips this entirely;
// DefaultElevation's matrix is the only gate in that case.
type ConditionEvaluator struct {
	env *cel.Env
}

// NewConditionEvaluator builds the CEL environment with command, args, and
// scope declared as the only variables a condition may reference.
func NewConditionEvaluator() (*ConditionEvaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("command", cel.StringType),
		cel.Variable("args", cel.ListType(cel.StringType)),
		cel.Variable("scope", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("scope: build cel environment: %w", err)
	}
	return &ConditionEvaluator{env: env}, nil
}

func validateNesting(expr string) error {
	var depth, maxDepth int
	for _, ch := range expr {
		switch ch {
		case '(', '[', '{':
			depth++
			if depth > maxDepth {
				maxDepth = depth
			}
		case ')', ']', '}':
			depth--
		}
	}
	if maxDepth > maxNestingDepth {
		return fmt.Errorf("scope: condition nesting too deep: %d levels (max %d)", maxDepth, maxNestingDepth)
	}
	return nil
}

// Compile parses, type-checks, and bounds expr before returning a program
// ready for repeated Evaluate calls.
func (e *ConditionEvaluator) Compile(expr string) (cel.Program, error) {
	if expr == "" {
		return nil, errors.New("scope: condition expression is empty")
	}
	if len(expr) > maxExpressionLength {
		return nil, fmt.Errorf("scope: condition too long: %d characters (max %d)", len(expr), maxExpressionLength)
	}
	if err := validateNesting(expr); err != nil {
		return nil, err
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("scope: condition compilation failed: %w", issues.Err())
	}

	prg, err := e.env.Program(ast,
		cel.EvalOptions(cel.OptOptimize),
		cel.CostLimit(maxCostBudget),
	)
	if err != nil {
		return nil, fmt.Errorf("scope: condition program creation failed: %w", err)
	}
	return prg, nil
}

// Evaluate runs the compiled condition against input, bounded by
// evalTimeout, and requires a boolean result.
func (e *ConditionEvaluator) Evaluate(prg cel.Program, input ConditionInput) (bool, error) {
	args := make([]interface{}, len(input.Args))
	for i, a := range input.Args {
		args[i] = a
	}

	ctx, cancel := context.WithTimeout(context.Background(), evalTimeout)
	defer cancel()

	result, _, err := prg.ContextEval(ctx, map[string]interface{}{
		"command": input.Command,
		"args":    args,
		"scope":   input.Scope,
	})
	if err != nil {
		return false, fmt.Errorf("scope: condition evaluation failed: %w", err)
	}

	boolResult, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("scope: condition did not return a boolean, got %T", result.Value())
	}
	return boolResult, nil
}
