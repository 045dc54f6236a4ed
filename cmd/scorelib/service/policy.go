package service

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/mushee/scorelib/cmd/scorelib/models"
)

// AccessPolicy decides whether a caller may read a catalog entry.
type AccessPolicy interface {
	CanRead(callerID string, score *models.ScoreWithMembership) (bool, error)
}

// CELPolicy evaluates the configured read-policy expression with CEL.
// The expression is compiled once at startup; evaluation per read sees
// four variables: caller, owner, public, in_library.
type CELPolicy struct {
	program cel.Program
}

// NewCELPolicy compiles the policy expression
func NewCELPolicy(expression string) (*CELPolicy, error) {
	env, err := cel.NewEnv(
		cel.Variable("caller", cel.StringType),
		cel.Variable("owner", cel.StringType),
		cel.Variable("public", cel.BoolType),
		cel.Variable("in_library", cel.BoolType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create policy env: %w", err)
	}

	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("policy compilation error: %w", issues.Err())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create policy program: %w", err)
	}

	return &CELPolicy{program: program}, nil
}

// CanRead evaluates the policy for one caller and one entry
func (p *CELPolicy) CanRead(callerID string, score *models.ScoreWithMembership) (bool, error) {
	owner := ""
	if score.OwnerID != nil {
		owner = *score.OwnerID
	}

	out, _, err := p.program.Eval(map[string]interface{}{
		"caller":     callerID,
		"owner":      owner,
		"public":     score.Public(),
		"in_library": score.InLibrary(),
	})
	if err != nil {
		return false, fmt.Errorf("policy evaluation error: %w", err)
	}

	allowed, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("policy expression did not return boolean, got %T", out.Value())
	}

	return allowed, nil
}
