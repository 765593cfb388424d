package engine

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	"blogger-platform/backend/internal/identity/domain"
	"blogger-platform/backend/internal/platform/rbac"
)

// OPAEvaluator evaluates authorization decisions with OPA Rego. The policy is compiled once and
// the prepared query is safe for concurrent use.
type OPAEvaluator struct {
	query rego.PreparedEvalQuery
}

var _ rbac.Evaluator = (*OPAEvaluator)(nil)

// NewOPAEvaluator compiles the authorization policy and prepares the decision query.
func NewOPAEvaluator(ctx context.Context) (*OPAEvaluator, error) {
	compiler, err := ast.CompileModules(map[string]string{"authz.rego": authzPolicy})
	if err != nil {
		return nil, fmt.Errorf("compile authz policy: %w", err)
	}
	query, err := rego.New(
		rego.Query(decisionQuery),
		rego.Compiler(compiler),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare authz query: %w", err)
	}
	return &OPAEvaluator{query: query}, nil
}

// Authorize implements rbac.Evaluator. Evaluation failures are returned as errors, never as a deny.
func (e *OPAEvaluator) Authorize(ctx context.Context, actor domain.Principal, action rbac.Action, resource rbac.Resource) (rbac.Decision, error) {
	rs, err := e.query.Eval(ctx, rego.EvalInput(buildInput(actor, action, resource)))
	if err != nil {
		return "", fmt.Errorf("eval authz policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return "", fmt.Errorf("authz policy returned no result")
	}
	v, ok := rs[0].Expressions[0].Value.(string)
	if !ok {
		return "", fmt.Errorf("authz policy returned %T, want string", rs[0].Expressions[0].Value)
	}
	switch d := rbac.Decision(v); d {
	case rbac.Allow, rbac.Forbidden, rbac.NotFound, rbac.Unauthorized:
		return d, nil
	default:
		return "", fmt.Errorf("authz policy returned unknown decision %q", v)
	}
}

// HealthCheck evaluates an anonymous read against the prepared query. Returns nil on success.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	d, err := e.Authorize(ctx, domain.Anonymous(), rbac.ActionRead, rbac.Resource{OwnerID: "health"})
	if err != nil {
		return err
	}
	if d != rbac.Allow {
		return fmt.Errorf("authz policy health decision = %q, want allow", d)
	}
	return nil
}
