package collab

import (
	"context"

	"github.com/awlondon/openclaw/internal/orchestrator"
	"github.com/awlondon/openclaw/internal/plan"
)

// Policy calls the collaborator service's policy endpoints. It implements
// orchestrator.PolicyPort; the remote decision is returned unmodified.
type Policy struct {
	client *Client
}

// NewPolicy creates a policy evaluator over an existing client.
func NewPolicy(client *Client) *Policy {
	return &Policy{client: client}
}

type policyConfigResponse struct {
	Config orchestrator.PolicyConfig `json:"config"`
}

// BuildConfig fetches the evaluator configuration, once per run.
func (p *Policy) BuildConfig(ctx context.Context) (orchestrator.PolicyConfig, error) {
	var resp policyConfigResponse
	if err := p.client.post(ctx, "/policy/config", struct{}{}, &resp); err != nil {
		return nil, err
	}
	return resp.Config, nil
}

type evaluateRequest struct {
	Task        plan.Task                    `json:"task"`
	Verdict     orchestrator.VerifierVerdict `json:"verdict"`
	CIStatus    string                       `json:"ci_status"`
	DiffSummary string                       `json:"diff_summary"`
	Budget      orchestrator.Budget          `json:"budget"`
	Config      orchestrator.PolicyConfig    `json:"config,omitempty"`
}

type evaluateResponse struct {
	Decision orchestrator.PolicyDecision `json:"decision"`
}

// Evaluate asks the evaluator for a verdict on one task.
func (p *Policy) Evaluate(ctx context.Context, in orchestrator.PolicyInput) (orchestrator.PolicyDecision, error) {
	req := evaluateRequest{
		Task:        in.Task,
		Verdict:     in.Verdict,
		CIStatus:    in.CIStatus,
		DiffSummary: in.DiffSummary,
		Budget:      in.Budget,
		Config:      in.Config,
	}
	var resp evaluateResponse
	if err := p.client.post(ctx, "/policy/evaluate", req, &resp); err != nil {
		return orchestrator.PolicyDecision{}, err
	}
	return resp.Decision, nil
}

// PermissivePolicy is the built-in fallback used when no collaborator
// service is configured: every task is allowed at low risk.
type PermissivePolicy struct{}

// BuildConfig returns an empty configuration.
func (PermissivePolicy) BuildConfig(context.Context) (orchestrator.PolicyConfig, error) {
	return orchestrator.PolicyConfig{}, nil
}

// Evaluate allows every task.
func (PermissivePolicy) Evaluate(context.Context, orchestrator.PolicyInput) (orchestrator.PolicyDecision, error) {
	return orchestrator.PolicyDecision{
		AllowMerge: true,
		RiskLevel:  orchestrator.RiskLow,
		Reasons:    []string{"no policy evaluator configured"},
	}, nil
}

// PassthroughVerifier is the fallback verifier when no collaborator
// service is configured. It waves every patch through without generating
// tests.
type PassthroughVerifier struct{}

// Verify reports the patch as unverified.
func (PassthroughVerifier) Verify(context.Context, plan.Task, orchestrator.PatchCommit) (orchestrator.VerifierVerdict, orchestrator.Usage, error) {
	return orchestrator.VerifierVerdict{Status: "skipped"}, orchestrator.Usage{}, nil
}
