// Package collab adapts the external collaborator service to the
// orchestrator's planner, coder, verifier and policy ports. The service
// speaks a small JSON-over-HTTP protocol; every call is authenticated
// with a bearer token when one is configured.
package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/awlondon/openclaw/internal/config"
	"github.com/awlondon/openclaw/internal/logging"
	"github.com/awlondon/openclaw/internal/orchestrator"
	"github.com/awlondon/openclaw/internal/plan"
)

// Client calls the collaborator service. It implements
// orchestrator.PlannerPort, CoderPort and VerifierPort.
type Client struct {
	baseURL string
	token   config.Secret
	http    *http.Client
	log     *logging.Logger
}

// NewClient creates a collaborator client against baseURL.
func NewClient(baseURL string, token config.Secret, timeout time.Duration, log *logging.Logger) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
		log:     log.Named("collab"),
	}
}

type planRequest struct {
	Objective   string `json:"objective"`
	Constraints string `json:"constraints,omitempty"`
}

type planResponse struct {
	Tasks      []plan.Task `json:"tasks"`
	TokensUsed int64       `json:"tokens_used"`
}

// Plan asks the planning collaborator for a task graph.
func (c *Client) Plan(ctx context.Context, objective, constraints string) (plan.Graph, orchestrator.Usage, error) {
	var resp planResponse
	err := c.post(ctx, "/plan", planRequest{Objective: objective, Constraints: constraints}, &resp)
	if err != nil {
		return plan.Graph{}, orchestrator.Usage{}, err
	}
	return plan.Graph{Tasks: resp.Tasks}, orchestrator.Usage{Tokens: resp.TokensUsed}, nil
}

type codeRequest struct {
	Objective string    `json:"objective"`
	Task      plan.Task `json:"task"`
}

type codeResponse struct {
	Patch      orchestrator.PatchCommit `json:"patch"`
	TokensUsed int64                    `json:"tokens_used"`
}

// Code asks the coding collaborator for a patch for one task.
func (c *Client) Code(ctx context.Context, objective string, task plan.Task) (orchestrator.PatchCommit, orchestrator.Usage, error) {
	var resp codeResponse
	err := c.post(ctx, "/code", codeRequest{Objective: objective, Task: task}, &resp)
	if err != nil {
		return orchestrator.PatchCommit{}, orchestrator.Usage{}, err
	}
	return resp.Patch, orchestrator.Usage{Tokens: resp.TokensUsed}, nil
}

type verifyRequest struct {
	Task  plan.Task                `json:"task"`
	Patch orchestrator.PatchCommit `json:"patch"`
}

type verifyResponse struct {
	Verdict    orchestrator.VerifierVerdict `json:"verdict"`
	TokensUsed int64                        `json:"tokens_used"`
}

// Verify asks the verification collaborator for a verdict on a patch.
func (c *Client) Verify(ctx context.Context, task plan.Task, patch orchestrator.PatchCommit) (orchestrator.VerifierVerdict, orchestrator.Usage, error) {
	var resp verifyResponse
	err := c.post(ctx, "/verify", verifyRequest{Task: task, Patch: patch}, &resp)
	if err != nil {
		return orchestrator.VerifierVerdict{}, orchestrator.Usage{}, err
	}
	return resp.Verdict, orchestrator.Usage{Tokens: resp.TokensUsed}, nil
}

// post sends one JSON request and decodes the JSON response into out.
func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token.IsSet() {
		req.Header.Set("Authorization", "Bearer "+c.token.Value())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling collaborator %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("collaborator %s returned %d: %s", path, resp.StatusCode, snippet)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
