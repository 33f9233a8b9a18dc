// Package orchestrator schedules code-change tasks by their declared
// dependencies and applies each task's change as an idempotent set of
// branch/commit/PR mutations against the Git hosting API. Every task is
// gated behind an external policy evaluator before any mutation, and a
// task's hosting-API failure or policy block is isolated to that task's
// result instead of aborting the batch.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/awlondon/openclaw/internal/logging"
	"github.com/awlondon/openclaw/internal/plan"
)

// Options configures an orchestrator.
type Options struct {
	DefaultBranch    string
	CheckContext     string
	MergeInterval    time.Duration
	MergeMaxAttempts int
}

// Orchestrator runs batches of code-change tasks end to end. Tasks are
// processed strictly sequentially: the next task does not start until the
// current one's full pipeline (patch, verdict, policy, mutation, optional
// merge wait) completes.
type Orchestrator struct {
	host     HostPort
	planner  PlannerPort
	coder    CoderPort
	verifier VerifierPort
	policy   PolicyPort
	opts     Options
	log      *logging.Logger
}

// New creates an orchestrator over the given collaborator ports.
func New(host HostPort, planner PlannerPort, coder CoderPort, verifier VerifierPort, policy PolicyPort, opts Options, log *logging.Logger) *Orchestrator {
	if log == nil {
		log = logging.NewNop()
	}
	return &Orchestrator{
		host:     host,
		planner:  planner,
		coder:    coder,
		verifier: verifier,
		policy:   policy,
		opts:     opts,
		log:      log.Named("orchestrator"),
	}
}

// RunPlanned executes an agent-driven run: the planner collaborator
// produces the task graph and the coder collaborator authors each patch.
func (o *Orchestrator) RunPlanned(ctx context.Context, objective, constraints string, exec Execution) (*BatchReport, error) {
	if objective == "" {
		return nil, fmt.Errorf("%w: objective is required", ErrValidation)
	}
	if o.planner == nil {
		return nil, fmt.Errorf("%w: no planning collaborator configured", ErrValidation)
	}

	graph, usage, err := o.planner.Plan(ctx, objective, constraints)
	if err != nil {
		return nil, fmt.Errorf("planning failed: %w", err)
	}
	return o.run(ctx, objective, graph, exec, o.coder, usage)
}

// RunSpecified executes a pre-specified run over caller-supplied tasks.
// The patch for each task is a fixed documentation stub. Requests over the
// task cap are rejected before any external call.
func (o *Orchestrator) RunSpecified(ctx context.Context, objective string, tasks []plan.Task, exec Execution) (*BatchReport, error) {
	if objective == "" {
		return nil, fmt.Errorf("%w: objective is required", ErrValidation)
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("%w: at least one task is required", ErrValidation)
	}
	if len(tasks) > MaxSpecifiedTasks {
		return nil, fmt.Errorf("%w: %d tasks exceeds the cap of %d", ErrValidation, len(tasks), MaxSpecifiedTasks)
	}
	return o.run(ctx, objective, plan.Graph{Tasks: tasks}, exec, StubCoder{}, Usage{})
}

// run is the shared pipeline behind both entry points.
func (o *Orchestrator) run(ctx context.Context, objective string, graph plan.Graph, exec Execution, coder CoderPort, planUsage Usage) (*BatchReport, error) {
	ctx = logging.WithRunID(ctx, uuid.NewString())

	// Pre-flight: a malformed graph aborts before any side effect.
	ordered, err := plan.Order(graph)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	host := newCountingHost(o.host)
	applier := NewChangeApplier(host, o.log)
	provisioner := NewProvisioner(host, applier, o.opts.DefaultBranch, o.opts.CheckContext, o.log)
	watcher := NewMergeWatcher(host, o.opts.MergeInterval, o.opts.MergeMaxAttempts, o.log)

	agg := newAggregator(len(ordered))
	agg.addUsage(planUsage)

	policyCfg, err := o.policy.BuildConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading policy config: %w", err)
	}

	repo, liveURL, err := provisioner.Provision(ctx, objective, exec.EnablePages)
	if err != nil {
		return nil, err
	}

	order := make([]string, 0, len(ordered))
	for _, t := range ordered {
		order = append(order, t.ID)
	}

	for _, task := range ordered {
		if err := ctx.Err(); err != nil {
			agg.add(failedResult(task.ID, "", fmt.Errorf("run canceled: %w", err)))
			continue
		}
		taskCtx := logging.WithTaskID(ctx, task.ID)
		agg.add(o.processTask(taskCtx, task, objective, repo, exec, coder, applier, watcher, policyCfg, agg, host))
	}

	o.log.Info(ctx, "batch complete",
		zap.String("repo", repo),
		zap.Int("tasks", len(ordered)),
		zap.Int64("api_calls", host.Calls()))
	report := agg.report(repo, liveURL, order, host.Calls())
	report.Plan = ordered
	return report, nil
}

// processTask runs one task's pipeline. Collaborator and hosting-API
// failures are attached to the returned result; they never abort the batch.
func (o *Orchestrator) processTask(
	ctx context.Context,
	task plan.Task,
	objective, repo string,
	exec Execution,
	coder CoderPort,
	applier *ChangeApplier,
	watcher *MergeWatcher,
	policyCfg PolicyConfig,
	agg *aggregator,
	host *countingHost,
) TaskResult {
	patch, usage, err := coder.Code(ctx, objective, task)
	agg.addUsage(usage)
	if err != nil {
		return failedResult(task.ID, "", fmt.Errorf("coder: %w", err))
	}
	if patch.Branch == "" {
		patch.Branch = BranchForTask(task.ID)
	}

	verdict, usage, err := o.verifier.Verify(ctx, task, patch)
	agg.addUsage(usage)
	if err != nil {
		return failedResult(task.ID, patch.Branch, fmt.Errorf("verifier: %w", err))
	}

	// Policy is evaluated before any mutation: a blocked task leaves no
	// artifacts to roll back.
	decision, err := o.policy.Evaluate(ctx, PolicyInput{
		Task:        task,
		Verdict:     verdict,
		CIStatus:    "pending",
		DiffSummary: patch.DiffSummary(),
		Budget:      agg.budget(host.Calls()),
		Config:      policyCfg,
	})
	if err != nil {
		return failedResult(task.ID, patch.Branch, fmt.Errorf("policy evaluation: %w", err))
	}
	if !decision.AllowMerge {
		o.log.Info(ctx, "task blocked by policy",
			zap.String("risk", string(decision.RiskLevel)),
			zap.Strings("reasons", decision.Reasons))
		return TaskResult{
			TaskID:         task.ID,
			Status:         StatusBlockedByPolicy,
			Branch:         patch.Branch,
			VerifierStatus: verdict.Status,
			Policy:         &decision,
		}
	}

	// Verifier-generated tests ride along with the patch.
	patch.Files = append(patch.Files, verdict.TestFiles...)

	pr, err := applier.Apply(ctx, repo, o.opts.DefaultBranch, patch)
	if err != nil {
		return failedResult(task.ID, patch.Branch, err)
	}
	agg.addPR(pr)

	result := TaskResult{
		TaskID:         task.ID,
		Status:         StatusPROpened,
		Branch:         patch.Branch,
		PRNumber:       pr.Number,
		PRURL:          pr.HTMLURL,
		VerifierStatus: verdict.Status,
		Policy:         &decision,
	}

	if exec.AutoMerge {
		outcome, state, err := watcher.Await(ctx, repo, pr.Number, patch.Title)
		if err != nil {
			o.log.Warn(ctx, "merge watch errored",
				zap.String("state", string(state)), zap.Error(err))
			result.Error = err.Error()
		} else {
			result.Merge = &outcome
		}
	} else {
		result.Merge = &MergeOutcome{Merged: false, Reason: "auto-merge disabled"}
	}

	return result
}

// failedResult records an isolated per-task failure.
func failedResult(taskID, branch string, err error) TaskResult {
	return TaskResult{
		TaskID: taskID,
		Status: StatusFailed,
		Branch: branch,
		Error:  err.Error(),
	}
}
