package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/awlondon/openclaw/internal/logging"
)

// WatchState is the state of a merge watch.
type WatchState string

const (
	// WatchPolling means the watcher is still waiting for CI.
	WatchPolling WatchState = "polling"
	// WatchSatisfied means every check run succeeded and the merge was
	// performed.
	WatchSatisfied WatchState = "satisfied"
	// WatchTimedOut means the attempt budget ran out before CI went green.
	WatchTimedOut WatchState = "timed_out"
	// WatchErrored means a hosting-API failure or cancellation interrupted
	// the watch.
	WatchErrored WatchState = "errored"
)

// ciNotGreenReason is reported when the polling budget is exhausted.
const ciNotGreenReason = "CI not green"

// MergeWatcher polls a pull request's check runs with a bounded
// attempt/interval budget and squash-merges once every present check run
// reports success. Exhausting the budget is an expected outcome, returned
// without error.
type MergeWatcher struct {
	host        HostPort
	interval    time.Duration
	maxAttempts int
	log         *logging.Logger
}

// NewMergeWatcher creates a watcher. Non-positive interval or attempts fall
// back to the defaults (5s, 20 attempts).
func NewMergeWatcher(host HostPort, interval time.Duration, maxAttempts int, log *logging.Logger) *MergeWatcher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 20
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &MergeWatcher{
		host:        host,
		interval:    interval,
		maxAttempts: maxAttempts,
		log:         log.Named("mergewatcher"),
	}
}

// Await polls until the pull request is mergeable with all check runs
// successful, then squash-merges it. The returned state is WatchSatisfied,
// WatchTimedOut (with {Merged:false, Reason:"CI not green"} and a nil
// error), or WatchErrored when the context is canceled or the host fails.
func (w *MergeWatcher) Await(ctx context.Context, repo string, prNumber int, mergeMessage string) (MergeOutcome, WatchState, error) {
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		ready, err := w.poll(ctx, repo, prNumber)
		if err != nil {
			return MergeOutcome{}, WatchErrored, err
		}
		if ready {
			if err := w.host.MergePullRequest(ctx, repo, prNumber, mergeMessage); err != nil {
				return MergeOutcome{}, WatchErrored, err
			}
			w.log.Info(ctx, "pull request merged",
				zap.Int("pr", prNumber), zap.Int("attempts", attempt))
			return MergeOutcome{Merged: true}, WatchSatisfied, nil
		}

		if attempt == w.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return MergeOutcome{}, WatchErrored, fmt.Errorf("merge watch canceled: %w", ctx.Err())
		case <-time.After(w.interval):
		}
	}

	w.log.Warn(ctx, "merge watch budget exhausted",
		zap.Int("pr", prNumber), zap.Int("attempts", w.maxAttempts))
	return MergeOutcome{Merged: false, Reason: ciNotGreenReason}, WatchTimedOut, nil
}

// poll checks whether the pull request is clean and every present check run
// has a success conclusion. No check runs yet means CI has not reported,
// not that it failed.
func (w *MergeWatcher) poll(ctx context.Context, repo string, prNumber int) (bool, error) {
	pr, err := w.host.GetPullRequest(ctx, repo, prNumber)
	if err != nil {
		return false, err
	}
	if pr.MergeableState != "clean" {
		w.log.Debug(ctx, "pull request not clean",
			zap.Int("pr", prNumber), zap.String("mergeable_state", pr.MergeableState))
		return false, nil
	}

	runs, err := w.host.ListCheckRuns(ctx, repo, pr.HeadSHA)
	if err != nil {
		return false, err
	}
	if len(runs) == 0 {
		w.log.Debug(ctx, "no check runs reported yet", zap.Int("pr", prNumber))
		return false, nil
	}
	for _, run := range runs {
		if run.Conclusion != "success" {
			return false, nil
		}
	}
	return true, nil
}
