package githost

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-github/v57/github"
	"go.uber.org/zap"

	"github.com/awlondon/openclaw/internal/logging"
)

// RetryConfig configures retry behavior for hosting-API calls.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts. Default: 3.
	MaxRetries int

	// InitialBackoff is the initial backoff duration. Default: 1 second.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration. Default: 30 seconds.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff. Default: 2.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// ApplyDefaults sets default values for unset fields.
func (c *RetryConfig) ApplyDefaults() {
	defaults := DefaultRetryConfig()

	if c.MaxRetries == 0 {
		c.MaxRetries = defaults.MaxRetries
	}
	if c.InitialBackoff == 0 {
		c.InitialBackoff = defaults.InitialBackoff
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = defaults.MaxBackoff
	}
	if c.BackoffMultiplier == 0 {
		c.BackoffMultiplier = defaults.BackoffMultiplier
	}
}

// retry runs a hosting-API operation with exponential backoff on transient
// errors. Rate-limit responses wait for the advertised reset when one is
// present.
func retry(ctx context.Context, config *RetryConfig, operation func() (*github.Response, error)) (*github.Response, error) {
	if config == nil {
		config = DefaultRetryConfig()
	}
	config.ApplyDefaults()

	log := logging.FromContext(ctx)

	var lastErr error
	var lastResp *github.Response
	backoff := config.InitialBackoff

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		resp, err := operation()
		if err == nil {
			if attempt > 0 {
				log.Debug(ctx, "hosting-api operation recovered after retries",
					zap.Int("attempts", attempt))
			}
			return resp, nil
		}

		lastErr = err
		lastResp = resp

		if !isRetryable(err, resp) {
			return resp, err
		}
		if attempt == config.MaxRetries {
			break
		}

		if isRateLimited(resp) {
			backoff = rateLimitBackoff(resp, config.MaxBackoff)
			log.Warn(ctx, "hosting-api rate limit hit",
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff))
		} else {
			log.Debug(ctx, "retrying hosting-api operation",
				zap.Int("attempt", attempt+1),
				zap.Int("status_code", statusCode(resp)),
				zap.Duration("backoff", backoff),
				zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("operation canceled: %w", ctx.Err())
		case <-time.After(backoff):
			next := time.Duration(float64(backoff) * config.BackoffMultiplier)
			if next > config.MaxBackoff {
				next = config.MaxBackoff
			}
			backoff = next
		}
	}

	return lastResp, fmt.Errorf("hosting-api operation failed after %d retries: %w", config.MaxRetries, lastErr)
}

// isRetryable classifies a hosting-API failure as transient or permanent.
func isRetryable(err error, resp *github.Response) bool {
	if err == nil {
		return false
	}

	if resp != nil && resp.Response != nil {
		code := resp.Response.StatusCode
		switch code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		case http.StatusForbidden:
			// A 403 carrying rate info is a secondary rate limit.
			return resp.Rate.Limit > 0
		case http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusUnprocessableEntity:
			return false
		default:
			return code >= 500 && code < 600
		}
	}

	// No response at all: network error or timeout.
	return true
}

func isRateLimited(resp *github.Response) bool {
	if resp == nil || resp.Response == nil {
		return false
	}
	if resp.Response.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return resp.Response.StatusCode == http.StatusForbidden && resp.Rate.Limit > 0
}

// rateLimitBackoff waits until the advertised rate-limit reset, capped.
func rateLimitBackoff(resp *github.Response, maxBackoff time.Duration) time.Duration {
	if resp == nil || (resp.Rate.Limit == 0 && resp.Rate.Remaining == 0) {
		return time.Minute
	}

	backoff := time.Until(resp.Rate.Reset.Time) + time.Second
	if backoff < 0 {
		backoff = time.Second
	}
	if backoff > maxBackoff {
		backoff = maxBackoff
	}
	return backoff
}

func statusCode(resp *github.Response) int {
	if resp != nil && resp.Response != nil {
		return resp.Response.StatusCode
	}
	return 0
}
