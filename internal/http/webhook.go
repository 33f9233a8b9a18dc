package http

import (
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/awlondon/openclaw/internal/config"
	"github.com/awlondon/openclaw/internal/events"
	"github.com/awlondon/openclaw/internal/logging"
)

// maxWebhookBody bounds inbound payload size.
const maxWebhookBody = 1 << 20

// WebhookHandler receives hosting-provider webhook deliveries, validates
// their signatures and fans the normalized events out to the broadcaster.
// Deliveries are peripheral: nothing in the orchestration pipeline waits
// on them.
type WebhookHandler struct {
	secret      config.Secret
	broadcaster *events.Broadcaster
	logger      *logging.Logger

	mu           sync.Mutex
	rateLimiters map[string]*rate.Limiter
	lastCleanup  time.Time
}

// NewWebhookHandler creates a handler. With an unset secret, deliveries
// are accepted unsigned.
func NewWebhookHandler(secret config.Secret, broadcaster *events.Broadcaster, logger *logging.Logger) *WebhookHandler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &WebhookHandler{
		secret:       secret,
		broadcaster:  broadcaster,
		logger:       logger.Named("webhook"),
		rateLimiters: make(map[string]*rate.Limiter),
		lastCleanup:  time.Now(),
	}
}

// getRateLimiter returns a rate limiter for the given IP address.
// Rate limit: 60 requests per minute per IP address.
func (h *WebhookHandler) getRateLimiter(ip string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Drop all limiters hourly to bound memory.
	if time.Since(h.lastCleanup) > time.Hour {
		h.rateLimiters = make(map[string]*rate.Limiter)
		h.lastCleanup = time.Now()
	}

	limiter, exists := h.rateLimiters[ip]
	if !exists {
		limiter = rate.NewLimiter(rate.Limit(1), 10)
		h.rateLimiters[ip] = limiter
	}

	return limiter
}

// clientIP extracts the client IP address from the request.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	return r.RemoteAddr
}

// Handle is the echo handler for POST /webhook.
func (h *WebhookHandler) Handle(c echo.Context) error {
	r := c.Request()
	ctx := r.Context()

	ip := clientIP(r)
	if !h.getRateLimiter(ip).Allow() {
		h.logger.Warn(ctx, "rate limit exceeded", zap.String("ip", ip))
		return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
	}

	r.Body = http.MaxBytesReader(c.Response(), r.Body, maxWebhookBody)

	var payload []byte
	var err error
	if h.secret.IsSet() {
		payload, err = github.ValidatePayload(r, []byte(h.secret.Value()))
		if err != nil {
			h.logger.Warn(ctx, "invalid webhook signature", zap.Error(err))
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid signature")
		}
	} else {
		payload, err = io.ReadAll(r.Body)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "reading payload")
		}
	}

	event, err := github.ParseWebHook(github.WebHookType(r), payload)
	if err != nil {
		h.logger.Warn(ctx, "failed to parse webhook", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "unparseable payload")
	}

	switch e := event.(type) {
	case *github.CheckRunEvent:
		h.broadcaster.Publish(ctx, events.Event{
			Type:       events.TypeCheckRun,
			Action:     e.GetAction(),
			Repo:       e.GetRepo().GetName(),
			CheckName:  e.GetCheckRun().GetName(),
			Conclusion: e.GetCheckRun().GetConclusion(),
			ReceivedAt: time.Now().UTC(),
		})
	case *github.PullRequestEvent:
		h.broadcaster.Publish(ctx, events.Event{
			Type:       events.TypePullRequest,
			Action:     e.GetAction(),
			Repo:       e.GetRepo().GetName(),
			PRNumber:   e.GetNumber(),
			ReceivedAt: time.Now().UTC(),
		})
	default:
		h.logger.Debug(ctx, "ignoring webhook event",
			zap.String("type", github.WebHookType(r)))
	}

	return c.JSON(http.StatusAccepted, map[string]string{"status": "accepted"})
}
