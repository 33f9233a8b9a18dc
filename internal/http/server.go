// Package http provides the openclaw HTTP API.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/awlondon/openclaw/internal/logging"
	"github.com/awlondon/openclaw/internal/orchestrator"
	"github.com/awlondon/openclaw/internal/plan"
)

// Runner executes orchestration runs. *orchestrator.Orchestrator satisfies
// it; tests substitute a double.
type Runner interface {
	RunPlanned(ctx context.Context, objective, constraints string, exec orchestrator.Execution) (*orchestrator.BatchReport, error)
	RunSpecified(ctx context.Context, objective string, tasks []plan.Task, exec orchestrator.Execution) (*orchestrator.BatchReport, error)
}

// Server provides HTTP endpoints for openclaw.
type Server struct {
	echo           *echo.Echo
	runner         Runner
	plannedEnabled bool
	webhook        *WebhookHandler
	logger         *logging.Logger
	config         *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// NewServer creates a new HTTP server. The webhook handler is optional;
// without one the /webhook route is not registered. plannedEnabled gates
// the planner-driven entry point, which needs a collaborator service.
func NewServer(runner Runner, plannedEnabled bool, webhook *WebhookHandler, logger *logging.Logger, cfg *Config) (*Server, error) {
	if runner == nil {
		return nil, fmt.Errorf("runner cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "0.0.0.0",
			Port: 8080,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Response().Header().Get(echo.HeaderXRequestID)
			req := c.Request()
			c.SetRequest(req.WithContext(logging.WithRequestID(req.Context(), requestID)))

			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info(c.Request().Context(), "http request",
				zap.String("method", req.Method),
				zap.String("uri", req.RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
			)

			return err
		}
	})
	e.Use(NewHTTPMetrics(logger).MetricsMiddleware())

	s := &Server{
		echo:           e,
		runner:         runner,
		plannedEnabled: plannedEnabled,
		webhook:        webhook,
		logger:         logger,
		config:         cfg,
	}

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	s.echo.POST("/multi-agent-run", s.handleMultiAgentRun)
	s.echo.POST("/generate-repo-with-prs", s.handleGenerateRepo)

	if s.webhook != nil {
		s.echo.POST("/webhook", s.webhook.Handle)
	}
}

// ExecutionRequest carries per-run execution options.
type ExecutionRequest struct {
	AutoMerge   bool `json:"auto_merge"`
	EnablePages bool `json:"enable_pages"`
}

// MultiAgentRunRequest is the request body for POST /multi-agent-run.
type MultiAgentRunRequest struct {
	Objective   string           `json:"objective"`
	Constraints string           `json:"constraints,omitempty"`
	Execution   ExecutionRequest `json:"execution"`
}

// GenerateRepoRequest is the request body for POST /generate-repo-with-prs.
type GenerateRepoRequest struct {
	Objective string           `json:"objective"`
	Tasks     []plan.Task      `json:"tasks"`
	Execution ExecutionRequest `json:"execution"`
}

// RunResponse is the response body of both run endpoints.
type RunResponse struct {
	Status string `json:"status"`
	*orchestrator.BatchReport
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleMultiAgentRun runs a planner-driven orchestration.
func (s *Server) handleMultiAgentRun(c echo.Context) error {
	if !s.plannedEnabled {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "no planning collaborator configured")
	}

	var req MultiAgentRunRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn(c.Request().Context(), "invalid run request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	report, err := s.runner.RunPlanned(c.Request().Context(), req.Objective, req.Constraints, orchestrator.Execution{
		AutoMerge:   req.Execution.AutoMerge,
		EnablePages: req.Execution.EnablePages,
	})
	if err != nil {
		return s.runError(c, err)
	}

	return c.JSON(http.StatusOK, RunResponse{Status: "completed", BatchReport: report})
}

// handleGenerateRepo runs an orchestration over caller-specified tasks.
func (s *Server) handleGenerateRepo(c echo.Context) error {
	var req GenerateRepoRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn(c.Request().Context(), "invalid run request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	report, err := s.runner.RunSpecified(c.Request().Context(), req.Objective, req.Tasks, orchestrator.Execution{
		AutoMerge:   req.Execution.AutoMerge,
		EnablePages: req.Execution.EnablePages,
	})
	if err != nil {
		return s.runError(c, err)
	}

	return c.JSON(http.StatusOK, RunResponse{Status: "completed", BatchReport: report})
}

// runError maps run failures to HTTP statuses. Validation failures are the
// caller's fault; everything else surfaces as an upstream failure.
func (s *Server) runError(c echo.Context, err error) error {
	ctx := c.Request().Context()
	if errors.Is(err, orchestrator.ErrValidation) {
		s.logger.Warn(ctx, "run rejected", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	s.logger.Error(ctx, "run failed", zap.Error(err))
	return echo.NewHTTPError(http.StatusBadGateway, err.Error())
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
