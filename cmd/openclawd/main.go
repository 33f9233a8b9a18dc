// Package main runs the openclaw daemon: an HTTP service that turns a
// change objective into a provisioned repository with one reviewed pull
// request per task, scheduled by task dependencies.
//
// Usage:
//
//	GITHUB_TOKEN=ghp_xxx \
//	GITHUB_OWNER=my-org \
//	./openclawd -config openclaw.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/awlondon/openclaw/internal/collab"
	"github.com/awlondon/openclaw/internal/config"
	"github.com/awlondon/openclaw/internal/events"
	"github.com/awlondon/openclaw/internal/githost"
	apihttp "github.com/awlondon/openclaw/internal/http"
	"github.com/awlondon/openclaw/internal/logging"
	"github.com/awlondon/openclaw/internal/orchestrator"
	"github.com/awlondon/openclaw/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to YAML config file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger, err := logging.NewLogger(logging.NewDefaultConfig())
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	tel, err := telemetry.New("openclaw", nil)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			logger.Warn(context.Background(), "telemetry shutdown error", zap.Error(err))
		}
	}()

	logger.Info(ctx, "openclaw daemon starting",
		zap.String("owner", cfg.GitHub.Owner),
		zap.String("default_branch", cfg.GitHub.DefaultBranch),
		zap.Int("port", cfg.Server.Port),
	)

	host, err := githost.NewClient(ctx, cfg.GitHub.Token, cfg.GitHub.Owner, githost.DefaultRetryConfig())
	if err != nil {
		return fmt.Errorf("creating hosting client: %w", err)
	}

	broadcaster := events.NewBroadcaster(logger)
	if cfg.Events.URL != "" {
		bridge, err := events.NewBridge(cfg.Events.URL, cfg.Events.Subject, logger)
		if err != nil {
			return fmt.Errorf("connecting event bridge: %w", err)
		}
		defer bridge.Close()
		broadcaster.Register(bridge.Observer())
		logger.Info(ctx, "event bridge connected",
			zap.String("url", cfg.Events.URL), zap.String("subject", cfg.Events.Subject))
	}

	// Without a collaborator service the specified-task entry point still
	// works on built-in fallbacks; the planned entry point is disabled.
	var (
		planner  orchestrator.PlannerPort
		coder    orchestrator.CoderPort    = orchestrator.StubCoder{}
		verifier orchestrator.VerifierPort = collab.PassthroughVerifier{}
		policy   orchestrator.PolicyPort   = collab.PermissivePolicy{}
	)
	plannedEnabled := false
	if cfg.Collab.URL != "" {
		client := collab.NewClient(cfg.Collab.URL, cfg.Collab.Token, cfg.Collab.Timeout, logger)
		planner = client
		coder = client
		verifier = client
		policy = collab.NewPolicy(client)
		plannedEnabled = true
		logger.Info(ctx, "collaborator service configured", zap.String("url", cfg.Collab.URL))
	}

	orch := orchestrator.New(host, planner, coder, verifier, policy, orchestrator.Options{
		DefaultBranch:    cfg.GitHub.DefaultBranch,
		CheckContext:     cfg.GitHub.CheckContext,
		MergeInterval:    cfg.Merge.PollInterval,
		MergeMaxAttempts: cfg.Merge.MaxAttempts,
	}, logger)

	webhook := apihttp.NewWebhookHandler(cfg.GitHub.WebhookSecret, broadcaster, logger)
	server, err := apihttp.NewServer(orch, plannedEnabled, webhook, logger, &apihttp.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return fmt.Errorf("creating http server: %w", err)
	}

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		logger.Info(ctx, "shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "server shutdown error", zap.Error(err))
		return err
	}

	logger.Info(ctx, "server stopped gracefully")
	return nil
}
