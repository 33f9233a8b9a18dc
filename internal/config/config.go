// Package config provides configuration loading for openclaw.
//
// Configuration is loaded from an optional YAML file and overridden by
// environment variables. The GitHub token and account owner are mandatory:
// without them the daemon refuses to start.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete openclaw daemon configuration.
type Config struct {
	Server Server `koanf:"server"`
	GitHub GitHub `koanf:"github"`
	Merge  Merge  `koanf:"merge"`
	Events Events `koanf:"events"`
	Collab Collab `koanf:"collab"`
}

// Server holds HTTP server configuration.
type Server struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// GitHub holds hosting-API configuration.
type GitHub struct {
	// Token authenticates every hosting-API call.
	Token Secret `koanf:"token"`

	// Owner is the account or organization repositories are created under.
	Owner string `koanf:"owner"`

	// DefaultBranch is the base branch of provisioned repositories.
	DefaultBranch string `koanf:"default_branch"`

	// CheckContext is the status-check context required by branch protection.
	CheckContext string `koanf:"check_context"`

	// WebhookSecret validates inbound webhook signatures. Optional: when
	// unset, webhook payloads are accepted unsigned.
	WebhookSecret Secret `koanf:"webhook_secret"`
}

// Merge holds MergeWatcher polling configuration.
type Merge struct {
	PollInterval time.Duration `koanf:"poll_interval"`
	MaxAttempts  int           `koanf:"max_attempts"`
}

// Events holds the optional NATS event-bridge configuration.
// When URL is empty the bridge is disabled and events stay in-process.
type Events struct {
	URL     string `koanf:"url"`
	Subject string `koanf:"subject"`
}

// Collab configures the external collaborator service that supplies
// planning, code generation, verification and policy decisions. When URL
// is empty the daemon falls back to its built-in stubs: the specified-task
// entry point keeps working, the planned entry point is disabled.
type Collab struct {
	URL     string        `koanf:"url"`
	Token   Secret        `koanf:"token"`
	Timeout time.Duration `koanf:"timeout"`
}

// Default returns a configuration with defaults applied and no credentials.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults sets default values for unset fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.GitHub.DefaultBranch == "" {
		cfg.GitHub.DefaultBranch = "main"
	}
	if cfg.GitHub.CheckContext == "" {
		cfg.GitHub.CheckContext = "ci/build"
	}
	if cfg.Merge.PollInterval == 0 {
		cfg.Merge.PollInterval = 5 * time.Second
	}
	if cfg.Merge.MaxAttempts == 0 {
		cfg.Merge.MaxAttempts = 20
	}
	if cfg.Events.Subject == "" {
		cfg.Events.Subject = "openclaw.events"
	}
	if cfg.Collab.Timeout == 0 {
		cfg.Collab.Timeout = 60 * time.Second
	}
}

// Validate checks the configuration. Missing credentials are a startup
// failure: no request may be served without a token and owner.
func (c *Config) Validate() error {
	if !c.GitHub.Token.IsSet() {
		return errors.New("github token is required (GITHUB_TOKEN)")
	}
	if c.GitHub.Owner == "" {
		return errors.New("github owner is required (GITHUB_OWNER)")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if c.Merge.PollInterval <= 0 {
		return errors.New("merge poll interval must be positive")
	}
	if c.Merge.MaxAttempts < 1 {
		return fmt.Errorf("merge max attempts must be >= 1, got %d", c.Merge.MaxAttempts)
	}
	if c.Collab.Timeout <= 0 {
		return errors.New("collaborator timeout must be positive")
	}
	return nil
}
