package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "ghp_env")
	t.Setenv("GITHUB_OWNER", "openclaw-dev")
	t.Setenv("SERVER_PORT", "9191")
	t.Setenv("MERGE_MAX_ATTEMPTS", "7")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "ghp_env", cfg.GitHub.Token.Value())
	assert.Equal(t, "openclaw-dev", cfg.GitHub.Owner)
	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, 7, cfg.Merge.MaxAttempts)
	// Untouched fields fall back to defaults.
	assert.Equal(t, 5*time.Second, cfg.Merge.PollInterval)
}

func TestLoad_FileThenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("github:\n  token: ghp_file\n  owner: from-file\nserver:\n  port: 7070\n")
	require.NoError(t, os.WriteFile(path, content, 0600))

	t.Setenv("GITHUB_OWNER", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ghp_file", cfg.GitHub.Token.Value())
	assert.Equal(t, "from-env", cfg.GitHub.Owner, "env must override file")
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoad_MissingCredentialsFails(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("GITHUB_OWNER", "")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token")
}

func TestLoad_RejectsWorldReadableFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7070\n"), 0644))

	t.Setenv("GITHUB_TOKEN", "ghp_env")
	t.Setenv("GITHUB_OWNER", "openclaw-dev")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permissions")
}

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "ghp_env")
	t.Setenv("GITHUB_OWNER", "openclaw-dev")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}
