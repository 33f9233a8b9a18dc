package config

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := Default()
	cfg.GitHub.Token = "ghp_test"
	cfg.GitHub.Owner = "openclaw-dev"
	return cfg
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "main", cfg.GitHub.DefaultBranch)
	assert.Equal(t, "ci/build", cfg.GitHub.CheckContext)
	assert.Equal(t, 5*time.Second, cfg.Merge.PollInterval)
	assert.Equal(t, 20, cfg.Merge.MaxAttempts)
	assert.Equal(t, "openclaw.events", cfg.Events.Subject)
	assert.Equal(t, 60*time.Second, cfg.Collab.Timeout)
}

func TestValidate(t *testing.T) {
	t.Run("accepts valid config", func(t *testing.T) {
		require.NoError(t, validConfig().Validate())
	})

	t.Run("rejects missing token", func(t *testing.T) {
		cfg := validConfig()
		cfg.GitHub.Token = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "token")
	})

	t.Run("rejects missing owner", func(t *testing.T) {
		cfg := validConfig()
		cfg.GitHub.Owner = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "owner")
	})

	t.Run("rejects invalid port", func(t *testing.T) {
		cfg := validConfig()
		cfg.Server.Port = 70000
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects non-positive poll interval", func(t *testing.T) {
		cfg := validConfig()
		cfg.Merge.PollInterval = -time.Second
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects zero max attempts", func(t *testing.T) {
		cfg := validConfig()
		cfg.Merge.MaxAttempts = -1
		assert.Error(t, cfg.Validate())
	})
}

func TestSecret_Redaction(t *testing.T) {
	s := Secret("ghp_supersecret")

	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%s", s))
	assert.Equal(t, "Secret([REDACTED])", fmt.Sprintf("%#v", s))
	assert.Equal(t, "ghp_supersecret", s.Value())
	assert.True(t, s.IsSet())

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Equal(t, `"[REDACTED]"`, string(data))

	var empty Secret
	assert.Equal(t, "", empty.String())
	assert.False(t, empty.IsSet())
}

func TestSecret_Unmarshal(t *testing.T) {
	var s Secret
	require.NoError(t, json.Unmarshal([]byte(`"ghp_raw"`), &s))
	assert.Equal(t, "ghp_raw", s.Value())

	var fromText Secret
	require.NoError(t, fromText.UnmarshalText([]byte("ghp_text")))
	assert.Equal(t, "ghp_text", fromText.Value())
}
