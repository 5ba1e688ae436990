package config

import (
	"testing"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(Defaults("/tmp/mochi.db"), nil)
	require.NoError(t, err)

	assert.Equal(t, "https://app.mochi.cards/api", cfg.API.BaseURL)
	assert.Equal(t, "/tmp/mochi.db", cfg.Store.Path)
	assert.Equal(t, 5111, cfg.Server.Port)
	assert.Equal(t, 5*time.Minute, cfg.Server.IdleTimeout)
	assert.Empty(t, cfg.API.Key)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MOCHI_API_KEY", "secret-key")
	t.Setenv("MOCHI_DB", "/elsewhere/mochi.db")
	t.Setenv("MOCHI_IDLE_TIMEOUT", "90s")
	t.Setenv("MOCHI_UNRELATED", "ignored")

	cfg, err := Load(Defaults("/tmp/mochi.db"), nil)
	require.NoError(t, err)

	assert.Equal(t, "secret-key", cfg.API.Key)
	assert.Equal(t, "/elsewhere/mochi.db", cfg.Store.Path)
	assert.Equal(t, 90*time.Second, cfg.Server.IdleTimeout)
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	t.Setenv("MOCHI_DB", "/from-env/mochi.db")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.String("db", "/tmp/mochi.db", "")
	fs.Int("limit", 0, "")
	require.NoError(t, fs.Parse([]string{"--db", "/from-flag/mochi.db", "--limit", "10"}))

	cfg, err := Load(Defaults("/tmp/mochi.db"), fs)
	require.NoError(t, err)

	assert.Equal(t, "/from-flag/mochi.db", cfg.Store.Path)
	assert.Equal(t, 10, cfg.Review.Limit)
}

func TestLoadUnchangedFlagKeepsEnv(t *testing.T) {
	t.Setenv("MOCHI_PORT", "6222")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Int("port", 5111, "")
	require.NoError(t, fs.Parse(nil))

	cfg, err := Load(Defaults("/tmp/mochi.db"), fs)
	require.NoError(t, err)
	assert.Equal(t, 6222, cfg.Server.Port)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("MOCHI_PORT", "70000")

	_, err := Load(Defaults("/tmp/mochi.db"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}
