package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestDefaults(t *testing.T) {
	t.Setenv("USER", "dr-lee")

	cfg, err := Load(newViper(t))
	require.NoError(t, err)

	assert.Equal(t, "dr-lee", cfg.User)
	assert.False(t, cfg.AutoDetect)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "", cfg.Patterns.File)
	assert.Equal(t, time.Duration(0), cfg.Watch.Debounce)
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
user: dr-kim
auto_detect: true
patterns:
  file: /etc/radscribe/patterns.toml
log:
  level: DEBUG
  json: true
watch:
  debounce: 250ms
report:
  base_url: https://reports.example.test/generate
`), 0644))

	v := newViper(t)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "dr-kim", cfg.User)
	assert.True(t, cfg.AutoDetect)
	assert.Equal(t, "/etc/radscribe/patterns.toml", cfg.Patterns.File)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, 250*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, "https://reports.example.test/generate", cfg.Report.BaseURL)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("RADSCRIBE_AUTO_DETECT", "true")
	t.Setenv("RADSCRIBE_USER", "dr-env")
	t.Setenv("RADSCRIBE_LOG_LEVEL", "warn")

	cfg, err := Load(newViper(t))
	require.NoError(t, err)

	assert.True(t, cfg.AutoDetect)
	assert.Equal(t, "dr-env", cfg.User)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestValidate(t *testing.T) {
	t.Run("bad level", func(t *testing.T) {
		cfg := Default()
		cfg.Log.Level = "verbose"
		assert.ErrorContains(t, cfg.Validate(), "log.level")
	})

	t.Run("negative debounce", func(t *testing.T) {
		cfg := Default()
		cfg.Watch.Debounce = -time.Second
		assert.ErrorContains(t, cfg.Validate(), "debounce")
	})

	t.Run("blank user", func(t *testing.T) {
		cfg := Default()
		cfg.User = " "
		assert.ErrorContains(t, cfg.Validate(), "user")
	})
}
