package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Valid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultSkipFirst, cfg.EventLog.SkipFirst)
	assert.Equal(t, time.Second, cfg.Alert.PollInterval)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mockingbird.yaml")
	yml := `
listen: "9090"
alert:
  tracks: [sounds/siren.mp3, sounds/dog.mp3]
  poll_interval: 250ms
eventlog:
  skip_first: 0
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Listen)
	assert.Equal(t, []string{"sounds/siren.mp3", "sounds/dog.mp3"}, cfg.Alert.Tracks)
	assert.Equal(t, 250*time.Millisecond, cfg.Alert.PollInterval)
	assert.Equal(t, 0, cfg.EventLog.SkipFirst)
	// untouched values keep their defaults
	assert.Equal(t, DefaultModelPath, cfg.Model.Path)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("MOCKINGBIRD_TRACKS", "a.mp3, b.mp3,,c.mp3")
	t.Setenv("MOCKINGBIRD_POLL_INTERVAL", "2s")
	t.Setenv("MOCKINGBIRD_PLAYER", "mock")
	t.Setenv("MOCKINGBIRD_AUTOSTART", "true")
	t.Setenv("MOCKINGBIRD_AUDIO_SINK", "alsasink")

	cfg := Default()
	cfg.LoadEnv()
	assert.True(t, cfg.Session.Autostart)
	assert.Equal(t, "alsasink", cfg.Alert.Sink)
	assert.Equal(t, []string{"a.mp3", "b.mp3", "c.mp3"}, cfg.Alert.Tracks)
	assert.Equal(t, 2*time.Second, cfg.Alert.PollInterval)
	assert.Equal(t, "mock", cfg.Alert.Player)
}

func TestLoadEnv_MalformedValues(t *testing.T) {
	t.Setenv("MOCKINGBIRD_POLL_INTERVAL", "soon")
	t.Setenv("MOCKINGBIRD_SKIP_FIRST", "one")
	t.Setenv("MOCKINGBIRD_AUTOSTART", "yes please")

	cfg, err := Load("")
	require.NoError(t, err)
	// bad values leave the defaults in place
	assert.Equal(t, DefaultPollInterval, cfg.Alert.PollInterval)
	assert.Equal(t, DefaultSkipFirst, cfg.EventLog.SkipFirst)
	assert.False(t, cfg.Session.Autostart)

	err = cfg.Validate()
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), `MOCKINGBIRD_POLL_INTERVAL: cannot parse "soon"`)
	assert.Contains(t, err.Error(), `MOCKINGBIRD_SKIP_FIRST: cannot parse "one"`)
	assert.Contains(t, err.Error(), `MOCKINGBIRD_AUTOSTART: cannot parse "yes please"`)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero poll interval", func(c *Config) { c.Alert.PollInterval = 0 }},
		{"unknown player", func(c *Config) { c.Alert.Player = "vlc" }},
		{"confidence above one", func(c *Config) { c.Model.Confidence = 1.5 }},
		{"negative skip", func(c *Config) { c.EventLog.SkipFirst = -1 }},
		{"no poses", func(c *Config) { c.Model.MaxPoses = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}
