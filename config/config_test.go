package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 100, cfg.Reputation.Default)
	assert.Equal(t, 1000, cfg.Reputation.Max)
	assert.Equal(t, 5, cfg.Reputation.MaxRating)
	assert.Equal(t, 5*time.Minute, cfg.Transparency.CommitTimeout)
	assert.Equal(t, 50, cfg.Memory.RetentionCap)
	assert.InDelta(t, 0.4, cfg.Recommend.SpecializationWeight, 1e-9)
	assert.False(t, cfg.Development)
}

func TestLoad_LayersOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
reputation:
  default: 250
transparency:
  commit_timeout: 30s
development: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.Reputation.Default)
	assert.Equal(t, 30*time.Second, cfg.Transparency.CommitTimeout)
	assert.True(t, cfg.Development)
	// Untouched sections keep their defaults.
	assert.Equal(t, 1000, cfg.Reputation.Max)
	assert.Equal(t, 100, cfg.Memory.SearchCap)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("reputation: [not a map"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults pass", mutate: func(*Config) {}},
		{name: "zero max reputation", mutate: func(c *Config) { c.Reputation.Max = 0 }, wantErr: true},
		{name: "default above max", mutate: func(c *Config) { c.Reputation.Default = 5000 }, wantErr: true},
		{name: "rating scale below one", mutate: func(c *Config) { c.Reputation.MaxRating = 0 }, wantErr: true},
		{name: "inverted price bounds", mutate: func(c *Config) { c.Listing.MaxPrice = c.Listing.MinPrice }, wantErr: true},
		{name: "zero commit timeout", mutate: func(c *Config) { c.Transparency.CommitTimeout = 0 }, wantErr: true},
		{name: "late fraction above one", mutate: func(c *Config) { c.Transparency.LateRevealFraction = 1.5 }, wantErr: true},
		{name: "zero retention cap", mutate: func(c *Config) { c.Memory.RetentionCap = 0 }, wantErr: true},
		{name: "weights above one", mutate: func(c *Config) { c.Recommend.QualityWeight = 0.9 }, wantErr: true},
		{name: "zero retry attempts", mutate: func(c *Config) { c.Retry.MaxAttempts = 0 }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
