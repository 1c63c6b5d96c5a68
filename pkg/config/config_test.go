package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()

	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":8080", cfg.Addr())
	assert.False(t, cfg.AuthEnabled())
	assert.Equal(t, []string{"main", "master"}, cfg.PreferredBranches)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "empty storage", mutate: func(c *Config) { c.StorageDir = " " }, wantErr: errEmptyStorageDir},
		{name: "bad port", mutate: func(c *Config) { c.HTTPPort = "http" }, wantErr: errInvalidPort},
		{name: "port out of range", mutate: func(c *Config) { c.HTTPPort = "70000" }, wantErr: errInvalidPort},
		{name: "empty branch", mutate: func(c *Config) { c.InitialBranch = "" }, wantErr: errEmptyInitialBranch},
		{name: "zero preview", mutate: func(c *Config) { c.MaxPreviewBytes = 0 }, wantErr: errInvalidPreviewLimit},
		{name: "user without password", mutate: func(c *Config) { c.AuthUser = "admin" }, wantErr: errIncompleteAuth},
		{name: "bad schedule", mutate: func(c *Config) { c.InventorySchedule = "not a spec" }, wantErr: errInvalidSchedule},
		{name: "disabled schedule", mutate: func(c *Config) { c.InventorySchedule = "" }},
		{name: "full auth", mutate: func(c *Config) { c.AuthUser, c.AuthPass = "admin", "secret" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)

				return
			}

			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAddr(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.HTTPHost = "127.0.0.1"
	cfg.HTTPPort = "9000"

	assert.Equal(t, "127.0.0.1:9000", cfg.Addr())

	cfg.HTTPHost = "::1"
	assert.Equal(t, "[::1]:9000", cfg.Addr())
}
