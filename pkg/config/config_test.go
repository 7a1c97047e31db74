package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recordkit/recordkit/pkg/observability"
	"github.com/recordkit/recordkit/pkg/record"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("RECORDKIT_DB_DSN", "postgres://localhost/recordkit?sslmode=disable")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.False(t, cfg.Storage.MirrorEnabled)
	assert.Equal(t, 20, cfg.Lifecycle.DefaultPageSize)
	assert.Equal(t, "*/5 * * * *", cfg.Lifecycle.ResyncSchedule)
	assert.Equal(t, observability.InfoLevel, cfg.Observability.LogLevel)
	assert.True(t, cfg.Observability.MetricsEnabled)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("RECORDKIT_DB_DRIVER", "sqlite3")
	t.Setenv("RECORDKIT_DB_DSN", "file:dev.db")
	t.Setenv("RECORDKIT_PORT", "9000")
	t.Setenv("RECORDKIT_LOG_LEVEL", "debug")
	t.Setenv("RECORDKIT_DEFAULT_PAGE_SIZE", "50")
	t.Setenv("RECORDKIT_MIRROR_ENABLED", "true")
	t.Setenv("RECORDKIT_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("RECORDKIT_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("RECORDKIT_REVIVAL_TARGETS", "1,0")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "sqlite3", cfg.Storage.Driver)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, observability.DebugLevel, cfg.Observability.LogLevel)
	assert.Equal(t, 50, cfg.Lifecycle.DefaultPageSize)
	assert.True(t, cfg.Storage.MirrorEnabled)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, []record.Status{record.StatusActive, record.StatusInactive}, cfg.Lifecycle.RevivalTargets)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing DSN",
			env:     map[string]string{},
			wantErr: "DSN is required",
		},
		{
			name: "unknown driver",
			env: map[string]string{
				"RECORDKIT_DB_DRIVER": "mysql",
				"RECORDKIT_DB_DSN":    "x",
			},
			wantErr: "invalid database driver",
		},
		{
			name: "mirror without redis",
			env: map[string]string{
				"RECORDKIT_DB_DSN":         "x",
				"RECORDKIT_MIRROR_ENABLED": "true",
			},
			wantErr: "redis URL is required",
		},
		{
			name: "deleted as revival target",
			env: map[string]string{
				"RECORDKIT_DB_DSN":          "x",
				"RECORDKIT_REVIVAL_TARGETS": "4",
			},
			wantErr: "revival target",
		},
		{
			name: "bad page size",
			env: map[string]string{
				"RECORDKIT_DB_DSN":            "x",
				"RECORDKIT_DEFAULT_PAGE_SIZE": "0",
			},
			wantErr: "page size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
