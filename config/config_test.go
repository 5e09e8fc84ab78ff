package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	require.NoError(t, err)

	require.Equal(t, "unix:///var/run/docker.sock", cfg.Engine.Host)
	require.Equal(t, 10*time.Second, cfg.Engine.DialTimeout)

	require.Equal(t, 64, cfg.Executor.Concurrency)
	require.Equal(t, time.Duration(0), cfg.Executor.OperationTimeout)

	require.Equal(t, "info", cfg.Logging.Level)
	require.Equal(t, "text", cfg.Logging.Format)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name      string
		cfg       *Config
		expectErr string
	}{
		{
			name: "valid configuration",
			cfg: &Config{
				Engine:   EngineConfig{Host: "unix:///var/run/docker.sock"},
				Executor: ExecutorConfig{Concurrency: 64},
			},
		},
		{
			name: "concurrency below one",
			cfg: &Config{
				Engine:   EngineConfig{Host: "unix:///var/run/docker.sock"},
				Executor: ExecutorConfig{Concurrency: 0},
			},
			expectErr: "invalid executor concurrency",
		},
		{
			name: "missing engine host",
			cfg: &Config{
				Executor: ExecutorConfig{Concurrency: 64},
			},
			expectErr: "engine host is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate(tt.cfg)
			if tt.expectErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.expectErr)
		})
	}
}

func TestEnvironmentVariableOverride(t *testing.T) {
	t.Setenv("STRATA_EXECUTOR_CONCURRENCY", "8")
	t.Setenv("STRATA_ENGINE_HOST", "tcp://127.0.0.1:2375")

	cfg, err := Load("nonexistent.yaml")
	require.NoError(t, err)

	require.Equal(t, 8, cfg.Executor.Concurrency)
	require.Equal(t, "tcp://127.0.0.1:2375", cfg.Engine.Host)
}

func TestGet(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	require.NoError(t, err)

	retrieved := Get()
	require.NotNil(t, retrieved)
	require.Equal(t, 64, retrieved.Executor.Concurrency)
}

func TestIsFileNotFoundError(t *testing.T) {
	_, err := os.Stat("definitely-not-a-real-file.yaml")
	require.True(t, isFileNotFoundError(err))
}
