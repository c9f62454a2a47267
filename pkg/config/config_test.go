package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "anthropic", cfg.Model.Provider)
	assert.Equal(t, "claude-3-5-haiku-20241022", cfg.Model.ModelName())
	assert.Equal(t, 1000, cfg.Model.MaxTokens)
	assert.Equal(t, 3, cfg.Analysis.BatchSize)
	assert.Equal(t, time.Second, cfg.Analysis.PersonaDelay)
	assert.Equal(t, time.Hour, cfg.Progress.MaxAge)
	assert.Equal(t, "memory", cfg.Progress.Backend)
	assert.False(t, cfg.AuthEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("MODEL_PROVIDER", "groq")
	t.Setenv("MODEL_API_KEY", "gsk-123")
	t.Setenv("ANALYSIS_BATCH_SIZE", "5")
	t.Setenv("ANALYSIS_PERSONA_DELAY", "250ms")
	t.Setenv("PROGRESS_BACKEND", "redis")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "gsk-123", cfg.Model.APIKey)
	assert.Equal(t, "meta-llama/llama-4-scout-17b-16e-instruct", cfg.Model.ModelName())
	assert.Equal(t, 5, cfg.Analysis.BatchSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Analysis.PersonaDelay)
	assert.Equal(t, "localhost:6380", cfg.GetRedisAddr())
	assert.True(t, cfg.AuthEnabled())
}

func TestValidate(t *testing.T) {
	t.Setenv("MODEL_PROVIDER", "palm")
	_, err := Load()
	assert.ErrorContains(t, err, "MODEL_PROVIDER")

	t.Setenv("MODEL_PROVIDER", "openai")
	t.Setenv("ANALYSIS_BATCH_SIZE", "0")
	_, err = Load()
	assert.ErrorContains(t, err, "ANALYSIS_BATCH_SIZE")
}

func TestGetDatabaseDSN_Sqlite(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{Driver: "sqlite", Path: "file::memory:"}}
	assert.Equal(t, "file::memory:", cfg.GetDatabaseDSN())
}
