package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("SEARCH_RADIUS_METERS", "")
	t.Setenv("SEARCH_CATEGORY", "")
	t.Setenv("HISTORY_ENABLED", "")
	t.Setenv("SERVER_HOST", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 2000, cfg.Search.RadiusMeters)
	assert.Equal(t, "real_estate_agency", cfg.Search.Category)
	assert.Equal(t, "https://maps.googleapis.com/maps/api", cfg.Maps.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Maps.Timeout)
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, "@every 10m", cfg.MapFiles.SweepCron)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
}

func TestLoad_EnvFileOverrides(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := "GOOGLE_API_KEY=test-key\nSEARCH_RADIUS_METERS=500\nHISTORY_ENABLED=true\nLLM_BASE_URL=http://localhost:11434/v1\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0644))

	// godotenv は既存の環境変数を上書きしないため空にしておく
	for _, key := range []string{"GOOGLE_API_KEY", "SEARCH_RADIUS_METERS", "HISTORY_ENABLED", "LLM_BASE_URL"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, "test-key", cfg.Maps.APIKey)
	assert.Equal(t, 500, cfg.Search.RadiusMeters)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, "http://localhost:11434/v1", cfg.LLM.BaseURL)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "APIキー未設定",
			cfg:     Config{Search: SearchConfig{RadiusMeters: 2000}},
			wantErr: true,
		},
		{
			name:    "半径が不正",
			cfg:     Config{Maps: MapsConfig{APIKey: "k"}, Search: SearchConfig{RadiusMeters: 0}},
			wantErr: true,
		},
		{
			name:    "正常",
			cfg:     Config{Maps: MapsConfig{APIKey: "k"}, Search: SearchConfig{RadiusMeters: 2000}},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGetEnvAsBool_InvalidFallsBack(t *testing.T) {
	t.Setenv("PROPLENS_TEST_BOOL", "maybe")
	assert.True(t, getEnvAsBool("PROPLENS_TEST_BOOL", true))
	t.Setenv("PROPLENS_TEST_BOOL", "false")
	assert.False(t, getEnvAsBool("PROPLENS_TEST_BOOL", true))
}

func TestLoad_TracingSettings(t *testing.T) {
	t.Setenv("TRACING_EXPORTER", "otlp")
	t.Setenv("OTLP_ENDPOINT", "collector:4317")
	t.Setenv("TRACING_SAMPLE_RATIO", "0.25")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "otlp", cfg.Observability.TracingExporter)
	assert.Equal(t, "collector:4317", cfg.Observability.OTLPEndpoint)
	assert.InDelta(t, 0.25, cfg.Observability.TracingSampleRate, 1e-9)
}
