package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFromFiles_Defaults(t *testing.T) {
	cfg, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, LLMProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o", cfg.LLM.OpenAI.Model)
	assert.Equal(t, 0.7, cfg.LLM.Temperature)
	assert.Equal(t, 4000, cfg.LLM.MaxTokens)
	assert.Equal(t, "sonar-pro", cfg.Research.Model)
	assert.Equal(t, 2, cfg.Queue.Concurrency)
	assert.Equal(t, 10, cfg.Queue.JobsPerMinute)
	assert.Equal(t, "0 22 * * 0", cfg.Scheduler.WeeklyRefresh)
	assert.Equal(t, UniverseSP100, cfg.Universe.Source)
	assert.Equal(t, "30s", cfg.Server.WriteTimeout)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "10m", cfg.Storage.Badger.GCInterval)
}

func TestLoadFromFiles_LaterFilesOverride(t *testing.T) {
	base := writeConfig(t, "base.toml", `
[server]
port = 9000
cors_origins = ["https://thesis.example"]

[llm]
provider = "claude"

[queue]
concurrency = 4
`)
	override := writeConfig(t, "override.toml", `
[queue]
concurrency = 1

[providers.fmp]
requests_per_day = 1000
`)

	cfg, err := LoadFromFiles(base, override)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, []string{"https://thesis.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, LLMProviderClaude, cfg.LLM.Provider)
	assert.Equal(t, 1, cfg.Queue.Concurrency)
	assert.Equal(t, 1000, cfg.Providers.FMP.RequestsPerDay)
	assert.Equal(t, "30s", cfg.Providers.FMP.Timeout)
}

func TestLoadFromFiles_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "thesis.toml", `
[server]
port = 9000
`)
	t.Setenv("THESIS_SERVER_PORT", "7000")
	t.Setenv("THESIS_LLM_PROVIDER", "Gemini")
	t.Setenv("THESIS_LOG_OUTPUT", "stdout, file")

	cfg, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, LLMProviderGemini, cfg.LLM.Provider)
	assert.Equal(t, []string{"stdout", "file"}, cfg.Logging.Output)
}

func TestLoadFromFiles_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad toml", "[server\nport = 1"},
		{"unknown provider", "[llm]\nprovider = \"mystery\""},
		{"file universe without path", "[universe]\nsource = \"file\""},
		{"zero concurrency", "[queue]\nconcurrency = 0"},
		{"bad duration", "[queue]\npoll_interval = \"soon\""},
		{"schedule too frequent", "[scheduler]\nweekly_refresh = \"*/2 * * * *\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFiles(writeConfig(t, "thesis.toml", tt.content))
			assert.Error(t, err)
		})
	}

	_, err := LoadFromFiles(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestValidateJobSchedule(t *testing.T) {
	tests := []struct {
		schedule string
		wantErr  bool
	}{
		{"0 22 * * 0", false},
		{"*/15 14-21 * * 1-5", false},
		{"*/5 * * * *", false},
		{"* * * * *", true},
		{"*/1 * * * *", true},
		{"not a cron", true},
		{"0 0 * *", true},
	}

	for _, tt := range tests {
		t.Run(tt.schedule, func(t *testing.T) {
			err := ValidateJobSchedule(tt.schedule)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("THESIS_FMP_API_KEY", "")
	t.Setenv("FMP_API_KEY", "")

	_, err := ResolveAPIKey("fmp_api_key", "")
	assert.Error(t, err)

	key, err := ResolveAPIKey("fmp_api_key", "from-config")
	require.NoError(t, err)
	assert.Equal(t, "from-config", key)

	t.Setenv("FMP_API_KEY", "from-standard-env")
	key, err = ResolveAPIKey("fmp_api_key", "from-config")
	require.NoError(t, err)
	assert.Equal(t, "from-standard-env", key)

	t.Setenv("THESIS_FMP_API_KEY", "from-thesis-env")
	key, err = ResolveAPIKey("fmp_api_key", "from-config")
	require.NoError(t, err)
	assert.Equal(t, "from-thesis-env", key)
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 90*time.Second, ParseDuration("90s", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("-1s", time.Minute))
}
