package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	assert.Equal(t, "development", config.Environment)
	assert.Equal(t, "memory", config.Storage.Driver)
	assert.Equal(t, 10, config.Search.MaxResults)
	assert.Equal(t, 5, config.Pipeline.WorkerCount)
	assert.Equal(t, "gemini", config.LLM.DefaultProvider)
	assert.NotEmpty(t, config.Pipeline.NoiseBlacklist)
}

func TestLoadFromFileMissingPathUsesDefaults(t *testing.T) {
	config, err := LoadFromFile("")
	require.NoError(t, err)
	assert.Equal(t, "memory", config.Storage.Driver)
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aegis.toml")
	body := `
environment = "production"

[storage]
driver = "badger"

[storage.badger]
path = "/tmp/aegis-test"

[search]
max_results = 20

[pipeline]
worker_count = 8
noise_blacklist = ["sponsored"]

[pipeline.aliases]
"Acme Corp" = ["acme", "ACME Inc"]

[watch]
enabled = true
schedule = "0 * * * *"
companies = ["Acme Corp"]
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	config, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "production", config.Environment)
	assert.Equal(t, "badger", config.Storage.Driver)
	assert.Equal(t, "/tmp/aegis-test", config.Storage.Badger.Path)
	assert.Equal(t, 20, config.Search.MaxResults)
	assert.Equal(t, 8, config.Pipeline.WorkerCount)
	assert.Equal(t, []string{"acme", "ACME Inc"}, config.Pipeline.Aliases["Acme Corp"])
	assert.True(t, config.Watch.Enabled)
	// Defaults survive where the file is silent.
	assert.Equal(t, 30*time.Second, config.Search.RequestTimeout)
}

func TestLoadFromFileRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aegis.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[storage]
driver = "cassandra"
`), 0o644))

	_, err := LoadFromFile(path)
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TAVILY_API_KEY", "tv-key")
	t.Setenv("GEMINI_API_KEY", "gm-key")
	t.Setenv("GEMINI_API_KEY_ALT", "gm-alt")
	t.Setenv("AEGIS_WORKER_COUNT", "3")

	config, err := LoadFromFile("")
	require.NoError(t, err)
	assert.Equal(t, "tv-key", config.Search.APIKey)
	assert.Equal(t, "gm-key", config.Gemini.APIKey)
	assert.Equal(t, "gm-alt", config.Gemini.APIKeyAlt)
	assert.Equal(t, 3, config.Pipeline.WorkerCount)
}

func TestDeriveCustomerID(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"Acme Corp", "acme_corp"},
		{"  Spaced  ", "spaced"},
		{"dash-name", "dash_name"},
		{"", "unknown"},
	}
	for _, tt := range tests {
		if got := DeriveCustomerID(tt.in); got != tt.expected {
			t.Errorf("DeriveCustomerID(%q) = %q, want %q", tt.in, got, tt.expected)
		}
	}
}

func TestIDPrefixes(t *testing.T) {
	crisis := NewCrisisID()
	sig := NewSignalID()
	assert.Contains(t, crisis, "crisis_")
	assert.Contains(t, sig, "sig_")
	assert.NotEqual(t, NewCrisisID(), crisis)
}
