package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	config, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().ServerURL, config.ServerURL)
	assert.Equal(t, "info", config.Log.Level)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server_url: https://care.example.org
locality_id: madrid-03
log:
  level: debug
  format: json
`), 0o600))

	config, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://care.example.org", config.ServerURL)
	assert.Equal(t, "madrid-03", config.LocalityID)
	assert.Equal(t, "debug", config.Log.Level)
	assert.Equal(t, "json", config.Log.Format)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portal.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server_url: https://care.example.org\n"), 0o600))

	t.Setenv("PORTAL_SERVER_URL", "https://staging.example.org")
	t.Setenv("PORTAL_LOCALITY_ID", "sevilla-01")

	config, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://staging.example.org", config.ServerURL)
	assert.Equal(t, "sevilla-01", config.LocalityID)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid https", "https://api.example.org", false},
		{"valid http", "http://localhost:8080", false},
		{"empty", "", true},
		{"relative", "api.example.org", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&Config{ServerURL: tt.url})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portal.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server_url: [oops"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}
