package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullYAML = `
supabase:
  url: https://example.supabase.co
  key: anon-key
company_id: c1
store_location_id: s1
warehouse_id: w1
db: /var/lib/kassir/kassir.db
remote:
  timeout: 5s
monitor:
  probe_interval: 30s
api:
  listen: 127.0.0.1:9000
log:
  level: debug
`

func TestParse_Full(t *testing.T) {
	cfg, err := Parse([]byte(fullYAML))
	require.NoError(t, err)

	assert.Equal(t, "https://example.supabase.co", cfg.Supabase.URL)
	assert.Equal(t, "anon-key", cfg.Supabase.Key)
	assert.Equal(t, "c1", cfg.CompanyID)
	assert.Equal(t, "s1", cfg.StoreLocationID)
	assert.Equal(t, "w1", cfg.WarehouseID)
	assert.Equal(t, "/var/lib/kassir/kassir.db", cfg.DB)
	assert.Equal(t, 5*time.Second, time.Duration(cfg.Remote.Timeout))
	assert.Equal(t, 30*time.Second, time.Duration(cfg.Monitor.ProbeInterval))
	assert.Equal(t, "127.0.0.1:9000", cfg.API.Listen)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.NoError(t, cfg.RequireRemote())
}

func TestParse_EmptyUsesDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.ErrorIs(t, cfg.RequireRemote(), ErrRemoteNotConfigured)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown field", "companyid: c1\n"},
		{"bad duration", "remote:\n  timeout: soon\n"},
		{"zero timeout", "remote:\n  timeout: 0s\n"},
		{"probe too fast", "monitor:\n  probe_interval: 10ms\n"},
		{"bad level", "log:\n  level: loud\n"},
		{"bad url", "supabase:\n  url: example.com\n"},
		{"bad listen", "api:\n  listen: localhost\n"},
		{"empty db", "db: \"\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kassir.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fullYAML), 0o644))

	t.Setenv(EnvCompanyID, "c2")
	t.Setenv(EnvDB, "/tmp/other.db")
	t.Setenv(EnvSupabaseKey, "")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "c2", cfg.CompanyID)
	assert.Equal(t, "/tmp/other.db", cfg.DB)
	assert.Equal(t, "anon-key", cfg.Supabase.Key, "empty variables do not override")
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_NoDefaultFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(EnvSupabaseURL, "http://localhost:54321")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:54321", cfg.Supabase.URL)
	assert.Equal(t, "kassir.db", cfg.DB)
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(EnvSupabaseURL, "not a url")

	_, err := Load("")
	assert.Error(t, err)
}
