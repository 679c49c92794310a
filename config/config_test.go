package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "commandcenter.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_YAMLAndDefaults(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
cache:
  ttl: 5m
sources:
  - id: topa
    kind: CSV
    sheet_id: abc123
  - id: warehouse
    kind: sql
    driver: pgx
    dsn: postgres://localhost/topa
    query: SELECT * FROM proposals
reports:
  - name: squad_view
    sections: [funnel, ranking]
    agent_scope: all_filtered
reason_rules:
  - contains: Margem
    category: No available margin
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	require.Equal(t, DefaultSnapshotCleanupPeriod, cfg.Cache.CleanupEvery)
	require.Equal(t, DefaultMaxConcurrentRequests, cfg.Limits.MaxConcurrentRequests)
	require.Equal(t, DefaultHTTPAddr, cfg.HTTP.Addr)

	require.Len(t, cfg.Sources, 2)
	require.Equal(t, SourceCSV, cfg.Sources[0].Kind)
	require.Equal(t, DefaultSheetTab, cfg.Sources[0].Tab)
	require.Equal(t, "all_filtered", cfg.Reports[0].AgentScope)
	require.Len(t, cfg.ReasonRules, 1)
	require.False(t, cfg.NeedsFiles())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, DefaultSnapshotTTL, cfg.Cache.TTL)
	require.Equal(t, DefaultLogLevel, cfg.LogLevel)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("COMMANDCENTER_CACHE_TTL", "90s")
	t.Setenv("COMMANDCENTER_SHEET_ID", "sheet-xyz")
	t.Setenv("COMMANDCENTER_ENABLE_ADMIN", "yes")
	t.Setenv("COMMANDCENTER_ADMIN_KEY", "secret")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 90*time.Second, cfg.Cache.TTL)
	require.True(t, cfg.EnableAdmin)
	require.Equal(t, "secret", cfg.HTTP.AdminKey)
	require.Len(t, cfg.Sources, 1)
	require.Equal(t, "sheet-xyz", cfg.Sources[0].SheetID)
	require.Equal(t, DefaultSheetTab, cfg.Sources[0].Tab)
	require.NoError(t, cfg.Validate())
}

func TestLoad_InvalidEnvDuration(t *testing.T) {
	t.Setenv("COMMANDCENTER_CACHE_TTL", "ten minutes")
	_, err := Load("")
	require.Error(t, err)
}

func TestValidate_Errors(t *testing.T) {
	cases := map[string]Config{
		"no sources":   {},
		"missing id":   {Sources: []SourceConfig{{Kind: SourceCSV, Path: "a.csv"}}},
		"unknown kind": {Sources: []SourceConfig{{ID: "a", Kind: "parquet"}}},
		"xlsx no path": {Sources: []SourceConfig{{ID: "a", Kind: SourceXLSX}}},
		"sql no query": {Sources: []SourceConfig{{ID: "a", Kind: SourceSQL, Driver: "pgx", DSN: "x"}}},
		"duplicate id": {Sources: []SourceConfig{{ID: "a", Kind: SourceCSV, URL: "http://x"}, {ID: "a", Kind: SourceCSV, URL: "http://y"}}},
		"bad rule": {
			Sources:     []SourceConfig{{ID: "a", Kind: SourceCSV, URL: "http://x"}},
			ReasonRules: []ReasonRule{{Contains: "x"}},
		},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			require.Error(t, cfg.Validate())
		})
	}
}
