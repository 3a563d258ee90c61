package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, contents string) string {
	t.Helper()
	path := filepath.Join(dir, "gatewayd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
subgraphs:
  - name: accounts
    kind: graphql
    url: http://localhost:4001/graphql
    sdlFile: accounts.graphql
`)

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.Server.Addr)
	require.Equal(t, 1000, cfg.Cache.OperationCacheSize)
	require.True(t, cfg.Introspection.Enabled)
	require.Len(t, cfg.Subgraphs, 1)
	require.Equal(t, "accounts", cfg.Subgraphs[0].Name)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
server:
  addr: ":9090"
subgraphs:
  - name: accounts
    kind: graphql
    url: http://localhost:4001/graphql
    sdlFile: accounts.graphql
`)

	t.Setenv("GATEWAYD_SERVER_ADDR", ":9999")

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	require.Equal(t, ":9999", cfg.Server.Addr)
}

func TestLoadConfig_RequiresAtLeastOneSubgraph(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
server:
  addr: ":8080"
`)

	_, err := loadConfig(path)
	require.Error(t, err)
}
