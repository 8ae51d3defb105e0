package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadMergesOverlayAndDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "default.yaml", `
environment: development
phc:
  base_url: "http://phc.local"
  listen_addr: ":8000"
  jwt_seed: "${TEST_JWT_SEED:deadbeef}"
`)
	writeFile(t, dir, "staging.yaml", `
phc:
  base_url: "http://phc.staging.example"
  listen_addr: ":8000"
  jwt_seed: "staging-seed"
`)

	cfg, err := Load(LoaderOptions{ConfigDir: dir, Environment: EnvStaging, DotEnvPath: ""})
	require.NoError(t, err)
	require.NotNil(t, cfg.PHC)
	require.Equal(t, "http://phc.staging.example", cfg.PHC.BaseURL)
	require.Equal(t, 24*time.Hour, cfg.PHC.AuthTokenValidity)
	require.Equal(t, "memory", cfg.PHC.Storage.Type)
}

func TestLoadAppliesEnvSubstitution(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "default.yaml", `
phc:
  base_url: "http://phc.local"
  jwt_seed: "${TEST_JWT_SEED:fallback}"
`)

	t.Setenv("TEST_JWT_SEED", "from-env")

	cfg, err := Load(LoaderOptions{ConfigDir: dir, Environment: EnvDevelopment})
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.PHC.JWTSeed)
}

func TestSubstituteEnvVarsDefaultsWhenUnset(t *testing.T) {
	require.Equal(t, "fallback", SubstituteEnvVars("${DEFINITELY_UNSET_VAR:fallback}"))
}

func TestGetEnvironmentDefaultsToDevelopment(t *testing.T) {
	os.Unsetenv("PUBHUBS_ENV")
	os.Unsetenv("ENVIRONMENT")
	require.Equal(t, EnvDevelopment, GetEnvironment())
}
