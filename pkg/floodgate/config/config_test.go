package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"go.minekube.com/floodgate/pkg/util/configutil"
)

func TestLoadConfigDefaults(t *testing.T) {
	v := viper.New()
	v.SetConfigFile(filepath.Join(t.TempDir(), "missing.yml"))
	cfg, err := LoadConfig(v)
	require.NoError(t, err)
	require.Equal(t, DefaultConfig, *cfg)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
keyFile: secret/key.pem
usernamePrefix: "*"
playerLink:
  enableOwnLinking: true
  linkCodeTimeout: 60
  type: postgres
  database:
    postgres: postgres://floodgate@localhost/links
  redis:
    enabled: true
    url: redis://localhost:6379/0
gateway:
  backend: backend:25565
  quota:
    ops: 1.5
`), 0o644))

	v := viper.New()
	v.SetConfigFile(path)
	cfg, err := LoadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "secret/key.pem", cfg.KeyFile)
	assert.Equal(t, "*", cfg.UsernamePrefix)
	assert.True(t, cfg.ReplaceSpaces, "default kept")
	assert.True(t, cfg.PlayerLink.EnableOwnLinking)
	assert.Equal(t, time.Minute, cfg.PlayerLink.LinkCodeTimeout.D())
	assert.Equal(t, TypePostgres, cfg.PlayerLink.Type)
	assert.Equal(t, "postgres://floodgate@localhost/links", cfg.PlayerLink.Database.Postgres)
	assert.True(t, cfg.PlayerLink.Redis.Enabled)
	assert.Equal(t, "backend:25565", cfg.Gateway.Backend)
	assert.Equal(t, float32(1.5), cfg.Gateway.Quota.OPS)
	assert.Equal(t, DefaultConfig.Gateway.Quota.Burst, cfg.Gateway.Quota.Burst)
	assert.Equal(t, DefaultConfig.Disconnect, cfg.Disconnect)
}

func TestLoadConfigEnv(t *testing.T) {
	t.Setenv("FLOODGATE_PLAYERLINK_REQUIRELINK", "true")
	t.Setenv("FLOODGATE_PLAYERLINK_LINKCODETIMEOUT", "2m")
	t.Setenv("FLOODGATE_HANDSHAKE_WORKERS", "4")

	cfg, err := LoadConfig(viper.New())
	require.NoError(t, err)
	assert.True(t, cfg.PlayerLink.RequireLink)
	assert.Equal(t, 2*time.Minute, cfg.PlayerLink.LinkCodeTimeout.D())
	assert.Equal(t, 4, cfg.Handshake.Workers)
}

func TestLoadConfigInvalidDuration(t *testing.T) {
	t.Setenv("FLOODGATE_HANDSHAKE_TIMEOUT", "soon")
	_, err := LoadConfig(viper.New())
	require.Error(t, err)
}

func TestDefaultConfigYAMLRoundTrip(t *testing.T) {
	b, err := yaml.Marshal(DefaultConfig)
	require.NoError(t, err)
	assert.Contains(t, string(b), "linkCodeTimeout: 5m0s")

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, b, 0o644))
	v := viper.New()
	v.SetConfigFile(path)
	cfg, err := LoadConfig(v)
	require.NoError(t, err)
	require.Equal(t, DefaultConfig, *cfg)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig
	cfg.KeyFile = filepath.Join(t.TempDir(), "key.pem")
	warns, errs := cfg.Validate()
	require.Empty(t, errs)
	require.Len(t, warns, 1, "missing key file")

	cfg.Handshake.Workers = 0
	cfg.Gateway.Bind = "nope"
	cfg.PlayerLink.EnableOwnLinking = true
	cfg.PlayerLink.Type = "mongo"
	_, errs = cfg.Validate()
	require.Len(t, errs, 3)

	var nilCfg *Config
	_, errs = nilCfg.Validate()
	require.Len(t, errs, 1)
}

func TestValidatePlayerLink(t *testing.T) {
	p := DefaultConfig.PlayerLink
	p.EnableGlobalLinking = false
	warns, errs := p.Validate()
	require.Empty(t, errs)
	require.Len(t, warns, 1)

	p.EnableOwnLinking = true
	p.Redis.Enabled = true
	_, errs = p.Validate()
	require.Len(t, errs, 1)

	p = DefaultConfig.PlayerLink
	p.GlobalAPIURL = "api.geysermc.org"
	_, errs = p.Validate()
	require.Len(t, errs, 1)

	p = DefaultConfig.PlayerLink
	p.GlobalCacheTTL = 0
	warns, errs = p.Validate()
	require.Empty(t, errs)
	require.Len(t, warns, 1)
	p.GlobalCacheTTL = configutil.Duration(-time.Second)
	_, errs = p.Validate()
	require.Len(t, errs, 1)

	p = DefaultConfig.PlayerLink
	p.Enabled = false
	p.RequireLink = true
	warns, errs = p.Validate()
	require.Empty(t, errs)
	require.Len(t, warns, 1)
}
