package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.PrivateKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	cfg.LiquidatorAddress = "0x1111111111111111111111111111111111111111"
	return cfg
}

func TestValidateConfig(t *testing.T) {
	t.Run("defaults with credentials are valid", func(t *testing.T) {
		assert.NoError(t, validConfig().ValidateConfig())
	})

	t.Run("collects every problem", func(t *testing.T) {
		cfg := validConfig()
		cfg.PrivateKey = ""
		cfg.Deployment = "Nowhere"
		cfg.BidPercentage = 120
		cfg.MulticallChunkSize = 0
		cfg.NetworkTimeout = -time.Second

		err := cfg.ValidateConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), EnvPrivateKey)
		assert.Contains(t, err.Error(), "unknown deployment")
		assert.Contains(t, err.Error(), "bid_percentage")
		assert.Contains(t, err.Error(), "multicall_chunk_size")
		assert.Contains(t, err.Error(), "network_timeout")
	})

	t.Run("helper mode needs a liquidator", func(t *testing.T) {
		cfg := validConfig()
		cfg.LiquidatorAddress = ""
		assert.Error(t, cfg.ValidateConfig())

		cfg.UseAaveLiquidator = true
		assert.NoError(t, cfg.ValidateConfig())
	})
}

func TestMode(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, ModeHelper, cfg.Mode())
	cfg.UseAaveLiquidator = true
	assert.Equal(t, ModeDirect, cfg.Mode())
	assert.Equal(t, "direct", cfg.Mode().String())
}

func TestLookupDeployment(t *testing.T) {
	d, cfg, err := LookupDeployment("aavev3ethereum")
	require.NoError(t, err)
	assert.Equal(t, DeploymentAaveV3Ethereum, d)
	assert.Equal(t, uint64(16291126), cfg.CreationBlock)
	assert.False(t, cfg.HasL2Encoder())

	_, cfg, err = LookupDeployment("AaveV3Optimism")
	require.NoError(t, err)
	assert.True(t, cfg.HasL2Encoder())
	assert.Equal(t, DefaultWrappedNative, cfg.WrappedNative)

	_, _, err = LookupDeployment("AaveV9")
	assert.Error(t, err)
	assert.Len(t, DeploymentNames(), 10)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	t.Run("json file", func(t *testing.T) {
		path := filepath.Join(dir, "liquidator.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"deployment":"AaveV3Arbitrum","bid_percentage":70,"max_underwater":10}`), 0o600))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "AaveV3Arbitrum", cfg.Deployment)
		assert.Equal(t, uint64(70), cfg.BidPercentage)
		assert.Equal(t, 10, cfg.MaxUnderwater)
		assert.Equal(t, DefaultLogBlockRange, int(cfg.LogBlockRange))
	})

	t.Run("yaml file", func(t *testing.T) {
		path := filepath.Join(dir, "liquidator.yaml")
		body := "deployment: AaveV3Polygon\npoll_interval: 1m\nuse_aave_liquidator: true\n"
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "AaveV3Polygon", cfg.Deployment)
		assert.Equal(t, time.Minute, cfg.PollInterval)
		assert.Equal(t, ModeDirect, cfg.Mode())
	})

	t.Run("environment overrides file", func(t *testing.T) {
		path := filepath.Join(dir, "env.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"bid_percentage":10}`), 0o600))
		t.Setenv(EnvBidPercentage, "90")
		t.Setenv(EnvRPC, "http://node:8545")

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, uint64(90), cfg.BidPercentage)
		assert.Equal(t, "http://node:8545", cfg.RPCEndpoint)
	})

	t.Run("bad environment value", func(t *testing.T) {
		t.Setenv(EnvUseAaveLiquidator, "maybe")
		_, err := LoadConfig(filepath.Join(dir, "liquidator.json"))
		assert.Error(t, err)
	})

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(dir, "absent.json"))
		assert.Error(t, err)
	})
}
