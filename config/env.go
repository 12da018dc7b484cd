package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables
const (
	EnvRPC               = "RPC"
	EnvPrivateKey        = "PRIVATE_KEY"
	EnvBidPercentage     = "BID_PERCENTAGE"
	EnvDeployment        = "DEPLOYMENT"
	EnvLiquidatorAddress = "LIQUIDATOR_ADDRESS"
	EnvUseAaveLiquidator = "USE_AAVE_LIQUIDATOR"
	EnvChainID           = "CHAIN_ID"
)

// LoadEnv loads environment variables from a .env file if one exists.
func LoadEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// GetEnvWithDefault gets an environment variable with a default value
func GetEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// ApplyEnv overrides config values with any set environment variables.
func (c *Config) ApplyEnv() error {
	c.RPCEndpoint = GetEnvWithDefault(EnvRPC, c.RPCEndpoint)
	c.PrivateKey = GetEnvWithDefault(EnvPrivateKey, c.PrivateKey)
	c.Deployment = GetEnvWithDefault(EnvDeployment, c.Deployment)
	c.LiquidatorAddress = GetEnvWithDefault(EnvLiquidatorAddress, c.LiquidatorAddress)

	if v := os.Getenv(EnvBidPercentage); v != "" {
		pct, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvBidPercentage, err)
		}
		c.BidPercentage = pct
	}
	if v := os.Getenv(EnvUseAaveLiquidator); v != "" {
		use, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvUseAaveLiquidator, err)
		}
		c.UseAaveLiquidator = use
	}
	if v := os.Getenv(EnvChainID); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvChainID, err)
		}
		c.ChainID = id
	}

	return nil
}
