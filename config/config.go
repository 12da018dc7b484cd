package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v2"
)

// Mode selects how a liquidation is profiled and executed.
type Mode int

const (
	// ModeHelper routes liquidations through the helper contract.
	ModeHelper Mode = iota
	// ModeDirect calls the pool's liquidationCall from the acting address.
	ModeDirect
)

func (m Mode) String() string {
	switch m {
	case ModeDirect:
		return "direct"
	case ModeHelper:
		return "helper"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

const (
	DefaultPollInterval       = 5 * time.Minute
	DefaultLogBlockRange      = 1024
	DefaultMulticallChunkSize = 500
	DefaultChunkDelay         = 100 * time.Millisecond
	DefaultMaxUnderwater      = 50
	DefaultStateCacheFile     = "borrowers.json"
	DefaultBidPercentage      = 50
	DefaultHelperPoolFee      = 500
	DefaultMulticall3Address  = "0xcA11bde05977b3631167028862bE2a173976CA11"
)

type Config struct {
	// Chain and network settings
	ChainID        uint64        `json:"chain_id" yaml:"chain_id"`
	RPCEndpoint    string        `json:"rpc_endpoint" yaml:"rpc_endpoint"`
	NetworkTimeout time.Duration `json:"network_timeout" yaml:"network_timeout"`

	// Protocol target
	Deployment        string `json:"deployment" yaml:"deployment"`
	LiquidatorAddress string `json:"liquidator_address" yaml:"liquidator_address"`
	UseAaveLiquidator bool   `json:"use_aave_liquidator" yaml:"use_aave_liquidator"`
	Multicall3Address string `json:"multicall3_address" yaml:"multicall3_address"`
	HelperPoolFee     uint32 `json:"helper_pool_fee" yaml:"helper_pool_fee"`

	// Execution
	BidPercentage uint64 `json:"bid_percentage" yaml:"bid_percentage"`

	// Cycle tuning
	PollInterval       time.Duration `json:"poll_interval" yaml:"poll_interval"`
	LogBlockRange      uint64        `json:"log_block_range" yaml:"log_block_range"`
	MulticallChunkSize int           `json:"multicall_chunk_size" yaml:"multicall_chunk_size"`
	ChunkDelay         time.Duration `json:"chunk_delay" yaml:"chunk_delay"`
	MaxUnderwater      int           `json:"max_underwater" yaml:"max_underwater"`
	StateCacheFile     string        `json:"state_cache_file" yaml:"state_cache_file"`

	// Feature flags
	PrometheusEnabled  bool   `json:"prometheus_enabled" yaml:"prometheus_enabled"`
	PrometheusEndpoint string `json:"prometheus_endpoint" yaml:"prometheus_endpoint"`

	// Signing credential, only ever read from the environment.
	PrivateKey string `json:"-" yaml:"-"`
}

// Mode returns the liquidation mode selected by UseAaveLiquidator.
func (c *Config) Mode() Mode {
	if c.UseAaveLiquidator {
		return ModeDirect
	}
	return ModeHelper
}

// Liquidator returns the helper contract address.
func (c *Config) Liquidator() common.Address {
	return common.HexToAddress(c.LiquidatorAddress)
}

// Multicall3 returns the aggregator contract address.
func (c *Config) Multicall3() common.Address {
	return common.HexToAddress(c.Multicall3Address)
}

// DeploymentConfig resolves the configured deployment.
func (c *Config) DeploymentConfig() (DeploymentConfig, error) {
	_, d, err := LookupDeployment(c.Deployment)
	return d, err
}

func (c *Config) ValidateConfig() error {
	var errors []string

	if c.RPCEndpoint == "" {
		errors = append(errors, "rpc_endpoint must be specified")
	}
	if c.PrivateKey == "" {
		errors = append(errors, EnvPrivateKey+" must be set")
	}
	if _, err := c.DeploymentConfig(); err != nil {
		errors = append(errors, err.Error())
	}
	if c.BidPercentage > 100 {
		errors = append(errors, "bid_percentage must be between 0 and 100")
	}
	if c.Mode() == ModeHelper && !common.IsHexAddress(c.LiquidatorAddress) {
		errors = append(errors, "liquidator_address must be a valid address in helper mode")
	}
	if c.LiquidatorAddress != "" && !common.IsHexAddress(c.LiquidatorAddress) {
		errors = append(errors, "liquidator_address is not a valid address")
	}
	if !common.IsHexAddress(c.Multicall3Address) {
		errors = append(errors, "multicall3_address is not a valid address")
	}

	if c.NetworkTimeout < 0 {
		errors = append(errors, "network_timeout must not be negative")
	}
	if c.PollInterval <= 0 {
		errors = append(errors, "poll_interval must be positive")
	}
	if c.LogBlockRange == 0 {
		errors = append(errors, "log_block_range must be positive")
	}
	if c.MulticallChunkSize <= 0 {
		errors = append(errors, "multicall_chunk_size must be positive")
	}
	if c.ChunkDelay < 0 {
		errors = append(errors, "chunk_delay must not be negative")
	}
	if c.MaxUnderwater <= 0 {
		errors = append(errors, "max_underwater must be positive")
	}
	if c.StateCacheFile == "" {
		errors = append(errors, "state_cache_file must be specified")
	}
	if c.PrometheusEnabled && c.PrometheusEndpoint == "" {
		errors = append(errors, "prometheus_endpoint must be specified when prometheus is enabled")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}

// LoadConfig reads cfgFile on top of DefaultConfig and applies environment
// overrides. A missing default file is not an error; a missing explicit one is.
func LoadConfig(cfgFile string) (*Config, error) {
	explicit := cfgFile != ""
	if !explicit {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		cfgFile = filepath.Join(home, ".liquidator.json")
	}

	config := DefaultConfig()

	data, err := os.ReadFile(cfgFile)
	switch {
	case err == nil:
		if err := decode(cfgFile, data, config); err != nil {
			return nil, err
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}

	return config, nil
}

func decode(path string, data []byte, config *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to decode config file: %w", err)
		}
	default:
		if err := json.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to decode config file: %w", err)
		}
	}
	return nil
}

func SaveConfig(cfg *Config, cfgFile string) error {
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		cfgFile = filepath.Join(home, ".liquidator.json")
	}

	file, err := os.Create(cfgFile)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "    ")
	return encoder.Encode(cfg)
}

func DefaultConfig() *Config {
	return &Config{
		RPCEndpoint:        "http://localhost:8545",
		NetworkTimeout:     30 * time.Second,
		Deployment:         string(DeploymentAave),
		Multicall3Address:  DefaultMulticall3Address,
		HelperPoolFee:      DefaultHelperPoolFee,
		BidPercentage:      DefaultBidPercentage,
		PollInterval:       DefaultPollInterval,
		LogBlockRange:      DefaultLogBlockRange,
		MulticallChunkSize: DefaultMulticallChunkSize,
		ChunkDelay:         DefaultChunkDelay,
		MaxUnderwater:      DefaultMaxUnderwater,
		StateCacheFile:     DefaultStateCacheFile,
		PrometheusEnabled:  false,
		PrometheusEndpoint: ":9090",
	}
}

func GetRequiredEnv(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("required environment variable %s not set", key)
	}
	return value, nil
}
