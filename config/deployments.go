package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Deployment identifies one protocol deployment on one network.
type Deployment string

const (
	DeploymentAave           Deployment = "AAVE"
	DeploymentSeashell       Deployment = "SEASHELL"
	DeploymentAaveV3Sonic    Deployment = "AaveV3Sonic"
	DeploymentAaveV3Celo     Deployment = "AaveV3Celo"
	DeploymentAaveV3Ethereum Deployment = "AaveV3Ethereum"
	DeploymentAaveV3Optimism Deployment = "AaveV3Optimism"
	DeploymentAaveV3Bnb      Deployment = "AaveV3Bnb"
	DeploymentAaveV3Arbitrum Deployment = "AaveV3Arbitrum"
	DeploymentAaveV3Avax     Deployment = "AaveV3Avax"
	DeploymentAaveV3Polygon  Deployment = "AaveV3Polygon"
)

// DefaultWrappedNative is the canonical wrapped native token on OP-stack chains.
var DefaultWrappedNative = common.HexToAddress("0x4200000000000000000000000000000000000006")

// DeploymentConfig holds the immutable addresses of a deployment.
type DeploymentConfig struct {
	Pool          common.Address
	DataProvider  common.Address
	Oracle        common.Address
	L2Encoder     common.Address
	CreationBlock uint64
	WrappedNative common.Address
}

// HasL2Encoder reports whether the deployment ships a calldata encoder.
func (d DeploymentConfig) HasL2Encoder() bool {
	return d.L2Encoder != (common.Address{})
}

var deployments = map[Deployment]DeploymentConfig{
	DeploymentAave: {
		Pool:          common.HexToAddress("0xA238Dd80C259a72e81d7e4664a9801593F98d1c5"),
		DataProvider:  common.HexToAddress("0x2d8A3C5677189723C4cB8873CfC9C8976FDF38Ac"),
		Oracle:        common.HexToAddress("0x2Cc0Fc26eD4563A5ce5e8bdcfe1A2878676Ae156"),
		L2Encoder:     common.HexToAddress("0x39e97c588B2907Fb67F44fea256Ae3BA064207C5"),
		CreationBlock: 2963358,
		WrappedNative: DefaultWrappedNative,
	},
	DeploymentSeashell: {
		Pool:          common.HexToAddress("0x8F44Fd754285aa6A2b8B9B97739B79746e0475a7"),
		DataProvider:  common.HexToAddress("0x2A0979257105834789bC6b9E1B00446DFbA8dFBa"),
		Oracle:        common.HexToAddress("0xFDd4e83890BCcd1fbF9b10d71a5cc0a738753b01"),
		L2Encoder:     common.HexToAddress("0xceceF475167f7BFD8995c0cbB577644b623cD7Cf"),
		CreationBlock: 3318602,
		WrappedNative: DefaultWrappedNative,
	},
	DeploymentAaveV3Sonic: {
		Pool:          common.HexToAddress("0x5362dBb1e601abF3a4c14c22ffEdA64042E5eAA3"),
		DataProvider:  common.HexToAddress("0x306c124fFba5f2Bc0BcAf40D249cf19D492440b9"),
		Oracle:        common.HexToAddress("0xD63f7658C66B2934Bd234D79D06aEF5290734B30"),
		CreationBlock: 7986580,
		WrappedNative: common.HexToAddress("0x039e2fB66102314Ce7b64Ce5Ce3E5183bc94aD38"),
	},
	DeploymentAaveV3Celo: {
		Pool:          common.HexToAddress("0x3E59A31363E2ad014dcbc521c4a0d5757d9f3402"),
		DataProvider:  common.HexToAddress("0x33b7d355613110b4E842f5f7057Ccd36fb4cee28"),
		Oracle:        common.HexToAddress("0x1e693D088ceFD1E95ba4c4a5F7EeA41a1Ec37e8b"),
		CreationBlock: 30390066,
		WrappedNative: common.HexToAddress("0x471EcE3750Da237f93B8E339c536989b8978a438"),
	},
	DeploymentAaveV3Ethereum: {
		Pool:          common.HexToAddress("0x87870Bca3F3fD6335C3F4ce8392D69350B4fA4E2"),
		DataProvider:  common.HexToAddress("0x497a1994c46d4f6C864904A9f1fac6328Cb7C8a6"),
		Oracle:        common.HexToAddress("0x54586bE62E3c3580375aE3723C145253060Ca0C2"),
		CreationBlock: 16291126,
		WrappedNative: common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
	},
	DeploymentAaveV3Optimism: {
		Pool:          common.HexToAddress("0x794a61358D6845594F94dc1DB02A252b5b4814aD"),
		DataProvider:  common.HexToAddress("0x14496b405D62c24F91f04Cda1c69Dc526D56fDE5"),
		Oracle:        common.HexToAddress("0xD81eb3728a631871a7eBBaD631b5f424909f0c77"),
		L2Encoder:     common.HexToAddress("0x9abADECD08572e0eA5aF4d47A9C7984a5AA503dC"),
		CreationBlock: 4365693,
		WrappedNative: DefaultWrappedNative,
	},
	DeploymentAaveV3Bnb: {
		Pool:          common.HexToAddress("0x6807dc923806fE8Fd134338EABCA509979a7e0cB"),
		DataProvider:  common.HexToAddress("0x1e26247502e90b4fab9D0d17e4775e90085D2A35"),
		Oracle:        common.HexToAddress("0x39bc1bfDa2130d6Bb6DBEfd366939b4c7aa7C697"),
		CreationBlock: 33571625,
		WrappedNative: common.HexToAddress("0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c"),
	},
	DeploymentAaveV3Arbitrum: {
		Pool:          common.HexToAddress("0x794a61358D6845594F94dc1DB02A252b5b4814aD"),
		DataProvider:  common.HexToAddress("0x14496b405D62c24F91f04Cda1c69Dc526D56fDE5"),
		Oracle:        common.HexToAddress("0xb56c2F0B653B2e0b10C9b928C8580Ac5Df02C7C7"),
		L2Encoder:     common.HexToAddress("0x9abADECD08572e0eA5aF4d47A9C7984a5AA503dC"),
		CreationBlock: 7742429,
		WrappedNative: common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1"),
	},
	DeploymentAaveV3Avax: {
		Pool:          common.HexToAddress("0x794a61358D6845594F94dc1DB02A252b5b4814aD"),
		DataProvider:  common.HexToAddress("0x14496b405D62c24F91f04Cda1c69Dc526D56fDE5"),
		Oracle:        common.HexToAddress("0xEBd36016B3eD09D4693Ed4251c67Bd858c3c7C9C"),
		CreationBlock: 11970506,
		WrappedNative: common.HexToAddress("0xB31f66AA3C1e785363F0875A1B74E27b85FD66c7"),
	},
	DeploymentAaveV3Polygon: {
		Pool:          common.HexToAddress("0x794a61358D6845594F94dc1DB02A252b5b4814aD"),
		DataProvider:  common.HexToAddress("0x14496b405D62c24F91f04Cda1c69Dc526D56fDE5"),
		Oracle:        common.HexToAddress("0xb023e699F5a33916Ea823A16485e259257cA8Bd1"),
		CreationBlock: 25826028,
		WrappedNative: common.HexToAddress("0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270"),
	},
}

// LookupDeployment resolves a deployment name case-insensitively.
func LookupDeployment(name string) (Deployment, DeploymentConfig, error) {
	for d, cfg := range deployments {
		if strings.EqualFold(string(d), name) {
			return d, cfg, nil
		}
	}
	return "", DeploymentConfig{}, fmt.Errorf("unknown deployment %q (known: %s)", name, strings.Join(DeploymentNames(), ", "))
}

// DeploymentNames lists every known deployment, sorted.
func DeploymentNames() []string {
	names := make([]string, 0, len(deployments))
	for d := range deployments {
		names = append(names, string(d))
	}
	sort.Strings(names)
	return names
}
