// Package aave marshals calls to the lending protocol contracts and to the
// helper contracts used for liquidations.
package aave

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const poolABIJSON = `[
	{
		"inputs": [{"internalType": "address", "name": "user", "type": "address"}],
		"name": "getUserAccountData",
		"outputs": [
			{"internalType": "uint256", "name": "totalCollateralBase", "type": "uint256"},
			{"internalType": "uint256", "name": "totalDebtBase", "type": "uint256"},
			{"internalType": "uint256", "name": "availableBorrowsBase", "type": "uint256"},
			{"internalType": "uint256", "name": "currentLiquidationThreshold", "type": "uint256"},
			{"internalType": "uint256", "name": "ltv", "type": "uint256"},
			{"internalType": "uint256", "name": "healthFactor", "type": "uint256"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "address", "name": "collateralAsset", "type": "address"},
			{"internalType": "address", "name": "debtAsset", "type": "address"},
			{"internalType": "address", "name": "user", "type": "address"},
			{"internalType": "uint256", "name": "debtToCover", "type": "uint256"},
			{"internalType": "bool", "name": "receiveAToken", "type": "bool"}
		],
		"name": "liquidationCall",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "internalType": "address", "name": "reserve", "type": "address"},
			{"indexed": false, "internalType": "address", "name": "user", "type": "address"},
			{"indexed": true, "internalType": "address", "name": "onBehalfOf", "type": "address"},
			{"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"},
			{"indexed": false, "internalType": "enum DataTypes.InterestRateMode", "name": "interestRateMode", "type": "uint8"},
			{"indexed": false, "internalType": "uint256", "name": "borrowRate", "type": "uint256"},
			{"indexed": true, "internalType": "uint16", "name": "referralCode", "type": "uint16"}
		],
		"name": "Borrow",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "internalType": "address", "name": "reserve", "type": "address"},
			{"indexed": false, "internalType": "address", "name": "user", "type": "address"},
			{"indexed": true, "internalType": "address", "name": "onBehalfOf", "type": "address"},
			{"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"},
			{"indexed": true, "internalType": "uint16", "name": "referralCode", "type": "uint16"}
		],
		"name": "Supply",
		"type": "event"
	}
]`

const dataProviderABIJSON = `[
	{
		"inputs": [],
		"name": "getAllReservesTokens",
		"outputs": [
			{
				"components": [
					{"internalType": "string", "name": "symbol", "type": "string"},
					{"internalType": "address", "name": "tokenAddress", "type": "address"}
				],
				"internalType": "struct IPoolDataProvider.TokenData[]",
				"name": "",
				"type": "tuple[]"
			}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "getAllATokens",
		"outputs": [
			{
				"components": [
					{"internalType": "string", "name": "symbol", "type": "string"},
					{"internalType": "address", "name": "tokenAddress", "type": "address"}
				],
				"internalType": "struct IPoolDataProvider.TokenData[]",
				"name": "",
				"type": "tuple[]"
			}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "address", "name": "asset", "type": "address"}],
		"name": "getReserveConfigurationData",
		"outputs": [
			{"internalType": "uint256", "name": "decimals", "type": "uint256"},
			{"internalType": "uint256", "name": "ltv", "type": "uint256"},
			{"internalType": "uint256", "name": "liquidationThreshold", "type": "uint256"},
			{"internalType": "uint256", "name": "liquidationBonus", "type": "uint256"},
			{"internalType": "uint256", "name": "reserveFactor", "type": "uint256"},
			{"internalType": "bool", "name": "usageAsCollateralEnabled", "type": "bool"},
			{"internalType": "bool", "name": "borrowingEnabled", "type": "bool"},
			{"internalType": "bool", "name": "stableBorrowRateEnabled", "type": "bool"},
			{"internalType": "bool", "name": "isActive", "type": "bool"},
			{"internalType": "bool", "name": "isFrozen", "type": "bool"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "address", "name": "asset", "type": "address"}],
		"name": "getLiquidationProtocolFee",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "address", "name": "asset", "type": "address"},
			{"internalType": "address", "name": "user", "type": "address"}
		],
		"name": "getUserReserveData",
		"outputs": [
			{"internalType": "uint256", "name": "currentATokenBalance", "type": "uint256"},
			{"internalType": "uint256", "name": "currentStableDebt", "type": "uint256"},
			{"internalType": "uint256", "name": "currentVariableDebt", "type": "uint256"},
			{"internalType": "uint256", "name": "principalStableDebt", "type": "uint256"},
			{"internalType": "uint256", "name": "scaledVariableDebt", "type": "uint256"},
			{"internalType": "uint256", "name": "stableBorrowRate", "type": "uint256"},
			{"internalType": "uint256", "name": "liquidityRate", "type": "uint256"},
			{"internalType": "uint40", "name": "stableRateLastUpdated", "type": "uint40"},
			{"internalType": "bool", "name": "usageAsCollateralEnabled", "type": "bool"}
		],
		"stateMutability": "view",
		"type": "function"
	}
]`

const oracleABIJSON = `[
	{
		"inputs": [{"internalType": "address", "name": "asset", "type": "address"}],
		"name": "getAssetPrice",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

const erc20ABIJSON = `[
	{
		"inputs": [{"internalType": "address", "name": "account", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "address", "name": "owner", "type": "address"},
			{"internalType": "address", "name": "spender", "type": "address"}
		],
		"name": "allowance",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "address", "name": "spender", "type": "address"},
			{"internalType": "uint256", "name": "amount", "type": "uint256"}
		],
		"name": "approve",
		"outputs": [{"internalType": "bool", "name": "", "type": "bool"}],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

const l2EncoderABIJSON = `[
	{
		"inputs": [
			{"internalType": "address", "name": "collateralAsset", "type": "address"},
			{"internalType": "address", "name": "debtAsset", "type": "address"},
			{"internalType": "address", "name": "user", "type": "address"},
			{"internalType": "uint256", "name": "debtToCover", "type": "uint256"},
			{"internalType": "bool", "name": "receiveAToken", "type": "bool"}
		],
		"name": "encodeLiquidationCall",
		"outputs": [
			{"internalType": "bytes32", "name": "", "type": "bytes32"},
			{"internalType": "bytes32", "name": "", "type": "bytes32"}
		],
		"stateMutability": "view",
		"type": "function"
	}
]`

const liquidatorABIJSON = `[
	{
		"inputs": [
			{"internalType": "address", "name": "collateral", "type": "address"},
			{"internalType": "address", "name": "debt", "type": "address"},
			{"internalType": "uint24", "name": "poolFee", "type": "uint24"},
			{"internalType": "uint256", "name": "debtToCover", "type": "uint256"},
			{"internalType": "bytes32", "name": "args0", "type": "bytes32"},
			{"internalType": "bytes32", "name": "args1", "type": "bytes32"}
		],
		"name": "liquidate",
		"outputs": [{"internalType": "int256", "name": "", "type": "int256"}],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "address", "name": "token", "type": "address"}],
		"name": "approvePool",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

var (
	poolABI         = mustParseABI(poolABIJSON)
	dataProviderABI = mustParseABI(dataProviderABIJSON)
	oracleABI       = mustParseABI(oracleABIJSON)
	erc20ABI        = mustParseABI(erc20ABIJSON)
	l2EncoderABI    = mustParseABI(l2EncoderABIJSON)
	liquidatorABI   = mustParseABI(liquidatorABIJSON)
)

// ParseABI parses a JSON ABI definition.
func ParseABI(abiJSON string) (*abi.ABI, error) {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func mustParseABI(abiJSON string) *abi.ABI {
	parsed, err := ParseABI(abiJSON)
	if err != nil {
		panic(err)
	}
	return parsed
}

// PoolABI returns the parsed lending pool ABI.
func PoolABI() *abi.ABI { return poolABI }

// DataProviderABI returns the parsed pool data provider ABI.
func DataProviderABI() *abi.ABI { return dataProviderABI }

// OracleABI returns the parsed price oracle ABI.
func OracleABI() *abi.ABI { return oracleABI }

// ERC20ABI returns the parsed token ABI.
func ERC20ABI() *abi.ABI { return erc20ABI }

// L2EncoderABI returns the parsed calldata encoder ABI.
func L2EncoderABI() *abi.ABI { return l2EncoderABI }

// LiquidatorABI returns the parsed helper contract ABI.
func LiquidatorABI() *abi.ABI { return liquidatorABI }
