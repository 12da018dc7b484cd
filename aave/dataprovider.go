package aave

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// TokenData pairs a reserve symbol with a token address.
type TokenData struct {
	Symbol       string
	TokenAddress common.Address
}

// ReserveConfiguration is the static risk configuration of a reserve.
type ReserveConfiguration struct {
	Decimals                 *big.Int
	LTV                      *big.Int
	LiquidationThreshold     *big.Int
	LiquidationBonus         *big.Int
	ReserveFactor            *big.Int
	UsageAsCollateralEnabled bool
	BorrowingEnabled         bool
	StableBorrowRateEnabled  bool
	IsActive                 bool
	IsFrozen                 bool
}

// UserReserveData is a user's position in a single reserve.
type UserReserveData struct {
	CurrentATokenBalance *big.Int
	CurrentStableDebt    *big.Int
	CurrentVariableDebt  *big.Int
}

// TotalDebt is stable plus variable debt.
func (d *UserReserveData) TotalDebt() *big.Int {
	return new(big.Int).Add(d.CurrentStableDebt, d.CurrentVariableDebt)
}

func PackGetAllReservesTokens() ([]byte, error) {
	return dataProviderABI.Pack("getAllReservesTokens")
}

func PackGetAllATokens() ([]byte, error) {
	return dataProviderABI.Pack("getAllATokens")
}

func UnpackGetAllReservesTokens(data []byte) ([]TokenData, error) {
	return unpackTokenList("getAllReservesTokens", data)
}

func UnpackGetAllATokens(data []byte) ([]TokenData, error) {
	return unpackTokenList("getAllATokens", data)
}

func unpackTokenList(method string, data []byte) ([]TokenData, error) {
	out, err := dataProviderABI.Unpack(method, data)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("%s returned %d values", method, len(out))
	}
	tokens := *abi.ConvertType(out[0], new([]TokenData)).(*[]TokenData)
	return tokens, nil
}

func PackGetReserveConfigurationData(asset common.Address) ([]byte, error) {
	return dataProviderABI.Pack("getReserveConfigurationData", asset)
}

func UnpackGetReserveConfigurationData(data []byte) (*ReserveConfiguration, error) {
	const method = "getReserveConfigurationData"
	out, err := dataProviderABI.Unpack(method, data)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	if len(out) != 10 {
		return nil, fmt.Errorf("%s returned %d values, want 10", method, len(out))
	}

	cfg := &ReserveConfiguration{}
	bigs := []**big.Int{&cfg.Decimals, &cfg.LTV, &cfg.LiquidationThreshold, &cfg.LiquidationBonus, &cfg.ReserveFactor}
	for i, dst := range bigs {
		v, ok := out[i].(*big.Int)
		if !ok {
			return nil, fmt.Errorf("%s output %d has type %T", method, i, out[i])
		}
		*dst = v
	}
	flags := []*bool{&cfg.UsageAsCollateralEnabled, &cfg.BorrowingEnabled, &cfg.StableBorrowRateEnabled, &cfg.IsActive, &cfg.IsFrozen}
	for i, dst := range flags {
		v, ok := out[len(bigs)+i].(bool)
		if !ok {
			return nil, fmt.Errorf("%s output %d has type %T", method, len(bigs)+i, out[len(bigs)+i])
		}
		*dst = v
	}
	return cfg, nil
}

func PackGetLiquidationProtocolFee(asset common.Address) ([]byte, error) {
	return dataProviderABI.Pack("getLiquidationProtocolFee", asset)
}

func UnpackGetLiquidationProtocolFee(data []byte) (*big.Int, error) {
	return unpackBig(dataProviderABI, "getLiquidationProtocolFee", data)
}

func PackGetUserReserveData(asset, user common.Address) ([]byte, error) {
	return dataProviderABI.Pack("getUserReserveData", asset, user)
}

func UnpackGetUserReserveData(data []byte) (*UserReserveData, error) {
	out, err := unpackBigs(dataProviderABI, "getUserReserveData", data, 3)
	if err != nil {
		return nil, err
	}
	return &UserReserveData{
		CurrentATokenBalance: out[0],
		CurrentStableDebt:    out[1],
		CurrentVariableDebt:  out[2],
	}, nil
}
