package aave

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// EncodedLiquidation is the compact calldata produced by the L2 encoder.
type EncodedLiquidation [2][32]byte

func PackEncodeLiquidationCall(collateral, debt, user common.Address, debtToCover *big.Int, receiveAToken bool) ([]byte, error) {
	return l2EncoderABI.Pack("encodeLiquidationCall", collateral, debt, user, debtToCover, receiveAToken)
}

func UnpackEncodeLiquidationCall(data []byte) (EncodedLiquidation, error) {
	const method = "encodeLiquidationCall"
	var encoded EncodedLiquidation

	out, err := l2EncoderABI.Unpack(method, data)
	if err != nil {
		return encoded, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	if len(out) != 2 {
		return encoded, fmt.Errorf("%s returned %d values, want 2", method, len(out))
	}
	for i := range encoded {
		word, ok := out[i].([32]byte)
		if !ok {
			return encoded, fmt.Errorf("%s output %d has type %T", method, i, out[i])
		}
		encoded[i] = word
	}
	return encoded, nil
}

func PackLiquidate(collateral, debt common.Address, poolFee uint32, debtToCover *big.Int, encoded EncodedLiquidation) ([]byte, error) {
	fee := new(big.Int).SetUint64(uint64(poolFee))
	return liquidatorABI.Pack("liquidate", collateral, debt, fee, debtToCover, encoded[0], encoded[1])
}

// UnpackLiquidate returns the signed gain reported by the helper.
func UnpackLiquidate(data []byte) (*big.Int, error) {
	return unpackBig(liquidatorABI, "liquidate", data)
}

func PackApprovePool(token common.Address) ([]byte, error) {
	return liquidatorABI.Pack("approvePool", token)
}
