package aave

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

func PackGetAssetPrice(asset common.Address) ([]byte, error) {
	return oracleABI.Pack("getAssetPrice", asset)
}

func UnpackGetAssetPrice(data []byte) (*big.Int, error) {
	return unpackBig(oracleABI, "getAssetPrice", data)
}
