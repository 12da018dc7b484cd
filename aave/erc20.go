package aave

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

func PackBalanceOf(account common.Address) ([]byte, error) {
	return erc20ABI.Pack("balanceOf", account)
}

func UnpackBalanceOf(data []byte) (*big.Int, error) {
	return unpackBig(erc20ABI, "balanceOf", data)
}

func PackAllowance(owner, spender common.Address) ([]byte, error) {
	return erc20ABI.Pack("allowance", owner, spender)
}

func UnpackAllowance(data []byte) (*big.Int, error) {
	return unpackBig(erc20ABI, "allowance", data)
}

func PackApprove(spender common.Address, amount *big.Int) ([]byte, error) {
	return erc20ABI.Pack("approve", spender, amount)
}
