package aave

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// UserAccountData is the aggregate position of one user across all reserves.
type UserAccountData struct {
	TotalCollateralBase         *big.Int
	TotalDebtBase               *big.Int
	AvailableBorrowsBase        *big.Int
	CurrentLiquidationThreshold *big.Int
	LTV                         *big.Int
	HealthFactor                *big.Int
}

func PackGetUserAccountData(user common.Address) ([]byte, error) {
	return poolABI.Pack("getUserAccountData", user)
}

func UnpackGetUserAccountData(data []byte) (*UserAccountData, error) {
	out, err := unpackBigs(poolABI, "getUserAccountData", data, 6)
	if err != nil {
		return nil, err
	}
	return &UserAccountData{
		TotalCollateralBase:         out[0],
		TotalDebtBase:               out[1],
		AvailableBorrowsBase:        out[2],
		CurrentLiquidationThreshold: out[3],
		LTV:                         out[4],
		HealthFactor:                out[5],
	}, nil
}

func PackLiquidationCall(collateral, debt, user common.Address, debtToCover *big.Int, receiveAToken bool) ([]byte, error) {
	return poolABI.Pack("liquidationCall", collateral, debt, user, debtToCover, receiveAToken)
}

// EventKind distinguishes the pool events that shape a borrower's position.
type EventKind int

const (
	EventBorrow EventKind = iota
	EventSupply
)

func (k EventKind) String() string {
	if k == EventBorrow {
		return "Borrow"
	}
	return "Supply"
}

// PositionEvent is a decoded Borrow or Supply log.
type PositionEvent struct {
	Kind        EventKind
	Reserve     common.Address
	OnBehalfOf  common.Address
	BlockNumber uint64
	TxHash      common.Hash
	Index       uint
}

// BorrowEventID returns topic0 of the pool Borrow event.
func BorrowEventID() common.Hash { return poolABI.Events["Borrow"].ID }

// SupplyEventID returns topic0 of the pool Supply event.
func SupplyEventID() common.Hash { return poolABI.Events["Supply"].ID }

// ParsePositionEvent decodes a Borrow or Supply log. Both events index the
// reserve and the onBehalfOf address, so only topics are read.
func ParsePositionEvent(log types.Log) (*PositionEvent, error) {
	if len(log.Topics) == 0 {
		return nil, fmt.Errorf("log %s:%d has no topics", log.TxHash.Hex(), log.Index)
	}

	var (
		kind EventKind
		ev   abi.Event
	)
	switch log.Topics[0] {
	case BorrowEventID():
		kind, ev = EventBorrow, poolABI.Events["Borrow"]
	case SupplyEventID():
		kind, ev = EventSupply, poolABI.Events["Supply"]
	default:
		return nil, fmt.Errorf("unexpected event topic %s", log.Topics[0].Hex())
	}

	var indexed abi.Arguments
	for _, arg := range ev.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}

	fields := make(map[string]interface{})
	if err := abi.ParseTopicsIntoMap(fields, indexed, log.Topics[1:]); err != nil {
		return nil, fmt.Errorf("failed to parse %s topics: %w", ev.Name, err)
	}

	reserve, ok := fields["reserve"].(common.Address)
	if !ok {
		return nil, fmt.Errorf("%s log missing reserve", ev.Name)
	}
	onBehalfOf, ok := fields["onBehalfOf"].(common.Address)
	if !ok {
		return nil, fmt.Errorf("%s log missing onBehalfOf", ev.Name)
	}

	return &PositionEvent{
		Kind:        kind,
		Reserve:     reserve,
		OnBehalfOf:  onBehalfOf,
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash,
		Index:       log.Index,
	}, nil
}

func unpackBigs(parsed *abi.ABI, method string, data []byte, n int) ([]*big.Int, error) {
	out, err := parsed.Unpack(method, data)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	if len(out) < n {
		return nil, fmt.Errorf("%s returned %d values, want %d", method, len(out), n)
	}
	vals := make([]*big.Int, n)
	for i := 0; i < n; i++ {
		v, ok := out[i].(*big.Int)
		if !ok {
			return nil, fmt.Errorf("%s output %d has type %T", method, i, out[i])
		}
		vals[i] = v
	}
	return vals, nil
}

func unpackBig(parsed *abi.ABI, method string, data []byte) (*big.Int, error) {
	vals, err := unpackBigs(parsed, method, data, 1)
	if err != nil {
		return nil, err
	}
	return vals[0], nil
}
