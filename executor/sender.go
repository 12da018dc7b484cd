package executor

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/michaelpento.lv/liquidator/chain"
	"github.com/michaelpento.lv/liquidator/gas"
	"github.com/michaelpento.lv/liquidator/types"
	"github.com/michaelpento.lv/liquidator/utils/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Gas limits are estimated and padded by gasMarginPercent.
const gasMarginPercent = 20

// Sender signs and submits transactions from a single key.
type Sender struct {
	backend chain.Transactor
	key     *ecdsa.PrivateKey
	from    common.Address
	chainID *big.Int
	bidder  *gas.Bidder
	logger  *zap.Logger
	metrics *metrics.ExecutionMetrics
}

func NewSender(backend chain.Transactor, key *ecdsa.PrivateKey, chainID *big.Int, logger *zap.Logger, m *metrics.ExecutionMetrics) (*Sender, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend cannot be nil")
	}
	if key == nil {
		return nil, fmt.Errorf("signing key cannot be nil")
	}
	if chainID == nil {
		return nil, fmt.Errorf("chain id must be set")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewExecutionMetrics(prometheus.NewRegistry(), metrics.Namespace)
	}
	return &Sender{
		backend: backend,
		key:     key,
		from:    crypto.PubkeyToAddress(key.PublicKey),
		chainID: new(big.Int).Set(chainID),
		bidder:  gas.NewBidder(backend, logger),
		logger:  logger.Named("sender"),
		metrics: m,
	}, nil
}

// From is the address transactions are sent from.
func (s *Sender) From() common.Address {
	return s.from
}

// PendingNonce returns the next nonce the node expects from the sender.
func (s *Sender) PendingNonce(ctx context.Context) (uint64, error) {
	nonce, err := s.backend.PendingNonceAt(ctx, s.from)
	if err != nil {
		return 0, fmt.Errorf("failed to get nonce: %w", err)
	}
	return nonce, nil
}

// Send submits req at the pending nonce.
func (s *Sender) Send(ctx context.Context, req *types.TxRequest, bid *types.GasBidInfo) (*ethtypes.Transaction, error) {
	nonce, err := s.PendingNonce(ctx)
	if err != nil {
		s.metrics.Failed.Inc()
		return nil, err
	}
	return s.SendWithNonce(ctx, req, bid, nonce)
}

// SendWithNonce estimates gas, prices it from bid, signs and submits req.
func (s *Sender) SendWithNonce(ctx context.Context, req *types.TxRequest, bid *types.GasBidInfo, nonce uint64) (*ethtypes.Transaction, error) {
	tx, err := s.sign(ctx, req, bid, nonce)
	if err != nil {
		s.metrics.Failed.Inc()
		return nil, err
	}

	if err := s.backend.SendTransaction(ctx, tx); err != nil {
		s.metrics.Failed.Inc()
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}

	s.metrics.Submitted.Inc()
	gasPrice, _ := new(big.Float).SetInt(tx.GasPrice()).Float64()
	s.metrics.GasPrice.Observe(gasPrice)
	s.logger.Info("Transaction submitted",
		zap.String("hash", tx.Hash().Hex()),
		zap.String("to", req.To.Hex()),
		zap.Uint64("nonce", nonce),
		zap.Uint64("gas", tx.Gas()),
		zap.String("gas_price", tx.GasPrice().String()))
	return tx, nil
}

func (s *Sender) sign(ctx context.Context, req *types.TxRequest, bid *types.GasBidInfo, nonce uint64) (*ethtypes.Transaction, error) {
	to := req.To
	value := req.Value
	if value == nil {
		value = new(big.Int)
	}

	estimate, err := s.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  s.from,
		To:    &to,
		Value: value,
		Data:  req.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to estimate gas: %w", err)
	}
	gasLimit := estimate + estimate*gasMarginPercent/100

	gasPrice, err := s.bidder.GasPrice(ctx, gasLimit, bid)
	if err != nil {
		return nil, err
	}

	chainID := req.ChainID
	if chainID == nil {
		chainID = s.chainID
	}

	tx := ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       &to,
		Value:    value,
		Data:     req.Data,
	})
	signed, err := ethtypes.SignTx(tx, ethtypes.LatestSignerForChainID(chainID), s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return signed, nil
}
