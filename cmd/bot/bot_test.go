package bot

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/michaelpento.lv/liquidator/config"
	"github.com/michaelpento.lv/liquidator/types"
	"github.com/michaelpento.lv/liquidator/utils/monitor"
	"github.com/michaelpento.lv/liquidator/utils/testutils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeEngine struct {
	mu      sync.Mutex
	syncErr error
	tickErr error
	actions []types.Action
	ticks   int
}

func (f *fakeEngine) SyncState(context.Context) error { return f.syncErr }

func (f *fakeEngine) ProcessTick(context.Context) ([]types.Action, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ticks++
	return f.actions, f.tickErr
}

func (f *fakeEngine) tickCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ticks
}

type fakeSubmitter struct {
	mu   sync.Mutex
	fail map[common.Address]bool
	sent []*types.TxRequest
}

func (f *fakeSubmitter) Send(_ context.Context, req *types.TxRequest, _ *types.GasBidInfo) (*ethtypes.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[req.To] {
		return nil, errors.New("nonce too low")
	}
	f.sent = append(f.sent, req)
	return ethtypes.NewTx(&ethtypes.LegacyTx{Nonce: uint64(len(f.sent)), To: &req.To, Data: req.Data}), nil
}

func action(to uint64) types.Action {
	return types.Action{
		Tx:     &types.TxRequest{To: testutils.Addr(to), Data: []byte{0x01}},
		GasBid: &types.GasBidInfo{BidPercentage: 50, TotalProfit: big.NewInt(1e16)},
		Opportunity: types.LiquidationOpportunity{
			Borrower: testutils.Addr(100 + to),
			Profit:   big.NewInt(1_000_000),
		},
	}
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil, &fakeSubmitter{}, Options{Interval: time.Second}, nil)
	assert.Error(t, err)
	_, err = New(&fakeEngine{}, nil, Options{Interval: time.Second}, nil)
	assert.Error(t, err)
	_, err = New(&fakeEngine{}, &fakeSubmitter{}, Options{}, nil)
	assert.Error(t, err)
}

func TestRunCycle(t *testing.T) {
	tests := []struct {
		name      string
		engine    *fakeEngine
		fail      map[common.Address]bool
		submitted int
	}{
		{
			name:      "submits every action",
			engine:    &fakeEngine{actions: []types.Action{action(1)}},
			submitted: 1,
		},
		{
			name:      "failed submission does not stop the rest",
			engine:    &fakeEngine{actions: []types.Action{action(1), action(2)}},
			fail:      map[common.Address]bool{testutils.Addr(1): true},
			submitted: 1,
		},
		{
			name:   "cycle error",
			engine: &fakeEngine{tickErr: errors.New("rpc down")},
		},
		{
			name:   "no actions",
			engine: &fakeEngine{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &fakeSubmitter{fail: tt.fail}
			b, err := New(tt.engine, sender, Options{Interval: time.Hour}, zaptest.NewLogger(t))
			require.NoError(t, err)

			assert.Equal(t, tt.submitted, b.RunCycle(context.Background()))
			assert.Len(t, sender.sent, tt.submitted)
			assert.Equal(t, 1, tt.engine.tickCount())
		})
	}
}

func TestStartRunsFirstCycleImmediately(t *testing.T) {
	engine := &fakeEngine{actions: []types.Action{action(1)}}
	sender := &fakeSubmitter{}
	b, err := New(engine, sender, Options{Interval: time.Hour}, zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, b.Start(ctx))
	assert.Eventually(t, func() bool { return engine.tickCount() == 1 }, time.Second, 5*time.Millisecond)

	assert.Error(t, b.Start(ctx), "second start")

	cancel()
	b.Stop()
	assert.Equal(t, 1, engine.tickCount())
}

func TestStartTicks(t *testing.T) {
	engine := &fakeEngine{}
	b, err := New(engine, &fakeSubmitter{}, Options{Interval: 10 * time.Millisecond}, zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, b.Start(ctx))
	assert.Eventually(t, func() bool { return engine.tickCount() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	b.Stop()
}

func TestStartWithMonitor(t *testing.T) {
	engine := &fakeEngine{}
	mon := monitor.NewProcessMonitor(prometheus.NewRegistry(), "test", nil)
	b, err := New(engine, &fakeSubmitter{}, Options{Interval: time.Hour, Monitor: mon}, zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, b.Start(ctx))
	assert.Eventually(t, func() bool { return engine.tickCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Greater(t, mon.Last().Goroutines, 0)
	cancel()
	b.Stop()
}

func TestStartFailsWhenSyncFails(t *testing.T) {
	engine := &fakeEngine{syncErr: errors.New("corrupt cache")}
	b, err := New(engine, &fakeSubmitter{}, Options{Interval: time.Millisecond}, zaptest.NewLogger(t))
	require.NoError(t, err)

	err = b.Start(context.Background())
	assert.ErrorContains(t, err, "corrupt cache")
	b.Stop()
	assert.Zero(t, engine.tickCount())
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.PrivateKey = hex.EncodeToString(crypto.FromECDSA(key))
	cfg.Deployment = string(config.DeploymentAaveV3Optimism)
	cfg.LiquidatorAddress = testutils.Addr(0x11).Hex()
	cfg.StateCacheFile = filepath.Join(t.TempDir(), "borrowers.json")
	return cfg
}

func TestAssemble(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *config.Config)
		wantErr string
	}{
		{
			name: "helper mode",
		},
		{
			name: "direct mode without encoder",
			mutate: func(cfg *config.Config) {
				cfg.Deployment = string(config.DeploymentAaveV3Bnb)
				cfg.UseAaveLiquidator = true
			},
		},
		{
			name:   "explicit chain id and 0x key",
			mutate: func(cfg *config.Config) { cfg.ChainID = 10; cfg.PrivateKey = "0x" + cfg.PrivateKey },
		},
		{
			name:    "helper mode without encoder",
			mutate:  func(cfg *config.Config) { cfg.Deployment = string(config.DeploymentAaveV3Bnb) },
			wantErr: "no l2 encoder",
		},
		{
			name:    "unknown deployment",
			mutate:  func(cfg *config.Config) { cfg.Deployment = "nowhere" },
			wantErr: "unknown deployment",
		},
		{
			name:    "bad key",
			mutate:  func(cfg *config.Config) { cfg.PrivateKey = "zz" },
			wantErr: "invalid private key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			if tt.mutate != nil {
				tt.mutate(cfg)
			}

			b, err := Assemble(context.Background(), cfg, testutils.NewFakeBackend(), prometheus.NewRegistry(), zaptest.NewLogger(t))
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, cfg.PollInterval, b.opts.Interval)
			assert.Empty(t, b.opts.MetricsAddr)
			assert.Nil(t, b.opts.Monitor)
		})
	}
}

func TestAssembleServesMetricsWhenEnabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.PrometheusEnabled = true
	cfg.PrometheusEndpoint = "127.0.0.1:0"

	reg := prometheus.NewRegistry()
	b, err := Assemble(context.Background(), cfg, testutils.NewFakeBackend(), reg, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:0", b.opts.MetricsAddr)
	assert.Same(t, reg, b.opts.Gatherer)
	require.NotNil(t, b.opts.Monitor)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
