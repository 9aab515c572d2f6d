package liquidation

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	coretypes "github.com/equitx-labs/xasset/core/types"
	"github.com/equitx-labs/xasset/internal/cdp"
	"github.com/equitx-labs/xasset/internal/oracle"
	"github.com/equitx-labs/xasset/internal/stabilitypool"
	"github.com/equitx-labs/xasset/internal/token"
)

type memCDPStore struct {
	cdps map[string]*cdp.CDP
}

func newMemCDPStore() *memCDPStore { return &memCDPStore{cdps: make(map[string]*cdp.CDP)} }

func (m *memCDPStore) GetCDP(borrower string) (*cdp.CDP, error) {
	c, ok := m.cdps[borrower]
	if !ok {
		return nil, nil
	}
	return c.Clone(), nil
}

func (m *memCDPStore) PutCDP(borrower string, c *cdp.CDP) error {
	m.cdps[borrower] = c.Clone()
	return nil
}

type memAccountStore struct {
	accounts map[string]*coretypes.Account
}

func newMemAccountStore() *memAccountStore {
	return &memAccountStore{accounts: make(map[string]*coretypes.Account)}
}

func (m *memAccountStore) GetAccount(addr string) (*coretypes.Account, error) {
	acc, ok := m.accounts[addr]
	if !ok {
		return nil, nil
	}
	return acc.Clone(), nil
}

func (m *memAccountStore) PutAccount(addr string, acc *coretypes.Account) error {
	m.accounts[addr] = acc.Clone()
	return nil
}

type memPoolStore struct {
	global  *stabilitypool.Global
	stakers map[string]*stabilitypool.Staker
}

func newMemPoolStore() *memPoolStore {
	return &memPoolStore{stakers: make(map[string]*stabilitypool.Staker)}
}

func (m *memPoolStore) GetGlobal() (*stabilitypool.Global, error) {
	if m.global == nil {
		return nil, nil
	}
	return m.global.Clone(), nil
}

func (m *memPoolStore) PutGlobal(g *stabilitypool.Global) error {
	m.global = g.Clone()
	return nil
}

func (m *memPoolStore) GetStaker(addr string) (*stabilitypool.Staker, error) {
	s, ok := m.stakers[addr]
	if !ok {
		return nil, nil
	}
	return s.Clone(), nil
}

func (m *memPoolStore) PutStaker(addr string, s *stabilitypool.Staker) error {
	m.stakers[addr] = s.Clone()
	return nil
}

type memLiquidationStore struct {
	records []*Record
}

func (m *memLiquidationStore) PutRecord(r *Record) error {
	m.records = append(m.records, r.Clone())
	return nil
}

func (m *memLiquidationStore) ListRecords(borrower string) ([]*Record, error) {
	var out []*Record
	for _, r := range m.records {
		if r.Borrower == borrower {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

func (m *memLiquidationStore) ListAll() ([]*Record, error) {
	out := make([]*Record, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r.Clone())
	}
	return out, nil
}

const testScale = 14

func setupCoordinator(t *testing.T) (*Coordinator, *cdp.Engine, *stabilitypool.Pool, *oracle.MemoryOracle, *token.Ledger, *token.Ledger) {
	t.Helper()
	o := oracle.NewMemoryOracle(testScale)
	view := oracle.NewPriceView(o, "XLM", "USD")

	synthetic := token.NewLedger(newMemAccountStore())
	collateral := token.NewLedger(newMemAccountStore())

	params := cdp.Params{
		PeggedSymbol:          "USD",
		CollateralSymbol:      "XLM",
		MinCollatRatioBps:     11000,
		Decimals:              7,
		Name:                  "xasset USD",
		Symbol:                "xUSD",
		AnnualInterestRateBps: 0,
	}
	cdpEngine := cdp.NewEngine(params, view, synthetic, collateral, "protocol", "treasury")
	cdpEngine.SetState(newMemCDPStore())

	pool := stabilitypool.NewPool(synthetic, collateral, "pool")
	pool.SetState(newMemPoolStore())

	coord := NewCoordinator(cdpEngine, pool, view)
	coord.SetState(&memLiquidationStore{})

	return coord, cdpEngine, pool, o, synthetic, collateral
}

func TestLiquidateFullyWhenPoolCoversDebt(t *testing.T) {
	coord, cdpEngine, pool, o, synthetic, collateral := setupCoordinator(t)
	o.SetPrice(oracle.Other("XLM"), big.NewInt(1e13), 1)
	o.SetPrice(oracle.Other("USD"), big.NewInt(1e14), 1)

	require.NoError(t, collateral.Mint("alice", big.NewInt(10_000_000_000)))
	_, err := cdpEngine.OpenCDP("alice", big.NewInt(10_000_000_000), big.NewInt(700_000_000))
	require.NoError(t, err)

	require.NoError(t, synthetic.Mint("staker", big.NewInt(1_000_000_000)))
	_, err = pool.Stake("staker", big.NewInt(1_000_000_000))
	require.NoError(t, err)

	o.SetPrice(oracle.Other("XLM"), big.NewInt(5e12), 2)
	_, err = cdpEngine.FreezeCDP("alice")
	require.NoError(t, err)

	record, err := coord.Liquidate("alice")
	require.NoError(t, err)
	require.True(t, record.Closed)
	require.Equal(t, big.NewInt(700_000_000), record.PrincipalRepaid)

	view, err := cdpEngine.GetCDP("alice")
	require.NoError(t, err)
	require.Equal(t, cdp.ViewClosed, view.ViewStatus)
}

func TestLiquidatePartiallyWhenPoolUndercapitalized(t *testing.T) {
	coord, cdpEngine, pool, o, synthetic, collateral := setupCoordinator(t)
	o.SetPrice(oracle.Other("XLM"), big.NewInt(1e13), 1)
	o.SetPrice(oracle.Other("USD"), big.NewInt(1e14), 1)

	require.NoError(t, collateral.Mint("alice", big.NewInt(10_000_000_000)))
	_, err := cdpEngine.OpenCDP("alice", big.NewInt(10_000_000_000), big.NewInt(700_000_000))
	require.NoError(t, err)

	require.NoError(t, synthetic.Mint("staker", big.NewInt(50_000_000)))
	_, err = pool.Stake("staker", big.NewInt(50_000_000))
	require.NoError(t, err)

	o.SetPrice(oracle.Other("XLM"), big.NewInt(5e12), 2)
	_, err = cdpEngine.FreezeCDP("alice")
	require.NoError(t, err)

	record, err := coord.Liquidate("alice")
	require.NoError(t, err)
	require.False(t, record.Closed)

	view, err := cdpEngine.GetCDP("alice")
	require.NoError(t, err)
	require.Equal(t, cdp.ViewFrozen, view.ViewStatus)
	require.True(t, view.CDP.XLMDeposited.Cmp(big.NewInt(10_000_000_000)) < 0)
	require.True(t, view.CDP.AssetLent.Cmp(big.NewInt(700_000_000)) < 0)

	total, err := pool.TotalXAsset()
	require.NoError(t, err)
	require.Equal(t, big.NewInt(0), total)
}

func TestLiquidateRejectsNonFrozen(t *testing.T) {
	coord, cdpEngine, _, o, _, collateral := setupCoordinator(t)
	o.SetPrice(oracle.Other("XLM"), big.NewInt(1e13), 1)
	o.SetPrice(oracle.Other("USD"), big.NewInt(1e14), 1)

	require.NoError(t, collateral.Mint("alice", big.NewInt(10_000_000_000)))
	_, err := cdpEngine.OpenCDP("alice", big.NewInt(10_000_000_000), big.NewInt(700_000_000))
	require.NoError(t, err)

	_, err = coord.Liquidate("alice")
	require.ErrorIs(t, err, ErrCDPNotFrozen)
}
