package cdp

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	coretypes "github.com/equitx-labs/xasset/core/types"
	"github.com/equitx-labs/xasset/internal/oracle"
	"github.com/equitx-labs/xasset/internal/token"
)

type memCDPStore struct {
	cdps map[string]*CDP
}

func newMemCDPStore() *memCDPStore {
	return &memCDPStore{cdps: make(map[string]*CDP)}
}

func (m *memCDPStore) GetCDP(borrower string) (*CDP, error) {
	c, ok := m.cdps[borrower]
	if !ok {
		return nil, nil
	}
	return c.Clone(), nil
}

func (m *memCDPStore) PutCDP(borrower string, c *CDP) error {
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

const testScale = 14

func setupEngine(t *testing.T, minCollatRatioBps uint32, annualRateBps uint32) (*Engine, *oracle.MemoryOracle, *token.Ledger, *token.Ledger) {
	t.Helper()
	o := oracle.NewMemoryOracle(testScale)
	view := oracle.NewPriceView(o, "XLM", "USD")

	synthetic := token.NewLedger(newMemAccountStore())
	collateral := token.NewLedger(newMemAccountStore())

	params := Params{
		PeggedSymbol:          "USD",
		CollateralSymbol:      "XLM",
		MinCollatRatioBps:     minCollatRatioBps,
		Decimals:              7,
		Name:                  "xasset USD",
		Symbol:                "xUSD",
		AnnualInterestRateBps: annualRateBps,
	}
	engine := NewEngine(params, view, synthetic, collateral, "protocol", "treasury")
	engine.SetState(newMemCDPStore())
	return engine, o, synthetic, collateral
}

func TestOpenAndRead(t *testing.T) {
	engine, o, _, collateral := setupEngine(t, 11000, 1100)
	o.SetPrice(oracle.Other("XLM"), big.NewInt(1e13), 1)
	o.SetPrice(oracle.Other("USD"), big.NewInt(1e14), 1)

	require.NoError(t, collateral.Mint("alice", big.NewInt(1_700_000_000)))

	c, err := engine.OpenCDP("alice", big.NewInt(1_700_000_000), big.NewInt(100_000_000))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1_700_000_000), c.XLMDeposited)
	require.Equal(t, big.NewInt(100_000_000), c.AssetLent)
	require.Equal(t, StatusOpen, c.Status)

	view, err := engine.GetCDP("alice")
	require.NoError(t, err)
	require.Equal(t, ViewOpen, view.ViewStatus)
}

func TestParameterTighteningCausesInsolvency(t *testing.T) {
	engine, o, _, collateral := setupEngine(t, 11000, 1100)
	o.SetPrice(oracle.Other("XLM"), big.NewInt(1e13), 1)
	o.SetPrice(oracle.Other("USD"), big.NewInt(1e14), 1)

	require.NoError(t, collateral.Mint("alice", big.NewInt(1_700_000_000)))
	_, err := engine.OpenCDP("alice", big.NewInt(1_700_000_000), big.NewInt(100_000_000))
	require.NoError(t, err)

	engine.SetMinCollatRatio(15000)

	view, err := engine.GetCDP("alice")
	require.NoError(t, err)
	require.Equal(t, ViewInsolvent, view.ViewStatus)
}

func TestInterestOverOneYear(t *testing.T) {
	engine, o, _, collateral := setupEngine(t, 11000, 1100)
	o.SetPrice(oracle.Other("XLM"), big.NewInt(1e13), 1)
	o.SetPrice(oracle.Other("USD"), big.NewInt(1e14), 1)

	start := time.Unix(1_000_000, 0)
	engine.SetClock(func() time.Time { return start })

	require.NoError(t, collateral.Mint("alice", big.NewInt(100_000_000_000)))
	_, err := engine.OpenCDP("alice", big.NewInt(100_000_000_000), big.NewInt(500_000_000))
	require.NoError(t, err)

	// A touch at `start` itself accrues nothing: LastInterestTime is already `start`.
	_, err = engine.Refresh("alice")
	require.NoError(t, err)

	engine.SetClock(func() time.Time { return start.Add(31_536_000 * time.Second) })
	c, err := engine.Refresh("alice")
	require.NoError(t, err)

	require.True(t, c.AccruedInterest.Cmp(big.NewInt(54_000_000)) >= 0, "accrued_interest too low: %s", c.AccruedInterest)
	require.True(t, c.AccruedInterest.Cmp(big.NewInt(56_000_000)) < 0, "accrued_interest too high: %s", c.AccruedInterest)
}

func TestWithdrawCollateralRejectsInsolvency(t *testing.T) {
	engine, o, _, collateral := setupEngine(t, 11000, 1100)
	o.SetPrice(oracle.Other("XLM"), big.NewInt(1e13), 1)
	o.SetPrice(oracle.Other("USD"), big.NewInt(1e14), 1)

	require.NoError(t, collateral.Mint("alice", big.NewInt(1_700_000_000)))
	_, err := engine.OpenCDP("alice", big.NewInt(1_700_000_000), big.NewInt(100_000_000))
	require.NoError(t, err)

	_, err = engine.WithdrawCollateral("alice", big.NewInt(1_000_000_000))
	require.ErrorIs(t, err, ErrInsufficientCollateral)
}

func TestRepayDebtAppliesInterestFirst(t *testing.T) {
	engine, o, synthetic, collateral := setupEngine(t, 11000, 1100)
	o.SetPrice(oracle.Other("XLM"), big.NewInt(1e13), 1)
	o.SetPrice(oracle.Other("USD"), big.NewInt(1e14), 1)

	start := time.Unix(1_000_000, 0)
	engine.SetClock(func() time.Time { return start })

	require.NoError(t, collateral.Mint("alice", big.NewInt(1_700_000_000)))
	_, err := engine.OpenCDP("alice", big.NewInt(1_700_000_000), big.NewInt(100_000_000))
	require.NoError(t, err)

	// One year at 1100 bps on 100_000_000 accrues 11_000_000 of interest.
	engine.SetClock(func() time.Time { return start.Add(31_536_000 * time.Second) })

	// Mint borrower some extra synthetic so they can cover interest + a bit
	// of principal.
	require.NoError(t, synthetic.Mint("alice", big.NewInt(2_000_000)))

	c, err := engine.RepayDebt("alice", big.NewInt(13_000_000))
	require.NoError(t, err)
	require.True(t, c.InterestPaid.Sign() > 0)
	require.True(t, c.AccruedInterest.Sign() == 0 || c.AccruedInterest.Cmp(big.NewInt(0)) == 0)
}

func TestFreezeCDPRequiresInsolvency(t *testing.T) {
	engine, o, _, collateral := setupEngine(t, 11000, 1100)
	o.SetPrice(oracle.Other("XLM"), big.NewInt(1e13), 1)
	o.SetPrice(oracle.Other("USD"), big.NewInt(1e14), 1)

	require.NoError(t, collateral.Mint("alice", big.NewInt(1_700_000_000)))
	_, err := engine.OpenCDP("alice", big.NewInt(1_700_000_000), big.NewInt(100_000_000))
	require.NoError(t, err)

	_, err = engine.FreezeCDP("alice")
	require.ErrorIs(t, err, ErrCDPNotInsolvent)

	o.SetPrice(oracle.Other("XLM"), big.NewInt(5e12), 2)
	c, err := engine.FreezeCDP("alice")
	require.NoError(t, err)
	require.Equal(t, StatusFrozen, c.Status)
}

func TestAccruedInterestApprovalBufferExceedsExact(t *testing.T) {
	engine, o, _, collateral := setupEngine(t, 11000, 1100)
	o.SetPrice(oracle.Other("XLM"), big.NewInt(1e13), 1)
	o.SetPrice(oracle.Other("USD"), big.NewInt(1e14), 1)

	start := time.Unix(1_000_000, 0)
	engine.SetClock(func() time.Time { return start })

	require.NoError(t, collateral.Mint("alice", big.NewInt(1_700_000_000)))
	_, err := engine.OpenCDP("alice", big.NewInt(1_700_000_000), big.NewInt(100_000_000))
	require.NoError(t, err)

	engine.SetClock(func() time.Time { return start.Add(1000 * time.Second) })

	exact, approval, err := engine.AccruedInterest("alice")
	require.NoError(t, err)
	require.True(t, approval.Cmp(exact) > 0)
}
