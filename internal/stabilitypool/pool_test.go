package stabilitypool

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/equitx-labs/xasset/core/types"
	"github.com/equitx-labs/xasset/internal/token"
)

type memAccountStore struct {
	accounts map[string]*types.Account
}

func newMemAccountStore() *memAccountStore {
	return &memAccountStore{accounts: make(map[string]*types.Account)}
}

func (m *memAccountStore) GetAccount(addr string) (*types.Account, error) {
	acc, ok := m.accounts[addr]
	if !ok {
		return nil, nil
	}
	return acc.Clone(), nil
}

func (m *memAccountStore) PutAccount(addr string, acc *types.Account) error {
	m.accounts[addr] = acc.Clone()
	return nil
}

type memPoolStore struct {
	global  *Global
	stakers map[string]*Staker
}

func newMemPoolStore() *memPoolStore {
	return &memPoolStore{stakers: make(map[string]*Staker)}
}

func (m *memPoolStore) GetGlobal() (*Global, error) {
	if m.global == nil {
		return nil, nil
	}
	return m.global.Clone(), nil
}

func (m *memPoolStore) PutGlobal(g *Global) error {
	m.global = g.Clone()
	return nil
}

func (m *memPoolStore) GetStaker(addr string) (*Staker, error) {
	s, ok := m.stakers[addr]
	if !ok {
		return nil, nil
	}
	return s.Clone(), nil
}

func (m *memPoolStore) PutStaker(addr string, s *Staker) error {
	m.stakers[addr] = s.Clone()
	return nil
}

// setupPool wires a pool over fresh synthetic and collateral ledgers. The
// caller plays the liquidation coordinator's role of funding the pool's
// collateral custody before calling ApplyLiquidation, since the pool itself
// never mints or seizes collateral.
func setupPool(t *testing.T) (*Pool, *token.Ledger, *token.Ledger) {
	t.Helper()
	synthetic := token.NewLedger(newMemAccountStore())
	collateral := token.NewLedger(newMemAccountStore())
	pool := NewPool(synthetic, collateral, "pool")
	pool.SetState(newMemPoolStore())
	return pool, synthetic, collateral
}

func TestStakeAndWithdraw(t *testing.T) {
	pool, synthetic, _ := setupPool(t)

	require.NoError(t, synthetic.Mint("alice", big.NewInt(1_000_0000000)))
	require.NoError(t, synthetic.Mint("bob", big.NewInt(1_000_0000000)))

	_, err := pool.Stake("alice", big.NewInt(500_0000000))
	require.NoError(t, err)
	_, err = pool.Stake("bob", big.NewInt(700_0000000))
	require.NoError(t, err)

	total, err := pool.TotalXAsset()
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1200_0000000), total)

	_, err = pool.Withdraw("alice", big.NewInt(200_0000000))
	require.NoError(t, err)

	deposit, err := pool.Deposit("alice")
	require.NoError(t, err)
	require.Equal(t, big.NewInt(300_0000000), deposit)

	bal, err := synthetic.Balance("alice")
	require.NoError(t, err)
	require.Equal(t, big.NewInt(700_0000000), bal)
}

func TestWithdrawExceedingDepositFails(t *testing.T) {
	pool, synthetic, _ := setupPool(t)
	require.NoError(t, synthetic.Mint("alice", big.NewInt(100)))

	_, err := pool.Stake("alice", big.NewInt(100))
	require.NoError(t, err)

	_, err = pool.Withdraw("alice", big.NewInt(101))
	require.ErrorIs(t, err, ErrInsufficientStake)
}

func TestApplyLiquidationPartialDrain(t *testing.T) {
	pool, synthetic, collateral := setupPool(t)
	require.NoError(t, synthetic.Mint("alice", big.NewInt(1_000_0000000)))
	require.NoError(t, collateral.Mint("pool", big.NewInt(200_0000000)))

	_, err := pool.Stake("alice", big.NewInt(1_000_0000000))
	require.NoError(t, err)

	cancelled, err := pool.ApplyLiquidation(big.NewInt(400_0000000), big.NewInt(200_0000000))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(400_0000000), cancelled)

	deposit, err := pool.Deposit("alice")
	require.NoError(t, err)
	require.Equal(t, big.NewInt(600_0000000), deposit)

	poolBal, err := synthetic.Balance("pool")
	require.NoError(t, err)
	require.Equal(t, big.NewInt(600_0000000), poolBal)
}

func TestApplyLiquidationFullDrainBumpsEpochAndNextStakeHasNoCarryover(t *testing.T) {
	pool, synthetic, collateral := setupPool(t)
	require.NoError(t, synthetic.Mint("alice", big.NewInt(500)))
	require.NoError(t, collateral.Mint("pool", big.NewInt(250)))

	_, err := pool.Stake("alice", big.NewInt(500))
	require.NoError(t, err)

	cancelled, err := pool.ApplyLiquidation(big.NewInt(500), big.NewInt(250))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(500), cancelled)

	deposit, err := pool.Deposit("alice")
	require.NoError(t, err)
	require.Equal(t, big.NewInt(0), deposit)

	claimed, err := pool.Claim("alice")
	require.NoError(t, err)
	require.Equal(t, big.NewInt(250), claimed)

	require.NoError(t, synthetic.Mint("bob", big.NewInt(300)))
	_, err = pool.Stake("bob", big.NewInt(300))
	require.NoError(t, err)

	bobDeposit, err := pool.Deposit("bob")
	require.NoError(t, err)
	require.Equal(t, big.NewInt(300), bobDeposit, "new epoch's stake must not carry over drained epoch's deposit")

	bobClaim, err := pool.Claim("bob")
	require.NoError(t, err)
	require.Equal(t, big.NewInt(0), bobClaim, "new epoch's staker must not inherit prior epoch's collateral")
}

func TestClaimPaysAccruedCollateral(t *testing.T) {
	pool, synthetic, collateral := setupPool(t)
	require.NoError(t, synthetic.Mint("alice", big.NewInt(1000)))
	require.NoError(t, synthetic.Mint("bob", big.NewInt(1000)))
	require.NoError(t, collateral.Mint("pool", big.NewInt(100)))

	_, err := pool.Stake("alice", big.NewInt(1000))
	require.NoError(t, err)

	_, err = pool.ApplyLiquidation(big.NewInt(500), big.NewInt(100))
	require.NoError(t, err)

	claimed, err := pool.Claim("alice")
	require.NoError(t, err)
	require.Equal(t, big.NewInt(100), claimed)

	aliceBal, err := collateral.Balance("alice")
	require.NoError(t, err)
	require.Equal(t, big.NewInt(100), aliceBal)

	again, err := pool.Claim("alice")
	require.NoError(t, err)
	require.Equal(t, big.NewInt(0), again)
}
