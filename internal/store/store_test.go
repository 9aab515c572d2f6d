package store

import (
	"math/big"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/equitx-labs/xasset/core/types"
	"github.com/equitx-labs/xasset/internal/cdp"
	"github.com/equitx-labs/xasset/internal/liquidation"
	"github.com/equitx-labs/xasset/internal/stabilitypool"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "xasset.db")
	db, err := Open(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestAccountStoreRoundTrip(t *testing.T) {
	db := openTestDB(t)
	accounts := db.AccountStore()

	got, err := accounts.GetAccount("alice")
	require.NoError(t, err)
	require.Nil(t, got)

	require.NoError(t, accounts.PutAccount("alice", &types.Account{
		Balance:    big.NewInt(500),
		Allowances: map[string]*big.Int{"bob": big.NewInt(10)},
	}))

	got, err = accounts.GetAccount("alice")
	require.NoError(t, err)
	require.Equal(t, big.NewInt(500), got.Balance)
	require.Equal(t, big.NewInt(10), got.Allowances["bob"])
}

func TestAccountStoresAreIsolatedByLedger(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.AccountStore().PutAccount("alice", &types.Account{Balance: big.NewInt(100)}))

	collateralAcc, err := db.CollateralAccountStore().GetAccount("alice")
	require.NoError(t, err)
	require.Nil(t, collateralAcc)
}

func TestCDPStoreRoundTrip(t *testing.T) {
	db := openTestDB(t)
	cdps := db.CDPStore()

	c := &cdp.CDP{
		Borrower:        "alice",
		XLMDeposited:    big.NewInt(1_000_000),
		AssetLent:       big.NewInt(500_000),
		AccruedInterest: big.NewInt(0),
		InterestPaid:    big.NewInt(0),
		Status:          cdp.StatusOpen,
	}
	require.NoError(t, cdps.PutCDP("alice", c))

	got, err := cdps.GetCDP("alice")
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1_000_000), got.XLMDeposited)
	require.Equal(t, cdp.StatusOpen, got.Status)

	missing, err := cdps.GetCDP("bob")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestPoolStoreRoundTrip(t *testing.T) {
	db := openTestDB(t)
	pool := db.PoolStore()

	g := &stabilitypool.Global{
		TotalXAsset:    big.NewInt(1000),
		P:              big.NewInt(1),
		S:              big.NewInt(0),
		Epoch:          2,
		EpochTerminalS: map[uint64]*big.Int{0: big.NewInt(5), 1: big.NewInt(9)},
	}
	require.NoError(t, pool.PutGlobal(g))

	got, err := pool.GetGlobal()
	require.NoError(t, err)
	require.Equal(t, uint64(2), got.Epoch)
	require.Equal(t, big.NewInt(9), got.EpochTerminalS[1])

	staker := &stabilitypool.Staker{
		Address:           "alice",
		D0:                big.NewInt(1000),
		P0:                big.NewInt(1),
		S0:                big.NewInt(0),
		PendingCollateral: big.NewInt(50),
		RewardsClaimed:    big.NewInt(0),
	}
	require.NoError(t, pool.PutStaker("alice", staker))

	gotStaker, err := pool.GetStaker("alice")
	require.NoError(t, err)
	require.Equal(t, big.NewInt(50), gotStaker.PendingCollateral)
}

func TestLiquidationStoreListsByBorrowerInOrder(t *testing.T) {
	db := openTestDB(t)
	liquidations := db.LiquidationStore()

	require.NoError(t, liquidations.PutRecord(&liquidation.Record{
		ID: "r1", Borrower: "alice", Timestamp: 100,
		CollateralLiquidated: big.NewInt(1),
	}))
	require.NoError(t, liquidations.PutRecord(&liquidation.Record{
		ID: "r2", Borrower: "alice", Timestamp: 200,
		CollateralLiquidated: big.NewInt(2),
	}))
	require.NoError(t, liquidations.PutRecord(&liquidation.Record{
		ID: "r3", Borrower: "bob", Timestamp: 150,
		CollateralLiquidated: big.NewInt(3),
	}))

	records, err := liquidations.ListRecords("alice")
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, uint64(100), records[0].Timestamp)
	require.Equal(t, uint64(200), records[1].Timestamp)

	bobRecords, err := liquidations.ListRecords("bob")
	require.NoError(t, err)
	require.Len(t, bobRecords, 1)
}

func TestAdminPauseRoundTrip(t *testing.T) {
	db := openTestDB(t)
	admin, err := db.Admin()
	require.NoError(t, err)

	require.False(t, admin.IsPaused("cdp"))
	require.NoError(t, admin.SetPaused("cdp", true))
	require.True(t, admin.IsPaused("cdp"))

	reloaded, err := db.Admin()
	require.NoError(t, err)
	require.True(t, reloaded.IsPaused("cdp"))
	require.False(t, reloaded.IsPaused("stabilitypool"))
}

func TestAdminAddressesAndMinCollatRatio(t *testing.T) {
	db := openTestDB(t)
	admin, err := db.Admin()
	require.NoError(t, err)

	require.NoError(t, admin.SetAddresses("protocol", "treasury", "pool"))
	require.NoError(t, admin.SetMinCollatRatioBps(11000))

	protocol, treasury, pool := admin.Addresses()
	require.Equal(t, "protocol", protocol)
	require.Equal(t, "treasury", treasury)
	require.Equal(t, "pool", pool)
	require.Equal(t, uint32(11000), admin.MinCollatRatioBps())
}
