package archive

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/equitx-labs/xasset/internal/liquidation"
)

func TestWriteLiquidationsProducesNonEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "liquidations.parquet")
	records := []*liquidation.Record{
		{
			ID:                          "r1",
			Borrower:                    "alice",
			CollateralLiquidated:        big.NewInt(1_000_000),
			PrincipalRepaid:             big.NewInt(700_000),
			AccruedInterestRepaid:       big.NewInt(1_000),
			CollateralAppliedToInterest: big.NewInt(100),
			CollateralizationRatioBps:   big.NewInt(11000),
			XLMPrice:                    big.NewInt(1e13),
			XAssetPrice:                 big.NewInt(1e14),
			Closed:                      true,
			Ledger:                      3,
			Timestamp:                   100,
		},
	}

	require.NoError(t, WriteLiquidations(path, records))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestWriteLiquidationsHandlesNilAmounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "liquidations.parquet")
	records := []*liquidation.Record{
		{ID: "r1", Borrower: "alice", Timestamp: 1},
	}
	require.NoError(t, WriteLiquidations(path, records))
}
