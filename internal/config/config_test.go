package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":6001", cfg.ListenAddress)
	require.Equal(t, uint32(11000), cfg.Risk.MinCollatRatioBps)
	require.NotEmpty(t, cfg.ValidatorKey)

	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestLoadFillsMissingValidatorKeyAndPersistsIt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`ListenAddress = ":6001"`+"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotEmpty(t, cfg.ValidatorKey)

	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.ValidatorKey, reloaded.ValidatorKey)
}

func TestEnsureDefaultsFillsZeroValues(t *testing.T) {
	cfg := &Config{}
	cfg.EnsureDefaults()
	require.Equal(t, uint32(11000), cfg.Risk.MinCollatRatioBps)
	require.Equal(t, "XLM", cfg.Oracle.CollateralSymbol)
	require.Equal(t, "USD", cfg.Oracle.PeggedSymbol)
	require.Equal(t, uint64(300), cfg.Oracle.MaxPriceAgeSecs)
	require.Equal(t, uint64(3600), cfg.Archive.IntervalSeconds)
	require.NotEmpty(t, cfg.Archive.OutputDir)
}

func TestValidateRejectsBelowFloorRatio(t *testing.T) {
	cfg := Config{
		Risk:      Risk{MinCollatRatioBps: 9000, AnnualInterestBps: 500},
		Oracle:    Oracle{CollateralSymbol: "XLM", PeggedSymbol: "USD", MaxPriceAgeSecs: 60},
		Addresses: Addresses{Protocol: "p", Treasury: "t", Pool: "s"},
	}
	require.Error(t, Validate(cfg))
}

func TestValidateRejectsMissingAddresses(t *testing.T) {
	cfg := Config{
		Risk:   Risk{MinCollatRatioBps: 11000, AnnualInterestBps: 500},
		Oracle: Oracle{CollateralSymbol: "XLM", PeggedSymbol: "USD", MaxPriceAgeSecs: 60},
	}
	require.Error(t, Validate(cfg))
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	cfg := Config{
		Risk:      Risk{MinCollatRatioBps: 11000, AnnualInterestBps: 500},
		Oracle:    Oracle{CollateralSymbol: "XLM", PeggedSymbol: "USD", MaxPriceAgeSecs: 60},
		Addresses: Addresses{Protocol: "p", Treasury: "t", Pool: "s"},
	}
	require.NoError(t, Validate(cfg))
}
