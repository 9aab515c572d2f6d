// Package config loads the protocol-wide TOML configuration: listen
// addresses, the bbolt data directory, a generated validator key that is
// persisted but not otherwise used, the protocol/treasury/pool custody addresses, and the
// risk parameters the cdp and stabilitypool engines start with.
package config

import (
	"encoding/hex"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/equitx-labs/xasset/crypto"
)

// Pauses mirrors the module pause flags store.Admin caches at runtime. A
// freshly generated config starts with every module unpaused.
type Pauses struct {
	CDP           bool `toml:"CDP"`
	StabilityPool bool `toml:"StabilityPool"`
	Liquidation   bool `toml:"Liquidation"`
	Token         bool `toml:"Token"`
}

// Oracle configures the SEP-40-style price feed the cdp and liquidation
// packages read through oracle.PriceView.
type Oracle struct {
	CollateralSymbol string `toml:"CollateralSymbol"`
	PeggedSymbol     string `toml:"PeggedSymbol"`
	MaxPriceAgeSecs  uint64 `toml:"MaxPriceAgeSecs"`
}

// Risk captures the risk parameters cdp.Params is seeded with at startup.
// Later changes flow through the admin set_min_collat_ratio operation
// instead of a config reload.
type Risk struct {
	MinCollatRatioBps   uint32 `toml:"MinCollatRatioBps"`
	AnnualInterestBps   uint32 `toml:"AnnualInterestBps"`
	LiquidationBonusBps uint32 `toml:"LiquidationBonusBps"`
}

// Addresses names the custody accounts the cdp engine and stability pool
// settle against. They are ordinary addresses in the xasset address space,
// not contracts.
type Addresses struct {
	Protocol string `toml:"Protocol"`
	Treasury string `toml:"Treasury"`
	Pool     string `toml:"Pool"`
}

// Archive configures the periodic cold-storage export of the append-only
// liquidation log to Parquet files.
type Archive struct {
	OutputDir       string `toml:"OutputDir"`
	IntervalSeconds uint64 `toml:"IntervalSeconds"`
}

// Config is the top-level on-disk configuration.
type Config struct {
	ListenAddress string    `toml:"ListenAddress"`
	RPCAddress    string    `toml:"RPCAddress"`
	DataDir       string    `toml:"DataDir"`
	ValidatorKey  string    `toml:"ValidatorKey"`
	Addresses     Addresses `toml:"addresses"`
	Risk          Risk      `toml:"risk"`
	Oracle        Oracle    `toml:"oracle"`
	Pauses        Pauses    `toml:"pauses"`
	Archive       Archive   `toml:"archive"`
}

// Load reads the configuration at path, creating a default file on first
// run the same way the node's top-level config does.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	if cfg.ValidatorKey == "" {
		key, err := crypto.GeneratePrivateKey()
		if err != nil {
			return nil, err
		}
		cfg.ValidatorKey = hex.EncodeToString(key.Bytes())

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, os.ModePerm)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		if err := toml.NewEncoder(f).Encode(cfg); err != nil {
			return nil, err
		}
	}

	cfg.EnsureDefaults()
	return cfg, nil
}

// createDefault writes a default configuration file and returns it.
func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ListenAddress: ":6001",
		RPCAddress:    ":8080",
		DataDir:       "./xasset-data",
		ValidatorKey:  hex.EncodeToString(key.Bytes()),
		Risk: Risk{
			MinCollatRatioBps:   11000,
			AnnualInterestBps:   500,
			LiquidationBonusBps: 0,
		},
		Oracle: Oracle{
			CollateralSymbol: "XLM",
			PeggedSymbol:     "USD",
			MaxPriceAgeSecs:  300,
		},
		Archive: Archive{
			OutputDir:       "./xasset-data/archive",
			IntervalSeconds: 3600,
		},
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// EnsureDefaults fills in zero-value risk parameters that would otherwise
// leave the cdp engine unable to ever consider a position solvent.
func (c *Config) EnsureDefaults() {
	if c.Risk.MinCollatRatioBps == 0 {
		c.Risk.MinCollatRatioBps = 11000
	}
	if c.Oracle.MaxPriceAgeSecs == 0 {
		c.Oracle.MaxPriceAgeSecs = 300
	}
	if c.Oracle.CollateralSymbol == "" {
		c.Oracle.CollateralSymbol = "XLM"
	}
	if c.Oracle.PeggedSymbol == "" {
		c.Oracle.PeggedSymbol = "USD"
	}
	if c.Archive.OutputDir == "" {
		c.Archive.OutputDir = "./xasset-data/archive"
	}
	if c.Archive.IntervalSeconds == 0 {
		c.Archive.IntervalSeconds = 3600
	}
}
