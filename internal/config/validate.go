package config

import "fmt"

// MinCollatRatioFloorBps is the lowest minimum collateral ratio and
// MaxAnnualInterestBps the highest interest rate a deployment can
// configure, mirroring the sanity bounds the teacher's
// governance config enforces on voting periods.
var (
	MinCollatRatioFloorBps uint32 = 10000
	MaxAnnualInterestBps   uint32 = 5000
)

// Validate checks the loaded configuration for values that would let the
// cdp engine or stability pool start in a broken state.
func Validate(c Config) error {
	if c.Risk.MinCollatRatioBps < MinCollatRatioFloorBps {
		return fmt.Errorf("risk: min_collat_ratio_bps below %d floor", MinCollatRatioFloorBps)
	}
	if c.Risk.AnnualInterestBps > MaxAnnualInterestBps {
		return fmt.Errorf("risk: annual_interest_bps exceeds %d ceiling", MaxAnnualInterestBps)
	}
	if c.Oracle.CollateralSymbol == "" || c.Oracle.PeggedSymbol == "" {
		return fmt.Errorf("oracle: collateral and pegged symbols must be set")
	}
	if c.Oracle.MaxPriceAgeSecs == 0 {
		return fmt.Errorf("oracle: max_price_age_secs must be positive")
	}
	if c.Addresses.Protocol == "" || c.Addresses.Treasury == "" || c.Addresses.Pool == "" {
		return fmt.Errorf("addresses: protocol, treasury, and pool must all be set")
	}
	return nil
}
