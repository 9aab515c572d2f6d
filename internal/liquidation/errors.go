package liquidation

import "errors"

var (
	// ErrCDPNotFrozen is returned when liquidate_cdp is called on a CDP
	// that has not been frozen first.
	ErrCDPNotFrozen = errors.New("liquidation: cdp is not frozen")
	// ErrNothingToLiquidate is returned when a frozen CDP's refreshed debt
	// is already zero — nothing left for the pool to cancel.
	ErrNothingToLiquidate = errors.New("liquidation: nothing to liquidate")
)
