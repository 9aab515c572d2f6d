package liquidation

import (
	"log/slog"
	"math/big"

	"github.com/google/uuid"

	"github.com/equitx-labs/xasset/internal/cdp"
	"github.com/equitx-labs/xasset/internal/fixedpoint"
	"github.com/equitx-labs/xasset/internal/oracle"
	"github.com/equitx-labs/xasset/internal/stabilitypool"
	"github.com/equitx-labs/xasset/observability"
	"github.com/equitx-labs/xasset/observability/logging"
)

// EventSink is the narrow capability the coordinator emits domain events
// through.
type EventSink interface {
	Emit(eventType string, attrs map[string]string)
}

// Coordinator ties the CDP engine and the stability pool together for
// liquidate_cdp: it never mutates pool or CDP internals directly, only
// through their exported operations.
type Coordinator struct {
	state  Store
	events EventSink
	logger *slog.Logger

	cdps   *cdp.Engine
	pool   *stabilitypool.Pool
	prices *oracle.PriceView

	idFunc func() string
}

// NewCoordinator binds the coordinator to a CDP engine, a stability pool,
// and the same price view the CDP engine uses for solvency checks.
func NewCoordinator(cdps *cdp.Engine, pool *stabilitypool.Pool, prices *oracle.PriceView) *Coordinator {
	return &Coordinator{
		cdps:   cdps,
		pool:   pool,
		prices: prices,
		idFunc: func() string { return uuid.NewString() },
	}
}

// SetState wires the coordinator to the append-only liquidation log.
func (c *Coordinator) SetState(state Store) { c.state = state }

// SetIDFunc overrides the record ID generator, for tests.
func (c *Coordinator) SetIDFunc(f func() string) {
	if f != nil {
		c.idFunc = f
	}
}

// SetEvents wires the event sink.
func (c *Coordinator) SetEvents(sink EventSink) { c.events = sink }

// SetLogger wires a structured logger for operation failures. A nil logger
// (the default) leaves the coordinator silent, matching every other Set*
// hook.
func (c *Coordinator) SetLogger(logger *slog.Logger) { c.logger = logger }

func (c *Coordinator) emit(eventType string, attrs map[string]string) {
	if c.events != nil {
		c.events.Emit(eventType, attrs)
	}
}

func (c *Coordinator) logErr(operation, borrower string, err error) {
	if c == nil || err == nil || c.logger == nil {
		return
	}
	c.logger.Error("liquidation operation failed",
		"operation", operation,
		logging.MaskField("borrower", borrower),
		"error", err.Error(),
	)
}

// ListRecords returns borrower's liquidation history, oldest first, backing
// the read-only liquidation history route.
func (c *Coordinator) ListRecords(borrower string) ([]*Record, error) {
	if c == nil || c.state == nil {
		return nil, nil
	}
	return c.state.ListRecords(borrower)
}

// ListAll returns every liquidation record across every borrower, for the
// periodic cold-storage export.
func (c *Coordinator) ListAll() ([]*Record, error) {
	if c == nil || c.state == nil {
		return nil, nil
	}
	return c.state.ListAll()
}

// Liquidate implements liquidate_cdp: refresh interest, require Frozen,
// seize and split collateral, cancel as much debt as the pool can cover,
// and append the result to the liquidation log. A partial liquidation
// leaves the CDP Frozen with reduced but non-zero debt; a full liquidation
// closes it.
func (c *Coordinator) Liquidate(borrower string) (record *Record, err error) {
	defer func() { c.logErr("liquidate_cdp", borrower, err) }()

	position, err := c.cdps.Refresh(borrower)
	if err != nil {
		return nil, err
	}
	if position.Status != cdp.StatusFrozen {
		return nil, ErrCDPNotFrozen
	}

	debtToCancel, err := fixedpoint.CheckedAdd(position.AssetLent, position.AccruedInterest)
	if err != nil {
		return nil, err
	}
	if debtToCancel.Sign() == 0 {
		return nil, ErrNothingToLiquidate
	}

	collateralSeized := new(big.Int).Set(position.XLMDeposited)
	collateralAppliedToInterest, err := c.prices.PeggedValueInXLM(position.AccruedInterest)
	if err != nil {
		return nil, err
	}
	if collateralAppliedToInterest.Cmp(collateralSeized) > 0 {
		collateralAppliedToInterest = new(big.Int).Set(collateralSeized)
	}
	collateralForStakers := new(big.Int).Sub(collateralSeized, collateralAppliedToInterest)

	poolTotal, err := c.pool.TotalXAsset()
	if err != nil {
		return nil, err
	}

	var (
		actualDebtCancelled    *big.Int
		actualCollateralSeized *big.Int
		actualInterestRepaid   = new(big.Int).Set(position.AccruedInterest)
		actualPrincipalRepaid  = new(big.Int).Set(position.AssetLent)
		closed                 bool
	)

	if poolTotal.Cmp(debtToCancel) >= 0 {
		if err = c.transferSeizedCollateral(collateralAppliedToInterest, collateralForStakers); err != nil {
			return nil, err
		}
		cancelled, err := c.pool.ApplyLiquidation(debtToCancel, collateralForStakers)
		if err != nil {
			return nil, err
		}
		actualDebtCancelled = cancelled
		actualCollateralSeized = collateralSeized
		closed = true

		if _, err = c.cdps.ApplyLiquidation(borrower, big.NewInt(0), big.NewInt(0), big.NewInt(0), true); err != nil {
			return nil, err
		}
	} else {
		// Prorate: cancel only what the pool can absorb, scaling both the
		// seized collateral and the interest/principal split by the same
		// fraction, and leave the remainder outstanding and Frozen.
		fraction := func(amount *big.Int) (*big.Int, error) {
			return fixedpoint.MulDiv(amount, poolTotal, debtToCancel)
		}
		scaledCollateralForStakers, ferr := fraction(collateralForStakers)
		if ferr != nil {
			return nil, ferr
		}
		scaledCollateralAppliedToInterest, ferr := fraction(collateralAppliedToInterest)
		if ferr != nil {
			return nil, ferr
		}
		scaledInterestRepaid, ferr := fraction(position.AccruedInterest)
		if ferr != nil {
			return nil, ferr
		}
		scaledPrincipalRepaid, ferr := fraction(position.AssetLent)
		if ferr != nil {
			return nil, ferr
		}

		if err = c.transferSeizedCollateral(scaledCollateralAppliedToInterest, scaledCollateralForStakers); err != nil {
			return nil, err
		}
		cancelled, cerr := c.pool.ApplyLiquidation(poolTotal, scaledCollateralForStakers)
		if cerr != nil {
			return nil, cerr
		}

		remainingXLM := new(big.Int).Sub(position.XLMDeposited, new(big.Int).Add(scaledCollateralAppliedToInterest, scaledCollateralForStakers))
		remainingAssetLent := new(big.Int).Sub(position.AssetLent, scaledPrincipalRepaid)
		remainingAccruedInterest := new(big.Int).Sub(position.AccruedInterest, scaledInterestRepaid)

		if _, err = c.cdps.ApplyLiquidation(borrower, remainingXLM, remainingAssetLent, remainingAccruedInterest, false); err != nil {
			return nil, err
		}

		actualDebtCancelled = cancelled
		actualCollateralSeized = new(big.Int).Add(scaledCollateralAppliedToInterest, scaledCollateralForStakers)
		actualInterestRepaid = scaledInterestRepaid
		actualPrincipalRepaid = scaledPrincipalRepaid
		collateralAppliedToInterest = scaledCollateralAppliedToInterest
		closed = false
	}

	pair, err := c.prices.Fetch()
	if err != nil {
		return nil, err
	}
	ratioBps, err := c.ratioBps(position.XLMDeposited, debtToCancel, pair)
	if err != nil {
		return nil, err
	}

	record = &Record{
		ID:                          c.idFunc(),
		Borrower:                    borrower,
		CollateralLiquidated:        actualCollateralSeized,
		PrincipalRepaid:             actualPrincipalRepaid,
		AccruedInterestRepaid:       actualInterestRepaid,
		CollateralAppliedToInterest: collateralAppliedToInterest,
		CollateralizationRatioBps:   ratioBps,
		XLMPrice:                    pair.CollateralPrice,
		XAssetPrice:                 pair.PeggedPrice,
		Closed:                      closed,
		Ledger:                      position.Ledger,
		Timestamp:                   position.Timestamp,
	}

	if c.state != nil {
		if err = c.state.PutRecord(record); err != nil {
			return nil, err
		}
	}

	observability.CDP().RecordLiquidation(closed)
	c.emit("cdp_liquidated", map[string]string{
		"borrower":              borrower,
		"debt_cancelled":        actualDebtCancelled.String(),
		"collateral_liquidated": actualCollateralSeized.String(),
		"closed":                boolString(closed),
	})

	return record, nil
}

// transferSeizedCollateral moves the interest-equivalent slice to the
// protocol's treasury and the remainder into the pool's custody, where it
// sits until claimed.
func (c *Coordinator) transferSeizedCollateral(toTreasury, toPool *big.Int) error {
	protocol := c.cdps.ProtocolAddress()
	collateral := c.cdps.Collateral()
	if toTreasury.Sign() > 0 {
		if err := collateral.Transfer(protocol, c.cdps.TreasuryAddress(), toTreasury); err != nil {
			return err
		}
	}
	if toPool.Sign() > 0 {
		if err := collateral.Transfer(protocol, c.poolAddress(), toPool); err != nil {
			return err
		}
	}
	return nil
}

func (c *Coordinator) poolAddress() string {
	return c.pool.Address()
}

func (c *Coordinator) ratioBps(xlm, debt *big.Int, pair oracle.Pair) (*big.Int, error) {
	if debt.Sign() == 0 {
		return nil, nil
	}
	xlmInPegged, err := fixedpoint.MulDiv(xlm, pair.CollateralPrice, pair.PeggedPrice)
	if err != nil {
		return nil, err
	}
	return fixedpoint.MulDiv(xlmInPegged, big.NewInt(cdp.BasisPointsDenominator), debt)
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
