package oracle

import (
	"math/big"
	"time"

	"github.com/equitx-labs/xasset/internal/fixedpoint"
	"github.com/equitx-labs/xasset/observability"
)

// PriceView is the thin adapter the CDP engine and liquidation coordinator
// use instead of reaching into the oracle directly. It fetches the
// collateral symbol's and pegged symbol's last prices and exposes them as a
// matched pair.
type PriceView struct {
	oracle         PriceOracle
	collateralAsset Asset
	peggedAsset     Asset
}

// NewPriceView constructs a view bound to fixed collateral/pegged symbols.
func NewPriceView(o PriceOracle, collateralSymbol, peggedSymbol string) *PriceView {
	return &PriceView{
		oracle:          o,
		collateralAsset: Other(collateralSymbol),
		peggedAsset:     Other(peggedSymbol),
	}
}

// CollateralPrice fetches the oracle's lastprice for the collateral symbol
// (conceptually "XLM").
func (v *PriceView) CollateralPrice() (Quote, error) {
	return v.oracle.LastPrice(v.collateralAsset)
}

// PeggedPrice fetches the oracle's lastprice for the configured pegged
// symbol (conceptually "USD").
func (v *PriceView) PeggedPrice() (Quote, error) {
	return v.oracle.LastPrice(v.peggedAsset)
}

// Pair is a matched collateral/pegged price observation.
type Pair struct {
	CollateralPrice     *big.Int
	CollateralTimestamp uint64
	PeggedPrice         *big.Int
	PeggedTimestamp     uint64
}

// Fetch resolves both prices in one call, the shape every engine operation
// that needs a solvency check actually wants.
func (v *PriceView) Fetch() (Pair, error) {
	collateral, err := v.CollateralPrice()
	if err != nil {
		return Pair{}, err
	}
	v.recordFreshness(v.collateralAsset.Symbol, collateral.Timestamp)
	pegged, err := v.PeggedPrice()
	if err != nil {
		return Pair{}, err
	}
	v.recordFreshness(v.peggedAsset.Symbol, pegged.Timestamp)
	return Pair{
		CollateralPrice:     collateral.Price,
		CollateralTimestamp: collateral.Timestamp,
		PeggedPrice:         pegged.Price,
		PeggedTimestamp:     pegged.Timestamp,
	}, nil
}

// XLMValueInPegged converts a collateral-asset amount into pegged units:
// mul_div(xlmAmount, collateralPrice, peggedPrice). Both prices share the
// oracle's scale so it cancels out of the conversion.
func (v *PriceView) XLMValueInPegged(xlmAmount *big.Int) (*big.Int, error) {
	pair, err := v.Fetch()
	if err != nil {
		return nil, err
	}
	return fixedpoint.MulDiv(xlmAmount, pair.CollateralPrice, pair.PeggedPrice)
}

// PeggedValueInXLM converts a pegged-unit amount into collateral-asset
// units, the inverse of XLMValueInPegged. The liquidation coordinator uses
// it to size the slice of seized collateral whose pegged value equals a
// frozen CDP's accrued interest.
func (v *PriceView) PeggedValueInXLM(peggedAmount *big.Int) (*big.Int, error) {
	pair, err := v.Fetch()
	if err != nil {
		return nil, err
	}
	return fixedpoint.MulDiv(peggedAmount, pair.PeggedPrice, pair.CollateralPrice)
}

// recordFreshness reports how old a just-fetched quote was against the wall
// clock, so the oracle_price_age_seconds gauge reflects staleness even
// between explicit price-age checks elsewhere in the engine.
func (v *PriceView) recordFreshness(symbol string, timestamp uint64) {
	age := Now().Sub(time.Unix(int64(timestamp), 0))
	if age < 0 {
		age = 0
	}
	observability.Oracle().RecordFreshness(symbol, age)
}
