// Package oracle models the price-feed dependency the CDP engine and
// liquidation coordinator consume: a timestamped lastprice lookup per
// asset. It never talks to a live feed itself — callers wire in whatever
// client satisfies PriceOracle.
package oracle

import (
	"errors"
	"math/big"
	"sync"
	"time"
)

// ErrPriceUnavailable is returned when the oracle has no recorded price for
// the requested asset, mapping to the PriceUnavailable error kind.
var ErrPriceUnavailable = errors.New("oracle: price unavailable")

// AssetKind tags the union the SEP-40-shaped oracle exposes: a Stellar
// contract address, or an opaque symbol such as "XLM".
type AssetKind int

const (
	// AssetOther identifies an opaque symbol asset, e.g. Other("XLM").
	AssetOther AssetKind = iota
	// AssetStellar identifies a Stellar contract address asset.
	AssetStellar
)

// Asset is the tagged union the oracle's lastprice/price/prices operations
// key on.
type Asset struct {
	Kind     AssetKind
	Symbol   string
	Contract string
}

// Other constructs an opaque-symbol asset, e.g. oracle.Other("XLM").
func Other(symbol string) Asset { return Asset{Kind: AssetOther, Symbol: symbol} }

// Quote is a single timestamped price observation at the oracle's scale.
type Quote struct {
	Price     *big.Int
	Timestamp uint64
}

// PriceOracle is the narrow capability the CDP engine and liquidation
// coordinator are constructed against. No dynamic dispatch beyond this
// interface: the oracle address is fixed at construction.
type PriceOracle interface {
	// LastPrice returns the most recent recorded price for asset, or
	// ErrPriceUnavailable if none has ever been recorded.
	LastPrice(asset Asset) (Quote, error)
	// Decimals reports the fixed-point scale the oracle's prices are
	// expressed at. It must equal fixedpoint.Scale.
	Decimals() uint32
	// Assets enumerates the symbols this oracle has ever recorded a price
	// for.
	Assets() []Asset
}

// MemoryOracle is a simple in-memory PriceOracle used by the reference
// deployment and by tests. Production deployments wire a client against the
// same interface instead.
type MemoryOracle struct {
	mu       sync.RWMutex
	decimals uint32
	prices   map[string]Quote
	history  map[string][]Quote
}

// NewMemoryOracle constructs an oracle reporting prices at the given decimal
// scale.
func NewMemoryOracle(decimals uint32) *MemoryOracle {
	return &MemoryOracle{
		decimals: decimals,
		prices:   make(map[string]Quote),
		history:  make(map[string][]Quote),
	}
}

func assetKey(a Asset) string {
	if a.Kind == AssetStellar {
		return "stellar:" + a.Contract
	}
	return "sym:" + a.Symbol
}

// SetPrice records the latest price for asset, stamped with the supplied
// unix-second timestamp. It also appends to the asset's price history so
// Prices/PriceAt can serve historical lookups the way a SEP-40 oracle would.
func (o *MemoryOracle) SetPrice(asset Asset, price *big.Int, timestamp uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	key := assetKey(asset)
	quote := Quote{Price: new(big.Int).Set(price), Timestamp: timestamp}
	o.prices[key] = quote
	o.history[key] = append(o.history[key], quote)
}

// LastPrice implements PriceOracle.
func (o *MemoryOracle) LastPrice(asset Asset) (Quote, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	q, ok := o.prices[assetKey(asset)]
	if !ok {
		return Quote{}, ErrPriceUnavailable
	}
	return q, nil
}

// PriceAt returns the most recent recorded quote at or before timestamp,
// mirroring the SEP-40 price(asset, timestamp) operation the core does not
// itself call but the oracle contract exposes.
func (o *MemoryOracle) PriceAt(asset Asset, timestamp uint64) (Quote, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	history := o.history[assetKey(asset)]
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Timestamp <= timestamp {
			return history[i], nil
		}
	}
	return Quote{}, ErrPriceUnavailable
}

// Prices returns the last n recorded quotes for asset, most recent first,
// mirroring the SEP-40 prices(asset, n) operation.
func (o *MemoryOracle) Prices(asset Asset, n int) []Quote {
	o.mu.RLock()
	defer o.mu.RUnlock()
	history := o.history[assetKey(asset)]
	if n <= 0 || n > len(history) {
		n = len(history)
	}
	out := make([]Quote, n)
	for i := 0; i < n; i++ {
		out[i] = history[len(history)-1-i]
	}
	return out
}

// Decimals implements PriceOracle.
func (o *MemoryOracle) Decimals() uint32 { return o.decimals }

// Assets implements PriceOracle.
func (o *MemoryOracle) Assets() []Asset {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]Asset, 0, len(o.prices))
	for key := range o.prices {
		if len(key) > 4 && key[:4] == "sym:" {
			out = append(out, Other(key[4:]))
		}
	}
	return out
}

// Now is overridable in tests; production code leaves it as time.Now.
var Now = time.Now
