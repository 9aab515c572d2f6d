// Package stabilitypool implements the Liquity-style "scalable reward
// distribution with compounding deposits" algorithm: stakers deposit the
// synthetic asset, and when the liquidation coordinator cancels a frozen
// CDP's debt, every staker's effective deposit shrinks and collateral
// reward grows proportionally in O(1), without touching per-staker state
// during the liquidation itself.
package stabilitypool

import "math/big"

// Epsilon is the threshold below which the running product P is treated as
// drained: if scaling P below it would lose too much precision, an epoch
// bump is forced instead. 10^-9 * ONE at the kernel's scale.
var Epsilon = func() *big.Int {
	// 10^(Scale-9); Scale is fixedpoint.Scale == 14, giving 10^5.
	return big.NewInt(100_000)
}()

// Global is the pool-wide state: instance-scoped singleton storage.
type Global struct {
	// TotalXAsset is the pool-wide sum of effective deposits, maintained
	// incrementally rather than recomputed from stakers.
	TotalXAsset *big.Int
	// P is the running product, scaled by ONE, decreased multiplicatively
	// on every liquidation.
	P *big.Int
	// S is the running sum of collateral reward per unit of pooled
	// synthetic asset.
	S *big.Int
	// Epoch increments whenever a liquidation fully drains the pool.
	Epoch uint64
	// EpochTerminalS records the value of S at the instant each epoch
	// ended (keyed by the epoch number that closed), so a staker whose
	// snapshot predates an epoch bump can still compute the gain accrued
	// during that epoch up to its terminal P/S before it reset.
	EpochTerminalS map[uint64]*big.Int
}

// Clone returns a deep copy.
func (g *Global) Clone() *Global {
	if g == nil {
		return nil
	}
	clone := &Global{
		TotalXAsset: cloneBig(g.TotalXAsset),
		P:           cloneBig(g.P),
		S:           cloneBig(g.S),
		Epoch:       g.Epoch,
	}
	if len(g.EpochTerminalS) > 0 {
		clone.EpochTerminalS = make(map[uint64]*big.Int, len(g.EpochTerminalS))
		for epoch, s := range g.EpochTerminalS {
			clone.EpochTerminalS[epoch] = cloneBig(s)
		}
	}
	return clone
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// Staker is one staker's snapshot, taken at the moment their deposit was
// last adjusted (stake, withdraw, or claim).
type Staker struct {
	Address string
	// D0 is the deposit amount at the time of the snapshot, before scaling.
	D0 *big.Int
	// P0, S0 are the pool's P and S at snapshot time.
	P0 *big.Int
	S0 *big.Int
	// Epoch0 is the pool epoch at snapshot time.
	Epoch0 uint64
	// PendingCollateral carries forward gains computed but not yet paid out
	// across a stake/withdraw snapshot reset, so resetting the snapshot
	// never drops an unclaimed gain.
	PendingCollateral *big.Int
	// RewardsClaimed is the cumulative collateral ever paid out to this
	// staker via Claim.
	RewardsClaimed *big.Int
}

// Clone returns a deep copy.
func (s *Staker) Clone() *Staker {
	if s == nil {
		return nil
	}
	clone := *s
	clone.D0 = cloneBig(s.D0)
	clone.P0 = cloneBig(s.P0)
	clone.S0 = cloneBig(s.S0)
	clone.PendingCollateral = cloneBig(s.PendingCollateral)
	clone.RewardsClaimed = cloneBig(s.RewardsClaimed)
	return &clone
}

// Store is the persistence seam for the pool's global state and per-staker
// snapshots.
type Store interface {
	GetGlobal() (*Global, error)
	PutGlobal(g *Global) error
	GetStaker(addr string) (*Staker, error)
	PutStaker(addr string, s *Staker) error
}
