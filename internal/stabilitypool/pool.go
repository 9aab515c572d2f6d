package stabilitypool

import (
	"log/slog"
	"math/big"

	"github.com/equitx-labs/xasset/internal/common"
	"github.com/equitx-labs/xasset/internal/fixedpoint"
	"github.com/equitx-labs/xasset/internal/token"
	"github.com/equitx-labs/xasset/observability"
	"github.com/equitx-labs/xasset/observability/logging"
)

const moduleName = "stabilitypool"

// EventSink is the narrow capability the pool emits domain events through.
type EventSink interface {
	Emit(eventType string, attrs map[string]string)
}

// Pool implements stake/withdraw/claim for stakers and apply_liquidation
// for the liquidation coordinator. It never iterates stakers: every
// operation touches only the calling staker's record plus the pool-wide
// P/S/epoch/total_xasset singleton.
type Pool struct {
	state  Store
	pauses common.PauseView
	events EventSink
	logger *slog.Logger

	synthetic token.MintableLedger
	// collateral pays out claimed rewards; the liquidation coordinator
	// transfers seized collateral into poolAddress before calling
	// ApplyLiquidation, so Claim always has funds to draw from.
	collateral token.CollateralLedger
	// poolAddress custodies synthetic tokens transferred in on stake and
	// out on withdraw, and collateral rewards pending claim;
	// apply_liquidation burns synthetic directly from it.
	poolAddress string
}

// NewPool constructs a pool bound to the synthetic-asset and collateral
// ledgers and the account that custodies staked tokens and unclaimed
// collateral rewards.
func NewPool(synthetic token.MintableLedger, collateral token.CollateralLedger, poolAddress string) *Pool {
	return &Pool{synthetic: synthetic, collateral: collateral, poolAddress: poolAddress}
}

// SetState wires the pool to its persistence layer.
func (p *Pool) SetState(state Store) { p.state = state }

// SetPauses wires the admin pause switch.
func (p *Pool) SetPauses(v common.PauseView) { p.pauses = v }

// SetEvents wires the event sink.
func (p *Pool) SetEvents(sink EventSink) { p.events = sink }

// SetLogger wires a structured logger for operation failures. A nil logger
// (the default) leaves the pool silent, matching every other Set* hook.
func (p *Pool) SetLogger(logger *slog.Logger) { p.logger = logger }

func (p *Pool) emit(eventType string, attrs map[string]string) {
	if p.events != nil {
		p.events.Emit(eventType, attrs)
	}
}

func (p *Pool) logErr(operation, staker string, err error) {
	if p == nil || err == nil || p.logger == nil {
		return
	}
	p.logger.Error("stability pool operation failed",
		"operation", operation,
		logging.MaskField("staker", staker),
		"error", err.Error(),
	)
}

// recordTotals reports the pool-wide gauges every successful PutGlobal
// should move: total staked and the current epoch.
func recordTotals(g *Global) {
	observability.StabilityPool().SetTotalStaked(g.TotalXAsset)
	observability.StabilityPool().SetEpoch(g.Epoch)
}

func (p *Pool) ensureGlobal() (*Global, error) {
	if p == nil || p.state == nil {
		return nil, errNilState
	}
	g, err := p.state.GetGlobal()
	if err != nil {
		return nil, err
	}
	if g == nil {
		g = &Global{
			TotalXAsset: big.NewInt(0),
			P:           new(big.Int).Set(fixedpoint.One),
			S:           big.NewInt(0),
			Epoch:       0,
		}
	}
	return g, nil
}

func (p *Pool) ensureStaker(addr string, g *Global) (*Staker, error) {
	s, err := p.state.GetStaker(addr)
	if err != nil {
		return nil, err
	}
	if s == nil {
		s = &Staker{
			Address:           addr,
			D0:                big.NewInt(0),
			P0:                new(big.Int).Set(fixedpoint.One),
			S0:                big.NewInt(0),
			Epoch0:            g.Epoch,
			PendingCollateral: big.NewInt(0),
			RewardsClaimed:    big.NewInt(0),
		}
	}
	return s, nil
}

// effectiveDeposit returns the staker's current effective deposit given the
// pool's current global state.
func (p *Pool) effectiveDeposit(s *Staker, g *Global) (*big.Int, error) {
	if s.Epoch0 != g.Epoch {
		return big.NewInt(0), nil
	}
	if s.P0.Sign() == 0 {
		return big.NewInt(0), nil
	}
	return fixedpoint.MulDiv(s.D0, g.P, s.P0)
}

// unclaimedGain returns the collateral accrued since the staker's snapshot
// was taken, not counting PendingCollateral carried over from an earlier
// reset.
func (p *Pool) unclaimedGain(s *Staker, g *Global) (*big.Int, error) {
	if s.P0.Sign() == 0 {
		return big.NewInt(0), nil
	}
	if s.Epoch0 != g.Epoch {
		terminalS, ok := g.EpochTerminalS[s.Epoch0]
		if !ok {
			return big.NewInt(0), nil
		}
		diff := new(big.Int).Sub(terminalS, s.S0)
		if diff.Sign() <= 0 {
			return big.NewInt(0), nil
		}
		return fixedpoint.MulDiv(s.D0, diff, s.P0)
	}
	diff := new(big.Int).Sub(g.S, s.S0)
	if diff.Sign() <= 0 {
		return big.NewInt(0), nil
	}
	return fixedpoint.MulDiv(s.D0, diff, s.P0)
}

// resnapshot folds the staker's unclaimed gain into PendingCollateral, then
// points (D0, P0, S0, Epoch0) at the given new effective deposit and the
// pool's current state — the shared tail of stake, withdraw, and claim.
func (p *Pool) resnapshot(s *Staker, g *Global, newDeposit *big.Int) error {
	gain, err := p.unclaimedGain(s, g)
	if err != nil {
		return err
	}
	pending, err := fixedpoint.CheckedAdd(s.PendingCollateral, gain)
	if err != nil {
		return err
	}
	s.PendingCollateral = pending
	s.D0 = newDeposit
	s.P0 = new(big.Int).Set(g.P)
	s.S0 = new(big.Int).Set(g.S)
	s.Epoch0 = g.Epoch
	return nil
}

// Stake transfers amount of the staker's synthetic balance into the pool's
// custody and grows their effective deposit by amount.
func (p *Pool) Stake(staker string, amount *big.Int) (s *Staker, err error) {
	defer func() { p.logErr("stake", staker, err) }()

	if err = common.Guard(p.pauses, moduleName); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	g, err := p.ensureGlobal()
	if err != nil {
		return nil, err
	}
	s, err = p.ensureStaker(staker, g)
	if err != nil {
		return nil, err
	}

	deff, err := p.effectiveDeposit(s, g)
	if err != nil {
		return nil, err
	}
	if err = p.resnapshot(s, g, new(big.Int).Add(deff, amount)); err != nil {
		return nil, err
	}

	if err = p.synthetic.Transfer(staker, p.poolAddress, amount); err != nil {
		return nil, err
	}

	total, err := fixedpoint.CheckedAdd(g.TotalXAsset, amount)
	if err != nil {
		return nil, err
	}
	g.TotalXAsset = total

	if err = p.state.PutGlobal(g); err != nil {
		return nil, err
	}
	if err = p.state.PutStaker(staker, s); err != nil {
		return nil, err
	}
	recordTotals(g)
	p.emit("stake_deposited", map[string]string{"staker": staker, "amount": amount.String()})
	return s, nil
}

// Withdraw reduces the staker's effective deposit by amount and transfers
// it back out of pool custody, failing InsufficientStake if amount exceeds
// the current effective deposit.
func (p *Pool) Withdraw(staker string, amount *big.Int) (s *Staker, err error) {
	defer func() { p.logErr("withdraw", staker, err) }()

	if err = common.Guard(p.pauses, moduleName); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	g, err := p.ensureGlobal()
	if err != nil {
		return nil, err
	}
	s, err = p.ensureStaker(staker, g)
	if err != nil {
		return nil, err
	}

	deff, err := p.effectiveDeposit(s, g)
	if err != nil {
		return nil, err
	}
	if deff.Cmp(amount) < 0 {
		return nil, ErrInsufficientStake
	}

	if err = p.resnapshot(s, g, new(big.Int).Sub(deff, amount)); err != nil {
		return nil, err
	}

	if err = p.synthetic.Transfer(p.poolAddress, staker, amount); err != nil {
		return nil, err
	}

	total := new(big.Int).Sub(g.TotalXAsset, amount)
	if total.Sign() < 0 {
		total = big.NewInt(0)
	}
	g.TotalXAsset = total

	if err = p.state.PutGlobal(g); err != nil {
		return nil, err
	}
	if err = p.state.PutStaker(staker, s); err != nil {
		return nil, err
	}
	recordTotals(g)
	p.emit("stake_withdrawn", map[string]string{"staker": staker, "amount": amount.String()})
	return s, nil
}

// Claim pays out the staker's full accrued collateral (PendingCollateral
// plus any gain since the last snapshot) out of pool custody, resets their
// tracking snapshot, and records the payout against RewardsClaimed.
func (p *Pool) Claim(staker string) (payout *big.Int, err error) {
	defer func() { p.logErr("claim", staker, err) }()

	if err = common.Guard(p.pauses, moduleName); err != nil {
		return nil, err
	}
	g, err := p.ensureGlobal()
	if err != nil {
		return nil, err
	}
	s, err := p.ensureStaker(staker, g)
	if err != nil {
		return nil, err
	}

	deff, err := p.effectiveDeposit(s, g)
	if err != nil {
		return nil, err
	}
	if err = p.resnapshot(s, g, deff); err != nil {
		return nil, err
	}

	payout = s.PendingCollateral
	s.PendingCollateral = big.NewInt(0)
	claimed, err := fixedpoint.CheckedAdd(s.RewardsClaimed, payout)
	if err != nil {
		return nil, err
	}
	s.RewardsClaimed = claimed

	if payout.Sign() > 0 {
		if err = p.collateral.Transfer(p.poolAddress, staker, payout); err != nil {
			return nil, err
		}
	}

	if err = p.state.PutStaker(staker, s); err != nil {
		return nil, err
	}
	observability.StabilityPool().RecordClaim()
	p.emit("reward_claimed", map[string]string{"staker": staker, "collateral": payout.String()})
	return payout, nil
}

// Deposit returns the staker's current effective deposit (a view, no
// mutation).
func (p *Pool) Deposit(staker string) (*big.Int, error) {
	g, err := p.ensureGlobal()
	if err != nil {
		return nil, err
	}
	s, err := p.state.GetStaker(staker)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return big.NewInt(0), nil
	}
	return p.effectiveDeposit(s, g)
}

// Address returns the account that custodies staked synthetic tokens and
// unclaimed collateral rewards, so the liquidation coordinator knows where
// to transfer seized collateral.
func (p *Pool) Address() string { return p.poolAddress }

// TotalXAsset returns the pool-wide sum of effective deposits.
func (p *Pool) TotalXAsset() (*big.Int, error) {
	g, err := p.ensureGlobal()
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(g.TotalXAsset), nil
}

// ApplyLiquidation is called only by the liquidation coordinator. It burns
// debtToCancel of the pool's custodied synthetic balance and credits
// collateralGained to the running sum S, bumping the epoch if the pool is
// fully (or near-fully) drained. It returns the actual debt cancelled,
// which may be less than debtToCancel if the pool cannot cover it.
func (p *Pool) ApplyLiquidation(debtToCancel, collateralGained *big.Int) (*big.Int, error) {
	g, err := p.ensureGlobal()
	if err != nil {
		return nil, err
	}
	d := g.TotalXAsset
	if d.Sign() == 0 {
		return big.NewInt(0), nil
	}

	if debtToCancel.Cmp(d) >= 0 {
		gain, err := fixedpoint.MulDiv(collateralGained, fixedpoint.One, d)
		if err != nil {
			return nil, err
		}
		newS, err := fixedpoint.CheckedAdd(g.S, gain)
		if err != nil {
			return nil, err
		}
		if err := p.synthetic.Burn(p.poolAddress, d); err != nil {
			return nil, err
		}
		p.bumpEpoch(g, newS)
		if err := p.state.PutGlobal(g); err != nil {
			return nil, err
		}
		recordTotals(g)
		return new(big.Int).Set(d), nil
	}

	remaining := new(big.Int).Sub(d, debtToCancel)
	newP, err := fixedpoint.MulDiv(g.P, remaining, d)
	if err != nil {
		return nil, err
	}
	gain, err := fixedpoint.MulDiv(collateralGained, fixedpoint.One, d)
	if err != nil {
		return nil, err
	}
	newS, err := fixedpoint.CheckedAdd(g.S, gain)
	if err != nil {
		return nil, err
	}
	newTotal, err := fixedpoint.MulDiv(g.TotalXAsset, remaining, d)
	if err != nil {
		return nil, err
	}

	if err := p.synthetic.Burn(p.poolAddress, debtToCancel); err != nil {
		return nil, err
	}

	if newP.Cmp(Epsilon) < 0 {
		p.bumpEpoch(g, newS)
	} else {
		g.P = newP
		g.S = newS
		g.TotalXAsset = newTotal
	}

	if err := p.state.PutGlobal(g); err != nil {
		return nil, err
	}
	recordTotals(g)
	return new(big.Int).Set(debtToCancel), nil
}

// bumpEpoch records the terminal S for the epoch being closed, then resets
// P to ONE, S to 0, total_xasset to 0, and advances the epoch counter.
func (p *Pool) bumpEpoch(g *Global, terminalS *big.Int) {
	if g.EpochTerminalS == nil {
		g.EpochTerminalS = make(map[uint64]*big.Int)
	}
	g.EpochTerminalS[g.Epoch] = new(big.Int).Set(terminalS)
	g.Epoch++
	g.P = new(big.Int).Set(fixedpoint.One)
	g.S = big.NewInt(0)
	g.TotalXAsset = big.NewInt(0)
}
