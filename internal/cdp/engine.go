package cdp

import (
	"log/slog"
	"math/big"
	"time"

	"github.com/equitx-labs/xasset/internal/common"
	"github.com/equitx-labs/xasset/internal/fixedpoint"
	"github.com/equitx-labs/xasset/internal/oracle"
	"github.com/equitx-labs/xasset/internal/token"
	"github.com/equitx-labs/xasset/observability"
	"github.com/equitx-labs/xasset/observability/logging"
)

const moduleName = "cdp"

// AccrualApprovalBufferSeconds pads get_accrued_interest's approval_amount
// beyond the exact accrued figure, covering further accrual between the
// read and the approval being spent. The margin is a policy choice, not a
// precision requirement — see DESIGN.md.
const AccrualApprovalBufferSeconds = 30

// EventSink is the narrow capability the engine emits domain events
// through. internal/events.Bus implements it.
type EventSink interface {
	Emit(eventType string, attrs map[string]string)
}

// Engine orchestrates CDP state transitions: borrower-authorized mutations,
// permissionless freeze, and the liquidation coordinator's hook back in via
// Refresh/ApplyLiquidation.
type Engine struct {
	state  Store
	pauses common.PauseView
	events EventSink
	logger *slog.Logger

	params Params
	prices *oracle.PriceView

	synthetic  token.MintableLedger
	collateral token.CollateralLedger

	// protocolAddress is the account that custodies locked collateral.
	protocolAddress string
	// treasuryAddress receives the slice of seized collateral whose
	// pegged value equals a liquidated CDP's accrued interest — the
	// protocol's revenue share of a liquidation.
	treasuryAddress string

	now func() time.Time

	// totalCollateral and totalDebt track the engine's running aggregate
	// across every CDP it has persisted, kept incrementally at the single
	// persist() choke point so reporting totals never requires iterating
	// the store. Store has no enumeration capability on purpose.
	totalCollateral *big.Int
	totalDebt       *big.Int
}

// NewEngine constructs a CDP engine bound to fixed oracle and ledger
// dependencies, matching the spec's "no dynamic dispatch" design note.
func NewEngine(params Params, prices *oracle.PriceView, synthetic token.MintableLedger, collateral token.CollateralLedger, protocolAddress, treasuryAddress string) *Engine {
	return &Engine{
		params:          params,
		prices:          prices,
		synthetic:       synthetic,
		collateral:      collateral,
		protocolAddress: protocolAddress,
		treasuryAddress: treasuryAddress,
		now:             time.Now,
		totalCollateral: big.NewInt(0),
		totalDebt:       big.NewInt(0),
	}
}

// Collateral returns the collateral ledger the engine was constructed
// with, so the liquidation coordinator can move seized collateral without
// holding a second reference to the same dependency.
func (e *Engine) Collateral() token.CollateralLedger { return e.collateral }

// Synthetic returns the synthetic-asset ledger.
func (e *Engine) Synthetic() token.MintableLedger { return e.synthetic }

// ProtocolAddress returns the account that custodies locked collateral.
func (e *Engine) ProtocolAddress() string { return e.protocolAddress }

// TreasuryAddress returns the account that receives the interest-equivalent
// slice of collateral seized during liquidation.
func (e *Engine) TreasuryAddress() string { return e.treasuryAddress }

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state Store) { e.state = state }

// SetPauses wires the admin pause switch.
func (e *Engine) SetPauses(p common.PauseView) { e.pauses = p }

// SetEvents wires the event sink. A nil sink silently drops events.
func (e *Engine) SetEvents(sink EventSink) { e.events = sink }

// SetLogger wires a structured logger for operation failures. A nil logger
// (the default) leaves the engine silent, matching every other Set* hook.
func (e *Engine) SetLogger(logger *slog.Logger) { e.logger = logger }

// SetClock overrides the wall clock, for tests.
func (e *Engine) SetClock(now func() time.Time) {
	if now != nil {
		e.now = now
	}
}

// SetMinCollatRatio is the sole mutable protocol parameter (admin-only at
// the API layer; the engine itself does not check authorization).
func (e *Engine) SetMinCollatRatio(bps uint32) {
	old := e.params.MinCollatRatioBps
	e.params.MinCollatRatioBps = bps
	e.emit("parameter_changed", map[string]string{
		"name": "min_collat_ratio",
		"old":  big.NewInt(int64(old)).String(),
		"new":  big.NewInt(int64(bps)).String(),
	})
}

// Params returns the current protocol parameters.
func (e *Engine) Params() Params { return e.params }

// Info is the read-only inspection surface: the fields a client needs to
// identify the synthetic asset and its collateral without touching a
// specific CDP.
type Info struct {
	Name                  string
	Symbol                string
	Decimals              uint32
	MinCollatRatioBps     uint32
	CollateralAssetSymbol string
	ProtocolAddress       string
}

// Info reports the engine's inspection surface: name(), symbol(),
// decimals(), minimum_collateralization_ratio(), xlm_contract() and
// asset_contract(). This service has no on-chain contract registry, so
// xlm_contract is represented by the configured collateral oracle symbol
// and asset_contract by the protocol's own custody address — see DESIGN.md.
func (e *Engine) Info() Info {
	return Info{
		Name:                  e.params.Name,
		Symbol:                e.params.Symbol,
		Decimals:              e.params.Decimals,
		MinCollatRatioBps:     e.params.MinCollatRatioBps,
		CollateralAssetSymbol: e.params.CollateralSymbol,
		ProtocolAddress:       e.protocolAddress,
	}
}

func (e *Engine) emit(eventType string, attrs map[string]string) {
	if e.events != nil {
		e.events.Emit(eventType, attrs)
	}
}

func (e *Engine) logErr(operation, borrower string, err error) {
	if e == nil || err == nil || e.logger == nil {
		return
	}
	e.logger.Error("cdp operation failed",
		"operation", operation,
		logging.MaskField("borrower", borrower),
		"error", err.Error(),
	)
}

func (e *Engine) nowSeconds() uint64 { return uint64(e.now().Unix()) }

// computeRatioBps returns (xlm*collateralPrice/peggedPrice)*10000/debt. A
// nil result (with nil error) means the CDP is vacuously solvent because
// debt is zero.
func (e *Engine) computeRatioBps(xlm, debt *big.Int) (*big.Int, error) {
	if debt.Sign() == 0 {
		return nil, nil
	}
	xlmInPegged, err := e.prices.XLMValueInPegged(xlm)
	if err != nil {
		return nil, err
	}
	ratio, err := fixedpoint.MulDiv(xlmInPegged, big.NewInt(BasisPointsDenominator), debt)
	if err != nil {
		return nil, err
	}
	return ratio, nil
}

func (e *Engine) isSolvent(ratio *big.Int) bool {
	if ratio == nil {
		return true
	}
	return ratio.Cmp(big.NewInt(int64(e.params.MinCollatRatioBps))) >= 0
}

// refreshInterest applies lazy linear accrual to c in place, up to now,
// returning the newly accrued amount. It does not persist; callers refresh
// then mutate further before PutCDP.
func (e *Engine) refreshInterest(c *CDP, now uint64) (*big.Int, error) {
	if now <= c.LastInterestTime {
		return big.NewInt(0), nil
	}
	deltaT := now - c.LastInterestTime
	rateDelta, err := fixedpoint.CheckedMul(big.NewInt(int64(e.params.AnnualInterestRateBps)), big.NewInt(int64(deltaT)))
	if err != nil {
		return nil, err
	}
	denominator := big.NewInt(int64(BasisPointsDenominator) * SecondsPerYear)
	newInterest, err := fixedpoint.MulDiv(c.AssetLent, rateDelta, denominator)
	if err != nil {
		return nil, err
	}
	accrued, err := fixedpoint.CheckedAdd(c.AccruedInterest, newInterest)
	if err != nil {
		return nil, err
	}
	c.AccruedInterest = accrued
	c.LastInterestTime = now
	return newInterest, nil
}

// loadAndRefresh loads borrower's CDP and accrues interest up to now,
// returning the newly accrued amount alongside the CDP so callers can fold
// it into the delta they pass to persist.
func (e *Engine) loadAndRefresh(borrower string, now uint64) (*CDP, *big.Int, error) {
	if e == nil || e.state == nil {
		return nil, nil, errNilState
	}
	c, err := e.state.GetCDP(borrower)
	if err != nil {
		return nil, nil, err
	}
	if c == nil {
		return nil, nil, ErrCDPNotFound
	}
	accruedDelta, err := e.refreshInterest(c, now)
	if err != nil {
		return nil, nil, err
	}
	return c, accruedDelta, nil
}

// persist writes c and folds deltaCollateral/deltaDebt into the engine's
// running totals, which observability.CDP().SetTotals reports. It is the
// only place totals change, so read-only paths (GetCDP, AccruedInterest)
// that refresh but never call persist cannot produce a phantom delta.
func (e *Engine) persist(c *CDP, deltaCollateral, deltaDebt *big.Int) error {
	c.Ledger++
	c.Timestamp = e.nowSeconds()
	if err := e.state.PutCDP(c.Borrower, c); err != nil {
		return err
	}
	e.adjustTotals(deltaCollateral, deltaDebt)
	return nil
}

func (e *Engine) adjustTotals(deltaCollateral, deltaDebt *big.Int) {
	if e.totalCollateral == nil {
		e.totalCollateral = big.NewInt(0)
	}
	if e.totalDebt == nil {
		e.totalDebt = big.NewInt(0)
	}
	if deltaCollateral != nil {
		e.totalCollateral.Add(e.totalCollateral, deltaCollateral)
	}
	if deltaDebt != nil {
		e.totalDebt.Add(e.totalDebt, deltaDebt)
	}
	observability.CDP().SetTotals(e.totalCollateral, e.totalDebt)
}

// OpenCDP locks xlmDeposit of collateral from borrower and mints
// assetToBorrow of the synthetic asset to them, failing CDPAlreadyExists or
// InsufficientCollateral.
func (e *Engine) OpenCDP(borrower string, xlmDeposit, assetToBorrow *big.Int) (c *CDP, err error) {
	defer func() { e.logErr("open_cdp", borrower, err) }()

	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err = common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if xlmDeposit == nil || xlmDeposit.Sign() <= 0 || assetToBorrow == nil || assetToBorrow.Sign() <= 0 {
		return nil, errInvalidAmount
	}

	existing, err := e.state.GetCDP(borrower)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrCDPAlreadyExists
	}

	ratio, err := e.computeRatioBps(xlmDeposit, assetToBorrow)
	if err != nil {
		return nil, err
	}
	if !e.isSolvent(ratio) {
		return nil, ErrInsufficientCollateral
	}

	if err = e.collateral.Transfer(borrower, e.protocolAddress, xlmDeposit); err != nil {
		return nil, err
	}
	if err = e.synthetic.Mint(borrower, assetToBorrow); err != nil {
		return nil, err
	}

	now := e.nowSeconds()
	c = &CDP{
		Borrower:         borrower,
		XLMDeposited:     new(big.Int).Set(xlmDeposit),
		AssetLent:        new(big.Int).Set(assetToBorrow),
		AccruedInterest:  big.NewInt(0),
		InterestPaid:     big.NewInt(0),
		LastInterestTime: now,
		Status:           StatusOpen,
	}
	if err = e.persist(c, xlmDeposit, assetToBorrow); err != nil {
		return nil, err
	}
	observability.CDP().RecordOpened()
	e.emit("cdp_opened", map[string]string{
		"borrower": borrower,
		"xlm":      xlmDeposit.String(),
		"borrowed": assetToBorrow.String(),
	})
	return c, nil
}

// AddCollateral locks additional collateral into an Open CDP. Permitted
// while the view status is Insolvent, since the stored status is still
// Open in that case.
func (e *Engine) AddCollateral(borrower string, amount *big.Int) (c *CDP, err error) {
	defer func() { e.logErr("add_collateral", borrower, err) }()

	if err = common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, errInvalidAmount
	}
	var accruedDelta *big.Int
	c, accruedDelta, err = e.loadAndRefresh(borrower, e.nowSeconds())
	if err != nil {
		return nil, err
	}
	if c.Status != StatusOpen {
		return nil, ErrCDPNotOpen
	}
	if err = e.collateral.Transfer(borrower, e.protocolAddress, amount); err != nil {
		return nil, err
	}
	c.XLMDeposited = new(big.Int).Add(c.XLMDeposited, amount)
	if err = e.persist(c, amount, accruedDelta); err != nil {
		return nil, err
	}
	e.emitModified(c)
	return c, nil
}

// WithdrawCollateral releases collateral back to the borrower, failing
// InsufficientCollateral if the resulting ratio would drop below
// min_collat_ratio.
func (e *Engine) WithdrawCollateral(borrower string, amount *big.Int) (c *CDP, err error) {
	defer func() { e.logErr("withdraw_collateral", borrower, err) }()

	if err = common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, errInvalidAmount
	}
	var accruedDelta *big.Int
	c, accruedDelta, err = e.loadAndRefresh(borrower, e.nowSeconds())
	if err != nil {
		return nil, err
	}
	if c.Status != StatusOpen {
		return nil, ErrCDPNotOpen
	}
	if c.XLMDeposited.Cmp(amount) < 0 {
		return nil, ErrInsufficientCollateral
	}
	remaining := new(big.Int).Sub(c.XLMDeposited, amount)
	debt := new(big.Int).Add(c.AssetLent, c.AccruedInterest)
	ratio, err := e.computeRatioBps(remaining, debt)
	if err != nil {
		return nil, err
	}
	if !e.isSolvent(ratio) {
		return nil, ErrInsufficientCollateral
	}
	if err = e.collateral.Transfer(e.protocolAddress, borrower, amount); err != nil {
		return nil, err
	}
	c.XLMDeposited = remaining
	if err = e.persist(c, new(big.Int).Neg(amount), accruedDelta); err != nil {
		return nil, err
	}
	e.emitModified(c)
	return c, nil
}

// BorrowXAsset mints amount of the synthetic asset against an Open CDP's
// existing collateral, failing InsufficientCollateral if the post-borrow
// ratio drops below min_collat_ratio.
func (e *Engine) BorrowXAsset(borrower string, amount *big.Int) (c *CDP, err error) {
	defer func() { e.logErr("borrow_xasset", borrower, err) }()

	if err = common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, errInvalidAmount
	}
	var accruedDelta *big.Int
	c, accruedDelta, err = e.loadAndRefresh(borrower, e.nowSeconds())
	if err != nil {
		return nil, err
	}
	if c.Status != StatusOpen {
		return nil, ErrCDPNotOpen
	}
	newDebt := new(big.Int).Add(c.AssetLent, amount)
	totalDebt := new(big.Int).Add(newDebt, c.AccruedInterest)
	ratio, err := e.computeRatioBps(c.XLMDeposited, totalDebt)
	if err != nil {
		return nil, err
	}
	if !e.isSolvent(ratio) {
		return nil, ErrInsufficientCollateral
	}
	if err = e.synthetic.Mint(borrower, amount); err != nil {
		return nil, err
	}
	c.AssetLent = newDebt
	if err = e.persist(c, big.NewInt(0), new(big.Int).Add(amount, accruedDelta)); err != nil {
		return nil, err
	}
	e.emitModified(c)
	return c, nil
}

// RepayDebt burns up to amount of the borrower's synthetic-asset balance,
// applying it first to accrued_interest and the remainder to principal.
// Overpayment beyond total debt is clamped: only the outstanding debt is
// ever burned.
func (e *Engine) RepayDebt(borrower string, amount *big.Int) (c *CDP, err error) {
	defer func() { e.logErr("repay_debt", borrower, err) }()

	if err = common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, errInvalidAmount
	}
	var accruedDelta *big.Int
	c, accruedDelta, err = e.loadAndRefresh(borrower, e.nowSeconds())
	if err != nil {
		return nil, err
	}
	if c.Status != StatusOpen {
		return nil, ErrCDPNotOpen
	}
	balance, err := e.synthetic.Balance(borrower)
	if err != nil {
		return nil, err
	}
	if balance.Cmp(amount) < 0 {
		return nil, ErrInsufficientBalance
	}

	totalDebt := new(big.Int).Add(c.AssetLent, c.AccruedInterest)
	repayAmount := amount
	if repayAmount.Cmp(totalDebt) > 0 {
		repayAmount = totalDebt
	}
	interestPortion := new(big.Int).Set(c.AccruedInterest)
	if interestPortion.Cmp(repayAmount) > 0 {
		interestPortion = new(big.Int).Set(repayAmount)
	}
	principalPortion := new(big.Int).Sub(repayAmount, interestPortion)

	if repayAmount.Sign() > 0 {
		if err = e.synthetic.Burn(borrower, repayAmount); err != nil {
			return nil, err
		}
	}

	c.AccruedInterest = new(big.Int).Sub(c.AccruedInterest, interestPortion)
	c.AssetLent = new(big.Int).Sub(c.AssetLent, principalPortion)
	c.InterestPaid = new(big.Int).Add(c.InterestPaid, interestPortion)

	debtDelta := new(big.Int).Sub(accruedDelta, repayAmount)
	if err = e.persist(c, big.NewInt(0), debtDelta); err != nil {
		return nil, err
	}
	e.emitModified(c)
	return c, nil
}

// PayInterest burns amount from the borrower's balance against
// accrued_interest only, failing if amount exceeds what is owed.
func (e *Engine) PayInterest(borrower string, amount *big.Int) (c *CDP, err error) {
	defer func() { e.logErr("pay_interest", borrower, err) }()

	if err = common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, errInvalidAmount
	}
	var accruedDelta *big.Int
	c, accruedDelta, err = e.loadAndRefresh(borrower, e.nowSeconds())
	if err != nil {
		return nil, err
	}
	if c.Status != StatusOpen {
		return nil, ErrCDPNotOpen
	}
	if amount.Cmp(c.AccruedInterest) > 0 {
		return nil, ErrAmountExceedsAccruedInterest
	}
	balance, err := e.synthetic.Balance(borrower)
	if err != nil {
		return nil, err
	}
	if balance.Cmp(amount) < 0 {
		return nil, ErrInsufficientBalance
	}
	if err = e.synthetic.Burn(borrower, amount); err != nil {
		return nil, err
	}
	c.AccruedInterest = new(big.Int).Sub(c.AccruedInterest, amount)
	c.InterestPaid = new(big.Int).Add(c.InterestPaid, amount)
	debtDelta := new(big.Int).Sub(accruedDelta, amount)
	if err = e.persist(c, big.NewInt(0), debtDelta); err != nil {
		return nil, err
	}
	e.emitModified(c)
	return c, nil
}

// FreezeCDP is permissionless: anyone may call it to mark an insolvent CDP
// Frozen, failing CDPNotInsolvent if the current ratio is still healthy.
func (e *Engine) FreezeCDP(borrower string) (c *CDP, err error) {
	defer func() { e.logErr("freeze_cdp", borrower, err) }()

	if err = common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	var accruedDelta *big.Int
	c, accruedDelta, err = e.loadAndRefresh(borrower, e.nowSeconds())
	if err != nil {
		return nil, err
	}
	if c.Status != StatusOpen {
		return nil, ErrCDPNotOpen
	}
	debt := new(big.Int).Add(c.AssetLent, c.AccruedInterest)
	ratio, err := e.computeRatioBps(c.XLMDeposited, debt)
	if err != nil {
		return nil, err
	}
	if e.isSolvent(ratio) {
		return nil, ErrCDPNotInsolvent
	}
	c.Status = StatusFrozen
	if err = e.persist(c, big.NewInt(0), accruedDelta); err != nil {
		return nil, err
	}
	observability.CDP().RecordFrozen()
	e.emit("cdp_frozen", map[string]string{"borrower": borrower})
	return c, nil
}

// Refresh loads borrower's CDP, accrues interest up to now, and persists
// the refreshed figures. It is the liquidation coordinator's required
// first step before acting on a Frozen CDP.
func (e *Engine) Refresh(borrower string) (c *CDP, err error) {
	defer func() { e.logErr("refresh", borrower, err) }()

	var accruedDelta *big.Int
	c, accruedDelta, err = e.loadAndRefresh(borrower, e.nowSeconds())
	if err != nil {
		return nil, err
	}
	if err = e.persist(c, big.NewInt(0), accruedDelta); err != nil {
		return nil, err
	}
	return c, nil
}

// ApplyLiquidation overwrites a Frozen CDP's figures with the post-
// liquidation state computed by the liquidation coordinator. It is not
// borrower-authorized; only the coordinator calls it.
func (e *Engine) ApplyLiquidation(borrower string, xlmDeposited, assetLent, accruedInterest *big.Int, close bool) (c *CDP, err error) {
	defer func() { e.logErr("apply_liquidation", borrower, err) }()

	if e == nil || e.state == nil {
		return nil, errNilState
	}
	c, err = e.state.GetCDP(borrower)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCDPNotFound
	}
	if c.Status != StatusFrozen {
		return nil, ErrCDPNotFrozen
	}
	oldCollateral := new(big.Int).Set(c.XLMDeposited)
	oldDebt := new(big.Int).Add(c.AssetLent, c.AccruedInterest)

	c.XLMDeposited = new(big.Int).Set(xlmDeposited)
	c.AssetLent = new(big.Int).Set(assetLent)
	c.AccruedInterest = new(big.Int).Set(accruedInterest)
	if close {
		c.Status = StatusClosed
	}

	newDebt := new(big.Int).Add(c.AssetLent, c.AccruedInterest)
	deltaCollateral := new(big.Int).Sub(c.XLMDeposited, oldCollateral)
	deltaDebt := new(big.Int).Sub(newDebt, oldDebt)
	if err = e.persist(c, deltaCollateral, deltaDebt); err != nil {
		return nil, err
	}
	return c, nil
}

// View is a read-only snapshot returned by GetCDP: the stored record plus
// the lazily-derived view status and current ratio, computed against now
// without mutating storage.
type View struct {
	CDP        CDP
	ViewStatus ViewStatus
	RatioBps   *big.Int // nil means vacuously solvent (zero debt)
}

// GetCDP recomputes accrued_interest against the current clock on a clone,
// without persisting, and returns the derived view status and ratio.
func (e *Engine) GetCDP(borrower string) (view *View, err error) {
	defer func() { e.logErr("get_cdp", borrower, err) }()

	if e == nil || e.state == nil {
		return nil, errNilState
	}
	stored, err := e.state.GetCDP(borrower)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, ErrCDPNotFound
	}
	c := stored.Clone()
	if _, err = e.refreshInterest(c, e.nowSeconds()); err != nil {
		return nil, err
	}

	view = &View{CDP: *c}
	debt := new(big.Int).Add(c.AssetLent, c.AccruedInterest)
	ratio, err := e.computeRatioBps(c.XLMDeposited, debt)
	if err != nil {
		return nil, err
	}
	view.RatioBps = ratio
	switch c.Status {
	case StatusFrozen:
		view.ViewStatus = ViewFrozen
		return view, nil
	case StatusClosed:
		view.ViewStatus = ViewClosed
		return view, nil
	}

	if e.isSolvent(ratio) {
		view.ViewStatus = ViewOpen
	} else {
		view.ViewStatus = ViewInsolvent
	}
	return view, nil
}

// AccruedInterest reports the exact accrued_interest as of now alongside an
// approval_amount padded by AccrualApprovalBufferSeconds of further accrual,
// so a caller approving that amount to the protocol does not fall short by
// the time the approval is spent.
func (e *Engine) AccruedInterest(borrower string) (amount, approvalAmount *big.Int, err error) {
	defer func() { e.logErr("get_accrued_interest", borrower, err) }()

	stored, err := e.state.GetCDP(borrower)
	if err != nil {
		return nil, nil, err
	}
	if stored == nil {
		return nil, nil, ErrCDPNotFound
	}

	exact := stored.Clone()
	if _, err = e.refreshInterest(exact, e.nowSeconds()); err != nil {
		return nil, nil, err
	}

	padded := stored.Clone()
	if _, err = e.refreshInterest(padded, e.nowSeconds()+AccrualApprovalBufferSeconds); err != nil {
		return nil, nil, err
	}

	return exact.AccruedInterest, padded.AccruedInterest, nil
}

func (e *Engine) emitModified(c *CDP) {
	e.emit("cdp_modified", map[string]string{
		"borrower": c.Borrower,
		"new_xlm":  c.XLMDeposited.String(),
		"new_debt": new(big.Int).Add(c.AssetLent, c.AccruedInterest).String(),
	})
}
