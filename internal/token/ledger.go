// Package token implements the synthetic-asset fungible-token interface
// exposed to external callers (§6 of the spec): balance, transfer,
// allowance/approve/transfer_from, and the protocol-internal mint/burn used
// by the CDP engine and stability pool. The same shape, narrowed to
// transfer/balance/approve/transfer_from, also models the collateral-asset
// ledger consumed by the CDP engine — an external SEP-41-style contract the
// core never mutates except through those four calls.
package token

import (
	"errors"
	"math/big"
	"sync"

	"github.com/equitx-labs/xasset/core/types"
	"github.com/equitx-labs/xasset/internal/fixedpoint"
)

var (
	// ErrCannotTransferToSelf rejects a transfer/transfer_from where the
	// sender and recipient are identical.
	ErrCannotTransferToSelf = errors.New("token: cannot transfer to self")
	// ErrInsufficientBalance is returned when an account's balance cannot
	// cover a debit.
	ErrInsufficientBalance = errors.New("token: insufficient balance")
	// ErrInsufficientAllowance is returned when a transfer_from exceeds the
	// spender's remaining allowance.
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")
	// ErrInvalidAmount rejects non-positive amounts.
	ErrInvalidAmount = errors.New("token: amount must be positive")
)

// AccountStore is the persistence seam the ledger reads and writes through.
// internal/store provides the bbolt-backed implementation.
type AccountStore interface {
	GetAccount(addr string) (*types.Account, error)
	PutAccount(addr string, acc *types.Account) error
}

// Ledger implements the fungible-accounting layer for one asset (either the
// synthetic xasset token, with Mint/Burn enabled, or a standalone
// collateral-ledger stand-in used by tests and the reference deployment).
type Ledger struct {
	mu    sync.Mutex
	store AccountStore
}

// NewLedger constructs a ledger backed by store.
func NewLedger(store AccountStore) *Ledger {
	return &Ledger{store: store}
}

func (l *Ledger) load(addr string) (*types.Account, error) {
	acc, err := l.store.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		acc = &types.Account{Balance: big.NewInt(0)}
	}
	if acc.Balance == nil {
		acc.Balance = big.NewInt(0)
	}
	return acc, nil
}

// Balance returns addr's current balance.
func (l *Ledger) Balance(addr string) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acc, err := l.load(addr)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(acc.Balance), nil
}

// Mint credits amount to addr. Protocol-internal only: callers are the CDP
// engine (on open_cdp/borrow_xasset) and no external operation exposes it
// directly.
func (l *Ledger) Mint(addr string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	acc, err := l.load(addr)
	if err != nil {
		return err
	}
	balance, err := fixedpoint.CheckedAdd(acc.Balance, amount)
	if err != nil {
		return err
	}
	acc.Balance = balance
	return l.store.PutAccount(addr, acc)
}

// Burn debits amount from addr. Protocol-internal only: callers are the CDP
// engine (on repay_debt/pay_interest) and the stability pool (on
// apply_liquidation).
func (l *Ledger) Burn(addr string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	acc, err := l.load(addr)
	if err != nil {
		return err
	}
	if acc.Balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	balance, err := fixedpoint.CheckedSub(acc.Balance, amount)
	if err != nil {
		return err
	}
	acc.Balance = balance
	return l.store.PutAccount(addr, acc)
}

// Transfer moves amount from `from` to `to`, rejecting self-transfers and
// insufficient balances.
func (l *Ledger) Transfer(from, to string, amount *big.Int) error {
	if from == to {
		return ErrCannotTransferToSelf
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transferLocked(from, to, amount)
}

func (l *Ledger) transferLocked(from, to string, amount *big.Int) error {
	fromAcc, err := l.load(from)
	if err != nil {
		return err
	}
	// Balance is validated before any allowance decrement, per spec.
	if fromAcc.Balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	toAcc, err := l.load(to)
	if err != nil {
		return err
	}
	fromBalance, err := fixedpoint.CheckedSub(fromAcc.Balance, amount)
	if err != nil {
		return err
	}
	toBalance, err := fixedpoint.CheckedAdd(toAcc.Balance, amount)
	if err != nil {
		return err
	}
	fromAcc.Balance = fromBalance
	toAcc.Balance = toBalance
	if err := l.store.PutAccount(from, fromAcc); err != nil {
		return err
	}
	return l.store.PutAccount(to, toAcc)
}

// Allowance returns the amount spender may still draw from owner.
func (l *Ledger) Allowance(owner, spender string) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acc, err := l.load(owner)
	if err != nil {
		return nil, err
	}
	if acc.Allowances == nil {
		return big.NewInt(0), nil
	}
	if v, ok := acc.Allowances[spender]; ok {
		return new(big.Int).Set(v), nil
	}
	return big.NewInt(0), nil
}

// Approve sets the amount spender may draw from owner via transfer_from.
func (l *Ledger) Approve(owner, spender string, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	acc, err := l.load(owner)
	if err != nil {
		return err
	}
	if acc.Allowances == nil {
		acc.Allowances = make(map[string]*big.Int)
	}
	acc.Allowances[spender] = new(big.Int).Set(amount)
	return l.store.PutAccount(owner, acc)
}

// TransferFrom moves amount from owner to `to` on spender's behalf,
// validating owner's balance before decrementing the allowance so a
// transfer that would fail on balance never touches the allowance.
func (l *Ledger) TransferFrom(spender, owner, to string, amount *big.Int) error {
	if owner == to {
		return ErrCannotTransferToSelf
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	ownerAcc, err := l.load(owner)
	if err != nil {
		return err
	}
	if ownerAcc.Balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	allowance := big.NewInt(0)
	if ownerAcc.Allowances != nil {
		if v, ok := ownerAcc.Allowances[spender]; ok {
			allowance = v
		}
	}
	if allowance.Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}

	if err := l.transferLocked(owner, to, amount); err != nil {
		return err
	}

	ownerAcc, err = l.load(owner)
	if err != nil {
		return err
	}
	if ownerAcc.Allowances == nil {
		ownerAcc.Allowances = make(map[string]*big.Int)
	}
	ownerAcc.Allowances[spender] = new(big.Int).Sub(allowance, amount)
	return l.store.PutAccount(owner, ownerAcc)
}
