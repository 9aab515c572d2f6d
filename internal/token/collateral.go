package token

import "math/big"

// CollateralLedger is the narrow capability the CDP engine is constructed
// against for the collateral asset (conceptually XLM). It is satisfied by
// *Ledger in the reference deployment, but the engine never type-asserts
// down to the concrete type: production wiring may instead point this at an
// adapter over an external SEP-41-style contract client.
type CollateralLedger interface {
	Balance(addr string) (*big.Int, error)
	Transfer(from, to string, amount *big.Int) error
	Approve(owner, spender string, amount *big.Int) error
	TransferFrom(spender, owner, to string, amount *big.Int) error
}

var _ CollateralLedger = (*Ledger)(nil)

// MintableLedger is the capability the CDP engine needs for the synthetic
// xasset token: everything CollateralLedger offers, plus Mint/Burn.
type MintableLedger interface {
	CollateralLedger
	Mint(addr string, amount *big.Int) error
	Burn(addr string, amount *big.Int) error
}

var _ MintableLedger = (*Ledger)(nil)
