package types

import "math/big"

// Account is the per-address record backing the synthetic-asset token's
// fungible accounting. Allowances map a spender's address string to the
// amount of Balance they may still draw via transfer_from.
type Account struct {
	Balance     *big.Int           `json:"balance"`
	Allowances  map[string]*big.Int `json:"allowances,omitempty"`
	Nonce       uint64             `json:"nonce"`
}

// Clone returns a deep copy of the account so callers never share mutable
// big.Int pointers across reads.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := &Account{Nonce: a.Nonce}
	if a.Balance != nil {
		clone.Balance = new(big.Int).Set(a.Balance)
	} else {
		clone.Balance = big.NewInt(0)
	}
	if len(a.Allowances) > 0 {
		clone.Allowances = make(map[string]*big.Int, len(a.Allowances))
		for k, v := range a.Allowances {
			clone.Allowances[k] = new(big.Int).Set(v)
		}
	}
	return clone
}
