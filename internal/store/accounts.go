package store

import (
	"encoding/json"

	bolt "go.etcd.io/bbolt"

	"github.com/equitx-labs/xasset/core/types"
)

// AccountStore implements token.AccountStore over one bbolt bucket, so the
// synthetic-asset and collateral-asset ledgers never share a keyspace even
// though both are keyed by address.
type AccountStore struct {
	db     *bolt.DB
	bucket []byte
}

// GetAccount returns nil, nil if the address has never been touched.
func (s *AccountStore) GetAccount(addr string) (*types.Account, error) {
	var acc *types.Account
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(s.bucket).Get([]byte(addr))
		if raw == nil {
			return nil
		}
		var rec types.Account
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}
		acc = &rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// PutAccount persists acc, overwriting any prior record for the address.
func (s *AccountStore) PutAccount(addr string, acc *types.Account) error {
	encoded, err := json.Marshal(acc)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(addr), encoded)
	})
}
