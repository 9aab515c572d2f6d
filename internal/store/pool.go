package store

import (
	"encoding/json"

	bolt "go.etcd.io/bbolt"

	"github.com/equitx-labs/xasset/internal/stabilitypool"
)

// globalKey is the fixed key under which the pool's singleton P/S/epoch/
// total_xasset state is stored — the narrative spec's instance-scoped
// "STORAGE" entry for the pool.
var globalKey = []byte("global")

// PoolStore implements stabilitypool.Store: one singleton global record and
// one JSON record per staker address.
type PoolStore struct {
	db *bolt.DB
}

// GetGlobal returns nil, nil before the pool has ever been touched.
func (s *PoolStore) GetGlobal() (*stabilitypool.Global, error) {
	var g *stabilitypool.Global
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketPoolGlobal).Get(globalKey)
		if raw == nil {
			return nil
		}
		var rec stabilitypool.Global
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}
		g = &rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

// PutGlobal persists g, overwriting the prior singleton record.
func (s *PoolStore) PutGlobal(g *stabilitypool.Global) error {
	encoded, err := json.Marshal(g)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPoolGlobal).Put(globalKey, encoded)
	})
}

// GetStaker returns nil, nil if addr has never staked.
func (s *PoolStore) GetStaker(addr string) (*stabilitypool.Staker, error) {
	var staker *stabilitypool.Staker
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketStakers).Get([]byte(addr))
		if raw == nil {
			return nil
		}
		var rec stabilitypool.Staker
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}
		staker = &rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return staker, nil
}

// PutStaker persists staker, overwriting any prior record for addr.
func (s *PoolStore) PutStaker(addr string, staker *stabilitypool.Staker) error {
	encoded, err := json.Marshal(staker)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketStakers).Put([]byte(addr), encoded)
	})
}
