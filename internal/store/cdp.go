package store

import (
	"encoding/json"

	bolt "go.etcd.io/bbolt"

	"github.com/equitx-labs/xasset/internal/cdp"
)

// CDPStore implements cdp.Store, one JSON record per borrower address.
type CDPStore struct {
	db *bolt.DB
}

// GetCDP returns nil, nil if the borrower has never opened a position.
func (s *CDPStore) GetCDP(borrower string) (*cdp.CDP, error) {
	var c *cdp.CDP
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketCDPs).Get([]byte(borrower))
		if raw == nil {
			return nil
		}
		var rec cdp.CDP
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}
		c = &rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// PutCDP persists c, overwriting any prior record for the borrower.
func (s *CDPStore) PutCDP(borrower string, c *cdp.CDP) error {
	encoded, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCDPs).Put([]byte(borrower), encoded)
	})
}
