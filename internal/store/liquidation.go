package store

import (
	"encoding/binary"
	"encoding/json"

	bolt "go.etcd.io/bbolt"
	"lukechampine.com/blake3"

	"github.com/equitx-labs/xasset/internal/liquidation"
)

// LiquidationStore implements liquidation.Store. Records are keyed
// borrower || 0x00 || big-endian timestamp || blake3(id)[:8] so that ListRecords can
// prefix-scan a single borrower's history in timestamp order without a
// secondary index, while the hash suffix keeps same-timestamp records from
// colliding.
type LiquidationStore struct {
	db *bolt.DB
}

func recordKey(r *liquidation.Record) []byte {
	sum := blake3.Sum256([]byte(r.ID))
	key := make([]byte, 0, len(r.Borrower)+1+8+8)
	key = append(key, []byte(r.Borrower)...)
	key = append(key, 0)
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], r.Timestamp)
	key = append(key, ts[:]...)
	key = append(key, sum[:8]...)
	return key
}

// PutRecord appends r to the log. Liquidation records are never overwritten
// once written, so a key collision (identical borrower, timestamp, and ID
// hash) would silently merge two entries; callers mint IDs with
// google/uuid, making that practically impossible.
func (s *LiquidationStore) PutRecord(r *liquidation.Record) error {
	encoded, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketLiquidations).Put(recordKey(r), encoded)
	})
}

// ListRecords returns every liquidation recorded against borrower, oldest
// first.
func (s *LiquidationStore) ListRecords(borrower string) ([]*liquidation.Record, error) {
	prefix := append([]byte(borrower), 0)
	var records []*liquidation.Record
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketLiquidations).Cursor()
		for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
			var rec liquidation.Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			records = append(records, &rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ListAll returns every liquidation record across every borrower, in key
// order, for the periodic archive export. Unlike ListRecords it scans the
// whole bucket; it is not on any borrower-facing request path.
func (s *LiquidationStore) ListAll() ([]*liquidation.Record, error) {
	var records []*liquidation.Record
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketLiquidations).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var rec liquidation.Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			records = append(records, &rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func hasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i := range prefix {
		if b[i] != prefix[i] {
			return false
		}
	}
	return true
}
