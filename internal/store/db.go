// Package store implements the bbolt-backed persistence layer behind every
// typed key the core packages address: per-address accounts for each token
// ledger, CDPs, stability-pool state, the liquidation log, and admin
// singletons (ADMIN, STORAGE in the narrative spec). Each concern gets its
// own bucket rather than a flat keyspace, mirroring
// services/identity-gateway/store.go's one-bucket-per-record-kind layout.
package store

import (
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/equitx-labs/xasset/internal/cdp"
	"github.com/equitx-labs/xasset/internal/common"
	"github.com/equitx-labs/xasset/internal/liquidation"
	"github.com/equitx-labs/xasset/internal/stabilitypool"
	"github.com/equitx-labs/xasset/internal/token"
)

var (
	_ token.AccountStore  = (*AccountStore)(nil)
	_ cdp.Store           = (*CDPStore)(nil)
	_ stabilitypool.Store = (*PoolStore)(nil)
	_ liquidation.Store   = (*LiquidationStore)(nil)
	_ common.PauseView    = (*Admin)(nil)
)

var (
	bucketAdmin             = []byte("admin")
	bucketAccountsSynthetic = []byte("accounts:synthetic")
	bucketAccountsXLM       = []byte("accounts:xlm")
	bucketCDPs              = []byte("cdps")
	bucketPoolGlobal        = []byte("pool:global")
	bucketStakers           = []byte("stakers")
	bucketLiquidations      = []byte("liquidations")
)

var allBuckets = [][]byte{
	bucketAdmin,
	bucketAccountsSynthetic,
	bucketAccountsXLM,
	bucketCDPs,
	bucketPoolGlobal,
	bucketStakers,
	bucketLiquidations,
}

// DB wraps a single bbolt file holding every bucket the protocol needs. All
// typed stores (AccountStore, CDPStore, PoolStore, LiquidationStore, Admin)
// share one handle so a snapshot/backup of the file captures consistent
// state across every module.
type DB struct {
	bolt *bolt.DB
}

// Open creates (or reopens) the database file at path, creating any bucket
// that does not already exist.
func Open(path string, options *bolt.Options) (*DB, error) {
	if options == nil {
		options = &bolt.Options{Timeout: time.Second}
	} else if options.Timeout == 0 {
		options.Timeout = time.Second
	}
	db, err := bolt.Open(path, 0o600, options)
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DB{bolt: db}, nil
}

// Close releases the underlying file handle.
func (d *DB) Close() error {
	if d == nil || d.bolt == nil {
		return nil
	}
	return d.bolt.Close()
}

// AccountStore returns a token.AccountStore backed by the synthetic-asset
// accounts bucket.
func (d *DB) AccountStore() *AccountStore {
	return &AccountStore{db: d.bolt, bucket: bucketAccountsSynthetic}
}

// CollateralAccountStore returns a token.AccountStore backed by the
// collateral-asset accounts bucket, distinct from the synthetic ledger's.
func (d *DB) CollateralAccountStore() *AccountStore {
	return &AccountStore{db: d.bolt, bucket: bucketAccountsXLM}
}

// CDPStore returns a cdp.Store backed by this database.
func (d *DB) CDPStore() *CDPStore { return &CDPStore{db: d.bolt} }

// PoolStore returns a stabilitypool.Store backed by this database.
func (d *DB) PoolStore() *PoolStore { return &PoolStore{db: d.bolt} }

// LiquidationStore returns a liquidation.Store backed by this database.
func (d *DB) LiquidationStore() *LiquidationStore { return &LiquidationStore{db: d.bolt} }

// Admin returns the admin singleton accessor, loading its cache from disk.
func (d *DB) Admin() (*Admin, error) { return loadAdmin(d.bolt) }
