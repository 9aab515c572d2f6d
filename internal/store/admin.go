package store

import (
	"encoding/json"
	"sync"

	bolt "go.etcd.io/bbolt"
)

var adminKey = []byte("admin")

// adminState is the persisted shape; Admin keeps an in-memory copy so
// IsPaused (on the hot path of every CDP/pool mutation) never touches disk,
// mirroring core/node.go's modulePauses cache refreshed from durable
// parameter storage.
type adminState struct {
	PausedModules     map[string]bool `json:"pausedModules"`
	MinCollatRatioBps uint32          `json:"minCollatRatioBps"`
	ProtocolAddress   string          `json:"protocolAddress"`
	TreasuryAddress   string          `json:"treasuryAddress"`
	PoolAddress       string          `json:"poolAddress"`
}

// Admin is the ADMIN singleton: module pause switches and the protocol's
// fixed addresses, cached in memory and persisted to bbolt on every change.
type Admin struct {
	db *bolt.DB

	mu    sync.RWMutex
	state adminState
}

func loadAdmin(db *bolt.DB) (*Admin, error) {
	a := &Admin{db: db, state: adminState{PausedModules: make(map[string]bool)}}
	err := db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketAdmin).Get(adminKey)
		if raw == nil {
			return nil
		}
		var s adminState
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		if s.PausedModules == nil {
			s.PausedModules = make(map[string]bool)
		}
		a.state = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Admin) persist() error {
	encoded, err := json.Marshal(a.state)
	if err != nil {
		return err
	}
	return a.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketAdmin).Put(adminKey, encoded)
	})
}

// IsPaused implements common.PauseView.
func (a *Admin) IsPaused(module string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state.PausedModules[module]
}

// SetPaused flips module's pause switch and persists the change.
func (a *Admin) SetPaused(module string, paused bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state.PausedModules == nil {
		a.state.PausedModules = make(map[string]bool)
	}
	a.state.PausedModules[module] = paused
	return a.persist()
}

// MinCollatRatioBps returns the cached min_collat_ratio parameter.
func (a *Admin) MinCollatRatioBps() uint32 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state.MinCollatRatioBps
}

// SetMinCollatRatioBps updates and persists the min_collat_ratio parameter.
func (a *Admin) SetMinCollatRatioBps(bps uint32) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.MinCollatRatioBps = bps
	return a.persist()
}

// Addresses returns the protocol, treasury, and pool custody addresses
// recorded at genesis.
func (a *Admin) Addresses() (protocol, treasury, pool string) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state.ProtocolAddress, a.state.TreasuryAddress, a.state.PoolAddress
}

// SetAddresses records the protocol's fixed custody addresses. Called once
// during genesis/bootstrap.
func (a *Admin) SetAddresses(protocol, treasury, pool string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.ProtocolAddress = protocol
	a.state.TreasuryAddress = treasury
	a.state.PoolAddress = pool
	return a.persist()
}
