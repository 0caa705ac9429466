package config

import (
	"sync"

	"gorm.io/gorm"
)

// Store registry: one open *gorm.DB per physical store, keyed by store id.
// This replaces the original deployment's "mutate the global settings dict
// at runtime" approach with an explicit handle registry (see DESIGN.md).

var (
	storesMu sync.RWMutex
	stores   = make(map[string]*gorm.DB)
)

// RegisterTenantStore opens the named tenant store with the configured
// driver and adds it to the registry. Idempotent: re-registering an
// existing identifier is a no-op, not an error.
func RegisterTenantStore(storeId string) (*gorm.DB, error) {
	storesMu.RLock()
	handle, ok := stores[storeId]
	storesMu.RUnlock()
	if ok {
		return handle, nil
	}

	opened, err := openStore(storeId)
	if err != nil {
		return nil, err
	}

	storesMu.Lock()
	defer storesMu.Unlock()
	if existing, ok := stores[storeId]; ok {
		// Lost the race to a concurrent registration; keep the first handle.
		if sqlDB, derr := opened.DB(); derr == nil {
			sqlDB.Close()
		}
		return existing, nil
	}
	stores[storeId] = opened
	return opened, nil
}

// registerHandle adds an already-open handle to the registry (control-plane
// connect, tests). First registration wins.
func registerHandle(storeId string, handle *gorm.DB) {
	storesMu.Lock()
	defer storesMu.Unlock()
	if storeId == ControlPlaneStore && db == nil {
		db = handle
	}
	if _, ok := stores[storeId]; ok {
		return
	}
	stores[storeId] = handle
}

// RegisterStoreHandle is the exported form of registerHandle.
func RegisterStoreHandle(storeId string, handle *gorm.DB) {
	registerHandle(storeId, handle)
}

// GetStore returns the open handle for a registered store.
func GetStore(storeId string) (*gorm.DB, bool) {
	storesMu.RLock()
	defer storesMu.RUnlock()
	handle, ok := stores[storeId]
	return handle, ok
}

func StoreRegistered(storeId string) bool {
	_, ok := GetStore(storeId)
	return ok
}

// RegisteredStoreIds returns a snapshot of all registered store ids.
func RegisteredStoreIds() []string {
	storesMu.RLock()
	defer storesMu.RUnlock()
	ids := make([]string, 0, len(stores))
	for id := range stores {
		ids = append(ids, id)
	}
	return ids
}

// ResetStoreRegistry closes and drops every registered handle. Closing
// matters for shared-cache in-memory sqlite stores: the database only dies
// with its last connection, so a dropped-but-open handle would leak state
// into the next registration of the same name. Test helper; the server
// never unregisters stores at runtime.
func ResetStoreRegistry() {
	storesMu.Lock()
	defer storesMu.Unlock()
	for _, handle := range stores {
		if sqlDB, err := handle.DB(); err == nil {
			sqlDB.Close()
		}
	}
	stores = make(map[string]*gorm.DB)
	db = nil
}
