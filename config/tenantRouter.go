package config

import (
	"context"
	"errors"
	"fmt"

	"bitbucket.org/azpharmsoft/pharma_backend/appctx"
	"gorm.io/gorm"
)

// Data router: decides which physical store a read/write for a given
// entity type must hit, based on the store id bound to the request
// context. Port of the original TenantDatabaseRouter (see DESIGN.md).

var (
	ErrCrossStoreRelation = errors.New("related entities resolve to different physical stores")
	ErrStoreNotRegistered = errors.New("tenant store is not registered")
)

// controlPlaneEntity marks entity types that always live in the shared
// control-plane store regardless of the bound tenant. models.Company
// implements it; tenant entities must not.
type controlPlaneEntity interface {
	ControlPlaneEntity()
}

// IsControlPlaneModel reports whether the entity type always routes to
// the control-plane store.
func IsControlPlaneModel(model any) bool {
	_, ok := model.(controlPlaneEntity)
	return ok
}

// ActiveStoreId returns the store id bound to the context, or
// ControlPlaneStore when nothing is bound.
func ActiveStoreId(ctx context.Context) string {
	if ctx == nil {
		return ControlPlaneStore
	}
	if storeId, ok := appctx.GetString(ctx, appctx.ContextKeyStoreId); ok && storeId != "" {
		return storeId
	}
	return ControlPlaneStore
}

// StoreIdFor is the pure routing decision: which store id an operation on
// this entity type must target under the given context.
func StoreIdFor(ctx context.Context, model any) string {
	if IsControlPlaneModel(model) {
		return ControlPlaneStore
	}
	return ActiveStoreId(ctx)
}

// StoreFor resolves the physical handle for an operation on the given
// entity type. A tenant-scoped access with no binding falls back to the
// control-plane store: that fallback is load-bearing for bootstrap and
// operator tooling, but in request handling it usually means the caller
// forgot the tenant middleware, so it is logged as a warning.
func StoreFor(ctx context.Context, model any) (*gorm.DB, error) {
	storeId := StoreIdFor(ctx, model)

	if storeId == ControlPlaneStore && !IsControlPlaneModel(model) {
		LogWarn(GetLogger(), "tenantRouter.go", "StoreFor",
			"tenant-scoped entity accessed without a store binding; using control-plane store",
			fmt.Sprintf("%T", model))
	}

	handle, ok := GetStore(storeId)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStoreNotRegistered, storeId)
	}
	return handle, nil
}

// EnsureSameStore rejects relations between entities that resolve to
// different physical stores. Cross-store foreign keys cannot be enforced
// by any backend and must never be written.
func EnsureSameStore(ctx context.Context, entities ...any) error {
	if len(entities) < 2 {
		return nil
	}
	first := StoreIdFor(ctx, entities[0])
	for _, entity := range entities[1:] {
		if StoreIdFor(ctx, entity) != first {
			return fmt.Errorf("%w: %T vs %T", ErrCrossStoreRelation, entities[0], entity)
		}
	}
	return nil
}

// IsControlPlaneStore reports whether the given store id is the shared
// control-plane store. Used by the migration gate.
func IsControlPlaneStore(storeId string) bool {
	return storeId == ControlPlaneStore
}
