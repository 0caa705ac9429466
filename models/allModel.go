package models

import (
	"fmt"

	"bitbucket.org/azpharmsoft/pharma_backend/config"
)

// ControlPlaneModels live only in the shared control-plane store.
func ControlPlaneModels() []any {
	return []any{
		&Company{},
	}
}

// TenantModels is the fixed per-tenant table set. Every tenant store gets
// exactly this schema and nothing else.
func TenantModels() []any {
	return []any{
		&Region{},
		&City{},
		&Doctor{},
		&DoctorPayment{},
		&Drug{},
		&Prescription{},
		&PrescriptionItem{},
		&Sale{},
		&SaleItem{},
		&MonthlyDoctorReport{},
	}
}

// MigrateControlPlane applies the control-plane schema. Gate: control-plane
// entity types may only ever be migrated onto the control-plane store.
func MigrateControlPlane(storeId string) error {
	if !config.IsControlPlaneStore(storeId) {
		return fmt.Errorf("control-plane schema may not be applied to store %q", storeId)
	}
	handle, ok := config.GetStore(storeId)
	if !ok {
		return fmt.Errorf("store %q is not registered", storeId)
	}
	return handle.AutoMigrate(ControlPlaneModels()...)
}

// MigrateTenantStore applies the tenant schema to one tenant store. Gate:
// never the control-plane store, so the two schemas cannot drift into each
// other.
func MigrateTenantStore(storeId string) error {
	if config.IsControlPlaneStore(storeId) {
		return fmt.Errorf("tenant schema may not be applied to the control-plane store")
	}
	handle, ok := config.GetStore(storeId)
	if !ok {
		return fmt.Errorf("store %q is not registered", storeId)
	}
	return handle.AutoMigrate(TenantModels()...)
}
