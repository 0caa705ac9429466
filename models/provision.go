package models

import (
	"context"
	"fmt"
	"strings"

	"bitbucket.org/azpharmsoft/pharma_backend/config"
	"github.com/gosimple/slug"
)

// Tenant store lifecycle. Provisioning is idempotent end to end: every
// step either succeeds or observes "already done" and proceeds, so a
// half-provisioned tenant (registered but not migrated) is recovered by
// simply calling ProvisionTenantStore again.

// StoreIdForSlug derives the store identifier from a company slug.
// Pure and deterministic: the same slug always yields the same id.
func StoreIdForSlug(companySlug string) string {
	normalized := strings.ReplaceAll(slug.Make(companySlug), "-", "_")
	return "tenant_" + normalized
}

// ProvisionTenantStore creates (or re-creates) the isolated store for a
// company and applies the tenant schema to it. The company's DbName is
// assigned on first provisioning and never changed afterward.
func ProvisionTenantStore(ctx context.Context, company *Company) error {
	logger := config.GetLogger()

	if company.Slug == "" {
		company.Slug = slug.Make(company.Name)
	}

	storeId := company.DbName
	if storeId == "" {
		storeId = StoreIdForSlug(company.Slug)
	}

	// Persist the assignment before any physical work so a crash between
	// steps still leaves the tenant re-runnable under the same identifier.
	if company.DbName == "" {
		company.DbName = storeId
		if company.ID != 0 {
			err := config.GetDB().WithContext(ctx).Model(&Company{}).
				Where("id = ?", company.ID).
				Where("db_name = ? OR db_name IS NULL", "").
				Update("db_name", storeId).Error
			if err != nil {
				return fmt.Errorf("assign store id: %w", err)
			}
		}
	}

	if err := config.EnsurePhysicalStore(storeId); err != nil {
		config.LogError(logger, "provision.go", "ProvisionTenantStore", "create physical store", storeId, err)
		return fmt.Errorf("create physical store %s: %w", storeId, err)
	}

	if _, err := config.RegisterTenantStore(storeId); err != nil {
		config.LogError(logger, "provision.go", "ProvisionTenantStore", "register store", storeId, err)
		return fmt.Errorf("register store %s: %w", storeId, err)
	}

	if err := MigrateTenantStore(storeId); err != nil {
		// Registered but not migrated: retryable, never rolled back.
		config.LogError(logger, "provision.go", "ProvisionTenantStore", "apply tenant schema", storeId, err)
		return fmt.Errorf("apply tenant schema to %s: %w", storeId, err)
	}

	return nil
}

// LoadTenantStores registers the store of every provisioned company.
// Called on startup so request routing never has to lazily open stores.
func LoadTenantStores(ctx context.Context) error {
	logger := config.GetLogger()

	var companies []Company
	if err := config.GetDB().WithContext(ctx).Where("db_name <> ''").Find(&companies).Error; err != nil {
		return err
	}

	for _, company := range companies {
		if _, err := config.RegisterTenantStore(company.DbName); err != nil {
			// Keep loading the rest; one broken tenant must not block startup.
			config.LogError(logger, "provision.go", "LoadTenantStores", "register store", company.DbName, err)
		}
	}
	return nil
}

// GetCompanyById reads a company from the control-plane store.
func GetCompanyById(ctx context.Context, id int) (*Company, error) {
	var company Company
	if err := config.GetDB().WithContext(ctx).First(&company, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &company, nil
}
