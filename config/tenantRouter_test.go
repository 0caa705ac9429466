package config_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"bitbucket.org/azpharmsoft/pharma_backend/config"
	"bitbucket.org/azpharmsoft/pharma_backend/models"
	"bitbucket.org/azpharmsoft/pharma_backend/utils"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func openMemoryStore(t *testing.T, storeId string) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", storeId)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open %s: %v", storeId, err)
	}
	config.RegisterStoreHandle(storeId, db)
	return db
}

func TestStoreIdForRoutesByEntityType(t *testing.T) {
	ctx := utils.SetStoreIdInContext(context.Background(), "tenant_route")

	if got := config.StoreIdFor(ctx, &models.Company{}); got != config.ControlPlaneStore {
		t.Fatalf("Company routed to %q, want control plane", got)
	}
	if got := config.StoreIdFor(ctx, &models.Doctor{}); got != "tenant_route" {
		t.Fatalf("Doctor routed to %q, want tenant_route", got)
	}
	// No binding: everything goes to the control plane.
	if got := config.StoreIdFor(context.Background(), &models.Doctor{}); got != config.ControlPlaneStore {
		t.Fatalf("unbound Doctor routed to %q, want control plane", got)
	}
}

func TestStoreForResolvesRegisteredHandles(t *testing.T) {
	t.Cleanup(config.ResetStoreRegistry)
	control := openMemoryStore(t, config.ControlPlaneStore)
	tenant := openMemoryStore(t, "tenant_resolve")

	ctx := utils.SetStoreIdInContext(context.Background(), "tenant_resolve")

	db, err := config.StoreFor(ctx, &models.Doctor{})
	if err != nil {
		t.Fatalf("tenant resolve: %v", err)
	}
	if db != tenant {
		t.Fatal("tenant entity resolved to the wrong handle")
	}

	db, err = config.StoreFor(ctx, &models.Company{})
	if err != nil {
		t.Fatalf("control-plane resolve: %v", err)
	}
	if db != control {
		t.Fatal("control-plane entity resolved to the wrong handle")
	}

	// Unbound tenant access falls back to the control plane (with a warn).
	db, err = config.StoreFor(context.Background(), &models.Doctor{})
	if err != nil {
		t.Fatalf("fallback resolve: %v", err)
	}
	if db != control {
		t.Fatal("unbound tenant access did not fall back to the control plane")
	}
}

func TestStoreForRejectsUnregisteredStore(t *testing.T) {
	t.Cleanup(config.ResetStoreRegistry)
	openMemoryStore(t, config.ControlPlaneStore)

	ctx := utils.SetStoreIdInContext(context.Background(), "tenant_missing")
	_, err := config.StoreFor(ctx, &models.Doctor{})
	if !errors.Is(err, config.ErrStoreNotRegistered) {
		t.Fatalf("got %v, want ErrStoreNotRegistered", err)
	}
}

func TestEnsureSameStoreRejectsCrossStoreRelations(t *testing.T) {
	ctx := utils.SetStoreIdInContext(context.Background(), "tenant_rel")

	if err := config.EnsureSameStore(ctx, &models.Doctor{}, &models.Prescription{}); err != nil {
		t.Fatalf("same-store relation rejected: %v", err)
	}
	err := config.EnsureSameStore(ctx, &models.Doctor{}, &models.Company{})
	if !errors.Is(err, config.ErrCrossStoreRelation) {
		t.Fatalf("got %v, want ErrCrossStoreRelation", err)
	}
}

func TestMigrationGates(t *testing.T) {
	t.Cleanup(config.ResetStoreRegistry)
	openMemoryStore(t, config.ControlPlaneStore)
	openMemoryStore(t, "tenant_migrate")

	if err := models.MigrateControlPlane("tenant_migrate"); err == nil {
		t.Fatal("control-plane schema applied to a tenant store")
	}
	if err := models.MigrateTenantStore(config.ControlPlaneStore); err == nil {
		t.Fatal("tenant schema applied to the control-plane store")
	}
	if err := models.MigrateControlPlane(config.ControlPlaneStore); err != nil {
		t.Fatalf("control-plane migration: %v", err)
	}
	if err := models.MigrateTenantStore("tenant_migrate"); err != nil {
		t.Fatalf("tenant migration: %v", err)
	}
}

// Two tenants with colliding primary keys must stay invisible to each
// other; the binding decides everything.
func TestTenantIsolation(t *testing.T) {
	t.Cleanup(config.ResetStoreRegistry)
	openMemoryStore(t, "tenant_iso_a")
	openMemoryStore(t, "tenant_iso_b")
	if err := models.MigrateTenantStore("tenant_iso_a"); err != nil {
		t.Fatalf("migrate a: %v", err)
	}
	if err := models.MigrateTenantStore("tenant_iso_b"); err != nil {
		t.Fatalf("migrate b: %v", err)
	}

	ctxA := utils.SetStoreIdInContext(context.Background(), "tenant_iso_a")
	ctxB := utils.SetStoreIdInContext(context.Background(), "tenant_iso_b")

	dbA, err := config.StoreFor(ctxA, &models.Doctor{})
	if err != nil {
		t.Fatalf("resolve a: %v", err)
	}
	dbB, err := config.StoreFor(ctxB, &models.Doctor{})
	if err != nil {
		t.Fatalf("resolve b: %v", err)
	}

	doctorA := models.Doctor{ID: 1, Name: "Tenant A Doctor", IsActive: true}
	if err := dbA.Create(&doctorA).Error; err != nil {
		t.Fatalf("create in a: %v", err)
	}
	doctorB := models.Doctor{ID: 1, Name: "Tenant B Doctor", IsActive: true}
	if err := dbB.Create(&doctorB).Error; err != nil {
		t.Fatalf("create in b: %v", err)
	}

	var fromA, fromB models.Doctor
	if err := dbA.First(&fromA, 1).Error; err != nil {
		t.Fatalf("read a: %v", err)
	}
	if err := dbB.First(&fromB, 1).Error; err != nil {
		t.Fatalf("read b: %v", err)
	}
	if fromA.Name != "Tenant A Doctor" || fromB.Name != "Tenant B Doctor" {
		t.Fatalf("tenant rows crossed: a=%q b=%q", fromA.Name, fromB.Name)
	}

	var countB int64
	if err := dbB.Model(&models.Doctor{}).Count(&countB).Error; err != nil {
		t.Fatalf("count b: %v", err)
	}
	if countB != 1 {
		t.Fatalf("tenant b sees %d doctors, want 1", countB)
	}
}

// Re-registering the same shared-cache name after a reset must start from
// an empty database; fixed-id seed data must not collide across resets.
func TestResetStoreRegistryClosesHandles(t *testing.T) {
	t.Cleanup(config.ResetStoreRegistry)

	seed := func() {
		t.Helper()
		openMemoryStore(t, "tenant_reset")
		if err := models.MigrateTenantStore("tenant_reset"); err != nil {
			t.Fatalf("migrate: %v", err)
		}
		db, _ := config.GetStore("tenant_reset")
		region := models.Region{ID: 1, Name: "Baku", Code: "BAK"}
		if err := db.Create(&region).Error; err != nil {
			t.Fatalf("seed region: %v", err)
		}
	}

	seed()
	config.ResetStoreRegistry()
	seed()
}

// RegisterTenantStore opens the physical store itself and hands the
// caller the handle; re-registration returns the same handle.
func TestRegisterTenantStoreOpensStore(t *testing.T) {
	t.Setenv("TENANT_DB_DIR", t.TempDir())
	t.Cleanup(config.ResetStoreRegistry)

	first, err := config.RegisterTenantStore("tenant_reg_open")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if first == nil {
		t.Fatal("register returned a nil handle")
	}
	again, err := config.RegisterTenantStore("tenant_reg_open")
	if err != nil {
		t.Fatalf("re-register: %v", err)
	}
	if again != first {
		t.Fatal("re-registration replaced the handle")
	}
}

func TestRegisterStoreHandleFirstWins(t *testing.T) {
	t.Cleanup(config.ResetStoreRegistry)
	first := openMemoryStore(t, "tenant_first")

	second, err := gorm.Open(sqlite.Open("file:tenant_second?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open second: %v", err)
	}
	config.RegisterStoreHandle("tenant_first", second)

	got, ok := config.GetStore("tenant_first")
	if !ok || got != first {
		t.Fatal("re-registration replaced the original handle")
	}
}
