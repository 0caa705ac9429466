package workflow_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"bitbucket.org/azpharmsoft/pharma_backend/config"
	"bitbucket.org/azpharmsoft/pharma_backend/models"
	"bitbucket.org/azpharmsoft/pharma_backend/utils"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Each test gets its own named in-memory store so nothing leaks between
// cases; the registry is wiped on cleanup.
func newTenantStore(t *testing.T, storeId string) (context.Context, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", storeId)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open store %s: %v", storeId, err)
	}
	config.RegisterStoreHandle(storeId, db)
	t.Cleanup(config.ResetStoreRegistry)

	if err := models.MigrateTenantStore(storeId); err != nil {
		t.Fatalf("migrate store %s: %v", storeId, err)
	}

	ctx := utils.SetStoreIdInContext(context.Background(), storeId)
	return ctx, db
}

func seedRegion(t *testing.T, db *gorm.DB, name, code string) *models.Region {
	t.Helper()
	region := models.Region{Name: name, Code: code}
	if err := db.Create(&region).Error; err != nil {
		t.Fatalf("seed region %s: %v", name, err)
	}
	return &region
}

func seedDoctor(t *testing.T, db *gorm.DB, name string, regionId *int, degree models.DoctorDegree, previousDebt string) *models.Doctor {
	t.Helper()
	doctor := models.Doctor{
		Name:         name,
		RegionID:     regionId,
		Degree:       degree,
		PreviousDebt: decimal.RequireFromString(previousDebt),
		IsActive:     true,
	}
	if err := db.Create(&doctor).Error; err != nil {
		t.Fatalf("seed doctor %s: %v", name, err)
	}
	return &doctor
}

func seedDrug(t *testing.T, db *gorm.DB, name, commission string) *models.Drug {
	t.Helper()
	drug := models.Drug{
		Name:       name,
		Commission: decimal.RequireFromString(commission),
		IsActive:   true,
	}
	if err := db.Create(&drug).Error; err != nil {
		t.Fatalf("seed drug %s: %v", name, err)
	}
	return &drug
}

func seedPrescription(t *testing.T, db *gorm.DB, doctor *models.Doctor, drug *models.Drug, quantity int, date time.Time) *models.Prescription {
	t.Helper()
	prescription := models.Prescription{
		DoctorID: doctor.ID,
		RegionID: doctor.RegionID,
		Date:     date,
		IsActive: true,
	}
	if err := db.Create(&prescription).Error; err != nil {
		t.Fatalf("seed prescription: %v", err)
	}
	item := models.PrescriptionItem{
		PrescriptionID: prescription.ID,
		DrugID:         drug.ID,
		Quantity:       quantity,
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("seed prescription item: %v", err)
	}
	return &prescription
}

func seedSale(t *testing.T, db *gorm.DB, regionId int, drug *models.Drug, quantity int, date time.Time) *models.Sale {
	t.Helper()
	sale := models.Sale{RegionID: regionId, Date: date}
	if err := db.Create(&sale).Error; err != nil {
		t.Fatalf("seed sale: %v", err)
	}
	item := models.SaleItem{SaleID: sale.ID, DrugID: drug.ID, Quantity: quantity}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("seed sale item: %v", err)
	}
	return &sale
}

func reloadDoctor(t *testing.T, db *gorm.DB, id int) *models.Doctor {
	t.Helper()
	var doctor models.Doctor
	if err := db.First(&doctor, id).Error; err != nil {
		t.Fatalf("reload doctor %d: %v", id, err)
	}
	return &doctor
}

func assertDecimal(t *testing.T, label string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Fatalf("%s = %s, want %s", label, got.String(), want)
	}
}

// The balance identity must hold after every recompute and close.
func assertBalanceInvariant(t *testing.T, doctor *models.Doctor) {
	t.Helper()
	want := doctor.PreviousDebt.Add(doctor.EffectiveAmount).Sub(doctor.CommissionAmount)
	if !doctor.FinalDebt.Equal(want) {
		t.Fatalf("doctor %d balance broken: final=%s prior=%s effective=%s commission=%s",
			doctor.ID, doctor.FinalDebt, doctor.PreviousDebt, doctor.EffectiveAmount, doctor.CommissionAmount)
	}
}
