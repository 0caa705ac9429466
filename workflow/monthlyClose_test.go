package workflow_test

import (
	"errors"
	"testing"

	"bitbucket.org/azpharmsoft/pharma_backend/models"
	"bitbucket.org/azpharmsoft/pharma_backend/utils"
	"bitbucket.org/azpharmsoft/pharma_backend/workflow"
	"github.com/shopspring/decimal"
)

func TestCloseMonthArchivesAndRollsForward(t *testing.T) {
	ctx, db := newTenantStore(t, "tenant_close_basic")

	region := seedRegion(t, db, "Baku", "BAK")
	doctor := seedDoctor(t, db, "Aliyev", &region.ID, models.DegreeI, "100.00")
	drug := seedDrug(t, db, "Cardiomax", "0.50")
	seedPrescription(t, db, doctor, drug, 10, november)
	seedSale(t, db, region.ID, drug, 9, november)

	if err := workflow.CloseMonthlyReport(ctx, region.ID, 2025, 11); err != nil {
		t.Fatalf("close: %v", err)
	}

	var report models.MonthlyDoctorReport
	err := db.Where("doctor_id = ? AND year = ? AND month = ?", doctor.ID, 2025, 11).
		First(&report).Error
	if err != nil {
		t.Fatalf("load archive row: %v", err)
	}
	assertDecimal(t, "archived previous", report.PreviousDebt, "100.00")
	assertDecimal(t, "archived effective", report.EffectiveAmount, "9.00")
	assertDecimal(t, "archived commission", report.CommissionAmount, "4.50")
	assertDecimal(t, "archived final", report.FinalDebt, "104.50")
	if report.DrugsData["Cardiomax"] != 10 {
		t.Fatalf("archived drug quantity = %d, want 10", report.DrugsData["Cardiomax"])
	}
	if report.TotalQuantity != 10 {
		t.Fatalf("archived total quantity = %d, want 10", report.TotalQuantity)
	}

	// Roll-forward: closed final becomes next period's opening balance.
	rolled := reloadDoctor(t, db, doctor.ID)
	assertDecimal(t, "rolled previous", rolled.PreviousDebt, "104.50")
	assertDecimal(t, "rolled effective", rolled.EffectiveAmount, "0")
	assertDecimal(t, "rolled commission", rolled.CommissionAmount, "0")
	assertDecimal(t, "rolled dotation", rolled.Dotation, "0")
	assertDecimal(t, "rolled final", rolled.FinalDebt, "104.50")
	assertBalanceInvariant(t, rolled)
}

func TestCloseMonthRejectsSecondClose(t *testing.T) {
	ctx, db := newTenantStore(t, "tenant_close_once")

	region := seedRegion(t, db, "Baku", "BAK")
	doctor := seedDoctor(t, db, "Aliyev", &region.ID, models.DegreeI, "100.00")
	drug := seedDrug(t, db, "Cardiomax", "0.50")
	seedPrescription(t, db, doctor, drug, 10, november)
	seedSale(t, db, region.ID, drug, 9, november)

	if err := workflow.CloseMonthlyReport(ctx, region.ID, 2025, 11); err != nil {
		t.Fatalf("first close: %v", err)
	}
	afterFirst := reloadDoctor(t, db, doctor.ID)

	err := workflow.CloseMonthlyReport(ctx, region.ID, 2025, 11)
	if !errors.Is(err, utils.ErrMonthAlreadyClosed) {
		t.Fatalf("second close: got %v, want ErrMonthAlreadyClosed", err)
	}

	// The rejection must leave both the archive and the live balance alone.
	var count int64
	err = db.Model(&models.MonthlyDoctorReport{}).
		Where("doctor_id = ? AND year = ? AND month = ?", doctor.ID, 2025, 11).
		Count(&count).Error
	if err != nil {
		t.Fatalf("count archive rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("archive rows = %d, want 1", count)
	}
	afterSecond := reloadDoctor(t, db, doctor.ID)
	assertDecimal(t, "previous unchanged", afterSecond.PreviousDebt, afterFirst.PreviousDebt.String())
	assertDecimal(t, "final unchanged", afterSecond.FinalDebt, afterFirst.FinalDebt.String())
}

func TestCloseMonthRequiresRegion(t *testing.T) {
	ctx, _ := newTenantStore(t, "tenant_close_region")

	err := workflow.CloseMonthlyReport(ctx, 0, 2025, 11)
	if !errors.Is(err, utils.ErrRegionRequired) {
		t.Fatalf("got %v, want ErrRegionRequired", err)
	}
}

func TestCloseMonthRejectsInvalidPeriod(t *testing.T) {
	ctx, db := newTenantStore(t, "tenant_close_period")
	region := seedRegion(t, db, "Baku", "BAK")

	if err := workflow.CloseMonthlyReport(ctx, region.ID, 2025, 13); err == nil {
		t.Fatal("month 13 accepted")
	}
	if err := workflow.CloseMonthlyReport(ctx, region.ID, 1999, 5); err == nil {
		t.Fatal("year 1999 accepted")
	}
}

func TestArchiveRowsAreImmutable(t *testing.T) {
	ctx, db := newTenantStore(t, "tenant_close_immutable")

	region := seedRegion(t, db, "Baku", "BAK")
	seedDoctor(t, db, "Aliyev", &region.ID, models.DegreeI, "10.00")

	if err := workflow.CloseMonthlyReport(ctx, region.ID, 2025, 11); err != nil {
		t.Fatalf("close: %v", err)
	}

	var report models.MonthlyDoctorReport
	if err := db.First(&report).Error; err != nil {
		t.Fatalf("load archive row: %v", err)
	}

	err := db.Model(&report).Update("final_debt", decimal.RequireFromString("999")).Error
	if !errors.Is(err, models.ErrArchiveImmutable) {
		t.Fatalf("update: got %v, want ErrArchiveImmutable", err)
	}
	err = db.Delete(&report).Error
	if !errors.Is(err, models.ErrArchiveImmutable) {
		t.Fatalf("delete: got %v, want ErrArchiveImmutable", err)
	}
}

// Payments recorded inside the closed window land in the archive row as
// informational sums.
func TestCloseMonthArchivesPaymentSums(t *testing.T) {
	ctx, db := newTenantStore(t, "tenant_close_payments")

	region := seedRegion(t, db, "Baku", "BAK")
	doctor := seedDoctor(t, db, "Aliyev", &region.ID, models.DegreeI, "0")

	payments := []models.DoctorPayment{
		{RegionID: region.ID, DoctorID: doctor.ID, PaymentType: models.PaymentTypeAdvance, Amount: decimal.RequireFromString("30.00"), Date: november},
		{RegionID: region.ID, DoctorID: doctor.ID, PaymentType: models.PaymentTypeAdvance, Amount: decimal.RequireFromString("20.00"), Date: november},
		{RegionID: region.ID, DoctorID: doctor.ID, PaymentType: models.PaymentTypeRefund, Amount: decimal.RequireFromString("5.00"), Date: november},
		// Outside the window; must not be counted.
		{RegionID: region.ID, DoctorID: doctor.ID, PaymentType: models.PaymentTypeInvestment, Amount: decimal.RequireFromString("99.00"), Date: november.AddDate(0, 1, 0)},
	}
	for i := range payments {
		if err := db.Create(&payments[i]).Error; err != nil {
			t.Fatalf("seed payment: %v", err)
		}
	}

	if err := workflow.CloseMonthlyReport(ctx, region.ID, 2025, 11); err != nil {
		t.Fatalf("close: %v", err)
	}

	var report models.MonthlyDoctorReport
	if err := db.Where("doctor_id = ?", doctor.ID).First(&report).Error; err != nil {
		t.Fatalf("load archive row: %v", err)
	}
	assertDecimal(t, "advance sum", report.Advance, "50.00")
	assertDecimal(t, "refund sum", report.Refund, "5.00")
	assertDecimal(t, "investment sum", report.Investment, "0")
}

func TestMonthlyReportServesArchiveAfterClose(t *testing.T) {
	ctx, db := newTenantStore(t, "tenant_close_snapshot")

	region := seedRegion(t, db, "Baku", "BAK")
	doctor := seedDoctor(t, db, "Aliyev", &region.ID, models.DegreeI, "100.00")
	drug := seedDrug(t, db, "Cardiomax", "0.50")
	seedPrescription(t, db, doctor, drug, 10, november)
	seedSale(t, db, region.ID, drug, 9, november)

	rows, fromArchive, err := workflow.MonthlyReportRows(ctx, region.ID, 11, 2025)
	if err != nil {
		t.Fatalf("live report: %v", err)
	}
	if fromArchive {
		t.Fatal("report served from archive before close")
	}
	if len(rows) != 1 {
		t.Fatalf("live rows = %d, want 1", len(rows))
	}

	if err := workflow.CloseMonthlyReport(ctx, region.ID, 2025, 11); err != nil {
		t.Fatalf("close: %v", err)
	}

	rows, fromArchive, err = workflow.MonthlyReportRows(ctx, region.ID, 11, 2025)
	if err != nil {
		t.Fatalf("archived report: %v", err)
	}
	if !fromArchive {
		t.Fatal("closed period not served from archive")
	}
	if len(rows) != 1 {
		t.Fatalf("archived rows = %d, want 1", len(rows))
	}
	assertDecimal(t, "archived row final", rows[0].FinalDebt, "104.50")
	if rows[0].Drugs["Cardiomax"] != 10 {
		t.Fatalf("archived row drugs = %v, want Cardiomax:10", rows[0].Drugs)
	}

	// The live state has rolled forward; the next month starts clean.
	rows, fromArchive, err = workflow.MonthlyReportRows(ctx, region.ID, 12, 2025)
	if err != nil {
		t.Fatalf("next-month report: %v", err)
	}
	if fromArchive {
		t.Fatal("open period served from archive")
	}
	assertDecimal(t, "next-month previous", rows[0].PreviousDebt, "104.50")
	assertDecimal(t, "next-month effective", rows[0].EffectiveAmount, "0")
}

func TestMonthlyReportRequiresRegion(t *testing.T) {
	ctx, _ := newTenantStore(t, "tenant_report_region")

	_, _, err := workflow.MonthlyReportRows(ctx, 0, 11, 2025)
	if !errors.Is(err, utils.ErrRegionRequired) {
		t.Fatalf("got %v, want ErrRegionRequired", err)
	}
}
