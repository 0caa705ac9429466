package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"bitbucket.org/azpharmsoft/pharma_backend/config"
	"bitbucket.org/azpharmsoft/pharma_backend/models"
	"bitbucket.org/azpharmsoft/pharma_backend/utils"
	"bitbucket.org/azpharmsoft/pharma_backend/workflow"
	"github.com/shopspring/decimal"
)

// Seeds a tenant store with a small reference data set: two regions, a few
// doctors across the degree ladder, three drugs, and one month of
// prescriptions and sales, then runs a recompute so the balances are live.
func main() {
	companyID := flag.Int("company-id", 0, "Company whose store to seed")
	flag.Parse()

	if *companyID == 0 {
		fmt.Fprintln(os.Stderr, "usage: seed-demo -company-id <id>")
		os.Exit(1)
	}

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}

	company, err := models.GetCompanyById(ctx, *companyID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load company %d: %v\n", *companyID, err)
		os.Exit(1)
	}
	if err := models.ProvisionTenantStore(ctx, company); err != nil {
		fmt.Fprintf(os.Stderr, "provisioning failed: %v\n", err)
		os.Exit(1)
	}
	ctx = utils.SetStoreIdInContext(ctx, company.DbName)

	db, err := config.StoreFor(ctx, &models.Region{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "store lookup failed: %v\n", err)
		os.Exit(1)
	}

	baku := models.Region{Name: "Baku", Code: "BAK"}
	ganja := models.Region{Name: "Ganja", Code: "GNJ"}
	for _, region := range []*models.Region{&baku, &ganja} {
		if err := db.WithContext(ctx).Where("code = ?", region.Code).FirstOrCreate(region).Error; err != nil {
			fmt.Fprintf(os.Stderr, "region seed failed: %v\n", err)
			os.Exit(1)
		}
	}

	drugs := []*models.Drug{
		{Name: "Cardiomax", Commission: decimal.RequireFromString("2.50"), IsActive: true},
		{Name: "Neurovit", Commission: decimal.RequireFromString("1.20"), IsActive: true},
		{Name: "Gastrofen", Commission: decimal.RequireFromString("0.80"), IsActive: true},
	}
	for _, drug := range drugs {
		if err := db.WithContext(ctx).Where("name = ?", drug.Name).FirstOrCreate(drug).Error; err != nil {
			fmt.Fprintf(os.Stderr, "drug seed failed: %v\n", err)
			os.Exit(1)
		}
	}

	doctors := []*models.Doctor{
		{Name: "Aliyev Rashad", RegionID: &baku.ID, Degree: models.DegreeVIP, IsActive: true},
		{Name: "Mammadova Leyla", RegionID: &baku.ID, Degree: models.DegreeI, IsActive: true},
		{Name: "Huseynov Tural", RegionID: &baku.ID, Degree: models.DegreeII, IsActive: true},
		{Name: "Ismayilova Nigar", RegionID: &ganja.ID, Degree: models.DegreeIII, IsActive: true},
	}
	for _, doctor := range doctors {
		if err := db.WithContext(ctx).Where("name = ?", doctor.Name).FirstOrCreate(doctor).Error; err != nil {
			fmt.Fprintf(os.Stderr, "doctor seed failed: %v\n", err)
			os.Exit(1)
		}
	}

	now := time.Now()
	date := time.Date(now.Year(), now.Month(), 10, 0, 0, 0, 0, time.UTC)
	for i, doctor := range doctors {
		prescription := models.Prescription{
			DoctorID: doctor.ID,
			RegionID: doctor.RegionID,
			Date:     date,
			IsActive: true,
		}
		if err := db.WithContext(ctx).Create(&prescription).Error; err != nil {
			fmt.Fprintf(os.Stderr, "prescription seed failed: %v\n", err)
			os.Exit(1)
		}
		item := models.PrescriptionItem{
			PrescriptionID: prescription.ID,
			DrugID:         drugs[i%len(drugs)].ID,
			Quantity:       20 + 10*i,
		}
		if err := db.WithContext(ctx).Create(&item).Error; err != nil {
			fmt.Fprintf(os.Stderr, "prescription item seed failed: %v\n", err)
			os.Exit(1)
		}
	}

	for _, region := range []*models.Region{&baku, &ganja} {
		sale := models.Sale{RegionID: region.ID, Date: date}
		if err := db.WithContext(ctx).Create(&sale).Error; err != nil {
			fmt.Fprintf(os.Stderr, "sale seed failed: %v\n", err)
			os.Exit(1)
		}
		for _, drug := range drugs {
			item := models.SaleItem{SaleID: sale.ID, DrugID: drug.ID, Quantity: 25}
			if err := db.WithContext(ctx).Create(&item).Error; err != nil {
				fmt.Fprintf(os.Stderr, "sale item seed failed: %v\n", err)
				os.Exit(1)
			}
		}
	}

	err = workflow.RecalculateDoctorFinancials(ctx, nil, []int{baku.ID, ganja.ID}, int(date.Month()), date.Year())
	if err != nil {
		fmt.Fprintf(os.Stderr, "recompute failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("seeded store %s\n", company.DbName)
}
