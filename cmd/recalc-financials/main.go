package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"bitbucket.org/azpharmsoft/pharma_backend/config"
	"bitbucket.org/azpharmsoft/pharma_backend/models"
	"bitbucket.org/azpharmsoft/pharma_backend/utils"
	"bitbucket.org/azpharmsoft/pharma_backend/workflow"
)

// Full recompute for one tenant store: every region, optionally restricted
// to one month. Used after data fixes or commission changes.
func main() {
	companyID := flag.Int("company-id", 0, "Company whose store to recompute")
	regionID := flag.Int("region-id", 0, "Optional: recompute only this region")
	month := flag.Int("month", 0, "Optional: month filter (1-12, 0 = all)")
	year := flag.Int("year", 0, "Optional: year filter (0 = all)")
	flag.Parse()

	if *companyID == 0 {
		fmt.Fprintln(os.Stderr, "usage: recalc-financials -company-id <id> [-region-id N] [-month M -year Y]")
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
	if company.DbName == "" {
		fmt.Fprintf(os.Stderr, "company %d has no provisioned store\n", *companyID)
		os.Exit(1)
	}
	if _, err := config.RegisterTenantStore(company.DbName); err != nil {
		fmt.Fprintf(os.Stderr, "failed to open store %s: %v\n", company.DbName, err)
		os.Exit(1)
	}
	ctx = utils.SetStoreIdInContext(ctx, company.DbName)

	regionIds := []int{*regionID}
	if *regionID == 0 {
		db, err := config.StoreFor(ctx, &models.Region{})
		if err != nil {
			fmt.Fprintf(os.Stderr, "store lookup failed: %v\n", err)
			os.Exit(1)
		}
		var regions []models.Region
		if err := db.WithContext(ctx).Find(&regions).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to list regions: %v\n", err)
			os.Exit(1)
		}
		regionIds = regionIds[:0]
		for _, region := range regions {
			regionIds = append(regionIds, region.ID)
		}
	}

	for _, id := range regionIds {
		if err := workflow.RecalculateDoctorFinancials(ctx, nil, []int{id}, *month, *year); err != nil {
			fmt.Fprintf(os.Stderr, "recompute failed for region %d: %v\n", id, err)
			os.Exit(1)
		}
		fmt.Printf("recomputed region %d\n", id)
	}
}
