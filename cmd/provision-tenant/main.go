package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"bitbucket.org/azpharmsoft/pharma_backend/config"
	"bitbucket.org/azpharmsoft/pharma_backend/models"
)

func main() {
	companyID := flag.Int("company-id", 0, "Company id to provision. Re-running is safe.")
	flag.Parse()

	if *companyID == 0 {
		fmt.Fprintln(os.Stderr, "usage: provision-tenant -company-id <id>")
		os.Exit(1)
	}

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}
	if err := models.MigrateControlPlane(config.ControlPlaneStore); err != nil {
		fmt.Fprintf(os.Stderr, "control-plane migration failed: %v\n", err)
		os.Exit(1)
	}

	company, err := models.GetCompanyById(ctx, *companyID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load company %d: %v\n", *companyID, err)
		os.Exit(1)
	}

	if err := models.ProvisionTenantStore(ctx, company); err != nil {
		fmt.Fprintf(os.Stderr, "provisioning failed for %q: %v\n", company.Slug, err)
		os.Exit(1)
	}
	fmt.Printf("provisioned company %d (%s) -> store %s\n", company.ID, company.Slug, company.DbName)
}
