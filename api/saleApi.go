package api

import (
	"net/http"

	"bitbucket.org/azpharmsoft/pharma_backend/models"
	"bitbucket.org/azpharmsoft/pharma_backend/utils"
	"bitbucket.org/azpharmsoft/pharma_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type saleItemRequest struct {
	DrugID    int             `json:"drug_id" binding:"required"`
	Quantity  int             `json:"quantity" binding:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type saleRequest struct {
	RegionID int               `json:"region_id" binding:"required"`
	Date     string            `json:"date" binding:"required"`
	Items    []saleItemRequest `json:"items" binding:"required,min=1,dive"`
}

func createSale(c *gin.Context) {
	db, ok := tenantDB(c, &models.Sale{})
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var req saleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}

	var region models.Region
	if err := db.WithContext(ctx).First(&region, req.RegionID).Error; err != nil {
		abortWithError(c, err)
		return
	}

	sale := models.Sale{RegionID: region.ID, Date: date}
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&sale).Error; err != nil {
			return err
		}
		return createSaleItems(tx, sale.ID, req.Items)
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	if err := workflow.SaleChanged(ctx, &sale); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"sale": sale})
}

func createSaleItems(tx *gorm.DB, saleId int, items []saleItemRequest) error {
	for _, item := range items {
		var drug models.Drug
		if err := tx.First(&drug, item.DrugID).Error; err != nil {
			return err
		}
		record := models.SaleItem{
			SaleID:    saleId,
			DrugID:    drug.ID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
	}
	return nil
}

func listSales(c *gin.Context) {
	db, ok := tenantDB(c, &models.Sale{})
	if !ok {
		return
	}

	query := db.WithContext(c.Request.Context()).Preload("Region")
	if regionId := utils.SafeInt(c.Query("region_id"), 0); regionId != 0 {
		query = query.Where("region_id = ?", regionId)
	}

	var sales []models.Sale
	if err := query.Order("date desc").Find(&sales).Error; err != nil {
		abortWithError(c, err)
		return
	}

	month := utils.SafeInt(c.Query("month"), 0)
	year := utils.SafeInt(c.Query("year"), 0)
	if month != 0 || year != 0 {
		filtered := sales[:0]
		for _, sale := range sales {
			if utils.MatchesPeriod(sale.Date, month, year) {
				filtered = append(filtered, sale)
			}
		}
		sales = filtered
	}
	c.JSON(http.StatusOK, gin.H{"sales": sales})
}

func getSale(c *gin.Context) {
	db, ok := tenantDB(c, &models.Sale{})
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var sale models.Sale
	err := db.WithContext(ctx).Preload("Region").First(&sale, atoiParam(c, "id")).Error
	if err != nil {
		abortWithError(c, err)
		return
	}

	var items []models.SaleItem
	err = db.WithContext(ctx).Preload("Drug").
		Where("sale_id = ?", sale.ID).Find(&items).Error
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sale": sale, "items": items})
}

// updateSale replaces the header and the full item set. Both the old and
// the new (region, month) scopes are recomputed; the ratio change reaches
// every doctor in each affected region.
func updateSale(c *gin.Context) {
	db, ok := tenantDB(c, &models.Sale{})
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var sale models.Sale
	if err := db.WithContext(ctx).First(&sale, atoiParam(c, "id")).Error; err != nil {
		abortWithError(c, err)
		return
	}
	before := sale

	var req saleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}

	sale.RegionID = req.RegionID
	sale.Date = date

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&sale).Select("RegionID", "Date").Updates(&sale).Error; err != nil {
			return err
		}
		if err := tx.Where("sale_id = ?", sale.ID).Delete(&models.SaleItem{}).Error; err != nil {
			return err
		}
		return createSaleItems(tx, sale.ID, req.Items)
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	if err := workflow.SaleChanged(ctx, &before); err != nil {
		abortWithError(c, err)
		return
	}
	if err := workflow.SaleChanged(ctx, &sale); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sale": sale})
}

func deleteSale(c *gin.Context) {
	db, ok := tenantDB(c, &models.Sale{})
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var sale models.Sale
	if err := db.WithContext(ctx).First(&sale, atoiParam(c, "id")).Error; err != nil {
		abortWithError(c, err)
		return
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("sale_id = ?", sale.ID).Delete(&models.SaleItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&sale).Error
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	if err := workflow.SaleChanged(ctx, &sale); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
