package api

import (
	"net/http"

	"bitbucket.org/azpharmsoft/pharma_backend/models"
	"bitbucket.org/azpharmsoft/pharma_backend/utils"
	"bitbucket.org/azpharmsoft/pharma_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type drugRequest struct {
	Name       string          `json:"name" binding:"required,max=200"`
	Commission decimal.Decimal `json:"commission"`
}

func createDrug(c *gin.Context) {
	db, ok := tenantDB(c, &models.Drug{})
	if !ok {
		return
	}

	var req drugRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	drug := models.Drug{Name: req.Name, Commission: req.Commission, IsActive: true}
	if err := db.WithContext(c.Request.Context()).Create(&drug).Error; err != nil {
		abortWithError(c, err)
		return
	}
	workflow.InvalidateDrugCommissionCache(c.Request.Context())
	c.JSON(http.StatusCreated, gin.H{"drug": drug})
}

func listDrugs(c *gin.Context) {
	db, ok := tenantDB(c, &models.Drug{})
	if !ok {
		return
	}

	var drugs []models.Drug
	err := db.WithContext(c.Request.Context()).
		Where("is_active = ?", true).Order("name").Find(&drugs).Error
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"drugs": drugs})
}

// updateDrug changes name or commission. A commission change alters every
// doctor's commission total from the next recompute onward; past closed
// months are untouched.
func updateDrug(c *gin.Context) {
	db, ok := tenantDB(c, &models.Drug{})
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var drug models.Drug
	if err := db.WithContext(ctx).First(&drug, atoiParam(c, "id")).Error; err != nil {
		abortWithError(c, err)
		return
	}

	var req drugRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	drug.Name = req.Name
	drug.Commission = req.Commission
	err := db.WithContext(ctx).Model(&drug).
		Select("Name", "Commission").Updates(&drug).Error
	if err != nil {
		abortWithError(c, err)
		return
	}
	workflow.InvalidateDrugCommissionCache(ctx)
	c.JSON(http.StatusOK, gin.H{"drug": drug})
}

func deleteDrug(c *gin.Context) {
	db, ok := tenantDB(c, &models.Drug{})
	if !ok {
		return
	}

	result := db.WithContext(c.Request.Context()).Model(&models.Drug{}).
		Where("id = ?", atoiParam(c, "id")).
		Update("is_active", false)
	if result.Error != nil {
		abortWithError(c, result.Error)
		return
	}
	if result.RowsAffected == 0 {
		abortWithError(c, utils.ErrorRecordNotFound)
		return
	}
	workflow.InvalidateDrugCommissionCache(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"status": "deactivated"})
}
