package api

import (
	"net/http"

	"bitbucket.org/azpharmsoft/pharma_backend/models"
	"github.com/gin-gonic/gin"
)

type createRegionRequest struct {
	Name string `json:"name" binding:"required,max=100"`
	Code string `json:"code" binding:"required,max=10"`
}

func createRegion(c *gin.Context) {
	db, ok := tenantDB(c, &models.Region{})
	if !ok {
		return
	}

	var req createRegionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	region := models.Region{Name: req.Name, Code: req.Code}
	if err := db.WithContext(c.Request.Context()).Create(&region).Error; err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"region": region})
}

func listRegions(c *gin.Context) {
	db, ok := tenantDB(c, &models.Region{})
	if !ok {
		return
	}

	var regions []models.Region
	if err := db.WithContext(c.Request.Context()).Order("name").Find(&regions).Error; err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"regions": regions})
}

type createCityRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	RegionID int    `json:"region_id" binding:"required"`
}

func createCity(c *gin.Context) {
	db, ok := tenantDB(c, &models.City{})
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var req createCityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var region models.Region
	if err := db.WithContext(ctx).First(&region, req.RegionID).Error; err != nil {
		abortWithError(c, err)
		return
	}

	city := models.City{Name: req.Name, RegionID: region.ID}
	if err := db.WithContext(ctx).Create(&city).Error; err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"city": city})
}

func listCities(c *gin.Context) {
	db, ok := tenantDB(c, &models.City{})
	if !ok {
		return
	}

	query := db.WithContext(c.Request.Context()).Preload("Region")
	if regionId := atoiQuery(c, "region_id"); regionId != 0 {
		query = query.Where("region_id = ?", regionId)
	}

	var cities []models.City
	if err := query.Order("name").Find(&cities).Error; err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cities": cities})
}
