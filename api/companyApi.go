package api

import (
	"net/http"

	"bitbucket.org/azpharmsoft/pharma_backend/config"
	"bitbucket.org/azpharmsoft/pharma_backend/models"
	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
)

// Company onboarding and store provisioning. Master admin only; the rest
// of the company/subscription lifecycle (plans, billing) lives in another
// service.

type createCompanyRequest struct {
	Name  string `json:"name" binding:"required,max=200"`
	Email string `json:"email" binding:"required,email"`
	Phone string `json:"phone" binding:"max=20"`
}

func createCompany(c *gin.Context) {
	if !requireMasterAdmin(c) {
		return
	}

	var req createCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	company := models.Company{
		Name:     req.Name,
		Slug:     slug.Make(req.Name),
		Email:    req.Email,
		Phone:    req.Phone,
		IsActive: true,
	}
	if err := config.GetDB().WithContext(ctx).Create(&company).Error; err != nil {
		abortWithError(c, err)
		return
	}

	// Provisioning failure leaves the company re-runnable via the
	// provision endpoint; the row itself is never rolled back.
	if err := models.ProvisionTenantStore(ctx, &company); err != nil {
		c.JSON(http.StatusAccepted, gin.H{
			"company": company,
			"warning": "store provisioning incomplete, retry via POST /admin/companies/:id/provision",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"company": company})
}

func provisionCompany(c *gin.Context) {
	if !requireMasterAdmin(c) {
		return
	}

	ctx := c.Request.Context()
	company, err := models.GetCompanyById(ctx, atoiParam(c, "id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	if err := models.ProvisionTenantStore(ctx, company); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"company": company})
}

func listCompanies(c *gin.Context) {
	if !requireMasterAdmin(c) {
		return
	}

	var companies []models.Company
	if err := config.GetDB().WithContext(c.Request.Context()).Order("name").Find(&companies).Error; err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"companies": companies})
}
