package middlewares

import (
	"net/http"
	"strings"

	"bitbucket.org/azpharmsoft/pharma_backend/config"
	"bitbucket.org/azpharmsoft/pharma_backend/models"
	"bitbucket.org/azpharmsoft/pharma_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const RoleMasterAdmin = "master_admin"

// TenantMiddleware binds the caller's company store to the request
// context, so every data access downstream routes to that tenant's
// isolated store.
//
// The binding lives only on the request-scoped context and dies with it;
// nothing mutable is shared between requests, which is what makes the
// "clear on every exit path" rule of the original thread-local design
// structural here. Master admins may impersonate a company via the
// X-Company-Id header; everyone else gets the company from their token.
func TenantMiddleware() gin.HandlerFunc {
	logger := config.GetLogger()

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ctx = utils.SetCorrelationIdInContext(ctx, uuid.NewString())

		companyId := 0
		if claims := CtxValue(ctx); claims != nil {
			companyId = claims.CompanyID

			if claims.Role == RoleMasterAdmin {
				if impersonated := utils.SafeInt(c.GetHeader("X-Company-Id"), 0); impersonated != 0 {
					companyId = impersonated
				}
			}
		}

		if companyId == 0 {
			// No company: control-plane only (bootstrap, master admin).
			c.Request = c.Request.WithContext(ctx)
			c.Next()
			return
		}

		company, err := models.GetCompanyById(ctx, companyId)
		if err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "unknown company"})
			c.Abort()
			return
		}
		if !company.IsActive {
			c.JSON(http.StatusForbidden, gin.H{"error": "company is not active"})
			c.Abort()
			return
		}

		ctx = utils.SetCompanyIdInContext(ctx, company.ID)

		if strings.TrimSpace(company.DbName) != "" {
			if !config.StoreRegistered(company.DbName) {
				config.LogWarn(logger, "tenantMiddleware.go", "TenantMiddleware",
					"company store not registered; request will hit the control-plane store", company.DbName)
			} else {
				ctx = utils.SetStoreIdInContext(ctx, company.DbName)
			}
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
