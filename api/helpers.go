package api

import (
	"errors"
	"net/http"
	"time"

	"bitbucket.org/azpharmsoft/pharma_backend/config"
	"bitbucket.org/azpharmsoft/pharma_backend/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

// tenantDB resolves the store for a tenant-scoped entity and writes the
// HTTP error itself when resolution fails.
func tenantDB(c *gin.Context, model any) (*gorm.DB, bool) {
	db, err := config.StoreFor(c.Request.Context(), model)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant store unavailable"})
		return nil, false
	}
	return db, true
}

func abortWithError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
	case errors.Is(err, utils.ErrMonthAlreadyClosed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrRegionRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, config.ErrCrossStoreRelation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		config.LogError(config.GetLogger(), "api", c.FullPath(), "request failed", nil, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func atoiParam(c *gin.Context, name string) int {
	return utils.SafeInt(c.Param(name), 0)
}

func atoiQuery(c *gin.Context, name string) int {
	return utils.SafeInt(c.Query(name), 0)
}

func requireMasterAdmin(c *gin.Context) bool {
	role, _ := utils.GetUserRoleFromContext(c.Request.Context())
	if role != "master_admin" {
		c.JSON(http.StatusForbidden, gin.H{"error": "master admin only"})
		return false
	}
	return true
}
