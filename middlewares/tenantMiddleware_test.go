package middlewares_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bitbucket.org/azpharmsoft/pharma_backend/config"
	"bitbucket.org/azpharmsoft/pharma_backend/middlewares"
	"bitbucket.org/azpharmsoft/pharma_backend/models"
	"bitbucket.org/azpharmsoft/pharma_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupTenantRig(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Cleanup(config.ResetStoreRegistry)

	open := func(storeId string) *gorm.DB {
		db, err := gorm.Open(sqlite.Open("file:"+storeId+"?mode=memory&cache=shared"), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err != nil {
			t.Fatalf("open %s: %v", storeId, err)
		}
		config.RegisterStoreHandle(storeId, db)
		return db
	}

	control := open(config.ControlPlaneStore)
	if err := models.MigrateControlPlane(config.ControlPlaneStore); err != nil {
		t.Fatalf("migrate control plane: %v", err)
	}
	open("tenant_mw_acme")

	companies := []models.Company{
		{ID: 1, Name: "Acme", Slug: "acme", Email: "acme@example.com", DbName: "tenant_mw_acme", IsActive: true},
		{ID: 2, Name: "Gone", Slug: "gone", Email: "gone@example.com", DbName: "tenant_mw_gone", IsActive: false},
	}
	for i := range companies {
		if err := control.Create(&companies[i]).Error; err != nil {
			t.Fatalf("seed company: %v", err)
		}
	}

	r := gin.New()
	r.Use(middlewares.AuthMiddleware())
	r.Use(middlewares.TenantMiddleware())
	r.GET("/probe", func(c *gin.Context) {
		storeId, _ := utils.GetStoreIdFromContext(c.Request.Context())
		companyId, _ := utils.GetCompanyIdFromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"store_id": storeId, "company_id": companyId})
	})
	return r
}

func probe(t *testing.T, r *gin.Engine, token, impersonate string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if impersonate != "" {
		req.Header.Set("X-Company-Id", impersonate)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTenantMiddlewareBindsCompanyStore(t *testing.T) {
	r := setupTenantRig(t)

	token, err := utils.JwtGenerate(7, "user", 1)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	w := probe(t, r, token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	if want := `"store_id":"tenant_mw_acme"`; !contains(body, want) {
		t.Fatalf("body %s missing %s", body, want)
	}
	if want := `"company_id":1`; !contains(body, want) {
		t.Fatalf("body %s missing %s", body, want)
	}
}

func TestTenantMiddlewareRejectsInactiveCompany(t *testing.T) {
	r := setupTenantRig(t)

	token, err := utils.JwtGenerate(7, "user", 2)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if w := probe(t, r, token, ""); w.Code != http.StatusForbidden {
		t.Fatalf("inactive company: status = %d, want 403", w.Code)
	}
}

func TestTenantMiddlewareRejectsUnknownCompany(t *testing.T) {
	r := setupTenantRig(t)

	token, err := utils.JwtGenerate(7, "user", 99)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if w := probe(t, r, token, ""); w.Code != http.StatusForbidden {
		t.Fatalf("unknown company: status = %d, want 403", w.Code)
	}
}

func TestTenantMiddlewareAnonymousStaysOnControlPlane(t *testing.T) {
	r := setupTenantRig(t)

	w := probe(t, r, "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !contains(w.Body.String(), `"store_id":""`) {
		t.Fatalf("anonymous request got a store binding: %s", w.Body.String())
	}
}

func TestAuthMiddlewareRejectsGarbledToken(t *testing.T) {
	r := setupTenantRig(t)

	w := probe(t, r, "not-a-jwt", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if !contains(w.Body.String(), utils.ErrInvalidToken.Error()) {
		t.Fatalf("body %s missing %q", w.Body.String(), utils.ErrInvalidToken.Error())
	}
}

func TestMasterAdminImpersonatesViaHeader(t *testing.T) {
	r := setupTenantRig(t)

	token, err := utils.JwtGenerate(1, middlewares.RoleMasterAdmin, 0)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	w := probe(t, r, token, "1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !contains(w.Body.String(), `"store_id":"tenant_mw_acme"`) {
		t.Fatalf("impersonation did not bind the store: %s", w.Body.String())
	}

	// Non-admins must not be able to switch companies by header.
	token, err = utils.JwtGenerate(7, "user", 1)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	w = probe(t, r, token, "2")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !contains(w.Body.String(), `"company_id":1`) {
		t.Fatalf("header impersonation leaked to a regular user: %s", w.Body.String())
	}
}

func contains(haystack, needle string) bool {
	return strings.Contains(haystack, needle)
}
