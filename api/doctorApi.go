package api

import (
	"net/http"
	"time"

	"bitbucket.org/azpharmsoft/pharma_backend/config"
	"bitbucket.org/azpharmsoft/pharma_backend/models"
	"bitbucket.org/azpharmsoft/pharma_backend/utils"
	"bitbucket.org/azpharmsoft/pharma_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// Doctor write requests never carry the balance fields; those are owned by
// the recompute engine and the monthly close.
type doctorRequest struct {
	Name     string `json:"name" binding:"required,max=200"`
	Phone    string `json:"phone" binding:"max=50"`
	RegionID *int   `json:"region_id"`
	CityID   *int   `json:"city_id"`
	Degree   string `json:"degree" binding:"required,degree"`
}

func createDoctor(c *gin.Context) {
	db, ok := tenantDB(c, &models.Doctor{})
	if !ok {
		return
	}

	var req doctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doctor := models.Doctor{
		Name:     req.Name,
		Phone:    req.Phone,
		RegionID: req.RegionID,
		CityID:   req.CityID,
		Degree:   models.DoctorDegree(req.Degree),
		IsActive: true,
	}
	if err := db.WithContext(c.Request.Context()).Create(&doctor).Error; err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"doctor": doctor})
}

func listDoctors(c *gin.Context) {
	db, ok := tenantDB(c, &models.Doctor{})
	if !ok {
		return
	}

	query := db.WithContext(c.Request.Context()).Preload("Region").Where("is_active = ?", true)
	if regionId := utils.SafeInt(c.Query("region_id"), 0); regionId != 0 {
		query = query.Where("region_id = ?", regionId)
	}

	var doctors []models.Doctor
	if err := query.Order("name").Find(&doctors).Error; err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"doctors": doctors})
}

func getDoctor(c *gin.Context) {
	db, ok := tenantDB(c, &models.Doctor{})
	if !ok {
		return
	}

	var doctor models.Doctor
	err := db.WithContext(c.Request.Context()).Preload("Region").
		First(&doctor, atoiParam(c, "id")).Error
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"doctor": doctor})
}

// updateDoctor edits identity fields only. A degree or region change shifts
// the weighted denominator, so the doctor's current month is recomputed.
func updateDoctor(c *gin.Context) {
	db, ok := tenantDB(c, &models.Doctor{})
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var doctor models.Doctor
	if err := db.WithContext(ctx).First(&doctor, atoiParam(c, "id")).Error; err != nil {
		abortWithError(c, err)
		return
	}

	var req doctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	oldRegionId := doctor.RegionID
	needsRecompute := doctor.Degree != models.DoctorDegree(req.Degree) ||
		!intPtrEqual(doctor.RegionID, req.RegionID)

	doctor.Name = req.Name
	doctor.Phone = req.Phone
	doctor.RegionID = req.RegionID
	doctor.CityID = req.CityID
	doctor.Degree = models.DoctorDegree(req.Degree)

	err := db.WithContext(ctx).Model(&doctor).
		Select("Name", "Phone", "RegionID", "CityID", "Degree").
		Updates(&doctor).Error
	if err != nil {
		abortWithError(c, err)
		return
	}

	if needsRecompute {
		now := time.Now()
		regionIds := regionRecomputeScope(oldRegionId, doctor.RegionID)
		if err := workflow.RecalculateDoctorFinancials(ctx, []int{doctor.ID}, regionIds, int(now.Month()), now.Year()); err != nil {
			abortWithError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"doctor": doctor})
}

func deleteDoctor(c *gin.Context) {
	db, ok := tenantDB(c, &models.Doctor{})
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var doctor models.Doctor
	if err := db.WithContext(ctx).First(&doctor, atoiParam(c, "id")).Error; err != nil {
		abortWithError(c, err)
		return
	}

	err := db.WithContext(ctx).Model(&doctor).Update("is_active", false).Error
	if err != nil {
		abortWithError(c, err)
		return
	}

	if doctor.RegionID != nil {
		now := time.Now()
		err = workflow.RecalculateDoctorFinancials(ctx, nil, []int{*doctor.RegionID}, int(now.Month()), now.Year())
		if err != nil {
			abortWithError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "deactivated"})
}

type dotationRequest struct {
	Dotation decimal.Decimal `json:"dotation"`
}

// setDoctorDotation records the manual per-period adjustment. Dotation is
// informational until close; it does not move final_debt.
func setDoctorDotation(c *gin.Context) {
	db, ok := tenantDB(c, &models.Doctor{})
	if !ok {
		return
	}

	var req dotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := db.WithContext(c.Request.Context()).Model(&models.Doctor{}).
		Where("id = ?", atoiParam(c, "id")).
		Update("dotation", req.Dotation)
	if result.Error != nil {
		abortWithError(c, result.Error)
		return
	}
	if result.RowsAffected == 0 {
		abortWithError(c, utils.ErrorRecordNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

type paymentRequest struct {
	DoctorID    int             `json:"doctor_id" binding:"required"`
	PaymentType string          `json:"payment_type" binding:"required,payment_type"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Date        string          `json:"date" binding:"required"`
}

func createDoctorPayment(c *gin.Context) {
	db, ok := tenantDB(c, &models.DoctorPayment{})
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}

	var doctor models.Doctor
	if err := db.WithContext(ctx).First(&doctor, req.DoctorID).Error; err != nil {
		abortWithError(c, err)
		return
	}
	if err := config.EnsureSameStore(ctx, &doctor, &models.DoctorPayment{}); err != nil {
		abortWithError(c, err)
		return
	}
	if doctor.RegionID == nil {
		abortWithError(c, utils.ErrRegionRequired)
		return
	}

	payment := models.DoctorPayment{
		RegionID:    *doctor.RegionID,
		DoctorID:    doctor.ID,
		PaymentType: models.PaymentType(req.PaymentType),
		Amount:      req.Amount,
		Date:        date,
	}
	if err := db.WithContext(ctx).Create(&payment).Error; err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"payment": payment})
}

func listDoctorPayments(c *gin.Context) {
	db, ok := tenantDB(c, &models.DoctorPayment{})
	if !ok {
		return
	}

	var payments []models.DoctorPayment
	err := db.WithContext(c.Request.Context()).
		Where("doctor_id = ?", atoiParam(c, "id")).
		Order("date desc").Find(&payments).Error
	if err != nil {
		abortWithError(c, err)
		return
	}

	month := utils.SafeInt(c.Query("month"), 0)
	year := utils.SafeInt(c.Query("year"), 0)
	if month != 0 || year != 0 {
		filtered := payments[:0]
		for _, payment := range payments {
			if utils.MatchesPeriod(payment.Date, month, year) {
				filtered = append(filtered, payment)
			}
		}
		payments = filtered
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

func deleteDoctorPayment(c *gin.Context) {
	db, ok := tenantDB(c, &models.DoctorPayment{})
	if !ok {
		return
	}

	result := db.WithContext(c.Request.Context()).
		Delete(&models.DoctorPayment{}, atoiParam(c, "id"))
	if result.Error != nil {
		abortWithError(c, result.Error)
		return
	}
	if result.RowsAffected == 0 {
		abortWithError(c, utils.ErrorRecordNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func regionRecomputeScope(oldRegion, newRegion *int) []int {
	var ids []int
	if oldRegion != nil {
		ids = append(ids, *oldRegion)
	}
	if newRegion != nil && !intPtrEqual(oldRegion, newRegion) {
		ids = append(ids, *newRegion)
	}
	return ids
}
