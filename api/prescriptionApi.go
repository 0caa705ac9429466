package api

import (
	"net/http"

	"bitbucket.org/azpharmsoft/pharma_backend/config"
	"bitbucket.org/azpharmsoft/pharma_backend/models"
	"bitbucket.org/azpharmsoft/pharma_backend/utils"
	"bitbucket.org/azpharmsoft/pharma_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type prescriptionItemRequest struct {
	DrugID    int             `json:"drug_id" binding:"required"`
	Quantity  int             `json:"quantity" binding:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type prescriptionRequest struct {
	DoctorID    int                       `json:"doctor_id" binding:"required"`
	RegionID    *int                      `json:"region_id"`
	Date        string                    `json:"date" binding:"required"`
	PatientName string                    `json:"patient_name" binding:"max=200"`
	Notes       string                    `json:"notes"`
	Items       []prescriptionItemRequest `json:"items" binding:"required,min=1,dive"`
}

func createPrescription(c *gin.Context) {
	db, ok := tenantDB(c, &models.Prescription{})
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var req prescriptionRequest
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
	if err := config.EnsureSameStore(ctx, &doctor, &models.Prescription{}); err != nil {
		abortWithError(c, err)
		return
	}

	regionId := req.RegionID
	if regionId == nil {
		regionId = doctor.RegionID
	}

	prescription := models.Prescription{
		DoctorID:    doctor.ID,
		RegionID:    regionId,
		Date:        date,
		PatientName: req.PatientName,
		Notes:       req.Notes,
		IsActive:    true,
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&prescription).Error; err != nil {
			return err
		}
		return createPrescriptionItems(tx, prescription.ID, req.Items)
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	if err := workflow.PrescriptionChanged(ctx, &prescription); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"prescription": prescription})
}

func createPrescriptionItems(tx *gorm.DB, prescriptionId int, items []prescriptionItemRequest) error {
	for _, item := range items {
		var drug models.Drug
		if err := tx.First(&drug, item.DrugID).Error; err != nil {
			return err
		}
		record := models.PrescriptionItem{
			PrescriptionID: prescriptionId,
			DrugID:         drug.ID,
			Quantity:       item.Quantity,
			UnitPrice:      item.UnitPrice,
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
	}
	return nil
}

func listPrescriptions(c *gin.Context) {
	db, ok := tenantDB(c, &models.Prescription{})
	if !ok {
		return
	}

	query := db.WithContext(c.Request.Context()).
		Preload("Doctor").Preload("Region").
		Where("is_active = ?", true)
	if doctorId := utils.SafeInt(c.Query("doctor_id"), 0); doctorId != 0 {
		query = query.Where("doctor_id = ?", doctorId)
	}
	if regionId := utils.SafeInt(c.Query("region_id"), 0); regionId != 0 {
		query = query.Where("region_id = ?", regionId)
	}

	var prescriptions []models.Prescription
	if err := query.Order("date desc").Find(&prescriptions).Error; err != nil {
		abortWithError(c, err)
		return
	}

	month := utils.SafeInt(c.Query("month"), 0)
	year := utils.SafeInt(c.Query("year"), 0)
	if month != 0 || year != 0 {
		filtered := prescriptions[:0]
		for _, prescription := range prescriptions {
			if utils.MatchesPeriod(prescription.Date, month, year) {
				filtered = append(filtered, prescription)
			}
		}
		prescriptions = filtered
	}
	c.JSON(http.StatusOK, gin.H{"prescriptions": prescriptions})
}

func getPrescription(c *gin.Context) {
	db, ok := tenantDB(c, &models.Prescription{})
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var prescription models.Prescription
	err := db.WithContext(ctx).Preload("Doctor").Preload("Region").
		First(&prescription, atoiParam(c, "id")).Error
	if err != nil {
		abortWithError(c, err)
		return
	}

	var items []models.PrescriptionItem
	err = db.WithContext(ctx).Preload("Drug").
		Where("prescription_id = ?", prescription.ID).Find(&items).Error
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"prescription": prescription, "items": items})
}

// updatePrescription replaces the header and the full item set, then
// recomputes the affected periods. A date move across months recomputes
// both the old and the new month.
func updatePrescription(c *gin.Context) {
	db, ok := tenantDB(c, &models.Prescription{})
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var prescription models.Prescription
	if err := db.WithContext(ctx).First(&prescription, atoiParam(c, "id")).Error; err != nil {
		abortWithError(c, err)
		return
	}
	before := prescription

	var req prescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}

	prescription.DoctorID = req.DoctorID
	prescription.RegionID = req.RegionID
	prescription.Date = date
	prescription.PatientName = req.PatientName
	prescription.Notes = req.Notes

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&prescription).
			Select("DoctorID", "RegionID", "Date", "PatientName", "Notes").
			Updates(&prescription).Error; err != nil {
			return err
		}
		if err := tx.Where("prescription_id = ?", prescription.ID).
			Delete(&models.PrescriptionItem{}).Error; err != nil {
			return err
		}
		return createPrescriptionItems(tx, prescription.ID, req.Items)
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	if err := workflow.PrescriptionChanged(ctx, &before); err != nil {
		abortWithError(c, err)
		return
	}
	if err := workflow.PrescriptionChanged(ctx, &prescription); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"prescription": prescription})
}

func deletePrescription(c *gin.Context) {
	db, ok := tenantDB(c, &models.Prescription{})
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var prescription models.Prescription
	if err := db.WithContext(ctx).First(&prescription, atoiParam(c, "id")).Error; err != nil {
		abortWithError(c, err)
		return
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("prescription_id = ?", prescription.ID).
			Delete(&models.PrescriptionItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&prescription).Error
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	if err := workflow.PrescriptionChanged(ctx, &prescription); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
