package api

import (
	"fmt"
	"net/http"

	"bitbucket.org/azpharmsoft/pharma_backend/utils"
	"bitbucket.org/azpharmsoft/pharma_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// getMonthlyReport serves the per-region monthly report: the frozen
// archive when the month is closed, the live state otherwise.
func getMonthlyReport(c *gin.Context) {
	regionId := utils.SafeInt(c.Query("region_id"), 0)
	month := utils.SafeInt(c.Query("month"), 0)
	year := utils.SafeInt(c.Query("year"), 0)

	rows, fromArchive, err := workflow.MonthlyReportRows(c.Request.Context(), regionId, month, year)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"rows":         rows,
		"from_archive": fromArchive,
		"region_id":    regionId,
		"month":        month,
		"year":         year,
	})
}

type closeMonthRequest struct {
	RegionID int `json:"region_id" binding:"required"`
	Year     int `json:"year" binding:"required"`
	Month    int `json:"month" binding:"required,min=1,max=12"`
}

func closeMonthlyReport(c *gin.Context) {
	var req closeMonthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := workflow.CloseMonthlyReport(c.Request.Context(), req.RegionID, req.Year, req.Month)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "closed", "region_id": req.RegionID, "year": req.Year, "month": req.Month})
}

var reportHeader = []string{
	"Code", "Doctor", "Degree", "Total Qty",
	"Previous Debt", "Effective", "Commission",
	"Advance", "Investment", "Refund", "Dotation", "Final Debt",
}

// exportMonthlyReport streams the report as an xlsx workbook.
func exportMonthlyReport(c *gin.Context) {
	regionId := utils.SafeInt(c.Query("region_id"), 0)
	month := utils.SafeInt(c.Query("month"), 0)
	year := utils.SafeInt(c.Query("year"), 0)

	rows, _, err := workflow.MonthlyReportRows(c.Request.Context(), regionId, month, year)
	if err != nil {
		abortWithError(c, err)
		return
	}

	file := excelize.NewFile()
	defer file.Close()
	sheet := file.GetSheetName(0)

	for col, title := range reportHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = file.SetCellValue(sheet, cell, title)
	}

	for i, row := range rows {
		values := []any{
			row.Doctor.Code,
			row.Doctor.Name,
			string(row.Doctor.Degree),
			row.TotalQuantity,
			row.PreviousDebt.InexactFloat64(),
			row.EffectiveAmount.InexactFloat64(),
			row.CommissionAmount.InexactFloat64(),
			row.Advance.InexactFloat64(),
			row.Investment.InexactFloat64(),
			row.Refund.InexactFloat64(),
			row.Dotation.InexactFloat64(),
			row.FinalDebt.InexactFloat64(),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			_ = file.SetCellValue(sheet, cell, value)
		}
	}

	fileName := fmt.Sprintf("report_region%d_%d_%02d.xlsx", regionId, year, month)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, fileName))
	if err := file.Write(c.Writer); err != nil {
		abortWithError(c, err)
	}
}
