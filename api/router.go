package api

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes wires every handler onto the engine. The auth and tenant
// middlewares must already be installed; handlers assume the store id is
// bound on the request context.
func RegisterRoutes(r *gin.Engine) {
	admin := r.Group("/admin")
	{
		admin.POST("/companies", createCompany)
		admin.GET("/companies", listCompanies)
		admin.POST("/companies/:id/provision", provisionCompany)
	}

	v1 := r.Group("/api/v1")
	{
		v1.POST("/regions", createRegion)
		v1.GET("/regions", listRegions)
		v1.POST("/cities", createCity)
		v1.GET("/cities", listCities)

		v1.POST("/doctors", createDoctor)
		v1.GET("/doctors", listDoctors)
		v1.GET("/doctors/:id", getDoctor)
		v1.PUT("/doctors/:id", updateDoctor)
		v1.DELETE("/doctors/:id", deleteDoctor)
		v1.PUT("/doctors/:id/dotation", setDoctorDotation)
		v1.GET("/doctors/:id/payments", listDoctorPayments)

		v1.POST("/payments", createDoctorPayment)
		v1.DELETE("/payments/:id", deleteDoctorPayment)

		v1.POST("/drugs", createDrug)
		v1.GET("/drugs", listDrugs)
		v1.PUT("/drugs/:id", updateDrug)
		v1.DELETE("/drugs/:id", deleteDrug)

		v1.POST("/prescriptions", createPrescription)
		v1.GET("/prescriptions", listPrescriptions)
		v1.GET("/prescriptions/:id", getPrescription)
		v1.PUT("/prescriptions/:id", updatePrescription)
		v1.DELETE("/prescriptions/:id", deletePrescription)

		v1.POST("/sales", createSale)
		v1.GET("/sales", listSales)
		v1.GET("/sales/:id", getSale)
		v1.PUT("/sales/:id", updateSale)
		v1.DELETE("/sales/:id", deleteSale)

		v1.GET("/reports/monthly", getMonthlyReport)
		v1.GET("/reports/monthly/export", exportMonthlyReport)
		v1.POST("/reports/monthly/close", closeMonthlyReport)
	}
}
