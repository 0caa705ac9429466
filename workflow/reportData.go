package workflow

import (
	"context"
	"sort"

	"bitbucket.org/azpharmsoft/pharma_backend/config"
	"bitbucket.org/azpharmsoft/pharma_backend/models"
	"bitbucket.org/azpharmsoft/pharma_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DoctorReportRow is one line of the monthly report for a region: either
// the live computed state or a closed archive row.
type DoctorReportRow struct {
	Doctor        models.Doctor          `json:"doctor"`
	Drugs         models.DrugQuantityMap `json:"drugs"`
	TotalQuantity int                    `json:"total_quantity"`

	PreviousDebt     decimal.Decimal `json:"previous_debt"`
	EffectiveAmount  decimal.Decimal `json:"effective_amount"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`

	Advance    decimal.Decimal `json:"advance"`
	Investment decimal.Decimal `json:"investment"`
	Refund     decimal.Decimal `json:"refund"`
	Dotation   decimal.Decimal `json:"dotation"`

	FinalDebt decimal.Decimal `json:"final_debt"`
}

// MonthlyReportRows resolves the report for (region, month, year):
// a closed archive is served as-is, otherwise the live state is used.
func MonthlyReportRows(ctx context.Context, regionId, month, year int) ([]DoctorReportRow, bool, error) {
	if regionId == 0 {
		return nil, false, utils.ErrRegionRequired
	}

	db, err := config.StoreFor(ctx, &models.MonthlyDoctorReport{})
	if err != nil {
		return nil, false, err
	}

	if month != 0 && year != 0 {
		archived, err := archivedReportRows(ctx, db, regionId, year, month)
		if err != nil {
			return nil, false, err
		}
		if len(archived) > 0 {
			return archived, true, nil
		}
	}

	rows, err := liveReportRows(ctx, db, regionId, month, year)
	if err != nil {
		return nil, false, err
	}
	return rows, false, nil
}

func archivedReportRows(ctx context.Context, db *gorm.DB, regionId, year, month int) ([]DoctorReportRow, error) {
	var reports []models.MonthlyDoctorReport
	err := db.WithContext(ctx).Preload("Doctor").
		Where("region_id = ? AND year = ? AND month = ?", regionId, year, month).
		Find(&reports).Error
	if err != nil {
		return nil, err
	}

	rows := make([]DoctorReportRow, 0, len(reports))
	for _, report := range reports {
		row := DoctorReportRow{
			Drugs:            report.DrugsData,
			TotalQuantity:    report.TotalQuantity,
			PreviousDebt:     report.PreviousDebt,
			EffectiveAmount:  report.EffectiveAmount,
			CommissionAmount: report.CommissionAmount,
			Advance:          report.Advance,
			Investment:       report.Investment,
			Refund:           report.Refund,
			Dotation:         report.Dotation,
			FinalDebt:        report.FinalDebt,
		}
		if report.Doctor != nil {
			row.Doctor = *report.Doctor
		}
		rows = append(rows, row)
	}
	sortRowsByDoctorName(rows)
	return rows, nil
}

// liveReportRows builds the current numbers for every doctor in the
// region, including doctors with zero prescribing activity.
func liveReportRows(ctx context.Context, db *gorm.DB, regionId, month, year int) ([]DoctorReportRow, error) {
	var doctors []models.Doctor
	if err := db.WithContext(ctx).Where("region_id = ?", regionId).Find(&doctors).Error; err != nil {
		return nil, err
	}
	if len(doctors) == 0 {
		return []DoctorReportRow{}, nil
	}

	rowByDoctor := make(map[int]*DoctorReportRow, len(doctors))
	rows := make([]DoctorReportRow, len(doctors))
	doctorIds := make([]int, 0, len(doctors))
	for i, doctor := range doctors {
		rows[i] = DoctorReportRow{
			Doctor:           doctor,
			Drugs:            models.DrugQuantityMap{},
			PreviousDebt:     doctor.PreviousDebt,
			EffectiveAmount:  doctor.EffectiveAmount,
			CommissionAmount: doctor.CommissionAmount,
			Dotation:         doctor.Dotation,
			FinalDebt:        doctor.FinalDebt,
		}
		rowByDoctor[doctor.ID] = &rows[i]
		doctorIds = append(doctorIds, doctor.ID)
	}

	// Raw prescribed quantities per drug name (unweighted, as displayed).
	items, err := loadPrescriptionItems(ctx, db, []int{regionId}, doctorIds, month, year)
	if err != nil {
		return nil, err
	}
	drugNames, err := drugNameMap(ctx, db)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if item.Prescription == nil {
			continue
		}
		row, ok := rowByDoctor[item.Prescription.DoctorID]
		if !ok {
			continue
		}
		name := drugNames[item.DrugID]
		if name == "" {
			continue
		}
		row.Drugs[name] += item.Quantity
		row.TotalQuantity += item.Quantity
	}

	// Manual payment adjustments for the window.
	var payments []models.DoctorPayment
	err = db.WithContext(ctx).
		Where("doctor_id IN ? AND region_id = ?", doctorIds, regionId).
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	for _, payment := range payments {
		if !utils.MatchesPeriod(payment.Date, month, year) {
			continue
		}
		row, ok := rowByDoctor[payment.DoctorID]
		if !ok {
			continue
		}
		switch payment.PaymentType {
		case models.PaymentTypeAdvance:
			row.Advance = row.Advance.Add(payment.Amount)
		case models.PaymentTypeInvestment:
			row.Investment = row.Investment.Add(payment.Amount)
		case models.PaymentTypeRefund:
			row.Refund = row.Refund.Add(payment.Amount)
		}
	}

	sortRowsByDoctorName(rows)
	return rows, nil
}

func drugNameMap(ctx context.Context, db *gorm.DB) (map[int]string, error) {
	var drugs []models.Drug
	if err := db.WithContext(ctx).Find(&drugs).Error; err != nil {
		return nil, err
	}
	names := make(map[int]string, len(drugs))
	for _, drug := range drugs {
		names[drug.ID] = drug.Name
	}
	return names, nil
}

func sortRowsByDoctorName(rows []DoctorReportRow) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Doctor.Name == rows[j].Doctor.Name {
			return rows[i].Doctor.ID < rows[j].Doctor.ID
		}
		return rows[i].Doctor.Name < rows[j].Doctor.Name
	})
}
