package models

import (
	"time"

	"bitbucket.org/azpharmsoft/pharma_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type DoctorDegree string

const (
	DegreeVIP DoctorDegree = "VIP"
	DegreeI   DoctorDegree = "I"
	DegreeII  DoctorDegree = "II"
	DegreeIII DoctorDegree = "III"
)

// DegreeFactors weights a doctor's prescribed quantities before they are
// compared with actual sales. Unknown degrees fall back to 1.00.
var DegreeFactors = map[DoctorDegree]decimal.Decimal{
	DegreeVIP: decimal.RequireFromString("1.00"),
	DegreeI:   decimal.RequireFromString("0.90"),
	DegreeII:  decimal.RequireFromString("0.65"),
	DegreeIII: decimal.RequireFromString("0.40"),
}

func (d DoctorDegree) Factor() decimal.Decimal {
	if f, ok := DegreeFactors[d]; ok {
		return f
	}
	return decimal.RequireFromString("1.00")
}

// Doctor carries the running financial balance ("debt") for one doctor.
// The four balance fields are written only by the recomputation engine
// and the monthly close; API edits never touch them.
type Doctor struct {
	ID    int    `gorm:"primaryKey" json:"id"`
	Name  string `gorm:"size:200;not null" json:"name"`
	Code  string `gorm:"size:6;uniqueIndex" json:"code"`
	Phone string `gorm:"size:50" json:"phone"`

	RegionID *int    `gorm:"index" json:"region_id"`
	Region   *Region `json:"region,omitempty"`
	CityID   *int    `json:"city_id"`

	Degree DoctorDegree `gorm:"size:3;default:I" json:"degree"`

	PreviousDebt     decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"previous_debt"`
	EffectiveAmount  decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"effective_amount"`
	CommissionAmount decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"commission_amount"`
	FinalDebt        decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"final_debt"`

	// Dotation is a manual per-period adjustment, archived and reset at close.
	Dotation decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"dotation"`

	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CalculateFinalDebt keeps the balance invariant:
// final = previous + effective - commission.
func (d *Doctor) CalculateFinalDebt() {
	d.FinalDebt = d.PreviousDebt.Add(d.EffectiveAmount).Sub(d.CommissionAmount)
}

func (d *Doctor) BeforeCreate(tx *gorm.DB) error {
	if d.Code == "" || d.Code == "000000" {
		code, err := generateUniqueDoctorCode(tx)
		if err != nil {
			return err
		}
		d.Code = code
	}
	d.CalculateFinalDebt()
	return nil
}

func generateUniqueDoctorCode(tx *gorm.DB) (string, error) {
	for {
		code := utils.RandomCode(6)
		var count int64
		if err := tx.Model(&Doctor{}).Where("code = ?", code).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
}

type PaymentType string

const (
	PaymentTypeAdvance    PaymentType = "advance"
	PaymentTypeInvestment PaymentType = "investment"
	PaymentTypeRefund     PaymentType = "refund"
)

// DoctorPayment is a manual payment adjustment recorded against a doctor
// within a region and period; aggregated into the archive at close.
type DoctorPayment struct {
	ID          int             `gorm:"primaryKey" json:"id"`
	RegionID    int             `gorm:"index:idx_payment_doctor_region" json:"region_id"`
	DoctorID    int             `gorm:"index:idx_payment_doctor_region" json:"doctor_id"`
	Doctor      *Doctor         `json:"doctor,omitempty"`
	PaymentType PaymentType     `gorm:"size:50" json:"payment_type"`
	Amount      decimal.Decimal `gorm:"type:decimal(10,2)" json:"amount"`
	Date        time.Time       `json:"date"`
	CreatedAt   time.Time       `json:"created_at"`
}
