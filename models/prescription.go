package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Prescription groups the drug lines a doctor prescribed on one date.
// Its region defaults to the doctor's region but can be set explicitly.
type Prescription struct {
	ID          int       `gorm:"primaryKey" json:"id"`
	RegionID    *int      `gorm:"index" json:"region_id"`
	Region      *Region   `json:"region,omitempty"`
	DoctorID    int       `gorm:"index" json:"doctor_id"`
	Doctor      *Doctor   `json:"doctor,omitempty"`
	Date        time.Time `gorm:"index" json:"date"`
	PatientName string    `gorm:"size:200" json:"patient_name"`
	Notes       string    `json:"notes"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PrescriptionItem is immutable except through explicit edit/delete; every
// mutation must be followed by a recompute trigger (workflow.PrescriptionChanged).
type PrescriptionItem struct {
	ID             int             `gorm:"primaryKey" json:"id"`
	PrescriptionID int             `gorm:"index" json:"prescription_id"`
	Prescription   *Prescription   `json:"prescription,omitempty"`
	DrugID         int             `gorm:"index" json:"drug_id"`
	Drug           *Drug           `json:"drug,omitempty"`
	Quantity       int             `gorm:"default:0" json:"quantity"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"unit_price"`
}
