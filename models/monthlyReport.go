package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrArchiveImmutable = errors.New("closed monthly reports are append-only")

// DrugQuantityMap stores the per-drug prescribed quantity snapshot as JSON,
// keyed by drug name at close time.
type DrugQuantityMap map[string]int

func (m DrugQuantityMap) Value() (driver.Value, error) {
	if m == nil {
		m = DrugQuantityMap{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *DrugQuantityMap) Scan(value interface{}) error {
	if value == nil {
		*m = DrugQuantityMap{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("cannot scan %T into DrugQuantityMap", value)
	}
}

// MonthlyDoctorReport is the closed (archived) report for one doctor in
// one year+month. Rows are written exactly once by the close protocol and
// never mutated afterward; the unique index makes a second close for the
// same doctor/period fail even if the existence check is raced.
type MonthlyDoctorReport struct {
	ID int `gorm:"primaryKey" json:"id"`

	DoctorID int     `gorm:"uniqueIndex:idx_doctor_period" json:"doctor_id"`
	Doctor   *Doctor `json:"doctor,omitempty"`
	RegionID *int    `gorm:"index" json:"region_id"`
	Region   *Region `json:"region,omitempty"`

	Year  int `gorm:"uniqueIndex:idx_doctor_period" json:"year"`
	Month int `gorm:"uniqueIndex:idx_doctor_period" json:"month"`

	DrugsData     DrugQuantityMap `gorm:"type:text" json:"drugs_data"`
	TotalQuantity int             `gorm:"default:0" json:"total_quantity"`

	PreviousDebt     decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"previous_debt"`
	EffectiveAmount  decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"effective_amount"`
	CommissionAmount decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"commission_amount"`

	Advance    decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"advance"`
	Investment decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"investment"`
	Refund     decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"refund"`
	Dotation   decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"dotation"`

	FinalDebt decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"final_debt"`

	CreatedAt time.Time `json:"created_at"`
}

func (MonthlyDoctorReport) BeforeUpdate(tx *gorm.DB) error {
	return ErrArchiveImmutable
}

func (MonthlyDoctorReport) BeforeDelete(tx *gorm.DB) error {
	return ErrArchiveImmutable
}
