package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale records actual market sales for a region on a date. Sales are not
// attributed to doctors; they feed the region-wide effectiveness ratio.
type Sale struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	RegionID  int       `gorm:"index" json:"region_id"`
	Region    *Region   `json:"region,omitempty"`
	Date      time.Time `gorm:"index" json:"date"`
	CreatedAt time.Time `json:"created_at"`
}

// SaleItem mutations fan out to every doctor in the sale's region (the
// effectiveness ratio is shared region-wide); see workflow.SaleChanged.
type SaleItem struct {
	ID        int             `gorm:"primaryKey" json:"id"`
	SaleID    int             `gorm:"index" json:"sale_id"`
	Sale      *Sale           `json:"sale,omitempty"`
	DrugID    int             `gorm:"index" json:"drug_id"`
	Drug      *Drug           `json:"drug,omitempty"`
	Quantity  int             `gorm:"default:0" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"unit_price"`
}
