package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Drug. Commission is a flat amount in currency units per effective unit,
// NOT a percentage.
type Drug struct {
	ID   int    `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:200;not null" json:"name"`

	Commission decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"commission"`

	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
