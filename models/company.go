package models

import (
	"time"
)

// Company is a tenant: one pharmaceutical sales company whose operational
// data lives in its own isolated store. The Company row itself always
// lives in the control-plane store.
type Company struct {
	ID    int    `gorm:"primaryKey" json:"id"`
	Name  string `gorm:"size:200;not null" json:"name"`
	Slug  string `gorm:"size:200;uniqueIndex;not null" json:"slug"`
	Email string `gorm:"size:200;uniqueIndex" json:"email"`
	Phone string `gorm:"size:20" json:"phone"`

	// DbName is the tenant store identifier. Empty until the store is
	// provisioned; immutable once set.
	DbName string `gorm:"size:100" json:"db_name"`

	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ControlPlaneEntity marks Company for the data router: it always routes
// to the shared control-plane store regardless of the bound tenant.
func (Company) ControlPlaneEntity() {}
