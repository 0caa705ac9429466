package models

// Region is the sales territory doctors, prescriptions and sales belong
// to. Sales effectiveness is computed per (region, drug).
type Region struct {
	ID   int    `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:100;not null" json:"name"`
	Code string `gorm:"size:10;uniqueIndex" json:"code"`
}

type City struct {
	ID       int     `gorm:"primaryKey" json:"id"`
	Name     string  `gorm:"size:100;not null" json:"name"`
	RegionID int     `gorm:"index" json:"region_id"`
	Region   *Region `json:"region,omitempty"`
}
