package models

import "gorm.io/gorm"

// Branch — organizational unit (filial); top of the catalog hierarchy.
type Branch struct {
	gorm.Model
	Code        string `gorm:"size:50;uniqueIndex;not null"`
	Name        string `gorm:"size:255;not null"`
	Description string `gorm:"type:text"`
	Address     string `gorm:"size:255"`

	Sectors []Sector
}

// Sector belongs to exactly one branch; name is unique per branch.
type Sector struct {
	gorm.Model
	BranchID uint   `gorm:"not null;uniqueIndex:idx_sector_branch_name"`
	Branch   Branch

	Name        string `gorm:"size:255;not null;uniqueIndex:idx_sector_branch_name"`
	Description string `gorm:"type:text"`
}
