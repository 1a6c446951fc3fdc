package models

import "gorm.io/gorm"

// Document — controlled document. CurrentVersion always equals the highest
// existing version number; versions are gapless starting at 1.
type Document struct {
	gorm.Model
	Title       string `gorm:"size:255;not null"`
	Description string `gorm:"type:text"`

	BranchID uint `gorm:"not null"`
	Branch   Branch

	SectorID *uint
	Sector   *Sector

	CreatedByID uint `gorm:"not null"`
	CreatedBy   User

	CurrentVersion uint `gorm:"not null;default:1"`

	Versions []DocumentVersion `gorm:"constraint:OnDelete:CASCADE"`
}

// DocumentVersion is immutable once created.
type DocumentVersion struct {
	gorm.Model
	DocumentID uint `gorm:"not null;uniqueIndex:idx_document_version"`
	Version    uint `gorm:"not null;uniqueIndex:idx_document_version"`

	// Opaque reference into blob storage.
	FileRef string `gorm:"size:512;not null"`
	Notes   string `gorm:"type:text"`

	UploadedByID uint `gorm:"not null"`
	UploadedBy   User
}
