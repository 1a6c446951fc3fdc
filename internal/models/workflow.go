package models

import "gorm.io/gorm"

// WorkflowTemplate — reusable named sequence of step definitions.
// Templates are edited independently of the processes created from them.
type WorkflowTemplate struct {
	gorm.Model
	Name        string `gorm:"size:255;not null"`
	Description string `gorm:"type:text"`

	BranchID uint `gorm:"not null"`
	Branch   Branch

	SectorID *uint
	Sector   *Sector

	CreatedByID uint `gorm:"not null"`
	CreatedBy   User

	Steps []WorkflowStepDef `gorm:"foreignKey:TemplateID;constraint:OnDelete:CASCADE"`
}

// WorkflowStepDef — one step of a template. StepOrder is unique within the
// template ("order" itself is an SQL keyword).
type WorkflowStepDef struct {
	gorm.Model
	TemplateID uint `gorm:"not null;uniqueIndex:idx_template_step_order"`
	StepOrder  uint `gorm:"not null;uniqueIndex:idx_template_step_order"`

	Name        string `gorm:"size:255;not null"`
	Description string `gorm:"type:text"`

	ResponsibleSectorID *uint
	ResponsibleSector   *Sector

	EstimatedDays uint
}
