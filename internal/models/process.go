package models

import (
	"time"

	"gorm.io/gorm"
)

type ProcessStatus string
type StepStatus string

const (
	ProcessPlanned    ProcessStatus = "planned"
	ProcessInProgress ProcessStatus = "in_progress"
	ProcessCompleted  ProcessStatus = "completed"
	ProcessCancelled  ProcessStatus = "cancelled"

	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepDone       StepStatus = "done"
	StepBlocked    StepStatus = "blocked"
)

// Process — a running instance of a workflow template. The template link is
// fixed at creation; the step set is a snapshot taken at that moment.
// Status is derived from the step statuses and persisted for querying.
type Process struct {
	gorm.Model
	Name        string `gorm:"size:255;not null"`
	Description string `gorm:"type:text"`

	TemplateID uint `gorm:"not null"`
	Template   WorkflowTemplate

	BranchID uint `gorm:"not null"`
	Branch   Branch

	SectorID *uint
	Sector   *Sector

	CreatedByID uint `gorm:"not null"`
	CreatedBy   User

	Status      ProcessStatus `gorm:"type:varchar(20);not null;default:planned"`
	StartedAt   *time.Time
	CompletedAt *time.Time

	Steps []ProcessStep `gorm:"constraint:OnDelete:CASCADE"`
}

// ProcessStep — materialized copy of one template step for one process.
// Keeps its StepDef link even if the template is later reordered.
type ProcessStep struct {
	gorm.Model
	ProcessID uint `gorm:"not null;uniqueIndex:idx_process_stepdef"`
	StepDefID uint `gorm:"not null;uniqueIndex:idx_process_stepdef"`
	StepDef   WorkflowStepDef

	Status StepStatus `gorm:"type:varchar(20);not null;default:pending"`

	AssignedToID *uint
	AssignedTo   *User

	StartedAt   *time.Time
	CompletedAt *time.Time
	Notes       string `gorm:"type:text"`
}
