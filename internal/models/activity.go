package models

import (
	"time"

	"gorm.io/gorm"
)

type ActivityStatus string
type ActivityPriority string

const (
	ActivityTodo       ActivityStatus = "todo"
	ActivityInProgress ActivityStatus = "in_progress"
	ActivityReview     ActivityStatus = "review"
	ActivityDone       ActivityStatus = "done"
	ActivityBlocked    ActivityStatus = "blocked"

	PriorityLow      ActivityPriority = "low"
	PriorityMedium   ActivityPriority = "medium"
	PriorityHigh     ActivityPriority = "high"
	PriorityCritical ActivityPriority = "critical"
)

// Activity — ad-hoc task, optionally tied to a process. The process link is
// nullable on purpose: deleting the process orphans the activity, it does
// not destroy it.
type Activity struct {
	gorm.Model
	Title       string `gorm:"size:255;not null"`
	Description string `gorm:"type:text"`

	ProcessID *uint
	Process   *Process `gorm:"constraint:OnDelete:SET NULL"`

	BranchID uint `gorm:"not null"`
	Branch   Branch

	SectorID *uint
	Sector   *Sector

	CreatedByID uint `gorm:"not null"`
	CreatedBy   User

	AssignedToID *uint
	AssignedTo   *User

	DueDate *time.Time

	Status   ActivityStatus   `gorm:"type:varchar(20);not null;default:todo"`
	Priority ActivityPriority `gorm:"type:varchar(20);not null;default:medium"`
}
