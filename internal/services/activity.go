package services

import (
	"context"
	"time"

	"qualiflow/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ActivityService is the ad-hoc task ledger. Activities may point at a
// process but never own it; deleting the process only clears the link.
type ActivityService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewActivityService(db *gorm.DB, logger *zap.Logger) *ActivityService {
	return &ActivityService{
		db:     db,
		logger: logger.With(zap.String("service", "activity")),
	}
}

type ActivityInput struct {
	Title        string
	Description  string
	ProcessID    *uint
	BranchID     uint
	SectorID     *uint
	AssignedToID *uint
	DueDate      *time.Time
	Status       models.ActivityStatus
	Priority     models.ActivityPriority
}

func (s *ActivityService) CreateActivity(ctx context.Context, in ActivityInput, createdByID uint) (*models.Activity, error) {
	if err := s.db.WithContext(ctx).First(&models.Branch{}, in.BranchID).Error; err != nil {
		return nil, wrapNotFound(err, "branch")
	}
	if in.SectorID != nil {
		if err := s.db.WithContext(ctx).First(&models.Sector{}, *in.SectorID).Error; err != nil {
			return nil, wrapNotFound(err, "sector")
		}
	}
	if in.ProcessID != nil {
		if err := s.db.WithContext(ctx).First(&models.Process{}, *in.ProcessID).Error; err != nil {
			return nil, wrapNotFound(err, "process")
		}
	}
	if in.AssignedToID != nil {
		if err := s.db.WithContext(ctx).First(&models.User{}, *in.AssignedToID).Error; err != nil {
			return nil, wrapNotFound(err, "user")
		}
	}

	status := in.Status
	if status == "" {
		status = models.ActivityTodo
	}
	priority := in.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}

	activity := models.Activity{
		Title:        in.Title,
		Description:  in.Description,
		ProcessID:    in.ProcessID,
		BranchID:     in.BranchID,
		SectorID:     in.SectorID,
		CreatedByID:  createdByID,
		AssignedToID: in.AssignedToID,
		DueDate:      in.DueDate,
		Status:       status,
		Priority:     priority,
	}
	if err := s.db.WithContext(ctx).Create(&activity).Error; err != nil {
		return nil, err
	}

	s.logger.Info("activity created", zap.Uint("activity_id", activity.ID), zap.String("title", activity.Title))
	return &activity, nil
}

func (s *ActivityService) GetActivity(ctx context.Context, id uint) (*models.Activity, error) {
	var activity models.Activity
	err := s.db.WithContext(ctx).
		Preload("Process").
		Preload("Branch").
		Preload("Sector").
		Preload("AssignedTo").
		First(&activity, id).Error
	if err != nil {
		return nil, wrapNotFound(err, "activity")
	}
	return &activity, nil
}

type ActivityFilter struct {
	ProcessID *uint
	BranchID  *uint
	Status    *models.ActivityStatus
}

func (s *ActivityService) ListActivities(ctx context.Context, filter ActivityFilter) ([]models.Activity, error) {
	dbq := s.db.WithContext(ctx).Preload("Branch").Order("priority desc, due_date asc")
	if filter.ProcessID != nil {
		dbq = dbq.Where("process_id = ?", *filter.ProcessID)
	}
	if filter.BranchID != nil {
		dbq = dbq.Where("branch_id = ?", *filter.BranchID)
	}
	if filter.Status != nil {
		dbq = dbq.Where("status = ?", *filter.Status)
	}
	var activities []models.Activity
	if err := dbq.Find(&activities).Error; err != nil {
		return nil, err
	}
	return activities, nil
}

func (s *ActivityService) UpdateActivity(ctx context.Context, id uint, in ActivityInput) (*models.Activity, error) {
	var activity models.Activity
	if err := s.db.WithContext(ctx).First(&activity, id).Error; err != nil {
		return nil, wrapNotFound(err, "activity")
	}
	if in.SectorID != nil {
		if err := s.db.WithContext(ctx).First(&models.Sector{}, *in.SectorID).Error; err != nil {
			return nil, wrapNotFound(err, "sector")
		}
	}
	if in.ProcessID != nil {
		if err := s.db.WithContext(ctx).First(&models.Process{}, *in.ProcessID).Error; err != nil {
			return nil, wrapNotFound(err, "process")
		}
	}
	if in.AssignedToID != nil {
		if err := s.db.WithContext(ctx).First(&models.User{}, *in.AssignedToID).Error; err != nil {
			return nil, wrapNotFound(err, "user")
		}
	}

	activity.Title = in.Title
	activity.Description = in.Description
	activity.ProcessID = in.ProcessID
	activity.SectorID = in.SectorID
	activity.AssignedToID = in.AssignedToID
	activity.DueDate = in.DueDate
	if in.Status != "" {
		activity.Status = in.Status
	}
	if in.Priority != "" {
		activity.Priority = in.Priority
	}
	if err := s.db.WithContext(ctx).Save(&activity).Error; err != nil {
		return nil, err
	}
	return &activity, nil
}

func (s *ActivityService) DeleteActivity(ctx context.Context, id uint) error {
	var activity models.Activity
	if err := s.db.WithContext(ctx).First(&activity, id).Error; err != nil {
		return wrapNotFound(err, "activity")
	}
	return s.db.WithContext(ctx).Delete(&activity).Error
}

// CompletedCount counts a process's activities with status done.
func (s *ActivityService) CompletedCount(ctx context.Context, processID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Activity{}).
		Where("process_id = ? AND status = ?", processID, models.ActivityDone).
		Count(&count).Error
	return count, err
}

// PendingCount counts everything that is not done yet.
func (s *ActivityService) PendingCount(ctx context.Context, processID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Activity{}).
		Where("process_id = ? AND status <> ?", processID, models.ActivityDone).
		Count(&count).Error
	return count, err
}
