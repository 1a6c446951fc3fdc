package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"qualiflow/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProcessService is the process lifecycle engine. It instantiates processes
// from workflow templates, drives the per-step state machine and keeps the
// derived process status consistent with the step set on every transition.
type ProcessService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewProcessService(db *gorm.DB, logger *zap.Logger) *ProcessService {
	return &ProcessService{
		db:     db,
		logger: logger.With(zap.String("service", "process")),
	}
}

type CreateProcessInput struct {
	Name        string
	Description string
	TemplateID  uint
	BranchID    uint
	SectorID    *uint
	CreatedByID uint
}

// CreateProcess snapshots the template's current steps into one pending
// ProcessStep per definition. The materialization is all-or-nothing; a
// template with zero steps yields a valid zero-step process. Later template
// edits never reach the created process.
func (s *ProcessService) CreateProcess(ctx context.Context, in CreateProcessInput) (*models.Process, error) {
	if err := s.db.WithContext(ctx).First(&models.WorkflowTemplate{}, in.TemplateID).Error; err != nil {
		return nil, wrapNotFound(err, "workflow template")
	}
	if err := s.db.WithContext(ctx).First(&models.Branch{}, in.BranchID).Error; err != nil {
		return nil, wrapNotFound(err, "branch")
	}
	if in.SectorID != nil {
		if err := s.db.WithContext(ctx).First(&models.Sector{}, *in.SectorID).Error; err != nil {
			return nil, wrapNotFound(err, "sector")
		}
	}

	process := models.Process{
		Name:        in.Name,
		Description: in.Description,
		TemplateID:  in.TemplateID,
		BranchID:    in.BranchID,
		SectorID:    in.SectorID,
		CreatedByID: in.CreatedByID,
		Status:      models.ProcessPlanned,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&process).Error; err != nil {
			return err
		}

		var defs []models.WorkflowStepDef
		if err := tx.Where("template_id = ?", in.TemplateID).
			Order("step_order asc").
			Find(&defs).Error; err != nil {
			return err
		}
		if len(defs) == 0 {
			return nil
		}

		steps := make([]models.ProcessStep, 0, len(defs))
		for _, def := range defs {
			steps = append(steps, models.ProcessStep{
				ProcessID: process.ID,
				StepDefID: def.ID,
				Status:    models.StepPending,
			})
		}
		return tx.Create(&steps).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("process created",
		zap.Uint("process_id", process.ID),
		zap.Uint("template_id", in.TemplateID))
	return &process, nil
}

// AdvanceStep moves the step whose originating definition currently has the
// given order to a new status. The step update and the process-status
// recomputation commit in the same transaction, serialized per process by a
// write lock on the process row so the derivation always sees the latest
// committed step set.
func (s *ProcessService) AdvanceStep(ctx context.Context, processID, stepOrder uint, next models.StepStatus) (*models.ProcessStep, error) {
	var advanced *models.ProcessStep

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		// Row-level write lock, held until commit. Portable where
		// SELECT ... FOR UPDATE is not.
		claim := tx.Model(&models.Process{}).
			Where("id = ?", processID).
			Update("updated_at", now)
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			return fmt.Errorf("process %d: %w", processID, ErrNotFound)
		}

		var process models.Process
		if err := tx.First(&process, processID).Error; err != nil {
			return wrapNotFound(err, "process")
		}
		if process.Status == models.ProcessCancelled {
			return fmt.Errorf("process %d: %w", processID, ErrProcessCancelled)
		}

		steps, err := loadSteps(tx, processID)
		if err != nil {
			return err
		}

		var step *models.ProcessStep
		for i := range steps {
			if steps[i].StepDef.StepOrder == stepOrder {
				step = &steps[i]
				break
			}
		}
		if step == nil {
			return fmt.Errorf("process %d order %d: %w", processID, stepOrder, ErrStepNotFound)
		}

		if err := applyStepTransition(step, next, now); err != nil {
			return err
		}

		updates := map[string]any{
			"status":       step.Status,
			"started_at":   step.StartedAt,
			"completed_at": step.CompletedAt,
		}
		if err := tx.Model(&models.ProcessStep{}).
			Where("id = ?", step.ID).
			Updates(updates).Error; err != nil {
			return err
		}

		advanced = step
		return refreshProcessStatus(tx, &process, steps, now)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("process step advanced",
		zap.Uint("process_id", processID),
		zap.Uint("order", stepOrder),
		zap.String("status", string(advanced.Status)))
	return advanced, nil
}

// applyStepTransition enforces the step state machine:
// pending -> in_progress, in_progress -> done, pending/in_progress ->
// blocked, blocked -> in_progress. done is terminal.
func applyStepTransition(step *models.ProcessStep, next models.StepStatus, now time.Time) error {
	from := step.Status
	switch {
	case from == models.StepPending && next == models.StepInProgress,
		from == models.StepBlocked && next == models.StepInProgress:
		if step.StartedAt == nil {
			step.StartedAt = &now
		}
	case from == models.StepInProgress && next == models.StepDone:
		step.CompletedAt = &now
	case from == models.StepPending && next == models.StepBlocked,
		from == models.StepInProgress && next == models.StepBlocked:
	default:
		return &TransitionError{Entity: "process step", From: string(from), To: string(next)}
	}
	step.Status = next
	return nil
}

// refreshProcessStatus recomputes the derived process status from the full
// current step set. It is idempotent: concurrent final transitions converge
// on the same value.
func refreshProcessStatus(tx *gorm.DB, process *models.Process, steps []models.ProcessStep, now time.Time) error {
	var done, active int
	var lastDone *time.Time
	for i := range steps {
		switch steps[i].Status {
		case models.StepDone:
			done++
			if t := steps[i].CompletedAt; t != nil && (lastDone == nil || t.After(*lastDone)) {
				lastDone = t
			}
		case models.StepInProgress:
			active++
		}
	}

	status := models.ProcessPlanned
	switch {
	case len(steps) > 0 && done == len(steps):
		status = models.ProcessCompleted
	case done > 0 || active > 0:
		status = models.ProcessInProgress
	}

	updates := map[string]any{"status": status}
	if status != models.ProcessPlanned && process.StartedAt == nil {
		updates["started_at"] = &now
	}
	if status == models.ProcessCompleted && process.CompletedAt == nil {
		if lastDone != nil {
			updates["completed_at"] = lastDone
		} else {
			updates["completed_at"] = &now
		}
	}

	process.Status = status
	return tx.Model(&models.Process{}).Where("id = ?", process.ID).Updates(updates).Error
}

// CancelProcess is an explicit terminal action, independent of step states.
func (s *ProcessService) CancelProcess(ctx context.Context, processID uint) (*models.Process, error) {
	var process models.Process
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claim := tx.Model(&models.Process{}).
			Where("id = ?", processID).
			Update("updated_at", time.Now())
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			return fmt.Errorf("process %d: %w", processID, ErrNotFound)
		}

		if err := tx.First(&process, processID).Error; err != nil {
			return wrapNotFound(err, "process")
		}
		switch process.Status {
		case models.ProcessCancelled:
			return fmt.Errorf("process %d: %w", processID, ErrProcessCancelled)
		case models.ProcessCompleted:
			return &TransitionError{Entity: "process", From: string(process.Status), To: string(models.ProcessCancelled)}
		}

		process.Status = models.ProcessCancelled
		return tx.Model(&models.Process{}).
			Where("id = ?", process.ID).
			Update("status", models.ProcessCancelled).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("process cancelled", zap.Uint("process_id", processID))
	return &process, nil
}

// Progress returns done/total in [0,1], 0 for a zero-step process. Pure
// read, recomputed from the current step set on every call.
func (s *ProcessService) Progress(ctx context.Context, processID uint) (float64, error) {
	if err := s.db.WithContext(ctx).First(&models.Process{}, processID).Error; err != nil {
		return 0, wrapNotFound(err, "process")
	}

	var total, done int64
	if err := s.db.WithContext(ctx).Model(&models.ProcessStep{}).
		Where("process_id = ?", processID).
		Count(&total).Error; err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}
	if err := s.db.WithContext(ctx).Model(&models.ProcessStep{}).
		Where("process_id = ? AND status = ?", processID, models.StepDone).
		Count(&done).Error; err != nil {
		return 0, err
	}
	return float64(done) / float64(total), nil
}

type StepDetailsInput struct {
	AssignedToID *uint
	Notes        *string
}

// UpdateStepDetails sets assignee and notes on a step without touching its
// status.
func (s *ProcessService) UpdateStepDetails(ctx context.Context, processID, stepOrder uint, in StepDetailsInput) (*models.ProcessStep, error) {
	var updated *models.ProcessStep
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&models.Process{}, processID).Error; err != nil {
			return wrapNotFound(err, "process")
		}

		steps, err := loadSteps(tx, processID)
		if err != nil {
			return err
		}
		var step *models.ProcessStep
		for i := range steps {
			if steps[i].StepDef.StepOrder == stepOrder {
				step = &steps[i]
				break
			}
		}
		if step == nil {
			return fmt.Errorf("process %d order %d: %w", processID, stepOrder, ErrStepNotFound)
		}

		updates := map[string]any{}
		if in.AssignedToID != nil {
			if err := tx.First(&models.User{}, *in.AssignedToID).Error; err != nil {
				return wrapNotFound(err, "user")
			}
			step.AssignedToID = in.AssignedToID
			updates["assigned_to_id"] = in.AssignedToID
		}
		if in.Notes != nil {
			step.Notes = *in.Notes
			updates["notes"] = *in.Notes
		}
		if len(updates) == 0 {
			updated = step
			return nil
		}

		updated = step
		return tx.Model(&models.ProcessStep{}).
			Where("id = ?", step.ID).
			Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// GetProcess returns the process with its steps ordered by the current
// definition order.
func (s *ProcessService) GetProcess(ctx context.Context, id uint) (*models.Process, error) {
	var process models.Process
	err := s.db.WithContext(ctx).
		Preload("Template").
		Preload("Branch").
		Preload("Sector").
		Preload("CreatedBy").
		First(&process, id).Error
	if err != nil {
		return nil, wrapNotFound(err, "process")
	}

	steps, err := loadSteps(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	process.Steps = steps
	return &process, nil
}

func (s *ProcessService) ListProcesses(ctx context.Context, branchID *uint, status *models.ProcessStatus) ([]models.Process, error) {
	dbq := s.db.WithContext(ctx).Preload("Branch").Preload("Template").Order("created_at desc")
	if branchID != nil {
		dbq = dbq.Where("branch_id = ?", *branchID)
	}
	if status != nil {
		dbq = dbq.Where("status = ?", *status)
	}
	var processes []models.Process
	if err := dbq.Find(&processes).Error; err != nil {
		return nil, err
	}
	return processes, nil
}

// DeleteProcess destroys the process together with its steps. Linked
// activities survive with their process reference cleared.
func (s *ProcessService) DeleteProcess(ctx context.Context, id uint) error {
	var process models.Process
	if err := s.db.WithContext(ctx).First(&process, id).Error; err != nil {
		return wrapNotFound(err, "process")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Activity{}).
			Where("process_id = ?", id).
			Update("process_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("process_id = ?", id).Delete(&models.ProcessStep{}).Error; err != nil {
			return err
		}
		return tx.Delete(&process).Error
	})
}

// loadSteps fetches a process's steps with definitions, sorted by the
// definition order as it stands now.
func loadSteps(tx *gorm.DB, processID uint) ([]models.ProcessStep, error) {
	var steps []models.ProcessStep
	if err := tx.Preload("StepDef").
		Where("process_id = ?", processID).
		Find(&steps).Error; err != nil {
		return nil, err
	}
	sort.Slice(steps, func(i, j int) bool {
		return steps[i].StepDef.StepOrder < steps[j].StepDef.StepOrder
	})
	return steps, nil
}
