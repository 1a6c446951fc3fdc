package services

import (
	"context"
	"fmt"

	"qualiflow/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// WorkflowService manages reusable workflow templates and their ordered
// step definitions. Templates are edited independently of the processes
// instantiated from them; a step referenced by process steps can no longer
// be deleted.
type WorkflowService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewWorkflowService(db *gorm.DB, logger *zap.Logger) *WorkflowService {
	return &WorkflowService{
		db:     db,
		logger: logger.With(zap.String("service", "workflow")),
	}
}

type TemplateInput struct {
	Name        string
	Description string
	BranchID    uint
	SectorID    *uint
	CreatedByID uint
}

func (s *WorkflowService) CreateTemplate(ctx context.Context, in TemplateInput) (*models.WorkflowTemplate, error) {
	if err := s.db.WithContext(ctx).First(&models.Branch{}, in.BranchID).Error; err != nil {
		return nil, wrapNotFound(err, "branch")
	}
	if in.SectorID != nil {
		if err := s.db.WithContext(ctx).First(&models.Sector{}, *in.SectorID).Error; err != nil {
			return nil, wrapNotFound(err, "sector")
		}
	}

	template := models.WorkflowTemplate{
		Name:        in.Name,
		Description: in.Description,
		BranchID:    in.BranchID,
		SectorID:    in.SectorID,
		CreatedByID: in.CreatedByID,
	}
	if err := s.db.WithContext(ctx).Create(&template).Error; err != nil {
		return nil, err
	}

	s.logger.Info("template created", zap.Uint("template_id", template.ID), zap.String("name", template.Name))
	return &template, nil
}

func (s *WorkflowService) GetTemplate(ctx context.Context, id uint) (*models.WorkflowTemplate, error) {
	var template models.WorkflowTemplate
	err := s.db.WithContext(ctx).
		Preload("Branch").
		Preload("Sector").
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("step_order asc")
		}).
		First(&template, id).Error
	if err != nil {
		return nil, wrapNotFound(err, "workflow template")
	}
	return &template, nil
}

func (s *WorkflowService) ListTemplates(ctx context.Context, branchID *uint) ([]models.WorkflowTemplate, error) {
	dbq := s.db.WithContext(ctx).Preload("Branch").Order("name asc")
	if branchID != nil {
		dbq = dbq.Where("branch_id = ?", *branchID)
	}
	var templates []models.WorkflowTemplate
	if err := dbq.Find(&templates).Error; err != nil {
		return nil, err
	}
	return templates, nil
}

func (s *WorkflowService) UpdateTemplate(ctx context.Context, id uint, in TemplateInput) (*models.WorkflowTemplate, error) {
	var template models.WorkflowTemplate
	if err := s.db.WithContext(ctx).First(&template, id).Error; err != nil {
		return nil, wrapNotFound(err, "workflow template")
	}

	template.Name = in.Name
	template.Description = in.Description
	template.SectorID = in.SectorID
	if err := s.db.WithContext(ctx).Save(&template).Error; err != nil {
		return nil, err
	}
	return &template, nil
}

// DeleteTemplate is blocked while processes still reference the template,
// so historical process steps stay resolvable.
func (s *WorkflowService) DeleteTemplate(ctx context.Context, id uint) error {
	var template models.WorkflowTemplate
	if err := s.db.WithContext(ctx).First(&template, id).Error; err != nil {
		return wrapNotFound(err, "workflow template")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Process{}).
		Where("template_id = ?", id).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("template %d has processes: %w", id, ErrReferentialConflict)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("template_id = ?", id).Delete(&models.WorkflowStepDef{}).Error; err != nil {
			return err
		}
		return tx.Delete(&template).Error
	})
}

type StepDefInput struct {
	Name        string
	Description string
	// Zero means "append after the highest existing order".
	Order               uint
	ResponsibleSectorID *uint
	EstimatedDays       uint
}

// AddStep appends a step definition to a template. Omitted order resolves
// to max+1 (1 for an empty template); an explicit colliding order fails
// with ErrDuplicateOrder.
func (s *WorkflowService) AddStep(ctx context.Context, templateID uint, in StepDefInput) (*models.WorkflowStepDef, error) {
	if err := s.db.WithContext(ctx).First(&models.WorkflowTemplate{}, templateID).Error; err != nil {
		return nil, wrapNotFound(err, "workflow template")
	}
	if in.ResponsibleSectorID != nil {
		if err := s.db.WithContext(ctx).First(&models.Sector{}, *in.ResponsibleSectorID).Error; err != nil {
			return nil, wrapNotFound(err, "sector")
		}
	}

	var step models.WorkflowStepDef
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order := in.Order
		if order == 0 {
			var max uint
			if err := tx.Model(&models.WorkflowStepDef{}).
				Where("template_id = ?", templateID).
				Select("COALESCE(MAX(step_order), 0)").
				Scan(&max).Error; err != nil {
				return err
			}
			order = max + 1
		} else {
			var count int64
			if err := tx.Model(&models.WorkflowStepDef{}).
				Where("template_id = ? AND step_order = ?", templateID, order).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return fmt.Errorf("template %d order %d: %w", templateID, order, ErrDuplicateOrder)
			}
		}

		step = models.WorkflowStepDef{
			TemplateID:          templateID,
			StepOrder:           order,
			Name:                in.Name,
			Description:         in.Description,
			ResponsibleSectorID: in.ResponsibleSectorID,
			EstimatedDays:       in.EstimatedDays,
		}
		return tx.Create(&step).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("template step added",
		zap.Uint("template_id", templateID),
		zap.Uint("step_id", step.ID),
		zap.Uint("order", step.StepOrder))
	return &step, nil
}

// UpdateStep edits a step definition in place. Reordering never touches
// process steps already materialized from this definition; their display
// order follows the definition at read time.
func (s *WorkflowService) UpdateStep(ctx context.Context, stepID uint, in StepDefInput) (*models.WorkflowStepDef, error) {
	var step models.WorkflowStepDef
	if err := s.db.WithContext(ctx).First(&step, stepID).Error; err != nil {
		return nil, wrapNotFound(err, "workflow step")
	}

	if in.Order != 0 && in.Order != step.StepOrder {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.WorkflowStepDef{}).
			Where("template_id = ? AND step_order = ? AND id <> ?", step.TemplateID, in.Order, step.ID).
			Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, fmt.Errorf("template %d order %d: %w", step.TemplateID, in.Order, ErrDuplicateOrder)
		}
		step.StepOrder = in.Order
	}

	step.Name = in.Name
	step.Description = in.Description
	step.ResponsibleSectorID = in.ResponsibleSectorID
	step.EstimatedDays = in.EstimatedDays
	if err := s.db.WithContext(ctx).Save(&step).Error; err != nil {
		return nil, err
	}
	return &step, nil
}

// DeleteStep refuses while process steps reference the definition.
func (s *WorkflowService) DeleteStep(ctx context.Context, stepID uint) error {
	var step models.WorkflowStepDef
	if err := s.db.WithContext(ctx).First(&step, stepID).Error; err != nil {
		return wrapNotFound(err, "workflow step")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.ProcessStep{}).
		Where("step_def_id = ?", stepID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("workflow step %d has process steps: %w", stepID, ErrReferentialConflict)
	}

	return s.db.WithContext(ctx).Delete(&step).Error
}
