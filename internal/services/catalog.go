package services

import (
	"context"
	"fmt"

	"qualiflow/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CatalogService manages the branch/sector reference data everything else
// points at.
type CatalogService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewCatalogService(db *gorm.DB, logger *zap.Logger) *CatalogService {
	return &CatalogService{
		db:     db,
		logger: logger.With(zap.String("service", "catalog")),
	}
}

type BranchInput struct {
	Code        string
	Name        string
	Description string
	Address     string
}

func (s *CatalogService) CreateBranch(ctx context.Context, in BranchInput) (*models.Branch, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Branch{}).
		Where("code = ?", in.Code).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, fmt.Errorf("branch code %q: %w", in.Code, ErrAlreadyExists)
	}

	branch := models.Branch{
		Code:        in.Code,
		Name:        in.Name,
		Description: in.Description,
		Address:     in.Address,
	}
	if err := s.db.WithContext(ctx).Create(&branch).Error; err != nil {
		return nil, err
	}

	s.logger.Info("branch created", zap.Uint("branch_id", branch.ID), zap.String("code", branch.Code))
	return &branch, nil
}

func (s *CatalogService) GetBranch(ctx context.Context, id uint) (*models.Branch, error) {
	var branch models.Branch
	if err := s.db.WithContext(ctx).Preload("Sectors").First(&branch, id).Error; err != nil {
		return nil, wrapNotFound(err, "branch")
	}
	return &branch, nil
}

func (s *CatalogService) ListBranches(ctx context.Context) ([]models.Branch, error) {
	var branches []models.Branch
	if err := s.db.WithContext(ctx).Order("name asc").Find(&branches).Error; err != nil {
		return nil, err
	}
	return branches, nil
}

func (s *CatalogService) UpdateBranch(ctx context.Context, id uint, in BranchInput) (*models.Branch, error) {
	var branch models.Branch
	if err := s.db.WithContext(ctx).First(&branch, id).Error; err != nil {
		return nil, wrapNotFound(err, "branch")
	}

	if in.Code != branch.Code {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Branch{}).
			Where("code = ? AND id <> ?", in.Code, branch.ID).
			Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, fmt.Errorf("branch code %q: %w", in.Code, ErrAlreadyExists)
		}
	}

	branch.Code = in.Code
	branch.Name = in.Name
	branch.Description = in.Description
	branch.Address = in.Address
	if err := s.db.WithContext(ctx).Save(&branch).Error; err != nil {
		return nil, err
	}
	return &branch, nil
}

// DeleteBranch refuses to drop a branch that anything still points at.
func (s *CatalogService) DeleteBranch(ctx context.Context, id uint) error {
	var branch models.Branch
	if err := s.db.WithContext(ctx).First(&branch, id).Error; err != nil {
		return wrapNotFound(err, "branch")
	}

	dependents := []struct {
		model any
		what  string
	}{
		{&models.Sector{}, "sectors"},
		{&models.Document{}, "documents"},
		{&models.WorkflowTemplate{}, "workflow templates"},
		{&models.Process{}, "processes"},
		{&models.Activity{}, "activities"},
	}
	for _, d := range dependents {
		var count int64
		if err := s.db.WithContext(ctx).Model(d.model).
			Where("branch_id = ?", id).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("branch %d has %s: %w", id, d.what, ErrReferentialConflict)
		}
	}

	return s.db.WithContext(ctx).Delete(&branch).Error
}

type SectorInput struct {
	BranchID    uint
	Name        string
	Description string
}

func (s *CatalogService) CreateSector(ctx context.Context, in SectorInput) (*models.Sector, error) {
	if err := s.db.WithContext(ctx).First(&models.Branch{}, in.BranchID).Error; err != nil {
		return nil, wrapNotFound(err, "branch")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Sector{}).
		Where("branch_id = ? AND name = ?", in.BranchID, in.Name).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, fmt.Errorf("sector %q in branch %d: %w", in.Name, in.BranchID, ErrAlreadyExists)
	}

	sector := models.Sector{
		BranchID:    in.BranchID,
		Name:        in.Name,
		Description: in.Description,
	}
	if err := s.db.WithContext(ctx).Create(&sector).Error; err != nil {
		return nil, err
	}

	s.logger.Info("sector created", zap.Uint("sector_id", sector.ID), zap.Uint("branch_id", in.BranchID))
	return &sector, nil
}

func (s *CatalogService) GetSector(ctx context.Context, id uint) (*models.Sector, error) {
	var sector models.Sector
	if err := s.db.WithContext(ctx).Preload("Branch").First(&sector, id).Error; err != nil {
		return nil, wrapNotFound(err, "sector")
	}
	return &sector, nil
}

func (s *CatalogService) ListSectors(ctx context.Context, branchID *uint) ([]models.Sector, error) {
	dbq := s.db.WithContext(ctx).Preload("Branch").Order("name asc")
	if branchID != nil {
		dbq = dbq.Where("branch_id = ?", *branchID)
	}
	var sectors []models.Sector
	if err := dbq.Find(&sectors).Error; err != nil {
		return nil, err
	}
	return sectors, nil
}

func (s *CatalogService) UpdateSector(ctx context.Context, id uint, in SectorInput) (*models.Sector, error) {
	var sector models.Sector
	if err := s.db.WithContext(ctx).First(&sector, id).Error; err != nil {
		return nil, wrapNotFound(err, "sector")
	}

	if in.Name != sector.Name || in.BranchID != sector.BranchID {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Sector{}).
			Where("branch_id = ? AND name = ? AND id <> ?", in.BranchID, in.Name, sector.ID).
			Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, fmt.Errorf("sector %q in branch %d: %w", in.Name, in.BranchID, ErrAlreadyExists)
		}
	}

	sector.BranchID = in.BranchID
	sector.Name = in.Name
	sector.Description = in.Description
	if err := s.db.WithContext(ctx).Save(&sector).Error; err != nil {
		return nil, err
	}
	return &sector, nil
}

func (s *CatalogService) DeleteSector(ctx context.Context, id uint) error {
	var sector models.Sector
	if err := s.db.WithContext(ctx).First(&sector, id).Error; err != nil {
		return wrapNotFound(err, "sector")
	}

	dependents := []struct {
		model  any
		column string
		what   string
	}{
		{&models.Document{}, "sector_id", "documents"},
		{&models.WorkflowTemplate{}, "sector_id", "workflow templates"},
		{&models.WorkflowStepDef{}, "responsible_sector_id", "workflow steps"},
		{&models.Process{}, "sector_id", "processes"},
		{&models.Activity{}, "sector_id", "activities"},
	}
	for _, d := range dependents {
		var count int64
		if err := s.db.WithContext(ctx).Model(d.model).
			Where(d.column+" = ?", id).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("sector %d has %s: %w", id, d.what, ErrReferentialConflict)
		}
	}

	return s.db.WithContext(ctx).Delete(&sector).Error
}
