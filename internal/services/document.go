package services

import (
	"context"
	"errors"
	"fmt"

	"qualiflow/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// errVersionRace signals that the compare-and-increment on current_version
// lost against a concurrent append; the caller retries with fresh state.
var errVersionRace = errors.New("document version raced")

const maxAppendAttempts = 10

// DocumentService owns the version history of controlled documents.
// Versions per document are gapless, strictly increasing and start at 1;
// CurrentVersion always points at the highest existing version.
type DocumentService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewDocumentService(db *gorm.DB, logger *zap.Logger) *DocumentService {
	return &DocumentService{
		db:     db,
		logger: logger.With(zap.String("service", "document")),
	}
}

type CreateDocumentInput struct {
	Title       string
	Description string
	BranchID    uint
	SectorID    *uint
	CreatedByID uint

	// Blob reference and notes for version 1.
	FileRef string
	Notes   string
}

// CreateDocument creates the document together with its first version, so
// the {1..current_version} invariant holds from the start.
func (s *DocumentService) CreateDocument(ctx context.Context, in CreateDocumentInput) (*models.Document, error) {
	if err := s.db.WithContext(ctx).First(&models.Branch{}, in.BranchID).Error; err != nil {
		return nil, wrapNotFound(err, "branch")
	}
	if in.SectorID != nil {
		if err := s.db.WithContext(ctx).First(&models.Sector{}, *in.SectorID).Error; err != nil {
			return nil, wrapNotFound(err, "sector")
		}
	}

	doc := models.Document{
		Title:          in.Title,
		Description:    in.Description,
		BranchID:       in.BranchID,
		SectorID:       in.SectorID,
		CreatedByID:    in.CreatedByID,
		CurrentVersion: 1,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&doc).Error; err != nil {
			return err
		}
		first := models.DocumentVersion{
			DocumentID:   doc.ID,
			Version:      1,
			FileRef:      in.FileRef,
			Notes:        in.Notes,
			UploadedByID: in.CreatedByID,
		}
		return tx.Create(&first).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("document created", zap.Uint("document_id", doc.ID), zap.String("title", doc.Title))
	return &doc, nil
}

// AppendVersion adds the next version of a document and advances the
// current-version pointer. The version insert and the pointer update share
// one transaction, guarded by a compare-and-increment on current_version so
// concurrent appends never duplicate or skip a number.
func (s *DocumentService) AppendVersion(ctx context.Context, documentID uint, fileRef, notes string, uploaderID uint) (*models.DocumentVersion, error) {
	for attempt := 0; attempt < maxAppendAttempts; attempt++ {
		var doc models.Document
		if err := s.db.WithContext(ctx).First(&doc, documentID).Error; err != nil {
			return nil, wrapNotFound(err, "document")
		}

		next := doc.CurrentVersion + 1
		version := models.DocumentVersion{
			DocumentID:   doc.ID,
			Version:      next,
			FileRef:      fileRef,
			Notes:        notes,
			UploadedByID: uploaderID,
		}

		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&models.Document{}).
				Where("id = ? AND current_version = ?", doc.ID, doc.CurrentVersion).
				Update("current_version", next)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errVersionRace
			}
			return tx.Create(&version).Error
		})
		if errors.Is(err, errVersionRace) {
			continue
		}
		if err != nil {
			return nil, err
		}

		s.logger.Info("document version appended",
			zap.Uint("document_id", doc.ID),
			zap.Uint("version", next))
		return &version, nil
	}
	return nil, fmt.Errorf("document %d: append contention not resolved after %d attempts", documentID, maxAppendAttempts)
}

func (s *DocumentService) GetDocument(ctx context.Context, id uint) (*models.Document, error) {
	var doc models.Document
	err := s.db.WithContext(ctx).
		Preload("Branch").
		Preload("Sector").
		Preload("CreatedBy").
		Preload("Versions", func(db *gorm.DB) *gorm.DB {
			return db.Order("version desc")
		}).
		First(&doc, id).Error
	if err != nil {
		return nil, wrapNotFound(err, "document")
	}
	return &doc, nil
}

func (s *DocumentService) ListDocuments(ctx context.Context, branchID *uint) ([]models.Document, error) {
	dbq := s.db.WithContext(ctx).Preload("Branch").Preload("Sector").Order("updated_at desc")
	if branchID != nil {
		dbq = dbq.Where("branch_id = ?", *branchID)
	}
	var docs []models.Document
	if err := dbq.Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

type UpdateDocumentInput struct {
	Title       string
	Description string
	SectorID    *uint
}

// UpdateDocument edits metadata only; the version history is append-only.
func (s *DocumentService) UpdateDocument(ctx context.Context, id uint, in UpdateDocumentInput) (*models.Document, error) {
	var doc models.Document
	if err := s.db.WithContext(ctx).First(&doc, id).Error; err != nil {
		return nil, wrapNotFound(err, "document")
	}
	if in.SectorID != nil {
		if err := s.db.WithContext(ctx).First(&models.Sector{}, *in.SectorID).Error; err != nil {
			return nil, wrapNotFound(err, "sector")
		}
	}

	doc.Title = in.Title
	doc.Description = in.Description
	doc.SectorID = in.SectorID
	if err := s.db.WithContext(ctx).Save(&doc).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

// DeleteDocument removes the document and its whole version history.
func (s *DocumentService) DeleteDocument(ctx context.Context, id uint) error {
	var doc models.Document
	if err := s.db.WithContext(ctx).First(&doc, id).Error; err != nil {
		return wrapNotFound(err, "document")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", doc.ID).Delete(&models.DocumentVersion{}).Error; err != nil {
			return err
		}
		return tx.Delete(&doc).Error
	})
}
