// Package handlers adapts HTTP requests to the service layer: bind, call,
// map errors. No business rules live here.
package handlers

import (
	"qualiflow/internal/services"
	"qualiflow/internal/storage"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Handler struct {
	db     *gorm.DB
	store  storage.BlobStore
	logger *zap.Logger

	catalog    *services.CatalogService
	documents  *services.DocumentService
	workflows  *services.WorkflowService
	processes  *services.ProcessService
	activities *services.ActivityService
}

func New(db *gorm.DB, store storage.BlobStore, logger *zap.Logger) *Handler {
	return &Handler{
		db:     db,
		store:  store,
		logger: logger.With(zap.String("component", "handlers")),

		catalog:    services.NewCatalogService(db, logger),
		documents:  services.NewDocumentService(db, logger),
		workflows:  services.NewWorkflowService(db, logger),
		processes:  services.NewProcessService(db, logger),
		activities: services.NewActivityService(db, logger),
	}
}
