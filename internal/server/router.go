package server

import (
	"net/http"

	"qualiflow/internal/config"
	"qualiflow/internal/handlers"
	"qualiflow/internal/middleware"
	"qualiflow/internal/models"
	"qualiflow/internal/storage"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func NewRouter(cfg *config.Config, db *gorm.DB, store storage.BlobStore, logger *zap.Logger) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	sessionStore := cookie.NewStore([]byte(cfg.SessionSecret))
	r.Use(sessions.Sessions("qualiflow_session", sessionStore))
	r.Use(middleware.InjectUser(db))

	h := handlers.New(db, store, logger)

	// AUTH
	r.POST("/register", h.Register)
	r.POST("/login", h.Login)
	r.POST("/logout", h.Logout)

	api := r.Group("/api/v1")
	api.Use(middleware.RequireAuth())

	api.GET("/me", h.Me)

	// catalog: mutations are admin/manager territory
	api.GET("/branches", h.ListBranches)
	api.GET("/branches/:id", h.GetBranch)
	api.POST("/branches",
		middleware.RequireRole(models.RoleAdmin, models.RoleManager),
		h.CreateBranch,
	)
	api.PUT("/branches/:id",
		middleware.RequireRole(models.RoleAdmin, models.RoleManager),
		h.UpdateBranch,
	)
	api.DELETE("/branches/:id",
		middleware.RequireRole(models.RoleAdmin),
		h.DeleteBranch,
	)

	api.GET("/sectors", h.ListSectors)
	api.GET("/sectors/:id", h.GetSector)
	api.POST("/sectors",
		middleware.RequireRole(models.RoleAdmin, models.RoleManager),
		h.CreateSector,
	)
	api.PUT("/sectors/:id",
		middleware.RequireRole(models.RoleAdmin, models.RoleManager),
		h.UpdateSector,
	)
	api.DELETE("/sectors/:id",
		middleware.RequireRole(models.RoleAdmin),
		h.DeleteSector,
	)

	// documents
	api.GET("/documents", h.ListDocuments)
	api.GET("/documents/:id", h.GetDocument)
	api.POST("/documents", h.CreateDocument)
	api.PUT("/documents/:id", h.UpdateDocument)
	api.DELETE("/documents/:id",
		middleware.RequireRole(models.RoleAdmin, models.RoleManager),
		h.DeleteDocument,
	)
	api.POST("/documents/:id/versions", h.AppendDocumentVersion)
	api.GET("/documents/:id/versions/:version/download", h.DownloadDocumentVersion)

	// workflow templates
	api.GET("/workflows", h.ListTemplates)
	api.GET("/workflows/:id", h.GetTemplate)
	api.POST("/workflows",
		middleware.RequireRole(models.RoleAdmin, models.RoleManager),
		h.CreateTemplate,
	)
	api.PUT("/workflows/:id",
		middleware.RequireRole(models.RoleAdmin, models.RoleManager),
		h.UpdateTemplate,
	)
	api.DELETE("/workflows/:id",
		middleware.RequireRole(models.RoleAdmin),
		h.DeleteTemplate,
	)
	api.POST("/workflows/:id/steps",
		middleware.RequireRole(models.RoleAdmin, models.RoleManager),
		h.AddTemplateStep,
	)
	api.PUT("/workflows/:id/steps/:step_id",
		middleware.RequireRole(models.RoleAdmin, models.RoleManager),
		h.UpdateTemplateStep,
	)
	api.DELETE("/workflows/:id/steps/:step_id",
		middleware.RequireRole(models.RoleAdmin, models.RoleManager),
		h.DeleteTemplateStep,
	)

	// processes
	api.GET("/processes", h.ListProcesses)
	api.GET("/processes/:id", h.GetProcess)
	api.POST("/processes", h.CreateProcess)
	api.DELETE("/processes/:id",
		middleware.RequireRole(models.RoleAdmin, models.RoleManager),
		h.DeleteProcess,
	)
	api.POST("/processes/:id/steps/:order/advance", h.AdvanceProcessStep)
	api.PUT("/processes/:id/steps/:order", h.UpdateProcessStep)
	api.POST("/processes/:id/cancel",
		middleware.RequireRole(models.RoleAdmin, models.RoleManager),
		h.CancelProcess,
	)
	api.GET("/processes/:id/progress", h.ProcessProgress)
	api.GET("/processes/:id/history", h.ProcessHistory)
	api.GET("/processes/:id/activity-counts", h.ProcessActivityCounts)

	// activities
	api.GET("/activities", h.ListActivities)
	api.GET("/activities/:id", h.GetActivity)
	api.POST("/activities", h.CreateActivity)
	api.PUT("/activities/:id", h.UpdateActivity)
	api.DELETE("/activities/:id", h.DeleteActivity)

	// admin
	api.GET("/users",
		middleware.RequireRole(models.RoleAdmin),
		h.ListUsers,
	)
	api.GET("/audit",
		middleware.RequireRole(models.RoleAdmin, models.RoleViewer),
		h.ListAuditLogs,
	)

	// HEALTHCHECK
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	return r
}
