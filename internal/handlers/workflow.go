package handlers

import (
	"net/http"

	"qualiflow/internal/database"
	"qualiflow/internal/services"

	"github.com/gin-gonic/gin"
)

type templateRequest struct {
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description"`
	BranchID    uint   `json:"branch_id" binding:"required"`
	SectorID    *uint  `json:"sector_id"`
}

func (h *Handler) CreateTemplate(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload: "+err.Error())
		return
	}

	template, err := h.workflows.CreateTemplate(c.Request.Context(), services.TemplateInput{
		Name:        req.Name,
		Description: req.Description,
		BranchID:    req.BranchID,
		SectorID:    req.SectorID,
		CreatedByID: uid,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	database.CreateAuditLog(h.db, uid, "workflow_template", template.ID, "create", "created template "+template.Name)
	c.JSON(http.StatusCreated, template)
}

func (h *Handler) ListTemplates(c *gin.Context) {
	branchID, ok := queryUint(c, "branch_id")
	if !ok {
		return
	}
	templates, err := h.workflows.ListTemplates(c.Request.Context(), branchID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, templates)
}

func (h *Handler) GetTemplate(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	template, err := h.workflows.GetTemplate(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, template)
}

func (h *Handler) UpdateTemplate(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload: "+err.Error())
		return
	}

	template, err := h.workflows.UpdateTemplate(c.Request.Context(), id, services.TemplateInput{
		Name:        req.Name,
		Description: req.Description,
		SectorID:    req.SectorID,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, template)
}

func (h *Handler) DeleteTemplate(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.workflows.DeleteTemplate(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}

	if uid, ok := currentUserID(c); ok {
		database.CreateAuditLog(h.db, uid, "workflow_template", id, "delete", "deleted template")
	}
	c.Status(http.StatusNoContent)
}

type stepDefRequest struct {
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description"`
	// Zero or omitted means append at the end.
	Order               uint  `json:"order"`
	ResponsibleSectorID *uint `json:"responsible_sector_id"`
	EstimatedDays       uint  `json:"estimated_days"`
}

func (h *Handler) AddTemplateStep(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req stepDefRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload: "+err.Error())
		return
	}

	step, err := h.workflows.AddStep(c.Request.Context(), id, services.StepDefInput{
		Name:                req.Name,
		Description:         req.Description,
		Order:               req.Order,
		ResponsibleSectorID: req.ResponsibleSectorID,
		EstimatedDays:       req.EstimatedDays,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	if uid, ok := currentUserID(c); ok {
		database.CreateAuditLog(h.db, uid, "workflow_template", id, "add_step", "added step "+step.Name)
	}
	c.JSON(http.StatusCreated, step)
}

func (h *Handler) UpdateTemplateStep(c *gin.Context) {
	stepID, ok := parseID(c, "step_id")
	if !ok {
		return
	}
	var req stepDefRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload: "+err.Error())
		return
	}

	step, err := h.workflows.UpdateStep(c.Request.Context(), stepID, services.StepDefInput{
		Name:                req.Name,
		Description:         req.Description,
		Order:               req.Order,
		ResponsibleSectorID: req.ResponsibleSectorID,
		EstimatedDays:       req.EstimatedDays,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, step)
}

func (h *Handler) DeleteTemplateStep(c *gin.Context) {
	stepID, ok := parseID(c, "step_id")
	if !ok {
		return
	}
	if err := h.workflows.DeleteStep(c.Request.Context(), stepID); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
