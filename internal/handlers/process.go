package handlers

import (
	"net/http"

	"qualiflow/internal/database"
	"qualiflow/internal/models"
	"qualiflow/internal/services"

	"github.com/gin-gonic/gin"
)

type processRequest struct {
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description"`
	TemplateID  uint   `json:"template_id" binding:"required"`
	BranchID    uint   `json:"branch_id" binding:"required"`
	SectorID    *uint  `json:"sector_id"`
}

func (h *Handler) CreateProcess(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	var req processRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload: "+err.Error())
		return
	}

	process, err := h.processes.CreateProcess(c.Request.Context(), services.CreateProcessInput{
		Name:        req.Name,
		Description: req.Description,
		TemplateID:  req.TemplateID,
		BranchID:    req.BranchID,
		SectorID:    req.SectorID,
		CreatedByID: uid,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	database.CreateAuditLog(h.db, uid, "process", process.ID, "create", "created process "+process.Name)
	c.JSON(http.StatusCreated, process)
}

func (h *Handler) ListProcesses(c *gin.Context) {
	var status *models.ProcessStatus
	if raw := c.Query("status"); raw != "" {
		s := models.ProcessStatus(raw)
		switch s {
		case models.ProcessPlanned, models.ProcessInProgress, models.ProcessCompleted, models.ProcessCancelled:
			status = &s
		default:
			badRequest(c, "invalid status filter")
			return
		}
	}

	branchID, ok := queryUint(c, "branch_id")
	if !ok {
		return
	}
	processes, err := h.processes.ListProcesses(c.Request.Context(), branchID, status)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, processes)
}

func (h *Handler) GetProcess(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	process, err := h.processes.GetProcess(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, process)
}

type advanceStepRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) AdvanceProcessStep(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	order, ok := parseID(c, "order")
	if !ok {
		return
	}
	var req advanceStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload: "+err.Error())
		return
	}

	next := models.StepStatus(req.Status)
	switch next {
	case models.StepPending, models.StepInProgress, models.StepDone, models.StepBlocked:
	default:
		badRequest(c, "invalid step status")
		return
	}

	step, err := h.processes.AdvanceStep(c.Request.Context(), id, order, next)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if uid, ok := currentUserID(c); ok {
		database.CreateAuditLog(h.db, uid, "process", id, "advance_step",
			"step "+step.StepDef.Name+" -> "+string(step.Status))
	}
	c.JSON(http.StatusOK, step)
}

func (h *Handler) CancelProcess(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	process, err := h.processes.CancelProcess(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if uid, ok := currentUserID(c); ok {
		database.CreateAuditLog(h.db, uid, "process", id, "cancel", "cancelled process "+process.Name)
	}
	c.JSON(http.StatusOK, process)
}

func (h *Handler) ProcessProgress(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	progress, err := h.processes.Progress(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"process_id": id, "progress": progress})
}

type stepDetailsRequest struct {
	AssignedToID *uint   `json:"assigned_to_id"`
	Notes        *string `json:"notes"`
}

func (h *Handler) UpdateProcessStep(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	order, ok := parseID(c, "order")
	if !ok {
		return
	}
	var req stepDetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload: "+err.Error())
		return
	}

	step, err := h.processes.UpdateStepDetails(c.Request.Context(), id, order, services.StepDetailsInput{
		AssignedToID: req.AssignedToID,
		Notes:        req.Notes,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, step)
}

func (h *Handler) DeleteProcess(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.processes.DeleteProcess(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}

	if uid, ok := currentUserID(c); ok {
		database.CreateAuditLog(h.db, uid, "process", id, "delete", "deleted process")
	}
	c.Status(http.StatusNoContent)
}

// ProcessHistory returns the audit trail of one process.
func (h *Handler) ProcessHistory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if _, err := h.processes.GetProcess(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}

	var logs []models.AuditLog
	if err := h.db.Where("entity = ? AND entity_id = ?", "process", id).
		Preload("User").
		Order("created_at asc").
		Find(&logs).Error; err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}
