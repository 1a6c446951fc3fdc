package handlers

import (
	"net/http"
	"time"

	"qualiflow/internal/database"
	"qualiflow/internal/models"
	"qualiflow/internal/services"

	"github.com/gin-gonic/gin"
)

type activityRequest struct {
	Title        string `json:"title" binding:"required,max=255"`
	Description  string `json:"description"`
	ProcessID    *uint  `json:"process_id"`
	BranchID     uint   `json:"branch_id" binding:"required"`
	SectorID     *uint  `json:"sector_id"`
	AssignedToID *uint  `json:"assigned_to_id"`
	DueDate      string `json:"due_date"` // YYYY-MM-DD
	Status       string `json:"status"`
	Priority     string `json:"priority"`
}

func (r *activityRequest) toInput(c *gin.Context) (services.ActivityInput, bool) {
	in := services.ActivityInput{
		Title:        r.Title,
		Description:  r.Description,
		ProcessID:    r.ProcessID,
		BranchID:     r.BranchID,
		SectorID:     r.SectorID,
		AssignedToID: r.AssignedToID,
	}

	if r.DueDate != "" {
		t, err := time.Parse("2006-01-02", r.DueDate)
		if err != nil {
			badRequest(c, "invalid due_date, expected YYYY-MM-DD")
			return in, false
		}
		in.DueDate = &t
	}

	if r.Status != "" {
		status := models.ActivityStatus(r.Status)
		switch status {
		case models.ActivityTodo, models.ActivityInProgress, models.ActivityReview,
			models.ActivityDone, models.ActivityBlocked:
			in.Status = status
		default:
			badRequest(c, "invalid status")
			return in, false
		}
	}

	if r.Priority != "" {
		priority := models.ActivityPriority(r.Priority)
		switch priority {
		case models.PriorityLow, models.PriorityMedium, models.PriorityHigh, models.PriorityCritical:
			in.Priority = priority
		default:
			badRequest(c, "invalid priority")
			return in, false
		}
	}

	return in, true
}

func (h *Handler) CreateActivity(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	var req activityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload: "+err.Error())
		return
	}
	in, ok := req.toInput(c)
	if !ok {
		return
	}

	activity, err := h.activities.CreateActivity(c.Request.Context(), in, uid)
	if err != nil {
		h.respondError(c, err)
		return
	}

	database.CreateAuditLog(h.db, uid, "activity", activity.ID, "create", "created activity "+activity.Title)
	c.JSON(http.StatusCreated, activity)
}

func (h *Handler) ListActivities(c *gin.Context) {
	processID, ok := queryUint(c, "process_id")
	if !ok {
		return
	}
	branchID, ok := queryUint(c, "branch_id")
	if !ok {
		return
	}
	filter := services.ActivityFilter{
		ProcessID: processID,
		BranchID:  branchID,
	}
	if raw := c.Query("status"); raw != "" {
		s := models.ActivityStatus(raw)
		filter.Status = &s
	}

	activities, err := h.activities.ListActivities(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, activities)
}

func (h *Handler) GetActivity(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	activity, err := h.activities.GetActivity(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, activity)
}

func (h *Handler) UpdateActivity(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req activityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload: "+err.Error())
		return
	}
	in, ok := req.toInput(c)
	if !ok {
		return
	}

	activity, err := h.activities.UpdateActivity(c.Request.Context(), id, in)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if uid, ok := currentUserID(c); ok {
		database.CreateAuditLog(h.db, uid, "activity", activity.ID, "update", "updated activity "+activity.Title)
	}
	c.JSON(http.StatusOK, activity)
}

func (h *Handler) DeleteActivity(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.activities.DeleteActivity(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}

	if uid, ok := currentUserID(c); ok {
		database.CreateAuditLog(h.db, uid, "activity", id, "delete", "deleted activity")
	}
	c.Status(http.StatusNoContent)
}

// ProcessActivityCounts partitions a process's activities into done vs the
// rest.
func (h *Handler) ProcessActivityCounts(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	completed, err := h.activities.CompletedCount(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	pending, err := h.activities.PendingCount(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"process_id": id,
		"completed":  completed,
		"pending":    pending,
	})
}
