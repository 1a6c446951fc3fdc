package handlers

import (
	"net/http"

	"qualiflow/internal/models"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListAuditLogs(c *gin.Context) {
	dbq := h.db.Preload("User").Order("created_at desc").Limit(200)

	if entity := c.Query("entity"); entity != "" {
		dbq = dbq.Where("entity = ?", entity)
	}
	entityID, ok := queryUint(c, "entity_id")
	if !ok {
		return
	}
	if entityID != nil {
		dbq = dbq.Where("entity_id = ?", *entityID)
	}

	var logs []models.AuditLog
	if err := dbq.Find(&logs).Error; err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}
