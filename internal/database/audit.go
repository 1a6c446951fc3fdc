package database

import (
	"qualiflow/internal/models"

	"gorm.io/gorm"
)

// CreateAuditLog appends an audit record; audit failures never block the
// operation that triggered them.
func CreateAuditLog(db *gorm.DB, userID uint, entity string, entityID uint, action, details string) {
	if db == nil {
		return
	}
	record := models.AuditLog{
		UserID:   userID,
		Entity:   entity,
		EntityID: entityID,
		Action:   action,
		Details:  details,
	}
	_ = db.Create(&record).Error
}
