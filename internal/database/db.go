package database

import (
	"fmt"
	"os"
	"time"

	"qualiflow/internal/models"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Init connects to Postgres with a bounded retry loop, runs migrations and
// seeds the default admin account.
func Init(dsn string, logger *zap.Logger) (*gorm.DB, error) {
	const maxAttempts = 10

	var db *gorm.DB
	var err error
	for i := 1; i <= maxAttempts; i++ {
		logger.Info("connecting to database", zap.Int("attempt", i), zap.Int("max", maxAttempts))

		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
		if err == nil {
			break
		}

		logger.Warn("database connection failed", zap.Error(err))
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("connect after %d attempts: %w", maxAttempts, err)
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	seedDefaultAdmin(db, logger)
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Branch{},
		&models.Sector{},
		&models.Document{},
		&models.DocumentVersion{},
		&models.WorkflowTemplate{},
		&models.WorkflowStepDef{},
		&models.Process{},
		&models.ProcessStep{},
		&models.Activity{},
		&models.AuditLog{},
	)
}

// seedDefaultAdmin creates the bootstrap admin from env when no admin
// exists yet.
func seedDefaultAdmin(db *gorm.DB, logger *zap.Logger) {
	username := os.Getenv("ADMIN_USERNAME")
	if username == "" {
		username = "admin@qualiflow.local"
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "Admin123!"
	}

	var count int64
	if err := db.Model(&models.User{}).
		Where("role = ?", models.RoleAdmin).
		Count(&count).Error; err != nil {
		logger.Warn("failed to check admin user", zap.Error(err))
		return
	}
	if count > 0 {
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logger.Warn("failed to hash default admin password", zap.Error(err))
		return
	}

	admin := models.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
	}
	if err := db.Create(&admin).Error; err != nil {
		logger.Warn("failed to create default admin", zap.Error(err))
		return
	}

	logger.Info("created default admin user", zap.String("username", username))
}
