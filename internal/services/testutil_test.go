package services

import (
	"testing"

	"qualiflow/internal/database"
	"qualiflow/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a fresh in-memory database per test. A single connection
// keeps the shared :memory: instance alive and serializes transactions.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func seedUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	user := models.User{
		Username:     username,
		PasswordHash: "x",
		Role:         models.RoleOperator,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedBranch(t *testing.T, db *gorm.DB, code string) models.Branch {
	t.Helper()
	branch := models.Branch{Code: code, Name: "Branch " + code}
	require.NoError(t, db.Create(&branch).Error)
	return branch
}

func seedSector(t *testing.T, db *gorm.DB, branch models.Branch, name string) models.Sector {
	t.Helper()
	sector := models.Sector{BranchID: branch.ID, Name: name}
	require.NoError(t, db.Create(&sector).Error)
	return sector
}

// seedTemplate creates a template with n steps ordered 1..n.
func seedTemplate(t *testing.T, db *gorm.DB, branch models.Branch, user models.User, n int) models.WorkflowTemplate {
	t.Helper()
	template := models.WorkflowTemplate{
		Name:        "Template",
		BranchID:    branch.ID,
		CreatedByID: user.ID,
	}
	require.NoError(t, db.Create(&template).Error)

	for i := 1; i <= n; i++ {
		step := models.WorkflowStepDef{
			TemplateID: template.ID,
			StepOrder:  uint(i),
			Name:       "Step " + string(rune('A'+i-1)),
		}
		require.NoError(t, db.Create(&step).Error)
	}
	return template
}
