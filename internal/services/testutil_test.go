package services

import (
	"testing"

	"github.com/compasshq/compass-api/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Organization{},
		&models.User{},
		&models.Department{},
		&models.Objective{},
		&models.KeyResult{},
		&models.ObjectiveContributor{},
		&models.ObjectiveSubscription{},
		&models.ProgressUpdate{},
		&models.Comment{},
		&models.WebhookIntegration{},
		&models.WebhookEvent{},
		&models.Notification{},
		&models.Invitation{},
	))

	return db
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func seedOrg(t *testing.T, db *gorm.DB) models.Organization {
	t.Helper()
	org := models.Organization{Name: "Acme", Slug: "acme-" + uuid.NewString()[:8]}
	require.NoError(t, db.Create(&org).Error)
	return org
}

func seedUser(t *testing.T, db *gorm.DB, org models.Organization, name, email string) models.User {
	t.Helper()
	user := models.User{
		OrganizationID: org.ID,
		Email:          email,
		Name:           name,
		Role:           "member",
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedObjective(t *testing.T, db *gorm.DB, org models.Organization, owner models.User, target float64) models.Objective {
	t.Helper()
	objective := models.Objective{
		OrganizationID: org.ID,
		Title:          "Grow revenue",
		OwnerID:        owner.ID,
		Status:         "active",
		Priority:       "high",
		TargetValue:    target,
	}
	require.NoError(t, db.Create(&objective).Error)
	return objective
}
