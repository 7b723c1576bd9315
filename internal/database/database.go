package database

import (
	"strings"

	"github.com/compasshq/compass-api/internal/config"
	"github.com/compasshq/compass-api/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the database described by cfg.DatabaseURL and returns the
// handle. There is no package-level singleton; callers own the *gorm.DB and
// pass it to whatever needs it.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector

	// Use PostgreSQL if URL starts with postgres, otherwise SQLite
	if strings.HasPrefix(cfg.DatabaseURL, "postgres") {
		dialector = postgres.Open(cfg.DatabaseURL)
	} else {
		dialector = sqlite.Open(cfg.DatabaseURL)
	}

	logMode := logger.Warn
	if cfg.AppEnv == "dev" {
		logMode = logger.Info
	}

	return gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logMode),
	})
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
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
	)
}
