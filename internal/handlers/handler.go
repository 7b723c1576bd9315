package handlers

import (
	"strconv"

	"github.com/compasshq/compass-api/internal/config"
	"github.com/compasshq/compass-api/internal/models"
	"github.com/compasshq/compass-api/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Handler carries the dependencies every route needs. Constructed once in
// main; there are no package-level singletons.
type Handler struct {
	db       *gorm.DB
	cfg      *config.Config
	log      zerolog.Logger
	rollup   *services.Rollup
	notifier *services.Notifier
	pipeline *services.WebhookPipeline
	mailer   *services.Mailer
}

func New(db *gorm.DB, cfg *config.Config, log zerolog.Logger, rollup *services.Rollup, notifier *services.Notifier, pipeline *services.WebhookPipeline, mailer *services.Mailer) *Handler {
	return &Handler{
		db:       db,
		cfg:      cfg,
		log:      log,
		rollup:   rollup,
		notifier: notifier,
		pipeline: pipeline,
		mailer:   mailer,
	}
}

// findObjective loads an objective scoped to the caller's organization.
// Cross-tenant IDs read as not found.
func (h *Handler) findObjective(orgID, objectiveID uuid.UUID) (*models.Objective, error) {
	var objective models.Objective
	err := h.db.Where("id = ? AND organization_id = ?", objectiveID, orgID).First(&objective).Error
	if err != nil {
		return nil, err
	}
	return &objective, nil
}

// pagination parses page/limit query params clamped to sane bounds.
func pagination(c *fiber.Ctx) (page, limit, offset int) {
	page, _ = strconv.Atoi(c.Query("page", "1"))
	limit, _ = strconv.Atoi(c.Query("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = 20
	}
	return page, limit, (page - 1) * limit
}
