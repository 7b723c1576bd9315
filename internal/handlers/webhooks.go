package handlers

import (
	"encoding/json"
	"strconv"

	"github.com/compasshq/compass-api/internal/middleware"
	"github.com/compasshq/compass-api/internal/models"
	"github.com/compasshq/compass-api/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// ReceiveWebhook is the public inbound endpoint: POST /webhooks/:webhookId.
// All pipeline semantics live in services.WebhookPipeline; this handler just
// adapts the HTTP surface.
func (h *Handler) ReceiveWebhook(c *fiber.Ctx) error {
	webhookID := c.Params("webhookId")

	headers := make(map[string]string)
	for key, values := range c.GetReqHeaders() {
		if len(values) > 0 {
			headers[key] = values[0]
		}
	}

	result, err := h.pipeline.Process(webhookID, c.Body(), headers)
	if err != nil {
		if whErr, ok := err.(*services.WebhookError); ok {
			return c.Status(whErr.Status).JSON(fiber.Map{
				"error": whErr.Message,
			})
		}
		h.log.Error().Err(err).Str("webhook_id", webhookID).Msg("webhook receiver failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Webhook processing failed",
		})
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"objective_id": result.ObjectiveID,
		"updates":      result.Updates,
	})
}

// CreateWebhook registers an inbound integration for an objective. The secret
// is generated when omitted.
func (h *Handler) CreateWebhook(c *fiber.Ctx) error {
	orgID := middleware.GetOrgID(c)

	var req models.CreateWebhookRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.ObjectiveID == uuid.Nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "objectiveId is required",
		})
	}

	objective, err := h.findObjective(orgID, req.ObjectiveID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Objective not found",
		})
	}

	integration := models.WebhookIntegration{
		ObjectiveID: objective.ID,
		Secret:      req.Secret,
	}
	if req.FieldMapping != nil {
		data, err := json.Marshal(req.FieldMapping)
		if err == nil {
			s := string(data)
			integration.FieldMapping = &s
		}
	}

	if err := h.db.Create(&integration).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create webhook",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"webhook": integration,
		"url":     h.cfg.BaseURL + "/webhooks/" + integration.WebhookID,
	})
}

func (h *Handler) GetWebhook(c *fiber.Ctx) error {
	orgID := middleware.GetOrgID(c)

	integration, err := h.findIntegration(orgID, c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Webhook not found",
		})
	}

	return c.JSON(integration)
}

func (h *Handler) UpdateWebhook(c *fiber.Ctx) error {
	orgID := middleware.GetOrgID(c)

	integration, err := h.findIntegration(orgID, c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Webhook not found",
		})
	}

	var req models.UpdateWebhookRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.FieldMapping != nil {
		data, err := json.Marshal(req.FieldMapping)
		if err == nil {
			s := string(data)
			integration.FieldMapping = &s
		}
	}
	if req.Status != nil {
		if *req.Status != "active" && *req.Status != "inactive" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid status. Must be: active or inactive",
			})
		}
		integration.Status = *req.Status
	}
	if req.Secret != nil && *req.Secret != "" {
		integration.Secret = *req.Secret
	}

	if err := h.db.Save(integration).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update webhook",
		})
	}

	return c.JSON(integration)
}

func (h *Handler) DeleteWebhook(c *fiber.Ctx) error {
	orgID := middleware.GetOrgID(c)

	integration, err := h.findIntegration(orgID, c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Webhook not found",
		})
	}

	h.db.Where("integration_id = ?", integration.ID).Delete(&models.WebhookEvent{})
	h.db.Delete(integration)

	return c.SendStatus(fiber.StatusNoContent)
}

// GetWebhookEvents returns the delivery history for an integration, newest
// first, with limit/offset paging.
func (h *Handler) GetWebhookEvents(c *fiber.Ctx) error {
	orgID := middleware.GetOrgID(c)

	integration, err := h.findIntegration(orgID, c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Webhook not found",
		})
	}

	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var events []models.WebhookEvent
	h.db.Where("integration_id = ?", integration.ID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&events)

	var total int64
	h.db.Model(&models.WebhookEvent{}).Where("integration_id = ?", integration.ID).Count(&total)

	return c.JSON(fiber.Map{
		"events": events,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// findIntegration resolves a management-API webhook reference (row ID) and
// verifies its objective belongs to the caller's organization.
func (h *Handler) findIntegration(orgID uuid.UUID, param string) (*models.WebhookIntegration, error) {
	id, err := uuid.Parse(param)
	if err != nil {
		return nil, err
	}

	var integration models.WebhookIntegration
	if err := h.db.First(&integration, "id = ?", id).Error; err != nil {
		return nil, err
	}

	if _, err := h.findObjective(orgID, integration.ObjectiveID); err != nil {
		return nil, err
	}
	return &integration, nil
}
