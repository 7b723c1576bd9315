package handlers

import (
	"github.com/compasshq/compass-api/internal/middleware"
	"github.com/compasshq/compass-api/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func (h *Handler) GetKeyResults(c *fiber.Ctx) error {
	orgID := middleware.GetOrgID(c)
	objectiveID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid objective ID",
		})
	}

	if _, err := h.findObjective(orgID, objectiveID); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Objective not found",
		})
	}

	var keyResults []models.KeyResult
	h.db.Where("objective_id = ?", objectiveID).Order("created_at ASC").Find(&keyResults)

	return c.JSON(keyResults)
}

func (h *Handler) CreateKeyResult(c *fiber.Ctx) error {
	orgID := middleware.GetOrgID(c)
	objectiveID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid objective ID",
		})
	}

	objective, err := h.findObjective(orgID, objectiveID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Objective not found",
		})
	}

	var req models.CreateKeyResultRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Title is required",
		})
	}

	keyResult := models.KeyResult{
		ObjectiveID: objective.ID,
		Title:       req.Title,
		Unit:        req.Unit,
		TargetValue: 100,
	}
	if req.TargetValue != nil {
		keyResult.TargetValue = *req.TargetValue
	}
	if req.CurrentValue != nil {
		keyResult.CurrentValue = *req.CurrentValue
	}
	if req.AutoUpdateProgress != nil {
		keyResult.AutoUpdateProgress = *req.AutoUpdateProgress
	} else {
		keyResult.AutoUpdateProgress = true
	}
	keyResult.RecomputeProgress()

	if err := h.db.Create(&keyResult).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create key result",
		})
	}

	h.rollup.Recalculate(objective.ID)

	return c.Status(fiber.StatusCreated).JSON(keyResult)
}

func (h *Handler) UpdateKeyResult(c *fiber.Ctx) error {
	orgID := middleware.GetOrgID(c)
	keyResultID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid key result ID",
		})
	}

	keyResult, objective, err := h.findKeyResult(orgID, keyResultID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Key result not found",
		})
	}

	var req models.UpdateKeyResultRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Title != nil {
		keyResult.Title = *req.Title
	}
	if req.Unit != nil {
		keyResult.Unit = *req.Unit
	}
	if req.Status != nil {
		keyResult.Status = *req.Status
	}
	if req.TargetValue != nil {
		keyResult.TargetValue = *req.TargetValue
	}
	if req.CurrentValue != nil {
		keyResult.CurrentValue = *req.CurrentValue
	}
	if req.AutoUpdateProgress != nil {
		keyResult.AutoUpdateProgress = *req.AutoUpdateProgress
	}
	if keyResult.AutoUpdateProgress {
		keyResult.RecomputeProgress()
	}

	if err := h.db.Save(keyResult).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update key result",
		})
	}

	h.rollup.Recalculate(objective.ID)

	return c.JSON(keyResult)
}

func (h *Handler) DeleteKeyResult(c *fiber.Ctx) error {
	orgID := middleware.GetOrgID(c)
	keyResultID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid key result ID",
		})
	}

	keyResult, objective, err := h.findKeyResult(orgID, keyResultID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Key result not found",
		})
	}

	h.db.Delete(keyResult)
	h.rollup.Recalculate(objective.ID)

	return c.SendStatus(fiber.StatusNoContent)
}

// findKeyResult loads a key result along with its objective, scoped to the
// caller's organization.
func (h *Handler) findKeyResult(orgID, keyResultID uuid.UUID) (*models.KeyResult, *models.Objective, error) {
	var keyResult models.KeyResult
	if err := h.db.First(&keyResult, "id = ?", keyResultID).Error; err != nil {
		return nil, nil, err
	}
	objective, err := h.findObjective(orgID, keyResult.ObjectiveID)
	if err != nil {
		return nil, nil, err
	}
	return &keyResult, objective, nil
}
