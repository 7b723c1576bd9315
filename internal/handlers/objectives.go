package handlers

import (
	"fmt"
	"time"

	"github.com/compasshq/compass-api/internal/middleware"
	"github.com/compasshq/compass-api/internal/models"
	"github.com/compasshq/compass-api/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func (h *Handler) GetObjectives(c *fiber.Ctx) error {
	orgID := middleware.GetOrgID(c)

	query := h.db.Where("organization_id = ?", orgID)

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if dept := c.Query("department_id"); dept != "" {
		if deptID, err := uuid.Parse(dept); err == nil {
			query = query.Where("department_id = ?", deptID)
		}
	}
	if owner := c.Query("owner_id"); owner != "" {
		if ownerID, err := uuid.Parse(owner); err == nil {
			query = query.Where("owner_id = ?", ownerID)
		}
	}
	if parent := c.Query("parent_id"); parent != "" {
		if parentID, err := uuid.Parse(parent); err == nil {
			query = query.Where("parent_id = ?", parentID)
		}
	}
	if tag := c.Query("tag"); tag != "" {
		query = query.Where("tags LIKE ?", "%\""+tag+"\"%")
	}
	if q := c.Query("q"); q != "" {
		query = query.Where("title LIKE ?", "%"+q+"%")
	}

	var objectives []models.Objective
	if err := query.Preload("Owner").Order("created_at DESC").Find(&objectives).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch objectives",
		})
	}

	return c.JSON(objectives)
}

func (h *Handler) GetObjective(c *fiber.Ctx) error {
	orgID := middleware.GetOrgID(c)
	objectiveID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid objective ID",
		})
	}

	var objective models.Objective
	if err := h.db.Where("id = ? AND organization_id = ?", objectiveID, orgID).
		Preload("Owner").
		Preload("KeyResults").
		Preload("Children").
		First(&objective).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Objective not found",
		})
	}

	return c.JSON(objective)
}

func (h *Handler) CreateObjective(c *fiber.Ctx) error {
	orgID := middleware.GetOrgID(c)
	userID := middleware.GetUserID(c)

	var req models.CreateObjectiveRequest
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

	objective := models.Objective{
		OrganizationID: orgID,
		Title:          req.Title,
		Description:    req.Description,
		OwnerID:        userID,
		DepartmentID:   req.DepartmentID,
		StartDate:      req.StartDate,
		DueDate:        req.DueDate,
		Status:         "draft",
		Priority:       "medium",
		TargetValue:    100,
	}
	if req.OwnerID != nil {
		objective.OwnerID = *req.OwnerID
	}
	if req.Status != nil {
		if !models.ValidObjectiveStatuses[*req.Status] {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid status. Must be: draft, active, on_hold, or completed",
			})
		}
		objective.Status = *req.Status
	}
	if req.Priority != nil {
		if !models.ValidPriorities[*req.Priority] {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid priority. Must be: low, medium, or high",
			})
		}
		objective.Priority = *req.Priority
	}
	if req.TargetValue != nil {
		objective.TargetValue = *req.TargetValue
	}
	if req.Tags != nil {
		objective.SetTags(req.Tags)
	}
	if req.ParentID != nil {
		if _, err := h.findObjective(orgID, *req.ParentID); err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Parent objective not found",
			})
		}
		objective.ParentID = req.ParentID
	}
	if objective.Status == "completed" {
		now := time.Now()
		objective.CompletedAt = &now
	}

	if err := h.db.Create(&objective).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create objective",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(objective)
}

func (h *Handler) UpdateObjective(c *fiber.Ctx) error {
	orgID := middleware.GetOrgID(c)
	userID := middleware.GetUserID(c)
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

	var req models.UpdateObjectiveRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Title != nil {
		objective.Title = *req.Title
	}
	if req.Description != nil {
		objective.Description = *req.Description
	}
	if req.OwnerID != nil {
		objective.OwnerID = *req.OwnerID
	}
	if req.DepartmentID != nil {
		objective.DepartmentID = req.DepartmentID
	}
	if req.ParentID != nil {
		if *req.ParentID == objective.ID {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "An objective cannot be its own parent",
			})
		}
		if _, err := h.findObjective(orgID, *req.ParentID); err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Parent objective not found",
			})
		}
		objective.ParentID = req.ParentID
	}
	if req.Status != nil {
		if !models.ValidObjectiveStatuses[*req.Status] {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid status. Must be: draft, active, on_hold, or completed",
			})
		}
		// Soft-complete: stamp the transition into completed
		if *req.Status == "completed" && objective.Status != "completed" {
			now := time.Now()
			objective.CompletedAt = &now
		}
		if *req.Status != "completed" {
			objective.CompletedAt = nil
		}
		objective.Status = *req.Status
	}
	if req.Priority != nil {
		if !models.ValidPriorities[*req.Priority] {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid priority. Must be: low, medium, or high",
			})
		}
		objective.Priority = *req.Priority
	}
	if req.StartDate != nil {
		objective.StartDate = req.StartDate
	}
	if req.DueDate != nil {
		objective.DueDate = req.DueDate
	}
	if req.TargetValue != nil {
		objective.TargetValue = *req.TargetValue
	}
	if req.Tags != nil {
		objective.SetTags(req.Tags)
	}

	if err := h.db.Save(objective).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update objective",
		})
	}

	h.notifier.FanOut(objective, &userID, services.Event{
		Type:        "objective_update",
		Title:       "Objective updated",
		Body:        fmt.Sprintf("%q was updated", objective.Title),
		ObjectiveID: objective.ID,
	})

	return c.JSON(objective)
}

// PatchProgress sets current_value directly, recomputes derived progress, and
// records the transition in the audit trail.
func (h *Handler) PatchProgress(c *fiber.Ctx) error {
	orgID := middleware.GetOrgID(c)
	userID := middleware.GetUserID(c)
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

	var req models.PatchProgressRequest
	if err := c.BodyParser(&req); err != nil || req.CurrentValue == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "currentValue is required",
		})
	}

	previousValue := objective.CurrentValue
	previousProgress := objective.ProgressPercentage

	objective.CurrentValue = *req.CurrentValue
	if objective.TargetValue > 0 {
		progress := objective.CurrentValue / objective.TargetValue * 100
		if progress > 100 {
			progress = 100
		}
		if progress < 0 {
			progress = 0
		}
		objective.ProgressPercentage = progress
	}

	if err := h.db.Save(objective).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update progress",
		})
	}

	update := models.ProgressUpdate{
		ObjectiveID:      objective.ID,
		UserID:           &userID,
		PreviousValue:    previousValue,
		NewValue:         objective.CurrentValue,
		PreviousProgress: previousProgress,
		NewProgress:      objective.ProgressPercentage,
		Note:             req.Note,
	}
	h.db.Create(&update)

	if objective.ParentID != nil {
		h.rollup.Recalculate(*objective.ParentID)
	}

	h.notifier.FanOut(objective, &userID, services.Event{
		Type:             "progress_update",
		Title:            "Progress updated",
		Body:             fmt.Sprintf("%q progress is now %.0f%%", objective.Title, objective.ProgressPercentage),
		ObjectiveID:      objective.ID,
		ProgressUpdateID: &update.ID,
	})

	return c.JSON(objective)
}

// DeleteObjective removes an objective and everything hanging off it.
func (h *Handler) DeleteObjective(c *fiber.Ctx) error {
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

	h.db.Where("objective_id = ?", objective.ID).Delete(&models.KeyResult{})
	h.db.Where("objective_id = ?", objective.ID).Delete(&models.Comment{})
	h.db.Where("objective_id = ?", objective.ID).Delete(&models.ObjectiveContributor{})
	h.db.Where("objective_id = ?", objective.ID).Delete(&models.ObjectiveSubscription{})
	h.db.Where("objective_id = ?", objective.ID).Delete(&models.ProgressUpdate{})
	h.db.Where("objective_id = ?", objective.ID).Delete(&models.WebhookIntegration{})
	h.db.Model(&models.Objective{}).Where("parent_id = ?", objective.ID).Update("parent_id", nil)
	h.db.Delete(objective)

	return c.SendStatus(fiber.StatusNoContent)
}

// AddContributor adds a user to an objective's contributor set.
func (h *Handler) AddContributor(c *fiber.Ctx) error {
	orgID := middleware.GetOrgID(c)
	objectiveID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid objective ID",
		})
	}
	targetID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid user ID",
		})
	}

	objective, err := h.findObjective(orgID, objectiveID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Objective not found",
		})
	}

	var target models.User
	if err := h.db.Where("id = ? AND organization_id = ?", targetID, orgID).First(&target).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	var existing models.ObjectiveContributor
	if err := h.db.Where("objective_id = ? AND user_id = ?", objective.ID, targetID).First(&existing).Error; err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "User is already a contributor",
		})
	}

	contributor := models.ObjectiveContributor{
		ObjectiveID: objective.ID,
		UserID:      targetID,
	}
	if err := h.db.Create(&contributor).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to add contributor",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(contributor)
}

func (h *Handler) RemoveContributor(c *fiber.Ctx) error {
	orgID := middleware.GetOrgID(c)
	objectiveID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid objective ID",
		})
	}
	targetID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid user ID",
		})
	}

	if _, err := h.findObjective(orgID, objectiveID); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Objective not found",
		})
	}

	result := h.db.Where("objective_id = ? AND user_id = ?", objectiveID, targetID).Delete(&models.ObjectiveContributor{})
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Contributor not found",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Subscribe adds the caller to the objective's watcher set.
func (h *Handler) Subscribe(c *fiber.Ctx) error {
	orgID := middleware.GetOrgID(c)
	userID := middleware.GetUserID(c)
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

	var existing models.ObjectiveSubscription
	if err := h.db.Where("objective_id = ? AND user_id = ?", objectiveID, userID).First(&existing).Error; err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Already subscribed",
		})
	}

	subscription := models.ObjectiveSubscription{
		ObjectiveID: objectiveID,
		UserID:      userID,
	}
	if err := h.db.Create(&subscription).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to subscribe",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(subscription)
}

func (h *Handler) Unsubscribe(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	objectiveID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid objective ID",
		})
	}

	result := h.db.Where("objective_id = ? AND user_id = ?", objectiveID, userID).Delete(&models.ObjectiveSubscription{})
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Subscription not found",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// GetProgressUpdates returns the paginated audit trail for an objective.
func (h *Handler) GetProgressUpdates(c *fiber.Ctx) error {
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

	page, limit, offset := pagination(c)

	var updates []models.ProgressUpdate
	h.db.Where("objective_id = ?", objectiveID).
		Preload("User").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&updates)

	var total int64
	h.db.Model(&models.ProgressUpdate{}).Where("objective_id = ?", objectiveID).Count(&total)

	return c.JSON(fiber.Map{
		"progressUpdates": updates,
		"total":           total,
		"page":            page,
		"limit":           limit,
	})
}
