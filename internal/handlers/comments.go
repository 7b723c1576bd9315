package handlers

import (
	"fmt"

	"github.com/compasshq/compass-api/internal/middleware"
	"github.com/compasshq/compass-api/internal/models"
	"github.com/compasshq/compass-api/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// AddComment adds a comment to an objective and notifies stakeholders plus
// anyone mentioned in the text.
func (h *Handler) AddComment(c *fiber.Ctx) error {
	orgID := middleware.GetOrgID(c)
	userID := middleware.GetUserID(c)
	objectiveID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid objective ID",
		})
	}

	var req models.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Comment content is required",
		})
	}

	objective, err := h.findObjective(orgID, objectiveID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Objective not found",
		})
	}

	comment := models.Comment{
		ObjectiveID: objective.ID,
		UserID:      &userID,
		Content:     req.Content,
		MediaURL:    req.MediaURL,
	}
	if err := h.db.Create(&comment).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to add comment",
		})
	}

	// Preload user for response
	h.db.Preload("User").First(&comment, "id = ?", comment.ID)

	var commenter models.User
	h.db.First(&commenter, "id = ?", userID)

	event := services.Event{
		Type:        "comment",
		Title:       "New comment",
		Body:        fmt.Sprintf("%s commented on %q", commenter.Name, objective.Title),
		ObjectiveID: objective.ID,
		CommentID:   &comment.ID,
	}
	h.notifier.FanOut(objective, &userID, event)
	h.notifier.NotifyMentions(orgID, &userID, req.Content, event)

	return c.Status(fiber.StatusCreated).JSON(comment)
}

// GetComments returns all comments for an objective, oldest first.
func (h *Handler) GetComments(c *fiber.Ctx) error {
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

	var comments []models.Comment
	h.db.Where("objective_id = ?", objectiveID).
		Preload("User").
		Order("created_at ASC").
		Find(&comments)

	return c.JSON(comments)
}

// DeleteComment deletes a comment (only by the comment author)
func (h *Handler) DeleteComment(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	commentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid comment ID",
		})
	}

	var comment models.Comment
	if err := h.db.First(&comment, "id = ?", commentID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Comment not found",
		})
	}

	if comment.UserID == nil || *comment.UserID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You can only delete your own comments",
		})
	}

	h.db.Delete(&comment)

	return c.JSON(fiber.Map{"success": true})
}
