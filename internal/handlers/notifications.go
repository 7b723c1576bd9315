package handlers

import (
	"github.com/compasshq/compass-api/internal/middleware"
	"github.com/compasshq/compass-api/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// GetNotifications returns paginated notifications for the current user
func (h *Handler) GetNotifications(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	page, limit, offset := pagination(c)

	var notifications []models.Notification
	h.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&notifications)

	var total int64
	h.db.Model(&models.Notification{}).Where("user_id = ?", userID).Count(&total)

	var unread int64
	h.db.Model(&models.Notification{}).Where("user_id = ? AND read = ?", userID, false).Count(&unread)

	return c.JSON(fiber.Map{
		"notifications": notifications,
		"total":         total,
		"unread":        unread,
		"page":          page,
		"limit":         limit,
	})
}

// MarkNotificationRead marks a single notification as read
func (h *Handler) MarkNotificationRead(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	notifID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid notification ID",
		})
	}

	result := h.db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notifID, userID).
		Update("read", true)

	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Notification not found",
		})
	}

	return c.JSON(fiber.Map{"success": true})
}

// MarkAllRead marks all notifications as read for the current user
func (h *Handler) MarkAllRead(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	h.db.Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true)

	return c.JSON(fiber.Map{"success": true})
}
