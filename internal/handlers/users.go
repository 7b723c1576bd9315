package handlers

import (
	"github.com/compasshq/compass-api/internal/middleware"
	"github.com/compasshq/compass-api/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func (h *Handler) GetUsers(c *fiber.Ctx) error {
	orgID := middleware.GetOrgID(c)

	var users []models.User
	if err := h.db.Where("organization_id = ?", orgID).Order("name ASC").Find(&users).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch users",
		})
	}

	return c.JSON(users)
}

func (h *Handler) GetUser(c *fiber.Ctx) error {
	orgID := middleware.GetOrgID(c)
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid user ID",
		})
	}

	var user models.User
	if err := h.db.Where("id = ? AND organization_id = ?", userID, orgID).First(&user).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	return c.JSON(user)
}

// UpdateUser updates another user's role/department. Admin only, except that
// users may rename themselves.
func (h *Handler) UpdateUser(c *fiber.Ctx) error {
	orgID := middleware.GetOrgID(c)
	callerID := middleware.GetUserID(c)
	targetID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid user ID",
		})
	}

	var caller models.User
	if err := h.db.First(&caller, "id = ?", callerID).Error; err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid session",
		})
	}

	if caller.Role != "admin" && callerID != targetID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only admins can update other users",
		})
	}

	var user models.User
	if err := h.db.Where("id = ? AND organization_id = ?", targetID, orgID).First(&user).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	var req models.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Role != nil {
		if !models.ValidRoles[*req.Role] {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid role. Must be: admin, manager, or member",
			})
		}
		if caller.Role != "admin" {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Only admins can change roles",
			})
		}
		user.Role = *req.Role
	}
	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.DepartmentID != nil {
		user.DepartmentID = req.DepartmentID
	}

	if err := h.db.Save(&user).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update user",
		})
	}

	return c.JSON(user)
}

func (h *Handler) DeleteUser(c *fiber.Ctx) error {
	orgID := middleware.GetOrgID(c)
	callerID := middleware.GetUserID(c)
	targetID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid user ID",
		})
	}

	var caller models.User
	if err := h.db.First(&caller, "id = ?", callerID).Error; err != nil || caller.Role != "admin" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only admins can remove users",
		})
	}

	if targetID == callerID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "You cannot remove yourself",
		})
	}

	result := h.db.Where("id = ? AND organization_id = ?", targetID, orgID).Delete(&models.User{})
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}
