package handlers

import (
	"github.com/compasshq/compass-api/internal/middleware"
	"github.com/compasshq/compass-api/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func (h *Handler) GetDepartments(c *fiber.Ctx) error {
	orgID := middleware.GetOrgID(c)

	var departments []models.Department
	if err := h.db.Where("organization_id = ?", orgID).
		Preload("Lead").
		Order("name ASC").
		Find(&departments).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch departments",
		})
	}

	return c.JSON(departments)
}

func (h *Handler) GetDepartment(c *fiber.Ctx) error {
	orgID := middleware.GetOrgID(c)
	deptID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid department ID",
		})
	}

	var department models.Department
	if err := h.db.Where("id = ? AND organization_id = ?", deptID, orgID).
		Preload("Lead").
		First(&department).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Department not found",
		})
	}

	return c.JSON(department)
}

func (h *Handler) CreateDepartment(c *fiber.Ctx) error {
	orgID := middleware.GetOrgID(c)

	if !h.callerHasRole(c, "admin", "manager") {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only admins and managers can create departments",
		})
	}

	var req models.CreateDepartmentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Department name is required",
		})
	}

	department := models.Department{
		OrganizationID: orgID,
		Name:           req.Name,
		Description:    req.Description,
		LeadID:         req.LeadID,
	}
	if err := h.db.Create(&department).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create department",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(department)
}

func (h *Handler) UpdateDepartment(c *fiber.Ctx) error {
	orgID := middleware.GetOrgID(c)
	deptID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid department ID",
		})
	}

	if !h.callerHasRole(c, "admin", "manager") {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only admins and managers can update departments",
		})
	}

	var department models.Department
	if err := h.db.Where("id = ? AND organization_id = ?", deptID, orgID).First(&department).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Department not found",
		})
	}

	var req models.UpdateDepartmentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Name != nil {
		department.Name = *req.Name
	}
	if req.Description != nil {
		department.Description = *req.Description
	}
	if req.LeadID != nil {
		department.LeadID = req.LeadID
	}

	if err := h.db.Save(&department).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update department",
		})
	}

	return c.JSON(department)
}

func (h *Handler) DeleteDepartment(c *fiber.Ctx) error {
	orgID := middleware.GetOrgID(c)
	deptID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid department ID",
		})
	}

	if !h.callerHasRole(c, "admin") {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only admins can delete departments",
		})
	}

	result := h.db.Where("id = ? AND organization_id = ?", deptID, orgID).Delete(&models.Department{})
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Department not found",
		})
	}

	// Detach users pointing at the removed department
	h.db.Model(&models.User{}).Where("department_id = ?", deptID).Update("department_id", nil)

	return c.SendStatus(fiber.StatusNoContent)
}

// callerHasRole checks the caller's role against an allowed set.
func (h *Handler) callerHasRole(c *fiber.Ctx, roles ...string) bool {
	var caller models.User
	if err := h.db.First(&caller, "id = ?", middleware.GetUserID(c)).Error; err != nil {
		return false
	}
	for _, role := range roles {
		if caller.Role == role {
			return true
		}
	}
	return false
}
