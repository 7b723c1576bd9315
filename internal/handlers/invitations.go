package handlers

import (
	"time"

	"github.com/compasshq/compass-api/internal/middleware"
	"github.com/compasshq/compass-api/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// CreateInvitation invites an email address into the caller's organization
// (admin only). The invite email is best-effort; the token works regardless.
func (h *Handler) CreateInvitation(c *fiber.Ctx) error {
	orgID := middleware.GetOrgID(c)
	userID := middleware.GetUserID(c)

	if !h.callerHasRole(c, "admin") {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only admins can send invitations",
		})
	}

	var req models.CreateInvitationRequest
	if err := c.BodyParser(&req); err != nil || req.Email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Email is required",
		})
	}

	role := req.Role
	if role == "" {
		role = "member"
	}
	if !models.ValidRoles[role] {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid role. Must be: admin, manager, or member",
		})
	}

	// Already a member?
	var existingUser models.User
	if err := h.db.Where("email = ?", req.Email).First(&existingUser).Error; err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "A user with this email already exists",
		})
	}

	// Pending invitation?
	var pending models.Invitation
	if err := h.db.Where("organization_id = ? AND email = ? AND accepted_at IS NULL", orgID, req.Email).
		First(&pending).Error; err == nil && pending.IsValid() {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "An invitation for this email is already pending",
		})
	}

	invitation := models.Invitation{
		OrganizationID: orgID,
		Email:          req.Email,
		Role:           role,
		InviterID:      userID,
	}
	if req.ExpiresIn > 0 {
		exp := time.Now().Add(time.Duration(req.ExpiresIn) * time.Hour)
		invitation.ExpiresAt = &exp
	}

	if err := h.db.Create(&invitation).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create invitation",
		})
	}

	var org models.Organization
	h.db.First(&org, "id = ?", orgID)
	go h.mailer.SendInvitation(invitation.Email, org.Name, invitation.Token)

	return c.Status(fiber.StatusCreated).JSON(invitation)
}

func (h *Handler) GetInvitations(c *fiber.Ctx) error {
	orgID := middleware.GetOrgID(c)

	var invitations []models.Invitation
	h.db.Where("organization_id = ?", orgID).Order("created_at DESC").Find(&invitations)

	return c.JSON(invitations)
}

func (h *Handler) RevokeInvitation(c *fiber.Ctx) error {
	orgID := middleware.GetOrgID(c)
	invitationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid invitation ID",
		})
	}

	if !h.callerHasRole(c, "admin") {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only admins can revoke invitations",
		})
	}

	result := h.db.Where("id = ? AND organization_id = ?", invitationID, orgID).Delete(&models.Invitation{})
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Invitation not found",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// AcceptInvitation redeems an invitation token and creates the member account.
// Public endpoint; the token is the credential.
func (h *Handler) AcceptInvitation(c *fiber.Ctx) error {
	token := c.Params("token")

	var invitation models.Invitation
	if err := h.db.Where("token = ?", token).First(&invitation).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Invalid invitation token",
		})
	}

	if !invitation.IsValid() {
		return c.Status(fiber.StatusGone).JSON(fiber.Map{
			"error": "This invitation has expired or was already used",
		})
	}

	var req models.AcceptInvitationRequest
	if err := c.BodyParser(&req); err != nil || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Password is required",
		})
	}

	var existingUser models.User
	if err := h.db.Where("email = ?", invitation.Email).First(&existingUser).Error; err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Email already registered",
		})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to hash password",
		})
	}

	user := models.User{
		OrganizationID: invitation.OrganizationID,
		Email:          invitation.Email,
		Password:       string(hashedPassword),
		Name:           req.Name,
		Role:           invitation.Role,
	}
	if err := h.db.Create(&user).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create user",
		})
	}

	now := time.Now()
	h.db.Model(&invitation).Update("accepted_at", now)

	authToken, err := middleware.GenerateToken(h.cfg.JWTSecret, user.ID, user.OrganizationID, user.Email)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate token",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(models.AuthResponse{
		Token: authToken,
		User:  user,
	})
}
