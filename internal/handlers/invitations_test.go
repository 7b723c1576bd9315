package handlers_test

import (
	"testing"

	"github.com/compasshq/compass-api/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvitationFlow(t *testing.T) {
	env := setup(t)
	token, admin := env.register(t, "alice@acme.io", "Acme")

	resp := env.request(t, "POST", "/api/invitations/", token, fiber.Map{
		"email": "bob@acme.io",
		"role":  "manager",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var invitation models.Invitation
	decode(t, resp, &invitation)
	assert.NotEmpty(t, invitation.Token)
	assert.Equal(t, admin.OrganizationID, invitation.OrganizationID)

	// Duplicate pending invite
	resp = env.request(t, "POST", "/api/invitations/", token, fiber.Map{
		"email": "bob@acme.io",
	})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	// Accept is public and yields a working credential
	resp = env.request(t, "POST", "/api/invitations/"+invitation.Token+"/accept", "", fiber.Map{
		"name":     "Bob",
		"password": "password123",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var auth models.AuthResponse
	decode(t, resp, &auth)
	assert.Equal(t, "manager", auth.User.Role)
	assert.Equal(t, admin.OrganizationID, auth.User.OrganizationID)

	resp = env.request(t, "GET", "/api/me", auth.Token, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// A redeemed token is gone
	resp = env.request(t, "POST", "/api/invitations/"+invitation.Token+"/accept", "", fiber.Map{
		"password": "password123",
	})
	assert.Equal(t, fiber.StatusGone, resp.StatusCode)
}

func TestInvitationAdminOnly(t *testing.T) {
	env := setup(t)
	token, admin := env.register(t, "alice@acme.io", "Acme")

	member := models.User{OrganizationID: admin.OrganizationID, Email: "carl@acme.io", Name: "carl", Role: "member"}
	require.NoError(t, env.db.Create(&member).Error)
	memberToken := env.tokenFor(t, member)

	resp := env.request(t, "POST", "/api/invitations/", memberToken, fiber.Map{
		"email": "dan@acme.io",
	})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	// Inviting an existing member conflicts
	resp = env.request(t, "POST", "/api/invitations/", token, fiber.Map{
		"email": "carl@acme.io",
	})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestRevokeInvitation(t *testing.T) {
	env := setup(t)
	token, _ := env.register(t, "alice@acme.io", "Acme")

	resp := env.request(t, "POST", "/api/invitations/", token, fiber.Map{
		"email": "bob@acme.io",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var invitation models.Invitation
	decode(t, resp, &invitation)

	resp = env.request(t, "DELETE", "/api/invitations/"+invitation.ID.String(), token, nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp = env.request(t, "POST", "/api/invitations/"+invitation.Token+"/accept", "", fiber.Map{
		"password": "password123",
	})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
