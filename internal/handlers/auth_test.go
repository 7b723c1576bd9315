package handlers_test

import (
	"testing"

	"github.com/compasshq/compass-api/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterCreatesOrgAndAdmin(t *testing.T) {
	env := setup(t)
	token, user := env.register(t, "alice@acme.io", "Acme Corp")

	assert.NotEmpty(t, token)
	assert.Equal(t, "admin", user.Role)
	assert.Empty(t, user.Password)

	var org models.Organization
	require.NoError(t, env.db.First(&org, "id = ?", user.OrganizationID).Error)
	assert.Equal(t, "Acme Corp", org.Name)
	assert.Equal(t, "acme-corp", org.Slug)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := setup(t)
	env.register(t, "alice@acme.io", "Acme")

	resp := env.request(t, "POST", "/api/auth/register", "", fiber.Map{
		"email":            "alice@acme.io",
		"password":         "password123",
		"name":             "Alice Again",
		"organizationName": "Other",
	})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestLogin(t *testing.T) {
	env := setup(t)
	env.register(t, "alice@acme.io", "Acme")

	resp := env.request(t, "POST", "/api/auth/login", "", fiber.Map{
		"email":    "alice@acme.io",
		"password": "password123",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var auth models.AuthResponse
	decode(t, resp, &auth)
	assert.NotEmpty(t, auth.Token)

	// Wrong password
	resp = env.request(t, "POST", "/api/auth/login", "", fiber.Map{
		"email":    "alice@acme.io",
		"password": "nope",
	})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestGetMe(t *testing.T) {
	env := setup(t)
	token, user := env.register(t, "alice@acme.io", "Acme")

	resp := env.request(t, "GET", "/api/me", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var me models.User
	decode(t, resp, &me)
	assert.Equal(t, user.ID, me.ID)
	assert.Equal(t, "alice@acme.io", me.Email)
}
