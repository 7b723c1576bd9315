package handlers_test

import (
	"testing"

	"github.com/compasshq/compass-api/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListUsersIsOrgScoped(t *testing.T) {
	env := setup(t)
	tokenA, _ := env.register(t, "alice@acme.io", "Acme")
	env.register(t, "eve@rival.io", "Rival")

	resp := env.request(t, "GET", "/api/users/", tokenA, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var users []models.User
	decode(t, resp, &users)
	require.Len(t, users, 1)
	assert.Equal(t, "alice@acme.io", users[0].Email)
}

func TestUpdateUserRoleRules(t *testing.T) {
	env := setup(t)
	adminToken, admin := env.register(t, "alice@acme.io", "Acme")

	member := models.User{OrganizationID: admin.OrganizationID, Email: "bob@acme.io", Name: "bob", Role: "member"}
	require.NoError(t, env.db.Create(&member).Error)
	memberToken := env.tokenFor(t, member)

	// Members cannot change roles, even their own
	resp := env.request(t, "PUT", "/api/users/"+member.ID.String(), memberToken, fiber.Map{
		"role": "admin",
	})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	// Members may rename themselves
	resp = env.request(t, "PUT", "/api/users/"+member.ID.String(), memberToken, fiber.Map{
		"name": "Robert",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var updated models.User
	decode(t, resp, &updated)
	assert.Equal(t, "Robert", updated.Name)

	// Admins can promote
	resp = env.request(t, "PUT", "/api/users/"+member.ID.String(), adminToken, fiber.Map{
		"role": "manager",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decode(t, resp, &updated)
	assert.Equal(t, "manager", updated.Role)

	// Unknown role rejected
	resp = env.request(t, "PUT", "/api/users/"+member.ID.String(), adminToken, fiber.Map{
		"role": "overlord",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestDeleteUser(t *testing.T) {
	env := setup(t)
	adminToken, admin := env.register(t, "alice@acme.io", "Acme")

	member := models.User{OrganizationID: admin.OrganizationID, Email: "bob@acme.io", Name: "bob", Role: "member"}
	require.NoError(t, env.db.Create(&member).Error)

	// Admins cannot remove themselves
	resp := env.request(t, "DELETE", "/api/users/"+admin.ID.String(), adminToken, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = env.request(t, "DELETE", "/api/users/"+member.ID.String(), adminToken, nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp = env.request(t, "GET", "/api/users/"+member.ID.String(), adminToken, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestDepartmentCRUD(t *testing.T) {
	env := setup(t)
	token, admin := env.register(t, "alice@acme.io", "Acme")

	resp := env.request(t, "POST", "/api/departments/", token, fiber.Map{
		"name": "Engineering",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var dept models.Department
	decode(t, resp, &dept)
	assert.Equal(t, "Engineering", dept.Name)

	resp = env.request(t, "PUT", "/api/departments/"+dept.ID.String(), token, fiber.Map{
		"name": "Platform",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decode(t, resp, &dept)
	assert.Equal(t, "Platform", dept.Name)

	// Deleting detaches members instead of removing them
	require.NoError(t, env.db.Model(&models.User{}).Where("id = ?", admin.ID).
		Update("department_id", dept.ID).Error)

	resp = env.request(t, "DELETE", "/api/departments/"+dept.ID.String(), token, nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	var reloaded models.User
	require.NoError(t, env.db.First(&reloaded, "id = ?", admin.ID).Error)
	assert.Nil(t, reloaded.DepartmentID)
}

func TestDepartmentCreateRequiresPrivilege(t *testing.T) {
	env := setup(t)
	_, admin := env.register(t, "alice@acme.io", "Acme")

	member := models.User{OrganizationID: admin.OrganizationID, Email: "bob@acme.io", Name: "bob", Role: "member"}
	require.NoError(t, env.db.Create(&member).Error)
	memberToken := env.tokenFor(t, member)

	resp := env.request(t, "POST", "/api/departments/", memberToken, fiber.Map{
		"name": "Skunkworks",
	})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}
