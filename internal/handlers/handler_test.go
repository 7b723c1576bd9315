package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/compasshq/compass-api/internal/config"
	"github.com/compasshq/compass-api/internal/handlers"
	"github.com/compasshq/compass-api/internal/middleware"
	"github.com/compasshq/compass-api/internal/models"
	"github.com/compasshq/compass-api/internal/routes"
	"github.com/compasshq/compass-api/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	app *fiber.App
	db  *gorm.DB
	cfg *config.Config
}

func setup(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Organization{},
		&models.User{},
		&models.Department{},
		&models.Objective{},
		&models.KeyResult{},
		&models.ObjectiveContributor{},
		&models.ObjectiveSubscription{},
		&models.ProgressUpdate{},
		&models.Comment{},
		&models.WebhookIntegration{},
		&models.WebhookEvent{},
		&models.Notification{},
		&models.Invitation{},
	))

	cfg := &config.Config{
		AppEnv:      "test",
		JWTSecret:   "test-secret",
		BaseURL:     "http://localhost:8080",
		DatabaseURL: ":memory:",
	}
	log := zerolog.Nop()

	rollup := services.NewRollup(db, log)
	notifier := services.NewNotifier(db, log)
	pipeline := services.NewWebhookPipeline(db, log, rollup, notifier)
	mailer := services.NewMailer(cfg, log)

	h := handlers.New(db, cfg, log, rollup, notifier, pipeline, mailer)

	app := fiber.New()
	routes.Setup(app, h, cfg.JWTSecret)

	return &testEnv{app: app, db: db, cfg: cfg}
}

func (e *testEnv) request(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	resp.Body.Close()
}

// register creates an org + admin through the API and returns the token and user.
func (e *testEnv) register(t *testing.T, email, orgName string) (string, models.User) {
	t.Helper()

	resp := e.request(t, "POST", "/api/auth/register", "", fiber.Map{
		"email":            email,
		"password":         "password123",
		"name":             "Test User",
		"organizationName": orgName,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var auth models.AuthResponse
	decode(t, resp, &auth)
	return auth.Token, auth.User
}

// tokenFor mints a token for a user created directly in the DB.
func (e *testEnv) tokenFor(t *testing.T, user models.User) string {
	t.Helper()

	token, err := middleware.GenerateToken(e.cfg.JWTSecret, user.ID, user.OrganizationID, user.Email)
	require.NoError(t, err)
	return token
}

func (e *testEnv) createObjective(t *testing.T, token string, body fiber.Map) models.Objective {
	t.Helper()

	resp := e.request(t, "POST", "/api/objectives/", token, body)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var objective models.Objective
	decode(t, resp, &objective)
	return objective
}
