package routes

import (
	"github.com/compasshq/compass-api/internal/handlers"
	"github.com/compasshq/compass-api/internal/middleware"
	"github.com/gofiber/fiber/v2"
)

func Setup(app *fiber.App, h *handlers.Handler, jwtSecret string) {
	// Public webhook receiver
	app.Post("/webhooks/:webhookId", h.ReceiveWebhook)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", h.Register)
	auth.Post("/login", h.Login)

	// Accepting an invitation is public; the token is the credential
	api.Post("/invitations/:token/accept", h.AcceptInvitation)

	protected := api.Group("/", middleware.Protected(jwtSecret))

	protected.Get("/me", h.GetMe)
	protected.Put("/me", h.UpdateProfile)

	users := protected.Group("/users")
	users.Get("/", h.GetUsers)
	users.Get("/:id", h.GetUser)
	users.Put("/:id", h.UpdateUser)
	users.Delete("/:id", h.DeleteUser)

	departments := protected.Group("/departments")
	departments.Get("/", h.GetDepartments)
	departments.Post("/", h.CreateDepartment)
	departments.Get("/:id", h.GetDepartment)
	departments.Put("/:id", h.UpdateDepartment)
	departments.Delete("/:id", h.DeleteDepartment)

	objectives := protected.Group("/objectives")
	objectives.Get("/", h.GetObjectives)
	objectives.Post("/", h.CreateObjective)
	objectives.Get("/:id", h.GetObjective)
	objectives.Put("/:id", h.UpdateObjective)
	objectives.Delete("/:id", h.DeleteObjective)
	objectives.Patch("/:id/progress", h.PatchProgress)

	objectives.Post("/:id/contributors/:userId", h.AddContributor)
	objectives.Delete("/:id/contributors/:userId", h.RemoveContributor)
	objectives.Post("/:id/subscription", h.Subscribe)
	objectives.Delete("/:id/subscription", h.Unsubscribe)

	objectives.Get("/:id/key-results", h.GetKeyResults)
	objectives.Post("/:id/key-results", h.CreateKeyResult)
	protected.Put("/key-results/:id", h.UpdateKeyResult)
	protected.Delete("/key-results/:id", h.DeleteKeyResult)

	objectives.Get("/:id/comments", h.GetComments)
	objectives.Post("/:id/comments", h.AddComment)
	protected.Delete("/comments/:id", h.DeleteComment)

	objectives.Get("/:id/progress-updates", h.GetProgressUpdates)

	notifications := protected.Group("/notifications")
	notifications.Get("/", h.GetNotifications)
	notifications.Put("/:id/read", h.MarkNotificationRead)
	notifications.Post("/read-all", h.MarkAllRead)

	invitations := protected.Group("/invitations")
	invitations.Get("/", h.GetInvitations)
	invitations.Post("/", h.CreateInvitation)
	invitations.Delete("/:id", h.RevokeInvitation)

	webhooks := protected.Group("/webhooks")
	webhooks.Post("/", h.CreateWebhook)
	webhooks.Get("/:id", h.GetWebhook)
	webhooks.Put("/:id", h.UpdateWebhook)
	webhooks.Delete("/:id", h.DeleteWebhook)
	webhooks.Get("/:id/events", h.GetWebhookEvents)

	// File upload for comment attachments
	protected.Post("/upload", h.UploadMedia)
	app.Static("/uploads", "./uploads")
}
