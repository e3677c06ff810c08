package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tedris-app/tedris-api/internal/config"
	"github.com/tedris-app/tedris-api/internal/handler"
	"github.com/tedris-app/tedris-api/internal/middleware"
	"github.com/tedris-app/tedris-api/internal/models"
	"github.com/tedris-app/tedris-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AutoGradeHandler   *handler.AutoGradeHandler
	ReviewHandler      *handler.ReviewHandler
	GradingHandler     *handler.GradingHandler
	SubmissionHandler  *handler.SubmissionHandler
	TaskHandler        *handler.TaskHandler
	AttendanceHandler  *handler.AttendanceHandler
	EnrollmentHandler  *handler.EnrollmentHandler
	ApplicationHandler *handler.ApplicationHandler
	CourseHandler      *handler.CourseHandler
	DashboardHandler   *handler.DashboardHandler
	JWTMiddleware      fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// Public registration form
	if deps.ApplicationHandler != nil {
		deps.ApplicationHandler.RegisterPublic(api.Group("/applications"))
	}

	// Student surface
	student := api.Group("/student", jwtMiddleware)
	if deps.TaskHandler != nil {
		deps.TaskHandler.Register(student.Group("/tasks"))
	}
	if deps.SubmissionHandler != nil {
		deps.SubmissionHandler.Register(student.Group("/submissions"))
	}
	if deps.CourseHandler != nil {
		deps.CourseHandler.Register(student.Group("/courses"))
	}
	if deps.DashboardHandler != nil {
		deps.DashboardHandler.Register(student)
	}

	// Admin surface
	admin := api.Group("/admin", jwtMiddleware, middleware.RequireRole(models.RoleAdmin))
	if deps.AutoGradeHandler != nil {
		deps.AutoGradeHandler.Register(admin.Group("/grade"))
	}
	if deps.ReviewHandler != nil {
		deps.ReviewHandler.Register(admin.Group("/review"))
	}
	if deps.SubmissionHandler != nil {
		submissions := admin.Group("/submissions")
		deps.SubmissionHandler.RegisterAdmin(submissions)
		if deps.GradingHandler != nil {
			deps.GradingHandler.Register(submissions)
		}
	}
	if deps.TaskHandler != nil {
		deps.TaskHandler.RegisterAdmin(admin.Group("/tasks"))
	}
	if deps.CourseHandler != nil {
		deps.CourseHandler.RegisterAdmin(admin.Group("/courses"))
	}
	if deps.ApplicationHandler != nil {
		deps.ApplicationHandler.RegisterAdmin(admin.Group("/applications"))
	}

	classes := admin.Group("/classes")
	if deps.AttendanceHandler != nil {
		deps.AttendanceHandler.Register(classes)
	}
	if deps.EnrollmentHandler != nil {
		deps.EnrollmentHandler.Register(classes)
	}
}
