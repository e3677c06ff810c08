package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/tedris-app/tedris-api/internal/config"
	"github.com/tedris-app/tedris-api/internal/database"
	"github.com/tedris-app/tedris-api/internal/handler"
	"github.com/tedris-app/tedris-api/internal/middleware"
	"github.com/tedris-app/tedris-api/internal/models"
	"github.com/tedris-app/tedris-api/internal/observability"
	"github.com/tedris-app/tedris-api/internal/repository"
	"github.com/tedris-app/tedris-api/internal/router"
	"github.com/tedris-app/tedris-api/internal/service"
	"github.com/tedris-app/tedris-api/pkg/ai"
	cloud "github.com/tedris-app/tedris-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.UserProfile{},
		&models.Class{},
		&models.ClassEnrollment{},
		&models.Course{},
		&models.CourseModule{},
		&models.Topic{},
		&models.Task{},
		&models.Submission{},
		&models.AttendanceRecord{},
		&models.Application{},
		&models.ActivityLog{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	// NATS is optional: grade events are a best-effort broadcast and the API
	// stays functional without a broker.
	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL, nats.Name(cfg.AppName))
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, grade events disabled")
		} else {
			defer natsConn.Close()
		}
	}

	uploader, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create cloudinary client: %v", err)
	}

	grader, err := ai.NewOpenAIGrader(ai.OpenAIConfig{
		APIKey: cfg.OpenAIAPIKey,
		Model:  cfg.OpenAIModel,
		Logger: logger,
	})
	if err != nil {
		log.Fatalf("failed to create grader: %v", err)
	}

	observability.RegisterMetrics()

	validate := validator.New(validator.WithRequiredStructEnabled())

	taskRepo := repository.NewTaskRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	gradingRepo := repository.NewGradingRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	classRepo := repository.NewClassRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	userRepo := repository.NewUserRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	activityService := service.NewActivityService(activityRepo, logger)
	notifier := service.NewNATSNotifier(natsConn, cfg.NATSGradeSubject, logger)

	dashboardService := service.NewDashboardService(submissionRepo, attendanceRepo, redisClient, cfg.DashboardCacheTTL, logger)
	autoGradeService := service.NewAutoGradeService(gradingRepo, grader, notifier, activityService, dashboardService, logger, service.AutoGradeConfig{
		BatchSize:          cfg.GradeBatchSize,
		JobTimeout:         cfg.GradeJobTimeout,
		ReviewThresholdPct: cfg.ReviewThresholdPct,
	})
	reviewService := service.NewReviewService(gradingRepo, validate, notifier, activityService, dashboardService, logger)
	gradingService := service.NewGradingService(gradingRepo, validate, notifier, activityService, dashboardService, logger)
	submissionService := service.NewSubmissionService(submissionRepo, taskRepo, validate, uploader, logger)
	taskService := service.NewTaskService(taskRepo, validate, uploader, logger)
	attendanceService := service.NewAttendanceService(attendanceRepo, classRepo, validate, activityService, logger)
	enrollmentService := service.NewEnrollmentService(enrollmentRepo, classRepo, userRepo, validate, activityService, logger)
	applicationService := service.NewApplicationService(applicationRepo, userRepo, enrollmentRepo, validate, activityService, logger)
	courseService := service.NewCourseService(courseRepo, validate, activityService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    cfg.UploadMaxSizeMB * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AutoGradeHandler:   handler.NewAutoGradeHandler(autoGradeService, validate, logger),
		ReviewHandler:      handler.NewReviewHandler(reviewService, logger),
		GradingHandler:     handler.NewGradingHandler(gradingService, logger),
		SubmissionHandler:  handler.NewSubmissionHandler(submissionService, logger),
		TaskHandler:        handler.NewTaskHandler(taskService, logger),
		AttendanceHandler:  handler.NewAttendanceHandler(attendanceService, logger),
		EnrollmentHandler:  handler.NewEnrollmentHandler(enrollmentService, logger),
		ApplicationHandler: handler.NewApplicationHandler(applicationService, logger),
		CourseHandler:      handler.NewCourseHandler(courseService, logger),
		DashboardHandler:   handler.NewDashboardHandler(dashboardService, logger),
		JWTMiddleware:      middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	logger.Info().Str("addr", cfg.HTTPAddress()).Msg("server started")

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
