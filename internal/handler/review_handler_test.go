package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tedris-app/tedris-api/internal/config"
	"github.com/tedris-app/tedris-api/internal/dto"
	"github.com/tedris-app/tedris-api/internal/handler"
	"github.com/tedris-app/tedris-api/internal/models"
	"github.com/tedris-app/tedris-api/internal/repository"
	"github.com/tedris-app/tedris-api/internal/router"
	"github.com/tedris-app/tedris-api/internal/service"
	"github.com/tedris-app/tedris-api/pkg/ai"
)

// scriptedGrader returns canned results keyed by submission content.
type scriptedGrader struct {
	results map[string]ai.GradeResult
}

func (g *scriptedGrader) Grade(_ context.Context, input ai.GradeInput) (ai.GradeResult, error) {
	return g.results[input.Content], nil
}

func (g *scriptedGrader) Model() string { return "scripted" }

func (g *scriptedGrader) Probe(context.Context) error { return nil }

func setupGradingApp(t *testing.T, grader ai.Grader) (*fiber.App, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:grading_app_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.UserProfile{}, &models.Task{}, &models.Submission{}))

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	gradingRepo := repository.NewGradingRepository(db)
	autoGradeService := service.NewAutoGradeService(gradingRepo, grader, nil, nil, nil, logger, service.AutoGradeConfig{
		BatchSize:          10,
		JobTimeout:         time.Second,
		ReviewThresholdPct: 40,
	})
	reviewService := service.NewReviewService(gradingRepo, validate, nil, nil, nil, logger)
	gradingService := service.NewGradingService(gradingRepo, validate, nil, nil, nil, logger)

	app := fiber.New()
	router.Register(app, config.Config{AppName: "Test", JWTSecret: "secret"}, router.Dependencies{
		AutoGradeHandler: handler.NewAutoGradeHandler(autoGradeService, validate, logger),
		ReviewHandler:    handler.NewReviewHandler(reviewService, logger),
		GradingHandler:   handler.NewGradingHandler(gradingService, logger),
		JWTMiddleware: func(c *fiber.Ctx) error {
			c.Locals("user_id", uint(1))
			c.Locals("user_role", "admin")
			return c.Next()
		},
	})

	return app, db
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, json.Unmarshal(body, target))
}

func seedGradingFixtures(t *testing.T, db *gorm.DB) (models.Submission, models.Submission) {
	t.Helper()

	task := models.Task{Title: "Essay", Instructions: "Write about Baku.", MaxScore: 100, Published: true}
	require.NoError(t, db.Create(&task).Error)
	student := models.UserProfile{Name: "Aysel", Email: "aysel@example.com", Role: models.RoleStudent}
	require.NoError(t, db.Create(&student).Error)

	strong := models.Submission{TaskID: task.ID, StudentID: student.ID, Content: "strong answer", Status: models.SubmissionStatusSubmitted, SubmittedAt: time.Now()}
	require.NoError(t, db.Create(&strong).Error)
	weak := models.Submission{TaskID: task.ID, StudentID: student.ID, Content: "weak answer", Status: models.SubmissionStatusSubmitted, SubmittedAt: time.Now()}
	require.NoError(t, db.Create(&weak).Error)

	return strong, weak
}

func TestGradingPipelineOverHTTP(t *testing.T) {
	grader := &scriptedGrader{results: map[string]ai.GradeResult{
		"strong answer": {Score: 92, Feedback: "Əla."},
		"weak answer":   {Score: 15, Feedback: "Zəif."},
	}}
	app, db := setupGradingApp(t, grader)
	strong, weak := seedGradingFixtures(t, db)

	// Run a batch.
	req := httptest.NewRequest("POST", "/api/v1/admin/grade/auto", bytes.NewReader([]byte(`{"batch_size": 10}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var batchResp struct {
		Success bool                 `json:"success"`
		Data    dto.AutoGradeSummary `json:"data"`
	}
	decodeResponse(t, resp, &batchResp)
	require.True(t, batchResp.Success)
	require.Equal(t, 2, batchResp.Data.Processed)
	require.Equal(t, 1, batchResp.Data.Graded)
	require.Equal(t, 1, batchResp.Data.FlaggedForReview)

	// The weak answer is sitting in the review queue.
	resp, err = app.Test(httptest.NewRequest("GET", "/api/v1/admin/review", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var queueResp struct {
		Success bool                     `json:"success"`
		Data    []dto.SubmissionResponse `json:"data"`
		Meta    map[string]int           `json:"meta"`
	}
	decodeResponse(t, resp, &queueResp)
	require.Len(t, queueResp.Data, 1)
	require.Equal(t, weak.ID, queueResp.Data[0].ID)
	require.Equal(t, 1, queueResp.Meta["count"])

	// Accept the AI suggestion as-is.
	acceptURL := "/api/v1/admin/review/" + strconv.FormatUint(uint64(weak.ID), 10) + "/accept"
	resp, err = app.Test(httptest.NewRequest("POST", acceptURL, nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var acceptResp struct {
		Success bool                   `json:"success"`
		Data    dto.SubmissionResponse `json:"data"`
	}
	decodeResponse(t, resp, &acceptResp)
	require.Equal(t, models.SubmissionStatusGraded, acceptResp.Data.Status)
	require.NotNil(t, acceptResp.Data.Points)
	require.Equal(t, 15, *acceptResp.Data.Points)

	// The strong answer was auto-accepted without an admin in the loop.
	var autoAccepted models.Submission
	require.NoError(t, db.First(&autoAccepted, strong.ID).Error)
	require.Equal(t, models.SubmissionStatusGraded, autoAccepted.Status)
	require.Nil(t, autoAccepted.GradedBy)
}

func TestManualGradeOverHTTP(t *testing.T) {
	app, db := setupGradingApp(t, &scriptedGrader{})
	strong, _ := seedGradingFixtures(t, db)

	payload := []byte(`{"points": 77, "feedback": "Yaxşı iş."}`)
	gradeURL := "/api/v1/admin/submissions/" + strconv.FormatUint(uint64(strong.ID), 10) + "/grade"
	req := httptest.NewRequest("PATCH", gradeURL, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var gradeResp struct {
		Success bool                   `json:"success"`
		Data    dto.SubmissionResponse `json:"data"`
	}
	decodeResponse(t, resp, &gradeResp)
	require.Equal(t, models.SubmissionStatusGraded, gradeResp.Data.Status)
	require.Equal(t, 77, *gradeResp.Data.Points)
	require.Equal(t, uint(1), *gradeResp.Data.GradedBy)
}

func TestManualGradeRejectsScoreAboveMaxOverHTTP(t *testing.T) {
	app, db := setupGradingApp(t, &scriptedGrader{})
	strong, _ := seedGradingFixtures(t, db)

	payload := []byte(`{"points": 500}`)
	gradeURL := "/api/v1/admin/submissions/" + strconv.FormatUint(uint64(strong.ID), 10) + "/grade"
	req := httptest.NewRequest("PATCH", gradeURL, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	grader := &scriptedGrader{}

	dsn := fmt.Sprintf("file:rbac_app_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.UserProfile{}, &models.Task{}, &models.Submission{}))

	logger := zerolog.New(io.Discard)
	gradingRepo := repository.NewGradingRepository(db)
	autoGradeService := service.NewAutoGradeService(gradingRepo, grader, nil, nil, nil, logger, service.AutoGradeConfig{})

	app := fiber.New()
	router.Register(app, config.Config{AppName: "Test", JWTSecret: "secret"}, router.Dependencies{
		AutoGradeHandler: handler.NewAutoGradeHandler(autoGradeService, validator.New(validator.WithRequiredStructEnabled()), logger),
		JWTMiddleware: func(c *fiber.Ctx) error {
			c.Locals("user_id", uint(2))
			c.Locals("user_role", "student")
			return c.Next()
		},
	})

	resp, err := app.Test(httptest.NewRequest("POST", "/api/v1/admin/grade/auto", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestAutoGradeRejectsInvalidBatchSize(t *testing.T) {
	app, db := setupGradingApp(t, &scriptedGrader{})
	seedGradingFixtures(t, db)

	for _, body := range []string{`{"batch_size": -3}`, `{"batch_size": 500}`} {
		req := httptest.NewRequest("POST", "/api/v1/admin/grade/auto", bytes.NewReader([]byte(body)))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	}

	// Nothing was dispatched, both rows still await grading.
	var pending int64
	require.NoError(t, db.Model(&models.Submission{}).Where("status = ?", models.SubmissionStatusSubmitted).Count(&pending).Error)
	require.EqualValues(t, 2, pending)
}

func TestValidationFailureListsOffendingFields(t *testing.T) {
	app, db := setupGradingApp(t, &scriptedGrader{})
	strong, _ := seedGradingFixtures(t, db)

	gradeURL := "/api/v1/admin/submissions/" + strconv.FormatUint(uint64(strong.ID), 10) + "/grade"
	req := httptest.NewRequest("PATCH", gradeURL, bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var failResp struct {
		Success bool              `json:"success"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	}
	decodeResponse(t, resp, &failResp)
	require.False(t, failResp.Success)
	require.Equal(t, "validation failed", failResp.Message)
	require.Equal(t, "required", failResp.Details["Points"])
}
