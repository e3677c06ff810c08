package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tedris-app/tedris-api/internal/dto"
	"github.com/tedris-app/tedris-api/internal/models"
	"github.com/tedris-app/tedris-api/internal/repository"
)

func setupGradingService(t *testing.T) (*gorm.DB, GradingService, *stubNotifier) {
	t.Helper()

	dsn := fmt.Sprintf("file:grading_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.UserProfile{}, &models.Task{}, &models.Submission{}))

	repo := repository.NewGradingRepository(db)
	validate := validator.New(validator.WithRequiredStructEnabled())
	notifier := &stubNotifier{}
	svc := NewGradingService(repo, validate, notifier, nil, nil, zerolog.Nop())

	return db, svc, notifier
}

func seedSubmittedSubmission(t *testing.T, db *gorm.DB, maxScore int) models.Submission {
	t.Helper()

	task := models.Task{Title: "Lab", Instructions: "Build.", MaxScore: maxScore}
	require.NoError(t, db.Create(&task).Error)
	student := models.UserProfile{Name: "Kamran", Email: fmt.Sprintf("kamran_%d@example.com", time.Now().UnixNano()), Role: models.RoleStudent}
	require.NoError(t, db.Create(&student).Error)

	submission := models.Submission{
		TaskID:      task.ID,
		StudentID:   student.ID,
		Content:     "answer",
		Status:      models.SubmissionStatusSubmitted,
		SubmittedAt: time.Now(),
	}
	require.NoError(t, db.Create(&submission).Error)
	return submission
}

func TestManualGrade(t *testing.T) {
	db, svc, notifier := setupGradingService(t)
	submission := seedSubmittedSubmission(t, db, 100)

	points := 88
	result, err := svc.Grade(context.Background(), submission.ID, dto.ManualGradeRequest{
		Points:   &points,
		Feedback: "Gözəl iş.",
	}, ActivityActor{ID: 3, Role: models.RoleAdmin})
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusGraded, result.Status)
	require.Equal(t, 88, *result.Points)
	require.Equal(t, uint(3), *result.GradedBy)
	// The manual path bypasses the AI entirely.
	require.Nil(t, result.AIScore)
	require.Len(t, notifier.events, 1)
	require.False(t, notifier.events[0].AutoGraded)
}

func TestManualGradeScoreExceedsMax(t *testing.T) {
	db, svc, notifier := setupGradingService(t)
	submission := seedSubmittedSubmission(t, db, 50)

	points := 60
	_, err := svc.Grade(context.Background(), submission.ID, dto.ManualGradeRequest{Points: &points}, ActivityActor{ID: 3, Role: models.RoleAdmin})
	require.ErrorIs(t, err, ErrScoreExceedsMax)
	require.Empty(t, notifier.events)

	var stored models.Submission
	require.NoError(t, db.First(&stored, submission.ID).Error)
	require.Equal(t, models.SubmissionStatusSubmitted, stored.Status)
}

func TestManualGradeIdempotentReapply(t *testing.T) {
	db, svc, notifier := setupGradingService(t)
	submission := seedSubmittedSubmission(t, db, 100)

	points := 75
	payload := dto.ManualGradeRequest{Points: &points, Feedback: "Yaxşı cəhd."}
	actor := ActivityActor{ID: 4, Role: models.RoleAdmin}

	first, err := svc.Grade(context.Background(), submission.ID, payload, actor)
	require.NoError(t, err)

	second, err := svc.Grade(context.Background(), submission.ID, payload, actor)
	require.NoError(t, err)
	require.Equal(t, *first.Points, *second.Points)
	require.WithinDuration(t, *first.GradedAt, *second.GradedAt, time.Second)
	require.Len(t, notifier.events, 1)
}

func TestManualGradeOverridesAutoGrade(t *testing.T) {
	db, svc, _ := setupGradingService(t)
	submission := seedSubmittedSubmission(t, db, 100)

	aiScore := 40
	autoGradedAt := time.Now().Add(-time.Minute)
	require.NoError(t, db.Model(&models.Submission{}).Where("id = ?", submission.ID).Updates(map[string]interface{}{
		"status":         models.SubmissionStatusGraded,
		"points":         aiScore,
		"ai_score":       aiScore,
		"auto_graded_at": autoGradedAt,
		"graded_at":      autoGradedAt,
	}).Error)

	points := 70
	result, err := svc.Grade(context.Background(), submission.ID, dto.ManualGradeRequest{
		Points:   &points,
		Feedback: "Yenidən baxıldı.",
	}, ActivityActor{ID: 8, Role: models.RoleAdmin})
	require.NoError(t, err)
	require.Equal(t, 70, *result.Points)
	require.Equal(t, uint(8), *result.GradedBy)
	// ai_score stays as the pipeline wrote it.
	require.NotNil(t, result.AIScore)
	require.Equal(t, 40, *result.AIScore)
}

func TestManualGradeValidation(t *testing.T) {
	db, svc, _ := setupGradingService(t)
	submission := seedSubmittedSubmission(t, db, 100)

	_, err := svc.Grade(context.Background(), submission.ID, dto.ManualGradeRequest{}, ActivityActor{ID: 1, Role: models.RoleAdmin})
	require.Error(t, err)
}

func TestManualGradeInvalidatesDashboard(t *testing.T) {
	db, _, _ := setupGradingService(t)
	submission := seedSubmittedSubmission(t, db, 100)

	invalidator := &stubInvalidator{}
	svc := NewGradingService(repository.NewGradingRepository(db), validator.New(validator.WithRequiredStructEnabled()), nil, nil, invalidator, zerolog.Nop())

	points := 66
	_, err := svc.Grade(context.Background(), submission.ID, dto.ManualGradeRequest{Points: &points, Feedback: "Yaxşı iş."}, ActivityActor{ID: 4, Role: models.RoleAdmin})
	require.NoError(t, err)
	require.Equal(t, []uint{submission.StudentID}, invalidator.studentIDs)
}
