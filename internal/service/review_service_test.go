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

func setupReviewService(t *testing.T) (*gorm.DB, ReviewService, *stubNotifier) {
	t.Helper()

	dsn := fmt.Sprintf("file:review_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.UserProfile{}, &models.Task{}, &models.Submission{}))

	repo := repository.NewGradingRepository(db)
	validate := validator.New(validator.WithRequiredStructEnabled())
	notifier := &stubNotifier{}
	svc := NewReviewService(repo, validate, notifier, nil, nil, zerolog.Nop())

	return db, svc, notifier
}

func seedFlaggedSubmission(t *testing.T, db *gorm.DB, aiScore int) models.Submission {
	t.Helper()

	task := models.Task{Title: "Essay", Instructions: "Write.", MaxScore: 100}
	require.NoError(t, db.Create(&task).Error)
	student := models.UserProfile{Name: "Nigar", Email: fmt.Sprintf("nigar_%d@example.com", time.Now().UnixNano()), Role: models.RoleStudent}
	require.NoError(t, db.Create(&student).Error)

	autoGradedAt := time.Now().Add(-time.Minute)
	submission := models.Submission{
		TaskID:       task.ID,
		StudentID:    student.ID,
		Content:      "answer",
		Status:       models.SubmissionStatusPendingReview,
		AIScore:      &aiScore,
		Feedback:     "Orta səviyyəli cavab.",
		NeedsReview:  true,
		AutoGradedAt: &autoGradedAt,
		SubmittedAt:  time.Now().Add(-time.Hour),
	}
	require.NoError(t, db.Create(&submission).Error)
	return submission
}

func TestReviewListQueue(t *testing.T) {
	db, svc, _ := setupReviewService(t)

	flagged := seedFlaggedSubmission(t, db, 30)

	// A graded row must not appear in the queue.
	points := 95
	graded := models.Submission{
		TaskID:      flagged.TaskID,
		StudentID:   flagged.StudentID,
		Content:     "done",
		Status:      models.SubmissionStatusGraded,
		Points:      &points,
		SubmittedAt: time.Now(),
	}
	require.NoError(t, db.Create(&graded).Error)

	queue, err := svc.ListQueue(context.Background())
	require.NoError(t, err)
	require.Len(t, queue, 1)
	require.Equal(t, flagged.ID, queue[0].ID)
}

func TestReviewAcceptGrade(t *testing.T) {
	db, svc, notifier := setupReviewService(t)
	flagged := seedFlaggedSubmission(t, db, 35)

	actor := ActivityActor{ID: 7, Role: models.RoleAdmin}
	result, err := svc.AcceptGrade(context.Background(), flagged.ID, actor)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusGraded, result.Status)
	require.NotNil(t, result.Points)
	require.Equal(t, 35, *result.Points)
	require.NotNil(t, result.GradedBy)
	require.Equal(t, uint(7), *result.GradedBy)
	require.False(t, result.NeedsReview)
	require.Len(t, notifier.events, 1)

	// Accepting again is a no-op: graded_at and points stay put.
	firstGradedAt := *result.GradedAt
	again, err := svc.AcceptGrade(context.Background(), flagged.ID, ActivityActor{ID: 99, Role: models.RoleAdmin})
	require.NoError(t, err)
	require.Equal(t, 35, *again.Points)
	require.Equal(t, uint(7), *again.GradedBy)
	require.WithinDuration(t, firstGradedAt, *again.GradedAt, time.Second)
	require.Len(t, notifier.events, 1)
}

func TestReviewAcceptWithoutAIScore(t *testing.T) {
	db, svc, _ := setupReviewService(t)

	task := models.Task{Title: "Essay", Instructions: "Write.", MaxScore: 100}
	require.NoError(t, db.Create(&task).Error)
	student := models.UserProfile{Name: "Tural", Email: "tural@example.com", Role: models.RoleStudent}
	require.NoError(t, db.Create(&student).Error)

	submission := models.Submission{
		TaskID:      task.ID,
		StudentID:   student.ID,
		Status:      models.SubmissionStatusPendingReview,
		NeedsReview: true,
		SubmittedAt: time.Now(),
	}
	require.NoError(t, db.Create(&submission).Error)

	_, err := svc.AcceptGrade(context.Background(), submission.ID, ActivityActor{ID: 1, Role: models.RoleAdmin})
	require.ErrorIs(t, err, ErrNoAISuggestion)
}

func TestReviewModifyAndAcceptPreservesAIScore(t *testing.T) {
	db, svc, _ := setupReviewService(t)
	flagged := seedFlaggedSubmission(t, db, 30)

	points := 65
	result, err := svc.ModifyAndAccept(context.Background(), flagged.ID, dto.ReviewOverrideRequest{
		Points:   &points,
		Feedback: "Cavab yenidən qiymətləndirildi.",
	}, ActivityActor{ID: 5, Role: models.RoleAdmin})
	require.NoError(t, err)
	require.Equal(t, 65, *result.Points)
	require.Equal(t, "Cavab yenidən qiymətləndirildi.", result.Feedback)

	// The AI suggestion survives the override.
	var stored models.Submission
	require.NoError(t, db.First(&stored, flagged.ID).Error)
	require.NotNil(t, stored.AIScore)
	require.Equal(t, 30, *stored.AIScore)
	require.Equal(t, models.SubmissionStatusGraded, stored.Status)
	require.False(t, stored.NeedsReview)
}

func TestReviewModifyAndAcceptRejectsScoreAboveMax(t *testing.T) {
	db, svc, notifier := setupReviewService(t)
	flagged := seedFlaggedSubmission(t, db, 30)

	points := 150
	_, err := svc.ModifyAndAccept(context.Background(), flagged.ID, dto.ReviewOverrideRequest{Points: &points}, ActivityActor{ID: 5, Role: models.RoleAdmin})
	require.ErrorIs(t, err, ErrScoreExceedsMax)
	require.Empty(t, notifier.events)

	var stored models.Submission
	require.NoError(t, db.First(&stored, flagged.ID).Error)
	require.Equal(t, models.SubmissionStatusPendingReview, stored.Status)
}

func TestReviewNotFound(t *testing.T) {
	_, svc, _ := setupReviewService(t)

	_, err := svc.AcceptGrade(context.Background(), 9999, ActivityActor{ID: 1, Role: models.RoleAdmin})
	require.ErrorIs(t, err, ErrGradingSubmissionNotFound)
}

func TestAcceptGradeInvalidatesDashboard(t *testing.T) {
	db, _, _ := setupReviewService(t)
	submission := seedFlaggedSubmission(t, db, 40)

	invalidator := &stubInvalidator{}
	svc := NewReviewService(repository.NewGradingRepository(db), validator.New(validator.WithRequiredStructEnabled()), nil, nil, invalidator, zerolog.Nop())

	_, err := svc.AcceptGrade(context.Background(), submission.ID, ActivityActor{ID: 7, Role: models.RoleAdmin})
	require.NoError(t, err)
	require.Equal(t, []uint{submission.StudentID}, invalidator.studentIDs)

	// The idempotent re-accept changes nothing, so the cache stays put.
	_, err = svc.AcceptGrade(context.Background(), submission.ID, ActivityActor{ID: 7, Role: models.RoleAdmin})
	require.NoError(t, err)
	require.Equal(t, []uint{submission.StudentID}, invalidator.studentIDs)
}
