package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tedris-app/tedris-api/internal/dto"
	"github.com/tedris-app/tedris-api/internal/models"
	"github.com/tedris-app/tedris-api/internal/repository"
)

// GradingService is the manual grading path: an admin sets points and
// feedback directly, bypassing the AI pipeline entirely. It is the fallback
// when auto-grading is unavailable, declined, or wrong, and may run at any
// time, including while the submission sits in the review queue.
type GradingService interface {
	Grade(ctx context.Context, submissionID uint, payload dto.ManualGradeRequest, actor ActivityActor) (dto.SubmissionResponse, error)
}

type gradingService struct {
	repo       repository.GradingRepository
	validator  *validator.Validate
	notifier   GradeNotifier
	activity   ActivityRecorder
	dashboards DashboardInvalidator
	sanitizer  *bluemonday.Policy
	logger     zerolog.Logger
	now        func() time.Time
}

// NewGradingService constructs the manual grading service.
func NewGradingService(repo repository.GradingRepository, validate *validator.Validate, notifier GradeNotifier, activity ActivityRecorder, dashboards DashboardInvalidator, logger zerolog.Logger) GradingService {
	return &gradingService{
		repo:       repo,
		validator:  validate,
		notifier:   notifier,
		activity:   activity,
		dashboards: dashboards,
		sanitizer:  bluemonday.StrictPolicy(),
		logger:     logger.With().Str("component", "grading_service").Logger(),
		now:        time.Now,
	}
}

func (s *gradingService) Grade(ctx context.Context, submissionID uint, payload dto.ManualGradeRequest, actor ActivityActor) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	submission, err := s.repo.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrGradingSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	maxScore := submission.Task.MaxScore
	if maxScore <= 0 {
		maxScore = 100
	}

	if *payload.Points > maxScore {
		return dto.SubmissionResponse{}, ErrScoreExceedsMax
	}

	feedback := s.sanitizer.Sanitize(strings.TrimSpace(payload.Feedback))

	// Re-applying an identical grade is a no-op so double submits from the
	// grading UI do not move graded_at.
	if submission.IsGraded() &&
		submission.Points != nil && *submission.Points == *payload.Points &&
		strings.TrimSpace(submission.Feedback) == feedback &&
		submission.GradedBy != nil && *submission.GradedBy == actor.ID {
		return dto.NewSubmissionResponse(submission), nil
	}

	points := *payload.Points
	gradedAt := s.now()
	gradedBy := actor.ID

	submission.Points = &points
	submission.Feedback = feedback
	submission.Status = models.SubmissionStatusGraded
	submission.GradedAt = &gradedAt
	submission.GradedBy = &gradedBy
	submission.NeedsReview = false

	if err := s.repo.Update(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	if s.dashboards != nil {
		s.dashboards.Invalidate(ctx, submission.StudentID)
	}

	if s.notifier != nil {
		s.notifier.GradeFinalized(GradeEvent{
			SubmissionID: submission.ID,
			TaskID:       submission.TaskID,
			StudentID:    submission.StudentID,
			Points:       points,
			MaxScore:     maxScore,
			GradedAt:     gradedAt,
		})
	}

	if s.activity != nil {
		_, _ = s.activity.Record(ctx, ActivityEntry{
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			Action:     "submission.graded",
			EntityType: "submission",
			EntityID:   &submission.ID,
			Metadata: map[string]interface{}{
				"submission_id": submission.ID,
				"student_id":    submission.StudentID,
				"points":        points,
				"task_id":       submission.TaskID,
			},
		})
	}

	return dto.NewSubmissionResponse(submission), nil
}
