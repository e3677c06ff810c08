package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tedris-app/tedris-api/internal/dto"
	"github.com/tedris-app/tedris-api/internal/models"
	"github.com/tedris-app/tedris-api/internal/repository"
)

// ErrGradingSubmissionNotFound indicates the submission was not located.
var ErrGradingSubmissionNotFound = errors.New("submission not found")

// ErrScoreExceedsMax indicates a grading score surpasses the task max.
var ErrScoreExceedsMax = errors.New("score exceeds task max")

// ErrNoAISuggestion indicates an accept was attempted on a submission the
// auto-grading pass never scored.
var ErrNoAISuggestion = errors.New("submission has no ai score to accept")

// ReviewService is the human side of the pipeline: the worklist of flagged
// submissions and the two finalization operations.
type ReviewService interface {
	ListQueue(ctx context.Context) ([]dto.SubmissionResponse, error)
	// AcceptGrade finalizes the AI suggestion as-is; points are copied from
	// ai_score at accept time. Calling it on an already-graded submission
	// is a no-op.
	AcceptGrade(ctx context.Context, submissionID uint, actor ActivityActor) (dto.SubmissionResponse, error)
	// ModifyAndAccept finalizes with caller-supplied score and feedback.
	// The stored ai_score is preserved so the override history stays
	// visible.
	ModifyAndAccept(ctx context.Context, submissionID uint, payload dto.ReviewOverrideRequest, actor ActivityActor) (dto.SubmissionResponse, error)
}

type reviewService struct {
	repo       repository.GradingRepository
	validator  *validator.Validate
	notifier   GradeNotifier
	activity   ActivityRecorder
	dashboards DashboardInvalidator
	sanitizer  *bluemonday.Policy
	logger     zerolog.Logger
	now        func() time.Time
}

// NewReviewService constructs the review queue service.
func NewReviewService(repo repository.GradingRepository, validate *validator.Validate, notifier GradeNotifier, activity ActivityRecorder, dashboards DashboardInvalidator, logger zerolog.Logger) ReviewService {
	return &reviewService{
		repo:       repo,
		validator:  validate,
		notifier:   notifier,
		activity:   activity,
		dashboards: dashboards,
		sanitizer:  bluemonday.StrictPolicy(),
		logger:     logger.With().Str("component", "review_service").Logger(),
		now:        time.Now,
	}
}

func (s *reviewService) ListQueue(ctx context.Context) ([]dto.SubmissionResponse, error) {
	submissions, err := s.repo.ListReviewQueue(ctx)
	if err != nil {
		return nil, err
	}

	return dto.NewSubmissionResponseSlice(submissions), nil
}

func (s *reviewService) AcceptGrade(ctx context.Context, submissionID uint, actor ActivityActor) (dto.SubmissionResponse, error) {
	submission, err := s.getSubmission(ctx, submissionID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	if submission.IsGraded() {
		return dto.NewSubmissionResponse(submission), nil
	}

	if submission.AIScore == nil {
		return dto.SubmissionResponse{}, ErrNoAISuggestion
	}

	points := *submission.AIScore
	return s.finalize(ctx, submission, points, submission.Feedback, actor, "submission.review_accepted")
}

func (s *reviewService) ModifyAndAccept(ctx context.Context, submissionID uint, payload dto.ReviewOverrideRequest, actor ActivityActor) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	submission, err := s.getSubmission(ctx, submissionID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	if submission.IsGraded() {
		return dto.NewSubmissionResponse(submission), nil
	}

	maxScore := submission.Task.MaxScore
	if maxScore <= 0 {
		maxScore = 100
	}

	if *payload.Points > maxScore {
		return dto.SubmissionResponse{}, ErrScoreExceedsMax
	}

	feedback := submission.Feedback
	if payload.Feedback != "" {
		feedback = s.sanitizer.Sanitize(payload.Feedback)
	}

	return s.finalize(ctx, submission, *payload.Points, feedback, actor, "submission.review_overridden")
}

func (s *reviewService) getSubmission(ctx context.Context, id uint) (models.Submission, error) {
	submission, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Submission{}, ErrGradingSubmissionNotFound
		}
		return models.Submission{}, err
	}

	return submission, nil
}

// finalize applies the shared terminal transition: graded status, stamped
// time and actor, review flag cleared. The ai_score column is never touched
// here.
func (s *reviewService) finalize(ctx context.Context, submission models.Submission, points int, feedback string, actor ActivityActor, action string) (dto.SubmissionResponse, error) {
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

	maxScore := submission.Task.MaxScore
	if maxScore <= 0 {
		maxScore = 100
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
			Action:     action,
			EntityType: "submission",
			EntityID:   &submission.ID,
			Metadata: map[string]interface{}{
				"submission_id": submission.ID,
				"student_id":    submission.StudentID,
				"points":        points,
			},
		})
	}

	return dto.NewSubmissionResponse(submission), nil
}
