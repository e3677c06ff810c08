package service

import (
	"context"
	"errors"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tedris-app/tedris-api/internal/dto"
	"github.com/tedris-app/tedris-api/internal/models"
	"github.com/tedris-app/tedris-api/internal/observability"
	"github.com/tedris-app/tedris-api/internal/repository"
	"github.com/tedris-app/tedris-api/pkg/ai"
)

// ErrGraderUnavailable indicates no completion model is configured.
var ErrGraderUnavailable = errors.New("grader unavailable")

// AutoGradeConfig tunes the batch pipeline.
type AutoGradeConfig struct {
	BatchSize          int
	JobTimeout         time.Duration
	ReviewThresholdPct int
}

// AutoGradeService runs the AI grading pipeline: select pending submissions,
// dispatch them to the completion model, and triage the results.
type AutoGradeService interface {
	// RunBatch grades up to batchSize pending submissions. A batchSize < 0
	// falls back to the configured default; 0 runs an empty batch. One
	// job's failure never aborts its siblings; the summary reports counts
	// for the whole batch.
	RunBatch(ctx context.Context, batchSize int) (dto.AutoGradeSummary, error)
	Health(ctx context.Context) (dto.GradeHealthResponse, error)
	SelfTest(ctx context.Context) (dto.GradeTestResponse, error)
}

type autoGradeService struct {
	repo       repository.GradingRepository
	grader     ai.Grader
	notifier   GradeNotifier
	activity   ActivityRecorder
	dashboards DashboardInvalidator
	sanitizer  *bluemonday.Policy
	logger     zerolog.Logger
	tracer     trace.Tracer
	cfg        AutoGradeConfig
	now        func() time.Time
}

// NewAutoGradeService constructs the pipeline service.
func NewAutoGradeService(repo repository.GradingRepository, grader ai.Grader, notifier GradeNotifier, activity ActivityRecorder, dashboards DashboardInvalidator, logger zerolog.Logger, cfg AutoGradeConfig) AutoGradeService {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 3
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 45 * time.Second
	}
	if cfg.ReviewThresholdPct <= 0 {
		cfg.ReviewThresholdPct = 40
	}

	return &autoGradeService{
		repo:       repo,
		grader:     grader,
		notifier:   notifier,
		activity:   activity,
		dashboards: dashboards,
		sanitizer:  bluemonday.StrictPolicy(),
		logger:     logger.With().Str("component", "autograde_service").Logger(),
		tracer:     otel.Tracer("github.com/tedris-app/tedris-api/internal/service/autograde"),
		cfg:        cfg,
		now:        time.Now,
	}
}

// needsReview is the triage predicate: a result is review-worthy when the
// reply was recovered by the fallback extractor, or when the score falls
// below the configured fraction of the task maximum.
func needsReview(result ai.GradeResult, maxScore, thresholdPct int) bool {
	if result.Fallback {
		return true
	}
	return result.Score*100 < thresholdPct*maxScore
}

func (s *autoGradeService) RunBatch(ctx context.Context, batchSize int) (dto.AutoGradeSummary, error) {
	if s.grader == nil {
		return dto.AutoGradeSummary{}, ErrGraderUnavailable
	}

	if batchSize < 0 {
		batchSize = s.cfg.BatchSize
	}

	ctx, span := s.tracer.Start(ctx, "autograde.batch", trace.WithAttributes(
		attribute.Int("autograde.batch_size", batchSize),
	))
	defer span.End()

	observability.GradeBatches().Inc()

	pending, err := s.repo.ListPending(ctx, batchSize)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "selector_failed")
		return dto.AutoGradeSummary{}, err
	}

	summary := dto.AutoGradeSummary{Processed: len(pending)}
	for i := range pending {
		outcome := s.gradeOne(ctx, &pending[i])
		observability.GradeJobs().WithLabelValues(outcome).Inc()
		switch outcome {
		case "graded":
			summary.Graded++
		case "flagged":
			summary.FlaggedForReview++
		default:
			summary.Failed++
		}
	}

	span.SetAttributes(
		attribute.Int("autograde.graded", summary.Graded),
		attribute.Int("autograde.flagged", summary.FlaggedForReview),
		attribute.Int("autograde.failed", summary.Failed),
	)

	s.logger.Info().
		Int("processed", summary.Processed).
		Int("graded", summary.Graded).
		Int("flagged", summary.FlaggedForReview).
		Int("failed", summary.Failed).
		Msg("auto-grading batch completed")

	return summary, nil
}

// gradeOne runs the dispatcher and triage for a single submission. A failed
// dispatch leaves the row untouched so a later batch can retry it.
func (s *autoGradeService) gradeOne(ctx context.Context, submission *models.Submission) string {
	maxScore := submission.Task.MaxScore
	if maxScore <= 0 {
		maxScore = 100
	}

	input := ai.GradeInput{
		TaskTitle:    submission.Task.Title,
		Instructions: submission.Task.Instructions,
		MaxScore:     maxScore,
		StudentName:  submission.Student.Name,
		Content:      submission.Content,
	}
	if len(submission.Attachments) > 0 {
		input.AttachmentURL = submission.Attachments[0].URL
	}

	jobCtx, cancel := context.WithTimeout(ctx, s.cfg.JobTimeout)
	result, err := s.grader.Grade(jobCtx, input)
	cancel()
	if err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("dispatch failed, submission left for retry")
		return "failed"
	}

	aiScore := result.Score
	gradedAt := s.now()
	submission.AIScore = &aiScore
	submission.Feedback = s.sanitizer.Sanitize(result.Feedback)
	submission.AutoGradedAt = &gradedAt

	flagged := needsReview(result, maxScore, s.cfg.ReviewThresholdPct)
	if flagged {
		submission.Status = models.SubmissionStatusPendingReview
		submission.NeedsReview = true
	} else {
		submission.Status = models.SubmissionStatusGraded
		submission.Points = &aiScore
		submission.GradedAt = &gradedAt
		submission.NeedsReview = false
	}

	if err := s.repo.Update(ctx, submission); err != nil {
		s.logger.Error().Err(err).Uint("submission_id", submission.ID).Msg("failed to persist grading result")
		return "failed"
	}

	// Both outcomes change the student's dashboard counters.
	if s.dashboards != nil {
		s.dashboards.Invalidate(ctx, submission.StudentID)
	}

	if !flagged && s.notifier != nil {
		s.notifier.GradeFinalized(GradeEvent{
			SubmissionID: submission.ID,
			TaskID:       submission.TaskID,
			StudentID:    submission.StudentID,
			Points:       aiScore,
			MaxScore:     maxScore,
			AutoGraded:   true,
			GradedAt:     gradedAt,
		})
	}

	if flagged {
		return "flagged"
	}
	return "graded"
}

func (s *autoGradeService) Health(ctx context.Context) (dto.GradeHealthResponse, error) {
	if s.grader == nil {
		return dto.GradeHealthResponse{}, ErrGraderUnavailable
	}

	probeCtx, cancel := context.WithTimeout(ctx, s.cfg.JobTimeout)
	defer cancel()

	if err := s.grader.Probe(probeCtx); err != nil {
		s.logger.Warn().Err(err).Msg("grader probe failed")
		return dto.GradeHealthResponse{Success: false, Model: s.grader.Model()}, nil
	}

	return dto.GradeHealthResponse{Success: true, Model: s.grader.Model()}, nil
}

// referenceAnswer is one tier of the built-in regression probe.
type referenceAnswer struct {
	tier    string
	content string
}

// SelfTest grades three canned answers of known quality against a fixed
// task and verifies the relative score ordering, guarding against prompt or
// parsing drift.
func (s *autoGradeService) SelfTest(ctx context.Context) (dto.GradeTestResponse, error) {
	if s.grader == nil {
		return dto.GradeTestResponse{}, ErrGraderUnavailable
	}

	const instructions = "İki üstəgəl ikini hesablayın və cavabınızı qısaca izah edin."
	references := []referenceAnswer{
		{tier: "excellent", content: "2+2=4. Toplama zamanı iki ədədin qiymətləri birləşdirilir, buna görə nəticə dörddür."},
		{tier: "partial", content: "Cavab 4-dür."},
		{tier: "poor", content: "Bilmirəm."},
	}

	response := dto.GradeTestResponse{Model: s.grader.Model()}
	scores := make([]int, 0, len(references))
	for _, reference := range references {
		jobCtx, cancel := context.WithTimeout(ctx, s.cfg.JobTimeout)
		result, err := s.grader.Grade(jobCtx, ai.GradeInput{
			TaskTitle:    "Sadə hesablama",
			Instructions: instructions,
			MaxScore:     100,
			StudentName:  "Reference",
			Content:      reference.content,
		})
		cancel()
		if err != nil {
			return dto.GradeTestResponse{}, err
		}

		response.Tiers = append(response.Tiers, dto.GradeTestTier{
			Tier:     reference.tier,
			Score:    result.Score,
			Feedback: result.Feedback,
		})
		scores = append(scores, result.Score)
	}

	response.Passed = true
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[i-1] {
			response.Passed = false
			break
		}
	}

	return response, nil
}
