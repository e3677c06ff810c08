package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/tedris-app/tedris-api/internal/models"
)

// GradingRepository provides persistence helpers for the grading pipeline
// and the review queue.
type GradingRepository interface {
	// ListPending returns up to limit submissions awaiting grading.
	// Submissions on unpublished tasks are excluded: a draft task may
	// still change its instructions or max score. No ordering is
	// guaranteed beyond insertion order; the pipeline takes an arbitrary
	// page of pending rows.
	ListPending(ctx context.Context, limit int) ([]models.Submission, error)
	ListReviewQueue(ctx context.Context) ([]models.Submission, error)
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	Update(ctx context.Context, submission *models.Submission) error
}

type gradingRepository struct {
	db *gorm.DB
}

// NewGradingRepository builds a grading-aware submission repository.
func NewGradingRepository(db *gorm.DB) GradingRepository {
	return &gradingRepository{db: db}
}

func (r *gradingRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Submission{}).
		Preload("Task").
		Preload("Student")
}

func (r *gradingRepository) ListPending(ctx context.Context, limit int) ([]models.Submission, error) {
	if limit <= 0 {
		return nil, nil
	}

	var submissions []models.Submission
	if err := r.baseQuery(ctx).
		Select("submissions.*").
		Joins("JOIN tasks ON tasks.id = submissions.task_id").
		Where("submissions.status = ? AND tasks.published = ?", models.SubmissionStatusSubmitted, true).
		Limit(limit).
		Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *gradingRepository) ListReviewQueue(ctx context.Context) ([]models.Submission, error) {
	var submissions []models.Submission
	if err := r.baseQuery(ctx).
		Where("status = ? OR needs_review = ?", models.SubmissionStatusPendingReview, true).
		Order("auto_graded_at ASC").
		Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *gradingRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *gradingRepository) Update(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Save(submission).Error
}
