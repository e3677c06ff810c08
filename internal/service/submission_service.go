package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tedris-app/tedris-api/internal/dto"
	"github.com/tedris-app/tedris-api/internal/models"
	"github.com/tedris-app/tedris-api/internal/repository"
)

// ErrSubmissionNotFound indicates a submission could not be found.
var ErrSubmissionNotFound = errors.New("submission not found")

// ErrSubmissionLocked indicates the submission can no longer be edited by
// the student because grading has started or finished.
var ErrSubmissionLocked = errors.New("submission can no longer be edited")

// ErrSubmissionEmpty indicates neither text nor a file was provided.
var ErrSubmissionEmpty = errors.New("submission needs text content or a file")

// ErrTaskPastDue indicates the task deadline has passed.
var ErrTaskPastDue = errors.New("task is past due")

// ErrUnsupportedFileType indicates the uploaded file's detected MIME type is
// not in the allow list.
var ErrUnsupportedFileType = errors.New("unsupported file type")

// FileUploader abstracts blob storage. Upload returns a public URL; Delete
// removes the blob behind one. Callers treat Delete failures as non-fatal.
type FileUploader interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
	Delete(ctx context.Context, url string) error
}

// SubmissionService orchestrates student submission workflows.
type SubmissionService interface {
	List(ctx context.Context, filter dto.SubmissionFilter) ([]dto.SubmissionResponse, error)
	Get(ctx context.Context, id uint) (dto.SubmissionResponse, error)
	Create(ctx context.Context, studentID uint, payload dto.SubmissionCreateRequest, file *multipart.FileHeader) (dto.SubmissionResponse, error)
	// Edit lets the owning student revise the answer while it is still in
	// the submitted state; the submission timestamp is reset. A new file
	// replaces any existing attachment, whose blob is removed best effort.
	Edit(ctx context.Context, id uint, studentID uint, payload dto.SubmissionEditRequest, file *multipart.FileHeader) (dto.SubmissionResponse, error)
}

type submissionService struct {
	submissions repository.SubmissionRepository
	tasks       repository.TaskRepository
	validator   *validator.Validate
	uploader    FileUploader
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSubmissionService constructs a SubmissionService instance.
func NewSubmissionService(subRepo repository.SubmissionRepository, taskRepo repository.TaskRepository, validate *validator.Validate, uploader FileUploader, logger zerolog.Logger) SubmissionService {
	return &submissionService{
		submissions: subRepo,
		tasks:       taskRepo,
		validator:   validate,
		uploader:    uploader,
		sanitizer:   bluemonday.UGCPolicy(),
		logger:      logger.With().Str("component", "submission_service").Logger(),
		now:         time.Now,
	}
}

func (s *submissionService) List(ctx context.Context, filter dto.SubmissionFilter) ([]dto.SubmissionResponse, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, err
	}

	repoFilter := repository.SubmissionFilter{
		TaskID:    filter.TaskID,
		StudentID: filter.StudentID,
		Status:    filter.Status,
	}

	submissions, err := s.submissions.List(ctx, repoFilter)
	if err != nil {
		return nil, err
	}

	return dto.NewSubmissionResponseSlice(submissions), nil
}

func (s *submissionService) Get(ctx context.Context, id uint) (dto.SubmissionResponse, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) Create(ctx context.Context, studentID uint, payload dto.SubmissionCreateRequest, file *multipart.FileHeader) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	content := strings.TrimSpace(payload.Content)
	if content == "" && file == nil {
		return dto.SubmissionResponse{}, ErrSubmissionEmpty
	}

	task, err := s.tasks.GetByID(ctx, payload.TaskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrTaskNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	if task.IsPastDue(s.now()) {
		return dto.SubmissionResponse{}, ErrTaskPastDue
	}

	submission := models.Submission{
		TaskID:      payload.TaskID,
		StudentID:   studentID,
		Content:     s.sanitizer.Sanitize(content),
		Status:      models.SubmissionStatusSubmitted,
		SubmittedAt: s.now(),
	}

	if file != nil {
		attachment, err := s.storeAttachment(ctx, file)
		if err != nil {
			// Upload failure blocks the write: the row must never claim
			// an attachment URL that does not exist.
			return dto.SubmissionResponse{}, err
		}
		submission.Attachments = []models.Attachment{attachment}
	}

	if err := s.submissions.Create(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	created, err := s.submissions.GetByID(ctx, submission.ID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.logger.Info().Uint("submission_id", created.ID).Uint("task_id", created.TaskID).Msg("submission created")

	return dto.NewSubmissionResponse(created), nil
}

func (s *submissionService) Edit(ctx context.Context, id uint, studentID uint, payload dto.SubmissionEditRequest, file *multipart.FileHeader) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	if submission.StudentID != studentID {
		return dto.SubmissionResponse{}, ErrSubmissionNotFound
	}

	if submission.Status != models.SubmissionStatusSubmitted {
		return dto.SubmissionResponse{}, ErrSubmissionLocked
	}

	var replaced []models.Attachment
	if file != nil {
		attachment, err := s.storeAttachment(ctx, file)
		if err != nil {
			return dto.SubmissionResponse{}, err
		}
		replaced = submission.Attachments
		submission.Attachments = []models.Attachment{attachment}
	}

	submission.Content = s.sanitizer.Sanitize(strings.TrimSpace(payload.Content))
	submission.SubmittedAt = s.now()

	if err := s.submissions.Update(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.cleanupBlobs(ctx, replaced)

	return dto.NewSubmissionResponse(submission), nil
}

// cleanupBlobs removes orphaned attachment blobs. Failures are logged only;
// the owning row has already moved on.
func (s *submissionService) cleanupBlobs(ctx context.Context, attachments []models.Attachment) {
	for _, attachment := range attachments {
		if err := s.uploader.Delete(ctx, attachment.URL); err != nil {
			s.logger.Warn().Err(err).Str("url", attachment.URL).Msg("attachment cleanup failed")
		}
	}
}

func (s *submissionService) storeAttachment(ctx context.Context, file *multipart.FileHeader) (models.Attachment, error) {
	if err := validateFileType(file); err != nil {
		return models.Attachment{}, err
	}

	reader, err := file.Open()
	if err != nil {
		return models.Attachment{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	url, err := s.uploader.Upload(ctx, file.Filename, reader)
	if err != nil {
		return models.Attachment{}, fmt.Errorf("failed to upload file: %w", err)
	}

	return models.Attachment{
		Name: file.Filename,
		URL:  url,
		Size: file.Size,
	}, nil
}

var allowedUploadTypes = []string{
	"application/pdf",
	"application/zip",
	"text/plain",
	"image/png",
	"image/jpeg",
}

func validateFileType(file *multipart.FileHeader) error {
	reader, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	detected, err := mimetype.DetectReader(reader)
	if err != nil {
		return fmt.Errorf("failed to detect file type: %w", err)
	}

	for _, allowed := range allowedUploadTypes {
		if detected.Is(allowed) {
			return nil
		}
	}

	return fmt.Errorf("%w: %s", ErrUnsupportedFileType, detected.String())
}
