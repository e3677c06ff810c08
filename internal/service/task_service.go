package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tedris-app/tedris-api/internal/dto"
	"github.com/tedris-app/tedris-api/internal/models"
	"github.com/tedris-app/tedris-api/internal/observability"
	"github.com/tedris-app/tedris-api/internal/repository"
)

// ErrTaskNotFound indicates a task could not be found.
var ErrTaskNotFound = errors.New("task not found")

// TaskService orchestrates assignment definition workflows.
type TaskService interface {
	List(ctx context.Context, publishedOnly bool) ([]dto.TaskResponse, error)
	Get(ctx context.Context, id uint) (dto.TaskResponse, error)
	Create(ctx context.Context, payload dto.TaskCreateRequest) (dto.TaskResponse, error)
	Update(ctx context.Context, id uint, payload dto.TaskUpdateRequest) (dto.TaskResponse, error)
	Delete(ctx context.Context, id uint) error
	// AttachFile uploads a file and appends it to the task's attachment
	// list. The DB write happens only after the upload succeeded.
	AttachFile(ctx context.Context, id uint, file *multipart.FileHeader) (dto.TaskResponse, error)
}

type taskService struct {
	repo      repository.TaskRepository
	validator *validator.Validate
	uploader  FileUploader
	logger    zerolog.Logger
}

// NewTaskService constructs a TaskService instance.
func NewTaskService(repo repository.TaskRepository, validate *validator.Validate, uploader FileUploader, logger zerolog.Logger) TaskService {
	return &taskService{
		repo:      repo,
		validator: validate,
		uploader:  uploader,
		logger:    logger.With().Str("component", "task_service").Logger(),
	}
}

func (s *taskService) List(ctx context.Context, publishedOnly bool) ([]dto.TaskResponse, error) {
	filter := repository.TaskFilter{}
	if publishedOnly {
		published := true
		filter.Published = &published
	}

	tasks, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return dto.NewTaskResponseSlice(tasks), nil
}

func (s *taskService) Get(ctx context.Context, id uint) (dto.TaskResponse, error) {
	task, err := s.getTask(ctx, id)
	if err != nil {
		return dto.TaskResponse{}, err
	}

	return dto.NewTaskResponse(task), nil
}

func (s *taskService) Create(ctx context.Context, payload dto.TaskCreateRequest) (dto.TaskResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TaskResponse{}, err
	}

	task := models.Task{
		Title:        payload.Title,
		Instructions: payload.Instructions,
		Content:      payload.Content,
		MaxScore:     payload.MaxScore,
		DueDate:      payload.DueDate,
		Published:    payload.Published,
		TopicID:      payload.TopicID,
	}

	if err := s.repo.Create(ctx, &task); err != nil {
		return dto.TaskResponse{}, err
	}

	s.logger.Info().Uint("task_id", task.ID).Str("title", task.Title).Msg("task created")

	return dto.NewTaskResponse(task), nil
}

func (s *taskService) Update(ctx context.Context, id uint, payload dto.TaskUpdateRequest) (dto.TaskResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TaskResponse{}, err
	}

	task, err := s.getTask(ctx, id)
	if err != nil {
		return dto.TaskResponse{}, err
	}

	if payload.Title != nil {
		task.Title = *payload.Title
	}
	if payload.Instructions != nil {
		task.Instructions = *payload.Instructions
	}
	if payload.Content != nil {
		task.Content = *payload.Content
	}
	if payload.MaxScore != nil {
		task.MaxScore = *payload.MaxScore
	}
	if payload.DueDate != nil {
		task.DueDate = payload.DueDate
	}
	if payload.Published != nil {
		task.Published = *payload.Published
	}
	if payload.TopicID != nil {
		task.TopicID = payload.TopicID
	}

	if err := s.repo.Update(ctx, &task); err != nil {
		return dto.TaskResponse{}, err
	}

	return dto.NewTaskResponse(task), nil
}

func (s *taskService) Delete(ctx context.Context, id uint) error {
	task, err := s.getTask(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	// Blob cleanup is best effort: a storage hiccup must not resurrect the
	// deleted task.
	for _, attachment := range task.Attachments {
		if err := s.uploader.Delete(ctx, attachment.URL); err != nil {
			s.logger.Warn().Err(err).Str("url", attachment.URL).Msg("attachment cleanup failed")
		}
	}

	return nil
}

func (s *taskService) AttachFile(ctx context.Context, id uint, file *multipart.FileHeader) (dto.TaskResponse, error) {
	if file == nil {
		return dto.TaskResponse{}, fmt.Errorf("file is required")
	}

	task, err := s.getTask(ctx, id)
	if err != nil {
		return dto.TaskResponse{}, err
	}

	if err := validateFileType(file); err != nil {
		return dto.TaskResponse{}, err
	}

	reader, err := file.Open()
	if err != nil {
		return dto.TaskResponse{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	start := time.Now()
	url, err := s.uploader.Upload(ctx, file.Filename, reader)
	observability.UploadLatency().Observe(time.Since(start).Seconds())
	if err != nil {
		return dto.TaskResponse{}, fmt.Errorf("failed to upload file: %w", err)
	}

	task.Attachments = append(task.Attachments, models.Attachment{
		Name: file.Filename,
		URL:  url,
		Size: file.Size,
	})

	if err := s.repo.Update(ctx, &task); err != nil {
		return dto.TaskResponse{}, err
	}

	return dto.NewTaskResponse(task), nil
}

func (s *taskService) getTask(ctx context.Context, id uint) (models.Task, error) {
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Task{}, ErrTaskNotFound
		}
		return models.Task{}, err
	}

	return task, nil
}
