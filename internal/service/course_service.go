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

// ErrCourseNotFound indicates the course could not be located.
var ErrCourseNotFound = errors.New("course not found")

// CourseService manages the course → module → topic curriculum tree.
type CourseService interface {
	List(ctx context.Context, publishedOnly bool) ([]dto.CourseResponse, error)
	Get(ctx context.Context, id uint) (dto.CourseResponse, error)
	Create(ctx context.Context, payload dto.CourseCreateRequest, actor ActivityActor) (dto.CourseResponse, error)
	AddModule(ctx context.Context, courseID uint, payload dto.ModuleCreateRequest) (dto.CourseResponse, error)
	AddTopic(ctx context.Context, courseID, moduleID uint, payload dto.TopicCreateRequest) (dto.CourseResponse, error)
}

type courseService struct {
	courses   repository.CourseRepository
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	activity  ActivityRecorder
	logger    zerolog.Logger
	now       func() time.Time
}

// NewCourseService constructs the course service.
func NewCourseService(courseRepo repository.CourseRepository, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) CourseService {
	return &courseService{
		courses:   courseRepo,
		validator: validate,
		sanitizer: bluemonday.UGCPolicy(),
		activity:  activity,
		logger:    logger.With().Str("component", "course_service").Logger(),
		now:       time.Now,
	}
}

func (s *courseService) List(ctx context.Context, publishedOnly bool) ([]dto.CourseResponse, error) {
	courses, err := s.courses.List(ctx, publishedOnly)
	if err != nil {
		return nil, err
	}

	return dto.NewCourseResponseSlice(courses), nil
}

func (s *courseService) Get(ctx context.Context, id uint) (dto.CourseResponse, error) {
	course, err := s.courses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CourseResponse{}, ErrCourseNotFound
		}
		return dto.CourseResponse{}, err
	}

	return dto.NewCourseResponse(course), nil
}

func (s *courseService) Create(ctx context.Context, payload dto.CourseCreateRequest, actor ActivityActor) (dto.CourseResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CourseResponse{}, err
	}

	course := models.Course{
		Title:       payload.Title,
		Description: s.sanitizer.Sanitize(payload.Description),
		Published:   payload.Published,
	}

	if err := s.courses.Create(ctx, &course); err != nil {
		return dto.CourseResponse{}, err
	}

	if s.activity != nil {
		_, _ = s.activity.Record(ctx, ActivityEntry{
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			Action:     "course.created",
			EntityType: "course",
			EntityID:   &course.ID,
			Metadata:   map[string]interface{}{"title": course.Title},
		})
	}

	return dto.NewCourseResponse(course), nil
}

func (s *courseService) AddModule(ctx context.Context, courseID uint, payload dto.ModuleCreateRequest) (dto.CourseResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CourseResponse{}, err
	}

	if _, err := s.courses.GetByID(ctx, courseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CourseResponse{}, ErrCourseNotFound
		}
		return dto.CourseResponse{}, err
	}

	module := models.CourseModule{
		CourseID: courseID,
		Title:    payload.Title,
		Position: payload.Position,
	}

	if err := s.courses.CreateModule(ctx, &module); err != nil {
		return dto.CourseResponse{}, err
	}

	return s.Get(ctx, courseID)
}

func (s *courseService) AddTopic(ctx context.Context, courseID, moduleID uint, payload dto.TopicCreateRequest) (dto.CourseResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CourseResponse{}, err
	}

	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CourseResponse{}, ErrCourseNotFound
		}
		return dto.CourseResponse{}, err
	}

	found := false
	for _, module := range course.Modules {
		if module.ID == moduleID {
			found = true
			break
		}
	}
	if !found {
		return dto.CourseResponse{}, ErrCourseNotFound
	}

	topic := models.Topic{
		ModuleID:  moduleID,
		Title:     payload.Title,
		Content:   s.sanitizer.Sanitize(payload.Content),
		Position:  payload.Position,
		Published: payload.Published,
	}

	if err := s.courses.CreateTopic(ctx, &topic); err != nil {
		return dto.CourseResponse{}, err
	}

	return s.Get(ctx, courseID)
}
