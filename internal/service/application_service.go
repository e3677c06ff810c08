package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tedris-app/tedris-api/internal/dto"
	"github.com/tedris-app/tedris-api/internal/models"
	"github.com/tedris-app/tedris-api/internal/repository"
)

// ErrApplicationNotFound indicates the application could not be located.
var ErrApplicationNotFound = errors.New("application not found")

// ErrApplicationDecided indicates the application already left the pending state.
var ErrApplicationDecided = errors.New("application already decided")

// ApplicationService handles prospective-student registration forms.
type ApplicationService interface {
	Submit(ctx context.Context, payload dto.ApplicationSubmitRequest) (dto.ApplicationResponse, error)
	List(ctx context.Context, status *string) ([]dto.ApplicationResponse, error)
	// Decide approves or rejects a pending application. Approval creates a
	// student profile and, when a class was chosen, enrolls it.
	Decide(ctx context.Context, id uint, payload dto.ApplicationDecisionRequest, actor ActivityActor) (dto.ApplicationResponse, error)
}

type applicationService struct {
	applications repository.ApplicationRepository
	users        repository.UserRepository
	enrollments  repository.EnrollmentRepository
	validator    *validator.Validate
	activity     ActivityRecorder
	logger       zerolog.Logger
	now          func() time.Time
}

// NewApplicationService constructs the application service.
func NewApplicationService(applicationRepo repository.ApplicationRepository, userRepo repository.UserRepository, enrollmentRepo repository.EnrollmentRepository, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) ApplicationService {
	return &applicationService{
		applications: applicationRepo,
		users:        userRepo,
		enrollments:  enrollmentRepo,
		validator:    validate,
		activity:     activity,
		logger:       logger.With().Str("component", "application_service").Logger(),
		now:          time.Now,
	}
}

func (s *applicationService) Submit(ctx context.Context, payload dto.ApplicationSubmitRequest) (dto.ApplicationResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ApplicationResponse{}, err
	}

	application := models.Application{
		Reference:  fmt.Sprintf("APP-%s", strings.ToUpper(uuid.NewString()[:8])),
		FullName:   strings.TrimSpace(payload.FullName),
		Email:      strings.ToLower(strings.TrimSpace(payload.Email)),
		Phone:      strings.TrimSpace(payload.Phone),
		CourseID:   payload.CourseID,
		ClassID:    payload.ClassID,
		StudyMode:  models.StudyMode(payload.StudyMode),
		Motivation: payload.Motivation,
		Status:     models.ApplicationStatusPending,
	}

	if err := s.applications.Create(ctx, &application); err != nil {
		return dto.ApplicationResponse{}, err
	}

	s.logger.Info().Str("reference", application.Reference).Msg("application received")

	return dto.NewApplicationResponse(application), nil
}

func (s *applicationService) List(ctx context.Context, status *string) ([]dto.ApplicationResponse, error) {
	applications, err := s.applications.List(ctx, status)
	if err != nil {
		return nil, err
	}

	return dto.NewApplicationResponseSlice(applications), nil
}

func (s *applicationService) Decide(ctx context.Context, id uint, payload dto.ApplicationDecisionRequest, actor ActivityActor) (dto.ApplicationResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ApplicationResponse{}, err
	}

	application, err := s.applications.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ApplicationResponse{}, ErrApplicationNotFound
		}
		return dto.ApplicationResponse{}, err
	}

	if application.Status != models.ApplicationStatusPending {
		return dto.ApplicationResponse{}, ErrApplicationDecided
	}

	decidedAt := s.now()
	decidedBy := actor.ID
	application.Status = payload.Status
	application.DecidedAt = &decidedAt
	application.DecidedBy = &decidedBy

	if payload.Status == models.ApplicationStatusApproved {
		if err := s.provisionStudent(ctx, &application); err != nil {
			return dto.ApplicationResponse{}, err
		}
	}

	if err := s.applications.Update(ctx, &application); err != nil {
		return dto.ApplicationResponse{}, err
	}

	if s.activity != nil {
		_, _ = s.activity.Record(ctx, ActivityEntry{
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			Action:     "application." + payload.Status,
			EntityType: "application",
			EntityID:   &application.ID,
			Metadata:   map[string]interface{}{"reference": application.Reference},
		})
	}

	return dto.NewApplicationResponse(application), nil
}

func (s *applicationService) provisionStudent(ctx context.Context, application *models.Application) error {
	student, err := s.users.GetByEmail(ctx, application.Email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		student = models.UserProfile{
			Name:  application.FullName,
			Email: application.Email,
			Phone: application.Phone,
			Role:  models.RoleStudent,
		}
		if err := s.users.Create(ctx, &student); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	if application.ClassID == nil {
		return nil
	}

	enrollment := models.ClassEnrollment{
		ClassID:    *application.ClassID,
		StudentID:  student.ID,
		StudyMode:  application.StudyMode,
		EnrolledAt: s.now(),
	}

	return s.enrollments.Upsert(ctx, &enrollment)
}
