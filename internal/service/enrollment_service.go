package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tedris-app/tedris-api/internal/dto"
	"github.com/tedris-app/tedris-api/internal/models"
	"github.com/tedris-app/tedris-api/internal/repository"
)

// ErrEnrollmentNotFound indicates no enrollment links the student to the class.
var ErrEnrollmentNotFound = errors.New("enrollment not found")

// ErrStudentNotFound indicates the referenced student profile is missing.
var ErrStudentNotFound = errors.New("student not found")

// EnrollmentService manages class rosters. Blacklisting keeps the
// enrollment history row while blocking material access.
type EnrollmentService interface {
	Enroll(ctx context.Context, classID uint, payload dto.EnrollRequest, actor ActivityActor) (dto.EnrollmentResponse, error)
	ListByClass(ctx context.Context, classID uint) ([]dto.EnrollmentResponse, error)
	SetBlacklist(ctx context.Context, classID, studentID uint, payload dto.BlacklistRequest, actor ActivityActor) (dto.EnrollmentResponse, error)
}

type enrollmentService struct {
	enrollments repository.EnrollmentRepository
	classes     repository.ClassRepository
	users       repository.UserRepository
	validator   *validator.Validate
	activity    ActivityRecorder
	logger      zerolog.Logger
	now         func() time.Time
}

// NewEnrollmentService constructs the enrollment service.
func NewEnrollmentService(enrollmentRepo repository.EnrollmentRepository, classRepo repository.ClassRepository, userRepo repository.UserRepository, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) EnrollmentService {
	return &enrollmentService{
		enrollments: enrollmentRepo,
		classes:     classRepo,
		users:       userRepo,
		validator:   validate,
		activity:    activity,
		logger:      logger.With().Str("component", "enrollment_service").Logger(),
		now:         time.Now,
	}
}

func (s *enrollmentService) Enroll(ctx context.Context, classID uint, payload dto.EnrollRequest, actor ActivityActor) (dto.EnrollmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.EnrollmentResponse{}, err
	}

	if _, err := s.classes.GetByID(ctx, classID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.EnrollmentResponse{}, ErrClassNotFound
		}
		return dto.EnrollmentResponse{}, err
	}

	if _, err := s.users.GetByID(ctx, payload.StudentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.EnrollmentResponse{}, ErrStudentNotFound
		}
		return dto.EnrollmentResponse{}, err
	}

	enrollment := models.ClassEnrollment{
		ClassID:    classID,
		StudentID:  payload.StudentID,
		StudyMode:  models.StudyMode(payload.StudyMode),
		EnrolledAt: s.now(),
	}

	if err := s.enrollments.Upsert(ctx, &enrollment); err != nil {
		return dto.EnrollmentResponse{}, err
	}

	stored, err := s.enrollments.GetByClassAndStudent(ctx, classID, payload.StudentID)
	if err != nil {
		return dto.EnrollmentResponse{}, err
	}

	if s.activity != nil {
		_, _ = s.activity.Record(ctx, ActivityEntry{
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			Action:     "class.student_enrolled",
			EntityType: "class",
			EntityID:   &classID,
			Metadata: map[string]interface{}{
				"student_id": payload.StudentID,
				"study_mode": payload.StudyMode,
			},
		})
	}

	return dto.NewEnrollmentResponse(stored), nil
}

func (s *enrollmentService) ListByClass(ctx context.Context, classID uint) ([]dto.EnrollmentResponse, error) {
	enrollments, err := s.enrollments.ListByClass(ctx, classID)
	if err != nil {
		return nil, err
	}

	return dto.NewEnrollmentResponseSlice(enrollments), nil
}

func (s *enrollmentService) SetBlacklist(ctx context.Context, classID, studentID uint, payload dto.BlacklistRequest, actor ActivityActor) (dto.EnrollmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.EnrollmentResponse{}, err
	}

	enrollment, err := s.enrollments.GetByClassAndStudent(ctx, classID, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.EnrollmentResponse{}, ErrEnrollmentNotFound
		}
		return dto.EnrollmentResponse{}, err
	}

	enrollment.Blacklisted = *payload.Blacklisted

	if err := s.enrollments.Update(ctx, &enrollment); err != nil {
		return dto.EnrollmentResponse{}, err
	}

	if s.activity != nil {
		action := "class.student_blacklisted"
		if !enrollment.Blacklisted {
			action = "class.student_unblacklisted"
		}
		_, _ = s.activity.Record(ctx, ActivityEntry{
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			Action:     action,
			EntityType: "class",
			EntityID:   &classID,
			Metadata:   map[string]interface{}{"student_id": studentID},
		})
	}

	return dto.NewEnrollmentResponse(enrollment), nil
}
