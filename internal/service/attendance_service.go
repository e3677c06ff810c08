package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tedris-app/tedris-api/internal/dto"
	"github.com/tedris-app/tedris-api/internal/models"
	"github.com/tedris-app/tedris-api/internal/repository"
)

// ErrClassNotFound indicates a class could not be found.
var ErrClassNotFound = errors.New("class not found")

// ErrInvalidAttendanceStatus indicates an unsupported attendance status.
var ErrInvalidAttendanceStatus = errors.New("invalid attendance status")

// AttendanceService records lesson attendance and derives rollups. Rollups
// are recomputed from raw rows on every read; nothing aggregated is
// persisted, so they always match a fresh tally.
type AttendanceService interface {
	MarkLesson(ctx context.Context, classID uint, payload dto.AttendanceMarkRequest, actor ActivityActor) ([]dto.AttendanceRecordResponse, error)
	ListRecords(ctx context.Context, classID uint) ([]dto.AttendanceRecordResponse, error)
	LessonRollups(ctx context.Context, classID uint) ([]dto.LessonRollup, error)
	StudentRollups(ctx context.Context, classID uint) ([]dto.StudentRollup, error)
}

type attendanceService struct {
	attendance repository.AttendanceRepository
	classes    repository.ClassRepository
	validator  *validator.Validate
	activity   ActivityRecorder
	logger     zerolog.Logger
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(attendanceRepo repository.AttendanceRepository, classRepo repository.ClassRepository, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) AttendanceService {
	return &attendanceService{
		attendance: attendanceRepo,
		classes:    classRepo,
		validator:  validate,
		activity:   activity,
		logger:     logger.With().Str("component", "attendance_service").Logger(),
	}
}

func (s *attendanceService) MarkLesson(ctx context.Context, classID uint, payload dto.AttendanceMarkRequest, actor ActivityActor) ([]dto.AttendanceRecordResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, err
	}

	if _, err := s.classes.GetByID(ctx, classID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClassNotFound
		}
		return nil, err
	}

	lessonDate := truncateToDay(payload.LessonDate)
	records := make([]models.AttendanceRecord, 0, len(payload.Entries))
	for _, entry := range payload.Entries {
		status := models.AttendanceStatus(entry.Status)
		if !status.Valid() {
			return nil, ErrInvalidAttendanceStatus
		}

		records = append(records, models.AttendanceRecord{
			ClassID:      classID,
			StudentID:    entry.StudentID,
			LessonDate:   lessonDate,
			LessonNumber: payload.LessonNumber,
			Status:       status,
			Notes:        entry.Notes,
		})
	}

	if err := s.attendance.UpsertBatch(ctx, records); err != nil {
		return nil, err
	}

	if s.activity != nil {
		_, _ = s.activity.Record(ctx, ActivityEntry{
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			Action:     "attendance.marked",
			EntityType: "class",
			EntityID:   &classID,
			Metadata: map[string]interface{}{
				"lesson_date":   lessonDate.Format("2006-01-02"),
				"lesson_number": payload.LessonNumber,
				"students":      len(records),
			},
		})
	}

	s.logger.Info().
		Uint("class_id", classID).
		Int("lesson_number", payload.LessonNumber).
		Int("students", len(records)).
		Msg("lesson attendance recorded")

	return dto.NewAttendanceRecordResponseSlice(records), nil
}

func (s *attendanceService) ListRecords(ctx context.Context, classID uint) ([]dto.AttendanceRecordResponse, error) {
	records, err := s.attendance.ListByClass(ctx, classID)
	if err != nil {
		return nil, err
	}

	return dto.NewAttendanceRecordResponseSlice(records), nil
}

// lessonKey identifies the emergent lesson aggregate.
type lessonKey struct {
	date   time.Time
	number int
}

func (s *attendanceService) LessonRollups(ctx context.Context, classID uint) ([]dto.LessonRollup, error) {
	records, err := s.attendance.ListByClass(ctx, classID)
	if err != nil {
		return nil, err
	}

	grouped := make(map[lessonKey]*dto.LessonRollup)
	for _, record := range records {
		key := lessonKey{date: truncateToDay(record.LessonDate), number: record.LessonNumber}
		rollup, ok := grouped[key]
		if !ok {
			rollup = &dto.LessonRollup{LessonDate: key.date, LessonNumber: key.number}
			grouped[key] = rollup
		}
		tallyStatus(record.Status, &rollup.Present, &rollup.Absent, &rollup.Excused)
		rollup.Total++
	}

	rollups := make([]dto.LessonRollup, 0, len(grouped))
	for _, rollup := range grouped {
		rollup.PercentPresent = percent(rollup.Present, rollup.Total)
		rollups = append(rollups, *rollup)
	}

	sort.Slice(rollups, func(i, j int) bool {
		if !rollups[i].LessonDate.Equal(rollups[j].LessonDate) {
			return rollups[i].LessonDate.Before(rollups[j].LessonDate)
		}
		return rollups[i].LessonNumber < rollups[j].LessonNumber
	})

	return rollups, nil
}

func (s *attendanceService) StudentRollups(ctx context.Context, classID uint) ([]dto.StudentRollup, error) {
	records, err := s.attendance.ListByClass(ctx, classID)
	if err != nil {
		return nil, err
	}

	grouped := make(map[uint]*dto.StudentRollup)
	for _, record := range records {
		rollup, ok := grouped[record.StudentID]
		if !ok {
			rollup = &dto.StudentRollup{StudentID: record.StudentID, StudentName: record.Student.Name}
			grouped[record.StudentID] = rollup
		}
		tallyStatus(record.Status, &rollup.Present, &rollup.Absent, &rollup.Excused)
		rollup.Total++
	}

	rollups := make([]dto.StudentRollup, 0, len(grouped))
	for _, rollup := range grouped {
		rollup.PercentPresent = percent(rollup.Present, rollup.Total)
		rollups = append(rollups, *rollup)
	}

	sort.Slice(rollups, func(i, j int) bool {
		return rollups[i].StudentID < rollups[j].StudentID
	})

	return rollups, nil
}

func tallyStatus(status models.AttendanceStatus, present, absent, excused *int) {
	switch status {
	case models.AttendanceStatusPresent:
		*present++
	case models.AttendanceStatusAbsent:
		*absent++
	case models.AttendanceStatusExcused:
		*excused++
	}
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) * 100 / float64(total)
}

func truncateToDay(value time.Time) time.Time {
	return time.Date(value.Year(), value.Month(), value.Day(), 0, 0, 0, 0, time.UTC)
}
