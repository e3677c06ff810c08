package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tedris-app/tedris-api/internal/dto"
	"github.com/tedris-app/tedris-api/internal/models"
	"github.com/tedris-app/tedris-api/internal/repository"
)

func setupAttendanceService(t *testing.T) (*gorm.DB, AttendanceService, models.Class, []models.UserProfile) {
	t.Helper()

	dsn := fmt.Sprintf("file:attendance_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.UserProfile{}, &models.Class{}, &models.AttendanceRecord{}))

	class := models.Class{Name: "Backend 101"}
	require.NoError(t, db.Create(&class).Error)

	students := []models.UserProfile{
		{Name: "Aysel", Email: "aysel@example.com", Role: models.RoleStudent},
		{Name: "Murad", Email: "murad@example.com", Role: models.RoleStudent},
		{Name: "Leyla", Email: "leyla@example.com", Role: models.RoleStudent},
	}
	for i := range students {
		require.NoError(t, db.Create(&students[i]).Error)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewAttendanceService(repository.NewAttendanceRepository(db), repository.NewClassRepository(db), validate, nil, zerolog.Nop())

	return db, svc, class, students
}

func markLesson(t *testing.T, svc AttendanceService, classID uint, date time.Time, number int, entries []dto.AttendanceEntry) {
	t.Helper()

	_, err := svc.MarkLesson(context.Background(), classID, dto.AttendanceMarkRequest{
		LessonDate:   date,
		LessonNumber: number,
		Entries:      entries,
	}, ActivityActor{ID: 1, Role: models.RoleAdmin})
	require.NoError(t, err)
}

func TestAttendanceMarkLessonUpsert(t *testing.T) {
	db, svc, class, students := setupAttendanceService(t)

	date := time.Date(2026, time.March, 2, 14, 30, 0, 0, time.UTC)
	markLesson(t, svc, class.ID, date, 1, []dto.AttendanceEntry{
		{StudentID: students[0].ID, Status: "present"},
		{StudentID: students[1].ID, Status: "absent"},
	})

	// Re-marking the same lesson corrects in place instead of duplicating.
	markLesson(t, svc, class.ID, date, 1, []dto.AttendanceEntry{
		{StudentID: students[1].ID, Status: "excused", Notes: "doctor visit"},
	})

	var records []models.AttendanceRecord
	require.NoError(t, db.Where("class_id = ?", class.ID).Find(&records).Error)
	require.Len(t, records, 2)

	var corrected models.AttendanceRecord
	require.NoError(t, db.Where("class_id = ? AND student_id = ?", class.ID, students[1].ID).First(&corrected).Error)
	require.Equal(t, models.AttendanceStatusExcused, corrected.Status)
	require.Equal(t, "doctor visit", corrected.Notes)
}

func TestAttendanceMarkLessonSameDayTwoLessons(t *testing.T) {
	db, svc, class, students := setupAttendanceService(t)

	date := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	markLesson(t, svc, class.ID, date, 1, []dto.AttendanceEntry{{StudentID: students[0].ID, Status: "present"}})
	markLesson(t, svc, class.ID, date, 2, []dto.AttendanceEntry{{StudentID: students[0].ID, Status: "absent"}})

	var count int64
	require.NoError(t, db.Model(&models.AttendanceRecord{}).Where("class_id = ?", class.ID).Count(&count).Error)
	require.EqualValues(t, 2, count)
}

func TestAttendanceMarkLessonInvalidStatus(t *testing.T) {
	_, svc, class, students := setupAttendanceService(t)

	_, err := svc.MarkLesson(context.Background(), class.ID, dto.AttendanceMarkRequest{
		LessonDate:   time.Now(),
		LessonNumber: 1,
		Entries:      []dto.AttendanceEntry{{StudentID: students[0].ID, Status: "late"}},
	}, ActivityActor{ID: 1, Role: models.RoleAdmin})
	require.Error(t, err)
}

func TestAttendanceMarkLessonClassNotFound(t *testing.T) {
	_, svc, _, students := setupAttendanceService(t)

	_, err := svc.MarkLesson(context.Background(), 9999, dto.AttendanceMarkRequest{
		LessonDate:   time.Now(),
		LessonNumber: 1,
		Entries:      []dto.AttendanceEntry{{StudentID: students[0].ID, Status: "present"}},
	}, ActivityActor{ID: 1, Role: models.RoleAdmin})
	require.ErrorIs(t, err, ErrClassNotFound)
}

func TestAttendanceLessonRollups(t *testing.T) {
	_, svc, class, students := setupAttendanceService(t)

	first := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	second := time.Date(2026, time.March, 4, 0, 0, 0, 0, time.UTC)

	markLesson(t, svc, class.ID, first, 1, []dto.AttendanceEntry{
		{StudentID: students[0].ID, Status: "present"},
		{StudentID: students[1].ID, Status: "present"},
		{StudentID: students[2].ID, Status: "absent"},
	})
	markLesson(t, svc, class.ID, second, 1, []dto.AttendanceEntry{
		{StudentID: students[0].ID, Status: "present"},
		{StudentID: students[1].ID, Status: "excused"},
	})

	rollups, err := svc.LessonRollups(context.Background(), class.ID)
	require.NoError(t, err)
	require.Len(t, rollups, 2)

	require.True(t, rollups[0].LessonDate.Equal(first))
	require.Equal(t, 2, rollups[0].Present)
	require.Equal(t, 1, rollups[0].Absent)
	require.Equal(t, 3, rollups[0].Total)
	require.InDelta(t, 66.66, rollups[0].PercentPresent, 0.1)

	require.True(t, rollups[1].LessonDate.Equal(second))
	require.Equal(t, 1, rollups[1].Present)
	require.Equal(t, 1, rollups[1].Excused)
	require.InDelta(t, 50.0, rollups[1].PercentPresent, 0.01)
}

func TestAttendanceStudentRollups(t *testing.T) {
	_, svc, class, students := setupAttendanceService(t)

	first := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	second := time.Date(2026, time.March, 4, 0, 0, 0, 0, time.UTC)

	markLesson(t, svc, class.ID, first, 1, []dto.AttendanceEntry{
		{StudentID: students[0].ID, Status: "present"},
		{StudentID: students[1].ID, Status: "absent"},
	})
	markLesson(t, svc, class.ID, second, 1, []dto.AttendanceEntry{
		{StudentID: students[0].ID, Status: "present"},
		{StudentID: students[1].ID, Status: "present"},
	})

	rollups, err := svc.StudentRollups(context.Background(), class.ID)
	require.NoError(t, err)
	require.Len(t, rollups, 2)

	require.Equal(t, students[0].ID, rollups[0].StudentID)
	require.Equal(t, "Aysel", rollups[0].StudentName)
	require.Equal(t, 2, rollups[0].Present)
	require.InDelta(t, 100.0, rollups[0].PercentPresent, 0.01)

	require.Equal(t, students[1].ID, rollups[1].StudentID)
	require.Equal(t, 1, rollups[1].Present)
	require.Equal(t, 1, rollups[1].Absent)
	require.InDelta(t, 50.0, rollups[1].PercentPresent, 0.01)
}
