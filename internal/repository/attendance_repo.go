package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tedris-app/tedris-api/internal/models"
)

// AttendanceRepository defines data operations for attendance rows.
type AttendanceRepository interface {
	// UpsertBatch writes lesson rows keyed on the composite unique index
	// (class, student, lesson_date, lesson_number); conflicting rows have
	// their status and notes replaced.
	UpsertBatch(ctx context.Context, records []models.AttendanceRecord) error
	ListByClass(ctx context.Context, classID uint) ([]models.AttendanceRecord, error)
	ListByStudent(ctx context.Context, studentID uint) ([]models.AttendanceRecord, error)
}

type attendanceRepository struct {
	db *gorm.DB
}

// NewAttendanceRepository instantiates the repository.
func NewAttendanceRepository(db *gorm.DB) AttendanceRepository {
	return &attendanceRepository{db: db}
}

func (r *attendanceRepository) UpsertBatch(ctx context.Context, records []models.AttendanceRecord) error {
	if len(records) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "class_id"},
			{Name: "student_id"},
			{Name: "lesson_date"},
			{Name: "lesson_number"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"status", "notes", "updated_at"}),
	}).Create(&records).Error
}

func (r *attendanceRepository) ListByClass(ctx context.Context, classID uint) ([]models.AttendanceRecord, error) {
	var records []models.AttendanceRecord
	if err := r.db.WithContext(ctx).Model(&models.AttendanceRecord{}).
		Preload("Student").
		Where("class_id = ?", classID).
		Order("lesson_date ASC, lesson_number ASC, student_id ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}

func (r *attendanceRepository) ListByStudent(ctx context.Context, studentID uint) ([]models.AttendanceRecord, error) {
	var records []models.AttendanceRecord
	if err := r.db.WithContext(ctx).Model(&models.AttendanceRecord{}).
		Where("student_id = ?", studentID).
		Order("lesson_date ASC, lesson_number ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}
