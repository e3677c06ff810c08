package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tedris-app/tedris-api/internal/models"
)

// ClassRepository defines data operations for classes.
type ClassRepository interface {
	List(ctx context.Context) ([]models.Class, error)
	GetByID(ctx context.Context, id uint) (models.Class, error)
	Create(ctx context.Context, class *models.Class) error
}

type classRepository struct {
	db *gorm.DB
}

// NewClassRepository instantiates the repository.
func NewClassRepository(db *gorm.DB) ClassRepository {
	return &classRepository{db: db}
}

func (r *classRepository) List(ctx context.Context) ([]models.Class, error) {
	var classes []models.Class
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&classes).Error; err != nil {
		return nil, err
	}

	return classes, nil
}

func (r *classRepository) GetByID(ctx context.Context, id uint) (models.Class, error) {
	var class models.Class
	if err := r.db.WithContext(ctx).First(&class, id).Error; err != nil {
		return models.Class{}, err
	}

	return class, nil
}

func (r *classRepository) Create(ctx context.Context, class *models.Class) error {
	return r.db.WithContext(ctx).Create(class).Error
}

// EnrollmentRepository defines data operations for class enrollments.
type EnrollmentRepository interface {
	// Upsert creates the enrollment or refreshes the study mode when the
	// (class, student) pair already exists.
	Upsert(ctx context.Context, enrollment *models.ClassEnrollment) error
	ListByClass(ctx context.Context, classID uint) ([]models.ClassEnrollment, error)
	GetByClassAndStudent(ctx context.Context, classID, studentID uint) (models.ClassEnrollment, error)
	Update(ctx context.Context, enrollment *models.ClassEnrollment) error
}

type enrollmentRepository struct {
	db *gorm.DB
}

// NewEnrollmentRepository instantiates the repository.
func NewEnrollmentRepository(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (r *enrollmentRepository) Upsert(ctx context.Context, enrollment *models.ClassEnrollment) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "class_id"},
			{Name: "student_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"study_mode", "updated_at"}),
	}).Create(enrollment).Error
}

func (r *enrollmentRepository) ListByClass(ctx context.Context, classID uint) ([]models.ClassEnrollment, error) {
	var enrollments []models.ClassEnrollment
	if err := r.db.WithContext(ctx).Model(&models.ClassEnrollment{}).
		Preload("Student").
		Where("class_id = ?", classID).
		Order("enrolled_at ASC").
		Find(&enrollments).Error; err != nil {
		return nil, err
	}

	return enrollments, nil
}

func (r *enrollmentRepository) GetByClassAndStudent(ctx context.Context, classID, studentID uint) (models.ClassEnrollment, error) {
	var enrollment models.ClassEnrollment
	if err := r.db.WithContext(ctx).Model(&models.ClassEnrollment{}).
		Preload("Student").
		Where("class_id = ?", classID).
		Where("student_id = ?", studentID).
		First(&enrollment).Error; err != nil {
		return models.ClassEnrollment{}, err
	}

	return enrollment, nil
}

func (r *enrollmentRepository) Update(ctx context.Context, enrollment *models.ClassEnrollment) error {
	return r.db.WithContext(ctx).Save(enrollment).Error
}
