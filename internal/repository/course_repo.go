package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/tedris-app/tedris-api/internal/models"
)

// CourseRepository defines data operations for the curriculum tree.
type CourseRepository interface {
	List(ctx context.Context, publishedOnly bool) ([]models.Course, error)
	GetByID(ctx context.Context, id uint) (models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	CreateModule(ctx context.Context, module *models.CourseModule) error
	CreateTopic(ctx context.Context, topic *models.Topic) error
}

type courseRepository struct {
	db *gorm.DB
}

// NewCourseRepository instantiates the repository.
func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{db: db}
}

func (r *courseRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Course{}).
		Preload("Modules", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("position ASC")
		}).
		Preload("Modules.Topics", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("position ASC")
		})
}

func (r *courseRepository) List(ctx context.Context, publishedOnly bool) ([]models.Course, error) {
	query := r.baseQuery(ctx)
	if publishedOnly {
		query = query.Where("published = ?", true)
	}

	var courses []models.Course
	if err := query.Order("created_at ASC").Find(&courses).Error; err != nil {
		return nil, err
	}

	return courses, nil
}

func (r *courseRepository) GetByID(ctx context.Context, id uint) (models.Course, error) {
	var course models.Course
	if err := r.baseQuery(ctx).First(&course, id).Error; err != nil {
		return models.Course{}, err
	}

	return course, nil
}

func (r *courseRepository) Create(ctx context.Context, course *models.Course) error {
	return r.db.WithContext(ctx).Create(course).Error
}

func (r *courseRepository) CreateModule(ctx context.Context, module *models.CourseModule) error {
	return r.db.WithContext(ctx).Create(module).Error
}

func (r *courseRepository) CreateTopic(ctx context.Context, topic *models.Topic) error {
	return r.db.WithContext(ctx).Create(topic).Error
}
