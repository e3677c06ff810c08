package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/tedris-app/tedris-api/internal/models"
)

// ApplicationRepository defines data operations for registration applications.
type ApplicationRepository interface {
	Create(ctx context.Context, application *models.Application) error
	List(ctx context.Context, status *string) ([]models.Application, error)
	GetByID(ctx context.Context, id uint) (models.Application, error)
	Update(ctx context.Context, application *models.Application) error
}

type applicationRepository struct {
	db *gorm.DB
}

// NewApplicationRepository instantiates the repository.
func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

func (r *applicationRepository) Create(ctx context.Context, application *models.Application) error {
	return r.db.WithContext(ctx).Create(application).Error
}

func (r *applicationRepository) List(ctx context.Context, status *string) ([]models.Application, error) {
	query := r.db.WithContext(ctx).Model(&models.Application{})
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var applications []models.Application
	if err := query.Order("created_at DESC").Find(&applications).Error; err != nil {
		return nil, err
	}

	return applications, nil
}

func (r *applicationRepository) GetByID(ctx context.Context, id uint) (models.Application, error) {
	var application models.Application
	if err := r.db.WithContext(ctx).First(&application, id).Error; err != nil {
		return models.Application{}, err
	}

	return application, nil
}

func (r *applicationRepository) Update(ctx context.Context, application *models.Application) error {
	return r.db.WithContext(ctx).Save(application).Error
}
