package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/tedris-app/tedris-api/internal/models"
)

// UserRepository defines data operations for user profiles.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (models.UserProfile, error)
	GetByEmail(ctx context.Context, email string) (models.UserProfile, error)
	Create(ctx context.Context, user *models.UserProfile) error
	ListByRole(ctx context.Context, role string) ([]models.UserProfile, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository instantiates the repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (models.UserProfile, error) {
	var user models.UserProfile
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return models.UserProfile{}, err
	}

	return user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (models.UserProfile, error) {
	var user models.UserProfile
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return models.UserProfile{}, err
	}

	return user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.UserProfile) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) ListByRole(ctx context.Context, role string) ([]models.UserProfile, error) {
	var users []models.UserProfile
	if err := r.db.WithContext(ctx).Where("role = ?", role).Order("name ASC").Find(&users).Error; err != nil {
		return nil, err
	}

	return users, nil
}
