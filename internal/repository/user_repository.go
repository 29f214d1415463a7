package repository

import (
	"nimbo/internal/domain"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository interface {
	GetByID(userID uuid.UUID) (*domain.User, error)
	GetByEmail(email string) (*domain.User, error)
	List(limit, offset int) ([]domain.User, error)
	Search(query string, limit int) ([]domain.User, error)
	Update(user *domain.User) error
	UpdateStatus(userID uuid.UUID, status domain.UserStatus) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(userID uuid.UUID) (*domain.User, error) {
	var user domain.User
	if err := r.db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(email string) (*domain.User, error) {
	var user domain.User
	if err := r.db.First(&user, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) List(limit, offset int) ([]domain.User, error) {
	var users []domain.User
	err := r.db.Order("display_name ASC").
		Limit(limit).
		Offset(offset).
		Find(&users).Error
	return users, err
}

func (r *userRepository) Search(query string, limit int) ([]domain.User, error) {
	var users []domain.User
	pattern := "%" + query + "%"
	err := r.db.Where("display_name ILIKE ? OR email ILIKE ?", pattern, pattern).
		Order("display_name ASC").
		Limit(limit).
		Find(&users).Error
	return users, err
}

func (r *userRepository) Update(user *domain.User) error {
	return r.db.Save(user).Error
}

func (r *userRepository) UpdateStatus(userID uuid.UUID, status domain.UserStatus) error {
	return r.db.Model(&domain.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now().UTC(),
		}).Error
}
