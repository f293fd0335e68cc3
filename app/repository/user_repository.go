package repository

import (
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/thrivewithai/thrivewithai/app/models"
)

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// first loads one row of T matching the query or returns gorm.ErrRecordNotFound.
func first[T any](q *gorm.DB) (*T, error) {
	var row T
	if err := q.First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *userRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

func (r *userRepository) GetByID(id uint) (*models.User, error) {
	return first[models.User](r.db.Where("id = ?", id))
}

// GetByEmail matches the normalized address.
func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	return first[models.User](r.db.Where("email = ?", models.NormalizeEmail(email)))
}

func (r *userRepository) GetByProvider(provider, providerUserID string) (*models.User, error) {
	return first[models.User](r.db.
		Select("users.*").
		Joins("JOIN provider_accounts pa ON pa.user_id = users.id").
		Where("pa.provider = ? AND pa.provider_user_id = ?", strings.ToLower(provider), providerUserID))
}

// LinkProvider records an OAuth identity; linking the same identity twice is a no-op.
func (r *userRepository) LinkProvider(userID uint, provider, providerUserID string) error {
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.ProviderAccount{
		UserID:         userID,
		Provider:       strings.ToLower(provider),
		ProviderUserID: providerUserID,
	}).Error
}

func (r *userRepository) TouchLastLogin(id uint) error {
	return r.db.Model(&models.User{}).Where("id = ?", id).UpdateColumn("last_login_at", time.Now()).Error
}

func (r *userRepository) List(offset, limit int) ([]models.User, error) {
	var users []models.User
	err := r.db.Order("id DESC").Offset(offset).Limit(limit).Find(&users).Error
	return users, err
}

func (r *userRepository) Count() (int64, error) {
	var n int64
	err := r.db.Model(&models.User{}).Count(&n).Error
	return n, err
}
