package repository

import (
	"gorm.io/gorm"

	"github.com/thrivewithai/thrivewithai/app/models"
)

type feedbackRepository struct {
	db *gorm.DB
}

func NewFeedbackRepository(db *gorm.DB) FeedbackRepository {
	return &feedbackRepository{db: db}
}

func (r *feedbackRepository) Create(feedback *models.Feedback) error {
	return r.db.Create(feedback).Error
}

func (r *feedbackRepository) GetByID(id uint) (*models.Feedback, error) {
	var f models.Feedback
	if err := r.db.First(&f, id).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

// ListByTarget returns feedback for one catalog entry, best scored first
func (r *feedbackRepository) ListByTarget(targetType, targetSlug string, offset, limit int) ([]FeedbackWithScore, error) {
	var rows []FeedbackWithScore
	err := r.db.Model(&models.Feedback{}).
		Select("feedbacks.*, COALESCE(users.name, '') AS author_name, COALESCE(users.email, '') AS author_email, COALESCE(users.avatar_url, '') AS author_avatar, COALESCE(SUM(feedback_votes.value), 0) AS score").
		Joins("LEFT JOIN users ON users.id = feedbacks.user_id").
		Joins("LEFT JOIN feedback_votes ON feedback_votes.feedback_id = feedbacks.id").
		Where("feedbacks.target_type = ? AND feedbacks.target_slug = ?", targetType, targetSlug).
		Group("feedbacks.id").
		Order("score DESC, feedbacks.created_at DESC").
		Offset(offset).Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *feedbackRepository) Vote(feedbackID, userID uint, value int) error {
	return models.ToggleVote(r.db, feedbackID, userID, value)
}

// Delete removes a feedback entry together with its votes
func (r *feedbackRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("feedback_id = ?", id).Delete(&models.FeedbackVote{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Feedback{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *feedbackRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Feedback{}).Count(&count).Error
	return count, err
}
