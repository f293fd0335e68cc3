package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

var validate = validator.New()

const (
	FeedbackTargetJob     = "job"
	FeedbackTargetTool    = "tool"
	FeedbackTargetUseCase = "use_case"
)

type Feedback struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	UserID     uint           `gorm:"index" json:"user_id"`
	User       User           `gorm:"foreignKey:UserID" json:"-"`
	TargetType string         `gorm:"type:varchar(20);index:idx_feedback_target,priority:1" json:"target_type" validate:"required,oneof=job tool use_case"`
	TargetSlug string         `gorm:"type:varchar(191);index:idx_feedback_target,priority:2" json:"target_slug" validate:"required,min=1,max=191"`
	Rating     int            `gorm:"not null" json:"rating" validate:"required,min=1,max=5"`
	Comment    string         `gorm:"type:text" json:"comment" validate:"max=2000"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

func (f *Feedback) Validate() error {
	return validate.Struct(f)
}

// FeedbackVote is one user's up (+1) or down (-1) vote on a feedback entry.
type FeedbackVote struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FeedbackID uint      `gorm:"index:ux_feedback_vote,unique,priority:1" json:"feedback_id"`
	UserID     uint      `gorm:"index:ux_feedback_vote,unique,priority:2" json:"user_id"`
	Value      int       `gorm:"not null" json:"value"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ToggleVote creates, replaces or removes a vote. Sending the current value again removes it.
func ToggleVote(db *gorm.DB, feedbackID, userID uint, value int) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var vote FeedbackVote
		result := tx.Where("feedback_id = ? AND user_id = ?", feedbackID, userID).First(&vote)
		if result.Error != nil {
			if result.Error == gorm.ErrRecordNotFound {
				return tx.Create(&FeedbackVote{FeedbackID: feedbackID, UserID: userID, Value: value}).Error
			}
			return result.Error
		}

		if vote.Value == value {
			return tx.Delete(&vote).Error
		}
		return tx.Model(&vote).Update("value", value).Error
	})
}
