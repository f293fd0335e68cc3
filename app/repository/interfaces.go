package repository

import (
	"gorm.io/gorm"

	"github.com/thrivewithai/thrivewithai/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByProvider(provider, providerUserID string) (*models.User, error)
	LinkProvider(userID uint, provider, providerUserID string) error
	TouchLastLogin(id uint) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
}

// CatalogRepository defines read access to published catalog content
type CatalogRepository interface {
	ListJobs(offset, limit int) ([]models.Job, error)
	GetJobBySlug(slug string) (*models.Job, error)
	ListTools(offset, limit int) ([]models.Tool, error)
	GetToolBySlug(slug string) (*models.Tool, error)
	GetUseCaseBySlug(slug string) (*models.UseCase, error)
	ListGlossary() ([]models.GlossaryTerm, error)
	TargetExists(targetType, slug string) (bool, error)
}

// FeedbackRepository defines the interface for feedback and votes
type FeedbackRepository interface {
	Create(feedback *models.Feedback) error
	GetByID(id uint) (*models.Feedback, error)
	ListByTarget(targetType, targetSlug string, offset, limit int) ([]FeedbackWithScore, error)
	Vote(feedbackID, userID uint, value int) error
	Delete(id uint) error
	Count() (int64, error)
}

// FeedbackWithScore is a feedback entry with its author and summed votes
type FeedbackWithScore struct {
	models.Feedback
	AuthorName   string `json:"author_name"`
	AuthorEmail  string `json:"-"`
	AuthorAvatar string `json:"-"`
	Score        int    `json:"score"`
}

// Repositories struct holds all repository instances
type Repositories struct {
	User     UserRepository
	Catalog  CatalogRepository
	Feedback FeedbackRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:     NewUserRepository(db),
		Catalog:  NewCatalogRepository(db),
		Feedback: NewFeedbackRepository(db),
	}
}
