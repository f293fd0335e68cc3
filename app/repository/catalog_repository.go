package repository

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/thrivewithai/thrivewithai/app/models"
)

type catalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) ListJobs(offset, limit int) ([]models.Job, error) {
	var jobs []models.Job
	err := r.db.Where("published = ?", true).
		Order("title ASC").Offset(offset).Limit(limit).
		Find(&jobs).Error
	return jobs, err
}

// GetJobBySlug loads a published job with its published tools and use cases
func (r *catalogRepository) GetJobBySlug(slug string) (*models.Job, error) {
	var job models.Job
	err := r.db.
		Preload("Tools", "published = ?", true).
		Preload("UseCases", func(db *gorm.DB) *gorm.DB {
			return db.Where("published = ?", true).Order("title ASC")
		}).
		Where("slug = ? AND published = ?", slug, true).
		First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *catalogRepository) ListTools(offset, limit int) ([]models.Tool, error) {
	var tools []models.Tool
	err := r.db.Where("published = ?", true).
		Order("name ASC").Offset(offset).Limit(limit).
		Find(&tools).Error
	return tools, err
}

func (r *catalogRepository) GetToolBySlug(slug string) (*models.Tool, error) {
	var tool models.Tool
	err := r.db.Where("slug = ? AND published = ?", slug, true).First(&tool).Error
	if err != nil {
		return nil, err
	}
	return &tool, nil
}

// GetUseCaseBySlug loads a published use case with prompts in position order
func (r *catalogRepository) GetUseCaseBySlug(slug string) (*models.UseCase, error) {
	var uc models.UseCase
	err := r.db.
		Preload("Prompts", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("slug = ? AND published = ?", slug, true).
		First(&uc).Error
	if err != nil {
		return nil, err
	}
	return &uc, nil
}

func (r *catalogRepository) ListGlossary() ([]models.GlossaryTerm, error) {
	var terms []models.GlossaryTerm
	err := r.db.Order("term ASC").Find(&terms).Error
	return terms, err
}

// TargetExists checks that a feedback target refers to published content
func (r *catalogRepository) TargetExists(targetType, slug string) (bool, error) {
	var model interface{}
	switch targetType {
	case models.FeedbackTargetJob:
		model = &models.Job{}
	case models.FeedbackTargetTool:
		model = &models.Tool{}
	case models.FeedbackTargetUseCase:
		model = &models.UseCase{}
	default:
		return false, fmt.Errorf("unknown feedback target %q", targetType)
	}

	var count int64
	err := r.db.Model(model).Where("slug = ? AND published = ?", slug, true).Count(&count).Error
	return count > 0, err
}
