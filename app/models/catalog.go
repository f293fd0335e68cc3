package models

import (
	"time"

	"gorm.io/gorm"
)

// Job is a profession page in the catalog.
type Job struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Title     string         `gorm:"type:varchar(255);not null" json:"title" validate:"required,min=2,max=255"`
	Slug      string         `gorm:"type:varchar(191);uniqueIndex;not null" json:"slug" validate:"required,min=2,max=191"`
	Summary   string         `gorm:"type:text" json:"summary"`
	Published bool           `gorm:"default:true;index" json:"published"`
	Tools     []Tool         `gorm:"many2many:job_tools;" json:"tools,omitempty"`
	UseCases  []UseCase      `gorm:"foreignKey:JobID" json:"use_cases,omitempty"`
	ViewCount uint64         `gorm:"default:0" json:"view_count"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

type Tool struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name" validate:"required,min=1,max=255"`
	Slug        string         `gorm:"type:varchar(191);uniqueIndex;not null" json:"slug" validate:"required,min=1,max=191"`
	Description string         `gorm:"type:text" json:"description"`
	WebsiteURL  string         `gorm:"type:varchar(255)" json:"website_url" validate:"omitempty,url"`
	Pricing     string         `gorm:"type:varchar(50)" json:"pricing"`
	Published   bool           `gorm:"default:true;index" json:"published"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// UseCase describes one way to apply AI in a job, with ordered example prompts.
type UseCase struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	JobID       uint           `gorm:"index" json:"job_id"`
	Title       string         `gorm:"type:varchar(255);not null" json:"title" validate:"required,min=2,max=255"`
	Slug        string         `gorm:"type:varchar(191);uniqueIndex;not null" json:"slug" validate:"required,min=2,max=191"`
	Description string         `gorm:"type:text" json:"description"`
	Prompts     []Prompt       `gorm:"foreignKey:UseCaseID" json:"prompts,omitempty"`
	ViewCount   uint64         `gorm:"default:0" json:"view_count"`
	Published   bool           `gorm:"default:true;index" json:"published"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// Prompt is an example prompt; Position is 0-based within its use case.
type Prompt struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UseCaseID uint      `gorm:"index:idx_prompt_position,unique,priority:1" json:"use_case_id"`
	Position  int       `gorm:"index:idx_prompt_position,unique,priority:2" json:"position"`
	Title     string    `gorm:"type:varchar(255)" json:"title"`
	Body      string    `gorm:"type:text" json:"body"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type GlossaryTerm struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Term       string    `gorm:"type:varchar(191);uniqueIndex;not null" json:"term"`
	Definition string    `gorm:"type:text" json:"definition"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
