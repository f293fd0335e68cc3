package controllers

import (
	"context"

	"gorm.io/gorm"

	"github.com/thrivewithai/thrivewithai/app/repository"
	"github.com/thrivewithai/thrivewithai/internal/pkg/billing"
	"github.com/thrivewithai/thrivewithai/internal/pkg/jobqueue"
	"github.com/thrivewithai/thrivewithai/internal/pkg/security"
)

// QueueInspector exposes the job queue counters shown to admins.
type QueueInspector interface {
	GetJobStats(ctx context.Context) (map[jobqueue.JobStatus]int64, error)
	GetQueueSize(ctx context.Context) (int64, error)
	GetProcessingSize(ctx context.Context) (int64, error)
}

// Dependencies is everything the HTTP handlers need, built once at startup.
type Dependencies struct {
	DB            *gorm.DB
	Repos         *repository.Repositories
	Billing       *billing.Service
	BillingConfig billing.Config
	Jobs          jobqueue.Enqueuer
	Queue         QueueInspector
	AdminPolicy   *security.AdminPolicy
}

// Controllers groups the handler sets registered by the router.
type Controllers struct {
	Auth     *AuthController
	OAuth    *OAuthController
	Account  *AccountController
	Billing  *BillingController
	Catalog  *CatalogController
	Feedback *FeedbackController
	Admin    *AdminController
}

func New(deps Dependencies) *Controllers {
	return &Controllers{
		Auth:     NewAuthController(deps.Repos.User, deps.Billing, deps.Jobs),
		OAuth:    NewOAuthController(deps.Repos.User, deps.Billing, deps.Jobs),
		Account:  NewAccountController(deps.Repos.User, deps.Billing),
		Billing:  NewBillingController(deps.Billing, deps.BillingConfig, deps.Jobs),
		Catalog:  NewCatalogController(deps.Repos.Catalog),
		Feedback: NewFeedbackController(deps.Repos.Feedback, deps.Repos.Catalog, deps.Jobs, deps.AdminPolicy),
		Admin:    NewAdminController(deps.DB, deps.Repos, deps.Billing, deps.Queue),
	}
}
