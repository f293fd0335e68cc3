package controllers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/markbates/goth"
	gothfiber "github.com/shareed2k/goth_fiber"
	"gorm.io/gorm"

	"github.com/thrivewithai/thrivewithai/app/models"
	"github.com/thrivewithai/thrivewithai/app/repository"
	"github.com/thrivewithai/thrivewithai/internal/pkg/billing"
	"github.com/thrivewithai/thrivewithai/internal/pkg/jobqueue"
	"github.com/thrivewithai/thrivewithai/internal/pkg/session"
)

const oauthReturnKey = "oauth_return_to"

// OAuthController completes third-party sign-in.
type OAuthController struct {
	users   repository.UserRepository
	billing *billing.Service
	jobs    jobqueue.Enqueuer
}

func NewOAuthController(users repository.UserRepository, billingService *billing.Service, jobs jobqueue.Enqueuer) *OAuthController {
	return &OAuthController{users: users, billing: billingService, jobs: jobs}
}

// HandleBegin remembers an optional local return_to path and redirects to the provider.
func (oc *OAuthController) HandleBegin(c *fiber.Ctx) error {
	if target := safeReturnPath(c.Query("return_to")); target != "" {
		if err := session.SetSessionValue(c, oauthReturnKey, target); err != nil {
			log.Warnf("[OAuth] Failed to store return path: %v", err)
		}
	}
	return gothfiber.BeginAuthHandler(c)
}

// safeReturnPath accepts only same-site absolute paths.
func safeReturnPath(p string) string {
	p = strings.TrimSpace(p)
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.Contains(p, "\\") {
		return ""
	}
	return p
}

// HandleCallback completes the provider flow and logs the user in
func (oc *OAuthController) HandleCallback(c *fiber.Ctx) error {
	u, err := gothfiber.CompleteUserAuth(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "oauth_failed", err.Error())
	}

	appUser, err := oc.resolveUser(u)
	if err != nil {
		log.Errorf("[OAuth] Failed to resolve %s user %s: %v", u.Provider, u.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to sign in")
	}
	if !appUser.IsActive() {
		return jsonError(c, fiber.StatusForbidden, "account_disabled", "account is disabled")
	}

	ensureSubscriber(c.UserContext(), oc.billing, oc.jobs, appUser)

	target := safeReturnPath(session.GetSessionValue(c, oauthReturnKey))
	if target == "" {
		target = "/"
	}

	if err := startSession(c, appUser); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to start session")
	}
	if err := oc.users.TouchLastLogin(appUser.ID); err != nil {
		log.Warnf("[OAuth] Failed to update last login for user %d: %v", appUser.ID, err)
	}

	return c.Redirect(target, fiber.StatusSeeOther)
}

// resolveUser finds the user linked to the identity, falls back to an email
// match and finally creates a new account.
func (oc *OAuthController) resolveUser(u goth.User) (*models.User, error) {
	user, err := oc.users.GetByProvider(u.Provider, u.UserID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if u.Email != "" {
		user, err = oc.users.GetByEmail(u.Email)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if user == nil {
		user = newOAuthUser(u)
		if err := oc.users.Create(user); err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
	}

	if err := oc.users.LinkProvider(user.ID, u.Provider, u.UserID); err != nil {
		return nil, fmt.Errorf("link provider: %w", err)
	}
	return user, nil
}

// newOAuthUser builds an account without a password; it can only sign in
// through its provider.
func newOAuthUser(u goth.User) *models.User {
	email := u.Email
	if email == "" {
		email = fmt.Sprintf("%s_%s@%s.oauth.local", u.Provider, u.UserID, u.Provider)
	}
	return &models.User{
		Name:      firstNonEmpty(u.Name, u.NickName, u.Email, "User"),
		Email:     models.NormalizeEmail(email),
		AvatarURL: u.AvatarURL,
		Status:    models.UserStatusActive,
	}
}
