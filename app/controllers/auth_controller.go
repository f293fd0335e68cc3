package controllers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/thrivewithai/thrivewithai/app/models"
	"github.com/thrivewithai/thrivewithai/app/repository"
	"github.com/thrivewithai/thrivewithai/internal/pkg/billing"
	"github.com/thrivewithai/thrivewithai/internal/pkg/hcaptcha"
	"github.com/thrivewithai/thrivewithai/internal/pkg/jobqueue"
	"github.com/thrivewithai/thrivewithai/internal/pkg/session"
	"github.com/thrivewithai/thrivewithai/internal/pkg/usercontext"
)

type registerRequest struct {
	Name         string `json:"name" validate:"required,min=2,max=150"`
	Email        string `json:"email" validate:"required,email,max=200"`
	Password     string `json:"password" validate:"required,min=8,max=200"`
	CaptchaToken string `json:"captcha_token"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthController handles session based sign-up, login and logout.
type AuthController struct {
	users   repository.UserRepository
	billing *billing.Service
	jobs    jobqueue.Enqueuer
}

func NewAuthController(users repository.UserRepository, billingService *billing.Service, jobs jobqueue.Enqueuer) *AuthController {
	return &AuthController{users: users, billing: billingService, jobs: jobs}
}

// HandleRegister creates the account, its free subscriber row and queues
// the provider customer creation.
func (ac *AuthController) HandleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_payload", "request body must be JSON")
	}
	if err := validate.Struct(req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	}

	if hcaptcha.Enabled() {
		ctx, cancel := context.WithTimeout(c.UserContext(), 10*time.Second)
		err := hcaptcha.Verify(ctx, req.CaptchaToken, ClientIP(c))
		cancel()
		if err != nil {
			log.Warnf("[Auth] hCaptcha verification failed: %v", err)
			return jsonError(c, fiber.StatusBadRequest, "captcha_failed", "captcha verification failed")
		}
	}

	if _, err := ac.users.GetByEmail(req.Email); err == nil {
		return jsonError(c, fiber.StatusConflict, "email_taken", "an account with this email already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to check email")
	}

	user, err := models.CreateUser(req.Name, req.Email, req.Password)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	}
	if err := ac.users.Create(user); err != nil {
		log.Errorf("[Auth] Failed to create user %s: %v", user.Email, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to create account")
	}

	ensureSubscriber(c.UserContext(), ac.billing, ac.jobs, user)

	if err := startSession(c, user); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to start session")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":    user.ID,
		"name":  user.Name,
		"email": user.Email,
	})
}

func (ac *AuthController) HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_payload", "request body must be JSON")
	}
	if err := validate.Struct(req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	}

	// Same answer for unknown email and wrong password.
	user, err := ac.users.GetByEmail(req.Email)
	if err != nil || !user.CheckPassword(req.Password) {
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Errorf("[Auth] Login lookup failed: %v", err)
		}
		return jsonError(c, fiber.StatusUnauthorized, "invalid_credentials", "email or password is wrong")
	}
	if !user.IsActive() {
		return jsonError(c, fiber.StatusForbidden, "account_disabled", "account is disabled")
	}

	ensureSubscriber(c.UserContext(), ac.billing, ac.jobs, user)

	if err := startSession(c, user); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to start session")
	}
	if err := ac.users.TouchLastLogin(user.ID); err != nil {
		log.Warnf("[Auth] Failed to update last login for user %d: %v", user.ID, err)
	}

	return c.JSON(fiber.Map{"id": user.ID, "name": user.Name, "email": user.Email})
}

func (ac *AuthController) HandleLogout(c *fiber.Ctx) error {
	store := session.GetSessionStore()
	if store == nil {
		return c.JSON(fiber.Map{"ok": true})
	}
	sess, err := store.Get(c)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load session")
	}
	if err := sess.Destroy(); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to end session")
	}
	return c.JSON(fiber.Map{"ok": true})
}

// ensureSubscriber makes sure the user has a subscriber row and, while no
// provider customer id is assigned, a queued create_customer job.
func ensureSubscriber(ctx context.Context, svc *billing.Service, jobs jobqueue.Enqueuer, user *models.User) {
	if svc == nil {
		return
	}
	sub, err := svc.EnsureSubscriber(ctx, user.ID)
	if err != nil {
		log.Errorf("[Auth] Failed to ensure subscriber for user %d: %v", user.ID, err)
		return
	}
	if sub.CustomerID() != "" || jobs == nil {
		return
	}
	if err := jobs.EnqueueCreateCustomer(user.ID, user.Email); err != nil {
		log.Warnf("[Auth] Failed to enqueue create_customer for user %d: %v", user.ID, err)
	}
}

func startSession(c *fiber.Ctx, user *models.User) error {
	store := session.GetSessionStore()
	if store == nil {
		return fmt.Errorf("session store not initialized")
	}
	sess, err := store.Get(c)
	if err != nil {
		return err
	}
	// New id on every login so a pre-login cookie cannot be fixated.
	if err := sess.Regenerate(); err != nil {
		return err
	}
	sess.Set(usercontext.SessionUserID, user.ID)
	sess.Set(usercontext.SessionUsername, user.Name)
	sess.Set(usercontext.SessionEmail, user.Email)
	return sess.Save()
}
