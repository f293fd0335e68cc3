package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/thrivewithai/thrivewithai/app/models"
	"github.com/thrivewithai/thrivewithai/app/repository"
	"github.com/thrivewithai/thrivewithai/internal/pkg/billing"
	"github.com/thrivewithai/thrivewithai/internal/pkg/entitlements"
	"github.com/thrivewithai/thrivewithai/internal/pkg/usercontext"
	"github.com/thrivewithai/thrivewithai/internal/pkg/utils"
)

const accountRefreshTimeout = 5 * time.Second

type AccountController struct {
	users   repository.UserRepository
	billing *billing.Service
}

func NewAccountController(users repository.UserRepository, service *billing.Service) *AccountController {
	return &AccountController{users: users, billing: service}
}

// HandleGetAccount returns the profile of the session user together with the
// subscription state and what it unlocks. With ?refresh=true the state is
// first pulled from the billing provider; a provider failure falls back to
// the stored state.
func (ac *AccountController) HandleGetAccount(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "login required")
	}

	account, err := ac.users.GetByID(userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "user not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load user")
	}

	sub := ac.loadSubscriber(c, account.ID)
	if sub.CustomerID() != "" && c.QueryBool("refresh") {
		if refreshed := ac.refresh(c, account.ID); refreshed != nil {
			sub = refreshed
		}
	}

	state := entitlements.Free()
	var customerID *string
	if sub != nil {
		state = sub.State().Normalize()
		customerID = sub.ProviderCustomerID
	}

	return c.JSON(fiber.Map{
		"id":                   account.ID,
		"name":                 account.Name,
		"email":                account.Email,
		"status":               account.Status,
		"avatar_url":           utils.AvatarURL(account.AvatarURL, account.Email, 80),
		"is_admin":             usercontext.IsAdmin(c),
		"created_at":           account.CreatedAt.UTC().Format(time.RFC3339),
		"last_login_at":        formatTimePtr(account.LastLoginAt),
		"provider_customer_id": customerID,
		"subscription": fiber.Map{
			"tier":   state.Tier,
			"status": state.Status,
		},
		"access": fiber.Map{
			"can_access_premium": entitlements.CanAccessPremiumContent(state),
			"max_visible_count":  entitlements.MaxVisibleCount(state),
		},
	})
}

// loadSubscriber returns nil when the row is missing or unreadable; the
// account is then reported as free.
func (ac *AccountController) loadSubscriber(c *fiber.Ctx, userID uint) *models.Subscriber {
	if ac.billing == nil {
		return nil
	}
	sub, err := ac.billing.Store().Get(c.UserContext(), userID)
	if err != nil {
		if !errors.Is(err, billing.ErrNotFound) {
			log.Warnf("[Account] Failed to load subscription for user %d: %v", userID, err)
		}
		return nil
	}
	return sub
}

func (ac *AccountController) refresh(c *fiber.Ctx, userID uint) *models.Subscriber {
	ctx, cancel := context.WithTimeout(c.UserContext(), accountRefreshTimeout)
	defer cancel()

	sub, err := ac.billing.RefreshFromProvider(ctx, userID)
	if err != nil {
		log.Warnf("[Account] Provider refresh for user %d failed: %v", userID, err)
		return nil
	}
	return sub
}
