package statistics

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/thrivewithai/thrivewithai/app/models"
	"github.com/thrivewithai/thrivewithai/internal/pkg/cache"
	"github.com/thrivewithai/thrivewithai/internal/pkg/entitlements"
)

const (
	CacheKeyDashboard = "statistics:dashboard"
	CacheExpiration   = 30 * time.Minute
)

// Variables for the cache refresh logic
var (
	lastCacheUpdate     time.Time
	cacheUpdateMutex    sync.Mutex
	cacheUpdateInterval = 5 * time.Minute
)

// ShouldUpdateCache checks whether the cached dashboard is older than the refresh interval
func ShouldUpdateCache() bool {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()
	return time.Since(lastCacheUpdate) > cacheUpdateInterval
}

// ResetCacheUpdateTimer forces the next GetDashboardStats call to recompute
func ResetCacheUpdateTimer() {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()
	lastCacheUpdate = time.Time{}
}

// Compute counts the dashboard totals directly from the database.
func Compute(db *gorm.DB) (models.DashboardStats, error) {
	var stats models.DashboardStats

	if err := db.Model(&models.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return stats, err
	}
	if err := db.Model(&models.Subscriber{}).
		Where("tier = ? AND status = ?", entitlements.TierPremium, entitlements.StatusActive).
		Count(&stats.PremiumSubscribers).Error; err != nil {
		return stats, err
	}
	if err := db.Model(&models.Feedback{}).Count(&stats.TotalFeedback).Error; err != nil {
		return stats, err
	}
	if err := db.Model(&models.BillingWebhookEvent{}).
		Where("outcome = ?", models.WebhookOutcomeUnmapped).
		Count(&stats.UnmappedWebhooks).Error; err != nil {
		return stats, err
	}
	return stats, nil
}

// UpdateStatisticsCache recomputes the dashboard and stores it in Redis
func UpdateStatisticsCache(db *gorm.DB) (models.DashboardStats, error) {
	stats, err := Compute(db)
	if err != nil {
		return stats, err
	}
	if err := cache.SetJSON(CacheKeyDashboard, stats, CacheExpiration); err != nil {
		log.Printf("Error caching dashboard statistics: %v", err)
	}

	cacheUpdateMutex.Lock()
	lastCacheUpdate = time.Now()
	cacheUpdateMutex.Unlock()

	log.Printf("Statistics updated in cache: Users: %d, Premium: %d, Feedback: %d",
		stats.TotalUsers, stats.PremiumSubscribers, stats.TotalFeedback)
	return stats, nil
}

// GetDashboardStats returns the cached dashboard, refreshing it when stale or missing
func GetDashboardStats(db *gorm.DB) (models.DashboardStats, error) {
	if !ShouldUpdateCache() {
		var stats models.DashboardStats
		err := cache.GetJSON(CacheKeyDashboard, &stats)
		if err == nil {
			return stats, nil
		}
		if !errors.Is(err, redis.Nil) {
			log.Printf("Error reading dashboard statistics from cache: %v", err)
		}
	}
	return UpdateStatisticsCache(db)
}
