package controllers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/thrivewithai/thrivewithai/app/models"
	"github.com/thrivewithai/thrivewithai/app/repository"
	"github.com/thrivewithai/thrivewithai/internal/pkg/cache"
	"github.com/thrivewithai/thrivewithai/internal/pkg/entitlements"
	"github.com/thrivewithai/thrivewithai/internal/pkg/metrics/counter"
	"github.com/thrivewithai/thrivewithai/internal/pkg/usercontext"
)

const catalogCacheTTL = 5 * time.Minute

// ContentCache stores JSON encoded catalog reads. A miss returns redis.Nil.
type ContentCache interface {
	GetJSON(key string, dst interface{}) error
	SetJSON(key string, value interface{}, ttl time.Duration) error
}

// ViewCounter records page views for later flushing.
type ViewCounter interface {
	AddUseCaseView(ctx context.Context, id uint) error
	AddJobView(ctx context.Context, id uint) error
}

type redisContentCache struct{}

func (redisContentCache) GetJSON(key string, dst interface{}) error { return cache.GetJSON(key, dst) }
func (redisContentCache) SetJSON(key string, value interface{}, ttl time.Duration) error {
	return cache.SetJSON(key, value, ttl)
}

type redisViewCounter struct{}

func (redisViewCounter) AddUseCaseView(ctx context.Context, id uint) error {
	return counter.AddUseCaseView(ctx, id)
}
func (redisViewCounter) AddJobView(ctx context.Context, id uint) error {
	return counter.AddJobView(ctx, id)
}

// CatalogController serves the public catalog and applies the tier gate to
// ordered content.
type CatalogController struct {
	catalog repository.CatalogRepository
	cache   ContentCache
	views   ViewCounter
}

func NewCatalogController(catalog repository.CatalogRepository) *CatalogController {
	return &CatalogController{catalog: catalog, cache: redisContentCache{}, views: redisViewCounter{}}
}

// WithBackends swaps the cache and view counter.
func (cc *CatalogController) WithBackends(c ContentCache, v ViewCounter) *CatalogController {
	cc.cache = c
	cc.views = v
	return cc
}

type promptView struct {
	Position int    `json:"position"`
	Title    string `json:"title"`
	Body     string `json:"body,omitempty"`
	Locked   bool   `json:"locked"`
}

// gatePrompts hides the body of every prompt the state may not open. The
// index is the position in the ordered list.
func gatePrompts(state entitlements.State, prompts []models.Prompt) []promptView {
	out := make([]promptView, 0, len(prompts))
	for i, p := range prompts {
		view := promptView{Position: p.Position, Title: p.Title}
		if entitlements.CanAccessAtIndex(state, i) {
			view.Body = p.Body
		} else {
			view.Locked = true
		}
		out = append(out, view)
	}
	return out
}

// cached loads key from the cache or calls load and stores its result.
func (cc *CatalogController) cached(key string, dst interface{}, load func() error) error {
	err := cc.cache.GetJSON(key, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, redis.Nil) {
		log.Warnf("[Catalog] Cache read %s failed: %v", key, err)
	}
	if err := load(); err != nil {
		return err
	}
	if err := cc.cache.SetJSON(key, dst, catalogCacheTTL); err != nil {
		log.Warnf("[Catalog] Cache write %s failed: %v", key, err)
	}
	return nil
}

func notFoundOr500(c *fiber.Ctx, err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return jsonError(c, fiber.StatusNotFound, "not_found", what+" not found")
	}
	log.Errorf("[Catalog] Failed to load %s: %v", what, err)
	return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load "+what)
}

func (cc *CatalogController) HandleListJobs(c *fiber.Ctx) error {
	offset, limit, page := pageParams(c)
	var jobs []models.Job
	err := cc.cached(fmt.Sprintf("catalog:jobs:%d", page), &jobs, func() (err error) {
		jobs, err = cc.catalog.ListJobs(offset, limit)
		return err
	})
	if err != nil {
		return notFoundOr500(c, err, "jobs")
	}
	return c.JSON(fiber.Map{"page": page, "jobs": jobs})
}

func (cc *CatalogController) HandleGetJob(c *fiber.Ctx) error {
	slug := c.Params("slug")
	var job models.Job
	err := cc.cached("catalog:job:"+slug, &job, func() error {
		j, err := cc.catalog.GetJobBySlug(slug)
		if err != nil {
			return err
		}
		job = *j
		return nil
	})
	if err != nil {
		return notFoundOr500(c, err, "job")
	}
	if err := cc.views.AddJobView(c.UserContext(), job.ID); err != nil {
		log.Warnf("[Catalog] Failed to count view for job %d: %v", job.ID, err)
	}
	return c.JSON(job)
}

func (cc *CatalogController) HandleListTools(c *fiber.Ctx) error {
	offset, limit, page := pageParams(c)
	var tools []models.Tool
	err := cc.cached(fmt.Sprintf("catalog:tools:%d", page), &tools, func() (err error) {
		tools, err = cc.catalog.ListTools(offset, limit)
		return err
	})
	if err != nil {
		return notFoundOr500(c, err, "tools")
	}
	return c.JSON(fiber.Map{"page": page, "tools": tools})
}

func (cc *CatalogController) HandleGetTool(c *fiber.Ctx) error {
	slug := c.Params("slug")
	var tool models.Tool
	err := cc.cached("catalog:tool:"+slug, &tool, func() error {
		t, err := cc.catalog.GetToolBySlug(slug)
		if err != nil {
			return err
		}
		tool = *t
		return nil
	})
	if err != nil {
		return notFoundOr500(c, err, "tool")
	}
	return c.JSON(tool)
}

// HandleGetUseCase returns a use case with its prompts gated by the caller's
// subscription. The cached copy is ungated; gating runs on every request.
func (cc *CatalogController) HandleGetUseCase(c *fiber.Ctx) error {
	slug := c.Params("slug")
	var uc models.UseCase
	err := cc.cached("catalog:use_case:"+slug, &uc, func() error {
		u, err := cc.catalog.GetUseCaseBySlug(slug)
		if err != nil {
			return err
		}
		uc = *u
		return nil
	})
	if err != nil {
		return notFoundOr500(c, err, "use case")
	}

	if err := cc.views.AddUseCaseView(c.UserContext(), uc.ID); err != nil {
		log.Warnf("[Catalog] Failed to count view for use case %d: %v", uc.ID, err)
	}

	state := usercontext.Subscription(c)
	return c.JSON(fiber.Map{
		"id":                 uc.ID,
		"job_id":             uc.JobID,
		"slug":               uc.Slug,
		"title":              uc.Title,
		"description":        uc.Description,
		"prompts":            gatePrompts(state, uc.Prompts),
		"prompt_count":       len(uc.Prompts),
		"max_visible_count":  entitlements.MaxVisibleCount(state),
		"can_access_premium": entitlements.CanAccessPremiumContent(state),
	})
}

func (cc *CatalogController) HandleListGlossary(c *fiber.Ctx) error {
	var terms []models.GlossaryTerm
	err := cc.cached("catalog:glossary", &terms, func() (err error) {
		terms, err = cc.catalog.ListGlossary()
		return err
	})
	if err != nil {
		return notFoundOr500(c, err, "glossary")
	}
	return c.JSON(fiber.Map{"terms": terms})
}
