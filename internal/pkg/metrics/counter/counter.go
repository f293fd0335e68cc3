// Package counter buffers catalog view counts in Redis and periodically
// folds them into the view_count columns.
package counter

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/thrivewithai/thrivewithai/internal/pkg/cache"
	"github.com/thrivewithai/thrivewithai/internal/pkg/database"
)

type target struct {
	key   string
	table string
}

var (
	useCaseViews = target{key: "twai:views:use_cases", table: "use_cases"}
	jobViews     = target{key: "twai:views:jobs", table: "jobs"}
)

// Views moves buffered increments from Redis hashes into MySQL.
type Views struct {
	rdb *redis.Client
	db  *gorm.DB
}

func New(rdb *redis.Client, db *gorm.DB) *Views {
	return &Views{rdb: rdb, db: db}
}

func defaultViews() *Views {
	return New(cache.GetClient(), database.GetDB())
}

func AddUseCaseView(ctx context.Context, useCaseID uint) error {
	return defaultViews().add(ctx, useCaseViews, useCaseID)
}

func AddJobView(ctx context.Context, jobID uint) error {
	return defaultViews().add(ctx, jobViews, jobID)
}

// FlushAll is the periodic flush run by the job queue manager.
func FlushAll() error {
	return defaultViews().Flush(context.Background())
}

func (v *Views) add(ctx context.Context, t target, id uint) error {
	return v.rdb.HIncrBy(ctx, t.key, strconv.FormatUint(uint64(id), 10), 1).Err()
}

func (v *Views) Flush(ctx context.Context) error {
	for _, t := range []target{useCaseViews, jobViews} {
		if err := v.flush(ctx, t); err != nil {
			return fmt.Errorf("flush %s views: %w", t.table, err)
		}
	}
	return nil
}

// flush renames the live hash to a draining key so new views keep landing
// in a fresh hash. The draining hash is only deleted after the database
// commit; a failed run leaves it for the next one.
func (v *Views) flush(ctx context.Context, t target) error {
	draining := t.key + ":draining"

	left, err := v.rdb.Exists(ctx, draining).Result()
	if err != nil {
		return err
	}
	if left > 0 {
		if err := v.apply(ctx, t.table, draining); err != nil {
			return err
		}
	}

	if err := v.rdb.Rename(ctx, t.key, draining).Err(); err != nil {
		if strings.Contains(err.Error(), "no such key") {
			return nil
		}
		return err
	}
	return v.apply(ctx, t.table, draining)
}

func (v *Views) apply(ctx context.Context, table, key string) error {
	raw, err := v.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return err
	}
	increments := parseIncrements(raw)

	if len(increments) > 0 {
		err = v.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for _, inc := range increments {
				res := tx.Table(table).
					Where("id = ?", inc.id).
					UpdateColumn("view_count", gorm.Expr("view_count + ?", inc.n))
				if res.Error != nil {
					return res.Error
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return v.rdb.Del(ctx, key).Err()
}

type increment struct {
	id uint64
	n  int64
}

// parseIncrements skips malformed fields and zero counts, ordered by id so
// concurrent flushes lock rows in the same order.
func parseIncrements(raw map[string]string) []increment {
	out := make([]increment, 0, len(raw))
	for field, value := range raw {
		id, err := strconv.ParseUint(field, 10, 64)
		if err != nil || id == 0 {
			continue
		}
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n <= 0 {
			continue
		}
		out = append(out, increment{id: id, n: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}
