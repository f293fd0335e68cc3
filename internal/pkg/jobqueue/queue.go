package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/thrivewithai/thrivewithai/internal/pkg/cache"
	"github.com/thrivewithai/thrivewithai/internal/pkg/mail"
	"github.com/thrivewithai/thrivewithai/internal/pkg/metrics"
)

const (
	DefaultNamespace  = "twai:jobs"
	DefaultMaxRetries = 3
	JobTTL            = 24 * time.Hour

	defaultWorkers = 3
	claimTimeout   = time.Second
	retryBackoff   = time.Minute
	promoteEvery   = time.Second
	sweepEvery     = time.Minute
	stuckAfter     = 10 * time.Minute
)

// keys names the Redis structures of one queue namespace:
// a job record per id, the pending and processing lists, a zset of
// delayed retries scored by due time, and a hash of terminal counts.
type keys struct{ ns string }

func (k keys) job(id string) string { return k.ns + ":job:" + id }
func (k keys) pending() string      { return k.ns + ":pending" }
func (k keys) processing() string   { return k.ns + ":processing" }
func (k keys) delayed() string      { return k.ns + ":delayed" }
func (k keys) stats() string        { return k.ns + ":stats" }

// Queue is a Redis backed job queue with a fixed pool of workers.
type Queue struct {
	client  *redis.Client
	keys    keys
	billing BillingOps
	mailer  mail.Mailer
	workers int

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

func NewQueue(workers int) *Queue {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Queue{
		client:  cache.GetClient(),
		keys:    keys{ns: DefaultNamespace},
		workers: workers,
	}
}

// Start launches the workers, the retry promoter and the stuck-job sweeper.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel
	q.running = true
	log.Infof("[JobQueue] Starting %d workers on %s", q.workers, q.keys.ns)

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.work(ctx, i)
	}
	q.wg.Add(2)
	go q.every(ctx, promoteEvery, q.promoteDue)
	go q.every(ctx, sweepEvery, func(ctx context.Context) { q.recoverStuck(ctx, stuckAfter) })
}

// Stop cancels the loops and waits for in-flight jobs to finish.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.running {
		return
	}
	log.Info("[JobQueue] Stopping workers...")
	q.cancel()
	q.wg.Wait()
	q.running = false
	log.Info("[JobQueue] All workers stopped")
}

func (q *Queue) every(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	defer q.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

func (q *Queue) work(ctx context.Context, id int) {
	defer q.wg.Done()
	log.Debugf("[JobQueue] Worker %d started", id)

	for ctx.Err() == nil {
		job, err := q.claim(ctx)
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				log.Errorf("[JobQueue] Worker %d: %v", id, err)
				sleep(ctx, time.Second)
			}
			continue
		}
		// A claimed job runs to the end even when Stop was called meanwhile.
		q.run(context.WithoutCancel(ctx), job)
	}
	log.Debugf("[JobQueue] Worker %d stopped", id)
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// EnqueueJob stores a new job and appends it to the pending list.
func (q *Queue) EnqueueJob(jobType JobType, payload interface{}) (*Job, error) {
	ctx := context.Background()
	job, err := newJob(uuid.NewString(), jobType, payload, DefaultMaxRetries, time.Now())
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("encode job: %w", err)
	}

	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, q.keys.job(job.ID), data, JobTTL)
		pipe.LPush(ctx, q.keys.pending(), job.ID)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enqueue %s job: %w", jobType, err)
	}
	log.Infof("[JobQueue] Enqueued %s job %s", job.Type, job.ID)
	return job, nil
}

// claim moves the next pending id onto the processing list and loads it.
func (q *Queue) claim(ctx context.Context) (*Job, error) {
	id, err := q.client.BRPopLPush(ctx, q.keys.pending(), q.keys.processing(), claimTimeout).Result()
	if err != nil {
		return nil, err
	}
	job, err := q.load(ctx, id)
	if err != nil {
		q.client.LRem(ctx, q.keys.processing(), 1, id)
		return nil, err
	}
	return job, nil
}

func (q *Queue) load(ctx context.Context, id string) (*Job, error) {
	data, err := q.client.Get(ctx, q.keys.job(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("job %s expired or was removed", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", id, err)
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", id, err)
	}
	return &job, nil
}

func (q *Queue) save(ctx context.Context, pipe redis.Pipeliner, job *Job) {
	data, err := json.Marshal(job)
	if err != nil {
		log.Errorf("[JobQueue] Could not encode job %s: %v", job.ID, err)
		return
	}
	pipe.Set(ctx, q.keys.job(job.ID), data, JobTTL)
}

// run executes one claimed job and settles it: completed jobs are deleted,
// failed jobs go to the delayed set while attempts remain.
func (q *Queue) run(ctx context.Context, job *Job) {
	job.start(time.Now())
	if _, err := q.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		q.save(ctx, pipe, job)
		return nil
	}); err != nil {
		log.Warnf("[JobQueue] Could not mark job %s started: %v", job.ID, err)
	}

	began := time.Now()
	err := q.handle(ctx, job)
	now := time.Now()

	var result string
	_, pipeErr := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, q.keys.processing(), 1, job.ID)
		switch {
		case err == nil:
			job.complete(now)
			result = string(JobStatusCompleted)
			pipe.Del(ctx, q.keys.job(job.ID))
			pipe.HIncrBy(ctx, q.keys.stats(), string(JobStatusCompleted), 1)
		default:
			job.fail(now, err)
			if job.CanRetry() {
				job.scheduleRetry(now)
				result = "retried"
				q.save(ctx, pipe, job)
				pipe.ZAdd(ctx, q.keys.delayed(), redis.Z{
					Score:  float64(now.Add(retryDelay(job.Attempts)).Unix()),
					Member: job.ID,
				})
			} else {
				result = string(JobStatusFailed)
				q.save(ctx, pipe, job)
				pipe.HIncrBy(ctx, q.keys.stats(), string(JobStatusFailed), 1)
			}
		}
		return nil
	})
	metrics.GetJobMetrics().RecordRun(string(job.Type), result, now.Sub(began))

	switch {
	case pipeErr != nil:
		log.Errorf("[JobQueue] Could not settle job %s (%s): %v", job.ID, result, pipeErr)
	case err == nil:
		log.Infof("[JobQueue] Job %s (%s) completed", job.ID, job.Type)
	case result == "retried":
		log.Warnf("[JobQueue] Job %s (%s) failed, attempt %d/%d: %v", job.ID, job.Type, job.Attempts, job.MaxAttempts, err)
	default:
		log.Errorf("[JobQueue] Job %s (%s) gave up after %d attempts: %v", job.ID, job.Type, job.Attempts, err)
	}
}

// retryDelay grows linearly with the attempt number.
func retryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(attempt) * retryBackoff
}

// promoteScript moves up to ARGV[2] delayed jobs with a score at or below
// ARGV[1] from KEYS[1] onto the pending list KEYS[2] in one atomic step.
var promoteScript = redis.NewScript(`
local due = redis.call("ZRANGEBYSCORE", KEYS[1], "-inf", ARGV[1], "LIMIT", 0, ARGV[2])
for _, id in ipairs(due) do
  redis.call("ZREM", KEYS[1], id)
  redis.call("LPUSH", KEYS[2], id)
end
return #due
`)

const promoteBatch = 100

// promoteDue moves retries whose delay has passed back onto the pending list.
func (q *Queue) promoteDue(ctx context.Context) {
	for {
		moved, err := q.promote(ctx, time.Now(), promoteBatch)
		if err != nil {
			if ctx.Err() == nil {
				log.Errorf("[JobQueue] Could not promote delayed jobs: %v", err)
			}
			return
		}
		if moved < promoteBatch {
			return
		}
	}
}

func (q *Queue) promote(ctx context.Context, now time.Time, limit int) (int, error) {
	n, err := promoteScript.Run(ctx, q.client,
		[]string{q.keys.delayed(), q.keys.pending()},
		now.Unix(), limit,
	).Int()
	if err != nil {
		return 0, fmt.Errorf("promote delayed jobs: %w", err)
	}
	return n, nil
}

// recoverStuck requeues jobs that sat on the processing list longer than
// maxAge, which happens when a process dies mid-job.
func (q *Queue) recoverStuck(ctx context.Context, maxAge time.Duration) {
	ids, err := q.client.LRange(ctx, q.keys.processing(), 0, -1).Result()
	if err != nil {
		if ctx.Err() == nil {
			log.Errorf("[JobQueue] Could not read processing list: %v", err)
		}
		return
	}

	now := time.Now()
	for _, id := range ids {
		job, err := q.load(ctx, id)
		if err != nil {
			log.Warnf("[JobQueue] Dropping unreadable job from processing list: %v", err)
			q.client.LRem(ctx, q.keys.processing(), 1, id)
			continue
		}
		age := now.Sub(job.runningSince())
		if age <= maxAge {
			continue
		}

		log.Warnf("[JobQueue] Recovering job %s (%s) stuck for %s", job.ID, job.Type, age.Round(time.Second))
		job.Status = JobStatusPending
		job.LastError = "recovered after stall"
		job.UpdatedAt = now
		if _, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			q.save(ctx, pipe, job)
			pipe.LRem(ctx, q.keys.processing(), 1, id)
			pipe.RPush(ctx, q.keys.pending(), id)
			return nil
		}); err != nil {
			log.Errorf("[JobQueue] Could not recover job %s: %v", id, err)
		}
	}
}

// GetJobStats returns how many jobs completed or failed for good.
func (q *Queue) GetJobStats(ctx context.Context) (map[JobStatus]int64, error) {
	raw, err := q.client.HGetAll(ctx, q.keys.stats()).Result()
	if err != nil {
		return nil, err
	}
	stats := make(map[JobStatus]int64, len(raw))
	for status, count := range raw {
		if n, err := strconv.ParseInt(count, 10, 64); err == nil {
			stats[JobStatus(status)] = n
		}
	}
	return stats, nil
}

// GetQueueSize counts jobs waiting to run, including scheduled retries.
func (q *Queue) GetQueueSize(ctx context.Context) (int64, error) {
	var pending *redis.IntCmd
	var delayed *redis.IntCmd
	if _, err := q.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pending = pipe.LLen(ctx, q.keys.pending())
		delayed = pipe.ZCard(ctx, q.keys.delayed())
		return nil
	}); err != nil {
		return 0, err
	}
	return pending.Val() + delayed.Val(), nil
}

func (q *Queue) GetProcessingSize(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.keys.processing()).Result()
}
