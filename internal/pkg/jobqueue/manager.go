package jobqueue

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/thrivewithai/thrivewithai/internal/pkg/env"
	"github.com/thrivewithai/thrivewithai/internal/pkg/mail"
	"github.com/thrivewithai/thrivewithai/internal/pkg/metrics/counter"
)

const (
	defaultWorkerCount   = 5
	counterFlushInterval = time.Minute
)

// Manager owns the process-wide queue and the periodic view counter flush.
type Manager struct {
	queue *Queue
	flush func() error

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

func GetManager() *Manager {
	managerOnce.Do(func() {
		globalManager = newManager(NewQueue(env.GetEnvInt("JOBQUEUE_WORKERS", defaultWorkerCount)), counter.FlushAll)
	})
	return globalManager
}

func newManager(q *Queue, flush func() error) *Manager {
	return &Manager{queue: q, flush: flush}
}

func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Configure injects the services job handlers call. It must run before Start.
func (m *Manager) Configure(billingOps BillingOps, mailer mail.Mailer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue.billing = billingOps
	m.queue.mailer = mailer
}

func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	m.running = true

	m.queue.Start()
	go m.flushLoop(ctx, m.done)
	log.Info("[JobQueue Manager] Started")
}

// Stop halts the queue and runs one last counter flush so buffered views
// survive a restart.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}

	m.cancel()
	<-m.done
	m.queue.Stop()
	m.running = false

	m.flushOnce()
	log.Info("[JobQueue Manager] Stopped")
}

func (m *Manager) flushLoop(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(counterFlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.flushOnce()
		}
	}
}

func (m *Manager) flushOnce() {
	if m.flush == nil {
		return
	}
	if err := m.flush(); err != nil {
		log.Errorf("[JobQueue Manager] Counter flush failed: %v", err)
	}
}

func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
