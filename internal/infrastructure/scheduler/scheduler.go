package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var ErrUnknownTask = errors.New("scheduler: unknown task")

// Result is what one task run reports back.
type Result struct {
	Candidates int
	Applied    int
	Skipped    int
	Failed     int
}

// Task is a periodic job. Run must be idempotent: it may be started again
// before a previous run on another instance has finished.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) (Result, error)
}

// Locker guards a task so that only one instance runs it at a time.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Unlock(ctx context.Context, key, token string) error
}

type Config struct {
	// LockTTL bounds how long a crashed holder can block a task.
	LockTTL time.Duration
	// Timeout bounds a single run.
	Timeout time.Duration
	// RunOnStart runs every task once when the scheduler starts.
	RunOnStart bool
}

type metrics struct {
	runs     *prometheus.CounterVec
	items    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_task_runs_total",
			Help: "Scheduler task runs by outcome",
		}, []string{"task", "outcome"}),
		items: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_task_items_total",
			Help: "Items handled by scheduler tasks by result",
		}, []string{"task", "result"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scheduler_task_duration_seconds",
			Help:    "Duration of scheduler task runs in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"task"}),
	}
}

// Scheduler runs each task on its own ticker.
type Scheduler struct {
	tasks   map[string]Task
	order   []string
	locker  Locker
	cfg     Config
	logger  *zap.Logger
	metrics *metrics

	stop     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New builds a scheduler. locker may be nil, in which case every instance
// runs every task.
func New(tasks []Task, locker Locker, cfg Config, logger *zap.Logger, reg prometheus.Registerer) *Scheduler {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 50 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}

	s := &Scheduler{
		tasks:   make(map[string]Task, len(tasks)),
		locker:  locker,
		cfg:     cfg,
		logger:  logger,
		metrics: newMetrics(reg),
		stop:    make(chan struct{}),
	}
	for _, t := range tasks {
		s.tasks[t.Name] = t
		s.order = append(s.order, t.Name)
	}
	return s
}

// Start launches one goroutine per task.
func (s *Scheduler) Start() {
	for _, name := range s.order {
		task := s.tasks[name]
		s.wg.Add(1)
		go s.loop(task)
	}

	s.logger.Info("Scheduler started",
		zap.Int("tasks", len(s.order)),
		zap.Bool("distributed_lock", s.locker != nil))
}

// Stop stops the tickers and waits for running tasks to return.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	s.wg.Wait()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) loop(task Task) {
	defer s.wg.Done()

	if s.cfg.RunOnStart {
		s.execute(task)
	}

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.execute(task)
		}
	}
}

// RunOnce runs the named task immediately, honouring the lock.
func (s *Scheduler) RunOnce(name string) (Result, error) {
	task, ok := s.tasks[name]
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	return s.execute(task)
}

func (s *Scheduler) execute(task Task) (result Result, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()

	if s.locker != nil {
		key := "scheduler:" + task.Name
		token, ok, lockErr := s.locker.TryLock(ctx, key, s.cfg.LockTTL)
		switch {
		case lockErr != nil:
			// Tasks are idempotent, running without the lock is safe.
			s.logger.Warn("Scheduler lock unavailable, running unlocked",
				zap.String("task", task.Name), zap.Error(lockErr))
		case !ok:
			s.metrics.runs.WithLabelValues(task.Name, "locked").Inc()
			return Result{}, nil
		default:
			defer func() {
				if err := s.locker.Unlock(context.Background(), key, token); err != nil {
					s.logger.Warn("Failed to release scheduler lock",
						zap.String("task", task.Name), zap.Error(err))
				}
			}()
		}
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", task.Name, r)
			s.metrics.runs.WithLabelValues(task.Name, "panic").Inc()
			s.logger.Error("Scheduler task panicked",
				zap.String("task", task.Name),
				zap.Any("panic", r))
		}
	}()

	result, err = task.Run(ctx)
	s.metrics.duration.WithLabelValues(task.Name).Observe(time.Since(start).Seconds())

	if err != nil {
		s.metrics.runs.WithLabelValues(task.Name, "error").Inc()
		s.logger.Error("Scheduler task failed",
			zap.String("task", task.Name),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return result, err
	}

	s.metrics.runs.WithLabelValues(task.Name, "success").Inc()
	s.metrics.items.WithLabelValues(task.Name, "applied").Add(float64(result.Applied))
	s.metrics.items.WithLabelValues(task.Name, "skipped").Add(float64(result.Skipped))
	s.metrics.items.WithLabelValues(task.Name, "failed").Add(float64(result.Failed))

	if result.Applied > 0 || result.Failed > 0 {
		s.logger.Info("Scheduler task completed",
			zap.String("task", task.Name),
			zap.Int("applied", result.Applied),
			zap.Int("failed", result.Failed),
			zap.Duration("duration", time.Since(start)))
	}
	return result, nil
}
