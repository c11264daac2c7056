package schedule

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/tunebox/internal/metrics"
)

type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type Scheduler interface {
	AddJob(job Job, spec string) error
	Trigger(name string) error
	Start(ctx context.Context)
	Stop()
}

type entry struct {
	id      cron.EntryID
	run     func()
	running *atomic.Bool
}

// CronScheduler runs jobs on five-field cron specs or descriptors such as
// @daily. A job never overlaps itself: a tick or trigger that finds it
// running is skipped.
type CronScheduler struct {
	cron *cron.Cron

	mu      sync.Mutex
	entries map[string]*entry
	ctx     context.Context
}

func NewCronScheduler() *CronScheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &CronScheduler{
		cron:    cron.New(cron.WithParser(parser)),
		entries: make(map[string]*entry),
		ctx:     context.Background(),
	}
}

func (c *CronScheduler) AddJob(job Job, spec string) error {
	name := job.Name()
	logger := logutil.GetLogger(context.Background()).With(zap.String("job", name), zap.String("spec", spec))
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[name]; exists {
		return fmt.Errorf("job %s already scheduled", name)
	}
	e := &entry{running: &atomic.Bool{}}
	e.run = c.wrap(job, spec, e.running)
	id, err := c.cron.AddFunc(spec, e.run)
	if err != nil {
		logger.Error("schedule job failed", zap.Error(err))
		return err
	}
	e.id = id
	c.entries[name] = e
	logger.Info("job scheduled")
	return nil
}

// Trigger runs a scheduled job now in the background, outside its cron
// cadence.
func (c *CronScheduler) Trigger(name string) error {
	c.mu.Lock()
	e, ok := c.entries[name]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("job %s not scheduled", name)
	}
	go e.run()
	return nil
}

func (c *CronScheduler) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()
	c.cron.Start()
}

func (c *CronScheduler) Stop() {
	<-c.cron.Stop().Done()
}

func (c *CronScheduler) baseContext() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ctx
}

func (c *CronScheduler) wrap(job Job, spec string, running *atomic.Bool) func() {
	return func() {
		ctx := c.baseContext()
		logger := logutil.GetLogger(ctx).With(
			zap.String("job", job.Name()),
			zap.String("spec", spec),
		)
		if !running.CompareAndSwap(false, true) {
			metrics.JobRunsTotal.WithLabelValues(job.Name(), "skipped").Inc()
			logger.Info("job skipped: still running")
			return
		}
		defer running.Store(false)

		start := time.Now()
		logger.Info("job started")
		err := job.Run(ctx)
		elapsed := time.Since(start)
		metrics.JobDuration.WithLabelValues(job.Name()).Observe(elapsed.Seconds())
		if err != nil {
			metrics.JobRunsTotal.WithLabelValues(job.Name(), "error").Inc()
			logger.Error("job finished", zap.Error(err), zap.Duration("duration", elapsed))
			return
		}
		metrics.JobRunsTotal.WithLabelValues(job.Name(), "ok").Inc()
		logger.Info("job finished", zap.Duration("duration", elapsed))
	}
}
