package expiry

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ivankudzin/tgapp/subscriptions/internal/domain/model"
	"github.com/ivankudzin/tgapp/subscriptions/internal/infra/metrics"
)

const (
	DefaultSchedule = "@hourly"
	defaultBatch    = 500
)

type ExpiredLister interface {
	ListExpired(ctx context.Context, at time.Time, limit int) ([]model.Subscription, error)
}

// Job reports paid subscriptions whose expiry date has passed. It never
// changes a tier; expiry is informational.
type Job struct {
	subs   ExpiredLister
	batch  int
	now    func() time.Time
	logger *zap.Logger
}

func New(subs ExpiredLister, logger *zap.Logger) *Job {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		subs:   subs,
		batch:  defaultBatch,
		now:    time.Now,
		logger: logger,
	}
}

func (j *Job) Run(ctx context.Context) error {
	if j.subs == nil {
		return nil
	}

	expired, err := j.subs.ListExpired(ctx, j.now().UTC(), j.batch)
	if err != nil {
		return fmt.Errorf("list expired subscriptions: %w", err)
	}

	metrics.SubscriptionsExpired.Set(float64(len(expired)))
	for _, sub := range expired {
		fields := []zap.Field{
			zap.Int64("user_id", sub.UserID),
			zap.String("tier", string(sub.Tier)),
		}
		if sub.ExpiresAt != nil {
			fields = append(fields, zap.Time("expires_at", *sub.ExpiresAt))
		}
		j.logger.Info("subscription past expiry", fields...)
	}
	if len(expired) > 0 {
		j.logger.Info("expiry audit completed", zap.Int("expired", len(expired)))
	}
	return nil
}

// Scheduler runs background tasks on cron specs until Stop.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

func NewScheduler(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cron.DiscardLogger))),
		logger: logger,
	}
}

// Add registers fn under spec. A failed run is logged under name.
func (s *Scheduler) Add(ctx context.Context, name, spec string, fn func(context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		if err := fn(ctx); err != nil {
			s.logger.Warn(name+" failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %s %q: %w", name, spec, err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// EverySpec renders an interval as a cron spec.
func EverySpec(interval time.Duration) string {
	return "@every " + interval.String()
}

// Stop waits for running tasks to finish.
func (s *Scheduler) Stop() {
	if s == nil || s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}
