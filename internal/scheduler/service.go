package scheduler

import (
	"context"
	"fmt"
	"time"

	"sadaka/internal/payment"
	"sadaka/pkg/config"
	"sadaka/pkg/errors"
	"sadaka/pkg/logger"

	"github.com/robfig/cron/v3"
)

// StaleFinder lists intents left pending past a cutoff.
type StaleFinder interface {
	ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]int64, error)
}

type IntentFailer interface {
	FailIntent(ctx context.Context, id int64) (*payment.SettleResult, error)
}

// Scheduler runs the periodic intent sweep on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	finder  StaleFinder
	failer  IntentFailer
	cfg     config.IntentConfig
	logger  logger.Logger
	timeout time.Duration
	now     func() time.Time
}

func NewScheduler(finder StaleFinder, failer IntentFailer, cfg config.IntentConfig, log logger.Logger) *Scheduler {
	c := cron.New(cron.WithChain(cron.Recover(cronLogger{log})))
	return &Scheduler{
		cron:    c,
		finder:  finder,
		failer:  failer,
		cfg:     cfg,
		logger:  log,
		timeout: 5 * time.Minute,
		now:     time.Now,
	}
}

// Start registers the sweep and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.SweepSchedule, s.runSweep); err != nil {
		return fmt.Errorf("failed to schedule intent sweep: %w", err)
	}
	s.logger.Info("Scheduled intent sweep", map[string]interface{}{
		"schedule":    s.cfg.SweepSchedule,
		"pending_ttl": s.cfg.PendingTTL.String(),
	})
	s.cron.Start()
	return nil
}

// Stop stops scheduling and returns a context that is done once the running
// sweep finishes.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if _, err := s.SweepStaleIntents(ctx); err != nil {
		s.logger.Error("Intent sweep failed", map[string]interface{}{"error": err})
	}
}

// SweepStaleIntents fails up to SweepBatch intents pending for longer than
// PendingTTL. An intent settled concurrently by a webhook is skipped.
func (s *Scheduler) SweepStaleIntents(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.cfg.PendingTTL)
	ids, err := s.finder.ListStalePending(ctx, cutoff, s.cfg.SweepBatch)
	if err != nil {
		return 0, err
	}

	failed := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return failed, ctx.Err()
		}
		res, err := s.failer.FailIntent(ctx, id)
		if err != nil {
			if errors.KindOf(err) == errors.KindInvalidState {
				continue
			}
			s.logger.Warn("Failed to expire intent", map[string]interface{}{
				"intent_id": id,
				"error":     err,
			})
			continue
		}
		if res.Applied {
			failed++
		}
	}

	if len(ids) > 0 {
		s.logger.Info("Expired stale intents", map[string]interface{}{
			"candidates": len(ids),
			"failed":     failed,
		})
	}
	return failed, nil
}

// cronLogger routes cron's panic and scheduling output to the service logger.
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, fields(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	f := fields(keysAndValues)
	f["error"] = err
	l.log.Error(msg, f)
}

func fields(kv []interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(kv)/2+1)
	for i := 0; i+1 < len(kv); i += 2 {
		out[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return out
}
