package scheduler

import (
	"context"
	"time"

	"github.com/trackmint/trackmint/internal/clock"
	payoutdomain "github.com/trackmint/trackmint/internal/payout/domain"
	"github.com/trackmint/trackmint/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	payoutLockKey = "scheduler:payout_generate"
	payoutLockTTL = 10 * time.Minute
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Payouts payoutdomain.Service
	Locker  *ratelimit.Locker
	Clock   clock.Clock
}

// Scheduler sweeps the previous calendar month into payouts on an interval.
// The lock keeps concurrent instances from double-generating; commission
// claiming makes a lost lock safe anyway.
type Scheduler struct {
	log     *zap.Logger
	payouts payoutdomain.Service
	locker  *ratelimit.Locker
	clock   clock.Clock
}

func New(p Params) *Scheduler {
	return &Scheduler{
		log:     p.Log.Named("scheduler.payout"),
		payouts: p.Payouts,
		locker:  p.Locker,
		clock:   p.Clock,
	}
}

func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.log.Error("payout sweep failed", zap.Error(err))
			}
		}
	}
}

// RunOnce generates payouts for the previous calendar month.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	release, ok, err := s.locker.Acquire(ctx, payoutLockKey, payoutLockTTL)
	if err != nil {
		return err
	}
	if !ok {
		s.log.Debug("payout sweep lock held elsewhere")
		return nil
	}
	defer release()

	start, end := PreviousMonth(s.clock.Now())
	report, err := s.payouts.GenerateForPeriod(ctx, start, end)
	if err != nil {
		return err
	}

	s.log.Info("payout sweep complete",
		zap.Time("period_start", start),
		zap.Time("period_end", end),
		zap.Int("generated", len(report.Generated)),
		zap.Int("skipped", len(report.Skipped)))
	return nil
}

// PreviousMonth returns the bounds of the calendar month before the given
// instant, in UTC. The end bound is exclusive.
func PreviousMonth(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	end := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	start := end.AddDate(0, -1, 0)
	return start, end
}

var Module = fx.Module("scheduler",
	fx.Provide(New),
)
