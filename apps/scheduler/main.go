package main

import (
	"context"
	"hash/fnv"
	"os"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/trackmint/trackmint/internal/audit"
	"github.com/trackmint/trackmint/internal/clock"
	"github.com/trackmint/trackmint/internal/commission"
	"github.com/trackmint/trackmint/internal/config"
	"github.com/trackmint/trackmint/internal/events"
	"github.com/trackmint/trackmint/internal/observability"
	"github.com/trackmint/trackmint/internal/payout"
	"github.com/trackmint/trackmint/internal/ratelimit"
	"github.com/trackmint/trackmint/internal/scheduler"
	"github.com/trackmint/trackmint/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func newSnowflakeNode() (*snowflake.Node, error) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "trackmint-scheduler"
	}
	h := fnv.New32a()
	h.Write([]byte(hostname))
	return snowflake.NewNode(int64(h.Sum32() % 1024))
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, sched *scheduler.Scheduler, dispatcher *events.Dispatcher) {
	scheduleInterval, err := time.ParseDuration(cfg.PayoutScheduleInterval)
	if err != nil {
		scheduleInterval = time.Hour
	}
	pollInterval, err := time.ParseDuration(cfg.OutboxPollInterval)
	if err != nil {
		pollInterval = 5 * time.Second
	}

	runCtx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("scheduler starting",
				zap.Duration("payout_interval", scheduleInterval),
				zap.Duration("outbox_interval", pollInterval))
			go sched.Run(runCtx, scheduleInterval)
			go dispatcher.Run(runCtx, pollInterval)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			return nil
		},
	})
}

func main() {
	fx.New(
		config.Module,
		observability.Module,
		fx.Provide(newSnowflakeNode),
		clock.Module,
		db.Module,
		events.Module,
		audit.Module,
		ratelimit.Module,
		commission.Module,
		payout.Module,
		scheduler.Module,
		fx.Invoke(run),
	).Run()
}
