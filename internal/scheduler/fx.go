package scheduler

import (
	"context"

	"github.com/smallbiznis/fattura/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("scheduler",
	fx.Provide(ProvideConfig),
	fx.Provide(New),
	fx.Invoke(NewScheduler),
)

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval:       cfg.SchedulerRunInterval,
		BatchSize:         cfg.SchedulerBatchSize,
		ExpiryWarningDays: cfg.ExpiryWarningDays,
		AnonymizeDryRun:   cfg.AnonymizeDryRun,
		VerifyExpiring:    cfg.VerifyExpiring,
		EnabledJobs:       cfg.SchedulerEnabledJobs,
	}.withDefaults()
}

func NewScheduler(lc fx.Lifecycle, sched *Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())

			go sched.RunForever(ctx)

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})

			return nil
		},
	})
}
