package components

import (
	"context"
	"log/slog"

	"sales-recovery/internal/pkg/clock"
	"sales-recovery/internal/pkg/config"
	"sales-recovery/internal/usecase/commands"
	"sales-recovery/internal/usecase/executor"
	"sales-recovery/internal/usecase/shared"
	"sales-recovery/internal/worker"

	"go.uber.org/fx"
)

var WorkerModule = fx.Module("worker",
	fx.Provide(
		NewWorkerPool,
		NewCallbackSweeper,
	),
	fx.Invoke(registerWorkers),
)

func NewWorkerPool(uow shared.UnitOfWork, exec *executor.Executor, clk clock.Clock, cfg config.Config, logger *slog.Logger) *worker.Pool {
	return worker.NewPool(uow, exec, clk, cfg.Worker, logger)
}

func NewCallbackSweeper(parker shared.CallbackParker, delivery commands.DeliveryCommands, clk clock.Clock, cfg config.Config, logger *slog.Logger) *worker.Sweeper {
	return worker.NewSweeper(parker, delivery, clk, cfg.ProviderWebhook, logger)
}

func registerWorkers(lc fx.Lifecycle, pool *worker.Pool, sweeper *worker.Sweeper) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			pool.Start()
			sweeper.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			sweeper.Stop()
			return pool.Stop(ctx)
		},
	})
}
