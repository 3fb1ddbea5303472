package bootstrap

import (
	"context"
	"log/slog"

	"sales-recovery/internal/infra/tracing"
	"sales-recovery/internal/pkg/config"

	"go.uber.org/fx"
)

var TracingModule = fx.Module("tracing",
	fx.Invoke(SetupTracing),
)

func SetupTracing(lc fx.Lifecycle, cfg config.Config, logger *slog.Logger) {
	var shutdown func(context.Context) error
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			var err error
			shutdown, err = tracing.Setup(ctx, cfg.Tracing)
			if err != nil {
				return err
			}
			logger.Info("tracing configured", "enabled", cfg.Tracing.Enabled && cfg.Tracing.Endpoint != "")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if shutdown == nil {
				return nil
			}
			return shutdown(ctx)
		},
	})
}
