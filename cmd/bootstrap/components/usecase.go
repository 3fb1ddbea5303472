package components

import (
	"log/slog"

	"sales-recovery/internal/domain/campaign"
	"sales-recovery/internal/infra/dispatcher"
	"sales-recovery/internal/infra/render"
	"sales-recovery/internal/pkg/clock"
	"sales-recovery/internal/pkg/config"
	"sales-recovery/internal/usecase/commands"
	"sales-recovery/internal/usecase/executor"
	"sales-recovery/internal/usecase/queries"
	"sales-recovery/internal/usecase/scheduler"
	"sales-recovery/internal/usecase/shared"

	"github.com/go-playground/validator/v10"
	"go.uber.org/fx"
)

var UseCaseModule = fx.Module("usecase",
	usecaseBaseOption,
	usecaseCampaignModule,
	usecaseQueriesModule,
	usecaseCommandsModule,
)

var usecaseBaseOption = fx.Provide(
	clock.NewRealClock,
	func() *validator.Validate {
		return validator.New(validator.WithRequiredStructEnabled())
	},
	NewRegistry,
	fx.Annotate(
		NewTemplateCache,
		fx.As(new(shared.TemplateCache)),
	),
	fx.Annotate(
		NewDispatcher,
		fx.As(new(shared.Dispatcher)),
	),
)

var usecaseCampaignModule = fx.Module("usecase/campaign",
	fx.Provide(
		NewScheduler,
		NewExecutor,
	),
)

var usecaseCommandsModule = fx.Module("usecase/commands",
	fx.Provide(
		commands.NewTenantCommands,
		commands.NewIngestCommands,
		NewDeliveryCommands,
	),
)

var usecaseQueriesModule = fx.Module("usecase/queries",
	fx.Provide(
		queries.NewEventQueries,
	),
)

// NewRegistry loads the campaign document when one is configured and falls
// back to the built-in table otherwise.
func NewRegistry(cfg config.Config, logger *slog.Logger) (*campaign.Registry, error) {
	if cfg.Campaign.RegistryPath == "" {
		r := campaign.Default()
		logger.Info("using built-in campaign registry", "version", r.Version())
		return r, nil
	}
	r, err := campaign.LoadFile(cfg.Campaign.RegistryPath)
	if err != nil {
		return nil, err
	}
	logger.Info("loaded campaign registry", "path", cfg.Campaign.RegistryPath, "version", r.Version())
	return r, nil
}

func NewTemplateCache(registry *campaign.Registry, logger *slog.Logger) (*render.Cache, error) {
	cache := render.NewCache(logger)
	ids := make([]string, 0)
	for _, t := range registry.Templates() {
		ids = append(ids, t.String())
	}
	// fail at startup rather than on the first due attempt
	if err := cache.Warm(ids); err != nil {
		return nil, err
	}
	return cache, nil
}

func NewDispatcher(cfg config.Config, logger *slog.Logger) *dispatcher.HTTPEmailDispatcher {
	return dispatcher.NewHTTPEmailDispatcher(cfg.Dispatcher, logger)
}

func NewScheduler(registry *campaign.Registry, cfg config.Config, logger *slog.Logger) *scheduler.Scheduler {
	return scheduler.NewScheduler(registry, cfg.Worker.MaxTries, logger)
}

func NewExecutor(
	uow shared.UnitOfWork,
	registry *campaign.Registry,
	templates shared.TemplateCache,
	d shared.Dispatcher,
	clk clock.Clock,
	cfg config.Config,
	logger *slog.Logger,
) *executor.Executor {
	return executor.NewExecutor(uow, registry, templates, d, clk, cfg.Dispatcher.Timeout, logger)
}

func NewDeliveryCommands(
	uow shared.UnitOfWork,
	parker shared.CallbackParker,
	cfg config.Config,
	clk clock.Clock,
	logger *slog.Logger,
) commands.DeliveryCommands {
	return commands.NewDeliveryCommands(uow, parker, cfg.ProviderWebhook, clk, logger)
}
