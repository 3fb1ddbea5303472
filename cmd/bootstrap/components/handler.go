package components

import (
	"sales-recovery/internal/handler"
	"sales-recovery/internal/handler/api"
	"sales-recovery/internal/handler/middleware"

	"go.uber.org/fx"
)

var HandlerModule = fx.Module("handler",
	fx.Provide(
		api.NewWebhookHandler,
		api.NewAdminHandler,
		middleware.NewOperatorMiddleware,
	),
	fx.Invoke(handler.NewRouter),
)
