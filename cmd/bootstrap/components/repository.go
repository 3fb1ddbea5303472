package components

import (
	"sales-recovery/internal/infra/callbackqueue"
	"sales-recovery/internal/infra/uow"
	"sales-recovery/internal/pkg/config"
	"sales-recovery/internal/pkg/secretbox"
	"sales-recovery/internal/usecase/shared"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var RepositoryModule = fx.Module("repository",
	fx.Provide(
		// UnitOfWork over the event, send record, job and tenant stores
		uow.NewPostgresUoW,
		// Parked provider callbacks
		fx.Annotate(
			NewCallbackParker,
			fx.As(new(shared.CallbackParker)),
		),
		// Tenant secrets at rest
		fx.Annotate(
			NewSecretBox,
			fx.As(new(shared.SecretSealer)),
		),
	),
)

func NewCallbackParker(client *redis.Client) *callbackqueue.RedisParker {
	return callbackqueue.NewRedisParker(client, callbackqueue.DefaultKey)
}

func NewSecretBox(cfg config.Config) (*secretbox.Box, error) {
	return secretbox.NewFromBase64(cfg.Crypto.SecretKey)
}
