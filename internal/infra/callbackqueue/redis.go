package callbackqueue

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"sales-recovery/internal/pkg/errs"
	"sales-recovery/internal/usecase/shared"

	"github.com/redis/go-redis/v9"
)

const DefaultKey = "sales-recovery:parked-callbacks"

// RedisParker keeps deferred provider callbacks in a sorted set scored by
// their retry time.
type RedisParker struct {
	client *redis.Client
	key    string
}

func NewRedisParker(client *redis.Client, key string) *RedisParker {
	if key == "" {
		key = DefaultKey
	}
	return &RedisParker{client: client, key: key}
}

var _ shared.CallbackParker = (*RedisParker)(nil)

func (p *RedisParker) Park(ctx context.Context, cb shared.Callback, retryAt time.Time) error {
	member, err := json.Marshal(cb)
	if err != nil {
		return errs.Wrap(err, "marshal parked callback")
	}
	err = p.client.ZAdd(ctx, p.key, redis.Z{
		Score:  float64(retryAt.UnixMilli()),
		Member: string(member),
	}).Err()
	if err != nil {
		return errs.Wrap(err, "park callback")
	}
	return nil
}

// Due pops callbacks whose retry time has passed. Each member is handed to
// exactly one caller: only entries this call managed to remove are returned.
func (p *RedisParker) Due(ctx context.Context, now time.Time, limit int64) ([]shared.Callback, error) {
	members, err := p.client.ZRangeByScore(ctx, p.key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: limit,
	}).Result()
	if err != nil {
		return nil, errs.Wrap(err, "list parked callbacks")
	}

	out := make([]shared.Callback, 0, len(members))
	for _, m := range members {
		removed, err := p.client.ZRem(ctx, p.key, m).Result()
		if err != nil {
			return out, errs.Wrap(err, "claim parked callback")
		}
		if removed == 0 {
			continue
		}
		var cb shared.Callback
		if err := json.Unmarshal([]byte(m), &cb); err != nil {
			// unreadable entries are already removed, nothing else to do
			continue
		}
		out = append(out, cb)
	}
	return out, nil
}

func (p *RedisParker) Len(ctx context.Context) (int64, error) {
	n, err := p.client.ZCard(ctx, p.key).Result()
	if err != nil {
		return 0, errs.Wrap(err, "count parked callbacks")
	}
	return n, nil
}
