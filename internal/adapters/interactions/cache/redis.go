package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"medication-schedule/internal/platform/logger"
	"medication-schedule/internal/ports/interactions"
)

const DefaultTTL = 24 * time.Hour

// KV es el subconjunto de *redis.Client que usa el cache.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func Ping(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}

// Oracle decora otro Oracle con un cache en Redis. La interacción es
// simétrica: (a,b) y (b,a) comparten clave. Una falla de Redis nunca
// corta el chequeo, se consulta directo al oráculo de abajo.
type Oracle struct {
	kv   KV
	next interactions.Oracle
	ttl  time.Duration
	log  logger.Logger
}

func New(kv KV, next interactions.Oracle, ttl time.Duration, log logger.Logger) *Oracle {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Oracle{kv: kv, next: next, ttl: ttl, log: log}
}

func Key(medA, medB string) string {
	a := strings.ToLower(strings.TrimSpace(medA))
	b := strings.ToLower(strings.TrimSpace(medB))
	if b < a {
		a, b = b, a
	}
	return "ddi:" + a + "|" + b
}

func (o *Oracle) Check(ctx context.Context, medA, medB string) (interactions.Result, error) {
	key := Key(medA, medB)

	raw, err := o.kv.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var res interactions.Result
		if jerr := json.Unmarshal(raw, &res); jerr == nil {
			return res, nil
		}
		o.log.Warn("interaction cache entry unreadable", map[string]any{"key": key})
	case errors.Is(err, redis.Nil):
		// miss
	default:
		o.log.Warn("interaction cache get failed", map[string]any{"key": key, "error": err})
	}

	res, err := o.next.Check(ctx, medA, medB)
	if err != nil {
		// las fallas no se cachean
		return interactions.Result{}, err
	}

	if b, jerr := json.Marshal(res); jerr == nil {
		if serr := o.kv.Set(ctx, key, b, o.ttl).Err(); serr != nil {
			o.log.Warn("interaction cache set failed", map[string]any{"key": key, "error": serr})
		}
	}
	return res, nil
}
