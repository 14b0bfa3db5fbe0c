package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces limiter keys.
const DefaultRedisPrefix = "llmbridge:ratelimit"

// admitScript resets an elapsed window, then admits and increments when under
// the limit. Times are unix milliseconds.
//
// KEYS[1] count, KEYS[2] window start
// ARGV[1] limit, ARGV[2] now, ARGV[3] window length
var admitScript = redis.NewScript(`
local limit = tonumber(ARGV[1])
local now = tonumber(ARGV[2])
local window = tonumber(ARGV[3])
local start = tonumber(redis.call('GET', KEYS[2]))
local count = tonumber(redis.call('GET', KEYS[1]))
if start == nil or now - start >= window then
  start = now
  count = 0
  redis.call('SET', KEYS[2], start, 'PX', window * 2)
end
if count == nil then
  count = 0
end
local allowed = 0
if count < limit then
  count = count + 1
  allowed = 1
end
redis.call('SET', KEYS[1], count, 'PX', window * 2)
return {allowed, count, start}
`)

// RedisStore shares window state between processes through Redis. Admission
// runs as a single Lua script, so concurrent callers across hosts see one
// consistent count per provider.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore wraps client. An empty prefix uses DefaultRedisPrefix.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(provider, field string) string {
	return s.prefix + ":" + provider + ":" + field
}

func (s *RedisStore) Admit(ctx context.Context, provider string, limit int, now time.Time, window time.Duration) (Decision, error) {
	keys := []string{s.key(provider, "count"), s.key(provider, "start")}
	raw, err := admitScript.Run(ctx, s.client, keys, limit, now.UnixMilli(), window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("redis admit %s: %w", provider, err)
	}
	if len(raw) != 3 {
		return Decision{}, fmt.Errorf("redis admit %s: unexpected reply length %d", provider, len(raw))
	}
	return Decision{
		Allowed:     raw[0] == 1,
		Count:       int(raw[1]),
		WindowStart: time.UnixMilli(raw[2]),
	}, nil
}

func (s *RedisStore) Window(ctx context.Context, provider string) (int, time.Time, error) {
	values, err := s.client.MGet(ctx, s.key(provider, "count"), s.key(provider, "start")).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis window %s: %w", provider, err)
	}

	count, err := parseInt(values[0])
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis window %s count: %w", provider, err)
	}
	startMillis, err := parseInt(values[1])
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis window %s start: %w", provider, err)
	}

	var start time.Time
	if values[1] != nil {
		start = time.UnixMilli(startMillis)
	}
	return int(count), start, nil
}

func (s *RedisStore) AddTokens(ctx context.Context, provider string, tokens int64) (int64, error) {
	total, err := s.client.IncrBy(ctx, s.key(provider, "tokens"), tokens).Result()
	if err != nil {
		return 0, fmt.Errorf("redis add tokens %s: %w", provider, err)
	}
	return total, nil
}

func (s *RedisStore) Tokens(ctx context.Context, provider string) (int64, error) {
	total, err := s.client.Get(ctx, s.key(provider, "tokens")).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis tokens %s: %w", provider, err)
	}
	return total, nil
}

func (s *RedisStore) Reset(ctx context.Context, provider string) error {
	err := s.client.Del(ctx, s.key(provider, "count"), s.key(provider, "start"), s.key(provider, "tokens")).Err()
	if err != nil {
		return fmt.Errorf("redis reset %s: %w", provider, err)
	}
	return nil
}

func (s *RedisStore) ResetAll(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.prefix+":*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis reset all: %w", err)
	}
	return nil
}

func parseInt(value any) (int64, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	case int64:
		return v, nil
	}
	return 0, fmt.Errorf("unexpected value type %T", value)
}
