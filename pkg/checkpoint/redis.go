package checkpoint

import (
	"context"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

// RedisLog stores the scraped log as a Redis set. Members come back
// unordered, so Load sorts them.
type RedisLog struct {
	client redis.Cmdable
	key    string
}

// NewRedisLog uses key on client
func NewRedisLog(client redis.Cmdable, key string) *RedisLog {
	return &RedisLog{client: client, key: key}
}

// DialRedis connects to addr and checks the connection
func DialRedis(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("can't ping Redis at %s: %w", addr, err)
	}
	return client, nil
}

func (r *RedisLog) Describe() string { return "redis:" + r.key }

func (r *RedisLog) Load(ctx context.Context) ([]string, error) {
	members, err := r.client.SMembers(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("load scraped log: %w", err)
	}
	sort.Strings(members)
	return members, nil
}

func (r *RedisLog) Append(ctx context.Context, url string, all []string) error {
	if err := r.client.SAdd(ctx, r.key, url).Err(); err != nil {
		return fmt.Errorf("add to scraped log: %w", err)
	}
	return nil
}
