package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ogurasousui/talent-board/internal/core/matching"
)

// commands は MatchCache が使う Redis コマンドです。
type commands interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
}

// MatchCache は照合結果を JSON で Redis に保持します。
type MatchCache struct {
	rdb commands
}

// NewMatchCache は MatchCache を生成します。
func NewMatchCache(rdb goredis.Cmdable) *MatchCache {
	return &MatchCache{rdb: rdb}
}

// Open は URL から Redis クライアントを生成し、疎通を確認します。
func Open(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return client, nil
}

var _ matching.Cache = (*MatchCache)(nil)

// Get はキャッシュ済みの照合結果を返します。存在しない場合は false を返します。
func (c *MatchCache) Get(ctx context.Context, key string) ([]matching.Match, bool, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	var matches []matching.Match
	if err := json.Unmarshal(data, &matches); err != nil {
		return nil, false, fmt.Errorf("redis decode %s: %w", key, err)
	}
	return matches, true, nil
}

// Set は照合結果を ttl 付きで保存します。
func (c *MatchCache) Set(ctx context.Context, key string, matches []matching.Match, ttl time.Duration) error {
	if matches == nil {
		matches = []matching.Match{}
	}
	data, err := json.Marshal(matches)
	if err != nil {
		return fmt.Errorf("redis encode %s: %w", key, err)
	}
	if err := c.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete はキーを削除します。
func (c *MatchCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
