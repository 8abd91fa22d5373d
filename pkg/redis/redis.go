package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/GTD-web/ems-backend-sub011/config"
)

// Client Redis 客户端封装
// 当前用于自动阶段调度的分布式锁，保证多实例部署时同一时刻只有一个实例执行扫描
type Client struct {
	rdb    *goredis.Client
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// ── 分布式锁 ──

const lockPrefix = "lock:"

// releaseScript 仅当锁仍由自己持有时才删除
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock 已获取的锁，Release 后失效
type Lock struct {
	client *Client
	key    string
	token  string
}

// TryLock 尝试以 SET NX 获取锁，ttl 到期自动释放。
// 锁已被其他实例持有时返回 (nil, nil)。
func (c *Client) TryLock(ctx context.Context, name string, ttl time.Duration) (*Lock, error) {
	token := uuid.New().String()
	key := lockPrefix + name

	ok, err := c.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("获取锁 %s 失败: %w", key, err)
	}
	if !ok {
		return nil, nil
	}
	return &Lock{client: c, key: key, token: token}, nil
}

// Release 释放锁；锁已过期或被他人持有时静默忽略
func (l *Lock) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.client.rdb, []string{l.key}, l.token).Err(); err != nil && err != goredis.Nil {
		return fmt.Errorf("释放锁 %s 失败: %w", l.key, err)
	}
	return nil
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
