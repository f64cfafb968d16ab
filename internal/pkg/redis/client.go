// Package redis 提供轻量的在线状态镜像与限流计数。
// Durable Store 里的 status 字段是事实来源；这里的 TTL 键只用来让
// 其它节点或运维工具在不查库的情况下观察在线情况，写入全部 best-effort。
package redis

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/harbor-im/harbor/config"
)

type RedisClient interface {
	Close() error
	GetClient() *redis.Client
	Ping(ctx context.Context) error

	SetUserOnline(ctx context.Context, userID string, ttl time.Duration) error
	IsUserOnline(ctx context.Context, userID string) (bool, error)
	RemoveUserOnline(ctx context.Context, userID string) error

	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
}

type Client struct {
	client *redis.Client
	config *config.RedisConfig
}

func NewClient(cfg *config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{client: rdb, config: cfg}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) GetClient() *redis.Client {
	return c.client
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func onlineKey(userID string) string {
	return "online:" + userID
}

// SetUserOnline 写入带 TTL 的在线标记；心跳会周期性刷新。
func (c *Client) SetUserOnline(ctx context.Context, userID string, ttl time.Duration) error {
	return c.client.Set(ctx, onlineKey(userID), time.Now().Unix(), ttl).Err()
}

func (c *Client) IsUserOnline(ctx context.Context, userID string) (bool, error) {
	n, err := c.client.Exists(ctx, onlineKey(userID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *Client) RemoveUserOnline(ctx context.Context, userID string) error {
	return c.client.Del(ctx, onlineKey(userID)).Err()
}

// IncrWindow 固定窗口计数：首次自增时设置过期，供限流器使用。
func (c *Client) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
