package database

import (
	"context"
	"fmt"

	"github.com/SlpAus/guild-activity-tracker/internal/platform/config"
	"github.com/redis/go-redis/v9"
)

// Redis 封装了缓存客户端及其健康状态。
// 所有读路径在使用前都应检查IsHealthy，并在不健康时退化为SQLite。
type Redis struct {
	Client *redis.Client
	status *statusManager
}

// NewRedis 初始化与Redis的连接并验证连通性。
func NewRedis(cfg config.RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("无法连接到Redis: %w", err)
	}

	return &Redis{
		Client: client,
		status: newStatusManager(),
	}, nil
}

// IsHealthy 返回当前Redis的健康状态。
func (r *Redis) IsHealthy() bool {
	return r.status.isHealthy()
}

// SetInitialRunID 在应用启动时设置初始的Redis run_id。
func (r *Redis) SetInitialRunID(runID string) {
	r.status.setInitialRunID(runID)
}

// UpdateStatus 由健康检查器调用，线程安全地更新健康状态。
func (r *Redis) UpdateStatus(isHealthy bool, newRunID string) {
	r.status.update(isHealthy, newRunID)
}

// LastKnownRunID 返回最近一次健康时观测到的run_id。
func (r *Redis) LastKnownRunID() string {
	return r.status.lastRunID()
}
