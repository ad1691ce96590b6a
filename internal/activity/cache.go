package activity

import (
	"context"
	"fmt"

	"github.com/SlpAus/guild-activity-tracker/internal/platform/database"
	"github.com/redis/go-redis/v9"
)

// RankingKey 是一个 Redis Sorted Set 的键，作为排行榜的热镜像。
// Score: 用户的终身有效事件数
// Member: 用户ID
// 只包含开启追踪的用户；SQLite始终是事实来源，镜像可随时整体重建。
const RankingKey = "activity:ranking"

// Cache 封装了对排行榜镜像的全部Redis操作。
// 所有写入都是尽力而为：失败由调用方记录日志并继续，读路径退化为SQLite。
type Cache struct {
	db *database.DB
}

// NewCache 创建排行榜缓存。未配置Redis时返回nil，调用方通过Available判断。
func NewCache(db *database.DB) *Cache {
	if db.Redis == nil {
		return nil
	}
	return &Cache{db: db}
}

// Available 返回缓存当前是否可用（已配置且健康）。对nil接收者安全。
func (c *Cache) Available() bool {
	return c != nil && c.db.IsRedisHealthy()
}

// IncrementScore 在一次有效事件落盘后把该用户的镜像分数加一。
func (c *Cache) IncrementScore(ctx context.Context, userID string) error {
	return c.db.Redis.Client.ZIncrBy(ctx, RankingKey, 1, userID).Err()
}

// SetScore 用SQLite中的精确计数覆盖镜像分数，用户重新加入追踪时调用。
func (c *Cache) SetScore(ctx context.Context, userID string, score int64) error {
	return c.db.Redis.Client.ZAdd(ctx, RankingKey, redis.Z{Score: float64(score), Member: userID}).Err()
}

// RemoveUser 把用户从镜像中移除，退出追踪和隐私擦除时调用。
func (c *Cache) RemoveUser(ctx context.Context, userID string) error {
	return c.db.Redis.Client.ZRem(ctx, RankingKey, userID).Err()
}

// TopUsers 从镜像读取前limit名的ID与分数，按分数降序。
func (c *Cache) TopUsers(ctx context.Context, limit int) ([]RankedUser, error) {
	zs, err := c.db.Redis.Client.ZRevRangeWithScores(ctx, RankingKey, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("读取排行榜镜像失败: %w", err)
	}
	rows := make([]RankedUser, 0, len(zs))
	for _, z := range zs {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		rows = append(rows, RankedUser{UserID: member, Score: int64(z.Score)})
	}
	return rows, nil
}

// Warmup 用SQLite中的精确计数整体重建镜像。
// 先清空旧键再批量写入，保证与事实来源一致。
func (c *Cache) Warmup(ctx context.Context, rows []RankedUser) error {
	pipe := c.db.Redis.Client.TxPipeline()
	pipe.Del(ctx, RankingKey)
	if len(rows) > 0 {
		members := make([]redis.Z, len(rows))
		for i, row := range rows {
			members[i] = redis.Z{Score: float64(row.Score), Member: row.UserID}
		}
		pipe.ZAdd(ctx, RankingKey, members...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("重建排行榜镜像失败: %w", err)
	}
	return nil
}
