package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/SlpAus/guild-activity-tracker/internal/platform/database"
	"github.com/SlpAus/guild-activity-tracker/internal/platform/logger"
)

// Service 组合冷却闸门、持久仓库与排行榜镜像，
// 并落实错误传播策略：摄入路径的存储错误只记录日志，
// 擦除路径的错误必须上抛。
type Service struct {
	repo     *Repository
	cache    *Cache
	gate     *Gate
	cooldown time.Duration
}

// NewService 构造活动服务。cooldown为同一用户两次有效事件的最小间隔。
func NewService(db *database.DB, cooldown time.Duration) *Service {
	return &Service{
		repo:     NewRepository(db),
		cache:    NewCache(db),
		gate:     NewGate(),
		cooldown: cooldown,
	}
}

// Repository 暴露底层仓库，供其他模块注册级联擦除等。
func (s *Service) Repository() *Repository {
	return s.repo
}

// HandleActivity 是摄入路径的入口：先过冷却闸门，再原子落盘，最后更新镜像。
// 返回该事件是否被计入。任何存储错误都不会传播给事件来源。
func (s *Service) HandleActivity(ctx context.Context, userID, username string, kind EventKind, now time.Time) bool {
	if !s.gate.Admit(userID, now, s.cooldown) {
		return false
	}

	recorded, err := s.repo.RecordEvent(ctx, userID, username, kind, now.UnixMilli())
	if err != nil {
		// 活动日志丢一条不致命，但存储层错误要大声记下来
		logger.Log.Errorf("记录活动事件失败 (用户 %s): %v", userID, err)
		return false
	}
	if !recorded {
		// 用户已退出追踪
		return false
	}

	if s.cache.Available() {
		if err := s.cache.IncrementScore(ctx, userID); err != nil {
			logger.Log.Warnf("更新排行榜镜像失败 (用户 %s): %v", userID, err)
		}
	}
	return true
}

// RecordBatch 批量回填历史数据，deep scan使用。
func (s *Service) RecordBatch(ctx context.Context, entries []BatchEntry) error {
	return s.repo.RecordBatch(ctx, entries)
}

// SetTrackingStatus 变更用户的追踪开关并同步镜像：
// 退出时从镜像移除，重新加入时用SQLite的精确计数恢复分数。
func (s *Service) SetTrackingStatus(ctx context.Context, userID string, enabled bool) error {
	if err := s.repo.SetTrackingStatus(ctx, userID, enabled); err != nil {
		return err
	}

	if !s.cache.Available() {
		return nil
	}
	if enabled {
		count, err := s.repo.EventCount(ctx, userID)
		if err != nil {
			logger.Log.Warnf("恢复镜像分数时读取计数失败 (用户 %s): %v", userID, err)
			return nil
		}
		if count > 0 {
			if err := s.cache.SetScore(ctx, userID, count); err != nil {
				logger.Log.Warnf("恢复镜像分数失败 (用户 %s): %v", userID, err)
			}
		}
	} else {
		if err := s.cache.RemoveUser(ctx, userID); err != nil {
			logger.Log.Warnf("从镜像移除用户失败 (用户 %s): %v", userID, err)
		}
	}
	return nil
}

// EraseUser 是隐私擦除路径：删除持久数据、清除冷却条目与镜像分数。
// 这是合规义务，错误必须上抛由调用方重试或核查。
func (s *Service) EraseUser(ctx context.Context, userID string) error {
	if err := s.repo.EraseUser(ctx, userID); err != nil {
		return fmt.Errorf("擦除用户 %s 失败: %w", userID, err)
	}

	s.gate.Forget(userID)

	if s.cache.Available() {
		if err := s.cache.RemoveUser(ctx, userID); err != nil {
			// 持久数据已删除；镜像会在下次重建时收敛
			logger.Log.Warnf("从镜像移除已擦除用户失败 (用户 %s): %v", userID, err)
		}
	}
	return nil
}

// GetUserStats 透传单用户统计。
func (s *Service) GetUserStats(ctx context.Context, userID string) (*UserStats, error) {
	return s.repo.GetUserStats(ctx, userID)
}

// TopUsers 返回排行榜：镜像健康时走Redis快路径（显示名从SQLite补全），
// 否则退化为SQLite聚合。
func (s *Service) TopUsers(ctx context.Context, limit int) ([]RankedUser, error) {
	if s.cache.Available() {
		rows, err := s.cache.TopUsers(ctx, limit)
		if err == nil {
			ids := make([]string, len(rows))
			for i, row := range rows {
				ids[i] = row.UserID
			}
			names, nameErr := s.repo.usernamesByID(ctx, ids)
			if nameErr == nil {
				for i := range rows {
					rows[i].Username = names[rows[i].UserID]
				}
				return rows, nil
			}
			logger.Log.Warnf("补全排行榜显示名失败: %v", nameErr)
		} else {
			logger.Log.Warnf("排行榜镜像读取失败，退化为SQLite: %v", err)
		}
	}
	return s.repo.TopUsers(ctx, limit)
}

// TopUserInWindow 返回时间窗冠军。窗口查询始终读SQLite：
// 镜像只保存终身计数，按月的分数集会重新引入谱系游标式的设计。
func (s *Service) TopUserInWindow(ctx context.Context, startMs, endMs int64) (*RankedUser, error) {
	return s.repo.TopUserInWindow(ctx, startMs, endMs)
}

// UsersInactiveSince 透传不活跃名单查询。
func (s *Service) UsersInactiveSince(ctx context.Context, days int, now time.Time) ([]User, error) {
	return s.repo.UsersInactiveSince(ctx, days, now)
}

// AllUserIDs 透传全量ID查询。
func (s *Service) AllUserIDs(ctx context.Context) ([]string, error) {
	return s.repo.AllUserIDs(ctx)
}

// PruneEvents 透传保留期清理。
func (s *Service) PruneEvents(ctx context.Context, retentionDays int, now time.Time) (int64, error) {
	return s.repo.PruneEvents(ctx, retentionDays, now)
}

// WarmupCache 用SQLite重建排行榜镜像，启动与Redis恢复时调用。
func (s *Service) WarmupCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	rows, err := s.repo.rankedForWarmup(ctx)
	if err != nil {
		return err
	}
	if err := s.cache.Warmup(ctx, rows); err != nil {
		return err
	}
	logger.Log.Infof("成功重建排行榜镜像，共 %d 个用户。", len(rows))
	return nil
}
