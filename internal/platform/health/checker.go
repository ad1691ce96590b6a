package health

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/SlpAus/guild-activity-tracker/internal/platform/database"
	"github.com/SlpAus/guild-activity-tracker/internal/platform/logger"
	"github.com/SlpAus/guild-activity-tracker/pkg/lifecycle"
)

const (
	checkInterval = 5 * time.Second
	pingTimeout   = 2 * time.Second
)

var runIDPattern = regexp.MustCompile(`run_id:([a-f0-9]+)`)

// Checker 定期探测Redis，并在检测到Redis重启后触发缓存热重建。
type Checker struct {
	db *database.DB
	// rebuild 在Redis重启（run_id变化）或从不可用状态恢复后被调用，
	// 用于从SQLite重建全部缓存。
	rebuild func() error
}

// NewChecker 创建一个健康检查器。rebuild不可为nil。
func NewChecker(db *database.DB, rebuild func() error) *Checker {
	return &Checker{db: db, rebuild: rebuild}
}

// getRedisRunID 从Redis服务器信息中提取run_id
func (c *Checker) getRedisRunID(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	info, err := c.db.Redis.Client.Info(ctx, "server").Result()
	if err != nil {
		return "", err
	}
	matches := runIDPattern.FindStringSubmatch(info)
	if len(matches) < 2 {
		return "", fmt.Errorf("无法在Redis INFO中找到run_id")
	}
	return matches[1], nil
}

// InitializeRunID 在应用启动时执行一次，获取并设置初始的run_id。
func (c *Checker) InitializeRunID(ctx context.Context) error {
	runID, err := c.getRedisRunID(ctx)
	if err != nil {
		return fmt.Errorf("无法在启动时获取Redis Run ID: %w", err)
	}
	c.db.Redis.SetInitialRunID(runID)
	logger.Log.Infof("获取初始Redis Run ID成功: %s", runID)
	return nil
}

// triggerAtomicRebuild 执行一次原子的、自校验的缓存重建。
// 只有在重建期间Redis没有再次重启的情况下，才认为重建成功。
func (c *Checker) triggerAtomicRebuild(ctx context.Context, idBeforeRebuild string) bool {
	logger.Log.Info("健康检查: 正在触发缓存热重建...")
	if err := c.rebuild(); err != nil {
		logger.Log.Errorf("健康检查错误: 缓存热重建失败: %v", err)
		return false
	}

	idAfterRebuild, err := c.getRedisRunID(ctx)
	if err != nil {
		logger.Log.Error("健康检查错误: 缓存重建后无法连接到Redis，重建无效。")
		return false
	}

	if idBeforeRebuild != idAfterRebuild {
		logger.Log.Errorf("健康检查错误: 缓存重建期间检测到Redis再次重启 (run_id: %s -> %s)。重建无效。", idBeforeRebuild, idAfterRebuild)
		return false
	}

	logger.Log.Info("健康检查: 缓存热重建成功并通过原子性校验。")
	return true
}

// needsRebuild 判断本次检查是否必须重建缓存。
// run_id变化意味着Redis重启、数据清空；而不可用期间引擎会跳过所有缓存写入
// （如关闭追踪时的ZRem），即使run_id未变，恢复可用时缓存也已经落后于SQLite。
func needsRebuild(wasHealthy bool, lastKnownRunID, currentRunID string) bool {
	return currentRunID != lastKnownRunID || !wasHealthy
}

// PerformCheck 执行一次完整的健康检查和可能的修复操作。
func (c *Checker) PerformCheck(ctx context.Context) {
	currentRunID, err := c.getRedisRunID(ctx)
	if err != nil {
		// 无法连接到Redis，直接标记为不可用
		c.db.Redis.UpdateStatus(false, "")
		return
	}

	if needsRebuild(c.db.Redis.IsHealthy(), c.db.Redis.LastKnownRunID(), currentRunID) {
		if c.triggerAtomicRebuild(ctx, currentRunID) {
			c.db.Redis.UpdateStatus(true, currentRunID)
		} else {
			c.db.Redis.UpdateStatus(false, "")
		}
	} else {
		// 状态和run_id均未变，缓存可信
		c.db.Redis.UpdateStatus(true, currentRunID)
	}
}

// Start 启动一个后台Goroutine来定期、阻塞式地执行健康检查。
func (c *Checker) Start(handle *lifecycle.Handle) {
	defer handle.Close()
	logger.Log.Info("Redis健康检查器已启动。")

	for {
		if err := handle.Sleep(checkInterval); err != nil {
			return
		}
		c.PerformCheck(handle.Ctx())
	}
}
