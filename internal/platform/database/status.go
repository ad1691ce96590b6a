package database

import (
	"sync"

	"github.com/SlpAus/guild-activity-tracker/internal/platform/logger"
)

// statusManager 负责线程安全地管理和提供缓存层的健康状态。
type statusManager struct {
	mu             sync.RWMutex
	isRedisHealthy bool
	lastKnownRunID string
}

func newStatusManager() *statusManager {
	// 连接在NewRedis中已验证过，默认启动时是健康的
	return &statusManager{isRedisHealthy: true}
}

func (s *statusManager) isHealthy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRedisHealthy
}

func (s *statusManager) setInitialRunID(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastKnownRunID = runID
}

func (s *statusManager) update(isHealthy bool, newRunID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// 只有当状态发生变化时才打印日志
	if s.isRedisHealthy != isHealthy {
		s.isRedisHealthy = isHealthy
		if isHealthy {
			logger.Log.Info("健康检查: Redis服务状态已更新为 [可用]")
		} else {
			logger.Log.Warn("健康检查警告: Redis服务状态已更新为 [不可用]")
		}
	}

	// 只有在健康状态下，才更新已知的run_id
	if isHealthy {
		s.lastKnownRunID = newRunID
	}
}

func (s *statusManager) lastRunID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastKnownRunID
}
