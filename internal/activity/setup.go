package activity

import (
	"context"
	"fmt"

	"github.com/SlpAus/guild-activity-tracker/internal/platform/logger"
)

// PrimeModule 是activity模块的初始化总入口：迁移表结构并预热排行榜镜像。
func (s *Service) PrimeModule(ctx context.Context) error {
	if err := s.repo.Migrate(); err != nil {
		return err
	}
	logger.Log.Info("活动数据表迁移成功。")

	if s.cache != nil {
		if err := s.WarmupCache(ctx); err != nil {
			return fmt.Errorf("预热排行榜镜像失败: %w", err)
		}
	}
	return nil
}
