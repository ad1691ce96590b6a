package startup

import (
	"context"

	"github.com/SlpAus/guild-activity-tracker/internal/activity"
	"github.com/SlpAus/guild-activity-tracker/internal/birthday"
	"github.com/SlpAus/guild-activity-tracker/internal/platform/logger"
)

// InitializeApplication 是应用首次启动时执行的总入口：
// 迁移各模块的表结构、注册级联擦除、预热排行榜镜像。
func InitializeApplication(ctx context.Context, act *activity.Service, bd *birthday.Service) error {
	logger.Log.Info("开始应用初始化...")

	if err := act.PrimeModule(ctx); err != nil {
		return err
	}
	if err := bd.PrimeModule(act.Repository()); err != nil {
		return err
	}

	logger.Log.Info("应用初始化完成！")
	return nil
}

// RebuildCache 在运行时热重建Redis排行榜镜像，
// 由健康检查器在Redis重启恢复后调用。
func RebuildCache(act *activity.Service) func() error {
	return func() error {
		logger.Log.Info("开始排行榜镜像热重建...")
		if err := act.WarmupCache(context.Background()); err != nil {
			return err
		}
		logger.Log.Info("排行榜镜像热重建完成。")
		return nil
	}
}
