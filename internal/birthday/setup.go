package birthday

import (
	"github.com/SlpAus/guild-activity-tracker/internal/activity"
	"github.com/SlpAus/guild-activity-tracker/internal/platform/logger"
)

// PrimeModule 是birthday模块的初始化总入口：
// 迁移表结构并把级联擦除挂接到用户擦除事务中。
func (s *Service) PrimeModule(actRepo *activity.Repository) error {
	if err := s.repo.Migrate(); err != nil {
		return err
	}
	actRepo.RegisterErasureHook(s.repo.ErasureHook())
	logger.Log.Info("生日数据表迁移成功。")
	return nil
}
