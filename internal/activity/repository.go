package activity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/SlpAus/guild-activity-tracker/internal/platform/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErasureHook 在用户擦除事务中被调用，供其他模块级联删除自己的数据。
type ErasureHook func(tx *gorm.DB, userID string) error

// Repository 封装了活动数据的全部持久化操作。
// 所有多语句写入都在单个SQLite事务中执行，并发读者看不到半应用状态。
type Repository struct {
	db *database.DB

	hookMu       sync.RWMutex
	erasureHooks []ErasureHook
}

// NewRepository 创建一个活动数据仓库。
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// RegisterErasureHook 注册一个在EraseUser事务中执行的级联删除。
// 生日模块在初始化时用它挂接自己的数据表。
func (r *Repository) RegisterErasureHook(hook ErasureHook) {
	r.hookMu.Lock()
	defer r.hookMu.Unlock()
	r.erasureHooks = append(r.erasureHooks, hook)
}

// Migrate 负责自动迁移数据库表结构。
func (r *Repository) Migrate() error {
	if err := r.db.Gorm.AutoMigrate(&User{}, &ActivityEvent{}); err != nil {
		return fmt.Errorf("无法迁移活动数据表: %w", err)
	}
	return nil
}

const (
	maxCommitRetry   = 3
	commitRetryDelay = 50 * time.Millisecond
)

// withRetry 在锁竞争类错误上做短间隔重试后再放弃。
func (r *Repository) withRetry(fn func(tx *gorm.DB) error) error {
	var err error
	for i := 0; i < maxCommitRetry; i++ {
		err = r.db.Gorm.Transaction(fn)
		if err == nil || !database.IsRetryableError(err) {
			return err
		}
		time.Sleep(commitRetryDelay)
	}
	return err
}

// RecordEvent 原子地完成一次有效事件的落盘：
// upsert用户行（显示名、最近活动时间）并追加一条事件。
// 用户已关闭追踪时整体跳过，返回recorded=false。
func (r *Repository) RecordEvent(ctx context.Context, userID, username string, kind EventKind, timestamp int64) (recorded bool, err error) {
	err = r.withRetry(func(tx *gorm.DB) error {
		tx = tx.WithContext(ctx)

		// 1. 隐私检查：关闭追踪的用户完全不记录
		var u User
		findErr := tx.Select("tracking_enabled").Where("user_id = ?", userID).Take(&u).Error
		if findErr == nil && !u.TrackingEnabled {
			return nil
		}
		if findErr != nil && !errors.Is(findErr, gorm.ErrRecordNotFound) {
			return fmt.Errorf("读取用户追踪状态失败: %w", findErr)
		}

		// 2. upsert用户行：实时事件单调到达，直接覆盖
		newUser := User{UserID: userID, Username: username, LastActiveTimestamp: timestamp, TrackingEnabled: true}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"username", "last_active_timestamp"}),
		}).Create(&newUser).Error; err != nil {
			return fmt.Errorf("upsert用户行失败: %w", err)
		}

		// 3. 追加事件
		event := ActivityEvent{UserID: userID, Kind: kind, Timestamp: timestamp}
		if err := tx.Create(&event).Error; err != nil {
			return fmt.Errorf("追加活动事件失败: %w", err)
		}

		recorded = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return recorded, nil
}

// RecordBatch 批量回填历史活动。
// 最近活动时间使用max-merge：历史数据乱序重放时绝不把用户的活跃时间往回拉。
// 回填只修正用户行的新近度，不追加事件，整体幂等、可安全重跑。
func (r *Repository) RecordBatch(ctx context.Context, entries []BatchEntry) error {
	if len(entries) == 0 {
		return nil
	}

	return r.withRetry(func(tx *gorm.DB) error {
		tx = tx.WithContext(ctx)
		for _, e := range entries {
			newUser := User{UserID: e.UserID, Username: e.Username, LastActiveTimestamp: e.Timestamp, TrackingEnabled: true}
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "user_id"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"last_active_timestamp": gorm.Expr("MAX(last_active_timestamp, excluded.last_active_timestamp)"),
					"username":              gorm.Expr("excluded.username"),
				}),
			}).Create(&newUser).Error; err != nil {
				return fmt.Errorf("批量upsert用户 %s 失败: %w", e.UserID, err)
			}
		}
		return nil
	})
}

// SetTrackingStatus 更新用户的追踪开关。
// 行不存在时用占位显示名和当前时间创建，对未知用户永不报错。
func (r *Repository) SetTrackingStatus(ctx context.Context, userID string, enabled bool) error {
	newUser := User{
		UserID:              userID,
		Username:            SentinelUsername,
		LastActiveTimestamp: time.Now().UnixMilli(),
		TrackingEnabled:     enabled,
	}
	return r.withRetry(func(tx *gorm.DB) error {
		return tx.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"tracking_enabled": enabled}),
		}).Create(&newUser).Error
	})
}

// EraseUser 是隐私擦除路径：原子地删除用户行、其全部事件，
// 以及所有已注册模块的级联数据（生日等）。
// 对没有任何数据的用户调用同样安全。错误必须向调用方传播。
func (r *Repository) EraseUser(ctx context.Context, userID string) error {
	r.hookMu.RLock()
	hooks := make([]ErasureHook, len(r.erasureHooks))
	copy(hooks, r.erasureHooks)
	r.hookMu.RUnlock()

	return r.withRetry(func(tx *gorm.DB) error {
		tx = tx.WithContext(ctx)
		if err := tx.Where("user_id = ?", userID).Delete(&ActivityEvent{}).Error; err != nil {
			return fmt.Errorf("删除用户事件失败: %w", err)
		}
		for _, hook := range hooks {
			if err := hook(tx, userID); err != nil {
				return fmt.Errorf("级联擦除失败: %w", err)
			}
		}
		if err := tx.Where("user_id = ?", userID).Delete(&User{}).Error; err != nil {
			return fmt.Errorf("删除用户行失败: %w", err)
		}
		return nil
	})
}

// PruneEvents 删除早于保留期的事件，返回删除条数。不触碰用户行与生日数据。
func (r *Repository) PruneEvents(ctx context.Context, retentionDays int, now time.Time) (int64, error) {
	cutoff := now.AddDate(0, 0, -retentionDays).UnixMilli()
	result := r.db.Gorm.WithContext(ctx).Where("timestamp < ?", cutoff).Delete(&ActivityEvent{})
	if result.Error != nil {
		return 0, fmt.Errorf("清理过期事件失败: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// GetUserStats 返回单用户的事件总数、最近活动时间与追踪状态。
// 未知用户返回零值统计，追踪状态按默认开启处理。
func (r *Repository) GetUserStats(ctx context.Context, userID string) (*UserStats, error) {
	stats := &UserStats{TrackingEnabled: true}

	var count int64
	if err := r.db.Gorm.WithContext(ctx).Model(&ActivityEvent{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("统计用户事件数失败: %w", err)
	}
	stats.Count = count

	var u User
	err := r.db.Gorm.WithContext(ctx).Where("user_id = ?", userID).Take(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return stats, nil
		}
		return nil, fmt.Errorf("读取用户行失败: %w", err)
	}

	stats.Username = u.Username
	stats.LastActive = u.LastActiveTimestamp
	stats.TrackingEnabled = u.TrackingEnabled
	return stats, nil
}

// EventCount 返回单个用户的事件总数，供缓存回填使用。
func (r *Repository) EventCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.Gorm.WithContext(ctx).Model(&ActivityEvent{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
