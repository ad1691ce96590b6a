package birthday

import (
	"context"
	"errors"
	"fmt"

	"github.com/SlpAus/guild-activity-tracker/internal/platform/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository 封装了生日数据的持久化操作。
type Repository struct {
	db *database.DB
}

// NewRepository 创建生日数据仓库。
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// Migrate 负责自动迁移生日表结构。
func (r *Repository) Migrate() error {
	if err := r.db.Gorm.AutoMigrate(&Birthday{}); err != nil {
		return fmt.Errorf("无法迁移生日表: %w", err)
	}
	return nil
}

// Set 写入或覆盖一个用户的生日，后写覆盖先写。
func (r *Repository) Set(ctx context.Context, b Birthday) error {
	return r.db.Gorm.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "day", "month"}),
	}).Create(&b).Error
}

// Delete 删除一个用户的生日，返回是否确有记录被删除。
func (r *Repository) Delete(ctx context.Context, userID string) (bool, error) {
	result := r.db.Gorm.WithContext(ctx).Where("user_id = ?", userID).Delete(&Birthday{})
	if result.Error != nil {
		return false, fmt.Errorf("删除生日失败: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Get 返回一个用户的生日，不存在时返回nil。
func (r *Repository) Get(ctx context.Context, userID string) (*Birthday, error) {
	var b Birthday
	err := r.db.Gorm.WithContext(ctx).Where("user_id = ?", userID).Take(&b).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("读取生日失败: %w", err)
	}
	return &b, nil
}

// All 返回全部生日，按月、日、主键排序，供看板渲染使用。
func (r *Repository) All(ctx context.Context) ([]Birthday, error) {
	var all []Birthday
	err := r.db.Gorm.WithContext(ctx).Order("month ASC, day ASC, user_id ASC").Find(&all).Error
	if err != nil {
		return nil, fmt.Errorf("读取生日列表失败: %w", err)
	}
	return all, nil
}

// On 返回指定日/月的全部生日。
func (r *Repository) On(ctx context.Context, day, month int) ([]Birthday, error) {
	var matches []Birthday
	err := r.db.Gorm.WithContext(ctx).Where("day = ? AND month = ?", day, month).Order("user_id ASC").Find(&matches).Error
	if err != nil {
		return nil, fmt.Errorf("按日期查询生日失败: %w", err)
	}
	return matches, nil
}

// ErasureHook 返回挂接到用户擦除事务中的级联删除。
func (r *Repository) ErasureHook() func(tx *gorm.DB, userID string) error {
	return func(tx *gorm.DB, userID string) error {
		return tx.Where("user_id = ?", userID).Delete(&Birthday{}).Error
	}
}
