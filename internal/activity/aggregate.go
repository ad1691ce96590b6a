package activity

import (
	"context"
	"fmt"
	"time"
)

// 本文件是活动数据的读侧：排行榜、时间窗冠军、不活跃名单。
// 所有查询只读、无副作用；计数一律是事件的精确条数，不按类型加权。

// TopUsers 按事件总数降序返回前limit名用户，关闭追踪的用户永不出现。
// 并列名次按主键顺序稳定排列。
func (r *Repository) TopUsers(ctx context.Context, limit int) ([]RankedUser, error) {
	var rows []RankedUser
	err := r.db.Gorm.WithContext(ctx).Raw(`
		SELECT u.user_id, u.username, COUNT(e.id) AS score
		FROM users u JOIN activity_events e ON u.user_id = e.user_id
		WHERE u.tracking_enabled = 1
		GROUP BY u.user_id ORDER BY score DESC LIMIT ?`, limit).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("查询排行榜失败: %w", err)
	}
	return rows, nil
}

// TopUserInWindow 返回时间窗[start, end]（毫秒，双闭区间）内事件最多的用户。
// 没有任何符合条件的事件时返回nil。窗口边界由调用方计算。
func (r *Repository) TopUserInWindow(ctx context.Context, startMs, endMs int64) (*RankedUser, error) {
	var rows []RankedUser
	err := r.db.Gorm.WithContext(ctx).Raw(`
		SELECT u.user_id, u.username, COUNT(e.id) AS score
		FROM activity_events e JOIN users u ON e.user_id = u.user_id
		WHERE e.timestamp >= ? AND e.timestamp <= ? AND u.tracking_enabled = 1
		GROUP BY u.user_id ORDER BY score DESC LIMIT 1`, startMs, endMs).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("查询时间窗冠军失败: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// UsersInactiveSince 返回最近活动早于now-days的全部用户，
// 按最近活动时间升序排列，最久未活跃的用户排在最前。
// 不活跃扫描是针对全体名册的管理职责，这里不排除已退出追踪的用户。
func (r *Repository) UsersInactiveSince(ctx context.Context, days int, now time.Time) ([]User, error) {
	cutoff := now.AddDate(0, 0, -days).UnixMilli()
	var users []User
	err := r.db.Gorm.WithContext(ctx).
		Where("last_active_timestamp < ?", cutoff).
		Order("last_active_timestamp ASC").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("查询不活跃用户失败: %w", err)
	}
	return users, nil
}

// AllUserIDs 返回库中全部用户ID，供与外部名册交叉比对清理幽灵记录。
func (r *Repository) AllUserIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.Gorm.WithContext(ctx).Model(&User{}).Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("读取全部用户ID失败: %w", err)
	}
	return ids, nil
}

// rankedForWarmup 返回全部开启追踪用户的事件计数，用于缓存重建。
func (r *Repository) rankedForWarmup(ctx context.Context) ([]RankedUser, error) {
	var rows []RankedUser
	err := r.db.Gorm.WithContext(ctx).Raw(`
		SELECT u.user_id, u.username, COUNT(e.id) AS score
		FROM users u JOIN activity_events e ON u.user_id = e.user_id
		WHERE u.tracking_enabled = 1
		GROUP BY u.user_id`).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("读取缓存重建数据失败: %w", err)
	}
	return rows, nil
}

// usernamesByID 按ID批量读取显示名，缓存命中路径用它补全排行榜行。
func (r *Repository) usernamesByID(ctx context.Context, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return map[string]string{}, nil
	}
	var users []User
	err := r.db.Gorm.WithContext(ctx).Select("user_id", "username").Where("user_id IN ?", ids).Find(&users).Error
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.UserID] = u.Username
	}
	return names, nil
}
