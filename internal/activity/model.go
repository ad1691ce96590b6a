package activity

// EventKind 是活动事件的类型。
type EventKind string

const (
	KindMessage  EventKind = "message"
	KindReaction EventKind = "reaction"
	KindFile     EventKind = "file"
)

// SentinelUsername 是在用户从未产生事件、仅做过隐私设置时占位用的显示名。
const SentinelUsername = "未知用户"

// User 定义了用户在SQLite数据库中的持久化模型。
// 每个用户恰好一行，显示名保留最近一次看到的值。
type User struct {
	// UserID 是平台分发的不透明ID，作为主键。
	UserID string `gorm:"primaryKey;type:varchar(32)"`

	// Username 是最近一次事件携带的显示名。
	Username string

	// LastActiveTimestamp 是最近一次有效活动的毫秒时间戳。
	// 实时事件单调推进；批量回填使用max-merge，绝不回退。
	LastActiveTimestamp int64 `gorm:"index"`

	// TrackingEnabled 为false的用户不参与任何排行与统计，
	// 但行本身保留，以便用户重新选择加入。
	TrackingEnabled bool
}

// ActivityEvent 是一条只追加的活动事实，除保留期清理和整体擦除外从不删除。
type ActivityEvent struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    string    `gorm:"index;type:varchar(32)"`
	Kind      EventKind `gorm:"type:varchar(16)"`
	Timestamp int64     `gorm:"index"`
}

// UserStats 是getUserStats聚合出的单用户视图。
type UserStats struct {
	Username        string
	Count           int64
	LastActive      int64
	TrackingEnabled bool
}

// RankedUser 是排行榜中的一行。
type RankedUser struct {
	UserID   string
	Username string
	Score    int64
}

// BatchEntry 是批量回填的一条输入。
type BatchEntry struct {
	UserID    string
	Username  string
	Timestamp int64
}
