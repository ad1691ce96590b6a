package transport

import (
	"context"
	"errors"
	"time"
)

// 本包定义引擎与聊天平台之间的窄接口。
// 平台客户端（事件投递、限速、附件上传）不属于本仓库，
// 引擎只通过这些接口消费外部能力。

// ErrNotFound 表示目标（成员、频道、消息）在外部平台上已不存在。
// 按照错误分级约定，它是一种预期情况，调用方应跳过而不是中止。
var ErrNotFound = errors.New("transport: 目标不存在")

// Member 是外部名册中的一个成员。
type Member struct {
	ID          string
	DisplayName string
	Bot         bool
	Roles       []string
}

// HasRole 判断成员是否持有指定标记角色。
func (m *Member) HasRole(roleID string) bool {
	for _, r := range m.Roles {
		if r == roleID {
			return true
		}
	}
	return false
}

// Message 是频道中的一条消息。
type Message struct {
	ID         string
	ChannelID  string
	AuthorID   string
	AuthorName string
	AuthorBot  bool
	Content    string
	// HasAttachment 表示消息是否携带文件附件
	HasAttachment bool
	Timestamp     time.Time
}

// Channel 是名册服务器上的一个可扫描频道。
type Channel struct {
	ID       string
	Name     string
	Viewable bool
}

// Roster 提供成员名册的查询与标记角色的变更。
type Roster interface {
	// Member 获取单个成员；成员已离开时返回ErrNotFound。
	Member(ctx context.Context, memberID string) (*Member, error)
	// Members 枚举全部成员。
	Members(ctx context.Context) ([]Member, error)
	// AddRole / RemoveRole 变更成员的标记角色。
	AddRole(ctx context.Context, memberID, roleID string) error
	RemoveRole(ctx context.Context, memberID, roleID string) error
	// RoleHolders 返回当前持有指定角色的成员ID。
	RoleHolders(ctx context.Context, roleID string) ([]string, error)
}

// Messenger 提供对命名频道的消息操作。
type Messenger interface {
	// Send 发送一条消息并返回其ID。
	Send(ctx context.Context, channelID, content string) (string, error)
	// Recent 返回频道最近的消息，按从新到旧排列。
	Recent(ctx context.Context, channelID string, limit int) ([]Message, error)
	Edit(ctx context.Context, channelID, messageID, content string) error
	Delete(ctx context.Context, channelID, messageID string) error
	// SendFile 发送一条携带本地文件附件的消息。
	SendFile(ctx context.Context, channelID, content, filePath string) error
}

// History 提供对频道历史消息的分页读取，供深度扫描回填使用。
type History interface {
	Channels(ctx context.Context) ([]Channel, error)
	// MessagesBefore 返回指定消息之前的一页历史，beforeID为空表示从最新开始。
	MessagesBefore(ctx context.Context, channelID, beforeID string, limit int) ([]Message, error)
}

// SelfID 由平台适配器提供，是引擎自身在平台上的身份，
// 看板协调器用它来识别属于自己的历史消息。
type Identity interface {
	SelfID() string
}
