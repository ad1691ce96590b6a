package transport

import "context"

// Noop 是平台适配器缺席时的空实现：名册不可用、频道不存在。
// 引擎在它之上仍可完整提供HTTP接口与存储语义，
// 依赖外部副作用的定时任务会按预期条件跳过。
type Noop struct{}

var _ Roster = Noop{}
var _ Messenger = Noop{}
var _ History = Noop{}
var _ Identity = Noop{}

func (Noop) Member(ctx context.Context, memberID string) (*Member, error) {
	return nil, ErrNotFound
}

func (Noop) Members(ctx context.Context) ([]Member, error) {
	// 名册缺席必须以错误暴露：空名册会让清理任务把所有用户当作幽灵
	return nil, ErrNotFound
}

func (Noop) AddRole(ctx context.Context, memberID, roleID string) error {
	return ErrNotFound
}

func (Noop) RemoveRole(ctx context.Context, memberID, roleID string) error {
	return ErrNotFound
}

func (Noop) RoleHolders(ctx context.Context, roleID string) ([]string, error) {
	return nil, nil
}

func (Noop) Send(ctx context.Context, channelID, content string) (string, error) {
	return "", ErrNotFound
}

func (Noop) Recent(ctx context.Context, channelID string, limit int) ([]Message, error) {
	return nil, nil
}

func (Noop) Edit(ctx context.Context, channelID, messageID, content string) error {
	return ErrNotFound
}

func (Noop) Delete(ctx context.Context, channelID, messageID string) error {
	return ErrNotFound
}

func (Noop) SendFile(ctx context.Context, channelID, content, filePath string) error {
	return ErrNotFound
}

func (Noop) Channels(ctx context.Context) ([]Channel, error) {
	return nil, nil
}

func (Noop) MessagesBefore(ctx context.Context, channelID, beforeID string, limit int) ([]Message, error) {
	return nil, nil
}

func (Noop) SelfID() string {
	return ""
}
