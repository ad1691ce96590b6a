package transport

import (
	"context"
	"errors"
	"time"

	"github.com/SlpAus/guild-activity-tracker/internal/activity"
	"github.com/SlpAus/guild-activity-tracker/internal/platform/logger"
)

// InboundEvent 是平台适配器投递给引擎的一次用户活动。
type InboundEvent struct {
	UserID        string
	Username      string
	Kind          activity.EventKind
	ChannelID     string
	Bot           bool
	HasAttachment bool
}

// Gateway 是事件摄入的任务传递边界：平台适配器以普通函数调用的方式
// 把离散事件交给它，任何错误都不会回传给事件来源。
type Gateway struct {
	act             *activity.Service
	roster          Roster
	inactiveRoleID  string
	ignoredChannels map[string]bool
}

// NewGateway 构造摄入网关。
func NewGateway(act *activity.Service, roster Roster, inactiveRoleID string, ignoredChannels []string) *Gateway {
	ignored := make(map[string]bool, len(ignoredChannels))
	for _, id := range ignoredChannels {
		ignored[id] = true
	}
	return &Gateway{
		act:             act,
		roster:          roster,
		inactiveRoleID:  inactiveRoleID,
		ignoredChannels: ignored,
	}
}

// HandleEvent 处理一次入站活动：
// 忽略非人类行为者；消息或反应会立即唤醒持有不活跃标记的成员；
// 被忽略频道中的事件不计数；携带附件的消息按文件事件计。
// 返回该事件是否被计入（含冷却拒绝），仅供观测。
func (g *Gateway) HandleEvent(ctx context.Context, ev InboundEvent) bool {
	if ev.Bot {
		return false
	}

	// 消息和反应是“醒来”的证明，先于频道过滤处理；
	// 直接投递的文件事件不触发唤醒
	if ev.Kind == activity.KindMessage || ev.Kind == activity.KindReaction {
		g.wakeUp(ctx, ev.UserID)
	}

	if g.ignoredChannels[ev.ChannelID] {
		return false
	}

	kind := ev.Kind
	if kind == activity.KindMessage && ev.HasAttachment {
		kind = activity.KindFile
	}

	return g.act.HandleActivity(ctx, ev.UserID, ev.Username, kind, time.Now())
}

// wakeUp 在成员持有不活跃标记时立即将其移除。
// 失败（成员已离开等）只记录日志，绝不影响事件处理。
func (g *Gateway) wakeUp(ctx context.Context, userID string) {
	if g.roster == nil || g.inactiveRoleID == "" {
		return
	}

	member, err := g.roster.Member(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.Log.Debugf("唤醒检查失败 (用户 %s): %v", userID, err)
		}
		return
	}
	if !member.HasRole(g.inactiveRoleID) {
		return
	}

	if err := g.roster.RemoveRole(ctx, userID, g.inactiveRoleID); err != nil {
		logger.Log.Warnf("无法移除 %s 的不活跃标记: %v", userID, err)
		return
	}
	logger.Log.Infof("[唤醒] 已移除 %s 的不活跃标记。", userID)
}

// HandleMemberRemove 处理成员离开：这是事件驱动的被遗忘权路径，
// 立即擦除该成员的全部数据。擦除失败属于合规问题，以高严重级记录。
func (g *Gateway) HandleMemberRemove(ctx context.Context, userID string, bot bool) {
	if bot {
		return
	}
	if err := g.act.EraseUser(ctx, userID); err != nil {
		logger.Log.Errorf("成员离开后的数据擦除失败 (用户 %s): %v", userID, err)
	}
}
