package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SlpAus/guild-activity-tracker/internal/activity"
	"github.com/SlpAus/guild-activity-tracker/internal/birthday"
	"github.com/SlpAus/guild-activity-tracker/internal/platform/backup"
	"github.com/SlpAus/guild-activity-tracker/internal/platform/config"
	"github.com/SlpAus/guild-activity-tracker/internal/platform/database"
	"github.com/SlpAus/guild-activity-tracker/internal/platform/logger"
	"github.com/SlpAus/guild-activity-tracker/internal/transport"
	"github.com/SlpAus/guild-activity-tracker/pkg/lifecycle"
)

// rolePace 是逐个变更成员角色时的间隔，避免触发名册侧限速。
const rolePace = time.Second

// Jobs 承载四个墙钟定时任务的依赖。
// 每个任务都是无状态的：错过的触发不补跑，重复执行收敛到同一结果。
type Jobs struct {
	db        *database.DB
	act       *activity.Service
	bd        *birthday.Service
	roster    transport.Roster
	messenger transport.Messenger
	cfg       *config.Config
	loc       *time.Location
	// pace 可在测试中置零
	pace time.Duration
}

// NewJobs 构造定时任务集合。
func NewJobs(db *database.DB, act *activity.Service, bd *birthday.Service, roster transport.Roster, messenger transport.Messenger, cfg *config.Config) *Jobs {
	return &Jobs{
		db:        db,
		act:       act,
		bd:        bd,
		roster:    roster,
		messenger: messenger,
		cfg:       cfg,
		loc:       cfg.Jobs.Location(),
		pace:      rolePace,
	}
}

// StartInactivitySweep 启动每日00:00的不活跃扫描任务。
func (j *Jobs) StartInactivitySweep(handle *lifecycle.Handle) {
	defer handle.Close()
	logger.Log.Info("不活跃扫描任务已启动。")
	for {
		next := nextDaily(time.Now(), 0, 0, j.loc)
		if err := handle.SleepUntil(next); err != nil {
			logger.Log.Info("不活跃扫描任务已停止。")
			return
		}
		j.runInactivitySweep(handle.Ctx())
	}
}

// StartMonthlyRollover 启动每月1日00:00的月度之星换届任务。
func (j *Jobs) StartMonthlyRollover(handle *lifecycle.Handle) {
	defer handle.Close()
	logger.Log.Info("月度换届任务已启动。")
	for {
		next := nextMonthly(time.Now(), 0, 0, j.loc)
		if err := handle.SleepUntil(next); err != nil {
			logger.Log.Info("月度换届任务已停止。")
			return
		}
		j.runMonthlyRollover(handle.Ctx())
	}
}

// StartWeeklyMaintenance 启动每周日04:00的维护任务（清理+备份）。
func (j *Jobs) StartWeeklyMaintenance(handle *lifecycle.Handle) {
	defer handle.Close()
	logger.Log.Info("每周维护任务已启动。")
	for {
		next := nextWeekly(time.Now(), time.Sunday, 4, 0, j.loc)
		if err := handle.SleepUntil(next); err != nil {
			logger.Log.Info("每周维护任务已停止。")
			return
		}
		j.runWeeklyMaintenance(handle.Ctx())
	}
}

// StartBirthdayDigest 启动每日00:00的生日祝福任务。
func (j *Jobs) StartBirthdayDigest(handle *lifecycle.Handle) {
	defer handle.Close()
	logger.Log.Info("生日祝福任务已启动。")
	for {
		next := nextDaily(time.Now(), 0, 0, j.loc)
		if err := handle.SleepUntil(next); err != nil {
			logger.Log.Info("生日祝福任务已停止。")
			return
		}
		j.runBirthdayDigest(handle.Ctx())
	}
}

// runInactivitySweep 给超过阈值未活跃的成员打上不活跃角色。
// 已离开或已持有角色的成员跳过；单个成员的失败不影响其余成员。
func (j *Jobs) runInactivitySweep(ctx context.Context) {
	roleID := j.cfg.Guild.Roles.Inactive
	if roleID == "" {
		logger.Log.Warn("[不活跃扫描] 未配置不活跃角色ID，本次运行中止。")
		return
	}

	users, err := j.act.UsersInactiveSince(ctx, j.cfg.Tracking.InactivityDays, time.Now())
	if err != nil {
		logger.Log.Errorf("[不活跃扫描] 查询不活跃用户失败: %v", err)
		return
	}

	marked := 0
	for _, user := range users {
		member, err := j.roster.Member(ctx, user.UserID)
		if err != nil {
			if !errors.Is(err, transport.ErrNotFound) {
				logger.Log.Warnf("[不活跃扫描] 查询成员 %s 失败: %v", user.UserID, err)
			}
			continue
		}
		if member.HasRole(roleID) {
			continue
		}

		if err := j.roster.AddRole(ctx, user.UserID, roleID); err != nil {
			logger.Log.Warnf("[不活跃扫描] 为成员 %s 添加角色失败: %v", user.UserID, err)
			continue
		}
		marked++

		// 逐个限速，避免一次性打爆名册接口
		if j.pace > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(j.pace):
			}
		}
	}

	logger.Log.Infof("[不活跃扫描] 完成: 候选 %d 人, 新标记 %d 人。", len(users), marked)
}

// runMonthlyRollover 把月度之星角色移交给上个自然月的活动冠军并公告。
// 冠军已离开时只做摘除：角色空置到下月，属可接受的瞬态。
func (j *Jobs) runMonthlyRollover(ctx context.Context) {
	roleID := j.cfg.Guild.Roles.MemberOfMonth
	if roleID == "" {
		logger.Log.Warn("[月度换届] 未配置月度之星角色ID，本次运行中止。")
		return
	}

	startMs, endMs := previousMonthWindow(time.Now(), j.loc)
	winner, err := j.act.TopUserInWindow(ctx, startMs, endMs)
	if err != nil {
		logger.Log.Errorf("[月度换届] 统计上月冠军失败: %v", err)
		return
	}
	if winner == nil {
		logger.Log.Info("[月度换届] 上月没有任何活动记录，跳过。")
		return
	}

	holders, err := j.roster.RoleHolders(ctx, roleID)
	if err != nil {
		logger.Log.Errorf("[月度换届] 查询当前持有者失败: %v", err)
		return
	}
	for _, holderID := range holders {
		if err := j.roster.RemoveRole(ctx, holderID, roleID); err != nil {
			logger.Log.Warnf("[月度换届] 摘除成员 %s 的角色失败: %v", holderID, err)
		}
	}

	if err := j.roster.AddRole(ctx, winner.UserID, roleID); err != nil {
		if errors.Is(err, transport.ErrNotFound) {
			logger.Log.Warnf("[月度换届] 冠军 %s 已离开服务器，本月角色空置。", winner.UserID)
		} else {
			logger.Log.Errorf("[月度换届] 授予冠军 %s 角色失败: %v", winner.UserID, err)
		}
		return
	}

	if j.cfg.Guild.Channels.Announcement != "" {
		content := fmt.Sprintf("🏆 恭喜 **%s** 以 %d 次活动成为上月的月度之星！", winner.Username, winner.Score)
		if _, err := j.messenger.Send(ctx, j.cfg.Guild.Channels.Announcement, content); err != nil {
			logger.Log.Warnf("[月度换届] 发送公告失败: %v", err)
		}
	}

	logger.Log.Infof("[月度换届] 完成: 冠军 %s (%d 次活动)。", winner.UserID, winner.Score)
}

// runWeeklyMaintenance 清除过期事件、产出备份文件并轮换旧备份。
func (j *Jobs) runWeeklyMaintenance(ctx context.Context) {
	deleted, err := j.act.PruneEvents(ctx, j.cfg.Tracking.RetentionDays, time.Now())
	if err != nil {
		logger.Log.Errorf("[每周维护] 清理过期事件失败: %v", err)
	} else {
		logger.Log.Infof("[每周维护] 已清除 %d 条过期事件。", deleted)
	}

	artifact, err := backup.CreateArtifact(j.db.Path, j.cfg.Jobs.Backup.Dir, time.Now())
	if err != nil {
		logger.Log.Errorf("[每周维护] 创建备份失败: %v", err)
		return
	}
	logger.Log.Infof("[每周维护] 备份已写入 %s。", artifact)

	if j.cfg.Guild.Channels.Backups != "" {
		summary := fmt.Sprintf("🗄️ 每周数据库备份（已清除 %d 条过期事件）。", deleted)
		if err := j.messenger.SendFile(ctx, j.cfg.Guild.Channels.Backups, summary, artifact); err != nil {
			logger.Log.Warnf("[每周维护] 上传备份失败: %v", err)
		}
	}

	removed, err := backup.Rotate(j.cfg.Jobs.Backup.Dir, j.cfg.Jobs.Backup.Keep)
	if err != nil {
		logger.Log.Warnf("[每周维护] 轮换旧备份失败: %v", err)
	} else if removed > 0 {
		logger.Log.Infof("[每周维护] 已删除 %d 个旧备份。", removed)
	}
}

// runBirthdayDigest 把今天的寿星汇总成一条公告。没有寿星则保持沉默。
func (j *Jobs) runBirthdayDigest(ctx context.Context) {
	channelID := j.cfg.Guild.Channels.Announcement
	if channelID == "" {
		logger.Log.Warn("[生日祝福] 未配置公告频道ID，本次运行中止。")
		return
	}

	celebrants, err := j.bd.CelebrantsFor(ctx, time.Now().In(j.loc))
	if err != nil {
		logger.Log.Errorf("[生日祝福] 查询今日寿星失败: %v", err)
		return
	}
	if len(celebrants) == 0 {
		return
	}

	names := make([]string, len(celebrants))
	for i, c := range celebrants {
		names[i] = fmt.Sprintf("**%s**", c.Username)
	}
	content := fmt.Sprintf("🎂 今天是 %s 的生日，祝生日快乐！🎉", strings.Join(names, "、"))
	if _, err := j.messenger.Send(ctx, channelID, content); err != nil {
		logger.Log.Warnf("[生日祝福] 发送公告失败: %v", err)
		return
	}

	logger.Log.Infof("[生日祝福] 已为 %d 位寿星送出祝福。", len(celebrants))
}
