package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/SlpAus/guild-activity-tracker/internal/activity"
	"github.com/SlpAus/guild-activity-tracker/internal/platform/logger"
	"github.com/SlpAus/guild-activity-tracker/internal/transport"
)

const (
	// pageSize 是单次历史抓取的消息条数上限。
	pageSize = 100
	// defaultPace 是两次历史抓取之间的间隔，用于尊重下游限速。
	defaultPace = 600 * time.Millisecond
)

// Result 汇总一次深度扫描的处理量，供管理接口回报。
type Result struct {
	ChannelsProcessed int
	MessagesIndexed   int
}

// Scanner 对全部可见频道的历史消息做分页回填。
// 单个频道的失败只记录日志并跳过，绝不中止整次扫描。
type Scanner struct {
	history transport.History
	act     *activity.Service
	// pace 可在测试中置零
	pace time.Duration
}

// NewScanner 构造深度扫描器。
func NewScanner(history transport.History, act *activity.Service) *Scanner {
	return &Scanner{history: history, act: act, pace: defaultPace}
}

// Run 回扫最近days天的历史并批量回填。
// 回填只用max-merge修正用户的新近度，重跑是安全的。
func (s *Scanner) Run(ctx context.Context, days int) (Result, error) {
	var result Result

	cutoff := time.Now().AddDate(0, 0, -days)
	channels, err := s.history.Channels(ctx)
	if err != nil {
		return result, fmt.Errorf("无法获取频道列表: %w", err)
	}

	logger.Log.Infof("[扫描] 开始深度扫描 %d 个频道，回溯 %d 天。", len(channels), days)

	for _, ch := range channels {
		if !ch.Viewable {
			result.ChannelsProcessed++
			continue
		}

		indexed, err := s.scanChannel(ctx, ch, cutoff)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			logger.Log.Warnf("[扫描] 频道 %s 处理失败: %v", ch.Name, err)
		}
		result.MessagesIndexed += indexed
		result.ChannelsProcessed++
	}

	logger.Log.Infof("[扫描] 完成: %d 个频道, %d 条消息。", result.ChannelsProcessed, result.MessagesIndexed)
	return result, nil
}

// scanChannel 从最新消息向旧分页，直到越过时间下界。
func (s *Scanner) scanChannel(ctx context.Context, ch transport.Channel, cutoff time.Time) (int, error) {
	indexed := 0
	beforeID := ""

	for {
		page, err := s.history.MessagesBefore(ctx, ch.ID, beforeID, pageSize)
		if err != nil {
			return indexed, err
		}
		if len(page) == 0 {
			return indexed, nil
		}

		batch := make([]activity.BatchEntry, 0, len(page))
		reachedCutoff := false
		for _, msg := range page {
			if msg.Timestamp.Before(cutoff) {
				reachedCutoff = true
				break
			}
			if msg.AuthorBot {
				continue
			}
			batch = append(batch, activity.BatchEntry{
				UserID:    msg.AuthorID,
				Username:  msg.AuthorName,
				Timestamp: msg.Timestamp.UnixMilli(),
			})
		}

		if len(batch) > 0 {
			if err := s.act.RecordBatch(ctx, batch); err != nil {
				return indexed, err
			}
			indexed += len(batch)
		}

		if reachedCutoff {
			return indexed, nil
		}

		beforeID = page[len(page)-1].ID

		// 抓取间隔，避免触发下游限速
		if s.pace > 0 {
			select {
			case <-ctx.Done():
				return indexed, ctx.Err()
			case <-time.After(s.pace):
			}
		}
	}
}
