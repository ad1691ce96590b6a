package birthday

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/SlpAus/guild-activity-tracker/internal/platform/logger"
	"github.com/SlpAus/guild-activity-tracker/internal/transport"
)

const (
	// BoardMarker 是识别看板消息的内容标记。
	BoardMarker = "生日列表"

	boardTitle = "## 🎂 生日列表"

	// chunkLimit 是单条看板消息的内容上限，留出与平台2000字符硬限的余量。
	chunkLimit = 1900

	// slotWindow 是在频道中回看的消息条数，看板槽位只会在这个窗口内。
	slotWindow = 10
)

// BuildChunks 把排序后的生日数据渲染成若干条不超过上限的看板文本。
// 月份变化时插入一行月份标题；单条目永不跨块。空数据集返回空切片。
func BuildChunks(entries []Birthday) []string {
	if len(entries) == 0 {
		return nil
	}

	lines := make([]string, 0, len(entries)+12)
	currentMonth := 0
	for _, e := range entries {
		if e.Month != currentMonth {
			currentMonth = e.Month
			lines = append(lines, fmt.Sprintf("\n# %s", MonthName(e.Month)))
		}
		lines = append(lines, fmt.Sprintf("> %02d/%02d — %s", e.Day, e.Month, e.Username))
	}

	var chunks []string
	current := boardTitle + "\n"
	page := 1

	for _, line := range lines {
		if len(current)+1+len(line) > chunkLimit {
			chunks = append(chunks, current)
			page++
			current = fmt.Sprintf("%s *(第%d页)*\n", boardTitle, page) + line
		} else {
			current += "\n" + line
		}
	}
	chunks = append(chunks, current)

	return chunks
}

// Reconciler 把生日数据集映射到频道中一段有界的看板消息上。
// 它按索引对齐地比对目标内容与现有槽位，用最少的编辑/创建/删除
// 使频道最终恰好显示当前数据集；底层数据未变时重跑一次是零操作。
type Reconciler struct {
	repo      *Repository
	messenger transport.Messenger
	channelID string
	selfID    string
}

// NewReconciler 构造看板协调器。channelID为空时Refresh直接跳过。
func NewReconciler(repo *Repository, messenger transport.Messenger, channelID, selfID string) *Reconciler {
	return &Reconciler{repo: repo, messenger: messenger, channelID: channelID, selfID: selfID}
}

// Refresh 执行一轮完整的看板同步。
func (r *Reconciler) Refresh(ctx context.Context) error {
	if r.channelID == "" {
		logger.Log.Warn("看板同步跳过: 未配置生日频道ID。")
		return nil
	}

	entries, err := r.repo.All(ctx)
	if err != nil {
		return err
	}
	chunks := BuildChunks(entries)

	slots, err := r.fetchSlots(ctx)
	if err != nil {
		return err
	}

	// 按索引对齐地zip目标块与现有槽位
	edits, creates, deletes := 0, 0, 0
	for i, chunk := range chunks {
		if i < len(slots) {
			if slots[i].Content == chunk {
				continue
			}
			if err := r.messenger.Edit(ctx, r.channelID, slots[i].ID, chunk); err != nil {
				return fmt.Errorf("编辑看板消息 %s 失败: %w", slots[i].ID, err)
			}
			edits++
		} else {
			if _, err := r.messenger.Send(ctx, r.channelID, chunk); err != nil {
				return fmt.Errorf("创建看板消息失败: %w", err)
			}
			creates++
		}
	}
	for i := len(chunks); i < len(slots); i++ {
		if err := r.messenger.Delete(ctx, r.channelID, slots[i].ID); err != nil {
			if errors.Is(err, transport.ErrNotFound) {
				continue
			}
			return fmt.Errorf("删除多余看板消息 %s 失败: %w", slots[i].ID, err)
		}
		deletes++
	}

	if edits+creates+deletes > 0 {
		logger.Log.Infof("看板同步完成: %d 编辑, %d 创建, %d 删除。", edits, creates, deletes)
	}
	return nil
}

// fetchSlots 抓取频道最近的消息窗口，过滤出属于本引擎的看板消息，
// 并按从旧到新排列，作为当前的槽位序列。
func (r *Reconciler) fetchSlots(ctx context.Context) ([]transport.Message, error) {
	recent, err := r.messenger.Recent(ctx, r.channelID, slotWindow)
	if err != nil {
		return nil, fmt.Errorf("抓取看板频道消息失败: %w", err)
	}

	var slots []transport.Message
	for _, m := range recent {
		if m.AuthorID == r.selfID && strings.Contains(m.Content, BoardMarker) {
			slots = append(slots, m)
		}
	}

	// Recent返回从新到旧，槽位需要从旧到新
	for i, j := 0, len(slots)-1; i < j; i, j = i+1, j-1 {
		slots[i], slots[j] = slots[j], slots[i]
	}
	return slots, nil
}
